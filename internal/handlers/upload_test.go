package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"textbook-gateway/internal/logger"
	"textbook-gateway/internal/models"
	"textbook-gateway/internal/repository"
	"textbook-gateway/internal/services"
	"textbook-gateway/internal/storage"
)

type uploadFixture struct {
	repo      *repository.TextbookRepo
	metaPath  string
	storeRoot string
	catalog   *CatalogHandler
	upload    *UploadHandler
}

func newUploadFixture(t *testing.T, maxBytes int64) *uploadFixture {
	t.Helper()
	dir := t.TempDir()
	metaPath := filepath.Join(dir, "textbooks.json")
	storeRoot := filepath.Join(dir, "uploads")

	repo := repository.NewTextbookRepo(metaPath)
	store, err := storage.NewLocalStore(storeRoot)
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	svc := services.NewTextbookService(repo, store, nil, logger.NewNop())
	return &uploadFixture{
		repo:      repo,
		metaPath:  metaPath,
		storeRoot: storeRoot,
		catalog:   NewCatalogHandler(svc, &stubBackend{}, logger.NewNop()),
		upload:    NewUploadHandler(svc, maxBytes, logger.NewNop()),
	}
}

func multipartBody(t *testing.T, contentType string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if content != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="book.pdf"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("CreatePart: %v", err)
		}
		part.Write(content)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUpload_PlainTextRejectedWithoutMutation(t *testing.T) {
	f := newUploadFixture(t, 1<<20)

	body, ct := multipartBody(t, "text/plain", []byte("chapter one notes"), map[string]string{"title": "Notes"})
	r := httptest.NewRequest(http.MethodPost, "/api/textbooks/upload", body)
	r.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	f.upload.Upload(rr, r)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
	if _, err := os.Stat(f.metaPath); !os.IsNotExist(err) {
		t.Fatalf("metadata file should not exist, stat err=%v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(f.storeRoot, "textbooks"))
	if len(entries) != 0 {
		t.Fatalf("no binary should be stored, found %d", len(entries))
	}
}

func TestUpload_MissingFile(t *testing.T) {
	f := newUploadFixture(t, 1<<20)
	body, ct := multipartBody(t, "", nil, map[string]string{"title": "Nothing"})
	r := httptest.NewRequest(http.MethodPost, "/api/textbooks/upload", body)
	r.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	f.upload.Upload(rr, r)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestUpload_TooLarge(t *testing.T) {
	f := newUploadFixture(t, 1024)
	body, ct := multipartBody(t, "application/pdf", append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), 4096)...), nil)
	r := httptest.NewRequest(http.MethodPost, "/api/textbooks/upload", body)
	r.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	f.upload.Upload(rr, r)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
}

func TestUpload_ListFetchDelete(t *testing.T) {
	f := newUploadFixture(t, 1<<20)
	content := []byte("%PDF-1.4\n% minimal\n")

	body, ct := multipartBody(t, "application/pdf", content, map[string]string{"title": "Physics", "author": "Urone"})
	r := httptest.NewRequest(http.MethodPost, "/api/textbooks/upload", body)
	r.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	f.upload.Upload(rr, r)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp models.UploadResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Message != "Textbook uploaded successfully" {
		t.Fatalf("unexpected response %+v", resp)
	}
	book := resp.Textbook
	if book.Title != "Physics" || book.Author != "Urone" || book.ID == "" {
		t.Fatalf("unexpected textbook %+v", book)
	}

	rr = httptest.NewRecorder()
	f.catalog.ListTextbooks(rr, httptest.NewRequest(http.MethodGet, "/api/textbooks", nil))
	var books []models.Textbook
	json.Unmarshal(rr.Body.Bytes(), &books)
	if len(books) != 1 || books[0].ID != book.ID {
		t.Fatalf("expected uploaded book in listing, got %+v", books)
	}

	rr = httptest.NewRecorder()
	f.catalog.TextbookFile(rr, withParams(httptest.NewRequest(http.MethodGet, "/", nil), "id", book.ID))
	got, _ := io.ReadAll(rr.Body)
	if rr.Code != http.StatusOK || !bytes.Equal(got, content) {
		t.Fatalf("unexpected file response %d %q", rr.Code, got)
	}

	rr = httptest.NewRecorder()
	f.catalog.DeleteTextbook(rr, withParams(httptest.NewRequest(http.MethodDelete, "/", nil), "id", book.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", rr.Code)
	}
	if _, err := f.repo.GetByID(context.Background(), book.ID); err == nil {
		t.Fatal("record should be gone")
	}

	rr = httptest.NewRecorder()
	f.catalog.DeleteTextbook(rr, withParams(httptest.NewRequest(http.MethodDelete, "/", nil), "id", book.ID))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting twice, got %d", rr.Code)
	}
}

func TestListTextbooks_EmptyStoreServesPlaceholders(t *testing.T) {
	f := newUploadFixture(t, 1<<20)
	rr := httptest.NewRecorder()
	f.catalog.ListTextbooks(rr, httptest.NewRequest(http.MethodGet, "/api/textbooks", nil))

	var books []models.Textbook
	if err := json.Unmarshal(rr.Body.Bytes(), &books); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(books) != 3 || books[0].Title != "Physics" {
		t.Fatalf("unexpected placeholder catalog %+v", books)
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
