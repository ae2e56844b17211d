package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"textbook-gateway/internal/fallback"
	"textbook-gateway/internal/logger"
	"textbook-gateway/internal/models"
	"textbook-gateway/internal/repository"
	"textbook-gateway/internal/storage"
)

const pdfContentType = "application/pdf"

// TextbookRepo is the subset of repository.TextbookRepo the service needs.
type TextbookRepo interface {
	List(ctx context.Context) ([]models.Textbook, error)
	GetByID(ctx context.Context, id string) (*models.Textbook, error)
	Append(ctx context.Context, book models.Textbook) error
	Delete(ctx context.Context, id string) error
}

// EventPublisher receives catalog change notifications.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload interface{})
}

// UploadFile is satisfied by multipart.File.
type UploadFile interface {
	io.Reader
	io.ReaderAt
	io.Seeker
}

type UploadInput struct {
	File         UploadFile
	Filename     string
	DeclaredType string
	Size         int64
	Title        string
	Author       string
}

type TextbookService struct {
	repo   TextbookRepo
	store  storage.ObjectStore
	events EventPublisher
	log    *logger.Logger
	now    func() time.Time
	newID  func() string
}

func NewTextbookService(repo TextbookRepo, store storage.ObjectStore, events EventPublisher, log *logger.Logger) *TextbookService {
	if log == nil {
		log = logger.NewNop()
	}
	return &TextbookService{
		repo:   repo,
		store:  store,
		events: events,
		log:    log,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// List returns stored textbooks. An empty or unreadable store yields the
// placeholder catalog.
func (s *TextbookService) List(ctx context.Context) []models.Textbook {
	books, err := s.repo.List(ctx)
	if err != nil {
		s.log.Warn("metadata unreadable, serving placeholder catalog", "error", err)
		return fallback.Catalog()
	}
	if len(books) == 0 {
		return fallback.Catalog()
	}
	return books
}

// Upload validates a PDF, stores it and appends its metadata record. If the
// append fails the stored binary is removed again.
func (s *TextbookService) Upload(ctx context.Context, in UploadInput) (*models.Textbook, error) {
	if in.File == nil {
		return nil, &ValidationError{Message: "No file provided", Fields: map[string]string{"file": "required"}}
	}
	if !isPDFContentType(in.DeclaredType) {
		return nil, &ValidationError{Message: "Only PDF files are allowed", Fields: map[string]string{"file": "must be application/pdf"}}
	}

	// Read first 512 bytes for magic byte check
	buf := make([]byte, 512)
	n, err := io.ReadFull(in.File, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if http.DetectContentType(buf[:n]) != pdfContentType {
		return nil, &ValidationError{Message: "Only PDF files are allowed", Fields: map[string]string{"file": "content is not a PDF"}}
	}
	if _, err := in.File.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}

	id := s.newID()
	key := storage.KeyFor(id)
	if err := s.store.Put(ctx, key, in.File, in.Size, pdfContentType); err != nil {
		return nil, fmt.Errorf("store binary: %w", err)
	}

	pages, err := CountPDFPages(in.File, in.Size)
	if err != nil {
		s.log.Warn("could not count pdf pages", "textbook_id", id, "error", err)
		pages = 0
	}

	book := models.Textbook{
		ID:         id,
		Title:      firstNonEmpty(in.Title, in.Filename),
		Author:     firstNonEmpty(in.Author, "Unknown"),
		UploadDate: s.now().UTC(),
		Pages:      pages,
		Thumbnail:  fallback.PlaceholderThumbnail,
		FileURL:    "/api/textbooks/" + id + "/file",
	}

	if err := s.repo.Append(ctx, book); err != nil {
		if delErr := s.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.log.Error("orphaned textbook binary", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("append metadata: %w", err)
	}

	s.log.Info("textbook uploaded", "textbook_id", id, "pages", pages, "bytes", in.Size)
	if s.events != nil {
		s.events.Publish(ctx, models.EventTextbookUploaded, book)
	}
	return &book, nil
}

// Open streams the stored binary of a textbook.
func (s *TextbookService) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Message: "Textbook not found"}
		}
		return nil, err
	}
	rc, err := s.store.Open(ctx, storage.KeyFor(id))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, &NotFoundError{Message: "Textbook file not found"}
		}
		return nil, err
	}
	return rc, nil
}

// Delete removes the metadata record and then the binary. A failed binary
// delete is logged, not returned.
func (s *TextbookService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Message: "Textbook not found"}
		}
		return fmt.Errorf("delete metadata: %w", err)
	}
	if err := s.store.Delete(ctx, storage.KeyFor(id)); err != nil {
		s.log.Warn("textbook binary not removed", "textbook_id", id, "error", err)
	}
	if s.events != nil {
		s.events.Publish(ctx, models.EventTextbookDeleted, models.TextbookDeletedEvent{ID: id})
	}
	return nil
}

func isPDFContentType(declared string) bool {
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return false
	}
	return strings.EqualFold(mediaType, pdfContentType)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
