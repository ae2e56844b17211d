package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"textbook-gateway/internal/models"
)

var ErrNotFound = errors.New("textbook not found")

// TextbookRepo persists textbook metadata as a single JSON array on disk.
// Every mutation rewrites the whole file. There is no lock, so concurrent
// writers can lose updates.
type TextbookRepo struct {
	path string
}

func NewTextbookRepo(path string) *TextbookRepo {
	return &TextbookRepo{path: path}
}

// List returns every record in insertion order. A missing file is an empty
// catalog, not an error.
func (r *TextbookRepo) List(ctx context.Context) ([]models.Textbook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.Textbook{}, nil
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	if len(data) == 0 {
		return []models.Textbook{}, nil
	}
	var books []models.Textbook
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if books == nil {
		books = []models.Textbook{}
	}
	return books, nil
}

func (r *TextbookRepo) GetByID(ctx context.Context, id string) (*models.Textbook, error) {
	books, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range books {
		if books[i].ID == id {
			return &books[i], nil
		}
	}
	return nil, ErrNotFound
}

func (r *TextbookRepo) Append(ctx context.Context, book models.Textbook) error {
	books, err := r.List(ctx)
	if err != nil {
		return err
	}
	books = append(books, book)
	return r.write(books)
}

func (r *TextbookRepo) Delete(ctx context.Context, id string) error {
	books, err := r.List(ctx)
	if err != nil {
		return err
	}
	kept := books[:0]
	found := false
	for _, b := range books {
		if b.ID == id {
			found = true
			continue
		}
		kept = append(kept, b)
	}
	if !found {
		return ErrNotFound
	}
	return r.write(kept)
}

// write replaces the file via a temp file in the same directory.
func (r *TextbookRepo) write(books []models.Textbook) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create metadata dir: %w", err)
	}
	data, err := json.MarshalIndent(books, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".textbooks-*.json")
	if err != nil {
		return fmt.Errorf("create temp metadata: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close metadata: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace metadata: %w", err)
	}
	return nil
}
