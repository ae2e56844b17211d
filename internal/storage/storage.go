// Package storage holds uploaded textbook binaries.
package storage

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectStore provides access to textbook binaries by key.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// KeyFor returns the storage key of a textbook's PDF.
func KeyFor(textbookID string) string {
	return "textbooks/" + textbookID + ".pdf"
}
