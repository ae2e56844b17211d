package handlers

import (
	"context"
	"encoding/json"
	"io"

	"textbook-gateway/internal/models"
	"textbook-gateway/internal/services"
)

// Backend is the inference backend as seen by the gateway handlers.
type Backend interface {
	Chat(ctx context.Context, token, message string) (json.RawMessage, error)
	ListChapters(ctx context.Context, textbookID string) (json.RawMessage, error)
	FetchPDF(ctx context.Context, textbookID, chapterID string) ([]byte, error)
	RecordQuizAnswer(ctx context.Context, token string, answer models.QuizAnswerRequest) (json.RawMessage, error)
	Progress(ctx context.Context, token string) (json.RawMessage, error)
}

type textbookService interface {
	List(ctx context.Context) []models.Textbook
	Upload(ctx context.Context, in services.UploadInput) (*models.Textbook, error)
	Open(ctx context.Context, id string) (io.ReadCloser, error)
	Delete(ctx context.Context, id string) error
}
