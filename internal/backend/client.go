// Package backend calls the external inference backend. Each method makes
// exactly one attempt and validates the response shape so callers can
// decide whether to relay the body or substitute a fallback.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"textbook-gateway/internal/models"
)

// GreetingPrompt is sent to the chat capability once per session start.
const GreetingPrompt = "Hello, please introduce yourself, how you plan to help me, and a summary of the loaded textbook, " +
	"use the retriever tool to generate a summary. Make me engaged and exited to learn."

const (
	maxJSONBytes = 8 << 20
	maxPDFBytes  = 256 << 20
)

// ErrBodyTooLarge is returned instead of relaying a truncated body.
var ErrBodyTooLarge = errors.New("backend response exceeds size limit")

// Client talks to the inference backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError is returned when the backend answers with a non-2xx status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// ShapeError is returned when a 2xx body does not match the expected shape.
type ShapeError struct {
	Path string
	Err  error
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("malformed backend response from %s: %v", e.Path, e.Err)
}

func (e *ShapeError) Unwrap() error { return e.Err }

// NewClient constructs a backend client. A zero timeout falls back to 30s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Chat forwards a message to the backend chat capability and returns the
// raw response body.
func (c *Client) Chat(ctx context.Context, token, message string) (json.RawMessage, error) {
	data, err := json.Marshal(models.BackendChatRequest{Message: message})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req, token)
	return c.do(req, maxJSONBytes, validateChat)
}

// ListChapters returns the chapter listing for a textbook.
func (c *Client) ListChapters(ctx context.Context, textbookID string) (json.RawMessage, error) {
	path := fmt.Sprintf("%s/api/chapters/%s", c.baseURL, url.PathEscape(textbookID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, maxJSONBytes, validateChapters)
}

// FetchPDF returns the bytes of one chapter PDF.
func (c *Client) FetchPDF(ctx context.Context, textbookID, chapterID string) ([]byte, error) {
	path := fmt.Sprintf("%s/api/pdf/%s/%s", c.baseURL, url.PathEscape(textbookID), url.PathEscape(chapterID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req, maxPDFBytes, validatePDF)
}

// RecordQuizAnswer reports a quiz answer for the authenticated user.
func (c *Client) RecordQuizAnswer(ctx context.Context, token string, answer models.QuizAnswerRequest) (json.RawMessage, error) {
	data, err := json.Marshal(answer)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/quiz/answer", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req, token)
	return c.do(req, maxJSONBytes, validateQuizAnswer)
}

// Progress returns the progress record of the authenticated user.
func (c *Client) Progress(ctx context.Context, token string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user/progress", nil)
	if err != nil {
		return nil, err
	}
	addAuthHeader(req, token)
	return c.do(req, maxJSONBytes, validateProgress)
}

func (c *Client) do(req *http.Request, limit int64, validate func([]byte) error) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(body, resp.Status)}
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%s: %w (limit %d bytes)", req.URL.Path, ErrBodyTooLarge, limit)
	}
	if validate != nil {
		if err := validate(body); err != nil {
			return nil, &ShapeError{Path: req.URL.Path, Err: err}
		}
	}
	return body, nil
}

// errorMessage prefers FastAPI's "detail" and then an "error" field.
func errorMessage(body []byte, status string) string {
	var errResp struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil {
		var detail string
		if len(errResp.Detail) > 0 && json.Unmarshal(errResp.Detail, &detail) == nil && detail != "" {
			return detail
		}
		if errResp.Error != "" {
			return errResp.Error
		}
	}
	return status
}

func addAuthHeader(req *http.Request, token string) {
	if strings.TrimSpace(token) == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

func validateChat(body []byte) error {
	var shape struct {
		Response *string      `json:"response"`
		Quiz     *models.Quiz `json:"quiz"`
	}
	if err := json.Unmarshal(body, &shape); err != nil {
		return err
	}
	if shape.Response == nil && shape.Quiz == nil {
		return errors.New("neither response nor quiz present")
	}
	return nil
}

func validateChapters(body []byte) error {
	var shape struct {
		Chapters *[]models.Chapter `json:"chapters"`
	}
	if err := json.Unmarshal(body, &shape); err != nil {
		return err
	}
	if shape.Chapters == nil {
		return errors.New("chapters missing")
	}
	return nil
}

func validateQuizAnswer(body []byte) error {
	var shape struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(body, &shape); err != nil {
		return err
	}
	if shape.Success == nil {
		return errors.New("success flag missing")
	}
	return nil
}

func validateProgress(body []byte) error {
	var shape struct {
		CorrectAnswers *int `json:"correct_answers"`
		TotalAnswers   *int `json:"total_answers"`
	}
	if err := json.Unmarshal(body, &shape); err != nil {
		return err
	}
	if shape.CorrectAnswers == nil || shape.TotalAnswers == nil {
		return errors.New("answer counts missing")
	}
	return nil
}

func validatePDF(body []byte) error {
	if len(body) == 0 {
		return errors.New("empty pdf body")
	}
	return nil
}
