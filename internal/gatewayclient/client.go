// Package gatewayclient is the terminal client's HTTP client for the
// textbook gateway.
package gatewayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"textbook-gateway/internal/models"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError carries the gateway's error body.
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.Status, e.Message)
}

// ServerMessage is the text shown to the user in the conversation.
func (e *APIError) ServerMessage() string { return e.Message }

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Greeting(ctx context.Context, token string) (models.ChatResponse, error) {
	var resp models.ChatResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/greeting", token, nil, &resp)
	return resp, err
}

// Chat sends the token in the body, as the gateway's chat route expects.
func (c *Client) Chat(ctx context.Context, message, token string) (models.ChatResponse, error) {
	var resp models.ChatResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/chat", "", models.ChatRequest{Message: message, Token: token}, &resp)
	return resp, err
}

func (c *Client) RecordAnswer(ctx context.Context, token string, answer models.QuizAnswerRequest) error {
	var resp models.QuizAnswerResponse
	return c.doJSON(ctx, http.MethodPost, "/api/quiz/answer", token, answer, &resp)
}

func (c *Client) Progress(ctx context.Context, token string) (models.ProgressRecord, error) {
	var resp models.ProgressRecord
	err := c.doJSON(ctx, http.MethodGet, "/api/user/progress", token, nil, &resp)
	return resp, err
}

func (c *Client) Textbooks(ctx context.Context) ([]models.Textbook, error) {
	var resp []models.Textbook
	err := c.doJSON(ctx, http.MethodGet, "/api/textbooks", "", nil, &resp)
	return resp, err
}

func (c *Client) Chapters(ctx context.Context, textbookID string) (models.ChapterList, error) {
	var resp models.ChapterList
	err := c.doJSON(ctx, http.MethodGet, "/api/chapters/"+url.PathEscape(textbookID), "", nil, &resp)
	return resp, err
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp models.ErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			return &APIError{Status: resp.StatusCode, Message: errResp.Error, Code: errResp.Code}
		}
		return &APIError{Status: resp.StatusCode, Message: resp.Status}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
