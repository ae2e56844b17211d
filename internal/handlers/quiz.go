package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"textbook-gateway/internal/fallback"
	"textbook-gateway/internal/logger"
	"textbook-gateway/internal/middleware"
	"textbook-gateway/internal/models"
)

type QuizHandler struct {
	backend Backend
	log     *logger.Logger
	now     func() time.Time
}

func NewQuizHandler(b Backend, log *logger.Logger) *QuizHandler {
	return &QuizHandler{backend: b, log: log, now: time.Now}
}

// requestToken prefers the token attached by RequireBearer.
func requestToken(r *http.Request) string {
	if token := middleware.GetToken(r.Context()); token != "" {
		return token
	}
	token, _ := middleware.BearerToken(r)
	return token
}

func (h *QuizHandler) Answer(w http.ResponseWriter, r *http.Request) {
	token := requestToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "Authentication required", r))
		return
	}

	var req models.QuizAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	raw, err := h.backend.RecordQuizAnswer(r.Context(), token, req)
	if err != nil {
		h.log.Warn("quiz answer backend failed, serving fallback", "message_id", req.MessageID, "error", err)
		writeJSON(w, http.StatusOK, fallback.QuizAnswer(req.IsCorrect, h.now()))
		return
	}
	writeRaw(w, http.StatusOK, raw)
}

func (h *QuizHandler) Progress(w http.ResponseWriter, r *http.Request) {
	token := requestToken(r)
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "Authentication required", r))
		return
	}

	raw, err := h.backend.Progress(r.Context(), token)
	if err != nil {
		h.log.Warn("progress backend failed, serving fallback", "error", err)
		writeJSON(w, http.StatusOK, fallback.Progress(h.now()))
		return
	}
	writeRaw(w, http.StatusOK, raw)
}
