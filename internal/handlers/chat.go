package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"textbook-gateway/internal/backend"
	"textbook-gateway/internal/fallback"
	"textbook-gateway/internal/logger"
	"textbook-gateway/internal/middleware"
	"textbook-gateway/internal/models"
)

type ChatHandler struct {
	backend Backend
	log     *logger.Logger
}

func NewChatHandler(b Backend, log *logger.Logger) *ChatHandler {
	return &ChatHandler{backend: b, log: log}
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message is required", r))
		return
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		token, _ = middleware.BearerToken(r)
	}

	raw, err := h.backend.Chat(r.Context(), token, req.Message)
	if err != nil {
		h.log.Warn("chat backend failed, serving fallback", "error", err)
		writeJSON(w, http.StatusOK, fallback.Chat(token != ""))
		return
	}
	writeRaw(w, http.StatusOK, raw)
}

func (h *ChatHandler) Greeting(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.BearerToken(r)

	raw, err := h.backend.Chat(r.Context(), token, backend.GreetingPrompt)
	if err != nil {
		h.log.Warn("greeting backend failed, serving fallback", "error", err)
		writeJSON(w, http.StatusOK, fallback.Greeting(token != ""))
		return
	}
	writeRaw(w, http.StatusOK, raw)
}
