package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"textbook-gateway/internal/fallback"
	"textbook-gateway/internal/logger"
	"textbook-gateway/internal/services"
)

type CatalogHandler struct {
	textbooks textbookService
	backend   Backend
	log       *logger.Logger
}

func NewCatalogHandler(textbooks textbookService, backend Backend, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{textbooks: textbooks, backend: backend, log: log}
}

func (h *CatalogHandler) ListTextbooks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.textbooks.List(r.Context()))
}

func (h *CatalogHandler) Chapters(w http.ResponseWriter, r *http.Request) {
	textbookID := chi.URLParam(r, "textbookId")

	raw, err := h.backend.ListChapters(r.Context(), textbookID)
	if err != nil {
		h.log.Warn("chapters backend failed, serving placeholders", "textbook_id", textbookID, "error", err)
		writeJSON(w, http.StatusOK, fallback.Chapters(textbookID))
		return
	}
	writeRaw(w, http.StatusOK, raw)
}

func (h *CatalogHandler) ChapterPDF(w http.ResponseWriter, r *http.Request) {
	textbookID := chi.URLParam(r, "textbookId")
	chapterID := chi.URLParam(r, "chapterId")

	data, err := h.backend.FetchPDF(r.Context(), textbookID, chapterID)
	if err != nil {
		h.log.Warn("pdf backend failed", "textbook_id", textbookID, "chapter_id", chapterID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorRespWithDetail("PDF_UNAVAILABLE", "Failed to fetch PDF", err.Error(), r))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s_chapter%s.pdf"`, textbookID, chapterID))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *CatalogHandler) TextbookFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rc, err := h.textbooks.Open(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s.pdf"`, id))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.log.Warn("textbook stream interrupted", "textbook_id", id, "error", err)
	}
}

func (h *CatalogHandler) DeleteTextbook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.textbooks.Delete(r.Context(), id); err != nil {
		var nf *services.NotFoundError
		if !errors.As(err, &nf) {
			h.log.Error("textbook delete failed", "textbook_id", id, "error", err)
		}
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "id": id})
}
