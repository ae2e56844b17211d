package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"textbook-gateway/internal/logger"
	"textbook-gateway/internal/models"
	"textbook-gateway/internal/services"
)

const multipartMemory = 32 << 20

type UploadHandler struct {
	textbooks textbookService
	maxBytes  int64
	log       *logger.Logger
}

func NewUploadHandler(textbooks textbookService, maxBytes int64, log *logger.Logger) *UploadHandler {
	return &UploadHandler{textbooks: textbooks, maxBytes: maxBytes, log: log}
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	limitMsg := fmt.Sprintf("File size exceeds %dMB limit", h.maxBytes>>20)

	// Check content length
	if r.ContentLength > h.maxBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", limitMsg, r))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", limitMsg, r))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid multipart form", r))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	book, err := h.textbooks.Upload(r.Context(), services.UploadInput{
		File:         file,
		Filename:     header.Filename,
		DeclaredType: header.Header.Get("Content-Type"),
		Size:         header.Size,
		Title:        r.FormValue("title"),
		Author:       r.FormValue("author"),
	})
	if err != nil {
		var vErr *services.ValidationError
		if errors.As(err, &vErr) {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", vErr.Error(), r))
			return
		}
		h.log.Error("textbook upload failed", "filename", header.Filename, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to upload textbook", r))
		return
	}

	writeJSON(w, http.StatusOK, models.UploadResponse{
		Success:  true,
		Message:  "Textbook uploaded successfully",
		Textbook: *book,
	})
}
