package http

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/safedrive/internal/middleware"
	"github.com/atinyakov/safedrive/internal/models"
)

// multipartOverhead is the allowance for form boundaries and part headers on
// top of the file size limit.
const multipartOverhead = 1 << 20

// FileService defines the file operations used by FileHandler.
type FileService interface {
	List(ctx context.Context, userID string) ([]models.File, error)
	Search(ctx context.Context, userID, query string) ([]models.File, error)
	Upload(ctx context.Context, userID, name, contentType string, r io.Reader) (models.File, error)
	Open(ctx context.Context, userID, id string) (*models.File, *os.File, error)
	Delete(ctx context.Context, userID, id string) error
}

// FileHandler serves /files.
type FileHandler struct {
	Service FileService
	// MaxBytes bounds the size of one upload.
	MaxBytes int64
	Log      *zap.Logger
}

// List handles GET /files.
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	files, err := h.Service.List(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	h.respond(w, files, err)
}

// Search handles GET /files/search?query=.
func (h *FileHandler) Search(w http.ResponseWriter, r *http.Request) {
	files, err := h.Service.Search(r.Context(), middleware.GetUserIDFromContext(r.Context()), r.URL.Query().Get("query"))
	h.respond(w, files, err)
}

// Upload handles POST /files/upload, a multipart form with a "file" field.
// The part is streamed to storage without buffering the whole form.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes+multipartOverhead)
	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart form expected")
		return
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "file field is required")
			return
		}
		if err != nil {
			writeServiceError(w, h.Log, err)
			return
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}
		file, err := h.Service.Upload(r.Context(), middleware.GetUserIDFromContext(r.Context()),
			part.FileName(), part.Header.Get("Content-Type"), part)
		part.Close()
		h.respond(w, file, err)
		return
	}
}

// Download handles GET /files/{id} and streams the stored content.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	meta, content, err := h.Service.Open(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	defer content.Close()

	noStore(w)
	w.Header().Set("Content-Type", meta.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": meta.OriginalName}))
	w.Header().Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content); err != nil && h.Log != nil {
		h.Log.Warn("download interrupted", zap.String("file_id", meta.ID), zap.Error(err))
	}
}

// Delete handles DELETE /files/{id}.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	if err := h.Service.Delete(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *FileHandler) respond(w http.ResponseWriter, v any, err error) {
	noStore(w)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
