package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/safedrive/internal/middleware"
	"github.com/atinyakov/safedrive/internal/models"
)

// NoteService defines the note operations used by NoteHandler.
type NoteService interface {
	List(ctx context.Context, userID string) ([]models.Note, error)
	Search(ctx context.Context, userID, query string) ([]models.Note, error)
	Create(ctx context.Context, userID string, req models.NoteRequest) (models.Note, error)
	Update(ctx context.Context, userID, id string, req models.NoteRequest) (models.Note, error)
	Delete(ctx context.Context, userID, id string) error
}

// NoteHandler serves /notes.
type NoteHandler struct {
	Service NoteService
	Log     *zap.Logger
}

// List handles GET /notes.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	notes, err := h.Service.List(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	h.respond(w, notes, err)
}

// Search handles GET /notes/search?query=.
func (h *NoteHandler) Search(w http.ResponseWriter, r *http.Request) {
	notes, err := h.Service.Search(r.Context(), middleware.GetUserIDFromContext(r.Context()), r.URL.Query().Get("query"))
	h.respond(w, notes, err)
}

// Create handles POST /notes.
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.Service.Create(r.Context(), middleware.GetUserIDFromContext(r.Context()), req)
	h.respond(w, note, err)
}

// Update handles PUT /notes/{id}.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.Service.Update(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"), req)
	h.respond(w, note, err)
}

// Delete handles DELETE /notes/{id}.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *NoteHandler) respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
