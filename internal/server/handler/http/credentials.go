package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/safedrive/internal/middleware"
	"github.com/atinyakov/safedrive/internal/models"
	"github.com/atinyakov/safedrive/internal/ratelimit"
)

// CredentialService defines the credential operations used by CredentialHandler.
type CredentialService interface {
	List(ctx context.Context, userID string) ([]models.Credential, error)
	Search(ctx context.Context, userID, query string) ([]models.Credential, error)
	Create(ctx context.Context, userID string, req models.CredentialRequest) (models.Credential, error)
	Update(ctx context.Context, userID, id string, req models.CredentialRequest) (models.Credential, error)
	Password(ctx context.Context, userID, id string) (string, error)
	Delete(ctx context.Context, userID, id string) error
}

// CredentialHandler serves /credentials. Every response is marked
// non-cacheable.
type CredentialHandler struct {
	Service CredentialService
	// Limiter bounds password reveals per user. Nil disables the limit.
	Limiter ratelimit.Limiter
	Log     *zap.Logger
}

// List handles GET /credentials.
func (h *CredentialHandler) List(w http.ResponseWriter, r *http.Request) {
	creds, err := h.Service.List(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	h.respond(w, creds, err)
}

// Search handles GET /credentials/search?query=.
func (h *CredentialHandler) Search(w http.ResponseWriter, r *http.Request) {
	creds, err := h.Service.Search(r.Context(), middleware.GetUserIDFromContext(r.Context()), r.URL.Query().Get("query"))
	h.respond(w, creds, err)
}

// Create handles POST /credentials.
func (h *CredentialHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CredentialRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cred, err := h.Service.Create(r.Context(), middleware.GetUserIDFromContext(r.Context()), req)
	h.respond(w, cred, err)
}

// Update handles PUT /credentials/{id}.
func (h *CredentialHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.CredentialRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cred, err := h.Service.Update(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id"), req)
	h.respond(w, cred, err)
}

// Password handles GET /credentials/{id}/password. The secret is returned as
// a bare text body.
func (h *CredentialHandler) Password(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	userID := middleware.GetUserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if h.Limiter != nil {
		ok, err := h.Limiter.Allow(r.Context(), userID)
		if err != nil {
			h.log().Error("reveal rate limiter failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "Password reveal is temporarily unavailable")
			return
		}
		if !ok {
			h.log().Warn("reveal rate limit exceeded", zap.String("user_id", userID))
			writeError(w, http.StatusTooManyRequests, "Too many password reveals, try again later")
			return
		}
	}

	secret, err := h.Service.Password(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	h.log().Info("credential password revealed", zap.String("user_id", userID), zap.String("credential_id", id))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(secret))
}

// Delete handles DELETE /credentials/{id}.
func (h *CredentialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	if err := h.Service.Delete(r.Context(), middleware.GetUserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *CredentialHandler) respond(w http.ResponseWriter, v any, err error) {
	noStore(w)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *CredentialHandler) log() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}
