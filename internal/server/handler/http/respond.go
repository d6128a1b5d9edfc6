// Package http provides the HTTP handlers and routing of the vault API.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/safedrive/internal/models"
	"github.com/atinyakov/safedrive/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Status: status, Message: msg})
}

// noStore marks a response as not cacheable.
func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}

// writeServiceError maps service errors onto status codes. Unknown errors are
// logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, service.ErrEmailTaken), errors.Is(err, service.ErrDuplicateService):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrTooLarge), errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "File size exceeds maximum limit")
	default:
		if log != nil {
			log.Error("request failed", zap.Error(err))
		}
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}
