package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/safedrive/internal/middleware"
)

// Handlers groups the handlers mounted by NewRouter.
type Handlers struct {
	Auth        *AuthHandler
	Files       *FileHandler
	Notes       *NoteHandler
	Credentials *CredentialHandler
}

// NewRouter constructs and returns an HTTP handler that serves
// the vault API under /api.
//
// Routes:
//
//	POST   /api/auth/register             → Auth.Register
//	POST   /api/auth/login                → Auth.Login
//	GET    /api/files                     → Files.List
//	POST   /api/files/upload              → Files.Upload (multipart)
//	GET    /api/files/search?query=       → Files.Search
//	GET    /api/files/{id}                → Files.Download
//	DELETE /api/files/{id}                → Files.Delete
//	GET    /api/notes, POST /api/notes    → Notes.List, Notes.Create
//	GET    /api/notes/search?query=       → Notes.Search
//	PUT    /api/notes/{id}                → Notes.Update
//	DELETE /api/notes/{id}                → Notes.Delete
//	GET    /api/credentials, POST         → Credentials.List, Credentials.Create
//	GET    /api/credentials/search?query= → Credentials.Search
//	PUT    /api/credentials/{id}          → Credentials.Update
//	DELETE /api/credentials/{id}          → Credentials.Delete
//	GET    /api/credentials/{id}/password → Credentials.Password
//
// Middleware chain (applied in order):
//  1. Recoverer                  - turns panics into 500
//  2. WithRequestLogging(logger) - logs served requests
//  3. JWTAuth                    - bearer token auth, everything but /auth
//  4. AllowContentType           - JSON bodies, multipart for uploads
func NewRouter(h Handlers, verifier middleware.TokenVerifier, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Route("/auth", func(r chi.Router) {
			r.Use(chiMiddleware.AllowContentType("application/json"))
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
		})

		// Protected group: requires a valid bearer token
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(verifier))

			r.Route("/files", func(r chi.Router) {
				r.Get("/", h.Files.List)
				r.Get("/search", h.Files.Search)
				r.With(chiMiddleware.AllowContentType("multipart/form-data")).Post("/upload", h.Files.Upload)
				r.Get("/{id}", h.Files.Download)
				r.Delete("/{id}", h.Files.Delete)
			})

			r.Route("/notes", func(r chi.Router) {
				r.Use(chiMiddleware.AllowContentType("application/json"))
				r.Get("/", h.Notes.List)
				r.Post("/", h.Notes.Create)
				r.Get("/search", h.Notes.Search)
				r.Put("/{id}", h.Notes.Update)
				r.Delete("/{id}", h.Notes.Delete)
			})

			r.Route("/credentials", func(r chi.Router) {
				r.Use(chiMiddleware.AllowContentType("application/json"))
				r.Get("/", h.Credentials.List)
				r.Post("/", h.Credentials.Create)
				r.Get("/search", h.Credentials.Search)
				r.Put("/{id}", h.Credentials.Update)
				r.Delete("/{id}", h.Credentials.Delete)
				r.Get("/{id}/password", h.Credentials.Password)
			})
		})
	})

	return r
}
