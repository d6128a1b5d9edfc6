// Package vault assembles the client: transport, session, the three resource
// caches, password disclosure and the coordinator that ties them together.
package vault

import (
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/safedrive/internal/client/cache"
	"github.com/atinyakov/safedrive/internal/client/coordinator"
	"github.com/atinyakov/safedrive/internal/client/disclosure"
	"github.com/atinyakov/safedrive/internal/client/session"
	"github.com/atinyakov/safedrive/internal/client/transport"
	"github.com/atinyakov/safedrive/internal/models"
)

// Cache instantiations, one per resource kind.
type (
	FileCache       = cache.Cache[models.File, transport.Upload, transport.NoPatch]
	NoteCache       = cache.Cache[models.Note, models.NoteRequest, models.NoteRequest]
	CredentialCache = cache.Cache[models.Credential, models.CredentialRequest, models.CredentialRequest]
)

// Options configures a Vault.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// Store persists the session; nil keeps it in memory only.
	Store session.Store
	Log   *zap.Logger
}

// Vault is a ready-to-use client.
type Vault struct {
	Session     *session.Manager
	Files       *FileCache
	Notes       *NoteCache
	Credentials *CredentialCache
	Secrets     *disclosure.Disclosure

	coordinator *coordinator.Coordinator
	files       *transport.FilesAPI
}

// New wires a Vault. The client starts signed out; call Session.Restore or
// Session.Login.
func New(opts Options) *Vault {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	store := opts.Store
	if store == nil {
		store = &session.MemoryStore{}
	}

	topts := []transport.Option{transport.WithLogger(log.Named("transport"))}
	if opts.HTTPClient != nil {
		topts = append(topts, transport.WithHTTPClient(opts.HTTPClient))
	}
	tc := transport.New(opts.BaseURL, topts...)

	manager := session.NewManager(transport.NewAuthAPI(tc), store, session.WithLogger(log.Named("session")))
	tc.SetTokenSource(manager)
	tc.OnUnauthorized(manager.Expire)

	epoch := &session.Epoch{}
	credentialsAPI := transport.NewCredentialsAPI(tc)
	secrets := disclosure.New(epoch, credentialsAPI, log.Named("disclosure"))

	v := &Vault{
		Session: manager,
		Secrets: secrets,
		files:   transport.NewFilesAPI(tc),
	}
	v.Files = cache.New[models.File, transport.Upload, transport.NoPatch](epoch, v.files,
		cache.Config[transport.Upload, transport.NoPatch]{Kind: "files", Log: log})
	v.Notes = cache.New[models.Note, models.NoteRequest, models.NoteRequest](epoch, transport.NewNotesAPI(tc),
		cache.Config[models.NoteRequest, models.NoteRequest]{
			Kind:           "notes",
			Log:            log,
			ValidateCreate: models.NoteRequest.Validate,
			ValidateUpdate: models.NoteRequest.Validate,
		})
	v.Credentials = cache.New[models.Credential, models.CredentialRequest, models.CredentialRequest](epoch, credentialsAPI,
		cache.Config[models.CredentialRequest, models.CredentialRequest]{
			Kind:           "credentials",
			Log:            log,
			ValidateCreate: func(r models.CredentialRequest) error { return r.Validate(true) },
			ValidateUpdate: func(r models.CredentialRequest) error { return r.Validate(false) },
			OnDelete:       secrets.Hide,
		})

	v.coordinator = coordinator.New(epoch, log.Named("coordinator"), secrets, v.Files, v.Notes, v.Credentials)
	manager.OnChange(v.coordinator.OnSessionChange)
	return v
}

// Download writes the content of file id to w. Content is never cached.
func (v *Vault) Download(ctx context.Context, id string, w io.Writer) (int64, error) {
	return v.files.Download(ctx, id, w)
}

// View runs fn with session transitions excluded. current is the session the
// caches belong to. Read caches and revealed passwords inside fn; do not list
// or mutate.
func (v *Vault) View(fn func(current session.Session)) {
	v.coordinator.View(fn)
}

// Snapshot is a consistent picture of everything the current session can see.
type Snapshot struct {
	Session     session.Session
	Files       cache.State[models.File]
	Notes       cache.State[models.Note]
	Credentials cache.State[models.Credential]
	Revealed    map[string]string
}

// Snapshot reads every component within one generation.
func (v *Vault) Snapshot() Snapshot {
	var s Snapshot
	v.View(func(current session.Session) {
		s.Session = current
		s.Files = v.Files.State()
		s.Notes = v.Notes.State()
		s.Credentials = v.Credentials.State()
		s.Revealed = make(map[string]string)
		for _, c := range s.Credentials.Items {
			if secret, ok := v.Secrets.Revealed(c.ID); ok {
				s.Revealed[c.ID] = secret
			}
		}
	})
	return s
}
