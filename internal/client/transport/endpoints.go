package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/atinyakov/safedrive/internal/client/apierr"
	"github.com/atinyakov/safedrive/internal/models"
)

// API paths relative to the base URL.
const (
	PathLogin       = "/auth/login"
	PathRegister    = "/auth/register"
	PathFiles       = "/files"
	PathFilesUpload = "/files/upload"
	PathNotes       = "/notes"
	PathCredentials = "/credentials"
)

// ErrUpdateUnsupported is returned when updating a resource kind that has no update endpoint.
var ErrUpdateUnsupported = errors.New("resource kind cannot be updated")

// AuthAPI calls the public authentication endpoints.
type AuthAPI struct {
	c *Client
}

// NewAuthAPI returns the authentication endpoints of c.
func NewAuthAPI(c *Client) *AuthAPI {
	return &AuthAPI{c: c}
}

// Login exchanges credentials for a token and a user.
func (a *AuthAPI) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	return a.exchange(ctx, PathLogin, req)
}

// Register creates an account and signs it in.
func (a *AuthAPI) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	return a.exchange(ctx, PathRegister, req)
}

func (a *AuthAPI) exchange(ctx context.Context, path string, body any) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := a.c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body, Public: true}, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, apierr.New(apierr.KindServer, "response did not contain a token", nil)
	}
	return &resp, nil
}

// Resource is a JSON collection endpoint with list, search, create, update and delete.
// T is the item type, C the create payload and U the update payload.
type Resource[T, C, U any] struct {
	c    *Client
	path string
}

// NewResource returns the collection mounted at path.
func NewResource[T, C, U any](c *Client, path string) *Resource[T, C, U] {
	return &Resource[T, C, U]{c: c, path: path}
}

// List fetches the whole collection in server order.
func (r *Resource[T, C, U]) List(ctx context.Context) ([]T, error) {
	return r.fetch(ctx, r.path, nil)
}

// Search fetches the items matching query in server order.
func (r *Resource[T, C, U]) Search(ctx context.Context, query string) ([]T, error) {
	return r.fetch(ctx, r.path+"/search", url.Values{"query": {query}})
}

func (r *Resource[T, C, U]) fetch(ctx context.Context, path string, q url.Values) ([]T, error) {
	items := []T{}
	if err := r.c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: q}, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Create posts data and returns the canonical item.
func (r *Resource[T, C, U]) Create(ctx context.Context, data C) (T, error) {
	var item T
	err := r.c.Do(ctx, Request{Method: http.MethodPost, Path: r.path, Body: data}, &item)
	return item, err
}

// Update replaces the item with id and returns the canonical item.
func (r *Resource[T, C, U]) Update(ctx context.Context, id string, patch U) (T, error) {
	var item T
	err := r.c.Do(ctx, Request{Method: http.MethodPut, Path: r.itemPath(id), Body: patch}, &item)
	return item, err
}

// Delete removes the item with id.
func (r *Resource[T, C, U]) Delete(ctx context.Context, id string) error {
	return r.c.Do(ctx, Request{Method: http.MethodDelete, Path: r.itemPath(id)}, nil)
}

func (r *Resource[T, C, U]) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

// Upload is the create payload of a file.
type Upload struct {
	Name    string
	Content io.Reader
}

// NoPatch is the update payload of kinds without an update endpoint.
type NoPatch struct{}

// FilesAPI is the files collection: uploads are multipart and files cannot be updated.
type FilesAPI struct {
	*Resource[models.File, Upload, NoPatch]
}

// NewFilesAPI returns the files endpoints of c.
func NewFilesAPI(c *Client) *FilesAPI {
	return &FilesAPI{Resource: NewResource[models.File, Upload, NoPatch](c, PathFiles)}
}

// Create uploads a file and returns its metadata.
func (f *FilesAPI) Create(ctx context.Context, up Upload) (models.File, error) {
	var file models.File
	if up.Name == "" || up.Content == nil {
		return file, apierr.New(apierr.KindValidation, "file name and content are required", nil)
	}
	err := f.c.Upload(ctx, PathFilesUpload, up.Name, up.Content, &file)
	return file, err
}

// Update always fails: files are immutable once uploaded.
func (f *FilesAPI) Update(context.Context, string, NoPatch) (models.File, error) {
	return models.File{}, apierr.New(apierr.KindValidation, ErrUpdateUnsupported.Error(), ErrUpdateUnsupported)
}

// Download writes the content of file id to w.
func (f *FilesAPI) Download(ctx context.Context, id string, w io.Writer) (int64, error) {
	return f.c.Download(ctx, f.itemPath(id), w)
}

// NotesAPI is the notes collection.
type NotesAPI = Resource[models.Note, models.NoteRequest, models.NoteRequest]

// NewNotesAPI returns the notes endpoints of c.
func NewNotesAPI(c *Client) *NotesAPI {
	return NewResource[models.Note, models.NoteRequest, models.NoteRequest](c, PathNotes)
}

// CredentialsAPI is the credentials collection plus password disclosure.
type CredentialsAPI struct {
	*Resource[models.Credential, models.CredentialRequest, models.CredentialRequest]
}

// NewCredentialsAPI returns the credentials endpoints of c.
func NewCredentialsAPI(c *Client) *CredentialsAPI {
	return &CredentialsAPI{Resource: NewResource[models.Credential, models.CredentialRequest, models.CredentialRequest](c, PathCredentials)}
}

// FetchPassword requests the decrypted password of credential id.
// The body is returned as received; it may be a bare string or a JSON object.
func (a *CredentialsAPI) FetchPassword(ctx context.Context, id string) ([]byte, string, error) {
	resp, err := a.c.Raw(ctx, Request{Method: http.MethodGet, Path: a.itemPath(id) + "/password"})
	if err != nil {
		return nil, "", err
	}
	return resp.Body, resp.ContentType, nil
}
