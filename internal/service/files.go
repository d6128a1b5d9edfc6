package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atinyakov/safedrive/internal/models"
)

// ErrFileNameRequired is returned for an upload without a usable name.
var ErrFileNameRequired = errors.New("file name is required")

// FileRepository defines the persistence operations of FileService.
type FileRepository interface {
	List(ctx context.Context, userID string) ([]models.File, error)
	Search(ctx context.Context, userID, query string) ([]models.File, error)
	Create(ctx context.Context, userID string, f models.File) error
	Get(ctx context.Context, userID, id string) (*models.File, error)
	Delete(ctx context.Context, userID, id string, at time.Time) error
}

// FileService stores uploads under dir/<user id>/<stored name> and their
// metadata in the repository.
type FileService struct {
	repo     FileRepository
	dir      string
	maxBytes int64
	now      func() time.Time
}

// NewFileService constructs a FileService rooted at dir accepting uploads of
// at most maxBytes.
func NewFileService(repo FileRepository, dir string, maxBytes int64) *FileService {
	return &FileService{repo: repo, dir: dir, maxBytes: maxBytes, now: time.Now}
}

// List returns the files of userID, newest upload first.
func (s *FileService) List(ctx context.Context, userID string) ([]models.File, error) {
	return s.repo.List(ctx, userID)
}

// Search returns the files whose original name contains query.
func (s *FileService) Search(ctx context.Context, userID, query string) ([]models.File, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.repo.List(ctx, userID)
	}
	return s.repo.Search(ctx, userID, query)
}

// Upload copies r to a new stored file and records it.
func (s *FileService) Upload(ctx context.Context, userID, name, contentType string, r io.Reader) (models.File, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return models.File{}, invalid(ErrFileNameRequired)
	}
	ext := strings.ToLower(filepath.Ext(name))
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			contentType = byExt
		} else {
			contentType = "application/octet-stream"
		}
	}

	userDir := filepath.Join(s.dir, userID)
	if err := os.MkdirAll(userDir, 0o700); err != nil {
		return models.File{}, fmt.Errorf("create upload dir: %w", err)
	}
	id := uuid.NewString()
	stored := id + ext
	path := filepath.Join(userDir, stored)
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return models.File{}, fmt.Errorf("create stored file: %w", err)
	}
	n, err := io.Copy(out, io.LimitReader(r, s.maxBytes+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > s.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(path)
		if errors.Is(err, ErrTooLarge) {
			return models.File{}, err
		}
		return models.File{}, fmt.Errorf("write stored file: %w", err)
	}

	f := models.File{
		ID:           id,
		Filename:     stored,
		OriginalName: name,
		ContentType:  contentType,
		Size:         n,
		UploadDate:   s.now().UTC(),
	}
	if err := s.repo.Create(ctx, userID, f); err != nil {
		os.Remove(path)
		return models.File{}, err
	}
	return f, nil
}

// Open returns the metadata and content of file id. The caller closes the content.
func (s *FileService) Open(ctx context.Context, userID, id string) (*models.File, *os.File, error) {
	f, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, nil, translate(err, nil)
	}
	content, err := os.Open(filepath.Join(s.dir, userID, f.Filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("open stored file: %w", err)
	}
	return f, content, nil
}

// Delete soft-deletes the row of file id and removes its content.
func (s *FileService) Delete(ctx context.Context, userID, id string) error {
	f, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return translate(err, nil)
	}
	if err := s.repo.Delete(ctx, userID, id, s.now().UTC()); err != nil {
		return translate(err, nil)
	}
	if err := os.Remove(filepath.Join(s.dir, userID, f.Filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stored file: %w", err)
	}
	return nil
}
