package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atinyakov/safedrive/internal/models"
)

// NoteRepository defines the persistence operations of NoteService.
type NoteRepository interface {
	List(ctx context.Context, userID string) ([]models.Note, error)
	Search(ctx context.Context, userID, query string) ([]models.Note, error)
	Create(ctx context.Context, userID string, n models.Note) error
	Update(ctx context.Context, userID string, n models.Note) (models.Note, error)
	Delete(ctx context.Context, userID, id string, at time.Time) error
}

// NoteService manages the notes of a user.
type NoteService struct {
	repo NoteRepository
	now  func() time.Time
}

// NewNoteService constructs a NoteService with the provided repository.
func NewNoteService(repo NoteRepository) *NoteService {
	return &NoteService{repo: repo, now: time.Now}
}

// List returns the notes of userID, most recently updated first.
func (s *NoteService) List(ctx context.Context, userID string) ([]models.Note, error) {
	return s.repo.List(ctx, userID)
}

// Search returns the notes whose title or content contains query. A blank
// query lists everything.
func (s *NoteService) Search(ctx context.Context, userID, query string) ([]models.Note, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.repo.List(ctx, userID)
	}
	return s.repo.Search(ctx, userID, query)
}

// Create stores a new note.
func (s *NoteService) Create(ctx context.Context, userID string, req models.NoteRequest) (models.Note, error) {
	if err := req.Validate(); err != nil {
		return models.Note{}, invalid(err)
	}
	now := s.now().UTC()
	n := models.Note{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Content:     req.Content,
		CreatedDate: now,
		UpdatedDate: now,
	}
	if err := s.repo.Create(ctx, userID, n); err != nil {
		return models.Note{}, err
	}
	return n, nil
}

// Update replaces the title and content of note id.
func (s *NoteService) Update(ctx context.Context, userID, id string, req models.NoteRequest) (models.Note, error) {
	if err := req.Validate(); err != nil {
		return models.Note{}, invalid(err)
	}
	n, err := s.repo.Update(ctx, userID, models.Note{
		ID:          id,
		Title:       strings.TrimSpace(req.Title),
		Content:     req.Content,
		UpdatedDate: s.now().UTC(),
	})
	return n, translate(err, nil)
}

// Delete removes note id.
func (s *NoteService) Delete(ctx context.Context, userID, id string) error {
	return translate(s.repo.Delete(ctx, userID, id, s.now().UTC()), nil)
}
