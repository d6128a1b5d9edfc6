package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atinyakov/safedrive/internal/models"
	"github.com/atinyakov/safedrive/internal/repository"
)

type mockNoteRepo struct {
	ListFunc   func(ctx context.Context, userID string) ([]models.Note, error)
	SearchFunc func(ctx context.Context, userID, query string) ([]models.Note, error)
	CreateFunc func(ctx context.Context, userID string, n models.Note) error
	UpdateFunc func(ctx context.Context, userID string, n models.Note) (models.Note, error)
	DeleteFunc func(ctx context.Context, userID, id string, at time.Time) error
}

func (m *mockNoteRepo) List(ctx context.Context, userID string) ([]models.Note, error) {
	return m.ListFunc(ctx, userID)
}
func (m *mockNoteRepo) Search(ctx context.Context, userID, query string) ([]models.Note, error) {
	return m.SearchFunc(ctx, userID, query)
}
func (m *mockNoteRepo) Create(ctx context.Context, userID string, n models.Note) error {
	return m.CreateFunc(ctx, userID, n)
}
func (m *mockNoteRepo) Update(ctx context.Context, userID string, n models.Note) (models.Note, error) {
	return m.UpdateFunc(ctx, userID, n)
}
func (m *mockNoteRepo) Delete(ctx context.Context, userID, id string, at time.Time) error {
	return m.DeleteFunc(ctx, userID, id, at)
}

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func TestNoteCreate(t *testing.T) {
	var got models.Note
	repo := &mockNoteRepo{CreateFunc: func(ctx context.Context, userID string, n models.Note) error {
		if userID != "u1" {
			t.Errorf("Create received userID %q", userID)
		}
		got = n
		return nil
	}}
	svc := NewNoteService(repo)
	svc.now = func() time.Time { return fixedNow }

	n, err := svc.Create(context.Background(), "u1", models.NoteRequest{Title: " Shopping ", Content: "milk"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if n != got || n.Title != "Shopping" || n.ID == "" || !n.CreatedDate.Equal(fixedNow) || !n.UpdatedDate.Equal(fixedNow) {
		t.Errorf("unexpected note: %+v (stored %+v)", n, got)
	}
}

func TestNoteCreate_Invalid(t *testing.T) {
	svc := NewNoteService(&mockNoteRepo{})
	_, err := svc.Create(context.Background(), "u1", models.NoteRequest{Title: "  "})
	if !errors.Is(err, ErrValidation) || !errors.Is(err, models.ErrTitleRequired) {
		t.Errorf("Create error = %v; want a validation error", err)
	}
}

func TestNoteSearch_BlankQueryLists(t *testing.T) {
	listed := false
	repo := &mockNoteRepo{
		ListFunc: func(context.Context, string) ([]models.Note, error) {
			listed = true
			return nil, nil
		},
		SearchFunc: func(context.Context, string, string) ([]models.Note, error) {
			t.Error("Search must not be called for a blank query")
			return nil, nil
		},
	}
	if _, err := NewNoteService(repo).Search(context.Background(), "u1", "   "); err != nil {
		t.Fatal(err)
	}
	if !listed {
		t.Error("blank query did not list")
	}
}

func TestNoteUpdateDelete_NotFound(t *testing.T) {
	repo := &mockNoteRepo{
		UpdateFunc: func(context.Context, string, models.Note) (models.Note, error) {
			return models.Note{}, repository.ErrNotFound
		},
		DeleteFunc: func(context.Context, string, string, time.Time) error {
			return repository.ErrNotFound
		},
	}
	svc := NewNoteService(repo)
	if _, err := svc.Update(context.Background(), "u1", "n1", models.NoteRequest{Title: "t"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update error = %v; want ErrNotFound", err)
	}
	if err := svc.Delete(context.Background(), "u1", "n1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete error = %v; want ErrNotFound", err)
	}
}
