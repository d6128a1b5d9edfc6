package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/atinyakov/safedrive/internal/models"
)

const noteColumns = `id, title, content, created_date, updated_date`

// PostgresNoteRepository stores notes, newest update first.
type PostgresNoteRepository struct {
	DB *sql.DB
}

// NewPostgresNoteRepository creates a new PostgresNoteRepository.
func NewPostgresNoteRepository(db *sql.DB) *PostgresNoteRepository {
	return &PostgresNoteRepository{DB: db}
}

// List returns the live notes of userID.
func (r *PostgresNoteRepository) List(ctx context.Context, userID string) ([]models.Note, error) {
	return r.query(ctx, `SELECT `+noteColumns+` FROM notes
		WHERE user_id = $1 AND deleted = false ORDER BY updated_date DESC`, userID)
}

// Search returns the live notes of userID whose title or content contains query.
func (r *PostgresNoteRepository) Search(ctx context.Context, userID, query string) ([]models.Note, error) {
	return r.query(ctx, `SELECT `+noteColumns+` FROM notes
		WHERE user_id = $1 AND deleted = false AND (title ILIKE $2 OR content ILIKE $2)
		ORDER BY updated_date DESC`, userID, likePattern(query))
}

func (r *PostgresNoteRepository) query(ctx context.Context, q string, args ...any) ([]models.Note, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapError("list notes", err)
	}
	defer rows.Close()

	notes := []models.Note{}
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedDate, &n.UpdatedDate); err != nil {
			return nil, mapError("scan note", err)
		}
		notes = append(notes, n)
	}
	return notes, mapError("list notes", rows.Err())
}

// Create inserts n for userID.
func (r *PostgresNoteRepository) Create(ctx context.Context, userID string, n models.Note) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO notes (id, user_id, title, content, created_date, updated_date) VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, userID, n.Title, n.Content, n.CreatedDate, n.UpdatedDate)
	return mapError("create note", err)
}

// Update replaces title and content of a live note and returns the stored note.
func (r *PostgresNoteRepository) Update(ctx context.Context, userID string, n models.Note) (models.Note, error) {
	err := r.DB.QueryRowContext(ctx,
		`UPDATE notes SET title = $3, content = $4, updated_date = $5
		WHERE id = $1 AND user_id = $2 AND deleted = false RETURNING created_date`,
		n.ID, userID, n.Title, n.Content, n.UpdatedDate,
	).Scan(&n.CreatedDate)
	if err != nil {
		return models.Note{}, mapError("update note", err)
	}
	return n, nil
}

// Delete soft-deletes a note.
func (r *PostgresNoteRepository) Delete(ctx context.Context, userID, id string, at time.Time) error {
	return softDelete(ctx, r.DB, "notes", userID, id, at)
}
