package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/atinyakov/safedrive/internal/models"
)

const fileColumns = `id, filename, original_name, content_type, size, upload_date`

// PostgresFileRepository stores file metadata. Contents live on disk under
// the stored filename.
type PostgresFileRepository struct {
	DB *sql.DB
}

// NewPostgresFileRepository creates a new PostgresFileRepository.
func NewPostgresFileRepository(db *sql.DB) *PostgresFileRepository {
	return &PostgresFileRepository{DB: db}
}

// List returns the live files of userID, newest upload first.
func (r *PostgresFileRepository) List(ctx context.Context, userID string) ([]models.File, error) {
	return r.query(ctx, `SELECT `+fileColumns+` FROM files
		WHERE user_id = $1 AND deleted = false ORDER BY upload_date DESC`, userID)
}

// Search returns the live files whose original name contains query.
func (r *PostgresFileRepository) Search(ctx context.Context, userID, query string) ([]models.File, error) {
	return r.query(ctx, `SELECT `+fileColumns+` FROM files
		WHERE user_id = $1 AND deleted = false AND original_name ILIKE $2
		ORDER BY upload_date DESC`, userID, likePattern(query))
}

func (r *PostgresFileRepository) query(ctx context.Context, q string, args ...any) ([]models.File, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapError("list files", err)
	}
	defer rows.Close()

	files := []models.File{}
	for rows.Next() {
		var f models.File
		if err := rows.Scan(&f.ID, &f.Filename, &f.OriginalName, &f.ContentType, &f.Size, &f.UploadDate); err != nil {
			return nil, mapError("scan file", err)
		}
		files = append(files, f)
	}
	return files, mapError("list files", rows.Err())
}

// Create inserts the metadata of a stored upload.
func (r *PostgresFileRepository) Create(ctx context.Context, userID string, f models.File) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO files (id, user_id, filename, original_name, content_type, size, upload_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		f.ID, userID, f.Filename, f.OriginalName, f.ContentType, f.Size, f.UploadDate)
	return mapError("create file", err)
}

// Get returns one live file of userID.
func (r *PostgresFileRepository) Get(ctx context.Context, userID, id string) (*models.File, error) {
	var f models.File
	err := r.DB.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE id = $1 AND user_id = $2 AND deleted = false`,
		id, userID,
	).Scan(&f.ID, &f.Filename, &f.OriginalName, &f.ContentType, &f.Size, &f.UploadDate)
	if err != nil {
		return nil, mapError("get file", err)
	}
	return &f, nil
}

// Delete soft-deletes a file row.
func (r *PostgresFileRepository) Delete(ctx context.Context, userID, id string, at time.Time) error {
	return softDelete(ctx, r.DB, "files", userID, id, at)
}
