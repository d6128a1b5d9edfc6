package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/atinyakov/safedrive/internal/models"
)

const credentialColumns = `id, service, username, url, notes, created_date, updated_date`

// PostgresCredentialRepository stores credentials. The password column holds
// ciphertext and is only read by GetPassword.
type PostgresCredentialRepository struct {
	DB *sql.DB
}

// NewPostgresCredentialRepository creates a new PostgresCredentialRepository.
func NewPostgresCredentialRepository(db *sql.DB) *PostgresCredentialRepository {
	return &PostgresCredentialRepository{DB: db}
}

// List returns the live credentials of userID, newest first.
func (r *PostgresCredentialRepository) List(ctx context.Context, userID string) ([]models.Credential, error) {
	return r.query(ctx, `SELECT `+credentialColumns+` FROM credentials
		WHERE user_id = $1 AND deleted = false ORDER BY created_date DESC`, userID)
}

// Search returns the live credentials whose service or username contains query.
func (r *PostgresCredentialRepository) Search(ctx context.Context, userID, query string) ([]models.Credential, error) {
	return r.query(ctx, `SELECT `+credentialColumns+` FROM credentials
		WHERE user_id = $1 AND deleted = false AND (service ILIKE $2 OR username ILIKE $2)
		ORDER BY created_date DESC`, userID, likePattern(query))
}

func (r *PostgresCredentialRepository) query(ctx context.Context, q string, args ...any) ([]models.Credential, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapError("list credentials", err)
	}
	defer rows.Close()

	creds := []models.Credential{}
	for rows.Next() {
		var c models.Credential
		if err := rows.Scan(&c.ID, &c.Service, &c.Username, &c.URL, &c.Notes, &c.CreatedDate, &c.UpdatedDate); err != nil {
			return nil, mapError("scan credential", err)
		}
		creds = append(creds, c)
	}
	return creds, mapError("list credentials", rows.Err())
}

// Create inserts c with the encrypted password. A second live credential for
// the same service yields ErrDuplicate.
func (r *PostgresCredentialRepository) Create(ctx context.Context, userID string, c models.Credential, password []byte) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO credentials (id, user_id, service, username, password, url, notes, created_date, updated_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, userID, c.Service, c.Username, password, c.URL, c.Notes, c.CreatedDate, c.UpdatedDate)
	return mapError("create credential", err)
}

// Update replaces the fields of a live credential. A nil password keeps the
// stored one.
func (r *PostgresCredentialRepository) Update(ctx context.Context, userID string, c models.Credential, password []byte) (models.Credential, error) {
	var row *sql.Row
	if password == nil {
		row = r.DB.QueryRowContext(ctx,
			`UPDATE credentials SET service = $3, username = $4, url = $5, notes = $6, updated_date = $7
			WHERE id = $1 AND user_id = $2 AND deleted = false RETURNING created_date`,
			c.ID, userID, c.Service, c.Username, c.URL, c.Notes, c.UpdatedDate)
	} else {
		row = r.DB.QueryRowContext(ctx,
			`UPDATE credentials SET service = $3, username = $4, url = $5, notes = $6, updated_date = $7, password = $8
			WHERE id = $1 AND user_id = $2 AND deleted = false RETURNING created_date`,
			c.ID, userID, c.Service, c.Username, c.URL, c.Notes, c.UpdatedDate, password)
	}
	if err := row.Scan(&c.CreatedDate); err != nil {
		return models.Credential{}, mapError("update credential", err)
	}
	return c, nil
}

// GetPassword returns the stored password ciphertext.
func (r *PostgresCredentialRepository) GetPassword(ctx context.Context, userID, id string) ([]byte, error) {
	var secret []byte
	err := r.DB.QueryRowContext(ctx,
		`SELECT password FROM credentials WHERE id = $1 AND user_id = $2 AND deleted = false`,
		id, userID,
	).Scan(&secret)
	if err != nil {
		return nil, mapError("get password", err)
	}
	return secret, nil
}

// Delete soft-deletes a credential.
func (r *PostgresCredentialRepository) Delete(ctx context.Context, userID, id string, at time.Time) error {
	return softDelete(ctx, r.DB, "credentials", userID, id, at)
}
