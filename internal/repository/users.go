package repository

import (
	"context"
	"database/sql"

	"github.com/atinyakov/safedrive/internal/models"
)

// PostgresUserRepository stores accounts and their password hashes.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository with the given database connection.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db}
}

// Create inserts a user. A taken email yields ErrDuplicate.
func (r *PostgresUserRepository) Create(ctx context.Context, u models.User, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Name, u.Email, passwordHash, string(u.Role), u.CreatedAt)
	return mapError("create user", err)
}

// GetByEmail returns the user registered with email, compared
// case-insensitively, and its password hash.
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, string, error) {
	var (
		u    models.User
		role string
		hash string
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, role, created_at FROM users WHERE lower(email) = lower($1)`,
		email,
	).Scan(&u.ID, &u.Name, &u.Email, &hash, &role, &u.CreatedAt)
	if err != nil {
		return nil, "", mapError("get user", err)
	}
	u.Role = models.Role(role)
	return &u, hash, nil
}
