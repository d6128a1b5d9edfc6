// Package repository provides PostgreSQL persistence for users and the three
// vault resource kinds.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when no live row matches the id and owner.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint rejects a row.
	ErrDuplicate = errors.New("already exists")
)

const uniqueViolation = "23505"

// mapError converts driver errors into the package sentinels.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return fmt.Errorf("%s: %w", op, err)
}

// likePattern builds a case-insensitive substring pattern for ILIKE.
func likePattern(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(query) + "%"
}

// softDelete marks a live row of table as deleted at the given time.
func softDelete(ctx context.Context, db *sql.DB, table, userID, id string, at time.Time) error {
	res, err := db.ExecContext(ctx,
		`UPDATE `+table+` SET deleted = true, deleted_at = $3 WHERE id = $1 AND user_id = $2 AND deleted = false`,
		id, userID, at)
	if err != nil {
		return mapError("delete "+table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
