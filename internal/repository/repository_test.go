package repository

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

func setupMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestMapError(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"unique", &pq.Error{Code: "23505"}, ErrDuplicate},
		{"other pq", &pq.Error{Code: "23503"}, nil},
		{"other", cause, cause},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError("op", tt.err)
			switch {
			case tt.err == nil:
				if got != nil {
					t.Errorf("mapError(nil) = %v", got)
				}
			case tt.want == nil:
				if got == nil || errors.Is(got, ErrDuplicate) || errors.Is(got, ErrNotFound) {
					t.Errorf("mapError = %v, want a wrapped driver error", got)
				}
			default:
				if !errors.Is(got, tt.want) {
					t.Errorf("mapError = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestLikePattern(t *testing.T) {
	tests := map[string]string{
		"tax":    "%tax%",
		"50%":    `%50\%%`,
		"a_b":    `%a\_b%`,
		`c:\dir`: `%c:\\dir%`,
	}
	for in, want := range tests {
		if got := likePattern(in); got != want {
			t.Errorf("likePattern(%q) = %q, want %q", in, got, want)
		}
	}
}
