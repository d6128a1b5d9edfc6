package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/atinyakov/safedrive/internal/models"
)

var credentialCols = []string{"id", "service", "username", "url", "notes", "created_date", "updated_date"}

func TestCredentialList(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewPostgresCredentialRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, service, username, url, notes, created_date, updated_date FROM credentials`) +
		`.*` + regexp.QuoteMeta(`ORDER BY created_date DESC`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(credentialCols).
			AddRow("c2", "mail", "bob", "", "", time.Time{}, time.Time{}).
			AddRow("c1", "github", "alice", "https://github.com", "work", time.Time{}, time.Time{}))

	creds, err := repo.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(creds) != 2 || creds[1].URL != "https://github.com" || creds[1].Notes != "work" {
		t.Errorf("unexpected credentials: %+v", creds)
	}
}

func TestCredentialSearch(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewPostgresCredentialRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`(service ILIKE $2 OR username ILIKE $2)`)).
		WithArgs("u1", "%git%").
		WillReturnRows(sqlmock.NewRows(credentialCols))

	if _, err := repo.Search(context.Background(), "u1", "git"); err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCredentialCreate(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewPostgresCredentialRepository(db)
	now := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	c := models.Credential{ID: "c1", Service: "github", Username: "alice", CreatedDate: now, UpdatedDate: now}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO credentials (id, user_id, service, username, password, url, notes, created_date, updated_date)`)).
		WithArgs("c1", "u1", "github", "alice", []byte("sealed"), "", "", now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO credentials`)).
		WillReturnError(&pq.Error{Code: "23505"})

	if err := repo.Create(context.Background(), "u1", c, []byte("sealed")); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := repo.Create(context.Background(), "u1", c, []byte("sealed")); !errors.Is(err, ErrDuplicate) {
		t.Errorf("second Create error = %v, want ErrDuplicate", err)
	}
}

func TestCredentialUpdate(t *testing.T) {
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(time.Hour)
	c := models.Credential{ID: "c1", Service: "github", Username: "alice2", UpdatedDate: now}

	t.Run("keeps password", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewPostgresCredentialRepository(db)
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE credentials SET service = $3, username = $4, url = $5, notes = $6, updated_date = $7 WHERE`)).
			WithArgs("c1", "u1", "github", "alice2", "", "", now).
			WillReturnRows(sqlmock.NewRows([]string{"created_date"}).AddRow(created))

		got, err := repo.Update(context.Background(), "u1", c, nil)
		if err != nil {
			t.Fatalf("Update returned error: %v", err)
		}
		if !got.CreatedDate.Equal(created) {
			t.Errorf("CreatedDate = %v, want %v", got.CreatedDate, created)
		}
	})

	t.Run("replaces password", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewPostgresCredentialRepository(db)
		mock.ExpectQuery(regexp.QuoteMeta(`updated_date = $7, password = $8`)).
			WithArgs("c1", "u1", "github", "alice2", "", "", now, []byte("new")).
			WillReturnRows(sqlmock.NewRows([]string{"created_date"}).AddRow(created))

		if _, err := repo.Update(context.Background(), "u1", c, []byte("new")); err != nil {
			t.Fatalf("Update returned error: %v", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		db, mock := setupMock(t)
		repo := NewPostgresCredentialRepository(db)
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE credentials`)).
			WillReturnRows(sqlmock.NewRows([]string{"created_date"}))

		if _, err := repo.Update(context.Background(), "u1", c, nil); !errors.Is(err, ErrNotFound) {
			t.Errorf("Update error = %v, want ErrNotFound", err)
		}
	})
}

func TestCredentialGetPassword(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewPostgresCredentialRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT password FROM credentials WHERE id = $1 AND user_id = $2 AND deleted = false`)).
		WithArgs("c1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"password"}).AddRow([]byte("sealed")))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT password FROM credentials`)).
		WithArgs("c2", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"password"}))

	secret, err := repo.GetPassword(context.Background(), "u1", "c1")
	if err != nil {
		t.Fatalf("GetPassword returned error: %v", err)
	}
	if string(secret) != "sealed" {
		t.Errorf("GetPassword = %q", secret)
	}
	if _, err := repo.GetPassword(context.Background(), "u1", "c2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPassword error = %v, want ErrNotFound", err)
	}
}

func TestCredentialDelete_QueryError(t *testing.T) {
	db, mock := setupMock(t)
	repo := NewPostgresCredentialRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE credentials SET deleted = true`)).
		WillReturnError(errors.New("conn reset"))

	err := repo.Delete(context.Background(), "u1", "c1", time.Now())
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Delete error = %v, want a driver error", err)
	}
}
