package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atinyakov/safedrive/internal/models"
	"github.com/atinyakov/safedrive/internal/repository"
)

// memCredentialRepo keeps sealed passwords in memory.
type memCredentialRepo struct {
	creds   map[string]models.Credential
	secrets map[string][]byte
	dupErr  error
}

func newMemCredentialRepo() *memCredentialRepo {
	return &memCredentialRepo{creds: map[string]models.Credential{}, secrets: map[string][]byte{}}
}

func (m *memCredentialRepo) List(context.Context, string) ([]models.Credential, error) {
	out := []models.Credential{}
	for _, c := range m.creds {
		out = append(out, c)
	}
	return out, nil
}
func (m *memCredentialRepo) Search(ctx context.Context, userID, _ string) ([]models.Credential, error) {
	return m.List(ctx, userID)
}
func (m *memCredentialRepo) Create(_ context.Context, _ string, c models.Credential, pw []byte) error {
	if m.dupErr != nil {
		return m.dupErr
	}
	m.creds[c.ID] = c
	m.secrets[c.ID] = pw
	return nil
}
func (m *memCredentialRepo) Update(_ context.Context, _ string, c models.Credential, pw []byte) (models.Credential, error) {
	old, ok := m.creds[c.ID]
	if !ok {
		return models.Credential{}, repository.ErrNotFound
	}
	c.CreatedDate = old.CreatedDate
	m.creds[c.ID] = c
	if pw != nil {
		m.secrets[c.ID] = pw
	}
	return c, nil
}
func (m *memCredentialRepo) GetPassword(_ context.Context, _, id string) ([]byte, error) {
	pw, ok := m.secrets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return pw, nil
}
func (m *memCredentialRepo) Delete(_ context.Context, _, id string, _ time.Time) error {
	if _, ok := m.creds[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.creds, id)
	delete(m.secrets, id)
	return nil
}

func newTestCredentials(t *testing.T, repo CredentialRepository) *CredentialService {
	t.Helper()
	c, err := NewCipher("test-key")
	if err != nil {
		t.Fatal(err)
	}
	return NewCredentialService(repo, c)
}

func TestCredential_CreateEncryptsAndReveals(t *testing.T) {
	repo := newMemCredentialRepo()
	svc := newTestCredentials(t, repo)

	c, err := svc.Create(context.Background(), "u1", models.CredentialRequest{Service: "github", Username: "alice", Password: "hunter2"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if string(repo.secrets[c.ID]) == "hunter2" {
		t.Error("password stored in plaintext")
	}
	pw, err := svc.Password(context.Background(), "u1", c.ID)
	if err != nil || pw != "hunter2" {
		t.Errorf("Password = %q, %v", pw, err)
	}
}

func TestCredential_UpdateKeepsPasswordWhenEmpty(t *testing.T) {
	repo := newMemCredentialRepo()
	svc := newTestCredentials(t, repo)
	c, err := svc.Create(context.Background(), "u1", models.CredentialRequest{Service: "github", Username: "alice", Password: "old"})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.Update(context.Background(), "u1", c.ID, models.CredentialRequest{Service: "github", Username: "alice2"})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Username != "alice2" || !updated.CreatedDate.Equal(c.CreatedDate) {
		t.Errorf("unexpected credential: %+v", updated)
	}
	if pw, _ := svc.Password(context.Background(), "u1", c.ID); pw != "old" {
		t.Errorf("password = %q, want it kept", pw)
	}

	if _, err := svc.Update(context.Background(), "u1", c.ID, models.CredentialRequest{Service: "github", Username: "alice2", Password: "new"}); err != nil {
		t.Fatal(err)
	}
	if pw, _ := svc.Password(context.Background(), "u1", c.ID); pw != "new" {
		t.Errorf("password = %q, want replaced", pw)
	}
}

func TestCredential_Errors(t *testing.T) {
	repo := newMemCredentialRepo()
	svc := newTestCredentials(t, repo)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1", models.CredentialRequest{Service: "github", Username: "alice"}); !errors.Is(err, models.ErrPasswordRequired) {
		t.Errorf("Create without password: err = %v", err)
	}
	repo.dupErr = repository.ErrDuplicate
	if _, err := svc.Create(ctx, "u1", models.CredentialRequest{Service: "github", Username: "alice", Password: "x"}); !errors.Is(err, ErrDuplicateService) {
		t.Errorf("duplicate Create: err = %v", err)
	}
	if _, err := svc.Password(ctx, "u1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Password of missing: err = %v", err)
	}
	if _, err := svc.Update(ctx, "u1", "missing", models.CredentialRequest{Service: "s", Username: "u"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update of missing: err = %v", err)
	}
	if err := svc.Delete(ctx, "u1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete of missing: err = %v", err)
	}
}
