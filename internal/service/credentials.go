package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atinyakov/safedrive/internal/models"
)

// CredentialRepository defines the persistence operations of CredentialService.
// Passwords cross this interface sealed.
type CredentialRepository interface {
	List(ctx context.Context, userID string) ([]models.Credential, error)
	Search(ctx context.Context, userID, query string) ([]models.Credential, error)
	Create(ctx context.Context, userID string, c models.Credential, password []byte) error
	Update(ctx context.Context, userID string, c models.Credential, password []byte) (models.Credential, error)
	GetPassword(ctx context.Context, userID, id string) ([]byte, error)
	Delete(ctx context.Context, userID, id string, at time.Time) error
}

// CredentialService manages stored logins. Passwords are encrypted at rest
// and only leave the service through Password.
type CredentialService struct {
	repo   CredentialRepository
	cipher *Cipher
	now    func() time.Time
}

// NewCredentialService constructs a CredentialService.
func NewCredentialService(repo CredentialRepository, cipher *Cipher) *CredentialService {
	return &CredentialService{repo: repo, cipher: cipher, now: time.Now}
}

// List returns the credentials of userID, newest first.
func (s *CredentialService) List(ctx context.Context, userID string) ([]models.Credential, error) {
	return s.repo.List(ctx, userID)
}

// Search returns the credentials whose service or username contains query.
func (s *CredentialService) Search(ctx context.Context, userID, query string) ([]models.Credential, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.repo.List(ctx, userID)
	}
	return s.repo.Search(ctx, userID, query)
}

// Create stores a credential. Only one live credential per service is allowed.
func (s *CredentialService) Create(ctx context.Context, userID string, req models.CredentialRequest) (models.Credential, error) {
	if err := req.Validate(true); err != nil {
		return models.Credential{}, invalid(err)
	}
	sealed, err := s.cipher.Seal([]byte(req.Password))
	if err != nil {
		return models.Credential{}, err
	}
	now := s.now().UTC()
	c := fromRequest(req)
	c.ID = uuid.NewString()
	c.CreatedDate, c.UpdatedDate = now, now
	if err := s.repo.Create(ctx, userID, c, sealed); err != nil {
		return models.Credential{}, translate(err, ErrDuplicateService)
	}
	return c, nil
}

// Update replaces the fields of credential id. An empty password keeps the
// stored one.
func (s *CredentialService) Update(ctx context.Context, userID, id string, req models.CredentialRequest) (models.Credential, error) {
	if err := req.Validate(false); err != nil {
		return models.Credential{}, invalid(err)
	}
	var sealed []byte
	if req.Password != "" {
		var err error
		if sealed, err = s.cipher.Seal([]byte(req.Password)); err != nil {
			return models.Credential{}, err
		}
	}
	c := fromRequest(req)
	c.ID = id
	c.UpdatedDate = s.now().UTC()
	c, err := s.repo.Update(ctx, userID, c, sealed)
	return c, translate(err, ErrDuplicateService)
}

// Password decrypts the password of credential id.
func (s *CredentialService) Password(ctx context.Context, userID, id string) (string, error) {
	sealed, err := s.repo.GetPassword(ctx, userID, id)
	if err != nil {
		return "", translate(err, nil)
	}
	plain, err := s.cipher.Open(sealed)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Delete removes credential id.
func (s *CredentialService) Delete(ctx context.Context, userID, id string) error {
	return translate(s.repo.Delete(ctx, userID, id, s.now().UTC()), nil)
}

func fromRequest(req models.CredentialRequest) models.Credential {
	return models.Credential{
		Service:  strings.TrimSpace(req.Service),
		Username: strings.TrimSpace(req.Username),
		URL:      strings.TrimSpace(req.URL),
		Notes:    req.Notes,
	}
}
