// Package service provides the business logic of the vault backend:
// accounts and tokens, notes, encrypted credentials and stored files.
// Persistence is delegated to repository interfaces.
package service

import (
	"errors"
	"fmt"

	"github.com/atinyakov/safedrive/internal/repository"
)

var (
	// ErrValidation wraps a rejected request body.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned by Register when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidToken is returned when a bearer token cannot be verified.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNotFound is returned when the resource does not exist or belongs to another user.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateService is returned when the user already stores a credential for the service.
	ErrDuplicateService = errors.New("credential for this service already exists")
	// ErrTooLarge is returned when an upload exceeds the size limit.
	ErrTooLarge = errors.New("file too large")
)

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

// translate maps repository sentinels onto service errors.
func translate(err error, duplicate error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case duplicate != nil && errors.Is(err, repository.ErrDuplicate):
		return duplicate
	}
	return err
}
