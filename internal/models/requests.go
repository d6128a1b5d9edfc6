package models

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Field limits enforced on both sides of the wire.
const (
	MaxNoteTitle         = 255
	MaxNoteContent       = 10000
	MaxCredentialService = 100
	MaxCredentialUser    = 255
	MaxCredentialURL     = 500
	MaxCredentialNotes   = 1000
)

// Auth request errors.
var (
	// ErrEmailRequired indicates a login or registration without an email.
	ErrEmailRequired = errors.New("email is required")
	// ErrPasswordRequired indicates a login or registration without a password.
	ErrPasswordRequired = errors.New("password is required")
	// ErrNameRequired indicates a registration without a display name.
	ErrNameRequired = errors.New("name is required")
	// ErrInvalidEmail indicates the email has no local part or domain.
	ErrInvalidEmail = errors.New("invalid email format")
)

// Note request errors.
var (
	ErrTitleRequired  = errors.New("title is required")
	ErrTitleTooLong   = errors.New("title cannot exceed 255 characters")
	ErrContentTooLong = errors.New("content cannot exceed 10000 characters")
)

// Credential request errors.
var (
	ErrServiceRequired  = errors.New("service name is required")
	ErrServiceTooLong   = errors.New("service name cannot exceed 100 characters")
	ErrUsernameRequired = errors.New("username is required")
	ErrUsernameTooLong  = errors.New("username cannot exceed 255 characters")
	ErrURLTooLong       = errors.New("url cannot exceed 500 characters")
	ErrNotesTooLong     = errors.New("notes cannot exceed 1000 characters")
)

// LoginRequest carries the credentials for /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks that both fields are present.
func (r LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return ErrEmailRequired
	}
	if r.Password == "" {
		return ErrPasswordRequired
	}
	return nil
}

// RegisterRequest carries the new account data for /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks that all fields are present and the email is plausible.
func (r RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(r.Email) == "" {
		return ErrEmailRequired
	}
	if at := strings.Index(r.Email, "@"); at <= 0 || at == len(r.Email)-1 {
		return ErrInvalidEmail
	}
	if r.Password == "" {
		return ErrPasswordRequired
	}
	return nil
}

// NoteRequest is the body of note create and update.
type NoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Validate enforces the note field limits.
func (r NoteRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Title) == "":
		return ErrTitleRequired
	case utf8.RuneCountInString(r.Title) > MaxNoteTitle:
		return ErrTitleTooLong
	case utf8.RuneCountInString(r.Content) > MaxNoteContent:
		return ErrContentTooLong
	}
	return nil
}

// CredentialRequest is the body of credential create and update.
// On update an empty Password keeps the stored one.
type CredentialRequest struct {
	Service  string `json:"service"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	URL      string `json:"url,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Validate enforces the credential field limits. requirePassword is true for create.
func (r CredentialRequest) Validate(requirePassword bool) error {
	switch {
	case strings.TrimSpace(r.Service) == "":
		return ErrServiceRequired
	case utf8.RuneCountInString(r.Service) > MaxCredentialService:
		return ErrServiceTooLong
	case strings.TrimSpace(r.Username) == "":
		return ErrUsernameRequired
	case utf8.RuneCountInString(r.Username) > MaxCredentialUser:
		return ErrUsernameTooLong
	case requirePassword && r.Password == "":
		return ErrPasswordRequired
	case utf8.RuneCountInString(r.URL) > MaxCredentialURL:
		return ErrURLTooLong
	case utf8.RuneCountInString(r.Notes) > MaxCredentialNotes:
		return ErrNotesTooLong
	}
	return nil
}
