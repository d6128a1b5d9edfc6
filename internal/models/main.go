// Package models defines the core data structures for users and the three
// vault resource kinds: files, notes and credentials.
package models

import (
	"strings"
	"time"
)

// Role is the privilege level of a user.
type Role string

const (
	// RoleUser is the default role assigned on registration.
	RoleUser Role = "USER"
	// RoleAdmin unlocks privileged views.
	RoleAdmin Role = "ADMIN"
)

// User represents an application user as returned by the auth endpoints.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"id"`
	// Name is the display name chosen at registration.
	Name string `json:"name"`
	// Email is the login identifier.
	Email string `json:"email"`
	// Role determines access to privileged features.
	Role Role `json:"role"`
	// CreatedAt is the registration time.
	CreatedAt time.Time `json:"createdAt"`
}

// Identity returns a stable key for comparing two users.
func (u User) Identity() string {
	if u.ID != "" {
		return u.ID
	}
	return strings.ToLower(u.Email)
}

// File is the metadata of an uploaded file.
type File struct {
	ID string `json:"id"`
	// Filename is the server-side stored name.
	Filename string `json:"filename"`
	// OriginalName is the name the file was uploaded under.
	OriginalName string    `json:"originalName"`
	ContentType  string    `json:"contentType"`
	Size         int64     `json:"size"`
	UploadDate   time.Time `json:"uploadDate"`
}

// GetID returns the file id.
func (f File) GetID() string { return f.ID }

// Matches reports whether the original name contains query, ignoring case.
func (f File) Matches(query string) bool {
	return containsFold(f.OriginalName, query)
}

// Note is a titled free-text note.
type Note struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	CreatedDate time.Time `json:"createdDate"`
	UpdatedDate time.Time `json:"updatedDate"`
}

// GetID returns the note id.
func (n Note) GetID() string { return n.ID }

// Matches reports whether the title or the content contains query, ignoring case.
func (n Note) Matches(query string) bool {
	return containsFold(n.Title, query) || containsFold(n.Content, query)
}

// Credential is a stored login for an external service.
// The password is never part of this structure; it can only be disclosed
// through the dedicated endpoint.
type Credential struct {
	ID          string    `json:"id"`
	Service     string    `json:"service"`
	Username    string    `json:"username"`
	URL         string    `json:"url,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedDate time.Time `json:"createdDate"`
	UpdatedDate time.Time `json:"updatedDate"`
}

// GetID returns the credential id.
func (c Credential) GetID() string { return c.ID }

// Matches reports whether the service or the username contains query, ignoring case.
func (c Credential) Matches(query string) bool {
	return containsFold(c.Service, query) || containsFold(c.Username, query)
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// ErrorResponse is the body of every non-2xx server response.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// PasswordResponse is the structured form of a disclosed credential password.
// Servers answer with either field; a nil field was absent.
type PasswordResponse struct {
	Password *string `json:"password,omitempty"`
	Data     *string `json:"data,omitempty"`
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
