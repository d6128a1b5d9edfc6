// Package apierr defines the error taxonomy surfaced by the vault client.
//
// Every failure coming out of the transport is classified into a Kind before
// it reaches the session, cache or disclosure components. Callers branch on
// the Kind, never on error text.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies a client-visible failure.
type Kind int

const (
	// KindUnknown is a failure that fits no other kind.
	KindUnknown Kind = iota
	// KindAuth is a rejected login or an expired or invalid token (HTTP 401).
	KindAuth
	// KindForbidden is an authenticated request without permission (HTTP 403).
	KindForbidden
	// KindNotFound is a missing resource (HTTP 404).
	KindNotFound
	// KindServer is a backend failure (HTTP 5xx) or an unreadable response.
	KindServer
	// KindNetwork is an unreachable server or a broken connection.
	KindNetwork
	// KindValidation is a malformed request, detected locally or by the server.
	KindValidation
	// KindConflict is a duplicate resource (HTTP 409).
	KindConflict
)

var kindNames = map[Kind]string{
	KindUnknown:    "unknown",
	KindAuth:       "auth",
	KindForbidden:  "forbidden",
	KindNotFound:   "not_found",
	KindServer:     "server",
	KindNetwork:    "network",
	KindValidation: "validation",
	KindConflict:   "conflict",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified failure.
type Error struct {
	Kind Kind
	// Status is the HTTP status code, or 0 when no response was received.
	Status int
	// Message is the server-provided or locally generated description.
	Message string
	// Err is the underlying cause, if any.
	Err error
}

// New returns an Error of the given kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Validation wraps a local request validation failure.
func Validation(cause error) *Error {
	return &Error{Kind: KindValidation, Message: cause.Error(), Err: cause}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the outermost *Error in err's chain.
// Errors that were never classified report KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FromStatus classifies a non-2xx HTTP response.
func FromStatus(status int, message string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{Kind: kindForStatus(status), Status: status, Message: message}
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuth
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusBadRequest,
		status == http.StatusRequestEntityTooLarge,
		status == http.StatusUnprocessableEntity:
		return KindValidation
	case status >= 500:
		return KindServer
	}
	return KindUnknown
}

// FromTransport classifies an error returned by http.Client.Do.
// A cancelled context is returned unchanged so callers can detect it.
func FromTransport(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	message := "server unreachable"
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		message = "request timed out"
	}
	return &Error{Kind: KindNetwork, Message: message, Err: err}
}
