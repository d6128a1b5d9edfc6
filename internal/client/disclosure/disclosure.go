// Package disclosure reveals credential passwords on demand.
//
// A revealed password lives only in the in-memory map of the session that
// revealed it. It is dropped when hidden, when its credential is deleted and
// whenever the session changes. Nothing here writes to durable storage.
package disclosure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/safedrive/internal/client/apierr"
	"github.com/atinyakov/safedrive/internal/client/session"
	"github.com/atinyakov/safedrive/internal/models"
)

// ErrStale is returned by a reveal whose response arrived after the session
// changed. The password was discarded.
var ErrStale = errors.New("password discarded: session changed")

// Fetcher requests the decrypted password of a credential.
type Fetcher interface {
	FetchPassword(ctx context.Context, id string) (body []byte, contentType string, err error)
}

// Disclosure is the map of revealed passwords for the current session.
type Disclosure struct {
	epoch *session.Epoch
	fetch Fetcher
	log   *zap.Logger

	mu       sync.Mutex
	revealed map[string]string
}

// New returns a Disclosure with nothing revealed.
func New(epoch *session.Epoch, fetch Fetcher, log *zap.Logger) *Disclosure {
	if log == nil {
		log = zap.NewNop()
	}
	return &Disclosure{
		epoch:    epoch,
		fetch:    fetch,
		log:      log,
		revealed: make(map[string]string),
	}
}

// Revealed returns the password of id if it is currently revealed.
func (d *Disclosure) Revealed(id string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	secret, ok := d.revealed[id]
	return secret, ok
}

// Count returns the number of revealed passwords.
func (d *Disclosure) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.revealed)
}

// Reveal fetches and keeps the password of id. Revealing an already revealed
// credential returns the kept value without a request. On failure nothing is
// kept and the classified error is returned; apierr.DisclosureMessage turns it
// into the text for the user.
func (d *Disclosure) Reveal(ctx context.Context, id string) (string, error) {
	if secret, ok := d.Revealed(id); ok {
		return secret, nil
	}
	gen, active := d.epoch.Snapshot()
	if !active {
		return "", apierr.New(apierr.KindAuth, "not signed in", nil)
	}

	body, contentType, err := d.fetch.FetchPassword(ctx, id)
	if err != nil {
		d.log.Info("reveal failed", zap.String("id", id), zap.Stringer("error_kind", apierr.KindOf(err)))
		return "", err
	}
	secret, err := Normalize(body, contentType)
	if err != nil {
		d.log.Warn("unrecognized password payload", zap.String("id", id), zap.String("content_type", contentType))
		return "", err
	}

	if !d.epoch.IfCurrent(gen, func() {
		d.mu.Lock()
		d.revealed[id] = secret
		d.mu.Unlock()
	}) {
		d.log.Debug("discarding stale password", zap.String("id", id), zap.Uint64("generation", gen))
		return "", ErrStale
	}
	return secret, nil
}

// Hide forgets the password of id. It is idempotent.
func (d *Disclosure) Hide(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.revealed, id)
}

// Toggle hides id if it is revealed and reveals it otherwise. It reports
// whether id is revealed afterwards.
func (d *Disclosure) Toggle(ctx context.Context, id string) (bool, error) {
	if _, ok := d.Revealed(id); ok {
		d.Hide(id)
		return false, nil
	}
	if _, err := d.Reveal(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// ResetAll forgets every revealed password.
func (d *Disclosure) ResetAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.revealed)
}

// Normalize extracts the password from a disclosure response. Only an
// application/json body is decoded: a JSON string, or an object with a
// "password" or "data" field, or else the object's JSON text. Any other body
// is the password itself, byte for byte.
func Normalize(body []byte, contentType string) (string, error) {
	if len(body) == 0 {
		return "", apierr.New(apierr.KindServer, "empty password response", nil)
	}
	if !strings.Contains(strings.ToLower(contentType), "application/json") {
		return string(body), nil
	}

	trimmed := bytes.TrimSpace(body)
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s, nil
	}
	if !json.Valid(trimmed) {
		return "", apierr.New(apierr.KindServer, "invalid password response", nil)
	}
	var resp models.PasswordResponse
	if err := json.Unmarshal(trimmed, &resp); err == nil {
		switch {
		case resp.Password != nil:
			return *resp.Password, nil
		case resp.Data != nil:
			return *resp.Data, nil
		}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return "", apierr.New(apierr.KindServer, "invalid password response", err)
	}
	return compact.String(), nil
}
