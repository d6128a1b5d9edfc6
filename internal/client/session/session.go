// Package session owns the signed-in identity of the vault client.
//
// Manager is the only writer of the Session and of its durable copy. Every
// identity transition is reported to a single listener, which the vault wires
// to the coordinator so that caches are reset before anything reads them.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/safedrive/internal/client/apierr"
	"github.com/atinyakov/safedrive/internal/models"
)

// Session is the signed-in identity and its bearer token.
// The zero value is the signed-out session.
type Session struct {
	User  *models.User
	Token string
}

// Active reports whether s carries both a user and a token.
func (s Session) Active() bool {
	return s.User != nil && s.Token != ""
}

// Same reports whether s and o describe the same identity with the same token.
func (s Session) Same(o Session) bool {
	if s.Active() != o.Active() {
		return false
	}
	if !s.Active() {
		return true
	}
	return s.Token == o.Token && s.User.Identity() == o.User.Identity()
}

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
}

// Store persists the session between process runs.
type Store interface {
	Load() (Session, error)
	Save(s Session) error
	Clear() error
}

// Listener observes identity transitions. prev and next always differ.
type Listener func(ctx context.Context, prev, next Session)

// Manager is the single source of truth for who is signed in.
type Manager struct {
	auth  Authenticator
	store Store
	log   *zap.Logger
	now   func() time.Time

	mu        sync.Mutex
	current   Session
	notified  Session
	dirty     bool
	notifying bool
	listener  Listener
	// seq numbers transitions; delivered is the last one the listener saw.
	seq       uint64
	delivered uint64
	done      *sync.Cond

	storeMu sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Tokens and passwords are never logged.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithClock replaces the clock used to check token expiry on restore.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager returns a signed-out Manager.
func NewManager(auth Authenticator, store Store, opts ...Option) *Manager {
	m := &Manager{
		auth:  auth,
		store: store,
		log:   zap.NewNop(),
		now:   time.Now,
	}
	m.done = sync.NewCond(&m.mu)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnChange registers the transition listener. It must be called before the
// first transition. The listener may call Expire but not Login, Register,
// Logout or Restore, which wait for the listener.
func (m *Manager) OnChange(fn Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = fn
}

// Current returns the active session, or the zero Session.
func (m *Manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Token returns the bearer token of the active session, or "".
func (m *Manager) Token() string {
	return m.Current().Token
}

// Login signs in with email and password. On success it returns after the
// listener has seen the new session. On failure the session is unchanged and
// the error is an auth error wrapping the cause.
func (m *Manager) Login(ctx context.Context, req models.LoginRequest) (Session, error) {
	if err := req.Validate(); err != nil {
		return Session{}, apierr.Validation(err)
	}
	resp, err := m.auth.Login(ctx, req)
	if err != nil {
		m.log.Info("login failed", zap.String("kind", apierr.KindOf(err).String()))
		return Session{}, apierr.New(apierr.KindAuth, "login failed", err)
	}
	return m.establish(ctx, resp), nil
}

// Register creates an account and signs it in.
func (m *Manager) Register(ctx context.Context, req models.RegisterRequest) (Session, error) {
	if err := req.Validate(); err != nil {
		return Session{}, apierr.Validation(err)
	}
	resp, err := m.auth.Register(ctx, req)
	if err != nil {
		m.log.Info("registration failed", zap.String("kind", apierr.KindOf(err).String()))
		return Session{}, apierr.New(apierr.KindAuth, "registration failed", err)
	}
	return m.establish(ctx, resp), nil
}

func (m *Manager) establish(ctx context.Context, resp *models.AuthResponse) Session {
	user := resp.User
	next := Session{User: &user, Token: resp.Token}
	m.transition(ctx, next)
	m.log.Info("signed in", zap.String("user", user.Identity()))
	return next
}

// Logout signs out and forgets the stored session. It never fails.
func (m *Manager) Logout(ctx context.Context) {
	m.transition(ctx, Session{})
	m.log.Info("signed out")
}

// Restore rehydrates the session saved by a previous run. A missing, malformed
// or expired entry leaves the client signed out and is cleared from storage.
func (m *Manager) Restore(ctx context.Context) Session {
	s, err := m.store.Load()
	if err == nil && s.Active() {
		err = m.checkToken(s.Token)
	}
	if err != nil {
		m.log.Warn("discarding stored session", zap.Error(err))
		if err := m.store.Clear(); err != nil {
			m.log.Warn("cannot clear stored session", zap.Error(err))
		}
		return Session{}
	}
	if !s.Active() {
		return Session{}
	}
	m.transition(ctx, s)
	m.log.Info("session restored", zap.String("user", s.User.Identity()))
	return s
}

// Expire signs out if token is still the active one. It is called when the
// server rejects a bearer token; a rejection of an older token is ignored.
func (m *Manager) Expire(token string) {
	m.mu.Lock()
	if token == "" || m.current.Token != token {
		m.mu.Unlock()
		return
	}
	m.current = Session{}
	m.dirty = true
	m.seq++
	m.mu.Unlock()

	m.log.Info("session expired")
	m.persist(Session{})
	m.notify(context.Background())
}

func (m *Manager) checkToken(token string) error {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return err
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(m.now()) {
		return jwt.ErrTokenExpired
	}
	return nil
}

// transition switches to next and waits until the listener has been called
// for it, or for a later transition, even when another goroutine delivers it.
func (m *Manager) transition(ctx context.Context, next Session) {
	m.mu.Lock()
	m.current = next
	m.dirty = true
	m.seq++
	mine := m.seq
	m.mu.Unlock()

	m.persist(next)
	m.notify(ctx)

	m.mu.Lock()
	for m.delivered < mine {
		m.done.Wait()
	}
	m.mu.Unlock()
}

// persist writes s to the store unless a later transition superseded it.
// Storage failures only cost the next restore, so they are logged.
func (m *Manager) persist(s Session) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()
	if !m.Current().Same(s) {
		return
	}
	var err error
	if s.Active() {
		err = m.store.Save(s)
	} else {
		err = m.store.Clear()
	}
	if err != nil {
		m.log.Warn("cannot persist session", zap.Error(err))
	}
}

// notify delivers pending transitions to the listener, one at a time and in
// order. A transition raised while the listener runs (an expiry during the
// post-login refresh, for example) is delivered by the goroutine already
// notifying, after the listener returns.
func (m *Manager) notify(ctx context.Context) {
	m.mu.Lock()
	if m.notifying {
		m.mu.Unlock()
		return
	}
	m.notifying = true
	for m.dirty {
		m.dirty = false
		prev, next := m.notified, m.current
		m.notified = next
		target := m.seq
		listener := m.listener
		m.mu.Unlock()

		if listener != nil && !prev.Same(next) {
			listener(ctx, prev, next)
		}
		m.mu.Lock()
		m.delivered = target
		m.done.Broadcast()
	}
	m.notifying = false
	m.mu.Unlock()
}
