// Package cache keeps one in-memory, server-synchronized collection per
// resource kind.
//
// A Cache applies a server response only after it succeeded and only if the
// session generation it was issued under is still current. Items are ordered
// as the server lists them, with newly created items first; the cache never
// sorts on its own.
package cache

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/safedrive/internal/client/apierr"
	"github.com/atinyakov/safedrive/internal/client/session"
)

// ErrStale is returned by a mutation whose response arrived after the session
// changed. The server may have applied it; the cache did not.
var ErrStale = errors.New("response discarded: session changed")

// errSignedOut is returned by mutations issued without an active session.
var errSignedOut = apierr.New(apierr.KindAuth, "not signed in", nil)

// API is the remote endpoint of one resource kind.
type API[T Item, C, U any] interface {
	List(ctx context.Context) ([]T, error)
	Search(ctx context.Context, query string) ([]T, error)
	Create(ctx context.Context, data C) (T, error)
	Update(ctx context.Context, id string, patch U) (T, error)
	Delete(ctx context.Context, id string) error
}

// State is a snapshot of a cache.
type State[T Item] struct {
	Items   []T
	Loading bool
	// LastError is the failure of the latest list or search, if any.
	LastError error
}

// Config customizes a Cache.
type Config[C, U any] struct {
	// Kind names the resource in logs.
	Kind string
	Log  *zap.Logger
	// ValidateCreate and ValidateUpdate reject a payload before any request.
	ValidateCreate func(C) error
	ValidateUpdate func(U) error
	// OnDelete runs after an item was removed, with session transitions
	// excluded. It must not call into the Epoch.
	OnDelete func(id string)
}

// Cache is the collection of one resource kind for the current session.
type Cache[T Item, C, U any] struct {
	epoch *session.Epoch
	api   API[T, C, U]
	cfg   Config[C, U]
	log   *zap.Logger

	mu      sync.Mutex
	items   []T
	pending int
	lastErr error
}

// New returns an empty cache over api, scoped to the generations of epoch.
func New[T Item, C, U any](epoch *session.Epoch, api API[T, C, U], cfg Config[C, U]) *Cache[T, C, U] {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache[T, C, U]{
		epoch: epoch,
		api:   api,
		cfg:   cfg,
		log:   log.With(zap.String("kind", cfg.Kind)),
	}
}

// Kind returns the resource name given in Config.
func (c *Cache[T, C, U]) Kind() string {
	return c.cfg.Kind
}

// State returns a copy of the current state.
func (c *Cache[T, C, U]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State[T]{
		Items:     append([]T(nil), c.items...),
		Loading:   c.pending > 0,
		LastError: c.lastErr,
	}
}

// Items returns a copy of the cached items.
func (c *Cache[T, C, U]) Items() []T {
	return c.State().Items
}

// Get returns the cached item with id.
func (c *Cache[T, C, U]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if it.GetID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Filter returns the cached items matching query, case-insensitively, without
// touching the cache. An empty query matches everything.
func (c *Cache[T, C, U]) Filter(query string) []T {
	query = strings.TrimSpace(query)
	items := c.Items()
	if query == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if it.Matches(query) {
			out = append(out, it)
		}
	}
	return out
}

// List refreshes the cache from the server. Without an active session it does
// nothing. A failure is recorded in State.LastError and the items are kept.
func (c *Cache[T, C, U]) List(ctx context.Context) {
	c.refresh(ctx, "list", c.api.List)
}

// Search replaces the items with the server's matches for query. An empty
// query lists everything.
func (c *Cache[T, C, U]) Search(ctx context.Context, query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		c.List(ctx)
		return
	}
	c.refresh(ctx, "search", func(ctx context.Context) ([]T, error) {
		return c.api.Search(ctx, query)
	})
}

func (c *Cache[T, C, U]) refresh(ctx context.Context, op string, fetch func(context.Context) ([]T, error)) {
	gen, active := c.epoch.Snapshot()
	if !active {
		return
	}
	if !c.epoch.IfCurrent(gen, c.begin) {
		return
	}

	items, err := fetch(ctx)

	applied := c.epoch.IfCurrent(gen, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.pending--
		if err != nil {
			c.lastErr = err
			return
		}
		c.items = ReplaceCommand[T]{Items: items}.Apply(c.items)
		c.lastErr = nil
	})
	switch {
	case !applied:
		c.log.Debug("discarding stale response", zap.String("op", op), zap.Uint64("generation", gen))
	case err != nil:
		c.log.Warn("refresh failed", zap.String("op", op), zap.Stringer("error_kind", apierr.KindOf(err)), zap.Error(err))
	default:
		c.log.Debug("refreshed", zap.String("op", op), zap.Int("count", len(items)))
	}
}

func (c *Cache[T, C, U]) begin() {
	c.mu.Lock()
	c.pending++
	c.mu.Unlock()
}

// Create sends data and puts the returned item first. On failure the cache is
// unchanged and the error is returned.
func (c *Cache[T, C, U]) Create(ctx context.Context, data C) (T, error) {
	var zero T
	if c.cfg.ValidateCreate != nil {
		if err := c.cfg.ValidateCreate(data); err != nil {
			return zero, apierr.Validation(err)
		}
	}
	gen, err := c.issue()
	if err != nil {
		return zero, err
	}
	item, err := c.api.Create(ctx, data)
	if err != nil {
		return zero, err
	}
	if !c.apply(gen, CreateCommand[T]{Item: item}, nil) {
		return zero, ErrStale
	}
	c.log.Debug("created", zap.String("id", item.GetID()))
	return item, nil
}

// Update sends patch for id and replaces the cached item in place with the
// server's version.
func (c *Cache[T, C, U]) Update(ctx context.Context, id string, patch U) (T, error) {
	var zero T
	if c.cfg.ValidateUpdate != nil {
		if err := c.cfg.ValidateUpdate(patch); err != nil {
			return zero, apierr.Validation(err)
		}
	}
	gen, err := c.issue()
	if err != nil {
		return zero, err
	}
	item, err := c.api.Update(ctx, id, patch)
	if err != nil {
		return zero, err
	}
	if !c.apply(gen, UpdateCommand[T]{Item: item}, nil) {
		return zero, ErrStale
	}
	c.log.Debug("updated", zap.String("id", id))
	return item, nil
}

// Delete removes id on the server, then from the cache.
func (c *Cache[T, C, U]) Delete(ctx context.Context, id string) error {
	gen, err := c.issue()
	if err != nil {
		return err
	}
	if err := c.api.Delete(ctx, id); err != nil {
		return err
	}
	var after func()
	if c.cfg.OnDelete != nil {
		after = func() { c.cfg.OnDelete(id) }
	}
	if !c.apply(gen, DeleteCommand[T]{ID: id}, after) {
		return ErrStale
	}
	c.log.Debug("deleted", zap.String("id", id))
	return nil
}

// Reset empties the cache. Only the coordinator calls it, inside a transition.
func (c *Cache[T, C, U]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.pending = 0
	c.lastErr = nil
}

func (c *Cache[T, C, U]) issue() (uint64, error) {
	gen, active := c.epoch.Snapshot()
	if !active {
		return 0, errSignedOut
	}
	return gen, nil
}

func (c *Cache[T, C, U]) apply(gen uint64, cmd Command[T], after func()) bool {
	return c.epoch.IfCurrent(gen, func() {
		c.mu.Lock()
		c.items = cmd.Apply(c.items)
		c.mu.Unlock()
		if after != nil {
			after()
		}
	})
}
