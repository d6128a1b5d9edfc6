// Package coordinator resets every session-scoped component when the signed-in
// identity changes.
package coordinator

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/safedrive/internal/client/session"
)

// Resource is a per-kind cache.
type Resource interface {
	Kind() string
	Reset()
	List(ctx context.Context)
}

// Secrets is the revealed-password map.
type Secrets interface {
	ResetAll()
}

// Coordinator is the only component that starts a new session generation.
type Coordinator struct {
	epoch     *session.Epoch
	secrets   Secrets
	resources []Resource
	log       *zap.Logger

	// current is written only inside Epoch.Advance.
	current session.Session
}

// New returns a Coordinator over secrets and resources.
func New(epoch *session.Epoch, log *zap.Logger, secrets Secrets, resources ...Resource) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{epoch: epoch, secrets: secrets, resources: resources, log: log}
}

// OnSessionChange starts a new generation: every cache is emptied and every
// revealed password forgotten before any reader can observe the new session.
// When next is signed in, each cache is then listed again; OnSessionChange
// returns after all the lists completed.
func (c *Coordinator) OnSessionChange(ctx context.Context, prev, next session.Session) {
	gen := c.epoch.Advance(next.Active(), func() {
		for _, r := range c.resources {
			r.Reset()
		}
		c.secrets.ResetAll()
		c.current = next
	})
	c.log.Info("session changed",
		zap.Bool("was_active", prev.Active()),
		zap.Bool("active", next.Active()),
		zap.Uint64("generation", gen))

	if !next.Active() {
		return
	}
	var wg sync.WaitGroup
	for _, r := range c.resources {
		wg.Add(1)
		go func(r Resource) {
			defer wg.Done()
			r.List(ctx)
		}(r)
	}
	wg.Wait()
}

// View runs fn while no session transition can take place, so that fn sees
// all caches and the revealed passwords of the session it is given. fn must
// not call listing or mutating operations.
func (c *Coordinator) View(fn func(current session.Session)) {
	c.epoch.View(func() { fn(c.current) })
}
