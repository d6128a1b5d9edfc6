// Package ratelimit bounds how often a user may perform an operation within a
// fixed window. MemoryLimiter serves a single instance; RedisLimiter shares
// the counters between instances.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter reports whether one more event for key fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

var _ Limiter = (*MemoryLimiter)(nil)

type window struct {
	start time.Time
	count int
}

// MemoryLimiter keeps fixed-window counters in process memory.
type MemoryLimiter struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]window
}

// NewMemoryLimiter allows limit events per key every period.
func NewMemoryLimiter(limit int, period time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		period:  period,
		now:     time.Now,
		windows: make(map[string]window),
	}
}

// Allow counts an event for key.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()
	start := now.Truncate(l.period)

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[key]
	if !w.start.Equal(start) {
		w = window{start: start}
	}
	if w.count >= l.limit {
		l.windows[key] = w
		return false, nil
	}
	w.count++
	l.windows[key] = w
	l.sweep(start)
	return true, nil
}

// sweep drops counters of past windows.
func (l *MemoryLimiter) sweep(current time.Time) {
	for k, w := range l.windows {
		if w.start.Before(current) {
			delete(l.windows, k)
		}
	}
}
