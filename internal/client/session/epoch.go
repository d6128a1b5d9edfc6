package session

import "sync"

// Epoch numbers session generations. Every identity transition advances the
// generation; work issued under an older generation must not touch state.
//
// Lock order is always Epoch first, then the component's own mutex. Functions
// passed to IfCurrent and View must not call back into the Epoch.
type Epoch struct {
	mu     sync.RWMutex
	gen    uint64
	active bool
}

// Snapshot returns the current generation and whether a session is active in it.
func (e *Epoch) Snapshot() (gen uint64, active bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.gen, e.active
}

// Advance runs reset with every reader excluded, then starts a new generation.
// It returns the new generation.
func (e *Epoch) Advance(active bool, reset func()) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if reset != nil {
		reset()
	}
	e.gen++
	e.active = active
	return e.gen
}

// IfCurrent runs fn only if gen is still the current generation and reports
// whether it ran. No transition can start while fn runs.
func (e *Epoch) IfCurrent(gen uint64, fn func()) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.gen != gen {
		return false
	}
	fn()
	return true
}

// View runs fn with transitions excluded, so that several components can be
// read as one consistent picture.
func (e *Epoch) View(fn func()) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn()
}
