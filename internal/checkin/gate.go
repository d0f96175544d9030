package checkin

import (
	"context"
	"sync"
	"time"
)

// Gate is the per-session scan lock. While a session is locked its scans are ignored.
type Gate interface {
	// Acquire locks the session and reports whether this call took the lock.
	// A positive ttl releases the lock on its own after ttl.
	Acquire(ctx context.Context, sessionID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, sessionID string) error
	Locked(ctx context.Context, sessionID string) (bool, error)
}

// LocalGate keeps locks in process memory.
type LocalGate struct {
	mu    sync.Mutex
	locks map[string]time.Time // zero value: held until released
	now   func() time.Time
}

func NewLocalGate() *LocalGate {
	return &LocalGate{locks: make(map[string]time.Time), now: time.Now}
}

func (g *LocalGate) Acquire(_ context.Context, sessionID string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.heldLocked(sessionID) {
		return false, nil
	}
	var expires time.Time
	if ttl > 0 {
		expires = g.now().Add(ttl)
	}
	g.locks[sessionID] = expires
	return true, nil
}

func (g *LocalGate) Release(_ context.Context, sessionID string) error {
	g.mu.Lock()
	delete(g.locks, sessionID)
	g.mu.Unlock()
	return nil
}

func (g *LocalGate) Locked(_ context.Context, sessionID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.heldLocked(sessionID), nil
}

// heldLocked requires g.mu.
func (g *LocalGate) heldLocked(sessionID string) bool {
	expires, ok := g.locks[sessionID]
	if !ok {
		return false
	}
	if !expires.IsZero() && !g.now().Before(expires) {
		delete(g.locks, sessionID)
		return false
	}
	return true
}
