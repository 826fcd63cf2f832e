// Package registry holds the set of clients that are currently believed to be
// reachable.
//
// All operations are linearizable: an Add or Remove that has returned before a
// Snapshot call starts is visible in that snapshot. No operation performs I/O
// while holding the lock.
package registry

import (
	"context"
	"sync"
)

// Handle is one connected client's outbound channel.
type Handle interface {
	// ID is the session identifier, stable for the lifetime of the connection.
	ID() string
	// Send attempts to deliver payload. It must honour ctx and must not block
	// beyond a bounded interval.
	Send(ctx context.Context, payload string) error
}

type Registry struct {
	mu      sync.RWMutex
	handles map[string]Handle
}

func New() *Registry {
	return &Registry{
		handles: make(map[string]Handle),
	}
}

// Add inserts h keyed by its ID, replacing any entry with the same ID.
func (r *Registry) Add(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[h.ID()] = h
}

// Remove deletes the entry for id and reports whether one existed.
// Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handles[id]; !ok {
		return false
	}
	delete(r.handles, id)
	return true
}

// Get returns the handle registered under id.
func (r *Registry) Get(id string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	return h, ok
}

// Snapshot returns a copy of the registered handles. The slice belongs to the
// caller and is not affected by later mutations.
func (r *Registry) Snapshot() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handles := make([]Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	return handles
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
