// Package presence maps a logical user identity to its single live relay
// connection. The registry is purely in-memory; nothing survives a restart.
package presence

import (
	"sync"

	"github.com/google/uuid"
)

// Handle is the connection-side interface the registry holds. The relay's
// client satisfies it; sweeps push through it without knowing about sockets.
type Handle interface {
	// Push queues an encoded event for delivery. A failed push means the
	// connection is stale and is treated as "recipient offline".
	Push(data []byte) error
}

// Entry pairs an identity with its registered handle, for sweep iteration.
type Entry struct {
	UserID uuid.UUID
	Handle Handle
}

// Registry holds at most one entry per identity. Registering over an
// existing entry evicts it (last-registered wins).
type Registry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]Handle
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[uuid.UUID]Handle)}
}

// Register binds the identity to h and returns the evicted handle, if any,
// so the caller can close the superseded connection.
func (r *Registry) Register(userID uuid.UUID, h Handle) (evicted Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted = r.entries[userID]
	r.entries[userID] = h
	return evicted
}

// Lookup returns the live handle for the identity, or nil.
func (r *Registry) Lookup(userID uuid.UUID) Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[userID]
}

// Remove drops the identity's entry. Idempotent.
func (r *Registry) Remove(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, userID)
}

// RemoveIf drops the entry only while h is still the registered handle. A
// disconnect completing after a newer connection registered must not evict
// the newer one.
func (r *Registry) RemoveIf(userID uuid.UUID, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries[userID] != h {
		return false
	}
	delete(r.entries, userID)
	return true
}

// Snapshot returns a consistent copy of all entries. Sweeps iterate the copy
// so concurrent connects and disconnects cannot corrupt the walk.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.entries))
	for id, h := range r.entries {
		entries = append(entries, Entry{UserID: id, Handle: h})
	}
	return entries
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
