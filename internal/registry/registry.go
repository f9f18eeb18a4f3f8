// Package registry tracks the currently admitted real-time sessions and
// enforces the concurrent-connection cap.
package registry

import (
	"sort"
	"sync"
)

// Registry is the set of admitted session ids.
type Registry struct {
	max int

	mu       sync.RWMutex
	sessions map[string]struct{}
}

// New creates a Registry admitting at most max sessions.
func New(max int) *Registry {
	return &Registry{
		max:      max,
		sessions: make(map[string]struct{}),
	}
}

// Admit adds id unless the registry is full. A refused attempt leaves the
// count unchanged. Admitting an id that is already present succeeds.
func (r *Registry) Admit(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; ok {
		return true
	}
	if len(r.sessions) >= r.max {
		return false
	}
	r.sessions[id] = struct{}{}
	return true
}

// Remove deletes id. Removing an absent id is a no-op; the return value
// reports whether id was present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Contains reports whether id is admitted.
func (r *Registry) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[id]
	return ok
}

// Count returns the number of admitted sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// IDs returns the admitted session ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Max returns the connection cap.
func (r *Registry) Max() int {
	return r.max
}
