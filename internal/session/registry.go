// Package session tracks which users currently hold which live connections.
package session

import (
	"sync"
)

// Registry is the in-memory user directory. A user key exists iff that user
// has at least one open connection; entries are removed eagerly when the last
// handle goes away. The registry holds no persistence: a process restart
// empties it and clients reconnect.
type Registry struct {
	mu    sync.RWMutex
	users map[int64]map[*Conn]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{users: make(map[int64]map[*Conn]struct{})}
}

// Register adds a handle to the user's set, creating the set if absent.
// Registering the same handle twice is a no-op.
func (r *Registry) Register(userID int64, c *Conn) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.users[userID]
	if !ok {
		set = make(map[*Conn]struct{})
		r.users[userID] = set
	}
	set[c] = struct{}{}
}

// Unregister removes a handle from the user's set and drops the user key when
// the set empties. Unknown users or handles are ignored.
func (r *Registry) Unregister(userID int64, c *Conn) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.users[userID]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(r.users, userID)
	}
}

// ConnectionsFor returns a snapshot of the user's handles. Fan-out iterates
// the snapshot, so a concurrent disconnect can never surface a half-mutated
// set to the caller.
func (r *Registry) ConnectionsFor(userID int64) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.users[userID]
	if !ok {
		return nil
	}
	conns := make([]*Conn, 0, len(set))
	for c := range set {
		conns = append(conns, c)
	}
	return conns
}

// Users returns the number of distinct users currently connected.
func (r *Registry) Users() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// Len returns the total number of tracked connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, set := range r.users {
		total += len(set)
	}
	return total
}
