package supervisor

import (
	"sync"

	v1 "github.com/bothive/bothive/pkg/api/v1"
)

// Registry is the process-wide map from user ID to live process handle.
// It is the sole source of truth for "is a bot running": an entry exists
// only while its handle is Starting, Running or Stopping. All
// check-then-mutate sequences happen inside one critical section.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*Handle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*Handle)}
}

// Acquire atomically reserves the user's slot with a new Starting handle.
// It fails with ErrAlreadyRunning when a live handle is present, so two
// concurrent starts can never both succeed. An Exited handle left behind
// by a lost race is replaced.
func (r *Registry) Acquire(userID, entryFile string) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.handles[userID]; ok && existing.State() != v1.BotStateExited {
		return nil, ErrAlreadyRunning
	}

	h := newHandle(userID, entryFile)
	r.handles[userID] = h
	return h, nil
}

// Get returns the user's handle, if present.
func (r *Registry) Get(userID string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[userID]
	return h, ok
}

// Remove deletes the user's entry only while it still maps to h, making
// cleanup idempotent between the watcher and the terminator. Reports
// whether this call performed the removal.
func (r *Registry) Remove(userID string, h *Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.handles[userID]; ok && current == h {
		delete(r.handles, userID)
		return true
	}
	return false
}

// List returns all tracked handles.
func (r *Registry) List() []*Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		result = append(result, h)
	}
	return result
}

// Len returns the number of tracked handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
