// Package dataset holds the active normalized datasets, keyed by
// opaque handles. Queries always go through a handle, never through
// shared process state, so concurrent sessions cannot step on each
// other's data.
package dataset

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"flowgraph/internal/models"
	"flowgraph/internal/services/engine"
)

type entry struct {
	engine   *engine.Engine
	lastUsed time.Time
}

// Registry maps dataset handles to their query engines
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Add registers a normalized record set and returns its handle
func (r *Registry) Add(data *models.RecordSet) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.New().String()
	r.entries[id] = &entry{
		engine:   engine.New(data),
		lastUsed: time.Now(),
	}
	return id
}

// Get returns the engine for a handle and marks it as used
func (r *Registry) Get(id string) (*engine.Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	e.lastUsed = time.Now()
	return e.engine, true
}

// Remove drops a dataset
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Len returns the number of active datasets
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// EvictIdle drops datasets not used within maxAge and returns how many
// were evicted
func (r *Registry) EvictIdle(maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	evicted := 0
	for id, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			delete(r.entries, id)
			evicted++
		}
	}
	return evicted
}
