package ttlcache

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend keeps entries in a map.
type MemoryBackend[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
}

// NewMemoryBackend creates an empty in-process backend.
func NewMemoryBackend[V any]() *MemoryBackend[V] {
	return &MemoryBackend[V]{entries: make(map[string]Entry[V])}
}

// Load implements Backend.
func (m *MemoryBackend[V]) Load(_ context.Context, key string) (Entry[V], bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

// Store implements Backend.
func (m *MemoryBackend[V]) Store(_ context.Context, key string, e Entry[V]) error {
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

// Delete implements Backend.
func (m *MemoryBackend[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Sweep removes entries that are no longer live at now and returns how many
// were dropped.
func (m *MemoryBackend[V]) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.entries {
		if !e.Live(now) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, live or not.
func (m *MemoryBackend[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
