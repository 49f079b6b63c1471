// Package cache defines the process-local key-value stores that back the
// identity allocator and the marker-handle cache.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/pario-ai/dimsync/pkg/models"
)

// Store maps string keys to string values.
type Store interface {
	// Get returns the value for key. ok is false when key is absent.
	Get(key string) (value string, ok bool)
	// Put inserts or replaces the value for key.
	Put(key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	// Stats returns entry count and hit/miss counters.
	Stats() (models.CacheStats, error)
}

// Memory is a map-backed Store safe for concurrent use.
type Memory struct {
	name    string
	mu      sync.RWMutex
	entries map[string]string
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewMemory returns an empty in-memory store labelled name in its stats.
func NewMemory(name string) *Memory {
	return &Memory{name: name, entries: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	v, ok := m.entries[key]
	m.mu.RUnlock()
	if ok {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	return v, ok
}

func (m *Memory) Put(key, value string) error {
	m.mu.Lock()
	m.entries[key] = value
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Stats() (models.CacheStats, error) {
	m.mu.RLock()
	n := len(m.entries)
	m.mu.RUnlock()
	return models.CacheStats{
		Name:    m.name,
		Entries: int64(n),
		Hits:    m.hits.Load(),
		Misses:  m.misses.Load(),
	}, nil
}
