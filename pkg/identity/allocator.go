// Package identity assigns stable identities to generated points.
package identity

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pario-ai/dimsync/pkg/cache"
	"github.com/pario-ai/dimsync/pkg/models"
)

// Allocator hands out one Identity per (owner, slot, index) triple and never
// reassigns it for the lifetime of the backing store.
type Allocator struct {
	mu    sync.Mutex
	store cache.Store
}

// NewAllocator returns an Allocator persisting identities in store. A nil
// store gets a fresh in-memory one.
func NewAllocator(store cache.Store) *Allocator {
	if store == nil {
		store = cache.NewMemory("identities")
	}
	return &Allocator{store: store}
}

// Key returns the store key for an identity slot.
func Key(owner string, slot, index int) string {
	return fmt.Sprintf("%s_%d_%d", owner, slot, index)
}

// GetOrCreate returns the identity bound to (owner, slot, index), allocating
// a new one on first use.
func (a *Allocator) GetOrCreate(owner string, slot, index int) (models.Identity, error) {
	key := Key(owner, slot, index)

	a.mu.Lock()
	defer a.mu.Unlock()

	if v, ok := a.store.Get(key); ok {
		return models.Identity(v), nil
	}
	id := uuid.Must(uuid.NewV7()).String()
	if err := a.store.Put(key, id); err != nil {
		return "", fmt.Errorf("store identity %s: %w", key, err)
	}
	return models.Identity(id), nil
}

// Stats returns the backing store's statistics.
func (a *Allocator) Stats() (models.CacheStats, error) {
	return a.store.Stats()
}
