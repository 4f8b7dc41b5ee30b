// Package kv provides the key/value stores the dashboard session can be
// persisted in.
package kv

import (
	"context"
	"sync"

	"vizninja/ports"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps values in process memory. Values never expire.
type MemoryStore struct {
	mu    sync.RWMutex
	cache *cache.Cache
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: cache.New(cache.NoExpiration, 0)}
}

// GetMany reads every key under one read lock.
func (m *MemoryStore) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.cache.Get(k); ok {
			out[k] = v.(string)
		}
	}
	return out, nil
}

// Apply checks the batch preconditions and writes it under one lock.
func (m *MemoryStore) Apply(ctx context.Context, batch ports.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, want := range batch.Require {
		v, ok := m.cache.Get(k)
		if !ok || v.(string) != want {
			return ports.ErrPreconditionFailed
		}
	}
	for _, k := range batch.Delete {
		m.cache.Delete(k)
	}
	for k, v := range batch.Set {
		m.cache.Set(k, v, cache.NoExpiration)
	}
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
