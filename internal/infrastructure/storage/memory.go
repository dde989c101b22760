// Package storage provides the shard backends of the site data store.
package storage

import (
	"context"
	"strings"
	"sync"

	"github.com/catalogsite/backend/internal/application/sitedata"
)

// Ensure MemoryBackend implements ShardBackend
var _ sitedata.ShardBackend = (*MemoryBackend)(nil)

// MemoryBackend keeps shards in a map. Contents are lost on restart.
// Use it for tests and for storage.driver=memory during development.
type MemoryBackend struct {
	mu     sync.RWMutex
	shards map[string][]byte
}

// NewMemoryBackend creates an empty MemoryBackend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{shards: make(map[string][]byte)}
}

// Read returns a copy of the stored payload
func (m *MemoryBackend) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := sitedata.ValidateKey(key); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.shards[key]
	if !ok {
		return nil, sitedata.ErrShardNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Write stores a copy of data
func (m *MemoryBackend) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := sitedata.ValidateKey(key); err != nil {
		return err
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	m.mu.Lock()
	m.shards[key] = stored
	m.mu.Unlock()
	return nil
}

// Delete removes key
func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := sitedata.ValidateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.shards, key)
	m.mu.Unlock()
	return nil
}

// List returns the keys starting with prefix
func (m *MemoryBackend) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0)
	for key := range m.shards {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Len returns the number of stored shards
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.shards)
}
