package store

import (
	"context"
	"sync"
)

// MemoryBlobStore is an in-memory BlobStore.
// Data is lost on restart; use the sqlite or GCS backend for persistence.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryBlobStore creates an empty in-memory blob store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{
		blobs: make(map[string][]byte),
	}
}

// Get implements BlobStore.
func (m *MemoryBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy to avoid external modifications
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Put implements BlobStore.
func (m *MemoryBlobStore) Put(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	m.blobs[key] = stored
	return nil
}

// Close implements BlobStore.
func (m *MemoryBlobStore) Close() error {
	return nil
}

var _ BlobStore = (*MemoryBlobStore)(nil)
