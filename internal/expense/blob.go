package expense

import (
	"fmt"
	"sync"
)

// BlobStore holds receipt payloads for the lifetime of the session.
type BlobStore interface {
	// Save stores a payload and returns the key it is retrievable under.
	Save(key string, data []byte) (string, error)

	// Get retrieves a payload by key.
	Get(key string) ([]byte, error)

	// Delete removes a payload.
	Delete(key string) error
}

// MemoryBlobStore keeps payloads in memory; everything is lost on restart,
// which is the intended session model.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryBlobStore creates an empty MemoryBlobStore.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte)}
}

// Save stores a payload under key.
func (m *MemoryBlobStore) Save(key string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.blobs[key] = buf
	return key, nil
}

// Get retrieves a payload by key.
func (m *MemoryBlobStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob not found: %s", key)
	}
	return data, nil
}

// Delete removes a payload.
func (m *MemoryBlobStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[key]; !ok {
		return fmt.Errorf("blob not found: %s", key)
	}
	delete(m.blobs, key)
	return nil
}
