package keychain

import (
	"fmt"
	"sync"
)

// MemoryStore is a Store that keeps values in process memory. It backs the
// token store and AuditedStore tests; nothing is written to disk.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, key)
}

// Delete is a no-op for a missing key, like the other stores.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
	return nil
}
