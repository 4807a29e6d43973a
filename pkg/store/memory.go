package store

import (
	"context"
	"sync"
)

// MemoryStore implements Store in process memory. Used for the "memory"
// cache backend and in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	kv     map[string]string
	state  map[string]string
	closed bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		kv:    make(map[string]string),
		state: make(map[string]string),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, ErrClosed
	}
	v, ok := m.kv[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, val string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.kv[key] = val
	return nil
}

// Len returns the number of cache entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.kv)
}

func (m *MemoryStore) GetState(_ context.Context, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.state[key]
	return v, ok
}

func (m *MemoryStore) SetState(_ context.Context, key, val string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[key] = val
	return nil
}

func (m *MemoryStore) DeleteState(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state, key)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
