package kv

import (
	"bytes"
	"context"
	"sync"
)

// MemStore keeps everything in a map. Its contents die with the process.
type MemStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty store. It rejects the same keys the
// durable backends do.
func NewMemStore() *MemStore {
	return &MemStore{data: map[string][]byte{}}
}

// Get returns a copy of the value under key.
func (m *MemStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	if err := ValidateKey(key); err != nil {
		return nil, false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, false, ErrClosed
	}

	value, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}

	return bytes.Clone(value), true, nil
}

// Insert stores a copy of value and returns the value it replaced.
func (m *MemStore) Insert(ctx context.Context, key string, value []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	previous := m.data[key]
	m.data[key] = bytes.Clone(value)

	return previous, nil
}

// Close makes later calls fail with ErrClosed.
func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}
