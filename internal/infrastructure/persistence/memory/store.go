// Package memory implements an in-process key-value store. Used for
// development and tests, and as the default backend.
package memory

import (
	"context"
	"sync"

	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/persistence/kv"
)

// Store is a map-backed kv.Store safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// Get returns a copy of the stored value.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes the key.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// Len returns the number of keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
