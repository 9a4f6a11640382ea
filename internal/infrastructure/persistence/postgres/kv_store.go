package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/persistence/kv"
)

// ══════════════════════════════════════════════════════════════════════════════
// KV STORE IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ErrEmptyKey is returned when an empty key is provided.
var ErrEmptyKey = errors.New("postgres: key cannot be empty")

// KVStore implements kv.Store on top of the kv_entries table.
type KVStore struct {
	conn *Connection
}

var _ kv.Store = (*KVStore)(nil)

// NewKVStore creates a new KVStore.
func NewKVStore(conn *Connection) *KVStore {
	return &KVStore{conn: conn}
}

// Get returns the raw value stored at key.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	query := `SELECT value FROM kv_entries WHERE key = $1`

	var value []byte
	if err := s.conn.QueryRow(ctx, query, key).Scan(&value); err != nil {
		if IsNoRows(err) {
			return nil, kv.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}

	return value, nil
}

// Set overwrites the value at key.
func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}

	query := `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`

	if _, err := s.conn.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	if _, err := s.conn.Exec(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}

	return nil
}
