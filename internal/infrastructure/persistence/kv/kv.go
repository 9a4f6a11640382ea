// Package kv defines the key-value storage contract every persistence backend
// (memory, Redis, PostgreSQL) implements. Values are opaque JSON documents.
package kv

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("kv: key not found")

// Store is a namespaced key-value store. Writes overwrite unconditionally.
type Store interface {
	// Get returns the raw value or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the value, replacing any existing one.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Key prefixes for namespacing.
const (
	PrefixSupporteeMatches = "supportee-matches"
	PrefixHelpRequest      = "help-request"
	PrefixHelpRequestIndex = "help-requests-by-supportee"
	PrefixSession          = "sessions"
	PrefixCoachLog         = "coach-notifications"
)

// Key joins a namespace, a prefix and ids with ':'.
func Key(namespace, prefix string, ids ...string) string {
	parts := make([]string, 0, len(ids)+2)
	if namespace != "" {
		parts = append(parts, namespace)
	}
	parts = append(parts, prefix)
	parts = append(parts, ids...)
	return strings.Join(parts, ":")
}
