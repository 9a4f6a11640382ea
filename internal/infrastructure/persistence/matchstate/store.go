// Package matchstate persists per-supportee match state as one JSON document
// in a kv.Store.
package matchstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alem-hub/buddy-match-hub/internal/domain/matching"
	"github.com/alem-hub/buddy-match-hub/internal/domain/shared"
	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/persistence/kv"
	"github.com/alem-hub/buddy-match-hub/pkg/logger"
	"github.com/alem-hub/buddy-match-hub/pkg/retry"
)

// Store implements matching.StateRepository.
//
// A nil backend is treated as "no storage available": loads return the
// default state and writes are dropped.
type Store struct {
	backend   kv.Store
	namespace string
	retrier   *retry.Retrier
	log       *logger.Logger
}

var _ matching.StateRepository = (*Store)(nil)

// NewStore creates a Store. namespace may be empty.
func NewStore(backend kv.Store, namespace string, log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{
		backend:   backend,
		namespace: namespace,
		retrier:   retry.StoreRetrier(),
		log:       log.With(logger.Component("matchstate")),
	}
}

// Key returns the storage key for a supportee.
func (s *Store) Key(supporteeID string) string {
	return kv.Key(s.namespace, kv.PrefixSupporteeMatches, supporteeID)
}

// Load returns the stored state, or the default state when nothing usable is stored.
// Options beyond matching.MaxOptions are dropped.
func (s *Store) Load(ctx context.Context, supporteeID string) (matching.State, error) {
	if s.backend == nil {
		return matching.DefaultState(), nil
	}

	key := s.Key(supporteeID)
	data, err := s.backend.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return matching.DefaultState(), nil
	}
	if err != nil {
		return matching.State{}, shared.WrapError("matchstate", "Load", shared.ErrStorageUnavailable, "failed to load match state", err)
	}

	var state matching.State
	if err := json.Unmarshal(data, &state); err != nil {
		s.log.Warn("failed to parse stored match state, using defaults",
			logger.SupporteeID(supporteeID),
			logger.String("key", key),
			logger.Err(err),
		)
		return matching.DefaultState(), nil
	}

	return state.Normalize(), nil
}

// Save overwrites the stored state. The options list is written as given.
func (s *Store) Save(ctx context.Context, supporteeID string, state matching.State) error {
	if s.backend == nil {
		return nil
	}

	data, err := json.Marshal(state.WithReasons())
	if err != nil {
		return fmt.Errorf("matchstate: marshal state: %w", err)
	}

	key := s.Key(supporteeID)
	err = s.retrier.Do(ctx, func(ctx context.Context) error {
		if err := s.backend.Set(ctx, key, data); err != nil {
			return retry.Retryable(err)
		}
		return nil
	})
	if err != nil {
		return shared.WrapError("matchstate", "Save", shared.ErrStorageUnavailable, "failed to save match state", err)
	}
	return nil
}

// Clear removes the stored state.
func (s *Store) Clear(ctx context.Context, supporteeID string) error {
	if s.backend == nil {
		return nil
	}

	key := s.Key(supporteeID)
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		if err := s.backend.Delete(ctx, key); err != nil {
			return retry.Retryable(err)
		}
		return nil
	})
	if err != nil {
		return shared.WrapError("matchstate", "Clear", shared.ErrStorageUnavailable, "failed to clear match state", err)
	}
	return nil
}
