// Package helprequests stores help requests in a kv.Store: one document per
// request plus a per-supportee index of request ids.
package helprequests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/alem-hub/buddy-match-hub/internal/domain/shared"
	"github.com/alem-hub/buddy-match-hub/internal/domain/support"
	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/persistence/kv"
	"github.com/alem-hub/buddy-match-hub/pkg/logger"
	"github.com/alem-hub/buddy-match-hub/pkg/retry"
)

// Repository implements support.Repository.
type Repository struct {
	backend   kv.Store
	namespace string
	retrier   *retry.Retrier
	log       *logger.Logger

	// indexMu serializes index read-modify-write cycles.
	indexMu sync.Mutex
}

var _ support.Repository = (*Repository)(nil)

// NewRepository creates a Repository.
func NewRepository(backend kv.Store, namespace string, log *logger.Logger) *Repository {
	if log == nil {
		log = logger.NewNop()
	}
	return &Repository{
		backend:   backend,
		namespace: namespace,
		retrier:   retry.StoreRetrier(),
		log:       log.With(logger.Component("helprequests")),
	}
}

func (r *Repository) requestKey(id string) string {
	return kv.Key(r.namespace, kv.PrefixHelpRequest, id)
}

func (r *Repository) indexKey(supporteeID string) string {
	return kv.Key(r.namespace, kv.PrefixHelpRequestIndex, supporteeID)
}

// Save stores the request and adds it to the supportee index.
func (r *Repository) Save(ctx context.Context, req *support.HelpRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("helprequests: marshal request: %w", err)
	}
	if err := r.set(ctx, r.requestKey(req.ID), data); err != nil {
		return shared.WrapError("helprequests", "Save", shared.ErrStorageUnavailable, "failed to save help request", err)
	}

	r.indexMu.Lock()
	defer r.indexMu.Unlock()

	ids, err := r.loadIndex(ctx, req.SupporteeID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == req.ID {
			return nil
		}
	}

	data, err = json.Marshal(append(ids, req.ID))
	if err != nil {
		return fmt.Errorf("helprequests: marshal index: %w", err)
	}
	if err := r.set(ctx, r.indexKey(req.SupporteeID), data); err != nil {
		return shared.WrapError("helprequests", "Save", shared.ErrStorageUnavailable, "failed to update help request index", err)
	}
	return nil
}

// FindByID returns the request or support.ErrHelpRequestNotFound.
func (r *Repository) FindByID(ctx context.Context, id string) (*support.HelpRequest, error) {
	data, err := r.backend.Get(ctx, r.requestKey(id))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, support.ErrHelpRequestNotFound
	}
	if err != nil {
		return nil, shared.WrapError("helprequests", "FindByID", shared.ErrStorageUnavailable, "failed to load help request", err)
	}

	var req support.HelpRequest
	if err := json.Unmarshal(data, &req); err != nil {
		r.log.Warn("failed to parse stored help request",
			logger.HelpRequestID(id),
			logger.Err(err),
		)
		return nil, support.ErrHelpRequestNotFound
	}
	return &req, nil
}

// ListBySupportee returns the supportee's requests, newest first.
// Index entries whose document is gone or unreadable are skipped.
func (r *Repository) ListBySupportee(ctx context.Context, supporteeID string) ([]*support.HelpRequest, error) {
	ids, err := r.loadIndex(ctx, supporteeID)
	if err != nil {
		return nil, err
	}

	out := make([]*support.HelpRequest, 0, len(ids))
	for _, id := range ids {
		req, err := r.FindByID(ctx, id)
		if errors.Is(err, support.ErrHelpRequestNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repository) loadIndex(ctx context.Context, supporteeID string) ([]string, error) {
	data, err := r.backend.Get(ctx, r.indexKey(supporteeID))
	if errors.Is(err, kv.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, shared.WrapError("helprequests", "LoadIndex", shared.ErrStorageUnavailable, "failed to load help request index", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		r.log.Warn("failed to parse help request index, starting fresh",
			logger.SupporteeID(supporteeID),
			logger.Err(err),
		)
		return []string{}, nil
	}
	return ids, nil
}

func (r *Repository) set(ctx context.Context, key string, data []byte) error {
	return r.retrier.Do(ctx, func(ctx context.Context) error {
		if err := r.backend.Set(ctx, key, data); err != nil {
			return retry.Retryable(err)
		}
		return nil
	})
}
