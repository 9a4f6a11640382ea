package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/alem-hub/buddy-match-hub/internal/domain/shared"
	"github.com/alem-hub/buddy-match-hub/internal/domain/support"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET HELP REQUESTS QUERY
// Запросы помощи подопечного, новые первыми.
// ══════════════════════════════════════════════════════════════════════════════

// GetHelpRequestsQuery - параметры запроса.
type GetHelpRequestsQuery struct {
	SupporteeID string

	// Status - фильтр по статусу (пустой = все).
	Status support.Status

	// Limit - максимум записей (0 = без ограничения).
	Limit int
}

// Validate проверяет параметры.
func (q GetHelpRequestsQuery) Validate() error {
	if strings.TrimSpace(q.SupporteeID) == "" {
		return shared.ErrEmptySupporteeID
	}
	if q.Limit < 0 {
		return shared.NewDomainError("query", "GetHelpRequests", shared.ErrNegativeValue, "limit cannot be negative")
	}
	return nil
}

// GetHelpRequestsResult - результат запроса.
type GetHelpRequestsResult struct {
	Requests []*support.HelpRequest `json:"requests"`
	Total    int                    `json:"total"`
}

// GetHelpRequestsHandler обрабатывает запрос.
type GetHelpRequestsHandler struct {
	repo support.Repository
}

// NewGetHelpRequestsHandler создаёт обработчик.
func NewGetHelpRequestsHandler(repo support.Repository) *GetHelpRequestsHandler {
	return &GetHelpRequestsHandler{repo: repo}
}

// Handle возвращает запросы подопечного.
func (h *GetHelpRequestsHandler) Handle(ctx context.Context, q GetHelpRequestsQuery) (*GetHelpRequestsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	all, err := h.repo.ListBySupportee(ctx, q.SupporteeID)
	if err != nil {
		return nil, fmt.Errorf("get_help_requests: %w", err)
	}

	filtered := make([]*support.HelpRequest, 0, len(all))
	for _, r := range all {
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		filtered = append(filtered, r)
	}

	total := len(filtered)
	if q.Limit > 0 && len(filtered) > q.Limit {
		filtered = filtered[:q.Limit]
	}

	return &GetHelpRequestsResult{Requests: filtered, Total: total}, nil
}
