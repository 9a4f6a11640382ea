// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/alem-hub/buddy-match-hub/internal/domain/matching"
	"github.com/alem-hub/buddy-match-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET MATCH STATE QUERY
// Текущий список вариантов подопечного и флаг "нужен новый подбор".
// ══════════════════════════════════════════════════════════════════════════════

// GetMatchStateQuery - параметры запроса.
type GetMatchStateQuery struct {
	SupporteeID string
}

// Validate проверяет параметры.
func (q GetMatchStateQuery) Validate() error {
	if strings.TrimSpace(q.SupporteeID) == "" {
		return shared.ErrEmptySupporteeID
	}
	return nil
}

// MatchStateDTO - состояние подбора для ответа API.
type MatchStateDTO struct {
	SupporteeID string `json:"supporteeId"`
	matching.State

	// Active - выбранный вариант, если есть.
	Active *matching.Option `json:"active,omitempty"`

	// PendingCount - сколько вариантов ещё ждут ответа.
	PendingCount int `json:"pendingCount"`
}

// GetMatchStateHandler обрабатывает запрос.
type GetMatchStateHandler struct {
	repo matching.StateRepository
}

// NewGetMatchStateHandler создаёт обработчик.
func NewGetMatchStateHandler(repo matching.StateRepository) *GetMatchStateHandler {
	return &GetMatchStateHandler{repo: repo}
}

// Handle загружает состояние. Отсутствующее состояние - пустой список.
func (h *GetMatchStateHandler) Handle(ctx context.Context, q GetMatchStateQuery) (*MatchStateDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	state, err := h.repo.Load(ctx, q.SupporteeID)
	if err != nil {
		return nil, fmt.Errorf("get_match_state: %w", err)
	}

	dto := &MatchStateDTO{SupporteeID: q.SupporteeID, State: state}
	for _, o := range state.Options {
		if o.Status == matching.StatusProposed {
			dto.PendingCount++
		}
	}
	if state.ActiveMatchID != "" {
		if active, ok := state.Option(state.ActiveMatchID); ok {
			dto.Active = &active
		}
	}

	return dto, nil
}
