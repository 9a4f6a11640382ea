package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/alem-hub/buddy-match-hub/internal/domain/matching"
	"github.com/alem-hub/buddy-match-hub/internal/domain/shared"
	"github.com/alem-hub/buddy-match-hub/pkg/logger"
)

// ClearMatchesCommand removes a supportee's stored match state.
type ClearMatchesCommand struct {
	SupporteeID string
}

// Validate validates the command.
func (c ClearMatchesCommand) Validate() error {
	if strings.TrimSpace(c.SupporteeID) == "" {
		return shared.ErrEmptySupporteeID
	}
	return nil
}

// ClearMatchesHandler handles ClearMatchesCommand.
type ClearMatchesHandler struct {
	repo  matching.StateRepository
	locks *SupporteeLocks
	log   *logger.Logger
}

// NewClearMatchesHandler creates a new ClearMatchesHandler.
func NewClearMatchesHandler(repo matching.StateRepository, locks *SupporteeLocks, log *logger.Logger) *ClearMatchesHandler {
	if log == nil {
		log = logger.NewNop()
	}
	if locks == nil {
		locks = NewSupporteeLocks()
	}
	return &ClearMatchesHandler{
		repo:  repo,
		locks: locks,
		log:   log.With(logger.Component("clear_matches")),
	}
}

// Handle clears the state; subsequent loads return the default state.
func (h *ClearMatchesHandler) Handle(ctx context.Context, cmd ClearMatchesCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	unlock := h.locks.Lock(cmd.SupporteeID)
	defer unlock()

	if err := h.repo.Clear(ctx, cmd.SupporteeID); err != nil {
		return fmt.Errorf("clear_matches: %w", err)
	}

	h.log.Info("match state cleared", logger.SupporteeID(cmd.SupporteeID))
	return nil
}
