package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/alem-hub/buddy-match-hub/internal/domain/matching"
	"github.com/alem-hub/buddy-match-hub/internal/domain/shared"
	"github.com/alem-hub/buddy-match-hub/pkg/logger"
	"github.com/alem-hub/buddy-match-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REJECT ALL MATCHES COMMAND
// "None of these, get me someone else": rejects every option that is not
// already selected and always raises a coach signal.
// ══════════════════════════════════════════════════════════════════════════════

// RejectAllMatchesCommand identifies the supportee.
type RejectAllMatchesCommand struct {
	SupporteeID string
}

// Validate validates the command.
func (c RejectAllMatchesCommand) Validate() error {
	if strings.TrimSpace(c.SupporteeID) == "" {
		return shared.ErrEmptySupporteeID
	}
	return nil
}

// RejectAllMatchesResult contains the persisted state.
type RejectAllMatchesResult struct {
	State  matching.State
	Events []shared.Event
}

// RejectAllMatchesHandler handles RejectAllMatchesCommand.
type RejectAllMatchesHandler struct {
	repo      matching.StateRepository
	publisher shared.EventPublisher
	clock     timeutil.Clock
	locks     *SupporteeLocks
	log       *logger.Logger
}

// NewRejectAllMatchesHandler creates a new RejectAllMatchesHandler.
func NewRejectAllMatchesHandler(
	repo matching.StateRepository,
	publisher shared.EventPublisher,
	locks *SupporteeLocks,
	clock timeutil.Clock,
	log *logger.Logger,
) *RejectAllMatchesHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	if locks == nil {
		locks = NewSupporteeLocks()
	}
	return &RejectAllMatchesHandler{
		repo:      repo,
		publisher: publisher,
		clock:     clock,
		locks:     locks,
		log:       log.With(logger.Component("reject_all_matches")),
	}
}

// Handle applies the bulk reject and persists the state.
func (h *RejectAllMatchesHandler) Handle(ctx context.Context, cmd RejectAllMatchesCommand) (*RejectAllMatchesResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	unlock := h.locks.Lock(cmd.SupporteeID)
	defer unlock()

	state, err := h.repo.Load(ctx, cmd.SupporteeID)
	if err != nil {
		return nil, fmt.Errorf("reject_all_matches: %w", err)
	}

	now := timeutil.Stamp(h.clock)
	tr := matching.RejectAll(state, now)

	if err := h.repo.Save(ctx, cmd.SupporteeID, tr.State); err != nil {
		return nil, fmt.Errorf("reject_all_matches: %w", err)
	}

	result := &RejectAllMatchesResult{
		State:  tr.State,
		Events: transitionEvents(cmd.SupporteeID, tr, now),
	}

	h.log.Info("all matches rejected",
		logger.SupporteeID(cmd.SupporteeID),
		logger.Int("rejected", len(tr.Rejected)),
		logger.Bool("match_needed", tr.State.MatchNeeded),
	)

	publishAll(h.publisher, result.Events, h.log)
	return result, nil
}
