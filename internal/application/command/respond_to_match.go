package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/alem-hub/buddy-match-hub/internal/domain/matching"
	"github.com/alem-hub/buddy-match-hub/internal/domain/shared"
	"github.com/alem-hub/buddy-match-hub/internal/domain/support"
	"github.com/alem-hub/buddy-match-hub/pkg/logger"
	"github.com/alem-hub/buddy-match-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPOND TO MATCH COMMAND
// Applies the supportee's accept (+1) or reject (-1) to one option.
// Accepting withdraws the other proposed options; every reject signals the coach.
// ══════════════════════════════════════════════════════════════════════════════

// RespondToMatchCommand contains the supportee's answer.
type RespondToMatchCommand struct {
	SupporteeID string
	MatchID     string
	Preference  matching.Preference
}

// Validate validates the command.
func (c RespondToMatchCommand) Validate() error {
	if strings.TrimSpace(c.SupporteeID) == "" {
		return shared.ErrEmptySupporteeID
	}
	if !c.Preference.IsResponse() {
		return matching.ErrInvalidPreference
	}
	return nil
}

// RespondToMatchResult contains the persisted state after the transition.
type RespondToMatchResult struct {
	State matching.State

	// Selected is set when the answer was an accept.
	Selected *matching.Option

	// MatchedRequestID is the help request marked matched by an accept, if any.
	MatchedRequestID string

	Events []shared.Event
}

// RespondToMatchHandler handles RespondToMatchCommand.
type RespondToMatchHandler struct {
	repo      matching.StateRepository
	requests  support.Repository
	publisher shared.EventPublisher
	clock     timeutil.Clock
	locks     *SupporteeLocks
	log       *logger.Logger
}

// NewRespondToMatchHandler creates a new RespondToMatchHandler.
// requests may be nil; then accepts do not touch help requests.
func NewRespondToMatchHandler(
	repo matching.StateRepository,
	requests support.Repository,
	publisher shared.EventPublisher,
	locks *SupporteeLocks,
	clock timeutil.Clock,
	log *logger.Logger,
) *RespondToMatchHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	if locks == nil {
		locks = NewSupporteeLocks()
	}
	return &RespondToMatchHandler{
		repo:      repo,
		requests:  requests,
		publisher: publisher,
		clock:     clock,
		locks:     locks,
		log:       log.With(logger.Component("respond_to_match")),
	}
}

// Handle applies the answer and persists the whole state. An unknown match id
// or a preference other than ±1 leaves the stored state untouched.
func (h *RespondToMatchHandler) Handle(ctx context.Context, cmd RespondToMatchCommand) (*RespondToMatchResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	unlock := h.locks.Lock(cmd.SupporteeID)
	defer unlock()

	state, err := h.repo.Load(ctx, cmd.SupporteeID)
	if err != nil {
		return nil, fmt.Errorf("respond_to_match: %w", err)
	}

	now := timeutil.Stamp(h.clock)
	tr, err := matching.ApplyPreference(state, cmd.MatchID, cmd.Preference, now)
	if err != nil {
		return nil, err
	}

	if err := h.repo.Save(ctx, cmd.SupporteeID, tr.State); err != nil {
		return nil, fmt.Errorf("respond_to_match: %w", err)
	}

	result := &RespondToMatchResult{
		State:    tr.State,
		Selected: tr.Selected,
		Events:   transitionEvents(cmd.SupporteeID, tr, now),
	}

	if tr.Selected != nil {
		result.MatchedRequestID = h.markRequestMatched(ctx, cmd.SupporteeID, *tr.Selected)
	}

	h.log.Info("match preference applied",
		logger.SupporteeID(cmd.SupporteeID),
		logger.MatchID(cmd.MatchID),
		logger.Int("preference", int(cmd.Preference)),
		logger.Bool("match_needed", tr.State.MatchNeeded),
	)

	publishAll(h.publisher, result.Events, h.log)
	return result, nil
}

// markRequestMatched records the buddy on the newest open request for the
// option's subject. A later accept re-points the same request to the new buddy.
// Failures are logged: the match itself is already stored.
func (h *RespondToMatchHandler) markRequestMatched(ctx context.Context, supporteeID string, selected matching.Option) string {
	if h.requests == nil {
		return ""
	}

	requests, err := h.requests.ListBySupportee(ctx, supporteeID)
	if err != nil {
		h.log.Warn("failed to list help requests", logger.SupporteeID(supporteeID), logger.Err(err))
		return ""
	}

	for _, req := range requests {
		if req.Status.IsClosed() || req.SubjectID != selected.SubjectID {
			continue
		}
		if err := req.MarkMatched(selected.BuddyID); err != nil {
			h.log.Warn("help request cannot be marked matched",
				logger.SupporteeID(supporteeID),
				logger.HelpRequestID(req.ID),
				logger.String("status", string(req.Status)),
				logger.Err(err),
			)
			return ""
		}
		if err := h.requests.Save(ctx, req); err != nil {
			h.log.Warn("failed to mark help request matched",
				logger.SupporteeID(supporteeID),
				logger.HelpRequestID(req.ID),
				logger.Err(err),
			)
			return ""
		}
		return req.ID
	}
	return ""
}
