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
// SEED MATCHES COMMAND
// Turns candidate suggestions into the supportee's persisted shortlist.
// An empty suggestion list persists {options: [], matchNeeded: true}.
// ══════════════════════════════════════════════════════════════════════════════

// SeedMatchesCommand contains the data to seed a shortlist.
type SeedMatchesCommand struct {
	// SupporteeID owns the shortlist.
	SupporteeID string

	// Suggestions from the candidate service (only the first 3 are used).
	Suggestions []matching.Suggestion

	// SubjectID of the help request.
	SubjectID string

	// SubjectLabel is used when the catalog does not know SubjectID.
	SubjectLabel string

	// SharedTraits are prepended to every option's reasons.
	SharedTraits []string

	// ClassLevels overrides the handler's class level pool.
	ClassLevels []string
}

// Validate validates the command.
func (c SeedMatchesCommand) Validate() error {
	if strings.TrimSpace(c.SupporteeID) == "" {
		return shared.ErrEmptySupporteeID
	}
	return nil
}

// SeedMatchesResult contains the persisted state.
type SeedMatchesResult struct {
	State  matching.State
	Events []shared.Event
}

// SeedMatchesHandler handles SeedMatchesCommand.
type SeedMatchesHandler struct {
	repo        matching.StateRepository
	publisher   shared.EventPublisher
	clock       timeutil.Clock
	newID       IDGenerator
	locks       *SupporteeLocks
	classLevels []string
	log         *logger.Logger
}

// SeedMatchesHandlerConfig contains optional handler settings.
type SeedMatchesHandlerConfig struct {
	// ClassLevels is the default pool; empty means the catalog default.
	ClassLevels []string
	Clock       timeutil.Clock
	IDGenerator IDGenerator
	Logger      *logger.Logger
}

// NewSeedMatchesHandler creates a new SeedMatchesHandler.
func NewSeedMatchesHandler(
	repo matching.StateRepository,
	publisher shared.EventPublisher,
	locks *SupporteeLocks,
	config SeedMatchesHandlerConfig,
) *SeedMatchesHandler {
	if config.Clock == nil {
		config.Clock = timeutil.SystemClock{}
	}
	if config.IDGenerator == nil {
		config.IDGenerator = matching.NewID
	}
	if config.Logger == nil {
		config.Logger = logger.NewNop()
	}
	if locks == nil {
		locks = NewSupporteeLocks()
	}

	return &SeedMatchesHandler{
		repo:        repo,
		publisher:   publisher,
		clock:       config.Clock,
		newID:       config.IDGenerator,
		locks:       locks,
		classLevels: append([]string(nil), config.ClassLevels...),
		log:         config.Logger.With(logger.Component("seed_matches")),
	}
}

// Handle seeds and persists the shortlist, replacing any previous state.
func (h *SeedMatchesHandler) Handle(ctx context.Context, cmd SeedMatchesCommand) (*SeedMatchesResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	unlock := h.locks.Lock(cmd.SupporteeID)
	defer unlock()

	classLevels := cmd.ClassLevels
	if len(classLevels) == 0 {
		classLevels = h.classLevels
	}

	now := timeutil.Stamp(h.clock)
	state := matching.Seed(cmd.Suggestions, matching.SeedContext{
		SubjectID:    cmd.SubjectID,
		SubjectLabel: cmd.SubjectLabel,
		SharedTraits: cmd.SharedTraits,
		ClassLevels:  classLevels,
	}, now, h.newID)

	if err := h.repo.Save(ctx, cmd.SupporteeID, state); err != nil {
		return nil, fmt.Errorf("seed_matches: %w", err)
	}

	result := &SeedMatchesResult{
		State:  state,
		Events: []shared.Event{shared.NewMatchesSeededEvent(cmd.SupporteeID, len(state.Options), now)},
	}
	if state.MatchNeeded {
		result.Events = append(result.Events, shared.NewMatchRoundNeededEvent(cmd.SupporteeID, shared.CoachReasonNoCandidates, now))
	}

	h.log.Info("matches seeded",
		logger.SupporteeID(cmd.SupporteeID),
		logger.Int("options", len(state.Options)),
		logger.Bool("match_needed", state.MatchNeeded),
	)

	publishAll(h.publisher, result.Events, h.log)
	return result, nil
}
