package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alem-hub/buddy-match-hub/internal/domain/matching"
	"github.com/alem-hub/buddy-match-hub/internal/domain/shared"
	"github.com/alem-hub/buddy-match-hub/internal/domain/support"
	"github.com/alem-hub/buddy-match-hub/pkg/circuitbreaker"
	"github.com/alem-hub/buddy-match-hub/pkg/logger"
	"github.com/alem-hub/buddy-match-hub/pkg/retry"
	"github.com/alem-hub/buddy-match-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELP COMMAND
// Intake: validates and stores the help request, asks the candidate service
// for buddies and seeds the supportee's shortlist from the answer.
// A failing candidate service degrades to "no buddy found yet".
// ══════════════════════════════════════════════════════════════════════════════

// RequestHelpCommand contains the data to request help.
type RequestHelpCommand struct {
	SupporteeID    string
	SubjectID      string
	Topic          string
	HelpType       support.HelpType
	Availability   []support.AvailabilityBlock
	Mood           *int
	MoodSkipped    bool
	DesiredBuddyID string

	// SharedTraits are passed through to seeding.
	SharedTraits []string

	// CorrelationID for tracing.
	CorrelationID string
}

// RequestHelpResult contains the stored request and the seeded shortlist.
type RequestHelpResult struct {
	Request *support.HelpRequest
	State   matching.State

	// Degraded is true when the candidate service failed and an empty
	// shortlist was seeded instead.
	Degraded bool

	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// CandidateService produces buddy suggestions for a help request.
type CandidateService interface {
	Generate(ctx context.Context, req *support.HelpRequest) ([]matching.Suggestion, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RequestHelpHandlerConfig contains configuration for the handler.
type RequestHelpHandlerConfig struct {
	// LowMoodThreshold: an answered mood below it raises a coach alert.
	LowMoodThreshold int

	// ServiceRetries is the number of candidate service attempts.
	ServiceRetries int

	Clock       timeutil.Clock
	IDGenerator IDGenerator
	Logger      *logger.Logger
}

// DefaultRequestHelpHandlerConfig returns default configuration.
func DefaultRequestHelpHandlerConfig() RequestHelpHandlerConfig {
	return RequestHelpHandlerConfig{
		LowMoodThreshold: support.DefaultLowMoodThreshold,
		ServiceRetries:   2,
	}
}

// RequestHelpHandler handles the RequestHelpCommand.
type RequestHelpHandler struct {
	requests   support.Repository
	candidates CandidateService
	seeder     *SeedMatchesHandler
	publisher  shared.EventPublisher

	retrier *retry.Retrier
	breaker *circuitbreaker.CircuitBreaker

	lowMoodThreshold int
	clock            timeutil.Clock
	newID            IDGenerator
	log              *logger.Logger
}

// NewRequestHelpHandler creates a new RequestHelpHandler.
func NewRequestHelpHandler(
	requests support.Repository,
	candidates CandidateService,
	seeder *SeedMatchesHandler,
	publisher shared.EventPublisher,
	config RequestHelpHandlerConfig,
) *RequestHelpHandler {
	def := DefaultRequestHelpHandlerConfig()
	if config.LowMoodThreshold <= 0 {
		config.LowMoodThreshold = def.LowMoodThreshold
	}
	if config.ServiceRetries <= 0 {
		config.ServiceRetries = def.ServiceRetries
	}
	if config.Clock == nil {
		config.Clock = timeutil.SystemClock{}
	}
	if config.IDGenerator == nil {
		config.IDGenerator = matching.NewID
	}
	if config.Logger == nil {
		config.Logger = logger.NewNop()
	}

	log := config.Logger.With(logger.Component("request_help"))

	return &RequestHelpHandler{
		requests:   requests,
		candidates: candidates,
		seeder:     seeder,
		publisher:  publisher,
		retrier: retry.CandidateServiceRetrier(config.ServiceRetries, func(attempt int, err error, delay time.Duration) {
			log.Warn("candidate service failed, retrying",
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.Err(err),
			)
		}),
		breaker: circuitbreaker.CandidateServiceBreaker(isCancellation, func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}),
		lowMoodThreshold: config.LowMoodThreshold,
		clock:            config.Clock,
		newID:            config.IDGenerator,
		log:              log,
	}
}

// Handle executes the request help command.
func (h *RequestHelpHandler) Handle(ctx context.Context, cmd RequestHelpCommand) (*RequestHelpResult, error) {
	now := timeutil.Stamp(h.clock)

	req, err := support.NewHelpRequest(support.NewHelpRequestParams{
		ID:               h.newID(),
		SupporteeID:      cmd.SupporteeID,
		SubjectID:        cmd.SubjectID,
		Topic:            cmd.Topic,
		HelpType:         cmd.HelpType,
		Availability:     cmd.Availability,
		Mood:             cmd.Mood,
		MoodSkipped:      cmd.MoodSkipped,
		DesiredBuddyID:   cmd.DesiredBuddyID,
		LowMoodThreshold: h.lowMoodThreshold,
		CreatedAt:        now,
	})
	if err != nil {
		return nil, err
	}

	if err := h.requests.Save(ctx, req); err != nil {
		return nil, fmt.Errorf("request_help: %w", err)
	}

	result := &RequestHelpResult{Request: req}

	requested := shared.NewHelpRequestedEvent(req.SupporteeID, req.ID, req.SubjectID, string(req.HelpType), now)
	if cmd.CorrelationID != "" {
		requested.BaseEvent = requested.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, requested)
	if req.CoachAlert {
		result.Events = append(result.Events, shared.NewCoachAlertRaisedEvent(req.SupporteeID, req.ID, *req.Mood, now))
	}
	publishAll(h.publisher, result.Events, h.log)

	suggestions, err := h.generate(ctx, req)
	if err != nil {
		if isCancellation(err) {
			// The caller went away: keep the request, skip seeding.
			return nil, err
		}
		h.log.Warn("candidate service unavailable, seeding empty shortlist",
			logger.SupporteeID(req.SupporteeID),
			logger.HelpRequestID(req.ID),
			logger.Err(err),
		)
		result.Degraded = true
		suggestions = nil
	}

	seeded, err := h.seeder.Handle(ctx, SeedMatchesCommand{
		SupporteeID:  req.SupporteeID,
		Suggestions:  suggestions,
		SubjectID:    req.SubjectID,
		SharedTraits: cmd.SharedTraits,
	})
	if err != nil {
		return nil, fmt.Errorf("request_help: %w", err)
	}
	result.State = seeded.State

	h.log.Info("help request accepted",
		logger.SupporteeID(req.SupporteeID),
		logger.HelpRequestID(req.ID),
		logger.String("subject_id", req.SubjectID),
		logger.Int("candidates", len(suggestions)),
		logger.Bool("coach_alert", req.CoachAlert),
	)

	result.Events = append(result.Events, seeded.Events...)
	return result, nil
}

func (h *RequestHelpHandler) generate(ctx context.Context, req *support.HelpRequest) ([]matching.Suggestion, error) {
	if h.candidates == nil {
		return nil, shared.ErrCandidateServiceUnavailable
	}

	var suggestions []matching.Suggestion
	err := h.breaker.Execute(ctx, func(ctx context.Context) error {
		return h.retrier.Do(ctx, func(ctx context.Context) error {
			var err error
			suggestions, err = h.candidates.Generate(ctx, req)
			if shared.IsValidation(err) {
				// Invalid input fails the same way on every attempt.
				return retry.Permanent(err)
			}
			return err
		})
	})
	if circuitbreaker.IsRejected(err) {
		return nil, shared.WrapError("request_help", "Generate", shared.ErrCandidateServiceUnavailable, "candidate service circuit open", err)
	}
	return suggestions, err
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, shared.ErrCandidateServiceCancelled)
}
