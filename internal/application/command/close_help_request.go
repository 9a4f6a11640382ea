package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/alem-hub/buddy-match-hub/internal/domain/shared"
	"github.com/alem-hub/buddy-match-hub/internal/domain/support"
	"github.com/alem-hub/buddy-match-hub/pkg/logger"
	"github.com/alem-hub/buddy-match-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLOSE HELP REQUEST COMMANDS
// A pending or matched request can be cancelled by the supportee; a matched
// request is completed once the session took place.
// ══════════════════════════════════════════════════════════════════════════════

// CancelHelpRequestCommand cancels an open help request.
type CancelHelpRequestCommand struct {
	SupporteeID string
	RequestID   string
}

// Validate validates the command.
func (c CancelHelpRequestCommand) Validate() error {
	return validateRequestRef(c.SupporteeID, c.RequestID)
}

// CompleteHelpRequestCommand completes a matched help request.
type CompleteHelpRequestCommand struct {
	SupporteeID string
	RequestID   string
}

// Validate validates the command.
func (c CompleteHelpRequestCommand) Validate() error {
	return validateRequestRef(c.SupporteeID, c.RequestID)
}

func validateRequestRef(supporteeID, requestID string) error {
	if strings.TrimSpace(supporteeID) == "" {
		return shared.ErrEmptySupporteeID
	}
	if strings.TrimSpace(requestID) == "" {
		return shared.NewDomainError("support", "Validate", shared.ErrEmptyValue, "help request id is required")
	}
	return nil
}

// CloseHelpRequestResult contains the updated request.
type CloseHelpRequestResult struct {
	Request *support.HelpRequest
	Events  []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// helpRequestCloser loads, transitions and saves a request under the
// supportee lock.
type helpRequestCloser struct {
	requests  support.Repository
	publisher shared.EventPublisher
	locks     *SupporteeLocks
	clock     timeutil.Clock
	log       *logger.Logger
}

func newHelpRequestCloser(
	requests support.Repository,
	publisher shared.EventPublisher,
	locks *SupporteeLocks,
	clock timeutil.Clock,
	log *logger.Logger,
	component string,
) helpRequestCloser {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	if locks == nil {
		locks = NewSupporteeLocks()
	}
	return helpRequestCloser{
		requests:  requests,
		publisher: publisher,
		locks:     locks,
		clock:     clock,
		log:       log.With(logger.Component(component)),
	}
}

func (c helpRequestCloser) close(ctx context.Context, op, supporteeID, requestID string, transition func(*support.HelpRequest) error) (*CloseHelpRequestResult, error) {
	unlock := c.locks.Lock(supporteeID)
	defer unlock()

	log := c.log.With(logger.Operation(op), logger.SupporteeID(supporteeID), logger.HelpRequestID(requestID))

	req, err := c.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	// Requests of other supportees are reported as missing.
	if req.SupporteeID != supporteeID {
		return nil, support.ErrHelpRequestNotFound
	}

	from := req.Status
	if err := transition(req); err != nil {
		log.Debug("help request transition refused", logger.String("status", string(from)))
		return nil, err
	}

	if err := c.requests.Save(ctx, req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := &CloseHelpRequestResult{
		Request: req,
		Events: []shared.Event{
			shared.NewHelpRequestClosedEvent(supporteeID, req.ID, string(req.Status), timeutil.Stamp(c.clock)),
		},
	}

	log.Info("help request closed",
		logger.String("from", string(from)),
		logger.String("to", string(req.Status)),
	)

	publishAll(c.publisher, result.Events, c.log)
	return result, nil
}

// CancelHelpRequestHandler handles CancelHelpRequestCommand.
type CancelHelpRequestHandler struct {
	closer helpRequestCloser
}

// NewCancelHelpRequestHandler creates a new CancelHelpRequestHandler.
func NewCancelHelpRequestHandler(
	requests support.Repository,
	publisher shared.EventPublisher,
	locks *SupporteeLocks,
	clock timeutil.Clock,
	log *logger.Logger,
) *CancelHelpRequestHandler {
	return &CancelHelpRequestHandler{
		closer: newHelpRequestCloser(requests, publisher, locks, clock, log, "cancel_help_request"),
	}
}

// Handle cancels the request. Closed requests return ErrInvalidRequestStatus.
func (h *CancelHelpRequestHandler) Handle(ctx context.Context, cmd CancelHelpRequestCommand) (*CloseHelpRequestResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return h.closer.close(ctx, "cancel_help_request", cmd.SupporteeID, cmd.RequestID, (*support.HelpRequest).Cancel)
}

// CompleteHelpRequestHandler handles CompleteHelpRequestCommand.
type CompleteHelpRequestHandler struct {
	closer helpRequestCloser
}

// NewCompleteHelpRequestHandler creates a new CompleteHelpRequestHandler.
func NewCompleteHelpRequestHandler(
	requests support.Repository,
	publisher shared.EventPublisher,
	locks *SupporteeLocks,
	clock timeutil.Clock,
	log *logger.Logger,
) *CompleteHelpRequestHandler {
	return &CompleteHelpRequestHandler{
		closer: newHelpRequestCloser(requests, publisher, locks, clock, log, "complete_help_request"),
	}
}

// Handle completes the request. Only matched requests can be completed.
func (h *CompleteHelpRequestHandler) Handle(ctx context.Context, cmd CompleteHelpRequestCommand) (*CloseHelpRequestResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return h.closer.close(ctx, "complete_help_request", cmd.SupporteeID, cmd.RequestID, (*support.HelpRequest).Complete)
}
