package eventhandler

import (
	"context"
	"time"

	"github.com/alem-hub/buddy-match-hub/internal/domain/shared"
	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/service"
	"github.com/alem-hub/buddy-match-hub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON MATCH SELECTED HANDLER
// После принятия варианта предлагает первую сессию с напарником.
// ═══════════════════════════════════════════════════════════════════════════

// SessionScheduler - планировщик сессий.
type SessionScheduler interface {
	Propose(ctx context.Context, req service.SessionRequest) (*service.SessionProposal, error)
}

// OnMatchSelectedHandler обрабатывает match.selected.
type OnMatchSelectedHandler struct {
	scheduler SessionScheduler
	timeout   time.Duration
	log       *logger.Logger
}

// NewOnMatchSelectedHandler создаёт обработчик.
func NewOnMatchSelectedHandler(scheduler SessionScheduler, timeout time.Duration, log *logger.Logger) *OnMatchSelectedHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &OnMatchSelectedHandler{
		scheduler: scheduler,
		timeout:   timeout,
		log:       log.With(logger.String("handler", "on_match_selected")),
	}
}

// Register подписывает обработчик на шину.
func (h *OnMatchSelectedHandler) Register(bus shared.EventSubscriber) error {
	return bus.Subscribe(shared.EventMatchSelected, h.Handle)
}

// Handle реализует shared.EventHandler.
func (h *OnMatchSelectedHandler) Handle(event shared.Event) error {
	selected, ok := event.(shared.MatchSelectedEvent)
	if !ok {
		h.log.Warn("received non-MatchSelectedEvent", logger.String("event_type", string(event.EventType())))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	_, err := h.scheduler.Propose(ctx, service.SessionRequest{
		SupporteeID: selected.AggregateID(),
		MatchID:     selected.MatchID,
		BuddyID:     selected.BuddyID,
		BuddyName:   selected.BuddyName,
		SubjectID:   selected.SubjectID,
	})
	if err != nil {
		h.log.Error("failed to propose session",
			logger.SupporteeID(selected.AggregateID()),
			logger.MatchID(selected.MatchID),
			logger.Err(err),
		)
		return err
	}
	return nil
}
