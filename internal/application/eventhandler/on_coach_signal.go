// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"context"
	"time"

	"github.com/alem-hub/buddy-match-hub/internal/domain/shared"
	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/service"
	"github.com/alem-hub/buddy-match-hub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON COACH SIGNAL HANDLER
// Пересылает тренеру сигналы подбора и тревоги о низком настроении.
// ═══════════════════════════════════════════════════════════════════════════

// CoachNotifier - канал уведомлений тренера.
type CoachNotifier interface {
	Notify(ctx context.Context, note service.CoachNotification) (service.CoachNotification, error)
}

// OnCoachSignalHandler обрабатывает coach.signal_raised и coach.alert_raised.
type OnCoachSignalHandler struct {
	notifier CoachNotifier
	timeout  time.Duration
	log      *logger.Logger
}

// NewOnCoachSignalHandler создаёт обработчик.
func NewOnCoachSignalHandler(notifier CoachNotifier, timeout time.Duration, log *logger.Logger) *OnCoachSignalHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &OnCoachSignalHandler{
		notifier: notifier,
		timeout:  timeout,
		log:      log.With(logger.String("handler", "on_coach_signal")),
	}
}

// Register подписывает обработчик на шину.
func (h *OnCoachSignalHandler) Register(bus shared.EventSubscriber) error {
	if err := bus.Subscribe(shared.EventCoachSignalRaised, h.Handle); err != nil {
		return err
	}
	return bus.Subscribe(shared.EventCoachAlertRaised, h.Handle)
}

// Handle реализует shared.EventHandler.
func (h *OnCoachSignalHandler) Handle(event shared.Event) error {
	note, ok := h.toNotification(event)
	if !ok {
		h.log.Warn("unexpected event", logger.String("event_type", string(event.EventType())))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if _, err := h.notifier.Notify(ctx, note); err != nil {
		h.log.Error("failed to notify coach",
			logger.SupporteeID(note.SupporteeID),
			logger.Err(err),
		)
		return err
	}
	return nil
}

func (h *OnCoachSignalHandler) toNotification(event shared.Event) (service.CoachNotification, bool) {
	switch e := event.(type) {
	case shared.CoachSignalRaisedEvent:
		return service.CoachNotification{
			SupporteeID: e.AggregateID(),
			Kind:        service.CoachNotificationSignal,
			Reason:      e.Reason,
			MatchNeeded: e.MatchNeeded,
			CreatedAt:   e.OccurredAt(),
		}, true
	case shared.CoachAlertRaisedEvent:
		mood := e.Mood
		return service.CoachNotification{
			SupporteeID: e.AggregateID(),
			Kind:        service.CoachNotificationLowMood,
			RequestID:   e.RequestID,
			Mood:        &mood,
			CreatedAt:   e.OccurredAt(),
		}, true
	default:
		return service.CoachNotification{}, false
	}
}
