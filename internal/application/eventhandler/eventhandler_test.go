package eventhandler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/buddy-match-hub/internal/domain/shared"
	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/messaging"
	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/service"
	"github.com/alem-hub/buddy-match-hub/pkg/timeutil"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	notes []service.CoachNotification
	err   error
}

func (n *recordingNotifier) Notify(_ context.Context, note service.CoachNotification) (service.CoachNotification, error) {
	n.notes = append(n.notes, note)
	return note, n.err
}

func newSyncBus(t *testing.T) *messaging.InMemoryEventBus {
	t.Helper()
	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{AsyncMode: false})
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestOnCoachSignalHandler_ForwardsSignalsAndAlerts(t *testing.T) {
	bus := newSyncBus(t)
	notifier := &recordingNotifier{}
	require.NoError(t, NewOnCoachSignalHandler(notifier, 0, nil).Register(bus))

	require.NoError(t, bus.Publish(shared.NewCoachSignalRaisedEvent("s1", shared.CoachReasonAllRejected, true, t0)))
	require.NoError(t, bus.Publish(shared.NewCoachAlertRaisedEvent("s1", "r1", 1, t0)))
	// not subscribed
	require.NoError(t, bus.Publish(shared.NewMatchesSeededEvent("s1", 2, t0)))

	require.Len(t, notifier.notes, 2)

	signal := notifier.notes[0]
	assert.Equal(t, "s1", signal.SupporteeID)
	assert.Equal(t, service.CoachNotificationSignal, signal.Kind)
	assert.Equal(t, shared.CoachReasonAllRejected, signal.Reason)
	assert.True(t, signal.MatchNeeded)
	assert.Equal(t, t0, signal.CreatedAt)

	alert := notifier.notes[1]
	assert.Equal(t, service.CoachNotificationLowMood, alert.Kind)
	assert.Equal(t, "r1", alert.RequestID)
	require.NotNil(t, alert.Mood)
	assert.Equal(t, 1, *alert.Mood)
}

func TestOnCoachSignalHandler_IgnoresForeignEvents(t *testing.T) {
	notifier := &recordingNotifier{}
	h := NewOnCoachSignalHandler(notifier, time.Second, nil)

	err := h.Handle(shared.NewMatchRejectedEvent("s1", "m1", "buddy1", t0))
	require.NoError(t, err)
	assert.Empty(t, notifier.notes)
}

func TestOnCoachSignalHandler_ReturnsNotifierError(t *testing.T) {
	boom := errors.New("boom")
	h := NewOnCoachSignalHandler(&recordingNotifier{err: boom}, time.Second, nil)

	err := h.Handle(shared.NewCoachSignalRaisedEvent("s1", shared.CoachReasonOptionRejected, false, t0))
	assert.ErrorIs(t, err, boom)
}

func TestOnMatchSelectedHandler_ProposesSession(t *testing.T) {
	bus := newSyncBus(t)
	store := memory.NewStore()
	scheduler := service.NewSessionScheduler(store, nil, "test", timeutil.FixedClock{T: t0}, nil, nil)
	require.NoError(t, NewOnMatchSelectedHandler(scheduler, 0, nil).Register(bus))

	require.NoError(t, bus.Publish(shared.NewMatchSelectedEvent("s1", "m1", "buddy1", "Lena Hoffmann", "math", t0)))

	proposal, err := scheduler.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, proposal)
	assert.Equal(t, "m1", proposal.MatchID)
	assert.Equal(t, "buddy1", proposal.BuddyID)
	assert.Equal(t, "Lena Hoffmann", proposal.BuddyName)
	assert.Equal(t, "math", proposal.SubjectID)
	assert.Equal(t, service.SessionStatusProposed, proposal.Status)
}

func TestOnMatchSelectedHandler_IgnoresForeignEvents(t *testing.T) {
	store := memory.NewStore()
	scheduler := service.NewSessionScheduler(store, nil, "test", nil, nil, nil)
	h := NewOnMatchSelectedHandler(scheduler, time.Second, nil)

	require.NoError(t, h.Handle(shared.NewMatchesSeededEvent("s1", 1, t0)))
	assert.Equal(t, 0, store.Len())
}
