package messaging

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/buddy-match-hub/internal/domain/shared"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestInMemoryEventBus_SyncDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})
	defer bus.Close()

	var got []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventMatchSelected, func(e shared.Event) error {
		got = append(got, e.EventType())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		got = append(got, "all:"+e.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewMatchSelectedEvent("s1", "m1", "buddy1", "Lena Hoffmann", "math", t0)))
	require.NoError(t, bus.Publish(shared.NewMatchRejectedEvent("s1", "m2", "buddy4", t0)))

	assert.Equal(t, []shared.EventType{
		shared.EventMatchSelected,
		"all:" + shared.EventMatchSelected,
		"all:" + shared.EventMatchRejected,
	}, got)
	assert.Equal(t, int64(1), bus.Metrics().Published(shared.EventMatchSelected))
}

func TestInMemoryEventBus_HandlerFailuresAreContained(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})
	defer bus.Close()

	called := false
	require.NoError(t, bus.Subscribe(shared.EventCoachSignalRaised, func(shared.Event) error {
		return errors.New("boom")
	}))
	require.NoError(t, bus.Subscribe(shared.EventCoachSignalRaised, func(shared.Event) error {
		panic("handler bug")
	}))
	require.NoError(t, bus.Subscribe(shared.EventCoachSignalRaised, func(shared.Event) error {
		called = true
		return nil
	}))

	err := bus.Publish(shared.NewCoachSignalRaisedEvent("s1", shared.CoachReasonOptionRejected, false, t0))
	require.NoError(t, err)
	assert.True(t, called)

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(3), snap.HandlerExecutions)
	assert.Equal(t, int64(2), snap.HandlerFailures)
}

func TestInMemoryEventBus_AsyncCloseDrains(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 2})

	var count atomic.Int32
	var wg sync.WaitGroup
	wg.Add(5)
	require.NoError(t, bus.Subscribe(shared.EventMatchesSeeded, func(shared.Event) error {
		defer wg.Done()
		time.Sleep(5 * time.Millisecond)
		count.Add(1)
		return nil
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(shared.NewMatchesSeededEvent("s1", 2, t0)))
	}
	require.NoError(t, bus.Close())

	assert.Equal(t, int32(5), count.Load())
	assert.ErrorIs(t, bus.Publish(shared.NewMatchesSeededEvent("s1", 2, t0)), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventMatchesSeeded, func(shared.Event) error { return nil }), ErrEventBusClosed)
}

func TestInMemoryEventBus_RejectsNil(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())
	defer bus.Close()

	assert.ErrorIs(t, bus.Subscribe(shared.EventMatchSelected, nil), ErrNilHandler)
	assert.ErrorIs(t, bus.Publish(nil), ErrNilEvent)
}
