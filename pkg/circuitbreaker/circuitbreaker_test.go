package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var transitions []State
	cb := New("test",
		WithFailureThreshold(2),
		WithCoolDown(time.Minute),
		WithClock(func() time.Time { return now }),
		WithOnStateChange(func(_ string, _, to State) { transitions = append(transitions, to) }),
	)
	ctx := context.Background()
	fail := func(context.Context) error { return errBoom }
	ok := func(context.Context) error { return nil }

	assert.ErrorIs(t, cb.Execute(ctx, fail), errBoom)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, fail), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	now = now.Add(time.Minute)
	assert.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateClosed, cb.State())

	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cb := New("test",
		WithFailureThreshold(1),
		WithCoolDown(time.Second),
		WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	_ = cb.Execute(ctx, func(context.Context) error { return errBoom })
	now = now.Add(time.Second)
	_ = cb.Execute(ctx, func(context.Context) error { return errBoom })

	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, 2, cb.Counts().TotalFailures)
}

func TestCircuitBreaker_OpenRejectsWithoutCalling(t *testing.T) {
	cb := New("test", WithFailureThreshold(1))
	ctx := context.Background()
	_ = cb.Execute(ctx, func(context.Context) error { return errBoom })

	called := false
	err := cb.Execute(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.True(t, IsRejected(err))
	assert.False(t, called)
	assert.False(t, IsRejected(errBoom))
}

func TestCandidateServiceBreaker_IgnoresCancellation(t *testing.T) {
	cb := CandidateServiceBreaker(func(err error) bool { return errors.Is(err, context.Canceled) }, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = cb.Execute(ctx, func(context.Context) error { return context.Canceled })
	}
	assert.Equal(t, StateClosed, cb.State())

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, func(context.Context) error { return errBoom })
	}
	assert.Equal(t, StateOpen, cb.State())
}
