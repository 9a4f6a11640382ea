// Package retry runs an operation again with exponential backoff and jitter.
// The candidate service call and key-value backend writes go through it.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MARKERS
// ══════════════════════════════════════════════════════════════════════════════

type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Retryable marks err as worth another attempt under the default policy.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// IsRetryable reports whether err was marked with Retryable.
func IsRetryable(err error) bool {
	var target *retryableError
	return errors.As(err, &target)
}

// Permanent marks err as final: Do returns it unwrapped at once, whatever RetryIf says.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var target *permanentError
	return errors.As(err, &target)
}

// unmark strips the outermost marker so callers see the original error.
func unmark(err error) error {
	var p *permanentError
	if errors.As(err, &p) {
		return p.err
	}
	var r *retryableError
	if errors.As(err, &r) {
		return r.err
	}
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// RETRIER
// ══════════════════════════════════════════════════════════════════════════════

// Config is the retry policy. The delay doubles after every failed attempt.
type Config struct {
	// MaxAttempts counts the first call too.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// Jitter spreads each delay by up to ±Jitter of its value (0..1).
	Jitter float64

	// RetryIf decides whether err deserves another attempt.
	// Nil retries only errors marked with Retryable.
	RetryIf func(err error) bool

	// OnRetry runs before the wait that precedes the next attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig returns three attempts starting at 100ms.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Jitter:       0.1,
	}
}

// Option configures a Retrier.
type Option func(*Config)

// WithMaxAttempts sets the attempt budget; n < 1 is ignored.
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}

// WithInitialDelay sets the first backoff delay.
func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.InitialDelay = d
		}
	}
}

// WithMaxDelay caps the backoff delay.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.MaxDelay = d
		}
	}
}

// WithJitter sets the jitter fraction; values outside 0..1 are ignored.
func WithJitter(j float64) Option {
	return func(c *Config) {
		if j >= 0 && j <= 1 {
			c.Jitter = j
		}
	}
}

// WithRetryIf replaces the retry predicate.
func WithRetryIf(fn func(error) bool) Option {
	return func(c *Config) { c.RetryIf = fn }
}

// WithOnRetry sets the retry hook.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(c *Config) { c.OnRetry = fn }
}

// Retrier runs operations under one policy. Safe for concurrent use.
type Retrier struct {
	config Config
}

// New creates a Retrier from DefaultConfig and opts.
func New(opts ...Option) *Retrier {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Retrier{config: cfg}
}

// Do calls op until it succeeds, returns a non-retryable error or the attempt
// budget runs out. Markers are stripped from the returned error. Context
// cancellation during a wait returns the last operation error.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return unmark(lastErr)
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if IsPermanent(err) || !r.shouldRetry(err) || attempt == r.config.MaxAttempts {
			return unmark(err)
		}

		delay := r.delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, unmark(err), delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return unmark(lastErr)
		case <-timer.C:
		}
	}

	return unmark(lastErr)
}

func (r *Retrier) shouldRetry(err error) bool {
	if r.config.RetryIf != nil {
		return r.config.RetryIf(err)
	}
	return IsRetryable(err)
}

// delay returns InitialDelay doubled attempt-1 times, capped and jittered.
func (r *Retrier) delay(attempt int) time.Duration {
	d := r.config.InitialDelay
	for i := 1; i < attempt && d < r.config.MaxDelay; i++ {
		d *= 2
	}
	if d > r.config.MaxDelay {
		d = r.config.MaxDelay
	}

	if r.config.Jitter > 0 {
		spread := float64(d) * r.config.Jitter * (rand.Float64()*2 - 1)
		d += time.Duration(spread)
	}
	if d < 0 {
		d = 0
	}
	return d
}

// ══════════════════════════════════════════════════════════════════════════════
// POLICIES
// ══════════════════════════════════════════════════════════════════════════════

// CandidateServiceRetrier retries candidate generation. Everything except
// cancellation and Permanent errors gets another attempt.
func CandidateServiceRetrier(attempts int, onRetry func(attempt int, err error, delay time.Duration)) *Retrier {
	return New(
		WithMaxAttempts(attempts),
		WithInitialDelay(200*time.Millisecond),
		WithMaxDelay(2*time.Second),
		WithJitter(0.2),
		WithRetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
		WithOnRetry(onRetry),
	)
}

// StoreRetrier retries key-value backend writes marked with Retryable.
func StoreRetrier() *Retrier {
	return New(
		WithMaxAttempts(3),
		WithInitialDelay(50*time.Millisecond),
		WithMaxDelay(time.Second),
		WithJitter(0.05),
	)
}
