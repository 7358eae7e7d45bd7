package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

var ErrInvalidPolicy = errors.New("retry policy needs at least one attempt")

type Policy struct {
	MaxAttempts int
	// Delay returns the wait after the given failed attempt (1-based).
	Delay   func(attempt int) time.Duration
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Linear waits step × attempt between attempts.
func Linear(step time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return step * time.Duration(attempt)
	}
}

// Retryable decides whether a failed attempt is worth another try.
type Retryable func(err error) bool

type Operation[T any] func(ctx context.Context) (T, error)

// Do runs op until it succeeds, the error is not retryable, attempts run
// out, or ctx ends. Non-retryable errors are returned unwrapped so callers
// can still classify them.
func Do[T any](ctx context.Context, clock clockwork.Clock, p Policy, retryable Retryable, op Operation[T]) (T, error) {
	var zero T
	if p.MaxAttempts < 1 {
		return zero, ErrInvalidPolicy
	}

	for attempt := 1; ; attempt++ {
		val, err := op(ctx)
		if err == nil {
			return val, nil
		}

		if retryable == nil || !retryable(err) {
			return zero, err
		}

		if attempt >= p.MaxAttempts {
			return zero, fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, err)
		}

		var delay time.Duration
		if p.Delay != nil {
			delay = p.Delay(attempt)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}

		select {
		case <-clock.After(delay):
		case <-ctx.Done():
			return zero, fmt.Errorf("context cancelled during retry: %w", errors.Join(ctx.Err(), err))
		}
	}
}
