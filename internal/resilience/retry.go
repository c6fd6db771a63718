// Package resilience provides retry execution and circuit breaking for
// callers of the translation layer. The layer itself never retries.
package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

const maxBackoffShift = 30

type RetryConfig struct {
	MaxRetries int

	// BaseDelay and MaxDelay drive failsafe's exponential backoff when
	// DelayFor is nil.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// ShouldRetry decides whether a failed attempt is retried.
	ShouldRetry func(err error) bool

	// DelayFor, when set, replaces the policy backoff. attempt is 0-based and
	// err is the failure being retried.
	DelayFor func(attempt int, err error) time.Duration
}

func NewRetryPolicy[R any](cfg RetryConfig) retrypolicy.RetryPolicy[R] {
	builder := retrypolicy.NewBuilder[R]().
		WithMaxRetries(cfg.MaxRetries).
		ReturnLastFailure()
	if cfg.ShouldRetry != nil {
		shouldRetry := cfg.ShouldRetry
		builder = builder.HandleIf(func(_ R, err error) bool {
			return err != nil && shouldRetry(err)
		})
	}
	if cfg.DelayFor == nil && cfg.BaseDelay > 0 {
		builder = builder.WithBackoff(cfg.BaseDelay, cfg.MaxDelay)
	}
	return builder.Build()
}

// Executor runs a call under a retry policy. The delay between attempts
// comes from DelayFor so it can depend on the failure, e.g. a retry-after
// hint carried by a rate limit error.
type Executor[R any] struct {
	executor failsafe.Executor[R]
	delayFor func(attempt int, err error) time.Duration
}

func NewExecutor[R any](cfg RetryConfig) *Executor[R] {
	return &Executor[R]{
		executor: failsafe.With(NewRetryPolicy[R](cfg)),
		delayFor: cfg.DelayFor,
	}
}

// Execute runs fn under the retry policy, waiting DelayFor between attempts
// when configured.
func (e *Executor[R]) Execute(ctx context.Context, fn func() (R, error)) (R, error) {
	run := fn
	if e.delayFor != nil {
		attempt := 0
		var lastErr error
		run = func() (R, error) {
			if attempt > 0 {
				if err := WaitWithContext(ctx, e.delayFor(attempt-1, lastErr)); err != nil {
					var zero R
					return zero, err
				}
			}
			attempt++
			r, err := fn()
			lastErr = err
			return r, err
		}
	}
	return e.executor.WithContext(ctx).Get(run)
}

// CalculateBackoff computes exponential backoff with full jitter:
// random(0, min(maxDelay, baseDelay * 2^attempt)).
func CalculateBackoff(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	delay := CalculateBackoffNoJitter(attempt, baseDelay, maxDelay)
	if delay <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(delay)))
}

// CalculateBackoffNoJitter computes exponential backoff without jitter.
func CalculateBackoffNoJitter(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxBackoffShift {
		attempt = maxBackoffShift
	}
	delay := baseDelay * time.Duration(1<<attempt)
	if delay > maxDelay || delay < 0 {
		delay = maxDelay
	}
	return delay
}

func WaitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
