package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

var errUserMistake = errors.New("bad request")

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var stateChanges []gobreaker.State
	cfg := DefaultBreakerConfig("test")
	cfg.MinRequests = 3
	cfg.FailureThreshold = 3
	cfg.OnStateChange = func(_ string, _, to gobreaker.State) {
		stateChanges = append(stateChanges, to)
	}

	breaker := NewStreamingCircuitBreaker(cfg)
	for i := 0; i < 3; i++ {
		done, err := breaker.Allow()
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		done(errors.New("fail"))
	}

	if breaker.State() != gobreaker.StateOpen {
		t.Errorf("expected StateOpen, got %v", breaker.State())
	}
	if len(stateChanges) == 0 || stateChanges[len(stateChanges)-1] != gobreaker.StateOpen {
		t.Errorf("expected state change to Open, got %v", stateChanges)
	}
}

func TestBreakerIgnoresErrorsMarkedSuccessful(t *testing.T) {
	cfg := DefaultBreakerConfig("user-errors")
	cfg.MinRequests = 3
	cfg.FailureThreshold = 3
	cfg.IsSuccessful = func(err error) bool { return err == nil || errors.Is(err, errUserMistake) }

	breaker := NewStreamingCircuitBreaker(cfg)
	for i := 0; i < 10; i++ {
		done, err := breaker.Allow()
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		done(errUserMistake)
	}
	if breaker.State() != gobreaker.StateClosed {
		t.Errorf("expected StateClosed, got %v", breaker.State())
	}
}

func TestStreamingCircuitBreakerReportsOutcome(t *testing.T) {
	cfg := DefaultBreakerConfig("stream")
	cfg.MinRequests = 2
	cfg.FailureThreshold = 2
	breaker := NewStreamingCircuitBreaker(cfg)

	for i := 0; i < 2; i++ {
		done, err := breaker.Allow()
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		done(errors.New("stream broke"))
	}
	if breaker.State() != gobreaker.StateOpen {
		t.Fatalf("expected StateOpen, got %v", breaker.State())
	}
	if _, err := breaker.Allow(); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
}

func TestExecutorRetriesOnlyWhatShouldRetryAccepts(t *testing.T) {
	transient := errors.New("transient")
	cfg := RetryConfig{
		MaxRetries:  3,
		ShouldRetry: func(err error) bool { return errors.Is(err, transient) },
		DelayFor:    func(int, error) time.Duration { return time.Millisecond },
	}

	calls := 0
	exec := NewExecutor[string](cfg)
	got, err := exec.Execute(context.Background(), func() (string, error) {
		calls++
		if calls < 3 {
			return "", transient
		}
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("Execute = %q, %v", got, err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}

	calls = 0
	_, err = exec.Execute(context.Background(), func() (string, error) {
		calls++
		return "", errUserMistake
	})
	if !errors.Is(err, errUserMistake) {
		t.Errorf("expected the last error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("non-retryable error should not be retried, got %d calls", calls)
	}
}

func TestExecutorPassesAttemptToDelayFor(t *testing.T) {
	var attempts []int
	cfg := RetryConfig{
		MaxRetries:  2,
		ShouldRetry: func(err error) bool { return err != nil },
		DelayFor: func(attempt int, _ error) time.Duration {
			attempts = append(attempts, attempt)
			return 0
		},
	}
	exec := NewExecutor[int](cfg)
	_, err := exec.Execute(context.Background(), func() (int, error) { return 0, errors.New("always") })
	if err == nil {
		t.Fatal("expected error after retries")
	}
	if len(attempts) != 2 || attempts[0] != 0 || attempts[1] != 1 {
		t.Errorf("DelayFor attempts = %v, want [0 1]", attempts)
	}
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		name      string
		attempt   int
		baseDelay time.Duration
		maxDelay  time.Duration
		wantMax   time.Duration
	}{
		{"first attempt", 0, 100 * time.Millisecond, 10 * time.Second, 100 * time.Millisecond},
		{"second attempt doubles max", 1, 100 * time.Millisecond, 10 * time.Second, 200 * time.Millisecond},
		{"capped at max delay", 10, 100 * time.Millisecond, time.Second, time.Second},
		{"huge attempt stays capped", 500, time.Second, 60 * time.Second, 60 * time.Second},
		{"zero base delay", 0, 0, 10 * time.Second, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 100; i++ {
				got := CalculateBackoff(tt.attempt, tt.baseDelay, tt.maxDelay)
				if got < 0 || got > tt.wantMax {
					t.Errorf("CalculateBackoff() = %v, want between 0 and %v", got, tt.wantMax)
				}
			}
		})
	}
}

func TestCalculateBackoffNoJitter(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{10, time.Second},
		{-1, 100 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := CalculateBackoffNoJitter(tt.attempt, 100*time.Millisecond, time.Second); got != tt.want {
			t.Errorf("CalculateBackoffNoJitter(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestWaitWithContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := WaitWithContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDefaultBreakerConfigFallback(t *testing.T) {
	original := DefaultIsSuccessful
	DefaultIsSuccessful = nil
	defer func() { DefaultIsSuccessful = original }()

	cfg := DefaultBreakerConfig("fallback-test")
	if !cfg.IsSuccessful(nil) {
		t.Error("fallback should return true for nil error")
	}
	if cfg.IsSuccessful(errors.New("fail")) {
		t.Error("fallback should return false for non-nil error")
	}
}
