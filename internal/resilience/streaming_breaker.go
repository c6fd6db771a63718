package resilience

import (
	"time"

	"github.com/sony/gobreaker"
)

type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	FailureRatio     float64
	MinRequests      uint32
	OnStateChange    func(name string, from, to gobreaker.State)
	IsSuccessful     func(err error) bool
}

// DefaultIsSuccessful decides whether an error counts as a breaker failure.
// The provider package installs a taxonomy-aware version at init.
var DefaultIsSuccessful func(err error) bool

func DefaultBreakerConfig(name string) BreakerConfig {
	isSuccessful := DefaultIsSuccessful
	if isSuccessful == nil {
		isSuccessful = func(err error) bool { return err == nil }
	}
	return BreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         10 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		FailureRatio:     0.5,
		MinRequests:      10,
		IsSuccessful:     isSuccessful,
	}
}

func breakerSettings(cfg BreakerConfig) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			if counts.ConsecutiveFailures >= cfg.FailureThreshold {
				return true
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: cfg.OnStateChange,
	}
}

// StreamingCircuitBreaker wraps gobreaker's two-step breaker so a request can
// be admitted before a stream starts and judged after it ends.
type StreamingCircuitBreaker struct {
	cb           *gobreaker.TwoStepCircuitBreaker
	isSuccessful func(err error) bool
}

func NewStreamingCircuitBreaker(cfg BreakerConfig) *StreamingCircuitBreaker {
	isSuccessful := cfg.IsSuccessful
	if isSuccessful == nil {
		isSuccessful = func(err error) bool { return err == nil }
	}
	return &StreamingCircuitBreaker{
		cb:           gobreaker.NewTwoStepCircuitBreaker(breakerSettings(cfg)),
		isSuccessful: isSuccessful,
	}
}

// Allow checks if the breaker permits a request. The returned done callback
// must be called exactly once with the outcome of the operation.
//
// Returns gobreaker.ErrOpenState if the circuit is open and
// gobreaker.ErrTooManyRequests when half-open capacity is used up.
func (s *StreamingCircuitBreaker) Allow() (done func(err error), err error) {
	report, err := s.cb.Allow()
	if err != nil {
		return nil, err
	}
	return func(opErr error) {
		report(s.isSuccessful(opErr))
	}, nil
}

func (s *StreamingCircuitBreaker) State() gobreaker.State {
	return s.cb.State()
}

func (s *StreamingCircuitBreaker) Counts() gobreaker.Counts {
	return s.cb.Counts()
}

func (s *StreamingCircuitBreaker) Name() string {
	return s.cb.Name()
}
