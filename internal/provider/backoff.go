package provider

import (
	"time"

	"github.com/sashabogi/agent-router/internal/resilience"
	"github.com/sashabogi/agent-router/internal/translator/ir"
)

const (
	BackoffBase          = time.Second
	RateLimitBackoffBase = 2 * time.Second
	BackoffMax           = 60 * time.Second
)

// Backoff returns how long a caller should wait before retry number attempt
// (0-based). A rate limit hint always wins; otherwise the delay is
// exponential with full jitter, capped at BackoffMax.
func Backoff(attempt int, err error) time.Duration {
	base := BackoffBase
	if e, ok := ir.AsError(err); ok && e.Kind == ir.KindRateLimit {
		if e.RetryAfter > 0 {
			return e.RetryAfter
		}
		base = RateLimitBackoffBase
	}
	return resilience.CalculateBackoff(attempt, base, BackoffMax)
}

func init() {
	// Caller mistakes say nothing about upstream health.
	resilience.DefaultIsSuccessful = func(err error) bool {
		if err == nil {
			return true
		}
		e, ok := ir.AsError(err)
		if !ok {
			return false
		}
		switch e.Kind {
		case ir.KindAuthentication, ir.KindConfiguration, ir.KindTranslation:
			return true
		}
		return false
	}
}
