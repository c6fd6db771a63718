package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sashabogi/agent-router/internal/resilience"
	"github.com/sashabogi/agent-router/internal/translator/ir"
)

type abortError struct{ name string }

func (e abortError) Error() string { return "the operation was cancelled" }
func (e abortError) Name() string  { return e.name }

type hintedError struct{ d time.Duration }

func (e hintedError) Error() string             { return "slow down" }
func (e hintedError) StatusCode() int           { return http.StatusTooManyRequests }
func (e hintedError) RetryAfter() time.Duration { return e.d }

func TestTranslateStatusOnly(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		kind      ir.ErrorKind
		retryable bool
	}{
		{"bad request", 400, ir.KindConfiguration, false},
		{"unauthorized", 401, ir.KindAuthentication, false},
		{"forbidden", 403, ir.KindAuthentication, false},
		{"request timeout", 408, ir.KindTimeout, true},
		{"too many requests", 429, ir.KindRateLimit, true},
		{"internal", 500, ir.KindProvider, true},
		{"overloaded", 529, ir.KindProvider, true},
		{"not found falls through", 404, ir.KindProvider, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := TranslateResponse(tt.status, nil, nil, "claude")
			require.NotNil(t, e)
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.retryable, e.Retryable())
			assert.Equal(t, "claude", e.Provider)
		})
	}
}

func TestTranslateProviderPayloads(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		status   int
		body     string
		kind     ir.ErrorKind
		code     int
	}{
		{"claude rate limit", "claude", 429, `{"type":"error","error":{"type":"rate_limit_error","message":"slow"}}`, ir.KindRateLimit, 0},
		{"claude overloaded", "anthropic", 0, `{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`, ir.KindProvider, StatusOverloaded},
		{"claude invalid request", "claude", 400, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`, ir.KindConfiguration, 0},
		{"openai bad key", "openai", 401, `{"error":{"code":"invalid_api_key","message":"nope"}}`, ir.KindAuthentication, 0},
		{"openai quota", "openai", 429, `{"error":{"code":"insufficient_quota","type":"insufficient_quota","message":"pay up"}}`, ir.KindConfiguration, 0},
		{"openai server error without status", "openai", 0, `{"error":{"type":"server_error","message":"oops"}}`, ir.KindProvider, 500},
		{"gemini exhausted", "gemini", 429, `{"error":{"code":429,"status":"RESOURCE_EXHAUSTED","message":"quota"}}`, ir.KindRateLimit, 0},
		{"gemini unavailable", "google", 503, `[{"error":{"code":503,"status":"UNAVAILABLE","message":"later"}}]`, ir.KindProvider, 503},
		{"gemini permission", "gemini", 403, `{"error":{"code":403,"status":"PERMISSION_DENIED","message":"no"}}`, ir.KindAuthentication, 0},
		{"unknown provider generic", "mystery", 0, `{"error":{"type":"rate_limit_exceeded"}}`, ir.KindRateLimit, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := TranslateResponse(tt.status, nil, []byte(tt.body), tt.provider)
			require.NotNil(t, e)
			assert.Equal(t, tt.kind, e.Kind)
			if tt.code != 0 {
				assert.Equal(t, tt.code, e.StatusCode)
			}
		})
	}
}

func TestTranslateUsesBodyMessage(t *testing.T) {
	e := TranslateResponse(429, nil, []byte(`{"error":{"type":"rate_limit_error","message":"slow down please"}}`), "claude")
	assert.Equal(t, "slow down please", e.Message)
	assert.Contains(t, e.Error(), "slow down please")
}

func TestTranslateTimeouts(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"abort error", abortError{name: "AbortError"}},
		{"timeout error", abortError{name: "TimeoutError"}},
		{"context canceled", context.Canceled},
		{"deadline exceeded", fmt.Errorf("dial: %w", context.DeadlineExceeded)},
		{"wording", errors.New("read tcp: i/o timeout")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Translate(tt.err, "openai")
			assert.Equal(t, ir.KindTimeout, e.Kind)
			assert.True(t, e.Retryable())
		})
	}
}

func TestTranslateTransportTimeoutCarriesLimit(t *testing.T) {
	err := &TransportError{Op: "POST", Timeout: 30 * time.Second, Err: context.DeadlineExceeded}
	e := Translate(err, "gemini")
	assert.Equal(t, ir.KindTimeout, e.Kind)
	assert.Equal(t, 30*time.Second, e.Timeout)
	assert.ErrorIs(t, e, context.DeadlineExceeded)
}

func TestTranslateStatusNeverTimeoutByWording(t *testing.T) {
	e := TranslateResponse(500, nil, []byte(`{"message":"upstream timeout"}`), "claude")
	assert.Equal(t, ir.KindProvider, e.Kind)
}

func TestTranslateIsIdempotent(t *testing.T) {
	first := TranslateResponse(429, nil, nil, "claude")
	again := Translate(first, "openai")
	assert.Same(t, first, again)

	wrapped := fmt.Errorf("call failed: %w", first)
	assert.Same(t, first, Translate(wrapped, "gemini"))

	tr := ir.NewTranslationError(2, "bad tool")
	assert.Same(t, tr, Translate(tr, "claude"))
}

func TestTranslateUnknownErrorIsProvider(t *testing.T) {
	e := Translate(errors.New("something odd"), "claude")
	assert.Equal(t, ir.KindProvider, e.Kind)
	assert.False(t, e.Retryable())
	assert.Nil(t, Translate(nil, "claude"))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&StatusError{StatusCode: 429}))
	assert.True(t, IsRetryable(&StatusError{StatusCode: 502}))
	assert.False(t, IsRetryable(&StatusError{StatusCode: 401}))
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(ir.NewTimeoutError("x", "slow", 0, nil)))
}

func TestErrorsIsSentinels(t *testing.T) {
	e := TranslateResponse(401, nil, nil, "openai")
	assert.ErrorIs(t, e, ir.ErrAuthentication)
	assert.NotErrorIs(t, e, ir.ErrRateLimit)
}

func TestRetryAfterSources(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   time.Duration
		within time.Duration
	}{
		{
			name: "gemini retry info",
			err: &StatusError{StatusCode: 429, Body: []byte(`{"error":{"status":"RESOURCE_EXHAUSTED","details":[
				{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"17s"}]}}`)},
			want: 17 * time.Second,
		},
		{
			name: "numeric seconds",
			err:  &StatusError{StatusCode: 429, Body: []byte(`{"retryAfter":30}`)},
			want: 30 * time.Second,
		},
		{
			name: "numeric milliseconds",
			err:  &StatusError{StatusCode: 429, Body: []byte(`{"retryAfter":1500}`)},
			want: 1500 * time.Millisecond,
		},
		{
			name: "method on error",
			err:  hintedError{d: 4 * time.Second},
			want: 4 * time.Second,
		},
		{
			name: "retry-after-ms header",
			err:  &StatusError{StatusCode: 429, Header: http.Header{"Retry-After-Ms": []string{"250"}}},
			want: 250 * time.Millisecond,
		},
		{
			name: "retry-after seconds header",
			err:  &StatusError{StatusCode: 429, Header: http.Header{"Retry-After": []string{"7"}}},
			want: 7 * time.Second,
		},
		{
			name:   "retry-after date header",
			err:    &StatusError{StatusCode: 429, Header: http.Header{"Retry-After": []string{time.Now().Add(10 * time.Second).UTC().Format(http.TimeFormat)}}},
			want:   10 * time.Second,
			within: 2 * time.Second,
		},
		{
			name: "no hint",
			err:  &StatusError{StatusCode: 429},
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Translate(tt.err, "gemini")
			require.Equal(t, ir.KindRateLimit, e.Kind)
			if tt.within > 0 {
				assert.InDelta(t, float64(tt.want), float64(e.RetryAfter), float64(tt.within))
				return
			}
			assert.Equal(t, tt.want, e.RetryAfter)
		})
	}
}

func TestBackoff(t *testing.T) {
	hinted := ir.NewRateLimitError("claude", "slow", 90*time.Second, nil)
	assert.Equal(t, 90*time.Second, Backoff(0, hinted), "hint wins even past the cap")

	plain := ir.NewProviderError("claude", "boom", 500, nil)
	for attempt := 0; attempt < 12; attempt++ {
		d := Backoff(attempt, plain)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, BackoffMax)
	}
	for i := 0; i < 50; i++ {
		assert.LessOrEqual(t, Backoff(0, plain), BackoffBase)
		assert.LessOrEqual(t, Backoff(0, ir.NewRateLimitError("claude", "slow", 0, nil)), RateLimitBackoffBase)
	}
}

func TestDefaultIsSuccessfulIgnoresCallerMistakes(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":         {nil, true},
		"auth":        {ir.NewAuthenticationError("x", "no", nil), true},
		"config":      {ir.NewConfigurationError("x", "bad", nil), true},
		"translation": {ir.NewTranslationError(0, "bad"), true},
		"rate limit":  {ir.NewRateLimitError("x", "slow", 0, nil), false},
		"provider":    {ir.NewProviderError("x", "down", 503, nil), false},
		"raw":         {errors.New("raw"), false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, resilience.DefaultIsSuccessful(tc.err))
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"claude", FormatClaude, true},
		{"Anthropic", FormatClaude, true},
		{"openai-compatible", FormatOpenAI, true},
		{" vertex ", FormatGemini, true},
		{"google", FormatGemini, true},
		{"cohere", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseFormat(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
