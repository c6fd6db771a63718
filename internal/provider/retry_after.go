package provider

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const retryInfoType = "type.googleapis.com/google.rpc.RetryInfo"

// retryAfter extracts an explicit retry hint, in priority order: Gemini
// RetryInfo details, a numeric retryAfter body field, a RetryAfter method on
// the error, then the retry-after-ms and retry-after headers. Zero means no hint.
func retryAfter(info *errorInfo) time.Duration {
	if d := parseRetryDelay(info.body); d > 0 {
		return d
	}
	for _, path := range []string{"retryAfter", "error.retryAfter", "retry_after", "error.retry_after"} {
		if v := info.body.Get(path); v.Type == gjson.Number {
			return NumericRetryAfter(v.Float())
		}
	}
	var ra interface{ RetryAfter() time.Duration }
	if errors.As(info.raw, &ra) {
		if d := ra.RetryAfter(); d > 0 {
			return d
		}
	}
	return HeaderRetryAfter(info.header)
}

// NumericRetryAfter interprets a bare number: seconds when <= 1000,
// otherwise milliseconds.
func NumericRetryAfter(v float64) time.Duration {
	if v <= 0 {
		return 0
	}
	if v <= 1000 {
		return time.Duration(v * float64(time.Second))
	}
	return time.Duration(v * float64(time.Millisecond))
}

// HeaderRetryAfter reads retry-after-ms, then retry-after as integer seconds
// or an HTTP date.
func HeaderRetryAfter(h http.Header) time.Duration {
	if h == nil {
		return 0
	}
	if v := strings.TrimSpace(h.Get("Retry-After-Ms")); v != "" {
		if ms, err := strconv.ParseFloat(v, 64); err == nil && ms > 0 {
			return time.Duration(ms * float64(time.Millisecond))
		}
	}
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// parseRetryDelay reads error.details[@type=RetryInfo].retryDelay, e.g. "30s".
func parseRetryDelay(body gjson.Result) time.Duration {
	details := body.Get("error.details")
	if !details.IsArray() {
		return 0
	}
	for _, detail := range details.Array() {
		if detail.Get("@type").String() != retryInfoType {
			continue
		}
		if d, err := time.ParseDuration(detail.Get("retryDelay").String()); err == nil && d > 0 {
			return d
		}
	}
	return 0
}
