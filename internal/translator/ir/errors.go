package ir

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorKind is the closed set of classified failure kinds.
type ErrorKind int

const (
	KindAuthentication ErrorKind = iota + 1
	KindRateLimit
	KindConfiguration
	KindProvider
	KindTimeout
	KindTranslation
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindRateLimit:
		return "rate_limit"
	case KindConfiguration:
		return "configuration"
	case KindProvider:
		return "provider"
	case KindTimeout:
		return "timeout"
	case KindTranslation:
		return "translation"
	default:
		return "unknown"
	}
}

// Error is the taxonomy error. It is built once at the translation boundary
// and then propagated unchanged.
type Error struct {
	Kind     ErrorKind
	Message  string
	Provider string

	StatusCode int           // Provider: upstream HTTP status, 0 if unknown
	RetryAfter time.Duration // RateLimit: explicit hint, 0 if absent
	Timeout    time.Duration // Timeout: configured limit, 0 if unknown
	Index      int           // Translation: offending array index, -1 if n/a

	Cause error

	sentinel bool
}

// Sentinels for errors.Is matching by kind.
var (
	ErrAuthentication = &Error{Kind: KindAuthentication, sentinel: true}
	ErrRateLimit      = &Error{Kind: KindRateLimit, sentinel: true}
	ErrConfiguration  = &Error{Kind: KindConfiguration, sentinel: true}
	ErrProvider       = &Error{Kind: KindProvider, sentinel: true}
	ErrTimeout        = &Error{Kind: KindTimeout, sentinel: true}
	ErrTranslation    = &Error{Kind: KindTranslation, sentinel: true}
)

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	sb.WriteString(" error")
	if e.Provider != "" {
		sb.WriteString(" from ")
		sb.WriteString(e.Provider)
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	switch e.Kind {
	case KindProvider:
		if e.StatusCode != 0 {
			fmt.Fprintf(&sb, " (status %d)", e.StatusCode)
		}
	case KindRateLimit:
		if e.RetryAfter > 0 {
			fmt.Fprintf(&sb, " (retry after %s)", e.RetryAfter)
		}
	case KindTimeout:
		if e.Timeout > 0 {
			fmt.Fprintf(&sb, " (after %s)", e.Timeout)
		}
	case KindTranslation:
		if e.Index >= 0 {
			fmt.Fprintf(&sb, " (index %d)", e.Index)
		}
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the kind sentinels, so errors.Is(err, ErrRateLimit) works for any
// rate limit error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || !t.sentinel {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether a caller may retry the failed call.
// Provider errors are retryable only for 5xx or 429 statuses.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindRateLimit, KindTimeout:
		return true
	case KindProvider:
		return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

// AsError extracts a taxonomy error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && !e.sentinel {
		return e, true
	}
	return nil, false
}

// NewTranslationError reports a structural violation detected by the
// translation layer itself. index is -1 when no array position applies.
func NewTranslationError(index int, format string, args ...any) *Error {
	return &Error{
		Kind:    KindTranslation,
		Message: fmt.Sprintf(format, args...),
		Index:   index,
	}
}

func NewAuthenticationError(provider, message string, cause error) *Error {
	return &Error{Kind: KindAuthentication, Provider: provider, Message: message, Cause: cause, Index: -1}
}

func NewConfigurationError(provider, message string, cause error) *Error {
	return &Error{Kind: KindConfiguration, Provider: provider, Message: message, Cause: cause, Index: -1}
}

func NewRateLimitError(provider, message string, retryAfter time.Duration, cause error) *Error {
	return &Error{Kind: KindRateLimit, Provider: provider, Message: message, RetryAfter: retryAfter, Cause: cause, Index: -1}
}

func NewProviderError(provider, message string, statusCode int, cause error) *Error {
	return &Error{Kind: KindProvider, Provider: provider, Message: message, StatusCode: statusCode, Cause: cause, Index: -1}
}

func NewTimeoutError(provider, message string, timeout time.Duration, cause error) *Error {
	return &Error{Kind: KindTimeout, Provider: provider, Message: message, Timeout: timeout, Cause: cause, Index: -1}
}
