package provider

import (
	"fmt"
	"net/http"
	"time"
)

// StatusError is a non-2xx HTTP response returned by a provider.
type StatusError struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *StatusError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, truncate(string(e.Body), 512))
}

// TransportError is a failure before any response arrived. Timeout is the
// limit that was in force, if known.
type TransportError struct {
	Op      string
	Timeout time.Duration
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NamedError is implemented by errors that carry a symbolic name, such as
// "AbortError" or "TimeoutError".
type NamedError interface {
	error
	Name() string
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
