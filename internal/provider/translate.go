package provider

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/tidwall/gjson"

	log "github.com/sashabogi/agent-router/internal/logging"
	"github.com/sashabogi/agent-router/internal/translator/ir"
)

// errorInfo is everything extractable from a raw error.
type errorInfo struct {
	raw    error
	status int
	header http.Header
	body   gjson.Result
}

// classifyFunc maps a provider's own error type/code/status field to a kind.
// status is a representative HTTP status for Provider kinds when the
// response carried none.
type classifyFunc func(info *errorInfo) (kind ir.ErrorKind, status int, ok bool)

var classifiers = map[Format]classifyFunc{
	FormatClaude: classifyClaude,
	FormatOpenAI: classifyOpenAI,
	FormatGemini: classifyGemini,
}

func classifierFor(providerName string) classifyFunc {
	if f, ok := ParseFormat(providerName); ok {
		return classifiers[f]
	}
	return classifyGeneric
}

// Translate classifies err into the taxonomy. Errors that already belong to
// the taxonomy are returned unchanged whatever providerName is. Unknown
// provider names use the generic classifier. Translate returns nil only for
// a nil err.
func Translate(err error, providerName string) *ir.Error {
	if err == nil {
		return nil
	}
	if e, ok := ir.AsError(err); ok {
		return e
	}

	info := extractInfo(err)
	msg := errorMessage(info)

	if isTimeoutError(err) {
		return ir.NewTimeoutError(providerName, msg, timeoutOf(err), err)
	}

	if kind, status, ok := classifierFor(providerName)(info); ok {
		if info.status != 0 {
			status = info.status
		}
		e := build(kind, status, providerName, msg, info)
		log.Debugf("%s: classified error from provider payload as %s", providerName, e.Kind)
		return e
	}

	if kind, ok := classifyStatus(info.status); ok {
		e := build(kind, info.status, providerName, msg, info)
		log.Debugf("%s: classified error from status %d as %s", providerName, info.status, e.Kind)
		return e
	}

	return ir.NewProviderError(providerName, msg, info.status, err)
}

// TranslateResponse classifies a non-2xx HTTP response.
func TranslateResponse(statusCode int, header http.Header, body []byte, providerName string) *ir.Error {
	return Translate(&StatusError{StatusCode: statusCode, Header: header, Body: body}, providerName)
}

// IsRetryable reports whether err may be retried. Errors outside the
// taxonomy are classified generically first.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return Translate(err, "").Retryable()
}

func build(kind ir.ErrorKind, status int, providerName, msg string, info *errorInfo) *ir.Error {
	switch kind {
	case ir.KindAuthentication:
		return ir.NewAuthenticationError(providerName, msg, info.raw)
	case ir.KindConfiguration:
		return ir.NewConfigurationError(providerName, msg, info.raw)
	case ir.KindRateLimit:
		return ir.NewRateLimitError(providerName, msg, retryAfter(info), info.raw)
	case ir.KindTimeout:
		return ir.NewTimeoutError(providerName, msg, timeoutOf(info.raw), info.raw)
	default:
		return ir.NewProviderError(providerName, msg, status, info.raw)
	}
}

func classifyStatus(status int) (ir.ErrorKind, bool) {
	switch {
	case status == http.StatusBadRequest:
		return ir.KindConfiguration, true
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ir.KindAuthentication, true
	case status == http.StatusRequestTimeout:
		return ir.KindTimeout, true
	case status == http.StatusTooManyRequests:
		return ir.KindRateLimit, true
	case status >= http.StatusInternalServerError:
		return ir.KindProvider, true
	default:
		return 0, false
	}
}

// extractInfo finds the HTTP status, headers and JSON body of err. The status
// may live on the error itself or in the body under status, statusCode,
// response.status or error.code.
func extractInfo(err error) *errorInfo {
	info := &errorInfo{raw: err}

	var se *StatusError
	if errors.As(err, &se) {
		info.status = se.StatusCode
		info.header = se.Header
		if gjson.ValidBytes(se.Body) {
			info.body = gjson.ParseBytes(se.Body)
			if info.body.IsArray() {
				info.body = info.body.Get("0")
			}
		}
	}
	if info.status == 0 {
		var sc interface{ StatusCode() int }
		if errors.As(err, &sc) {
			info.status = sc.StatusCode()
		}
	}
	if info.status == 0 && info.body.Exists() {
		for _, path := range []string{"status", "statusCode", "response.status", "error.code"} {
			if v := info.body.Get(path); v.Type == gjson.Number {
				info.status = int(v.Int())
				break
			}
		}
	}
	return info
}

func errorMessage(info *errorInfo) string {
	for _, path := range []string{"error.message", "message", "error"} {
		if v := info.body.Get(path); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	if info.status != 0 && !info.body.Exists() {
		if text := http.StatusText(info.status); text != "" {
			return text
		}
	}
	return info.raw.Error()
}

var timeoutTerms = []string{"timeout", "timed out", "aborted", "deadline exceeded", "etimedout", "esockettimedout", "econnaborted"}

// isTimeoutError reports timeouts and aborts: context errors, net timeouts,
// socket timeout codes, AbortError/TimeoutError names and timeout wording in
// transport error messages. HTTP responses are never classified by wording.
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ETIMEDOUT) || errors.Is(err, syscall.ECONNABORTED) {
		return true
	}
	var named NamedError
	if errors.As(err, &named) {
		switch named.Name() {
		case "AbortError", "TimeoutError":
			return true
		}
	}
	var se *StatusError
	if errors.As(err, &se) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, term := range timeoutTerms {
		if strings.Contains(msg, term) {
			return true
		}
	}
	return false
}

func timeoutOf(err error) time.Duration {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Timeout
	}
	return 0
}
