package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sashabogi/agent-router/internal/translator/ir"
)

// Error codes for failures that happen before any provider call.
const (
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeInternalError  = "internal_error"
)

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	Provider   string `json:"provider,omitempty"`
	Retryable  bool   `json:"retryable"`
	RetryAfter int64  `json:"retry_after_ms,omitempty"`
	Index      *int   `json:"index,omitempty"`
}

func respondOK(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: ErrorDetail{Type: code, Message: message}})
}

// respondTaxonomyError renders err with a status derived from its kind.
// Errors outside the taxonomy are internal errors.
func respondTaxonomyError(c *gin.Context, err error) {
	e, ok := ir.AsError(err)
	if !ok {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	_ = c.Error(err)
	if e.Kind == ir.KindRateLimit && e.RetryAfter > 0 {
		secs := int64((e.RetryAfter + 999_999_999) / 1_000_000_000)
		c.Header("Retry-After", strconv.FormatInt(secs, 10))
	}
	c.AbortWithStatusJSON(statusForError(e), ErrorBody{Error: errorDetail(e)})
}

func errorDetail(e *ir.Error) ErrorDetail {
	d := ErrorDetail{
		Type:      errorType(e.Kind),
		Message:   e.Message,
		Provider:  e.Provider,
		Retryable: e.Retryable(),
	}
	if e.Message == "" {
		d.Message = e.Error()
	}
	if e.RetryAfter > 0 {
		d.RetryAfter = e.RetryAfter.Milliseconds()
	}
	if e.Kind == ir.KindTranslation && e.Index >= 0 {
		idx := e.Index
		d.Index = &idx
	}
	return d
}

func errorType(k ir.ErrorKind) string {
	return k.String() + "_error"
}

func statusForError(e *ir.Error) int {
	switch e.Kind {
	case ir.KindAuthentication:
		return http.StatusUnauthorized
	case ir.KindRateLimit:
		return http.StatusTooManyRequests
	case ir.KindConfiguration:
		return http.StatusBadRequest
	case ir.KindTimeout:
		return http.StatusGatewayTimeout
	case ir.KindTranslation:
		return http.StatusUnprocessableEntity
	case ir.KindProvider:
		if e.StatusCode >= http.StatusInternalServerError {
			return e.StatusCode
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// isBodyTooLarge reports whether err came from the body size limit.
func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
