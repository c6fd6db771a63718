package provider

import (
	"net/http"
	"strings"

	"github.com/sashabogi/agent-router/internal/translator/ir"
)

// StatusOverloaded is the content-block protocol's overloaded status.
const StatusOverloaded = 529

// classifyClaude reads error.type, e.g. {"type":"error","error":{"type":"rate_limit_error"}}.
func classifyClaude(info *errorInfo) (ir.ErrorKind, int, bool) {
	typ := info.body.Get("error.type").String()
	if typ == "" {
		if t := info.body.Get("type").String(); t != "error" {
			typ = t
		}
	}
	switch typ {
	case "invalid_request_error", "not_found_error", "request_too_large":
		return ir.KindConfiguration, 0, true
	case "authentication_error", "permission_error":
		return ir.KindAuthentication, 0, true
	case "rate_limit_error":
		return ir.KindRateLimit, 0, true
	case "api_error":
		return ir.KindProvider, http.StatusInternalServerError, true
	case "overloaded_error":
		return ir.KindProvider, StatusOverloaded, true
	}
	return 0, 0, false
}

// classifyOpenAI reads error.code first, then error.type.
func classifyOpenAI(info *errorInfo) (ir.ErrorKind, int, bool) {
	switch info.body.Get("error.code").String() {
	case "invalid_api_key", "invalid_organization":
		return ir.KindAuthentication, 0, true
	case "rate_limit_exceeded":
		return ir.KindRateLimit, 0, true
	case "insufficient_quota", "model_not_found", "context_length_exceeded":
		return ir.KindConfiguration, 0, true
	}
	switch info.body.Get("error.type").String() {
	case "invalid_request_error", "insufficient_quota":
		return ir.KindConfiguration, 0, true
	case "authentication_error", "permission_error":
		return ir.KindAuthentication, 0, true
	case "rate_limit_error", "requests", "tokens":
		return ir.KindRateLimit, 0, true
	case "server_error", "api_error":
		return ir.KindProvider, http.StatusInternalServerError, true
	case "engine_overloaded", "overloaded_error":
		return ir.KindProvider, http.StatusServiceUnavailable, true
	}
	return 0, 0, false
}

// classifyGemini reads the google.rpc status enum in error.status.
func classifyGemini(info *errorInfo) (ir.ErrorKind, int, bool) {
	switch info.body.Get("error.status").String() {
	case "INVALID_ARGUMENT", "FAILED_PRECONDITION", "NOT_FOUND", "OUT_OF_RANGE":
		return ir.KindConfiguration, 0, true
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		return ir.KindAuthentication, 0, true
	case "RESOURCE_EXHAUSTED":
		return ir.KindRateLimit, 0, true
	case "DEADLINE_EXCEEDED":
		return ir.KindTimeout, 0, true
	case "UNAVAILABLE":
		return ir.KindProvider, http.StatusServiceUnavailable, true
	case "INTERNAL", "UNKNOWN":
		return ir.KindProvider, http.StatusInternalServerError, true
	}
	return 0, 0, false
}

// classifyGeneric matches well-known terms in whichever type/code/status
// field the payload has.
func classifyGeneric(info *errorInfo) (ir.ErrorKind, int, bool) {
	var field string
	for _, path := range []string{"error.type", "error.status", "error.code", "type", "code"} {
		if v := info.body.Get(path); v.Exists() && v.String() != "" && v.String() != "error" {
			field = strings.ToLower(v.String())
			break
		}
	}
	if field == "" {
		return 0, 0, false
	}
	switch {
	case strings.Contains(field, "invalid_request"), strings.Contains(field, "invalid_argument"):
		return ir.KindConfiguration, 0, true
	case strings.Contains(field, "auth"), strings.Contains(field, "permission"):
		return ir.KindAuthentication, 0, true
	case strings.Contains(field, "rate_limit"), strings.Contains(field, "resource_exhausted"):
		return ir.KindRateLimit, 0, true
	case strings.Contains(field, "overloaded"), strings.Contains(field, "unavailable"):
		return ir.KindProvider, http.StatusServiceUnavailable, true
	case strings.Contains(field, "server_error"), strings.Contains(field, "internal"):
		return ir.KindProvider, http.StatusInternalServerError, true
	}
	return 0, 0, false
}
