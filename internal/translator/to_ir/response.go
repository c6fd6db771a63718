package to_ir

import (
	"github.com/tidwall/gjson"

	"github.com/sashabogi/agent-router/internal/translator/ir"
)

// Response is a parsed non-streaming completion.
type Response struct {
	Message ir.Message
	Meta    ir.StreamMeta
}

func parseJSON(body []byte, provider string) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, ir.NewTranslationError(-1, "%s response is not valid JSON", provider)
	}
	return gjson.ParseBytes(body), nil
}

// unwrapEnvelope strips the {"response": {...}} envelope some Gemini
// deployments add around each payload.
func unwrapEnvelope(r gjson.Result) gjson.Result {
	if inner := r.Get("response"); inner.IsObject() {
		return inner
	}
	return r
}

func assistant(blocks []ir.ContentBlock) ir.Message {
	return ir.Message{Role: ir.RoleAssistant, Content: ir.BlockContent(blocks...)}
}
