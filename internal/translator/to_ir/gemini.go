package to_ir

import (
	"github.com/tidwall/gjson"

	"github.com/sashabogi/agent-router/internal/translator/ir"
)

// FromGeminiResponse reads the first candidate. Function calls get locally
// generated ids since the protocol carries none.
func FromGeminiResponse(body []byte) (ir.Message, error) {
	resp, err := ParseGeminiResponse(body)
	if err != nil {
		return ir.Message{}, err
	}
	return resp.Message, nil
}

func ParseGeminiResponse(body []byte) (*Response, error) {
	parsed, err := parseJSON(body, "gemini")
	if err != nil {
		return nil, err
	}
	parsed = unwrapEnvelope(parsed)
	resp := &Response{
		Meta: ir.StreamMeta{
			MessageID: parsed.Get("responseId").String(),
			Model:     parsed.Get("modelVersion").String(),
			Usage:     geminiUsage(parsed.Get("usageMetadata")),
		},
	}
	candidate := parsed.Get("candidates.0")
	if !candidate.Exists() {
		resp.Message = assistant(nil)
		return resp, nil
	}

	var blocks []ir.ContentBlock
	for _, part := range candidate.Get("content.parts").Array() {
		if part.Get("thought").Bool() {
			continue
		}
		if fc := part.Get("functionCall"); fc.Exists() {
			input, _ := fc.Get("args").Value().(map[string]any)
			if input == nil {
				input = map[string]any{}
			}
			blocks = append(blocks, ir.ToolUseBlock{ID: ir.GenToolCallID(), Name: fc.Get("name").String(), Input: input})
			continue
		}
		if text := part.Get("text"); text.Exists() && text.String() != "" {
			blocks = append(blocks, ir.TextBlock{Text: text.String()})
		}
	}
	resp.Message = assistant(blocks)
	resp.Meta.StopReason = GeminiStopReason(candidate.Get("finishReason").String(), len(ir.ToolUses(resp.Message)) > 0)
	return resp, nil
}

// GeminiStopReason maps a finishReason. A turn that called tools reports
// tool_use since the protocol has no such reason.
func GeminiStopReason(reason string, calledTools bool) ir.StopReason {
	if calledTools {
		return ir.StopReasonToolUse
	}
	switch reason {
	case "STOP":
		return ir.StopReasonEndTurn
	case "MAX_TOKENS":
		return ir.StopReasonMaxTokens
	case "":
		return ir.StopReasonUnknown
	default:
		return ir.StopReason(reason)
	}
}

func geminiUsage(u gjson.Result) ir.Usage {
	return ir.Usage{
		InputTokens:  int(u.Get("promptTokenCount").Int()),
		OutputTokens: int(u.Get("candidatesTokenCount").Int()),
	}
}
