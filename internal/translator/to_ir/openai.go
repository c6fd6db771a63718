package to_ir

import (
	"github.com/tidwall/gjson"

	"github.com/sashabogi/agent-router/internal/translator/ir"
)

// FromOpenAIResponse reads the first choice of a chat completion. Zero
// choices yield an empty assistant message.
func FromOpenAIResponse(body []byte) (ir.Message, error) {
	resp, err := ParseOpenAIResponse(body)
	if err != nil {
		return ir.Message{}, err
	}
	return resp.Message, nil
}

func ParseOpenAIResponse(body []byte) (*Response, error) {
	parsed, err := parseJSON(body, "openai")
	if err != nil {
		return nil, err
	}
	resp := &Response{
		Meta: ir.StreamMeta{
			MessageID: parsed.Get("id").String(),
			Model:     parsed.Get("model").String(),
			Usage:     openAIUsage(parsed.Get("usage")),
		},
	}
	choice := parsed.Get("choices.0")
	if !choice.Exists() {
		resp.Message = assistant(nil)
		return resp, nil
	}

	var blocks []ir.ContentBlock
	msg := choice.Get("message")
	if text := msg.Get("content").String(); text != "" {
		blocks = append(blocks, ir.TextBlock{Text: text})
	}
	for _, tc := range msg.Get("tool_calls").Array() {
		id := tc.Get("id").String()
		if id == "" {
			id = ir.GenToolCallID()
		}
		blocks = append(blocks, ir.ToolUseBlock{
			ID:    id,
			Name:  tc.Get("function.name").String(),
			Input: ir.ParseArgs(tc.Get("function.arguments").String()),
		})
	}
	resp.Message = assistant(blocks)
	resp.Meta.StopReason = OpenAIStopReason(choice.Get("finish_reason").String())
	return resp, nil
}

// OpenAIStopReason maps a finish_reason to the canonical stop reason.
func OpenAIStopReason(reason string) ir.StopReason {
	switch reason {
	case "stop":
		return ir.StopReasonEndTurn
	case "length":
		return ir.StopReasonMaxTokens
	case "tool_calls", "function_call":
		return ir.StopReasonToolUse
	case "":
		return ir.StopReasonUnknown
	default:
		return ir.StopReason(reason)
	}
}

func openAIUsage(u gjson.Result) ir.Usage {
	return ir.Usage{
		InputTokens:  int(u.Get("prompt_tokens").Int()),
		OutputTokens: int(u.Get("completion_tokens").Int()),
	}
}
