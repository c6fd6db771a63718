package to_ir

import (
	"github.com/tidwall/gjson"

	"github.com/sashabogi/agent-router/internal/translator/ir"
)

// FromClaudeResponse extracts text and tool use blocks from a Messages API
// response. Block types outside the canonical set are skipped.
func FromClaudeResponse(body []byte) (ir.Message, error) {
	resp, err := ParseClaudeResponse(body)
	if err != nil {
		return ir.Message{}, err
	}
	return resp.Message, nil
}

func ParseClaudeResponse(body []byte) (*Response, error) {
	parsed, err := parseJSON(body, "claude")
	if err != nil {
		return nil, err
	}
	var blocks []ir.ContentBlock
	for _, raw := range parsed.Get("content").Array() {
		if b, ok := ir.ParseBlock(raw); ok {
			blocks = append(blocks, b)
		}
	}
	return &Response{
		Message: assistant(blocks),
		Meta: ir.StreamMeta{
			MessageID:  parsed.Get("id").String(),
			Model:      parsed.Get("model").String(),
			StopReason: ir.StopReason(parsed.Get("stop_reason").String()),
			Usage:      claudeUsage(parsed.Get("usage")),
		},
	}, nil
}

func claudeUsage(u gjson.Result) ir.Usage {
	return ir.Usage{
		InputTokens:  int(u.Get("input_tokens").Int()),
		OutputTokens: int(u.Get("output_tokens").Int()),
	}
}
