package to_ir

import (
	"github.com/tidwall/gjson"

	"github.com/sashabogi/agent-router/internal/translator/ir"
)

// ClaudeStreamState maps content-block protocol events one to one. Blocks
// outside the canonical set (thinking, server_tool_use) are dropped together
// with their deltas.
type ClaudeStreamState struct {
	started map[int]bool
	meta    ir.StreamMeta
}

func NewClaudeStreamState() *ClaudeStreamState {
	return &ClaudeStreamState{started: make(map[int]bool)}
}

func (s *ClaudeStreamState) Meta() ir.StreamMeta { return s.meta }

func (s *ClaudeStreamState) Reduce(frame gjson.Result) ([]ir.StreamChunk, error) {
	switch frame.Get("type").String() {
	case ir.ClaudeSSEContentBlockStart:
		block, ok := ir.ParseBlock(frame.Get("content_block"))
		if !ok {
			return nil, nil
		}
		index := int(frame.Get("index").Int())
		s.started[index] = true
		return []ir.StreamChunk{ir.ContentBlockStart{Index: index, Block: block}}, nil

	case ir.ClaudeSSEContentBlockDelta:
		index := int(frame.Get("index").Int())
		if !s.started[index] {
			return nil, nil
		}
		delta := frame.Get("delta")
		switch delta.Get("type").String() {
		case ir.ClaudeDeltaText:
			return []ir.StreamChunk{ir.ContentBlockDelta{Index: index, Delta: ir.TextDelta{Text: delta.Get("text").String()}}}, nil
		case ir.ClaudeDeltaInputJSON:
			return []ir.StreamChunk{ir.ContentBlockDelta{Index: index, Delta: ir.InputJSONDelta{PartialJSON: delta.Get("partial_json").String()}}}, nil
		}
		return nil, nil

	case ir.ClaudeSSEMessageStart:
		msg := frame.Get("message")
		s.meta.MessageID = msg.Get("id").String()
		s.meta.Model = msg.Get("model").String()
		s.meta.Usage.InputTokens = int(msg.Get("usage.input_tokens").Int())

	case ir.ClaudeSSEMessageDelta:
		if reason := frame.Get("delta.stop_reason").String(); reason != "" {
			s.meta.StopReason = ir.StopReason(reason)
		}
		if out := frame.Get("usage.output_tokens"); out.Exists() {
			s.meta.Usage.OutputTokens = int(out.Int())
		}

	case ir.ClaudeSSEMessageStop:
		return []ir.StreamChunk{ir.MessageStop{}}, nil

	case ir.ClaudeSSEError:
		return nil, streamError("claude", frame.Get("error"))
	}
	// ping, content_block_stop
	return nil, nil
}
