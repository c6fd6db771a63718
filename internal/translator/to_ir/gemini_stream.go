package to_ir

import (
	"github.com/tidwall/gjson"

	"github.com/sashabogi/agent-router/internal/translator/ir"
)

// GeminiStreamState normalizes parts protocol frames. Text may arrive as the
// whole accumulation so far, so only the unseen suffix is emitted.
type GeminiStreamState struct {
	channels    *ir.ChannelState
	seenLen     int
	toolCount   int
	calledTools bool
	meta        ir.StreamMeta
}

func NewGeminiStreamState() *GeminiStreamState {
	return &GeminiStreamState{channels: ir.NewChannelState()}
}

func (s *GeminiStreamState) Meta() ir.StreamMeta { return s.meta }

func (s *GeminiStreamState) Reduce(frame gjson.Result) ([]ir.StreamChunk, error) {
	if frame.IsArray() {
		var out []ir.StreamChunk
		for _, item := range frame.Array() {
			chunks, err := s.Reduce(item)
			if err != nil {
				return out, err
			}
			out = append(out, chunks...)
		}
		return out, nil
	}
	if errObj := frame.Get("error"); errObj.Exists() {
		return nil, streamError("gemini", errObj)
	}
	frame = unwrapEnvelope(frame)
	if id := frame.Get("responseId").String(); id != "" {
		s.meta.MessageID = id
	}
	if model := frame.Get("modelVersion").String(); model != "" {
		s.meta.Model = model
	}
	if usage := frame.Get("usageMetadata"); usage.IsObject() {
		s.meta.Usage = geminiUsage(usage)
	}

	candidate := frame.Get("candidates.0")
	if !candidate.Exists() {
		return nil, nil
	}
	var out []ir.StreamChunk
	for _, part := range candidate.Get("content.parts").Array() {
		if part.Get("thought").Bool() {
			continue
		}
		if fc := part.Get("functionCall"); fc.Exists() {
			out = append(out, s.functionCall(fc)...)
			continue
		}
		if text := part.Get("text"); text.Exists() {
			out = append(out, s.text(text.String())...)
		}
	}
	if reason := candidate.Get("finishReason").String(); reason != "" {
		s.meta.StopReason = GeminiStopReason(reason, s.calledTools)
	}
	return out, nil
}

func (s *GeminiStreamState) text(text string) []ir.StreamChunk {
	delta := s.diff(text)
	if delta == "" {
		return nil
	}
	var out []ir.StreamChunk
	index, first := s.channels.StartText()
	if first {
		out = append(out, ir.ContentBlockStart{Index: index, Block: ir.TextBlock{}})
	}
	return append(out, ir.ContentBlockDelta{Index: index, Delta: ir.TextDelta{Text: delta}})
}

// diff returns the part of text beyond the length already emitted. Frames
// carry the whole accumulation, so a frame no longer than the seen text
// yields nothing.
func (s *GeminiStreamState) diff(text string) string {
	if len(text) <= s.seenLen {
		return ""
	}
	delta := text[s.seenLen:]
	s.seenLen = len(text)
	return delta
}

func (s *GeminiStreamState) functionCall(fc gjson.Result) []ir.StreamChunk {
	index := s.channels.AllocTool(s.toolCount)
	s.toolCount++
	s.calledTools = true

	args := "{}"
	if a := fc.Get("args"); a.IsObject() {
		args = a.Raw
	}
	return []ir.StreamChunk{
		ir.ContentBlockStart{Index: index, Block: ir.ToolUseBlock{ID: ir.GenToolCallID(), Name: fc.Get("name").String(), Input: map[string]any{}}},
		ir.ContentBlockDelta{Index: index, Delta: ir.InputJSONDelta{PartialJSON: args}},
	}
}
