package to_ir

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/sashabogi/agent-router/internal/translator/ir"
)

// OpenAIStreamState synthesizes block starts for chat completion chunks,
// which carry no explicit block events.
type OpenAIStreamState struct {
	channels          *ir.ChannelState
	hasStartedContent bool
	toolCalls         map[int]*openAIToolCallState // keyed by provider tool call index
	meta              ir.StreamMeta
}

type openAIToolCallState struct {
	channel int
	id      string
	name    string
	args    strings.Builder
}

func NewOpenAIStreamState() *OpenAIStreamState {
	return &OpenAIStreamState{
		channels:  ir.NewChannelState(),
		toolCalls: make(map[int]*openAIToolCallState),
	}
}

func (s *OpenAIStreamState) Meta() ir.StreamMeta { return s.meta }

// Arguments returns the arguments accumulated so far for a provider tool call index.
func (s *OpenAIStreamState) Arguments(providerIndex int) string {
	if tc, ok := s.toolCalls[providerIndex]; ok {
		return tc.args.String()
	}
	return ""
}

func (s *OpenAIStreamState) Reduce(frame gjson.Result) ([]ir.StreamChunk, error) {
	if errObj := frame.Get("error"); errObj.Exists() {
		return nil, streamError("openai", errObj)
	}
	if id := frame.Get("id").String(); id != "" {
		s.meta.MessageID = id
	}
	if model := frame.Get("model").String(); model != "" {
		s.meta.Model = model
	}
	if usage := frame.Get("usage"); usage.IsObject() {
		s.meta.Usage = openAIUsage(usage)
	}

	choice := frame.Get("choices.0")
	if !choice.Exists() {
		return nil, nil
	}
	var out []ir.StreamChunk
	delta := choice.Get("delta")

	if content := delta.Get("content"); content.Type == gjson.String && content.Str != "" {
		if !s.hasStartedContent {
			s.hasStartedContent = true
			index, _ := s.channels.StartText()
			out = append(out, ir.ContentBlockStart{Index: index, Block: ir.TextBlock{}})
		}
		out = append(out, ir.ContentBlockDelta{Index: s.channels.TextIndex(), Delta: ir.TextDelta{Text: content.Str}})
	}

	for pos, tc := range delta.Get("tool_calls").Array() {
		providerIndex := pos
		if idx := tc.Get("index"); idx.Exists() {
			providerIndex = int(idx.Int())
		}
		state, ok := s.toolCalls[providerIndex]
		if !ok {
			state = &openAIToolCallState{
				channel: s.channels.AllocTool(providerIndex),
				id:      tc.Get("id").String(),
				name:    tc.Get("function.name").String(),
			}
			if state.id == "" {
				state.id = ir.GenToolCallID()
			}
			s.toolCalls[providerIndex] = state
			out = append(out, ir.ContentBlockStart{
				Index: state.channel,
				Block: ir.ToolUseBlock{ID: state.id, Name: state.name, Input: map[string]any{}},
			})
		}
		if fragment := tc.Get("function.arguments").String(); fragment != "" {
			state.args.WriteString(fragment)
			out = append(out, ir.ContentBlockDelta{Index: state.channel, Delta: ir.InputJSONDelta{PartialJSON: fragment}})
		}
	}

	if reason := choice.Get("finish_reason").String(); reason != "" {
		s.meta.StopReason = OpenAIStopReason(reason)
	}
	return out, nil
}
