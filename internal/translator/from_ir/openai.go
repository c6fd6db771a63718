package from_ir

import (
	"github.com/tidwall/sjson"

	"github.com/sashabogi/agent-router/internal/json"
	"github.com/sashabogi/agent-router/internal/translator/ir"
)

const (
	OpenAIRoleSystem    = "system"
	OpenAIRoleUser      = "user"
	OpenAIRoleAssistant = "assistant"
	OpenAIRoleTool      = "tool"
)

// OpenAIProvider handles conversion to the chat completions format.
type OpenAIProvider struct{}

// OpenAIMessage is one chat message. Content is null on assistant turns that
// only call tools.
type OpenAIMessage struct {
	Role       string           `json:"role"`
	Content    *string          `json:"content"`
	ToolCalls  []OpenAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type OpenAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function OpenAIFunctionCall `json:"function"`
}

type OpenAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func strPtr(s string) *string { return &s }

// ToOpenAI converts a conversation. The system prompt becomes a leading
// system message, tool calls a sibling array and tool results separate
// tool-role messages.
func ToOpenAI(messages []ir.Message, system string) ([]OpenAIMessage, error) {
	if err := ir.ValidateMessages(messages); err != nil {
		return nil, err
	}
	out := make([]OpenAIMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, OpenAIMessage{Role: OpenAIRoleSystem, Content: strPtr(system)})
	}
	for _, msg := range messages {
		switch msg.Role {
		case ir.RoleUser:
			out = append(out, openAIUserMessages(msg)...)
		case ir.RoleAssistant:
			out = append(out, openAIAssistantMessage(msg))
		}
	}
	return out, nil
}

func openAIUserMessages(msg ir.Message) []OpenAIMessage {
	if msg.Content.IsText() {
		return []OpenAIMessage{{Role: OpenAIRoleUser, Content: strPtr(msg.Content.Text)}}
	}
	var out []OpenAIMessage
	for _, tr := range ir.ToolResults(msg) {
		out = append(out, OpenAIMessage{Role: OpenAIRoleTool, Content: strPtr(tr.Content), ToolCallID: tr.ToolUseID})
	}
	hasText := false
	for _, b := range msg.Content.Blocks {
		if _, ok := b.(ir.TextBlock); ok {
			hasText = true
			break
		}
	}
	if hasText || len(out) == 0 {
		out = append(out, OpenAIMessage{Role: OpenAIRoleUser, Content: strPtr(ir.CombineTextParts(msg))})
	}
	return out
}

func openAIAssistantMessage(msg ir.Message) OpenAIMessage {
	m := OpenAIMessage{Role: OpenAIRoleAssistant}
	text := ir.CombineTextParts(msg)
	for _, tu := range ir.ToolUses(msg) {
		m.ToolCalls = append(m.ToolCalls, OpenAIToolCall{
			ID:       tu.ID,
			Type:     "function",
			Function: OpenAIFunctionCall{Name: tu.Name, Arguments: ir.MarshalArgs(tu.Input)},
		})
	}
	if text != "" || len(m.ToolCalls) == 0 {
		m.Content = strPtr(text)
	}
	return m
}

// ConvertRequest builds a complete chat completions request body.
func (p *OpenAIProvider) ConvertRequest(req *ir.Request) ([]byte, error) {
	msgs, err := ToOpenAI(req.Messages, req.System)
	if err != nil {
		return nil, err
	}
	msgJSON, err := json.Marshal(msgs)
	if err != nil {
		return nil, err
	}

	body := []byte(`{}`)
	body, _ = sjson.SetBytes(body, "model", req.Model)
	body, _ = sjson.SetRawBytes(body, "messages", msgJSON)
	if req.MaxTokens > 0 {
		body, _ = sjson.SetBytes(body, "max_tokens", req.MaxTokens)
	}
	if len(req.Tools) > 0 {
		tools, err := ToOpenAITools(req.Tools)
		if err != nil {
			return nil, err
		}
		toolJSON, err := json.Marshal(tools)
		if err != nil {
			return nil, err
		}
		body, _ = sjson.SetRawBytes(body, "tools", toolJSON)
	}
	if req.Temperature != nil {
		body, _ = sjson.SetBytes(body, "temperature", *req.Temperature)
	}
	if req.Stream {
		body, _ = sjson.SetBytes(body, "stream", true)
		body, _ = sjson.SetBytes(body, "stream_options.include_usage", true)
	}
	return body, nil
}

func (p *OpenAIProvider) ConvertTools(tools []ir.Tool) ([]byte, error) {
	out, err := ToOpenAITools(tools)
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}
