package from_ir

import (
	"github.com/tidwall/sjson"

	"github.com/sashabogi/agent-router/internal/json"
	"github.com/sashabogi/agent-router/internal/translator/ir"
)

const ClaudeDefaultMaxTokens = 4096

// ClaudeProvider handles conversion to the Messages API format.
type ClaudeProvider struct{}

// ClaudeMessage is one wire message. Content is a string or a list of block
// objects.
type ClaudeMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ClaudeRequestMessages is the message list plus the sibling system field.
type ClaudeRequestMessages struct {
	System   string          `json:"system,omitempty"`
	Messages []ClaudeMessage `json:"messages"`
}

// ToClaude converts a conversation, repairing the sequence the API demands:
// the first message is user-authored and roles strictly alternate.
func ToClaude(messages []ir.Message, system string) (*ClaudeRequestMessages, error) {
	if err := ir.ValidateMessages(messages); err != nil {
		return nil, err
	}
	out := &ClaudeRequestMessages{System: system, Messages: make([]ClaudeMessage, 0, len(messages)+1)}
	if len(messages) > 0 && messages[0].Role != ir.RoleUser {
		out.Messages = append(out.Messages, ClaudeMessage{Role: string(ir.RoleUser), Content: ""})
	}
	for _, msg := range messages {
		next := ClaudeMessage{Role: string(msg.Role), Content: ir.ContentToWire(msg.Content)}
		if n := len(out.Messages); n > 0 && out.Messages[n-1].Role == next.Role {
			out.Messages[n-1].Content = mergeClaudeContent(out.Messages[n-1].Content, next.Content)
			continue
		}
		out.Messages = append(out.Messages, next)
	}
	return out, nil
}

// mergeClaudeContent concatenates two contents as block lists, coercing plain
// strings into one text block first.
func mergeClaudeContent(a, b any) []map[string]any {
	merged := claudeBlocks(a)
	return append(merged, claudeBlocks(b)...)
}

func claudeBlocks(content any) []map[string]any {
	switch c := content.(type) {
	case []map[string]any:
		return append([]map[string]any(nil), c...)
	case string:
		if c == "" {
			return []map[string]any{}
		}
		return []map[string]any{{"type": ir.ClaudeBlockText, "text": c}}
	default:
		return []map[string]any{}
	}
}

// ConvertRequest builds a complete Messages API request body.
func (p *ClaudeProvider) ConvertRequest(req *ir.Request) ([]byte, error) {
	msgs, err := ToClaude(req.Messages, req.System)
	if err != nil {
		return nil, err
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = ClaudeDefaultMaxTokens
	}

	body := []byte(`{}`)
	body, _ = sjson.SetBytes(body, "model", req.Model)
	body, _ = sjson.SetBytes(body, "max_tokens", maxTokens)
	if msgs.System != "" {
		body, _ = sjson.SetBytes(body, "system", msgs.System)
	}
	msgJSON, err := json.Marshal(msgs.Messages)
	if err != nil {
		return nil, err
	}
	body, _ = sjson.SetRawBytes(body, "messages", msgJSON)

	if len(req.Tools) > 0 {
		tools, err := ToClaudeTools(req.Tools)
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
	}
	return body, nil
}

// ConvertTools renders tools in the provider's representation.
func (p *ClaudeProvider) ConvertTools(tools []ir.Tool) ([]byte, error) {
	out, err := ToClaudeTools(tools)
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}
