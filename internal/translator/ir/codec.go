package ir

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/sashabogi/agent-router/internal/json"
)

// The canonical JSON form matches the content-block protocol's native shapes.

// BlockToWire renders a block in its content-block protocol shape.
func BlockToWire(b ContentBlock) map[string]any {
	switch v := b.(type) {
	case TextBlock:
		return map[string]any{"type": ClaudeBlockText, "text": v.Text}
	case ToolUseBlock:
		input := v.Input
		if input == nil {
			input = map[string]any{}
		}
		return map[string]any{"type": ClaudeBlockToolUse, "id": v.ID, "name": v.Name, "input": input}
	case ToolResultBlock:
		return map[string]any{"type": string(BlockTypeToolResult), "tool_use_id": v.ToolUseID, "content": v.Content}
	default:
		return nil
	}
}

// ParseBlock reads one content block. ok is false for block types outside the
// canonical set.
func ParseBlock(r gjson.Result) (ContentBlock, bool) {
	switch ContentBlockType(r.Get("type").String()) {
	case BlockTypeText:
		return TextBlock{Text: r.Get("text").String()}, true
	case BlockTypeToolUse:
		input, _ := r.Get("input").Value().(map[string]any)
		if input == nil {
			input = map[string]any{}
		}
		return ToolUseBlock{ID: r.Get("id").String(), Name: r.Get("name").String(), Input: input}, true
	case BlockTypeToolResult:
		return ToolResultBlock{ToolUseID: r.Get("tool_use_id").String(), Content: toolResultText(r.Get("content"))}, true
	default:
		return nil, false
	}
}

// toolResultText flattens a tool_result content field, which may be a string
// or a list of text blocks.
func toolResultText(content gjson.Result) string {
	if !content.IsArray() {
		return content.String()
	}
	sb := GetStringBuilder()
	defer PutStringBuilder(sb)
	first := true
	for _, part := range content.Array() {
		if part.Get("type").String() != ClaudeBlockText {
			continue
		}
		if !first {
			sb.WriteByte('\n')
		}
		sb.WriteString(part.Get("text").String())
		first = false
	}
	return sb.String()
}

// ContentToWire renders content as a string or a list of block objects.
func ContentToWire(c Content) any {
	if c.IsText() {
		return c.Text
	}
	blocks := make([]map[string]any, 0, len(c.Blocks))
	for _, b := range c.Blocks {
		if w := BlockToWire(b); w != nil {
			blocks = append(blocks, w)
		}
	}
	return blocks
}

func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"role":    string(m.Role),
		"content": ContentToWire(m.Content),
	})
}

func (m *Message) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid message JSON")
	}
	parsed := gjson.ParseBytes(data)
	role := Role(parsed.Get("role").String())
	if !role.Valid() {
		return fmt.Errorf("invalid message role %q", role)
	}
	content := parsed.Get("content")
	m.Role = role
	if !content.IsArray() {
		m.Content = TextContent(content.String())
		return nil
	}
	blocks := make([]ContentBlock, 0, len(content.Array()))
	for i, raw := range content.Array() {
		b, ok := ParseBlock(raw)
		if !ok {
			return fmt.Errorf("content block %d: unsupported type %q", i, raw.Get("type").String())
		}
		blocks = append(blocks, b)
	}
	m.Content = BlockContent(blocks...)
	return nil
}

// SchemaToWire renders an input schema as a JSON schema object.
func SchemaToWire(s InputSchema) map[string]any {
	props := s.Properties
	if props == nil {
		props = map[string]any{}
	}
	out := map[string]any{"type": s.Type, "properties": props}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}

// ParseSchema reads a JSON schema object into an InputSchema.
func ParseSchema(r gjson.Result) InputSchema {
	s := InputSchema{Type: r.Get("type").String()}
	if props, ok := r.Get("properties").Value().(map[string]any); ok {
		s.Properties = props
	}
	if req := r.Get("required"); req.IsArray() {
		for _, name := range req.Array() {
			s.Required = append(s.Required, name.String())
		}
	}
	return s
}

func (t Tool) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"name":         t.Name,
		"description":  t.Description,
		"input_schema": SchemaToWire(t.InputSchema),
	})
}

func (t *Tool) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid tool JSON")
	}
	parsed := gjson.ParseBytes(data)
	t.Name = parsed.Get("name").String()
	t.Description = parsed.Get("description").String()
	t.InputSchema = ParseSchema(parsed.Get("input_schema"))
	return nil
}
