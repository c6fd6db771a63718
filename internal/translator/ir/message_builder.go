package ir

import (
	stdjson "encoding/json"
	"strings"

	"github.com/sashabogi/agent-router/internal/json"
)

// CombineTextParts joins every text block of msg with "\n".
// String content is returned as is.
func CombineTextParts(msg Message) string {
	if msg.Content.IsText() {
		return msg.Content.Text
	}
	var parts []string
	for _, b := range msg.Content.Blocks {
		if t, ok := b.(TextBlock); ok {
			parts = append(parts, t.Text)
		}
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	sb := GetStringBuilder()
	defer PutStringBuilder(sb)
	for i, p := range parts {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(p)
	}
	return sb.String()
}

// ToolUses returns the tool use blocks of msg in order.
func ToolUses(msg Message) []ToolUseBlock {
	var out []ToolUseBlock
	for _, b := range msg.Content.Blocks {
		if tu, ok := b.(ToolUseBlock); ok {
			out = append(out, tu)
		}
	}
	return out
}

// ToolResults returns the tool result blocks of msg in order.
func ToolResults(msg Message) []ToolResultBlock {
	var out []ToolResultBlock
	for _, b := range msg.Content.Blocks {
		if tr, ok := b.(ToolResultBlock); ok {
			out = append(out, tr)
		}
	}
	return out
}

var emptyJSONObject = stdjson.RawMessage("{}")

// ArgsAsRaw returns args as raw JSON. Empty input becomes {} and invalid
// JSON is quoted as a string.
func ArgsAsRaw(args string) stdjson.RawMessage {
	trimmed := strings.TrimSpace(args)
	if trimmed == "" || trimmed == "{}" {
		return emptyJSONObject
	}
	if !json.Valid([]byte(trimmed)) {
		b, _ := json.Marshal(trimmed)
		return stdjson.RawMessage(b)
	}
	return stdjson.RawMessage(trimmed)
}

// ParseArgs decodes a JSON object argument string. Empty or non-object input
// yields an empty map.
func ParseArgs(args string) map[string]any {
	out := map[string]any{}
	trimmed := strings.TrimSpace(args)
	if trimmed == "" {
		return out
	}
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}

// MarshalArgs encodes tool input as a JSON object string.
func MarshalArgs(input map[string]any) string {
	if len(input) == 0 {
		return "{}"
	}
	b, err := json.Marshal(input)
	if err != nil {
		return "{}"
	}
	return string(b)
}
