package from_ir

import (
	"github.com/tidwall/sjson"
	"google.golang.org/genai"

	"github.com/sashabogi/agent-router/internal/json"
	"github.com/sashabogi/agent-router/internal/translator/ir"
)

// GeminiProvider handles conversion to the generateContent format.
type GeminiProvider struct{}

// GeminiRequestContents is the contents list plus the dedicated system field.
type GeminiRequestContents struct {
	SystemInstruction *genai.Content   `json:"systemInstruction,omitempty"`
	Contents          []*genai.Content `json:"contents"`
}

// GeminiRole maps a canonical role to the parts protocol's role name.
func GeminiRole(r ir.Role) string {
	if r == ir.RoleAssistant {
		return string(genai.RoleModel)
	}
	return string(genai.RoleUser)
}

// ToGemini converts a conversation into contents. Tool results become
// functionResponse parts named by tool_use_id since the protocol has no call
// ids. Consecutive same-role contents are merged.
func ToGemini(messages []ir.Message, system string) (*GeminiRequestContents, error) {
	if err := ir.ValidateMessages(messages); err != nil {
		return nil, err
	}
	out := &GeminiRequestContents{Contents: make([]*genai.Content, 0, len(messages))}
	if system != "" {
		out.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	for _, msg := range messages {
		parts := geminiParts(msg)
		if len(parts) == 0 {
			continue
		}
		role := GeminiRole(msg.Role)
		if n := len(out.Contents); n > 0 && out.Contents[n-1].Role == role {
			out.Contents[n-1].Parts = append(out.Contents[n-1].Parts, parts...)
			continue
		}
		out.Contents = append(out.Contents, &genai.Content{Role: role, Parts: parts})
	}
	return out, nil
}

func geminiParts(msg ir.Message) []*genai.Part {
	if msg.Content.IsText() {
		if msg.Content.Text == "" {
			return nil
		}
		return []*genai.Part{{Text: msg.Content.Text}}
	}
	parts := make([]*genai.Part, 0, len(msg.Content.Blocks))
	for _, b := range msg.Content.Blocks {
		switch v := b.(type) {
		case ir.TextBlock:
			if v.Text != "" {
				parts = append(parts, &genai.Part{Text: v.Text})
			}
		case ir.ToolUseBlock:
			parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{Name: v.Name, Args: v.Input}})
		case ir.ToolResultBlock:
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				Name:     v.ToolUseID,
				Response: map[string]any{"content": v.Content},
			}})
		}
	}
	return parts
}

// ConvertRequest builds a generateContent request body. The model travels in
// the URL, not the body.
func (p *GeminiProvider) ConvertRequest(req *ir.Request) ([]byte, error) {
	contents, err := ToGemini(req.Messages, req.System)
	if err != nil {
		return nil, err
	}
	contentsJSON, err := json.Marshal(contents.Contents)
	if err != nil {
		return nil, err
	}

	body := []byte(`{}`)
	body, _ = sjson.SetRawBytes(body, "contents", contentsJSON)
	if contents.SystemInstruction != nil {
		sysJSON, err := json.Marshal(contents.SystemInstruction)
		if err != nil {
			return nil, err
		}
		body, _ = sjson.SetRawBytes(body, "systemInstruction", sysJSON)
	}
	if len(req.Tools) > 0 {
		tools, err := ToGeminiTools(req.Tools)
		if err != nil {
			return nil, err
		}
		toolJSON, err := json.Marshal(tools)
		if err != nil {
			return nil, err
		}
		body, _ = sjson.SetRawBytes(body, "tools", toolJSON)
	}
	if req.MaxTokens > 0 {
		body, _ = sjson.SetBytes(body, "generationConfig.maxOutputTokens", req.MaxTokens)
	}
	if req.Temperature != nil {
		body, _ = sjson.SetBytes(body, "generationConfig.temperature", *req.Temperature)
	}
	return body, nil
}

func (p *GeminiProvider) ConvertTools(tools []ir.Tool) ([]byte, error) {
	out, err := ToGeminiTools(tools)
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}
