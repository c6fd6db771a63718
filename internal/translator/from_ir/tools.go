package from_ir

import "github.com/sashabogi/agent-router/internal/translator/ir"

type ClaudeTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type OpenAITool struct {
	Type     string         `json:"type"`
	Function OpenAIFunction `json:"function"`
}

type OpenAIFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// GeminiTool groups every declaration into one wrapper.
type GeminiTool struct {
	FunctionDeclarations []GeminiFunctionDeclaration `json:"functionDeclarations"`
}

type GeminiFunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToClaudeTools validates tools and renders them as a flat array.
func ToClaudeTools(tools []ir.Tool) ([]ClaudeTool, error) {
	if err := ir.ValidateTools(tools); err != nil {
		return nil, err
	}
	out := make([]ClaudeTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, ClaudeTool{Name: t.Name, Description: t.Description, InputSchema: ir.SchemaToWire(t.InputSchema)})
	}
	return out, nil
}

// ToOpenAITools validates tools and wraps each in a function envelope.
func ToOpenAITools(tools []ir.Tool) ([]OpenAITool, error) {
	if err := ir.ValidateTools(tools); err != nil {
		return nil, err
	}
	out := make([]OpenAITool, 0, len(tools))
	for _, t := range tools {
		out = append(out, OpenAITool{
			Type:     "function",
			Function: OpenAIFunction{Name: t.Name, Description: t.Description, Parameters: ir.SchemaToWire(t.InputSchema)},
		})
	}
	return out, nil
}

// ToGeminiTools validates tools and returns a single wrapper holding all
// declarations. No tools yields an empty list, not an empty wrapper.
func ToGeminiTools(tools []ir.Tool) ([]GeminiTool, error) {
	if err := ir.ValidateTools(tools); err != nil {
		return nil, err
	}
	if len(tools) == 0 {
		return []GeminiTool{}, nil
	}
	decls := make([]GeminiFunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, GeminiFunctionDeclaration{Name: t.Name, Description: t.Description, Parameters: ir.SchemaToWire(t.InputSchema)})
	}
	return []GeminiTool{{FunctionDeclarations: decls}}, nil
}
