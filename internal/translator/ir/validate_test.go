package ir

import (
	"errors"
	"testing"
)

func validTool(name string) Tool {
	return Tool{
		Name:        name,
		Description: "does " + name,
		InputSchema: InputSchema{
			Type:       "object",
			Properties: map[string]any{"q": map[string]any{"type": "string"}},
			Required:   []string{"q"},
		},
	}
}

func TestValidateTools(t *testing.T) {
	noProps := validTool("c")
	noProps.InputSchema.Properties = nil
	wrongType := validTool("b")
	wrongType.InputSchema.Type = "array"
	noDesc := validTool("d")
	noDesc.Description = ""

	tests := []struct {
		name      string
		tools     []Tool
		wantIndex int
	}{
		{"all valid", []Tool{validTool("a"), validTool("b")}, -1},
		{"empty list", nil, -1},
		{"missing name", []Tool{validTool("a"), {Description: "x", InputSchema: InputSchema{Type: "object", Properties: map[string]any{}}}}, 1},
		{"missing description", []Tool{noDesc}, 0},
		{"non-object schema", []Tool{validTool("a"), validTool("x"), wrongType}, 2},
		{"missing properties", []Tool{noProps}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTools(tt.tools)
			if tt.wantIndex < 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrTranslation) {
				t.Fatalf("expected translation error, got %v", err)
			}
			e, _ := AsError(err)
			if e.Index != tt.wantIndex {
				t.Errorf("Index = %d, want %d", e.Index, tt.wantIndex)
			}
		})
	}
}
