package tokens

import (
	"testing"

	"github.com/sashabogi/agent-router/internal/translator/ir"
)

func TestCountText(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"hello world", 2},
	}
	for _, tt := range tests {
		got, err := CountText(tt.in)
		if err != nil {
			t.Fatalf("CountText(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("CountText(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCountRequest(t *testing.T) {
	req := &ir.Request{
		Messages: []ir.Message{ir.UserText("hello world")},
	}
	b, err := Count(req)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if b.Messages != 2+messageOverhead+replyPriming {
		t.Errorf("Messages = %d", b.Messages)
	}
	if b.System != 0 || b.Tools != 0 || b.Total != b.Messages {
		t.Errorf("breakdown = %+v", b)
	}
}

func TestCountGrowsWithEverySource(t *testing.T) {
	base := &ir.Request{Messages: []ir.Message{ir.UserText("what is the weather")}}
	full := &ir.Request{
		System: "You are terse.",
		Messages: []ir.Message{
			ir.UserText("what is the weather"),
			{Role: ir.RoleAssistant, Content: ir.BlockContent(
				ir.ToolUseBlock{ID: "toolu_1", Name: "get_weather", Input: map[string]any{"city": "Oslo"}},
			)},
			{Role: ir.RoleUser, Content: ir.BlockContent(
				ir.ToolResultBlock{ToolUseID: "toolu_1", Content: "4C and raining"},
			)},
		},
		Tools: []ir.Tool{{
			Name:        "get_weather",
			Description: "Current weather for a city",
			InputSchema: ir.InputSchema{Type: "object", Properties: map[string]any{"city": map[string]any{"type": "string"}}},
		}},
	}

	small, err := Count(base)
	if err != nil {
		t.Fatal(err)
	}
	large, err := Count(full)
	if err != nil {
		t.Fatal(err)
	}
	if large.System == 0 || large.Tools == 0 {
		t.Errorf("expected system and tool tokens, got %+v", large)
	}
	if large.Messages <= small.Messages {
		t.Errorf("tool blocks not counted: %d <= %d", large.Messages, small.Messages)
	}
	if large.Total != large.System+large.Messages+large.Tools {
		t.Errorf("total mismatch: %+v", large)
	}
}

func TestCountNil(t *testing.T) {
	b, err := Count(nil)
	if err != nil || b.Total != 0 {
		t.Errorf("Count(nil) = %+v, %v", b, err)
	}
}
