package translator

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/sashabogi/agent-router/internal/provider"
	"github.com/sashabogi/agent-router/internal/translator/ir"
)

func sampleTools() []ir.Tool {
	return []ir.Tool{
		{
			Name:        "search",
			Description: "Search the docs",
			InputSchema: ir.InputSchema{
				Type: "object",
				Properties: map[string]any{
					"query": map[string]any{"type": "string"},
					"limit": map[string]any{"type": "integer"},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "now",
			Description: "Current time",
			InputSchema: ir.InputSchema{Type: "object", Properties: map[string]any{}},
		},
	}
}

func TestToolRoundTrip(t *testing.T) {
	for _, format := range provider.Formats {
		t.Run(format.String(), func(t *testing.T) {
			raw, err := ToProviderTools(sampleTools(), format)
			if err != nil {
				t.Fatalf("ToProviderTools: %v", err)
			}
			back, err := FromProviderTools(raw, format)
			if err != nil {
				t.Fatalf("FromProviderTools: %v", err)
			}
			if !reflect.DeepEqual(back, sampleTools()) {
				t.Errorf("round trip mismatch:\n got %#v\nwant %#v", back, sampleTools())
			}
		})
	}
}

func TestRegistryFormats(t *testing.T) {
	got := GetRegistry().Formats()
	want := []provider.Format{provider.FormatClaude, provider.FormatGemini, provider.FormatOpenAI}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Formats() = %v, want %v", got, want)
	}
}

func TestUnknownFormat(t *testing.T) {
	_, err := ToProviderTools(sampleTools(), provider.Format("cohere"))
	if !errors.Is(err, ir.ErrTranslation) {
		t.Errorf("expected translation error, got %v", err)
	}
	if _, err := NewStreamReducer(provider.Format("cohere")); !errors.Is(err, ir.ErrTranslation) {
		t.Errorf("expected translation error, got %v", err)
	}
}

// replyEchoing wraps the first rendered message of a request body in the
// provider's response shape, as if the model had answered with it.
var replyEchoing = map[provider.Format]func(body []byte) string{
	provider.FormatClaude: func(body []byte) string {
		return `{"content":` + gjson.GetBytes(body, "messages.0.content").Raw + `,"stop_reason":"end_turn"}`
	},
	provider.FormatOpenAI: func(body []byte) string {
		return `{"choices":[{"message":{"role":"assistant","content":` + gjson.GetBytes(body, "messages.0.content").Raw + `},"finish_reason":"stop"}]}`
	},
	provider.FormatGemini: func(body []byte) string {
		return `{"candidates":[{"content":` + gjson.GetBytes(body, "contents.0").Raw + `,"finishReason":"STOP"}]}`
	},
}

func TestTextContentSurvivesProviderRoundTrip(t *testing.T) {
	msg := ir.Message{Role: ir.RoleUser, Content: ir.BlockContent(
		ir.TextBlock{Text: "first line"},
		ir.TextBlock{Text: "second, with  spaces"},
		ir.TextBlock{Text: "third"},
	)}
	want := ir.CombineTextParts(msg)

	for _, format := range provider.Formats {
		t.Run(format.String(), func(t *testing.T) {
			body, err := BuildRequest(&ir.Request{Model: "m", Messages: []ir.Message{msg}}, format)
			if err != nil {
				t.Fatalf("BuildRequest: %v", err)
			}
			echo, ok := replyEchoing[format]
			if !ok {
				t.Fatalf("no reply shape for %s", format)
			}
			resp, err := ParseResponse([]byte(echo(body)), format)
			if err != nil {
				t.Fatalf("ParseResponse: %v", err)
			}
			if got := ir.CombineTextParts(resp.Message); got != want {
				t.Errorf("text = %q, want %q", got, want)
			}
		})
	}
}

func TestBuildRequestAndParseResponse(t *testing.T) {
	req := &ir.Request{Model: "m", Messages: []ir.Message{ir.UserText("hi")}}
	for _, format := range provider.Formats {
		body, err := BuildRequest(req, format)
		if err != nil {
			t.Fatalf("%s: BuildRequest: %v", format, err)
		}
		if !gjson.ValidBytes(body) {
			t.Errorf("%s: invalid body %s", format, body)
		}
	}

	resp, err := ParseResponse([]byte(`{"content":[{"type":"text","text":"yo"}],"stop_reason":"end_turn"}`), MustFormat("anthropic"))
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if ir.CombineTextParts(resp.Message) != "yo" {
		t.Errorf("message = %+v", resp.Message)
	}

	if _, err := BuildRequest(nil, provider.FormatClaude); err == nil {
		t.Error("expected error for nil request")
	}
}
