package ir

import (
	"fmt"
	"sync"

	"github.com/sashabogi/agent-router/internal/json"
)

// Content-block protocol SSE event names.
const (
	ClaudeSSEMessageStart      = "message_start"
	ClaudeSSEMessageDelta      = "message_delta"
	ClaudeSSEMessageStop       = "message_stop"
	ClaudeSSEContentBlockStart = "content_block_start"
	ClaudeSSEContentBlockDelta = "content_block_delta"
	ClaudeSSEContentBlockStop  = "content_block_stop"
	ClaudeSSEPing              = "ping"
	ClaudeSSEError             = "error"

	ClaudeBlockText    = "text"
	ClaudeBlockToolUse = "tool_use"

	ClaudeDeltaText      = "text_delta"
	ClaudeDeltaInputJSON = "input_json_delta"
)

type ClaudeTextBlockStart struct {
	Type         string                 `json:"type"`
	Index        int                    `json:"index"`
	ContentBlock ClaudeTextContentBlock `json:"content_block"`
}

type ClaudeTextContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ClaudeTextDelta struct {
	Type  string               `json:"type"`
	Index int                  `json:"index"`
	Delta ClaudeTextDeltaInner `json:"delta"`
}

type ClaudeTextDeltaInner struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

var claudeTextDeltaPool = sync.Pool{
	New: func() any {
		return &ClaudeTextDelta{
			Type:  ClaudeSSEContentBlockDelta,
			Delta: ClaudeTextDeltaInner{Type: ClaudeDeltaText},
		}
	},
}

func GetClaudeTextDelta() *ClaudeTextDelta {
	return claudeTextDeltaPool.Get().(*ClaudeTextDelta)
}

func PutClaudeTextDelta(d *ClaudeTextDelta) {
	d.Index = 0
	d.Delta.Text = ""
	claudeTextDeltaPool.Put(d)
}

type ClaudeToolCallBlockStart struct {
	Type         string                     `json:"type"`
	Index        int                        `json:"index"`
	ContentBlock ClaudeToolCallContentBlock `json:"content_block"`
}

type ClaudeToolCallContentBlock struct {
	Type  string         `json:"type"`
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

type ClaudeToolCallInputDelta struct {
	Type  string                        `json:"type"`
	Index int                           `json:"index"`
	Delta ClaudeToolCallInputDeltaInner `json:"delta"`
}

type ClaudeToolCallInputDeltaInner struct {
	Type        string `json:"type"`
	PartialJSON string `json:"partial_json"`
}

var claudeToolCallInputDeltaPool = sync.Pool{
	New: func() any {
		return &ClaudeToolCallInputDelta{
			Type:  ClaudeSSEContentBlockDelta,
			Delta: ClaudeToolCallInputDeltaInner{Type: ClaudeDeltaInputJSON},
		}
	},
}

func GetClaudeToolCallInputDelta() *ClaudeToolCallInputDelta {
	return claudeToolCallInputDeltaPool.Get().(*ClaudeToolCallInputDelta)
}

func PutClaudeToolCallInputDelta(d *ClaudeToolCallInputDelta) {
	d.Index = 0
	d.Delta.PartialJSON = ""
	claudeToolCallInputDeltaPool.Put(d)
}

type claudeMessageStop struct {
	Type string `json:"type"`
}

func BuildClaudeTextBlockStartSSE(index int, text string) []byte {
	jb, _ := json.Marshal(ClaudeTextBlockStart{
		Type:         ClaudeSSEContentBlockStart,
		Index:        index,
		ContentBlock: ClaudeTextContentBlock{Type: ClaudeBlockText, Text: text},
	})
	return BuildSSEEvent(ClaudeSSEContentBlockStart, jb)
}

// BuildClaudeTextDeltaSSE builds an SSE event for a text delta.
func BuildClaudeTextDeltaSSE(index int, text string) []byte {
	d := GetClaudeTextDelta()
	defer PutClaudeTextDelta(d)

	d.Index = index
	d.Delta.Text = text

	jb, _ := json.Marshal(d)
	return BuildSSEEvent(ClaudeSSEContentBlockDelta, jb)
}

func BuildClaudeToolCallBlockStartSSE(index int, toolID, name string) []byte {
	jb, _ := json.Marshal(ClaudeToolCallBlockStart{
		Type:  ClaudeSSEContentBlockStart,
		Index: index,
		ContentBlock: ClaudeToolCallContentBlock{
			Type:  ClaudeBlockToolUse,
			ID:    toolID,
			Name:  name,
			Input: map[string]any{},
		},
	})
	return BuildSSEEvent(ClaudeSSEContentBlockStart, jb)
}

func BuildClaudeToolCallInputDeltaSSE(index int, partialJSON string) []byte {
	d := GetClaudeToolCallInputDelta()
	defer PutClaudeToolCallInputDelta(d)

	d.Index = index
	d.Delta.PartialJSON = partialJSON

	jb, _ := json.Marshal(d)
	return BuildSSEEvent(ClaudeSSEContentBlockDelta, jb)
}

func BuildClaudeMessageStopSSE() []byte {
	jb, _ := json.Marshal(claudeMessageStop{Type: ClaudeSSEMessageStop})
	return BuildSSEEvent(ClaudeSSEMessageStop, jb)
}

// EncodeChunkSSE renders a canonical chunk as a content-block protocol SSE event.
func EncodeChunkSSE(chunk StreamChunk) ([]byte, error) {
	switch c := chunk.(type) {
	case ContentBlockStart:
		switch b := c.Block.(type) {
		case TextBlock:
			return BuildClaudeTextBlockStartSSE(c.Index, b.Text), nil
		case ToolUseBlock:
			return BuildClaudeToolCallBlockStartSSE(c.Index, b.ID, b.Name), nil
		default:
			return nil, fmt.Errorf("cannot stream block type %T", c.Block)
		}
	case ContentBlockDelta:
		switch d := c.Delta.(type) {
		case TextDelta:
			return BuildClaudeTextDeltaSSE(c.Index, d.Text), nil
		case InputJSONDelta:
			return BuildClaudeToolCallInputDeltaSSE(c.Index, d.PartialJSON), nil
		default:
			return nil, fmt.Errorf("unknown delta %T", c.Delta)
		}
	case MessageStop:
		return BuildClaudeMessageStopSSE(), nil
	default:
		return nil, fmt.Errorf("unknown stream chunk %T", chunk)
	}
}

// BuildClaudeErrorSSE renders an in-stream error event.
func BuildClaudeErrorSSE(errType, message string) []byte {
	jb, _ := json.Marshal(map[string]any{
		"type":  ClaudeSSEError,
		"error": map[string]string{"type": errType, "message": message},
	})
	return BuildSSEEvent(ClaudeSSEError, jb)
}
