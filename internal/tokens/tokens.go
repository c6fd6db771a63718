// Package tokens estimates prompt sizes for canonical requests.
//
// Counts use the cl100k_base encoding for every provider, so they are
// estimates for claude and gemini models.
package tokens

import (
	"fmt"
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/sashabogi/agent-router/internal/translator/ir"
)

// Per-message and per-tool framing overhead, in tokens.
const (
	messageOverhead = 4
	toolOverhead    = 8
	replyPriming    = 3
)

// Breakdown is a request's token estimate split by source.
type Breakdown struct {
	System   int `json:"system"`
	Messages int `json:"messages"`
	Tools    int `json:"tools"`
	Total    int `json:"total"`
}

var codec = sync.OnceValues(func() (tokenizer.Codec, error) {
	return tokenizer.Get(tokenizer.Cl100kBase)
})

// CountText returns the number of tokens in s.
func CountText(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	enc, err := codec()
	if err != nil {
		return 0, fmt.Errorf("load tokenizer: %w", err)
	}
	ids, _, err := enc.Encode(s)
	if err != nil {
		return 0, fmt.Errorf("encode: %w", err)
	}
	return len(ids), nil
}

// Count estimates the prompt tokens req would consume.
func Count(req *ir.Request) (Breakdown, error) {
	var b Breakdown
	if req == nil {
		return b, nil
	}

	n, err := CountText(req.System)
	if err != nil {
		return b, err
	}
	b.System = n

	for _, msg := range req.Messages {
		n, err := countContent(msg.Content)
		if err != nil {
			return b, err
		}
		b.Messages += n + messageOverhead
	}
	if len(req.Messages) > 0 {
		b.Messages += replyPriming
	}

	for _, tool := range req.Tools {
		n, err := countTool(tool)
		if err != nil {
			return b, err
		}
		b.Tools += n + toolOverhead
	}

	b.Total = b.System + b.Messages + b.Tools
	return b, nil
}

func countContent(c ir.Content) (int, error) {
	if c.IsText() {
		return CountText(c.Text)
	}
	total := 0
	for _, block := range c.Blocks {
		var s string
		switch blk := block.(type) {
		case ir.TextBlock:
			s = blk.Text
		case ir.ToolUseBlock:
			s = blk.Name + " " + ir.MarshalArgs(blk.Input)
		case ir.ToolResultBlock:
			s = blk.Content
		}
		n, err := CountText(s)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func countTool(tool ir.Tool) (int, error) {
	schema := ir.MarshalArgs(tool.InputSchema.Properties)
	return CountText(tool.Name + " " + tool.Description + " " + schema)
}
