package ir

import (
	"fmt"
	"sort"
	"strings"
)

// Accumulator replays a StreamChunk sequence into the Message it projects.
// It enforces the channel rules: a delta needs a prior start for its
// index and nothing may follow MessageStop.
type Accumulator struct {
	channels map[int]*channel
	order    []int
	stopped  bool
}

type channel struct {
	block ContentBlock
	text  strings.Builder
	args  strings.Builder
}

func NewAccumulator() *Accumulator {
	return &Accumulator{channels: make(map[int]*channel)}
}

// Add applies one chunk.
func (a *Accumulator) Add(chunk StreamChunk) error {
	if a.stopped {
		return fmt.Errorf("chunk %T after message stop", chunk)
	}
	switch c := chunk.(type) {
	case ContentBlockStart:
		if _, exists := a.channels[c.Index]; exists {
			return fmt.Errorf("duplicate content block start for index %d", c.Index)
		}
		ch := &channel{block: c.Block}
		if t, ok := c.Block.(TextBlock); ok {
			ch.text.WriteString(t.Text)
		}
		a.channels[c.Index] = ch
		a.order = append(a.order, c.Index)
	case ContentBlockDelta:
		ch, ok := a.channels[c.Index]
		if !ok {
			return fmt.Errorf("delta for index %d before its start", c.Index)
		}
		switch d := c.Delta.(type) {
		case TextDelta:
			ch.text.WriteString(d.Text)
		case InputJSONDelta:
			ch.args.WriteString(d.PartialJSON)
		default:
			return fmt.Errorf("unknown delta %T", c.Delta)
		}
	case MessageStop:
		a.stopped = true
	default:
		return fmt.Errorf("unknown stream chunk %T", chunk)
	}
	return nil
}

// Stopped reports whether MessageStop has been seen.
func (a *Accumulator) Stopped() bool {
	return a.stopped
}

// Message assembles the assistant message, ordering blocks by channel index.
func (a *Accumulator) Message() Message {
	indices := append([]int(nil), a.order...)
	sort.Ints(indices)
	blocks := make([]ContentBlock, 0, len(indices))
	for _, idx := range indices {
		ch := a.channels[idx]
		switch b := ch.block.(type) {
		case TextBlock:
			blocks = append(blocks, TextBlock{Text: ch.text.String()})
		case ToolUseBlock:
			input := b.Input
			if ch.args.Len() > 0 {
				input = ParseArgs(ch.args.String())
			}
			if input == nil {
				input = map[string]any{}
			}
			blocks = append(blocks, ToolUseBlock{ID: b.ID, Name: b.Name, Input: input})
		case ToolResultBlock:
			blocks = append(blocks, b)
		}
	}
	return Message{Role: RoleAssistant, Content: BlockContent(blocks...)}
}
