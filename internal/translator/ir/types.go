// Package ir holds the canonical, provider-agnostic representation that every
// translator reads and writes: messages, content blocks, tools, stream chunks
// and the classified error taxonomy.
package ir

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the canonical conversation roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one conversation turn. Ordering of messages is significant.
type Message struct {
	Role    Role
	Content Content
}

// Content is either a plain string or an ordered list of blocks.
// A nil Blocks slice means the content is Text.
type Content struct {
	Text   string
	Blocks []ContentBlock
}

// TextContent builds string content.
func TextContent(s string) Content {
	return Content{Text: s}
}

// BlockContent builds block content. An empty call yields an empty, non-nil list.
func BlockContent(blocks ...ContentBlock) Content {
	if blocks == nil {
		blocks = []ContentBlock{}
	}
	return Content{Blocks: blocks}
}

// IsText reports whether the content is a plain string.
func (c Content) IsText() bool {
	return c.Blocks == nil
}

// AsBlocks returns the content as a block list, coercing a non-empty string
// into a single text block.
func (c Content) AsBlocks() []ContentBlock {
	if !c.IsText() {
		return c.Blocks
	}
	if c.Text == "" {
		return []ContentBlock{}
	}
	return []ContentBlock{TextBlock{Text: c.Text}}
}

// UserText is shorthand for a user message with string content.
func UserText(s string) Message {
	return Message{Role: RoleUser, Content: TextContent(s)}
}

// AssistantText is shorthand for an assistant message with string content.
func AssistantText(s string) Message {
	return Message{Role: RoleAssistant, Content: TextContent(s)}
}

// ContentBlockType is the wire tag of a ContentBlock variant.
type ContentBlockType string

const (
	BlockTypeText       ContentBlockType = "text"
	BlockTypeToolUse    ContentBlockType = "tool_use"
	BlockTypeToolResult ContentBlockType = "tool_result"
)

// ContentBlock is a closed union: TextBlock, ToolUseBlock or ToolResultBlock.
type ContentBlock interface {
	BlockType() ContentBlockType
	isContentBlock()
}

type TextBlock struct {
	Text string
}

// ToolUseBlock is a model request to invoke a tool. ID correlates with a later
// ToolResultBlock.
type ToolUseBlock struct {
	ID    string
	Name  string
	Input map[string]any
}

type ToolResultBlock struct {
	ToolUseID string
	Content   string
}

func (TextBlock) BlockType() ContentBlockType       { return BlockTypeText }
func (ToolUseBlock) BlockType() ContentBlockType    { return BlockTypeToolUse }
func (ToolResultBlock) BlockType() ContentBlockType { return BlockTypeToolResult }

func (TextBlock) isContentBlock()       {}
func (ToolUseBlock) isContentBlock()    {}
func (ToolResultBlock) isContentBlock() {}

// Tool describes a function the model may call. The shape mirrors the
// content-block protocol natively.
type Tool struct {
	Name        string
	Description string
	InputSchema InputSchema
}

type InputSchema struct {
	Type       string         // always "object" for a valid tool
	Properties map[string]any // property name -> JSON schema
	Required   []string       // optional
}

// Request is everything needed to build a provider request body.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Tools       []Tool
	MaxTokens   int
	Temperature *float64
	Stream      bool
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

// StopReason normalizes the provider's reason for ending generation.
type StopReason string

const (
	StopReasonEndTurn   StopReason = "end_turn"
	StopReasonMaxTokens StopReason = "max_tokens"
	StopReasonToolUse   StopReason = "tool_use"
	StopReasonStop      StopReason = "stop_sequence"
	StopReasonUnknown   StopReason = ""
)
