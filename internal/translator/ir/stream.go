package ir

// StreamChunk is a closed union: ContentBlockStart, ContentBlockDelta or
// MessageStop.
//
// Index partitions the output into append-only channels. A delta for index i
// is always preceded by exactly one start for i, and MessageStop is terminal.
type StreamChunk interface {
	isStreamChunk()
}

type ContentBlockStart struct {
	Index int
	Block ContentBlock // initial shape: empty text, or tool use with empty input
}

type ContentBlockDelta struct {
	Index int
	Delta Delta
}

type MessageStop struct{}

func (ContentBlockStart) isStreamChunk() {}
func (ContentBlockDelta) isStreamChunk() {}
func (MessageStop) isStreamChunk()       {}

// Delta is a closed union: TextDelta or InputJSONDelta.
type Delta interface {
	isDelta()
}

type TextDelta struct {
	Text string
}

// InputJSONDelta carries one fragment of a tool call's JSON arguments.
type InputJSONDelta struct {
	PartialJSON string
}

func (TextDelta) isDelta()      {}
func (InputJSONDelta) isDelta() {}

// StreamMeta is out-of-band information observed while normalizing a stream.
// It never appears as a StreamChunk.
type StreamMeta struct {
	MessageID  string
	Model      string
	StopReason StopReason
	Usage      Usage
}
