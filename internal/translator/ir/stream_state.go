package ir

// ChannelState allocates stream channel indices for normalizers that must
// synthesize block starts. Text takes channel 0 when free. Tool channels are
// offset by one while a text channel is active and never alias another channel.
//
// A ChannelState belongs to exactly one stream.
type ChannelState struct {
	textIndex int
	used      map[int]bool
}

func NewChannelState() *ChannelState {
	return &ChannelState{textIndex: -1, used: make(map[int]bool)}
}

// TextStarted reports whether a text channel has been opened.
func (s *ChannelState) TextStarted() bool {
	return s.textIndex >= 0
}

// TextIndex returns the text channel, or -1 if none is open.
func (s *ChannelState) TextIndex() int {
	return s.textIndex
}

// StartText opens the text channel if needed. first is true only on the call
// that opened it.
func (s *ChannelState) StartText() (index int, first bool) {
	if s.textIndex >= 0 {
		return s.textIndex, false
	}
	s.textIndex = s.claim(0)
	return s.textIndex, true
}

// AllocTool opens a channel for the provider's tool call index.
func (s *ChannelState) AllocTool(providerIndex int) int {
	idx := providerIndex
	if s.textIndex >= 0 {
		idx++
	}
	return s.claim(idx)
}

func (s *ChannelState) claim(idx int) int {
	if idx < 0 {
		idx = 0
	}
	for s.used[idx] {
		idx++
	}
	s.used[idx] = true
	return idx
}

// Reset clears all state.
func (s *ChannelState) Reset() {
	s.textIndex = -1
	clear(s.used)
}
