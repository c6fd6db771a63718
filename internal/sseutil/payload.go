package sseutil

import "bytes"

var doneMarker = []byte(DefaultDoneSentinel)

// Frame renders one SSE event. An empty event name writes a bare data line.
func Frame(event string, data []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(event) + len(data) + 16)
	if event != "" {
		buf.WriteString("event: ")
		buf.WriteString(event)
		buf.WriteByte('\n')
	}
	buf.WriteString(DefaultDataPrefix)
	buf.Write(data)
	buf.WriteString("\n\n")
	return buf.Bytes()
}

// Done renders the end-of-stream sentinel event.
func Done() []byte {
	return Frame("", doneMarker)
}
