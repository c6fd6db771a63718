// Package sseutil frames Server-Sent Events byte streams into payloads. It is
// shared by the stream normalizer and the gateway without importing either.
package sseutil

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

const (
	DefaultDataPrefix   = "data: "
	DefaultDoneSentinel = "[DONE]"
	DefaultMaxLineSize  = 8 << 20
)

// ErrLineTooLong is returned when a single line exceeds the configured limit.
var ErrLineTooLong = errors.New("sseutil: line exceeds maximum size")

// Reader yields the payload of each data line. Partial lines are buffered
// across reads; event, id, retry, comment and blank lines are skipped.
// A Reader is not safe for concurrent use.
type Reader struct {
	br          *bufio.Reader
	prefix      []byte
	bare        []byte // prefix without its trailing space
	sentinel    []byte
	maxLineSize int
	line        []byte
	done        bool
	err         error // read error held back behind a final payload
}

type Option func(*Reader)

// WithDataPrefix replaces the "data: " prefix. The prefix is also accepted
// without its trailing space.
func WithDataPrefix(prefix string) Option {
	return func(r *Reader) {
		r.prefix = []byte(prefix)
	}
}

// WithDoneSentinel replaces the "[DONE]" end-of-stream payload. An empty
// sentinel disables sentinel detection.
func WithDoneSentinel(sentinel string) Option {
	return func(r *Reader) {
		r.sentinel = []byte(sentinel)
	}
}

func WithMaxLineSize(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxLineSize = n
		}
	}
}

func NewReader(rd io.Reader, opts ...Option) *Reader {
	r := &Reader{
		br:          bufio.NewReaderSize(rd, 64<<10),
		prefix:      []byte(DefaultDataPrefix),
		sentinel:    []byte(DefaultDoneSentinel),
		maxLineSize: DefaultMaxLineSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.bare = bytes.TrimRight(r.prefix, " ")
	return r
}

// Next returns the next data payload. It returns io.EOF after the sentinel
// or at the end of input, and any other read error unchanged. A read error
// that arrives with a final unterminated payload is returned by the call
// after that payload. The returned slice is only valid until the next call.
func (r *Reader) Next() ([]byte, error) {
	for {
		if r.err != nil {
			err := r.err
			r.err = nil
			r.done = true
			return nil, err
		}
		if r.done {
			return nil, io.EOF
		}
		line, err := r.readLine()
		if len(line) > 0 {
			if payload, ok := r.payload(line); ok {
				if len(r.sentinel) > 0 && bytes.Equal(payload, r.sentinel) {
					r.done = true
					return nil, io.EOF
				}
				switch {
				case err == io.EOF:
					r.done = true
				case err != nil:
					r.err = err
				}
				return payload, nil
			}
		}
		if err != nil {
			if err == io.EOF {
				r.done = true
			}
			return nil, err
		}
	}
}

// readLine returns one line without its terminator. A final unterminated
// line is returned together with io.EOF.
func (r *Reader) readLine() ([]byte, error) {
	r.line = r.line[:0]
	for {
		chunk, err := r.br.ReadSlice('\n')
		r.line = append(r.line, chunk...)
		if len(r.line) > r.maxLineSize {
			return nil, fmt.Errorf("%w (%d bytes)", ErrLineTooLong, r.maxLineSize)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return bytes.TrimRight(r.line, "\r\n"), err
	}
}

func (r *Reader) payload(line []byte) ([]byte, bool) {
	switch {
	case bytes.HasPrefix(line, r.prefix):
		return bytes.TrimSpace(line[len(r.prefix):]), true
	case len(r.bare) > 0 && bytes.HasPrefix(line, r.bare):
		return bytes.TrimSpace(line[len(r.bare):]), true
	default:
		return nil, false
	}
}
