// Package stream turns a provider's SSE response body into the canonical
// StreamChunk sequence.
package stream

import (
	"context"
	"errors"
	"io"
	"iter"
	"time"

	"github.com/tidwall/gjson"

	log "github.com/sashabogi/agent-router/internal/logging"
	"github.com/sashabogi/agent-router/internal/provider"
	"github.com/sashabogi/agent-router/internal/sseutil"
	"github.com/sashabogi/agent-router/internal/streamutil"
	"github.com/sashabogi/agent-router/internal/translator"
	"github.com/sashabogi/agent-router/internal/translator/ir"
	"github.com/sashabogi/agent-router/internal/translator/to_ir"
)

// Stream normalizes one response body. Every chunk sequence it yields ends
// with exactly one MessageStop unless an error ends it first.
//
// A Stream owns its reducer state and body; it is not safe for concurrent use
// and cannot be restarted.
type Stream struct {
	ctx     context.Context
	format  provider.Format
	body    *BodyReader
	sse     *sseutil.Reader
	reducer to_ir.StreamReducer

	pending []ir.StreamChunk
	stopped bool
	err     error
	skipped int
}

type options struct {
	idleTimeout time.Duration
	watcher     *streamutil.IdleWatcher
	sseOpts     []sseutil.Option
}

type Option func(*options)

// WithIdleTimeout closes the body when no bytes arrive for d.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *options) { o.idleTimeout = d }
}

func WithIdleWatcher(w *streamutil.IdleWatcher) Option {
	return func(o *options) { o.watcher = w }
}

// WithSSEOptions configures the line framer, e.g. a custom data prefix.
func WithSSEOptions(opts ...sseutil.Option) Option {
	return func(o *options) { o.sseOpts = append(o.sseOpts, opts...) }
}

// New starts normalizing body as format. The body is closed when the stream
// ends, fails, is closed or ctx is cancelled. An unknown format closes body
// and returns a Translation error.
func New(ctx context.Context, body io.ReadCloser, format provider.Format, opts ...Option) (*Stream, error) {
	reducer, err := translator.NewStreamReducer(format)
	if err != nil {
		_ = body.Close()
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	br := NewBodyReader(ctx, body, o.idleTimeout, o.watcher, format.String())
	return &Stream{
		ctx:     ctx,
		format:  format,
		body:    br,
		sse:     sseutil.NewReader(br, o.sseOpts...),
		reducer: reducer,
	}, nil
}

// Next returns the next chunk. After the final MessageStop it returns io.EOF.
// A provider error event yields a Translation error; read errors are returned
// unchanged and a cancelled context yields ctx.Err(). Errors are sticky.
func (s *Stream) Next() (ir.StreamChunk, error) {
	for {
		if len(s.pending) > 0 {
			chunk := s.pending[0]
			s.pending = s.pending[1:]
			if _, ok := chunk.(ir.MessageStop); ok {
				s.stopped = true
				s.pending = nil
			}
			return chunk, nil
		}
		if s.err != nil {
			return nil, s.err
		}
		if s.stopped {
			return nil, s.fail(io.EOF)
		}
		if err := s.ctx.Err(); err != nil {
			return nil, s.fail(err)
		}

		payload, err := s.sse.Next()
		if err == io.EOF {
			if ctxErr := s.ctx.Err(); ctxErr != nil {
				return nil, s.fail(ctxErr)
			}
			// the wire ended without a terminal event of its own
			_ = s.body.Close()
			s.pending = append(s.pending, ir.MessageStop{})
			continue
		}
		if err != nil {
			if ctxErr := s.ctx.Err(); ctxErr != nil {
				return nil, s.fail(ctxErr)
			}
			return nil, s.fail(err)
		}

		// Corrupt frames are wire noise, not stream failures.
		if !gjson.ValidBytes(payload) {
			s.skipped++
			log.Debugf("%s: skipping malformed stream frame (%d bytes)", s.format, len(payload))
			continue
		}

		chunks, err := s.reducer.Reduce(gjson.ParseBytes(payload))
		s.pending = append(s.pending, chunks...)
		if err != nil {
			// chunks reduced before the error are dropped with it
			s.pending = nil
			return nil, s.fail(err)
		}
	}
}

func (s *Stream) fail(err error) error {
	if s.err == nil {
		s.err = err
		_ = s.body.Close()
	}
	return s.err
}

// Close releases the body. Safe to call at any time and more than once.
func (s *Stream) Close() error {
	if s.err == nil {
		s.err = errClosed
	}
	return s.body.Close()
}

var errClosed = errors.New("stream: closed")

// Meta returns out-of-band metadata observed so far.
func (s *Stream) Meta() ir.StreamMeta {
	return s.reducer.Meta()
}

// Skipped reports how many malformed frames were dropped.
func (s *Stream) Skipped() int {
	return s.skipped
}

// All ranges over the remaining chunks, closing the stream when the loop
// ends for any reason. A terminal error is yielded once with a nil chunk.
func (s *Stream) All() iter.Seq2[ir.StreamChunk, error] {
	return func(yield func(ir.StreamChunk, error) bool) {
		defer s.Close()
		for {
			chunk, err := s.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// Chan delivers the chunks on a channel fed by a background goroutine. The
// channel closes after the final chunk or error; cancelling ctx stops the
// producer and closes the body. The producer owns the stream: it is closed
// when the channel closes and only Meta may be used afterwards.
func (s *Stream) Chan(ctx context.Context) <-chan streamutil.Item[ir.StreamChunk] {
	p := streamutil.NewPipeline(ctx, streamutil.PipelineConfig[ir.StreamChunk]{
		OnComplete: func(success bool, elapsed time.Duration) {
			log.Debugf("%s: stream finished in %v (success=%t)", s.format, elapsed.Round(time.Millisecond), success)
		},
	})
	p.Go(func(ctx context.Context) error {
		defer s.Close()
		stop := context.AfterFunc(ctx, func() { _ = s.body.Close() })
		defer stop()
		for chunk, err := range s.All() {
			if err != nil {
				p.SendError(err)
				return nil
			}
			if !p.SendValue(chunk) {
				return ctx.Err()
			}
		}
		return nil
	})
	p.Start()
	return p.Output()
}

// Collect drains the stream into the assistant message it describes.
func (s *Stream) Collect() (ir.Message, ir.StreamMeta, error) {
	acc := ir.NewAccumulator()
	for chunk, err := range s.All() {
		if err != nil {
			return ir.Message{}, s.Meta(), err
		}
		if err := acc.Add(chunk); err != nil {
			return ir.Message{}, s.Meta(), ir.NewTranslationError(-1, "%s stream: %v", s.format, err)
		}
	}
	return acc.Message(), s.Meta(), nil
}
