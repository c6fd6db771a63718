package stream

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sashabogi/agent-router/internal/logging"
	"github.com/sashabogi/agent-router/internal/streamutil"
)

// ErrIdleTimeout is returned by reads after an upstream stalled for longer
// than the idle limit. It wraps os.ErrDeadlineExceeded.
var ErrIdleTimeout = fmt.Errorf("stream idle timeout: %w", os.ErrDeadlineExceeded)

// BodyReader wraps a response body so that context cancellation and idle
// stalls close it, unblocking any pending Read.
type BodyReader struct {
	body      io.ReadCloser
	name      string
	closed    atomic.Bool
	idle      atomic.Bool
	closeOnce sync.Once
	closeErr  error
	stopCtx   func() bool
	touch     func()
	unwatch   func()
}

// NewBodyReader starts watching body. idleTimeout 0 disables idle detection;
// watcher nil uses the process-wide watcher.
func NewBodyReader(ctx context.Context, body io.ReadCloser, idleTimeout time.Duration, watcher *streamutil.IdleWatcher, name string) *BodyReader {
	br := &BodyReader{body: body, name: name, touch: func() {}, unwatch: func() {}}
	br.stopCtx = context.AfterFunc(ctx, func() {
		br.closeWithReason("context cancelled")
	})
	if idleTimeout > 0 {
		if watcher == nil {
			watcher = streamutil.DefaultIdleWatcher()
		}
		br.touch, br.unwatch = watcher.Register(idleTimeout, func() {
			log.Warnf("%s: stream stalled for more than %v, closing connection", name, idleTimeout)
			br.idle.Store(true)
			br.closeWithReason("idle timeout")
		})
	}
	return br
}

// Read implements io.Reader. After an idle close it returns ErrIdleTimeout;
// after any other close it returns io.EOF.
func (br *BodyReader) Read(p []byte) (int, error) {
	if br.closed.Load() {
		return 0, br.closedErr()
	}
	n, err := br.body.Read(p)
	if n > 0 {
		br.touch()
	}
	if err != nil && br.closed.Load() {
		return n, br.closedErr()
	}
	return n, err
}

func (br *BodyReader) closedErr() error {
	if br.idle.Load() {
		return ErrIdleTimeout
	}
	return io.EOF
}

func (br *BodyReader) closeWithReason(reason string) {
	br.closeOnce.Do(func() {
		br.closed.Store(true)
		br.closeErr = br.body.Close()
		log.Debugf("%s: stream closed: %s", br.name, reason)
	})
}

// Close implements io.Closer. Safe to call multiple times.
func (br *BodyReader) Close() error {
	br.closeWithReason("explicit close")
	br.stopCtx()
	br.unwatch()
	return br.closeErr
}
