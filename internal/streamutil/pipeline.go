// Package streamutil provides the goroutine and channel plumbing shared by
// streaming consumers.
package streamutil

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Item is one value flowing through a pipeline, or the error that ended it.
type Item[T any] struct {
	Value T
	Err   error
}

// Pipeline runs producers in an errgroup and fans their items into a single
// output channel. The channel is closed once every producer has returned.
type Pipeline[T any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	output chan Item[T]

	onItem     func(Item[T])
	onComplete func(success bool, elapsed time.Duration)

	startTime time.Time
	mu        sync.Mutex
	completed bool
	hasError  bool
}

type PipelineConfig[T any] struct {
	// BufferSize for the output channel (default: 16)
	BufferSize int

	// OnItem is called for each item before it is delivered (optional)
	OnItem func(Item[T])

	// OnComplete is called once when the pipeline finishes (optional)
	OnComplete func(success bool, elapsed time.Duration)
}

func NewPipeline[T any](parent context.Context, cfg PipelineConfig[T]) *Pipeline[T] {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 16
	}
	ctx, cancel := context.WithCancel(parent)
	g, gctx := errgroup.WithContext(ctx)
	return &Pipeline[T]{
		ctx:        gctx,
		cancel:     cancel,
		group:      g,
		output:     make(chan Item[T], cfg.BufferSize),
		onItem:     cfg.OnItem,
		onComplete: cfg.OnComplete,
		startTime:  time.Now(),
	}
}

func (p *Pipeline[T]) Context() context.Context {
	return p.ctx
}

func (p *Pipeline[T]) Output() <-chan Item[T] {
	return p.output
}

// Go starts a producer. A non-nil error cancels the other producers.
func (p *Pipeline[T]) Go(f func(ctx context.Context) error) {
	p.group.Go(func() error {
		return f(p.ctx)
	})
}

// Send delivers an item. It returns false once the pipeline is cancelled.
func (p *Pipeline[T]) Send(item Item[T]) bool {
	if item.Err != nil {
		p.mu.Lock()
		p.hasError = true
		p.mu.Unlock()
	}
	if p.onItem != nil {
		p.onItem(item)
	}
	select {
	case p.output <- item:
		return true
	case <-p.ctx.Done():
		return false
	}
}

func (p *Pipeline[T]) SendValue(v T) bool {
	return p.Send(Item[T]{Value: v})
}

func (p *Pipeline[T]) SendError(err error) bool {
	return p.Send(Item[T]{Err: err})
}

// Close waits for all producers, closes the output channel and reports
// completion. Safe to call more than once.
func (p *Pipeline[T]) Close() error {
	p.mu.Lock()
	if p.completed {
		p.mu.Unlock()
		return nil
	}
	p.completed = true
	p.mu.Unlock()

	err := p.group.Wait()
	close(p.output)

	p.mu.Lock()
	hasError := p.hasError
	p.mu.Unlock()
	if p.onComplete != nil {
		p.onComplete(err == nil && !hasError, time.Since(p.startTime))
	}
	p.cancel()
	return err
}

// Cancel stops producers blocked in Send.
func (p *Pipeline[T]) Cancel() {
	p.cancel()
}

// Start closes the pipeline in the background once producers finish, so
// consumers can simply range over Output.
func (p *Pipeline[T]) Start() {
	go func() {
		_ = p.Close()
	}()
}
