// Package executor sends canonical requests to upstream providers and hands
// the responses to the translation layer.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sashabogi/agent-router/internal/config"
	log "github.com/sashabogi/agent-router/internal/logging"
	"github.com/sashabogi/agent-router/internal/provider"
	"github.com/sashabogi/agent-router/internal/resilience"
	"github.com/sashabogi/agent-router/internal/runtime/stream"
	"github.com/sashabogi/agent-router/internal/streamutil"
	"github.com/sashabogi/agent-router/internal/translator"
	"github.com/sashabogi/agent-router/internal/translator/ir"
	"github.com/sashabogi/agent-router/internal/translator/to_ir"
	"github.com/sashabogi/agent-router/internal/transport"
)

const (
	DefaultTimeout     = 10 * time.Minute
	DefaultIdleTimeout = 2 * time.Minute
)

// Client talks to one configured provider.
type Client struct {
	cfg     config.Provider
	name    string
	format  provider.Format
	baseURL string

	http    *http.Client
	limiter *rate.Limiter
	breaker *resilience.StreamingCircuitBreaker
	watcher *streamutil.IdleWatcher

	completeRetry *resilience.Executor[*to_ir.Response]
	openRetry     *resilience.Executor[*http.Response]
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the pooled transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithIdleWatcher shares a watchdog between clients.
func WithIdleWatcher(w *streamutil.IdleWatcher) Option {
	return func(c *Client) { c.watcher = w }
}

// New validates cfg and builds a client for it.
func New(cfg config.Provider, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	format, _ := cfg.Format()

	c := &Client{
		cfg:     cfg,
		name:    cfg.GetDisplayName(),
		format:  format,
		baseURL: cfg.BaseURL,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL(format)
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		hc, err := transport.NewHTTPClient(cfg.ProxyURL)
		if err != nil {
			return nil, ir.NewConfigurationError(c.name, "invalid proxy-url", err)
		}
		c.http = hc
	}
	if c.watcher == nil {
		c.watcher = streamutil.DefaultIdleWatcher()
	}

	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	breakerCfg := resilience.DefaultBreakerConfig(c.name)
	breakerCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warnf("%s: circuit breaker %s -> %s", name, from, to)
	}
	c.breaker = resilience.NewStreamingCircuitBreaker(breakerCfg)

	if cfg.MaxRetries > 0 {
		retryCfg := resilience.RetryConfig{
			MaxRetries:  cfg.MaxRetries,
			ShouldRetry: provider.IsRetryable,
			DelayFor:    provider.Backoff,
		}
		c.completeRetry = resilience.NewExecutor[*to_ir.Response](retryCfg)
		c.openRetry = resilience.NewExecutor[*http.Response](retryCfg)
	}
	return c, nil
}

func (c *Client) Name() string            { return c.name }
func (c *Client) Format() provider.Format { return c.format }
func (c *Client) Model() string           { return c.cfg.Model }

// BreakerState exposes the circuit breaker state for health reporting.
func (c *Client) BreakerState() gobreaker.State { return c.breaker.State() }

// Complete sends a non-streaming request and parses the reply.
func (c *Client) Complete(ctx context.Context, req *ir.Request) (*to_ir.Response, error) {
	r, body, err := c.build(req, false)
	if err != nil {
		return nil, err
	}

	timeout := c.cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	attempt := func() (*to_ir.Response, error) {
		return c.completeOnce(ctx, r.Model, body, timeout)
	}
	if c.completeRetry != nil {
		return c.completeRetry.Execute(ctx, attempt)
	}
	return attempt()
}

func (c *Client) completeOnce(ctx context.Context, model string, body []byte, timeout time.Duration) (*to_ir.Response, error) {
	done, err := c.admit(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, model, body, false, timeout)
	if err != nil {
		done(err)
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		terr := provider.Translate(&provider.TransportError{Op: "read response", Timeout: timeout, Err: err}, c.format.String())
		done(terr)
		return nil, terr
	}

	out, err := translator.ParseResponse(data, c.format)
	done(err)
	return out, err
}

// Stream opens a streaming request. The caller must drain or Close the
// returned stream.
func (c *Client) Stream(ctx context.Context, req *ir.Request) (*stream.Stream, error) {
	r, body, err := c.build(req, true)
	if err != nil {
		return nil, err
	}

	var done func(error)
	open := func() (*http.Response, error) {
		report, err := c.admit(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := c.do(ctx, r.Model, body, true, 0)
		if err != nil {
			report(err)
			return nil, err
		}
		done = report
		return resp, nil
	}

	var resp *http.Response
	if c.openRetry != nil {
		resp, err = c.openRetry.Execute(ctx, open)
	} else {
		resp, err = open()
	}
	if err != nil {
		return nil, err
	}

	idle := c.cfg.IdleTimeout
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	rb := &reportingBody{ReadCloser: resp.Body, ctx: ctx, format: c.format, done: done}
	return stream.New(ctx, rb, c.format,
		stream.WithIdleTimeout(idle),
		stream.WithIdleWatcher(c.watcher),
	)
}

// build fills defaults and renders the provider request body.
func (c *Client) build(req *ir.Request, streaming bool) (*ir.Request, []byte, error) {
	if req == nil {
		return nil, nil, ir.NewTranslationError(-1, "request is nil")
	}
	r := *req
	r.Stream = streaming
	if r.Model == "" {
		r.Model = c.cfg.Model
	}
	if r.Model == "" {
		return nil, nil, ir.NewConfigurationError(c.name, "no model in request and no default model configured", nil)
	}
	body, err := translator.BuildRequest(&r, c.format)
	if err != nil {
		return nil, nil, err
	}
	return &r, body, nil
}

// admit waits for the rate limiter and asks the breaker for a slot.
func (c *Client) admit(ctx context.Context) (func(error), error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, provider.Translate(ctxErr, c.format.String())
			}
			return nil, ir.NewRateLimitError(c.name, "local rate limit exceeded", 0, err)
		}
	}
	done, err := c.breaker.Allow()
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ir.NewProviderError(c.name, "circuit breaker open", http.StatusServiceUnavailable, err)
		}
		return nil, err
	}
	return done, nil
}

func (c *Client) do(ctx context.Context, model string, body []byte, streaming bool, timeout time.Duration) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(model, streaming), bytes.NewReader(body))
	if err != nil {
		return nil, ir.NewConfigurationError(c.name, "invalid base-url", err)
	}
	c.setHeaders(req, streaming)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, provider.Translate(&provider.TransportError{Op: "POST " + req.URL.Path, Timeout: timeout, Err: err}, c.format.String())
	}

	if err := decodeBody(resp); err != nil {
		resp.Body.Close()
		return nil, ir.NewProviderError(c.name, err.Error(), resp.StatusCode, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		return nil, HandleHTTPError(resp, c.format, c.name)
	}
	return resp, nil
}

// reportingBody reports the stream outcome to the breaker once, on close.
// Failures caused by the caller cancelling ctx are not reported as failures.
type reportingBody struct {
	io.ReadCloser
	ctx    context.Context
	format provider.Format
	done   func(error)

	once    sync.Once
	mu      sync.Mutex
	readErr error
}

func (b *reportingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && b.ctx.Err() == nil {
		b.mu.Lock()
		if b.readErr == nil {
			b.readErr = provider.Translate(err, b.format.String())
		}
		b.mu.Unlock()
	}
	return n, err
}

func (b *reportingBody) Close() error {
	b.once.Do(func() {
		if b.done == nil {
			return
		}
		b.mu.Lock()
		err := b.readErr
		b.mu.Unlock()
		b.done(err)
	})
	return b.ReadCloser.Close()
}

// String is used in log lines.
func (c *Client) String() string {
	return fmt.Sprintf("%s(%s)", c.name, c.format)
}
