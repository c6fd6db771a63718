package executor

import (
	"errors"
	"sort"
	"sync"

	"github.com/sashabogi/agent-router/internal/config"
	log "github.com/sashabogi/agent-router/internal/logging"
	"github.com/sashabogi/agent-router/internal/translator/ir"
)

// Pool holds one Client per configured provider. Update swaps the whole set
// so in-flight requests keep the client they started with.
type Pool struct {
	opts []Option

	mu       sync.RWMutex
	clients  map[string]*Client
	order    []string
	fallback string
}

// NewPool builds clients for every provider in cfg.
func NewPool(cfg *config.Config, opts ...Option) (*Pool, error) {
	p := &Pool{opts: opts}
	if err := p.Update(cfg); err != nil {
		return nil, err
	}
	return p, nil
}

// Update rebuilds the clients from cfg. On error the previous set is kept.
func (p *Pool) Update(cfg *config.Config) error {
	clients := make(map[string]*Client, len(cfg.Providers))
	order := make([]string, 0, len(cfg.Providers))
	var errs []error
	for _, pc := range cfg.Providers {
		c, err := New(pc, p.opts...)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		clients[c.Name()] = c
		order = append(order, c.Name())
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	p.mu.Lock()
	p.clients = clients
	p.order = order
	p.fallback = ""
	if len(order) > 0 {
		p.fallback = order[0]
	}
	p.mu.Unlock()

	log.Debugf("executor pool: %d providers", len(order))
	return nil
}

// Get returns the named client. An empty name selects the first provider.
func (p *Pool) Get(name string) (*Client, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if name == "" {
		name = p.fallback
	}
	if c, ok := p.clients[name]; ok {
		return c, nil
	}
	if name == "" {
		return nil, ir.NewConfigurationError("", "no providers configured", nil)
	}
	return nil, ir.NewConfigurationError(name, "unknown provider", nil)
}

// Names lists the configured providers sorted by name.
func (p *Pool) Names() []string {
	p.mu.RLock()
	names := append([]string(nil), p.order...)
	p.mu.RUnlock()
	sort.Strings(names)
	return names
}
