// Package translator dispatches canonical conversions to the per-format
// converters in from_ir and parsers in to_ir.
package translator

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sashabogi/agent-router/internal/json"
	"github.com/sashabogi/agent-router/internal/provider"
	"github.com/sashabogi/agent-router/internal/translator/from_ir"
	"github.com/sashabogi/agent-router/internal/translator/ir"
	"github.com/sashabogi/agent-router/internal/translator/to_ir"
)

// ToIRParser parses provider payloads into the canonical model.
type ToIRParser interface {
	// ParseResponse converts a non-streaming response body.
	ParseResponse(body []byte) (*to_ir.Response, error)

	// ParseTools converts a provider tool list.
	ParseTools(raw []byte) ([]ir.Tool, error)

	// NewStreamReducer returns fresh per-stream state.
	NewStreamReducer() to_ir.StreamReducer
}

// FromIRConverter renders canonical values in a provider's format.
type FromIRConverter interface {
	ConvertRequest(req *ir.Request) ([]byte, error)
	ConvertTools(tools []ir.Tool) ([]byte, error)
}

type parser struct {
	response func([]byte) (*to_ir.Response, error)
	tools    func([]byte) ([]ir.Tool, error)
	reducer  func() to_ir.StreamReducer
}

func (p parser) ParseResponse(body []byte) (*to_ir.Response, error) {
	return p.response(body)
}

func (p parser) ParseTools(raw []byte) ([]ir.Tool, error) {
	return p.tools(raw)
}

func (p parser) NewStreamReducer() to_ir.StreamReducer {
	return p.reducer()
}

// Registry manages translator registration and lookup.
type Registry struct {
	mu     sync.RWMutex
	toIR   map[provider.Format]ToIRParser
	fromIR map[provider.Format]FromIRConverter
}

var getGlobalRegistry = sync.OnceValue(func() *Registry {
	r := &Registry{
		toIR:   make(map[provider.Format]ToIRParser),
		fromIR: make(map[provider.Format]FromIRConverter),
	}
	r.RegisterFromIR(provider.FormatClaude, &from_ir.ClaudeProvider{})
	r.RegisterFromIR(provider.FormatOpenAI, &from_ir.OpenAIProvider{})
	r.RegisterFromIR(provider.FormatGemini, &from_ir.GeminiProvider{})

	r.RegisterToIR(provider.FormatClaude, parser{
		response: to_ir.ParseClaudeResponse,
		tools:    to_ir.ParseClaudeTools,
		reducer:  func() to_ir.StreamReducer { return to_ir.NewClaudeStreamState() },
	})
	r.RegisterToIR(provider.FormatOpenAI, parser{
		response: to_ir.ParseOpenAIResponse,
		tools:    to_ir.ParseOpenAITools,
		reducer:  func() to_ir.StreamReducer { return to_ir.NewOpenAIStreamState() },
	})
	r.RegisterToIR(provider.FormatGemini, parser{
		response: to_ir.ParseGeminiResponse,
		tools:    to_ir.ParseGeminiTools,
		reducer:  func() to_ir.StreamReducer { return to_ir.NewGeminiStreamState() },
	})
	return r
})

func GetRegistry() *Registry {
	return getGlobalRegistry()
}

// RegisterToIR registers (or replaces) the parser for a format.
func (r *Registry) RegisterToIR(format provider.Format, p ToIRParser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toIR[format] = p
}

// RegisterFromIR registers (or replaces) the converter for a format.
func (r *Registry) RegisterFromIR(format provider.Format, c FromIRConverter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fromIR[format] = c
}

func (r *Registry) GetToIR(format provider.Format) (ToIRParser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.toIR[format]
	return p, ok
}

func (r *Registry) GetFromIR(format provider.Format) (FromIRConverter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.fromIR[format]
	return c, ok
}

// Formats returns every format with both directions registered, sorted.
func (r *Registry) Formats() []provider.Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]provider.Format, 0, len(r.toIR))
	for f := range r.toIR {
		if _, ok := r.fromIR[f]; ok {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) toIRFor(format provider.Format) (ToIRParser, error) {
	if p, ok := r.GetToIR(format); ok {
		return p, nil
	}
	return nil, unsupported(format)
}

func (r *Registry) fromIRFor(format provider.Format) (FromIRConverter, error) {
	if c, ok := r.GetFromIR(format); ok {
		return c, nil
	}
	return nil, unsupported(format)
}

func unsupported(format provider.Format) error {
	return ir.NewTranslationError(-1, "unsupported provider format %q", string(format))
}

// Package-level convenience functions over the global registry.

// ToProviderTools renders canonical tools in format's representation.
func ToProviderTools(tools []ir.Tool, format provider.Format) (json.RawMessage, error) {
	c, err := GetRegistry().fromIRFor(format)
	if err != nil {
		return nil, err
	}
	return c.ConvertTools(tools)
}

// FromProviderTools parses a provider tool list into canonical tools.
func FromProviderTools(raw []byte, format provider.Format) ([]ir.Tool, error) {
	p, err := GetRegistry().toIRFor(format)
	if err != nil {
		return nil, err
	}
	return p.ParseTools(raw)
}

// BuildRequest renders a complete request body for format.
func BuildRequest(req *ir.Request, format provider.Format) ([]byte, error) {
	if req == nil {
		return nil, ir.NewTranslationError(-1, "nil request")
	}
	c, err := GetRegistry().fromIRFor(format)
	if err != nil {
		return nil, err
	}
	return c.ConvertRequest(req)
}

// ParseResponse converts a non-streaming response body from format.
func ParseResponse(body []byte, format provider.Format) (*to_ir.Response, error) {
	p, err := GetRegistry().toIRFor(format)
	if err != nil {
		return nil, err
	}
	return p.ParseResponse(body)
}

// NewStreamReducer returns the per-stream state machine for format.
func NewStreamReducer(format provider.Format) (to_ir.StreamReducer, error) {
	p, err := GetRegistry().toIRFor(format)
	if err != nil {
		return nil, err
	}
	return p.NewStreamReducer(), nil
}

// MustFormat resolves a provider name, panicking on unknown names. Intended
// for constants in tests and wiring code.
func MustFormat(name string) provider.Format {
	f, ok := provider.ParseFormat(name)
	if !ok {
		panic(fmt.Sprintf("translator: unknown provider format %q", name))
	}
	return f
}
