package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sashabogi/agent-router/internal/provider"
	"github.com/sashabogi/agent-router/internal/translator/ir"
)

// Provider is one upstream endpoint. Several entries may share a type as
// long as their names differ.
type Provider struct {
	// Type selects the wire protocol: claude (alias anthropic), openai or gemini.
	Type string `yaml:"type" json:"type"`

	// Name is the display name used to select the provider. Defaults to Type.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Enabled allows disabling a provider without removing it. Default: true.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	APIKey   string            `yaml:"api-key,omitempty" json:"api-key,omitempty"`
	BaseURL  string            `yaml:"base-url,omitempty" json:"base-url,omitempty"`
	ProxyURL string            `yaml:"proxy-url,omitempty" json:"proxy-url,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	// Model is used when a request does not name one.
	Model string `yaml:"model,omitempty" json:"model,omitempty"`

	// Timeout bounds a non-streaming call; IdleTimeout bounds the gap
	// between stream reads.
	Timeout     time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	IdleTimeout time.Duration `yaml:"idle-timeout,omitempty" json:"idle-timeout,omitempty"`

	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64 `yaml:"rate-limit,omitempty" json:"rate-limit,omitempty"`
	Burst     int     `yaml:"burst,omitempty" json:"burst,omitempty"`

	// MaxRetries enables taxonomy-driven retries in the executor. Zero
	// leaves retry decisions to the caller.
	MaxRetries int `yaml:"max-retries,omitempty" json:"max-retries,omitempty"`

	// AnthropicVersion overrides the anthropic-version header for claude.
	AnthropicVersion string `yaml:"anthropic-version,omitempty" json:"anthropic-version,omitempty"`
}

// IsEnabled returns true if the provider is enabled (default: true).
func (p *Provider) IsEnabled() bool {
	if p.Enabled == nil {
		return true
	}
	return *p.Enabled
}

// Format resolves the wire protocol for the provider type.
func (p *Provider) Format() (provider.Format, bool) {
	return provider.ParseFormat(p.Type)
}

// GetDisplayName returns the display name for this provider.
// Falls back to type if name is not set.
func (p *Provider) GetDisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Type
}

// Validate checks the provider entry. Failures are Configuration errors.
func (p *Provider) Validate() error {
	name := p.GetDisplayName()
	if p.Type == "" {
		return ir.NewConfigurationError(name, "type is required", nil)
	}
	if _, ok := p.Format(); !ok {
		return ir.NewConfigurationError(name, fmt.Sprintf("unknown provider type %q", p.Type), nil)
	}
	if p.APIKey == "" {
		return ir.NewConfigurationError(name, "api-key is required", nil)
	}
	if p.RateLimit < 0 {
		return ir.NewConfigurationError(name, "rate-limit must not be negative", nil)
	}
	if p.MaxRetries < 0 {
		return ir.NewConfigurationError(name, "max-retries must not be negative", nil)
	}
	return nil
}

// SanitizeProviders normalizes the providers list. Disabled entries are
// dropped, as are later duplicates of the same display name.
func SanitizeProviders(providers []Provider) []Provider {
	if len(providers) == 0 {
		return nil
	}

	result := make([]Provider, 0, len(providers))
	seen := make(map[string]struct{})

	for i := range providers {
		p := providers[i]
		if !p.IsEnabled() {
			continue
		}

		p.Type = strings.TrimSpace(strings.ToLower(p.Type))
		if f, ok := p.Format(); ok {
			p.Type = f.String()
		}
		p.Name = strings.TrimSpace(p.Name)
		p.APIKey = strings.TrimSpace(p.APIKey)
		p.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
		p.ProxyURL = strings.TrimSpace(p.ProxyURL)
		p.Model = strings.TrimSpace(p.Model)
		p.Headers = normalizeHeaders(p.Headers)

		key := p.GetDisplayName()
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, p)
	}
	return result
}

func normalizeHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// GetProviderByName returns a provider by its display name.
func (cfg *Config) GetProviderByName(name string) *Provider {
	if cfg == nil {
		return nil
	}
	for i := range cfg.Providers {
		if cfg.Providers[i].GetDisplayName() == name {
			return &cfg.Providers[i]
		}
	}
	return nil
}

// GetProvidersByFormat returns all providers speaking the given protocol.
func (cfg *Config) GetProvidersByFormat(f provider.Format) []Provider {
	if cfg == nil {
		return nil
	}
	var result []Provider
	for _, p := range cfg.Providers {
		if pf, ok := p.Format(); ok && pf == f {
			result = append(result, p)
		}
	}
	return result
}
