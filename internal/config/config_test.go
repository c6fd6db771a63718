package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sashabogi/agent-router/internal/provider"
	"github.com/sashabogi/agent-router/internal/translator/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
port: 9000
proxy-url: http://127.0.0.1:3128
providers:
  - type: anthropic
    api-key: ${TEST_ANTHROPIC_KEY}
    model: claude-sonnet-4-5
    idle-timeout: 45s
    rate-limit: 2.5
    burst: 5
  - type: OpenAI
    name: deepseek
    api-key: " sk-ds "
    base-url: https://api.deepseek.com/v1/
    proxy-url: socks5://127.0.0.1:1080
    headers:
      " X-Team ": " core "
  - type: gemini
    api-key: g-key
    enabled: false
  - type: claude
    api-key: duplicate
`

func TestParseExpandsAndNormalizes(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-ant-123")

	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	require.Len(t, cfg.Providers, 2, "disabled and duplicate entries are dropped")

	claude := cfg.Providers[0]
	assert.Equal(t, "claude", claude.Type)
	assert.Equal(t, "sk-ant-123", claude.APIKey)
	assert.Equal(t, 45*time.Second, claude.IdleTimeout)
	assert.Equal(t, 2.5, claude.RateLimit)
	assert.Equal(t, "http://127.0.0.1:3128", claude.ProxyURL, "inherits the global proxy")

	ds := cfg.Providers[1]
	assert.Equal(t, "openai", ds.Type)
	assert.Equal(t, "deepseek", ds.GetDisplayName())
	assert.Equal(t, "sk-ds", ds.APIKey)
	assert.Equal(t, "https://api.deepseek.com/v1", ds.BaseURL)
	assert.Equal(t, "socks5://127.0.0.1:1080", ds.ProxyURL)
	assert.Equal(t, map[string]string{"X-Team": "core"}, ds.Headers)

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	assert.Same(t, &cfg.Providers[1], cfg.GetProviderByName("deepseek"))
	assert.Nil(t, cfg.GetProviderByName("missing"))
	assert.Len(t, cfg.GetProvidersByFormat(provider.FormatOpenAI), 1)
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("providers: [unclosed"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ir.ErrConfiguration))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       Provider
		message string
	}{
		{"missing type", Provider{APIKey: "k"}, "type is required"},
		{"unknown type", Provider{Type: "cohere", APIKey: "k"}, `unknown provider type "cohere"`},
		{"missing key", Provider{Type: "openai"}, "api-key is required"},
		{"negative rate", Provider{Type: "gemini", APIKey: "k", RateLimit: -1}, "rate-limit"},
		{"negative retries", Provider{Type: "gemini", APIKey: "k", MaxRetries: -1}, "max-retries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ir.ErrConfiguration))
			assert.Contains(t, err.Error(), tt.message)
		})
	}

	cfg := NewDefaultConfig()
	cfg.Port = 70000
	assert.True(t, errors.Is(cfg.Validate(), ir.ErrConfiguration))
}

func TestLoadOptionalMissingFile(t *testing.T) {
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Empty(t, cfg.Providers)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AGENT_ROUTER_PORT", "7000")
	t.Setenv("AGENT_ROUTER_DEBUG", "true")
	t.Setenv("AGENT_ROUTER_PROXY_URL", "http://proxy:8080")
	t.Setenv("AGENT_ROUTER_LOGGING_TO_FILE", "not-a-bool")

	cfg := NewDefaultConfig()
	cfg.Providers = []Provider{{Type: "openai", APIKey: "k"}}
	ApplyEnvOverrides(cfg)

	assert.Equal(t, 7000, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.False(t, cfg.LoggingToFile)
	assert.Equal(t, "http://proxy:8080", cfg.Providers[0].ProxyURL)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("AGENT_ROUTER_DOTENV_TEST=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("AGENT_ROUTER_DOTENV_TEST") })

	LoadDotEnv(dir)
	assert.Equal(t, "loaded", os.Getenv("AGENT_ROUTER_DOTENV_TEST"))

	LoadDotEnv(t.TempDir())
}

func TestManagerReloadKeepsPreviousOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("providers:\n  - type: openai\n    api-key: one\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	m := NewManager(path, cfg)

	require.NoError(t, os.WriteFile(path, []byte("providers:\n  - type: nope\n    api-key: two\n"), 0o600))
	_, err = m.Reload()
	require.Error(t, err)
	assert.Equal(t, "one", m.Get().Providers[0].APIKey)

	require.NoError(t, os.WriteFile(path, []byte("providers:\n  - type: gemini\n    api-key: three\n"), 0o600))
	next, err := m.Reload()
	require.NoError(t, err)
	assert.Same(t, next, m.Get())
	assert.Equal(t, "gemini", m.Get().Providers[0].Type)
}

func TestManagerWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9001\n"), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	m := NewManager(path, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 1)
	done := make(chan error, 1)
	go func() {
		done <- m.Watch(ctx, func(c *Config) {
			select {
			case changes <- c:
			default:
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("port: 9002\n"), 0o600))

	select {
	case c := <-changes:
		assert.Equal(t, 9002, c.Port)
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}

	cancel()
	require.NoError(t, <-done)
}
