// Package config loads the agent-router YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sashabogi/agent-router/internal/logging"
	"github.com/sashabogi/agent-router/internal/translator/ir"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 8317
)

// Config is the top-level configuration file.
type Config struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`

	Debug         bool   `yaml:"debug" json:"debug"`
	LoggingToFile bool   `yaml:"logging-to-file" json:"logging-to-file"`
	LogDir        string `yaml:"log-dir,omitempty" json:"log-dir,omitempty"`

	// ProxyURL applies to every provider that does not set its own.
	ProxyURL string `yaml:"proxy-url,omitempty" json:"proxy-url,omitempty"`

	Providers []Provider `yaml:"providers" json:"providers"`
}

// NewDefaultConfig returns a config with no providers.
func NewDefaultConfig() *Config {
	return &Config{Host: DefaultHost, Port: DefaultPort}
}

// Parse decodes YAML after expanding ${VAR} references from the environment.
func Parse(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, ir.NewConfigurationError("", "invalid config yaml", err)
	}
	cfg.normalize()
	return cfg, nil
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// LoadOptional is Load, except a missing file yields the default config.
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewDefaultConfig(), nil
	}
	return cfg, err
}

func (cfg *Config) normalize() {
	cfg.Host = strings.TrimSpace(cfg.Host)
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	cfg.ProxyURL = strings.TrimSpace(cfg.ProxyURL)
	cfg.Providers = SanitizeProviders(cfg.Providers)
	for i := range cfg.Providers {
		if cfg.Providers[i].ProxyURL == "" {
			cfg.Providers[i].ProxyURL = cfg.ProxyURL
		}
	}
}

// Validate checks the server settings and every provider.
func (cfg *Config) Validate() error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return ir.NewConfigurationError("", fmt.Sprintf("port %d out of range", cfg.Port), nil)
	}
	var errs []error
	for i := range cfg.Providers {
		if err := cfg.Providers[i].Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Addr is the listen address for the gateway.
func (cfg *Config) Addr() string {
	return cfg.Host + ":" + strconv.Itoa(cfg.Port)
}

// LoadDotEnv loads .env from dir if present.
func LoadDotEnv(dir string) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.WithError(err).Warn("failed to load .env file")
		}
	}
}

// ApplyEnvOverrides applies AGENT_ROUTER_* environment variables.
func ApplyEnvOverrides(cfg *Config) {
	if port, ok := lookupEnvInt("AGENT_ROUTER_PORT"); ok {
		cfg.Port = port
		log.Infof("Port overridden by env: %d", port)
	}
	if host, ok := lookupEnv("AGENT_ROUTER_HOST"); ok {
		cfg.Host = host
		log.Infof("Host overridden by env: %s", host)
	}
	if debug, ok := lookupEnvBool("AGENT_ROUTER_DEBUG"); ok {
		cfg.Debug = debug
		log.Infof("Debug overridden by env: %v", debug)
	}
	if toFile, ok := lookupEnvBool("AGENT_ROUTER_LOGGING_TO_FILE"); ok {
		cfg.LoggingToFile = toFile
		log.Infof("Logging to file overridden by env: %v", toFile)
	}
	if proxyURL, ok := lookupEnv("AGENT_ROUTER_PROXY_URL"); ok {
		cfg.ProxyURL = proxyURL
		for i := range cfg.Providers {
			cfg.Providers[i].ProxyURL = proxyURL
		}
		log.Infof("Proxy URL overridden by env")
	}
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func lookupEnvInt(key string) (int, bool) {
	v, ok := lookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warnf("ignoring %s: %v", key, err)
		return 0, false
	}
	return n, true
}

func lookupEnvBool(key string) (bool, bool) {
	v, ok := lookupEnv(key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warnf("ignoring %s: %v", key, err)
		return false, false
	}
	return b, true
}
