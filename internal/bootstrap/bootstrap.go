// Package bootstrap loads configuration for agent-router CLI commands.
package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sashabogi/agent-router/internal/config"
	log "github.com/sashabogi/agent-router/internal/logging"
)

// Result contains the result of bootstrapping the application.
type Result struct {
	Config         *config.Config
	ConfigFilePath string
}

// DefaultConfigPath is used when no --config flag is given.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "agent-router", "config.yaml")
}

// Bootstrap loads .env from the working directory, then the config file,
// then applies environment overrides and validates the result. A missing
// config file yields the defaults.
func Bootstrap(configPath string) (*Result, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	config.LoadDotEnv(wd)

	if configPath == "" {
		configPath = DefaultConfigPath()
	}
	configPath, err = ResolvePath(configPath)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadOptional(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	config.ApplyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debugf("loaded %d providers from %s", len(cfg.Providers), configPath)
	return &Result{Config: cfg, ConfigFilePath: configPath}, nil
}

// ResolvePath expands environment variables and a leading ~ and returns an
// absolute path.
func ResolvePath(path string) (string, error) {
	path = os.ExpandEnv(strings.TrimSpace(path))
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}
