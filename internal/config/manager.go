package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sashabogi/agent-router/internal/logging"
)

// reloadDebounce coalesces the burst of events editors produce on save.
const reloadDebounce = 200 * time.Millisecond

// Manager holds the active config and reloads it from disk.
type Manager struct {
	path    string
	current atomic.Pointer[Config]
}

// NewManager returns a manager for path seeded with cfg.
func NewManager(path string, cfg *Config) *Manager {
	m := &Manager{path: path}
	m.current.Store(cfg)
	return m
}

// Path returns the watched config file.
func (m *Manager) Path() string { return m.path }

// Get returns the active config.
func (m *Manager) Get() *Config { return m.current.Load() }

// Reload reads the file again. The active config is replaced only when the
// new one parses and validates.
func (m *Manager) Reload() (*Config, error) {
	cfg, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	ApplyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m.current.Store(cfg)
	return cfg, nil
}

// Watch reloads the config whenever the file changes and passes each
// accepted config to onChange. It blocks until ctx is done.
func (m *Manager) Watch(ctx context.Context, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file instead of writing it.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}
	target := filepath.Clean(m.path)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("config watcher error")
		case <-fire:
			fire = nil
			cfg, err := m.Reload()
			if err != nil {
				log.WithError(err).Warn("config reload rejected, keeping previous config")
				continue
			}
			log.Infof("config reloaded from %s (%d providers)", m.path, len(cfg.Providers))
			if onChange != nil {
				onChange(cfg)
			}
		}
	}
}
