package config

import (
	"fmt"
	"sync"
)

// Holder owns the loaded configuration of a running process and reloads it
// on demand. It is constructed explicitly by the command that needs it and
// passed to the components that read it.
type Holder struct {
	mu       sync.RWMutex
	path     string
	cfg      *Config
	onReload []func(*Config)
}

// NewHolder loads configuration from path with environment variable
// overrides. An empty path uses defaults plus environment overrides.
func NewHolder(path string) (*Holder, error) {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, err
	}
	return &Holder{path: path, cfg: cfg}, nil
}

// NewStaticHolder wraps an already built configuration. Reload keeps the
// current configuration when the holder has no path.
func NewStaticHolder(cfg *Config) *Holder {
	return &Holder{cfg: cfg}
}

// Get returns the current configuration.
// It is safe for concurrent use.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// Path returns the file the configuration was loaded from.
func (h *Holder) Path() string {
	return h.path
}

// OnReload registers fn to be called with the new configuration after each
// successful Reload.
func (h *Holder) OnReload(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onReload = append(h.onReload, fn)
}

// Reload re-reads the configuration file. The new configuration replaces
// the current one only if loading and validation succeed; otherwise the
// existing configuration remains in effect.
func (h *Holder) Reload() error {
	if h.path == "" {
		return nil
	}

	cfg, err := LoadConfigWithEnvOverrides(h.path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}

	h.mu.Lock()
	h.cfg = cfg
	callbacks := append([]func(*Config){}, h.onReload...)
	h.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
	return nil
}
