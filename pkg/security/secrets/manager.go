package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"mercator-hq/arbiter/pkg/config"
)

// secretRefRegex matches ${secret:name}.
var secretRefRegex = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Manager resolves secrets from its providers in order.
type Manager struct {
	providers []Provider
	cache     *Cache
	logger    *slog.Logger
}

// NewManager builds a manager from configuration: the environment provider
// first, then the secrets directory when one is configured.
func NewManager(cfg config.SecretsConfig, logger *slog.Logger) (*Manager, error) {
	providers := []Provider{NewEnvProvider(cfg.EnvPrefix)}
	if cfg.Dir != "" {
		fp, err := NewFileProvider(cfg.Dir)
		if err != nil {
			return nil, err
		}
		providers = append(providers, fp)
	}
	return NewManagerWithProviders(providers, cfg.CacheTTL, logger), nil
}

// NewManagerWithProviders creates a manager over explicit providers.
func NewManagerWithProviders(providers []Provider, ttl time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		providers: providers,
		cache:     NewCache(ttl),
		logger:    logger,
	}
}

// GetSecret returns the value from the first provider that has name.
// Provider errors other than ErrNotFound stop the lookup.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	if value, ok := m.cache.Get(name); ok {
		return value, nil
	}

	for _, p := range m.providers {
		value, err := p.GetSecret(ctx, name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("secret %q from %s: %w", redactSecretName(name), p.Provider(), err)
		}
		m.cache.Set(name, value)
		m.logger.DebugContext(ctx, "secret resolved",
			"name", redactSecretName(name),
			"provider", p.Provider(),
		)
		return value, nil
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Resolve replaces every ${secret:name} in input. All references are
// attempted; the returned error joins every failure.
func (m *Manager) Resolve(ctx context.Context, input string) (string, error) {
	var errs []error
	output := secretRefRegex.ReplaceAllStringFunc(input, func(match string) string {
		name := secretRefRegex.FindStringSubmatch(match)[1]
		value, err := m.GetSecret(ctx, name)
		if err != nil {
			errs = append(errs, err)
			return match
		}
		return value
	})
	return output, errors.Join(errs...)
}

// ResolveConfig resolves references in the credential fields of cfg in
// place.
func (m *Manager) ResolveConfig(ctx context.Context, cfg *config.Config) error {
	fields := map[string]*string{
		"storage.postgres.dsn":               &cfg.Storage.Postgres.DSN,
		"storage.postgres.password":          &cfg.Storage.Postgres.Password,
		"policy.git.auth.token":              &cfg.Policy.Git.Auth.Token,
		"policy.git.auth.ssh_key_passphrase": &cfg.Policy.Git.Auth.SSHKeyPassphrase,
	}
	for i := range cfg.Server.Auth.Keys {
		fields[fmt.Sprintf("server.auth.keys[%d].key", i)] = &cfg.Server.Auth.Keys[i].Key
	}

	var errs []error
	for field, ptr := range fields {
		if !secretRefRegex.MatchString(*ptr) {
			continue
		}
		value, err := m.Resolve(ctx, *ptr)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
			continue
		}
		*ptr = value
	}
	return errors.Join(errs...)
}

// Refresh drops cached values so the next lookup reads the providers.
func (m *Manager) Refresh() {
	m.cache.Clear()
}

// redactSecretName keeps the first and last two characters of a name.
func redactSecretName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
