package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/arbiter/pkg/config"
	"mercator-hq/arbiter/pkg/telemetry/logging"
)

func TestEnvProvider_GetSecret(t *testing.T) {
	t.Setenv("ARBITER_SECRET_DB_PASSWORD", "hunter2")
	p := NewEnvProvider("ARBITER_SECRET_")

	value, err := p.GetSecret(context.Background(), "db-password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "hunter2" {
		t.Errorf("value = %q, want hunter2", value)
	}

	if _, err := p.GetSecret(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileProvider_GetSecret(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "git-token"), []byte("ghp_abc\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "open"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := NewFileProvider(dir)
	if err != nil {
		t.Fatalf("NewFileProvider: %v", err)
	}

	tests := []struct {
		name     string
		secret   string
		want     string
		notFound bool
		wantErr  string
	}{
		{name: "trims whitespace", secret: "git-token", want: "ghp_abc"},
		{name: "missing file", secret: "nope", notFound: true},
		{name: "world readable", secret: "open", wantErr: "insecure permissions"},
		{name: "traversal", secret: "../etc/passwd", wantErr: "invalid secret name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := p.GetSecret(context.Background(), tt.secret)
			switch {
			case tt.notFound:
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("expected ErrNotFound, got %v", err)
				}
			case tt.wantErr != "":
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %v, want containing %q", err, tt.wantErr)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if value != tt.want {
					t.Errorf("value = %q, want %q", value, tt.want)
				}
			}
		})
	}

	if _, err := NewFileProvider(filepath.Join(dir, "git-token")); err == nil {
		t.Error("expected error for a non-directory base path")
	}
}

type countingProvider struct {
	values map[string]string
	calls  int
}

func (p *countingProvider) GetSecret(ctx context.Context, name string) (string, error) {
	p.calls++
	if v, ok := p.values[name]; ok {
		return v, nil
	}
	return "", ErrNotFound
}

func (p *countingProvider) Provider() string { return "counting" }

type brokenProvider struct{}

func (brokenProvider) GetSecret(context.Context, string) (string, error) {
	return "", errors.New("backend unavailable")
}

func (brokenProvider) Provider() string { return "broken" }

func TestManager_GetSecret_FallbackAndCache(t *testing.T) {
	first := &countingProvider{values: map[string]string{}}
	second := &countingProvider{values: map[string]string{"api-key": "k-123"}}
	m := NewManagerWithProviders([]Provider{first, second}, time.Minute, logging.Discard())

	for range 3 {
		value, err := m.GetSecret(context.Background(), "api-key")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if value != "k-123" {
			t.Fatalf("value = %q, want k-123", value)
		}
	}
	if second.calls != 1 {
		t.Errorf("provider calls = %d, want 1 (cached)", second.calls)
	}

	m.Refresh()
	if _, err := m.GetSecret(context.Background(), "api-key"); err != nil {
		t.Fatal(err)
	}
	if second.calls != 2 {
		t.Errorf("provider calls after refresh = %d, want 2", second.calls)
	}
}

func TestManager_GetSecret_ProviderErrorStops(t *testing.T) {
	fallback := &countingProvider{values: map[string]string{"x-name": "v"}}
	m := NewManagerWithProviders([]Provider{brokenProvider{}, fallback}, 0, logging.Discard())

	_, err := m.GetSecret(context.Background(), "x-name")
	if err == nil || !strings.Contains(err.Error(), "backend unavailable") {
		t.Fatalf("expected backend error, got %v", err)
	}
	if strings.Contains(err.Error(), "x-name") {
		t.Errorf("error leaks the secret name: %v", err)
	}
	if fallback.calls != 0 {
		t.Error("fallback provider should not be consulted after a hard error")
	}
}

func TestManager_Resolve(t *testing.T) {
	p := &countingProvider{values: map[string]string{"user": "arbiter", "pass": "s3cret"}}
	m := NewManagerWithProviders([]Provider{p}, 0, logging.Discard())

	out, err := m.Resolve(context.Background(), "postgres://${secret:user}:${secret:pass}@db/arbiter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "postgres://arbiter:s3cret@db/arbiter" {
		t.Errorf("resolved = %q", out)
	}

	out, err = m.Resolve(context.Background(), "${secret:user}/${secret:missing}")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if out != "arbiter/${secret:missing}" {
		t.Errorf("unresolved reference should be kept, got %q", out)
	}
}

func TestManager_ResolveConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "git-token"), []byte("ghp_file"), 0o400); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEST_SECRET_DB_PASSWORD", "from-env")
	t.Setenv("TEST_SECRET_OPS_KEY", "key-ops")

	m, err := NewManager(config.SecretsConfig{EnvPrefix: "TEST_SECRET_", Dir: dir, CacheTTL: time.Minute}, logging.Discard())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Storage.Postgres.Password = "${secret:db-password}"
	cfg.Policy.Git.Auth.Token = "${secret:git-token}"
	cfg.Server.Auth.Keys = []config.APIKeyConfig{
		{Name: "ops", Key: "${secret:ops-key}"},
		{Name: "literal", Key: "plain-value"},
	}

	if err := m.ResolveConfig(context.Background(), cfg); err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	if cfg.Storage.Postgres.Password != "from-env" {
		t.Errorf("postgres password = %q", cfg.Storage.Postgres.Password)
	}
	if cfg.Policy.Git.Auth.Token != "ghp_file" {
		t.Errorf("git token = %q", cfg.Policy.Git.Auth.Token)
	}
	if cfg.Server.Auth.Keys[0].Key != "key-ops" || cfg.Server.Auth.Keys[1].Key != "plain-value" {
		t.Errorf("api keys = %+v", cfg.Server.Auth.Keys)
	}

	cfg.Storage.Postgres.DSN = "${secret:absent}"
	err = m.ResolveConfig(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "storage.postgres.dsn") {
		t.Errorf("expected error naming the field, got %v", err)
	}
}

func TestCache_Expiry(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	c := NewCache(time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	if v, ok := c.Get("k"); !ok || v != "v" {
		t.Fatalf("Get = %q, %v", v, ok)
	}
	now = now.Add(time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("entry should expire after the TTL")
	}

	disabled := NewCache(0)
	disabled.Set("k", "v")
	if disabled.Size() != 0 {
		t.Error("zero TTL cache should not store entries")
	}
}
