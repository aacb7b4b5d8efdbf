package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(MinimalConfig()); err != nil {
		t.Errorf("expected valid config to pass validation, got error: %v", err)
	}
	if err := Validate(DefaultConfig()); err != nil {
		t.Errorf("expected default config to pass validation, got error: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := MinimalConfig()
	cfg.Server.ListenAddress = "no-port"
	cfg.Storage.Backend = "mongo"
	cfg.Telemetry.Logging.Level = "verbose"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation to fail")
	}

	validationErr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(validationErr.Errors) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(validationErr.Errors), validationErr.Errors)
	}
	if !strings.Contains(validationErr.Error(), "validation failed with 3 errors") {
		t.Errorf("error message should mention multiple errors: %s", validationErr.Error())
	}
}

func TestValidate_Storage(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*StorageConfig)
		wantField string
	}{
		{
			name:      "unknown sqlite driver",
			mutate:    func(s *StorageConfig) { s.Backend = "sqlite"; s.SQLite.Driver = "libsql" },
			wantField: "storage.sqlite.driver",
		},
		{
			name:      "postgres without host or dsn",
			mutate:    func(s *StorageConfig) { s.Backend = "postgres" },
			wantField: "storage.postgres.host",
		},
		{
			name: "postgres min above max",
			mutate: func(s *StorageConfig) {
				s.Backend = "postgres"
				s.Postgres.DSN = "postgres://localhost/arbiter"
				s.Postgres.MinConns = 20
			},
			wantField: "storage.postgres.min_conns",
		},
		{
			name:      "non-positive operation timeout",
			mutate:    func(s *StorageConfig) { s.OperationTimeout = -time.Second },
			wantField: "storage.operation_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := MinimalConfig()
			tt.mutate(&cfg.Storage)
			assertFieldError(t, Validate(cfg), tt.wantField)
		})
	}
}

func TestValidate_PolicyAndLedger(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "git without repository",
			mutate:    func(c *Config) { c.Policy.Git.Enabled = true },
			wantField: "policy.git.repository",
		},
		{
			name: "git token auth without token",
			mutate: func(c *Config) {
				c.Policy.Git.Enabled = true
				c.Policy.Git.Repository = "https://example.com/policies.git"
				c.Policy.Git.Auth.Type = "token"
			},
			wantField: "policy.git.auth.token",
		},
		{
			name: "bad sweeper schedule",
			mutate: func(c *Config) {
				c.Ledger.Sweeper.Enabled = true
				c.Ledger.Sweeper.Schedule = "every tuesday"
			},
			wantField: "ledger.sweeper.schedule",
		},
		{
			name:      "zero max text length",
			mutate:    func(c *Config) { c.Ledger.MaxTextLength = -1 },
			wantField: "ledger.max_text_length",
		},
		{
			name:      "sample ratio out of range",
			mutate:    func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 },
			wantField: "telemetry.tracing.sample_ratio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := MinimalConfig()
			tt.mutate(cfg)
			assertFieldError(t, Validate(cfg), tt.wantField)
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if got := single.Error(); got != "configuration validation failed: a: bad" {
		t.Errorf("unexpected single error message: %q", got)
	}

	empty := ValidationError{}
	if got := empty.Error(); got != "configuration validation failed" {
		t.Errorf("unexpected empty error message: %q", got)
	}
}

func assertFieldError(t *testing.T, err error, field string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected validation error for %s", field)
	}
	validationErr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	for _, fe := range validationErr.Errors {
		if fe.Field == field {
			return
		}
	}
	t.Errorf("expected error for field %s, got %v", field, validationErr.Errors)
}

func TestValidate_ServerSecurity(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*ServerConfig)
		wantField string
	}{
		{
			name:      "tls without certificate",
			mutate:    func(s *ServerConfig) { s.TLS.Enabled = true; s.TLS.KeyFile = "server.key" },
			wantField: "server.tls.cert_file",
		},
		{
			name: "tls 1.1",
			mutate: func(s *ServerConfig) {
				s.TLS = TLSConfig{Enabled: true, CertFile: "server.crt", KeyFile: "server.key", MinVersion: "1.1"}
			},
			wantField: "server.tls.min_version",
		},
		{
			name:      "auth without keys",
			mutate:    func(s *ServerConfig) { s.Auth.Enabled = true },
			wantField: "server.auth.keys",
		},
		{
			name: "duplicate key names",
			mutate: func(s *ServerConfig) {
				s.Auth.Enabled = true
				s.Auth.Keys = []APIKeyConfig{{Name: "ops", Key: "a"}, {Name: "ops", Key: "b"}}
			},
			wantField: "server.auth.keys[1].name",
		},
		{
			name: "key without value",
			mutate: func(s *ServerConfig) {
				s.Auth.Enabled = true
				s.Auth.Keys = []APIKeyConfig{{Name: "ops"}}
			},
			wantField: "server.auth.keys[0].key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := MinimalConfig()
			tt.mutate(&cfg.Server)
			assertFieldError(t, Validate(cfg), tt.wantField)
		})
	}

	cfg := MinimalConfig()
	if cfg.Server.TLS.MinVersion != "1.3" || cfg.Server.Auth.Header != "X-API-Key" {
		t.Errorf("unexpected security defaults: tls %q, header %q", cfg.Server.TLS.MinVersion, cfg.Server.Auth.Header)
	}
	if cfg.Secrets.EnvPrefix != "ARBITER_SECRET_" {
		t.Errorf("secrets env prefix = %q", cfg.Secrets.EnvPrefix)
	}
}
