package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validatePolicy(&cfg.Policy)...)
	errs = append(errs, validateLedger(&cfg.Ledger)...)

	if cfg.Stats.DefaultWindow <= 0 {
		errs = append(errs, FieldError{Field: "stats.default_window", Message: "must be positive"})
	}

	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(s *ServerConfig) []FieldError {
	var errs []FieldError

	if s.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "is required"})
	} else if _, _, err := net.SplitHostPort(s.ListenAddress); err != nil {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: fmt.Sprintf("must be host:port: %v", err)})
	}
	if s.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "must not be negative"})
	}
	if s.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "must not be negative"})
	}
	if s.RequestTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.request_timeout", Message: "must not be negative"})
	}
	if s.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "must not be negative"})
	}
	if s.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "must not be negative"})
	}
	if s.CORS.Enabled && len(s.CORS.AllowedOrigins) == 0 {
		errs = append(errs, FieldError{Field: "server.cors.allowed_origins", Message: "at least one origin is required when CORS is enabled"})
	}

	if s.TLS.Enabled {
		if s.TLS.CertFile == "" {
			errs = append(errs, FieldError{Field: "server.tls.cert_file", Message: "is required when TLS is enabled"})
		}
		if s.TLS.KeyFile == "" {
			errs = append(errs, FieldError{Field: "server.tls.key_file", Message: "is required when TLS is enabled"})
		}
		if s.TLS.MinVersion != "1.2" && s.TLS.MinVersion != "1.3" {
			errs = append(errs, FieldError{Field: "server.tls.min_version", Message: "must be \"1.2\" or \"1.3\""})
		}
		if s.TLS.ReloadInterval < 0 {
			errs = append(errs, FieldError{Field: "server.tls.reload_interval", Message: "must not be negative"})
		}
	}

	if s.Auth.Enabled {
		if len(s.Auth.Keys) == 0 {
			errs = append(errs, FieldError{Field: "server.auth.keys", Message: "at least one key is required when auth is enabled"})
		}
		seen := make(map[string]bool, len(s.Auth.Keys))
		for i, k := range s.Auth.Keys {
			field := fmt.Sprintf("server.auth.keys[%d]", i)
			if k.Name == "" {
				errs = append(errs, FieldError{Field: field + ".name", Message: "is required"})
			} else if seen[k.Name] {
				errs = append(errs, FieldError{Field: field + ".name", Message: fmt.Sprintf("duplicate key name %q", k.Name)})
			}
			seen[k.Name] = true
			if k.Key == "" {
				errs = append(errs, FieldError{Field: field + ".key", Message: "is required"})
			}
		}
	}

	return errs
}

func validateStorage(s *StorageConfig) []FieldError {
	var errs []FieldError

	switch s.Backend {
	case "memory":
	case "sqlite":
		if s.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "storage.sqlite.path", Message: "is required for the sqlite backend"})
		}
		if s.SQLite.Driver != "sqlite" && s.SQLite.Driver != "sqlite3" {
			errs = append(errs, FieldError{Field: "storage.sqlite.driver", Message: fmt.Sprintf("must be \"sqlite\" or \"sqlite3\", got %q", s.SQLite.Driver)})
		}
		if s.SQLite.MaxOpenConns < 1 {
			errs = append(errs, FieldError{Field: "storage.sqlite.max_open_conns", Message: "must be at least 1"})
		}
	case "postgres":
		if s.Postgres.DSN == "" {
			if s.Postgres.Host == "" {
				errs = append(errs, FieldError{Field: "storage.postgres.host", Message: "is required when dsn is not set"})
			}
			if s.Postgres.Database == "" {
				errs = append(errs, FieldError{Field: "storage.postgres.database", Message: "is required when dsn is not set"})
			}
			if s.Postgres.Port < 1 || s.Postgres.Port > 65535 {
				errs = append(errs, FieldError{Field: "storage.postgres.port", Message: "must be between 1 and 65535"})
			}
		}
		if s.Postgres.MinConns > s.Postgres.MaxConns {
			errs = append(errs, FieldError{Field: "storage.postgres.min_conns", Message: "must not exceed max_conns"})
		}
	default:
		errs = append(errs, FieldError{Field: "storage.backend", Message: fmt.Sprintf("must be one of sqlite, postgres, memory; got %q", s.Backend)})
	}

	if s.OperationTimeout <= 0 {
		errs = append(errs, FieldError{Field: "storage.operation_timeout", Message: "must be positive"})
	}

	return errs
}

func validatePolicy(p *PolicyConfig) []FieldError {
	var errs []FieldError

	if p.Bundles.Enabled && p.Bundles.Path == "" {
		errs = append(errs, FieldError{Field: "policy.bundles.path", Message: "is required when bundles are enabled"})
	}
	if p.Bundles.Debounce < 0 {
		errs = append(errs, FieldError{Field: "policy.bundles.debounce", Message: "must not be negative"})
	}

	if p.Git.Enabled {
		if p.Git.Repository == "" {
			errs = append(errs, FieldError{Field: "policy.git.repository", Message: "is required when git is enabled"})
		}
		if p.Git.LocalPath == "" {
			errs = append(errs, FieldError{Field: "policy.git.local_path", Message: "is required when git is enabled"})
		}
		switch p.Git.Auth.Type {
		case "none":
		case "token":
			if p.Git.Auth.Token == "" {
				errs = append(errs, FieldError{Field: "policy.git.auth.token", Message: "is required for token authentication"})
			}
		case "ssh":
			if p.Git.Auth.SSHKeyPath == "" {
				errs = append(errs, FieldError{Field: "policy.git.auth.ssh_key_path", Message: "is required for ssh authentication"})
			}
		default:
			errs = append(errs, FieldError{Field: "policy.git.auth.type", Message: fmt.Sprintf("must be one of none, token, ssh; got %q", p.Git.Auth.Type)})
		}
	}
	if p.Git.PollInterval < 0 {
		errs = append(errs, FieldError{Field: "policy.git.poll_interval", Message: "must not be negative"})
	}

	return errs
}

func validateLedger(l *LedgerConfig) []FieldError {
	var errs []FieldError

	if l.MaxTextLength < 1 {
		errs = append(errs, FieldError{Field: "ledger.max_text_length", Message: "must be at least 1"})
	}

	if l.Sweeper.Enabled {
		if _, err := cron.ParseStandard(l.Sweeper.Schedule); err != nil {
			errs = append(errs, FieldError{Field: "ledger.sweeper.schedule", Message: fmt.Sprintf("invalid cron expression: %v", err)})
		}
		if l.Sweeper.MaxRunningAge <= 0 {
			errs = append(errs, FieldError{Field: "ledger.sweeper.max_running_age", Message: "must be positive"})
		}
		if l.Sweeper.BatchSize < 1 {
			errs = append(errs, FieldError{Field: "ledger.sweeper.batch_size", Message: "must be at least 1"})
		}
	}

	return errs
}

func validateTelemetry(t *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(t.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{Field: "telemetry.logging.level", Message: fmt.Sprintf("must be one of debug, info, warn, error; got %q", t.Logging.Level)})
	}
	switch strings.ToLower(t.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{Field: "telemetry.logging.format", Message: fmt.Sprintf("must be json or text; got %q", t.Logging.Format)})
	}

	if t.Metrics.Enabled && !strings.HasPrefix(t.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "must start with /"})
	}
	for i := 1; i < len(t.Metrics.DurationBuckets); i++ {
		if t.Metrics.DurationBuckets[i] <= t.Metrics.DurationBuckets[i-1] {
			errs = append(errs, FieldError{Field: "telemetry.metrics.duration_buckets", Message: "must be strictly increasing"})
			break
		}
	}

	if t.Tracing.Enabled {
		switch t.Tracing.Sampler {
		case "always", "never", "ratio", "parent_based":
		default:
			errs = append(errs, FieldError{Field: "telemetry.tracing.sampler", Message: fmt.Sprintf("must be one of always, never, ratio, parent_based; got %q", t.Tracing.Sampler)})
		}
		if t.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "is required when tracing is enabled"})
		}
	}
	if t.Tracing.SampleRatio < 0 || t.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "must be between 0 and 1"})
	}

	if t.Health.CheckTimeout <= 0 {
		errs = append(errs, FieldError{Field: "telemetry.health.check_timeout", Message: "must be positive"})
	}

	return errs
}
