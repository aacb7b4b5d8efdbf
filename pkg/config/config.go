package config

import "time"

// Config is the root configuration structure for Arbiter.
// It contains the HTTP server, storage backend, policy sources, trace
// ledger, stats and telemetry sections.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and CORS.
	Server ServerConfig `yaml:"server"`

	// Storage selects and configures the durable store for policies,
	// traces and ledger events.
	Storage StorageConfig `yaml:"storage"`

	// Policy contains configuration for policy bundle sources (local
	// directory and Git repository).
	Policy PolicyConfig `yaml:"policy"`

	// Ledger contains configuration for the trace lifecycle manager and the
	// stale-trace sweeper.
	Ledger LedgerConfig `yaml:"ledger"`

	// Stats contains configuration for the stats aggregator.
	Stats StatsConfig `yaml:"stats"`

	// Telemetry contains configuration for observability including logging,
	// metrics, tracing and health endpoints.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Secrets configures how ${secret:name} references in this file are
	// resolved.
	Secrets SecretsConfig `yaml:"secrets"`
}

// SecretsConfig configures secret reference resolution. References are
// looked up in the environment first, then in Dir.
type SecretsConfig struct {
	// EnvPrefix is prepended to the upper-cased secret name.
	// Default: "ARBITER_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`

	// Dir holds one file per secret, named after the secret. Empty disables
	// file lookup.
	Dir string `yaml:"dir"`

	// CacheTTL bounds how long a resolved secret is reused.
	// Default: 5m
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// ServerConfig contains configuration for the HTTP API server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 15s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 15s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// RequestTimeout bounds the handling of a single API request.
	// Default: 10s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// ShutdownTimeout is the maximum duration to wait for in-flight requests
	// during graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits request body size.
	// Default: 4194304 (4MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`

	// TLS configures HTTPS for the listener.
	TLS TLSConfig `yaml:"tls"`

	// Auth configures API key authentication for the /v1 API.
	Auth AuthConfig `yaml:"auth"`
}

// TLSConfig contains listener TLS configuration. Certificates are
// reloaded from disk when they change.
type TLSConfig struct {
	// Enabled controls whether the server speaks HTTPS.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the PEM-encoded certificate chain.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the PEM-encoded private key.
	KeyFile string `yaml:"key_file"`

	// MinVersion is the lowest accepted protocol version ("1.2" or "1.3").
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`

	// ClientCAFile enables mutual TLS when set: clients must present a
	// certificate signed by one of these CAs.
	ClientCAFile string `yaml:"client_ca_file"`

	// ReloadInterval is how often the certificate files are checked for
	// changes.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// AuthConfig contains API key authentication configuration. Operational
// endpoints (health, version, metrics) are never authenticated.
type AuthConfig struct {
	// Enabled requires a valid API key on every /v1 request.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Header is the request header carrying the key. A value prefixed with
	// "Bearer " in the Authorization header is also accepted.
	// Default: "X-API-Key"
	Header string `yaml:"header"`

	// Keys are the accepted keys. Values may be ${secret:name} references.
	Keys []APIKeyConfig `yaml:"keys"`
}

// APIKeyConfig is one accepted API key.
type APIKeyConfig struct {
	// Name identifies the key in logs. It is never the key itself.
	Name string `yaml:"name"`

	// Key is the secret value.
	Key string `yaml:"key"`

	// Tenants restricts the key to these tenants. Empty allows all.
	Tenants []string `yaml:"tenants"`

	// Disabled rejects the key without removing it.
	Disabled bool `yaml:"disabled"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins. Use ["*"] to allow all.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	// Default: ["GET", "POST", "PUT", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed request headers.
	// Default: ["Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the preflight cache duration in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`
}

// StorageConfig contains configuration for the durable store.
type StorageConfig struct {
	// Backend selects the store implementation.
	// Options: "sqlite", "postgres", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// OperationTimeout bounds every individual store call.
	// Default: 5s
	OperationTimeout time.Duration `yaml:"operation_timeout"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Postgres contains PostgreSQL-specific configuration.
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig contains SQLite-specific storage configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/arbiter.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite3" (github.com/mattn/go-sqlite3, cgo), "sqlite" (modernc.org/sqlite, pure Go)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 1
	MaxOpenConns int `yaml:"max_open_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long a connection waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// PostgresConfig contains PostgreSQL-specific storage configuration.
type PostgresConfig struct {
	// DSN is a full connection string. When set it takes precedence over
	// the individual connection fields below.
	DSN string `yaml:"dsn"`

	// Host is the PostgreSQL server hostname.
	Host string `yaml:"host"`

	// Port is the PostgreSQL server port.
	// Default: 5432
	Port int `yaml:"port"`

	// Database is the database name.
	Database string `yaml:"database"`

	// User is the database user.
	User string `yaml:"user"`

	// Password is the database password.
	// This should typically be loaded from an environment variable.
	Password string `yaml:"password"`

	// SSLMode is the SSL mode (disable, require, verify-ca, verify-full).
	// Default: "require"
	SSLMode string `yaml:"ssl_mode"`

	// MaxConns is the pool size.
	// Default: 10
	MaxConns int32 `yaml:"max_conns"`

	// MinConns is the number of connections kept open.
	// Default: 1
	MinConns int32 `yaml:"min_conns"`
}

// PolicyConfig contains configuration for policy bundle sources.
type PolicyConfig struct {
	// Bundles configures a local directory of YAML policy bundles.
	Bundles BundleConfig `yaml:"bundles"`

	// Git configures a Git repository of YAML policy bundles.
	Git GitPolicyConfig `yaml:"git"`
}

// BundleConfig contains configuration for the local bundle directory.
type BundleConfig struct {
	// Enabled controls whether bundles are imported at startup.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the directory containing *.yaml / *.yml bundle files.
	// Default: "./policies"
	Path string `yaml:"path"`

	// Watch re-imports bundles when files in Path change.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce coalesces bursts of file events.
	// Default: 250ms
	Debounce time.Duration `yaml:"debounce"`
}

// GitPolicyConfig contains configuration for Git-based policy bundles.
type GitPolicyConfig struct {
	// Enabled controls whether the Git source is used.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Repository is the Git repository URL (HTTPS or SSH).
	Repository string `yaml:"repository"`

	// Branch is the branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path is the bundle directory inside the repository.
	// Default: "policies"
	Path string `yaml:"path"`

	// LocalPath is where the repository is cloned.
	// Default: "data/policy-repo"
	LocalPath string `yaml:"local_path"`

	// PollInterval is how often the remote is checked for new commits.
	// Zero disables polling.
	// Default: 60s
	PollInterval time.Duration `yaml:"poll_interval"`

	// Auth contains repository credentials.
	Auth GitAuthConfig `yaml:"auth"`
}

// GitAuthConfig contains Git authentication configuration.
type GitAuthConfig struct {
	// Type is the authentication method.
	// Options: "none", "token", "ssh"
	// Default: "none"
	Type string `yaml:"type"`

	// Token is the access token for HTTPS authentication.
	Token string `yaml:"token"`

	// SSHKeyPath is the private key file for SSH authentication.
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase decrypts SSHKeyPath when it is encrypted.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// LedgerConfig contains configuration for the trace lifecycle manager.
type LedgerConfig struct {
	// MaxTextLength is the maximum number of characters persisted for model
	// call prompt and response text. Longer text is truncated.
	// Default: 10000
	MaxTextLength int `yaml:"max_text_length"`

	// Sweeper ends traces left running for too long.
	Sweeper SweeperConfig `yaml:"sweeper"`
}

// SweeperConfig contains configuration for the stale-trace sweeper.
type SweeperConfig struct {
	// Enabled controls whether the sweeper is scheduled.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Schedule is a standard 5-field cron expression.
	// Default: "*/15 * * * *"
	Schedule string `yaml:"schedule"`

	// MaxRunningAge is how long a trace may stay running before it is
	// cancelled.
	// Default: 24h
	MaxRunningAge time.Duration `yaml:"max_running_age"`

	// BatchSize limits the traces cancelled per run.
	// Default: 500
	BatchSize int `yaml:"batch_size"`
}

// StatsConfig contains configuration for the stats aggregator.
type StatsConfig struct {
	// DefaultWindow is the reporting window used when no "from" is given.
	// Default: 168h (7 days)
	DefaultWindow time.Duration `yaml:"default_window"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains OpenTelemetry tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health endpoint configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactKeys lists attribute keys whose values are replaced before
	// output. The built-in list (password, token, api_key, authorization,
	// dsn) is always applied.
	RedactKeys []string `yaml:"redact_keys"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are recorded and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes every metric name.
	// Default: "arbiter"
	Namespace string `yaml:"namespace"`

	// Subsystem is an optional second prefix.
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets are the histogram buckets (seconds) for latency metrics.
	// Default: [0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler is the sampling strategy.
	// Options: "always", "never", "ratio", "parent_based"
	// Default: "parent_based"
	Sampler string `yaml:"sampler"`

	// SampleRatio is used by the "ratio" and "parent_based" samplers.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "arbiter"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS towards the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health endpoints are mounted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the liveness probe path.
	// Default: "/health/live"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the readiness probe path.
	// Default: "/health/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// VersionPath is the build information path.
	// Default: "/version"
	VersionPath string `yaml:"version_path"`

	// CheckTimeout bounds each readiness check.
	// Default: 2s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
