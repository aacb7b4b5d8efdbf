package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultRequestTimeout  = 10 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultMaxBodyBytes    = 4194304 // 4MB
	DefaultCORSMaxAge      = 3600
	DefaultTLSMinVersion   = "1.3"
	DefaultTLSReload       = 5 * time.Minute
	DefaultAuthHeader      = "X-API-Key"

	// Secrets defaults
	DefaultSecretsEnvPrefix = "ARBITER_SECRET_"
	DefaultSecretsCacheTTL  = 5 * time.Minute

	// Storage defaults
	DefaultStorageBackend          = "sqlite"
	DefaultStorageOperationTimeout = 5 * time.Second
	DefaultSQLitePath              = "data/arbiter.db"
	DefaultSQLiteDriver            = "sqlite"
	DefaultSQLiteMaxOpenConns      = 1
	DefaultSQLiteWALMode           = true
	DefaultSQLiteBusyTimeout       = 5 * time.Second
	DefaultPostgresPort            = 5432
	DefaultPostgresSSLMode         = "require"
	DefaultPostgresMaxConns        = int32(10)
	DefaultPostgresMinConns        = int32(1)

	// Policy defaults
	DefaultBundlePath      = "./policies"
	DefaultBundleDebounce  = 250 * time.Millisecond
	DefaultGitBranch       = "main"
	DefaultGitPath         = "policies"
	DefaultGitLocalPath    = "data/policy-repo"
	DefaultGitPollInterval = 60 * time.Second
	DefaultGitAuthType     = "none"

	// Ledger defaults
	DefaultMaxTextLength        = 10000
	DefaultSweeperSchedule      = "*/15 * * * *"
	DefaultSweeperMaxRunningAge = 24 * time.Hour
	DefaultSweeperBatchSize     = 500

	// Stats defaults
	DefaultStatsWindow = 7 * 24 * time.Hour

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "arbiter"
	DefaultTracingSampler     = "parent_based"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingServiceName = "arbiter"
	DefaultTracingTimeout     = 10 * time.Second
	DefaultHealthEnabled      = true
	DefaultLivenessPath       = "/health/live"
	DefaultReadinessPath      = "/health/ready"
	DefaultVersionPath        = "/version"
	DefaultHealthCheckTimeout = 2 * time.Second
)

// DefaultDurationBuckets are the latency histogram buckets in seconds.
var DefaultDurationBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// DefaultConfig returns a configuration with every default applied,
// including boolean fields whose default is true. LoadConfig decodes YAML on
// top of it so that an omitted boolean keeps its default.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Storage.SQLite.WALMode = DefaultSQLiteWALMode
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Health.Enabled = DefaultHealthEnabled
	ApplyDefaults(cfg)
	return cfg
}

// MinimalConfig returns a valid configuration backed by the in-memory store.
// It is intended for tests and for commands that do not need durability.
func MinimalConfig() *Config {
	cfg := DefaultConfig()
	cfg.Storage.Backend = "memory"
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyStorageDefaults(&cfg.Storage)
	applyPolicyDefaults(&cfg.Policy)

	// Ledger defaults
	if cfg.Ledger.MaxTextLength == 0 {
		cfg.Ledger.MaxTextLength = DefaultMaxTextLength
	}
	if cfg.Ledger.Sweeper.Schedule == "" {
		cfg.Ledger.Sweeper.Schedule = DefaultSweeperSchedule
	}
	if cfg.Ledger.Sweeper.MaxRunningAge == 0 {
		cfg.Ledger.Sweeper.MaxRunningAge = DefaultSweeperMaxRunningAge
	}
	if cfg.Ledger.Sweeper.BatchSize == 0 {
		cfg.Ledger.Sweeper.BatchSize = DefaultSweeperBatchSize
	}

	// Stats defaults
	if cfg.Stats.DefaultWindow == 0 {
		cfg.Stats.DefaultWindow = DefaultStatsWindow
	}

	applyTelemetryDefaults(&cfg.Telemetry)

	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretsEnvPrefix
	}
	if cfg.Secrets.CacheTTL == 0 {
		cfg.Secrets.CacheTTL = DefaultSecretsCacheTTL
	}
}

func applyServerDefaults(s *ServerConfig) {
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultListenAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.RequestTimeout == 0 {
		s.RequestTimeout = DefaultRequestTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.MaxHeaderBytes == 0 {
		s.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if len(s.CORS.AllowedMethods) == 0 {
		s.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	}
	if len(s.CORS.AllowedHeaders) == 0 {
		s.CORS.AllowedHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	if s.CORS.MaxAge == 0 {
		s.CORS.MaxAge = DefaultCORSMaxAge
	}
	if s.TLS.MinVersion == "" {
		s.TLS.MinVersion = DefaultTLSMinVersion
	}
	if s.TLS.ReloadInterval == 0 {
		s.TLS.ReloadInterval = DefaultTLSReload
	}
	if s.Auth.Header == "" {
		s.Auth.Header = DefaultAuthHeader
	}
}

func applyStorageDefaults(s *StorageConfig) {
	if s.Backend == "" {
		s.Backend = DefaultStorageBackend
	}
	if s.OperationTimeout == 0 {
		s.OperationTimeout = DefaultStorageOperationTimeout
	}
	if s.SQLite.Path == "" {
		s.SQLite.Path = DefaultSQLitePath
	}
	if s.SQLite.Driver == "" {
		s.SQLite.Driver = DefaultSQLiteDriver
	}
	if s.SQLite.MaxOpenConns == 0 {
		s.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if s.SQLite.BusyTimeout == 0 {
		s.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if s.Postgres.Port == 0 {
		s.Postgres.Port = DefaultPostgresPort
	}
	if s.Postgres.SSLMode == "" {
		s.Postgres.SSLMode = DefaultPostgresSSLMode
	}
	if s.Postgres.MaxConns == 0 {
		s.Postgres.MaxConns = DefaultPostgresMaxConns
	}
	if s.Postgres.MinConns == 0 {
		s.Postgres.MinConns = DefaultPostgresMinConns
	}
}

func applyPolicyDefaults(p *PolicyConfig) {
	if p.Bundles.Path == "" {
		p.Bundles.Path = DefaultBundlePath
	}
	if p.Bundles.Debounce == 0 {
		p.Bundles.Debounce = DefaultBundleDebounce
	}
	if p.Git.Branch == "" {
		p.Git.Branch = DefaultGitBranch
	}
	if p.Git.Path == "" {
		p.Git.Path = DefaultGitPath
	}
	if p.Git.LocalPath == "" {
		p.Git.LocalPath = DefaultGitLocalPath
	}
	if p.Git.PollInterval == 0 {
		p.Git.PollInterval = DefaultGitPollInterval
	}
	if p.Git.Auth.Type == "" {
		p.Git.Auth.Type = DefaultGitAuthType
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}

	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(t.Metrics.DurationBuckets) == 0 {
		t.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}

	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.Endpoint == "" {
		t.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.Timeout == 0 {
		t.Tracing.Timeout = DefaultTracingTimeout
	}

	if t.Health.LivenessPath == "" {
		t.Health.LivenessPath = DefaultLivenessPath
	}
	if t.Health.ReadinessPath == "" {
		t.Health.ReadinessPath = DefaultReadinessPath
	}
	if t.Health.VersionPath == "" {
		t.Health.VersionPath = DefaultVersionPath
	}
	if t.Health.CheckTimeout == 0 {
		t.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
