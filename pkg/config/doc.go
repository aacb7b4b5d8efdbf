// Package config provides configuration management for Arbiter.
//
// Configuration is read from a YAML file, decoded on top of the defaults in
// defaults.go, optionally overridden by environment variables, and validated
// as a whole.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("arbiter.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("arbiter.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention ARBITER_SECTION_FIELD:
//
//   - ARBITER_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - ARBITER_STORAGE_POSTGRES_DSN overrides storage.postgres.dsn
//   - ARBITER_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Values that fail to parse are ignored.
//
// # Configuration Precedence
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Reloading
//
// A Holder owns the configuration of a running process. Reload re-reads the
// file and notifies subscribers registered with OnReload; a failed reload
// keeps the previous configuration.
//
// # Validation
//
// Validate collects every FieldError before returning, so a single run
// reports all problems in a file.
package config
