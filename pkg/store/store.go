package store

import (
	"context"

	"mercator-hq/arbiter/pkg/ledger"
	"mercator-hq/arbiter/pkg/policy"
	"mercator-hq/arbiter/pkg/stats"
)

// SchemaVersion is the forward-only schema version the backends apply.
const SchemaVersion = 1

// Backend names accepted in storage.backend.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Store is the durable storage for policies, traces and ledger events.
// It is constructed explicitly, shared by the engine, the ledger manager
// and the stats aggregator, and closed on shutdown.
type Store interface {
	policy.Store
	ledger.Store
	stats.Store

	// Migrate applies pending schema versions and returns the current one.
	Migrate(ctx context.Context) (int, error)

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Backend returns the backend name used in errors and metrics.
	Backend() string

	Close() error
}
