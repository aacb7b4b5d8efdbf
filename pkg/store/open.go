package store

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/arbiter/pkg/config"
	"mercator-hq/arbiter/pkg/store/memory"
	"mercator-hq/arbiter/pkg/store/postgres"
	"mercator-hq/arbiter/pkg/store/sqlite"
)

// Open constructs the backend named by cfg.Backend. The caller owns the
// returned store and must Close it.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		return memory.New(), nil
	case BackendSQLite, "":
		return sqlite.Open(ctx, cfg.SQLite, logger)
	case BackendPostgres:
		return postgres.Open(ctx, cfg.Postgres, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
