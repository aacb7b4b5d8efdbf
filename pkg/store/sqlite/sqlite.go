// Package sqlite implements the Store on SQLite through database/sql.
//
// Two drivers are supported: "sqlite" (modernc.org/sqlite, pure Go) and
// "sqlite3" (github.com/mattn/go-sqlite3, cgo). Foreign keys, WAL and the
// busy timeout are set through the DSN so every pooled connection has
// them.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/arbiter/pkg/apperrors"
	"mercator-hq/arbiter/pkg/config"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

const backend = "sqlite"

// Driver names registered by the two SQLite packages.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

// timeLayout is fixed width so that TEXT comparison orders timestamps.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Store implements store.Store on SQLite.
type Store struct {
	db     *sql.DB
	cfg    config.SQLiteConfig
	logger *slog.Logger
}

// Open opens the database at cfg.Path, creating parent directories. It
// does not apply the schema; call Migrate.
func Open(ctx context.Context, cfg config.SQLiteConfig, logger *slog.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, apperrors.NewStoreError(backend, "open", fmt.Errorf("db path cannot be empty"))
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store.sqlite")

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperrors.NewStoreError(backend, "open", err)
		}
	}

	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, apperrors.NewStoreError(backend, "open", err)
	}
	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, apperrors.NewStoreError(backend, "open", err)
	}

	maxConns := cfg.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, cfg: cfg, logger: logger}
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage opened",
		"path", cfg.Path,
		"driver", cfg.Driver,
		"wal_mode", cfg.WALMode,
		"max_open_conns", maxConns,
	)
	return s, nil
}

// buildDSN encodes the per-connection pragmas in each driver's syntax.
func buildDSN(cfg config.SQLiteConfig) (string, error) {
	busy := cfg.BusyTimeout.Milliseconds()
	q := url.Values{}
	q.Set("_txlock", "immediate")

	switch cfg.Driver {
	case DriverMattn:
		q.Set("_foreign_keys", "on")
		q.Set("_busy_timeout", fmt.Sprint(busy))
		if cfg.WALMode {
			q.Set("_journal_mode", "WAL")
		}
	case DriverModernc:
		q.Add("_pragma", "foreign_keys(1)")
		q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy))
		if cfg.WALMode {
			q.Add("_pragma", "journal_mode(WAL)")
		}
	default:
		return "", fmt.Errorf("unknown sqlite driver %q (valid: %s, %s)", cfg.Driver, DriverModernc, DriverMattn)
	}
	return "file:" + cfg.Path + "?" + q.Encode(), nil
}

func (s *Store) Backend() string { return backend }

// Migrate applies the pending migrations, each in its own transaction.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	if _, err := s.db.ExecContext(ctx, createSchemaVersion); err != nil {
		return 0, wrap("create_schema_version", err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx, getSchemaVersion).Scan(&current); err != nil {
		return 0, wrap("get_schema_version", err)
	}
	if current > len(migrations) {
		return current, apperrors.NewStoreError(backend, "migrate",
			fmt.Errorf("database schema version %d is newer than supported version %d", current, SchemaVersion))
	}

	for v := current + 1; v <= len(migrations); v++ {
		if err := s.applyMigration(ctx, v); err != nil {
			return current, err
		}
		current = v
		s.logger.Info("applied schema migration", "version", v)
	}
	return current, nil
}

func (s *Store) applyMigration(ctx context.Context, version int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("migrate", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, migrations[version-1]); err != nil {
		return wrap("migrate", fmt.Errorf("version %d: %w", version, err))
	}
	if _, err := tx.ExecContext(ctx, insertSchemaVersion, version, formatTime(time.Now())); err != nil {
		return wrap("migrate", err)
	}
	return wrap("migrate", tx.Commit())
}

func (s *Store) Ping(ctx context.Context) error {
	return wrap("ping", s.db.PingContext(ctx))
}

func (s *Store) Close() error {
	return wrap("close", s.db.Close())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// nullString maps "" to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
