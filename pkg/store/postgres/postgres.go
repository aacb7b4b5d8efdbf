// Package postgres implements the Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"mercator-hq/arbiter/pkg/apperrors"
	"mercator-hq/arbiter/pkg/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const backend = "postgres"

// foreignKeyViolation is the SQLSTATE for a failed REFERENCES check.
const foreignKeyViolation = "23503"

// Store implements store.Store on PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects a pool and pings the server. It does not apply the
// schema; call Migrate.
func Open(ctx context.Context, cfg config.PostgresConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store.postgres")

	poolCfg, err := pgxpool.ParseConfig(connString(cfg))
	if err != nil {
		return nil, apperrors.NewStoreError(backend, "open", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, apperrors.NewStoreError(backend, "open", err)
	}

	s := &Store{pool: pool, logger: logger}
	if err := s.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("PostgreSQL storage opened",
		"host", poolCfg.ConnConfig.Host,
		"database", poolCfg.ConnConfig.Database,
		"max_conns", poolCfg.MaxConns,
	)
	return s, nil
}

// connString prefers the DSN and otherwise builds a URL from the fields.
func connString(cfg config.PostgresConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   cfg.Host,
		Path:   "/" + cfg.Database,
	}
	if cfg.Port > 0 {
		u.Host += ":" + strconv.Itoa(cfg.Port)
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}

func (s *Store) Backend() string { return backend }

// Migrate applies pending migrations under an advisory lock so that nodes
// starting together do not race.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return 0, wrap("migrate", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return 0, wrap("migrate", err)
	}
	defer conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, migrationLockID)

	if _, err := conn.Exec(ctx, createSchemaVersion); err != nil {
		return 0, wrap("create_schema_version", err)
	}

	var current int
	if err := conn.QueryRow(ctx, getSchemaVersion).Scan(&current); err != nil {
		return 0, wrap("get_schema_version", err)
	}
	if current > len(migrations) {
		return current, apperrors.NewStoreError(backend, "migrate",
			fmt.Errorf("database schema version %d is newer than supported version %d", current, SchemaVersion))
	}

	for v := current + 1; v <= len(migrations); v++ {
		if err := applyMigration(ctx, conn.Conn(), v); err != nil {
			return current, err
		}
		current = v
		s.logger.Info("applied schema migration", "version", v)
	}
	return current, nil
}

func applyMigration(ctx context.Context, conn *pgx.Conn, version int) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return wrap("migrate", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, migrations[version-1]); err != nil {
		return wrap("migrate", fmt.Errorf("version %d: %w", version, err))
	}
	if _, err := tx.Exec(ctx, insertSchemaVersion, version); err != nil {
		return wrap("migrate", err)
	}
	return wrap("migrate", tx.Commit(ctx))
}

func (s *Store) Ping(ctx context.Context) error {
	return wrap("ping", s.pool.Ping(ctx))
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// wrap converts a driver error into a StoreError. nil stays nil.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return apperrors.NewStoreError(backend, op, err)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

// optional maps "" to NULL.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func utc(t time.Time) time.Time {
	return t.UTC()
}

// Truncate removes every policy, trace and event.
func (s *Store) Truncate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE policies, traces, model_calls, agent_calls, audit_events`)
	return wrap("truncate", err)
}
