package postgres_test

import (
	"context"
	"os"
	"testing"

	"mercator-hq/arbiter/pkg/config"
	"mercator-hq/arbiter/pkg/store"
	"mercator-hq/arbiter/pkg/store/postgres"
	"mercator-hq/arbiter/pkg/store/storetest"
)

// The suite needs a disposable database; every table is truncated before
// each case.
func TestConformance(t *testing.T) {
	dsn := os.Getenv("ARBITER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ARBITER_TEST_POSTGRES_DSN not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := postgres.Open(ctx, config.PostgresConfig{DSN: dsn, MaxConns: 4}, nil)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if _, err := s.Migrate(ctx); err != nil {
			t.Fatalf("Migrate() error = %v", err)
		}
		if err := s.Truncate(ctx); err != nil {
			t.Fatalf("Truncate() error = %v", err)
		}
		return s
	})
}
