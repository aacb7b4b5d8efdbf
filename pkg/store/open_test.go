package store

import (
	"context"
	"path/filepath"
	"testing"

	"mercator-hq/arbiter/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StorageConfig{Backend: BackendMemory}, nil)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, s.Backend())
	s.Close()

	s, err = Open(ctx, config.StorageConfig{
		Backend: BackendSQLite,
		SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "a.db"), Driver: "sqlite"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, s.Backend())
	s.Close()

	_, err = Open(ctx, config.StorageConfig{Backend: "cassandra"}, nil)
	assert.Error(t, err)
}
