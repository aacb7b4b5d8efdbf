package bundle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"mercator-hq/arbiter/pkg/policy"
)

// Importer replaces a tenant's policy set. *policy.Importer implements it.
type Importer interface {
	Import(ctx context.Context, tenantID, version string, rules []policy.Rule) (int, error)
}

// Result summarizes one sync.
type Result struct {
	Tenants int
	Rules   int
}

// Syncer imports every bundle in a directory. Runs are serialized so a
// watcher event and a git poll cannot interleave imports.
type Syncer struct {
	importer Importer
	loader   *Loader
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewSyncer creates a syncer. A nil loader uses NewLoader().
func NewSyncer(importer Importer, loader *Loader, logger *slog.Logger) *Syncer {
	if loader == nil {
		loader = NewLoader()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		importer: importer,
		loader:   loader,
		logger:   logger.With("component", "policy.bundle"),
	}
}

// SyncDir loads all bundles under dir and imports them tenant by tenant.
// Nothing is imported when any bundle is invalid. An import failure stops
// the run; tenants imported before it keep their new sets.
func (s *Syncer) SyncDir(ctx context.Context, dir string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bundles, err := s.loader.LoadDir(dir)
	if err != nil {
		s.logger.Error("policy bundles rejected", "path", dir, "error", err)
		return Result{}, err
	}

	var res Result
	for _, b := range bundles {
		n, err := s.importer.Import(ctx, b.TenantID, b.Version, b.Policies)
		if err != nil {
			return res, fmt.Errorf("import %s from %s: %w", b.TenantID, b.Path, err)
		}
		res.Tenants++
		res.Rules += n
	}

	s.logger.Info("policy bundles synced",
		"path", dir,
		"tenants", res.Tenants,
		"rules", res.Rules,
	)
	return res, nil
}
