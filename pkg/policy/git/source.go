package git

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"mercator-hq/arbiter/pkg/policy/bundle"
)

// Source imports policy bundles from a Repository.
type Source struct {
	repo     *Repository
	syncer   *bundle.Syncer
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	lastSHA string
}

// NewSource creates a source. A zero interval disables polling in Run.
func NewSource(repo *Repository, syncer *bundle.Syncer, interval time.Duration, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		repo:     repo,
		syncer:   syncer,
		interval: interval,
		logger:   logger.With("component", "policy.git"),
	}
}

// Sync clones the repository if needed and imports every bundle at HEAD.
func (s *Source) Sync(ctx context.Context) (bundle.Result, error) {
	head, err := s.repo.Clone(ctx)
	if err != nil {
		return bundle.Result{}, err
	}
	return s.syncAt(ctx, head.SHA)
}

func (s *Source) syncAt(ctx context.Context, sha string) (bundle.Result, error) {
	res, err := s.syncer.SyncDir(ctx, s.repo.BundleDir())

	s.mu.Lock()
	s.lastSHA = sha
	s.mu.Unlock()

	if err != nil {
		return res, fmt.Errorf("sync commit %s: %w", shortSHA(sha), err)
	}
	s.logger.Info("policy bundles synced from git",
		"commit", shortSHA(sha),
		"tenants", res.Tenants,
		"rules", res.Rules,
	)
	return res, nil
}

// LastSHA returns the commit of the most recent sync attempt.
func (s *Source) LastSHA() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSHA
}

// Run polls the remote until ctx is cancelled.
func (s *Source) Run(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info("git polling disabled")
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("git poller started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("git poller stopped")
			return nil
		case <-ticker.C:
			if err := s.Poll(ctx); err != nil {
				s.logger.Error("git poll failed", "error", err)
			}
		}
	}
}

// Poll pulls once and re-syncs when bundle files changed.
func (s *Source) Poll(ctx context.Context) error {
	res, err := s.repo.Pull(ctx)
	if err != nil {
		return err
	}
	if !res.HadChanges() {
		return nil
	}

	if !touchesBundles(res.ChangedFiles, s.repo.BundlePath()) {
		s.logger.Info("no bundle files changed, skipping sync",
			"from_sha", shortSHA(res.FromSHA),
			"to_sha", shortSHA(res.ToSHA),
		)
		s.mu.Lock()
		s.lastSHA = res.ToSHA
		s.mu.Unlock()
		return nil
	}

	s.logger.Info("bundle changes detected",
		"from_sha", shortSHA(res.FromSHA),
		"to_sha", shortSHA(res.ToSHA),
		"changed_files", len(res.ChangedFiles),
	)
	_, err = s.syncAt(ctx, res.ToSHA)
	return err
}

// touchesBundles reports whether any changed file is a bundle under dir.
func touchesBundles(files []string, dir string) bool {
	for _, f := range files {
		if !bundle.IsBundleFile(f) {
			continue
		}
		if dir == "." || dir == "" || strings.HasPrefix(path.Clean(f), dir+"/") {
			return true
		}
	}
	return false
}

func shortSHA(sha string) string {
	return CommitInfo{SHA: sha}.Short()
}
