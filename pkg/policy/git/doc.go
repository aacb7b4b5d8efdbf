// Package git keeps a local clone of a policy bundle repository and imports
// its bundles.
//
// Source clones the repository on first sync, imports every bundle under
// the configured path, and then polls the tracked branch. A poll that
// brings in a commit touching bundle files triggers a new sync. A sync that
// fails validation imports nothing, so tenants keep their current policy
// sets until a later commit fixes the bundles.
//
//	repo, err := git.NewRepository(cfg.Policy.Git)
//	src := git.NewSource(repo, syncer, cfg.Policy.Git.PollInterval, logger)
//	if _, err := src.Sync(ctx); err != nil { ... }
//	go src.Run(ctx)
package git
