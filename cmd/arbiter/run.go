package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"mercator-hq/arbiter/pkg/api/handlers"
	"mercator-hq/arbiter/pkg/cli"
	"mercator-hq/arbiter/pkg/config"
	"mercator-hq/arbiter/pkg/ledger/sweeper"
	"mercator-hq/arbiter/pkg/policy/bundle"
	"mercator-hq/arbiter/pkg/policy/git"
	"mercator-hq/arbiter/pkg/security/auth"
	servertls "mercator-hq/arbiter/pkg/security/tls"
	"mercator-hq/arbiter/pkg/server"
	"mercator-hq/arbiter/pkg/telemetry/health"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var runFlags struct {
	listenAddress string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Arbiter API server",
	Long: `Start the Arbiter API server with the specified configuration.

The schema is migrated, configured policy bundles are imported, the
stale-trace sweeper is scheduled and the API is served until SIGINT or
SIGTERM. SIGHUP reloads the configuration file and applies the new log level.

Examples:
  # Start with default config
  arbiter run

  # Start with custom config
  arbiter run --config /etc/arbiter/config.yaml

  # Override listen address
  arbiter run --listen 0.0.0.0:8080

  # Validate config without starting server
  arbiter run --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	holder, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := holder.Get()
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		cli.Success(out, "Configuration valid")
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(commandContext(cmd))
	defer stop()

	a, err := newApp(ctx, cfg, true, cmd.OutOrStdout())
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			a.logger.Error("shutdown failed", "error", err)
		}
	}()
	slog.SetDefault(a.logger.Logger)
	logger := a.logger.Logger

	cli.Success(out, "Arbiter %s, %s store ready", Version, a.store.Backend())

	validator := auth.NewValidator(cfg.Server.Auth.Keys)
	holder.OnReload(func(c *config.Config) {
		validator.Replace(c.Server.Auth.Keys)
		if err := a.logger.SetLevel(c.Telemetry.Logging.Level); err != nil {
			logger.Warn("invalid log level in reloaded config", "error", err)
			return
		}
		logger.Info("configuration reloaded",
			"log_level", c.Telemetry.Logging.Level,
			"api_keys", validator.Len(),
		)
	})

	g, ctx := errgroup.WithContext(ctx)

	syncer := bundle.NewSyncer(a.importer, bundle.NewLoader(), logger)
	if err := startBundleSources(ctx, g, cfg, syncer, logger); err != nil {
		return cli.NewCommandError("run", err)
	}

	if cfg.Ledger.Sweeper.Enabled {
		sw := sweeper.New(a.ledger, cfg.Ledger.Sweeper, a.metrics, logger)
		if err := sw.Start(ctx); err != nil {
			return cli.NewCommandError("run", err)
		}
		defer sw.Stop()
	}

	tlsConfig, err := startTLS(ctx, g, cfg.Server.TLS, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("store", health.PingCheck(a.store))

	srv := server.New(cfg.Server, cfg.Telemetry, server.Options{
		API:     handlers.New(a.engine, a.importer, a.ledger, a.stats, logger),
		Health:  checker,
		Metrics: a.metrics,
		Tracer:  a.tracer,
		Auth:    validator,
		TLS:     tlsConfig,
		Build:   server.BuildInfo{Version: Version, Commit: GitCommit, BuildTime: BuildDate},
		Logger:  logger,
	})
	g.Go(func() error {
		return srv.Start(ctx)
	})

	g.Go(func() error {
		for range cli.ReloadSignals(ctx) {
			logger.Info("received SIGHUP, reloading configuration", "path", holder.Path())
			if err := holder.Reload(); err != nil {
				logger.Error("configuration reload failed, keeping current configuration", "error", err)
			}
		}
		return nil
	})

	scheme := "http"
	if tlsConfig != nil {
		scheme = "https"
	}
	cli.Success(out, "Listening on %s://%s", scheme, cfg.Server.ListenAddress)
	if err := g.Wait(); err != nil {
		return cli.NewCommandError("run", err)
	}
	cli.Success(out, "Server stopped")
	return nil
}

// startBundleSources imports bundles from the configured directory and Git
// repository and starts their watchers. An initial import failure is fatal;
// later failures are logged and keep the previous policy sets.
func startBundleSources(ctx context.Context, g *errgroup.Group, cfg *config.Config, syncer *bundle.Syncer, logger *slog.Logger) error {
	if b := cfg.Policy.Bundles; b.Enabled {
		res, err := syncer.SyncDir(ctx, b.Path)
		if err != nil {
			return fmt.Errorf("failed to import policy bundles from %s: %w", b.Path, err)
		}
		logger.Info("policy bundles imported", "path", b.Path, "tenants", res.Tenants, "rules", res.Rules)

		if b.Watch {
			w, err := bundle.NewWatcher(b.Path, syncer, b.Debounce, logger)
			if err != nil {
				return err
			}
			g.Go(func() error { return w.Run(ctx) })
		}
	}

	if gc := cfg.Policy.Git; gc.Enabled {
		repo, err := git.NewRepository(gc)
		if err != nil {
			return err
		}
		src := git.NewSource(repo, syncer, gc.PollInterval, logger)
		res, err := src.Sync(ctx)
		if err != nil {
			return fmt.Errorf("failed to import policy bundles from %s: %w", gc.Repository, err)
		}
		logger.Info("git policy bundles imported",
			"repository", gc.Repository,
			"commit", src.LastSHA(),
			"tenants", res.Tenants,
		)
		g.Go(func() error { return src.Run(ctx) })
	}
	return nil
}

// startTLS loads the server certificate and keeps it fresh. It returns nil
// when TLS is disabled.
func startTLS(ctx context.Context, g *errgroup.Group, cfg config.TLSConfig, logger *slog.Logger) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	reloader := servertls.NewCertificateReloader(cfg.CertFile, cfg.KeyFile, cfg.ReloadInterval, logger)
	if err := reloader.Load(); err != nil {
		return nil, fmt.Errorf("failed to load server certificate: %w", err)
	}
	tlsConfig, err := servertls.NewServerConfig(cfg, reloader)
	if err != nil {
		return nil, err
	}
	g.Go(func() error { return reloader.Run(ctx) })
	return tlsConfig, nil
}
