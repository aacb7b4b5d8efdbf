package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"mercator-hq/arbiter/pkg/cli"
	"mercator-hq/arbiter/pkg/config"
	"mercator-hq/arbiter/pkg/ledger"
	"mercator-hq/arbiter/pkg/policy"
	"mercator-hq/arbiter/pkg/stats"
	"mercator-hq/arbiter/pkg/store"
	"mercator-hq/arbiter/pkg/telemetry/logging"
	"mercator-hq/arbiter/pkg/telemetry/metrics"
	"mercator-hq/arbiter/pkg/telemetry/tracing"
)

// app holds the components shared by the commands that touch the store.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	store    store.Store
	engine   *policy.Engine
	importer *policy.Importer
	ledger   *ledger.Manager
	stats    *stats.Aggregator
}

// newLogger builds the configured logger writing to w.
func newLogger(cfg *config.Config, w io.Writer) (*logging.Logger, error) {
	lc := logging.FromConfig(cfg.Telemetry.Logging)
	lc.Writer = w
	logger, err := logging.New(lc)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return logger, nil
}

// newApp opens the store and builds the domain components. The schema is
// migrated only when migrate is set. The server logs to stdout; one-shot
// commands pass os.Stderr so their output stays parseable.
func newApp(ctx context.Context, cfg *config.Config, migrate bool, logTo io.Writer) (*app, error) {
	if logTo == nil {
		logTo = os.Stdout
	}
	logger, err := newLogger(cfg, logTo)
	if err != nil {
		return nil, err
	}

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	}

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	backend, err := store.Open(ctx, cfg.Storage, logger.Logger)
	if err != nil {
		_ = tracer.Shutdown(ctx)
		return nil, err
	}
	if migrate {
		if _, err := backend.Migrate(ctx); err != nil {
			backend.Close()
			_ = tracer.Shutdown(ctx)
			return nil, err
		}
	}
	st := store.Instrument(backend, cfg.Storage.OperationTimeout, tracer, collector)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: collector,
		tracer:  tracer,
		store:   st,
	}
	a.engine = policy.NewEngine(st, logger.Logger, policy.WithRecorder(collector))
	a.importer = policy.NewImporter(st, logger.Logger, policy.WithRecorder(collector))
	a.ledger = ledger.NewManager(st, logger.Logger,
		ledger.WithRecorder(collector),
		ledger.WithMaxTextLength(cfg.Ledger.MaxTextLength),
	)
	a.stats = stats.NewAggregator(st, logger.Logger,
		stats.WithRecorder(collector),
		stats.WithDefaultWindow(cfg.Stats.DefaultWindow),
	)
	return a, nil
}

// Close flushes spans and closes the store.
func (a *app) Close(ctx context.Context) error {
	return errors.Join(a.tracer.Shutdown(ctx), a.store.Close())
}
