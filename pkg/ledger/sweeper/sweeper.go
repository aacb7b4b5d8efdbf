// Package sweeper cancels traces left running past a maximum age.
//
// Callers are expected to end every trace they start, but a crashed caller
// leaves its trace running forever and it then never leaves the "running"
// bucket in reports. The sweeper ends such traces with status cancelled
// through the normal end path, so a trace that ended in the meantime is
// never touched.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/arbiter/pkg/config"

	"github.com/robfig/cron/v3"
)

// Summary is written as the result summary of every swept trace.
const Summary = "swept: exceeded max running age"

// Canceller ends stale traces. *ledger.Manager implements it.
type Canceller interface {
	CancelStale(ctx context.Context, maxAge time.Duration, limit int, summary string) (int, error)
}

// Recorder receives sweep metrics.
type Recorder interface {
	RecordSweep(cancelled int, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordSweep(int, error) {}

// Sweeper runs CancelStale on a cron schedule.
type Sweeper struct {
	canceller Canceller
	cfg       config.SweeperConfig
	recorder  Recorder
	logger    *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// New creates a sweeper. A nil recorder records nothing.
func New(c Canceller, cfg config.SweeperConfig, recorder Recorder, logger *slog.Logger) *Sweeper {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		canceller: c,
		cfg:       cfg,
		recorder:  recorder,
		logger:    logger.With("component", "ledger.sweeper"),
		cron:      cron.New(),
	}
}

// RunOnce cancels up to BatchSize traces older than MaxRunningAge.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := s.canceller.CancelStale(ctx, s.cfg.MaxRunningAge, s.cfg.BatchSize, Summary)
	s.recorder.RecordSweep(n, err)
	if err != nil {
		s.logger.Error("stale trace sweep failed",
			"cancelled", n,
			"error", err,
		)
		return n, err
	}

	if n > 0 {
		s.logger.Info("stale traces cancelled",
			"cancelled", n,
			"max_running_age", s.cfg.MaxRunningAge,
			"duration", time.Since(start),
		)
	} else {
		s.logger.Debug("stale trace sweep found nothing")
	}
	return n, nil
}

// Start schedules RunOnce on cfg.Schedule (standard 5-field cron) and
// stops when ctx is cancelled. An empty schedule schedules nothing.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("sweeper already running")
	}
	if s.cfg.Schedule == "" {
		s.logger.Info("sweep schedule not configured, skipping")
		return nil
	}
	if _, err := cron.ParseStandard(s.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.cfg.Schedule, err)
	}
	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("sweeper started",
		"schedule", s.cfg.Schedule,
		"max_running_age", s.cfg.MaxRunningAge,
		"batch_size", s.cfg.BatchSize,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop stops the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("sweeper stopped")
}

// IsRunning reports whether the schedule is active.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled sweep, or nil when none is scheduled.
func (s *Sweeper) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
