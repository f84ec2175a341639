// Package scheduler triggers pipeline runs on a cron schedule inside a
// long-running process.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/weather-etl-service/internal/domain"
	"github.com/couchcryptid/weather-etl-service/internal/observability"
	"github.com/robfig/cron/v3"
)

// Runner performs one pipeline run.
type Runner interface {
	RunOnce(ctx context.Context) (domain.WeatherReading, error)
}

// Scheduler runs the pipeline on every tick of a cron schedule, in UTC.
// A tick that fires while the previous run is still in progress is skipped.
// Missed ticks are never replayed.
type Scheduler struct {
	cron       *cron.Cron
	entry      cron.EntryID
	runner     Runner
	runTimeout time.Duration
	metrics    *observability.Metrics
	logger     *slog.Logger

	mu      sync.Mutex // held for the duration of a run
	baseCtx context.Context
}

// New parses schedule (standard five-field cron or a descriptor such as @daily)
// and prepares a scheduler. Nothing runs until Run is called.
func New(schedule string, runTimeout time.Duration, runner Runner, metrics *observability.Metrics, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		runner:     runner,
		runTimeout: runTimeout,
		metrics:    metrics,
		logger:     logger,
		baseCtx:    context.Background(),
	}

	cl := cronLogger{logger: logger}
	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)

	id, err := s.cron.AddFunc(schedule, s.tick)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	s.entry = id
	return s, nil
}

// Run starts the schedule and blocks until ctx is cancelled. It then stops
// accepting ticks and waits for an in-flight run to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.baseCtx = ctx
	s.cron.Start()
	s.metrics.SchedulerRunning.Set(1)
	s.logger.Info("scheduler started", "next_run", s.Next())

	<-ctx.Done()

	s.logger.Info("scheduler stopping", "reason", ctx.Err())
	<-s.cron.Stop().Done()
	s.metrics.SchedulerRunning.Set(0)
	return nil
}

// Next reports when the next tick is due. It is the zero time until Run
// has started the schedule.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

func (s *Scheduler) tick() {
	if !s.mu.TryLock() {
		s.metrics.SkippedRuns.Inc()
		s.logger.Warn("previous run still in progress, skipping tick")
		return
	}
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.baseCtx, s.runTimeout)
	defer cancel()

	if _, err := s.runner.RunOnce(ctx); err != nil {
		s.logger.Error("scheduled run failed", "error", err)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
