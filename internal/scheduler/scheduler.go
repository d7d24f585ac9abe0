// Package scheduler fires the periodic tracking runs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ketracker/backend/internal/domain"
)

// Runner is the part of the tracker service the scheduler drives
type Runner interface {
	RefreshReport(ctx context.Context, targets []domain.TrackedTarget) *domain.BatchRun
	RunStockCheck(ctx context.Context, targets []domain.TrackedTarget) *domain.CheckRun
	RunChangeCheck(ctx context.Context, targets []domain.TrackedTarget) *domain.CheckRun
}

// Config holds schedule settings. Intervals below one second are rounded up.
type Config struct {
	Location       *time.Location
	DailyHour      int
	StockInterval  time.Duration
	ChangeInterval time.Duration
}

type job struct {
	name     string
	schedule cron.Schedule
	run      func(ctx context.Context, targets []domain.TrackedTarget)
}

// Scheduler runs the daily report refresh and the interval checks
type Scheduler struct {
	source   domain.TargetSource
	jobs     []job
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

// New builds the job list; a zero interval disables that check.
func New(runner Runner, source domain.TargetSource, cfg Config, logger *slog.Logger) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}

	daily, err := cron.ParseStandard(fmt.Sprintf("0 %d * * *", cfg.DailyHour))
	if err != nil {
		return nil, fmt.Errorf("invalid daily hour %d: %w", cfg.DailyHour, err)
	}

	s := &Scheduler{source: source, location: cfg.Location, logger: logger, now: time.Now}
	s.jobs = append(s.jobs, job{
		name:     "daily_report",
		schedule: daily,
		run: func(ctx context.Context, targets []domain.TrackedTarget) {
			runner.RefreshReport(ctx, targets)
		},
	})
	if cfg.StockInterval > 0 {
		s.jobs = append(s.jobs, job{
			name:     "stock_check",
			schedule: cron.Every(cfg.StockInterval),
			run: func(ctx context.Context, targets []domain.TrackedTarget) {
				runner.RunStockCheck(ctx, targets)
			},
		})
	}
	if cfg.ChangeInterval > 0 {
		s.jobs = append(s.jobs, job{
			name:     "change_check",
			schedule: cron.Every(cfg.ChangeInterval),
			run: func(ctx context.Context, targets []domain.TrackedTarget) {
				runner.RunChangeCheck(ctx, targets)
			},
		})
	}
	return s, nil
}

// Run blocks until ctx is cancelled, then waits for running jobs to return.
// A tick that arrives while the same job is still running is skipped.
func (s *Scheduler) Run(ctx context.Context) {
	log := cronLogger{s.logger}
	c := cron.New(
		cron.WithLocation(s.location),
		cron.WithLogger(log),
		cron.WithChain(cron.SkipIfStillRunning(log)),
	)
	for _, j := range s.jobs {
		c.Schedule(j.schedule, cron.FuncJob(func() { s.fire(ctx, j) }))
	}

	c.Start()
	s.logger.Info("scheduler started", "jobs", len(s.jobs), "location", s.location.String())
	for _, e := range c.Entries() {
		s.logger.Debug("job scheduled", "entry", int(e.ID), "next", e.Next)
	}

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) fire(ctx context.Context, j job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", "job", j.name, "panic", r)
		}
	}()

	targets, err := s.source.Targets(ctx)
	if err != nil {
		s.logger.Error("failed to load targets", "job", j.name, "error", err)
		return
	}
	if len(targets) == 0 {
		return
	}

	start := s.now()
	j.run(ctx, targets)
	s.logger.Info("job finished", "job", j.name, "targets", len(targets), "duration", time.Since(start))
}

// cronLogger adapts slog to cron.Logger. cron reports every wake-up at info
// level, so those go to debug.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
