package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ketracker/backend/internal/domain"
)

// errTaskPanicked marks the result of a target whose task panicked
var errTaskPanicked = errors.New("target task panicked")

// notFoundMarker fills the shop column of report rows for unresolved targets
const notFoundMarker = "not found"

// TrackerServiceConfig holds configuration for the tracker service
type TrackerServiceConfig struct {
	Workers     int
	CallTimeout time.Duration
	Location    *time.Location
}

// TrackerService runs resolutions for batches of targets on a bounded worker pool
type TrackerService struct {
	resolver    *VariantResolver
	detector    *ChangeDetector
	journal     domain.Journal
	workers     int
	callTimeout time.Duration
	location    *time.Location
	logger      *slog.Logger
	now         func() time.Time
}

// NewTrackerService creates a tracker service with dependencies
func NewTrackerService(
	resolver *VariantResolver,
	detector *ChangeDetector,
	journal domain.Journal,
	config TrackerServiceConfig,
	logger *slog.Logger,
) *TrackerService {
	workers := config.Workers
	if workers <= 0 {
		workers = 4
	}
	callTimeout := config.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 2 * time.Minute
	}
	loc := config.Location
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &TrackerService{
		resolver:    resolver,
		detector:    detector,
		journal:     journal,
		workers:     workers,
		callTimeout: callTimeout,
		location:    loc,
		logger:      logger,
		now:         time.Now,
	}
}

// forEach runs fn once per target, at most s.workers at a time, each under its own
// call timeout. A failing or panicking task never affects the others.
func (s *TrackerService) forEach(ctx context.Context, logger *slog.Logger, targets []domain.TrackedTarget, fn func(ctx context.Context, i int, t domain.TrackedTarget)) {
	var g errgroup.Group
	g.SetLimit(s.workers)

	for i, t := range targets {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("target task panicked", "target", t.Name, "panic", r)
				}
			}()
			callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
			defer cancel()
			fn(callCtx, i, t)
			return nil
		})
	}
	_ = g.Wait()
}

// RunBatchRefresh resolves every target and returns one result per target, in order.
func (s *TrackerService) RunBatchRefresh(ctx context.Context, targets []domain.TrackedTarget) *domain.BatchRun {
	run := &domain.BatchRun{
		RunID:     uuid.NewString(),
		StartedAt: s.now(),
		Results:   make([]domain.BatchResult, len(targets)),
	}
	for i, t := range targets {
		run.Results[i] = domain.BatchResult{Target: t, Err: errTaskPanicked, Error: errTaskPanicked.Error()}
	}
	logger := s.logger.With("run_id", run.RunID, "job", "refresh")
	logger.Info("batch refresh started", "targets", len(targets))

	s.forEach(ctx, logger, targets, func(ctx context.Context, i int, t domain.TrackedTarget) {
		result := domain.BatchResult{Target: t}
		v, err := s.resolver.Resolve(ctx, t)
		if err != nil {
			err = asTimeout(err)
			result.Err = err
			result.Error = err.Error()
			logger.Warn("target not resolved", "target", t.Name, "error", err)
		} else {
			result.Variant = v
		}
		run.Results[i] = result
	})

	run.FinishedAt = s.now()
	logger.Info("batch refresh finished", "duration", run.FinishedAt.Sub(run.StartedAt))
	return run
}

// RefreshReport runs a batch refresh and appends one report row per target.
func (s *TrackerService) RefreshReport(ctx context.Context, targets []domain.TrackedTarget) *domain.BatchRun {
	run := s.RunBatchRefresh(ctx, targets)
	stamp := run.FinishedAt.In(s.location).Format(JournalTimeLayout)
	for _, r := range run.Results {
		if err := s.journal.AppendRow(ctx, domain.JournalReport, reportRow(stamp, r)); err != nil {
			s.logger.Error("journal append failed", "run_id", run.RunID, "journal", domain.JournalReport, "error", err)
		}
	}
	return run
}

// RunStockCheck inspects every target's variant and applies the stock policy.
func (s *TrackerService) RunStockCheck(ctx context.Context, targets []domain.TrackedTarget) *domain.CheckRun {
	run := &domain.CheckRun{RunID: uuid.NewString(), Targets: len(targets)}
	logger := s.logger.With("run_id", run.RunID, "job", "stock")

	var sent atomic.Int64
	s.forEach(ctx, logger, targets, func(ctx context.Context, _ int, t domain.TrackedTarget) {
		v, err := s.resolver.Inspect(ctx, t.Link)
		if err != nil {
			if s.detector.ReportFailure(ctx, CheckStock, t, asTimeout(err)) {
				sent.Add(1)
			}
			return
		}
		if s.detector.CheckStock(ctx, t, v) {
			sent.Add(1)
		}
	})

	run.Notifications = int(sent.Load())
	logger.Debug("stock check finished", "targets", run.Targets, "notifications", run.Notifications)
	return run
}

// RunChangeCheck fully resolves every target and applies the price policy.
func (s *TrackerService) RunChangeCheck(ctx context.Context, targets []domain.TrackedTarget) *domain.CheckRun {
	run := &domain.CheckRun{RunID: uuid.NewString(), Targets: len(targets)}
	logger := s.logger.With("run_id", run.RunID, "job", "changes")

	var sent atomic.Int64
	s.forEach(ctx, logger, targets, func(ctx context.Context, _ int, t domain.TrackedTarget) {
		v, err := s.resolver.Resolve(ctx, t)
		if err != nil {
			if s.detector.ReportFailure(ctx, CheckPrice, t, asTimeout(err)) {
				sent.Add(1)
			}
			return
		}
		if s.detector.CheckPrice(ctx, t, v) {
			sent.Add(1)
		}
	})

	run.Notifications = int(sent.Load())
	logger.Debug("change check finished", "targets", run.Targets, "notifications", run.Notifications)
	return run
}

// reportRow renders one batch result as a report journal row.
func reportRow(stamp string, r domain.BatchResult) []string {
	t := r.Target
	if r.Variant == nil {
		marker := notFoundMarker
		if !domain.IsNotFound(r.Err) {
			marker = "error"
		}
		return []string{stamp, t.Name, t.Query, t.Group, t.Link, marker}
	}

	v := r.Variant
	position := "no"
	if v.SearchPosition != domain.NotRanked {
		position = strconv.Itoa(v.SearchPosition)
	}
	return []string{
		stamp,
		t.Name,
		t.Query,
		t.Group,
		t.Link,
		v.Shop,
		v.Characteristic,
		strconv.FormatInt(v.ProductID, 10),
		strconv.FormatInt(v.VariantID, 10),
		strconv.Itoa(v.ReviewCount),
		fmt.Sprintf("%.2f", v.Rating),
		strconv.Itoa(v.Orders),
		strconv.Itoa(v.WeekOrders),
		strconv.Itoa(v.Stock),
		formatPrice(v.Price),
		position,
		strconv.Itoa(v.TotalCount),
	}
}
