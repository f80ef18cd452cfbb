package services

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"series-platform/pkg/logging"
	"series-platform/pkg/metrics"
)

// RefreshScheduler runs periodic cache invalidation and median
// recalculation on standard cron schedules. An empty schedule disables its job.
type RefreshScheduler struct {
	cron           *cron.Cron
	catalog        *CatalogService
	peers          *PeerService
	cacheSchedule  string
	medianSchedule string
	logger         *logging.StructuredLogger
	metrics        *metrics.Collector
}

// NewRefreshScheduler creates a scheduler; jobs are registered by Start
func NewRefreshScheduler(catalog *CatalogService, peers *PeerService, cacheSchedule, medianSchedule string, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *RefreshScheduler {
	return &RefreshScheduler{
		cron:           cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		catalog:        catalog,
		peers:          peers,
		cacheSchedule:  cacheSchedule,
		medianSchedule: medianSchedule,
		logger:         logger,
		metrics:        metricsCollector,
	}
}

// Start registers the configured jobs and starts the scheduler. Jobs run
// with ctx, so cancelling it aborts an in-flight median run.
func (r *RefreshScheduler) Start(ctx context.Context) error {
	if r.cacheSchedule != "" {
		if _, err := r.cron.AddFunc(r.cacheSchedule, func() { r.RefreshCache(ctx) }); err != nil {
			return fmt.Errorf("invalid cache refresh schedule %q: %w", r.cacheSchedule, err)
		}
	}
	if r.medianSchedule != "" {
		if _, err := r.cron.AddFunc(r.medianSchedule, func() { _ = r.RefreshMedians(ctx) }); err != nil {
			return fmt.Errorf("invalid median refresh schedule %q: %w", r.medianSchedule, err)
		}
	}

	r.cron.Start()

	r.logger.Info(ctx, "[SCHEDULER_START] Refresh scheduler started", logging.Fields{
		"cache_schedule":  r.cacheSchedule,
		"median_schedule": r.medianSchedule,
		"jobs":            len(r.cron.Entries()),
	})
	return nil
}

// Stop stops scheduling and waits for running jobs to finish
func (r *RefreshScheduler) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info(context.Background(), "[SCHEDULER_STOP] Refresh scheduler stopped", logging.Fields{})
}

// Jobs returns the number of registered jobs
func (r *RefreshScheduler) Jobs() int {
	return len(r.cron.Entries())
}

// RefreshCache drops every cached series
func (r *RefreshScheduler) RefreshCache(ctx context.Context) {
	r.catalog.InvalidateCache(ctx)
	r.metrics.RecordScheduledRun("cache_refresh", nil)
}

// RefreshMedians recalculates and stores the medians of every peer group.
// The series cache is cleared first so the run reads current storage.
func (r *RefreshScheduler) RefreshMedians(ctx context.Context) error {
	r.catalog.InvalidateCache(ctx)

	result, err := r.peers.CalculateAllMedians(ctx)
	if err == nil && len(result.Errors) > 0 {
		err = fmt.Errorf("%d peer groups failed", len(result.Errors))
	}
	r.metrics.RecordScheduledRun("median_refresh", err)

	if err != nil {
		r.logger.Error(ctx, "[SCHEDULER_MEDIANS_ERROR] Scheduled median refresh failed", logging.Fields{}, err)
	}
	return err
}
