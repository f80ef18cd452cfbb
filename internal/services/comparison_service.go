package services

import (
	"context"
	"errors"
	"time"

	"series-platform/internal/analytics"
	"series-platform/internal/models"
	"series-platform/pkg/logging"
	"series-platform/pkg/metrics"
)

// ComparisonRequest selects series and a view for a side-by-side comparison
type ComparisonRequest struct {
	// Selection holds display labels or series keys, in display order
	Selection []string
	View      models.View
	Sub       models.SubOption
	Range     *models.DateRange
}

// ComparisonService aligns selected catalog series for charting
type ComparisonService struct {
	catalog *CatalogService
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewComparisonService creates a new comparison service
func NewComparisonService(catalog *CatalogService, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ComparisonService {
	return &ComparisonService{
		catalog: catalog,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Compare loads the selected series and aligns them under the requested view.
// Series that cannot be transformed are dropped and reported in the result's
// warnings; an unknown selection fails the whole request.
func (s *ComparisonService) Compare(ctx context.Context, req ComparisonRequest) (analytics.AlignedComparison, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[COMPARE_START] Building comparison", logging.Fields{
		"selection": req.Selection,
		"view":      req.View,
		"sub":       req.Sub,
	})

	if len(req.Selection) == 0 {
		return analytics.AlignedComparison{}, &models.AnalysisError{
			Kind:    models.KindEmptyInput,
			Message: "no series selected",
		}
	}

	resolved, err := s.catalog.ResolveSelection(ctx, req.Selection)
	if err != nil {
		return analytics.AlignedComparison{}, err
	}

	selected := make([]analytics.NamedSeries, len(resolved))
	for i, rl := range resolved {
		series, err := s.catalog.LoadSeries(ctx, rl.Key)
		if err != nil {
			return analytics.AlignedComparison{}, err
		}
		selected[i] = analytics.NamedSeries{Label: rl.Label, Series: series}
	}

	timer := s.metrics.EngineTimer("align")
	out, err := analytics.Align(selected, req.View, req.Sub, req.Range)
	timer.ObserveDuration()
	if err != nil {
		return analytics.AlignedComparison{}, err
	}

	for _, w := range out.Warnings {
		kind := errorKind(w.Err)
		s.metrics.RecordAlignmentWarning(kind)
		s.logger.WarnErr(ctx, "[COMPARE_SERIES_DROPPED] Series excluded from comparison", logging.Fields{
			"series_key": resolved[w.Position].Key,
			"label":      w.Label,
			"position":   w.Position,
			"error_kind": kind,
		}, w.Err)
	}
	for _, e := range out.Entries {
		s.metrics.SeriesAlignedTotal.WithLabelValues(string(e.Transformation)).Inc()
	}

	s.logger.Info(ctx, "[COMPARE_COMPLETE] Comparison built", logging.Fields{
		"entries":     len(out.Entries),
		"warnings":    len(out.Warnings),
		"duration_ms": time.Since(startTime).Milliseconds(),
	})

	return out, nil
}

// errorKind labels an engine error for metrics and logs
func errorKind(err error) string {
	var ae *models.AnalysisError
	if errors.As(err, &ae) {
		return string(ae.Kind)
	}
	return "Unknown"
}
