package services

import (
	"context"
	"fmt"
	"time"

	"series-platform/internal/analytics"
	"series-platform/internal/models"
	"series-platform/internal/repository"
	"series-platform/pkg/logging"
	"series-platform/pkg/metrics"
)

// PeerService computes percentile and median tables for peer groups and
// persists the medians
type PeerService struct {
	catalog *CatalogService
	repo    repository.SeriesRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// PercentileView is the percentile table of a peer group plus one plotted
// percentile series per entity
type PercentileView struct {
	PeerGroup   string                    `json:"peer_group"`
	StartYear   int                       `json:"start_year,omitempty"`
	Window      int                       `json:"window,omitempty"`
	Percentiles analytics.PercentileTable `json:"percentiles"`
	Series      map[string]models.Series  `json:"series"`
	Smoothed    map[string]models.Series  `json:"smoothed,omitempty"`
	Counts      map[string]map[string]int `json:"counts"`
	Skipped     []string                  `json:"skipped,omitempty"`
}

// MedianRunResult summarizes a median recalculation over all peer groups
type MedianRunResult struct {
	PeerGroups int
	Cells      int
	Duration   time.Duration
	Errors     []string
}

// NewPeerService creates a new peer service
func NewPeerService(catalog *CatalogService, repo repository.SeriesRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *PeerService {
	return &PeerService{
		catalog: catalog,
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Tables builds the percentile, median and count tables of a peer group.
// Entities whose series cannot be transformed are reported in skipped.
func (s *PeerService) Tables(ctx context.Context, peerGroup string) (analytics.PeerTables, []string, error) {
	named, err := s.catalog.LoadPeerGroup(ctx, peerGroup)
	if err != nil {
		return analytics.PeerTables{}, nil, err
	}

	timer := s.metrics.EngineTimer("peer_tables")
	tables, errs := analytics.BuildPeerTables(named)
	timer.ObserveDuration()

	skipped := make([]string, 0, len(errs))
	for _, err := range errs {
		s.logger.WarnErr(ctx, "[PEERS_ENTITY_SKIPPED] Entity excluded from peer tables", logging.Fields{
			"peer_group": peerGroup,
			"error_kind": errorKind(err),
		}, err)
		skipped = append(skipped, err.Error())
	}

	cells := 0
	for _, byMonth := range tables.Counts {
		cells += len(byMonth)
	}
	s.metrics.PeerCellsComputed.WithLabelValues(peerGroup).Set(float64(cells))

	return tables, skipped, nil
}

// Percentiles returns the percentile table of a peer group along with each
// entity's percentile series from startYear on (0 keeps all years). A window
// above zero adds a trailing moving average of each percentile series.
func (s *PeerService) Percentiles(ctx context.Context, peerGroup string, startYear, window int) (*PercentileView, error) {
	if window < 0 {
		return nil, &models.ValidationError{
			Field:   "window",
			Value:   fmt.Sprintf("%d", window),
			Message: "window must not be negative",
		}
	}

	tables, skipped, err := s.Tables(ctx, peerGroup)
	if err != nil {
		return nil, err
	}

	view := &PercentileView{
		PeerGroup:   peerGroup,
		StartYear:   startYear,
		Window:      window,
		Percentiles: tables.Percentiles,
		Series:      make(map[string]models.Series),
		Counts:      tables.Counts,
		Skipped:     skipped,
	}
	if window > 0 {
		view.Smoothed = make(map[string]models.Series)
	}

	for _, entity := range tables.Percentiles.Entities() {
		series := analytics.PercentileSeries(tables.Percentiles, entity, startYear)
		view.Series[entity] = series
		if window > 0 {
			view.Smoothed[entity] = analytics.MovingAverage(series, window, 1)
		}
	}
	return view, nil
}

// Medians computes the median table of a peer group without storing it
func (s *PeerService) Medians(ctx context.Context, peerGroup string) (analytics.MedianTable, error) {
	tables, _, err := s.Tables(ctx, peerGroup)
	if err != nil {
		return nil, err
	}
	return tables.Medians, nil
}

// RecalculateMedians recomputes the medians of a peer group and replaces the
// stored set. It returns the number of stored cells.
func (s *PeerService) RecalculateMedians(ctx context.Context, peerGroup string) (int, error) {
	tables, _, err := s.Tables(ctx, peerGroup)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	var rows []*models.MonthlyMedian
	for _, entity := range tables.Medians.Entities() {
		for month, median := range tables.Medians[entity] {
			rows = append(rows, &models.MonthlyMedian{
				PeerGroup:        peerGroup,
				Entity:           entity,
				MonthLabel:       month,
				Median:           median,
				ObservationCount: tables.Counts[entity][month],
				UpdatedAt:        now,
			})
		}
	}

	if err := s.repo.ReplaceMonthlyMedians(ctx, peerGroup, rows); err != nil {
		return 0, fmt.Errorf("failed to store medians for %s: %w", peerGroup, err)
	}

	s.logger.Info(ctx, "[PEERS_MEDIANS_STORED] Monthly medians stored", logging.Fields{
		"peer_group": peerGroup,
		"cells":      len(rows),
	})
	return len(rows), nil
}

// Groups lists the peer groups present in the catalog
func (s *PeerService) Groups(ctx context.Context) ([]string, error) {
	groups, err := s.repo.ListPeerGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list peer groups: %w", err)
	}
	return groups, nil
}

// StoredMedians returns the last persisted medians of a peer group
func (s *PeerService) StoredMedians(ctx context.Context, peerGroup string) ([]*models.MonthlyMedian, error) {
	return s.repo.GetMonthlyMedians(ctx, peerGroup)
}

// CalculateAllMedians recalculates the medians of every peer group.
// A failing group is logged and recorded; the remaining groups still run.
func (s *PeerService) CalculateAllMedians(ctx context.Context) (*MedianRunResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[PEERS_CALC_START] Starting median calculation", logging.Fields{
		"stage": "INITIALIZATION",
	})

	groups, err := s.Groups(ctx)
	if err != nil {
		return nil, err
	}

	result := &MedianRunResult{Errors: make([]string, 0)}
	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		cells, err := s.RecalculateMedians(ctx, group)
		if err != nil {
			s.logger.Error(ctx, "[PEERS_CALC_ERROR] Failed to calculate medians", logging.Fields{
				"peer_group": group,
			}, err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", group, err))
			continue
		}
		result.PeerGroups++
		result.Cells += cells
	}

	result.Duration = time.Since(startTime)

	s.logger.Info(ctx, "[PEERS_CALC_COMPLETE] Median calculation completed", logging.Fields{
		"peer_groups":      result.PeerGroups,
		"cells":            result.Cells,
		"error_count":      len(result.Errors),
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "COMPLETE",
	})

	return result, nil
}
