package services

import (
	"context"
	"fmt"

	"series-platform/internal/analytics"
	"series-platform/internal/cache"
	"series-platform/internal/models"
	"series-platform/internal/repository"
	"series-platform/pkg/logging"
	"series-platform/pkg/metrics"
)

// CatalogService lists the series catalog under unique display labels and
// loads full series histories through the series cache
type CatalogService struct {
	repo    repository.SeriesRepository
	cache   *cache.SeriesCache
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// LabeledEntry is a catalog entry with its resolved display label
type LabeledEntry struct {
	Label string               `json:"label"`
	Entry *models.CatalogEntry `json:"entry"`
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repo repository.SeriesRepository, seriesCache *cache.SeriesCache, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *CatalogService {
	return &CatalogService{
		repo:    repo,
		cache:   seriesCache,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ListLabeled returns the catalog (optionally restricted to a peer group)
// with a unique label per entry, in catalog order
func (s *CatalogService) ListLabeled(ctx context.Context, peerGroup *string) ([]LabeledEntry, error) {
	entries, err := s.repo.ListCatalog(ctx, repository.CatalogFilter{PeerGroup: peerGroup})
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}

	timer := s.metrics.EngineTimer("labels")
	res := analytics.ResolveLabels(labelEntries(entries))
	timer.ObserveDuration()

	out := make([]LabeledEntry, len(entries))
	for i, e := range entries {
		out[i] = LabeledEntry{Label: res.Ordered[i].Label, Entry: e}
	}
	return out, nil
}

// Labels returns the label resolution of the full catalog
func (s *CatalogService) Labels(ctx context.Context) (analytics.LabelResolution, error) {
	entries, err := s.repo.ListCatalog(ctx, repository.CatalogFilter{})
	if err != nil {
		return analytics.LabelResolution{}, fmt.Errorf("failed to list catalog: %w", err)
	}
	return analytics.ResolveLabels(labelEntries(entries)), nil
}

// ResolveSelection maps a selection of display labels or raw series keys onto
// series keys, keeping the selection order. Labels win over keys.
func (s *CatalogService) ResolveSelection(ctx context.Context, selection []string) ([]analytics.ResolvedLabel, error) {
	res, err := s.Labels(ctx)
	if err != nil {
		return nil, err
	}
	labelByKey := make(map[string]string, len(res.Ordered))
	for _, rl := range res.Ordered {
		labelByKey[rl.Key] = rl.Label
	}

	out := make([]analytics.ResolvedLabel, 0, len(selection))
	for _, sel := range selection {
		if key, ok := res.ByLabel[sel]; ok {
			out = append(out, analytics.ResolvedLabel{Label: sel, Key: key})
			continue
		}
		if label, ok := labelByKey[sel]; ok {
			out = append(out, analytics.ResolvedLabel{Label: label, Key: sel})
			continue
		}
		return nil, &repository.NotFoundError{Resource: "series", ID: sel}
	}
	return out, nil
}

// LoadSeries returns the full stored history of a series.
// Hits are served from the cache; misses read the repository and fill it.
func (s *CatalogService) LoadSeries(ctx context.Context, key string) (models.Series, error) {
	if series, ok := s.cache.Get(key); ok {
		s.recordCache(true)
		return series, nil
	}
	s.recordCache(false)

	entry, err := s.repo.GetCatalogEntry(ctx, key)
	if err != nil {
		return models.Series{}, err
	}
	rows, err := s.repo.GetObservations(ctx, repository.ObservationFilter{SeriesKey: key})
	if err != nil {
		return models.Series{}, fmt.Errorf("failed to load observations for %s: %w", key, err)
	}

	series := models.SeriesFromRows(entry, rows)
	s.cache.Put(series)

	s.logger.Debug(ctx, "[CATALOG_LOAD] Series loaded from storage", logging.Fields{
		"series_key":   key,
		"observations": len(rows),
	})
	return series, nil
}

// LoadPeerGroup loads every series of a peer group keyed by entity.
// Entries without an entity are keyed by their series key.
func (s *CatalogService) LoadPeerGroup(ctx context.Context, peerGroup string) (map[string]models.Series, error) {
	entries, err := s.repo.ListCatalog(ctx, repository.CatalogFilter{PeerGroup: &peerGroup})
	if err != nil {
		return nil, fmt.Errorf("failed to list peer group %s: %w", peerGroup, err)
	}
	if len(entries) == 0 {
		return nil, &repository.NotFoundError{Resource: "peer_group", ID: peerGroup}
	}

	named := make(map[string]models.Series, len(entries))
	for _, e := range entries {
		entity := e.Entity
		if entity == "" {
			entity = e.SeriesKey
		}
		if _, dup := named[entity]; dup {
			s.logger.Warn(ctx, "[CATALOG_DUPLICATE_ENTITY] Entity appears twice in peer group", logging.Fields{
				"peer_group": peerGroup,
				"entity":     entity,
				"series_key": e.SeriesKey,
			})
			continue
		}

		series, err := s.LoadSeries(ctx, e.SeriesKey)
		if err != nil {
			return nil, err
		}
		named[entity] = series
	}
	return named, nil
}

// InvalidateCache drops every cached series and returns how many were held
func (s *CatalogService) InvalidateCache(ctx context.Context) int {
	n := s.cache.InvalidateAll()
	s.metrics.CacheEntries.Set(0)
	s.logger.Info(ctx, "[CACHE_INVALIDATE] Series cache cleared", logging.Fields{
		"entries_dropped": n,
	})
	return n
}

// InvalidateSeries drops one cached series, e.g. after it was re-ingested
func (s *CatalogService) InvalidateSeries(key string) {
	s.cache.Invalidate(key)
}

func (s *CatalogService) recordCache(hit bool) {
	stats := s.cache.Stats()
	s.metrics.RecordCacheLookup(hit, stats.HitRatio(), stats.Entries)
}

func labelEntries(entries []*models.CatalogEntry) []analytics.LabelEntry {
	out := make([]analytics.LabelEntry, len(entries))
	for i, e := range entries {
		out[i] = analytics.LabelEntry{
			Key:           e.SeriesKey,
			Title:         e.Title,
			CompleteTitle: e.CompleteTitle,
		}
	}
	return out
}
