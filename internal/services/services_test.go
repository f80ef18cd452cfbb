package services

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"series-platform/internal/cache"
	"series-platform/internal/models"
	"series-platform/internal/repository"
	"series-platform/pkg/logging"
	"series-platform/pkg/metrics"
)

type testEnv struct {
	repo    *repository.MemoryRepository
	metrics *metrics.Collector
	catalog *CatalogService
	compare *ComparisonService
	peers   *PeerService
	ingest  *IngestionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := logging.NewStructuredLogger("series-test", "test", logging.DebugLevel)
	logger.SetOutput(io.Discard)
	m := metrics.NewCollector("series_test", prometheus.NewRegistry())
	repo := repository.NewMemoryRepository()

	catalog := NewCatalogService(repo, cache.NewSeriesCache(time.Hour), logger, m)
	return &testEnv{
		repo:    repo,
		metrics: m,
		catalog: catalog,
		compare: NewComparisonService(catalog, logger, m),
		peers:   NewPeerService(catalog, repo, logger, m),
		ingest:  NewIngestionService(repo, logger, m),
	}
}

func utcDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (e *testEnv) store(t *testing.T, s models.Series) {
	t.Helper()
	ctx := context.Background()
	if err := e.repo.UpsertCatalogEntry(ctx, models.CatalogEntryFromSeries(s)); err != nil {
		t.Fatalf("UpsertCatalogEntry(%s) error = %v", s.Key, err)
	}
	if err := e.repo.CreateObservationsBatch(ctx, models.ObservationRows(s)); err != nil {
		t.Fatalf("CreateObservationsBatch(%s) error = %v", s.Key, err)
	}
}

// decJan alternates a December base of 100 with the given January levels,
// so each January rate equals its level minus 100.
func decJan(key, title, complete, entity string, januaries ...float64) models.Series {
	var points []models.Point
	for i, jan := range januaries {
		y := 2019 + i
		points = append(points,
			models.Point{Date: utcDate(y, time.December, 1), Value: models.Float(100)},
			models.Point{Date: utcDate(y+1, time.January, 1), Value: models.Float(jan)},
		)
	}
	s := models.NewSeries(key, points)
	s.Attributes = models.Attributes{Title: title, CompleteTitle: complete, PeerGroup: "CP00", Entity: entity}
	return s
}

// monthly builds n monthly points starting January 2020 valued 10, 11, 12, ...
func monthly(key, title string, n int) models.Series {
	points := make([]models.Point, n)
	for i := range points {
		points[i] = models.Point{
			Date:  utcDate(2020, time.January, 1).AddDate(0, i, 0),
			Value: models.Float(float64(10 + i)),
		}
	}
	s := models.NewSeries(key, points)
	s.Attributes.Title = title
	return s
}

// seedCatalog stores two HICP peers, a monthly unemployment series and a
// peer entity read from a source without a value field.
func seedCatalog(t *testing.T, e *testEnv) {
	t.Helper()
	e.store(t, decJan("HICP.ES", "HICP", "HICP - Spain", "ES", 101, 102, 103))
	e.store(t, decJan("HICP.FR", "HICP", "HICP - France", "FR", 103, 102, 101))
	e.store(t, monthly("UR", "Unemployment", 24))

	flags := models.Series{
		Key: "FLAGS.IT",
		Attributes: models.Attributes{
			Title:     "Flags",
			PeerGroup: "CP00",
			Entity:    "IT",
		},
		Points: []models.Point{{Date: utcDate(2020, time.January, 1)}, {Date: utcDate(2020, time.February, 1)}},
	}
	e.store(t, flags)
}

func approxEqual(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
