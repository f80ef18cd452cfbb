package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"series-platform/internal/dataset"
	"series-platform/internal/models"
	"series-platform/internal/repository"
	"series-platform/pkg/logging"
	"series-platform/pkg/metrics"
)

// IngestionService loads delimited series files into the repository
type IngestionService struct {
	repo    repository.SeriesRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	options dataset.Options
	// onSeries is called with the key of every stored series
	onSeries func(key string)
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	TotalFiles    int
	TotalSeries   int
	TotalRecords  int
	MissingValues int
	Keys          []string
	Duration      time.Duration
	Errors        []string
}

// FileIngestionResult contains per-file ingestion statistics
type FileIngestionResult struct {
	Series        int
	TotalRecords  int
	MissingValues int
	Keys          []string
}

// NewIngestionService creates a new ingestion service reading comma-separated files
func NewIngestionService(repo repository.SeriesRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		repo:     repo,
		logger:   logger,
		metrics:  metricsCollector,
		options:  dataset.DefaultOptions(),
		onSeries: func(string) {},
	}
}

// SetOptions changes the delimited-file options used for every file
func (s *IngestionService) SetOptions(opts dataset.Options) {
	s.options = opts
}

// OnSeriesStored registers a callback run after each series is stored,
// used to drop stale cache entries
func (s *IngestionService) OnSeriesStored(fn func(key string)) {
	s.onSeries = fn
}

// IngestDirectory ingests every *.csv file of a directory in name order
func (s *IngestionService) IngestDirectory(ctx context.Context, dataDir string, batchSize int) (*IngestionResult, error) {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no data files found in %s", dataDir)
	}
	sort.Strings(files)

	s.logger.Info(ctx, "[INGEST_FILES] Found data files", logging.Fields{
		"data_dir":   dataDir,
		"file_count": len(files),
		"stage":      "FILE_DISCOVERY",
	})

	return s.IngestFiles(ctx, files, batchSize)
}

// IngestFiles ingests the given files. A failing file is recorded in the
// result and the remaining files are still processed.
func (s *IngestionService) IngestFiles(ctx context.Context, files []string, batchSize int) (*IngestionResult, error) {
	startTime := time.Now()
	if batchSize < 1 {
		batchSize = 1
	}

	s.logger.Info(ctx, "[INGEST_START] Starting data ingestion", logging.Fields{
		"file_count": len(files),
		"batch_size": batchSize,
		"stage":      "INITIALIZATION",
	})

	result := &IngestionResult{
		TotalFiles: len(files),
		Errors:     make([]string, 0),
	}

	for _, filePath := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		fileResult, err := s.ingestFile(ctx, filePath, batchSize)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to ingest %s: %v", filePath, err))
			s.logger.Error(ctx, "[INGEST_FILE_ERROR] File ingestion failed", logging.Fields{
				"file_path": filePath,
				"stage":     "FILE_PROCESSING",
			}, err)
			s.metrics.RecordIngestionError("file_error")
			continue
		}

		result.TotalSeries += fileResult.Series
		result.TotalRecords += fileResult.TotalRecords
		result.MissingValues += fileResult.MissingValues
		result.Keys = append(result.Keys, fileResult.Keys...)

		s.logger.Info(ctx, "[INGEST_FILE_SUCCESS] File ingested successfully", logging.Fields{
			"file_path":      filePath,
			"series":         fileResult.Series,
			"total_records":  fileResult.TotalRecords,
			"missing_values": fileResult.MissingValues,
			"stage":          "FILE_COMPLETE",
		})
	}

	result.Duration = time.Since(startTime)
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[INGEST_COMPLETE] Data ingestion completed", logging.Fields{
		"total_files":      result.TotalFiles,
		"total_series":     result.TotalSeries,
		"total_records":    result.TotalRecords,
		"missing_values":   result.MissingValues,
		"duration_seconds": result.Duration.Seconds(),
		"error_count":      len(result.Errors),
		"stage":            "COMPLETE",
	})

	return result, nil
}

func (s *IngestionService) ingestFile(ctx context.Context, filePath string, batchSize int) (*FileIngestionResult, error) {
	series, err := dataset.LoadSeriesFile(filePath, s.options)
	if err != nil {
		s.metrics.RecordIngestionError("parse_error")
		return nil, err
	}

	result := &FileIngestionResult{}
	for _, sr := range series {
		if err := s.storeSeries(ctx, sr, batchSize); err != nil {
			return nil, fmt.Errorf("series %s: %w", sr.Key, err)
		}
		result.Series++
		result.TotalRecords += sr.Len()
		result.Keys = append(result.Keys, sr.Key)
		for _, p := range sr.Points {
			if !p.Valid() {
				result.MissingValues++
			}
		}
		s.onSeries(sr.Key)
	}
	return result, nil
}

func (s *IngestionService) storeSeries(ctx context.Context, sr models.Series, batchSize int) error {
	if err := s.repo.UpsertCatalogEntry(ctx, models.CatalogEntryFromSeries(sr)); err != nil {
		return fmt.Errorf("failed to store catalog entry: %w", err)
	}
	if !sr.HasValues() {
		s.logger.Warn(ctx, "[INGEST_NO_VALUES] Series has no value column", logging.Fields{
			"series_key": sr.Key,
		})
		s.metrics.RecordIngestionError("missing_value_column")
	}

	rows := models.ObservationRows(sr)
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		if err := s.repo.CreateObservationsBatch(ctx, rows[start:end]); err != nil {
			return fmt.Errorf("failed to insert batch: %w", err)
		}
		s.metrics.IngestionBatchSize.Observe(float64(end - start))
		s.metrics.IngestionRecordsTotal.Add(float64(end - start))
	}
	return nil
}
