package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"series-platform/internal/cache"
	"series-platform/internal/config"
	"series-platform/internal/repository"
	"series-platform/internal/services"
	"series-platform/pkg/database"
	"series-platform/pkg/logging"
	"series-platform/pkg/metrics"
)

func main() {
	// Load configuration first so flags default to it
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	dataDir := flag.String("data-dir", cfg.Ingest.DataDir, "Directory containing series CSV files")
	batchSize := flag.Int("batch-size", cfg.Ingest.BatchSize, "Number of observations inserted per batch")
	calculateMedians := flag.Bool("calculate-medians", false, "Recalculate peer-group medians after ingestion")
	flag.Parse()

	logger := logging.NewStructuredLogger("series-ingester", "1.0.0", cfg.LogLevel())

	ctx := context.Background()
	logger.Info(ctx, "[INGESTER_START] Starting series ingestion", logging.Fields{
		"version":           "1.0.0",
		"data_dir":          *dataDir,
		"batch_size":        *batchSize,
		"calculate_medians": *calculateMedians,
	})

	metricsCollector := metrics.NewCollector("series_ingester", prometheus.DefaultRegisterer)

	db, err := database.NewPostgresDB(cfg.PostgresConfig(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	seriesRepo := repository.NewSeriesRepository(db, logger, metricsCollector)

	ingestionService := services.NewIngestionService(seriesRepo, logger, metricsCollector)

	result, err := ingestionService.IngestDirectory(ctx, *dataDir, *batchSize)
	if err != nil {
		logger.Fatal(ctx, "[INGESTION_ERROR] Ingestion failed", logging.Fields{
			"data_dir": *dataDir,
		}, err)
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INGESTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Total Files:        %d\n", result.TotalFiles)
	fmt.Printf("Total Series:       %d\n", result.TotalSeries)
	fmt.Printf("Total Observations: %d\n", result.TotalRecords)
	fmt.Printf("Missing Values:     %d\n", result.MissingValues)
	fmt.Printf("Duration:           %v\n", result.Duration)

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for i, errMsg := range result.Errors {
			if i < 10 {
				fmt.Printf("  - %s\n", errMsg)
			}
		}
		if len(result.Errors) > 10 {
			fmt.Printf("  ... and %d more errors\n", len(result.Errors)-10)
		}
	}

	if *calculateMedians {
		fmt.Println("\n" + strings.Repeat("=", 80))
		fmt.Println("CALCULATING PEER MEDIANS")
		fmt.Println(strings.Repeat("=", 80))

		catalogService := services.NewCatalogService(seriesRepo, cache.NewSeriesCache(cfg.Cache.TTL), logger, metricsCollector)
		peerService := services.NewPeerService(catalogService, seriesRepo, logger, metricsCollector)

		run, err := peerService.CalculateAllMedians(ctx)
		switch {
		case err != nil:
			logger.Error(ctx, "[MEDIANS_ERROR] Median calculation failed", logging.Fields{}, err)
			fmt.Printf("Median calculation failed: %v\n", err)
		case len(run.Errors) > 0:
			fmt.Printf("Medians stored for %d peer groups, %d failed:\n", run.PeerGroups, len(run.Errors))
			for _, msg := range run.Errors {
				fmt.Printf("  - %s\n", msg)
			}
		default:
			fmt.Printf("Medians stored for %d peer groups (%d cells)\n", run.PeerGroups, run.Cells)
		}
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Ingestion completed", logging.Fields{
		"total_series":     result.TotalSeries,
		"total_records":    result.TotalRecords,
		"missing_values":   result.MissingValues,
		"error_count":      len(result.Errors),
		"duration_seconds": result.Duration.Seconds(),
	})
}
