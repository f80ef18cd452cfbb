package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"series-platform/internal/cache"
	"series-platform/internal/config"
	"series-platform/internal/handlers"
	"series-platform/internal/repository"
	"series-platform/internal/services"
	"series-platform/pkg/database"
	"series-platform/pkg/logging"
	"series-platform/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("series-api", version, cfg.LogLevel())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info(ctx, "[STARTUP] Starting series platform API server", logging.Fields{
		"version":     version,
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"db_host":     cfg.Database.Host,
		"db_name":     cfg.Database.Database,
		"cache_ttl":   cfg.Cache.TTL.String(),
	})

	metricsCollector := metrics.NewCollector("series_platform", prometheus.DefaultRegisterer)

	db, err := database.NewPostgresDB(cfg.PostgresConfig(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	seriesRepo := repository.NewSeriesRepository(db, logger, metricsCollector)

	// Initialize services
	catalogService := services.NewCatalogService(seriesRepo, cache.NewSeriesCache(cfg.Cache.TTL), logger, metricsCollector)
	comparisonService := services.NewComparisonService(catalogService, logger, metricsCollector)
	peerService := services.NewPeerService(catalogService, seriesRepo, logger, metricsCollector)

	scheduler := services.NewRefreshScheduler(
		catalogService,
		peerService,
		cfg.Cache.RefreshSchedule,
		cfg.Peers.MedianRefreshSchedule,
		logger,
		metricsCollector,
	)
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to start refresh scheduler", logging.Fields{}, err)
	}

	seriesHandler := handlers.NewSeriesHandler(catalogService, comparisonService, peerService, seriesRepo, logger, metricsCollector)
	router := handlers.NewRouter(seriesHandler, promhttp.Handler(), logger, metricsCollector)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	// Abort an in-flight median run, then wait for scheduled jobs
	cancel()
	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
