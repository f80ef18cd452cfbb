package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"series-platform/internal/analytics"
	"series-platform/internal/charts"
	"series-platform/internal/models"
	"series-platform/internal/repository"
	"series-platform/internal/services"
	"series-platform/pkg/logging"
	"series-platform/pkg/metrics"
)

// HealthChecker reports whether storage is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// SeriesHandler handles the catalog, comparison and peer API endpoints
type SeriesHandler struct {
	catalog *services.CatalogService
	compare *services.ComparisonService
	peers   *services.PeerService
	health  HealthChecker
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewSeriesHandler creates a new series handler
func NewSeriesHandler(
	catalog *services.CatalogService,
	compare *services.ComparisonService,
	peers *services.PeerService,
	health HealthChecker,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *SeriesHandler {
	return &SeriesHandler{
		catalog: catalog,
		compare: compare,
		peers:   peers,
		health:  health,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Code      int    `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// SeriesResponse is one stored series with its inferred frequency and summary
type SeriesResponse struct {
	Series                    models.Series     `json:"series"`
	Frequency                 models.Frequency  `json:"frequency"`
	Summary                   analytics.Summary `json:"summary"`
	StatusDescription         string            `json:"status_description,omitempty"`
	SeasonalAdjustDescription string            `json:"seasonal_adjust_description,omitempty"`
}

// MedianResponse is the median table of a peer group
type MedianResponse struct {
	PeerGroup   string                `json:"peer_group"`
	MonthLabels []string              `json:"month_labels"`
	Medians     analytics.MedianTable `json:"medians"`
}

// ListSeries handles GET /api/series
func (h *SeriesHandler) ListSeries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var peerGroup *string
	if g := r.URL.Query().Get("peer_group"); g != "" {
		peerGroup = &g
	}
	page, limit := pagination(r)

	// Labels are resolved over the whole listing so they stay stable across pages.
	entries, err := h.catalog.ListLabeled(ctx, peerGroup)
	if err != nil {
		h.sendServiceError(w, r, "[API_LIST_SERIES_ERROR] Failed to list series", err)
		return
	}

	total := len(entries)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)

	h.sendJSON(w, PaginatedResponse{
		Data:       entries[start:end],
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, http.StatusOK)
}

// GetSeries handles GET /api/series/{key}
func (h *SeriesHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := mux.Vars(r)["key"]

	dateRange, err := parseDateRange(r)
	if err != nil {
		h.sendServiceError(w, r, "[API_GET_SERIES_ERROR] Invalid date range", err)
		return
	}

	series, err := h.catalog.LoadSeries(ctx, key)
	if err != nil {
		h.sendServiceError(w, r, "[API_GET_SERIES_ERROR] Failed to load series", err)
		return
	}

	freq := analytics.InferFrequency(series)
	display := series.Truncate(dateRange)

	h.sendJSON(w, SeriesResponse{
		Series:                    display,
		Frequency:                 freq,
		Summary:                   analytics.Summarize(display),
		StatusDescription:         series.Attributes.StatusDescription(),
		SeasonalAdjustDescription: series.Attributes.SeasonalAdjustDescription(),
	}, http.StatusOK)
}

// Compare handles GET /api/compare
func (h *SeriesHandler) Compare(w http.ResponseWriter, r *http.Request) {
	cmp, ok := h.buildComparison(w, r)
	if !ok {
		return
	}
	h.sendJSON(w, cmp, http.StatusOK)
}

// CompareChart handles GET /api/compare/chart.png
func (h *SeriesHandler) CompareChart(w http.ResponseWriter, r *http.Request) {
	cmp, ok := h.buildComparison(w, r)
	if !ok {
		return
	}

	img, err := charts.Render(charts.ComparisonLines(cmp), chartOptions(r, charts.ComparisonTitle(cmp)))
	if err != nil {
		h.sendServiceError(w, r, "[API_COMPARE_CHART_ERROR] Failed to render comparison", err)
		return
	}
	h.sendPNG(w, img)
}

func (h *SeriesHandler) buildComparison(w http.ResponseWriter, r *http.Request) (analytics.AlignedComparison, bool) {
	ctx := r.Context()
	q := r.URL.Query()

	req, err := comparisonRequest(r)
	if err != nil {
		h.sendServiceError(w, r, "[API_COMPARE_ERROR] Invalid comparison request", err)
		return analytics.AlignedComparison{}, false
	}

	cmp, err := h.compare.Compare(ctx, req)
	if err != nil {
		h.sendServiceError(w, r, "[API_COMPARE_ERROR] Failed to build comparison", err)
		return analytics.AlignedComparison{}, false
	}

	h.logger.Debug(ctx, "[API_COMPARE] Comparison served", logging.Fields{
		"keys":     q["key"],
		"entries":  len(cmp.Entries),
		"warnings": len(cmp.Warnings),
	})
	return cmp, true
}

// ListPeerGroups handles GET /api/peers
func (h *SeriesHandler) ListPeerGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.peers.Groups(r.Context())
	if err != nil {
		h.sendServiceError(w, r, "[API_PEERS_ERROR] Failed to list peer groups", err)
		return
	}
	if groups == nil {
		groups = []string{}
	}
	h.sendJSON(w, map[string][]string{"peer_groups": groups}, http.StatusOK)
}

// GetPercentiles handles GET /api/peers/{group}/percentiles
func (h *SeriesHandler) GetPercentiles(w http.ResponseWriter, r *http.Request) {
	view, ok := h.buildPercentiles(w, r)
	if !ok {
		return
	}
	h.sendJSON(w, view, http.StatusOK)
}

// PercentilesChart handles GET /api/peers/{group}/percentiles/chart.png.
// The smoothed series are plotted when a window is given.
func (h *SeriesHandler) PercentilesChart(w http.ResponseWriter, r *http.Request) {
	view, ok := h.buildPercentiles(w, r)
	if !ok {
		return
	}

	series := view.Series
	if view.Smoothed != nil {
		series = view.Smoothed
	}
	lines := charts.PercentileLines(view.Percentiles.Entities(), series)

	img, err := charts.Render(lines, chartOptions(r, view.PeerGroup+" percentiles"))
	if err != nil {
		h.sendServiceError(w, r, "[API_PERCENTILES_CHART_ERROR] Failed to render percentiles", err)
		return
	}
	h.sendPNG(w, img)
}

func (h *SeriesHandler) buildPercentiles(w http.ResponseWriter, r *http.Request) (*services.PercentileView, bool) {
	group := mux.Vars(r)["group"]

	startYear, err := intParam(r, "start_year", 0)
	if err != nil {
		h.sendServiceError(w, r, "[API_PERCENTILES_ERROR] Invalid start_year", err)
		return nil, false
	}
	window, err := intParam(r, "window", 0)
	if err != nil {
		h.sendServiceError(w, r, "[API_PERCENTILES_ERROR] Invalid window", err)
		return nil, false
	}

	view, err := h.peers.Percentiles(r.Context(), group, startYear, window)
	if err != nil {
		h.sendServiceError(w, r, "[API_PERCENTILES_ERROR] Failed to compute percentiles", err)
		return nil, false
	}
	return view, true
}

// GetMedians handles GET /api/peers/{group}/medians.
// With stored=true the last persisted medians are returned instead.
func (h *SeriesHandler) GetMedians(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	group := mux.Vars(r)["group"]

	if r.URL.Query().Get("stored") == "true" {
		stored, err := h.peers.StoredMedians(ctx, group)
		if err != nil {
			h.sendServiceError(w, r, "[API_MEDIANS_ERROR] Failed to read stored medians", err)
			return
		}
		h.sendJSON(w, map[string]interface{}{"peer_group": group, "data": stored}, http.StatusOK)
		return
	}

	medians, err := h.peers.Medians(ctx, group)
	if err != nil {
		h.sendServiceError(w, r, "[API_MEDIANS_ERROR] Failed to compute medians", err)
		return
	}
	h.sendJSON(w, MedianResponse{
		PeerGroup:   group,
		MonthLabels: medians.MonthLabels(),
		Medians:     medians,
	}, http.StatusOK)
}

// RecalculateMedians handles POST /api/peers/{group}/medians
func (h *SeriesHandler) RecalculateMedians(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	group := mux.Vars(r)["group"]

	cells, err := h.peers.RecalculateMedians(ctx, group)
	if err != nil {
		h.sendServiceError(w, r, "[API_MEDIANS_RECALC_ERROR] Failed to recalculate medians", err)
		return
	}
	h.sendJSON(w, map[string]interface{}{"peer_group": group, "cells": cells}, http.StatusOK)
}

// InvalidateCache handles POST /api/cache/invalidate
func (h *SeriesHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	n := h.catalog.InvalidateCache(r.Context())
	h.sendJSON(w, map[string]int{"entries_dropped": n}, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *SeriesHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK

	if err := h.health.HealthCheck(ctx); err != nil {
		h.logger.Error(ctx, "[HEALTH_CHECK_ERROR] Storage unreachable", logging.Fields{}, err)
		status["status"] = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{"status": status["status"]})
	h.sendJSON(w, status, code)
}

// sendJSON sends a JSON response
func (h *SeriesHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *SeriesHandler) sendPNG(w http.ResponseWriter, img []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

// sendServiceError maps err onto a status code, logs server-side failures
// and writes the error envelope
func (h *SeriesHandler) sendServiceError(w http.ResponseWriter, r *http.Request, logMessage string, err error) {
	ctx := r.Context()
	statusCode, errorType := classifyError(err)

	if statusCode >= http.StatusInternalServerError {
		h.logger.Error(ctx, logMessage, logging.Fields{"path": r.URL.Path}, err)
	} else {
		h.logger.WarnErr(ctx, logMessage, logging.Fields{"path": r.URL.Path, "status": statusCode}, err)
	}

	message := err.Error()
	if statusCode >= http.StatusInternalServerError {
		message = "internal error"
	}
	h.metrics.RecordAPIError(errorType, r.URL.Path)
	h.sendError(w, r, message, statusCode)
}

// sendError sends an error response
func (h *SeriesHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		Code:      statusCode,
		RequestID: logging.RequestIDFromContext(r.Context()),
	}

	h.sendJSON(w, response, statusCode)
}

// classifyError returns the status code and metric error type for err
func classifyError(err error) (int, string) {
	var (
		analysisErr   *models.AnalysisError
		validationErr *models.ValidationError
		notFoundErr   *repository.NotFoundError
	)
	switch {
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "validation_error"
	case errors.As(err, &analysisErr):
		return http.StatusBadRequest, string(analysisErr.Kind)
	case errors.Is(err, charts.ErrNothingToPlot):
		return http.StatusUnprocessableEntity, "nothing_to_plot"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// RegisterRoutes registers all series API routes
func (h *SeriesHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/series", h.ListSeries).Methods("GET")
	router.HandleFunc("/api/series/{key}", h.GetSeries).Methods("GET")
	router.HandleFunc("/api/compare", h.Compare).Methods("GET")
	router.HandleFunc("/api/compare/chart.png", h.CompareChart).Methods("GET")
	router.HandleFunc("/api/peers", h.ListPeerGroups).Methods("GET")
	router.HandleFunc("/api/peers/{group}/percentiles", h.GetPercentiles).Methods("GET")
	router.HandleFunc("/api/peers/{group}/percentiles/chart.png", h.PercentilesChart).Methods("GET")
	router.HandleFunc("/api/peers/{group}/medians", h.GetMedians).Methods("GET")
	router.HandleFunc("/api/peers/{group}/medians", h.RecalculateMedians).Methods("POST")
	router.HandleFunc("/api/cache/invalidate", h.InvalidateCache).Methods("POST")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
}
