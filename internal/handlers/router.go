package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"series-platform/pkg/logging"
	"series-platform/pkg/metrics"
)

// NewRouter wires the series routes, the request-ID and instrumentation
// middleware and the given /metrics handler
func NewRouter(h *SeriesHandler, metricsHandler http.Handler, logger *logging.StructuredLogger, m *metrics.Collector) *mux.Router {
	router := mux.NewRouter()
	router.Use(RequestID, Instrument(m, logger))

	h.RegisterRoutes(router)
	router.Handle("/metrics", metricsHandler).Methods("GET")

	return router
}
