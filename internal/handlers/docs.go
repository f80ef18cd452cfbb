package handlers

import (
	"encoding/json"
	"net/http"
)

func queryParam(name, description, typ string) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    false,
		"schema":      map[string]string{"type": typ},
	}
}

func pathParam(name, description string) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "path",
		"description": description,
		"required":    true,
		"schema":      map[string]string{"type": "string"},
	}
}

func jsonResponse(description string) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]string{"type": "object"},
			},
		},
	}
}

func pngResponse(description string) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"image/png": map[string]interface{}{
				"schema": map[string]string{"type": "string", "format": "binary"},
			},
		},
	}
}

var errorResponses = map[string]interface{}{
	"400": map[string]string{"description": "Invalid parameters, unknown view or inverted date range"},
	"404": map[string]string{"description": "Unknown series, label or peer group"},
	"500": map[string]string{"description": "Internal error"},
}

func responses(ok map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{"200": ok}
	for code, resp := range errorResponses {
		out[code] = resp
	}
	return out
}

var dateRangeParams = []map[string]interface{}{
	queryParam("start_date", "Inclusive range start (YYYY-MM-DD, YYYY-MM or YYYY-Qn)", "string"),
	queryParam("end_date", "Inclusive range end (YYYY-MM-DD, YYYY-MM or YYYY-Qn)", "string"),
}

func compareParams() []map[string]interface{} {
	params := []map[string]interface{}{
		{
			"name":        "key",
			"in":          "query",
			"description": "Display label or series key; repeat for each series in display order",
			"required":    true,
			"schema":      map[string]interface{}{"type": "array", "items": map[string]string{"type": "string"}},
			"explode":     true,
		},
		{
			"name":        "view",
			"in":          "query",
			"description": "Original, PeriodOnPeriod or Interannual",
			"required":    false,
			"schema":      map[string]interface{}{"type": "string", "default": "Original"},
		},
		queryParam("sub", "Difference or RateOfChange; required unless view is Original", "string"),
	}
	return append(params, dateRangeParams...)
}

func percentileParams() []map[string]interface{} {
	return []map[string]interface{}{
		pathParam("group", "Peer group, e.g. a COICOP category"),
		queryParam("start_year", "Drop percentile points before this year", "integer"),
		queryParam("window", "Trailing moving-average window over each percentile series", "integer"),
	}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the Series Platform API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Series Platform API",
			"description": "Time-series transformations, side-by-side comparisons and cross-sectional percentiles over a catalog of statistical series",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/series": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "List series",
					"description": "Catalog entries with unique display labels, optionally restricted to a peer group",
					"parameters": []map[string]interface{}{
						queryParam("peer_group", "Filter by peer group", "string"),
						queryParam("page", "Page number (default: 1)", "integer"),
						queryParam("limit", "Entries per page (default: 100, max: 1000)", "integer"),
					},
					"responses": responses(jsonResponse("Paginated labelled catalog")),
				},
			},
			"/api/series/{key}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get one series",
					"description": "Stored observations with inferred frequency and summary statistics",
					"parameters":  append([]map[string]interface{}{pathParam("key", "Series key")}, dateRangeParams...),
					"responses":   responses(jsonResponse("Series with frequency and summary")),
				},
			},
			"/api/compare": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Compare series",
					"description": "Transforms the selected series under one view and assigns axis and color by position. Series that cannot be transformed are reported in warnings.",
					"parameters":  compareParams(),
					"responses":   responses(jsonResponse("Aligned comparison")),
				},
			},
			"/api/compare/chart.png": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":    "Comparison chart",
					"parameters": compareParams(),
					"responses":  responses(pngResponse("Line chart with primary and secondary axes")),
				},
			},
			"/api/peers": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":   "List peer groups",
					"responses": responses(jsonResponse("Peer group names")),
				},
			},
			"/api/peers/{group}/percentiles": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Percentile table",
					"description": "Ranks each entity's period-over-period rate against its own history for the same calendar month",
					"parameters":  percentileParams(),
					"responses":   responses(jsonResponse("Percentile table and per-entity percentile series")),
				},
			},
			"/api/peers/{group}/percentiles/chart.png": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":    "Percentile chart",
					"parameters": percentileParams(),
					"responses":  responses(pngResponse("One percentile line per entity")),
				},
			},
			"/api/peers/{group}/medians": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Median table",
					"parameters": []map[string]interface{}{
						pathParam("group", "Peer group"),
						queryParam("stored", "true returns the last persisted medians", "boolean"),
					},
					"responses": responses(jsonResponse("Median per entity and month label")),
				},
				"post": map[string]interface{}{
					"summary":    "Recalculate medians",
					"parameters": []map[string]interface{}{pathParam("group", "Peer group")},
					"responses":  responses(jsonResponse("Number of stored median cells")),
				},
			},
			"/api/cache/invalidate": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":   "Clear the series cache",
					"responses": responses(jsonResponse("Number of dropped entries")),
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check if the API and its database are reachable",
					"responses": map[string]interface{}{
						"200": jsonResponse("API is healthy"),
						"503": jsonResponse("Database unreachable"),
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
