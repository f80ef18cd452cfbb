package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"series-platform/internal/charts"
	"series-platform/internal/models"
	"series-platform/internal/services"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
	maxChartSide = 4000
)

// pagination reads page and limit, falling back to 1 and 100 on bad input
func pagination(r *http.Request) (page, limit int) {
	page, limit = 1, defaultLimit

	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= maxLimit {
		limit = l
	}
	return page, limit
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, &models.ValidationError{
			Field:   name,
			Value:   raw,
			Message: fmt.Sprintf("%s must be a non-negative integer", name),
		}
	}
	return v, nil
}

// parseDateRange reads start_date and end_date. It returns nil when neither is set.
func parseDateRange(r *http.Request) (*models.DateRange, error) {
	q := r.URL.Query()
	startStr, endStr := q.Get("start_date"), q.Get("end_date")
	if startStr == "" && endStr == "" {
		return nil, nil
	}

	var dr models.DateRange
	if startStr != "" {
		start, err := models.ParseDate(startStr)
		if err != nil {
			return nil, &models.ValidationError{Field: "start_date", Value: startStr, Message: "expected YYYY-MM-DD, YYYY-MM or YYYY-Qn"}
		}
		dr.Start = start
	}
	if endStr != "" {
		end, err := models.ParseDateEnd(endStr)
		if err != nil {
			return nil, &models.ValidationError{Field: "end_date", Value: endStr, Message: "expected YYYY-MM-DD, YYYY-MM or YYYY-Qn"}
		}
		dr.End = end
	}

	if err := dr.Validate(); err != nil {
		return nil, err
	}
	return &dr, nil
}

// comparisonRequest reads repeated key parameters (labels or series keys),
// the view, the sub-option and the optional date range
func comparisonRequest(r *http.Request) (services.ComparisonRequest, error) {
	q := r.URL.Query()

	view, err := models.ParseView(q.Get("view"))
	if err != nil {
		return services.ComparisonRequest{}, err
	}
	sub, err := models.ParseSubOption(q.Get("sub"))
	if err != nil {
		return services.ComparisonRequest{}, err
	}
	dateRange, err := parseDateRange(r)
	if err != nil {
		return services.ComparisonRequest{}, err
	}

	return services.ComparisonRequest{
		Selection: q["key"],
		View:      view,
		Sub:       sub,
		Range:     dateRange,
	}, nil
}

func chartOptions(r *http.Request, title string) charts.Options {
	opts := charts.DefaultOptions()
	opts.Title = title

	if w, err := strconv.Atoi(r.URL.Query().Get("width")); err == nil && w > 0 && w <= maxChartSide {
		opts.Width = w
	}
	if h, err := strconv.Atoi(r.URL.Query().Get("height")); err == nil && h > 0 && h <= maxChartSide {
		opts.Height = h
	}
	return opts
}
