package analytics

import (
	"fmt"

	"series-platform/internal/models"
)

// lagFunc derives a value from the current and lagged observation.
// It returns nil when the result is undefined.
type lagFunc func(current, previous float64) *float64

func difference(current, previous float64) *float64 {
	return models.Float(current - previous)
}

// rate is the percentage change; a zero base has no defined rate
func rate(current, previous float64) *float64 {
	if previous == 0 {
		return nil
	}
	return models.Float((current - previous) / previous * 100)
}

type transformer struct {
	fn     lagFunc
	annual bool
}

var transformers = map[models.Transformation]transformer{
	models.TransformPeriodDifference: {fn: difference},
	models.TransformPeriodRate:       {fn: rate},
	models.TransformAnnualDifference: {fn: difference, annual: true},
	models.TransformAnnualRate:       {fn: rate, annual: true},
}

// Transform derives a new series aligned 1:1 on the input dates.
// Leading points without enough history, points whose lagged or current value
// is missing, and rates over a zero base carry the missing marker.
// Annual kinds use a lag of one year of observations for freq and fail with
// UnsupportedTransformation when freq is unknown.
func Transform(s models.Series, kind models.Transformation, freq models.Frequency) (models.Series, error) {
	if !s.HasValues() {
		return models.Series{}, &models.AnalysisError{
			Kind:    models.KindMissingColumn,
			Key:     s.Key,
			Message: "series has no value field",
		}
	}

	if kind == models.TransformRaw {
		points := make([]models.Point, len(s.Points))
		for i, p := range s.Points {
			points[i].Date = p.Date
			if p.Valid() {
				points[i].Value = models.Float(*p.Value)
			}
		}
		return s.WithPoints(points), nil
	}

	tf, ok := transformers[kind]
	if !ok {
		return models.Series{}, &models.AnalysisError{
			Kind:    models.KindUnsupportedTransformation,
			Key:     s.Key,
			Message: fmt.Sprintf("unknown transformation %q", kind),
		}
	}

	lag := 1
	if tf.annual {
		lag = freq.PeriodsPerYear()
		if lag == 0 {
			return models.Series{}, &models.AnalysisError{
				Kind:    models.KindUnsupportedTransformation,
				Key:     s.Key,
				Message: fmt.Sprintf("%s requires a monthly or quarterly series, frequency is %s", kind, freq),
			}
		}
	}

	return s.WithPoints(applyLag(s.Points, lag, tf.fn)), nil
}

func applyLag(points []models.Point, lag int, fn lagFunc) []models.Point {
	out := make([]models.Point, len(points))
	for i, p := range points {
		out[i].Date = p.Date
		if i < lag {
			continue
		}
		prev := points[i-lag]
		if !p.Valid() || !prev.Valid() {
			continue
		}
		out[i].Value = fn(*p.Value, *prev.Value)
	}
	return out
}

// KindFor maps a requested view and sub-option onto a transformation
func KindFor(view models.View, sub models.SubOption) (models.Transformation, error) {
	switch view {
	case models.ViewOriginal:
		return models.TransformRaw, nil
	case models.ViewPeriodOnPeriod:
		switch sub {
		case models.SubDifference:
			return models.TransformPeriodDifference, nil
		case models.SubRateOfChange:
			return models.TransformPeriodRate, nil
		}
	case models.ViewInterannual:
		switch sub {
		case models.SubDifference:
			return models.TransformAnnualDifference, nil
		case models.SubRateOfChange:
			return models.TransformAnnualRate, nil
		}
	}
	return "", &models.ValidationError{
		Field:   "sub",
		Value:   string(sub),
		Message: fmt.Sprintf("view %q requires sub-option Difference or RateOfChange, got %q", view, sub),
	}
}

// CumulativeSum rebuilds levels from a difference series starting at start.
// The first point takes start; missing differences carry the running level forward.
func CumulativeSum(diffs models.Series, start float64) models.Series {
	out := make([]models.Point, len(diffs.Points))
	level := start
	for i, p := range diffs.Points {
		if i > 0 && p.Valid() {
			level += *p.Value
		}
		out[i] = models.Point{Date: p.Date, Value: models.Float(level)}
	}
	return diffs.WithPoints(out)
}

// MovingAverage computes a trailing rolling mean over window points.
// Missing points are skipped; a point gets a value once at least minPeriods
// valid values fall inside its window.
func MovingAverage(s models.Series, window, minPeriods int) models.Series {
	if window < 1 {
		window = 1
	}
	if minPeriods < 1 {
		minPeriods = 1
	}

	out := make([]models.Point, len(s.Points))
	for i, p := range s.Points {
		out[i].Date = p.Date
		sum, n := 0.0, 0
		for j := max(0, i-window+1); j <= i; j++ {
			if s.Points[j].Valid() {
				sum += *s.Points[j].Value
				n++
			}
		}
		if n >= minPeriods {
			out[i].Value = models.Float(sum / float64(n))
		}
	}
	return s.WithPoints(out)
}
