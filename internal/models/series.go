package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Point is a single (date, value) observation.
// A nil Value is the explicit missing marker: it is never replaced by zero,
// infinity or NaN in any derived series.
type Point struct {
	Date  time.Time `json:"date"`
	Value *float64  `json:"value"`
}

// Valid reports whether the point carries a value
func (p Point) Valid() bool {
	return p.Value != nil
}

// Float returns a pointer to a copy of v
func Float(v float64) *float64 {
	return &v
}

// Attributes holds the optional descriptive attributes of a series
type Attributes struct {
	Title          string `json:"title,omitempty"`
	CompleteTitle  string `json:"complete_title,omitempty"`
	Unit           string `json:"unit,omitempty"`
	Status         string `json:"status,omitempty"`
	SeasonalAdjust string `json:"seasonal_adjust,omitempty"`
	PeerGroup      string `json:"peer_group,omitempty"`
	Entity         string `json:"entity,omitempty"`
}

// StatusDescription maps the observation status code to descriptive text
func (a Attributes) StatusDescription() string {
	return observationStatusText[strings.ToUpper(a.Status)]
}

// SeasonalAdjustDescription maps the Y/N seasonal adjustment flag to text
func (a Attributes) SeasonalAdjustDescription() string {
	switch strings.ToUpper(a.SeasonalAdjust) {
	case "Y":
		return "Adjusted"
	case "N":
		return "Not Adjusted"
	default:
		return ""
	}
}

var observationStatusText = map[string]string{
	"A": "Normal value",
	"E": "Estimated value",
	"F": "Forecasted value",
	"P": "Provisional value",
	"N": "Not significant",
}

// Series is an ordered sequence of points with unique, non-decreasing dates.
// ValueColumn names the source field the values were read from; an empty
// ValueColumn means the source carried no value field at all.
type Series struct {
	Key         string     `json:"key"`
	ValueColumn string     `json:"-"`
	Attributes  Attributes `json:"attributes"`
	Points      []Point    `json:"points"`
}

// DefaultValueColumn is the value field assumed for series built in code
const DefaultValueColumn = "OBS_VALUE"

// NewSeries builds a cleaned series from points: sorted by date with
// duplicate dates removed (first occurrence wins). The input slice is not modified.
func NewSeries(key string, points []Point) Series {
	return Series{
		Key:         key,
		ValueColumn: DefaultValueColumn,
		Points:      CleanPoints(points),
	}
}

// CleanPoints returns a date-sorted copy of points without duplicate dates
func CleanPoints(points []Point) []Point {
	out := make([]Point, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})

	cleaned := out[:0]
	for i, p := range out {
		if i > 0 && p.Date.Equal(cleaned[len(cleaned)-1].Date) {
			continue
		}
		cleaned = append(cleaned, p)
	}
	return cleaned
}

// HasValues reports whether the series was built from a source with a value field
func (s Series) HasValues() bool {
	return s.ValueColumn != ""
}

// Len returns the number of points
func (s Series) Len() int {
	return len(s.Points)
}

// Dates returns the series timestamps
func (s Series) Dates() []time.Time {
	dates := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		dates[i] = p.Date
	}
	return dates
}

// WithPoints returns a copy of the series carrying the given points
func (s Series) WithPoints(points []Point) Series {
	return Series{
		Key:         s.Key,
		ValueColumn: s.ValueColumn,
		Attributes:  s.Attributes,
		Points:      points,
	}
}

// Truncate returns the points falling inside the inclusive range.
// A nil range returns the series unchanged.
func (s Series) Truncate(r *DateRange) Series {
	if r == nil {
		return s
	}
	points := make([]Point, 0, len(s.Points))
	for _, p := range s.Points {
		if r.Contains(p.Date) {
			points = append(points, p)
		}
	}
	return s.WithPoints(points)
}

// DateRange is an inclusive date interval; zero bounds are open
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate fails with InvalidDateRange when start is after end
func (r DateRange) Validate() error {
	if !r.Start.IsZero() && !r.End.IsZero() && r.Start.After(r.End) {
		return &AnalysisError{
			Kind:    KindInvalidDateRange,
			Message: fmt.Sprintf("start %s is after end %s", r.Start.Format(DateLayout), r.End.Format(DateLayout)),
		}
	}
	return nil
}

// Contains reports whether t lies in the range
func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// DateLayout is the ISO-8601 calendar date layout used on the wire
const DateLayout = "2006-01-02"

// ParseDate parses YYYY-MM-DD, YYYY-MM and YYYY-Qn period strings.
// Months and quarters map to the first day of the period.
func ParseDate(s string) (time.Time, error) {
	return parseDate(s, false)
}

// ParseDateEnd parses the same formats as ParseDate for use as an inclusive
// range end: months and quarters map to the last day of the period.
func ParseDateEnd(s string) (time.Time, error) {
	return parseDate(s, true)
}

func parseDate(s string, periodEnd bool) (time.Time, error) {
	s = strings.TrimSpace(s)

	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05Z07:00", s); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	if t, err := time.Parse("2006-01", s); err == nil {
		return periodBound(t, 1, periodEnd), nil
	}
	if len(s) == 7 && (s[5] == 'Q' || s[5] == 'q') && s[4] == '-' {
		year, errY := strconv.Atoi(s[:4])
		quarter, errQ := strconv.Atoi(s[6:])
		if errY == nil && errQ == nil && quarter >= 1 && quarter <= 4 {
			first := time.Date(year, time.Month((quarter-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
			return periodBound(first, 3, periodEnd), nil
		}
	}

	return time.Time{}, &ValidationError{
		Field:   "date",
		Value:   s,
		Message: "invalid date format, expected YYYY-MM-DD, YYYY-MM or YYYY-Qn",
	}
}

// periodBound returns first, or the last day of the period of the given
// number of months starting at first
func periodBound(first time.Time, months int, periodEnd bool) time.Time {
	if !periodEnd {
		return first
	}
	return first.AddDate(0, months, -1)
}

// MonthLabel returns the two-character calendar-month label ("01".."12")
func MonthLabel(t time.Time) string {
	return t.Format("01")
}
