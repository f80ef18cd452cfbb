package analytics

import (
	"math"
	"sort"
	"time"

	"series-platform/internal/models"
)

// PercentileCell is the percentile rank of one observation within its
// entity's calendar-month slice.
type PercentileCell struct {
	Date       time.Time `json:"date"`
	Value      float64   `json:"value"`
	Percentile float64   `json:"percentile"`
}

// PercentileTable maps entity -> month label -> date-ordered cells.
// A missing (entity, month) pair means the slice had no valid observations.
type PercentileTable map[string]map[string][]PercentileCell

// MedianTable maps entity -> month label -> median of that slice
type MedianTable map[string]map[string]float64

// MonthLabels lists the month labels present in the table, sorted
func (t MedianTable) MonthLabels() []string {
	seen := make(map[string]bool)
	for _, byMonth := range t {
		for m := range byMonth {
			seen[m] = true
		}
	}
	return sortedMapKeys(seen)
}

// Entities lists the entities present in the table, sorted
func (t MedianTable) Entities() []string {
	return sortedMapKeys(t)
}

// Entities lists the entities present in the table, sorted
func (t PercentileTable) Entities() []string {
	return sortedMapKeys(t)
}

// PeerTables bundles the outputs of BuildPeerTables
type PeerTables struct {
	Percentiles PercentileTable `json:"percentiles"`
	Medians     MedianTable     `json:"medians"`
	// Counts holds the number of valid observations per entity and month label
	Counts map[string]map[string]int `json:"counts"`
}

// BuildPeerTables computes, for every entity, the period-over-period rate of
// its series, groups the rates by calendar-month label and ranks each
// observation against the entity's own history for that month.
// Entities whose series lack a value field are skipped and reported in the
// returned slice of per-entity errors; they never abort the rest.
func BuildPeerTables(named map[string]models.Series) (PeerTables, []error) {
	tables := PeerTables{
		Percentiles: make(PercentileTable),
		Medians:     make(MedianTable),
		Counts:      make(map[string]map[string]int),
	}
	var errs []error

	for _, entity := range sortedMapKeys(named) {
		changes, err := Transform(named[entity], models.TransformPeriodRate, models.FrequencyUnknown)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		slices := groupByMonth(changes.Points)
		for month, cells := range slices {
			values := make([]float64, len(cells))
			for i, c := range cells {
				values[i] = c.Value
			}
			for i := range cells {
				cells[i].Percentile = PercentileOfScore(values, cells[i].Value)
			}

			if tables.Percentiles[entity] == nil {
				tables.Percentiles[entity] = make(map[string][]PercentileCell)
				tables.Medians[entity] = make(map[string]float64)
				tables.Counts[entity] = make(map[string]int)
			}
			tables.Percentiles[entity][month] = cells
			tables.Medians[entity][month] = Median(values)
			tables.Counts[entity][month] = len(values)
		}
	}

	return tables, errs
}

// groupByMonth buckets valid points by month label, keeping date order
func groupByMonth(points []models.Point) map[string][]PercentileCell {
	slices := make(map[string][]PercentileCell)
	for _, p := range points {
		if !p.Valid() || math.IsNaN(*p.Value) {
			continue
		}
		m := models.MonthLabel(p.Date)
		slices[m] = append(slices[m], PercentileCell{Date: p.Date, Value: *p.Value})
	}
	return slices
}

// PercentileOfScore returns the rank percentile of score within values:
// the share strictly below plus half the share exactly equal, times 100.
// Equal values therefore receive equal percentiles.
func PercentileOfScore(values []float64, score float64) float64 {
	if len(values) == 0 {
		return 0
	}
	less, equal := 0, 0
	for _, v := range values {
		switch {
		case v < score:
			less++
		case v == score:
			equal++
		}
	}
	return (float64(less) + 0.5*float64(equal)) / float64(len(values)) * 100
}

// Median returns the median of values; the input is not reordered
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// PercentileSeries flattens one entity of the table back into a date-ordered
// series of percentiles, keeping only dates in or after fromYear (0 keeps all).
func PercentileSeries(t PercentileTable, entity string, fromYear int) models.Series {
	var points []models.Point
	for _, cells := range t[entity] {
		for _, c := range cells {
			if fromYear > 0 && c.Date.Year() < fromYear {
				continue
			}
			points = append(points, models.Point{Date: c.Date, Value: models.Float(c.Percentile)})
		}
	}
	s := models.NewSeries(entity, points)
	s.Attributes.Entity = entity
	s.Attributes.Unit = "percentile"
	return s
}

func sortedMapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
