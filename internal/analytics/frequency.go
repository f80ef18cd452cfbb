// Package analytics implements the series transformation and peer percentile
// engine. Every function is pure: inputs are never modified and no state is
// kept between calls, so calls may run concurrently without coordination.
package analytics

import (
	"sort"
	"time"

	"series-platform/internal/models"
)

const minFrequencyObservations = 3

// cadence buckets for consecutive gaps, in days
var (
	monthlyGapDays   = [2]int{28, 31}
	quarterlyGapDays = [2]int{90, 92}
)

// InferFrequency classifies the sampling cadence of a series from the modal
// gap between consecutive distinct dates. Each gap is bucketed as monthly
// (28-31 days), quarterly (90-92 days) or other; the most common bucket
// decides. A tie between buckets, a modal "other" bucket or fewer than three
// observations yields FrequencyUnknown.
func InferFrequency(s models.Series) models.Frequency {
	dates := distinctSortedDates(s.Dates())
	if len(dates) < minFrequencyObservations {
		return models.FrequencyUnknown
	}

	counts := make(map[models.Frequency]int, 3)
	for i := 1; i < len(dates); i++ {
		counts[classifyGap(gapDays(dates[i-1], dates[i]))]++
	}

	best := models.FrequencyUnknown
	bestCount, tie := 0, false
	for _, f := range []models.Frequency{models.FrequencyMonthly, models.FrequencyQuarterly, models.FrequencyUnknown} {
		switch c := counts[f]; {
		case c > bestCount:
			best, bestCount, tie = f, c, false
		case c == bestCount && c > 0:
			tie = true
		}
	}
	if tie {
		return models.FrequencyUnknown
	}
	return best
}

func classifyGap(days int) models.Frequency {
	switch {
	case days >= monthlyGapDays[0] && days <= monthlyGapDays[1]:
		return models.FrequencyMonthly
	case days >= quarterlyGapDays[0] && days <= quarterlyGapDays[1]:
		return models.FrequencyQuarterly
	default:
		return models.FrequencyUnknown
	}
}

// gapDays counts calendar days between two dates, ignoring time of day and DST
func gapDays(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

func distinctSortedDates(dates []time.Time) []time.Time {
	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	out := sorted[:0]
	for i, d := range sorted {
		if i > 0 && d.Equal(out[len(out)-1]) {
			continue
		}
		out = append(out, d)
	}
	return out
}
