package analytics

import (
	"math"
	"time"

	"series-platform/internal/models"
)

// Summary describes the valid points of a series.
// Value fields are nil when the series has no valid points.
type Summary struct {
	Count     int        `json:"count"`
	Min       *float64   `json:"min,omitempty"`
	Max       *float64   `json:"max,omitempty"`
	Mean      *float64   `json:"mean,omitempty"`
	StdDev    *float64   `json:"std_dev,omitempty"`
	Last      *float64   `json:"last,omitempty"`
	FirstDate *time.Time `json:"first_date,omitempty"`
	LastDate  *time.Time `json:"last_date,omitempty"`
}

// Summarize computes summary statistics over the valid points of s.
// StdDev is the sample standard deviation and needs at least two points.
func Summarize(s models.Series) Summary {
	var sum Summary
	var total float64
	min, max := math.Inf(1), math.Inf(-1)

	for _, p := range s.Points {
		if !p.Valid() {
			continue
		}
		v := *p.Value
		date := p.Date

		if sum.Count == 0 {
			sum.FirstDate = &date
		}
		sum.Count++
		total += v
		min = math.Min(min, v)
		max = math.Max(max, v)
		sum.Last = models.Float(v)
		sum.LastDate = &date
	}

	if sum.Count == 0 {
		return sum
	}

	mean := total / float64(sum.Count)
	sum.Min = models.Float(min)
	sum.Max = models.Float(max)
	sum.Mean = models.Float(mean)

	if sum.Count > 1 {
		var sq float64
		for _, p := range s.Points {
			if p.Valid() {
				d := *p.Value - mean
				sq += d * d
			}
		}
		sum.StdDev = models.Float(math.Sqrt(sq / float64(sum.Count-1)))
	}

	return sum
}
