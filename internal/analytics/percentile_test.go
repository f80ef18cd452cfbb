package analytics

import (
	"errors"
	"sort"
	"testing"

	"series-platform/internal/models"
)

// decJanSeries alternates a December base of 100 with the given January levels
func decJanSeries(key string, startYear int, januaries ...float64) models.Series {
	points := []models.Point{}
	for i, jan := range januaries {
		y := startYear + i
		points = append(points,
			models.Point{Date: date(y, 12, 1), Value: models.Float(100)},
			models.Point{Date: date(y+1, 1, 1), Value: models.Float(jan)},
		)
	}
	return models.NewSeries(key, points)
}

func TestBuildPeerTables(t *testing.T) {
	named := map[string]models.Series{
		"ES": decJanSeries("ES", 2019, 101, 102, 103),
	}

	tables, errs := BuildPeerTables(named)
	if len(errs) != 0 {
		t.Fatalf("BuildPeerTables() errors = %v", errs)
	}

	jan := tables.Percentiles["ES"]["01"]
	if len(jan) != 3 {
		t.Fatalf("len(January cells) = %d, want 3", len(jan))
	}

	wantPct := []float64{100.0 / 6, 50, 500.0 / 6}
	for i, c := range jan {
		if !approxEqual(c.Percentile, wantPct[i]) {
			t.Errorf("cell %d percentile = %v, want %v", i, c.Percentile, wantPct[i])
		}
		if c.Date.Month() != 1 {
			t.Errorf("cell %d dated %v, want January", i, c.Date)
		}
	}

	if got := tables.Medians["ES"]["01"]; !approxEqual(got, 2) {
		t.Errorf("January median = %v, want 2", got)
	}
	if got := tables.Counts["ES"]["01"]; got != 3 {
		t.Errorf("January count = %d, want 3", got)
	}

	// The first December has no predecessor, so only two rates remain.
	if got := tables.Counts["ES"]["12"]; got != 2 {
		t.Errorf("December count = %d, want 2", got)
	}
	if _, ok := tables.Percentiles["ES"]["06"]; ok {
		t.Error("months without observations must be absent")
	}
}

func TestBuildPeerTables_Properties(t *testing.T) {
	values := []float64{100, 104, 99, 101, 107, 95, 110, 103, 98, 120, 111, 115,
		118, 102, 104, 106, 99, 108, 112, 113, 100, 125, 119, 121, 123, 117}
	named := map[string]models.Series{
		"DE": monthlySeries("DE", date(2018, 1, 1), values...),
		"FR": monthlySeries("FR", date(2018, 1, 1), 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5),
	}

	tables, errs := BuildPeerTables(named)
	if len(errs) != 0 {
		t.Fatalf("BuildPeerTables() errors = %v", errs)
	}

	for entity, byMonth := range tables.Percentiles {
		for month, cells := range byMonth {
			for _, c := range cells {
				if c.Percentile < 0 || c.Percentile > 100 {
					t.Errorf("%s/%s percentile %v outside [0, 100]", entity, month, c.Percentile)
				}
			}

			sorted := make([]PercentileCell, len(cells))
			copy(sorted, cells)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].Value < sorted[j].Value })
			for i := 1; i < len(sorted); i++ {
				if sorted[i].Percentile < sorted[i-1].Percentile {
					t.Errorf("%s/%s percentile not monotonic: %v", entity, month, sorted)
				}
				if sorted[i].Value == sorted[i-1].Value && sorted[i].Percentile != sorted[i-1].Percentile {
					t.Errorf("%s/%s equal values got different percentiles", entity, month)
				}
			}
		}
	}

	// A flat series yields identical zero rates, all ranked at 50.
	for month, cells := range tables.Percentiles["FR"] {
		for _, c := range cells {
			if c.Percentile != 50 {
				t.Errorf("FR/%s percentile = %v, want 50", month, c.Percentile)
			}
		}
	}
}

func TestBuildPeerTables_SkipsEntityWithoutValues(t *testing.T) {
	named := map[string]models.Series{
		"ES": decJanSeries("ES", 2019, 101, 102),
		"IT": {Key: "IT", Points: decJanSeries("IT", 2019, 101).Points},
	}

	tables, errs := BuildPeerTables(named)
	if len(errs) != 1 {
		t.Fatalf("len(errs) = %d, want 1", len(errs))
	}
	if !errors.Is(errs[0], models.ErrMissingColumn) {
		t.Errorf("error = %v, want MissingColumn", errs[0])
	}
	if _, ok := tables.Percentiles["IT"]; ok {
		t.Error("entity without values must not appear in the table")
	}
	if _, ok := tables.Percentiles["ES"]; !ok {
		t.Error("remaining entities must still be processed")
	}
}

func TestPercentileOfScore(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		score  float64
		want   float64
	}{
		{name: "lowest of three", values: []float64{1, 2, 3}, score: 1, want: 100.0 / 6},
		{name: "middle of three", values: []float64{1, 2, 3}, score: 2, want: 50},
		{name: "all ties", values: []float64{4, 4, 4, 4}, score: 4, want: 50},
		{name: "single value", values: []float64{7}, score: 7, want: 50},
		{name: "above all", values: []float64{1, 2}, score: 9, want: 100},
		{name: "below all", values: []float64{1, 2}, score: 0, want: 0},
		{name: "empty", values: nil, score: 1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PercentileOfScore(tt.values, tt.score); !approxEqual(got, tt.want) {
				t.Errorf("PercentileOfScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMedian(t *testing.T) {
	values := []float64{3, 1, 2}
	if got := Median(values); got != 2 {
		t.Errorf("Median(odd) = %v, want 2", got)
	}
	if values[0] != 3 {
		t.Error("Median must not reorder its input")
	}
	if got := Median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Errorf("Median(even) = %v, want 2.5", got)
	}
	if got := Median(nil); got != 0 {
		t.Errorf("Median(nil) = %v, want 0", got)
	}
}

func TestPercentileSeries(t *testing.T) {
	tables, _ := BuildPeerTables(map[string]models.Series{
		"ES": decJanSeries("ES", 2019, 101, 102, 103),
	})

	all := PercentileSeries(tables.Percentiles, "ES", 0)
	if all.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", all.Len())
	}
	for i := 1; i < all.Len(); i++ {
		if !all.Points[i-1].Date.Before(all.Points[i].Date) {
			t.Fatalf("points not date ordered at %d", i)
		}
	}
	if all.Attributes.Unit != "percentile" {
		t.Errorf("Unit = %q, want percentile", all.Attributes.Unit)
	}

	recent := PercentileSeries(tables.Percentiles, "ES", 2021)
	for _, p := range recent.Points {
		if p.Date.Year() < 2021 {
			t.Errorf("point %v predates 2021", p.Date)
		}
	}
	if recent.Len() != 3 {
		t.Errorf("Len() from 2021 = %d, want 3", recent.Len())
	}

	if empty := PercentileSeries(tables.Percentiles, "XX", 0); empty.Len() != 0 {
		t.Errorf("unknown entity Len() = %d, want 0", empty.Len())
	}
}
