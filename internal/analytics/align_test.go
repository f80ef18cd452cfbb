package analytics

import (
	"errors"
	"testing"

	"series-platform/internal/models"
)

func namedMonthly(labels ...string) []NamedSeries {
	out := make([]NamedSeries, len(labels))
	for i, l := range labels {
		out[i] = NamedSeries{
			Label:  l,
			Series: monthlySeries(l, date(2020, 1, 1), 100, 101, 102, 103),
		}
	}
	return out
}

func TestAlign_AxisAndColorByPosition(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		wantAxes  []models.Axis
		checkWrap bool
	}{
		{name: "single series", count: 1, wantAxes: []models.Axis{models.AxisPrimary}},
		{name: "two series", count: 2, wantAxes: []models.Axis{models.AxisPrimary, models.AxisSecondary}},
		{
			name:     "third series stays on secondary",
			count:    3,
			wantAxes: []models.Axis{models.AxisPrimary, models.AxisSecondary, models.AxisSecondary},
		},
		{name: "palette wraps", count: 11, checkWrap: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels := make([]string, tt.count)
			for i := range labels {
				labels[i] = string(rune('A' + i))
			}

			out, err := Align(namedMonthly(labels...), models.ViewOriginal, models.SubNone, nil)
			if err != nil {
				t.Fatalf("Align() error = %v", err)
			}
			if len(out.Entries) != tt.count {
				t.Fatalf("len(Entries) = %d, want %d", len(out.Entries), tt.count)
			}

			for i, want := range tt.wantAxes {
				if out.Entries[i].Axis != want {
					t.Errorf("entry %d axis = %v, want %v", i, out.Entries[i].Axis, want)
				}
			}
			for i, e := range out.Entries {
				if e.Color != Palette[i%len(Palette)] {
					t.Errorf("entry %d color = %v, want %v", i, e.Color, Palette[i%len(Palette)])
				}
			}
			if tt.checkWrap && out.Entries[10].Color != out.Entries[0].Color {
				t.Error("eleventh entry should reuse the first color")
			}
		})
	}
}

func TestAlign_PeriodRateExample(t *testing.T) {
	s := models.NewSeries("A", []models.Point{
		{Date: date(2020, 1, 1), Value: models.Float(100)},
		{Date: date(2020, 2, 1), Value: models.Float(102)},
		{Date: date(2020, 3, 1), Value: models.Float(99)},
	})

	out, err := Align([]NamedSeries{{Label: "A", Series: s}}, models.ViewPeriodOnPeriod, models.SubRateOfChange, nil)
	if err != nil {
		t.Fatalf("Align() error = %v", err)
	}

	e := out.Entries[0]
	if e.Frequency != models.FrequencyMonthly {
		t.Errorf("Frequency = %v, want monthly", e.Frequency)
	}
	if e.Transformation != models.TransformPeriodRate {
		t.Errorf("Transformation = %v, want %v", e.Transformation, models.TransformPeriodRate)
	}
	if e.Series.Points[0].Valid() {
		t.Error("first point should be missing")
	}
	if !approxEqual(*e.Series.Points[1].Value, 2) {
		t.Errorf("second point = %v, want 2", *e.Series.Points[1].Value)
	}
	if !approxEqual(*e.Series.Points[2].Value, -300.0/102) {
		t.Errorf("third point = %v, want %v", *e.Series.Points[2].Value, -300.0/102)
	}
	if e.Summary.Count != 2 {
		t.Errorf("Summary.Count = %d, want 2", e.Summary.Count)
	}
}

func TestAlign_WarningsKeepPositions(t *testing.T) {
	selected := namedMonthly("A", "B", "C")
	selected[1].Series.ValueColumn = ""

	out, err := Align(selected, models.ViewPeriodOnPeriod, models.SubDifference, nil)
	if err != nil {
		t.Fatalf("Align() error = %v", err)
	}

	if len(out.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(out.Entries))
	}
	if len(out.Warnings) != 1 {
		t.Fatalf("len(Warnings) = %d, want 1", len(out.Warnings))
	}

	w := out.Warnings[0]
	if w.Label != "B" || w.Position != 1 {
		t.Errorf("warning = %+v, want label B at position 1", w)
	}
	if !errors.Is(w.Err, models.ErrMissingColumn) {
		t.Errorf("warning error = %v, want MissingColumn", w.Err)
	}

	last := out.Entries[1]
	if last.Label != "C" || last.Position != 2 {
		t.Errorf("entry = %s at %d, want C at 2", last.Label, last.Position)
	}
	if last.Color != Palette[2] || last.Axis != models.AxisSecondary {
		t.Errorf("entry C got color %s axis %s", last.Color, last.Axis)
	}
}

func TestAlign_InterannualUnknownFrequency(t *testing.T) {
	selected := []NamedSeries{
		{Label: "monthly", Series: monthlySeries("m", date(2019, 1, 1), 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14)},
		{Label: "irregular", Series: gapSeries(10, 20, 45, 3)},
	}

	out, err := Align(selected, models.ViewInterannual, models.SubRateOfChange, nil)
	if err != nil {
		t.Fatalf("Align() error = %v", err)
	}
	if len(out.Entries) != 1 || out.Entries[0].Label != "monthly" {
		t.Fatalf("Entries = %+v, want only monthly", out.Entries)
	}
	if len(out.Warnings) != 1 || !errors.Is(out.Warnings[0].Err, models.ErrUnsupportedTransformation) {
		t.Errorf("Warnings = %+v, want one UnsupportedTransformation", out.Warnings)
	}
}

func TestAlign_Errors(t *testing.T) {
	tests := []struct {
		name     string
		selected []NamedSeries
		view     models.View
		sub      models.SubOption
		r        *models.DateRange
		wantErr  error
	}{
		{
			name:    "empty selection",
			view:    models.ViewOriginal,
			wantErr: models.ErrEmptyInput,
		},
		{
			name:     "inverted range",
			selected: namedMonthly("A"),
			view:     models.ViewOriginal,
			r:        &models.DateRange{Start: date(2021, 1, 1), End: date(2020, 1, 1)},
			wantErr:  models.ErrInvalidDateRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Align(tt.selected, tt.view, tt.sub, tt.r)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Align() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("missing sub option", func(t *testing.T) {
		_, err := Align(namedMonthly("A"), models.ViewPeriodOnPeriod, models.SubNone, nil)
		var verr *models.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("Align() error = %v, want ValidationError", err)
		}
	})
}

func TestAlign_TruncatesAfterTransform(t *testing.T) {
	s := monthlySeries("A", date(2020, 1, 1), 100, 110, 121, 133.1, 146.41)
	r := &models.DateRange{Start: date(2020, 3, 1), End: date(2020, 4, 1)}

	out, err := Align([]NamedSeries{{Label: "A", Series: s}}, models.ViewPeriodOnPeriod, models.SubRateOfChange, r)
	if err != nil {
		t.Fatalf("Align() error = %v", err)
	}

	pts := out.Entries[0].Series.Points
	if len(pts) != 2 {
		t.Fatalf("len(points) = %d, want 2", len(pts))
	}
	if !pts[0].Date.Equal(date(2020, 3, 1)) {
		t.Errorf("first date = %v, want 2020-03-01", pts[0].Date)
	}
	// The lag reaches back outside the range, so the first displayed point has a value.
	if !pts[0].Valid() || !approxEqual(*pts[0].Value, 10) {
		t.Errorf("first displayed point = %v, want 10", pts[0].Value)
	}
	if out.Entries[0].Summary.Count != 2 {
		t.Errorf("Summary.Count = %d, want 2", out.Entries[0].Summary.Count)
	}
	if out.Range != r {
		t.Error("Range should be carried on the comparison")
	}
}

func TestAlign_OriginalClearsSubOption(t *testing.T) {
	out, err := Align(namedMonthly("A"), models.ViewOriginal, models.SubRateOfChange, nil)
	if err != nil {
		t.Fatalf("Align() error = %v", err)
	}
	if out.Sub != models.SubNone {
		t.Errorf("Sub = %q, want empty", out.Sub)
	}
	if out.Entries[0].Transformation != models.TransformRaw {
		t.Errorf("Transformation = %v, want raw", out.Entries[0].Transformation)
	}
}
