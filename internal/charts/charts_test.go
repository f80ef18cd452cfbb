package charts

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"series-platform/internal/analytics"
	"series-platform/internal/models"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func monthlySeries(key string, values ...*float64) models.Series {
	points := make([]models.Point, len(values))
	for i, v := range values {
		points[i] = models.Point{Date: time.Date(2020, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC), Value: v}
	}
	return models.NewSeries(key, points)
}

func TestRender(t *testing.T) {
	f := models.Float

	tests := []struct {
		name    string
		lines   []Line
		wantErr error
	}{
		{
			name: "two axes with gaps",
			lines: []Line{
				{Label: "HICP", Color: "#4F46E5", Axis: models.AxisPrimary, Series: monthlySeries("A", f(1), nil, f(3), f(2))},
				{Label: "UR", Color: "#10B981", Axis: models.AxisSecondary, Series: monthlySeries("B", f(14), f(14.5), f(13.9))},
			},
		},
		{
			name: "flat primary axis",
			lines: []Line{
				{Label: "flat", Color: "#4F46E5", Series: monthlySeries("A", f(5), f(5), f(5))},
			},
		},
		{
			name: "single point lines are skipped",
			lines: []Line{
				{Label: "short", Color: "#4F46E5", Series: monthlySeries("A", f(1), nil, nil)},
			},
			wantErr: ErrNothingToPlot,
		},
		{
			name:    "no lines",
			wantErr: ErrNothingToPlot,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Render(tt.lines, Options{Title: tt.name})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Render() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if !bytes.HasPrefix(img, pngMagic) {
				t.Errorf("Render() output is not a PNG (%d bytes)", len(img))
			}
		})
	}
}

func TestComparisonLines(t *testing.T) {
	f := models.Float
	selected := []analytics.NamedSeries{
		{Label: "A", Series: monthlySeries("A", f(1), f(2), f(3), f(4))},
		{Label: "B", Series: monthlySeries("B", f(10), f(20), f(30), f(40))},
	}
	cmp, err := analytics.Align(selected, models.ViewPeriodOnPeriod, models.SubRateOfChange, nil)
	if err != nil {
		t.Fatal(err)
	}

	lines := ComparisonLines(cmp)
	if len(lines) != 2 {
		t.Fatalf("len = %d, want 2", len(lines))
	}
	if lines[1].Axis != models.AxisSecondary || lines[1].Color != analytics.Palette[1] {
		t.Errorf("second line axis/color = %s/%s", lines[1].Axis, lines[1].Color)
	}
	if got := ComparisonTitle(cmp); got != "PeriodOnPeriod / RateOfChange" {
		t.Errorf("ComparisonTitle() = %q", got)
	}

	img, err := Render(lines, DefaultOptions())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !bytes.HasPrefix(img, pngMagic) {
		t.Error("comparison chart is not a PNG")
	}
}

func TestPercentileLines(t *testing.T) {
	f := models.Float
	series := map[string]models.Series{
		"ES": monthlySeries("ES", f(10), f(50)),
		"FR": monthlySeries("FR", f(90), f(50)),
	}

	lines := PercentileLines([]string{"ES", "FR", "IT"}, series)
	if len(lines) != 2 {
		t.Fatalf("len = %d, want 2", len(lines))
	}
	if lines[1].Label != "FR" || lines[1].Color != analytics.ColorFor(1) || lines[1].Axis != models.AxisPrimary {
		t.Errorf("FR line = %+v", lines[1])
	}
}
