// Package charts renders aligned series as PNG line charts
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"series-platform/internal/analytics"
	"series-platform/internal/models"
)

// ErrNothingToPlot is returned when no line has at least two valid points
var ErrNothingToPlot = errors.New("nothing to plot: every series has fewer than two valid points")

// Options controls the rendered image
type Options struct {
	Title  string
	Width  int
	Height int
}

// DefaultOptions returns a 1024x512 chart without a title
func DefaultOptions() Options {
	return Options{Width: 1024, Height: 512}
}

// Line is one plotted series
type Line struct {
	Label  string
	Color  string
	Axis   models.Axis
	Series models.Series
}

// ComparisonLines turns the entries of a comparison into lines, keeping
// each entry's axis and color
func ComparisonLines(cmp analytics.AlignedComparison) []Line {
	lines := make([]Line, len(cmp.Entries))
	for i, e := range cmp.Entries {
		lines[i] = Line{Label: e.Label, Color: e.Color, Axis: e.Axis, Series: e.Series}
	}
	return lines
}

// ComparisonTitle describes the view of a comparison, e.g. "Interannual / RateOfChange"
func ComparisonTitle(cmp analytics.AlignedComparison) string {
	if cmp.Sub == models.SubNone {
		return string(cmp.View)
	}
	return fmt.Sprintf("%s / %s", cmp.View, cmp.Sub)
}

// PercentileLines plots one percentile series per entity on the primary axis,
// colored by the entity's position in entities
func PercentileLines(entities []string, series map[string]models.Series) []Line {
	lines := make([]Line, 0, len(entities))
	for i, entity := range entities {
		s, ok := series[entity]
		if !ok {
			continue
		}
		lines = append(lines, Line{
			Label:  entity,
			Color:  analytics.ColorFor(i),
			Axis:   models.AxisPrimary,
			Series: s,
		})
	}
	return lines
}

// Render draws lines into a PNG. Missing points are left out of the line;
// lines with fewer than two valid points are skipped.
func Render(lines []Line, opts Options) ([]byte, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		def := DefaultOptions()
		opts.Width, opts.Height = def.Width, def.Height
	}

	var series []chart.Series
	primary, secondary := newBounds(), newBounds()

	for _, line := range lines {
		xs, ys := validPoints(line.Series)
		if len(xs) < 2 {
			continue
		}

		color := drawing.ColorFromHex(strings.TrimPrefix(line.Color, "#"))
		ts := chart.TimeSeries{
			Name:    line.Label,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 2,
			},
		}
		if line.Axis == models.AxisSecondary {
			ts.YAxis = chart.YAxisSecondary
			secondary.add(ys)
		} else {
			primary.add(ys)
		}
		series = append(series, ts)
	}

	if len(series) == 0 {
		return nil, ErrNothingToPlot
	}

	ch := chart.Chart{
		Title:      opts.Title,
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01"),
		},
		YAxis:          chart.YAxis{Range: primary.rangeOrNil()},
		YAxisSecondary: chart.YAxis{Range: secondary.rangeOrNil()},
		Series:         series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}

func validPoints(s models.Series) ([]time.Time, []float64) {
	xs := make([]time.Time, 0, len(s.Points))
	ys := make([]float64, 0, len(s.Points))
	for _, p := range s.Points {
		if p.Valid() {
			xs = append(xs, p.Date)
			ys = append(ys, *p.Value)
		}
	}
	return xs, ys
}

// bounds tracks the value range of one axis
type bounds struct {
	min, max float64
}

func newBounds() *bounds {
	return &bounds{min: math.Inf(1), max: math.Inf(-1)}
}

func (b *bounds) add(values []float64) {
	for _, v := range values {
		b.min = math.Min(b.min, v)
		b.max = math.Max(b.max, v)
	}
}

// rangeOrNil pads a flat axis so the renderer gets a non-zero delta; other
// axes are left to the renderer's automatic range.
func (b *bounds) rangeOrNil() chart.Range {
	if math.IsInf(b.min, 0) || b.min != b.max {
		return nil
	}
	pad := math.Max(math.Abs(b.min)*0.05, 1)
	return &chart.ContinuousRange{Min: b.min - pad, Max: b.max + pad}
}
