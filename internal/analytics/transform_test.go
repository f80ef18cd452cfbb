package analytics

import (
	"errors"
	"math"
	"testing"
	"time"

	"series-platform/internal/models"
)

const tolerance = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < tolerance
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// monthlySeries builds a first-of-month series starting at start
func monthlySeries(key string, start time.Time, values ...float64) models.Series {
	points := make([]models.Point, len(values))
	for i, v := range values {
		points[i] = models.Point{Date: start.AddDate(0, i, 0), Value: models.Float(v)}
	}
	return models.NewSeries(key, points)
}

// gapSeries builds a series whose consecutive dates are separated by gaps (days)
func gapSeries(gaps ...int) models.Series {
	d := date(2020, 1, 1)
	points := []models.Point{{Date: d, Value: models.Float(1)}}
	for _, g := range gaps {
		d = d.AddDate(0, 0, g)
		points = append(points, models.Point{Date: d, Value: models.Float(1)})
	}
	return models.NewSeries("gaps", points)
}

func TestInferFrequency(t *testing.T) {
	quarterStarts := []models.Point{
		{Date: date(2021, 1, 1)}, {Date: date(2021, 4, 1)}, {Date: date(2021, 7, 1)},
		{Date: date(2021, 10, 1)}, {Date: date(2022, 1, 1)},
	}

	tests := []struct {
		name   string
		series models.Series
		want   models.Frequency
	}{
		{name: "constant 91 day gap", series: gapSeries(91, 91, 91), want: models.FrequencyQuarterly},
		{name: "constant 90 day gap", series: gapSeries(90, 90), want: models.FrequencyQuarterly},
		{name: "constant 92 day gap", series: gapSeries(92, 92), want: models.FrequencyQuarterly},
		{name: "constant 89 day gap", series: gapSeries(89, 89), want: models.FrequencyUnknown},
		{name: "february gaps", series: gapSeries(31, 29, 31), want: models.FrequencyMonthly},
		{name: "constant 31 day gap", series: gapSeries(31, 31, 31), want: models.FrequencyMonthly},
		{name: "constant 30 day gap", series: gapSeries(30, 30), want: models.FrequencyMonthly},
		{name: "two distinct cadences", series: gapSeries(31, 91), want: models.FrequencyUnknown},
		{name: "irregular gaps", series: gapSeries(10, 20, 45), want: models.FrequencyUnknown},
		{name: "weekly", series: gapSeries(7, 7, 7), want: models.FrequencyUnknown},
		{name: "calendar months", series: monthlySeries("m", date(2020, 1, 1), 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13), want: models.FrequencyMonthly},
		{name: "calendar quarters", series: models.NewSeries("q", quarterStarts), want: models.FrequencyQuarterly},
		{name: "single outlier gap", series: gapSeries(31, 30, 61, 31, 30), want: models.FrequencyMonthly},
		{name: "too few observations", series: gapSeries(31), want: models.FrequencyUnknown},
		{name: "empty", series: models.NewSeries("e", nil), want: models.FrequencyUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferFrequency(tt.series); got != tt.want {
				t.Errorf("InferFrequency() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInferFrequency_UnsortedDuplicates(t *testing.T) {
	s := models.Series{
		Key:         "raw",
		ValueColumn: models.DefaultValueColumn,
		Points: []models.Point{
			{Date: date(2020, 3, 1)}, {Date: date(2020, 1, 1)}, {Date: date(2020, 2, 1)},
			{Date: date(2020, 2, 1)}, {Date: date(2020, 4, 1)},
		},
	}
	if got := InferFrequency(s); got != models.FrequencyMonthly {
		t.Errorf("InferFrequency() = %v, want monthly", got)
	}
	if !s.Points[0].Date.Equal(date(2020, 3, 1)) {
		t.Error("InferFrequency must not reorder the input")
	}
}

func TestTransform_PeriodRateExample(t *testing.T) {
	s := models.NewSeries("A", []models.Point{
		{Date: date(2020, 1, 1), Value: models.Float(100)},
		{Date: date(2020, 2, 1), Value: models.Float(102)},
		{Date: date(2020, 3, 1), Value: models.Float(99)},
	})

	freq := InferFrequency(s)
	if freq != models.FrequencyMonthly {
		t.Fatalf("InferFrequency() = %v, want monthly", freq)
	}

	out, err := Transform(s, models.TransformPeriodRate, freq)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	if out.Points[0].Valid() {
		t.Errorf("first point = %v, want missing", *out.Points[0].Value)
	}
	if !approxEqual(*out.Points[1].Value, 2.0) {
		t.Errorf("second point = %v, want 2.0", *out.Points[1].Value)
	}
	if want := (99.0 - 102.0) / 102.0 * 100; !approxEqual(*out.Points[2].Value, want) {
		t.Errorf("third point = %v, want %v", *out.Points[2].Value, want)
	}
	for i := range s.Points {
		if !out.Points[i].Date.Equal(s.Points[i].Date) {
			t.Errorf("date %d = %v, want %v", i, out.Points[i].Date, s.Points[i].Date)
		}
	}
}

func TestTransform_ConstantSeriesYieldsZeros(t *testing.T) {
	s := monthlySeries("flat", date(2020, 1, 1), 5, 5, 5, 5, 5)

	for _, kind := range []models.Transformation{models.TransformPeriodDifference, models.TransformPeriodRate} {
		t.Run(string(kind), func(t *testing.T) {
			out, err := Transform(s, kind, models.FrequencyMonthly)
			if err != nil {
				t.Fatalf("Transform() error = %v", err)
			}
			if out.Points[0].Valid() {
				t.Error("warm-up point should be missing")
			}
			for i, p := range out.Points[1:] {
				if !p.Valid() || *p.Value != 0 {
					t.Errorf("point %d = %v, want 0", i+1, p.Value)
				}
			}
		})
	}
}

func TestTransform_DifferenceRoundTrip(t *testing.T) {
	s := monthlySeries("levels", date(2020, 1, 1), 3, 7, 2, 11, 11, -4)

	diffs, err := Transform(s, models.TransformPeriodDifference, models.FrequencyMonthly)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	rebuilt := CumulativeSum(diffs, *s.Points[0].Value)
	for i, p := range rebuilt.Points {
		if *p.Value != *s.Points[i].Value {
			t.Errorf("point %d = %v, want %v", i, *p.Value, *s.Points[i].Value)
		}
	}
}

func TestTransform_Annual(t *testing.T) {
	values := make([]float64, 14)
	for i := range values {
		values[i] = 100 + float64(i)
	}
	monthly := monthlySeries("m", date(2019, 1, 1), values...)

	tests := []struct {
		name        string
		series      models.Series
		kind        models.Transformation
		freq        models.Frequency
		wantErr     error
		checkValues func(*testing.T, models.Series)
	}{
		{
			name:   "monthly annual difference uses lag 12",
			series: monthly,
			kind:   models.TransformAnnualDifference,
			freq:   models.FrequencyMonthly,
			checkValues: func(t *testing.T, out models.Series) {
				for i := 0; i < 12; i++ {
					if out.Points[i].Valid() {
						t.Errorf("point %d should be missing", i)
					}
				}
				if *out.Points[12].Value != 12 || *out.Points[13].Value != 12 {
					t.Errorf("annual differences = %v, %v, want 12", *out.Points[12].Value, *out.Points[13].Value)
				}
			},
		},
		{
			name:   "quarterly annual rate uses lag 4",
			series: monthlySeries("q", date(2019, 1, 1), 100, 101, 102, 103, 110),
			kind:   models.TransformAnnualRate,
			freq:   models.FrequencyQuarterly,
			checkValues: func(t *testing.T, out models.Series) {
				if out.Points[3].Valid() {
					t.Error("point 3 should be missing")
				}
				if !approxEqual(*out.Points[4].Value, 10) {
					t.Errorf("annual rate = %v, want 10", *out.Points[4].Value)
				}
			},
		},
		{
			name:    "unknown frequency",
			series:  monthly,
			kind:    models.TransformAnnualRate,
			freq:    models.FrequencyUnknown,
			wantErr: models.ErrUnsupportedTransformation,
		},
		{
			name:    "missing value field",
			series:  models.Series{Key: "nocol", Points: monthly.Points},
			kind:    models.TransformRaw,
			freq:    models.FrequencyMonthly,
			wantErr: models.ErrMissingColumn,
		},
		{
			name:    "unknown kind",
			series:  monthly,
			kind:    models.Transformation("log"),
			freq:    models.FrequencyMonthly,
			wantErr: models.ErrUnsupportedTransformation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Transform(tt.series, tt.kind, tt.freq)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Transform() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Transform() error = %v", err)
			}
			tt.checkValues(t, out)
		})
	}
}

func TestTransform_MissingMarkers(t *testing.T) {
	s := models.NewSeries("gappy", []models.Point{
		{Date: date(2020, 1, 1), Value: models.Float(0)},
		{Date: date(2020, 2, 1), Value: models.Float(5)},
		{Date: date(2020, 3, 1), Value: nil},
		{Date: date(2020, 4, 1), Value: models.Float(6)},
	})

	out, err := Transform(s, models.TransformPeriodRate, models.FrequencyMonthly)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	for i, p := range out.Points {
		if p.Valid() {
			t.Errorf("point %d = %v, want missing (zero base or missing neighbour)", i, *p.Value)
		}
	}
}

func TestTransform_DoesNotMutateInput(t *testing.T) {
	s := monthlySeries("src", date(2020, 1, 1), 1, 2, 3)
	raw, err := Transform(s, models.TransformRaw, models.FrequencyMonthly)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	*raw.Points[0].Value = 99
	raw.Points[1] = models.Point{}

	if *s.Points[0].Value != 1 {
		t.Errorf("input value changed to %v", *s.Points[0].Value)
	}
	if !s.Points[1].Date.Equal(date(2020, 2, 1)) {
		t.Error("Raw transform must copy the point slice")
	}
}

func TestKindFor(t *testing.T) {
	tests := []struct {
		view    models.View
		sub     models.SubOption
		want    models.Transformation
		wantErr bool
	}{
		{view: models.ViewOriginal, want: models.TransformRaw},
		{view: models.ViewOriginal, sub: models.SubRateOfChange, want: models.TransformRaw},
		{view: models.ViewPeriodOnPeriod, sub: models.SubDifference, want: models.TransformPeriodDifference},
		{view: models.ViewPeriodOnPeriod, sub: models.SubRateOfChange, want: models.TransformPeriodRate},
		{view: models.ViewInterannual, sub: models.SubDifference, want: models.TransformAnnualDifference},
		{view: models.ViewInterannual, sub: models.SubRateOfChange, want: models.TransformAnnualRate},
		{view: models.ViewInterannual, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.view)+"/"+string(tt.sub), func(t *testing.T) {
			got, err := KindFor(tt.view, tt.sub)
			if (err != nil) != tt.wantErr {
				t.Fatalf("KindFor() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("KindFor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMovingAverage(t *testing.T) {
	s := models.NewSeries("p", []models.Point{
		{Date: date(2020, 1, 1), Value: models.Float(10)},
		{Date: date(2020, 2, 1), Value: models.Float(20)},
		{Date: date(2020, 3, 1), Value: nil},
		{Date: date(2020, 4, 1), Value: models.Float(60)},
	})

	out := MovingAverage(s, 2, 1)
	want := []*float64{models.Float(10), models.Float(15), models.Float(20), models.Float(60)}
	for i, p := range out.Points {
		if !p.Valid() || !approxEqual(*p.Value, *want[i]) {
			t.Errorf("point %d = %v, want %v", i, p.Value, *want[i])
		}
	}

	strict := MovingAverage(s, 2, 2)
	if strict.Points[0].Valid() || strict.Points[3].Valid() {
		t.Error("windows with fewer than minPeriods valid values should be missing")
	}
	if !approxEqual(*strict.Points[1].Value, 15) {
		t.Errorf("point 1 = %v, want 15", *strict.Points[1].Value)
	}
}
