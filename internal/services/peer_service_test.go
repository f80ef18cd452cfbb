package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"series-platform/internal/models"
	"series-platform/internal/repository"
)

func TestPeerService_Percentiles(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env)
	ctx := context.Background()

	tests := []struct {
		name        string
		startYear   int
		window      int
		wantErr     bool
		checkValues func(*testing.T, *PercentileView)
	}{
		{
			name: "all years",
			checkValues: func(t *testing.T, view *PercentileView) {
				jan := view.Percentiles["ES"]["01"]
				want := []float64{100.0 / 6, 50, 500.0 / 6}
				if len(jan) != len(want) {
					t.Fatalf("ES January cells = %d, want %d", len(jan), len(want))
				}
				for i := range want {
					if !approxEqual(jan[i].Percentile, want[i]) {
						t.Errorf("ES January %d = %v, want %v", i, jan[i].Percentile, want[i])
					}
				}
				// FR falls from 3% to 1%, so its ranks run the other way.
				if got := view.Percentiles["FR"]["01"][0].Percentile; !approxEqual(got, 500.0/6) {
					t.Errorf("FR first January = %v, want %v", got, 500.0/6)
				}
				if len(view.Skipped) != 1 {
					t.Errorf("skipped = %v, want the entity without values", view.Skipped)
				}
				if view.Smoothed != nil {
					t.Error("no window should leave Smoothed empty")
				}
				if view.Series["ES"].Len() != 5 {
					t.Errorf("ES percentile series = %d points, want 5", view.Series["ES"].Len())
				}
			},
		},
		{
			name:      "start year and window",
			startYear: 2021,
			window:    2,
			checkValues: func(t *testing.T, view *PercentileView) {
				es := view.Series["ES"]
				if es.Len() != 3 {
					t.Fatalf("ES series = %d points, want 3", es.Len())
				}
				if es.Points[0].Date.Year() != 2021 {
					t.Errorf("first point dated %v, want 2021", es.Points[0].Date)
				}
				smoothed := view.Smoothed["ES"]
				want := []float64{50, 37.5, (25 + 500.0/6) / 2}
				for i, w := range want {
					if v := smoothed.Points[i].Value; v == nil || !approxEqual(*v, w) {
						t.Errorf("smoothed %d = %v, want %v", i, v, w)
					}
				}
			},
		},
		{
			name:    "negative window",
			window:  -1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := env.peers.Percentiles(ctx, "CP00", tt.startYear, tt.window)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Percentiles() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var ve *models.ValidationError
				if !errors.As(err, &ve) {
					t.Errorf("error = %v, want ValidationError", err)
				}
				return
			}
			tt.checkValues(t, view)
		})
	}

	if got := testutil.ToFloat64(env.metrics.PeerCellsComputed.WithLabelValues("CP00")); got != 4 {
		t.Errorf("peer cells = %v, want 4", got)
	}
}

func TestPeerService_RecalculateMedians(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env)
	ctx := context.Background()

	medians, err := env.peers.Medians(ctx, "CP00")
	if err != nil {
		t.Fatalf("Medians() error = %v", err)
	}
	if got := medians["ES"]["01"]; !approxEqual(got, 2) {
		t.Errorf("ES January median = %v, want 2", got)
	}

	cells, err := env.peers.RecalculateMedians(ctx, "CP00")
	if err != nil {
		t.Fatalf("RecalculateMedians() error = %v", err)
	}
	if cells != 4 {
		t.Errorf("cells = %d, want 4", cells)
	}

	stored, err := env.peers.StoredMedians(ctx, "CP00")
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 4 {
		t.Fatalf("stored = %d, want 4", len(stored))
	}
	first := stored[0]
	if first.Entity != "ES" || first.MonthLabel != "01" || first.ObservationCount != 3 || !approxEqual(first.Median, 2) {
		t.Errorf("first stored median = %+v", first)
	}

	_, err = env.peers.RecalculateMedians(ctx, "CP99")
	var nf *repository.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("RecalculateMedians(CP99) error = %v, want NotFoundError", err)
	}
}

func TestPeerService_CalculateAllMedians(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env)
	ctx := context.Background()

	result, err := env.peers.CalculateAllMedians(ctx)
	if err != nil {
		t.Fatalf("CalculateAllMedians() error = %v", err)
	}
	if result.PeerGroups != 1 || result.Cells != 4 || len(result.Errors) != 0 {
		t.Errorf("result = %+v", result)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := env.peers.CalculateAllMedians(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("CalculateAllMedians(cancelled) error = %v, want context.Canceled", err)
	}
}
