package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"series-platform/internal/repository"
)

func TestCatalogService_ListLabeled(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env)
	group := "CP00"

	tests := []struct {
		name       string
		peerGroup  *string
		wantLabels []string
	}{
		{
			name:       "full catalog",
			wantLabels: []string{"HICP (Spain)", "HICP (France)", "Unemployment", "Flags"},
		},
		{
			name:       "peer group",
			peerGroup:  &group,
			wantLabels: []string{"HICP (Spain)", "HICP (France)", "Flags"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := env.catalog.ListLabeled(context.Background(), tt.peerGroup)
			if err != nil {
				t.Fatalf("ListLabeled() error = %v", err)
			}
			if len(entries) != len(tt.wantLabels) {
				t.Fatalf("len = %d, want %d", len(entries), len(tt.wantLabels))
			}
			for i, want := range tt.wantLabels {
				if entries[i].Label != want {
					t.Errorf("entry %d label = %q, want %q", i, entries[i].Label, want)
				}
			}
		})
	}
}

func TestCatalogService_ResolveSelection(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env)

	tests := []struct {
		name      string
		selection []string
		wantKeys  []string
		wantLabel []string
		wantErr   bool
	}{
		{
			name:      "labels",
			selection: []string{"Unemployment", "HICP (France)"},
			wantKeys:  []string{"UR", "HICP.FR"},
			wantLabel: []string{"Unemployment", "HICP (France)"},
		},
		{
			name:      "raw keys get their labels",
			selection: []string{"HICP.ES"},
			wantKeys:  []string{"HICP.ES"},
			wantLabel: []string{"HICP (Spain)"},
		},
		{
			name:      "unknown selection",
			selection: []string{"UR", "GDP"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.catalog.ResolveSelection(context.Background(), tt.selection)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveSelection() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var nf *repository.NotFoundError
				if !errors.As(err, &nf) || nf.ID != "GDP" {
					t.Errorf("error = %v, want NotFoundError for GDP", err)
				}
				return
			}
			for i := range tt.wantKeys {
				if got[i].Key != tt.wantKeys[i] || got[i].Label != tt.wantLabel[i] {
					t.Errorf("selection %d = %+v, want %s/%s", i, got[i], tt.wantLabel[i], tt.wantKeys[i])
				}
			}
		})
	}
}

func TestCatalogService_LoadSeriesUsesCache(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env)
	ctx := context.Background()

	first, err := env.catalog.LoadSeries(ctx, "UR")
	if err != nil {
		t.Fatalf("LoadSeries() error = %v", err)
	}
	if first.Len() != 24 || first.Attributes.Title != "Unemployment" || !first.HasValues() {
		t.Errorf("LoadSeries() = %d points, title %q", first.Len(), first.Attributes.Title)
	}

	if _, err := env.catalog.LoadSeries(ctx, "UR"); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(env.metrics.CacheMissesTotal); got != 1 {
		t.Errorf("cache misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(env.metrics.CacheHitsTotal); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}

	if n := env.catalog.InvalidateCache(ctx); n != 1 {
		t.Errorf("InvalidateCache() = %d, want 1", n)
	}

	flags, err := env.catalog.LoadSeries(ctx, "FLAGS.IT")
	if err != nil {
		t.Fatal(err)
	}
	if flags.HasValues() {
		t.Error("series stored without a value column should still report no values")
	}

	_, err = env.catalog.LoadSeries(ctx, "GDP")
	var nf *repository.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("LoadSeries(GDP) error = %v, want NotFoundError", err)
	}
}

func TestCatalogService_LoadPeerGroup(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env)
	ctx := context.Background()

	named, err := env.catalog.LoadPeerGroup(ctx, "CP00")
	if err != nil {
		t.Fatalf("LoadPeerGroup() error = %v", err)
	}
	for _, entity := range []string{"ES", "FR", "IT"} {
		if _, ok := named[entity]; !ok {
			t.Errorf("entity %s missing from peer group", entity)
		}
	}
	if named["ES"].Key != "HICP.ES" {
		t.Errorf("ES key = %q, want HICP.ES", named["ES"].Key)
	}

	_, err = env.catalog.LoadPeerGroup(ctx, "CP99")
	var nf *repository.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("LoadPeerGroup(CP99) error = %v, want NotFoundError", err)
	}
}
