package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"series-platform/internal/analytics"
	"series-platform/internal/charts"
	"series-platform/internal/models"
	"series-platform/internal/services"
)

// rangeFlags are the shared --start / --end display range flags
type rangeFlags struct {
	start, end string
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "display range start (YYYY-MM-DD, YYYY-MM or YYYY-Qn)")
	cmd.Flags().StringVar(&f.end, "end", "", "inclusive display range end (YYYY-MM-DD, YYYY-MM or YYYY-Qn = end of period)")
}

func (f *rangeFlags) parse() (*models.DateRange, error) {
	if f.start == "" && f.end == "" {
		return nil, nil
	}
	var dr models.DateRange
	var err error
	if f.start != "" {
		if dr.Start, err = models.ParseDate(f.start); err != nil {
			return nil, fmt.Errorf("--start: %w", err)
		}
	}
	if f.end != "" {
		if dr.End, err = models.ParseDateEnd(f.end); err != nil {
			return nil, fmt.Errorf("--end: %w", err)
		}
	}
	return &dr, dr.Validate()
}

func parseViewFlags(view, sub string) (models.View, models.SubOption, error) {
	v, err := models.ParseView(view)
	if err != nil {
		return "", "", err
	}
	s, err := models.ParseSubOption(sub)
	if err != nil {
		return "", "", err
	}
	return v, s, nil
}

func writePNG(path string, img []byte) error {
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return fmt.Errorf("failed to write chart: %w", err)
	}
	return nil
}

// ─── labels ───────────────────────────────────────────────────────────────────

func (a *app) labelsCmd() *cobra.Command {
	var group string

	cmd := &cobra.Command{
		Use:     "labels",
		Short:   "List series with their unique display labels",
		Example: `  seriesctl labels -f hicp.csv --group CP00`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var peerGroup *string
			if group != "" {
				peerGroup = &group
			}
			entries, err := a.catalog.ListLabeled(cmd.Context(), peerGroup)
			if err != nil {
				return err
			}
			return a.writeJSON(entries)
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "only list this peer group")
	return cmd
}

// ─── transform ────────────────────────────────────────────────────────────────

func (a *app) transformCmd() *cobra.Command {
	var (
		key, view, sub string
		rolling        int
		levelsFrom     float64
		dates          rangeFlags
	)

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Transform one series under a view",
		Example: `  seriesctl transform -f ur.csv -k UR --view pop --sub diff
  seriesctl transform -f hicp.csv -k HICP.ES --view interannual --sub rate --rolling 3
  seriesctl transform -f ur.csv -k UR --view pop --sub diff --levels-from 14.1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			v, s, err := parseViewFlags(view, sub)
			if err != nil {
				return err
			}
			kind, err := analytics.KindFor(v, s)
			if err != nil {
				return err
			}
			dr, err := dates.parse()
			if err != nil {
				return err
			}

			resolved, err := a.catalog.ResolveSelection(ctx, []string{key})
			if err != nil {
				return err
			}
			series, err := a.catalog.LoadSeries(ctx, resolved[0].Key)
			if err != nil {
				return err
			}

			freq := analytics.InferFrequency(series)
			out, err := analytics.Transform(series, kind, freq)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("levels-from") {
				if kind != models.TransformPeriodDifference {
					return fmt.Errorf("--levels-from needs --view PeriodOnPeriod --sub Difference")
				}
				out = analytics.CumulativeSum(out, levelsFrom)
			}
			if rolling > 0 {
				out = analytics.MovingAverage(out, rolling, 1)
			}
			out = out.Truncate(dr)

			return a.writeJSON(analytics.AlignedEntry{
				Label:          resolved[0].Label,
				Axis:           analytics.AxisFor(0),
				Color:          analytics.ColorFor(0),
				Frequency:      freq,
				Transformation: kind,
				Series:         out,
				Summary:        analytics.Summarize(out),
			})
		},
	}
	cmd.Flags().StringVarP(&key, "key", "k", "", "display label or series key (required)")
	cmd.Flags().StringVar(&view, "view", "Original", "Original|PeriodOnPeriod|Interannual")
	cmd.Flags().StringVar(&sub, "sub", "", "Difference|RateOfChange")
	cmd.Flags().IntVar(&rolling, "rolling", 0, "trailing moving-average window applied after the transform")
	cmd.Flags().Float64Var(&levelsFrom, "levels-from", 0, "rebuild levels from period differences starting at this value")
	dates.register(cmd)
	cmd.MarkFlagRequired("key")
	return cmd
}

// ─── compare ──────────────────────────────────────────────────────────────────

func (a *app) compareCmd() *cobra.Command {
	var (
		keys      []string
		view, sub string
		pngPath   string
		dates     rangeFlags
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Align several series under one view",
		Example: `  seriesctl compare -f hicp.csv -k "HICP (Spain)" -k "HICP (France)" --view interannual --sub rate
  seriesctl compare -f ur.csv -k UR --start 2015-01 --png ur.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, s, err := parseViewFlags(view, sub)
			if err != nil {
				return err
			}
			dr, err := dates.parse()
			if err != nil {
				return err
			}

			cmp, err := a.compare.Compare(cmd.Context(), services.ComparisonRequest{
				Selection: keys,
				View:      v,
				Sub:       s,
				Range:     dr,
			})
			if err != nil {
				return err
			}
			for _, w := range cmp.Warnings {
				fmt.Fprintf(a.errOut, "warning: %s dropped: %s\n", w.Label, w.Message)
			}

			if pngPath != "" {
				opts := charts.DefaultOptions()
				opts.Title = charts.ComparisonTitle(cmp)
				img, err := charts.Render(charts.ComparisonLines(cmp), opts)
				if err != nil {
					return err
				}
				if err := writePNG(pngPath, img); err != nil {
					return err
				}
			}
			return a.writeJSON(cmp)
		},
	}
	cmd.Flags().StringArrayVarP(&keys, "key", "k", nil, "display label or series key, in display order (repeatable)")
	cmd.Flags().StringVar(&view, "view", "Original", "Original|PeriodOnPeriod|Interannual")
	cmd.Flags().StringVar(&sub, "sub", "", "Difference|RateOfChange")
	cmd.Flags().StringVar(&pngPath, "png", "", "also render the comparison to this PNG file")
	dates.register(cmd)
	return cmd
}

// ─── percentiles ──────────────────────────────────────────────────────────────

func (a *app) percentilesCmd() *cobra.Command {
	var (
		group     string
		startYear int
		window    int
		pngPath   string
	)

	cmd := &cobra.Command{
		Use:   "percentiles",
		Short: "Rank each entity's monthly rates against its own history",
		Example: `  seriesctl percentiles -f hicp.csv --group CP00
  seriesctl percentiles -f hicp.csv --group CP00 --start-year 2015 --window 12 --png cp00.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := a.peers.Percentiles(cmd.Context(), group, startYear, window)
			if err != nil {
				return err
			}
			for _, msg := range view.Skipped {
				fmt.Fprintf(a.errOut, "warning: skipped %s\n", msg)
			}

			if pngPath != "" {
				series := view.Series
				if view.Smoothed != nil {
					series = view.Smoothed
				}
				opts := charts.DefaultOptions()
				opts.Title = group + " percentiles"
				img, err := charts.Render(charts.PercentileLines(view.Percentiles.Entities(), series), opts)
				if err != nil {
					return err
				}
				if err := writePNG(pngPath, img); err != nil {
					return err
				}
			}
			return a.writeJSON(view)
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "peer group (required)")
	cmd.Flags().IntVar(&startYear, "start-year", 0, "drop percentile points before this year")
	cmd.Flags().IntVar(&window, "window", 0, "moving-average window over each percentile series")
	cmd.Flags().StringVar(&pngPath, "png", "", "also render the percentile series to this PNG file")
	cmd.MarkFlagRequired("group")
	return cmd
}

// ─── medians ──────────────────────────────────────────────────────────────────

func (a *app) mediansCmd() *cobra.Command {
	var group string

	cmd := &cobra.Command{
		Use:     "medians",
		Short:   "Median monthly rate per entity and calendar month",
		Example: `  seriesctl medians -f hicp.csv --group CP00`,
		RunE: func(cmd *cobra.Command, args []string) error {
			medians, err := a.peers.Medians(cmd.Context(), group)
			if err != nil {
				return err
			}
			return a.writeJSON(map[string]interface{}{
				"peer_group":   group,
				"month_labels": medians.MonthLabels(),
				"medians":      medians,
			})
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "peer group (required)")
	cmd.MarkFlagRequired("group")
	return cmd
}
