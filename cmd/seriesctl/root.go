package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"series-platform/internal/cache"
	"series-platform/internal/dataset"
	"series-platform/internal/repository"
	"series-platform/internal/services"
	"series-platform/pkg/logging"
	"series-platform/pkg/metrics"
)

const loadBatchSize = 5000

// app holds the services built from the loaded files
type app struct {
	out    io.Writer
	errOut io.Writer

	files     []string
	delimiter string
	logLevel  string

	catalog *services.CatalogService
	compare *services.ComparisonService
	peers   *services.PeerService
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "seriesctl",
		Short: "Transform, compare and rank statistical series from CSV files",
		Long: `seriesctl loads one or more CSV catalog files into memory and runs the
series engine over them. Rows are grouped into series by their KEY column;
files without one become a single series named after the file.

  seriesctl labels -f hicp.csv
  seriesctl compare -f hicp.csv -k "HICP (Spain)" -k UR --view interannual --sub rate
  seriesctl percentiles -f hicp.csv --group CP00 --window 12`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.Context())
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringArrayVarP(&a.files, "file", "f", nil, "CSV catalog file (repeatable)")
	root.PersistentFlags().StringVar(&a.delimiter, "delimiter", ",", "field delimiter")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "error", "log level: debug|info|warn|error")
	root.MarkPersistentFlagRequired("file")

	root.AddCommand(
		a.labelsCmd(),
		a.transformCmd(),
		a.compareCmd(),
		a.percentilesCmd(),
		a.mediansCmd(),
	)
	return root
}

// load ingests the files into an in-memory repository and wires the services
func (a *app) load(ctx context.Context) error {
	if len(a.files) == 0 {
		return fmt.Errorf("at least one --file is required")
	}

	level, err := logging.ParseLevel(a.logLevel)
	if err != nil {
		return err
	}
	logger := logging.NewStructuredLogger("seriesctl", "1.0.0", level)
	logger.SetOutput(a.errOut)

	delim := []rune(a.delimiter)
	if len(delim) != 1 {
		return fmt.Errorf("--delimiter must be a single character, got %q", a.delimiter)
	}

	m := metrics.NewCollector("seriesctl", prometheus.NewRegistry())
	repo := repository.NewMemoryRepository()

	ingest := services.NewIngestionService(repo, logger, m)
	opts := dataset.DefaultOptions()
	opts.Delimiter = delim[0]
	ingest.SetOptions(opts)

	result, err := ingest.IngestFiles(ctx, a.files, loadBatchSize)
	if err != nil {
		return err
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("failed to load files: %s", result.Errors[0])
	}

	a.catalog = services.NewCatalogService(repo, cache.NewSeriesCache(0), logger, m)
	a.compare = services.NewComparisonService(a.catalog, logger, m)
	a.peers = services.NewPeerService(a.catalog, repo, logger, m)
	return nil
}

func (a *app) writeJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
