package main

import (
	"context"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/parquet-linter/pkg/cardinality"
	"github.com/ajitpratap0/parquet-linter/pkg/compression"
	"github.com/ajitpratap0/parquet-linter/pkg/errors"
	"github.com/ajitpratap0/parquet-linter/pkg/json"
	"github.com/ajitpratap0/parquet-linter/pkg/metadata"
	"github.com/ajitpratap0/parquet-linter/pkg/observability"
)

var measureLevels = map[string]compression.Level{
	"fastest": compression.Fastest,
	"default": compression.Default,
	"better":  compression.Better,
	"best":    compression.Best,
}

func newMeasureCommand(a *app) *cobra.Command {
	var format, level string
	cmd := &cobra.Command{
		Use:   "measure FILE",
		Short: "Compress a value sample of every column with each codec",
		Long: `Measure compresses the first values of every column with zstd, snappy, s2,
gzip and lz4 and prints the compressed/uncompressed ratio of each.

Example:
  parquet-linter measure data.parquet --level best --sample-limit 4096`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return errors.Newf(errors.ErrorTypeValidation, "unknown format %q", format)
			}
			l, ok := measureLevels[level]
			if !ok {
				return errors.Newf(errors.ErrorTypeValidation, "unknown level %q", level)
			}
			return a.measure(cmd.Context(), cmd.OutOrStdout(), args[0], l, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json)")
	cmd.Flags().StringVar(&level, "level", "default", "Compression level (fastest, default, better, best)")
	return cmd
}

func (a *app) measure(ctx context.Context, out io.Writer, path string, level compression.Level, format string) error {
	ctx, span := observability.StartSpan(ctx, "measure")
	defer span.End()
	span.SetAttribute("file", path)

	f, err := metadata.Open(path)
	if err != nil {
		span.Fail(err)
		return err
	}
	defer f.Close()

	measurements, err := compression.NewMeter(level).MeasureColumns(ctx, f.Context(), cardinality.NewFilePages(f), a.cfg.Analysis, a.log)
	if err != nil {
		span.Fail(err)
		return err
	}
	a.log.Info("measured file", zap.String("path", path), zap.Int("columns", len(measurements)), zap.Stringer("level", level))

	if format == "json" {
		if err := json.WriteIndent(out, measurements); err != nil {
			return errors.Wrap(err, errors.ErrorTypeIO, "failed to write measure results")
		}
		return nil
	}
	writeMeasureTable(out, measurements)
	return nil
}

func writeMeasureTable(w io.Writer, measurements []compression.ColumnMeasurement) {
	header := []string{"column", "current", "values"}
	for _, alg := range compression.Algorithms {
		header = append(header, string(alg))
	}
	header = append(header, "best")

	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, p := range measurements {
		row := []string{p.Path, p.Current, fmt.Sprint(p.Values)}
		ratios := make(map[compression.Algorithm]float64, len(p.Results))
		for _, r := range p.Results {
			ratios[r.Algorithm] = r.Ratio
		}
		for _, alg := range compression.Algorithms {
			if ratio, ok := ratios[alg]; ok {
				row = append(row, fmt.Sprintf("%.3f", ratio))
			} else {
				row = append(row, "-")
			}
		}
		if best, ok := compression.Smallest(p.Results); ok {
			row = append(row, string(best.Algorithm))
		} else {
			row = append(row, "-")
		}
		table.Append(row)
	}
	table.Render()
}
