package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/parquet-linter/pkg/errors"
	"github.com/ajitpratap0/parquet-linter/pkg/json"
	"github.com/ajitpratap0/parquet-linter/pkg/metadata"
	"github.com/ajitpratap0/parquet-linter/pkg/observability"
)

func newInfoCommand(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "info FILE",
		Short: "Print the footer metadata of a parquet file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return errors.Newf(errors.ErrorTypeValidation, "unknown format %q", format)
			}
			return observability.Trace(cmd.Context(), "info", func(_ context.Context, span *observability.Span) error {
				span.SetAttribute("file", args[0])
				f, err := metadata.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()

				fc := f.Context()
				a.log.Debug("loaded metadata", zap.String("path", args[0]), zap.Int64("rows", fc.NumRows))
				out := cmd.OutOrStdout()
				if format == "json" {
					err = json.WriteIndent(out, fc)
				} else {
					err = metadata.WriteSummary(out, fc)
				}
				if err != nil {
					return errors.Wrapf(err, errors.ErrorTypeIO, "failed to write %s summary", format)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json)")
	return cmd
}
