package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/parquet-linter/pkg/benchmark"
	"github.com/ajitpratap0/parquet-linter/pkg/errors"
	"github.com/ajitpratap0/parquet-linter/pkg/json"
	"github.com/ajitpratap0/parquet-linter/pkg/prescription"
	"github.com/ajitpratap0/parquet-linter/pkg/rewrite"
	"github.com/ajitpratap0/parquet-linter/pkg/rules"
)

type rewriteOptions struct {
	output           string
	fromPrescription string
	rules            []string
	dryRun           bool
	export           string
	benchmark        int
}

func newRewriteCommand(a *app) *cobra.Command {
	var opts rewriteOptions
	cmd := &cobra.Command{
		Use:   "rewrite FILE",
		Short: "Rewrite a parquet file with lint fixes or a prescription",
		Long: `Rewrite FILE to --output. The directives come from --from-prescription when
given, otherwise from the fixes of the diagnostics of FILE (optionally only
those of --rules). The output keeps the logical schema and row order of FILE
and is only moved into place once its schema has been checked.

Example:
  parquet-linter rewrite data.parquet --output fixed.parquet --benchmark 5
  parquet-linter rewrite data.parquet -o fixed.parquet --from-prescription fixes.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.rewrite(cmd.Context(), cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file path (required)")
	cmd.Flags().StringVar(&opts.fromPrescription, "from-prescription", "", "Apply this prescription file instead of lint fixes")
	cmd.Flags().StringSliceVar(&opts.rules, "rules", nil, "Only apply fixes of these rules (comma-separated)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the directives and resolved keys without writing")
	cmd.Flags().StringVar(&opts.export, "export-prescription", "", "Write the applied prescription to this file")
	cmd.Flags().IntVar(&opts.benchmark, "benchmark", 0, "Measure input and output with this many decode iterations")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func (a *app) rewrite(ctx context.Context, cmd *cobra.Command, path string, opts rewriteOptions) error {
	out := cmd.OutOrStdout()
	if opts.fromPrescription != "" && cmd.Flags().Changed("rules") {
		return errors.New(errors.ErrorTypeValidation, "--rules cannot be used with --from-prescription")
	}

	p, source, err := a.directives(ctx, cmd, path, opts)
	if err != nil {
		return err
	}
	if p.IsEmpty() {
		fmt.Fprintln(out, "No fixes to apply.")
		return nil
	}

	resolved := prescription.Fold(p)
	if resolved.ConflictWarning {
		warnConflicts(a.stderr, resolved)
	}
	if opts.export != "" {
		if err := writePrescription(opts.export, p); err != nil {
			return err
		}
		fmt.Fprintf(a.stderr, "wrote %d directive(s) to %s\n", p.Len(), opts.export)
	}

	if opts.dryRun {
		fmt.Fprintf(out, "Dry run: %d directive(s) from %s would be applied:\n", p.Len(), source)
		fmt.Fprintln(out, p.String())
		folded := resolved.Prescription()
		fmt.Fprintf(out, "Resolved %d key(s):\n", folded.Len())
		for i, d := range folded.Directives() {
			fmt.Fprintf(out, "  %s (line %d)\n", d, folded.Line(i))
		}
		return nil
	}

	engine := rewrite.NewEngine(a.cfg.Rewrite, a.log)
	result, err := engine.Rewrite(ctx, rewrite.FromPath(path), resolved, rewrite.ToPath(opts.output))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Applied %d directive(s) from %s, wrote %s (%d bytes, %d row groups)\n",
		p.Len(), source, opts.output, result.BytesWritten, result.RowGroups)
	for _, skipped := range result.Skipped {
		fmt.Fprintf(out, "  skipped column %s: not in %s\n", skipped, path)
	}

	if opts.benchmark > 0 {
		return a.compare(ctx, cmd, path, opts, resolved)
	}
	return nil
}

// directives returns the prescription to apply and a description of where
// it came from
func (a *app) directives(ctx context.Context, cmd *cobra.Command, path string, opts rewriteOptions) (prescription.Prescription, string, error) {
	if opts.fromPrescription != "" {
		p, err := readPrescription(opts.fromPrescription)
		return p, opts.fromPrescription, err
	}

	names := opts.rules
	if !cmd.Flags().Changed("rules") {
		names = a.cfg.Analysis.Rules
	}
	_, diags, err := analyze(ctx, a.cfg.Analysis, path, a.log)
	if err != nil {
		return prescription.Prescription{}, "", err
	}
	diags, err = rules.Filter(diags, rules.FilterOptions{Rules: names})
	if err != nil {
		return prescription.Prescription{}, "", err
	}

	out := cmd.OutOrStdout()
	for _, d := range diags {
		if len(d.Fixes) == 0 {
			continue
		}
		fmt.Fprintln(out, d.String())
	}
	return rules.Export(diags), "lint results", nil
}

func (a *app) compare(ctx context.Context, cmd *cobra.Command, path string, opts rewriteOptions, resolved prescription.ResolvedConfiguration) error {
	bench := benchmark.OptionsFrom(a.cfg.Benchmark, a.log)
	bench.Iterations = opts.benchmark

	original, err := benchmark.Measure(ctx, path, bench)
	if err != nil {
		return err
	}
	output, err := benchmark.Measure(ctx, opts.output, bench)
	if err != nil {
		return err
	}

	comparison := benchmark.Compare(*original, benchmark.NewReport(*output, resolved))
	a.log.Info("benchmarked rewrite",
		zap.Float64("original_cost", original.Cost),
		zap.Float64("output_cost", output.Cost),
		zap.Float64("change_percent", comparison.CostChangePercent))
	if err := json.WriteIndent(cmd.OutOrStdout(), comparison); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write benchmark report")
	}
	return nil
}
