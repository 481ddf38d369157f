package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/parquet-linter/pkg/cardinality"
	"github.com/ajitpratap0/parquet-linter/pkg/config"
	"github.com/ajitpratap0/parquet-linter/pkg/errors"
	"github.com/ajitpratap0/parquet-linter/pkg/json"
	"github.com/ajitpratap0/parquet-linter/pkg/metadata"
	"github.com/ajitpratap0/parquet-linter/pkg/observability"
	"github.com/ajitpratap0/parquet-linter/pkg/prescription"
	"github.com/ajitpratap0/parquet-linter/pkg/rules"
)

type checkOptions struct {
	rules    []string
	severity string
	format   string
	export   string
}

func newCheckCommand(a *app) *cobra.Command {
	var opts checkOptions
	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Report problems in a parquet file",
		Long: `Analyze FILE and print one diagnostic per finding with the prescription
directives that fix it. The exit status is 1 when a warning is reported.

Example:
  parquet-linter check data.parquet --severity warning --export-prescription fixes.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.check(cmd.Context(), cmd, args[0], opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.rules, "rules", nil, "Only report these rules (comma-separated)")
	cmd.Flags().StringVar(&opts.severity, "severity", "", "Minimum severity to report (info, warning)")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format (text, json, jsonl)")
	cmd.Flags().StringVar(&opts.export, "export-prescription", "", "Write the fixes of the reported diagnostics to this file")
	return cmd
}

// checkReport is the json output of check
type checkReport struct {
	File        string             `json:"file"`
	Diagnostics []rules.Diagnostic `json:"diagnostics"`
	Counts      map[string]int     `json:"counts"`
}

func (a *app) check(ctx context.Context, cmd *cobra.Command, path string, opts checkOptions) error {
	if opts.format != "text" && opts.format != "json" && opts.format != "jsonl" {
		return errors.Newf(errors.ErrorTypeValidation, "unknown format %q", opts.format)
	}
	filter, err := a.filterOptions(cmd, opts.rules, opts.severity)
	if err != nil {
		return err
	}

	_, diags, err := analyze(ctx, a.cfg.Analysis, path, a.log)
	if err != nil {
		return err
	}
	diags, err = rules.Filter(diags, filter)
	if err != nil {
		return err
	}

	if opts.export != "" {
		p := rules.Export(diags)
		if err := writePrescription(opts.export, p); err != nil {
			return err
		}
		if resolved := prescription.Fold(p); resolved.ConflictWarning {
			warnConflicts(a.stderr, resolved)
		}
		fmt.Fprintf(a.stderr, "wrote %d directive(s) to %s\n", p.Len(), opts.export)
	}

	out := cmd.OutOrStdout()
	counts := rules.Counts(diags)
	switch opts.format {
	case "jsonl":
		if err := writeDiagnosticLines(out, diags); err != nil {
			return errors.Wrap(err, errors.ErrorTypeIO, "failed to write diagnostics")
		}
	case "json":
		report := checkReport{File: path, Diagnostics: diags, Counts: make(map[string]int, len(counts))}
		for sev, n := range counts {
			report.Counts[sev.String()] = n
		}
		if err := json.WriteIndent(out, report); err != nil {
			return errors.Wrap(err, errors.ErrorTypeIO, "failed to write report")
		}
	default:
		writeDiagnostics(out, diags)
	}

	if counts[rules.SeverityWarning] > 0 {
		return errFindings
	}
	return nil
}

// filterOptions merges --rules and --severity over the analysis config
func (a *app) filterOptions(cmd *cobra.Command, names []string, severity string) (rules.FilterOptions, error) {
	if !cmd.Flags().Changed("rules") {
		names = a.cfg.Analysis.Rules
	}
	if !cmd.Flags().Changed("severity") {
		severity = a.cfg.Analysis.MinSeverity
	}
	minSeverity, err := rules.ParseSeverity(severity)
	if err != nil {
		return rules.FilterOptions{}, err
	}
	return rules.FilterOptions{MinSeverity: minSeverity, Rules: names}, nil
}

// analyze loads path, estimates the cardinality of every column and runs
// every registered rule
func analyze(ctx context.Context, cfg config.AnalysisConfig, path string, log *zap.Logger) (*metadata.FileContext, []rules.Diagnostic, error) {
	ctx, span := observability.StartSpan(ctx, "analyze")
	defer span.End()
	span.SetAttribute("path", path)

	f, err := metadata.Open(path)
	if err != nil {
		span.Fail(err)
		return nil, nil, err
	}
	defer f.Close()

	fc := f.Context()
	estimates, err := cardinality.NewEstimator(cfg, log).Estimate(ctx, fc, cardinality.NewFilePages(f))
	if err != nil {
		span.Fail(err)
		return nil, nil, err
	}
	fc = fc.WithEstimates(estimates)

	diags, err := rules.NewEngine(cfg, log).Run(ctx, fc)
	if err != nil {
		span.Fail(err)
		return nil, nil, err
	}
	span.SetAttribute("diagnostics", len(diags))
	log.Info("analyzed file",
		zap.String("path", path),
		zap.Int("columns", len(fc.Columns)),
		zap.Int("diagnostics", len(diags)))
	return fc, diags, nil
}

func writeDiagnostics(w io.Writer, diags []rules.Diagnostic) {
	if len(diags) == 0 {
		fmt.Fprintln(w, "No issues found.")
		return
	}
	for _, d := range diags {
		fmt.Fprintln(w, d.String())
		for _, fix := range d.FixText() {
			fmt.Fprintf(w, "  fix: %s\n", fix)
		}
	}
	counts := rules.Counts(diags)
	fmt.Fprintf(w, "%d issue(s) found: %d warning, %d info\n",
		len(diags), counts[rules.SeverityWarning], counts[rules.SeverityInfo])
}

// writeDiagnosticLines writes one JSON object per diagnostic
func writeDiagnosticLines(w io.Writer, diags []rules.Diagnostic) error {
	enc := json.NewStreamingEncoder(w, false)
	for _, d := range diags {
		if err := enc.Encode(d); err != nil {
			return err
		}
	}
	return enc.Close()
}

func writePrescription(path string, p prescription.Prescription) error {
	text := p.String()
	if text != "" && text[len(text)-1] != '\n' {
		text += "\n"
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil { //nolint:gosec
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write prescription").WithDetail("path", path)
	}
	return nil
}

func readPrescription(path string) (prescription.Prescription, error) {
	f, err := os.Open(path)
	if err != nil {
		return prescription.Prescription{}, errors.Wrap(err, errors.ErrorTypeIO, "failed to open prescription").WithDetail("path", path)
	}
	defer f.Close()
	return prescription.ParseReader(f)
}

func warnConflicts(w io.Writer, cfg prescription.ResolvedConfiguration) {
	for _, c := range cfg.Conflicts {
		fmt.Fprintf(w, "warning: %s set to %s on line %d and %s on line %d; the last directive wins\n",
			c.Key, c.Old, c.FirstLine, c.New, c.SecondLine)
	}
}
