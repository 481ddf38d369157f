// Command parquet-linter checks parquet files for layout and encoding
// problems and rewrites them under a prescription.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/parquet-linter/pkg/config"
	"github.com/ajitpratap0/parquet-linter/pkg/errors"
	"github.com/ajitpratap0/parquet-linter/pkg/logger"
	"github.com/ajitpratap0/parquet-linter/pkg/metrics"
	"github.com/ajitpratap0/parquet-linter/pkg/observability"
)

var version = "0.1.0"

// errFindings ends a check that reported warnings. It sets the exit status
// without printing anything further.
var errFindings = errors.New(errors.ErrorTypeValidation, "warnings found")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	if err == nil {
		return
	}
	if !errors.Is(err, errFindings) {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(1)
}

// run executes one command line and releases everything it set up
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{v: viper.New(), stderr: stderr}
	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err != nil && a.log != nil && !errors.Is(err, errFindings) {
		a.log.Debug("command failed", logger.ErrorFields(err)...)
	}
	if closeErr := a.close(ctx); err == nil {
		err = closeErr
	}
	return err
}

// app is the state shared by every subcommand once flags, environment and
// the config file are merged
type app struct {
	v        *viper.Viper
	cfg      *config.Config
	log      *zap.Logger
	stderr   io.Writer
	shutdown observability.ShutdownFunc
	profiler *profiler
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "parquet-linter",
		Short: "Lint and rewrite parquet files",
		Long: `parquet-linter inspects the footer and a sample of the pages of a parquet file,
reports encoding, compression and layout problems together with prescription
fixes, and rewrites files under a prescription while preserving their schema.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Path to a YAML configuration file")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.Int("workers", 0, "Concurrent column and rule workers (0 = configuration or NumCPU)")
	flags.Int("sample-limit", 0, "Values read per column by the value-sampling estimator tier")
	flags.String("sort-policy", "", "Integer sortedness detection (row-group-bounds, declared-only)")
	flags.String("metrics-file", "", "Write prometheus metrics to this textfile on exit")
	flags.Bool("trace", false, "Print otel spans to stderr")
	flags.String("cpuprofile", "", "Write a CPU profile to this file")
	flags.String("memprofile", "", "Write a heap profile to this file on exit")
	_ = a.v.BindPFlags(flags)

	a.v.SetEnvPrefix("PQLINT")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		newCheckCommand(a),
		newRewriteCommand(a),
		newInfoCommand(a),
		newMeasureCommand(a),
		newConfigCommand(a),
		newVersionCommand(),
	)
	return root
}

// setup loads the configuration and applies flag and PQLINT_* overrides
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFile(a.v.GetString("config"))
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to load configuration")
	}

	if a.v.IsSet("log-level") {
		cfg.Logging.Level = a.v.GetString("log-level")
	}
	if a.v.IsSet("workers") {
		cfg.Analysis.Workers = a.v.GetInt("workers")
	}
	if a.v.IsSet("sample-limit") {
		cfg.Analysis.SampleLimit = a.v.GetInt("sample-limit")
	}
	if a.v.IsSet("sort-policy") {
		cfg.Analysis.SortPolicy = a.v.GetString("sort-policy")
	}
	if path := a.v.GetString("metrics-file"); path != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.TextfilePath = path
	}
	if a.v.GetBool("trace") {
		cfg.Tracing.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid configuration")
	}

	if err := logger.Init(cfg.Logging); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize logger")
	}
	a.log = logger.With(zap.String("run_id", uuid.NewString()), zap.String("command", cmd.Name()))

	shutdown, err := observability.Init(cfg.Tracing, version, a.stderr)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize tracing")
	}
	a.shutdown = shutdown
	a.cfg = cfg

	if a.profiler, err = startProfiler(a.v.GetString("cpuprofile"), a.v.GetString("memprofile")); err != nil {
		return err
	}

	a.log.Debug("configuration loaded",
		zap.Int("workers", cfg.Analysis.GetWorkers()),
		zap.Int("sample_limit", cfg.Analysis.SampleLimit),
		zap.String("sort_policy", cfg.Analysis.SortPolicy),
		zap.Bool("tracing", cfg.Tracing.Enabled))
	return nil
}

// close stops profiling and flushes spans and metrics. It runs whether or
// not the command succeeded.
func (a *app) close(ctx context.Context) error {
	if a.cfg == nil {
		return nil
	}
	var firstErr error
	if a.profiler != nil {
		firstErr = a.profiler.stop()
	}
	if a.shutdown != nil {
		if err := a.shutdown(context.WithoutCancel(ctx)); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, errors.ErrorTypeIO, "failed to flush traces")
		}
	}
	if a.cfg.Metrics.Enabled && a.cfg.Metrics.TextfilePath != "" {
		if err := metrics.WriteTextfile(a.cfg.Metrics.TextfilePath); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, errors.ErrorTypeIO, "failed to write metrics").
				WithDetail("path", a.cfg.Metrics.TextfilePath)
		}
	}
	_ = logger.Sync()
	return firstErr
}
