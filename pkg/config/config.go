// Package config provides the configuration system for parquet-linter.
// A single Config structure carries every tunable of the analysis, rewrite
// and benchmark paths, loaded from YAML and then overridden by flags and
// PQLINT_* environment variables in the CLI.
//
// The configuration is organized into logical sections:
//   - Logging: zap level, encoding and outputs
//   - Analysis: worker count, value sample cap, rule and severity filters
//   - Rewrite: record batch size and decode parallelism
//   - Benchmark: timing iterations
//   - Metrics and Tracing: prometheus textfile output and otel spans
//
// Example usage:
//
//	cfg := config.NewDefaultConfig()
//	cfg.Analysis.Workers = 4
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"runtime"

	"github.com/ajitpratap0/parquet-linter/pkg/logger"
)

// DefaultSampleLimit caps the raw values read by the value-sampling tier
const DefaultSampleLimit = 16384

// Sort policies backing the sorted-integer-delta rule
const (
	// SortPolicyRowGroupBounds accepts declared sorting columns and
	// non-decreasing row-group minimums
	SortPolicyRowGroupBounds = "row-group-bounds"
	// SortPolicyDeclaredOnly accepts declared sorting columns only
	SortPolicyDeclaredOnly = "declared-only"
)

// Config is the top level configuration structure
type Config struct {
	// Logging configures the global zap logger
	Logging logger.Config `yaml:"logging" json:"logging"`

	// Analysis controls cardinality estimation and rule evaluation
	Analysis AnalysisConfig `yaml:"analysis" json:"analysis"`

	// Rewrite controls the re-encoding engine
	Rewrite RewriteConfig `yaml:"rewrite" json:"rewrite"`

	// Benchmark controls decode-time measurement
	Benchmark BenchmarkConfig `yaml:"benchmark" json:"benchmark"`

	// Metrics controls prometheus collection output
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Tracing controls otel span export
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
}

// AnalysisConfig contains settings for the check path.
type AnalysisConfig struct {
	// Workers bounds concurrent per-column and per-rule work (0 = NumCPU)
	Workers int `yaml:"workers" json:"workers"`
	// SampleLimit caps values hashed by the value-sampling tier
	SampleLimit int `yaml:"sample_limit" json:"sample_limit"`
	// Rules restricts reported diagnostics to these rule names (empty = all)
	Rules []string `yaml:"rules,omitempty" json:"rules,omitempty"`
	// MinSeverity drops diagnostics below this severity (info, warning)
	MinSeverity string `yaml:"min_severity" json:"min_severity"`
	// SortPolicy selects how integer sortedness is detected
	SortPolicy string `yaml:"sort_policy" json:"sort_policy"`
}

// RewriteConfig contains settings for the rewrite path.
type RewriteConfig struct {
	// BatchSize is the number of rows per decoded record batch
	BatchSize int64 `yaml:"batch_size" json:"batch_size"`
	// ParallelDecode decodes columns of a row group concurrently
	ParallelDecode bool `yaml:"parallel_decode" json:"parallel_decode"`
	// TempDir holds in-progress outputs; empty means the output's directory
	TempDir string `yaml:"temp_dir" json:"temp_dir"`
}

// BenchmarkConfig contains settings for decode-time measurement.
type BenchmarkConfig struct {
	// Iterations is the number of full decodes; the minimum time is kept
	Iterations int `yaml:"iterations" json:"iterations"`
	// BatchSize is the number of rows per decoded record batch
	BatchSize int64 `yaml:"batch_size" json:"batch_size"`
}

// MetricsConfig contains prometheus output settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// TextfilePath receives the registry in text exposition format on exit
	TextfilePath string `yaml:"textfile_path" json:"textfile_path"`
}

// TracingConfig contains otel settings.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	ServiceName string `yaml:"service_name" json:"service_name"`
}

// NewDefaultConfig creates a Config with defaults that work for local files.
func NewDefaultConfig() *Config {
	return &Config{
		Logging: logger.Config{
			Level:    "warn",
			Encoding: "console",
		},
		Analysis: AnalysisConfig{
			Workers:     runtime.NumCPU(),
			SampleLimit: DefaultSampleLimit,
			MinSeverity: "info",
			SortPolicy:  SortPolicyRowGroupBounds,
		},
		Rewrite: RewriteConfig{
			BatchSize:      64 * 1024,
			ParallelDecode: true,
		},
		Benchmark: BenchmarkConfig{
			Iterations: 5,
			BatchSize:  8192,
		},
		Tracing: TracingConfig{
			ServiceName: "parquet-linter",
		},
	}
}

// Validate validates the configuration for correctness.
// It checks that values are within acceptable ranges.
//
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.Analysis.Workers < 0 {
		return fmt.Errorf("analysis.workers cannot be negative")
	}
	if c.Analysis.SampleLimit <= 0 {
		return fmt.Errorf("analysis.sample_limit must be positive")
	}
	switch c.Analysis.MinSeverity {
	case "", "info", "warning":
	default:
		return fmt.Errorf("analysis.min_severity must be info or warning, got %q", c.Analysis.MinSeverity)
	}
	switch c.Analysis.SortPolicy {
	case "", SortPolicyRowGroupBounds, SortPolicyDeclaredOnly:
	default:
		return fmt.Errorf("analysis.sort_policy must be %s or %s, got %q",
			SortPolicyRowGroupBounds, SortPolicyDeclaredOnly, c.Analysis.SortPolicy)
	}
	if c.Rewrite.BatchSize <= 0 {
		return fmt.Errorf("rewrite.batch_size must be positive")
	}
	if c.Benchmark.Iterations <= 0 {
		return fmt.Errorf("benchmark.iterations must be positive")
	}
	if c.Benchmark.BatchSize <= 0 {
		return fmt.Errorf("benchmark.batch_size must be positive")
	}
	if c.Metrics.TextfilePath != "" && !c.Metrics.Enabled {
		return fmt.Errorf("metrics.textfile_path requires metrics.enabled")
	}
	return nil
}

// GetWorkers returns the number of workers, ensuring it's at least 1
func (a *AnalysisConfig) GetWorkers() int {
	if a.Workers <= 0 {
		return runtime.NumCPU()
	}
	return a.Workers
}
