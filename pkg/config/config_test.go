package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSampleLimit, cfg.Analysis.SampleLimit)
	assert.Equal(t, SortPolicyRowGroupBounds, cfg.Analysis.SortPolicy)
}

func TestLoadFile_OverridesAndEnv(t *testing.T) {
	t.Setenv("PQLINT_TEST_LEVEL", "debug")

	path := filepath.Join(t.TempDir(), "linter.yaml")
	content := `
logging:
  level: ${PQLINT_TEST_LEVEL}
analysis:
  workers: 2
  rules: [low-compression-ratio, sorted-integer-delta]
  min_severity: warning
benchmark:
  iterations: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2, cfg.Analysis.Workers)
	assert.Equal(t, []string{"low-compression-ratio", "sorted-integer-delta"}, cfg.Analysis.Rules)
	assert.Equal(t, "warning", cfg.Analysis.MinSeverity)
	assert.Equal(t, 3, cfg.Benchmark.Iterations)
	// untouched sections keep their defaults
	assert.Equal(t, DefaultSampleLimit, cfg.Analysis.SampleLimit)
	assert.Equal(t, int64(64*1024), cfg.Rewrite.BatchSize)
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analysis:\n  sample_limit: 0\n"), 0o600))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sample_limit")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"negative workers", func(c *Config) { c.Analysis.Workers = -1 }, "workers"},
		{"bad severity", func(c *Config) { c.Analysis.MinSeverity = "fatal" }, "min_severity"},
		{"bad sort policy", func(c *Config) { c.Analysis.SortPolicy = "full-scan" }, "sort_policy"},
		{"zero batch", func(c *Config) { c.Rewrite.BatchSize = 0 }, "rewrite.batch_size"},
		{"zero iterations", func(c *Config) { c.Benchmark.Iterations = 0 }, "iterations"},
		{"textfile without metrics", func(c *Config) { c.Metrics.TextfilePath = "/tmp/m.prom" }, "textfile_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := NewDefaultConfig()
	cfg.Analysis.Rules = []string{"bloom-filter-recommendation"}
	cfg.Metrics.Enabled = true

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, Write(f, cfg))
	require.NoError(t, f.Close())

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadFile_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analysis:\n  sample_limt: 10\n"), 0o600))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sample_limt")
}

func TestLoadFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, NewDefaultConfig(), cfg)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("PQLINT_A", "x")
	t.Setenv("PQLINT_EMPTY", "")

	tests := []struct {
		in, want string
	}{
		{"${PQLINT_A}-${PQLINT_A}-${PQLINT_UNSET_VAR}", "x-x-"},
		{"${PQLINT_UNSET_VAR:-info}", "info"},
		{"${PQLINT_EMPTY:-warn}", "warn"},
		{"${PQLINT_A:-warn}", "x"},
		{"no vars", "no vars"},
		{"$PQLINT_A", "$PQLINT_A"},
		{"open ${brace", "open ${brace"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, expandEnv(tt.in), tt.in)
	}
}
