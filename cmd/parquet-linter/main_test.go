package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/parquet-linter/pkg/benchmark"
	"github.com/ajitpratap0/parquet-linter/pkg/compression"
	"github.com/ajitpratap0/parquet-linter/pkg/config"
	"github.com/ajitpratap0/parquet-linter/pkg/errors"
	"github.com/ajitpratap0/parquet-linter/pkg/json"
	"github.com/ajitpratap0/parquet-linter/pkg/metadata"
	"github.com/ajitpratap0/parquet-linter/pkg/testutil"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), append([]string{"--log-level", "error"}, args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func sample(t *testing.T) string {
	return testutil.WriteSample(t, t.TempDir(), "sample.parquet", 1000,
		parquet.WithMaxRowGroupLength(500),
		parquet.WithCompression(compress.Codecs.Gzip))
}

func TestCheckReportsWarnings(t *testing.T) {
	out, _, err := execute(t, "check", sample(t))
	require.ErrorIs(t, err, errFindings)

	assert.Contains(t, out, "page-row-group-size")
	assert.Contains(t, out, "compression-codec-upgrade")
	assert.Contains(t, out, "  fix: set file max_row_group_size ")
	assert.Contains(t, out, "issue(s) found")
}

func TestCheckJSON(t *testing.T) {
	out, _, err := execute(t, "check", sample(t), "--format", "json", "--rules", "compression-codec-upgrade")
	require.NoError(t, err)

	var report struct {
		File        string `json:"file"`
		Diagnostics []struct {
			Rule     string `json:"rule"`
			Severity string `json:"severity"`
		} `json:"diagnostics"`
		Counts map[string]int `json:"counts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Diagnostics, len(testutil.SampleSchema.Fields()))
	for _, d := range report.Diagnostics {
		assert.Equal(t, "compression-codec-upgrade", d.Rule)
		assert.Equal(t, "info", d.Severity)
	}
	assert.Equal(t, len(report.Diagnostics), report.Counts["info"])
}

func TestCheckSeverityFilter(t *testing.T) {
	out, _, err := execute(t, "check", sample(t), "--severity", "warning")
	require.ErrorIs(t, err, errFindings)
	assert.NotContains(t, out, "compression-codec-upgrade")
}

func TestCheckUnknownRule(t *testing.T) {
	_, _, err := execute(t, "check", sample(t), "--rules", "no-such-rule")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.NotErrorIs(t, err, errFindings)
}

func TestCheckExportPrescription(t *testing.T) {
	export := filepath.Join(t.TempDir(), "fixes.txt")
	_, stderr, err := execute(t, "check", sample(t), "--export-prescription", export)
	require.ErrorIs(t, err, errFindings)

	data, err := os.ReadFile(export)
	require.NoError(t, err)
	assert.Contains(t, string(data), "set column id compression zstd(3)\n")
	assert.Contains(t, string(data), "set file max_row_group_size ")
	assert.True(t, strings.HasSuffix(string(data), "\n"))
	assert.Contains(t, stderr, "directive(s) to "+export)
}

func TestCheckMissingFile(t *testing.T) {
	_, _, err := execute(t, "check", filepath.Join(t.TempDir(), "nope.parquet"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
}

func TestRewriteFromPrescription(t *testing.T) {
	dir := t.TempDir()
	src := sample(t)
	fixes := filepath.Join(dir, "fixes.txt")
	require.NoError(t, os.WriteFile(fixes, []byte("set file compression snappy\nset file compression zstd\nset column nope dictionary false\n"), 0o644))
	dst := filepath.Join(dir, "out.parquet")

	out, stderr, err := execute(t, "rewrite", src, "-o", dst, "--from-prescription", fixes)
	require.NoError(t, err)
	assert.Contains(t, out, "Applied 3 directive(s)")
	assert.Contains(t, out, "skipped column nope")
	assert.Contains(t, stderr, "the last directive wins")

	f, err := metadata.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, int64(1000), f.Context().NumRows)
	assert.Equal(t, metadata.CodecZstd, f.Context().Columns[0].Codec())
}

func TestRewriteFromLint(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.parquet")
	out, _, err := execute(t, "rewrite", sample(t), "--output", dst, "--rules", "compression-codec-upgrade")
	require.NoError(t, err)
	assert.Contains(t, out, "from lint results")

	f, err := metadata.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	for i := range f.Context().Columns {
		assert.Equal(t, metadata.CodecZstd, f.Context().Columns[i].Codec())
	}
}

func TestRewriteNothingToFix(t *testing.T) {
	dir := t.TempDir()
	fixes := filepath.Join(dir, "fixes.txt")
	require.NoError(t, os.WriteFile(fixes, []byte("# nothing yet\n\n"), 0o644))
	dst := filepath.Join(dir, "out.parquet")

	out, _, err := execute(t, "rewrite", sample(t), "-o", dst, "--from-prescription", fixes)
	require.NoError(t, err)
	assert.Contains(t, out, "No fixes to apply.")
	assert.NoFileExists(t, dst)
}

func TestRewriteDryRun(t *testing.T) {
	dir := t.TempDir()
	fixes := filepath.Join(dir, "fixes.txt")
	require.NoError(t, os.WriteFile(fixes, []byte("set file compression snappy\n"), 0o644))
	dst := filepath.Join(dir, "out.parquet")

	out, _, err := execute(t, "rewrite", sample(t), "-o", dst, "--from-prescription", fixes, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run: 1 directive(s)")
	assert.Contains(t, out, "set file compression snappy")
	assert.Contains(t, out, "(line 1)")
	assert.NoFileExists(t, dst)
}

func TestRewriteRulesWithPrescription(t *testing.T) {
	dir := t.TempDir()
	_, _, err := execute(t, "rewrite", sample(t), "-o", filepath.Join(dir, "out.parquet"),
		"--from-prescription", filepath.Join(dir, "fixes.txt"), "--rules", "low-compression-ratio")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestRewriteInvalidPrescription(t *testing.T) {
	dir := t.TempDir()
	fixes := filepath.Join(dir, "fixes.txt")
	require.NoError(t, os.WriteFile(fixes, []byte("set file compression brotli\n"), 0o644))

	_, _, err := execute(t, "rewrite", sample(t), "-o", filepath.Join(dir, "out.parquet"), "--from-prescription", fixes)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidValue))
}

func TestRewriteBenchmark(t *testing.T) {
	dir := t.TempDir()
	fixes := filepath.Join(dir, "fixes.txt")
	require.NoError(t, os.WriteFile(fixes, []byte("set file compression zstd(3)\n"), 0o644))
	dst := filepath.Join(dir, "out.parquet")

	out, _, err := execute(t, "rewrite", sample(t), "-o", dst, "--from-prescription", fixes, "--benchmark", "2")
	require.NoError(t, err)

	start := strings.Index(out, "{")
	require.GreaterOrEqual(t, start, 0)
	var cmp benchmark.Comparison
	require.NoError(t, json.Unmarshal([]byte(out[start:]), &cmp))
	assert.Equal(t, int64(1000), cmp.Original.Rows)
	assert.Equal(t, int64(1000), cmp.Output.Rows)
	assert.Equal(t, 2, cmp.Output.Iterations)
	assert.Equal(t, 1, cmp.Output.DirectiveCount)
	assert.False(t, cmp.Output.ConflictWarning)
}

func TestInfo(t *testing.T) {
	out, _, err := execute(t, "info", sample(t))
	require.NoError(t, err)
	assert.Contains(t, out, "rows:        1000")
	assert.Contains(t, out, "row_groups:  2")
	assert.Contains(t, out, "category")
}

func TestInfoJSON(t *testing.T) {
	out, _, err := execute(t, "info", sample(t), "--format", "json")
	require.NoError(t, err)

	var fc struct {
		NumRows int64 `json:"num_rows"`
		Columns []struct {
			Path string `json:"path"`
		} `json:"columns"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &fc))
	assert.Equal(t, int64(1000), fc.NumRows)
	require.Len(t, fc.Columns, len(testutil.SampleSchema.Fields()))
	assert.Equal(t, "category", fc.Columns[2].Path)
}

func TestMeasure(t *testing.T) {
	out, _, err := execute(t, "measure", sample(t), "--sample-limit", "200")
	require.NoError(t, err)
	assert.Contains(t, strings.ToUpper(out), "ZSTD")
	assert.Contains(t, out, "category")
}

func TestMeasureJSON(t *testing.T) {
	out, _, err := execute(t, "measure", sample(t), "--format", "json", "--level", "best")
	require.NoError(t, err)

	var measurements []compression.ColumnMeasurement
	require.NoError(t, json.Unmarshal([]byte(out), &measurements))
	require.Len(t, measurements, len(testutil.SampleSchema.Fields()))
	assert.Equal(t, "id", measurements[0].Path)
	assert.Equal(t, "gzip", strings.ToLower(measurements[0].Current))
}

func TestMeasureUnknownLevel(t *testing.T) {
	_, _, err := execute(t, "measure", sample(t), "--level", "extreme")
	require.Error(t, err)
}

func TestMetricsTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pqlint.prom")
	_, _, err := execute(t, "--metrics-file", path, "info", sample(t))
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv("PQLINT_SORT_POLICY", "bogus")
	_, _, err := execute(t, "info", sample(t))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "parquet-linter "+version))
}

func TestProfiles(t *testing.T) {
	dir := t.TempDir()
	cpu := filepath.Join(dir, "cpu.prof")
	mem := filepath.Join(dir, "mem.prof")

	_, _, err := execute(t, "--cpuprofile", cpu, "--memprofile", mem, "info", sample(t))
	require.NoError(t, err)
	assert.FileExists(t, cpu)
	assert.FileExists(t, mem)
}

func TestConfigCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.yaml")
	require.NoError(t, os.WriteFile(in, []byte("analysis:\n  sample_limit: 512\n"), 0o600))

	out, _, err := execute(t, "--config", in, "--workers", "3", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "sample_limit: 512")
	assert.Contains(t, out, "workers: 3")

	saved := filepath.Join(dir, "out.yaml")
	require.NoError(t, os.WriteFile(saved, []byte(out), 0o600))
	cfg, err := config.LoadFile(saved)
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.Analysis.SampleLimit)
	assert.Equal(t, 3, cfg.Analysis.Workers)
}

func TestCheckJSONLines(t *testing.T) {
	out, _, err := execute(t, "check", sample(t), "--format", "jsonl", "--rules", "compression-codec-upgrade")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, len(testutil.SampleSchema.Fields()))
	for _, line := range lines {
		var d struct {
			Rule  string   `json:"rule"`
			Fixes []string `json:"fixes"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &d))
		assert.Equal(t, "compression-codec-upgrade", d.Rule)
		require.Len(t, d.Fixes, 1)
		assert.Contains(t, d.Fixes[0], "compression zstd(3)")
	}
}

func TestTraceToStderr(t *testing.T) {
	_, stderr, err := execute(t, "--trace", "info", sample(t))
	require.NoError(t, err)
	assert.Contains(t, stderr, `"Name": "info"`)
}
