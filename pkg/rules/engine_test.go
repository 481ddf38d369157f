package rules

import (
	"context"
	"fmt"
	"testing"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/parquet-linter/pkg/cardinality"
	"github.com/ajitpratap0/parquet-linter/pkg/config"
	"github.com/ajitpratap0/parquet-linter/pkg/errors"
	"github.com/ajitpratap0/parquet-linter/pkg/metadata"
	"github.com/ajitpratap0/parquet-linter/pkg/prescription"
	"github.com/ajitpratap0/parquet-linter/pkg/testutil"
)

// staticRule returns canned diagnostics, in the order given
type staticRule struct {
	name  string
	diags []Diagnostic
}

func (r staticRule) Name() string { return r.name }

func (r staticRule) Check(*metadata.FileContext) []Diagnostic {
	return append([]Diagnostic(nil), r.diags...)
}

func newTestEngine(t *testing.T, rules ...Rule) *Engine {
	cfg := config.AnalysisConfig{Workers: 4}
	if len(rules) == 0 {
		return NewEngine(cfg, testutil.TestLogger(t))
	}
	return NewEngineWithRules(cfg, testutil.TestLogger(t), rules...)
}

func TestEngineLowCompressionScenario(t *testing.T) {
	c := chunk(100, metadata.CodecZstd, metadata.EncodingPlain)
	c.CompressedSize, c.UncompressedSize = 96, 100
	fc := fileOf(rows(100), column{path: "payload", typ: metadata.Int64, chunks: []metadata.Chunk{c}})

	diags, err := newTestEngine(t).Run(context.Background(), fc)
	require.NoError(t, err)

	var found []Diagnostic
	for _, d := range diags {
		if d.Rule == "low-compression-ratio" {
			found = append(found, d)
		}
	}
	require.Len(t, found, 1)
	assert.Equal(t, SeverityWarning, found[0].Severity)
	assert.Equal(t, ColumnTarget("payload"), found[0].Target)
}

func TestEngineOrdering(t *testing.T) {
	first := staticRule{name: "first", diags: []Diagnostic{
		{Rule: "first", Target: ColumnTarget("z")},
		{Rule: "first", Target: RowGroupTarget(2)},
		{Rule: "first", Target: ColumnTarget("a")},
		{Rule: "first", Target: RowGroupTarget(0)},
		{Rule: "first", Target: FileTarget()},
	}}
	second := staticRule{name: "second", diags: []Diagnostic{
		{Rule: "second", Target: ColumnTarget("b")},
		{Rule: "second", Target: ColumnTarget("a")},
	}}

	diags, err := newTestEngine(t, first, second).Run(context.Background(), fileOf(nil))
	require.NoError(t, err)

	var got []string
	for _, d := range diags {
		got = append(got, d.Rule+" "+d.Target.String())
	}
	assert.Equal(t, []string{
		"first file",
		"first row group 0",
		"first row group 2",
		"first column a",
		"first column z",
		"second column a",
		"second column b",
	}, got)
}

func TestEngineIsDeterministic(t *testing.T) {
	path := testutil.WriteSample(t, t.TempDir(), "sample.parquet", 2000,
		parquet.WithMaxRowGroupLength(500),
		parquet.WithCompression(compress.Codecs.Gzip))
	fc := analyze(t, path)

	engine := newTestEngine(t)
	want, err := engine.Run(context.Background(), fc)
	require.NoError(t, err)
	require.NotEmpty(t, want)

	for i := 0; i < 5; i++ {
		got, err := engine.Run(context.Background(), fc)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprint(want), fmt.Sprint(got))
		assert.Equal(t, want, got)
	}
}

func TestEngineOnSampleFile(t *testing.T) {
	path := testutil.WriteSample(t, t.TempDir(), "sample.parquet", 1000,
		parquet.WithMaxRowGroupLength(250),
		parquet.WithCompression(compress.Codecs.Gzip))
	fc := analyze(t, path)

	diags, err := newTestEngine(t).Run(context.Background(), fc)
	require.NoError(t, err)

	byRule := make(map[string][]Diagnostic)
	for _, d := range diags {
		byRule[d.Rule] = append(byRule[d.Rule], d)
	}

	// four tiny row groups
	require.Len(t, byRule["page-row-group-size"], 4)
	for i, d := range byRule["page-row-group-size"] {
		assert.Equal(t, RowGroupTarget(i), d.Target)
	}

	// every column is gzip compressed
	assert.Len(t, byRule["compression-codec-upgrade"], len(fc.Columns))

	// the exported prescription parses back to the same directives
	exported := Export(diags)
	require.False(t, exported.IsEmpty())
	parsed, err := prescription.Parse(exported.String())
	require.NoError(t, err)
	assert.Equal(t, exported.Directives(), parsed.Directives())
	assert.False(t, prescription.Fold(parsed).ConflictWarning)
}

func analyze(t *testing.T, path string) *metadata.FileContext {
	t.Helper()
	f, err := metadata.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	est := cardinality.NewEstimator(config.AnalysisConfig{Workers: 2}, testutil.TestLogger(t))
	estimates, err := est.Estimate(context.Background(), f.Context(), cardinality.NewFilePages(f))
	require.NoError(t, err)
	return f.Context().WithEstimates(estimates)
}

func TestEngineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEngine(t).Run(ctx, fileOf(rows(1)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilter(t *testing.T) {
	diags := []Diagnostic{
		{Rule: "low-compression-ratio", Severity: SeverityWarning, Target: ColumnTarget("a")},
		{Rule: "float-byte-stream-split", Severity: SeverityInfo, Target: ColumnTarget("b")},
		{Rule: "low-compression-ratio", Severity: SeverityWarning, Target: ColumnTarget("c")},
		{Rule: "page-row-group-size", Severity: SeverityWarning, Target: RowGroupTarget(0)},
	}

	all, err := Filter(diags, FilterOptions{})
	require.NoError(t, err)
	assert.Equal(t, diags, all)

	warnings, err := Filter(diags, FilterOptions{MinSeverity: SeverityWarning})
	require.NoError(t, err)
	assert.Equal(t, []Diagnostic{diags[0], diags[2], diags[3]}, warnings)

	named, err := Filter(diags, FilterOptions{Rules: []string{"page-row-group-size", "low-compression-ratio"}})
	require.NoError(t, err)
	assert.Equal(t, []Diagnostic{diags[0], diags[2], diags[3]}, named)

	_, err = Filter(diags, FilterOptions{Rules: []string{"low-compression-ratio", "no-such-rule"}})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Contains(t, err.Error(), "no-such-rule")
}

func TestCounts(t *testing.T) {
	counts := Counts([]Diagnostic{
		{Severity: SeverityInfo}, {Severity: SeverityWarning}, {Severity: SeverityInfo},
	})
	assert.Equal(t, 2, counts[SeverityInfo])
	assert.Equal(t, 1, counts[SeverityWarning])
}

func TestExportLaterRuleWins(t *testing.T) {
	diags := []Diagnostic{
		{Rule: "float-byte-stream-split", Fixes: []prescription.Directive{
			prescription.Column("x", prescription.PropEncoding, prescription.Ident("byte_stream_split")),
		}},
		{Rule: "page-row-group-size", Target: RowGroupTarget(0), Fixes: []prescription.Directive{
			prescription.File(prescription.PropMaxRowGroupSize, prescription.Int(1000)),
		}},
		{Rule: "page-row-group-size", Target: RowGroupTarget(1), Fixes: []prescription.Directive{
			prescription.File(prescription.PropMaxRowGroupSize, prescription.Int(2000)),
		}},
		{Rule: "sorted-integer-delta", Fixes: []prescription.Directive{
			prescription.Column("x", prescription.PropEncoding, prescription.Ident("delta_binary_packed")),
		}},
		{Rule: "bloom-filter-recommendation", Fixes: []prescription.Directive{
			prescription.Column("y", prescription.PropBloomFilter, prescription.Bool(true)),
			prescription.Column("y", prescription.PropBloomFilterNDV, prescription.Int(77)),
		}},
	}

	p := Export(diags)
	assert.Equal(t, "set file max_row_group_size 2000\n"+
		"set column x encoding delta_binary_packed\n"+
		"set column y bloom_filter true\n"+
		"set column y bloom_filter_ndv 77", p.String())

	// re-parsing and folding yields the same winners
	parsed, err := prescription.Parse(p.String())
	require.NoError(t, err)
	cfg := prescription.Fold(parsed)
	v, ok := cfg.Column("x", prescription.PropEncoding)
	require.True(t, ok)
	assert.Equal(t, prescription.EncodingDeltaBinaryPacked, v.Encoding())
}

func TestSeverityText(t *testing.T) {
	for _, s := range []Severity{SeverityInfo, SeverityWarning} {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var back Severity
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}

	_, err := ParseSeverity("fatal")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}
