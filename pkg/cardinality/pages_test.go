package cardinality

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/parquet-linter/pkg/metadata"
	"github.com/ajitpratap0/parquet-linter/pkg/testutil"
)

func openSample(t *testing.T, rows int, props ...parquet.WriterProperty) *metadata.File {
	t.Helper()
	path := testutil.WriteSample(t, t.TempDir(), "sample.parquet", rows, props...)
	f, err := metadata.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestFilePagesDictionaryEntries(t *testing.T) {
	f := openSample(t, 1000)
	pages := NewFilePages(f)
	fc := f.Context()

	category, ok := fc.Column("category")
	require.True(t, ok)

	n, found, err := pages.DictionaryPageEntries(context.Background(), 0, category.Index)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, len(testutil.Categories), n)
}

func TestFilePagesNoDictionary(t *testing.T) {
	f := openSample(t, 1000, parquet.WithDictionaryDefault(false))
	pages := NewFilePages(f)

	n, found, err := pages.DictionaryPageEntries(context.Background(), 0, 2)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, n)
}

func TestFilePagesSampleValues(t *testing.T) {
	f := openSample(t, 1000, parquet.WithDictionaryDefault(false))
	pages := NewFilePages(f)
	ctx := context.Background()

	hashes, nonNull, err := pages.SampleValues(ctx, 0, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, nonNull)
	assert.Len(t, hashes, 100)

	// every tenth score is null
	score, ok := f.Context().Column("score")
	require.True(t, ok)
	_, nonNull, err = pages.SampleValues(ctx, 0, score.Index, 1000)
	require.NoError(t, err)
	assert.Equal(t, 900, nonNull)

	sample, count, err := pages.SampleBytes(ctx, 0, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, count)
	assert.Len(t, sample, 80)
}

func TestEstimateRealFile(t *testing.T) {
	f := openSample(t, 1000)
	e := newTestEstimator(t)

	estimates, err := e.Estimate(context.Background(), f.Context(), NewFilePages(f))
	require.NoError(t, err)
	require.Len(t, estimates, len(f.Context().Columns))

	byPath := map[string]CardinalityEstimate{}
	for i, est := range estimates {
		byPath[f.Context().Columns[i].Path] = est
		assert.LessOrEqual(t, est.Distinct, est.NonNull)
	}

	assert.Equal(t, uint64(4), byPath["category"].Distinct)
	assert.Equal(t, metadata.TierTwo, byPath["category"].Tier)
	assert.Equal(t, uint64(1000), byPath["user_id"].Distinct)
	assert.Equal(t, uint64(900), byPath["score"].NonNull)
}

func TestEstimateRealFileSampled(t *testing.T) {
	f := openSample(t, 1000, parquet.WithDictionaryDefault(false))

	estimates, err := newTestEstimator(t).Estimate(context.Background(), f.Context(), NewFilePages(f))
	require.NoError(t, err)

	category, _ := f.Context().Column("category")
	est := estimates[category.Index]
	assert.Equal(t, metadata.TierThree, est.Tier)
	assert.Equal(t, uint64(4), est.Distinct)

	score, _ := f.Context().Column("score")
	assert.Equal(t, uint64(90), estimates[score.Index].Distinct)
}

func TestEstimateNestedFallsBack(t *testing.T) {
	path := testutil.WriteNested(t, t.TempDir(), "nested.parquet", 20, 8, parquet.WithDictionaryDefault(false))
	f, err := metadata.Open(path)
	require.NoError(t, err)
	defer f.Close()

	estimates, err := newTestEstimator(t).Estimate(context.Background(), f.Context(), NewFilePages(f))
	require.NoError(t, err)

	embedding := estimates[1]
	assert.Equal(t, metadata.TierFallback, embedding.Tier)
	assert.Equal(t, uint64(160), embedding.Distinct)
}
