package cardinality

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/parquet-linter/pkg/config"
	"github.com/ajitpratap0/parquet-linter/pkg/metadata"
	"github.com/ajitpratap0/parquet-linter/pkg/testutil"
)

type fakePages struct {
	dictionary map[int]int
	hashes     map[int][]uint64
	err        error
	sampled    []int
}

func (f *fakePages) DictionaryPageEntries(_ context.Context, _, column int) (int, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	n, ok := f.dictionary[column]
	return n, ok, nil
}

func (f *fakePages) SampleValues(_ context.Context, _, column, limit int) ([]uint64, int, error) {
	f.sampled = append(f.sampled, column)
	h := f.hashes[column]
	if len(h) > limit {
		h = h[:limit]
	}
	return h, len(h), nil
}

// fileWith builds a context whose columns each have one chunk per entry of
// values, with no nulls.
func fileWith(flat bool, chunks ...[]metadata.Chunk) *metadata.FileContext {
	fc := &metadata.FileContext{Path: "test.parquet", Flat: flat}
	for i, c := range chunks {
		fc.Columns = append(fc.Columns, metadata.ColumnContext{
			Path:         string(rune('a' + i)),
			PhysicalType: metadata.ByteArray,
			Chunks:       c,
		})
	}
	fc.Finalize()
	return fc
}

func newTestEstimator(t *testing.T) *Estimator {
	return NewEstimator(config.AnalysisConfig{Workers: 2, SampleLimit: 16384}, testutil.TestLogger(t))
}

func TestScale(t *testing.T) {
	tests := []struct {
		name                 string
		distinct, sample, fl uint64
		want                 uint64
	}{
		{"tier one example", 10, 100, 1000, 100},
		{"half distinct", 500, 1000, 5000, 2500},
		{"whole file", 42, 1000, 1000, 42},
		{"clamped to file total", 900, 100, 1000, 1000},
		{"never below sample distinct", 1, 3, 2, 1},
		{"distinct above file total", 10, 10, 5, 5},
		{"empty sample", 3, 0, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Scale(tt.distinct, tt.sample, tt.fl)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTierOneScaling(t *testing.T) {
	chunks := []metadata.Chunk{
		{NumValues: 100, DistinctCount: 10, HasDistinctCount: true, NullCountKnown: true},
		{NumValues: 900, NullCountKnown: true},
	}
	fc := fileWith(true, chunks)

	est, err := newTestEstimator(t).EstimateColumn(context.Background(), fc, 0, &fakePages{})
	require.NoError(t, err)
	assert.Equal(t, uint64(100), est.Distinct)
	assert.Equal(t, uint64(1000), est.NonNull)
	assert.Equal(t, metadata.TierOne, est.Tier)
	assert.InDelta(t, 10.0, est.SamplingRatio, 1e-9)
}

func TestTierOneHalfDistinct(t *testing.T) {
	fc := fileWith(true, []metadata.Chunk{
		{NumValues: 1000, DistinctCount: 500, HasDistinctCount: true},
		{NumValues: 4000},
	})

	est, err := newTestEstimator(t).EstimateColumn(context.Background(), fc, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2500), est.Distinct)
	assert.Equal(t, metadata.TierOne, est.Tier)
}

func TestTierOneExactWhenSingleRowGroup(t *testing.T) {
	fc := fileWith(true, []metadata.Chunk{
		{NumValues: 1000, NullCount: 100, NullCountKnown: true, DistinctCount: 37, HasDistinctCount: true},
	})

	est, err := newTestEstimator(t).EstimateColumn(context.Background(), fc, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(37), est.Distinct)
	assert.Equal(t, uint64(900), est.NonNull)
	assert.Equal(t, metadata.TierExact, est.Tier)
}

func TestSampledRowGroupSkipsEmptyChunks(t *testing.T) {
	fc := fileWith(true, []metadata.Chunk{
		{NumValues: 0},
		{NumValues: 100, DistinctCount: 5, HasDistinctCount: true},
		{NumValues: 100},
	})

	est, err := newTestEstimator(t).EstimateColumn(context.Background(), fc, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), est.Distinct)
}

func TestTierTwoDictionary(t *testing.T) {
	fc := fileWith(true, []metadata.Chunk{{NumValues: 200}, {NumValues: 200}})
	pages := &fakePages{dictionary: map[int]int{0: 20}}

	est, err := newTestEstimator(t).EstimateColumn(context.Background(), fc, 0, pages)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), est.Distinct)
	assert.Equal(t, metadata.TierTwo, est.Tier)
	assert.Empty(t, pages.sampled, "tier 3 must not run once tier 2 answers")
}

func TestTierThreeSample(t *testing.T) {
	fc := fileWith(true, []metadata.Chunk{{NumValues: 6}, {NumValues: 6}})
	pages := &fakePages{hashes: map[int][]uint64{0: {1, 2, 2, 3, 3, 3}}}

	est, err := newTestEstimator(t).EstimateColumn(context.Background(), fc, 0, pages)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), est.Distinct)
	assert.Equal(t, metadata.TierThree, est.Tier)
}

func TestNestedFallsBack(t *testing.T) {
	fc := fileWith(false, []metadata.Chunk{{NumValues: 640}, {NumValues: 360}})
	fc.Columns[0].PhysicalType = metadata.Float
	fc.Columns[0].MaxRepetitionLevel = 1
	pages := &fakePages{hashes: map[int][]uint64{0: {1, 1, 1}}}

	est, err := newTestEstimator(t).EstimateColumn(context.Background(), fc, 0, pages)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), est.Distinct)
	assert.Equal(t, metadata.TierFallback, est.Tier)
	assert.Empty(t, pages.sampled)
}

func TestEmptyColumnFallsBackToZero(t *testing.T) {
	fc := fileWith(true, []metadata.Chunk{})

	est, err := newTestEstimator(t).EstimateColumn(context.Background(), fc, 0, &fakePages{})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), est.Distinct)
	assert.Equal(t, metadata.TierFallback, est.Tier)
	assert.Equal(t, 0.0, est.Ratio())
}

func TestPageErrorsPropagate(t *testing.T) {
	boom := stderrors.New("corrupt header")
	fc := fileWith(true, []metadata.Chunk{{NumValues: 10}}, []metadata.Chunk{{NumValues: 10}})

	_, err := newTestEstimator(t).Estimate(context.Background(), fc, &fakePages{err: boom})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestEstimateIsDeterministic(t *testing.T) {
	var columns [][]metadata.Chunk
	dictionary := map[int]int{}
	for i := 0; i < 12; i++ {
		columns = append(columns, []metadata.Chunk{{NumValues: 100}, {NumValues: 300}})
		dictionary[i] = i + 1
	}
	fc := fileWith(true, columns...)
	e := newTestEstimator(t)

	first, err := e.Estimate(context.Background(), fc, &fakePages{dictionary: dictionary})
	require.NoError(t, err)
	second, err := e.Estimate(context.Background(), fc, &fakePages{dictionary: dictionary})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	for i, est := range first {
		assert.Equal(t, uint64((i+1)*4), est.Distinct, "column %d", i)
	}
}
