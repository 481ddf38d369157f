package metadata_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/parquet-linter/pkg/metadata"
)

func handBuilt() *metadata.FileContext {
	fc := &metadata.FileContext{
		Path: "hand.parquet",
		Flat: true,
		RowGroups: []metadata.RowGroup{
			{Index: 0, NumRows: 100, CompressedSize: 4096},
			{Index: 1, NumRows: 50, CompressedSize: 2048},
		},
		Columns: []metadata.ColumnContext{
			{
				Path:         "a",
				PhysicalType: metadata.ByteArray,
				Chunks: []metadata.Chunk{
					{
						RowGroup: 0, NumValues: 100, NullCount: 10, NullCountKnown: true,
						Encodings:     []metadata.Encoding{metadata.EncodingRLEDictionary, metadata.EncodingPlain},
						EncodingStats: []metadata.PageEncodingStat{
							{PageType: metadata.PageDictionary, Encoding: metadata.EncodingPlain, Count: 1},
							{PageType: metadata.PageData, Encoding: metadata.EncodingRLEDictionary, Count: 3},
						},
						DictionaryPageOffset: 4,
						HasColumnIndex:       true,
						Min:                  []byte("aaa"),
						Max:                  bytes.Repeat([]byte("z"), 80),
					},
					{
						RowGroup: 1, NumValues: 50,
						Encodings: []metadata.Encoding{metadata.EncodingPlain},
					},
				},
			},
		},
	}
	fc.Finalize()
	return fc
}

func TestFinalizeAggregates(t *testing.T) {
	fc := handBuilt()

	assert.Equal(t, int64(150), fc.NumRows)
	assert.Equal(t, int64(100), fc.Settings.MaxRowGroupRows)
	assert.Equal(t, int64(4096), fc.Settings.MaxRowGroupBytes)
	assert.Equal(t, 80, fc.Settings.MaxStatisticsLength)

	col := &fc.Columns[0]
	assert.Equal(t, []string{"a"}, col.PathParts)
	assert.Equal(t, int64(150), col.TotalValues)
	assert.Equal(t, int64(10), col.NullCount)
	assert.False(t, col.NullCountKnown, "second chunk has no statistics")
	assert.Equal(t, uint64(140), col.NonNull())
	assert.Equal(t, []metadata.Encoding{metadata.EncodingPlain, metadata.EncodingRLEDictionary}, col.Encodings)
	assert.True(t, col.HasDictionary())
	assert.Equal(t, 1, col.ChunksMissingColumnIndex())
	assert.False(t, col.HasColumnIndex())
	assert.Equal(t, 2, col.ChunksMissingBloomFilter())
}

func TestDataPagesUse(t *testing.T) {
	fc := handBuilt()
	first, second := fc.Columns[0].Chunks[0], fc.Columns[0].Chunks[1]

	// encoding stats say PLAIN only appears on the dictionary page
	assert.False(t, first.DataPagesUse(metadata.EncodingPlain))
	assert.True(t, first.DataPagesUse(metadata.EncodingRLEDictionary))

	// without stats the encoding list is used
	assert.True(t, second.DataPagesUse(metadata.EncodingPlain))
	assert.False(t, second.HasDictionary())
}

func TestChunkNonNullClamps(t *testing.T) {
	assert.Equal(t, uint64(0), metadata.Chunk{NumValues: 5, NullCount: 9}.NonNull())
	assert.Equal(t, uint64(5), metadata.Chunk{NumValues: 5, NullCount: -1}.NonNull())
	assert.Equal(t, uint64(0), metadata.Chunk{}.NonNull())
}

func TestWithEstimatesCopies(t *testing.T) {
	fc := handBuilt()
	est := metadata.CardinalityEstimate{Distinct: 7, NonNull: 140, Tier: metadata.TierTwo, SamplingRatio: 1.4}

	out := fc.WithEstimates([]metadata.CardinalityEstimate{est})
	require.NotSame(t, fc, out)
	assert.Equal(t, est, out.Columns[0].Cardinality)
	assert.Equal(t, metadata.CardinalityEstimate{}, fc.Columns[0].Cardinality)
	assert.InDelta(t, 0.05, out.Columns[0].Cardinality.Ratio(), 1e-9)
}

func TestRatioZeroNonNull(t *testing.T) {
	assert.Equal(t, 0.0, metadata.CardinalityEstimate{Distinct: 3}.Ratio())
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, metadata.WriteSummary(&buf, handBuilt()))

	out := buf.String()
	assert.Contains(t, out, "row_groups:  2")
	assert.Contains(t, out, "BYTE_ARRAY")
	assert.Contains(t, out, "RLE_DICTIONARY,PLAIN")
	assert.Contains(t, out, "row group 1: 50 rows")
}
