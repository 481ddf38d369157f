package cardinality

import (
	"context"

	"github.com/ajitpratap0/parquet-linter/pkg/metadata"
)

type tierInput struct {
	file        *metadata.FileContext
	column      *metadata.ColumnContext
	rowGroup    int
	fileTotal   uint64
	pages       PageSource
	sampleLimit int
}

// sampleTotal is the non-null value count of the sampled chunk
func (in tierInput) sampleTotal() uint64 {
	if in.rowGroup >= len(in.column.Chunks) {
		return 0
	}
	return in.column.Chunks[in.rowGroup].NonNull()
}

// tier returns ok == false when it cannot produce an estimate for the column
type tier func(ctx context.Context, in tierInput) (est CardinalityEstimate, ok bool, err error)

func scaled(distinct, sampleTotal, fileTotal uint64, t metadata.Tier) CardinalityEstimate {
	d, ratio := Scale(distinct, sampleTotal, fileTotal)
	return CardinalityEstimate{
		Distinct:      d,
		NonNull:       fileTotal,
		Tier:          t,
		SamplingRatio: ratio,
	}
}

func statisticTier(_ context.Context, in tierInput) (CardinalityEstimate, bool, error) {
	if in.rowGroup >= len(in.column.Chunks) {
		return CardinalityEstimate{}, false, nil
	}
	chunk := in.column.Chunks[in.rowGroup]
	if !chunk.HasDistinctCount || chunk.DistinctCount <= 0 {
		return CardinalityEstimate{}, false, nil
	}
	sample := in.sampleTotal()
	if sample == 0 {
		return CardinalityEstimate{}, false, nil
	}

	t := metadata.TierOne
	if sample == in.fileTotal {
		t = metadata.TierExact
	}
	return scaled(uint64(chunk.DistinctCount), sample, in.fileTotal, t), true, nil
}

func dictionaryTier(ctx context.Context, in tierInput) (CardinalityEstimate, bool, error) {
	if in.pages == nil || in.rowGroup >= len(in.column.Chunks) {
		return CardinalityEstimate{}, false, nil
	}
	sample := in.sampleTotal()
	if sample == 0 {
		return CardinalityEstimate{}, false, nil
	}

	n, ok, err := in.pages.DictionaryPageEntries(ctx, in.rowGroup, in.column.Index)
	if err != nil || !ok {
		return CardinalityEstimate{}, false, err
	}
	return scaled(uint64(n), sample, in.fileTotal, metadata.TierTwo), true, nil
}

func sampleTier(ctx context.Context, in tierInput) (CardinalityEstimate, bool, error) {
	if in.pages == nil || !in.file.Flat || in.rowGroup >= len(in.column.Chunks) {
		return CardinalityEstimate{}, false, nil
	}

	hashes, nonNull, err := in.pages.SampleValues(ctx, in.rowGroup, in.column.Index, in.sampleLimit)
	if err != nil {
		return CardinalityEstimate{}, false, err
	}
	if nonNull == 0 {
		return CardinalityEstimate{}, false, nil
	}

	seen := make(map[uint64]struct{}, len(hashes))
	for _, h := range hashes {
		seen[h] = struct{}{}
	}
	return scaled(uint64(len(seen)), uint64(nonNull), in.fileTotal, metadata.TierThree), true, nil
}
