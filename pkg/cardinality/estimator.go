// Package cardinality estimates the number of distinct non-null values of
// each column of a parquet file without decoding the whole file.
//
// Estimation walks an ordered list of tiers and keeps the first one that can
// answer:
//
//   - tier 1 reads the distinct_count statistic of one row group
//   - tier 2 counts the entries of that row group's dictionary page
//   - tier 3 hashes a bounded sample of values (flat schemas only)
//   - the fallback assumes every value is distinct
//
// Row-group level answers are scaled to the whole file by the ratio of
// non-null value totals.
package cardinality

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/ajitpratap0/parquet-linter/internal/pipeline"
	"github.com/ajitpratap0/parquet-linter/pkg/config"
	"github.com/ajitpratap0/parquet-linter/pkg/logger"
	"github.com/ajitpratap0/parquet-linter/pkg/metadata"
	"github.com/ajitpratap0/parquet-linter/pkg/metrics"
)

// CardinalityEstimate is the per-column estimate attached to a ColumnContext
type CardinalityEstimate = metadata.CardinalityEstimate

// PageSource gives the estimator access to page headers and decoded values
// of one column chunk.
type PageSource interface {
	// DictionaryPageEntries reads page headers of the chunk in order and
	// reports the entry count of a dictionary page found before any data
	// page. ok is false when the chunk has no leading dictionary page.
	DictionaryPageEntries(ctx context.Context, rowGroup, column int) (n int, ok bool, err error)

	// SampleValues reads at most limit values of the chunk and returns the
	// hashes of the non-null ones together with their count.
	SampleValues(ctx context.Context, rowGroup, column, limit int) (hashes []uint64, nonNull int, err error)
}

// Estimator produces CardinalityEstimates for every column of a file
type Estimator struct {
	logger      *zap.Logger
	processor   *pipeline.ParallelProcessor
	sampleLimit int
	tiers       []tier
}

// NewEstimator creates an estimator from the analysis settings
func NewEstimator(cfg config.AnalysisConfig, log *zap.Logger) *Estimator {
	log = logger.OrGlobal(log).With(zap.String("component", "cardinality"))
	limit := cfg.SampleLimit
	if limit <= 0 {
		limit = config.DefaultSampleLimit
	}
	return &Estimator{
		logger: log,
		processor: pipeline.NewParallelProcessor(pipeline.ParallelConfig{
			Name:       "cardinality",
			NumWorkers: cfg.Workers,
		}, log),
		sampleLimit: limit,
		tiers:       []tier{statisticTier, dictionaryTier, sampleTier},
	}
}

// Estimate returns one estimate per column of file, indexed like
// file.Columns. Columns are estimated concurrently; any page or decode error
// aborts the whole estimate.
func (e *Estimator) Estimate(ctx context.Context, file *metadata.FileContext, pages PageSource) ([]CardinalityEstimate, error) {
	estimates, err := pipeline.Map(ctx, e.processor, len(file.Columns),
		func(ctx context.Context, i int) (CardinalityEstimate, error) {
			return e.EstimateColumn(ctx, file, i, pages)
		})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("estimated column cardinality",
		zap.String("path", file.Path),
		zap.Int("columns", len(estimates)))
	return estimates, nil
}

// EstimateColumn estimates the column at index of file
func (e *Estimator) EstimateColumn(ctx context.Context, file *metadata.FileContext, index int, pages PageSource) (CardinalityEstimate, error) {
	if err := ctx.Err(); err != nil {
		return CardinalityEstimate{}, err
	}

	col := &file.Columns[index]
	in := tierInput{
		file:        file,
		column:      col,
		rowGroup:    sampleRowGroup(col),
		fileTotal:   col.NonNull(),
		pages:       pages,
		sampleLimit: e.sampleLimit,
	}

	for _, try := range e.tiers {
		est, ok, err := try(ctx, in)
		if err != nil {
			return CardinalityEstimate{}, err
		}
		if ok {
			e.record(col, est)
			return est, nil
		}
	}

	est := CardinalityEstimate{
		Distinct:      in.fileTotal,
		NonNull:       in.fileTotal,
		Tier:          metadata.TierFallback,
		SamplingRatio: 1,
	}
	e.record(col, est)
	return est, nil
}

func (e *Estimator) record(col *metadata.ColumnContext, est CardinalityEstimate) {
	metrics.EstimatorTier.WithLabelValues(string(est.Tier)).Inc()
	e.logger.Debug("column estimate",
		zap.String("column", col.Path),
		zap.String("tier", string(est.Tier)),
		zap.Uint64("distinct", est.Distinct),
		zap.Uint64("non_null", est.NonNull))
}

// sampleRowGroup picks the first row group holding values of col
func sampleRowGroup(col *metadata.ColumnContext) int {
	for i, chunk := range col.Chunks {
		if chunk.NumValues > 0 {
			return i
		}
	}
	return 0
}

// Scale extrapolates a distinct count observed over sampleTotal non-null
// values to fileTotal values. The result lies in [min(distinct, fileTotal),
// fileTotal].
func Scale(distinct, sampleTotal, fileTotal uint64) (uint64, float64) {
	if sampleTotal == 0 {
		return 0, 1
	}
	ratio := float64(fileTotal) / float64(sampleTotal)
	scaled := uint64(math.Round(float64(distinct) * ratio))

	lo := distinct
	if fileTotal < lo {
		lo = fileTotal
	}
	if scaled < lo {
		scaled = lo
	}
	if scaled > fileTotal {
		scaled = fileTotal
	}
	return scaled, ratio
}
