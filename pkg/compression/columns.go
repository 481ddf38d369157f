package compression

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/parquet-linter/internal/pipeline"
	"github.com/ajitpratap0/parquet-linter/pkg/config"
	"github.com/ajitpratap0/parquet-linter/pkg/logger"
	"github.com/ajitpratap0/parquet-linter/pkg/metadata"
)

// ByteSampler returns the plain bytes of the first values of a column chunk.
// cardinality.FilePages implements it.
type ByteSampler interface {
	SampleBytes(ctx context.Context, rowGroup, column, limit int) (sample []byte, nonNull int, err error)
}

// ColumnMeasurement holds the codec results of one column
type ColumnMeasurement struct {
	Path     string   `json:"path"`
	Current  string   `json:"current_codec"`
	RowGroup int      `json:"row_group"`
	Values   int      `json:"values"`
	Results  []Result `json:"results"`
}

// MeasureColumns measures a value sample of every column of file, using the
// first row group holding values. Columns are measured concurrently and
// returned in file order.
func (p *Meter) MeasureColumns(ctx context.Context, file *metadata.FileContext, pages ByteSampler, cfg config.AnalysisConfig, log *zap.Logger) ([]ColumnMeasurement, error) {
	log = logger.OrGlobal(log).With(zap.String("component", "measure"))
	limit := cfg.SampleLimit
	if limit <= 0 {
		limit = config.DefaultSampleLimit
	}
	processor := pipeline.NewParallelProcessor(pipeline.ParallelConfig{
		Name:       "measure",
		NumWorkers: cfg.Workers,
	}, log)

	return pipeline.Map(ctx, processor, len(file.Columns), func(ctx context.Context, i int) (ColumnMeasurement, error) {
		col := &file.Columns[i]
		measure := ColumnMeasurement{Path: col.Path, Current: col.Codec().String()}
		for rg, chunk := range col.Chunks {
			if chunk.NumValues > 0 {
				measure.RowGroup = rg
				break
			}
		}

		sample, n, err := pages.SampleBytes(ctx, measure.RowGroup, i, limit)
		if err != nil {
			return ColumnMeasurement{}, err
		}
		measure.Values = n
		if measure.Results, err = p.Measure(sample); err != nil {
			return ColumnMeasurement{}, err
		}

		log.Debug("measured column",
			zap.String("column", col.Path),
			zap.Int("values", n),
			zap.Int("bytes", len(sample)))
		return measure, nil
	})
}
