package rules

import (
	"fmt"
	"math"

	"github.com/ajitpratap0/parquet-linter/pkg/metadata"
	"github.com/ajitpratap0/parquet-linter/pkg/prescription"
)

// VectorEmbeddingRule flags repeated float columns that look like embedding
// vectors, where small pages make single-row lookups cheaper.
type VectorEmbeddingRule struct{}

func (VectorEmbeddingRule) Name() string { return "vector-embedding-page-size" }

func (r VectorEmbeddingRule) Check(file *metadata.FileContext) []Diagnostic {
	rows := file.TotalRows()
	if rows <= 0 {
		return nil
	}

	var out []Diagnostic
	for i := range file.Columns {
		col := &file.Columns[i]
		if !col.IsFloat() || col.MaxRepetitionLevel == 0 {
			continue
		}
		avg := col.TotalValues / rows
		if avg < embeddingValuesPerRow {
			continue
		}
		out = append(out, columnDiagnostic(r, SeverityWarning, col,
			fmt.Sprintf("column looks like a vector embedding (%d values/row on average), consider smaller page size for random-access lookups", avg),
			prescription.File(prescription.PropDataPageSizeLimit, prescription.Int(embeddingPageSize))))
	}
	return out
}

// RowGroupSizeRule flags row groups far from the 128 MiB sweet spot
type RowGroupSizeRule struct{}

func (RowGroupSizeRule) Name() string { return "page-row-group-size" }

func (r RowGroupSizeRule) Check(file *metadata.FileContext) []Diagnostic {
	var out []Diagnostic
	for _, rg := range file.RowGroups {
		size := rg.CompressedSize
		if rg.NumRows == 0 || size <= 0 {
			continue
		}

		var message string
		switch {
		case size < minRowGroupBytes:
			message = fmt.Sprintf("row group compressed size is %s (< 32 MB), consider larger row groups by increasing rows per row group", megabytes(size))
		case size > maxRowGroupBytes:
			message = fmt.Sprintf("row group compressed size is %s (> 512 MB), consider smaller row groups", megabytes(size))
		default:
			continue
		}

		out = append(out, Diagnostic{
			Rule:     r.Name(),
			Severity: SeverityWarning,
			Target:   RowGroupTarget(rg.Index),
			Message:  message,
			Fixes: []prescription.Directive{
				prescription.File(prescription.PropMaxRowGroupSize, prescription.Int(TargetRowGroupRows(rg.NumRows, size))),
			},
		})
	}
	return out
}

// TargetRowGroupRows scales rows so a row group of size bytes would
// compress to about 128 MiB. The result is at least 1.
func TargetRowGroupRows(rows, size int64) int64 {
	if rows <= 0 || size <= 0 {
		return 1
	}
	target := int64(math.Round(float64(rows) * targetRowGroupBytes / float64(size)))
	if target < 1 {
		return 1
	}
	return target
}
