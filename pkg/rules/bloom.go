package rules

import (
	"fmt"

	"github.com/ajitpratap0/parquet-linter/pkg/metadata"
	"github.com/ajitpratap0/parquet-linter/pkg/prescription"
)

// BloomFilterRule suggests bloom filters for byte array columns that are
// point-lookup candidates: UUIDs, or anything with mostly distinct values.
type BloomFilterRule struct{}

func (BloomFilterRule) Name() string { return "bloom-filter-recommendation" }

func (r BloomFilterRule) Check(file *metadata.FileContext) []Diagnostic {
	var out []Diagnostic
	for i := range file.Columns {
		col := &file.Columns[i]
		if !col.IsByteArray() {
			continue
		}
		nonEmpty := col.NonEmptyChunks()
		missing := col.ChunksMissingBloomFilter()
		if nonEmpty == 0 || missing == 0 {
			continue
		}

		ndv := col.Cardinality.Distinct
		var message string
		switch {
		case col.Logical == metadata.LogicalUUID:
			message = fmt.Sprintf("UUID column missing bloom filters in %d/%d row groups; bloom filters enable fast point lookups",
				missing, nonEmpty)
		case col.Cardinality.Ratio() > highCardinalityRatio:
			message = fmt.Sprintf("high-cardinality byte array column missing bloom filters in %d/%d row groups (~%d estimated distinct values)",
				missing, nonEmpty, ndv)
		default:
			continue
		}

		fixes := []prescription.Directive{columnFix(col, prescription.PropBloomFilter, prescription.Bool(true))}
		if ndv > 0 {
			fixes = append(fixes, columnFix(col, prescription.PropBloomFilterNDV, prescription.Int(int64(ndv))))
		}
		out = append(out, columnDiagnostic(r, SeverityInfo, col, message, fixes...))
	}
	return out
}
