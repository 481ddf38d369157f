package rules

import (
	"encoding/binary"
	"fmt"

	"github.com/ajitpratap0/parquet-linter/pkg/config"
	"github.com/ajitpratap0/parquet-linter/pkg/metadata"
	"github.com/ajitpratap0/parquet-linter/pkg/prescription"
)

// DictionaryEncodingRule compares dictionary use with estimated cardinality
type DictionaryEncodingRule struct{}

func (DictionaryEncodingRule) Name() string { return "dictionary-encoding-cardinality" }

func (r DictionaryEncodingRule) Check(file *metadata.FileContext) []Diagnostic {
	var out []Diagnostic
	for i := range file.Columns {
		col := &file.Columns[i]
		if col.TotalValues == 0 {
			continue
		}

		est := col.Cardinality
		ratio := est.Ratio()
		shape := fmt.Sprintf("~%d distinct / %d total = %s", est.Distinct, est.NonNull, percent(ratio))

		switch {
		case fellBack(col) && ratio > highCardinalityRatio:
			out = append(out, columnDiagnostic(r, SeverityWarning, col,
				"dictionary fell back to plain; estimated cardinality is high ("+shape+"), dictionary encoding is not beneficial",
				columnFix(col, prescription.PropDictionary, prescription.Bool(false))))
		case fellBack(col):
			out = append(out, columnDiagnostic(r, SeverityWarning, col,
				"dictionary fell back to plain; estimated cardinality is moderate ("+shape+"), dictionary page size may be too small",
				columnFix(col, prescription.PropDictionaryPageSizeLimit, prescription.Int(dictionaryPageSize))))
		case !col.HasDictionary() && est.NonNull > 0 && ratio < lowCardinalityRatio:
			out = append(out, columnDiagnostic(r, SeverityInfo, col,
				"low cardinality ("+shape+"), consider enabling dictionary encoding",
				columnFix(col, prescription.PropDictionary, prescription.Bool(true))))
		}
	}
	return out
}

// fellBack reports whether some chunk has a dictionary and also PLAIN data
// pages, which writers produce when the dictionary outgrows its page limit.
func fellBack(col *metadata.ColumnContext) bool {
	for _, chunk := range col.Chunks {
		if chunk.HasDictionary() && chunk.DataPagesUse(metadata.EncodingPlain) {
			return true
		}
	}
	return false
}

// FloatEncodingRule suggests BYTE_STREAM_SPLIT for scalar floating point data
type FloatEncodingRule struct{}

func (FloatEncodingRule) Name() string { return "float-byte-stream-split" }

func (r FloatEncodingRule) Check(file *metadata.FileContext) []Diagnostic {
	var out []Diagnostic
	for i := range file.Columns {
		col := &file.Columns[i]
		if !col.IsFloat() || col.MaxRepetitionLevel > 0 {
			continue
		}
		if !plainDataPages(col) || col.HasEncoding(metadata.EncodingByteStreamSplit) {
			continue
		}
		out = append(out, columnDiagnostic(r, SeverityInfo, col,
			"scalar float column using PLAIN encoding; BYTE_STREAM_SPLIT typically compresses 2-4x better",
			encodingFix(col, prescription.EncodingByteStreamSplit)))
	}
	return out
}

// plainDataPages reports whether some non-empty chunk writes PLAIN data
// pages. The PLAIN dictionary page of a dictionary encoded chunk does not
// count.
func plainDataPages(col *metadata.ColumnContext) bool {
	for _, chunk := range col.Chunks {
		if chunk.NumValues > 0 && chunk.DataPagesUse(metadata.EncodingPlain) {
			return true
		}
	}
	return false
}

// SortedIntegersRule suggests DELTA_BINARY_PACKED for sorted integer columns.
// Policy selects what counts as sorted: declared sorting columns always do,
// and under config.SortPolicyRowGroupBounds so do non-decreasing row group
// minimums.
type SortedIntegersRule struct {
	Policy string
}

func (SortedIntegersRule) Name() string { return "sorted-integer-delta" }

func (r SortedIntegersRule) Check(file *metadata.FileContext) []Diagnostic {
	var out []Diagnostic
	for i := range file.Columns {
		col := &file.Columns[i]
		if !col.IsInteger() || len(col.Chunks) == 0 || allDelta(col) {
			continue
		}

		var message string
		switch {
		case declaredSorted(file, col.Index):
			message = "sorted integer column; DELTA_BINARY_PACKED encoding is more efficient"
		case r.Policy != config.SortPolicyDeclaredOnly && boundsSorted(col):
			message = "integer column appears sorted across row groups; DELTA_BINARY_PACKED encoding is more efficient"
		default:
			continue
		}
		out = append(out, columnDiagnostic(r, SeverityInfo, col, message,
			encodingFix(col, prescription.EncodingDeltaBinaryPacked)))
	}
	return out
}

func allDelta(col *metadata.ColumnContext) bool {
	for _, chunk := range col.Chunks {
		if !chunk.HasEncoding(metadata.EncodingDeltaBinaryPacked) {
			return false
		}
	}
	return true
}

func declaredSorted(file *metadata.FileContext, column int) bool {
	for _, rg := range file.RowGroups {
		for _, sc := range rg.SortingColumns {
			if sc.ColumnIndex == column {
				return true
			}
		}
	}
	return false
}

// boundsSorted decodes the min statistic of every non-empty chunk and checks
// them with Monotonic. A non-empty chunk without a min disqualifies the
// column.
func boundsSorted(col *metadata.ColumnContext) bool {
	mins := make([]int64, 0, len(col.Chunks))
	for _, chunk := range col.Chunks {
		if chunk.NumValues == 0 {
			continue
		}
		v, ok := decodeInt(col.PhysicalType, chunk.Min)
		if !ok {
			return false
		}
		mins = append(mins, v)
	}
	return Monotonic(mins)
}

// Monotonic reports whether mins holds at least two values and never
// decreases
func Monotonic(mins []int64) bool {
	if len(mins) < 2 {
		return false
	}
	for i := 1; i < len(mins); i++ {
		if mins[i] < mins[i-1] {
			return false
		}
	}
	return true
}

// decodeInt reads a plain-encoded INT32 or INT64 statistic
func decodeInt(t metadata.PhysicalType, b []byte) (int64, bool) {
	switch {
	case t == metadata.Int32 && len(b) == 4:
		return int64(int32(binary.LittleEndian.Uint32(b))), true
	case t == metadata.Int64 && len(b) == 8:
		return int64(binary.LittleEndian.Uint64(b)), true
	}
	return 0, false
}

// TimestampEncodingRule suggests DELTA_BINARY_PACKED for dates and timestamps
type TimestampEncodingRule struct{}

func (TimestampEncodingRule) Name() string { return "timestamp-delta-encoding" }

func (r TimestampEncodingRule) Check(file *metadata.FileContext) []Diagnostic {
	var out []Diagnostic
	for i := range file.Columns {
		col := &file.Columns[i]
		if !col.IsInteger() || !col.Logical.IsTemporal() {
			continue
		}

		nonEmpty := col.NonEmptyChunks()
		plain := 0
		for _, chunk := range col.Chunks {
			if chunk.NumValues > 0 &&
				chunk.DataPagesUse(metadata.EncodingPlain) &&
				!chunk.HasEncoding(metadata.EncodingDeltaBinaryPacked) {
				plain++
			}
		}
		if plain == 0 {
			continue
		}

		out = append(out, columnDiagnostic(r, SeverityInfo, col,
			fmt.Sprintf("timestamp/date column uses PLAIN without DELTA_BINARY_PACKED in %d/%d row groups; DELTA_BINARY_PACKED is typically more efficient for temporal data",
				plain, nonEmpty),
			encodingFix(col, prescription.EncodingDeltaBinaryPacked)))
	}
	return out
}
