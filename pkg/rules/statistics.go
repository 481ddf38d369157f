package rules

import (
	"fmt"

	"github.com/ajitpratap0/parquet-linter/pkg/metadata"
	"github.com/ajitpratap0/parquet-linter/pkg/prescription"
)

// PageStatisticsRule flags columns without a page-level column index
type PageStatisticsRule struct{}

func (PageStatisticsRule) Name() string { return "missing-page-statistics" }

func (r PageStatisticsRule) Check(file *metadata.FileContext) []Diagnostic {
	var out []Diagnostic
	for i := range file.Columns {
		col := &file.Columns[i]
		missing := col.ChunksMissingColumnIndex()
		if missing == 0 {
			continue
		}
		out = append(out, columnDiagnostic(r, SeverityWarning, col,
			fmt.Sprintf("no page-level column index found in %d/%d row groups; page statistics are missing",
				missing, len(col.Chunks)),
			columnFix(col, prescription.PropStatistics, prescription.Ident(string(prescription.StatisticsPage)))))
	}
	return out
}

// StringStatisticsRule flags byte array columns carrying long min/max values.
// Statistics the writer marked as inexact were already truncated and do not
// count.
type StringStatisticsRule struct{}

func (StringStatisticsRule) Name() string { return "oversized-string-statistics" }

func (r StringStatisticsRule) Check(file *metadata.FileContext) []Diagnostic {
	var out []Diagnostic
	for i := range file.Columns {
		col := &file.Columns[i]
		if col.PhysicalType != metadata.ByteArray {
			continue
		}

		var affected, peakMin, peakMax int
		for _, chunk := range col.Chunks {
			minLen, maxLen := untruncatedLength(chunk.Min, chunk.MinTruncated), untruncatedLength(chunk.Max, chunk.MaxTruncated)
			if minLen <= maxStatisticsLength && maxLen <= maxStatisticsLength {
				continue
			}
			affected++
			peakMin = max(peakMin, minLen)
			peakMax = max(peakMax, maxLen)
		}
		if affected == 0 {
			continue
		}

		out = append(out, columnDiagnostic(r, SeverityWarning, col,
			fmt.Sprintf("string statistics are large (up to min: %dB, max: %dB) in %d/%d row groups and untruncated; consider truncating to %d bytes",
				peakMin, peakMax, affected, len(col.Chunks), maxStatisticsLength),
			prescription.File(prescription.PropStatisticsTruncateLength, prescription.Int(maxStatisticsLength))))
	}
	return out
}

func untruncatedLength(stat []byte, truncated bool) int {
	if truncated {
		return 0
	}
	return len(stat)
}
