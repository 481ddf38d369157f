package benchmark

import "github.com/ajitpratap0/parquet-linter/pkg/prescription"

// Report is a measurement together with the prescription that produced the
// measured file
type Report struct {
	Measurement
	DirectiveCount int `json:"directive_count"`
	// ConflictWarning is set when the prescription assigned one key
	// different values
	ConflictWarning bool `json:"conflict_warning"`
}

// NewReport attaches the prescription summary of cfg to m
func NewReport(m Measurement, cfg prescription.ResolvedConfiguration) Report {
	return Report{
		Measurement:     m,
		DirectiveCount:  cfg.DirectiveCount,
		ConflictWarning: cfg.ConflictWarning,
	}
}

// Comparison is the cost of a file before and after a rewrite
type Comparison struct {
	Original Measurement `json:"original"`
	Output   Report      `json:"output"`
	// CostChangePercent is negative when the rewrite lowered the cost
	CostChangePercent float64 `json:"cost_change_percent"`
}

// Compare builds a Comparison
func Compare(original Measurement, output Report) Comparison {
	return Comparison{
		Original:          original,
		Output:            output,
		CostChangePercent: PercentChange(original.Cost, output.Cost),
	}
}

// PercentChange returns the relative change from before to after in percent,
// or zero when before is zero
func PercentChange(before, after float64) float64 {
	if before == 0 {
		return 0
	}
	return (after - before) / before * 100
}
