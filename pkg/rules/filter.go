package rules

import (
	"sort"
	"strings"

	"github.com/ajitpratap0/parquet-linter/pkg/errors"
	"github.com/ajitpratap0/parquet-linter/pkg/prescription"
)

// FilterOptions selects a subset of diagnostics
type FilterOptions struct {
	// MinSeverity drops diagnostics below it
	MinSeverity Severity
	// Rules keeps only the named rules; empty keeps every rule
	Rules []string
}

// Filter returns the diagnostics matching opts in their original order. A
// rule name that is not in the registry is a validation error.
func Filter(diags []Diagnostic, opts FilterOptions) ([]Diagnostic, error) {
	var keep map[string]bool
	if len(opts.Rules) > 0 {
		known := make(map[string]bool)
		for _, name := range Names() {
			known[name] = true
		}
		keep = make(map[string]bool, len(opts.Rules))
		var unknown []string
		for _, name := range opts.Rules {
			if !known[name] {
				unknown = append(unknown, name)
				continue
			}
			keep[name] = true
		}
		if len(unknown) > 0 {
			return nil, errors.Newf(errors.ErrorTypeValidation, "unknown rule %s", strings.Join(unknown, ", ")).
				WithDetail("known", Names())
		}
	}

	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		if d.Severity < opts.MinSeverity {
			continue
		}
		if keep != nil && !keep[d.Rule] {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// Counts returns the number of diagnostics of each severity
func Counts(diags []Diagnostic) map[Severity]int {
	counts := make(map[Severity]int, 2)
	for _, d := range diags {
		counts[d.Severity]++
	}
	return counts
}

// Export turns the fixes of diags into a prescription. Fixes assigning the
// same key are deduplicated; the one appearing last wins, so diagnostics of a
// later rule override earlier ones exactly as Fold would. The surviving
// directives keep the relative order in which they appeared.
func Export(diags []Diagnostic) prescription.Prescription {
	var fixes []prescription.Directive
	for _, d := range diags {
		fixes = append(fixes, d.Fixes...)
	}

	last := make(map[prescription.Key]int, len(fixes))
	for i, f := range fixes {
		last[f.Key()] = i
	}
	winners := make([]int, 0, len(last))
	for _, i := range last {
		winners = append(winners, i)
	}
	sort.Ints(winners)

	var p prescription.Prescription
	for _, i := range winners {
		p.Append(fixes[i])
	}
	return p
}
