package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ajitpratap0/parquet-linter/pkg/errors"
	"github.com/ajitpratap0/parquet-linter/pkg/prescription"
)

// Severity ranks a diagnostic
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	default:
		return "Severity(" + strconv.Itoa(int(s)) + ")"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity turns "info" or "warning" into a Severity
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return SeverityInfo, nil
	case "warning", "warn":
		return SeverityWarning, nil
	}
	return SeverityInfo, errors.Newf(errors.ErrorTypeValidation, "unknown severity %q, expected info or warning", s)
}

// Target is what a diagnostic is about: the whole file, one row group of it,
// or a column.
type Target struct {
	// Column is the dotted path, empty for file-level targets
	Column string `json:"column,omitempty"`
	// RowGroup is the row group index; -1 when the target is not a row group
	RowGroup int `json:"row_group"`
}

// FileTarget targets the file as a whole
func FileTarget() Target { return Target{RowGroup: -1} }

// RowGroupTarget targets one row group of the file
func RowGroupTarget(index int) Target { return Target{RowGroup: index} }

// ColumnTarget targets the column at path
func ColumnTarget(path string) Target { return Target{Column: path, RowGroup: -1} }

// IsFile reports whether t is file-level, with or without a row group
func (t Target) IsFile() bool { return t.Column == "" }

func (t Target) String() string {
	switch {
	case t.Column != "":
		return "column " + t.Column
	case t.RowGroup >= 0:
		return fmt.Sprintf("row group %d", t.RowGroup)
	default:
		return "file"
	}
}

// less orders file-level targets first, by row group index, then columns by
// path.
func (t Target) less(o Target) bool {
	if t.IsFile() != o.IsFile() {
		return t.IsFile()
	}
	if t.IsFile() {
		return t.RowGroup < o.RowGroup
	}
	return t.Column < o.Column
}

// Diagnostic is one finding of one rule
type Diagnostic struct {
	Rule     string                   `json:"rule"`
	Severity Severity                 `json:"severity"`
	Target   Target                   `json:"target"`
	Message  string                   `json:"message"`
	Fixes    []prescription.Directive `json:"fixes"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s [%s] %s: %s", d.Severity, d.Rule, d.Target, d.Message)
}

// FixText renders the suggested directives in the prescription grammar
func (d Diagnostic) FixText() []string {
	out := make([]string, len(d.Fixes))
	for i, f := range d.Fixes {
		out[i] = f.String()
	}
	return out
}
