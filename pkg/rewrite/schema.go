package rewrite

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/ajitpratap0/parquet-linter/pkg/errors"
)

// FieldDiff is one difference between a source and an output field
type FieldDiff struct {
	Path   string
	Reason string
}

func (d FieldDiff) String() string {
	return d.Path + ": " + d.Reason
}

// SchemaMismatchError reports an output whose logical schema differs from
// its source
type SchemaMismatchError struct {
	Diffs []FieldDiff
}

func (e *SchemaMismatchError) Error() string {
	parts := make([]string, len(e.Diffs))
	for i, d := range e.Diffs {
		parts[i] = d.String()
	}
	return "rewritten schema does not match source: " + strings.Join(parts, "; ")
}

// ErrorType implements errors.Typed
func (e *SchemaMismatchError) ErrorType() errors.ErrorType { return errors.ErrorTypeSchemaMismatch }

// CompareSchemas returns the field-level differences between want and got:
// names, order, nullability and types, recursing into nested types. Schema
// level metadata is ignored.
func CompareSchemas(want, got *arrow.Schema) []FieldDiff {
	return compareFields("", want.Fields(), got.Fields())
}

func compareFields(prefix string, want, got []arrow.Field) []FieldDiff {
	var diffs []FieldDiff
	if len(want) != len(got) {
		diffs = append(diffs, FieldDiff{
			Path:   pathOr(prefix, "<root>"),
			Reason: fmt.Sprintf("field count %d, want %d", len(got), len(want)),
		})
	}

	for i := 0; i < min(len(want), len(got)); i++ {
		w, g := want[i], got[i]
		path := joinPath(prefix, w.Name)

		if w.Name != g.Name {
			diffs = append(diffs, FieldDiff{Path: path, Reason: fmt.Sprintf("name %q at position %d, want %q", g.Name, i, w.Name)})
			continue
		}
		if w.Nullable != g.Nullable {
			diffs = append(diffs, FieldDiff{Path: path, Reason: fmt.Sprintf("nullable %t, want %t", g.Nullable, w.Nullable)})
		}
		if arrow.TypeEqual(w.Type, g.Type) {
			continue
		}

		wn, wok := w.Type.(arrow.NestedType)
		gn, gok := g.Type.(arrow.NestedType)
		if wok && gok && w.Type.ID() == g.Type.ID() {
			if nested := compareFields(path, wn.Fields(), gn.Fields()); len(nested) > 0 {
				diffs = append(diffs, nested...)
				continue
			}
		}
		diffs = append(diffs, FieldDiff{Path: path, Reason: fmt.Sprintf("type %s, want %s", g.Type, w.Type)})
	}
	return diffs
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func pathOr(path, fallback string) string {
	if path == "" {
		return fallback
	}
	return path
}
