package prescription

import (
	"sort"

	"github.com/ajitpratap0/parquet-linter/pkg/metrics"
)

// Resolved is the winning value of a key and the line that set it
type Resolved struct {
	Value Value
	Line  int
}

// Conflict records a key assigned a different value by a later directive
type Conflict struct {
	Key        Key
	FirstLine  int
	SecondLine int
	Old        Value
	New        Value
}

// ResolvedConfiguration is the outcome of folding a prescription
type ResolvedConfiguration struct {
	values map[Key]Resolved
	// order holds keys in first-assignment order
	order []Key

	Conflicts       []Conflict
	DirectiveCount  int
	ConflictWarning bool
}

// accumulator is threaded through Fold one directive at a time
type accumulator struct {
	values    map[Key]Resolved
	order     []Key
	conflicts []Conflict
	count     int
}

func (acc accumulator) step(d Directive, line int) accumulator {
	key := d.Key()
	acc.count++

	prev, seen := acc.values[key]
	switch {
	case !seen:
		acc.order = append(acc.order, key)
	case prev.Value != d.Value:
		acc.conflicts = append(acc.conflicts, Conflict{
			Key:        key,
			FirstLine:  prev.Line,
			SecondLine: line,
			Old:        prev.Value,
			New:        d.Value,
		})
	}
	acc.values[key] = Resolved{Value: d.Value, Line: line}
	return acc
}

// Fold reduces p left to right. For every key the last directive wins;
// reassignments with a different value are reported as conflicts, repeats
// of the same value are not.
func Fold(p Prescription) ResolvedConfiguration {
	acc := accumulator{values: make(map[Key]Resolved, len(p.entries))}
	for _, e := range p.entries {
		acc = acc.step(e.directive, e.line)
	}

	metrics.PrescriptionConflicts.Add(float64(len(acc.conflicts)))

	return ResolvedConfiguration{
		values:          acc.values,
		order:           acc.order,
		Conflicts:       acc.conflicts,
		DirectiveCount:  acc.count,
		ConflictWarning: len(acc.conflicts) > 0,
	}
}

// Get returns the resolved value of key
func (r ResolvedConfiguration) Get(key Key) (Resolved, bool) {
	v, ok := r.values[key]
	return v, ok
}

// File returns the resolved value of a file property
func (r ResolvedConfiguration) File(property Property) (Value, bool) {
	v, ok := r.values[Key{Scope: ScopeFile, Property: property}]
	return v.Value, ok
}

// Column returns the resolved value of a column property
func (r ResolvedConfiguration) Column(path string, property Property) (Value, bool) {
	v, ok := r.values[Key{Scope: ScopeColumn, Path: path, Property: property}]
	return v.Value, ok
}

// Keys returns every resolved key in first-assignment order
func (r ResolvedConfiguration) Keys() []Key {
	return append([]Key(nil), r.order...)
}

// Len returns the number of resolved keys
func (r ResolvedConfiguration) Len() int { return len(r.order) }

// ColumnPaths returns the sorted distinct paths with at least one column key
func (r ResolvedConfiguration) ColumnPaths() []string {
	seen := make(map[string]struct{})
	var paths []string
	for _, k := range r.order {
		if k.Scope != ScopeColumn {
			continue
		}
		if _, ok := seen[k.Path]; ok {
			continue
		}
		seen[k.Path] = struct{}{}
		paths = append(paths, k.Path)
	}
	sort.Strings(paths)
	return paths
}

// Prescription returns the winning directives in first-assignment order,
// each with the line of its winning value.
func (r ResolvedConfiguration) Prescription() Prescription {
	var p Prescription
	for _, k := range r.order {
		v := r.values[k]
		p.appendLine(Directive{Scope: k.Scope, Path: k.Path, Property: k.Property, Value: v.Value}, v.Line)
	}
	return p
}
