// Package prescription implements the declarative change-set language that
// drives a rewrite:
//
//	# comments and blank lines are ignored
//	set file compression zstd(3)
//	set column user_id encoding delta_binary_packed
//
// Parse turns text into a Prescription, an ordered directive list, and Fold
// reduces it to a ResolvedConfiguration where the last directive for each
// key wins.
package prescription

import (
	"strconv"
	"strings"
)

// Scope selects what a directive applies to
type Scope string

const (
	ScopeFile   Scope = "file"
	ScopeColumn Scope = "column"
)

// Property names a writer setting
type Property string

// File properties
const (
	PropCompression              Property = "compression"
	PropMaxRowGroupSize          Property = "max_row_group_size"
	PropDataPageSizeLimit        Property = "data_page_size_limit"
	PropStatisticsTruncateLength Property = "statistics_truncate_length"
)

// Column properties. PropCompression is valid in both scopes.
const (
	PropEncoding                Property = "encoding"
	PropDictionary              Property = "dictionary"
	PropDictionaryPageSizeLimit Property = "dictionary_page_size_limit"
	PropStatistics              Property = "statistics"
	PropBloomFilter             Property = "bloom_filter"
	PropBloomFilterNDV          Property = "bloom_filter_ndv"
	PropBloomFilterFPP          Property = "bloom_filter_fpp"
)

var fileProperties = map[Property]bool{
	PropCompression:              true,
	PropMaxRowGroupSize:          true,
	PropDataPageSizeLimit:        true,
	PropStatisticsTruncateLength: true,
}

var columnProperties = map[Property]bool{
	PropCompression:             true,
	PropEncoding:                true,
	PropDictionary:              true,
	PropDictionaryPageSizeLimit: true,
	PropStatistics:              true,
	PropBloomFilter:             true,
	PropBloomFilterNDV:          true,
	PropBloomFilterFPP:          true,
}

// Codec names accepted by the compression property
type Codec string

const (
	CodecUncompressed Codec = "uncompressed"
	CodecSnappy       Codec = "snappy"
	CodecGzip         Codec = "gzip"
	CodecBrotli       Codec = "brotli"
	CodecZstd         Codec = "zstd"
	CodecLZ4Raw       Codec = "lz4_raw"
)

// DataEncoding names accepted by the encoding property
type DataEncoding string

const (
	EncodingPlain                DataEncoding = "plain"
	EncodingDeltaBinaryPacked    DataEncoding = "delta_binary_packed"
	EncodingDeltaLengthByteArray DataEncoding = "delta_length_byte_array"
	EncodingDeltaByteArray       DataEncoding = "delta_byte_array"
	EncodingByteStreamSplit      DataEncoding = "byte_stream_split"
)

// StatisticsLevel names accepted by the statistics property
type StatisticsLevel string

const (
	StatisticsNone  StatisticsLevel = "none"
	StatisticsChunk StatisticsLevel = "chunk"
	StatisticsPage  StatisticsLevel = "page"
)

// Value is a directive argument: a bare token, or a name with an integer
// parameter such as zstd(3).
type Value struct {
	Name     string
	Level    int
	HasLevel bool
}

// Ident returns a Value without a level
func Ident(name string) Value {
	return Value{Name: name}
}

// Leveled returns name(level)
func Leveled(name string, level int) Value {
	return Value{Name: name, Level: level, HasLevel: true}
}

// Int returns a Value holding n
func Int(n int64) Value {
	return Value{Name: strconv.FormatInt(n, 10)}
}

// Bool returns a Value holding true or false
func Bool(b bool) Value {
	return Value{Name: strconv.FormatBool(b)}
}

func (v Value) String() string {
	if v.HasLevel {
		return v.Name + "(" + strconv.Itoa(v.Level) + ")"
	}
	return v.Name
}

// AsInt returns the value as an integer
func (v Value) AsInt() (int64, bool) {
	if v.HasLevel {
		return 0, false
	}
	n, err := strconv.ParseInt(v.Name, 10, 64)
	return n, err == nil
}

// AsFloat returns the value as a float
func (v Value) AsFloat() (float64, bool) {
	if v.HasLevel {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.Name, 64)
	return f, err == nil
}

// AsBool returns the value as a boolean
func (v Value) AsBool() (bool, bool) {
	switch v.Name {
	case "true":
		return true, !v.HasLevel
	case "false":
		return false, !v.HasLevel
	}
	return false, false
}

// Codec returns the codec name of a compression value
func (v Value) Codec() Codec { return Codec(v.Name) }

// Encoding returns the encoding name of an encoding value
func (v Value) Encoding() DataEncoding { return DataEncoding(v.Name) }

// Statistics returns the level of a statistics value
func (v Value) Statistics() StatisticsLevel { return StatisticsLevel(v.Name) }

// Key identifies the setting a directive assigns
type Key struct {
	Scope    Scope
	Path     string
	Property Property
}

func (k Key) String() string {
	if k.Scope == ScopeColumn {
		return string(k.Scope) + " " + k.Path + " " + string(k.Property)
	}
	return string(k.Scope) + " " + string(k.Property)
}

// Directive is one set instruction. Path is empty for file scope.
type Directive struct {
	Scope    Scope
	Path     string
	Property Property
	Value    Value
}

// File returns a file scoped directive
func File(property Property, value Value) Directive {
	return Directive{Scope: ScopeFile, Property: property, Value: value}
}

// Column returns a column scoped directive
func Column(path string, property Property, value Value) Directive {
	return Directive{Scope: ScopeColumn, Path: path, Property: property, Value: value}
}

// Key returns the setting d assigns
func (d Directive) Key() Key {
	return Key{Scope: d.Scope, Path: d.Path, Property: d.Property}
}

func (d Directive) String() string {
	var b strings.Builder
	b.WriteString("set ")
	b.WriteString(string(d.Scope))
	b.WriteByte(' ')
	if d.Scope == ScopeColumn {
		b.WriteString(d.Path)
		b.WriteByte(' ')
	}
	b.WriteString(string(d.Property))
	b.WriteByte(' ')
	b.WriteString(d.Value.String())
	return b.String()
}

// MarshalText renders d as its directive line
func (d Directive) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type entry struct {
	directive Directive
	line      int
}

// Prescription is an ordered list of directives, each remembering the source
// line it was parsed from (0 when built in code).
type Prescription struct {
	entries []entry
}

// New returns a prescription holding directives in order
func New(directives ...Directive) Prescription {
	var p Prescription
	for _, d := range directives {
		p.Append(d)
	}
	return p
}

// Append adds d at the end with no source line
func (p *Prescription) Append(d Directive) {
	p.entries = append(p.entries, entry{directive: d})
}

func (p *Prescription) appendLine(d Directive, line int) {
	p.entries = append(p.entries, entry{directive: d, line: line})
}

// Len returns the number of directives
func (p Prescription) Len() int { return len(p.entries) }

// IsEmpty reports whether p has no directives
func (p Prescription) IsEmpty() bool { return len(p.entries) == 0 }

// Directives returns the directives in order
func (p Prescription) Directives() []Directive {
	out := make([]Directive, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.directive
	}
	return out
}

// Line returns the source line of the i-th directive
func (p Prescription) Line(i int) int { return p.entries[i].line }

// String renders p in the prescription grammar, one directive per line
func (p Prescription) String() string {
	lines := make([]string, len(p.entries))
	for i, e := range p.entries {
		lines[i] = e.directive.String()
	}
	return strings.Join(lines, "\n")
}
