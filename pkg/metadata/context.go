// Package metadata is the read-only, in-memory model of a parquet file's row
// groups, column chunks, statistics and page layout. Everything else in the
// linter consumes it; nothing mutates it after Build returns.
package metadata

import (
	"sort"
	"strings"
)

// SortingColumn is one entry of a row group's declared sort order
type SortingColumn struct {
	ColumnIndex int  `json:"column_index"`
	Descending  bool `json:"descending"`
	NullsFirst  bool `json:"nulls_first"`
}

// RowGroup describes one horizontal partition of the file
type RowGroup struct {
	Index          int             `json:"index"`
	NumRows        int64           `json:"num_rows"`
	TotalByteSize  int64           `json:"total_byte_size"`
	CompressedSize int64           `json:"compressed_size"`
	SortingColumns []SortingColumn `json:"sorting_columns,omitempty"`
}

// PageEncodingStat counts pages of one type written with one encoding
type PageEncodingStat struct {
	PageType PageType `json:"page_type"`
	Encoding Encoding `json:"encoding"`
	Count    int32    `json:"count"`
}

// Chunk holds the facts of one column chunk
type Chunk struct {
	RowGroup         int                `json:"row_group"`
	NumValues        int64              `json:"num_values"`
	NullCount        int64              `json:"null_count"`
	NullCountKnown   bool               `json:"null_count_known"`
	DistinctCount    int64              `json:"distinct_count"`
	HasDistinctCount bool               `json:"has_distinct_count"`
	Codec            Codec              `json:"codec"`
	Encodings        []Encoding         `json:"encodings"`
	EncodingStats    []PageEncodingStat `json:"encoding_stats,omitempty"`
	CompressedSize   int64              `json:"compressed_size"`
	UncompressedSize int64              `json:"uncompressed_size"`
	DataPageOffset   int64              `json:"data_page_offset"`
	// DictionaryPageOffset is 0 when the footer does not record one
	DictionaryPageOffset int64  `json:"dictionary_page_offset"`
	HasColumnIndex       bool   `json:"has_column_index"`
	HasBloomFilter       bool   `json:"has_bloom_filter"`
	Min                  []byte `json:"-"`
	Max                  []byte `json:"-"`
	// MinTruncated and MaxTruncated are set when the writer flagged the
	// statistic as inexact, typically because it was truncated
	MinTruncated bool `json:"min_truncated,omitempty"`
	MaxTruncated bool `json:"max_truncated,omitempty"`
}

// NonNull returns the chunk's non-null value count. Unknown null counts are
// taken as zero.
func (c Chunk) NonNull() uint64 {
	if c.NumValues <= 0 {
		return 0
	}
	nulls := c.NullCount
	if nulls < 0 {
		nulls = 0
	}
	if nulls > c.NumValues {
		nulls = c.NumValues
	}
	return uint64(c.NumValues - nulls)
}

// HasEncoding reports whether e appears in the chunk's encoding list
func (c Chunk) HasEncoding(e Encoding) bool {
	for _, enc := range c.Encodings {
		if enc == e {
			return true
		}
	}
	return false
}

// HasDictionary reports whether the chunk is dictionary encoded
func (c Chunk) HasDictionary() bool {
	if c.DictionaryPageOffset > 0 {
		return true
	}
	for _, s := range c.EncodingStats {
		if s.PageType == PageDictionary && s.Count > 0 {
			return true
		}
	}
	for _, e := range c.Encodings {
		if e.IsDictionary() {
			return true
		}
	}
	return false
}

// DataPagesUse reports whether any data page of the chunk uses e. Page
// encoding stats are authoritative when the writer recorded them; otherwise
// the chunk's encoding list stands in, which also names the encoding of the
// dictionary page itself.
func (c Chunk) DataPagesUse(e Encoding) bool {
	if len(c.EncodingStats) > 0 {
		for _, s := range c.EncodingStats {
			if s.PageType.IsData() && s.Encoding == e && s.Count > 0 {
				return true
			}
		}
		return false
	}
	return c.HasEncoding(e)
}

// ColumnContext describes one leaf column across every row group
type ColumnContext struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
	// PathParts is Path split on "."
	PathParts          []string     `json:"-"`
	PhysicalType       PhysicalType `json:"physical_type"`
	TypeLength         int          `json:"type_length,omitempty"`
	Logical            LogicalKind  `json:"logical_type,omitempty"`
	MaxRepetitionLevel int          `json:"max_repetition_level"`
	MaxDefinitionLevel int          `json:"max_definition_level"`
	// Nested is true for leaves under a list, map or struct
	Nested bool `json:"nested"`

	Chunks []Chunk `json:"chunks"`

	TotalValues      int64 `json:"total_values"`
	NullCount        int64 `json:"null_count"`
	NullCountKnown   bool  `json:"null_count_known"`
	CompressedSize   int64 `json:"compressed_size"`
	UncompressedSize int64 `json:"uncompressed_size"`
	// Encodings is the sorted union across chunks
	Encodings []Encoding `json:"encodings"`

	Cardinality CardinalityEstimate `json:"cardinality"`
}

// NonNull returns the column's non-null value count over the file
func (c *ColumnContext) NonNull() uint64 {
	var total uint64
	for _, chunk := range c.Chunks {
		total += chunk.NonNull()
	}
	return total
}

// Codec returns the codec of the first chunk
func (c *ColumnContext) Codec() Codec {
	if len(c.Chunks) == 0 {
		return CodecUncompressed
	}
	return c.Chunks[0].Codec
}

// HasEncoding reports whether any chunk lists e
func (c *ColumnContext) HasEncoding(e Encoding) bool {
	for _, enc := range c.Encodings {
		if enc == e {
			return true
		}
	}
	return false
}

// HasDictionary reports whether any chunk is dictionary encoded
func (c *ColumnContext) HasDictionary() bool {
	for _, chunk := range c.Chunks {
		if chunk.HasDictionary() {
			return true
		}
	}
	return false
}

// HasColumnIndex reports whether every chunk has a page-level column index
func (c *ColumnContext) HasColumnIndex() bool {
	return c.ChunksMissingColumnIndex() == 0
}

// ChunksMissingColumnIndex counts chunks without a page-level column index
func (c *ColumnContext) ChunksMissingColumnIndex() int {
	missing := 0
	for _, chunk := range c.Chunks {
		if !chunk.HasColumnIndex {
			missing++
		}
	}
	return missing
}

// HasBloomFilter reports whether every non-empty chunk has a bloom filter
func (c *ColumnContext) HasBloomFilter() bool {
	return c.ChunksMissingBloomFilter() == 0
}

// ChunksMissingBloomFilter counts non-empty chunks without a bloom filter
func (c *ColumnContext) ChunksMissingBloomFilter() int {
	missing := 0
	for _, chunk := range c.Chunks {
		if chunk.NumValues > 0 && !chunk.HasBloomFilter {
			missing++
		}
	}
	return missing
}

// NonEmptyChunks counts chunks holding at least one value
func (c *ColumnContext) NonEmptyChunks() int {
	n := 0
	for _, chunk := range c.Chunks {
		if chunk.NumValues > 0 {
			n++
		}
	}
	return n
}

// IsFloat reports whether the column stores FLOAT or DOUBLE values
func (c *ColumnContext) IsFloat() bool {
	return c.PhysicalType == Float || c.PhysicalType == Double
}

// IsInteger reports whether the column stores INT32 or INT64 values
func (c *ColumnContext) IsInteger() bool {
	return c.PhysicalType == Int32 || c.PhysicalType == Int64
}

// IsByteArray reports whether the column stores variable or fixed length bytes
func (c *ColumnContext) IsByteArray() bool {
	return c.PhysicalType == ByteArray || c.PhysicalType == FixedLenByteArray
}

// WriterSettings are the file-level writer knobs observable in the footer
type WriterSettings struct {
	// MaxRowGroupRows is the largest row count of any row group
	MaxRowGroupRows int64 `json:"max_row_group_rows"`
	// MaxRowGroupBytes is the largest compressed size of any row group
	MaxRowGroupBytes int64 `json:"max_row_group_bytes"`
	// MaxStatisticsLength is the longest min or max statistic of any chunk
	MaxStatisticsLength int    `json:"max_statistics_length"`
	CreatedBy           string `json:"created_by"`
}

// FileContext is the analysis snapshot of one file
type FileContext struct {
	Path      string          `json:"path"`
	Size      int64           `json:"size"`
	Version   int32           `json:"version"`
	NumRows   int64           `json:"num_rows"`
	RowGroups []RowGroup      `json:"row_groups"`
	Columns   []ColumnContext `json:"columns"`
	// Flat is true when every top-level field is a non-repeated leaf
	Flat     bool           `json:"flat"`
	Settings WriterSettings `json:"settings"`
}

// Column returns the column with the given dotted path
func (f *FileContext) Column(path string) (*ColumnContext, bool) {
	for i := range f.Columns {
		if f.Columns[i].Path == path {
			return &f.Columns[i], true
		}
	}
	return nil, false
}

// ColumnPaths returns every leaf path in schema order
func (f *FileContext) ColumnPaths() []string {
	paths := make([]string, len(f.Columns))
	for i := range f.Columns {
		paths[i] = f.Columns[i].Path
	}
	return paths
}

// TotalRows sums row counts over row groups
func (f *FileContext) TotalRows() int64 {
	var n int64
	for _, rg := range f.RowGroups {
		n += rg.NumRows
	}
	return n
}

// WithEstimates returns a copy of f whose columns carry the given estimates,
// indexed like f.Columns. f itself is left untouched.
func (f *FileContext) WithEstimates(estimates []CardinalityEstimate) *FileContext {
	out := *f
	out.Columns = make([]ColumnContext, len(f.Columns))
	copy(out.Columns, f.Columns)
	for i := range out.Columns {
		if i < len(estimates) {
			out.Columns[i].Cardinality = estimates[i]
		}
	}
	return &out
}

// Finalize computes the per-column aggregates from the chunk lists and the
// file-level writer settings. Build calls it; tests constructing contexts by
// hand call it too.
func (f *FileContext) Finalize() {
	f.Settings.MaxRowGroupRows = 0
	f.Settings.MaxRowGroupBytes = 0
	f.NumRows = 0
	for _, rg := range f.RowGroups {
		f.NumRows += rg.NumRows
		if rg.NumRows > f.Settings.MaxRowGroupRows {
			f.Settings.MaxRowGroupRows = rg.NumRows
		}
		if rg.CompressedSize > f.Settings.MaxRowGroupBytes {
			f.Settings.MaxRowGroupBytes = rg.CompressedSize
		}
	}

	f.Settings.MaxStatisticsLength = 0
	for i := range f.Columns {
		col := &f.Columns[i]
		col.Index = i
		if col.PathParts == nil {
			col.PathParts = strings.Split(col.Path, ".")
		}
		col.TotalValues, col.NullCount = 0, 0
		col.CompressedSize, col.UncompressedSize = 0, 0
		col.NullCountKnown = len(col.Chunks) > 0

		seen := make(map[Encoding]struct{})
		for _, chunk := range col.Chunks {
			col.TotalValues += chunk.NumValues
			col.NullCount += chunk.NullCount
			col.CompressedSize += chunk.CompressedSize
			col.UncompressedSize += chunk.UncompressedSize
			if !chunk.NullCountKnown {
				col.NullCountKnown = false
			}
			for _, e := range chunk.Encodings {
				seen[e] = struct{}{}
			}
			if n := len(chunk.Min); n > f.Settings.MaxStatisticsLength {
				f.Settings.MaxStatisticsLength = n
			}
			if n := len(chunk.Max); n > f.Settings.MaxStatisticsLength {
				f.Settings.MaxStatisticsLength = n
			}
		}

		col.Encodings = col.Encodings[:0]
		for e := range seen {
			col.Encodings = append(col.Encodings, e)
		}
		sort.Slice(col.Encodings, func(a, b int) bool { return col.Encodings[a] < col.Encodings[b] })
	}
}
