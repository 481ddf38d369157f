package metadata

import (
	"io"
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"

	"github.com/ajitpratap0/parquet-linter/pkg/errors"
)

// File is an open parquet file together with its analysis snapshot
type File struct {
	name   string
	size   int64
	reader io.ReaderAt
	closer io.Closer
	pf     *parquet.File
	fc     *FileContext
}

// Open opens the parquet file at path and builds its FileContext
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to open parquet file").
			WithDetail("path", path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to stat parquet file").
			WithDetail("path", path)
	}

	file, err := OpenReader(f, info.Size(), path)
	if err != nil {
		f.Close()
		return nil, err
	}
	file.closer = f
	return file, nil
}

// OpenReader builds a File over r. name is only used for reporting.
func OpenReader(r io.ReaderAt, size int64, name string) (*File, error) {
	pf, err := parquet.OpenFile(r, size,
		parquet.SkipPageIndex(true),
		parquet.SkipBloomFilters(true),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeDecode, "failed to read parquet footer").
			WithDetail("path", name)
	}

	fc, err := Build(name, size, pf)
	if err != nil {
		return nil, err
	}
	exactness, err := readExactness(r, size)
	if err != nil {
		return nil, errors.Wrap(err, errors.GetType(err), "failed to read statistics flags").WithDetail("path", name)
	}
	markTruncated(fc, exactness)

	return &File{
		name:   name,
		size:   size,
		reader: r,
		pf:     pf,
		fc:     fc,
	}, nil
}

// Context returns the file's analysis snapshot
func (f *File) Context() *FileContext { return f.fc }

// Parquet returns the underlying parquet-go file
func (f *File) Parquet() *parquet.File { return f.pf }

// ReaderAt returns the raw byte source of the file
func (f *File) ReaderAt() io.ReaderAt { return f.reader }

// Size returns the file size in bytes
func (f *File) Size() int64 { return f.size }

// Close releases the underlying file handle, if Open created one
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	err := f.closer.Close()
	f.closer = nil
	return err
}

// Build converts the footer of pf into a FileContext
func Build(name string, size int64, pf *parquet.File) (*FileContext, error) {
	md := pf.Metadata()
	schema := pf.Schema()
	leaves := schema.Columns()

	fc := &FileContext{
		Path:      name,
		Size:      size,
		Version:   md.Version,
		RowGroups: make([]RowGroup, len(md.RowGroups)),
		Columns:   make([]ColumnContext, len(leaves)),
		Flat:      isFlat(schema),
	}
	fc.Settings.CreatedBy = md.CreatedBy

	for i, path := range leaves {
		leaf, ok := schema.Lookup(path...)
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeDecode, "schema leaf %s not found", strings.Join(path, "."))
		}
		typ := leaf.Node.Type()
		fc.Columns[i] = ColumnContext{
			Index:              i,
			Path:               strings.Join(path, "."),
			PathParts:          append([]string(nil), path...),
			PhysicalType:       PhysicalType(typ.Kind()),
			TypeLength:         typ.Length(),
			Logical:            logicalKind(typ.LogicalType()),
			MaxRepetitionLevel: leaf.MaxRepetitionLevel,
			MaxDefinitionLevel: leaf.MaxDefinitionLevel,
			Nested:             len(path) > 1 || leaf.MaxRepetitionLevel > 0,
			Chunks:             make([]Chunk, 0, len(md.RowGroups)),
		}
	}

	for rgIndex, rg := range md.RowGroups {
		fc.RowGroups[rgIndex] = RowGroup{
			Index:          rgIndex,
			NumRows:        rg.NumRows,
			TotalByteSize:  rg.TotalByteSize,
			CompressedSize: rowGroupCompressedSize(rg),
			SortingColumns: sortingColumns(rg.SortingColumns),
		}

		if len(rg.Columns) != len(fc.Columns) {
			return nil, errors.Newf(errors.ErrorTypeDecode,
				"row group %d has %d column chunks, schema has %d leaves",
				rgIndex, len(rg.Columns), len(fc.Columns))
		}
		for colIndex := range rg.Columns {
			col := &fc.Columns[colIndex]
			col.Chunks = append(col.Chunks, chunkFrom(rgIndex, &rg.Columns[colIndex]))
		}
	}

	fc.Finalize()
	return fc, nil
}

func chunkFrom(rowGroup int, cc *format.ColumnChunk) Chunk {
	meta := &cc.MetaData
	stats := &meta.Statistics

	chunk := Chunk{
		RowGroup:             rowGroup,
		NumValues:            meta.NumValues,
		NullCount:            stats.NullCount,
		NullCountKnown:       statisticsPresent(stats),
		DistinctCount:        stats.DistinctCount,
		HasDistinctCount:     stats.DistinctCount > 0,
		Codec:                Codec(meta.Codec),
		Encodings:            make([]Encoding, len(meta.Encoding)),
		CompressedSize:       meta.TotalCompressedSize,
		UncompressedSize:     meta.TotalUncompressedSize,
		DataPageOffset:       meta.DataPageOffset,
		DictionaryPageOffset: meta.DictionaryPageOffset,
		HasColumnIndex:       cc.ColumnIndexOffset > 0 && cc.ColumnIndexLength > 0,
		HasBloomFilter:       meta.BloomFilterOffset > 0,
		Min:                  pick(stats.MinValue, stats.Min),
		Max:                  pick(stats.MaxValue, stats.Max),
	}
	for i, e := range meta.Encoding {
		chunk.Encodings[i] = Encoding(e)
	}
	for _, s := range meta.EncodingStats {
		chunk.EncodingStats = append(chunk.EncodingStats, PageEncodingStat{
			PageType: PageType(s.PageType),
			Encoding: Encoding(s.Encoding),
			Count:    s.Count,
		})
	}
	return chunk
}

// statisticsPresent reports whether the writer emitted a statistics struct.
// The footer cannot tell an absent null_count from zero, so any populated
// field counts.
func statisticsPresent(s *format.Statistics) bool {
	return s.NullCount != 0 || s.DistinctCount != 0 ||
		len(s.Min) > 0 || len(s.Max) > 0 ||
		len(s.MinValue) > 0 || len(s.MaxValue) > 0
}

func pick(preferred, legacy []byte) []byte {
	if len(preferred) > 0 {
		return preferred
	}
	return legacy
}

func rowGroupCompressedSize(rg format.RowGroup) int64 {
	if rg.TotalCompressedSize > 0 {
		return rg.TotalCompressedSize
	}
	var total int64
	for i := range rg.Columns {
		total += rg.Columns[i].MetaData.TotalCompressedSize
	}
	return total
}

func sortingColumns(in []format.SortingColumn) []SortingColumn {
	if len(in) == 0 {
		return nil
	}
	out := make([]SortingColumn, len(in))
	for i, sc := range in {
		out[i] = SortingColumn{
			ColumnIndex: int(sc.ColumnIdx),
			Descending:  sc.Descending,
			NullsFirst:  sc.NullsFirst,
		}
	}
	return out
}

func isFlat(schema *parquet.Schema) bool {
	for _, field := range schema.Fields() {
		if !field.Leaf() || field.Repeated() {
			return false
		}
	}
	return true
}

func logicalKind(lt *format.LogicalType) LogicalKind {
	switch {
	case lt == nil:
		return LogicalNone
	case lt.UTF8 != nil:
		return LogicalString
	case lt.Enum != nil:
		return LogicalEnum
	case lt.UUID != nil:
		return LogicalUUID
	case lt.Date != nil:
		return LogicalDate
	case lt.Time != nil:
		return LogicalTime
	case lt.Timestamp != nil:
		return LogicalTimestamp
	case lt.Integer != nil:
		return LogicalInteger
	case lt.Decimal != nil:
		return LogicalDecimal
	case lt.Json != nil:
		return LogicalJSON
	case lt.Bson != nil:
		return LogicalBSON
	case lt.Unknown != nil:
		return LogicalUnknown
	default:
		return LogicalNone
	}
}
