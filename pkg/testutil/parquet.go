package testutil

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Categories are the values cycled through the sample "category" column
var Categories = []string{"books", "games", "music", "tools"}

// SampleSchema is the flat schema produced by SampleRecord
var SampleSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "price", Type: arrow.PrimitiveTypes.Float64},
	{Name: "category", Type: arrow.BinaryTypes.String},
	{Name: "user_id", Type: arrow.BinaryTypes.String},
	{Name: "created", Type: &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}},
	{Name: "score", Type: arrow.PrimitiveTypes.Float32, Nullable: true},
}, nil)

// NestedSchema is the schema produced by NestedRecord
var NestedSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "embedding", Type: arrow.ListOf(arrow.PrimitiveTypes.Float32)},
}, nil)

// SampleRecord builds n rows over SampleSchema. id and created increase
// with the row number, category has four distinct values, user_id is unique
// per row and every tenth score is null.
func SampleRecord(mem memory.Allocator, n int) arrow.Record {
	b := array.NewRecordBuilder(mem, SampleSchema)
	defer b.Release()

	ids := b.Field(0).(*array.Int64Builder)
	prices := b.Field(1).(*array.Float64Builder)
	categories := b.Field(2).(*array.StringBuilder)
	users := b.Field(3).(*array.StringBuilder)
	created := b.Field(4).(*array.TimestampBuilder)
	scores := b.Field(5).(*array.Float32Builder)

	const base = 1_700_000_000_000_000
	for i := 0; i < n; i++ {
		ids.Append(int64(i))
		prices.Append(float64(i) * 0.5)
		categories.Append(Categories[i%len(Categories)])
		users.Append(uuid.NewSHA1(uuid.NameSpaceOID, []byte(strconv.Itoa(i))).String())
		created.Append(arrow.Timestamp(base + int64(i)*1_000_000))
		if i%10 == 0 {
			scores.AppendNull()
		} else {
			scores.Append(float32(i%100) / 10)
		}
	}
	return b.NewRecord()
}

// NestedRecord builds n rows over NestedSchema with dims values per list
func NestedRecord(mem memory.Allocator, n, dims int) arrow.Record {
	b := array.NewRecordBuilder(mem, NestedSchema)
	defer b.Release()

	ids := b.Field(0).(*array.Int64Builder)
	lists := b.Field(1).(*array.ListBuilder)
	values := lists.ValueBuilder().(*array.Float32Builder)

	for i := 0; i < n; i++ {
		ids.Append(int64(i))
		lists.Append(true)
		for d := 0; d < dims; d++ {
			values.Append(float32(i*dims+d) / 1000)
		}
	}
	return b.NewRecord()
}

// WriteRecord writes rec to path with pqarrow, storing the arrow schema in
// the footer, and returns the file size.
func WriteRecord(t testing.TB, path string, rec arrow.Record, props ...parquet.WriterProperty) int64 {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	fw, err := pqarrow.NewFileWriter(rec.Schema(), f,
		parquet.NewWriterProperties(props...),
		pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	require.NoError(t, err)
	require.NoError(t, fw.Write(rec))
	require.NoError(t, fw.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.Size()
}

// WriteSample writes SampleRecord(n) to dir/name and returns its path
func WriteSample(t testing.TB, dir, name string, n int, props ...parquet.WriterProperty) string {
	t.Helper()

	rec := SampleRecord(memory.NewGoAllocator(), n)
	defer rec.Release()

	path := filepath.Join(dir, name)
	WriteRecord(t, path, rec, props...)
	return path
}

// WriteNested writes NestedRecord(n, dims) to dir/name and returns its path
func WriteNested(t testing.TB, dir, name string, n, dims int, props ...parquet.WriterProperty) string {
	t.Helper()

	rec := NestedRecord(memory.NewGoAllocator(), n, dims)
	defer rec.Release()

	path := filepath.Join(dir, name)
	WriteRecord(t, path, rec, props...)
	return path
}
