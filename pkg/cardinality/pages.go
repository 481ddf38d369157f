package cardinality

import (
	"bufio"
	"context"
	stderrors "errors"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/encoding/thrift"
	"github.com/parquet-go/parquet-go/format"

	"github.com/ajitpratap0/parquet-linter/pkg/errors"
	"github.com/ajitpratap0/parquet-linter/pkg/metadata"
	"github.com/ajitpratap0/parquet-linter/pkg/pool"
)

const (
	headerBufferSize = 16 * 1024
	valueBatchSize   = 1024
)

// valueBuffers holds the batches pages are decoded into. Put clears them so
// released page memory is not kept reachable.
var valueBuffers = pool.New(
	func() *[]parquet.Value {
		buf := make([]parquet.Value, valueBatchSize)
		return &buf
	},
	func(buf *[]parquet.Value) { clear(*buf) },
)

// FilePages implements PageSource over a file opened with metadata.Open
type FilePages struct {
	pf     *parquet.File
	reader io.ReaderAt
}

// NewFilePages returns a PageSource reading pages of f
func NewFilePages(f *metadata.File) *FilePages {
	return &FilePages{pf: f.Parquet(), reader: f.ReaderAt()}
}

func (p *FilePages) columnMeta(rowGroup, column int) (*format.ColumnMetaData, error) {
	md := p.pf.Metadata()
	if rowGroup < 0 || rowGroup >= len(md.RowGroups) {
		return nil, errors.Newf(errors.ErrorTypeValidation, "row group %d out of range", rowGroup)
	}
	columns := md.RowGroups[rowGroup].Columns
	if column < 0 || column >= len(columns) {
		return nil, errors.Newf(errors.ErrorTypeValidation, "column %d out of range", column)
	}
	return &columns[column].MetaData, nil
}

// DictionaryPageEntries decodes thrift page headers from the start of the
// chunk. Page bodies are skipped, never decompressed.
func (p *FilePages) DictionaryPageEntries(ctx context.Context, rowGroup, column int) (int, bool, error) {
	meta, err := p.columnMeta(rowGroup, column)
	if err != nil {
		return 0, false, err
	}

	start := meta.DataPageOffset
	if meta.DictionaryPageOffset > 0 && meta.DictionaryPageOffset < start {
		start = meta.DictionaryPageOffset
	}
	if start <= 0 || meta.TotalCompressedSize <= 0 {
		return 0, false, nil
	}

	br := bufio.NewReaderSize(io.NewSectionReader(p.reader, start, meta.TotalCompressedSize), headerBufferSize)
	var protocol thrift.CompactProtocol
	decoder := thrift.NewDecoder(protocol.NewReader(br))

	for {
		if err := ctx.Err(); err != nil {
			return 0, false, err
		}

		var header format.PageHeader
		if err := decoder.Decode(&header); err != nil {
			if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) {
				return 0, false, nil
			}
			return 0, false, errors.Wrapf(err, errors.ErrorTypeDecode,
				"failed to decode page header of row group %d column %d", rowGroup, column)
		}

		switch header.Type {
		case format.DictionaryPage:
			if header.DictionaryPageHeader == nil {
				return 0, false, nil
			}
			return int(header.DictionaryPageHeader.NumValues), true, nil
		case format.DataPage, format.DataPageV2:
			return 0, false, nil
		}

		if _, err := br.Discard(int(header.CompressedPageSize)); err != nil {
			return 0, false, nil
		}
	}
}

// SampleValues hashes the non-null values among the first limit values of
// the chunk with xxhash.
func (p *FilePages) SampleValues(ctx context.Context, rowGroup, column, limit int) ([]uint64, int, error) {
	hashes := make([]uint64, 0, min(limit, valueBatchSize))
	err := p.scan(ctx, rowGroup, column, limit, func(v parquet.Value) {
		hashes = append(hashes, xxhash.Sum64(v.Bytes()))
	})
	if err != nil {
		return nil, 0, err
	}
	return hashes, len(hashes), nil
}

// SampleBytes concatenates the plain bytes of the non-null values among the
// first limit values of the chunk. The codec measure compresses the result.
func (p *FilePages) SampleBytes(ctx context.Context, rowGroup, column, limit int) ([]byte, int, error) {
	var (
		sample  []byte
		nonNull int
	)
	err := p.scan(ctx, rowGroup, column, limit, func(v parquet.Value) {
		sample = append(sample, v.Bytes()...)
		nonNull++
	})
	if err != nil {
		return nil, 0, err
	}
	return sample, nonNull, nil
}

// scan calls visit for every non-null value among the first limit values of
// the chunk, in page order.
func (p *FilePages) scan(ctx context.Context, rowGroup, column, limit int, visit func(parquet.Value)) error {
	rowGroups := p.pf.RowGroups()
	if rowGroup < 0 || rowGroup >= len(rowGroups) {
		return errors.Newf(errors.ErrorTypeValidation, "row group %d out of range", rowGroup)
	}
	chunks := rowGroups[rowGroup].ColumnChunks()
	if column < 0 || column >= len(chunks) {
		return errors.Newf(errors.ErrorTypeValidation, "column %d out of range", column)
	}

	pages := chunks[column].Pages()
	defer pages.Close()

	batch := valueBuffers.Get()
	defer valueBuffers.Put(batch)
	buf := *batch
	read := 0
	for read < limit {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := pages.ReadPage()
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrapf(err, errors.ErrorTypeDecode,
				"failed to read page of row group %d column %d", rowGroup, column)
		}

		err = readPageValues(page, buf, limit, &read, visit)
		parquet.Release(page)
		if err != nil {
			return errors.Wrapf(err, errors.ErrorTypeDecode,
				"failed to decode values of row group %d column %d", rowGroup, column)
		}
	}
	return nil
}

func readPageValues(page parquet.Page, buf []parquet.Value, limit int, read *int, visit func(parquet.Value)) error {
	values := page.Values()
	for *read < limit {
		want := min(len(buf), limit-*read)
		n, err := values.ReadValues(buf[:want])
		for _, v := range buf[:n] {
			*read++
			if !v.IsNull() {
				visit(v)
			}
		}
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if n == 0 {
			return nil
		}
	}
	return nil
}
