package metadata

import (
	"encoding/binary"
	"io"

	"github.com/parquet-go/parquet-go/encoding/thrift"

	"github.com/ajitpratap0/parquet-linter/pkg/errors"
)

// The footer structs below decode only the is_max_value_exact (7) and
// is_min_value_exact (8) fields of each chunk's statistics. format.Statistics
// stops at field 6, so the flags are read in a second pass over the footer.

type exactnessFooter struct {
	RowGroups []exactnessRowGroup `thrift:"4"`
}

type exactnessRowGroup struct {
	Columns []exactnessChunk `thrift:"1"`
}

type exactnessChunk struct {
	MetaData exactnessMeta `thrift:"3,optional"`
}

type exactnessMeta struct {
	Statistics exactnessStats `thrift:"12,optional"`
}

type exactnessStats struct {
	IsMaxValueExact *bool `thrift:"7,optional"`
	IsMinValueExact *bool `thrift:"8,optional"`
}

const footerTrailerSize = 8

// readExactness decodes the statistics exactness flags from the footer of
// the parquet file in r
func readExactness(r io.ReaderAt, size int64) (exactnessFooter, error) {
	var footer exactnessFooter
	if size < footerTrailerSize+4 {
		return footer, errors.New(errors.ErrorTypeDecode, "file too small for a parquet footer")
	}

	trailer := make([]byte, footerTrailerSize)
	if err := readFull(r, trailer, size-footerTrailerSize); err != nil {
		return footer, errors.Wrap(err, errors.ErrorTypeIO, "failed to read parquet trailer")
	}
	length := int64(binary.LittleEndian.Uint32(trailer))
	if length <= 0 || length > size-footerTrailerSize {
		return footer, errors.Newf(errors.ErrorTypeDecode, "invalid footer length %d", length)
	}

	buf := make([]byte, length)
	if err := readFull(r, buf, size-footerTrailerSize-length); err != nil {
		return footer, errors.Wrap(err, errors.ErrorTypeIO, "failed to read parquet footer")
	}
	if err := thrift.Unmarshal(new(thrift.CompactProtocol), buf, &footer); err != nil {
		return footer, errors.Wrap(err, errors.ErrorTypeDecode, "failed to decode statistics flags")
	}
	return footer, nil
}

// readFull is ReadAt that accepts io.EOF alongside a complete read
func readFull(r io.ReaderAt, p []byte, off int64) error {
	n, err := r.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// markTruncated sets MinTruncated and MaxTruncated on the chunks whose
// statistics the writer flagged as inexact. An absent flag means exact.
func markTruncated(fc *FileContext, footer exactnessFooter) {
	for rg, group := range footer.RowGroups {
		for c, cc := range group.Columns {
			if c >= len(fc.Columns) || rg >= len(fc.Columns[c].Chunks) {
				continue
			}
			chunk := &fc.Columns[c].Chunks[rg]
			stats := cc.MetaData.Statistics
			chunk.MinTruncated = stats.IsMinValueExact != nil && !*stats.IsMinValueExact
			chunk.MaxTruncated = stats.IsMaxValueExact != nil && !*stats.IsMaxValueExact
		}
	}
}
