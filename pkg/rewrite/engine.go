// Package rewrite re-encodes a parquet file under a resolved prescription
// while keeping its logical schema and row order.
//
// The source is decoded into arrow record batches and streamed into a single
// pqarrow writer configured by WriterProperties. The output is then re-opened
// and its arrow schema compared field by field with the source; a mismatch
// fails the rewrite and, for path destinations, nothing is left behind.
package rewrite

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/parquet-linter/pkg/config"
	"github.com/ajitpratap0/parquet-linter/pkg/errors"
	"github.com/ajitpratap0/parquet-linter/pkg/logger"
	"github.com/ajitpratap0/parquet-linter/pkg/metrics"
	"github.com/ajitpratap0/parquet-linter/pkg/observability"
	"github.com/ajitpratap0/parquet-linter/pkg/prescription"
)

// Source is the file to rewrite: a path or an in-memory copy
type Source struct {
	Path string
	Data []byte
}

// FromPath reads the source from a file
func FromPath(path string) Source { return Source{Path: path} }

// FromBytes reads the source from memory
func FromBytes(data []byte) Source { return Source{Data: data} }

func (s Source) name() string {
	if s.Path != "" {
		return s.Path
	}
	return "<memory>"
}

// Destination receives the rewritten file. A path destination is written
// to a temporary file next to it and renamed into place only after
// validation succeeds.
type Destination struct {
	Path   string
	Buffer *bytes.Buffer
}

// ToPath writes the output to path
func ToPath(path string) Destination { return Destination{Path: path} }

// ToBuffer writes the output to buf
func ToBuffer(buf *bytes.Buffer) Destination { return Destination{Buffer: buf} }

// Result describes a finished rewrite
type Result struct {
	BytesWritten int64    `json:"bytes_written"`
	SchemaValid  bool     `json:"schema_valid"`
	Applied      []string `json:"applied"`
	Skipped      []string `json:"skipped,omitempty"`
	Rows         int64    `json:"rows"`
	RowGroups    int      `json:"row_groups"`
}

// Engine performs rewrites
type Engine struct {
	cfg    config.RewriteConfig
	logger *zap.Logger
	mem    memory.Allocator
}

// NewEngine creates a rewrite engine
func NewEngine(cfg config.RewriteConfig, log *zap.Logger) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64 * 1024
	}
	return &Engine{
		cfg:    cfg,
		logger: logger.OrGlobal(log).With(zap.String("component", "rewrite")),
		mem:    memory.NewGoAllocator(),
	}
}

// Rewrite decodes src, encodes it to dst under cfg and validates the output
// schema. Column keys for paths missing from src are reported in
// Result.Skipped.
func (e *Engine) Rewrite(ctx context.Context, src Source, cfg prescription.ResolvedConfiguration, dst Destination) (*Result, error) {
	timer := metrics.NewTimer("rewrite")
	ctx, span := observability.StartSpan(ctx, "rewrite")
	defer span.End()
	span.SetAttribute("source", src.name())

	result, err := e.rewrite(ctx, src, cfg, dst)
	status := "success"
	if err != nil {
		status = "failure"
		span.Fail(err)
		e.logger.Warn("rewrite failed", append([]zap.Field{zap.String("source", src.name())}, logger.ErrorFields(err)...)...)
	} else {
		metrics.RewriteBytes.Set(float64(result.BytesWritten))
		span.SetAttribute("bytes_written", result.BytesWritten)
		span.SetAttribute("skipped", result.Skipped)
		e.logger.Info("rewrite complete",
			zap.String("source", src.name()),
			zap.Int64("bytes", result.BytesWritten),
			zap.Int64("rows", result.Rows),
			zap.Int("row_groups", result.RowGroups),
			zap.Strings("skipped", result.Skipped))
	}
	timer.ObserveDuration(metrics.RewriteDuration.WithLabelValues(status))
	return result, err
}

func (e *Engine) rewrite(ctx context.Context, src Source, cfg prescription.ResolvedConfiguration, dst Destination) (*Result, error) {
	in, closeIn, err := openSource(src)
	if err != nil {
		return nil, err
	}
	defer closeIn()

	reader, err := file.NewParquetReader(in)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeDecode, "failed to open parquet source").WithDetail("path", src.name())
	}
	defer reader.Close()

	arrowReader, err := pqarrow.NewFileReader(reader, pqarrow.ArrowReadProperties{
		Parallel:  e.cfg.ParallelDecode,
		BatchSize: e.cfg.BatchSize,
	}, e.mem)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeDecode, "failed to create arrow reader")
	}
	sourceSchema, err := arrowReader.Schema()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeDecode, "failed to read arrow schema")
	}

	plan, err := WriterProperties(cfg, reader.MetaData().Schema)
	if err != nil {
		return nil, err
	}
	if len(plan.Skipped) > 0 {
		e.logger.Debug("skipping column keys absent from source", zap.Strings("paths", plan.Skipped))
	}

	out, err := e.openDestination(dst)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			out.abort()
		}
	}()

	written, err := e.encode(ctx, arrowReader, sourceSchema, plan, out)
	if err != nil {
		return nil, err
	}

	rows, rowGroups, err := validate(out, sourceSchema, e.mem)
	if err != nil {
		return nil, err
	}
	if rows != reader.NumRows() {
		return nil, errors.Newf(errors.ErrorTypeEncode, "rewrote %d rows, source has %d", rows, reader.NumRows())
	}

	if err := out.commit(); err != nil {
		return nil, err
	}
	committed = true

	return &Result{
		BytesWritten: written,
		SchemaValid:  true,
		Applied:      plan.Applied,
		Skipped:      plan.Skipped,
		Rows:         rows,
		RowGroups:    rowGroups,
	}, nil
}

// encode streams every record batch of r into out with a single writer
func (e *Engine) encode(ctx context.Context, r *pqarrow.FileReader, sc *arrow.Schema, plan Plan, out *destination) (n int64, err error) {
	// column writers panic on encodings they do not implement
	defer func() {
		if rec := recover(); rec != nil {
			n, err = 0, errors.Newf(errors.ErrorTypeEncode, "parquet writer failed: %v", rec)
		}
	}()

	sink := &countingWriter{w: out.w}
	props := parquet.NewWriterProperties(append([]parquet.WriterProperty{
		parquet.WithCreatedBy("parquet-linter"),
	}, plan.Options...)...)

	fw, err := pqarrow.NewFileWriter(sc, sink, props,
		pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema(), pqarrow.WithAllocator(e.mem)))
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeEncode, "failed to create parquet writer")
	}

	records, err := r.GetRecordReader(ctx, nil, nil)
	if err != nil {
		fw.Close()
		return 0, errors.Wrap(err, errors.ErrorTypeDecode, "failed to read source records")
	}
	defer records.Release()

	start := time.Now()
	batches := 0
	for records.Next() {
		if err := ctx.Err(); err != nil {
			fw.Close()
			return 0, err
		}
		if err := fw.WriteBuffered(records.Record()); err != nil {
			fw.Close()
			return 0, errors.Wrap(err, errors.ErrorTypeEncode, "failed to write record batch")
		}
		batches++
	}
	if err := records.Err(); err != nil && err != io.EOF {
		fw.Close()
		return 0, errors.Wrap(err, errors.ErrorTypeDecode, "failed to decode source records")
	}
	if err := fw.Close(); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeEncode, "failed to finish parquet output")
	}

	e.logger.Debug("encoded record batches",
		zap.Int("batches", batches),
		zap.Int64("bytes", sink.n),
		zap.Duration("elapsed", time.Since(start)))
	return sink.n, nil
}

// validate re-opens the finished output and checks its schema against want
func validate(out *destination, want *arrow.Schema, mem memory.Allocator) (int64, int, error) {
	in, err := out.reopen()
	if err != nil {
		return 0, 0, err
	}
	reader, err := file.NewParquetReader(in)
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.ErrorTypeDecode, "failed to re-open rewritten file")
	}
	defer reader.Close()

	arrowReader, err := pqarrow.NewFileReader(reader, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.ErrorTypeDecode, "failed to create arrow reader for output")
	}
	got, err := arrowReader.Schema()
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.ErrorTypeDecode, "failed to read output schema")
	}
	if diffs := CompareSchemas(want, got); len(diffs) > 0 {
		return 0, 0, &SchemaMismatchError{Diffs: diffs}
	}
	return reader.NumRows(), reader.NumRowGroups(), nil
}

func openSource(src Source) (parquet.ReaderAtSeeker, func(), error) {
	if src.Path == "" {
		return bytes.NewReader(src.Data), func() {}, nil
	}
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to open source").WithDetail("path", src.Path)
	}
	return f, func() { f.Close() }, nil
}

// destination is an output in progress
type destination struct {
	w      io.Writer
	buf    *bytes.Buffer
	tmp    *os.File
	target string
}

func (e *Engine) openDestination(dst Destination) (*destination, error) {
	if dst.Path == "" {
		if dst.Buffer == nil {
			return nil, errors.New(errors.ErrorTypeValidation, "destination needs a path or a buffer")
		}
		dst.Buffer.Reset()
		return &destination{w: dst.Buffer, buf: dst.Buffer}, nil
	}

	dir := e.cfg.TempDir
	if dir == "" {
		dir = filepath.Dir(dst.Path)
	}
	tmp, err := os.Create(filepath.Join(dir, "."+filepath.Base(dst.Path)+"-"+uuid.NewString()+".tmp"))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to create temporary output").WithDetail("path", dst.Path)
	}
	return &destination{w: tmp, tmp: tmp, target: dst.Path}, nil
}

func (d *destination) reopen() (parquet.ReaderAtSeeker, error) {
	if d.tmp == nil {
		return bytes.NewReader(d.buf.Bytes()), nil
	}
	if err := d.tmp.Sync(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to flush temporary output")
	}
	// the parquet reader owns and closes the handle it is given
	f, err := os.Open(d.tmp.Name())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to re-open temporary output")
	}
	return f, nil
}

func (d *destination) commit() error {
	if d.tmp == nil {
		return nil
	}
	if err := d.tmp.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to close temporary output")
	}
	if err := os.Rename(d.tmp.Name(), d.target); err != nil {
		os.Remove(d.tmp.Name())
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to move output into place").WithDetail("path", d.target)
	}
	return nil
}

func (d *destination) abort() {
	if d.tmp != nil {
		d.tmp.Close()
		os.Remove(d.tmp.Name())
		return
	}
	d.buf.Reset()
}

// countingWriter hides the Close of the underlying sink from the parquet
// writer and counts what passes through
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
