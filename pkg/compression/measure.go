// Package compression measures how well a column's values compress under the
// codecs a parquet writer can choose from.
//
// A measurement takes an uncompressed value sample, the concatenated plain bytes of
// the first values of a column, and compresses it once per algorithm. The
// resulting ratios are comparable with the footer's compressed/uncompressed
// ratio that the low-compression-ratio rule reports.
//
// # Basic Usage
//
//	results, err := compression.Measure(sample)
//	best, _ := compression.Smallest(results)
//	fmt.Printf("%s: %.2f\n", best.Algorithm, best.Ratio)
//
// # Levels
//
// Zstd and gzip honour the meter level; the other algorithms have a single
// setting.
//
//	p := compression.NewMeter(compression.Best)
//	results, err := p.Measure(sample, compression.Zstd, compression.Gzip)
package compression

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/parquet-linter/pkg/errors"
	"github.com/ajitpratap0/parquet-linter/pkg/pool"
	"github.com/ajitpratap0/parquet-linter/pkg/prescription"
)

// Algorithm is a compression algorithm the meter can run
type Algorithm string

const (
	// Zstd is zstandard
	Zstd Algorithm = "zstd"
	// Snappy is block snappy, as parquet writes it
	Snappy Algorithm = "snappy"
	// S2 is the snappy-compatible s2 block format. Parquet has no S2 codec;
	// it is reported as a snappy upper bound.
	S2 Algorithm = "s2"
	// Gzip is gzip
	Gzip Algorithm = "gzip"
	// LZ4 is the raw lz4 block format used by LZ4_RAW
	LZ4 Algorithm = "lz4"
)

// Algorithms lists every algorithm in measure order
var Algorithms = []Algorithm{Zstd, Snappy, S2, Gzip, LZ4}

// Codec returns the prescription codec that writes this algorithm, if any
func (a Algorithm) Codec() (prescription.Codec, bool) {
	switch a {
	case Zstd:
		return prescription.CodecZstd, true
	case Snappy:
		return prescription.CodecSnappy, true
	case Gzip:
		return prescription.CodecGzip, true
	case LZ4:
		return prescription.CodecLZ4Raw, true
	}
	return "", false
}

// Level controls the speed/ratio trade-off for algorithms that have one
type Level int

const (
	// Fastest prioritizes speed over compression ratio
	Fastest Level = 1
	// Default balances speed and compression
	Default Level = 5
	// Better improves compression at cost of speed
	Better Level = 7
	// Best maximizes compression ratio
	Best Level = 9
)

func (l Level) String() string {
	switch l {
	case Fastest:
		return "fastest"
	case Default:
		return "default"
	case Better:
		return "better"
	case Best:
		return "best"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Result is the outcome of one algorithm on one sample
type Result struct {
	Algorithm  Algorithm `json:"algorithm"`
	InputSize  int       `json:"input_size"`
	OutputSize int       `json:"output_size"`
	// Ratio is OutputSize / InputSize
	Ratio float64 `json:"ratio"`
}

// Meter compresses samples with pooled encoders. It is safe for concurrent
// use.
type Meter struct {
	level    Level
	zstdPool *pool.Pool[*zstd.Encoder]
	gzipPool *pool.Pool[*gzip.Writer]
}

// NewMeter creates a meter at level
func NewMeter(level Level) *Meter {
	return &Meter{
		level: level,
		zstdPool: pool.New(func() *zstd.Encoder {
			enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(mapZstdLevel(level)))
			return enc
		}, nil),
		gzipPool: pool.New(func() *gzip.Writer {
			w, _ := gzip.NewWriterLevel(nil, mapGzipLevel(level))
			return w
		}, nil),
	}
}

var defaultMeter = NewMeter(Default)

// Measure runs sample through algorithms (all of Algorithms when none are
// given) at the default level
func Measure(sample []byte, algorithms ...Algorithm) ([]Result, error) {
	return defaultMeter.Measure(sample, algorithms...)
}

// Level returns the level the meter was created with
func (p *Meter) Level() Level {
	return p.level
}

// Measure compresses sample once per algorithm and returns the results in
// the order the algorithms were given. An empty sample yields no results.
func (p *Meter) Measure(sample []byte, algorithms ...Algorithm) ([]Result, error) {
	if len(algorithms) == 0 {
		algorithms = Algorithms
	}
	if len(sample) == 0 {
		return nil, nil
	}

	results := make([]Result, 0, len(algorithms))
	for _, a := range algorithms {
		n, err := p.compressedSize(a, sample)
		if err != nil {
			return nil, err
		}
		results = append(results, Result{
			Algorithm:  a,
			InputSize:  len(sample),
			OutputSize: n,
			Ratio:      float64(n) / float64(len(sample)),
		})
	}
	return results, nil
}

func (p *Meter) compressedSize(a Algorithm, data []byte) (int, error) {
	switch a {
	case Zstd:
		enc := p.zstdPool.Get()
		defer p.zstdPool.Put(enc)
		return len(enc.EncodeAll(data, nil)), nil

	case Snappy:
		return len(snappy.Encode(nil, data)), nil

	case S2:
		return len(s2.Encode(nil, data)), nil

	case Gzip:
		var buf bytes.Buffer
		w := p.gzipPool.Get()
		defer p.gzipPool.Put(w)
		w.Reset(&buf)
		if _, err := w.Write(data); err != nil {
			return 0, errors.Wrap(err, errors.ErrorTypeEncode, "gzip compression failed")
		}
		if err := w.Close(); err != nil {
			return 0, errors.Wrap(err, errors.ErrorTypeEncode, "gzip compression failed")
		}
		return buf.Len(), nil

	case LZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return 0, errors.Wrap(err, errors.ErrorTypeEncode, "lz4 compression failed")
		}
		// incompressible input is stored as-is
		if n == 0 {
			return len(data), nil
		}
		return n, nil
	}
	return 0, errors.Newf(errors.ErrorTypeValidation, "unsupported compression algorithm: %s", a)
}

// Smallest returns the result with the lowest output size. Ties keep the
// earlier result.
func Smallest(results []Result) (Result, bool) {
	if len(results) == 0 {
		return Result{}, false
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.OutputSize < best.OutputSize {
			best = r
		}
	}
	return best, true
}

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
