package rewrite

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/schema"

	"github.com/ajitpratap0/parquet-linter/pkg/errors"
	"github.com/ajitpratap0/parquet-linter/pkg/prescription"
)

// Plan is a resolved configuration translated for one target schema
type Plan struct {
	Options []parquet.WriterProperty
	// Applied lists the keys that produced writer options
	Applied []string
	// Skipped lists column paths that are not in the target schema
	Skipped []string
}

var codecs = map[prescription.Codec]compress.Compression{
	prescription.CodecUncompressed: compress.Codecs.Uncompressed,
	prescription.CodecSnappy:       compress.Codecs.Snappy,
	prescription.CodecGzip:         compress.Codecs.Gzip,
	prescription.CodecBrotli:       compress.Codecs.Brotli,
	prescription.CodecZstd:         compress.Codecs.Zstd,
	prescription.CodecLZ4Raw:       compress.Codecs.Lz4Raw,
}

var encodings = map[prescription.DataEncoding]parquet.Encoding{
	prescription.EncodingPlain:                parquet.Encodings.Plain,
	prescription.EncodingDeltaBinaryPacked:    parquet.Encodings.DeltaBinaryPacked,
	prescription.EncodingDeltaLengthByteArray: parquet.Encodings.DeltaLengthByteArray,
	prescription.EncodingDeltaByteArray:       parquet.Encodings.DeltaByteArray,
	prescription.EncodingByteStreamSplit:      parquet.Encodings.ByteStreamSplit,
}

// encodingSupports lists the physical types each non-plain encoding can
// write. The arrow-go writer encodes FIXED_LEN_BYTE_ARRAY with PLAIN or
// BYTE_STREAM_SPLIT only.
var encodingSupports = map[prescription.DataEncoding][]parquet.Type{
	prescription.EncodingDeltaBinaryPacked:    {parquet.Types.Int32, parquet.Types.Int64},
	prescription.EncodingDeltaLengthByteArray: {parquet.Types.ByteArray},
	prescription.EncodingDeltaByteArray:       {parquet.Types.ByteArray},
	prescription.EncodingByteStreamSplit:      {parquet.Types.Float, parquet.Types.Double},
}

// WriterProperties maps cfg onto arrow-go writer options for a file with
// schema sc. Column keys whose path is not a leaf of sc are skipped. An
// encoding the column's physical type cannot carry is an
// *prescription.InvalidValueError.
func WriterProperties(cfg prescription.ResolvedConfiguration, sc *schema.Schema) (Plan, error) {
	var plan Plan
	add := func(key prescription.Key, opts ...parquet.WriterProperty) {
		plan.Options = append(plan.Options, opts...)
		plan.Applied = append(plan.Applied, key.String())
	}

	skipped := make(map[string]bool)
	var dictPageSize int64

	for _, key := range cfg.Keys() {
		r, _ := cfg.Get(key)
		v := r.Value

		if key.Scope == prescription.ScopeFile {
			opts, err := fileOption(key.Property, v)
			if err != nil {
				return Plan{}, err
			}
			add(key, opts...)
			continue
		}

		idx := sc.ColumnIndexByName(key.Path)
		if idx < 0 {
			if !skipped[key.Path] {
				skipped[key.Path] = true
				plan.Skipped = append(plan.Skipped, key.Path)
			}
			continue
		}
		col := sc.Column(idx)
		path := key.Path

		switch key.Property {
		case prescription.PropCompression:
			add(key, compressionFor(path, v)...)

		case prescription.PropEncoding:
			if err := checkEncoding(col, v, r.Line); err != nil {
				return Plan{}, err
			}
			opts := []parquet.WriterProperty{parquet.WithEncodingFor(path, encodings[v.Encoding()])}
			// a dictionary would otherwise take precedence over the encoding
			if _, ok := cfg.Column(path, prescription.PropDictionary); !ok {
				opts = append(opts, parquet.WithDictionaryFor(path, false))
			}
			add(key, opts...)

		case prescription.PropDictionary:
			enabled, _ := v.AsBool()
			add(key, parquet.WithDictionaryFor(path, enabled))

		case prescription.PropDictionaryPageSizeLimit:
			n, _ := v.AsInt()
			dictPageSize = max(dictPageSize, n)
			plan.Applied = append(plan.Applied, key.String())

		case prescription.PropStatistics:
			switch v.Statistics() {
			case prescription.StatisticsNone:
				add(key, parquet.WithStatsFor(path, false), parquet.WithPageIndexEnabledFor(path, false))
			case prescription.StatisticsChunk:
				add(key, parquet.WithStatsFor(path, true), parquet.WithPageIndexEnabledFor(path, false))
			case prescription.StatisticsPage:
				add(key, parquet.WithStatsFor(path, true), parquet.WithPageIndexEnabledFor(path, true))
			}

		case prescription.PropBloomFilter:
			enabled, _ := v.AsBool()
			add(key, parquet.WithBloomFilterEnabledFor(path, enabled))

		case prescription.PropBloomFilterNDV:
			n, _ := v.AsInt()
			add(key, parquet.WithBloomFilterNDVFor(path, n))

		case prescription.PropBloomFilterFPP:
			f, _ := v.AsFloat()
			add(key, parquet.WithBloomFilterFPPFor(path, f))
		}
	}

	// the writer has a single dictionary page limit for every column
	if dictPageSize > 0 {
		plan.Options = append(plan.Options, parquet.WithDictionaryPageSizeLimit(dictPageSize))
	}
	return plan, nil
}

func fileOption(property prescription.Property, v prescription.Value) ([]parquet.WriterProperty, error) {
	switch property {
	case prescription.PropCompression:
		opts := []parquet.WriterProperty{parquet.WithCompression(codecs[v.Codec()])}
		if v.HasLevel {
			opts = append(opts, parquet.WithCompressionLevel(v.Level))
		}
		return opts, nil

	case prescription.PropMaxRowGroupSize:
		n, _ := v.AsInt()
		return []parquet.WriterProperty{parquet.WithMaxRowGroupLength(n)}, nil

	case prescription.PropDataPageSizeLimit:
		n, _ := v.AsInt()
		return []parquet.WriterProperty{parquet.WithDataPageSize(n)}, nil

	case prescription.PropStatisticsTruncateLength:
		if n, ok := v.AsInt(); ok {
			return []parquet.WriterProperty{parquet.WithMaxStatsSize(n)}, nil
		}
		return []parquet.WriterProperty{parquet.WithMaxStatsSize(math.MaxInt64)}, nil
	}
	return nil, errors.Newf(errors.ErrorTypeValidation, "unsupported file property %s", property)
}

func compressionFor(path string, v prescription.Value) []parquet.WriterProperty {
	opts := []parquet.WriterProperty{parquet.WithCompressionFor(path, codecs[v.Codec()])}
	if v.HasLevel {
		opts = append(opts, parquet.WithCompressionLevelFor(path, v.Level))
	}
	return opts
}

func checkEncoding(col *schema.Column, v prescription.Value, line int) error {
	enc := v.Encoding()
	supported, restricted := encodingSupports[enc]
	if !restricted {
		return nil
	}
	for _, t := range supported {
		if col.PhysicalType() == t {
			return nil
		}
	}
	return &prescription.InvalidValueError{
		Line:     line,
		Property: prescription.PropEncoding,
		Token:    v.String(),
		Message:  fmt.Sprintf("%s cannot encode %s column %s", enc, col.PhysicalType(), col.Path()),
	}
}
