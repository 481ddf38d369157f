package rules

import (
	"fmt"

	"github.com/ajitpratap0/parquet-linter/pkg/metadata"
	"github.com/ajitpratap0/parquet-linter/pkg/prescription"
)

// CompressionRatioRule flags compressed columns that barely shrink
type CompressionRatioRule struct{}

func (CompressionRatioRule) Name() string { return "low-compression-ratio" }

func (r CompressionRatioRule) Check(file *metadata.FileContext) []Diagnostic {
	var out []Diagnostic
	for i := range file.Columns {
		col := &file.Columns[i]

		var compressed, uncompressed int64
		var groups int
		codec := metadata.CodecUncompressed
		for _, chunk := range col.Chunks {
			if chunk.Codec == metadata.CodecUncompressed || chunk.UncompressedSize <= 0 {
				continue
			}
			if groups == 0 {
				codec = chunk.Codec
			}
			compressed += chunk.CompressedSize
			uncompressed += chunk.UncompressedSize
			groups++
		}
		if uncompressed == 0 {
			continue
		}

		ratio := float64(compressed) / float64(uncompressed)
		if ratio <= maxCompressionRatio {
			continue
		}
		out = append(out, columnDiagnostic(r, SeverityWarning, col,
			fmt.Sprintf("aggregated compression ratio is %.2f (%s) across %d/%d row groups; data is nearly incompressible",
				ratio, codec, groups, len(col.Chunks)),
			columnFix(col, prescription.PropCompression, prescription.Ident(string(prescription.CodecUncompressed)))))
	}
	return out
}

// CompressionCodecRule suggests replacing slow, deprecated or missing codecs
type CompressionCodecRule struct{}

func (CompressionCodecRule) Name() string { return "compression-codec-upgrade" }

type codecAdvice struct {
	groups int
	first  metadata.Codec
	reason string
}

func (a *codecAdvice) add(c metadata.Codec, reason string) {
	if a.groups == 0 {
		a.first = c
		a.reason = reason
	}
	a.groups++
}

func (r CompressionCodecRule) Check(file *metadata.FileContext) []Diagnostic {
	var out []Diagnostic
	for i := range file.Columns {
		col := &file.Columns[i]

		var zstd, snappy codecAdvice
		for _, chunk := range col.Chunks {
			switch chunk.Codec {
			case metadata.CodecGzip:
				zstd.add(chunk.Codec, "GZIP has worse decompression speed than ZSTD at similar ratios")
			case metadata.CodecLZ4, metadata.CodecLZO:
				zstd.add(chunk.Codec, fmt.Sprintf("%s codec is deprecated; use ZSTD instead", chunk.Codec))
			case metadata.CodecUncompressed:
				if chunk.UncompressedSize > largeUncompressedChunk {
					snappy.add(chunk.Codec, "UNCOMPRESSED column chunks are larger than 4MB")
				}
			}
		}

		switch {
		case snappy.groups > zstd.groups:
			out = append(out, columnDiagnostic(r, SeverityWarning, col,
				codecMessage(snappy, len(col.Chunks), "consider enabling SNAPPY compression"),
				columnFix(col, prescription.PropCompression, prescription.Ident(string(prescription.CodecSnappy)))))
		case zstd.groups > 0:
			out = append(out, columnDiagnostic(r, SeverityInfo, col,
				codecMessage(zstd, len(col.Chunks), "consider upgrading to ZSTD"),
				columnFix(col, prescription.PropCompression, prescription.Leveled(string(prescription.CodecZstd), 3))))
		}
	}
	return out
}

func codecMessage(a codecAdvice, total int, advice string) string {
	return fmt.Sprintf("using %s in %d/%d row groups; %s; %s", a.first, a.groups, total, a.reason, advice)
}
