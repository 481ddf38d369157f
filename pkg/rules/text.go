package rules

import (
	"fmt"
	"strings"

	"github.com/ajitpratap0/parquet-linter/pkg/metadata"
	"github.com/ajitpratap0/parquet-linter/pkg/prescription"
)

const (
	// a few large chunks
	textMinBytes      = 32 * mib
	textMinGroups     = 2
	textMaxGroups     = 32
	textMinChunkBytes = 4 * mib
	textMinRatio      = 0.35
	textMaxRatio      = 0.75

	// many small chunks
	textSmallMinBytes      = 64 * mib
	textSmallMinGroups     = 64
	textSmallMaxChunkBytes = 1 * mib
	textSmallMinRatio      = 0.55
	textSmallMaxRatio      = 0.85
)

// TextShape summarizes the size of a byte array column across row groups
type TextShape struct {
	Uncompressed int64
	Compressed   int64
	// Groups counts row groups with a non-empty chunk
	Groups int
}

// Ratio is compressed / uncompressed, or false when either is unknown
func (s TextShape) Ratio() (float64, bool) {
	if s.Uncompressed <= 0 || s.Compressed <= 0 {
		return 0, false
	}
	return float64(s.Compressed) / float64(s.Uncompressed), true
}

func (s TextShape) avgChunk() int64 {
	if s.Groups == 0 {
		return 0
	}
	return s.Uncompressed / int64(s.Groups)
}

// PrefersDeltaLength reports whether text of this shape tends to be smaller
// with DELTA_LENGTH_BYTE_ARRAY than with a dictionary: either a moderately
// compressible column spread over a few large chunks, or a less
// compressible one spread over many small chunks.
func (s TextShape) PrefersDeltaLength() bool {
	ratio, ok := s.Ratio()
	if !ok {
		return false
	}
	avg := s.avgChunk()

	fewLarge := s.Uncompressed >= textMinBytes &&
		s.Groups >= textMinGroups && s.Groups <= textMaxGroups &&
		avg >= textMinChunkBytes &&
		ratio >= textMinRatio && ratio <= textMaxRatio

	manySmall := s.Uncompressed >= textSmallMinBytes &&
		s.Groups >= textSmallMinGroups &&
		avg > 0 && avg <= textSmallMaxChunkBytes &&
		ratio >= textSmallMinRatio && ratio <= textSmallMaxRatio

	return fewLarge || manySmall
}

// looksLikeText accepts string-like annotations, and otherwise any column
// whose name does not suggest binary payloads
func looksLikeText(col *metadata.ColumnContext) bool {
	switch col.Logical {
	case metadata.LogicalString, metadata.LogicalJSON, metadata.LogicalEnum, metadata.LogicalBSON:
		return true
	}
	path := strings.ToLower(col.Path)
	return !strings.Contains(path, "bytes") &&
		!strings.Contains(path, "embedding") &&
		!strings.Contains(path, "image")
}

// TextEncodingRule suggests DELTA_LENGTH_BYTE_ARRAY for large dictionary
// encoded text columns
type TextEncodingRule struct{}

func (TextEncodingRule) Name() string { return "string-byte-array-encoding" }

func (r TextEncodingRule) Check(file *metadata.FileContext) []Diagnostic {
	var out []Diagnostic
	for i := range file.Columns {
		col := &file.Columns[i]
		if col.PhysicalType != metadata.ByteArray || !looksLikeText(col) {
			continue
		}

		var shape TextShape
		var plain, dictionary, delta bool
		for _, chunk := range col.Chunks {
			if chunk.UncompressedSize > 0 {
				shape.Uncompressed += chunk.UncompressedSize
				shape.Groups++
			}
			if chunk.CompressedSize > 0 {
				shape.Compressed += chunk.CompressedSize
			}
			for _, e := range chunk.Encodings {
				switch {
				case e == metadata.EncodingPlain:
					plain = true
				case e.IsDictionary():
					dictionary = true
				case e == metadata.EncodingDeltaByteArray || e == metadata.EncodingDeltaLengthByteArray:
					delta = true
				}
			}
		}
		if delta || !plain || !dictionary || !shape.PrefersDeltaLength() {
			continue
		}

		ratio, _ := shape.Ratio()
		out = append(out, columnDiagnostic(r, SeverityInfo, col,
			fmt.Sprintf("text column (%s across %d/%d row groups, ratio %.2f) uses dictionary/plain pages; try DELTA_LENGTH_BYTE_ARRAY and disable dictionary",
				megabytes(shape.Uncompressed), shape.Groups, len(col.Chunks), ratio),
			columnFix(col, prescription.PropDictionary, prescription.Bool(false)),
			encodingFix(col, prescription.EncodingDeltaLengthByteArray)))
	}
	return out
}
