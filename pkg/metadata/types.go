package metadata

import "fmt"

// PhysicalType is a parquet physical type. Values follow the thrift numbering.
type PhysicalType int32

const (
	Boolean           PhysicalType = 0
	Int32             PhysicalType = 1
	Int64             PhysicalType = 2
	Int96             PhysicalType = 3
	Float             PhysicalType = 4
	Double            PhysicalType = 5
	ByteArray         PhysicalType = 6
	FixedLenByteArray PhysicalType = 7
)

func (t PhysicalType) String() string {
	switch t {
	case Boolean:
		return "BOOLEAN"
	case Int32:
		return "INT32"
	case Int64:
		return "INT64"
	case Int96:
		return "INT96"
	case Float:
		return "FLOAT"
	case Double:
		return "DOUBLE"
	case ByteArray:
		return "BYTE_ARRAY"
	case FixedLenByteArray:
		return "FIXED_LEN_BYTE_ARRAY"
	default:
		return fmt.Sprintf("PhysicalType(%d)", int32(t))
	}
}

// Encoding is a parquet page encoding. Values follow the thrift numbering.
type Encoding int32

const (
	EncodingPlain                Encoding = 0
	EncodingPlainDictionary      Encoding = 2
	EncodingRLE                  Encoding = 3
	EncodingBitPacked            Encoding = 4
	EncodingDeltaBinaryPacked    Encoding = 5
	EncodingDeltaLengthByteArray Encoding = 6
	EncodingDeltaByteArray       Encoding = 7
	EncodingRLEDictionary        Encoding = 8
	EncodingByteStreamSplit      Encoding = 9
)

func (e Encoding) String() string {
	switch e {
	case EncodingPlain:
		return "PLAIN"
	case EncodingPlainDictionary:
		return "PLAIN_DICTIONARY"
	case EncodingRLE:
		return "RLE"
	case EncodingBitPacked:
		return "BIT_PACKED"
	case EncodingDeltaBinaryPacked:
		return "DELTA_BINARY_PACKED"
	case EncodingDeltaLengthByteArray:
		return "DELTA_LENGTH_BYTE_ARRAY"
	case EncodingDeltaByteArray:
		return "DELTA_BYTE_ARRAY"
	case EncodingRLEDictionary:
		return "RLE_DICTIONARY"
	case EncodingByteStreamSplit:
		return "BYTE_STREAM_SPLIT"
	default:
		return fmt.Sprintf("Encoding(%d)", int32(e))
	}
}

// IsDictionary reports whether e indexes into a dictionary page
func (e Encoding) IsDictionary() bool {
	return e == EncodingPlainDictionary || e == EncodingRLEDictionary
}

// Codec is a parquet compression codec. Values follow the thrift numbering.
type Codec int32

const (
	CodecUncompressed Codec = 0
	CodecSnappy       Codec = 1
	CodecGzip         Codec = 2
	CodecLZO          Codec = 3
	CodecBrotli       Codec = 4
	CodecLZ4          Codec = 5 // Hadoop-framed LZ4, deprecated
	CodecZstd         Codec = 6
	CodecLZ4Raw       Codec = 7
)

func (c Codec) String() string {
	switch c {
	case CodecUncompressed:
		return "UNCOMPRESSED"
	case CodecSnappy:
		return "SNAPPY"
	case CodecGzip:
		return "GZIP"
	case CodecLZO:
		return "LZO"
	case CodecBrotli:
		return "BROTLI"
	case CodecLZ4:
		return "LZ4"
	case CodecZstd:
		return "ZSTD"
	case CodecLZ4Raw:
		return "LZ4_RAW"
	default:
		return fmt.Sprintf("Codec(%d)", int32(c))
	}
}

// PageType is a parquet page type. Values follow the thrift numbering.
type PageType int32

const (
	PageData       PageType = 0
	PageIndex      PageType = 1
	PageDictionary PageType = 2
	PageDataV2     PageType = 3
)

// IsData reports whether p carries column values
func (p PageType) IsData() bool {
	return p == PageData || p == PageDataV2
}

// LogicalKind is the annotation carried by a leaf column's logical type
type LogicalKind string

const (
	LogicalNone      LogicalKind = ""
	LogicalString    LogicalKind = "STRING"
	LogicalEnum      LogicalKind = "ENUM"
	LogicalUUID      LogicalKind = "UUID"
	LogicalDate      LogicalKind = "DATE"
	LogicalTime      LogicalKind = "TIME"
	LogicalTimestamp LogicalKind = "TIMESTAMP"
	LogicalInteger   LogicalKind = "INTEGER"
	LogicalDecimal   LogicalKind = "DECIMAL"
	LogicalJSON      LogicalKind = "JSON"
	LogicalBSON      LogicalKind = "BSON"
	LogicalFloat16   LogicalKind = "FLOAT16"
	LogicalUnknown   LogicalKind = "UNKNOWN"
)

// IsTemporal reports whether k is a date or timestamp annotation
func (k LogicalKind) IsTemporal() bool {
	return k == LogicalDate || k == LogicalTimestamp
}

// Tier records which estimation strategy produced a CardinalityEstimate
type Tier string

const (
	TierExact    Tier = "exact-statistic"
	TierOne      Tier = "tier1"
	TierTwo      Tier = "tier2"
	TierThree    Tier = "tier3"
	TierFallback Tier = "fallback"
)

// CardinalityEstimate is the approximate number of distinct non-null values
// of one column across the whole file.
type CardinalityEstimate struct {
	// Distinct never exceeds NonNull
	Distinct uint64 `json:"distinct"`
	// NonNull is the file-level non-null value count the estimate is scaled to
	NonNull uint64 `json:"non_null"`
	Tier    Tier   `json:"tier"`
	// SamplingRatio is file_total / sample_total, 1 when nothing was scaled
	SamplingRatio float64 `json:"sampling_ratio"`
}

// Ratio returns Distinct / NonNull, or 0 for a column without non-null values
func (e CardinalityEstimate) Ratio() float64 {
	if e.NonNull == 0 {
		return 0
	}
	return float64(e.Distinct) / float64(e.NonNull)
}
