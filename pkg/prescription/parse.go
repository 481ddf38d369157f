package prescription

import (
	"io"
	"strconv"
	"strings"

	"github.com/ajitpratap0/parquet-linter/pkg/errors"
)

var codecLevels = map[Codec][2]int{
	CodecZstd:   {1, 22},
	CodecGzip:   {0, 9},
	CodecBrotli: {0, 11},
}

// Parse reads a prescription. Text after '#' and blank lines are ignored.
// The first malformed line aborts the parse with a *ParseError or an
// *InvalidValueError.
func Parse(text string) (Prescription, error) {
	var p Prescription
	for i, raw := range strings.Split(text, "\n") {
		line := raw
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		d, err := parseDirective(line, i+1)
		if err != nil {
			return Prescription{}, err
		}
		p.appendLine(d, i+1)
	}
	return p, nil
}

// ParseReader reads all of r and parses it
func ParseReader(r io.Reader) (Prescription, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Prescription{}, errors.Wrap(err, errors.ErrorTypeIO, "failed to read prescription")
	}
	return Parse(string(data))
}

func parseDirective(line string, lineNo int) (Directive, error) {
	tokens := strings.Fields(line)
	if tokens[0] != "set" {
		return Directive{}, parseErr(lineNo, tokens[0], "directive must start with 'set'")
	}
	if len(tokens) < 2 {
		return Directive{}, parseErr(lineNo, "", "missing scope after 'set'")
	}

	switch Scope(tokens[1]) {
	case ScopeFile:
		if len(tokens) != 4 {
			return Directive{}, parseErr(lineNo, "", "file directive must be: set file <property> <value>")
		}
		property := Property(tokens[2])
		if !fileProperties[property] {
			return Directive{}, parseErr(lineNo, tokens[2], "unknown file property")
		}
		value, err := parseValue(tokens[3], lineNo)
		if err != nil {
			return Directive{}, err
		}
		if err := validate(property, value, tokens[3], lineNo); err != nil {
			return Directive{}, err
		}
		return File(property, value), nil

	case ScopeColumn:
		if len(tokens) != 5 {
			return Directive{}, parseErr(lineNo, "", "column directive must be: set column <column_path> <property> <value>")
		}
		path := tokens[2]
		for _, part := range strings.Split(path, ".") {
			if part == "" {
				return Directive{}, parseErr(lineNo, path, "invalid column path")
			}
		}
		property := Property(tokens[3])
		if !columnProperties[property] {
			return Directive{}, parseErr(lineNo, tokens[3], "unknown column property")
		}
		value, err := parseValue(tokens[4], lineNo)
		if err != nil {
			return Directive{}, err
		}
		if err := validate(property, value, tokens[4], lineNo); err != nil {
			return Directive{}, err
		}
		return Column(path, property, value), nil

	default:
		return Directive{}, parseErr(lineNo, tokens[1], "unknown scope, expected 'file' or 'column'")
	}
}

// parseValue splits name(level). It only checks the shape of the token.
func parseValue(token string, lineNo int) (Value, error) {
	open := strings.IndexByte(token, '(')
	if open < 0 {
		if strings.IndexByte(token, ')') >= 0 {
			return Value{}, parseErr(lineNo, token, "unbalanced ')'")
		}
		return Ident(token), nil
	}

	if open == 0 || !strings.HasSuffix(token, ")") {
		return Value{}, parseErr(lineNo, token, "expected <name>(<level>)")
	}
	name, inner := token[:open], token[open+1:len(token)-1]
	if strings.ContainsAny(inner, "()") {
		return Value{}, parseErr(lineNo, token, "expected <name>(<level>)")
	}
	level, err := strconv.Atoi(inner)
	if err != nil {
		return Value{}, parseErr(lineNo, token, "invalid %s level %q", name, inner)
	}
	return Leveled(name, level), nil
}

func validate(property Property, v Value, token string, lineNo int) error {
	switch property {
	case PropCompression:
		return validateCodec(v, token, lineNo)

	case PropEncoding:
		switch v.Encoding() {
		case EncodingPlain, EncodingDeltaBinaryPacked, EncodingDeltaLengthByteArray,
			EncodingDeltaByteArray, EncodingByteStreamSplit:
			if v.HasLevel {
				return invalid(lineNo, property, token, "encodings do not take a level")
			}
			return nil
		}
		return invalid(lineNo, property, token, "unknown encoding")

	case PropStatistics:
		switch v.Statistics() {
		case StatisticsNone, StatisticsChunk, StatisticsPage:
			if v.HasLevel {
				return invalid(lineNo, property, token, "statistics levels do not take a parameter")
			}
			return nil
		}
		return invalid(lineNo, property, token, "unknown statistics level, expected none, chunk or page")

	case PropDictionary, PropBloomFilter:
		if _, ok := v.AsBool(); !ok {
			return invalid(lineNo, property, token, "expected true or false")
		}
		return nil

	case PropStatisticsTruncateLength:
		if v == Ident("none") {
			return nil
		}
		return validatePositive(property, v, token, lineNo)

	case PropMaxRowGroupSize, PropDataPageSizeLimit, PropDictionaryPageSizeLimit, PropBloomFilterNDV:
		return validatePositive(property, v, token, lineNo)

	case PropBloomFilterFPP:
		f, ok := v.AsFloat()
		if !ok {
			return invalid(lineNo, property, token, "invalid float")
		}
		if f <= 0 || f >= 1 {
			return invalid(lineNo, property, token, "false positive probability must be between 0 and 1 exclusive")
		}
		return nil
	}
	return nil
}

func validateCodec(v Value, token string, lineNo int) error {
	codec := v.Codec()
	switch codec {
	case CodecUncompressed, CodecSnappy, CodecLZ4Raw:
		if v.HasLevel {
			return invalid(lineNo, PropCompression, token, "%s does not take a level", codec)
		}
		return nil
	}

	bounds, ok := codecLevels[codec]
	if !ok {
		return invalid(lineNo, PropCompression, token, "unknown codec")
	}
	if v.HasLevel && (v.Level < bounds[0] || v.Level > bounds[1]) {
		return invalid(lineNo, PropCompression, token,
			"%s level must be between %d and %d", codec, bounds[0], bounds[1])
	}
	return nil
}

func validatePositive(property Property, v Value, token string, lineNo int) error {
	n, ok := v.AsInt()
	if !ok {
		return invalid(lineNo, property, token, "invalid integer")
	}
	if n <= 0 {
		return invalid(lineNo, property, token, "must be greater than 0")
	}
	return nil
}
