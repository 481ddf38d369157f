package prescription

import (
	"fmt"

	"github.com/ajitpratap0/parquet-linter/pkg/errors"
)

// ParseError reports a line that does not follow the directive grammar
type ParseError struct {
	Line    int
	Token   string
	Message string
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("line %d: %s (near %q)", e.Line, e.Message, e.Token)
}

// ErrorType implements errors.Typed
func (e *ParseError) ErrorType() errors.ErrorType { return errors.ErrorTypeParse }

// InvalidValueError reports a well-formed directive whose value is outside
// the closed set accepted by its property.
type InvalidValueError struct {
	Line     int
	Property Property
	Token    string
	Message  string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("line %d: invalid value %q for %s: %s", e.Line, e.Token, e.Property, e.Message)
}

// ErrorType implements errors.Typed
func (e *InvalidValueError) ErrorType() errors.ErrorType { return errors.ErrorTypeInvalidValue }

func parseErr(line int, token, format string, args ...interface{}) *ParseError {
	return &ParseError{Line: line, Token: token, Message: fmt.Sprintf(format, args...)}
}

func invalid(line int, property Property, token, format string, args ...interface{}) *InvalidValueError {
	return &InvalidValueError{Line: line, Property: property, Token: token, Message: fmt.Sprintf(format, args...)}
}
