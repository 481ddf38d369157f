// Package errors provides examples of structured error handling in parquet-linter.
package errors_test

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/ajitpratap0/parquet-linter/pkg/errors"
)

// Example demonstrates basic error creation and wrapping.
func Example() {
	// Create a new error with type
	err := errors.New(errors.ErrorTypeValidation, "unknown rule name")

	// Add context details
	err = err.WithDetail("rule", "no-such-rule")

	fmt.Println(err.Error())

	// Output:
	// validation: unknown rule name
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	originalErr := io.ErrUnexpectedEOF

	err := errors.Wrap(originalErr, errors.ErrorTypeDecode, "failed to read footer").
		WithDetail("file", "data.parquet")

	if errors.IsType(err, errors.ErrorTypeDecode) {
		fmt.Println("This is a decode error")
	}

	if stderrors.Is(err, io.ErrUnexpectedEOF) {
		fmt.Println("Original error was unexpected EOF")
	}

	// Output:
	// This is a decode error
	// Original error was unexpected EOF
}

type lineError struct{ line int }

func (e *lineError) Error() string                { return fmt.Sprintf("bad line %d", e.line) }
func (e *lineError) ErrorType() errors.ErrorType { return errors.ErrorTypeParse }

// ExampleIsType shows that domain error structs report their own category.
func ExampleIsType() {
	err := fmt.Errorf("loading prescription: %w", &lineError{line: 3})

	fmt.Println(errors.IsType(err, errors.ErrorTypeParse))
	fmt.Println(errors.IsType(err, errors.ErrorTypeIO))
	fmt.Println(errors.GetType(err))

	// Output:
	// true
	// false
	// parse
}

// ExampleDetails collects the details attached along a chain.
func ExampleDetails() {
	inner := errors.New(errors.ErrorTypeIO, "short read").WithDetail("path", "data.parquet")
	err := errors.Wrap(inner, errors.ErrorTypeDecode, "failed to read footer").WithDetail("offset", 4)

	details := errors.Details(err)
	fmt.Println(details["path"], details["offset"])
	fmt.Println(errors.Details(io.EOF) == nil)

	// Output:
	// data.parquet 4
	// true
}
