package statement

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned for formats with no parser.
	ErrUnsupportedFormat = errors.New("unsupported statement format")
	// ErrInvalidDocument is returned when a structured file cannot be decoded at all.
	ErrInvalidDocument = errors.New("invalid statement document")
)

// ParseError ties a row-level failure to its position in the source.
type ParseError struct {
	Err    error
	Format Format
	Raw    string
	Line   int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s line %d: %v", e.Format, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// MalformedRowError reports a row without the expected fields.
type MalformedRowError struct {
	Reason string
	Got    int
	Want   int
}

func (e *MalformedRowError) Error() string {
	if e.Reason != "" {
		return "malformed row: " + e.Reason
	}
	return fmt.Sprintf("malformed row: got %d fields, want %d", e.Got, e.Want)
}

// AmountParseError reports an amount that is not a number.
type AmountParseError struct {
	Err   error
	Value string
}

func (e *AmountParseError) Error() string {
	return fmt.Sprintf("invalid amount %q", e.Value)
}

func (e *AmountParseError) Unwrap() error {
	return e.Err
}
