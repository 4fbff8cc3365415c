package salesagg

import (
	"errors"
	"fmt"
)

var (
	ErrMissingColumn   = errors.New("missing required column")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrInvalidValue    = errors.New("invalid value")
)

// SourceReadError reports that the input could not be opened or read.
type SourceReadError struct {
	Path string
	Err  error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("read source %s: %v", e.Path, e.Err)
}

func (e *SourceReadError) Unwrap() error { return e.Err }

// ParseError reports a row that violates the delimited-text syntax, a header
// that cannot be bound to the schema, or (in strict mode) a value rejected by
// its column decoder. Line is 1-based and counts the header.
type ParseError struct {
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("parse line %d column %q: %v", e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("parse line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SinkWriteError reports that the output could not be written, flushed or closed.
// A partially written output is left in place.
type SinkWriteError struct {
	Path string
	Err  error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("write sink %s: %v", e.Path, e.Err)
}

func (e *SinkWriteError) Unwrap() error { return e.Err }
