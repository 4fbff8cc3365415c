package salesagg

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// DecodeMode controls what happens to a row whose typed value cannot be decoded.
type DecodeMode int

const (
	// ModeStrict fails the run on the first undecodable value.
	ModeStrict DecodeMode = iota
	// ModeSkip drops the row and counts it.
	ModeSkip
)

// ParseDecodeMode maps "strict" and "skip" to their modes.
func ParseDecodeMode(s string) (DecodeMode, error) {
	switch s {
	case "", "strict":
		return ModeStrict, nil
	case "skip":
		return ModeSkip, nil
	}
	return ModeStrict, fmt.Errorf("unknown decode mode %q", s)
}

func (m DecodeMode) String() string {
	if m == ModeSkip {
		return "skip"
	}
	return "strict"
}

// ReaderOptions configures a RecordReader.
type ReaderOptions struct {
	Schema   Schema
	Comma    rune
	Location *time.Location
	Mode     DecodeMode
}

// RecordReader is a pull iterator over the typed rows of a delimited source.
//
//	rr := NewRecordReader(f, opts)
//	for rr.Next() {
//		rec := rr.Record()
//	}
//	if err := rr.Err(); err != nil { ... }
type RecordReader struct {
	csv     *csv.Reader
	opts    ReaderOptions
	bind    *Binding
	started bool

	cur     SaleRecord
	err     error
	line    int
	records int
	skipped int
}

// NewRecordReader wraps r. The header is read lazily by the first call to Next.
func NewRecordReader(r io.Reader, opts ReaderOptions) *RecordReader {
	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if len(opts.Schema.Columns) == 0 {
		opts.Schema = DefaultSchema()
	}
	return &RecordReader{csv: cr, opts: opts}
}

// Next advances to the next decoded record. It returns false at end of input
// or on the first error, which Err then reports.
func (rr *RecordReader) Next() bool {
	if rr.err != nil {
		return false
	}
	if !rr.started {
		rr.started = true
		if !rr.readHeader() {
			return false
		}
	}
	if rr.bind == nil {
		return false
	}

	for {
		row, err := rr.csv.Read()
		if err == io.EOF {
			return false
		}
		if err != nil {
			rr.err = rr.wrapReadErr(err)
			return false
		}
		rr.line, _ = rr.csv.FieldPos(0)

		col, err := rr.bind.decode(row, rr.opts.Location, &rr.cur)
		if err != nil {
			if rr.opts.Mode == ModeSkip {
				rr.skipped++
				continue
			}
			rr.err = &ParseError{Line: rr.line, Column: col, Err: err}
			return false
		}
		rr.records++
		return true
	}
}

func (rr *RecordReader) readHeader() bool {
	header, err := rr.csv.Read()
	if err == io.EOF {
		return false
	}
	if err != nil {
		rr.err = rr.wrapReadErr(err)
		return false
	}
	rr.line = 1
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	b, err := rr.opts.Schema.Bind(header)
	if err != nil {
		rr.err = err
		return false
	}
	rr.bind = b
	rr.csv.ReuseRecord = true
	return true
}

// wrapReadErr separates csv syntax errors from failures of the underlying reader.
func (rr *RecordReader) wrapReadErr(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Err: pe.Err}
	}
	return &SourceReadError{Err: err}
}

// Record returns the record decoded by the last successful Next.
func (rr *RecordReader) Record() SaleRecord { return rr.cur }

// Err returns the error that stopped iteration, or nil at clean end of input.
func (rr *RecordReader) Err() error { return rr.err }

// Header returns the header row, or nil before the first Next or for empty input.
func (rr *RecordReader) Header() []string {
	if rr.bind == nil {
		return nil
	}
	return rr.bind.header
}

// Records is the number of records produced so far.
func (rr *RecordReader) Records() int { return rr.records }

// Skipped is the number of rows dropped in ModeSkip.
func (rr *RecordReader) Skipped() int { return rr.skipped }
