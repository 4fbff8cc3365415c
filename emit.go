package salesagg

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// Emitter serializes report rows. Emit must return only after everything it
// buffers has been handed to w; closing w is the caller's job.
type Emitter interface {
	Emit(w io.Writer, rows []Row) error
}

// Format names an output encoding.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// NewEmitter returns the emitter for format. comma only applies to CSV.
func NewEmitter(format Format, comma rune) (Emitter, error) {
	switch format {
	case "", FormatCSV:
		return CSVEmitter{Comma: comma}, nil
	case FormatParquet:
		return ParquetEmitter{}, nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

// CSVEmitter writes a header row followed by one row per month.
type CSVEmitter struct {
	Comma rune
}

func (e CSVEmitter) Emit(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if e.Comma != 0 {
		cw.Comma = e.Comma
	}
	if err := cw.Write(ReportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Strings()); err != nil {
			return fmt.Errorf("write row %d-%02d: %w", r.Year, r.Month, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ParquetEmitter writes the report as a single-row-group Parquet file. The
// statistics are stored as float64 rounded like their CSV rendering.
type ParquetEmitter struct{}

var reportSchema = arrow.NewSchema(
	[]arrow.Field{
		{Name: "year", Type: arrow.PrimitiveTypes.Int64},
		{Name: "month", Type: arrow.PrimitiveTypes.Int64},
		{Name: "numberOfSales", Type: arrow.PrimitiveTypes.Int64},
		{Name: "maxTotal", Type: arrow.PrimitiveTypes.Float64},
		{Name: "minTotal", Type: arrow.PrimitiveTypes.Float64},
		{Name: "averageTotal", Type: arrow.PrimitiveTypes.Float64},
		{Name: "standardDeviation", Type: arrow.PrimitiveTypes.Float64},
	},
	nil,
)

func (ParquetEmitter) Emit(w io.Writer, rows []Row) error {
	rb := array.NewRecordBuilder(memory.DefaultAllocator, reportSchema)
	defer rb.Release()
	yearBuilder := rb.Field(0).(*array.Int64Builder)
	monthBuilder := rb.Field(1).(*array.Int64Builder)
	salesBuilder := rb.Field(2).(*array.Int64Builder)
	maxBuilder := rb.Field(3).(*array.Float64Builder)
	minBuilder := rb.Field(4).(*array.Float64Builder)
	avgBuilder := rb.Field(5).(*array.Float64Builder)
	stdBuilder := rb.Field(6).(*array.Float64Builder)

	for _, r := range rows {
		yearBuilder.Append(int64(r.Year))
		monthBuilder.Append(int64(r.Month))
		salesBuilder.Append(r.NumberOfSales)
		maxBuilder.Append(RoundAmount(r.MaxTotal))
		minBuilder.Append(RoundAmount(r.MinTotal))
		avgBuilder.Append(RoundAmount(r.AverageTotal))
		stdBuilder.Append(RoundAmount(r.StandardDeviation))
	}
	record := rb.NewRecord()
	defer record.Release()

	// The parquet writer closes its sink when it closes; keep that for the caller.
	writer, err := pqarrow.NewFileWriter(reportSchema, writeOnly{w}, nil, pqarrow.DefaultWriterProps())
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if err := writer.WriteBuffered(record); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write record to parquet: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

type writeOnly struct {
	io.Writer
}
