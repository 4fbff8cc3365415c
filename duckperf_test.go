package salesagg

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tillberg/alog"
)

func createSampleArrowRecord(records []SaleRecord) arrow.Record {
	schema := arrow.NewSchema(
		[]arrow.Field{
			{Name: "ID", Type: arrow.PrimitiveTypes.Int64},
			{Name: "order_id", Type: arrow.PrimitiveTypes.Int64},
			{Name: "customer_id", Type: arrow.PrimitiveTypes.Int64},
			{Name: "total", Type: arrow.PrimitiveTypes.Float64},
			{Name: "fecha", Type: &arrow.TimestampType{Unit: arrow.Microsecond}},
		},
		nil,
	)
	rb := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer rb.Release()
	idBuilder := rb.Field(0).(*array.Int64Builder)
	orderBuilder := rb.Field(1).(*array.Int64Builder)
	customerBuilder := rb.Field(2).(*array.Int64Builder)
	totalBuilder := rb.Field(3).(*array.Float64Builder)
	dateBuilder := rb.Field(4).(*array.TimestampBuilder)

	for _, r := range records {
		idBuilder.Append(r.ID)
		orderBuilder.Append(r.OrderID)
		customerBuilder.Append(r.CustomerID)
		totalBuilder.Append(r.Total)
		dateBuilder.Append(arrow.Timestamp(r.Date.UnixMicro()))
	}
	return rb.NewRecord()
}

func setupDatabase(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE sales (
			ID BIGINT,
			order_id BIGINT,
			customer_id BIGINT,
			total DOUBLE,
			fecha TIMESTAMP
		)
	`)
	return err
}

func insertData(db *sql.DB, record arrow.Record) error {
	defer record.Release()
	timer := alog.NewTimer()
	tempFile := filepath.Join(os.TempDir(), fmt.Sprintf("salesagg_bulk_%d.parquet", os.Getpid()))

	file, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer os.Remove(tempFile)

	// The writer closes file.
	writer, err := pqarrow.NewFileWriter(record.Schema(), file, nil, pqarrow.DefaultWriterProps())
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	err = writer.WriteBuffered(record)
	if err != nil {
		writer.Close()
		return fmt.Errorf("failed to write record to parquet: %w", err)
	}
	err = writer.Close()
	if err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}

	query := fmt.Sprintf("INSERT INTO sales SELECT * FROM '%s'", tempFile)
	_, err = db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to execute INSERT FROM parquet: %w", err)
	}

	alog.Log("insertData took %s", timer.Elapsed())
	return nil
}

const monthlyRollupQuery = `
	SELECT
		year(fecha) AS year,
		month(fecha) AS month,
		COUNT(*) AS number_of_sales,
		MAX(total) AS max_total,
		MIN(total) AS min_total,
		AVG(total) AS average_total,
		STDDEV_POP(total) AS standard_deviation
	FROM %s
	GROUP BY year, month
	ORDER BY year, month`

func prepareDuckDBAggregation(db *sql.DB) *sql.Stmt {
	stmt, err := db.Prepare(fmt.Sprintf(monthlyRollupQuery, "sales"))
	alog.BailIf(err)
	return stmt
}

func scanMonthlyRollup(rows *sql.Rows) ([]Row, error) {
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var r Row
		var year, month int64
		err := rows.Scan(&year, &month, &r.NumberOfSales, &r.MaxTotal, &r.MinTotal, &r.AverageTotal, &r.StandardDeviation)
		if err != nil {
			return nil, err
		}
		r.Year, r.Month = int(year), int(month)
		out = append(out, r)
	}
	return out, rows.Err()
}

func aggregateSalesDuckDB(stmt *sql.Stmt) ([]Row, error) {
	rows, err := stmt.Query()
	if err != nil {
		return nil, err
	}
	return scanMonthlyRollup(rows)
}

var duckDBWithData *sql.DB
var duckDBWithDataOnce sync.Once

func getDuckDBWithData() *sql.DB {
	duckDBWithDataOnce.Do(func() {
		db, err := sql.Open("duckdb", ":memory:")
		alog.BailIf(err)
		err = setupDatabase(db)
		alog.BailIf(err)
		err = insertData(db, createSampleArrowRecord(createSampleRecords()))
		alog.BailIf(err)
		db.Exec("SET threads TO 1;")
		duckDBWithData = db
	})
	return duckDBWithData
}

func assertRowsMatch(tb testing.TB, want, got []Row) {
	tb.Helper()
	require.Len(tb, got, len(want))
	for i := range want {
		w, g := want[i], got[i]
		assert.Equal(tb, w.Year, g.Year)
		assert.Equal(tb, w.Month, g.Month)
		assert.Equal(tb, w.NumberOfSales, g.NumberOfSales)
		assert.Equal(tb, w.MaxTotal, g.MaxTotal)
		assert.Equal(tb, w.MinTotal, g.MinTotal)
		assert.InEpsilon(tb, w.AverageTotal, g.AverageTotal, 1e-9)
		assert.InEpsilon(tb, w.StandardDeviation, g.StandardDeviation, 1e-9)
	}
}

func TestDuckDBAggregation(t *testing.T) {
	db := getDuckDBWithData()
	stmt := prepareDuckDBAggregation(db)
	defer stmt.Close()

	result, err := aggregateSalesDuckDB(stmt)
	alog.BailIf(err)

	validateMonthRows(t, result)
	assertRowsMatch(t, result, aggregateSalesStructs(createSampleRecords()))
}

func BenchmarkDuckDBAggregation(b *testing.B) {
	db := getDuckDBWithData()
	stmt := prepareDuckDBAggregation(db)
	defer stmt.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		result, err := aggregateSalesDuckDB(stmt)
		alog.BailIf(err)
		validateMonthRows(b, result)
	}
}
