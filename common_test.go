package salesagg

import (
	"bytes"
	"encoding/csv"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	TOTAL_RECORDS            = 240_000
	SAMPLE_MONTHS            = 24
	EXPECTED_SALES_PER_MONTH = TOTAL_RECORDS / SAMPLE_MONTHS
)

// sampleMonths covers 2022-01 through 2023-12.
var sampleMonths = func() []time.Time {
	months := make([]time.Time, SAMPLE_MONTHS)
	for i := range months {
		months[i] = time.Date(2022, time.January, 15, 12, 0, 0, 0, time.UTC).AddDate(0, i, 0)
	}
	return months
}()

// smallSalesCSV spans three months; 2023-01 holds 100, 200 and 300.
const smallSalesCSV = `ID,order_id,customer_id,total,fecha
1,101,1,100.00,2023-01-15T10:00:00.000Z
2,102,1,200.00,2023-01-20T11:00:00.000Z
3,103,2,150.00,2023-02-01T12:00:00.000Z
4,104,3,250.00,2023-02-10T13:00:00.000Z
5,105,1,50.00,2022-12-25T09:00:00.000Z
6,106,2,300.00,2023-01-05T08:00:00.000Z`

const headerOnlyCSV = `ID,order_id,customer_id,total,fecha`

func createSampleRecords() []SaleRecord {
	records := make([]SaleRecord, 0, TOTAL_RECORDS)
	for i := 0; i < TOTAL_RECORDS; i++ {
		records = append(records, SaleRecord{
			ID:         int64(i + 1),
			OrderID:    int64(100000 + i%900000),
			CustomerID: int64(1000 + i%9000),
			Total:      100.0 + 10.0*float64(i%1000) + float64(i%7)*0.25,
			Date:       sampleMonths[i%len(sampleMonths)],
		})
	}
	rng := rand.New(rand.NewPCG(7, 11))
	rng.Shuffle(len(records), func(i, j int) {
		records[i], records[j] = records[j], records[i]
	})
	return records
}

// encodeSampleCSV renders records with the default header.
func encodeSampleCSV(tb testing.TB, records []SaleRecord) []byte {
	tb.Helper()
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	require.NoError(tb, cw.Write([]string{"ID", "order_id", "customer_id", "total", "fecha"}))
	for _, r := range records {
		require.NoError(tb, cw.Write([]string{
			strconv.FormatInt(r.ID, 10),
			strconv.FormatInt(r.OrderID, 10),
			strconv.FormatInt(r.CustomerID, 10),
			strconv.FormatFloat(r.Total, 'f', -1, 64),
			r.Date.Format(time.RFC3339),
		}))
	}
	cw.Flush()
	require.NoError(tb, cw.Error())
	return buf.Bytes()
}

func writeTempFile(tb testing.TB, name, content string) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	require.NoError(tb, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readReportCSV(tb testing.TB, path string) [][]string {
	tb.Helper()
	f, err := os.Open(path)
	require.NoError(tb, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(tb, err)
	return rows
}

func newTestPipeline(tb testing.TB, opts Options) *Pipeline {
	tb.Helper()
	opts.Quiet = true
	p, err := NewPipeline(opts)
	require.NoError(tb, err)
	return p
}
