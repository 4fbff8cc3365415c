package salesagg

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// GenerateOptions controls the synthetic sales log written by Generate.
type GenerateOptions struct {
	Records   int
	StartYear int
	EndYear   int
	Seed      uint64
}

// DefaultGenerateOptions matches the reference data set: two million sales
// spread over 2020-2023.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Records:   2_000_000,
		StartYear: 2020,
		EndYear:   2023,
		Seed:      1,
	}
}

// Generate writes a header and opts.Records random sales rows to w. The same
// seed always produces the same bytes.
func Generate(w io.Writer, opts GenerateOptions) error {
	if opts.Records < 0 {
		return fmt.Errorf("record count must be >= 0, got %d", opts.Records)
	}
	if opts.EndYear < opts.StartYear {
		return fmt.Errorf("end year %d is before start year %d", opts.EndYear, opts.StartYear)
	}

	start := time.Date(opts.StartYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(opts.EndYear, time.December, 31, 0, 0, 0, 0, time.UTC)
	days := int(end.Sub(start).Hours() / 24)
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	names := DefaultColumnNames()
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{names.ID, names.OrderID, names.CustomerID, names.Total, names.Date}); err != nil {
		return err
	}
	row := make([]string, 5)
	for i := 0; i < opts.Records; i++ {
		total := decimal.NewFromFloat(10 + rng.Float64()*990).Round(2)
		date := start.AddDate(0, 0, rng.IntN(days+1))

		row[0] = strconv.Itoa(i + 1)
		row[1] = strconv.Itoa(100000 + rng.IntN(900000))
		row[2] = strconv.Itoa(1000 + rng.IntN(9000))
		row[3] = total.String()
		row[4] = date.Format("2006-01-02T15:04:05")
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
