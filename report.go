package salesagg

import (
	"math"
	"slices"
	"strconv"

	"github.com/shopspring/decimal"
)

// ReportHeader is the column order of every emitted report.
var ReportHeader = []string{"year", "month", "numberOfSales", "maxTotal", "minTotal", "averageTotal", "standardDeviation"}

// Row is the finalized statistics of one month.
type Row struct {
	Year              int
	Month             int
	NumberOfSales     int64
	MaxTotal          float64
	MinTotal          float64
	AverageTotal      float64
	StandardDeviation float64
}

// Finalize turns running statistics into mean and population standard
// deviation. Cancellation can push the variance slightly below zero when all
// amounts are equal; it is clamped to zero.
func Finalize(key Key, b Bucket) Row {
	mean := b.Sum / float64(b.Count)
	variance := b.SumOfSquares/float64(b.Count) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return Row{
		Year:              key.Year,
		Month:             key.Month,
		NumberOfSales:     b.Count,
		MaxTotal:          b.Max,
		MinTotal:          b.Min,
		AverageTotal:      mean,
		StandardDeviation: math.Sqrt(variance),
	}
}

// Report finalizes every bucket and returns the rows in chronological order.
func Report(acc *Accumulator) []Row {
	rows := make([]Row, 0, len(acc.buckets))
	for key, b := range acc.buckets {
		rows = append(rows, Finalize(key, *b))
	}
	slices.SortFunc(rows, func(a, b Row) int {
		if a.Year != b.Year {
			return a.Year - b.Year
		}
		return a.Month - b.Month
	})
	return rows
}

// Strings renders the row in ReportHeader order.
func (r Row) Strings() []string {
	return []string{
		strconv.Itoa(r.Year),
		strconv.Itoa(r.Month),
		strconv.FormatInt(r.NumberOfSales, 10),
		FormatAmount(r.MaxTotal),
		FormatAmount(r.MinTotal),
		FormatAmount(r.AverageTotal),
		FormatAmount(r.StandardDeviation),
	}
}

// FormatAmount renders v with exactly two decimals, rounding the shortest
// decimal representation of v half away from zero (1.005 -> "1.01").
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// RoundAmount is the numeric counterpart of FormatAmount.
func RoundAmount(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
