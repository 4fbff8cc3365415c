package salesagg

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sale(total float64, year int, month time.Month, day int) SaleRecord {
	return SaleRecord{Total: total, Date: time.Date(year, month, day, 12, 0, 0, 0, time.UTC)}
}

func TestKeyOf(t *testing.T) {
	assert.Equal(t, Key{Year: 2023, Month: 1}, KeyOf(sale(1, 2023, time.January, 31)))
	assert.Equal(t, Key{Year: 2022, Month: 12}, KeyOf(sale(1, 2022, time.December, 1)))
}

func TestKeyLess(t *testing.T) {
	assert.True(t, Key{2022, 12}.Less(Key{2023, 1}))
	assert.True(t, Key{2023, 1}.Less(Key{2023, 2}))
	assert.False(t, Key{2023, 2}.Less(Key{2023, 2}))
	assert.False(t, Key{2024, 1}.Less(Key{2023, 12}))
}

func TestBucketAdd(t *testing.T) {
	b := newBucket()
	assert.True(t, math.IsInf(b.Max, -1))
	assert.True(t, math.IsInf(b.Min, 1))

	for _, v := range []float64{100, 200, 300} {
		b.Add(v)
	}
	assert.EqualValues(t, 3, b.Count)
	assert.Equal(t, 600.0, b.Sum)
	assert.Equal(t, 140000.0, b.SumOfSquares)
	assert.Equal(t, 300.0, b.Max)
	assert.Equal(t, 100.0, b.Min)
}

func TestBucketNegativeAmounts(t *testing.T) {
	b := newBucket()
	b.Add(-5)
	b.Add(-1)
	assert.Equal(t, -1.0, b.Max)
	assert.Equal(t, -5.0, b.Min)
}

func TestAccumulatorFold(t *testing.T) {
	acc := NewAccumulator()
	acc.Fold(Batch{
		sale(100, 2023, time.January, 15),
		sale(150, 2023, time.February, 1),
	})
	acc.Fold(Batch{
		sale(200, 2023, time.January, 20),
		sale(50, 2022, time.December, 25),
	})
	acc.Add(sale(300, 2023, time.January, 5))

	assert.Equal(t, 3, acc.Len())
	assert.EqualValues(t, 5, acc.Records())

	jan, ok := acc.Bucket(Key{2023, 1})
	require.True(t, ok)
	assert.EqualValues(t, 3, jan.Count)
	assert.Equal(t, 600.0, jan.Sum)
	assert.Equal(t, 300.0, jan.Max)
	assert.Equal(t, 100.0, jan.Min)

	_, ok = acc.Bucket(Key{2023, 3})
	assert.False(t, ok)
}

func TestAccumulatorEmptyBatch(t *testing.T) {
	acc := NewAccumulator()
	acc.Fold(nil)
	assert.Zero(t, acc.Len())
	assert.Zero(t, acc.Records())
}

func TestAccumulatorConservesCount(t *testing.T) {
	records := createSampleRecords()[:10_000]
	acc := NewAccumulator()
	acc.Fold(records)

	var total int64
	for _, r := range Report(acc) {
		total += r.NumberOfSales
	}
	assert.EqualValues(t, len(records), total)
	assert.EqualValues(t, len(records), acc.Records())
}
