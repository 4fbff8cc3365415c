package salesagg

import "math"

// Key identifies a calendar month.
type Key struct {
	Year  int
	Month int // 1-12
}

// KeyOf returns the (year, month) bucket key of a record's date.
func KeyOf(rec SaleRecord) Key {
	return Key{Year: rec.Date.Year(), Month: int(rec.Date.Month())}
}

// Less orders keys chronologically.
func (k Key) Less(o Key) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return k.Month < o.Month
}

// Bucket holds the running statistics of one month. Variance is derived from
// raw moments (sum and sum of squares), which loses precision when the spread
// is tiny compared to the magnitude of the amounts.
type Bucket struct {
	Count        int64
	Sum          float64
	SumOfSquares float64
	Max          float64
	Min          float64
}

func newBucket() *Bucket {
	return &Bucket{Max: math.Inf(-1), Min: math.Inf(1)}
}

// Add folds one amount into the bucket.
func (b *Bucket) Add(total float64) {
	b.Count++
	b.Sum += total
	b.SumOfSquares += total * total
	b.Max = math.Max(b.Max, total)
	b.Min = math.Min(b.Min, total)
}

// Accumulator maps months to their running statistics. It is owned by a
// single run and is not safe for concurrent use.
type Accumulator struct {
	buckets map[Key]*Bucket
	records int64
}

func NewAccumulator() *Accumulator {
	return &Accumulator{buckets: make(map[Key]*Bucket)}
}

// Fold adds every record of batch, in order.
func (a *Accumulator) Fold(batch Batch) {
	for i := range batch {
		a.Add(batch[i])
	}
}

// Add folds a single record.
func (a *Accumulator) Add(rec SaleRecord) {
	key := KeyOf(rec)
	b, ok := a.buckets[key]
	if !ok {
		b = newBucket()
		a.buckets[key] = b
	}
	b.Add(rec.Total)
	a.records++
}

// Bucket returns the statistics for key, if any record has been folded into it.
func (a *Accumulator) Bucket(key Key) (Bucket, bool) {
	b, ok := a.buckets[key]
	if !ok {
		return Bucket{}, false
	}
	return *b, true
}

// Len is the number of distinct months seen.
func (a *Accumulator) Len() int { return len(a.buckets) }

// Records is the number of records folded.
func (a *Accumulator) Records() int64 { return a.records }
