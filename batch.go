package salesagg

// DefaultBatchSize bounds how many records are buffered before a fold.
const DefaultBatchSize = 10_000

// Batch is a bounded run of consecutive records, in input order.
type Batch []SaleRecord

// Batcher groups a RecordReader's records into batches of at most size
// records. The last, partial batch is produced once; an empty input produces
// no batch at all.
type Batcher struct {
	rr    *RecordReader
	size  int
	owned bool
	buf   Batch
	n     int
}

// NewBatcher returns a batcher that reuses a single buffer: the batch returned
// by Batch is only valid until the next call to Next.
func NewBatcher(rr *RecordReader, size int) *Batcher {
	if size < 1 {
		size = DefaultBatchSize
	}
	return &Batcher{rr: rr, size: size, buf: make(Batch, 0, size)}
}

// newOwnedBatcher hands out a fresh slice per batch, so batches can cross
// goroutines.
func newOwnedBatcher(rr *RecordReader, size int) *Batcher {
	b := NewBatcher(rr, size)
	b.owned = true
	return b
}

// Next fills the next batch. It returns false once the reader is exhausted or
// has failed; check Err.
func (b *Batcher) Next() bool {
	if b.owned {
		b.buf = make(Batch, 0, b.size)
	} else {
		b.buf = b.buf[:0]
	}
	for len(b.buf) < b.size && b.rr.Next() {
		b.buf = append(b.buf, b.rr.Record())
	}
	if b.rr.Err() != nil || len(b.buf) == 0 {
		return false
	}
	b.n++
	return true
}

// Batch returns the batch filled by the last successful Next.
func (b *Batcher) Batch() Batch { return b.buf }

// Err reports the reader's error.
func (b *Batcher) Err() error { return b.rr.Err() }

// Batches is the number of batches produced so far.
func (b *Batcher) Batches() int { return b.n }
