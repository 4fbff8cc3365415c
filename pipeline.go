package salesagg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/tillberg/alog"
	"golang.org/x/sync/errgroup"
)

// Options configures a Pipeline. Zero values select the defaults: batches of
// DefaultBatchSize, comma delimiter, UTC, strict decoding, DefaultSchema, CSV.
type Options struct {
	BatchSize int
	Comma     rune
	Location  *time.Location
	Mode      DecodeMode
	Schema    Schema
	Format    Format
	// Prefetch decodes the next batch on a second goroutine while the
	// current one is folded. Results are identical either way.
	Prefetch bool
	Storage  *Storage
	// Quiet suppresses progress logging.
	Quiet bool
}

// Summary describes a completed run.
type Summary struct {
	RunID    uuid.UUID
	Input    string
	Output   string
	Records  int
	Skipped  int
	Batches  int
	Months   int
	Duration time.Duration
}

// IngestStats counts what ingestion produced.
type IngestStats struct {
	Records int
	Skipped int
	Batches int
}

// Pipeline reads a sales log, aggregates it by month and writes the report.
type Pipeline struct {
	opts    Options
	emitter Emitter
}

func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Comma == 0 {
		opts.Comma = ','
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if len(opts.Schema.Columns) == 0 {
		opts.Schema = DefaultSchema()
	}
	if opts.Format == "" {
		opts.Format = FormatCSV
	}
	if opts.Storage == nil {
		opts.Storage = NewStorage(S3Options{})
	}
	emitter, err := NewEmitter(opts.Format, opts.Comma)
	if err != nil {
		return nil, err
	}
	return &Pipeline{opts: opts, emitter: emitter}, nil
}

// Run aggregates input into output. Nothing is written unless the whole input
// was read and decoded; the returned error is a *SourceReadError, *ParseError or
// *SinkWriteError, or the context's error.
func (p *Pipeline) Run(ctx context.Context, input, output string) (Summary, error) {
	sum := Summary{RunID: uuid.New(), Input: input, Output: output}
	start := time.Now()

	src, err := p.opts.Storage.OpenSource(ctx, input)
	if err != nil {
		return sum, err
	}
	defer src.Close()

	timer := alog.NewTimer()
	acc, stats, err := p.Aggregate(ctx, src)
	if err != nil {
		return sum, withSourcePath(err, input)
	}
	sum.Records, sum.Skipped, sum.Batches, sum.Months = stats.Records, stats.Skipped, stats.Batches, acc.Len()
	p.logf("[%s] folded %d records in %d batches into %d months in %s", sum.RunID, stats.Records, stats.Batches, acc.Len(), timer.Elapsed())
	if stats.Skipped > 0 {
		p.logf("[%s] skipped %d rows with undecodable values", sum.RunID, stats.Skipped)
	}

	timer = alog.NewTimer()
	if err := p.Emit(ctx, output, Report(acc)); err != nil {
		return sum, err
	}
	p.logf("[%s] wrote %s report to %s in %s", sum.RunID, p.opts.Format, output, timer.Elapsed())

	sum.Duration = time.Since(start)
	return sum, nil
}

// Aggregate reads every record of r and folds it into a fresh accumulator.
func (p *Pipeline) Aggregate(ctx context.Context, r io.Reader) (*Accumulator, IngestStats, error) {
	rr := NewRecordReader(r, ReaderOptions{
		Schema:   p.opts.Schema,
		Comma:    p.opts.Comma,
		Location: p.opts.Location,
		Mode:     p.opts.Mode,
	})
	acc := NewAccumulator()

	var batches int
	var err error
	if p.opts.Prefetch {
		batches, err = p.foldPrefetched(ctx, rr, acc)
	} else {
		batches, err = p.fold(ctx, rr, acc)
	}
	stats := IngestStats{Records: rr.Records(), Skipped: rr.Skipped(), Batches: batches}
	if err != nil {
		return nil, stats, err
	}
	return acc, stats, nil
}

func (p *Pipeline) fold(ctx context.Context, rr *RecordReader, acc *Accumulator) (int, error) {
	b := NewBatcher(rr, p.opts.BatchSize)
	for b.Next() {
		if err := ctx.Err(); err != nil {
			return b.Batches(), err
		}
		acc.Fold(b.Batch())
	}
	return b.Batches(), b.Err()
}

// foldPrefetched decodes on one goroutine and folds on another. The channel
// keeps batches in input order.
func (p *Pipeline) foldPrefetched(ctx context.Context, rr *RecordReader, acc *Accumulator) (int, error) {
	b := newOwnedBatcher(rr, p.opts.BatchSize)
	batches := make(chan Batch, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(batches)
		for b.Next() {
			if err := gctx.Err(); err != nil {
				return err
			}
			select {
			case batches <- b.Batch():
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return b.Err()
	})
	g.Go(func() error {
		for batch := range batches {
			acc.Fold(batch)
		}
		return nil
	})
	err := g.Wait()
	return b.Batches(), err
}

// Emit writes rows to output with the configured emitter and closes the sink.
func (p *Pipeline) Emit(ctx context.Context, output string, rows []Row) error {
	sink, err := p.opts.Storage.CreateSink(ctx, output, contentType(p.opts.Format))
	if err != nil {
		return err
	}
	if err := p.emitter.Emit(sink, rows); err != nil {
		var cleanupErr error
		if a, ok := sink.(interface{ Abort() error }); ok {
			cleanupErr = a.Abort()
		} else {
			cleanupErr = sink.Close()
		}
		if cleanupErr != nil {
			err = errors.Join(err, fmt.Errorf("cleanup: %w", cleanupErr))
		}
		return &SinkWriteError{Path: output, Err: err}
	}
	if err := sink.Close(); err != nil {
		return &SinkWriteError{Path: output, Err: fmt.Errorf("close: %w", err)}
	}
	return nil
}

func (p *Pipeline) logf(format string, args ...interface{}) {
	if p.opts.Quiet {
		return
	}
	alog.Log(format, args...)
}

func contentType(f Format) string {
	if f == FormatParquet {
		return "application/vnd.apache.parquet"
	}
	return "text/csv"
}

func withSourcePath(err error, path string) error {
	var se *SourceReadError
	if errors.As(err, &se) && se.Path == "" {
		se.Path = path
	}
	return err
}
