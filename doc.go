// Package salesagg rolls a sales transaction log up into monthly statistics.
//
// Rows are decoded by a RecordReader, grouped by a Batcher and folded into an
// Accumulator keyed by calendar month. Report finalizes the running sums into
// count, max, min, mean and population standard deviation, sorted by month,
// and an Emitter writes them out as CSV or Parquet. Pipeline wires these
// together over local files or s3:// objects.
package salesagg
