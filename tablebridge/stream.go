// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package tablebridge

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// ParquetStream reads a Parquet file incrementally, surfacing one
// single-batch table per Next call so arbitrarily large files can be
// consumed in bounded memory.
//
// The stream moves through three states. Open: Next yields batches until
// the file is exhausted. Closed (after Close): Next fails loudly rather
// than returning a silent end-of-stream. A stream must not be used from
// multiple goroutines at once.
type ParquetStream struct {
	path   string
	pf     *file.Reader
	rr     pqarrow.RecordReader
	closed bool
}

// ParquetStreamOptions configures OpenParquetStream.
type ParquetStreamOptions struct {
	// Columns restricts the stream to the given column indices, in order.
	// Empty means all columns.
	Columns []int
	// BatchSize caps the rows per yielded batch. Zero or negative selects
	// the reader's default.
	BatchSize int64
	// Threads controls parallel column decoding inside the reader.
	Threads ThreadMode
	// MemoryMap maps the file instead of buffered reads.
	MemoryMap bool
}

// OpenParquetStream opens a Parquet file for incremental reading across
// all of its row groups.
func OpenParquetStream(ctx context.Context, path string, opts ParquetStreamOptions) (s *ParquetStream, err error) {
	span := beginOp(ctx, "open_parquet_stream", path, FormatParquet)
	defer func() { span.end(err) }()
	defer guard("parquet reader open", &err)

	pf, err := file.OpenParquetFile(path, opts.MemoryMap)
	if err != nil {
		return nil, ioErrorf("parquet reader open: %v", err)
	}
	props := arrowReadProps(opts.Threads)
	if opts.BatchSize > 0 {
		props.BatchSize = opts.BatchSize
	}
	fr, err := pqarrow.NewFileReader(pf, props, memory.DefaultAllocator)
	if err != nil {
		pf.Close()
		return nil, formatErrorf("parquet reader open: %v", err)
	}
	rr, err := fr.GetRecordReader(ctx, opts.Columns, allRowGroups(pf))
	if err != nil {
		pf.Close()
		return nil, formatErrorf("parquet reader open: %v", err)
	}
	return &ParquetStream{path: path, pf: pf, rr: rr}, nil
}

// Next returns the next batch as a single-chunk table, or (nil, nil) once
// the stream is exhausted. Calling Next on a closed stream is an error,
// not a quiet end-of-stream.
func (s *ParquetStream) Next() (t *Table, err error) {
	span := beginOp(context.Background(), "parquet_stream_next", s.path, FormatParquet)
	defer func() { span.end(err) }()
	defer guard("parquet reader next", &err)

	if s.closed {
		return nil, argErrorf("reader has already been closed")
	}
	rec, err := s.rr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, normalize(KindFormat, "parquet reader next", err)
	}
	span.stats.RecordBatch(rec.NumRows(), batchBufferSize(rec))
	// The record is only valid until the next Read; the table takes its
	// own references to the buffers.
	return wrapTable(array.NewTableFromRecords(rec.Schema(), []arrow.Record{rec})), nil
}

// Close releases the stream's reader and underlying file. It is safe to
// call more than once; only the first call has an effect.
func (s *ParquetStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.rr.Release()
	s.rr = nil
	err := s.pf.Close()
	s.pf = nil
	if err != nil {
		return ioErrorf("parquet reader close: %v", err)
	}
	return nil
}
