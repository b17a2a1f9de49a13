// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package tablebridge

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ThreadMode is the tri-state flag forwarded to the Parquet reader's
// internal column decoding. The bridge itself never creates threads.
type ThreadMode int

const (
	// ThreadsDefault leaves the library's default behavior in place.
	ThreadsDefault ThreadMode = iota
	// ThreadsOff forces single-threaded decoding.
	ThreadsOff
	// ThreadsOn requests parallel column decoding.
	ThreadsOn
)

// ParquetReadOptions configures ReadParquet and OpenParquetStream.
type ParquetReadOptions struct {
	// Columns restricts reading to the given column indices, in order.
	// Empty means all columns.
	Columns []int
	// Threads controls parallel column decoding inside the reader.
	Threads ThreadMode
	// MemoryMap maps the file instead of buffered reads.
	MemoryMap bool
	// OnlyFirst, when non-nil, limits the read to the first *OnlyFirst
	// rows. Row groups past the limit are never decoded; the final
	// partially-needed batch is sliced to the exact remaining count.
	OnlyFirst *int64
}

// ReadParquet reads an entire Parquet file into one table handle.
func ReadParquet(ctx context.Context, path string, opts ParquetReadOptions) (t *Table, err error) {
	span := beginOp(ctx, "read_parquet", path, FormatParquet)
	defer func() { span.end(err) }()
	defer guard("parquet read", &err)

	rdr, err := file.OpenParquetFile(path, opts.MemoryMap)
	if err != nil {
		return nil, ioErrorf("parquet read: %v", err)
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, arrowReadProps(opts.Threads), memory.DefaultAllocator)
	if err != nil {
		return nil, formatErrorf("parquet read: %v", err)
	}

	if opts.OnlyFirst == nil {
		var tbl arrow.Table
		if len(opts.Columns) > 0 {
			tbl, err = fr.ReadRowGroups(ctx, opts.Columns, allRowGroups(rdr))
		} else {
			tbl, err = fr.ReadTable(ctx)
		}
		if err != nil {
			return nil, normalize(KindFormat, "parquet read", err)
		}
		span.stats.RecordBatch(tbl.NumRows(), tableBufferSize(tbl))
		return wrapTable(tbl), nil
	}
	return readParquetLimited(ctx, span, fr, rdr, opts)
}

// readParquetLimited iterates row groups and batches until the row limit
// is satisfied, slicing the final batch to the exact remainder so no row
// group past the limit is decoded.
func readParquetLimited(ctx context.Context, span *opSpan, fr *pqarrow.FileReader, rdr *file.Reader, opts ParquetReadOptions) (*Table, error) {
	remaining := *opts.OnlyFirst
	var recs []arrow.Record
	defer func() {
		for _, r := range recs {
			r.Release()
		}
	}()

	for g := 0; g < rdr.NumRowGroups() && remaining > 0; g++ {
		rr, err := fr.GetRecordReader(ctx, opts.Columns, []int{g})
		if err != nil {
			return nil, normalize(KindFormat, "parquet read", err)
		}
		for remaining > 0 {
			rec, err := rr.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				rr.Release()
				return nil, normalize(KindFormat, "parquet read", err)
			}
			if remaining <= rec.NumRows() {
				recs = append(recs, rec.NewSlice(0, remaining))
				remaining = 0
			} else {
				rec.Retain()
				recs = append(recs, rec)
				remaining -= rec.NumRows()
			}
			last := recs[len(recs)-1]
			span.stats.RecordBatch(last.NumRows(), batchBufferSize(last))
		}
		rr.Release()
	}

	if len(recs) > 0 {
		return wrapTable(array.NewTableFromRecords(recs[0].Schema(), recs)), nil
	}
	schema, err := fr.Schema()
	if err != nil {
		return nil, formatErrorf("parquet read: %v", err)
	}
	schema, err = selectSchema(schema, opts.Columns)
	if err != nil {
		return nil, err
	}
	return emptyTable(schema), nil
}

// ReadFeather reads an entire Feather v2 file into one table handle,
// optionally restricted to the given column indices.
func ReadFeather(path string, columns []int) (t *Table, err error) {
	span := beginOp(context.Background(), "read_feather", path, FormatFeather)
	defer func() { span.end(err) }()
	defer guard("feather read", &err)

	f, err := os.Open(path)
	if err != nil {
		return nil, ioErrorf("feather read: %v", err)
	}
	defer f.Close()
	rdr, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, formatErrorf("feather read: %v", err)
	}
	defer rdr.Close()

	var recs []arrow.Record
	defer func() {
		for _, r := range recs {
			r.Release()
		}
	}()
	for {
		rec, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, formatErrorf("feather read: %v", err)
		}
		rec.Retain()
		recs = append(recs, rec)
		span.stats.RecordBatch(rec.NumRows(), batchBufferSize(rec))
	}

	tbl := array.NewTableFromRecords(rdr.Schema(), recs)
	if len(columns) == 0 {
		return wrapTable(tbl), nil
	}
	defer tbl.Release()
	return projectTable(tbl, columns)
}

// ReadCSV reads an entire CSV file into one table handle using default
// parsing and conversion options (header row, inferred column types).
// Gzip- and zstd-compressed inputs are detected and decompressed.
func ReadCSV(path string) (t *Table, err error) {
	span := beginOp(context.Background(), "read_csv", path, FormatCSV)
	defer func() { span.end(err) }()
	defer guard("csv read", &err)

	f, err := os.Open(path)
	if err != nil {
		return nil, ioErrorf("csv read: %v", err)
	}
	defer f.Close()
	r, cleanup, err := decompressed(f)
	if err != nil {
		return nil, formatErrorf("csv read: %v", err)
	}
	defer cleanup()

	rdr := csv.NewInferringReader(r,
		csv.WithAllocator(memory.DefaultAllocator),
		csv.WithChunk(1024),
		csv.WithHeader(true),
		csv.WithNullReader(true))
	defer rdr.Release()

	var recs []arrow.Record
	defer func() {
		for _, rec := range recs {
			rec.Release()
		}
	}()
	for rdr.Next() {
		rec := rdr.Record()
		rec.Retain()
		recs = append(recs, rec)
		span.stats.RecordBatch(rec.NumRows(), batchBufferSize(rec))
	}
	if err := rdr.Err(); err != nil {
		return nil, formatErrorf("csv read: %v", err)
	}
	schema := rdr.Schema()
	if schema == nil {
		return nil, formatErrorf("csv read: empty input")
	}
	return wrapTable(array.NewTableFromRecords(schema, recs)), nil
}

// arrowReadProps maps the tri-state thread flag onto reader properties.
func arrowReadProps(mode ThreadMode) pqarrow.ArrowReadProperties {
	return pqarrow.ArrowReadProperties{Parallel: mode == ThreadsOn}
}

// allRowGroups lists every row-group index of an open Parquet file.
func allRowGroups(rdr *file.Reader) []int {
	groups := make([]int, rdr.NumRowGroups())
	for i := range groups {
		groups[i] = i
	}
	return groups
}

// selectSchema projects a schema onto the given column indices.
func selectSchema(schema *arrow.Schema, columns []int) (*arrow.Schema, error) {
	if len(columns) == 0 {
		return schema, nil
	}
	fields := make([]arrow.Field, len(columns))
	for i, c := range columns {
		if c < 0 || c >= schema.NumFields() {
			return nil, argErrorf("invalid column index %d (ncols: %d)", c, schema.NumFields())
		}
		fields[i] = schema.Field(c)
	}
	return arrow.NewSchema(fields, nil), nil
}

// projectTable builds a new table sharing the storage of the selected
// columns of tbl.
func projectTable(tbl arrow.Table, columns []int) (*Table, error) {
	schema, err := selectSchema(tbl.Schema(), columns)
	if err != nil {
		return nil, err
	}
	cols := make([]arrow.Column, len(columns))
	for i, c := range columns {
		cols[i] = *tbl.Column(c)
	}
	return wrapTable(array.NewTable(schema, cols, tbl.NumRows())), nil
}

// emptyTable builds a zero-row table with the given schema.
func emptyTable(schema *arrow.Schema) *Table {
	cols := make([]arrow.Column, schema.NumFields())
	for i, f := range schema.Fields() {
		chunked := arrow.NewChunked(f.Type, nil)
		col := arrow.NewColumn(f, chunked)
		chunked.Release()
		cols[i] = *col
	}
	tbl := array.NewTable(schema, cols, 0)
	for i := range cols {
		cols[i].Release()
	}
	return wrapTable(tbl)
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// decompressed sniffs the stream's magic bytes and transparently wraps
// gzip- or zstd-compressed input. The returned cleanup must be called
// after reading completes.
func decompressed(f io.Reader) (io.Reader, func(), error) {
	br := bufio.NewReader(f)
	head, err := br.Peek(4)
	if err != nil && err != io.EOF {
		return nil, nil, err
	}
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		return gz, func() { gz.Close() }, nil
	case bytes.HasPrefix(head, zstdMagic):
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	default:
		return br, func() {}, nil
	}
}
