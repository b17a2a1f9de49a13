// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package tablebridge

import (
	"context"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// Compression selects the codec applied by the Parquet and Feather
// writers. The integer values are part of the C ABI contract; tags outside
// the known range fall back to CompressionNone.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionSnappy
	CompressionGzip
	CompressionBrotli
	CompressionZstd
	CompressionLZ4
	CompressionLZ4Frame
	CompressionLZO
	CompressionBZ2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionSnappy:
		return "snappy"
	case CompressionGzip:
		return "gzip"
	case CompressionBrotli:
		return "brotli"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	case CompressionLZ4Frame:
		return "lz4_frame"
	case CompressionLZO:
		return "lzo"
	case CompressionBZ2:
		return "bz2"
	default:
		return "none"
	}
}

// parquetCodec maps a selector to the Parquet codec enum. Unrecognized
// tags map to Uncompressed; recognized tags without a Go implementation
// surface a format error at write time, as the native codepath would.
func parquetCodec(c Compression) (compress.Compression, error) {
	switch c {
	case CompressionSnappy:
		return compress.Codecs.Snappy, nil
	case CompressionGzip:
		return compress.Codecs.Gzip, nil
	case CompressionBrotli:
		return compress.Codecs.Brotli, nil
	case CompressionZstd:
		return compress.Codecs.Zstd, nil
	case CompressionLZ4:
		return compress.Codecs.Lz4, nil
	case CompressionLZ4Frame, CompressionLZO, CompressionBZ2:
		return compress.Codecs.Uncompressed,
			formatErrorf("parquet: compression codec %s not available", c)
	default:
		return compress.Codecs.Uncompressed, nil
	}
}

// featherCodec maps a selector to IPC writer options. Feather v2 supports
// only LZ4-frame and Zstd body compression.
func featherCodec(c Compression) ([]ipc.Option, error) {
	switch c {
	case CompressionZstd:
		return []ipc.Option{ipc.WithZstd()}, nil
	case CompressionLZ4Frame:
		return []ipc.Option{ipc.WithLZ4()}, nil
	case CompressionSnappy, CompressionGzip, CompressionBrotli,
		CompressionLZ4, CompressionLZO, CompressionBZ2:
		return nil, formatErrorf("feather: compression codec %s not supported", c)
	default:
		return nil, nil
	}
}

// WriteParquet writes a table to a Parquet file at path, splitting it into
// row groups of chunkSize rows. Deprecated INT96 timestamps are always
// enabled for compatibility with legacy readers. A failed write may leave
// a truncated file on disk.
func WriteParquet(path string, t *Table, chunkSize int64, codec Compression) (err error) {
	span := beginOp(context.Background(), "write_parquet", path, FormatParquet)
	defer func() { span.end(err) }()
	defer guard("parquet write", &err)

	cc, err := parquetCodec(codec)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return ioErrorf("parquet write: %v", err)
	}
	defer f.Close()

	if chunkSize <= 0 {
		chunkSize = t.tbl.NumRows()
		if chunkSize == 0 {
			chunkSize = 1
		}
	}
	props := parquet.NewWriterProperties(parquet.WithCompression(cc))
	arrProps := pqarrow.NewArrowWriterProperties(pqarrow.WithDeprecatedInt96Timestamps(true))
	if err := pqarrow.WriteTable(t.tbl, f, chunkSize, props, arrProps); err != nil {
		return normalize(KindInternal, "parquet write", err)
	}
	span.stats.RecordBatch(t.tbl.NumRows(), tableBufferSize(t.tbl))
	return nil
}

// WriteParquetRecord writes a single imported record batch as a Parquet
// file. Used for one-shot conversions that never materialize a handle.
func WriteParquetRecord(path string, rec arrow.Record, chunkSize int64, codec Compression) error {
	t, err := NewFromRecord(rec)
	if err != nil {
		return err
	}
	defer t.Release()
	return WriteParquet(path, t, chunkSize, codec)
}

// WriteArrowFile writes a table to an Arrow IPC file at path in batches of
// chunkSize rows.
func WriteArrowFile(path string, t *Table, chunkSize int64) (err error) {
	span := beginOp(context.Background(), "write_arrow", path, FormatArrow)
	defer func() { span.end(err) }()
	return writeIPCFile(span, "arrow write", path, t, chunkSize, nil)
}

// WriteArrowFileRecord writes a single imported record batch as an Arrow
// IPC file.
func WriteArrowFileRecord(path string, rec arrow.Record, chunkSize int64) error {
	t, err := NewFromRecord(rec)
	if err != nil {
		return err
	}
	defer t.Release()
	return WriteArrowFile(path, t, chunkSize)
}

// WriteFeather writes a table to a Feather v2 file at path in batches of
// chunkSize rows with the selected body compression.
func WriteFeather(path string, t *Table, chunkSize int64, codec Compression) (err error) {
	span := beginOp(context.Background(), "write_feather", path, FormatFeather)
	defer func() { span.end(err) }()

	opts, err := featherCodec(codec)
	if err != nil {
		return err
	}
	return writeIPCFile(span, "feather write", path, t, chunkSize, opts)
}

// WriteFeatherRecord writes a single imported record batch as a Feather v2
// file.
func WriteFeatherRecord(path string, rec arrow.Record, chunkSize int64, codec Compression) error {
	t, err := NewFromRecord(rec)
	if err != nil {
		return err
	}
	defer t.Release()
	return WriteFeather(path, t, chunkSize, codec)
}

func writeIPCFile(span *opSpan, op, path string, t *Table, chunkSize int64, opts []ipc.Option) (err error) {
	defer guard(op, &err)

	f, err := os.Create(path)
	if err != nil {
		return ioErrorf("%s: %v", op, err)
	}
	defer f.Close()

	opts = append(opts,
		ipc.WithSchema(t.tbl.Schema()),
		ipc.WithAllocator(memory.DefaultAllocator))
	w, err := ipc.NewFileWriter(f, opts...)
	if err != nil {
		return normalize(KindInternal, op, err)
	}
	// Close finalizes the footer; an early failure return leaves a
	// truncated file, never a dangling writer.
	closed := false
	defer func() {
		if !closed {
			w.Close()
		}
	}()

	if chunkSize <= 0 {
		chunkSize = t.tbl.NumRows()
		if chunkSize == 0 {
			chunkSize = 1
		}
	}
	tr := array.NewTableReader(t.tbl, chunkSize)
	defer tr.Release()
	for tr.Next() {
		rec := tr.Record()
		if err := w.Write(rec); err != nil {
			return normalize(KindInternal, op, err)
		}
		span.stats.RecordBatch(rec.NumRows(), batchBufferSize(rec))
	}
	closed = true
	if err := w.Close(); err != nil {
		return normalize(KindInternal, op, err)
	}
	return nil
}
