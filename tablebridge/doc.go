// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package tablebridge exposes Apache Arrow tables, schemas, and columnar
// file I/O through a handle-oriented bridge API intended for embedding in
// managed runtimes.
//
// The package wraps the Go-native Arrow implementation
// (github.com/apache/arrow-go) and normalizes every failure, including
// I/O errors, malformed files, bad arguments, and library panics, into a
// single [*Error] channel with a bounded, human-readable message. Callers
// never observe a raw panic or a library-specific error type.
//
// # Handles and ownership
//
// A [Table] is a reference-counted view over an immutable columnar table.
// Handles may alias the same underlying storage: [Table.Slice] returns a
// zero-copy view and [Concatenate] stitches chunk lists without copying
// buffers. Every handle must be released exactly once with [Table.Release];
// the underlying buffers persist while any aliasing handle or extracted
// chunk still references them. Chunk slices returned by [Table.Column] are
// retained for the caller and released with [ReleaseChunks].
//
// # File formats
//
// Readers: Parquet ([ReadParquet], [OpenParquetStream]), Feather v2
// ([ReadFeather]), Arrow IPC files ([SchemaFromArrowFile]), CSV ([ReadCSV])
// and line-delimited JSON ([ReadJSON]). CSV and JSON inputs may be gzip- or
// zstd-compressed; compression is detected from magic bytes.
//
// Writers: Parquet ([WriteParquet]), Arrow IPC files ([WriteArrowFile]) and
// Feather v2 ([WriteFeather]), each with a chunk size; Parquet and Feather
// also take a [Compression] codec selector. The Parquet writer always
// enables the deprecated INT96 timestamp encoding for compatibility with
// legacy consumers.
//
// # Streaming
//
// [ParquetStream] iterates a Parquet file one record batch at a time:
// open, repeated [ParquetStream.Next] (nil at exhaustion), then
// [ParquetStream.Close]. Close is idempotent; Next after Close fails with
// an explicit error instead of touching a released reader.
//
// # Concurrency
//
// Every call runs synchronously on the calling goroutine to completion.
// The only concurrency surface is the thread-mode flag forwarded to the
// Parquet reader's internal column decoding. Access to a single handle
// from multiple goroutines must be serialized by the caller.
//
// # C ABI
//
// The capi directory in this repository builds a C-shared library exporting
// this contract over the Arrow C data interface for foreign-runtime
// embedders.
package tablebridge
