// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

//go:build cgo

package main

/*
#include <stdint.h>
#include <stdlib.h>
#include <string.h>

struct ArrowSchema {
	const char* format;
	const char* name;
	const char* metadata;
	int64_t flags;
	int64_t n_children;
	struct ArrowSchema** children;
	struct ArrowSchema* dictionary;
	void (*release)(struct ArrowSchema*);
	void* private_data;
};

struct ArrowArray {
	int64_t length;
	int64_t null_count;
	int64_t offset;
	int64_t n_buffers;
	int64_t n_children;
	const void** buffers;
	struct ArrowArray** children;
	struct ArrowArray* dictionary;
	void (*release)(struct ArrowArray*);
	void* private_data;
};
*/
import "C"

import (
	"context"
	"sync"
	"unsafe"

	"github.com/Query-farm/table-bridge-go/tablebridge"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/cdata"
)

// Every exported function follows one convention: functions that can fail
// return int32 (0 success, -1 failure) and record the failure for
// bridge_last_error; handle producers write the new handle to an out
// parameter. Handle value 0 is never issued.

var lastErr struct {
	mu   sync.Mutex
	kind int32
	msg  string
}

func setLastError(err error) C.int {
	lastErr.mu.Lock()
	defer lastErr.mu.Unlock()
	be, ok := err.(*tablebridge.Error)
	if !ok {
		lastErr.kind = 4
		lastErr.msg = err.Error()
		return -1
	}
	switch be.Kind {
	case tablebridge.KindIO:
		lastErr.kind = 1
	case tablebridge.KindFormat:
		lastErr.kind = 2
	case tablebridge.KindArgument:
		lastErr.kind = 3
	default:
		lastErr.kind = 4
	}
	lastErr.msg = be.Message
	return -1
}

// bridge_last_error copies the most recent error message into buf
// (NUL-terminated, truncated to cap) and returns its kind: 0 none,
// 1 io, 2 format, 3 argument, 4 internal.
//
//export bridge_last_error
func bridge_last_error(buf *C.char, bufCap C.size_t) C.int {
	lastErr.mu.Lock()
	defer lastErr.mu.Unlock()
	if buf != nil && bufCap > 0 {
		msg := lastErr.msg
		if C.size_t(len(msg)) >= bufCap {
			msg = msg[:bufCap-1]
		}
		dst := unsafe.Slice((*byte)(unsafe.Pointer(buf)), int(bufCap))
		copy(dst, msg)
		dst[len(msg)] = 0
	}
	return C.int(lastErr.kind)
}

// bridge_clear_error resets the stored error.
//
//export bridge_clear_error
func bridge_clear_error() {
	lastErr.mu.Lock()
	defer lastErr.mu.Unlock()
	lastErr.kind = 0
	lastErr.msg = ""
}

// registry issues uint64 handles for live Go objects so no Go pointer
// crosses the C boundary.
type registry[T any] struct {
	mu   sync.Mutex
	next uint64
	m    map[uint64]T
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{next: 1, m: make(map[uint64]T)}
}

func (r *registry[T]) put(v T) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.next
	r.next++
	r.m[h] = v
	return h
}

func (r *registry[T]) get(h uint64) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.m[h]
	return v, ok
}

func (r *registry[T]) take(h uint64) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.m[h]
	if ok {
		delete(r.m, h)
	}
	return v, ok
}

var (
	tables  = newRegistry[*tablebridge.Table]()
	streams = newRegistry[*tablebridge.ParquetStream]()
)

func lookupTable(h C.uint64_t) (*tablebridge.Table, C.int) {
	t, ok := tables.get(uint64(h))
	if !ok {
		return nil, setLastError(&tablebridge.Error{
			Kind:    tablebridge.KindArgument,
			Message: "unknown table handle",
		})
	}
	return t, 0
}

func intSlice(ptr *C.int, n C.size_t) []int {
	if ptr == nil || n == 0 {
		return nil
	}
	cs := unsafe.Slice(ptr, int(n))
	out := make([]int, len(cs))
	for i, v := range cs {
		out[i] = int(v)
	}
	return out
}

// --- schema extraction ---

// bridge_parquet_schema extracts the Arrow schema and total row count of
// a Parquet file. The schema is exported into schema_out; the caller owns
// its release callback.
//
//export bridge_parquet_schema
func bridge_parquet_schema(path *C.char, schemaOut uintptr, numRows *C.int64_t) C.int {
	schema, rows, err := tablebridge.SchemaFromParquet(C.GoString(path))
	if err != nil {
		return setLastError(err)
	}
	if numRows != nil {
		*numRows = C.int64_t(rows)
	}
	cdata.ExportArrowSchema(schema, cdata.SchemaFromPtr(schemaOut))
	return 0
}

//export bridge_feather_schema
func bridge_feather_schema(path *C.char, schemaOut uintptr) C.int {
	schema, err := tablebridge.SchemaFromFeather(C.GoString(path))
	if err != nil {
		return setLastError(err)
	}
	cdata.ExportArrowSchema(schema, cdata.SchemaFromPtr(schemaOut))
	return 0
}

//export bridge_arrow_schema
func bridge_arrow_schema(path *C.char, schemaOut uintptr) C.int {
	schema, err := tablebridge.SchemaFromArrowFile(C.GoString(path))
	if err != nil {
		return setLastError(err)
	}
	cdata.ExportArrowSchema(schema, cdata.SchemaFromPtr(schemaOut))
	return 0
}

// bridge_release_schema invokes the release callback of an exported
// schema, if still set.
//
//export bridge_release_schema
func bridge_release_schema(schemaPtr uintptr) {
	cdata.ReleaseCArrowSchema(cdata.SchemaFromPtr(schemaPtr))
}

// --- table construction ---

// bridge_table_from_batch imports one record batch through the C data
// interface and wraps it in a new table handle. The source structures are
// consumed; the table holds its own references afterwards.
//
//export bridge_table_from_batch
func bridge_table_from_batch(arrayPtr, schemaPtr uintptr, out *C.uint64_t) C.int {
	rec, err := cdata.ImportCRecordBatch(cdata.ArrayFromPtr(arrayPtr), cdata.SchemaFromPtr(schemaPtr))
	if err != nil {
		return setLastError(&tablebridge.Error{
			Kind:    tablebridge.KindFormat,
			Message: "create table: " + err.Error(),
		})
	}
	defer rec.Release()
	t, err := tablebridge.NewFromRecord(rec)
	if err != nil {
		return setLastError(err)
	}
	*out = C.uint64_t(tables.put(t))
	return 0
}

//export bridge_table_concatenate
func bridge_table_concatenate(handles *C.uint64_t, n C.size_t, out *C.uint64_t) C.int {
	hs := unsafe.Slice(handles, int(n))
	ins := make([]*tablebridge.Table, len(hs))
	for i, h := range hs {
		t, rc := lookupTable(h)
		if rc != 0 {
			return rc
		}
		ins[i] = t
	}
	t, err := tablebridge.Concatenate(ins...)
	if err != nil {
		return setLastError(err)
	}
	*out = C.uint64_t(tables.put(t))
	return 0
}

//export bridge_table_slice
func bridge_table_slice(h C.uint64_t, offset, length C.int64_t, out *C.uint64_t) C.int {
	t, rc := lookupTable(h)
	if rc != 0 {
		return rc
	}
	sl, err := t.Slice(int64(offset), int64(length))
	if err != nil {
		return setLastError(err)
	}
	*out = C.uint64_t(tables.put(sl))
	return 0
}

// bridge_table_num_rows reports a table's row count. An unknown handle
// yields zero rather than an error.
//
//export bridge_table_num_rows
func bridge_table_num_rows(h C.uint64_t) C.int64_t {
	t, _ := tables.get(uint64(h))
	return C.int64_t(t.NumRows())
}

//export bridge_table_schema
func bridge_table_schema(h C.uint64_t, schemaOut uintptr) C.int {
	t, rc := lookupTable(h)
	if rc != 0 {
		return rc
	}
	cdata.ExportArrowSchema(t.Schema(), cdata.SchemaFromPtr(schemaOut))
	return 0
}

// bridge_free_table releases the handle's reference on the table. The
// handle must not be used again.
//
//export bridge_free_table
func bridge_free_table(h C.uint64_t) {
	if t, ok := tables.take(uint64(h)); ok {
		t.Release()
	}
}

// --- chunked column extraction ---

func exportChunks(chunks []arrow.Array, chunksOut *uintptr, nOut *C.int) C.int {
	defer tablebridge.ReleaseChunks(chunks)
	n := len(chunks)
	block := C.malloc(C.size_t(n) * C.sizeof_struct_ArrowArray)
	if n > 0 && block == nil {
		return setLastError(&tablebridge.Error{
			Kind:    tablebridge.KindInternal,
			Message: "chunked column: out of memory",
		})
	}
	for i, chunk := range chunks {
		slot := uintptr(block) + uintptr(i)*C.sizeof_struct_ArrowArray
		cdata.ExportArrowArray(chunk, cdata.ArrayFromPtr(slot), nil)
	}
	*chunksOut = uintptr(block)
	*nOut = C.int(n)
	return 0
}

// bridge_table_chunked_column exports the chunk sequence of one column as
// a malloc'd array of ArrowArray structures, checking that every chunk
// carries the element type selected by dtype (0 int64, 1 float64, 2 utf8,
// 3 date32, 4 timestamp, 5 bool). Free with bridge_free_chunked_column.
//
//export bridge_table_chunked_column
func bridge_table_chunked_column(h C.uint64_t, colIdx C.int, dtype C.int, chunksOut *uintptr, nOut *C.int) C.int {
	t, rc := lookupTable(h)
	if rc != 0 {
		return rc
	}
	chunks, err := t.Column(int(colIdx), tablebridge.ColumnType(dtype))
	if err != nil {
		return setLastError(err)
	}
	return exportChunks(chunks, chunksOut, nOut)
}

//export bridge_table_chunked_column_by_name
func bridge_table_chunked_column_by_name(h C.uint64_t, name *C.char, dtype C.int, chunksOut *uintptr, nOut *C.int) C.int {
	t, rc := lookupTable(h)
	if rc != 0 {
		return rc
	}
	chunks, err := t.ColumnByName(C.GoString(name), tablebridge.ColumnType(dtype))
	if err != nil {
		return setLastError(err)
	}
	return exportChunks(chunks, chunksOut, nOut)
}

// bridge_free_chunked_column releases every chunk in a block returned by
// the chunked-column calls and frees the block itself.
//
//export bridge_free_chunked_column
func bridge_free_chunked_column(chunks uintptr, n C.int) {
	if chunks == 0 {
		return
	}
	for i := 0; i < int(n); i++ {
		slot := chunks + uintptr(i)*C.sizeof_struct_ArrowArray
		cdata.ReleaseCArrowArray(cdata.ArrayFromPtr(slot))
	}
	C.free(unsafe.Pointer(chunks))
}

// --- bulk readers ---

// bridge_parquet_read reads a Parquet file into a new table handle.
// columns may be NULL for all columns; use_threads is a tri-state
// (0 default, 1 off, 2 on); only_first below zero means no row limit.
//
//export bridge_parquet_read
func bridge_parquet_read(path *C.char, columns *C.int, nColumns C.size_t, useThreads C.int, onlyFirst C.int64_t, memoryMap C.int, out *C.uint64_t) C.int {
	opts := tablebridge.ParquetReadOptions{
		Columns:   intSlice(columns, nColumns),
		Threads:   tablebridge.ThreadMode(useThreads),
		MemoryMap: memoryMap != 0,
	}
	if onlyFirst >= 0 {
		limit := int64(onlyFirst)
		opts.OnlyFirst = &limit
	}
	t, err := tablebridge.ReadParquet(context.Background(), C.GoString(path), opts)
	if err != nil {
		return setLastError(err)
	}
	*out = C.uint64_t(tables.put(t))
	return 0
}

//export bridge_feather_read
func bridge_feather_read(path *C.char, columns *C.int, nColumns C.size_t, out *C.uint64_t) C.int {
	t, err := tablebridge.ReadFeather(C.GoString(path), intSlice(columns, nColumns))
	if err != nil {
		return setLastError(err)
	}
	*out = C.uint64_t(tables.put(t))
	return 0
}

//export bridge_csv_read
func bridge_csv_read(path *C.char, out *C.uint64_t) C.int {
	t, err := tablebridge.ReadCSV(C.GoString(path))
	if err != nil {
		return setLastError(err)
	}
	*out = C.uint64_t(tables.put(t))
	return 0
}

//export bridge_json_read
func bridge_json_read(path *C.char, out *C.uint64_t) C.int {
	t, err := tablebridge.ReadJSON(C.GoString(path))
	if err != nil {
		return setLastError(err)
	}
	*out = C.uint64_t(tables.put(t))
	return 0
}

// --- writers ---

//export bridge_parquet_write
func bridge_parquet_write(path *C.char, h C.uint64_t, chunkSize C.int64_t, compression C.int) C.int {
	t, rc := lookupTable(h)
	if rc != 0 {
		return rc
	}
	if err := tablebridge.WriteParquet(C.GoString(path), t, int64(chunkSize), tablebridge.Compression(compression)); err != nil {
		return setLastError(err)
	}
	return 0
}

// bridge_parquet_write_batch writes one imported record batch straight to
// a Parquet file without materializing a table handle.
//
//export bridge_parquet_write_batch
func bridge_parquet_write_batch(path *C.char, arrayPtr, schemaPtr uintptr, chunkSize C.int64_t, compression C.int) C.int {
	rec, err := cdata.ImportCRecordBatch(cdata.ArrayFromPtr(arrayPtr), cdata.SchemaFromPtr(schemaPtr))
	if err != nil {
		return setLastError(&tablebridge.Error{
			Kind:    tablebridge.KindFormat,
			Message: "parquet write: " + err.Error(),
		})
	}
	defer rec.Release()
	if err := tablebridge.WriteParquetRecord(C.GoString(path), rec, int64(chunkSize), tablebridge.Compression(compression)); err != nil {
		return setLastError(err)
	}
	return 0
}

//export bridge_feather_write
func bridge_feather_write(path *C.char, h C.uint64_t, chunkSize C.int64_t, compression C.int) C.int {
	t, rc := lookupTable(h)
	if rc != 0 {
		return rc
	}
	if err := tablebridge.WriteFeather(C.GoString(path), t, int64(chunkSize), tablebridge.Compression(compression)); err != nil {
		return setLastError(err)
	}
	return 0
}

//export bridge_feather_write_batch
func bridge_feather_write_batch(path *C.char, arrayPtr, schemaPtr uintptr, chunkSize C.int64_t, compression C.int) C.int {
	rec, err := cdata.ImportCRecordBatch(cdata.ArrayFromPtr(arrayPtr), cdata.SchemaFromPtr(schemaPtr))
	if err != nil {
		return setLastError(&tablebridge.Error{
			Kind:    tablebridge.KindFormat,
			Message: "feather write: " + err.Error(),
		})
	}
	defer rec.Release()
	if err := tablebridge.WriteFeatherRecord(C.GoString(path), rec, int64(chunkSize), tablebridge.Compression(compression)); err != nil {
		return setLastError(err)
	}
	return 0
}

//export bridge_arrow_write
func bridge_arrow_write(path *C.char, h C.uint64_t, chunkSize C.int64_t) C.int {
	t, rc := lookupTable(h)
	if rc != 0 {
		return rc
	}
	if err := tablebridge.WriteArrowFile(C.GoString(path), t, int64(chunkSize)); err != nil {
		return setLastError(err)
	}
	return 0
}

// --- streaming parquet reader ---

//export bridge_parquet_reader_open
func bridge_parquet_reader_open(path *C.char, columns *C.int, nColumns C.size_t, batchSize C.int64_t, useThreads C.int, memoryMap C.int, out *C.uint64_t) C.int {
	s, err := tablebridge.OpenParquetStream(context.Background(), C.GoString(path), tablebridge.ParquetStreamOptions{
		Columns:   intSlice(columns, nColumns),
		BatchSize: int64(batchSize),
		Threads:   tablebridge.ThreadMode(useThreads),
		MemoryMap: memoryMap != 0,
	})
	if err != nil {
		return setLastError(err)
	}
	*out = C.uint64_t(streams.put(s))
	return 0
}

// bridge_parquet_reader_next advances the stream. Returns 0 with a new
// table handle in out, 1 when the stream is exhausted (out untouched), or
// -1 on failure, including calls after close.
//
//export bridge_parquet_reader_next
func bridge_parquet_reader_next(h C.uint64_t, out *C.uint64_t) C.int {
	s, ok := streams.get(uint64(h))
	if !ok {
		return setLastError(&tablebridge.Error{
			Kind:    tablebridge.KindArgument,
			Message: "unknown reader handle",
		})
	}
	t, err := s.Next()
	if err != nil {
		return setLastError(err)
	}
	if t == nil {
		return 1
	}
	*out = C.uint64_t(tables.put(t))
	return 0
}

//export bridge_parquet_reader_close
func bridge_parquet_reader_close(h C.uint64_t) C.int {
	s, ok := streams.get(uint64(h))
	if !ok {
		return setLastError(&tablebridge.Error{
			Kind:    tablebridge.KindArgument,
			Message: "unknown reader handle",
		})
	}
	if err := s.Close(); err != nil {
		return setLastError(err)
	}
	return 0
}

// bridge_parquet_reader_free closes the stream if still open and drops the
// handle.
//
//export bridge_parquet_reader_free
func bridge_parquet_reader_free(h C.uint64_t) {
	if s, ok := streams.take(uint64(h)); ok {
		s.Close()
	}
}
