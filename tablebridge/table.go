// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package tablebridge

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Table is an opaque handle over a reference-counted columnar table.
// Multiple handles may alias the same underlying storage (after Slice or
// Concatenate); the buffers persist until every aliasing handle has been
// released. A released handle must not be used again.
type Table struct {
	tbl arrow.Table
}

// wrapTable takes ownership of the caller's reference on tbl.
func wrapTable(tbl arrow.Table) *Table {
	return &Table{tbl: tbl}
}

// NewFromRecord builds a single-chunk table from one record batch. The
// record may be released by the caller afterwards; the table holds its own
// references to the underlying buffers.
func NewFromRecord(rec arrow.Record) (t *Table, err error) {
	defer guard("create table", &err)
	tbl := array.NewTableFromRecords(rec.Schema(), []arrow.Record{rec})
	return wrapTable(tbl), nil
}

// Arrow exposes the wrapped arrow.Table. The returned value shares the
// handle's reference; retain it separately to outlive the handle.
func (t *Table) Arrow() arrow.Table {
	return t.tbl
}

// NumRows reports the table's row count. A nil handle yields zero rather
// than faulting; other accessors assume a live handle.
func (t *Table) NumRows() int64 {
	if t == nil || t.tbl == nil {
		return 0
	}
	return t.tbl.NumRows()
}

// NumCols reports the table's column count.
func (t *Table) NumCols() int {
	return int(t.tbl.NumCols())
}

// Schema re-exports the table's schema.
func (t *Table) Schema() *arrow.Schema {
	return t.tbl.Schema()
}

// Retain increments the handle's reference on the underlying table.
func (t *Table) Retain() {
	t.tbl.Retain()
}

// Release drops the handle's reference on the underlying table. The
// buffers are freed once no handle, slice, or extracted chunk references
// them. Must be called exactly once per handle.
func (t *Table) Release() {
	if t == nil || t.tbl == nil {
		return
	}
	t.tbl.Release()
	t.tbl = nil
}

// Slice returns a zero-copy view of length rows starting at offset. Both
// must be non-negative; ranges extending past the end of the table are
// clamped, matching Arrow slicing semantics.
func (t *Table) Slice(offset, length int64) (*Table, error) {
	if offset < 0 {
		return nil, argErrorf("negative offset %d", offset)
	}
	if length < 0 {
		return nil, argErrorf("negative length %d", length)
	}
	rows := t.tbl.NumRows()
	lo := offset
	if lo > rows {
		lo = rows
	}
	hi := offset + length
	if hi > rows {
		hi = rows
	}

	ncols := int(t.tbl.NumCols())
	cols := make([]arrow.Column, ncols)
	for i := 0; i < ncols; i++ {
		sliced := array.NewColumnSlice(t.tbl.Column(i), lo, hi)
		cols[i] = *sliced
	}
	out := array.NewTable(t.tbl.Schema(), cols, hi-lo)
	for i := range cols {
		cols[i].Release()
	}
	return wrapTable(out), nil
}

// Concatenate stitches tables into one new table, preserving row order by
// argument order. The inputs must share an identical schema; their chunk
// lists are concatenated without copying buffers. The inputs remain owned
// by the caller.
func Concatenate(tables ...*Table) (t *Table, err error) {
	defer guard("concatenate tables", &err)
	if len(tables) == 0 {
		return nil, argErrorf("concatenate tables: no tables given")
	}
	schema := tables[0].tbl.Schema()
	var totalRows int64
	for i, in := range tables {
		if !schema.Equal(in.tbl.Schema()) {
			return nil, formatErrorf("concatenate tables: schema at index %d differs: got %s, want %s",
				i, in.tbl.Schema(), schema)
		}
		totalRows += in.tbl.NumRows()
	}

	ncols := schema.NumFields()
	cols := make([]arrow.Column, ncols)
	for i := 0; i < ncols; i++ {
		var chunks []arrow.Array
		for _, in := range tables {
			chunks = append(chunks, in.tbl.Column(i).Data().Chunks()...)
		}
		chunked := arrow.NewChunked(schema.Field(i).Type, chunks)
		col := arrow.NewColumn(schema.Field(i), chunked)
		chunked.Release()
		cols[i] = *col
	}
	out := array.NewTable(schema, cols, totalRows)
	for i := range cols {
		cols[i].Release()
	}
	return wrapTable(out), nil
}
