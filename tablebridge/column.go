// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package tablebridge

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// ColumnType tags the element type expected by a chunked-column
// extraction. The integer values are part of the C ABI contract.
type ColumnType int

const (
	ColumnInt64 ColumnType = iota
	ColumnFloat64
	ColumnUtf8
	ColumnDate32
	ColumnTimestamp
	ColumnBool
)

// arrowType maps a tag to the Arrow type id it accepts, plus the name used
// in mismatch messages.
func (ct ColumnType) arrowType() (arrow.Type, string, bool) {
	switch ct {
	case ColumnInt64:
		return arrow.INT64, "int64", true
	case ColumnFloat64:
		return arrow.FLOAT64, "float64", true
	case ColumnUtf8:
		// TODO: also accept large_utf8 here.
		return arrow.STRING, "utf8", true
	case ColumnDate32:
		return arrow.DATE32, "date32", true
	case ColumnTimestamp:
		return arrow.TIMESTAMP, "timestamp", true
	case ColumnBool:
		return arrow.BOOL, "bool", true
	default:
		return 0, "", false
	}
}

// Column extracts the chunk sequence of the column at idx, checking that
// every chunk carries the expected element type. The returned chunks are
// retained for the caller; release them with ReleaseChunks.
func (t *Table) Column(idx int, expected ColumnType) (chunks []arrow.Array, err error) {
	defer guard("chunked column", &err)
	ncols := int(t.tbl.NumCols())
	if idx < 0 || idx >= ncols {
		return nil, argErrorf("invalid column index %d (ncols: %d)", idx, ncols)
	}
	return extractChunks(t.tbl.Column(idx).Data().Chunks(), expected)
}

// ColumnByName is Column keyed by column name instead of index.
func (t *Table) ColumnByName(name string, expected ColumnType) (chunks []arrow.Array, err error) {
	defer guard("chunked column", &err)
	indices := t.tbl.Schema().FieldIndices(name)
	if len(indices) == 0 {
		return nil, argErrorf("cannot find column %s", name)
	}
	return extractChunks(t.tbl.Column(indices[0]).Data().Chunks(), expected)
}

// extractChunks enforces per-chunk type homogeneity. Chunks can in
// principle carry heterogeneous physical encodings under one logical type,
// so every chunk is checked rather than trusting the schema; a single
// mismatch fails the whole call.
func extractChunks(chunks []arrow.Array, expected ColumnType) ([]arrow.Array, error) {
	id, name, ok := expected.arrowType()
	if !ok {
		return nil, argErrorf("unknown datatype %d", int(expected))
	}
	for _, chunk := range chunks {
		if chunk.DataType().ID() != id {
			return nil, formatErrorf("expected type with %s (id %d) got %s",
				name, int(id), chunk.DataType())
		}
	}
	out := make([]arrow.Array, len(chunks))
	for i, chunk := range chunks {
		chunk.Retain()
		out[i] = chunk
	}
	return out, nil
}

// ReleaseChunks releases every chunk previously returned by Column or
// ColumnByName.
func ReleaseChunks(chunks []arrow.Array) {
	for _, chunk := range chunks {
		if chunk != nil {
			chunk.Release()
		}
	}
}
