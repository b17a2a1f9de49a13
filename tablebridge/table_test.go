// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package tablebridge

import (
	"fmt"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "score", Type: arrow.PrimitiveTypes.Float64},
	{Name: "label", Type: arrow.BinaryTypes.String},
}, nil)

// makeRecord builds n rows starting at start. Caller owns the record.
func makeRecord(t *testing.T, start, n int) arrow.Record {
	t.Helper()
	bldr := array.NewRecordBuilder(memory.DefaultAllocator, testSchema)
	defer bldr.Release()
	for i := start; i < start+n; i++ {
		bldr.Field(0).(*array.Int64Builder).Append(int64(i))
		bldr.Field(1).(*array.Float64Builder).Append(float64(i) / 2)
		bldr.Field(2).(*array.StringBuilder).Append(fmt.Sprintf("label-%d", i))
	}
	return bldr.NewRecord()
}

// makeTable builds a table of n rows and registers its release.
func makeTable(t *testing.T, start, n int) *Table {
	t.Helper()
	rec := makeRecord(t, start, n)
	defer rec.Release()
	tbl, err := NewFromRecord(rec)
	require.NoError(t, err)
	t.Cleanup(tbl.Release)
	return tbl
}

func TestNewFromRecord(t *testing.T) {
	tbl := makeTable(t, 0, 10)
	assert.Equal(t, int64(10), tbl.NumRows())
	assert.Equal(t, 3, tbl.NumCols())
	assert.True(t, testSchema.Equal(tbl.Schema()))
}

func TestNumRowsNilHandle(t *testing.T) {
	var tbl *Table
	assert.Equal(t, int64(0), tbl.NumRows())
	assert.NotPanics(t, func() { tbl.Release() })
}

func TestSlice(t *testing.T) {
	tbl := makeTable(t, 0, 100)

	testCases := []struct {
		name    string
		offset  int64
		length  int64
		want    int64
		wantErr string
	}{
		{name: "middle", offset: 10, length: 20, want: 20},
		{name: "clamped past end", offset: 90, length: 50, want: 10},
		{name: "offset past end", offset: 200, length: 10, want: 0},
		{name: "zero length", offset: 5, length: 0, want: 0},
		{name: "negative offset", offset: -1, length: 5, wantErr: "negative offset -1"},
		{name: "negative length", offset: 0, length: -3, wantErr: "negative length -3"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sl, err := tbl.Slice(tc.offset, tc.length)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				var be *Error
				require.ErrorAs(t, err, &be)
				assert.Equal(t, KindArgument, be.Kind)
				return
			}
			require.NoError(t, err)
			defer sl.Release()
			assert.Equal(t, tc.want, sl.NumRows())
			assert.True(t, tbl.Schema().Equal(sl.Schema()))
		})
	}
}

func TestSliceSharesStorage(t *testing.T) {
	tbl := makeTable(t, 0, 50)
	sl, err := tbl.Slice(10, 5)
	require.NoError(t, err)
	defer sl.Release()

	chunks, err := sl.Column(0, ColumnInt64)
	require.NoError(t, err)
	defer ReleaseChunks(chunks)
	require.Len(t, chunks, 1)
	ids := chunks[0].(*array.Int64)
	assert.Equal(t, int64(10), ids.Value(0))
	assert.Equal(t, int64(14), ids.Value(4))
}

func TestConcatenate(t *testing.T) {
	a := makeTable(t, 0, 30)
	b := makeTable(t, 30, 20)
	c := makeTable(t, 50, 10)

	out, err := Concatenate(a, b, c)
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, int64(60), out.NumRows())

	// Chunk lists are concatenated in argument order without copying.
	chunks, err := out.Column(0, ColumnInt64)
	require.NoError(t, err)
	defer ReleaseChunks(chunks)
	require.Len(t, chunks, 3)
	assert.Equal(t, int64(0), chunks[0].(*array.Int64).Value(0))
	assert.Equal(t, int64(30), chunks[1].(*array.Int64).Value(0))
	assert.Equal(t, int64(50), chunks[2].(*array.Int64).Value(0))
}

func TestConcatenateEmptyInput(t *testing.T) {
	_, err := Concatenate()
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindArgument, be.Kind)
}

func TestConcatenateSchemaMismatch(t *testing.T) {
	a := makeTable(t, 0, 5)

	other := arrow.NewSchema([]arrow.Field{
		{Name: "x", Type: arrow.PrimitiveTypes.Int64},
	}, nil)
	bldr := array.NewRecordBuilder(memory.DefaultAllocator, other)
	bldr.Field(0).(*array.Int64Builder).Append(1)
	rec := bldr.NewRecord()
	bldr.Release()
	defer rec.Release()
	b, err := NewFromRecord(rec)
	require.NoError(t, err)
	defer b.Release()

	_, err = Concatenate(a, b)
	require.ErrorContains(t, err, "schema at index 1 differs")
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindFormat, be.Kind)
}

func TestConcatenateInputsRemainUsable(t *testing.T) {
	a := makeTable(t, 0, 10)
	b := makeTable(t, 10, 10)
	out, err := Concatenate(a, b)
	require.NoError(t, err)
	out.Release()

	// Inputs stay owned by the caller; releasing the result must not
	// invalidate them.
	assert.Equal(t, int64(10), a.NumRows())
	chunks, err := b.Column(0, ColumnInt64)
	require.NoError(t, err)
	ReleaseChunks(chunks)
}
