// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package tablebridge

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressionString(t *testing.T) {
	assert.Equal(t, "zstd", CompressionZstd.String())
	assert.Equal(t, "lz4_frame", CompressionLZ4Frame.String())
	assert.Equal(t, "none", Compression(42).String())
}

func TestWriteParquetCodecs(t *testing.T) {
	tbl := makeTable(t, 0, 200)
	ctx := context.Background()

	testCases := []struct {
		codec   Compression
		wantErr string
	}{
		{codec: CompressionNone},
		{codec: CompressionSnappy},
		{codec: CompressionGzip},
		{codec: CompressionBrotli},
		{codec: CompressionZstd},
		{codec: CompressionLZ4},
		{codec: CompressionLZ4Frame, wantErr: "not available"},
		{codec: CompressionLZO, wantErr: "not available"},
		{codec: CompressionBZ2, wantErr: "not available"},
		// Unknown tags silently fall back to no compression.
		{codec: Compression(99)},
	}
	for _, tc := range testCases {
		t.Run(tc.codec.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.parquet")
			err := WriteParquet(path, tbl, 64, tc.codec)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				var be *Error
				require.ErrorAs(t, err, &be)
				assert.Equal(t, KindFormat, be.Kind)
				return
			}
			require.NoError(t, err)
			back, err := ReadParquet(ctx, path, ParquetReadOptions{})
			require.NoError(t, err)
			defer back.Release()
			assert.Equal(t, int64(200), back.NumRows())
		})
	}
}

func TestWriteFeatherCodecs(t *testing.T) {
	tbl := makeTable(t, 0, 100)

	for _, codec := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4Frame} {
		t.Run(codec.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.feather")
			require.NoError(t, WriteFeather(path, tbl, 32, codec))
			back, err := ReadFeather(path, nil)
			require.NoError(t, err)
			defer back.Release()
			assert.Equal(t, int64(100), back.NumRows())
			assert.True(t, tbl.Schema().Equal(back.Schema()))
		})
	}

	// Codecs Feather v2 has no body compression for are refused.
	for _, codec := range []Compression{CompressionSnappy, CompressionGzip, CompressionBrotli} {
		path := filepath.Join(t.TempDir(), "bad.feather")
		err := WriteFeather(path, tbl, 32, codec)
		require.ErrorContains(t, err, "not supported")
	}
}

func TestWriteArrowFileRoundtrip(t *testing.T) {
	tbl := makeTable(t, 0, 64)
	path := filepath.Join(t.TempDir(), "out.arrow")
	require.NoError(t, WriteArrowFile(path, tbl, 16))

	schema, err := SchemaFromArrowFile(path)
	require.NoError(t, err)
	assert.True(t, tbl.Schema().Equal(schema))
}

func TestWriteRecordVariants(t *testing.T) {
	rec := makeRecord(t, 0, 40)
	defer rec.Release()
	dir := t.TempDir()

	pq := filepath.Join(dir, "rec.parquet")
	require.NoError(t, WriteParquetRecord(pq, rec, 0, CompressionSnappy))
	_, rows, err := SchemaFromParquet(pq)
	require.NoError(t, err)
	assert.Equal(t, int64(40), rows)

	ft := filepath.Join(dir, "rec.feather")
	require.NoError(t, WriteFeatherRecord(ft, rec, 0, CompressionZstd))
	back, err := ReadFeather(ft, nil)
	require.NoError(t, err)
	defer back.Release()
	assert.Equal(t, int64(40), back.NumRows())

	af := filepath.Join(dir, "rec.arrow")
	require.NoError(t, WriteArrowFileRecord(af, rec, 0))
	_, err = SchemaFromArrowFile(af)
	require.NoError(t, err)
}

func TestWriteZeroRowTable(t *testing.T) {
	tbl := makeTable(t, 0, 0)
	path := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteParquet(path, tbl, 0, CompressionNone))

	schema, rows, err := SchemaFromParquet(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
	assert.Equal(t, 3, schema.NumFields())
}

func TestWriteToUnwritablePath(t *testing.T) {
	tbl := makeTable(t, 0, 10)
	err := WriteParquet(filepath.Join(t.TempDir(), "no", "such", "dir.parquet"), tbl, 0, CompressionNone)
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindIO, be.Kind)
}
