// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package tablebridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParquetStreamExhaustion(t *testing.T) {
	path := writeParquetFixture(t, 1000)

	s, err := OpenParquetStream(context.Background(), path, ParquetStreamOptions{})
	require.NoError(t, err)
	defer s.Close()

	var batches int
	var rows int64
	for {
		batch, err := s.Next()
		require.NoError(t, err)
		if batch == nil {
			break
		}
		batches++
		rows += batch.NumRows()
		assert.Equal(t, 3, batch.NumCols())
		batch.Release()
	}
	assert.Equal(t, int64(1000), rows)
	assert.GreaterOrEqual(t, batches, 4)

	// Exhaustion is sticky, not an error.
	batch, err := s.Next()
	require.NoError(t, err)
	assert.Nil(t, batch)
}

func TestParquetStreamColumnsAndBatchSize(t *testing.T) {
	path := writeParquetFixture(t, 500)

	s, err := OpenParquetStream(context.Background(), path, ParquetStreamOptions{
		Columns:   []int{0},
		BatchSize: 100,
	})
	require.NoError(t, err)
	defer s.Close()

	batch, err := s.Next()
	require.NoError(t, err)
	require.NotNil(t, batch)
	defer batch.Release()
	assert.Equal(t, 1, batch.NumCols())
	assert.LessOrEqual(t, batch.NumRows(), int64(100))
}

func TestParquetStreamNextAfterClose(t *testing.T) {
	path := writeParquetFixture(t, 100)

	s, err := OpenParquetStream(context.Background(), path, ParquetStreamOptions{})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Next()
	require.ErrorContains(t, err, "reader has already been closed")
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindArgument, be.Kind)
}

func TestParquetStreamDoubleClose(t *testing.T) {
	path := writeParquetFixture(t, 100)

	s, err := OpenParquetStream(context.Background(), path, ParquetStreamOptions{})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestParquetStreamOpenMissing(t *testing.T) {
	_, err := OpenParquetStream(context.Background(), "/nonexistent/file.parquet", ParquetStreamOptions{})
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindIO, be.Kind)
}

func TestParquetStreamBatchesOutliveStream(t *testing.T) {
	path := writeParquetFixture(t, 100)

	s, err := OpenParquetStream(context.Background(), path, ParquetStreamOptions{})
	require.NoError(t, err)
	batch, err := s.Next()
	require.NoError(t, err)
	require.NotNil(t, batch)
	require.NoError(t, s.Close())

	// The batch holds its own references past Close.
	chunks, err := batch.Column(0, ColumnInt64)
	require.NoError(t, err)
	ReleaseChunks(chunks)
	batch.Release()
}
