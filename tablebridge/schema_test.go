// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package tablebridge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaFromParquet(t *testing.T) {
	tbl := makeTable(t, 0, 123)
	path := filepath.Join(t.TempDir(), "s.parquet")
	require.NoError(t, WriteParquet(path, tbl, 50, CompressionSnappy))

	schema, rows, err := SchemaFromParquet(path)
	require.NoError(t, err)
	assert.Equal(t, int64(123), rows)
	require.Equal(t, 3, schema.NumFields())
	assert.Equal(t, "id", schema.Field(0).Name)
	assert.Equal(t, "label", schema.Field(2).Name)
}

func TestSchemaFromFeather(t *testing.T) {
	tbl := makeTable(t, 0, 10)
	path := filepath.Join(t.TempDir(), "s.feather")
	require.NoError(t, WriteFeather(path, tbl, 0, CompressionNone))

	schema, err := SchemaFromFeather(path)
	require.NoError(t, err)
	assert.True(t, tbl.Schema().Equal(schema))
}

func TestSchemaMissingFile(t *testing.T) {
	dir := t.TempDir()
	var be *Error

	_, _, err := SchemaFromParquet(filepath.Join(dir, "nope.parquet"))
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindIO, be.Kind)

	_, err = SchemaFromFeather(filepath.Join(dir, "nope.feather"))
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindIO, be.Kind)

	_, err = SchemaFromArrowFile(filepath.Join(dir, "nope.arrow"))
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindIO, be.Kind)
}

func TestSchemaMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.feather")
	require.NoError(t, os.WriteFile(path, []byte("this is not a feather file"), 0o644))

	_, err := SchemaFromFeather(path)
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindFormat, be.Kind)
}
