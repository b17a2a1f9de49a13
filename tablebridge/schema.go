// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package tablebridge

import (
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// SchemaFromArrowFile opens an Arrow IPC file and extracts its schema.
func SchemaFromArrowFile(path string) (*arrow.Schema, error) {
	return ipcFileSchema("arrow schema", path)
}

// SchemaFromFeather opens a Feather v2 file and extracts its schema.
// Feather v2 is the Arrow IPC file format; Feather v1 is not supported.
func SchemaFromFeather(path string) (*arrow.Schema, error) {
	return ipcFileSchema("feather schema", path)
}

func ipcFileSchema(op, path string) (schema *arrow.Schema, err error) {
	defer guard(op, &err)
	f, err := os.Open(path)
	if err != nil {
		return nil, ioErrorf("%s: %v", op, err)
	}
	defer f.Close()
	rdr, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, formatErrorf("%s: %v", op, err)
	}
	defer rdr.Close()
	return rdr.Schema(), nil
}

// SchemaFromParquet opens a Parquet file and extracts its Arrow schema
// along with the total row count from the file footer.
func SchemaFromParquet(path string) (schema *arrow.Schema, numRows int64, err error) {
	defer guard("parquet schema", &err)
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, 0, ioErrorf("parquet schema: %v", err)
	}
	defer rdr.Close()
	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, 0, formatErrorf("parquet schema: %v", err)
	}
	schema, err = fr.Schema()
	if err != nil {
		return nil, 0, formatErrorf("parquet schema: %v", err)
	}
	return schema, rdr.NumRows(), nil
}
