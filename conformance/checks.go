// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package conformance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Query-farm/table-bridge-go/benchmark"
	"github.com/Query-farm/table-bridge-go/tablebridge"
)

// Check is one named conformance check. Run in isolation against a fresh
// scratch directory.
type Check struct {
	Name string
	Fn   func(dir string) error
}

// Result pairs a check with its outcome.
type Result struct {
	Name string
	Err  error
}

// Checks lists every conformance check in execution order.
func Checks() []Check {
	return []Check{
		{"parquet_roundtrip", checkParquetRoundtrip},
		{"feather_roundtrip", checkFeatherRoundtrip},
		{"arrow_roundtrip", checkArrowRoundtrip},
		{"parquet_schema", checkParquetSchema},
		{"parquet_only_first", checkParquetOnlyFirst},
		{"chunked_column", checkChunkedColumn},
		{"slice_and_concatenate", checkSliceAndConcatenate},
		{"stream_lifecycle", checkStreamLifecycle},
		{"error_channel", checkErrorChannel},
	}
}

// Run executes every check in its own scratch directory and reports one
// Result per check.
func Run(scratch string) []Result {
	checks := Checks()
	results := make([]Result, 0, len(checks))
	for _, c := range checks {
		dir := filepath.Join(scratch, c.Name)
		err := os.MkdirAll(dir, 0o755)
		if err == nil {
			err = c.Fn(dir)
		}
		results = append(results, Result{Name: c.Name, Err: err})
	}
	return results
}

func fixture(rows, chunks int) (*tablebridge.Table, error) {
	return benchmark.GenerateTable(rows, chunks)
}

func expectRows(t *tablebridge.Table, want int64) error {
	if got := t.NumRows(); got != want {
		return fmt.Errorf("row count: got %d, want %d", got, want)
	}
	return nil
}

func checkParquetRoundtrip(dir string) error {
	t, err := fixture(1000, 4)
	if err != nil {
		return err
	}
	defer t.Release()
	path := filepath.Join(dir, "t.parquet")
	if err := tablebridge.WriteParquet(path, t, 250, tablebridge.CompressionZstd); err != nil {
		return err
	}
	back, err := tablebridge.ReadParquet(context.Background(), path, tablebridge.ParquetReadOptions{})
	if err != nil {
		return err
	}
	defer back.Release()
	if !t.Schema().Equal(back.Schema()) {
		return fmt.Errorf("schema changed across parquet roundtrip: %s", back.Schema())
	}
	return expectRows(back, 1000)
}

func checkFeatherRoundtrip(dir string) error {
	t, err := fixture(500, 2)
	if err != nil {
		return err
	}
	defer t.Release()
	path := filepath.Join(dir, "t.feather")
	if err := tablebridge.WriteFeather(path, t, 100, tablebridge.CompressionLZ4Frame); err != nil {
		return err
	}
	back, err := tablebridge.ReadFeather(path, []int{0, 1})
	if err != nil {
		return err
	}
	defer back.Release()
	if back.NumCols() != 2 {
		return fmt.Errorf("projected column count: got %d, want 2", back.NumCols())
	}
	return expectRows(back, 500)
}

func checkArrowRoundtrip(dir string) error {
	t, err := fixture(300, 1)
	if err != nil {
		return err
	}
	defer t.Release()
	path := filepath.Join(dir, "t.arrow")
	if err := tablebridge.WriteArrowFile(path, t, 0); err != nil {
		return err
	}
	schema, err := tablebridge.SchemaFromArrowFile(path)
	if err != nil {
		return err
	}
	if !t.Schema().Equal(schema) {
		return fmt.Errorf("schema changed across arrow roundtrip: %s", schema)
	}
	return nil
}

func checkParquetSchema(dir string) error {
	t, err := fixture(777, 3)
	if err != nil {
		return err
	}
	defer t.Release()
	path := filepath.Join(dir, "t.parquet")
	if err := tablebridge.WriteParquet(path, t, 0, tablebridge.CompressionSnappy); err != nil {
		return err
	}
	schema, rows, err := tablebridge.SchemaFromParquet(path)
	if err != nil {
		return err
	}
	if rows != 777 {
		return fmt.Errorf("footer row count: got %d, want 777", rows)
	}
	if schema.NumFields() != t.Schema().NumFields() {
		return fmt.Errorf("field count: got %d, want %d", schema.NumFields(), t.Schema().NumFields())
	}
	return nil
}

func checkParquetOnlyFirst(dir string) error {
	t, err := fixture(1000, 1)
	if err != nil {
		return err
	}
	defer t.Release()
	path := filepath.Join(dir, "t.parquet")
	// Four row groups of 250 so the limit lands mid-group.
	if err := tablebridge.WriteParquet(path, t, 250, tablebridge.CompressionNone); err != nil {
		return err
	}
	limit := int64(300)
	back, err := tablebridge.ReadParquet(context.Background(), path, tablebridge.ParquetReadOptions{OnlyFirst: &limit})
	if err != nil {
		return err
	}
	defer back.Release()
	return expectRows(back, 300)
}

func checkChunkedColumn(dir string) error {
	t, err := fixture(100, 4)
	if err != nil {
		return err
	}
	defer t.Release()
	chunks, err := t.ColumnByName("id", tablebridge.ColumnInt64)
	if err != nil {
		return err
	}
	tablebridge.ReleaseChunks(chunks)
	if len(chunks) != 4 {
		return fmt.Errorf("chunk count: got %d, want 4", len(chunks))
	}
	// A type mismatch must fail loudly, not coerce.
	if _, err := t.Column(0, tablebridge.ColumnFloat64); err == nil {
		return errors.New("type mismatch not reported")
	} else if !strings.Contains(err.Error(), "expected type") {
		return fmt.Errorf("unexpected mismatch message: %v", err)
	}
	return nil
}

func checkSliceAndConcatenate(dir string) error {
	t, err := fixture(100, 2)
	if err != nil {
		return err
	}
	defer t.Release()
	head, err := t.Slice(0, 30)
	if err != nil {
		return err
	}
	defer head.Release()
	tail, err := t.Slice(30, 1000)
	if err != nil {
		return err
	}
	defer tail.Release()
	if err := expectRows(head, 30); err != nil {
		return err
	}
	if err := expectRows(tail, 70); err != nil {
		return err
	}
	joined, err := tablebridge.Concatenate(head, tail)
	if err != nil {
		return err
	}
	defer joined.Release()
	return expectRows(joined, 100)
}

func checkStreamLifecycle(dir string) error {
	t, err := fixture(400, 1)
	if err != nil {
		return err
	}
	defer t.Release()
	path := filepath.Join(dir, "t.parquet")
	if err := tablebridge.WriteParquet(path, t, 100, tablebridge.CompressionNone); err != nil {
		return err
	}
	s, err := tablebridge.OpenParquetStream(context.Background(), path, tablebridge.ParquetStreamOptions{})
	if err != nil {
		return err
	}
	var rows int64
	for {
		batch, err := s.Next()
		if err != nil {
			s.Close()
			return err
		}
		if batch == nil {
			break
		}
		rows += batch.NumRows()
		batch.Release()
	}
	if rows != 400 {
		s.Close()
		return fmt.Errorf("streamed rows: got %d, want 400", rows)
	}
	if err := s.Close(); err != nil {
		return err
	}
	if err := s.Close(); err != nil {
		return fmt.Errorf("second close: %v", err)
	}
	if _, err := s.Next(); err == nil {
		return errors.New("next after close did not fail")
	}
	return nil
}

func checkErrorChannel(dir string) error {
	_, err := tablebridge.ReadParquet(context.Background(), filepath.Join(dir, "missing.parquet"), tablebridge.ParquetReadOptions{})
	if err == nil {
		return errors.New("missing file not reported")
	}
	var be *tablebridge.Error
	if !errors.As(err, &be) {
		return fmt.Errorf("error not a bridge error: %T", err)
	}
	if be.Kind != tablebridge.KindIO {
		return fmt.Errorf("missing file kind: got %s, want io", be.Kind)
	}
	t, err := fixture(10, 1)
	if err != nil {
		return err
	}
	defer t.Release()
	if _, err := t.Slice(-1, 5); !errors.Is(err, tablebridge.ErrBridge) {
		return fmt.Errorf("negative slice offset: got %v", err)
	}
	return nil
}
