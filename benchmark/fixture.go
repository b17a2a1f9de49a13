// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package benchmark generates synthetic tables for the I/O benchmarks and
// for any harness that needs realistic mixed-type fixtures.
package benchmark

import (
	"fmt"

	"github.com/Query-farm/table-bridge-go/tablebridge"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// FixtureSchema is the schema shared by all generated fixtures: one column
// per extractable element type.
var FixtureSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "value", Type: arrow.PrimitiveTypes.Float64},
	{Name: "name", Type: arrow.BinaryTypes.String},
	{Name: "day", Type: arrow.PrimitiveTypes.Date32},
	{Name: "at", Type: &arrow.TimestampType{Unit: arrow.Nanosecond}},
	{Name: "flag", Type: arrow.FixedWidthTypes.Boolean},
}, nil)

// GenerateRecord builds one deterministic record batch of the given row
// count over FixtureSchema. The caller owns the returned record.
func GenerateRecord(rows int) arrow.Record {
	bldr := array.NewRecordBuilder(memory.DefaultAllocator, FixtureSchema)
	defer bldr.Release()

	ids := bldr.Field(0).(*array.Int64Builder)
	values := bldr.Field(1).(*array.Float64Builder)
	names := bldr.Field(2).(*array.StringBuilder)
	days := bldr.Field(3).(*array.Date32Builder)
	ats := bldr.Field(4).(*array.TimestampBuilder)
	flags := bldr.Field(5).(*array.BooleanBuilder)

	for i := 0; i < rows; i++ {
		ids.Append(int64(i))
		values.Append(float64(i) * 1.5)
		names.Append(fmt.Sprintf("name-%d", i%97))
		days.Append(arrow.Date32(19000 + i%365))
		ats.Append(arrow.Timestamp(int64(i) * 1_000_000))
		if i%7 == 0 {
			flags.AppendNull()
		} else {
			flags.Append(i%2 == 0)
		}
	}
	return bldr.NewRecord()
}

// GenerateTable builds a table handle with the given total rows split into
// chunks batches. The caller owns the returned handle.
func GenerateTable(rows, chunks int) (*tablebridge.Table, error) {
	if chunks < 1 {
		chunks = 1
	}
	per := rows / chunks
	if per < 1 {
		per = 1
	}
	parts := make([]*tablebridge.Table, 0, chunks)
	defer func() {
		for _, p := range parts {
			p.Release()
		}
	}()
	remaining := rows
	for remaining > 0 {
		n := per
		if n > remaining {
			n = remaining
		}
		rec := GenerateRecord(n)
		t, err := tablebridge.NewFromRecord(rec)
		rec.Release()
		if err != nil {
			return nil, err
		}
		parts = append(parts, t)
		remaining -= n
	}
	return tablebridge.Concatenate(parts...)
}
