// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package tablebridge

import (
	"bufio"
	"bytes"
	"context"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/goccy/go-json"
)

// jsonKind tracks the inferred element type of one column across rows.
// Integers promote to float64 when any row carries a fractional value.
type jsonKind int

const (
	jsonUnknown jsonKind = iota
	jsonBool
	jsonInt
	jsonFloat
	jsonString
)

type jsonColumn struct {
	name string
	kind jsonKind
}

// ReadJSON reads a newline-delimited JSON file into one table handle.
// Columns appear in the order their keys are first seen; values must be
// scalars or null. Gzip- and zstd-compressed inputs are detected and
// decompressed.
func ReadJSON(path string) (t *Table, err error) {
	span := beginOp(context.Background(), "read_json", path, FormatJSON)
	defer func() { span.end(err) }()
	defer guard("json read", &err)

	f, err := os.Open(path)
	if err != nil {
		return nil, ioErrorf("json read: %v", err)
	}
	defer f.Close()
	r, cleanup, err := decompressed(f)
	if err != nil {
		return nil, formatErrorf("json read: %v", err)
	}
	defer cleanup()

	var (
		cols  []jsonColumn
		index = map[string]int{}
		rows  []map[string]interface{}
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		row, err := parseJSONRow(line, &cols, index)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, formatErrorf("json read: %v", err)
	}

	rec, err := buildJSONRecord(cols, rows)
	if err != nil {
		return nil, err
	}
	defer rec.Release()
	span.stats.RecordBatch(rec.NumRows(), batchBufferSize(rec))
	return NewFromRecord(rec)
}

// parseJSONRow decodes one object line, registering unseen keys in cols
// (in document order) and widening each column's inferred kind.
func parseJSONRow(line []byte, cols *[]jsonColumn, index map[string]int) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, formatErrorf("json read: %v", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, formatErrorf("json read: each line must be an object")
	}

	row := make(map[string]interface{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, formatErrorf("json read: %v", err)
		}
		key := tok.(string)
		val, err := dec.Token()
		if err != nil {
			return nil, formatErrorf("json read: %v", err)
		}
		if _, ok := val.(json.Delim); ok {
			return nil, formatErrorf("json read: nested value for column %s", key)
		}

		pos, seen := index[key]
		if !seen {
			pos = len(*cols)
			index[key] = pos
			*cols = append(*cols, jsonColumn{name: key})
		}
		kind, err := jsonValueKind(key, val)
		if err != nil {
			return nil, err
		}
		(*cols)[pos].kind = widenJSONKind((*cols)[pos].kind, kind)
		row[key] = val
	}
	return row, nil
}

func jsonValueKind(key string, val interface{}) (jsonKind, error) {
	switch v := val.(type) {
	case nil:
		return jsonUnknown, nil
	case bool:
		return jsonBool, nil
	case string:
		return jsonString, nil
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return jsonInt, nil
		}
		return jsonFloat, nil
	default:
		return jsonUnknown, formatErrorf("json read: unsupported value for column %s", key)
	}
}

// widenJSONKind merges two observations of a column's type. The only legal
// widening is int to float; any other conflict is a format error reported
// at build time via the mismatch in buildJSONRecord.
func widenJSONKind(have, seen jsonKind) jsonKind {
	switch {
	case have == jsonUnknown:
		return seen
	case seen == jsonUnknown:
		return have
	case have == seen:
		return have
	case have == jsonInt && seen == jsonFloat, have == jsonFloat && seen == jsonInt:
		return jsonFloat
	default:
		// Conflicting kinds; keep the first and let the append fail.
		return have
	}
}

func buildJSONRecord(cols []jsonColumn, rows []map[string]interface{}) (arrow.Record, error) {
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = arrow.Field{Name: c.name, Type: jsonArrowType(c.kind), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)
	bldr := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer bldr.Release()

	for _, row := range rows {
		for i, c := range cols {
			val, ok := row[c.name]
			if !ok || val == nil {
				bldr.Field(i).AppendNull()
				continue
			}
			if err := appendJSONValue(bldr.Field(i), c, val); err != nil {
				return nil, err
			}
		}
	}
	return bldr.NewRecord(), nil
}

func jsonArrowType(kind jsonKind) arrow.DataType {
	switch kind {
	case jsonBool:
		return arrow.FixedWidthTypes.Boolean
	case jsonInt:
		return arrow.PrimitiveTypes.Int64
	case jsonFloat:
		return arrow.PrimitiveTypes.Float64
	case jsonString:
		return arrow.BinaryTypes.String
	default:
		// Column never carried a non-null value.
		return arrow.Null
	}
}

func appendJSONValue(b array.Builder, c jsonColumn, val interface{}) error {
	switch fb := b.(type) {
	case *array.BooleanBuilder:
		v, ok := val.(bool)
		if !ok {
			return formatErrorf("json read: mixed types in column %s", c.name)
		}
		fb.Append(v)
	case *array.Int64Builder:
		n, ok := val.(json.Number)
		if !ok {
			return formatErrorf("json read: mixed types in column %s", c.name)
		}
		v, err := n.Int64()
		if err != nil {
			return formatErrorf("json read: mixed types in column %s", c.name)
		}
		fb.Append(v)
	case *array.Float64Builder:
		n, ok := val.(json.Number)
		if !ok {
			return formatErrorf("json read: mixed types in column %s", c.name)
		}
		v, err := n.Float64()
		if err != nil {
			return formatErrorf("json read: mixed types in column %s", c.name)
		}
		fb.Append(v)
	case *array.StringBuilder:
		v, ok := val.(string)
		if !ok {
			return formatErrorf("json read: mixed types in column %s", c.name)
		}
		fb.Append(v)
	case *array.NullBuilder:
		fb.AppendNull()
	default:
		return internalErrorf("json read: unhandled builder for column %s", c.name)
	}
	return nil
}
