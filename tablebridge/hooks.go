// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package tablebridge

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
)

// Format string constants for OpInfo.Format.
const (
	FormatParquet = "parquet"
	FormatFeather = "feather"
	FormatArrow   = "arrow"
	FormatCSV     = "csv"
	FormatJSON    = "json"
)

// OpHook provides observability callpoints around bridge file operations.
// Implementations must be safe for concurrent use (independent handles may
// be driven from different goroutines).
type OpHook interface {
	OnOpStart(ctx context.Context, info OpInfo) (context.Context, HookToken)
	OnOpEnd(ctx context.Context, token HookToken, info OpInfo, stats *IOStatistics, err error)
}

// HookToken is an opaque value returned by OnOpStart and passed back to
// OnOpEnd. Only meaningful to the OpHook that created it.
type HookToken interface{}

// OpInfo carries operation metadata passed to hooks.
type OpInfo struct {
	Op     string // operation name, e.g. "read_parquet", "write_feather"
	Path   string // file path operated on, if any
	Format string // one of the Format constants, if applicable
}

// IOStatistics holds per-operation I/O counters.
type IOStatistics struct {
	Batches int64
	Rows    int64
	Bytes   int64
}

// RecordBatch records one batch with the given row count and buffer size.
func (s *IOStatistics) RecordBatch(numRows, bufferBytes int64) {
	if s == nil {
		return
	}
	s.Batches++
	s.Rows += numRows
	s.Bytes += bufferBytes
}

// opHook holds the installed hook. Atomic so SetOpHook may race with
// in-flight operations without a lock on the hot path.
var opHook atomic.Value // of hookBox

type hookBox struct{ h OpHook }

// SetOpHook installs a hook observing every bridge file operation.
// Pass nil to remove a previously installed hook.
func SetOpHook(h OpHook) {
	opHook.Store(hookBox{h: h})
}

func installedHook() OpHook {
	if box, ok := opHook.Load().(hookBox); ok {
		return box.h
	}
	return nil
}

// opSpan tracks one hooked operation from start to end.
type opSpan struct {
	ctx   context.Context
	hook  OpHook
	token HookToken
	info  OpInfo
	stats IOStatistics
}

// beginOp starts a hooked operation. Hook panics are contained so a broken
// observer cannot fail the data path.
func beginOp(ctx context.Context, op, path, format string) *opSpan {
	s := &opSpan{ctx: ctx, info: OpInfo{Op: op, Path: path, Format: format}}
	s.hook = installedHook()
	if s.hook == nil {
		return s
	}
	func() {
		defer func() {
			if rv := recover(); rv != nil {
				slog.Error("op hook start panic", "op", op, "err", rv)
				s.hook = nil
			}
		}()
		s.ctx, s.token = s.hook.OnOpStart(ctx, s.info)
	}()
	return s
}

func (s *opSpan) end(err error) {
	if s.hook == nil {
		return
	}
	defer func() {
		if rv := recover(); rv != nil {
			slog.Error("op hook end panic", "op", s.info.Op, "err", rv)
		}
	}()
	s.hook.OnOpEnd(s.ctx, s.token, s.info, &s.stats, err)
}

// batchBufferSize returns the total top-level buffer size in bytes across
// all columns in a record batch.
func batchBufferSize(rec arrow.Record) int64 {
	var total int64
	for i := 0; i < int(rec.NumCols()); i++ {
		col := rec.Column(i)
		for _, buf := range col.Data().Buffers() {
			if buf != nil {
				total += int64(buf.Len())
			}
		}
	}
	return total
}

// tableBufferSize returns the total top-level buffer size in bytes across
// all chunks of all columns in a table.
func tableBufferSize(tbl arrow.Table) int64 {
	var total int64
	for i := 0; i < int(tbl.NumCols()); i++ {
		for _, chunk := range tbl.Column(i).Data().Chunks() {
			for _, buf := range chunk.Data().Buffers() {
				if buf != nil {
					total += int64(buf.Len())
				}
			}
		}
	}
	return total
}
