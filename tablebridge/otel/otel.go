// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package tbotel provides OpenTelemetry instrumentation for the table
// bridge. It implements the [tablebridge.OpHook] interface to add
// distributed tracing and metrics to file reads and writes.
//
// Usage:
//
//	tbotel.Instrument(tbotel.DefaultConfig())
//	defer tablebridge.SetOpHook(nil)
package tbotel

import (
	"context"
	"fmt"
	"time"

	"github.com/Query-farm/table-bridge-go/tablebridge"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "table_bridge"

// OtelConfig configures OpenTelemetry instrumentation for the bridge.
type OtelConfig struct {
	// TracerProvider supplies the tracer. Defaults to otel.GetTracerProvider().
	TracerProvider trace.TracerProvider
	// MeterProvider supplies the meter. Defaults to otel.GetMeterProvider().
	MeterProvider metric.MeterProvider
	// EnableTracing enables span creation. Default true.
	EnableTracing bool
	// EnableMetrics enables counter and histogram recording. Default true.
	EnableMetrics bool
	// RecordExceptions calls RecordError on the span for failed operations.
	// Default true.
	RecordExceptions bool
	// CustomAttributes are added to every span.
	CustomAttributes []attribute.KeyValue
}

// DefaultConfig returns an OtelConfig with sensible defaults.
// TracerProvider and MeterProvider are resolved from the global OTel SDK
// at instrumentation time.
func DefaultConfig() OtelConfig {
	return OtelConfig{
		EnableTracing:    true,
		EnableMetrics:    true,
		RecordExceptions: true,
	}
}

// Instrument attaches OpenTelemetry instrumentation to every bridge file
// operation. The hook is installed via [tablebridge.SetOpHook].
func Instrument(cfg OtelConfig) {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}

	hook := &otelHook{
		cfg:    cfg,
		tracer: cfg.TracerProvider.Tracer(instrumentationName),
	}

	if cfg.EnableMetrics {
		meter := cfg.MeterProvider.Meter(instrumentationName)
		hook.opCounter, _ = meter.Int64Counter("bridge.ops",
			metric.WithUnit("{operation}"),
			metric.WithDescription("Number of bridge file operations"),
		)
		hook.durationHistogram, _ = meter.Float64Histogram("bridge.op.duration",
			metric.WithUnit("s"),
			metric.WithDescription("Duration of bridge file operations"),
		)
		hook.rowCounter, _ = meter.Int64Counter("bridge.rows",
			metric.WithUnit("{row}"),
			metric.WithDescription("Rows moved by bridge file operations"),
		)
	}

	tablebridge.SetOpHook(hook)
}

// otelHook implements tablebridge.OpHook with OpenTelemetry tracing and metrics.
type otelHook struct {
	cfg               OtelConfig
	tracer            trace.Tracer
	opCounter         metric.Int64Counter
	durationHistogram metric.Float64Histogram
	rowCounter        metric.Int64Counter
}

// spanToken is the HookToken returned by OnOpStart.
type spanToken struct {
	span      trace.Span
	startTime time.Time
}

// OnOpStart starts a span for the operation.
func (h *otelHook) OnOpStart(ctx context.Context, info tablebridge.OpInfo) (context.Context, tablebridge.HookToken) {
	if !h.cfg.EnableTracing {
		return ctx, &spanToken{startTime: time.Now()}
	}

	spanName := fmt.Sprintf("table_bridge/%s", info.Op)

	attrs := []attribute.KeyValue{
		attribute.String("bridge.op", info.Op),
		attribute.String("bridge.format", info.Format),
		attribute.String("bridge.path", info.Path),
	}
	attrs = append(attrs, h.cfg.CustomAttributes...)

	ctx, span := h.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)

	return ctx, &spanToken{span: span, startTime: time.Now()}
}

// OnOpEnd records span attributes, metrics, and ends the span.
func (h *otelHook) OnOpEnd(ctx context.Context, token tablebridge.HookToken, info tablebridge.OpInfo, stats *tablebridge.IOStatistics, err error) {
	st, ok := token.(*spanToken)
	if !ok {
		return
	}

	duration := time.Since(st.startTime)

	status := "ok"
	if err != nil {
		status = "error"
	}

	if h.cfg.EnableMetrics {
		metricAttrs := metric.WithAttributes(
			attribute.String("bridge.op", info.Op),
			attribute.String("bridge.format", info.Format),
			attribute.String("status", status),
		)
		if h.opCounter != nil {
			h.opCounter.Add(ctx, 1, metricAttrs)
		}
		if h.durationHistogram != nil {
			h.durationHistogram.Record(ctx, duration.Seconds(), metricAttrs)
		}
		if h.rowCounter != nil && stats != nil {
			h.rowCounter.Add(ctx, stats.Rows, metricAttrs)
		}
	}

	if st.span != nil && st.span.IsRecording() {
		if stats != nil {
			st.span.SetAttributes(
				attribute.Int64("bridge.batches", stats.Batches),
				attribute.Int64("bridge.rows", stats.Rows),
				attribute.Int64("bridge.bytes", stats.Bytes),
			)
		}

		if err != nil {
			st.span.SetStatus(codes.Error, err.Error())
			if h.cfg.RecordExceptions {
				st.span.RecordError(err)
			}
			errType := fmt.Sprintf("%T", err)
			if be, ok := err.(*tablebridge.Error); ok {
				errType = be.Kind.String()
			}
			st.span.SetAttributes(attribute.String("bridge.error_type", errType))
		} else {
			st.span.SetStatus(codes.Ok, "")
		}

		st.span.End()
	}
}
