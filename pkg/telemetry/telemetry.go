// ABOUTME: Core telemetry abstraction over OpenTelemetry used to instrument the block store
// ABOUTME: Provides metric recording, tracing and lifecycle management with a no-op fallback

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry provides the core abstraction over OpenTelemetry.
// Components record metrics and spans through it without depending on the SDK directly.
type Telemetry interface {
	// RecordHistogram records a histogram value with optional attributes.
	RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue)

	// RecordCounter records a counter increment with optional attributes.
	RecordCounter(ctx context.Context, name string, value int64, attrs ...attribute.KeyValue)

	// StartSpan creates a new tracing span with the given name and attributes.
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)

	// Shutdown flushes pending data and releases exporters.
	Shutdown(ctx context.Context) error
}

// ComponentMetrics is implemented by every component-specific metrics interface.
type ComponentMetrics interface {
	// Close releases any resources held by the metrics implementation.
	Close() error
}

// NoopTelemetry discards everything.
type NoopTelemetry struct{}

// NewNoop creates a new no-operation telemetry instance.
func NewNoop() Telemetry {
	return &NoopTelemetry{}
}

// RecordHistogram is a no-op.
func (n *NoopTelemetry) RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) {
}

// RecordCounter is a no-op.
func (n *NoopTelemetry) RecordCounter(ctx context.Context, name string, value int64, attrs ...attribute.KeyValue) {
}

// StartSpan returns the original context and whatever span it already carries.
func (n *NoopTelemetry) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, trace.SpanFromContext(ctx)
}

// Shutdown is a no-op.
func (n *NoopTelemetry) Shutdown(ctx context.Context) error {
	return nil
}

// RecordDuration records the time elapsed since start, in seconds, in a histogram.
func RecordDuration(ctx context.Context, tel Telemetry, name string, start time.Time, attrs ...attribute.KeyValue) {
	tel.RecordHistogram(ctx, name, time.Since(start).Seconds(), attrs...)
}

// RecordBytes records a byte count in a counter.
func RecordBytes(ctx context.Context, tel Telemetry, name string, bytes int64, attrs ...attribute.KeyValue) {
	tel.RecordCounter(ctx, name, bytes, attrs...)
}

// Common attribute keys
const (
	AttrOperationType = "operation.type"
	AttrOperationName = "operation.name"
	AttrComponent     = "component"
	AttrStatus        = "status"
	AttrErrorType     = "error.type"
	AttrPlacement     = "block.placement"
	AttrKey           = "key"
)

// Operation types
const (
	OpTypeInsert = "insert"
	OpTypeGet    = "get"
	OpTypeRemove = "remove"
	OpTypePush   = "push"
	OpTypePull   = "pull"
	OpTypeVerify = "verify"
	OpTypeCheck  = "check"
)

// Status values
const (
	StatusSuccess = "success"
	StatusMiss    = "miss"
	StatusError   = "error"
)

// Placement values for block allocation
const (
	PlacementReused   = "reused"
	PlacementAppended = "appended"
)

// Component names
const (
	ComponentBlockStore = "blockstore"
	ComponentShell      = "shell"
	ComponentBench      = "bench"
)
