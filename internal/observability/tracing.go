package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/photomirror/client/observability"

// Tracer returns a tracer for the given name
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartSpan starts a new span from context
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// StartStoreSpan starts a span for mirror store operations
func StartStoreSpan(ctx context.Context, operation, table string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("DB %s %s", operation, table),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "sqlite"),
			attribute.String("db.operation", operation),
			attribute.String("db.sql.table", table),
		),
	)
}

// StartRemoteSpan starts a span for a remote API call
func StartRemoteSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("remote.%s", operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rpc.operation", operation),
		),
	)
}

// StartServiceSpan starts a span for service operations
func StartServiceSpan(ctx context.Context, service, operation string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("%s.%s", service, operation),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("service.component", service),
			attribute.String("service.operation", operation),
		),
	)
}

// RecordError records an error on the span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSuccess marks the span as successful
func SetSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddEvent adds an event to the span
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SyncMetrics holds sync engine metrics
type SyncMetrics struct {
	pagesApplied   metric.Int64Counter
	recordsUpdated metric.Int64Counter
	recordsDeleted metric.Int64Counter
}

// NewSyncMetrics creates sync metrics instruments
func NewSyncMetrics() (*SyncMetrics, error) {
	meter := otel.Meter(instrumentationName)

	pagesApplied, err := meter.Int64Counter(
		"sync.pages.applied",
		metric.WithDescription("Library pages applied to the mirror"),
	)
	if err != nil {
		return nil, err
	}

	recordsUpdated, err := meter.Int64Counter(
		"sync.records.updated",
		metric.WithDescription("Mirror records inserted or updated"),
	)
	if err != nil {
		return nil, err
	}

	recordsDeleted, err := meter.Int64Counter(
		"sync.records.deleted",
		metric.WithDescription("Mirror records deleted"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		pagesApplied:   pagesApplied,
		recordsUpdated: recordsUpdated,
		recordsDeleted: recordsDeleted,
	}, nil
}

// RecordPage records one applied page
func (m *SyncMetrics) RecordPage(ctx context.Context, updated, deleted int) {
	if m == nil {
		return
	}
	m.pagesApplied.Add(ctx, 1)
	m.recordsUpdated.Add(ctx, int64(updated))
	m.recordsDeleted.Add(ctx, int64(deleted))
}

// UploadMetrics holds upload pipeline metrics
type UploadMetrics struct {
	tasksCompleted metric.Int64Counter
	tasksFailed    metric.Int64Counter
	tasksDeduped   metric.Int64Counter
	bytesUploaded  metric.Int64Counter
}

// NewUploadMetrics creates upload metrics instruments
func NewUploadMetrics() (*UploadMetrics, error) {
	meter := otel.Meter(instrumentationName)

	tasksCompleted, err := meter.Int64Counter(
		"upload.tasks.completed",
		metric.WithDescription("Upload tasks finished successfully"),
	)
	if err != nil {
		return nil, err
	}

	tasksFailed, err := meter.Int64Counter(
		"upload.tasks.failed",
		metric.WithDescription("Upload tasks that failed"),
	)
	if err != nil {
		return nil, err
	}

	tasksDeduped, err := meter.Int64Counter(
		"upload.tasks.deduplicated",
		metric.WithDescription("Uploads short-circuited by remote hash match"),
	)
	if err != nil {
		return nil, err
	}

	bytesUploaded, err := meter.Int64Counter(
		"upload.bytes",
		metric.WithDescription("Bytes transferred to the remote store"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &UploadMetrics{
		tasksCompleted: tasksCompleted,
		tasksFailed:    tasksFailed,
		tasksDeduped:   tasksDeduped,
		bytesUploaded:  bytesUploaded,
	}, nil
}

// RecordCompleted records a successful upload of size bytes
func (m *UploadMetrics) RecordCompleted(ctx context.Context, size int64) {
	if m == nil {
		return
	}
	m.tasksCompleted.Add(ctx, 1)
	m.bytesUploaded.Add(ctx, size)
}

// RecordFailed records a failed upload task
func (m *UploadMetrics) RecordFailed(ctx context.Context) {
	if m == nil {
		return
	}
	m.tasksFailed.Add(ctx, 1)
}

// RecordDeduplicated records a task resolved without transferring bytes
func (m *UploadMetrics) RecordDeduplicated(ctx context.Context) {
	if m == nil {
		return
	}
	m.tasksDeduped.Add(ctx, 1)
}
