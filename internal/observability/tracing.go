// Package observability provides OpenTelemetry tracing, metrics, and
// audit logging for the task graph service.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the name used for the task graph tracer.
	TracerName = "github.com/plusplusoneplusplus/taskgraph"
)

// TracingConfig configures the OpenTelemetry tracing.
type TracingConfig struct {
	// ServiceName is the name of the service (default: "taskgraph")
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// Environment is the deployment environment (dev, staging, prod)
	Environment string

	// OTLPEndpoint is the OTLP gRPC endpoint (e.g., "localhost:4317")
	// If empty, tracing is disabled.
	OTLPEndpoint string

	// SampleRate is the trace sampling rate (0.0 to 1.0, default: 1.0)
	SampleRate float64
}

// DefaultTracingConfig returns a default tracing configuration.
func DefaultTracingConfig() *TracingConfig {
	return &TracingConfig{
		ServiceName:    "taskgraph",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		SampleRate:     1.0,
	}
}

// TracerProvider wraps the OpenTelemetry tracer provider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// InitTracing initializes OpenTelemetry tracing.
// Returns a no-op tracer if OTLPEndpoint is empty.
func InitTracing(ctx context.Context, cfg *TracingConfig) (*TracerProvider, error) {
	if cfg == nil {
		cfg = DefaultTracingConfig()
	}

	// If no endpoint, return no-op tracer
	if cfg.OTLPEndpoint == "" {
		return &TracerProvider{
			tracer: otel.Tracer(TracerName),
		}, nil
	}

	// Create OTLP exporter
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(), // Use TLS in production
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	// Create resource with service info
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	// Create sampler
	var sampler sdktrace.Sampler
	if cfg.SampleRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else if cfg.SampleRate <= 0 {
		sampler = sdktrace.NeverSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	// Create trace provider
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	// Set global provider and propagator
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{
		provider: provider,
		tracer:   provider.Tracer(TracerName),
	}, nil
}

// Shutdown gracefully shuts down the tracer provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider != nil {
		return tp.provider.Shutdown(ctx)
	}
	return nil
}

// Tracer returns the underlying tracer.
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// SpanKind constants for task graph operations.
const (
	SpanKindQuery     = "query"
	SpanKindSchedule  = "schedule"
	SpanKindAlgorithm = "algorithm"
	SpanKindDispatch  = "dispatch"
	SpanKindSync      = "sync"
)

// StartQuerySpan starts a span for a graph database query.
func StartQuerySpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, fmt.Sprintf("graph.%s", operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("taskgraph.span.kind", SpanKindQuery),
			attribute.String("graph.operation", operation),
		),
	)
	return ctx, span
}

// RecordQueryMetrics records graph query metrics on a span.
func RecordQueryMetrics(span trace.Span, recordCount int, duration time.Duration) {
	span.SetAttributes(
		attribute.Int("graph.record_count", recordCount),
		attribute.Int64("graph.duration_ms", duration.Milliseconds()),
	)
}

// StartScheduleSpan starts a span for a scheduling pass.
func StartScheduleSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, fmt.Sprintf("schedule.%s", operation),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("taskgraph.span.kind", SpanKindSchedule),
			attribute.String("schedule.operation", operation),
		),
	)
	return ctx, span
}

// RecordScheduleResult records scheduling pass results on a span.
func RecordScheduleResult(span trace.Span, taskCount, readyCount int) {
	span.SetAttributes(
		attribute.Int("schedule.task_count", taskCount),
		attribute.Int("schedule.ready_count", readyCount),
	)
}

// StartAlgorithmSpan starts a span for a graph algorithm run.
func StartAlgorithmSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, fmt.Sprintf("algorithm.%s", name),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("taskgraph.span.kind", SpanKindAlgorithm),
			attribute.String("algorithm.name", name),
		),
	)
	return ctx, span
}

// RecordAlgorithmResult records the graph size an algorithm ran over.
func RecordAlgorithmResult(span trace.Span, nodeCount, edgeCount int) {
	span.SetAttributes(
		attribute.Int("algorithm.node_count", nodeCount),
		attribute.Int("algorithm.edge_count", edgeCount),
	)
}

// StartDispatchSpan starts a span for dispatching a task to an executor.
func StartDispatchSpan(ctx context.Context, taskID string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, "task.dispatch",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("taskgraph.span.kind", SpanKindDispatch),
			attribute.String("task.id", taskID),
		),
	)
	return ctx, span
}

// RecordDispatchResult records dispatch outcome on a span.
func RecordDispatchResult(span trace.Span, token string, started bool) {
	span.SetAttributes(
		attribute.String("task.token", token),
		attribute.Bool("task.started", started),
	)
	if !started {
		span.SetStatus(codes.Error, "dispatch failed")
	}
}

// StartSyncSpan starts a span for an executor synchronization pass.
func StartSyncSpan(ctx context.Context) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, "sync.reconcile",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("taskgraph.span.kind", SpanKindSync),
		),
	)
	return ctx, span
}

// RecordSyncResult records reconciliation findings on a span.
func RecordSyncResult(span trace.Span, orphanedCount, staleCount int) {
	span.SetAttributes(
		attribute.Int("sync.orphaned_count", orphanedCount),
		attribute.Int("sync.stale_count", staleCount),
	)
	if staleCount > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d stale tasks", staleCount))
	}
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
