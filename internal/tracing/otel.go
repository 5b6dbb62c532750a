package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every planner span
const TracerName = "github.com/jsexpertdev/ostad-ai-agent"

// Options configures the tracer provider installed by Setup
type Options struct {
	ServiceName    string
	ServiceVersion string

	// SampleRatio is the share of root traces kept, clamped to [0, 1]
	SampleRatio float64

	// Exporter receives finished spans in batches. Nil keeps spans in
	// process, which still yields trace ids for log correlation.
	Exporter sdktrace.SpanExporter
}

// ShutdownFunc flushes pending spans and releases the provider
type ShutdownFunc func(context.Context) error

// Setup installs a global tracer provider for the planner
func Setup(opts Options) (ShutdownFunc, error) {
	if opts.ServiceName == "" {
		return nil, fmt.Errorf("tracing: service name is required")
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(opts.ServiceName)}
	if opts.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(opts.ServiceVersion))
	}

	ratio := opts.SampleRatio
	if ratio < 0 {
		ratio = 0
	} else if ratio > 1 {
		ratio = 1
	}

	providerOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithResource(resource.NewSchemaless(attrs...)),
	}
	if opts.Exporter != nil {
		providerOpts = append(providerOpts, sdktrace.WithBatcher(opts.Exporter))
	}

	tp := sdktrace.NewTracerProvider(providerOpts...)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// StartSpan opens a span on the planner tracer. The span's trace id seeds the
// context's trace id when none is set yet, so log lines carry it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...))

	if sc := span.SpanContext(); sc.IsValid() && GetTraceID(ctx) == "" {
		ctx = WithTraceID(ctx, sc.TraceID().String())
	}
	return ctx, span
}

// EndSpan marks the span failed when err is set and ends it
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
