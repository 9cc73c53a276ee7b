// Package telemetry wires OpenTelemetry tracing across the ambient stack:
// one span per HTTP request (internal/httpserver), per task claim/execute
// (internal/parseworker), per distribution-queue maintenance sweep
// (internal/distqueue), and per push attempt
// (internal/pushworker). Grounded on the system-design-library pack's
// pkg/telemetry.Init, extended with the stdout exporter fallback
// internal/config.OTelConfig already documents for endpoint-less local runs.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/vaultstream/vaultstream/internal/config"
)

const tracerName = "github.com/vaultstream/vaultstream"

// Init builds and registers the global TracerProvider. When cfg.OTLPEndpoint
// is empty it exports to stdout (local/dev runs), otherwise it ships spans
// to an OTLP/gRPC collector. The returned func flushes and tears down the
// provider and should be deferred from cmd/server and cmd/worker's main.
func Init(ctx context.Context, cfg config.OTelConfig) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName(cfg)),
		),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, cfg config.OTelConfig) (sdktrace.SpanExporter, error) {
	if cfg.OTLPEndpoint == "" {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	return otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
}

func serviceName(cfg config.OTelConfig) string {
	if cfg.ServiceName != "" {
		return cfg.ServiceName
	}
	return "vaultstream"
}

// Start opens a span under the package tracer; callers defer span.End().
func Start(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name)
}

// RecordError marks the span as failed and attaches err, matching the
// pkg/storage/blob instrumented-decorator convention (RecordError +
// SetStatus(codes.Error, ...)).
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetIntAttr attaches an integer attribute to a span.
func SetIntAttr(span trace.Span, key string, value int) {
	span.SetAttributes(attribute.Int(key, value))
}

// SetStringAttr attaches a string attribute to a span.
func SetStringAttr(span trace.Span, key, value string) {
	span.SetAttributes(attribute.String(key, value))
}
