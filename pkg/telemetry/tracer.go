// Package telemetry sets up OpenTelemetry tracing for the gateway: spans
// cross the HTTP handler boundary (via otelhttp) down through the database
// pool (via otelpgx, wired in pkg/store) so a single trace can be followed
// from an incoming streaming request to its backing queries.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/driftline/streamgate"

// Shutdown flushes and stops the tracer provider. Safe to call with a nil
// provider (no-op), which happens when tracing was never enabled.
type Shutdown func(ctx context.Context) error

// Setup configures the global tracer provider and propagator. When endpoint
// is empty, tracing stays on the SDK's default no-op provider and Setup
// returns a no-op Shutdown — the gateway runs the same either way, just
// without exported spans.
func Setup(ctx context.Context, endpoint, serviceName string) (Shutdown, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", serviceName)),
	)
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

// Tracer returns the gateway's named tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(instrumentationName)
}
