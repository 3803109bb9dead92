// Package telemetry wires up OpenTelemetry tracing for the evaluation
// engine, grounded on the teacher's own otel wiring pattern
// (otel.Tracer("station-database")-style per-package tracers) and its
// otlptracegrpc exporter usage.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Init configures the global TracerProvider. When endpoint is empty
// (no TRUSTBENCH_OTEL_EXPORTER_OTLP_ENDPOINT configured), it installs a no-op
// provider so instrumentation calls are cheap and harmless in fake/test
// runs.
func Init(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	if endpoint == "" {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("telemetry: create otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
