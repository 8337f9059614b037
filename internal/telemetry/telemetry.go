// Package telemetry installs the process-wide OpenTelemetry tracer
// provider the engine's spans (engine.Execute, node execution) report
// into. Grounded on the teacher's pkg/observability.InitGlobalTracer,
// trimmed to an in-process SDK provider with no remote exporter — this
// module has no OTLP collector endpoint in scope, so spans are sampled
// and recorded in-process, but no span processor or exporter is
// registered: ended spans are neither retained nor shipped anywhere.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Init installs a resource-tagged SDK TracerProvider as the global
// provider, so every otel.Tracer(...) call across the module (engine's
// in particular) produces real spans instead of the no-op default. It
// returns the provider's Shutdown function, which callers defer.
func Init(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	var provider trace.TracerProvider = tp
	otel.SetTracerProvider(provider)

	return tp.Shutdown, nil
}
