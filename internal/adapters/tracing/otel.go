// Package tracing bootstraps the OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// InitTracer installs a stdout-exporting tracer provider tagged with
// serviceName and returns its shutdown function. RLVR_TRACE=off keeps
// the provider installed but samples nothing, so span-creating code
// paths stay exercised without console noise.
func InitTracer(serviceName string) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	sampler := trace.AlwaysSample()
	if os.Getenv("RLVR_TRACE") == "off" {
		sampler = trace.NeverSample()
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithSampler(sampler),
		trace.WithResource(resource.NewSchemaless(
			semconv.ServiceName(serviceName),
		)),
	)

	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
