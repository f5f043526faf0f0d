// Package telemetry wires request and scheduled-task tracing spans through
// go.opentelemetry.io/otel, matching the teacher's enabled/noop Tracer split
// (engine/internal/telemetry/tracing) but backed by the real SDK rather than
// a hand-rolled span type.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/aeris-platform/aeris"

// NewProvider builds a sdktrace.TracerProvider. When enabled is false, the
// returned provider is still usable but records nothing (AlwaysOff sampler),
// mirroring the teacher's noopTracer fallback.
func NewProvider(enabled bool, res *resource.Resource) *sdktrace.TracerProvider {
	sampler := sdktrace.AlwaysSample()
	if !enabled {
		sampler = sdktrace.NeverSample()
	}
	opts := []sdktrace.TracerProviderOption{sdktrace.WithSampler(sampler)}
	if res != nil {
		opts = append(opts, sdktrace.WithResource(res))
	}
	return sdktrace.NewTracerProvider(opts...)
}

// Tracer returns the named tracer from the global otel TracerProvider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartSpan is a thin convenience wrapper so call sites read the way the
// teacher's StartSpan(ctx, name) call sites do.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name)
}
