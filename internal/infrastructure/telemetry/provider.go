// Package telemetry wires OpenTelemetry traces, metrics and logs for the
// lead intake service. Every provider exports over OTLP gRPC when enabled and
// degrades to the global no-op implementation when disabled.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// ServiceVersion is reported in the resource of every exported signal.
const ServiceVersion = "1.0.0"

// shutdownTimeout bounds how long a single provider may spend flushing
const shutdownTimeout = 10 * time.Second

// newResource describes this service for all signal providers
func newResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// stopProvider flushes and stops one SDK provider. signal names it in logs
// and errors ("tracer", "meter", "logger").
func stopProvider(ctx context.Context, log *zap.Logger, signal string, shutdown func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	log.Info("Shutting down OpenTelemetry provider", zap.String("signal", signal))
	if err := shutdown(ctx); err != nil {
		log.Error("Error shutting down OpenTelemetry provider", zap.String("signal", signal), zap.Error(err))
		return fmt.Errorf("failed to shutdown %s provider: %w", signal, err)
	}
	return nil
}
