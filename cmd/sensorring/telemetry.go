package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.40.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	serviceName    = "sensorring"
	serviceVersion = "0.1.0"

	collectorDialTimeout = 2 * time.Second
	metricExportInterval = time.Second
)

// errCollectorUnreachable is returned when nothing listens on the collector endpoint.
var errCollectorUnreachable = errors.New("telemetry: collector is not reachable")

type shutdownFunc func(ctx context.Context) error

func noopShutdown(context.Context) error { return nil }

func isCollectorReachable(endpoint string) bool {
	conn, err := net.DialTimeout("tcp", endpoint, collectorDialTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// initTelemetry installs the global trace and meter providers exporting
// to the collector at the given endpoint, and starts the runtime metrics.
// The returned shutdown function is never nil and must be called
// even when an error is returned.
func initTelemetry(ctx context.Context, endpoint string, traceRatio float64) (shutdownFunc, error) {
	if !isCollectorReachable(endpoint) {
		return noopShutdown, fmt.Errorf("%w: %s", errCollectorUnreachable, endpoint)
	}

	grpcConn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return noopShutdown, fmt.Errorf("telemetry: failed to create grpc client: %w", err)
	}

	res, err := newResource()
	if err != nil {
		grpcConn.Close()
		return noopShutdown, err
	}

	// Trace
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(grpcConn))
	if err != nil {
		grpcConn.Close()
		return noopShutdown, fmt.Errorf("telemetry: failed to create trace exporter: %w", err)
	}
	tracerProvider := newTracerProvider(res, traceExporter, traceRatio)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	// Meter
	metricExporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(grpcConn))
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		grpcConn.Close()
		return noopShutdown, fmt.Errorf("telemetry: failed to create metric exporter: %w", err)
	}
	meterProvider := newMeterProvider(res, metricExporter)
	otel.SetMeterProvider(meterProvider)

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			tracerProvider.Shutdown(ctx),
			meterProvider.Shutdown(ctx),
			grpcConn.Close(),
		)
	}

	// Runtime
	if err := runtime.Start(runtime.WithMinimumReadMemStatsInterval(time.Second)); err != nil {
		return shutdown, fmt.Errorf("telemetry: failed to start runtime metrics: %w", err)
	}

	return shutdown, nil
}

func newResource() (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
			semconv.ServiceInstanceID(uuid.NewString()),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to build resource: %w", err)
	}

	return res, nil
}

func newTracerProvider(res *resource.Resource, exporter *otlptrace.Exporter, ratio float64) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
}

func newMeterProvider(res *resource.Resource, exporter sdkmetric.Exporter) *sdkmetric.MeterProvider {
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metricExportInterval)),
		),
	)
}
