// Package internal contains the telemetry helpers shared by all the stages.
package internal

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/FerroO2000/sensorring"

// Telemetry groups the logger, the tracer and the meter of a stage.
type Telemetry struct {
	logger *logger

	tracer trace.Tracer
	meter  metric.Meter

	attrs    []attribute.KeyValue
	attrSet  attribute.Set
	attrOpts metric.MeasurementOption
}

// NewTelemetry returns the telemetry for the stage identified
// by the given kind (ingress/egress/ring) and name.
func NewTelemetry(kind, name string) *Telemetry {
	attrs := []attribute.KeyValue{
		attribute.String("stage_kind", kind),
		attribute.String("stage_name", name),
	}
	attrSet := attribute.NewSet(attrs...)

	return &Telemetry{
		logger: newLogger(kind, name),

		tracer: otel.Tracer(scopeName),
		meter:  otel.Meter(scopeName),

		attrs:    attrs,
		attrSet:  attrSet,
		attrOpts: metric.WithAttributeSet(attrSet),
	}
}

// LogInfo logs an info message.
func (t *Telemetry) LogInfo(msg string, args ...any) {
	t.logger.info(msg, args...)
}

// LogWarn logs a warning message.
func (t *Telemetry) LogWarn(msg string, args ...any) {
	t.logger.warn(msg, args...)
}

// LogError logs an error message.
func (t *Telemetry) LogError(msg string, err error, args ...any) {
	t.logger.error(msg, err, args...)
}

// NewTrace starts a new span named after the given name.
// The caller is responsible for ending the span.
func (t *Telemetry) NewTrace(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, spanName, trace.WithAttributes(t.attrs...))
}

// NewLinkedTrace starts a new span linked to the given span context.
// It is used when a span continues the work started in another stage.
func (t *Telemetry) NewLinkedTrace(ctx context.Context, spanName string, link trace.SpanContext) (context.Context, trace.Span) {
	opts := []trace.SpanStartOption{trace.WithAttributes(t.attrs...)}
	if link.IsValid() {
		opts = append(opts, trace.WithLinks(trace.Link{SpanContext: link}))
	}

	return t.tracer.Start(ctx, spanName, opts...)
}

// NewCounter registers an observable counter.
// The getter is called every time the metric is collected.
func (t *Telemetry) NewCounter(name string, getter func() int64) {
	_, err := t.meter.Int64ObservableCounter(name,
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(getter(), t.attrOpts)
			return nil
		}),
	)

	if err != nil {
		t.LogError("failed to create counter", err, "metric", name)
	}
}

// NewUpDownCounter registers an observable up/down counter.
// The getter is called every time the metric is collected.
func (t *Telemetry) NewUpDownCounter(name string, getter func() int64) {
	_, err := t.meter.Int64ObservableUpDownCounter(name,
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(getter(), t.attrOpts)
			return nil
		}),
	)

	if err != nil {
		t.LogError("failed to create up/down counter", err, "metric", name)
	}
}

// Histogram wraps an otel histogram adding the stage attributes
// to every recorded value.
type Histogram struct {
	hist     metric.Int64Histogram
	attrOpts metric.MeasurementOption
}

// Record records the value.
func (h *Histogram) Record(ctx context.Context, value int64) {
	if h.hist == nil {
		return
	}

	h.hist.Record(ctx, value, h.attrOpts)
}

// NewHistogram registers a new histogram.
func (t *Telemetry) NewHistogram(name string, opts ...metric.Int64HistogramOption) *Histogram {
	hist, err := t.meter.Int64Histogram(name, opts...)
	if err != nil {
		t.LogError("failed to create histogram", err, "metric", name)
	}

	return &Histogram{
		hist:     hist,
		attrOpts: t.attrOpts,
	}
}
