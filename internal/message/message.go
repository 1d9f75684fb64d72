// Package message contains the envelope moved through the connectors.
package message

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Message wraps a body with the metadata needed by the stages.
// It is passed by value, so it is never shared between stages.
type Message[T any] struct {
	body T

	publishTime time.Time
	span        trace.SpanContext
}

// NewMessage returns a new message carrying the given body.
func NewMessage[T any](body T) Message[T] {
	return Message[T]{
		body: body,
	}
}

// GetBody returns the body of the message.
func (m Message[T]) GetBody() T {
	return m.body
}

// WithPublishTime returns a copy of the message with the given publish time.
func (m Message[T]) WithPublishTime(publishTime time.Time) Message[T] {
	m.publishTime = publishTime
	return m
}

// GetPublishTime returns the time the message was handed to the connector.
func (m Message[T]) GetPublishTime() time.Time {
	return m.publishTime
}

// WithSpan returns a copy of the message carrying the context of the span.
func (m Message[T]) WithSpan(span trace.Span) Message[T] {
	m.span = span.SpanContext()
	return m
}

// GetSpanContext returns the span context saved in the message.
func (m Message[T]) GetSpanContext() trace.SpanContext {
	return m.span
}

// LoadSpanContext loads the span of the message into the provided context.
func (m Message[T]) LoadSpanContext(ctx context.Context) context.Context {
	if !m.span.IsValid() {
		return ctx
	}

	return trace.ContextWithSpanContext(ctx, m.span)
}
