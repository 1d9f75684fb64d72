package message

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

func Test_Message(t *testing.T) {
	assert := assert.New(t)

	msg := NewMessage("body")
	assert.Equal("body", msg.GetBody())
	assert.True(msg.GetPublishTime().IsZero())
	assert.False(msg.GetSpanContext().IsValid())

	// Without a span the context is returned as is
	ctx := t.Context()
	assert.Equal(ctx, msg.LoadSpanContext(ctx))

	now := time.Now()
	stamped := msg.WithPublishTime(now)
	assert.Equal(now, stamped.GetPublishTime())
	assert.True(msg.GetPublishTime().IsZero())

	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1},
		SpanID:  trace.SpanID{2},
	})
	traced := stamped.WithSpan(trace.SpanFromContext(trace.ContextWithSpanContext(ctx, spanCtx)))
	assert.Equal(spanCtx, traced.GetSpanContext())
	assert.Equal(spanCtx, trace.SpanContextFromContext(traced.LoadSpanContext(ctx)))
}
