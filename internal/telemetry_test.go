package internal

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type syncBuffer struct {
	mux sync.Mutex
	buf bytes.Buffer
}

func (sb *syncBuffer) Write(p []byte) (int, error) {
	sb.mux.Lock()
	defer sb.mux.Unlock()
	return sb.buf.Write(p)
}

func (sb *syncBuffer) String() string {
	sb.mux.Lock()
	defer sb.mux.Unlock()
	return sb.buf.String()
}

func Test_Telemetry_Logs(t *testing.T) {
	assert := assert.New(t)

	out := &syncBuffer{}
	SetLogOutput(out)

	tel := NewTelemetry("ingress", "sensor_1")

	tel.LogInfo("reading published", "slot", 3)
	tel.LogWarn("config anomaly", "field", "Interval")
	tel.LogError("failed to publish", errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(lines, 3)

	assert.Contains(lines[0], "INF")
	assert.Contains(lines[0], "reading published")
	assert.Contains(lines[0], "stage_kind=ingress")
	assert.Contains(lines[0], "stage_name=sensor_1")
	assert.Contains(lines[0], "slot=3")

	assert.Contains(lines[1], "WRN")
	assert.Contains(lines[2], "ERR")
	assert.Contains(lines[2], "err=boom")

	SetLogLevel(slog.LevelError)
	defer SetLogLevel(slog.LevelInfo)

	tel.LogInfo("hidden")
	assert.NotContains(out.String(), "hidden")
}

func Test_Telemetry_Metrics(t *testing.T) {
	tel := NewTelemetry("ring", "buffer")

	// Without a provider the instruments are no-ops, they must not panic
	tel.NewCounter("counter", func() int64 { return 1 })
	tel.NewUpDownCounter("up_down_counter", func() int64 { return -1 })

	hist := tel.NewHistogram("histogram")
	hist.Record(t.Context(), 10)

	(&Histogram{}).Record(t.Context(), 10)

	ctx, span := tel.NewTrace(t.Context(), "span")
	defer span.End()

	_, linked := tel.NewLinkedTrace(ctx, "linked", span.SpanContext())
	linked.End()
}

type recordingHandler struct {
	level   slog.Level
	records []slog.Record
	attrs   []slog.Attr
}

func (h *recordingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.records = append(h.records, r)
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &recordingHandler{level: h.level, attrs: append(h.attrs, attrs...)}
}

func (h *recordingHandler) WithGroup(_ string) slog.Handler {
	return h
}

func Test_fanOutHandler(t *testing.T) {
	assert := assert.New(t)

	debug := &recordingHandler{level: slog.LevelDebug}
	warn := &recordingHandler{level: slog.LevelWarn}

	logger := slog.New(&fanOutHandler{handlers: []slog.Handler{debug, warn}})

	logger.Debug("debug")
	logger.Warn("warn")

	assert.Len(debug.records, 2)
	assert.Len(warn.records, 1)

	withAttrs := (&fanOutHandler{handlers: []slog.Handler{debug}}).WithAttrs([]slog.Attr{slog.Int("a", 1)})
	fanOut := withAttrs.(*fanOutHandler)
	assert.Equal([]slog.Attr{slog.Int("a", 1)}, fanOut.handlers[0].(*recordingHandler).attrs)

	assert.False((&fanOutHandler{handlers: []slog.Handler{warn}}).Enabled(t.Context(), slog.LevelInfo))
}
