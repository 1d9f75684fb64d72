package internal

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

var (
	logMux     sync.RWMutex
	logWriter  io.Writer = colorable.NewColorableStdout()
	logNoColor           = !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())
	logLevel             = &slog.LevelVar{}
)

// SetLogOutput redirects the console output of every logger
// created after this call. Colors are disabled.
func SetLogOutput(w io.Writer) {
	logMux.Lock()
	defer logMux.Unlock()

	logWriter = w
	logNoColor = true
}

// SetLogLevel sets the minimum level of the console output.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

func newConsoleHandler() slog.Handler {
	logMux.RLock()
	defer logMux.RUnlock()

	return tint.NewHandler(logWriter, &tint.Options{
		Level:      logLevel,
		TimeFormat: time.TimeOnly,
		NoColor:    logNoColor,
	})
}

type logger struct {
	l *slog.Logger
}

func newLogger(kind, name string) *logger {
	handler := &fanOutHandler{
		handlers: []slog.Handler{
			newConsoleHandler(),
			otelslog.NewHandler(scopeName),
		},
	}

	return &logger{
		l: slog.New(handler).With("stage_kind", kind, "stage_name", name),
	}
}

func (l *logger) info(msg string, args ...any) {
	l.l.Info(msg, args...)
}

func (l *logger) warn(msg string, args ...any) {
	l.l.Warn(msg, args...)
}

func (l *logger) error(msg string, err error, args ...any) {
	l.l.Error(msg, append(args, tint.Err(err))...)
}

// fanOutHandler forwards every record to all the wrapped handlers.
type fanOutHandler struct {
	handlers []slog.Handler
}

func (h *fanOutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (h *fanOutHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error

	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}

		if err := handler.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func (h *fanOutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, 0, len(h.handlers))
	for _, handler := range h.handlers {
		handlers = append(handlers, handler.WithAttrs(attrs))
	}

	return &fanOutHandler{handlers: handlers}
}

func (h *fanOutHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, 0, len(h.handlers))
	for _, handler := range h.handlers {
		handlers = append(handlers, handler.WithGroup(name))
	}

	return &fanOutHandler{handlers: handlers}
}
