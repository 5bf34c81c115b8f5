// Package logging provides the structured logger used across the service.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with attribute helpers for ledger fields.
type Logger struct {
	*slog.Logger
}

func New(handler slog.Handler) *Logger {
	return &Logger{Logger: slog.New(handler)}
}

// NewLogger picks a text or JSON handler by format.
func NewLogger(w io.Writer, format string, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return New(slog.NewJSONHandler(w, opts))
	}
	return New(slog.NewTextHandler(w, opts))
}

// NewDevelopmentLogger writes debug-level text to stderr.
func NewDevelopmentLogger() *Logger {
	return NewLogger(os.Stderr, "text", slog.LevelDebug)
}

// NewNopLogger discards everything.
func NewNopLogger() *Logger {
	return New(nopHandler{})
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

func (l *Logger) WithComponent(name string) *Logger {
	return l.With(Component(name))
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Campaign(address string) slog.Attr {
	return slog.String("campaign", address)
}

func Caller(address string) slog.Attr {
	return slog.String("caller", address)
}

func EventID(id string) slog.Attr {
	return slog.String("event_id", id)
}

func Amount(lamports int64) slog.Attr {
	return slog.Int64("lamports", lamports)
}

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
