package observability

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// slogLogger adapts a *slog.Logger to Logger.
type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger returns a Logger that writes through l. A nil l yields a
// logger that discards everything.
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = newNopSlog()
	}
	return slogLogger{l: l}
}

func (s slogLogger) Debug(msg string, fields ...Field) { s.log(slog.LevelDebug, msg, fields) }
func (s slogLogger) Info(msg string, fields ...Field)  { s.log(slog.LevelInfo, msg, fields) }
func (s slogLogger) Warn(msg string, fields ...Field)  { s.log(slog.LevelWarn, msg, fields) }
func (s slogLogger) Error(msg string, fields ...Field) { s.log(slog.LevelError, msg, fields) }

func (s slogLogger) With(fields ...Field) Logger {
	return slogLogger{l: s.l.With(toArgs(fields)...)}
}

func (s slogLogger) log(level slog.Level, msg string, fields []Field) {
	ctx := context.Background()
	if !s.l.Enabled(ctx, level) {
		return
	}
	s.l.Log(ctx, level, msg, toArgs(fields)...)
}

func toArgs(fields []Field) []any {
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		if e, ok := f.Value().(error); ok && e != nil {
			args = append(args, slog.String(f.Key(), e.Error()))
			continue
		}
		args = append(args, slog.Any(f.Key(), f.Value()))
	}
	return args
}

// nopHandler drops every record; Enabled reports false so callers skip
// formatting.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopSlog() *slog.Logger { return slog.New(nopHandler{}) }

var defaultLogger atomic.Pointer[Logger]

func init() {
	SetLogger(nil)
}

// SetLogger installs the package-wide default logger used when a Config does
// not carry one. Passing nil restores the silent default. Safe for
// concurrent use.
func SetLogger(l *slog.Logger) {
	lg := NewSlogLogger(l)
	defaultLogger.Store(&lg)
}

// Default returns the package-wide default logger.
func Default() Logger {
	return *defaultLogger.Load()
}
