package log

import (
	"context"
	"log/slog"

	"go.uber.org/zap/zapcore"
)

// slogAdapter bridges slog records onto the Logger so third-party libraries
// configured with *slog.Logger share the same sink and hooks.
type slogAdapter struct {
	logger *Logger
	attrs  []Field
}

func slogLevel(level slog.Level) zapcore.Level {
	switch {
	case level >= slog.LevelError:
		return zapcore.ErrorLevel
	case level >= slog.LevelWarn:
		return zapcore.WarnLevel
	case level >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

func (a *slogAdapter) Enabled(_ context.Context, level slog.Level) bool {
	return a.logger.level.Enabled(slogLevel(level))
}

func (a *slogAdapter) Handle(ctx context.Context, record slog.Record) error {
	fields := make([]Field, 0, len(a.attrs)+record.NumAttrs())
	fields = append(fields, a.attrs...)

	record.Attrs(func(attr slog.Attr) bool {
		fields = append(fields, Any(attr.Key, attr.Value.Any()))
		return true
	})

	a.logger.log(ctx, slogLevel(record.Level), record.Message, fields...)

	return nil
}

func (a *slogAdapter) WithAttrs(attrs []slog.Attr) slog.Handler {
	fields := make([]Field, 0, len(a.attrs)+len(attrs))
	fields = append(fields, a.attrs...)

	for _, attr := range attrs {
		fields = append(fields, Any(attr.Key, attr.Value.Any()))
	}

	return &slogAdapter{logger: a.logger, attrs: fields}
}

func (a *slogAdapter) WithGroup(name string) slog.Handler {
	// Groups are flattened; the engine does not emit grouped attrs.
	return a
}
