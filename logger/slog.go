package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/phsym/console-slog"
)

type slogLogger struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

// NewSlog creates a slog backed Logger writing to w. When console is true the
// output is coloured, human readable text, otherwise one JSON object per line.
func NewSlog(w io.Writer, level Level, console bool) Logger {
	lv := &slog.LevelVar{}
	lv.Set(toSlogLevel(level))

	var handler slog.Handler
	if console {
		handler = consoleHandler(w, lv)
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: lv,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					a.Key = "ts"
				}
				return a
			},
		})
	}

	return &slogLogger{logger: slog.New(handler), level: lv}
}

func consoleHandler(w io.Writer, lv *slog.LevelVar) slog.Handler {
	return console.NewHandler(w, &console.HandlerOptions{Level: lv})
}

// Discard returns a Logger that drops everything.
func Discard() Logger {
	return NewSlog(io.Discard, ErrorLevel, false)
}

func (l *slogLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Log(context.Background(), slog.LevelDebug, msg, keysAndValues...)
}

func (l *slogLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Log(context.Background(), slog.LevelInfo, msg, keysAndValues...)
}

func (l *slogLogger) Warn(msg string, keysAndValues ...any) {
	l.logger.Log(context.Background(), slog.LevelWarn, msg, keysAndValues...)
}

func (l *slogLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Log(context.Background(), slog.LevelError, msg, keysAndValues...)
}

// With shares the level with its parent, so SetLevel on either affects both.
func (l *slogLogger) With(keysAndValues ...any) Logger {
	return &slogLogger{logger: l.logger.With(keysAndValues...), level: l.level}
}

func (l *slogLogger) Level() Level {
	switch lv := l.level.Level(); {
	case lv <= slog.LevelDebug:
		return DebugLevel
	case lv <= slog.LevelInfo:
		return InfoLevel
	case lv <= slog.LevelWarn:
		return WarnLevel
	default:
		return ErrorLevel
	}
}

func (l *slogLogger) SetLevel(level Level) {
	l.level.Set(toSlogLevel(level))
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultConsole() bool {
	return os.Getenv("ENV") == "development"
}
