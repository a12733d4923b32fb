// Package logger is the logging facade used by the motor packages.
//
// Every component takes a Logger rather than a concrete backend so the
// application decides where output goes. The default backend is log/slog,
// writing JSON, or human readable console output when ENV=development.
package logger

// Level is the minimum severity a Logger emits.
type Level = int8

const (
	DebugLevel Level = iota - 1
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Logger is a structured, levelled logger taking alternating key/value pairs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	// With returns a child logger carrying the given fields on every entry.
	With(keysAndValues ...any) Logger
	Level() Level
	SetLevel(level Level)
}

// ParseLevel maps a level name to a Level. Unknown names map to InfoLevel.
func ParseLevel(name string) Level {
	switch name {
	case "debug", "DEBUG":
		return DebugLevel
	case "warn", "WARN", "warning":
		return WarnLevel
	case "error", "ERROR":
		return ErrorLevel
	default:
		return InfoLevel
	}
}
