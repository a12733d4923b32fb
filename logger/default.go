package logger

import (
	"os"
	"sync/atomic"
)

var defLogger atomic.Value

func init() {
	defLogger.Store(holder{NewSlog(os.Stderr, InfoLevel, defaultConsole())})
}

// holder keeps atomic.Value storing a single concrete type.
type holder struct{ Logger }

// GetLogger returns the package default logger.
func GetLogger() Logger {
	return defLogger.Load().(holder).Logger
}

// SetLogger replaces the package default logger. A nil l is ignored.
func SetLogger(l Logger) {
	if l == nil {
		return
	}
	defLogger.Store(holder{l})
}

func Debug(msg string, keysAndValues ...any) { GetLogger().Debug(msg, keysAndValues...) }
func Info(msg string, keysAndValues ...any)  { GetLogger().Info(msg, keysAndValues...) }
func Warn(msg string, keysAndValues ...any)  { GetLogger().Warn(msg, keysAndValues...) }
func Error(msg string, keysAndValues ...any) { GetLogger().Error(msg, keysAndValues...) }

func With(keysAndValues ...any) Logger { return GetLogger().With(keysAndValues...) }
