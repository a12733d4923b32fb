package logger

import (
	"github.com/stretchr/testify/mock"
)

// MockLogger records calls for assertions in tests.
type MockLogger struct {
	mock.Mock
}

var _ Logger = (*MockLogger)(nil)

func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

// Quiet allows any call at any level, so tests only set expectations they care about.
func (m *MockLogger) Quiet() *MockLogger {
	for _, method := range []string{"Debug", "Info", "Warn", "Error"} {
		m.On(method, mock.Anything, mock.Anything).Maybe()
	}
	return m
}

func (m *MockLogger) Debug(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Info(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Warn(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Error(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

// With returns the mock itself so child loggers record into the same expectations.
func (m *MockLogger) With(keysAndValues ...any) Logger {
	return m
}

func (m *MockLogger) Level() Level {
	return DebugLevel
}

func (m *MockLogger) SetLevel(level Level) {}
