package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is the logging interface used by the server and client engines.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// LogrusLogger adapts a logrus.Logger to the Logger interface.
type LogrusLogger struct {
	logger *logrus.Logger
}

// New creates a logger with full timestamps at info level.
func New() *LogrusLogger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(logrus.InfoLevel)

	return &LogrusLogger{logger: logger}
}

// NewWithLevel creates a logger with the given level name. Unknown
// levels fall back to info.
func NewWithLevel(level string) *LogrusLogger {
	l := New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.logger.SetLevel(lvl)

	return l
}

// Debugf logs a formatted message at debug level.
func (l *LogrusLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

// Infof logs a formatted message at info level.
func (l *LogrusLogger) Infof(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

// Warnf logs a formatted message at warning level.
func (l *LogrusLogger) Warnf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

// Errorf logs a formatted message at error level.
func (l *LogrusLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

// Logrus returns the underlying logrus logger for advanced configuration.
func (l *LogrusLogger) Logrus() *logrus.Logger {
	return l.logger
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() *LogrusLogger {
	l := New()
	l.logger.SetOutput(io.Discard)
	return l
}
