package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

type LogLevel string

const (
	DEBUG   LogLevel = "DEBUG"
	INFO    LogLevel = "INFO"
	WARNING LogLevel = "WARNING"
	ERROR   LogLevel = "ERROR"
)

// Logger tags every entry with the module that produced it and the remote ip
// (or "System" for background work).
type Logger struct {
	entry *logrus.Entry
}

type Option func(*logrus.Logger)

// WithJSONFormat switches the output to one JSON object per line.
func WithJSONFormat() Option {
	return func(l *logrus.Logger) {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
}

func NewLogger(w io.Writer, module string, level LogLevel, ip string, opts ...Option) *Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetLevel(ParseLevel(level))
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		DisableColors:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	for _, opt := range opts {
		opt(base)
	}

	return &Logger{
		entry: base.WithFields(logrus.Fields{
			"module": module,
			"ip":     ip,
		}),
	}
}

// ParseLevel maps a configured level onto logrus. Unknown values fall back to INFO.
func ParseLevel(level LogLevel) logrus.Level {
	switch LogLevel(strings.ToUpper(string(level))) {
	case DEBUG:
		return logrus.DebugLevel
	case WARNING:
		return logrus.WarnLevel
	case ERROR:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// WithField returns a child logger that adds key to every entry.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

func (l *Logger) Printf(format string, args ...any) {
	l.entry.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) PrintfDebug(format string, args ...any) {
	l.entry.Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) PrintfInfo(format string, args ...any) {
	l.entry.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) PrintfWarning(format string, args ...any) {
	l.entry.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) PrintfError(format string, args ...any) {
	l.entry.Error(fmt.Sprintf(format, args...))
}
