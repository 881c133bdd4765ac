// Package logger provides the leveled, structured logger shared by the
// spe-client packages. The concrete implementation sits on log/slog; callers
// depend only on the Logger interface so tests can pass NoopLogger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Logger is the logging surface used throughout the client. The plain
// variants take slog-style key/value pairs, the f variants printf arguments.
type Logger interface {
	Debug(msg string, args ...any)
	Debugf(format string, args ...any)

	Info(msg string, args ...any)
	Infof(format string, args ...any)

	Warn(msg string, args ...any)
	Warnf(format string, args ...any)

	Error(msg string, args ...any)
	Errorf(format string, args ...any)

	// With returns a Logger that adds the given attributes to every record.
	With(args ...any) Logger
}

// NoopLogger discards everything.
type NoopLogger struct{}

func (l NoopLogger) Debug(msg string, args ...any)     {}
func (l NoopLogger) Debugf(format string, args ...any) {}
func (l NoopLogger) Info(msg string, args ...any)      {}
func (l NoopLogger) Infof(format string, args ...any)  {}
func (l NoopLogger) Warn(msg string, args ...any)      {}
func (l NoopLogger) Warnf(format string, args ...any)  {}
func (l NoopLogger) Error(msg string, args ...any)     {}
func (l NoopLogger) Errorf(format string, args ...any) {}
func (l NoopLogger) With(args ...any) Logger           { return l }

// SlogLogger adapts a *slog.Logger to Logger.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger returns a text logger on stderr at the given level.
func NewSlogLogger(level slog.Level) *SlogLogger {
	return NewWriterLogger(os.Stderr, level)
}

// NewWriterLogger returns a text logger writing to w at the given level.
func NewWriterLogger(w io.Writer, level slog.Level) *SlogLogger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return &SlogLogger{logger: slog.New(handler)}
}

// NewDefaultLogger picks Debug level when debug is set and Warn otherwise,
// so that a normal CLI run only prints what the user has to act on.
func NewDefaultLogger(debug bool) Logger {
	if debug {
		return NewSlogLogger(slog.LevelDebug)
	}
	return NewSlogLogger(slog.LevelWarn)
}

func (l *SlogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }

func (l *SlogLogger) Debugf(format string, args ...any) { l.logger.Debug(sprintf(format, args...)) }

func (l *SlogLogger) Info(msg string, args ...any) { l.logger.Info(msg, args...) }

func (l *SlogLogger) Infof(format string, args ...any) { l.logger.Info(sprintf(format, args...)) }

func (l *SlogLogger) Warn(msg string, args ...any) { l.logger.Warn(msg, args...) }

func (l *SlogLogger) Warnf(format string, args ...any) { l.logger.Warn(sprintf(format, args...)) }

func (l *SlogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *SlogLogger) Errorf(format string, args ...any) { l.logger.Error(sprintf(format, args...)) }

// With returns a child logger carrying the extra attributes.
func (l *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{logger: l.logger.With(args...)}
}

// OrNoop returns l, or a NoopLogger when l is nil.
func OrNoop(l Logger) Logger {
	if l == nil {
		return NoopLogger{}
	}
	return l
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
