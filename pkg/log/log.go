// Package log provides the structured logger injected across the SDK.
//
// There is no package-level global logger here by design (Design Notes
// §9 forbids module-level mutable state): New returns an owned Logger
// wrapping a private logrus.Logger instance, and callers pass it into
// whichever component needs it via functional options.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the logging surface used by the SDK's components.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
}

type logrusLogger struct {
	entry *logrus.Entry
}

// Option configures a new Logger.
type Option func(*logrus.Logger)

// WithLevel sets the minimum logged level (defaults to logrus.InfoLevel).
func WithLevel(level logrus.Level) Option {
	return func(l *logrus.Logger) { l.SetLevel(level) }
}

// WithJSON switches the formatter to JSON, useful for log aggregation.
func WithJSON() Option {
	return func(l *logrus.Logger) { l.SetFormatter(&logrus.JSONFormatter{}) }
}

// WithOutput redirects log output, primarily for tests.
func WithOutput(w io.Writer) Option {
	return func(l *logrus.Logger) { l.SetOutput(w) }
}

// New builds a freshly owned Logger. Output defaults to stderr, text
// format, info level.
func New(opts ...Option) Logger {
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	base.SetLevel(logrus.InfoLevel)
	for _, opt := range opts {
		opt(base)
	}
	return &logrusLogger{entry: logrus.NewEntry(base)}
}

// Noop returns a Logger that discards everything, for tests that don't
// care about log output.
func Noop() Logger {
	return New(WithOutput(io.Discard))
}

func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}
