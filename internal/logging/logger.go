// Package logging provides a logging abstraction layer that decouples the ledger
// from logrus. Components receive a Logger through their constructors; the
// package-level default only exists for code running before the container is built.
package logging

import "sync"

// Logger defines the interface for structured logging throughout the application.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// WithError returns a new logger with an error field attached
	WithError(err error) Logger
	// WithField returns a new logger with a single field attached
	WithField(key string, value interface{}) Logger
	// WithFields returns a new logger with multiple fields attached
	WithFields(fields ...Field) Logger

	// Fatal logs a fatal-level message and exits the program
	Fatal(msg string, fields ...Field)
	// Fatalf logs a fatal-level message with formatting and exits the program
	Fatalf(msg string, args ...interface{})
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger
)

// GetLogger returns the process-wide fallback logger, creating an info/text
// logrus adapter on first use.
func GetLogger() Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	if l != nil {
		return l
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogrusAdapter("info", "text")
	}
	return defaultLogger
}

// SetLogger replaces the fallback logger. Nil is ignored.
func SetLogger(l Logger) {
	if l == nil {
		return
	}
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// OrDefault returns l, or the fallback logger when l is nil.
func OrDefault(l Logger) Logger {
	if l == nil {
		return GetLogger()
	}
	return l
}
