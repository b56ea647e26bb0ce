// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     logging
// Description: Structured logger with key-value convenience methods
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package logging

import (
	"io"
	"os"
	"sync"
	"time"
)

// Logger is a named, levelled structured logger.
// Loggers derived with Named or WithField share the output and its lock.
type Logger struct {
	name      string
	level     Level
	formatter Formatter
	fields    Fields

	out *syncWriter
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) write(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.w.Write(p)
}

// Config holds configuration for creating loggers
type Config struct {
	Name   string
	Level  string
	Format string
	Output io.Writer
}

// DefaultConfig returns the default configuration. Logs go to stderr
// because stdout carries the parser output.
func DefaultConfig(name string) Config {
	return Config{
		Name:   name,
		Level:  "info",
		Format: "text",
		Output: os.Stderr,
	}
}

// NewLogger creates a logger from a configuration. Unknown levels and
// formats fall back to info and text.
func NewLogger(cfg Config) *Logger {
	level, _ := ParseLevel(cfg.Level)
	format, _ := ParseFormat(cfg.Format)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	return &Logger{
		name:      cfg.Name,
		level:     level,
		formatter: GetFormatter(format),
		fields:    make(Fields),
		out:       &syncWriter{w: output},
	}
}

// New creates a logger with the default configuration
func New(name string) *Logger {
	return NewLogger(DefaultConfig(name))
}

// Discard returns a logger that writes nothing
func Discard() *Logger {
	cfg := DefaultConfig("")
	cfg.Output = io.Discard
	l := NewLogger(cfg)
	l.level = LevelFatal + 1
	return l
}

func (l *Logger) clone() *Logger {
	fields := make(Fields, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	return &Logger{
		name:      l.name,
		level:     l.level,
		formatter: l.formatter,
		fields:    fields,
		out:       l.out,
	}
}

// Named returns a child logger; the name is appended with a dot
func (l *Logger) Named(name string) *Logger {
	c := l.clone()
	if c.name == "" {
		c.name = name
	} else {
		c.name = c.name + "." + name
	}
	return c
}

// WithField returns a logger that adds key=value to every entry
func (l *Logger) WithField(key string, value interface{}) *Logger {
	c := l.clone()
	c.fields[key] = value
	return c
}

// WithLevel returns a logger with a different minimum level
func (l *Logger) WithLevel(level Level) *Logger {
	c := l.clone()
	c.level = level
	return c
}

// Level returns the minimum level
func (l *Logger) Level() Level {
	return l.level
}

// IsLevelEnabled reports whether entries at level are written
func (l *Logger) IsLevelEnabled(level Level) bool {
	return level.Enabled(l.level)
}

// Trace logs a trace message with key-value pairs
func (l *Logger) Trace(msg string, keysAndValues ...interface{}) {
	l.log(LevelTrace, msg, keysAndValues...)
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.log(LevelDebug, msg, keysAndValues...)
}

// Info logs an info message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.log(LevelInfo, msg, keysAndValues...)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.log(LevelWarn, msg, keysAndValues...)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.log(LevelError, msg, keysAndValues...)
}

// StartTimer starts a timer whose Stop logs the elapsed time
func (l *Logger) StartTimer(operation string) *Timer {
	return &Timer{logger: l, operation: operation, start: time.Now(), level: LevelDebug}
}

func (l *Logger) log(level Level, msg string, keysAndValues ...interface{}) {
	if !level.Enabled(l.level) {
		return
	}

	entry := &Entry{
		Timestamp: time.Now(),
		Level:     level,
		Logger:    l.name,
		Message:   msg,
		Fields:    make(Fields, len(l.fields)+len(keysAndValues)/2),
	}
	for k, v := range l.fields {
		entry.Fields[k] = v
	}
	for k, v := range toFields(keysAndValues...) {
		entry.Fields[k] = v
	}

	data, err := l.formatter.Format(entry)
	if err != nil {
		return
	}
	l.out.write(data)
}

// toFields converts key-value pairs to Fields; a trailing key without
// value and non-string keys are dropped
func toFields(keysAndValues ...interface{}) Fields {
	fields := make(Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
