// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     logging
// Description: Operation timer that logs elapsed time on completion
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package logging

import "time"

// Timer measures one operation
type Timer struct {
	logger    *Logger
	operation string
	start     time.Time
	level     Level
}

// WithLevel sets the level used when the timer completes successfully
func (t *Timer) WithLevel(level Level) *Timer {
	t.level = level
	return t
}

// Elapsed returns the time since the timer started
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Stop logs completion and returns the elapsed time
func (t *Timer) Stop(keysAndValues ...interface{}) time.Duration {
	elapsed := t.Elapsed()
	kv := append([]interface{}{"operation", t.operation, "duration", elapsed}, keysAndValues...)
	t.logger.log(t.level, "operation completed", kv...)
	return elapsed
}

// StopWithError logs completion at error level when err is non-nil
func (t *Timer) StopWithError(err error, keysAndValues ...interface{}) time.Duration {
	if err == nil {
		return t.Stop(keysAndValues...)
	}
	elapsed := t.Elapsed()
	kv := append([]interface{}{"operation", t.operation, "duration", elapsed, "error", err}, keysAndValues...)
	t.logger.log(LevelError, "operation failed", kv...)
	return elapsed
}
