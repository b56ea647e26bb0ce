// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     health
// Description: Prerequisite checks for the external toolchain
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package health

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Status represents the outcome of a check
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
	StatusUnknown   Status = "unknown"
)

// CheckResult represents the result of a single check
type CheckResult struct {
	Name      string                 `json:"name" yaml:"name"`
	Status    Status                 `json:"status" yaml:"status"`
	Message   string                 `json:"message,omitempty" yaml:"message,omitempty"`
	Duration  time.Duration          `json:"duration" yaml:"duration"`
	Timestamp time.Time              `json:"timestamp" yaml:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty" yaml:"details,omitempty"`
}

// Checker is an interface for checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

type namedCheck struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

// NewChecker creates a named checker from a function
func NewChecker(name string, fn func(ctx context.Context) CheckResult) Checker {
	return &namedCheck{name: name, fn: fn}
}

func (c *namedCheck) Name() string                          { return c.name }
func (c *namedCheck) Check(ctx context.Context) CheckResult { return c.fn(ctx) }

// Registry runs a fixed, ordered set of checkers
type Registry struct {
	mu       sync.RWMutex
	checkers []Checker
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a checker; a checker with the same name is replaced
// in place
func (r *Registry) Register(checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.checkers {
		if c.Name() == checker.Name() {
			r.checkers[i] = checker
			return
		}
	}
	r.checkers = append(r.checkers, checker)
}

// RegisterFunc adds a check function to the registry
func (r *Registry) RegisterFunc(name string, fn func(ctx context.Context) CheckResult) {
	r.Register(NewChecker(name, fn))
}

// Len returns the number of registered checkers
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.checkers)
}

// Check runs all checks concurrently. Results keep registration order.
func (r *Registry) Check(ctx context.Context) *Report {
	r.mu.RLock()
	checkers := append([]Checker(nil), r.checkers...)
	r.mu.RUnlock()

	report := &Report{
		Timestamp: time.Now(),
		Checks:    make([]CheckResult, len(checkers)),
	}

	var wg sync.WaitGroup
	for i, checker := range checkers {
		wg.Add(1)
		go func(i int, c Checker) {
			defer wg.Done()
			start := time.Now()
			result := c.Check(ctx)
			result.Duration = time.Since(start)
			result.Timestamp = time.Now()
			if result.Name == "" {
				result.Name = c.Name()
			}
			if result.Status == "" {
				result.Status = StatusUnknown
			}
			report.Checks[i] = result
		}(i, checker)
	}
	wg.Wait()

	report.Status = StatusHealthy
	for _, result := range report.Checks {
		switch result.Status {
		case StatusUnhealthy:
			report.Status = StatusUnhealthy
		case StatusDegraded, StatusUnknown:
			if report.Status != StatusUnhealthy {
				report.Status = StatusDegraded
			}
		}
	}
	return report
}

// Report is the combined result of a registry run
type Report struct {
	Status    Status        `json:"status" yaml:"status"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
	Checks    []CheckResult `json:"checks" yaml:"checks"`
}

// Healthy reports whether no check failed outright
func (r *Report) Healthy() bool {
	return r.Status != StatusUnhealthy
}

// String returns a one-line summary
func (r *Report) String() string {
	return fmt.Sprintf("Status: %s, Checks: %d", r.Status, len(r.Checks))
}

// Common checks

// DirCheck verifies that path is an existing directory
func DirCheck(name, path string) Checker {
	return NewChecker(name, func(ctx context.Context) CheckResult {
		result := CheckResult{Name: name, Details: map[string]interface{}{"path": path}}
		info, err := os.Stat(path)
		switch {
		case err != nil:
			result.Status = StatusUnhealthy
			result.Message = err.Error()
		case !info.IsDir():
			result.Status = StatusUnhealthy
			result.Message = "not a directory"
		default:
			result.Status = StatusHealthy
			result.Message = "directory exists"
		}
		return result
	})
}

// FileCheck verifies that path is an existing regular file
func FileCheck(name, path string) Checker {
	return NewChecker(name, func(ctx context.Context) CheckResult {
		result := CheckResult{Name: name, Details: map[string]interface{}{"path": path}}
		info, err := os.Stat(path)
		switch {
		case err != nil:
			result.Status = StatusUnhealthy
			result.Message = err.Error()
		case info.IsDir():
			result.Status = StatusUnhealthy
			result.Message = "is a directory"
		default:
			result.Status = StatusHealthy
			result.Message = fmt.Sprintf("%d bytes", info.Size())
		}
		return result
	})
}

// ExecutableCheck verifies that command resolves to an executable, either
// as a path or through PATH. When missing is StatusDegraded the absence is
// reported as a warning instead of a failure.
func ExecutableCheck(name, command string, missing Status) Checker {
	return NewChecker(name, func(ctx context.Context) CheckResult {
		result := CheckResult{Name: name, Details: map[string]interface{}{"command": command}}
		if command == "" {
			result.Status = StatusUnhealthy
			result.Message = "not configured"
			return result
		}
		resolved, err := exec.LookPath(command)
		if err != nil {
			result.Status = missing
			result.Message = err.Error()
			return result
		}
		result.Status = StatusHealthy
		result.Message = resolved
		result.Details["resolved"] = resolved
		return result
	})
}

// WritableDirCheck verifies that files can be created below path without
// touching the filesystem. A missing directory is healthy when its nearest
// existing ancestor is writable.
func WritableDirCheck(name, path string) Checker {
	return NewChecker(name, func(ctx context.Context) CheckResult {
		result := CheckResult{Name: name, Details: map[string]interface{}{"path": path}}

		dir := filepath.Clean(path)
		missing := false
		for {
			info, err := os.Stat(dir)
			if err == nil {
				if !info.IsDir() {
					result.Status = StatusUnhealthy
					result.Message = dir + " is not a directory"
					return result
				}
				break
			}
			if !errors.Is(err, fs.ErrNotExist) {
				result.Status = StatusUnhealthy
				result.Message = err.Error()
				return result
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			missing = true
			dir = parent
		}

		if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
			result.Status = StatusUnhealthy
			result.Message = fmt.Sprintf("%s: %v", dir, err)
			return result
		}

		result.Status = StatusHealthy
		result.Message = "writable"
		if missing {
			result.Message = "will be created below " + dir
			result.Details["created_below"] = dir
		}
		return result
	})
}

// ParentWritableCheck verifies that the directory holding file is writable
func ParentWritableCheck(name, file string) Checker {
	return WritableDirCheck(name, filepath.Dir(file))
}

// Skipped returns a checker that reports a disabled prerequisite
func Skipped(name, reason string) Checker {
	return NewChecker(name, func(ctx context.Context) CheckResult {
		return CheckResult{Name: name, Status: StatusHealthy, Message: reason}
	})
}
