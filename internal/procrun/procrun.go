// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     procrun
// Description: Runs external tools (make, tokenizer, parser) to completion
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package procrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/msto63/parsecheck/pkg/core/logging"
)

// ProcessStatus represents the status of a process run
type ProcessStatus int

const (
	StatusPending ProcessStatus = iota
	StatusRunning
	StatusExited
	StatusFailed
	StatusTimedOut
)

func (s ProcessStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusExited:
		return "exited"
	case StatusFailed:
		return "failed"
	case StatusTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// ErrTimeout is returned when a process exceeds its Spec.Timeout
var ErrTimeout = errors.New("process timed out")

// Spec describes one external process invocation
type Spec struct {
	Name    string
	Command string
	Args    []string
	Dir     string
	Env     map[string]string
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Timeout time.Duration
}

// CommandLine renders the command for log messages
func (s Spec) CommandLine() string {
	return strings.TrimSpace(s.Command + " " + strings.Join(s.Args, " "))
}

// Result describes a finished process
type Result struct {
	Name       string
	PID        int
	Status     ProcessStatus
	ExitCode   int
	StartedAt  time.Time
	Duration   time.Duration
	StderrTail string
}

// ExitError reports a process that ran and exited non-zero
type ExitError struct {
	Name       string
	Command    string
	ExitCode   int
	StderrTail string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	if e.StderrTail != "" {
		msg += ": " + e.StderrTail
	}
	return msg
}

// Runner runs one external process to completion
type Runner interface {
	Run(ctx context.Context, spec Spec) (*Result, error)
}

// Config holds executor configuration
type Config struct {
	// StderrTailBytes bounds the stderr kept for error messages
	StderrTailBytes int
	// KillDelay is how long a process group gets between SIGTERM and SIGKILL
	KillDelay time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		StderrTailBytes: 2048,
		KillDelay:       5 * time.Second,
	}
}

// Executor is the os/exec backed Runner. Each process runs in its own
// process group so cancellation also stops grandchildren (make recipes).
type Executor struct {
	cfg    Config
	logger *logging.Logger
}

// NewExecutor creates an executor
func NewExecutor(cfg Config, logger *logging.Logger) *Executor {
	if cfg.StderrTailBytes <= 0 {
		cfg.StderrTailBytes = DefaultConfig().StderrTailBytes
	}
	if cfg.KillDelay <= 0 {
		cfg.KillDelay = DefaultConfig().KillDelay
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Executor{cfg: cfg, logger: logger.Named("procrun")}
}

// Run starts the process and waits for it. A non-zero exit yields
// *ExitError, an exceeded timeout ErrTimeout, a cancelled context the
// context error.
func (e *Executor) Run(ctx context.Context, spec Spec) (*Result, error) {
	res := &Result{Name: spec.Name, Status: StatusPending, ExitCode: -1}

	runCtx := ctx
	var cancel context.CancelFunc
	if spec.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Stdin = spec.Stdin
	cmd.Stdout = spec.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = io.Discard
	}

	tail := newTailBuffer(e.cfg.StderrTailBytes)
	if spec.Stderr != nil {
		cmd.Stderr = io.MultiWriter(spec.Stderr, tail)
	} else {
		cmd.Stderr = tail
	}

	if len(spec.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range spec.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	// Set process group for clean termination
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
	cmd.WaitDelay = e.cfg.KillDelay

	e.logger.Debug("Starting process", "name", spec.Name, "command", spec.CommandLine(), "dir", spec.Dir)

	res.StartedAt = time.Now()
	if err := cmd.Start(); err != nil {
		res.Status = StatusFailed
		e.logger.Warn("Process failed to start", "name", spec.Name, "error", err)
		return res, fmt.Errorf("failed to start %s: %w", spec.Command, err)
	}
	res.PID = cmd.Process.Pid
	res.Status = StatusRunning

	err := cmd.Wait()
	res.Duration = time.Since(res.StartedAt)
	res.StderrTail = tail.String()
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case err == nil:
		res.Status = StatusExited
		e.logger.Debug("Process exited", "name", spec.Name, "pid", res.PID, "duration", res.Duration)
		return res, nil

	case spec.Timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		res.Status = StatusTimedOut
		// make sure nothing in the group outlives us
		_ = syscall.Kill(-res.PID, syscall.SIGKILL)
		e.logger.Warn("Process timed out", "name", spec.Name, "timeout", spec.Timeout)
		return res, fmt.Errorf("%s after %s: %w", spec.CommandLine(), spec.Timeout, ErrTimeout)

	case ctx.Err() != nil:
		res.Status = StatusFailed
		_ = syscall.Kill(-res.PID, syscall.SIGKILL)
		return res, ctx.Err()
	}

	res.Status = StatusFailed
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		e.logger.Debug("Process exited with error", "name", spec.Name, "exit_code", res.ExitCode)
		return res, &ExitError{
			Name:       spec.Name,
			Command:    spec.CommandLine(),
			ExitCode:   res.ExitCode,
			StderrTail: res.StderrTail,
		}
	}
	return res, fmt.Errorf("%s: %w", spec.CommandLine(), err)
}

// tailBuffer keeps the last max bytes written to it
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
