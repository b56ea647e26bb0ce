package procrun

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestProcessStatus_String(t *testing.T) {
	tests := []struct {
		status   ProcessStatus
		expected string
	}{
		{StatusPending, "pending"},
		{StatusRunning, "running"},
		{StatusExited, "exited"},
		{StatusFailed, "failed"},
		{StatusTimedOut, "timed_out"},
		{ProcessStatus(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.status.String(); got != tt.expected {
				t.Errorf("ProcessStatus(%d).String() = %q, want %q", tt.status, got, tt.expected)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.StderrTailBytes != 2048 {
		t.Errorf("StderrTailBytes = %d, want 2048", cfg.StderrTailBytes)
	}
	if cfg.KillDelay != 5*time.Second {
		t.Errorf("KillDelay = %v, want 5s", cfg.KillDelay)
	}
}

func TestExecutor_StdinToStdout(t *testing.T) {
	requireShell(t)

	var out bytes.Buffer
	ex := NewExecutor(DefaultConfig(), nil)
	res, err := ex.Run(context.Background(), Spec{
		Name:    "tokenize",
		Command: "sh",
		Args:    []string{"-c", "tr a-z A-Z"},
		Stdin:   strings.NewReader("int x\n"),
		Stdout:  &out,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.String() != "INT X\n" {
		t.Errorf("stdout = %q", out.String())
	}
	if res.Status != StatusExited || res.ExitCode != 0 {
		t.Errorf("result = %+v", res)
	}
	if res.PID == 0 {
		t.Error("PID not recorded")
	}
}

func TestExecutor_NonZeroExit(t *testing.T) {
	requireShell(t)

	var stderr bytes.Buffer
	ex := NewExecutor(DefaultConfig(), nil)
	res, err := ex.Run(context.Background(), Spec{
		Name:    "build",
		Command: "sh",
		Args:    []string{"-c", "echo 'No rule to make target' >&2; exit 2"},
		Stderr:  &stderr,
	})

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Run() error = %v, want *ExitError", err)
	}
	if exitErr.ExitCode != 2 {
		t.Errorf("ExitCode = %d, want 2", exitErr.ExitCode)
	}
	if !strings.Contains(exitErr.StderrTail, "No rule to make target") {
		t.Errorf("StderrTail = %q", exitErr.StderrTail)
	}
	if !strings.Contains(stderr.String(), "No rule to make target") {
		t.Error("stderr should also reach the caller's writer")
	}
	if res.Status != StatusFailed {
		t.Errorf("Status = %v, want failed", res.Status)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	requireShell(t)

	ex := NewExecutor(Config{KillDelay: 200 * time.Millisecond}, nil)
	start := time.Now()
	res, err := ex.Run(context.Background(), Spec{
		Name:    "parse",
		Command: "sh",
		Args:    []string{"-c", "sleep 10"},
		Timeout: 100 * time.Millisecond,
	})

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Run() error = %v, want ErrTimeout", err)
	}
	if res.Status != StatusTimedOut {
		t.Errorf("Status = %v, want timed_out", res.Status)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestExecutor_ContextCanceled(t *testing.T) {
	requireShell(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	ex := NewExecutor(Config{KillDelay: 200 * time.Millisecond}, nil)
	_, err := ex.Run(ctx, Spec{Name: "build", Command: "sh", Args: []string{"-c", "sleep 10"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestExecutor_MissingBinary(t *testing.T) {
	ex := NewExecutor(DefaultConfig(), nil)
	res, err := ex.Run(context.Background(), Spec{Name: "tokenize", Command: "/nonexistent/debugtokens.native"})
	if err == nil {
		t.Fatal("expected start error")
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		t.Error("a start failure is not an exit error")
	}
	if res.Status != StatusFailed {
		t.Errorf("Status = %v, want failed", res.Status)
	}
}

func TestExecutor_DirAndEnv(t *testing.T) {
	requireShell(t)

	dir := t.TempDir()
	var out bytes.Buffer
	ex := NewExecutor(DefaultConfig(), nil)
	_, err := ex.Run(context.Background(), Spec{
		Name:    "env",
		Command: "sh",
		Args:    []string{"-c", "pwd; echo $PARSECHECK_STAGE"},
		Dir:     dir,
		Env:     map[string]string{"PARSECHECK_STAGE": "build"},
		Stdout:  &out,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "build") {
		t.Errorf("env not passed: %q", out.String())
	}
	if !strings.Contains(out.String(), dir) {
		t.Errorf("dir not applied: %q", out.String())
	}
}

func TestTailBuffer(t *testing.T) {
	tb := newTailBuffer(5)
	tb.Write([]byte("abc"))
	tb.Write([]byte("defgh"))
	if got := tb.String(); got != "defgh" {
		t.Errorf("String() = %q, want defgh", got)
	}
}

func TestSpec_CommandLine(t *testing.T) {
	s := Spec{Command: "menhir", Args: []string{"--interpret", "parser.mly"}}
	if got := s.CommandLine(); got != "menhir --interpret parser.mly" {
		t.Errorf("CommandLine() = %q", got)
	}
}
