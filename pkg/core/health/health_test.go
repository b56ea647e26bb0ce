package health

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestStatus_Constants(t *testing.T) {
	if StatusHealthy != "healthy" {
		t.Errorf("StatusHealthy = %v, want healthy", StatusHealthy)
	}
	if StatusUnhealthy != "unhealthy" {
		t.Errorf("StatusUnhealthy = %v, want unhealthy", StatusUnhealthy)
	}
	if StatusDegraded != "degraded" {
		t.Errorf("StatusDegraded = %v, want degraded", StatusDegraded)
	}
}

func TestNewChecker(t *testing.T) {
	checker := NewChecker("test-checker", func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusHealthy, Message: "test passed"}
	})

	if checker.Name() != "test-checker" {
		t.Errorf("Name() = %v, want test-checker", checker.Name())
	}
	result := checker.Check(context.Background())
	if result.Status != StatusHealthy || result.Message != "test passed" {
		t.Errorf("Check() = %+v", result)
	}
}

func TestRegistry_KeepsRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"c", "a", "b"} {
		name := name
		r.RegisterFunc(name, func(ctx context.Context) CheckResult {
			if name == "c" {
				time.Sleep(20 * time.Millisecond)
			}
			return CheckResult{Status: StatusHealthy}
		})
	}

	report := r.Check(context.Background())
	if len(report.Checks) != 3 {
		t.Fatalf("len(Checks) = %d, want 3", len(report.Checks))
	}
	for i, want := range []string{"c", "a", "b"} {
		if report.Checks[i].Name != want {
			t.Errorf("Checks[%d].Name = %s, want %s", i, report.Checks[i].Name, want)
		}
	}
	if report.Status != StatusHealthy || !report.Healthy() {
		t.Errorf("Status = %v, want healthy", report.Status)
	}
}

func TestRegistry_RegisterReplacesSameName(t *testing.T) {
	r := NewRegistry()
	r.Register(Skipped("tool", "first"))
	r.Register(Skipped("tool", "second"))
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	if msg := r.Check(context.Background()).Checks[0].Message; msg != "second" {
		t.Errorf("Message = %q, want second", msg)
	}
}

func TestRegistry_OverallStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unknown counts as degraded", []Status{""}, StatusDegraded},
		{"unhealthy wins", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
		{"empty registry", nil, StatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			for i, s := range tt.statuses {
				s := s
				r.RegisterFunc(string(rune('a'+i)), func(ctx context.Context) CheckResult {
					return CheckResult{Status: s}
				})
			}
			if got := r.Check(context.Background()).Status; got != tt.want {
				t.Errorf("Status = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegistry_ConcurrentChecks(t *testing.T) {
	r := NewRegistry()
	var running, peak int32
	for i := 0; i < 4; i++ {
		r.RegisterFunc(string(rune('a'+i)), func(ctx context.Context) CheckResult {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(30 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return CheckResult{Status: StatusHealthy}
		})
	}

	report := r.Check(context.Background())
	if atomic.LoadInt32(&peak) < 2 {
		t.Errorf("checks did not overlap (peak %d)", peak)
	}
	for _, c := range report.Checks {
		if c.Duration <= 0 || c.Timestamp.IsZero() {
			t.Errorf("%s: duration/timestamp not filled: %+v", c.Name, c)
		}
	}
}

func TestDirAndFileCheck(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "parser.mly")
	if err := os.WriteFile(file, []byte("%%\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		checker Checker
		want    Status
	}{
		{"dir exists", DirCheck("d", dir), StatusHealthy},
		{"dir is file", DirCheck("d", file), StatusUnhealthy},
		{"dir missing", DirCheck("d", filepath.Join(dir, "nope")), StatusUnhealthy},
		{"file exists", FileCheck("f", file), StatusHealthy},
		{"file is dir", FileCheck("f", dir), StatusUnhealthy},
		{"file missing", FileCheck("f", filepath.Join(dir, "nope.mly")), StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.checker.Check(context.Background()); got.Status != tt.want {
				t.Errorf("Status = %v, want %v (%s)", got.Status, tt.want, got.Message)
			}
		})
	}
}

func TestExecutableCheck(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "tool.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}

	if got := ExecutableCheck("x", script, StatusUnhealthy).Check(context.Background()); got.Status != StatusHealthy {
		t.Errorf("existing script: %+v", got)
	}
	missing := filepath.Join(dir, "absent")
	if got := ExecutableCheck("x", missing, StatusDegraded).Check(context.Background()); got.Status != StatusDegraded {
		t.Errorf("missing with degraded: %+v", got)
	}
	if got := ExecutableCheck("x", missing, StatusUnhealthy).Check(context.Background()); got.Status != StatusUnhealthy {
		t.Errorf("missing with unhealthy: %+v", got)
	}
	if got := ExecutableCheck("x", "", StatusDegraded).Check(context.Background()); got.Status != StatusUnhealthy {
		t.Errorf("unconfigured: %+v", got)
	}
}

func TestWritableDirCheck(t *testing.T) {
	root := t.TempDir()

	got := WritableDirCheck("w", root).Check(context.Background())
	if got.Status != StatusHealthy || got.Message != "writable" {
		t.Fatalf("existing dir = %+v", got)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("check wrote into the directory: %v", entries)
	}

	nested := filepath.Join(root, "artifacts", "nested")
	got = WritableDirCheck("w", nested).Check(context.Background())
	if got.Status != StatusHealthy || got.Details["created_below"] != root {
		t.Errorf("missing dir = %+v", got)
	}
	if _, err := os.Stat(filepath.Join(root, "artifacts")); !os.IsNotExist(err) {
		t.Errorf("check created %s", filepath.Join(root, "artifacts"))
	}

	got = ParentWritableCheck("p", filepath.Join(nested, "history.db")).Check(context.Background())
	if got.Status != StatusHealthy {
		t.Errorf("ParentWritableCheck = %+v", got)
	}

	file := filepath.Join(root, "plain")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if got := WritableDirCheck("w", filepath.Join(file, "sub")).Check(context.Background()); got.Status != StatusUnhealthy {
		t.Errorf("file in path = %+v", got)
	}
}

func TestWritableDirCheck_ReadOnly(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses permission bits")
	}
	dir := filepath.Join(t.TempDir(), "ro")
	if err := os.Mkdir(dir, 0555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(dir, 0755) })

	if got := WritableDirCheck("w", dir).Check(context.Background()); got.Status != StatusUnhealthy {
		t.Errorf("read-only dir = %+v", got)
	}
	if got := WritableDirCheck("w", filepath.Join(dir, "missing")).Check(context.Background()); got.Status != StatusUnhealthy {
		t.Errorf("missing below read-only dir = %+v", got)
	}
}
