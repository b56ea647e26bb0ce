package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func newBufferLogger(level, format string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := NewLogger(Config{Name: "test", Level: level, Format: format, Output: &buf})
	return l, &buf
}

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelTrace, "trace"},
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LevelFatal, "fatal"},
		{Level(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.expected)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"WARNING", LevelWarn, false},
		{" error ", LevelError, false},
		{"", LevelInfo, false},
		{"loud", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("json"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(json) = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger("warn", "text")

	l.Info("hidden")
	l.Debug("hidden too")
	l.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info/debug should be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn should be written, got %q", out)
	}
}

func TestLogger_TextFormat(t *testing.T) {
	l, buf := newBufferLogger("debug", "text")

	l.Info("stage finished", "stage", "build", "exit_code", 0)

	line := buf.String()
	for _, want := range []string{"[INF]", "{test}", "stage finished", "exit_code=0 stage=build"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
	if !strings.HasSuffix(line, "\n") {
		t.Error("line must end with newline")
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	l, buf := newBufferLogger("info", "json")

	l.Error("tokenizer failed", "error", errors.New("exit status 1"), "duration", 2*time.Second)

	var data map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if data["level"] != "error" {
		t.Errorf("level = %v, want error", data["level"])
	}
	if data["error"] != "exit status 1" {
		t.Errorf("error = %v", data["error"])
	}
	if data["duration"] != "2s" {
		t.Errorf("duration = %v", data["duration"])
	}
	if data["logger"] != "test" {
		t.Errorf("logger = %v", data["logger"])
	}
}

func TestLogger_NamedAndWithField(t *testing.T) {
	l, buf := newBufferLogger("info", "text")

	child := l.Named("pipeline").WithField("run_id", "abc")
	child.Info("hello")

	out := buf.String()
	if !strings.Contains(out, "{test.pipeline}") {
		t.Errorf("missing child name: %q", out)
	}
	if !strings.Contains(out, "run_id=abc") {
		t.Errorf("missing context field: %q", out)
	}

	buf.Reset()
	l.Info("parent")
	if strings.Contains(buf.String(), "run_id") {
		t.Error("WithField must not modify the parent logger")
	}
}

func TestLogger_OddKeyValues(t *testing.T) {
	l, buf := newBufferLogger("info", "text")
	l.Info("odd", "only-key", "k", 1, 42, "ignored")

	out := buf.String()
	if !strings.Contains(out, "only-key=k") {
		t.Errorf("expected first pair kept: %q", out)
	}
	if strings.Contains(out, "ignored") {
		t.Errorf("non-string key should be dropped: %q", out)
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	if l.IsLevelEnabled(LevelFatal) {
		t.Error("Discard logger should not enable any level")
	}
	l.Error("nothing happens")
}

func TestTimer(t *testing.T) {
	l, buf := newBufferLogger("debug", "text")

	elapsed := l.StartTimer("build").Stop("target", "debugtokens")
	if elapsed < 0 {
		t.Errorf("elapsed = %v", elapsed)
	}
	if !strings.Contains(buf.String(), "operation=build") {
		t.Errorf("timer output = %q", buf.String())
	}

	buf.Reset()
	l.StartTimer("parse").StopWithError(errors.New("boom"))
	if !strings.Contains(buf.String(), "[ERR]") || !strings.Contains(buf.String(), "error=boom") {
		t.Errorf("timer error output = %q", buf.String())
	}
}

func TestConsoleFormatter_Colors(t *testing.T) {
	f := &ConsoleFormatter{}
	data, err := f.Format(&Entry{Timestamp: time.Now(), Level: LevelError, Message: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), LevelError.Color()) {
		t.Errorf("console output should start with color code: %q", data)
	}
}
