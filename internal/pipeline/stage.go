// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     pipeline
// Description: Stage, event, verdict and report types
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package pipeline

import (
	"bufio"
	"bytes"
	"strings"
	"time"
)

// Stage names one step of an acceptance run
type Stage string

const (
	StageClean    Stage = "clean"
	StageBuild    Stage = "build"
	StageTokenize Stage = "tokenize"
	StageFlatten  Stage = "flatten"
	StageParse    Stage = "parse"
	StageCleanup  Stage = "cleanup"
)

// StageStatus represents the state of a stage
type StageStatus int

const (
	StageStarted StageStatus = iota
	StageSucceeded
	StageFailed
	StageSkipped
)

func (s StageStatus) String() string {
	switch s {
	case StageStarted:
		return "started"
	case StageSucceeded:
		return "succeeded"
	case StageFailed:
		return "failed"
	case StageSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// StageEvent represents a stage status change
type StageEvent struct {
	RunID     string
	Stage     Stage
	Status    StageStatus
	Duration  time.Duration
	Err       error
	Timestamp time.Time
}

// StageResult is the final outcome of one stage
type StageResult struct {
	Stage    Stage         `json:"stage" yaml:"stage"`
	Status   string        `json:"status" yaml:"status"`
	Duration time.Duration `json:"duration_ns" yaml:"duration"`
	ExitCode int           `json:"exit_code,omitempty" yaml:"exit_code,omitempty"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Verdict is the parser-interpreter's judgement of the token stream
type Verdict string

const (
	VerdictNone      Verdict = ""
	VerdictAccept    Verdict = "ACCEPT"
	VerdictReject    Verdict = "REJECT"
	VerdictOvershoot Verdict = "OVERSHOOT"
	VerdictUnknown   Verdict = "UNKNOWN"
)

// Failed reports whether the verdict means the sentence was not accepted
func (v Verdict) Failed() bool {
	return v == VerdictReject || v == VerdictOvershoot
}

// ClassifyVerdict scans interpreter output for the keywords Menhir prints
// per sentence. Any REJECT or OVERSHOOT outweighs ACCEPT lines.
func ClassifyVerdict(output []byte) Verdict {
	verdict := VerdictUnknown
	sc := bufio.NewScanner(bytes.NewReader(output))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		switch strings.TrimSpace(sc.Text()) {
		case "REJECT":
			return VerdictReject
		case "OVERSHOOT":
			return VerdictOvershoot
		case "ACCEPT":
			verdict = VerdictAccept
		}
	}
	return verdict
}

// Report describes one acceptance run
type Report struct {
	RunID         string        `json:"run_id" yaml:"run_id"`
	Input         string        `json:"input" yaml:"input"`
	StartedAt     time.Time     `json:"started_at" yaml:"started_at"`
	Duration      time.Duration `json:"duration_ns" yaml:"duration"`
	Workspace     string        `json:"workspace,omitempty" yaml:"workspace,omitempty"`
	TokenizedPath string        `json:"tokenized_path,omitempty" yaml:"tokenized_path,omitempty"`
	FormattedPath string        `json:"formatted_path,omitempty" yaml:"formatted_path,omitempty"`
	Kept          bool          `json:"kept" yaml:"kept"`
	Tokens        int           `json:"tokens" yaml:"tokens"`
	Verdict       Verdict       `json:"verdict,omitempty" yaml:"verdict,omitempty"`
	Stages        []StageResult `json:"stages" yaml:"stages"`
	Code          string        `json:"code,omitempty" yaml:"code,omitempty"`
	ExitCode      int           `json:"exit_code" yaml:"exit_code"`
	Error         string        `json:"error,omitempty" yaml:"error,omitempty"`

	// ParserOutput is the captured stdout of the parser-interpreter
	ParserOutput string `json:"-" yaml:"-"`
}

// Succeeded reports whether the run finished without error
func (r *Report) Succeeded() bool {
	return r.ExitCode == 0
}

// Stage returns the result of the named stage, if it ran
func (r *Report) Stage(s Stage) (StageResult, bool) {
	for _, st := range r.Stages {
		if st.Stage == s {
			return st, true
		}
	}
	return StageResult{}, false
}
