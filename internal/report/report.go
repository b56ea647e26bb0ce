// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     report
// Description: Suite outcomes and their text, JSON and YAML renderings
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/msto63/parsecheck/internal/pipeline"
)

// Format selects the summary rendering
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses an output format name
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "table":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// Outcome is the result of checking one test file
type Outcome struct {
	Input    string        `json:"input" yaml:"input"`
	Verdict  string        `json:"verdict,omitempty" yaml:"verdict,omitempty"`
	Code     string        `json:"code,omitempty" yaml:"code,omitempty"`
	ExitCode int           `json:"exit_code" yaml:"exit_code"`
	Passed   bool          `json:"passed" yaml:"passed"`
	Duration time.Duration `json:"duration_ns" yaml:"duration"`
	Golden   string        `json:"golden,omitempty" yaml:"golden,omitempty"`
	Message  string        `json:"message,omitempty" yaml:"message,omitempty"`
}

// FromReport derives an outcome from a pipeline report
func FromReport(rep *pipeline.Report) Outcome {
	o := Outcome{
		Input:    rep.Input,
		Verdict:  string(rep.Verdict),
		Code:     rep.Code,
		ExitCode: rep.ExitCode,
		Passed:   rep.Succeeded(),
		Duration: rep.Duration,
		Message:  rep.Error,
	}
	return o
}

// Summary collects the outcomes of a suite
type Summary struct {
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration"`
	Total     int           `json:"total" yaml:"total"`
	Passed    int           `json:"passed" yaml:"passed"`
	Failed    int           `json:"failed" yaml:"failed"`
	Outcomes  []Outcome     `json:"outcomes" yaml:"outcomes"`
}

// NewSummary starts an empty summary
func NewSummary() *Summary {
	return &Summary{StartedAt: time.Now(), Outcomes: []Outcome{}}
}

// Add appends an outcome and updates the counters
func (s *Summary) Add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	s.Total++
	if o.Passed {
		s.Passed++
	} else {
		s.Failed++
	}
}

// Finish stamps the total duration
func (s *Summary) Finish() {
	s.Duration = time.Since(s.StartedAt)
}

// AllPassed reports whether every outcome passed. An empty suite passes.
func (s *Summary) AllPassed() bool {
	return s.Failed == 0
}

// Render writes the summary in the requested format
func Render(w io.Writer, s *Summary, format Format) error {
	switch format {
	case FormatJSON, FormatYAML:
		return encode(w, s, format)
	default:
		_, err := io.WriteString(w, renderText(s))
		return err
	}
}

func renderText(s *Summary) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("RESULT", "INPUT", "VERDICT", "CODE", "TIME").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 && row >= 0 && row < len(s.Outcomes) {
				if s.Outcomes[row].Passed {
					return passStyle.Padding(0, 1)
				}
				return failStyle.Padding(0, 1)
			}
			return cellStyle
		})

	for _, o := range s.Outcomes {
		result := "PASS"
		if !o.Passed {
			result = "FAIL"
		}
		t.Row(result, o.Input, dash(o.Verdict), dash(o.Code), o.Duration.Round(time.Millisecond).String())
	}

	var b strings.Builder
	b.WriteString(t.String())
	b.WriteString("\n")

	for _, o := range s.Outcomes {
		if o.Passed || o.Message == "" {
			continue
		}
		b.WriteString(failStyle.Render("FAIL"))
		b.WriteString(" ")
		b.WriteString(o.Input)
		b.WriteString(": ")
		b.WriteString(o.Message)
		b.WriteString("\n")
	}

	line := fmt.Sprintf("%d passed, %d failed, %d total in %s",
		s.Passed, s.Failed, s.Total, s.Duration.Round(time.Millisecond))
	if s.AllPassed() {
		b.WriteString(passStyle.Render(line))
	} else {
		b.WriteString(failStyle.Render(line))
	}
	b.WriteString("\n")
	return b.String()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
