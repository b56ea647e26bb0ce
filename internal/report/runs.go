// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     report
// Description: Renderings of recorded runs and history statistics
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/msto63/parsecheck/internal/history"
)

// RenderRuns writes a list of recorded runs
func RenderRuns(w io.Writer, runs []*history.Run, format Format) error {
	if runs == nil {
		runs = []*history.Run{}
	}
	switch format {
	case FormatJSON, FormatYAML:
		return encode(w, runs, format)
	}

	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("STARTED", "INPUT", "VERDICT", "EXIT", "CODE", "TIME").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 2 && row >= 0 && row < len(runs) {
				if runs[row].Failed() {
					return failStyle.Padding(0, 1)
				}
				return passStyle.Padding(0, 1)
			}
			return cellStyle
		})

	for _, r := range runs {
		t.Row(
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Input,
			dash(r.Verdict),
			fmt.Sprintf("%d", r.ExitCode),
			dash(r.Code),
			r.Duration.Round(time.Millisecond).String(),
		)
	}

	_, err := fmt.Fprintln(w, t.String())
	return err
}

// RenderStats writes history statistics
func RenderStats(w io.Writer, stats *history.Stats, format Format) error {
	switch format {
	case FormatJSON, FormatYAML:
		return encode(w, stats, format)
	}

	var b strings.Builder
	b.WriteString(headerStyle.UnsetPadding().Render("Run history"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Total:    %d\n", stats.Total)
	fmt.Fprintf(&b, "  Failures: %d\n", stats.Failures)
	if !stats.LastRun.IsZero() {
		fmt.Fprintf(&b, "  Last run: %s\n", stats.LastRun.Local().Format("2006-01-02 15:04:05"))
	}

	verdicts := make([]string, 0, len(stats.ByVerdict))
	for v := range stats.ByVerdict {
		verdicts = append(verdicts, v)
	}
	sort.Strings(verdicts)
	for _, v := range verdicts {
		fmt.Fprintf(&b, "  %-9s %d\n", v+":", stats.ByVerdict[v])
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func encode(w io.Writer, v interface{}, format Format) error {
	if format == FormatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
