// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     report
// Description: Rendering of toolchain prerequisite checks
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/msto63/parsecheck/pkg/core/health"
)

var warnStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#F59E0B")).
	Bold(true)

// RenderHealth writes the result of a prerequisite check run
func RenderHealth(w io.Writer, rep *health.Report, format Format) error {
	switch format {
	case FormatJSON, FormatYAML:
		return encode(w, rep, format)
	}

	statusStyle := func(s health.Status) lipgloss.Style {
		switch s {
		case health.StatusHealthy:
			return passStyle
		case health.StatusUnhealthy:
			return failStyle
		default:
			return warnStyle
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("CHECK", "STATUS", "DETAIL").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 && row >= 0 && row < len(rep.Checks) {
				return statusStyle(rep.Checks[row].Status).Padding(0, 1)
			}
			return cellStyle
		})

	for _, c := range rep.Checks {
		t.Row(c.Name, strings.ToUpper(string(c.Status)), c.Message)
	}

	var b strings.Builder
	b.WriteString(t.String())
	b.WriteString("\n")
	fmt.Fprintf(&b, "Overall: %s\n", statusStyle(rep.Status).Render(strings.ToUpper(string(rep.Status))))

	_, err := io.WriteString(w, b.String())
	return err
}
