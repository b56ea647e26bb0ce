// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     historyview
// Description: Styles for the history browser
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package historyview

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette shared with the suite summary
var (
	ColorPrimary   = lipgloss.Color("#8B5CF6") // Violet
	ColorSecondary = lipgloss.Color("#06B6D4") // Cyan
	ColorSuccess   = lipgloss.Color("#10B981") // Emerald
	ColorWarning   = lipgloss.Color("#F59E0B") // Amber
	ColorError     = lipgloss.Color("#EF4444") // Red
	ColorDimmed    = lipgloss.Color("#374151") // Dark Gray

	ColorBgPanel = lipgloss.Color("#1E293B") // Slate 800

	ColorText      = lipgloss.Color("#F8FAFC") // Slate 50
	ColorTextMuted = lipgloss.Color("#94A3B8") // Slate 400
	ColorTextDim   = lipgloss.Color("#64748B") // Slate 500
)

var (
	LogoStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	TitlePanelStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 2).
			MarginBottom(1)
)

// Run row styles
var (
	TimestampStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)

	InputStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	DetailStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	AcceptStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true)

	RejectStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	OtherStyle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Background(lipgloss.Color("#450A0A")).
			Bold(true)
)

var (
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorDimmed).
			Padding(0, 1)

	FilterBarStyle = lipgloss.NewStyle().
			Background(ColorBgPanel).
			Foreground(ColorText).
			Padding(0, 1)

	StatusBarStyle = lipgloss.NewStyle().
			Background(ColorBgPanel).
			Foreground(ColorText).
			Padding(0, 1)
)

var (
	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			MarginTop(1)

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	HelpDescStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	FilterActiveStyle = lipgloss.NewStyle().
				Foreground(ColorSuccess).
				Bold(true)

	FilterInactiveStyle = lipgloss.NewStyle().
				Foreground(ColorTextDim)
)

// Logo
const Logo = "parsecheck history"

// RenderKeyHint renders a keyboard shortcut hint
func RenderKeyHint(key, description string) string {
	return HelpKeyStyle.Render(key) + " " + HelpDescStyle.Render(description)
}

// RenderFilterStatus renders a filter status indicator
func RenderFilterStatus(name string, active bool) string {
	if active {
		return FilterActiveStyle.Render(name)
	}
	return FilterInactiveStyle.Render(name)
}

// RenderVerdictBadge renders a fixed-width verdict badge
func RenderVerdictBadge(c Category, verdict string) string {
	switch c {
	case CategoryAccept:
		return AcceptStyle.Render("[ACCEPT]   ")
	case CategoryReject:
		return RejectStyle.Render("[REJECT]   ")
	case CategoryOther:
		return OtherStyle.Render("[" + verdict + "]" + pad(verdict, 9))
	default:
		return ErrorStyle.Render("[ERROR]    ")
	}
}

func pad(s string, width int) string {
	if len(s) >= width {
		return ""
	}
	return strings.Repeat(" ", width-len(s))
}
