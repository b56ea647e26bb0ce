// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     historyview
// Description: Bubbletea model for browsing recorded runs
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package historyview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/msto63/parsecheck/internal/history"
	"github.com/msto63/parsecheck/pkg/core/version"
)

// Category groups runs for the filter toggles
type Category int

const (
	CategoryAccept Category = iota
	CategoryReject
	CategoryOther
	CategoryError
)

// Categorize places a run in a filter category. Runs that never reached
// the parser count as errors.
func Categorize(r *history.Run) Category {
	switch r.Verdict {
	case "ACCEPT":
		return CategoryAccept
	case "REJECT":
		return CategoryReject
	case "":
		return CategoryError
	default:
		return CategoryOther
	}
}

// VerdictFilter tracks which categories are shown
type VerdictFilter struct {
	Accept bool
	Reject bool
	Other  bool
	Errors bool
}

func allVisible() VerdictFilter {
	return VerdictFilter{Accept: true, Reject: true, Other: true, Errors: true}
}

// Shows reports whether runs of category c pass the filter
func (f VerdictFilter) Shows(c Category) bool {
	switch c {
	case CategoryAccept:
		return f.Accept
	case CategoryReject:
		return f.Reject
	case CategoryOther:
		return f.Other
	default:
		return f.Errors
	}
}

// Config holds browser configuration
type Config struct {
	Limit int
	// Filter narrows the runs loaded from the store; its Limit is
	// replaced by Config.Limit
	Filter history.Filter
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{Limit: 500}
}

// Model is the Bubbletea model of the history browser
type Model struct {
	width   int
	height  int
	ready   bool
	loading bool
	err     error

	viewport viewport.Model
	spinner  spinner.Model

	store    history.Store
	query    history.Filter
	runs     []*history.Run
	filtered []*history.Run
	filter   VerdictFilter
	stats    *history.Stats
}

// New creates a browser over the given store
func New(store history.Store, cfg Config) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	if cfg.Limit <= 0 {
		cfg.Limit = DefaultConfig().Limit
	}
	query := cfg.Filter
	query.Limit = cfg.Limit

	return Model{
		spinner: sp,
		store:   store,
		query:   query,
		filter:  allVisible(),
		loading: true,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadRuns)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4
		footerHeight := 4
		viewportHeight := msg.Height - headerHeight - footerHeight
		if viewportHeight < 1 {
			viewportHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, viewportHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = viewportHeight
		}
		m.updateViewportContent()

	case spinner.TickMsg:
		if m.loading {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case runsLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.runs = msg.runs
			m.stats = msg.stats
			m.applyFilters()
			m.updateViewportContent()
			m.viewport.GotoTop()
		}

	case refreshMsg:
		m.loading = true
		cmds = append(cmds, m.spinner.Tick, m.loadRuns)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyRunes:
		switch string(msg.Runes) {
		case "q":
			return m, tea.Quit
		case "1":
			m.filter.Accept = !m.filter.Accept
		case "2":
			m.filter.Reject = !m.filter.Reject
		case "3":
			m.filter.Other = !m.filter.Other
		case "4":
			m.filter.Errors = !m.filter.Errors
		case "0":
			m.filter = allVisible()
		case "r":
			return m, func() tea.Msg { return refreshMsg{} }
		case "g":
			m.viewport.GotoTop()
			return m, nil
		case "G":
			m.viewport.GotoBottom()
			return m, nil
		default:
			return m, nil
		}
		m.applyFilters()
		m.updateViewportContent()
		return m, nil

	case tea.KeyPgUp:
		m.viewport.ViewUp()
	case tea.KeyPgDown:
		m.viewport.ViewDown()
	case tea.KeyUp:
		m.viewport.LineUp(1)
	case tea.KeyDown:
		m.viewport.LineDown(1)
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	if !m.ready {
		return "Loading history..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderFilterBar())
	b.WriteString("\n")
	b.WriteString(PanelStyle.Width(m.width - 2).Height(m.viewport.Height + 2).Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(m.renderHelpBar())
	return b.String()
}

func (m Model) renderHeader() string {
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		LogoStyle.Render(Logo),
		strings.Repeat(" ", 3),
		HelpDescStyle.Render("v"+version.Version),
	)
	return TitlePanelStyle.Width(m.width - 4).Render(header)
}

func (m Model) renderFilterBar() string {
	filters := []string{
		fmt.Sprintf("1:%s", RenderFilterStatus("ACCEPT", m.filter.Accept)),
		fmt.Sprintf("2:%s", RenderFilterStatus("REJECT", m.filter.Reject)),
		fmt.Sprintf("3:%s", RenderFilterStatus("OTHER", m.filter.Other)),
		fmt.Sprintf("4:%s", RenderFilterStatus("ERRORS", m.filter.Errors)),
	}
	count := HelpDescStyle.Render(fmt.Sprintf("[%d/%d runs]", len(m.filtered), len(m.runs)))
	return FilterBarStyle.Width(m.width - 2).Render(strings.Join(filters, "  ") + "  " + count)
}

func (m Model) renderStatusBar() string {
	var left string
	if m.stats != nil {
		left = HelpDescStyle.Render(fmt.Sprintf("Total: %d  Failures: %d", m.stats.Total, m.stats.Failures))
	}

	var right string
	switch {
	case m.loading:
		right = m.spinner.View() + " Loading..."
	case m.err != nil:
		right = RejectStyle.Render(truncateString(m.err.Error(), 60))
	}

	space := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 4
	if space < 2 {
		space = 2
	}
	return StatusBarStyle.Width(m.width - 2).Render(left + strings.Repeat(" ", space) + right)
}

func (m Model) renderHelpBar() string {
	items := []string{
		RenderKeyHint("1-4", "Filter"),
		RenderKeyHint("0", "All"),
		RenderKeyHint("r", "Refresh"),
		RenderKeyHint("g/G", "Top/Bottom"),
		RenderKeyHint("q", "Quit"),
	}
	return HelpStyle.Render(strings.Join(items, "  "))
}

func (m *Model) updateViewportContent() {
	var content strings.Builder

	for _, r := range m.filtered {
		// Format: TIME [VERDICT] INPUT exit/code duration
		ts := TimestampStyle.Render(r.StartedAt.Local().Format("2006-01-02 15:04:05"))
		badge := RenderVerdictBadge(Categorize(r), r.Verdict)
		detail := fmt.Sprintf("exit=%d", r.ExitCode)
		if r.Code != "" {
			detail += " " + r.Code
		}
		detail += " " + r.Duration.Round(time.Millisecond).String()

		content.WriteString(fmt.Sprintf("%s %s %s %s", ts, badge, InputStyle.Render(r.Input), DetailStyle.Render(detail)))
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
}

func (m *Model) applyFilters() {
	m.filtered = make([]*history.Run, 0, len(m.runs))
	for _, r := range m.runs {
		if m.filter.Shows(Categorize(r)) {
			m.filtered = append(m.filtered, r)
		}
	}
}

func (m Model) loadRuns() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runs, err := m.store.Query(ctx, m.query)
	if err != nil {
		return runsLoadedMsg{err: err}
	}
	stats, err := m.store.Stats(ctx)
	if err != nil {
		return runsLoadedMsg{err: err}
	}
	return runsLoadedMsg{runs: runs, stats: stats}
}

// Visible returns the runs passing the current filter
func (m Model) Visible() []*history.Run {
	return m.filtered
}

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "~"
}

// Run starts the history browser
func Run(store history.Store, cfg Config) error {
	p := tea.NewProgram(New(store, cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
