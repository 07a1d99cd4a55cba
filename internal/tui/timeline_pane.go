package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/stepsched/internal/scheduler"
)

// TimelinePaneModel shows the per-worker Gantt chart in a scrollable viewport.
type TimelinePaneModel struct {
	result   *scheduler.ParallelResult
	clock    int
	viewport viewport.Model
	width    int
	height   int
	focused  bool
}

// NewTimelinePaneModel creates a new timeline pane model.
func NewTimelinePaneModel() TimelinePaneModel {
	return TimelinePaneModel{viewport: viewport.New(0, 0)}
}

// Update handles messages for the timeline pane.
func (m TimelinePaneModel) Update(msg tea.Msg) (TimelinePaneModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.(type) {
	case tea.KeyMsg:
		// The viewport keymap already covers j/k and the arrows
		if m.focused {
			m.viewport, cmd = m.viewport.Update(msg)
		}
	}

	return m, cmd
}

// SetRun replaces the run being replayed and rewinds to time zero.
func (m *TimelinePaneModel) SetRun(res *scheduler.ParallelResult) {
	m.result = res
	m.clock = 0
	m.refresh()
}

// SetClock moves the replay to clock.
func (m *TimelinePaneModel) SetClock(clock int) {
	m.clock = clock
	m.refresh()
}

func (m *TimelinePaneModel) refresh() {
	m.viewport.SetContent(RenderTimeline(m.result, m.clock, m.viewport.Width))
}

// View renders the timeline pane.
func (m TimelinePaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder
	header := "Timeline"
	if m.result != nil {
		header = fmt.Sprintf("Timeline  %d workers  base %d", m.result.Workers, m.result.BaseCost)
	}
	b.WriteString(StyleTitle.Render(header))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(lipgloss.NewStyle().MaxWidth(m.width - 2).Render(b.String()))
}

// SetSize updates the pane dimensions.
func (m *TimelinePaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	// Border takes two columns and rows, the title one more row
	m.viewport.Width = max(0, w-2)
	m.viewport.Height = max(0, h-3)
	m.refresh()
}

// SetFocused updates the focus state.
func (m *TimelinePaneModel) SetFocused(focused bool) {
	m.focused = focused
}
