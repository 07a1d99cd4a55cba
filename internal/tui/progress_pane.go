package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/stepsched/internal/events"
)

// ProgressPaneModel shows task counts and the simulated clock.
type ProgressPaneModel struct {
	total     int
	completed int
	running   int
	pending   int
	clock     int
	makespan  int
	finished  bool
	err       error
	order     []string
	active    []string
	width     int
	height    int
	focused   bool
}

// NewProgressPaneModel creates a new progress pane model.
func NewProgressPaneModel() ProgressPaneModel {
	return ProgressPaneModel{}
}

// Update handles messages for the progress pane.
func (m ProgressPaneModel) Update(msg tea.Msg) (ProgressPaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case events.TaskStartedEvent:
		m.running++
		m.pending = max(0, m.pending-1)
		m.clock = msg.At

	case events.TaskCompletedEvent:
		m.order = append(m.order, msg.ID)
		m.clock = msg.At

	case events.RunProgressEvent:
		m.total = msg.Total
		m.completed = msg.Completed
		m.running = msg.Running
		m.pending = msg.Pending
		m.clock = msg.Clock
		m.active = msg.Active

	case events.RunFinishedEvent:
		m.finished = true
		m.makespan = msg.Makespan
		m.clock = msg.Makespan
		m.err = msg.Err
	}

	return m, nil
}

// Reset clears counters for a new run of total tasks.
func (m *ProgressPaneModel) Reset(total int) {
	*m = ProgressPaneModel{
		total:   total,
		pending: total,
		width:   m.width,
		height:  m.height,
		focused: m.focused,
	}
}

// Clock returns the last simulated time seen.
func (m ProgressPaneModel) Clock() int {
	return m.clock
}

// Finished reports whether the run has drained.
func (m ProgressPaneModel) Finished() bool {
	return m.finished
}

// View renders the progress pane.
func (m ProgressPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := StyleTitle.Render("Progress")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("Clock:     %s\n", StyleClock.Render(fmt.Sprintf("%d", m.clock))))
	b.WriteString(fmt.Sprintf("Total:     %d\n", m.total))
	b.WriteString(fmt.Sprintf("Completed: %s\n", StyleStatusComplete.Render(fmt.Sprintf("%d", m.completed))))
	running := fmt.Sprintf("%d", m.running)
	if len(m.active) > 0 {
		running += " (" + strings.Join(m.active, " ") + ")"
	}
	b.WriteString(fmt.Sprintf("Running:   %s\n", StyleStatusRunning.Render(running)))
	b.WriteString(fmt.Sprintf("Pending:   %s\n", StyleStatusPending.Render(fmt.Sprintf("%d", m.pending))))
	b.WriteString(fmt.Sprintf("Order:     %s\n", strings.Join(m.order, "")))

	b.WriteString("\n")

	if m.total > 0 {
		barWidth := min(m.width-4, 40)
		completedWidth := (m.completed * barWidth) / m.total
		runningWidth := (m.running * barWidth) / m.total
		pendingWidth := barWidth - completedWidth - runningWidth

		bar := StyleStatusComplete.Render(strings.Repeat("=", max(0, completedWidth)))
		bar += StyleStatusRunning.Render(strings.Repeat("-", max(0, runningWidth)))
		bar += StyleStatusPending.Render(strings.Repeat(".", max(0, pendingWidth)))

		b.WriteString(fmt.Sprintf("[%s]  %d/%d\n", bar, m.completed, m.total))
	}

	switch {
	case m.err != nil:
		b.WriteString(StyleStatusFailed.Render(fmt.Sprintf("Aborted: %v", m.err)))
	case m.finished:
		b.WriteString(StyleStatusComplete.Render(fmt.Sprintf("Done in %d", m.makespan)))
	}

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(b.String())
}

// SetSize updates the pane dimensions.
func (m *ProgressPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused updates the focus state.
func (m *ProgressPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
