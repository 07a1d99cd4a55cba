package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/stepsched/internal/config"
	"github.com/aristath/stepsched/internal/events"
	"github.com/aristath/stepsched/internal/scheduler"
)

// PaneID identifies which pane is focused.
type PaneID int

const (
	PaneTimeline PaneID = iota
	PaneProgress
)

const paneCount = 2

// DefaultStep is the wall time between replayed clock values.
const DefaultStep = 150 * time.Millisecond

// runLoadedMsg carries a finished simulation and every event it published.
type runLoadedMsg struct {
	gen    int
	result *scheduler.ParallelResult
	events []events.Event
	total  int
	err    error
}

// tickMsg advances the replay by one clock value.
type tickMsg struct {
	gen int
}

// Model is the root Bubble Tea model for the TUI. It simulates the graph up
// front, then replays the recorded events one clock value per tick.
type Model struct {
	timelinePane      TimelinePaneModel
	progressPane      ProgressPaneModel
	settingsPane      SettingsPaneModel
	focusedPane       PaneID
	graph             *scheduler.DAG
	config            *config.Config
	replay            []events.Event
	cursor            int
	gen               int // bumped on every rerun so stale ticks are dropped
	step              time.Duration
	paused            bool
	width             int
	height            int
	quitting          bool
	showSettings      bool
	err               error
	globalConfigPath  string
	projectConfigPath string
}

// New creates a new TUI model replaying d under cfg.
func New(d *scheduler.DAG, cfg *config.Config, globalPath, projectPath string) Model {
	return Model{
		timelinePane:      NewTimelinePaneModel(),
		progressPane:      NewProgressPaneModel(),
		settingsPane:      NewSettingsPaneModel(cfg, globalPath, projectPath),
		focusedPane:       PaneTimeline,
		graph:             d,
		config:            cfg,
		step:              DefaultStep,
		globalConfigPath:  globalPath,
		projectConfigPath: projectPath,
	}
}

// WithStep sets the wall time between replayed clock values.
func (m Model) WithStep(step time.Duration) Model {
	m.step = step
	return m
}

// Init initializes the model and returns the initial command.
func (m Model) Init() tea.Cmd {
	return simulate(m.gen, m.graph, m.config)
}

// simulate runs the parallel scheduler and records its events for replay.
func simulate(gen int, d *scheduler.DAG, cfg *config.Config) tea.Cmd {
	workers, baseCost, dur := cfg.Workers, cfg.BaseCost, cfg.Duration()
	return func() tea.Msg {
		rec := &events.Recorder{}
		s, err := scheduler.NewParallelScheduler(d, scheduler.ParallelConfig{
			Workers:   workers,
			BaseCost:  baseCost,
			Duration:  dur,
			Publisher: rec,
		})
		if err != nil {
			return runLoadedMsg{gen: gen, err: err}
		}
		res, err := s.Run()
		return runLoadedMsg{gen: gen, result: res, events: rec.Events(), total: d.Len(), err: err}
	}
}

func (m Model) tick() tea.Cmd {
	gen := m.gen
	return tea.Tick(m.step, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// If settings panel is open, route all keys to it (modal behavior)
		if m.showSettings {
			var cmd tea.Cmd
			m.settingsPane, cmd = m.settingsPane.Update(msg)
			cmds = append(cmds, cmd)

			if !m.settingsPane.IsVisible() {
				m.showSettings = false
				if m.settingsPane.Saved() {
					cmds = append(cmds, m.rerun())
				}
			}
			return m, tea.Batch(cmds...)
		}

		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			m.quitting = true
			return m, tea.Quit

		case KeySettings:
			m.showSettings = true
			m.settingsPane.SetVisible(true)
			cmds = append(cmds, m.settingsPane.Init())

		case KeyPause:
			m.paused = !m.paused
			if !m.paused && !m.Done() {
				cmds = append(cmds, m.tick())
			}

		case KeyStep:
			if m.paused {
				m.advance()
			}

		case KeyRestart:
			cmds = append(cmds, m.rerun())

		case KeyTab:
			m.focusedPane = (m.focusedPane + 1) % paneCount
			m.updateFocusStates()

		case KeyShiftTab:
			m.focusedPane = (m.focusedPane + paneCount - 1) % paneCount
			m.updateFocusStates()

		case KeyPane1:
			m.focusedPane = PaneTimeline
			m.updateFocusStates()

		case KeyPane2:
			m.focusedPane = PaneProgress
			m.updateFocusStates()

		default:
			if m.focusedPane == PaneTimeline {
				var cmd tea.Cmd
				m.timelinePane, cmd = m.timelinePane.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()
		m.settingsPane.SetSize(msg.Width, msg.Height)

	case runLoadedMsg:
		if msg.gen != m.gen {
			break
		}
		m.err = msg.err
		m.replay = msg.events
		m.cursor = 0
		m.progressPane.Reset(msg.total)
		m.timelinePane.SetRun(msg.result)
		if !m.paused && len(m.replay) > 0 {
			cmds = append(cmds, m.tick())
		}

	case tickMsg:
		if msg.gen != m.gen || m.paused {
			break
		}
		m.advance()
		if !m.Done() {
			cmds = append(cmds, m.tick())
		}
	}

	return m, tea.Batch(cmds...)
}

// rerun discards the current replay and simulates again with the current config.
func (m *Model) rerun() tea.Cmd {
	m.gen++
	m.replay = nil
	m.cursor = 0
	return simulate(m.gen, m.graph, m.config)
}

// advance applies every recorded event that shares the next clock value.
func (m *Model) advance() {
	if m.Done() {
		return
	}
	clock := eventClock(m.replay[m.cursor])
	for m.cursor < len(m.replay) && eventClock(m.replay[m.cursor]) == clock {
		m.progressPane, _ = m.progressPane.Update(m.replay[m.cursor])
		m.cursor++
	}
	m.timelinePane.SetClock(clock)
}

// eventClock returns the simulated time an event belongs to.
func eventClock(e events.Event) int {
	switch e := e.(type) {
	case events.TaskStartedEvent:
		return e.At
	case events.TaskCompletedEvent:
		return e.At
	case events.RunProgressEvent:
		return e.Clock
	case events.RunFinishedEvent:
		return e.Makespan
	}
	return 0
}

// Done reports whether the whole replay has been shown.
func (m Model) Done() bool {
	return m.cursor >= len(m.replay)
}

// Clock returns the simulated time currently displayed.
func (m Model) Clock() int {
	return m.progressPane.Clock()
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if m.showSettings {
		return m.settingsPane.View()
	}

	mainContent := lipgloss.JoinVertical(lipgloss.Left, m.timelinePane.View(), m.progressPane.View())

	status := HelpView()
	if m.paused {
		status = StyleStatusRunning.Render("PAUSED") + "  " + status
	}
	if m.err != nil && m.Done() {
		status = StyleStatusFailed.Render(fmt.Sprintf("error: %v", m.err)) + "\n" + status
	}

	return lipgloss.JoinVertical(lipgloss.Left, mainContent, status)
}

// computeLayout calculates pane dimensions and updates all child models.
func (m *Model) computeLayout() {
	availableHeight := m.height - 1 // help bar
	timelineHeight := (availableHeight * 60) / 100
	progressHeight := availableHeight - timelineHeight

	m.timelinePane.SetSize(m.width, timelineHeight)
	m.progressPane.SetSize(m.width, progressHeight)

	m.updateFocusStates()
}

// updateFocusStates updates the focus state of all panes.
func (m *Model) updateFocusStates() {
	m.timelinePane.SetFocused(m.focusedPane == PaneTimeline)
	m.progressPane.SetFocused(m.focusedPane == PaneProgress)
}
