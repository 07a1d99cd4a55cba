package tui

import (
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/stepsched/internal/config"
)

// SettingsPaneModel manages the settings form overlay.
type SettingsPaneModel struct {
	form        *huh.Form
	config      *config.Config
	globalPath  string
	projectPath string
	width       int
	height      int
	visible     bool
	saved       bool
	err         error

	// Huh binds to these by pointer, so they live outside the value-copied model
	fields *settingsFields
}

// settingsFields holds the form bindings (strings for Huh).
type settingsFields struct {
	saveTarget string
	workers    string
	baseCost   string
}

// NewSettingsPaneModel creates a new settings pane.
func NewSettingsPaneModel(cfg *config.Config, globalPath, projectPath string) SettingsPaneModel {
	m := SettingsPaneModel{
		config:      cfg,
		globalPath:  globalPath,
		projectPath: projectPath,
		fields:      &settingsFields{},
	}
	m.resetFields()
	m.buildForm()
	return m
}

func (m *SettingsPaneModel) resetFields() {
	m.fields.saveTarget = "project"
	m.fields.workers = strconv.Itoa(m.config.Workers)
	m.fields.baseCost = strconv.Itoa(m.config.BaseCost)
}

// buildForm constructs the Huh form with all settings fields.
func (m *SettingsPaneModel) buildForm() {
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("workers").
				Title("Workers").
				Description("Simulated workers, at least 1").
				Value(&m.fields.workers).
				Validate(validatePositive),

			huh.NewInput().
				Key("baseCost").
				Title("Base Cost").
				Description("Added to every step's duration").
				Value(&m.fields.baseCost).
				Validate(validateNonNegative),
		).Title("Simulation"),

		huh.NewGroup(
			huh.NewSelect[string]().
				Key("saveTarget").
				Title("Save To").
				Options(
					huh.NewOption("Project (.stepsched/config.json)", "project"),
					huh.NewOption("Global (~/.stepsched/config.json)", "global"),
				).
				Value(&m.fields.saveTarget),
		).Title("Save Target"),
	)
}

func validatePositive(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	if n <= 0 {
		return fmt.Errorf("must be at least 1")
	}
	return nil
}

func validateNonNegative(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	if n < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

// Init initializes the settings pane.
func (m SettingsPaneModel) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the settings pane.
func (m SettingsPaneModel) Update(msg tea.Msg) (SettingsPaneModel, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == KeyEsc {
		// Cancel without saving
		m.visible = false
		m.saved = false
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.save()
	}

	return m, cmd
}

// save copies the form into the config and writes it to the chosen file.
func (m *SettingsPaneModel) save() {
	if err := m.applyFormToConfig(); err != nil {
		m.err = err
		m.saved = false
		return
	}

	targetPath := m.projectPath
	if m.fields.saveTarget == "global" {
		targetPath = m.globalPath
	}

	if err := config.Save(m.config, targetPath); err != nil {
		m.err = err
		m.saved = false
		return
	}
	m.saved = true
	m.err = nil
	m.visible = false
}

// applyFormToConfig copies form field values back to the config struct.
func (m *SettingsPaneModel) applyFormToConfig() error {
	workers, err := strconv.Atoi(m.fields.workers)
	if err != nil {
		return fmt.Errorf("workers: %w", err)
	}
	baseCost, err := strconv.Atoi(m.fields.baseCost)
	if err != nil {
		return fmt.Errorf("base cost: %w", err)
	}
	m.config.Workers = workers
	m.config.BaseCost = baseCost
	return nil
}

// View renders the settings pane.
func (m SettingsPaneModel) View() string {
	if !m.visible {
		return ""
	}

	var content string
	if m.err != nil {
		content = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true).
			Render(fmt.Sprintf("✗ Error saving: %v", m.err))
	} else {
		content = m.form.View()
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(max(0, m.width-4)).
		Height(max(0, m.height-4))

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("62")).
		Render("⚙ Settings")

	return lipgloss.JoinVertical(lipgloss.Left, title, style.Render(content))
}

// SetSize updates the dimensions of the settings pane.
func (m *SettingsPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if m.form != nil {
		m.form.WithWidth(max(0, w-8)).WithHeight(max(0, h-8))
	}
}

// SetVisible shows or hides the settings pane.
func (m *SettingsPaneModel) SetVisible(v bool) {
	m.visible = v
	m.saved = false
	m.err = nil

	if v {
		m.resetFields()
		m.buildForm()
		if m.width > 0 {
			m.form.WithWidth(max(0, m.width-8)).WithHeight(max(0, m.height-8))
		}
	}
}

// IsVisible returns whether the settings pane is currently visible.
func (m SettingsPaneModel) IsVisible() bool {
	return m.visible
}

// Saved reports whether the last form submission was written to disk.
func (m SettingsPaneModel) Saved() bool {
	return m.saved
}
