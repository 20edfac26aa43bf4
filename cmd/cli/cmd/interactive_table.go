package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	cliapi "freeturn/internal/cli"
)

// KeyMap represents the key bindings for the interactive table
type KeyMap struct {
	Up         key.Binding
	Down       key.Binding
	Refresh    key.Binding
	Transition key.Binding
	Details    key.Binding
	Help       key.Binding
	Quit       key.Binding
	Cancel     key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Transition: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "transition"),
		),
		Details: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "details"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// projectsLoadedMsg carries a refreshed project list
type projectsLoadedMsg struct {
	projects []cliapi.ProjectView
	err      error
}

// transitionAppliedMsg carries the outcome of a fired transition
type transitionAppliedMsg struct {
	result *cliapi.TransitionResult
	err    error
}

// InteractiveTable represents the interactive project table model
type InteractiveTable struct {
	table          table.Model
	projects       []cliapi.ProjectView
	client         *cliapi.Client
	formatter      *cliapi.OutputFormatter
	keys           KeyMap
	loading        bool
	spinner        spinner.Model
	message        string
	messageIsError bool
	showHelp       bool
	showDetails    bool
	showTransition bool
	quitting       bool
	config         *cliapi.Config
	useColor       bool
}

// NewInteractiveTable creates a new interactive project table
func NewInteractiveTable(projects []cliapi.ProjectView, client *cliapi.Client, formatter *cliapi.OutputFormatter, config *cliapi.Config) *InteractiveTable {
	t := table.New(
		table.WithColumns(projectColumns(projects)),
		table.WithRows(projectRows(projects)),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	useColor := !config.NoColor

	if useColor {
		styles := table.DefaultStyles()
		styles.Header = styles.Header.
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			BorderBottom(true).
			Bold(false)
		styles.Selected = styles.Selected.
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Bold(false)
		t.SetStyles(styles)
	}

	return &InteractiveTable{
		table:     t,
		projects:  projects,
		client:    client,
		formatter: formatter,
		keys:      DefaultKeyMap(),
		spinner:   s,
		config:    config,
		useColor:  useColor,
	}
}

// Init initializes the interactive table
func (m InteractiveTable) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m InteractiveTable) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Transition picker consumes digit keys for the listed transitions.
		if m.showTransition {
			switch {
			case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Quit):
				m.showTransition = false
				m.message = ""
				return m, nil
			default:
				return m.pickTransition(msg.String())
			}
		}

		if m.showDetails {
			m.showDetails = false
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, m.keys.Refresh):
			m.loading = true
			m.message = ""
			return m, tea.Batch(m.spinner.Tick, m.refreshProjects())

		case key.Matches(msg, m.keys.Details):
			if m.selectedProject() != nil {
				m.showDetails = true
			}
			return m, nil

		case key.Matches(msg, m.keys.Transition):
			if p := m.selectedProject(); p != nil && len(p.AvailableTransitions) > 0 {
				m.showTransition = true
			}
			return m, nil

		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}

	case projectsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.message = "Refresh failed: " + msg.err.Error()
			m.messageIsError = true
			return m, nil
		}
		m.projects = msg.projects
		m.table.SetRows(projectRows(m.projects))
		m.message = fmt.Sprintf("Loaded %d projects", len(m.projects))
		m.messageIsError = false
		return m, nil

	case transitionAppliedMsg:
		m.loading = false
		if msg.err != nil {
			m.message = "Transition failed: " + msg.err.Error()
			m.messageIsError = true
			return m, nil
		}
		m.message = fmt.Sprintf("Project %d is now %s", msg.result.Project.ID, msg.result.Project.State)
		if msg.result.DispatchWarning != "" {
			m.message += " (reply not sent: " + msg.result.DispatchWarning + ")"
		}
		m.messageIsError = false
		return m, m.refreshProjects()

	case spinner.TickMsg:
		if m.loading {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the interactive table
func (m InteractiveTable) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	if m.showDetails {
		return m.renderDetails()
	}

	b.WriteString(m.table.View())
	b.WriteString("\n")

	if m.loading {
		b.WriteString(m.spinner.View() + " Working...\n")
	}

	if m.showTransition {
		b.WriteString(m.renderTransitionPicker())
	}

	if m.message != "" {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
		if m.messageIsError {
			style = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		}
		if m.useColor {
			b.WriteString(style.Render(m.message))
		} else {
			b.WriteString(m.message)
		}
		b.WriteString("\n")
	}

	if m.showHelp {
		b.WriteString("\n↑/k up • ↓/j down • enter details • t transition • r refresh • ? help • q quit\n")
	} else {
		b.WriteString("\nPress ? for help, q to quit\n")
	}

	return b.String()
}

// refreshProjects reloads the project list from the API
func (m InteractiveTable) refreshProjects() tea.Cmd {
	return func() tea.Msg {
		projects, err := m.client.GetProjects("")
		return projectsLoadedMsg{projects: projects, err: err}
	}
}

// pickTransition fires the transition chosen by digit key
func (m InteractiveTable) pickTransition(pressed string) (tea.Model, tea.Cmd) {
	project := m.selectedProject()
	if project == nil {
		m.showTransition = false
		return m, nil
	}

	index, err := strconv.Atoi(pressed)
	if err != nil || index < 1 || index > len(project.AvailableTransitions) {
		return m, nil
	}

	name := project.AvailableTransitions[index-1]
	m.showTransition = false
	m.loading = true
	projectID := project.ID

	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		result, err := m.client.ApplyTransition(projectID, name)
		return transitionAppliedMsg{result: result, err: err}
	})
}

// renderTransitionPicker lists the transitions available for the selection
func (m InteractiveTable) renderTransitionPicker() string {
	project := m.selectedProject()
	if project == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Transition %q from %s:\n", project.Name, project.State))
	for i, name := range project.AvailableTransitions {
		b.WriteString(fmt.Sprintf("  %d) %s\n", i+1, name))
	}
	b.WriteString("  esc) cancel\n")
	return b.String()
}

// renderDetails shows the selected project in full
func (m InteractiveTable) renderDetails() string {
	project := m.selectedProject()
	if project == nil {
		return "No project selected\n"
	}

	var b strings.Builder
	title := fmt.Sprintf("Project %d: %s", project.ID, project.Name)
	if m.useColor {
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Render(title))
	} else {
		b.WriteString(title)
	}
	b.WriteString("\n\n")

	state := project.State
	if m.useColor && project.StateColor != "" {
		state = lipgloss.NewStyle().Foreground(lipgloss.Color(project.StateColor)).Render(state)
	}
	b.WriteString(fmt.Sprintf("State: %s\n", state))
	if project.Location != "" {
		b.WriteString(fmt.Sprintf("Location: %s\n", project.Location))
	}
	if project.DailyRate != nil {
		b.WriteString(fmt.Sprintf("Daily Rate: %.2f\n", *project.DailyRate))
	}
	b.WriteString(fmt.Sprintf("Created: %s\n", project.CreatedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Updated: %s\n", project.UpdatedAt.Format("2006-01-02 15:04")))
	if len(project.AvailableTransitions) > 0 {
		b.WriteString(fmt.Sprintf("Transitions: %s\n", strings.Join(project.AvailableTransitions, ", ")))
	}
	b.WriteString("\nPress any key to return\n")
	return b.String()
}

// selectedProject returns the project under the cursor
func (m InteractiveTable) selectedProject() *cliapi.ProjectView {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.projects) {
		return nil
	}
	return &m.projects[cursor]
}

// projectColumns builds the table columns
func projectColumns(projects []cliapi.ProjectView) []table.Column {
	nameWidth := 20
	for _, project := range projects {
		if len(project.Name) > nameWidth {
			nameWidth = len(project.Name)
		}
	}
	if nameWidth > 40 {
		nameWidth = 40
	}

	return []table.Column{
		{Title: "ID", Width: 5},
		{Title: "Name", Width: nameWidth},
		{Title: "State", Width: 10},
		{Title: "Location", Width: 15},
		{Title: "Updated", Width: 10},
	}
}

// projectRows builds the table rows
func projectRows(projects []cliapi.ProjectView) []table.Row {
	rows := make([]table.Row, len(projects))
	for i, project := range projects {
		rows[i] = table.Row{
			strconv.Itoa(project.ID),
			project.Name,
			project.State,
			project.Location,
			project.UpdatedAt.Format("2006-01-02"),
		}
	}
	return rows
}

// runInteractiveTable starts the interactive project browser
func runInteractiveTable(projects []cliapi.ProjectView, client *cliapi.Client, formatter *cliapi.OutputFormatter, config *cliapi.Config) error {
	model := NewInteractiveTable(projects, client, formatter, config)
	program := tea.NewProgram(model)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("interactive mode failed: %w", err)
	}
	return nil
}
