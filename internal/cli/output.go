package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"freeturn/internal/database"
)

// OutputFormatter handles different output formats
type OutputFormatter struct {
	format   string
	quiet    bool
	useColor bool
}

// NewOutputFormatter creates a new output formatter
func NewOutputFormatter(format string, quiet bool) *OutputFormatter {
	return NewOutputFormatterWithColor(format, quiet, false)
}

// NewOutputFormatterWithColor creates a formatter with explicit color control
func NewOutputFormatterWithColor(format string, quiet, noColor bool) *OutputFormatter {
	return &OutputFormatter{
		format:   format,
		quiet:    quiet,
		useColor: !noColor && isatty.IsTerminal(os.Stdout.Fd()),
	}
}

// PrintProjects prints a list of projects
func (f *OutputFormatter) PrintProjects(projects []ProjectView) error {
	if f.quiet {
		for _, project := range projects {
			fmt.Printf("%d\n", project.ID)
		}
		return nil
	}

	switch f.format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(projects)
	case "table":
		return f.printProjectsTable(projects)
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

// PrintProject prints a single project
func (f *OutputFormatter) PrintProject(project *ProjectView) error {
	if f.quiet {
		fmt.Printf("%d\n", project.ID)
		return nil
	}

	switch f.format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(project)
	case "table":
		return f.printProjectDetail(project)
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

// PrintMessages prints a project's conversation
func (f *OutputFormatter) PrintMessages(messages []database.ProjectMessage) error {
	if f.quiet {
		for _, message := range messages {
			fmt.Printf("%d\n", message.ID)
		}
		return nil
	}

	switch f.format {
	case "json":
		return json.NewEncoder(os.Stdout).Encode(messages)
	case "table":
		return f.printMessagesTable(messages)
	default:
		return fmt.Errorf("unsupported format: %s", f.format)
	}
}

// PrintSuccess prints a success message
func (f *OutputFormatter) PrintSuccess(message string) {
	if !f.quiet {
		fmt.Printf("✓ %s\n", message)
	}
}

// PrintError prints an error message
func (f *OutputFormatter) PrintError(err error) {
	if !f.quiet {
		fmt.Fprintf(os.Stderr, "✗ Error: %v\n", err)
	}
}

// PrintInfo prints an informational message
func (f *OutputFormatter) PrintInfo(message string) {
	if !f.quiet {
		fmt.Printf("ℹ %s\n", message)
	}
}

// printProjectsTable prints projects in table format
func (f *OutputFormatter) printProjectsTable(projects []ProjectView) error {
	if len(projects) == 0 {
		fmt.Println("No projects found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tNAME\tSTATE\tLOCATION\tUPDATED")

	for _, project := range projects {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			project.ID,
			truncate(project.Name, 35),
			f.renderState(project.State, project.StateColor),
			truncate(project.Location, 20),
			project.UpdatedAt.Format("2006-01-02"))
	}

	return nil
}

// printProjectDetail prints a single project in detail format
func (f *OutputFormatter) printProjectDetail(project *ProjectView) error {
	fmt.Printf("Project ID: %d\n", project.ID)
	fmt.Printf("Name: %s\n", project.Name)
	fmt.Printf("State: %s\n", f.renderState(project.State, project.StateColor))
	if project.Location != "" {
		fmt.Printf("Location: %s\n", project.Location)
	}
	if project.DailyRate != nil {
		fmt.Printf("Daily Rate: %.2f\n", *project.DailyRate)
	}
	fmt.Printf("Created: %s\n", project.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated: %s\n", project.UpdatedAt.Format("2006-01-02 15:04:05"))
	if len(project.AvailableTransitions) > 0 {
		fmt.Printf("Available Transitions: %s\n", strings.Join(project.AvailableTransitions, ", "))
	}

	return nil
}

// printMessagesTable prints messages in table format
func (f *OutputFormatter) printMessagesTable(messages []database.ProjectMessage) error {
	if len(messages) == 0 {
		fmt.Println("No messages found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "SENT\tSENDER\tSUBJECT\tBODY")

	for _, message := range messages {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			message.SentAt.Format("2006-01-02 15:04"),
			truncate(message.Sender, 25),
			truncate(message.Subject, 30),
			truncate(strings.ReplaceAll(message.Body, "\n", " "), 45))
	}

	return nil
}

// renderState colors a state name with its lifecycle color when the terminal
// supports it.
func (f *OutputFormatter) renderState(state, color string) string {
	if !f.useColor || color == "" {
		return state
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(state)
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
