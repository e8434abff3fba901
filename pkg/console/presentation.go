package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dukex/playbook/pkg/models"
)

// Layout selects how the workflow list is rendered.
type Layout string

const (
	LayoutTable Layout = "table"
	LayoutCards Layout = "cards"
)

// ParseLayout accepts "table" and "cards"; empty means table.
func ParseLayout(s string) (Layout, error) {
	switch Layout(strings.ToLower(s)) {
	case "", LayoutTable:
		return LayoutTable, nil
	case LayoutCards:
		return LayoutCards, nil
	default:
		return "", fmt.Errorf("unknown layout %q", s)
	}
}

// Theme holds the color scheme of the terminal views.
type Theme struct {
	Title   lipgloss.Color
	Running lipgloss.Color
	Paused  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
	Border  lipgloss.Color
}

var DefaultTheme = Theme{
	Title:   lipgloss.Color("#5FAFD7"),
	Running: lipgloss.Color("#00D787"),
	Paused:  lipgloss.Color("#FFAF00"),
	Success: lipgloss.Color("#00D787"),
	Error:   lipgloss.Color("#FF005F"),
	Hint:    lipgloss.Color("#6C6C6C"),
	Border:  lipgloss.Color("#3A3A3A"),
}

func (t Theme) titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Title).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) statusStyle(running bool) lipgloss.Style {
	if running {
		return lipgloss.NewStyle().Foreground(t.Running).Bold(true)
	}

	return lipgloss.NewStyle().Foreground(t.Paused)
}

func (t Theme) cardStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)
}

// Presentation renders the view models as terminal text.
type Presentation struct {
	Layout Layout
	Theme  Theme
}

func NewPresentation(layout Layout) Presentation {
	return Presentation{Layout: layout, Theme: DefaultTheme}
}

func statusLabel(running bool) string {
	if running {
		return "Running"
	}

	return "Paused"
}

func busyLabel(state DashboardState, id string) string {
	action, busy := state.Busy(id)
	if !busy {
		return ""
	}

	switch action {
	case ActionDelete:
		return "deleting..."
	default:
		return "updating..."
	}
}

// Dashboard renders the active tab of the dashboard.
func (p Presentation) Dashboard(state DashboardState) string {
	var b strings.Builder

	b.WriteString(p.tabs(state))
	b.WriteString("\n\n")

	if state.Tab == TabPlaybooks {
		b.WriteString(p.playbooks(state))
	} else {
		b.WriteString(p.Workflows(state, state.Visible()))
	}

	return b.String()
}

func (p Presentation) tabs(state DashboardState) string {
	active := p.Theme.titleStyle().Underline(true)
	inactive := p.Theme.hintStyle()

	workflows := fmt.Sprintf("Workflows (%d)", len(state.Workflows))
	playbooks := fmt.Sprintf("Playbooks (%d)", len(state.Playbooks))

	if state.Tab == TabPlaybooks {
		return inactive.Render(workflows) + "  " + active.Render(playbooks)
	}

	return active.Render(workflows) + "  " + inactive.Render(playbooks)
}

// Workflows renders records in the configured layout.
func (p Presentation) Workflows(state DashboardState, records []*models.Record) string {
	if len(records) == 0 {
		return p.Theme.hintStyle().Render("No workflows yet. Create one with `playbook new`.")
	}

	if p.Layout == LayoutCards {
		cards := make([]string, 0, len(records))
		for _, record := range records {
			cards = append(cards, p.card(state, record))
		}

		return lipgloss.JoinVertical(lipgloss.Left, cards...)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(p.Theme.Border)).
		Headers("ID", "TITLE", "STEPS", "STATUS", "UPDATED", "")

	for _, record := range records {
		t.Row(
			record.ID,
			record.Title,
			StepsSummary(record.Steps),
			statusLabel(record.IsRunning),
			FormatDate(record.UpdatedAt),
			busyLabel(state, record.ID),
		)
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		style := lipgloss.NewStyle().Padding(0, 1)

		switch {
		case row == table.HeaderRow:
			return style.Inherit(p.Theme.titleStyle())
		case col == 3 && row >= 0 && row < len(records):
			return style.Inherit(p.Theme.statusStyle(records[row].IsRunning))
		}

		return style
	})

	return t.String()
}

func (p Presentation) card(state DashboardState, record *models.Record) string {
	lines := []string{
		p.Theme.titleStyle().Render(record.Title),
		p.Theme.hintStyle().Render(record.ID),
	}

	if first := FirstInstruction(record); first != "" {
		lines = append(lines, first)
	}

	footer := fmt.Sprintf("%s  %s  %s",
		StepsSummary(record.Steps),
		p.Theme.statusStyle(record.IsRunning).Render(statusLabel(record.IsRunning)),
		FormatDate(record.UpdatedAt),
	)

	if busy := busyLabel(state, record.ID); busy != "" {
		footer += "  " + busy
	}

	lines = append(lines, footer)

	return p.Theme.cardStyle().Render(strings.Join(lines, "\n"))
}

func (p Presentation) playbooks(state DashboardState) string {
	if len(state.Playbooks) == 0 {
		return p.Theme.hintStyle().Render("No playbooks yet.")
	}

	var blocks []string

	for _, group := range state.PlaybooksBySection() {
		marker := "+"
		if group.Expanded {
			marker = "-"
		}

		header := fmt.Sprintf("%s %s (%d)", marker, group.Section.Title, len(group.Playbooks))
		blocks = append(blocks, p.Theme.titleStyle().Render(header))

		if !group.Expanded {
			continue
		}

		if group.Section.Description != "" {
			blocks = append(blocks, p.Theme.hintStyle().Render(group.Section.Description))
		}

		for _, playbook := range group.Playbooks {
			line := fmt.Sprintf("  %s  %s  %s", playbook.ID, playbook.Title, StepsSummary(playbook.Steps))
			if description := playbook.Description(); description != "" {
				line += "\n    " + description
			}

			blocks = append(blocks, line)
		}
	}

	return strings.Join(blocks, "\n")
}

// Record renders a single record with all of its steps.
func (p Presentation) Record(record *models.Record) string {
	var b strings.Builder

	b.WriteString(p.Theme.titleStyle().Render(record.Title))
	b.WriteString("\n")
	fmt.Fprintf(&b, "ID:      %s\n", record.ID)
	fmt.Fprintf(&b, "Kind:    %s\n", record.Kind())
	fmt.Fprintf(&b, "Status:  %s\n", p.Theme.statusStyle(record.IsRunning).Render(statusLabel(record.IsRunning)))

	if record.IsPlaybook() {
		section := "None"
		if record.Section() != "" {
			section = record.Section().Title()
		}

		fmt.Fprintf(&b, "Section: %s\n", section)

		if description := record.Description(); description != "" {
			fmt.Fprintf(&b, "About:   %s\n", description)
		}
	}

	fmt.Fprintf(&b, "Created: %s\n", FormatDate(record.CreatedAt))
	fmt.Fprintf(&b, "Updated: %s\n", FormatDate(record.UpdatedAt))
	fmt.Fprintf(&b, "\nSteps (%s):\n", StepsSummary(record.Steps))

	for i, step := range record.Steps {
		who := "AI"
		if step.Executor == models.ExecutorHuman {
			who = "Human: " + step.AssignedHuman
		}

		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, who, step.Instruction)
	}

	return b.String()
}

// Result renders the notification of an operation.
func (p Presentation) Result(r Result) string {
	if r.OK() {
		return lipgloss.NewStyle().Foreground(p.Theme.Success).Render(r.Message())
	}

	return lipgloss.NewStyle().Foreground(p.Theme.Error).Bold(true).Render(r.Message())
}
