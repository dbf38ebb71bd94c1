package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/ShayCichocki/crewforge/internal/orchestrator"
	"github.com/ShayCichocki/crewforge/internal/state"
	"github.com/ShayCichocki/crewforge/pkg/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	headerCellStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")).
			PaddingRight(2)

	cellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			PaddingRight(2)

	execCellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			PaddingRight(2)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// printStatus prints a colored status symbol followed by a message.
func printStatus(w io.Writer, symbol, message string, attr color.Attribute) {
	c := color.New(attr)
	fmt.Fprintf(w, "%s %s\n", c.Sprint(symbol), message)
}

// renderTable lays out rows in left-aligned columns. Column styles come from
// styleFor, which may vary per row.
func renderTable(headers []string, rows [][]string, styleFor func(row int) lipgloss.Style) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, r := range rows {
		for i, cell := range r {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = headerCellStyle.Width(widths[i] + 2).Render(h)
	}
	lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cells...))

	for ri, r := range rows {
		style := cellStyle
		if styleFor != nil {
			style = styleFor(ri)
		}
		cells := make([]string, len(headers))
		for i := range headers {
			cell := ""
			if i < len(r) {
				cell = r[i]
			}
			cells[i] = style.Width(widths[i] + 2).Render(cell)
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// rosterRows returns one table row per team member.
func rosterRows(specs []models.AgentSpec, kinds []models.AgentKind, workspaces []string) [][]string {
	rows := make([][]string, len(specs))
	for i, s := range specs {
		caps := strings.Join(s.Capabilities, ", ")
		if caps == "" {
			caps = "-"
		}
		ws := workspaces[i]
		if ws == "" {
			ws = "-"
		}
		rows[i] = []string{fmt.Sprintf("%d", i+1), s.Name, s.Role, string(kinds[i]), caps, ws}
	}
	return rows
}

// renderTeam renders the team summary and roster table.
func renderTeam(team *orchestrator.Team) string {
	kinds := make([]models.AgentKind, len(team.Agents))
	workspaces := make([]string, len(team.Agents))
	for i, a := range team.Agents {
		kinds[i] = a.Kind()
		workspaces[i] = a.Workspace()
	}
	rows := rosterRows(team.Specs, kinds, workspaces)
	table := renderTable(
		[]string{"#", "Name", "Role", "Kind", "Capabilities", "Workspace"},
		rows,
		func(row int) lipgloss.Style {
			if kinds[row] == models.AgentKindExecution {
				return execCellStyle
			}
			return cellStyle
		},
	)

	summary := fmt.Sprintf("Tier: %s (%s)   Agents: %d   Rounds: %d   Specs: %s",
		team.Tier, team.Selection.Reason, len(team.Agents), team.Rounds, team.Source)
	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Team "+team.ID),
		dimStyle.Render(summary),
		"",
		table,
	)
	return boxStyle.Render(body)
}

// renderStoredRoster renders a roster loaded from history.
func renderStoredRoster(run *state.RunRecord, roster []state.RosterRecord) string {
	specs := make([]models.AgentSpec, len(roster))
	kinds := make([]models.AgentKind, len(roster))
	workspaces := make([]string, len(roster))
	for i, r := range roster {
		specs[i] = models.AgentSpec{Name: r.Name, Role: r.Role, Capabilities: r.Capabilities}
		kinds[i] = r.Kind
		workspaces[i] = r.Workspace
	}
	table := renderTable(
		[]string{"#", "Name", "Role", "Kind", "Capabilities", "Workspace"},
		rosterRows(specs, kinds, workspaces),
		nil,
	)

	summary := fmt.Sprintf("Status: %s   Tier: %s   Rounds: %d   Specs: %s   Started: %s",
		run.Status, run.Tier, run.Rounds, run.Source, run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	lines := []string{titleStyle.Render("Run " + run.ID), dimStyle.Render(summary), dimStyle.Render("Task: " + run.Task)}
	if run.Error != "" {
		lines = append(lines, dimStyle.Render("Error: "+run.Error))
	}
	lines = append(lines, "", table)
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// renderRuns renders a run history listing.
func renderRuns(runs []state.RunRecord) string {
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			string(r.Status),
			string(r.Tier),
			fmt.Sprintf("%d", r.Rounds),
			truncate(r.Task, 50),
		}
	}
	return renderTable([]string{"ID", "Started", "Status", "Tier", "Rounds", "Task"}, rows, nil)
}

// formatMessage renders one conversation message for the console.
func formatMessage(m models.Message) string {
	if m.Failed {
		return color.RedString("[%s] (no reply) %s", m.Speaker, m.Content)
	}
	return fmt.Sprintf("%s\n%s\n", color.CyanString("[%s]", m.Speaker), m.Content)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
