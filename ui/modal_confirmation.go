package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"velo/model"
)

// RenderConfirmationModal shows the SQL a tool wants to run and waits
// for y/n. The statement is rendered verbatim so the user reviews
// exactly what will execute.
func RenderConfirmationModal(pending *model.PendingConfirmation, width, height int) string {
	modalWidth := 70
	if width < modalWidth+10 {
		modalWidth = width - 10
	}
	if modalWidth < 20 {
		modalWidth = 20
	}

	titleSection := lipgloss.NewStyle().
		Bold(true).
		Foreground(warningColor).
		Align(lipgloss.Center).
		Width(modalWidth).
		Render("Confirm database change")

	var bodyLines []string
	bodyLines = append(bodyLines, strings.Repeat(" ", modalWidth))

	centered := lipgloss.NewStyle().Width(modalWidth).Align(lipgloss.Center)
	bodyLines = append(bodyLines, centered.Render("The assistant wants to run "+HighlightStyle.Render(pending.ToolName)+":"))
	bodyLines = append(bodyLines, strings.Repeat(" ", modalWidth))

	sqlStyle := lipgloss.NewStyle().
		Width(modalWidth - 4).
		Align(lipgloss.Left).
		Foreground(dangerColor)
	for _, line := range strings.Split(strings.TrimSpace(pending.SQL), "\n") {
		bodyLines = append(bodyLines, "  "+sqlStyle.Render(line))
	}

	bodyLines = append(bodyLines, strings.Repeat(" ", modalWidth))

	bodySection := lipgloss.NewStyle().
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Width(modalWidth).
		Render(strings.Join(bodyLines, "\n"))

	footer := FormatFooter("y", "Run it", "n", "Reject")
	footerSection := lipgloss.NewStyle().
		Foreground(dimColor).
		Align(lipgloss.Center).
		Width(modalWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(footer)

	content := strings.Join([]string{titleSection, bodySection, footerSection}, "\n")

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
