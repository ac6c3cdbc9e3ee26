package ui

import (
	"strings"

	"velo/model"
	"velo/storage"
)

var helpEntries = [][2]string{
	{"Enter", "Send message"},
	{"Esc", "Stop the current response"},
	{"Ctrl+R", "Regenerate the last response"},
	{"Ctrl+Y", "Copy the last response"},
	{"Ctrl+S", "Open the session manager"},
	{"PgUp/PgDn", "Scroll history"},
	{"Ctrl+H", "Toggle this help"},
	{"Ctrl+C", "Save and quit"},
}

func (a *AppView) renderHelp() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Velo keys"))
	b.WriteString("\n\n")

	for _, entry := range helpEntries {
		b.WriteString("  ")
		b.WriteString(SelectedStyle.Render(padRight(entry[0], 12)))
		b.WriteString(entry[1])
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("Mutating SQL always asks for confirmation before it runs."))
	b.WriteString("\n\n")
	b.WriteString(HelpStyle.Render("Press any key to close."))

	return b.String()
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// messagePtrs adapts a stored session's transcript to the orchestrator's
// pointer-based message list.
func messagePtrs(session *storage.Session) []*model.Message {
	out := make([]*model.Message, len(session.Messages))
	for i := range session.Messages {
		m := session.Messages[i]
		out[i] = &m
	}
	return out
}
