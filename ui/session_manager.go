package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"velo/storage"
)

func (a AppView) openSessionManager() (tea.Model, tea.Cmd) {
	list, err := a.sessions.List()
	if err != nil {
		return a.setFlash("failed to list sessions: " + err.Error())
	}

	a.showSessionManager = true
	a.sessionList = list
	a.filteredSessionList = list
	a.selectedSessionIdx = 0
	a.sessionFilterMode = false
	a.sessionFilterInput.SetValue("")
	a.confirmDeleteSession = nil
	return a, nil
}

func (a *AppView) getSessionList() []storage.SessionMetadata {
	if a.sessionFilterInput.Value() != "" {
		return a.filteredSessionList
	}
	return a.sessionList
}

func (a AppView) handleSessionManagerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Delete confirmation takes precedence.
	if a.confirmDeleteSession != nil {
		switch msg.String() {
		case "y", "Y":
			if err := a.sessions.Delete(a.confirmDeleteSession.ID); err == nil {
				return a.openSessionManager()
			}
		}
		a.confirmDeleteSession = nil
		return a, nil
	}

	if a.sessionFilterMode {
		switch msg.String() {
		case "esc":
			a.sessionFilterMode = false
			a.sessionFilterInput.SetValue("")
			a.filteredSessionList = a.sessionList
			return a, nil
		case "enter":
			a.sessionFilterMode = false
			return a, nil
		}

		var cmd tea.Cmd
		a.sessionFilterInput, cmd = a.sessionFilterInput.Update(msg)
		a.applySessionFilter()
		return a, cmd
	}

	list := a.getSessionList()

	switch msg.String() {
	case "esc", "ctrl+s":
		a.showSessionManager = false
		return a, nil

	case "j", "down":
		if a.selectedSessionIdx < len(list)-1 {
			a.selectedSessionIdx++
		}
		return a, nil

	case "k", "up":
		if a.selectedSessionIdx > 0 {
			a.selectedSessionIdx--
		}
		return a, nil

	case "/":
		a.sessionFilterMode = true
		a.sessionFilterInput.Focus()
		a.sessionFilterInput.SetValue("")
		a.filteredSessionList = a.sessionList
		return a, textinput.Blink

	case "d":
		if a.selectedSessionIdx < len(list) {
			meta := list[a.selectedSessionIdx]
			a.confirmDeleteSession = &meta
		}
		return a, nil

	case "n":
		a.startNewSession()
		a.showSessionManager = false
		return a, nil

	case "enter":
		if a.selectedSessionIdx < len(list) {
			return a.loadSession(list[a.selectedSessionIdx].ID)
		}
		return a, nil
	}

	return a, nil
}

func (a *AppView) applySessionFilter() {
	filterValue := a.sessionFilterInput.Value()
	if filterValue == "" {
		a.filteredSessionList = a.sessionList
	} else {
		targets := make([]string, len(a.sessionList))
		for i, s := range a.sessionList {
			targets[i] = s.Name
		}

		matches := fuzzy.Find(filterValue, targets)
		a.filteredSessionList = make([]storage.SessionMetadata, len(matches))
		for i, match := range matches {
			a.filteredSessionList[i] = a.sessionList[match.Index]
		}
	}

	if list := a.getSessionList(); a.selectedSessionIdx >= len(list) && len(list) > 0 {
		a.selectedSessionIdx = len(list) - 1
	}
}

func (a AppView) loadSession(id string) (tea.Model, tea.Cmd) {
	session, err := a.sessions.Load(id)
	if err != nil {
		return a.setFlash("failed to load session: " + err.Error())
	}

	if err := a.orchestrator.SetMessages(messagePtrs(session)); err != nil {
		return a.setFlash(err.Error())
	}

	a.session = session
	a.showSessionManager = false
	a.sessions.SaveCurrentSessionID(session.ID)
	a.updateViewportContent(true)
	return a, nil
}

func (a *AppView) startNewSession() {
	a.saveSession()
	a.orchestrator.SetMessages(nil)
	agentCfg := a.orchestrator.Config()
	a.session = &storage.Session{
		Provider: agentCfg.Provider,
		Model:    agentCfg.Model,
		Mode:     a.cfg.Mode,
		Database: a.cfg.Database.Path,
	}
	a.updateViewportContent(true)
}

func (a *AppView) renderSessionManager() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Sessions"))
	b.WriteString("\n\n")

	if a.sessionFilterMode {
		b.WriteString("  / " + a.sessionFilterInput.View() + "\n\n")
	}

	list := a.getSessionList()
	if len(list) == 0 {
		b.WriteString(DimStyle.Render("  No saved sessions.") + "\n")
	}

	nameWidth := 44
	for i, meta := range list {
		name := meta.Name
		if name == "" {
			name = meta.ID
		}
		if runewidth.StringWidth(name) > nameWidth {
			name = runewidth.Truncate(name, nameWidth, "...")
		}
		name += strings.Repeat(" ", nameWidth-runewidth.StringWidth(name))

		line := fmt.Sprintf("%s  %-10s  %3d msgs  %s",
			name, meta.Provider, meta.MessageCount, meta.UpdatedAt.Format("2006-01-02 15:04"))

		if i == a.selectedSessionIdx {
			b.WriteString(SelectedStyle.Render("▸ " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if a.confirmDeleteSession != nil {
		name := a.confirmDeleteSession.Name
		if name == "" {
			name = a.confirmDeleteSession.ID
		}
		b.WriteString(SelectedStyle.Render(fmt.Sprintf("Delete %q? ", name)))
		b.WriteString(FormatFooter("y", "Delete", "any", "Cancel"))
	} else {
		b.WriteString(HelpStyle.Render(FormatFooter(
			"j/k", "Navigate", "Enter", "Load", "n", "New", "d", "Delete", "/", "Filter", "Esc", "Close")))
	}

	return b.String()
}
