package ui

import (
	"errors"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"velo/agent"
	"velo/model"
)

func (a AppView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.textarea.SetWidth(msg.Width)

		if !a.ready {
			a.viewport = viewport.New(msg.Width, a.viewportHeight())
			a.ready = true
		} else {
			a.viewport.Width = msg.Width
			a.viewport.Height = a.viewportHeight()
		}
		a.updateViewportContent(true)
		return a, nil

	case RefreshMsg:
		a.updateViewportContent(true)
		if !a.orchestrator.IsLoading() {
			a.saveSession()
		}
		return a, nil

	case flashTickMsg:
		a.flash = ""
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.loadingSpinner, cmd = a.loadingSpinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	return a, cmd
}

func (a AppView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Modal overlays take the keyboard first.
	if a.showSessionManager {
		return a.handleSessionManagerKey(msg)
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}
	if a.orchestrator.PendingConfirmation() != nil {
		return a.handleConfirmationKey(msg)
	}

	switch msg.String() {
	case "ctrl+c":
		a.saveSession()
		return a, tea.Quit

	case "esc":
		if a.orchestrator.IsLoading() {
			a.orchestrator.Stop()
		}
		return a, nil

	case "enter":
		return a.sendInput()

	case "ctrl+r":
		if err := a.orchestrator.Reload(); err != nil {
			return a.setFlash("cannot reload: " + err.Error())
		}
		return a, nil

	case "ctrl+y":
		return a.copyLastResponse()

	case "ctrl+s":
		return a.openSessionManager()

	case "ctrl+h":
		a.showHelp = true
		return a, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	return a, cmd
}

func (a AppView) handleConfirmationKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		a.orchestrator.ConfirmTool()
	case "n", "N", "esc":
		a.orchestrator.RejectTool("The user declined to run this statement.")
	case "ctrl+c":
		a.orchestrator.RejectTool("The user declined to run this statement.")
		a.orchestrator.Stop()
		a.saveSession()
		return a, tea.Quit
	}
	return a, nil
}

func (a AppView) sendInput() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(a.textarea.Value())
	if text == "" {
		return a, nil
	}

	err := a.orchestrator.Send(text)
	switch {
	case errors.Is(err, agent.ErrRoundInFlight):
		return a.setFlash("still responding, esc to stop first")
	case err != nil:
		return a.setFlash(err.Error())
	}

	a.textarea.Reset()
	a.updateViewportContent(true)
	return a, nil
}

func (a AppView) copyLastResponse() (tea.Model, tea.Cmd) {
	messages := a.orchestrator.Messages()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleAssistant && messages[i].Content != "" {
			if err := clipboard.WriteAll(messages[i].Content); err != nil {
				return a.setFlash("clipboard: " + err.Error())
			}
			return a.setFlash("copied last response")
		}
	}
	return a.setFlash("nothing to copy")
}

func (a AppView) setFlash(text string) (tea.Model, tea.Cmd) {
	a.flash = text
	return a, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return flashTickMsg{}
	})
}

// saveSession syncs the orchestrator transcript into the session file.
func (a *AppView) saveSession() {
	if a.session == nil || a.sessions == nil {
		return
	}

	messages := a.orchestrator.Messages()
	if len(messages) == 0 {
		return
	}

	a.session.Messages = messages
	if a.session.Name == "" {
		a.session.Name = sessionNameFrom(messages)
	}

	if err := a.sessions.Save(a.session); err == nil {
		a.sessions.SaveCurrentSessionID(a.session.ID)
	}
}

// sessionNameFrom derives a display name from the first user message.
func sessionNameFrom(messages []model.Message) string {
	for _, m := range messages {
		if m.Role == model.RoleUser {
			name := strings.TrimSpace(m.Content)
			if len(name) > 40 {
				name = name[:40]
			}
			if name != "" {
				return name
			}
		}
	}
	return "New session"
}
