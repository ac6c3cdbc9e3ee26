// Package ui implements the terminal chat interface: a Bubble Tea view
// over the agent orchestrator with streaming output, SQL confirmation
// prompts, and a session picker.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"velo/agent"
	"velo/config"
	"velo/storage"
)

// RefreshMsg asks the view to re-read orchestrator state. The
// orchestrator's notify callback delivers it via Program.Send from the
// turn goroutine.
type RefreshMsg struct{}

type flashTickMsg struct{}

type AppView struct {
	orchestrator *agent.Orchestrator
	cfg          *config.Config
	sessions     *storage.SessionStorage
	session      *storage.Session
	version      string

	// UI components
	viewport       viewport.Model
	textarea       textarea.Model
	loadingSpinner spinner.Model

	// Window state
	width  int
	height int
	ready  bool

	showHelp bool
	flash    string

	// Session manager overlay
	showSessionManager   bool
	sessionList          []storage.SessionMetadata
	filteredSessionList  []storage.SessionMetadata
	selectedSessionIdx   int
	sessionFilterMode    bool
	sessionFilterInput   textinput.Model
	confirmDeleteSession *storage.SessionMetadata
}

// NewAppView creates the chat view bound to an orchestrator and the
// session it renders into.
func NewAppView(orchestrator *agent.Orchestrator, cfg *config.Config, sessions *storage.SessionStorage, session *storage.Session, version string) AppView {
	ta := textarea.New()
	ta.Placeholder = "Ask about your database..."
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accentColor)

	filter := textinput.New()
	filter.Placeholder = "filter sessions"
	filter.CharLimit = 64

	return AppView{
		orchestrator:       orchestrator,
		cfg:                cfg,
		sessions:           sessions,
		session:            session,
		version:            version,
		textarea:           ta,
		loadingSpinner:     sp,
		sessionFilterInput: filter,
	}
}

func (a AppView) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, a.loadingSpinner.Tick)
}

func (a AppView) View() string {
	if !a.ready {
		return "Initializing..."
	}

	if a.showHelp {
		return a.renderHelp()
	}
	if a.showSessionManager {
		return a.renderSessionManager()
	}
	if pending := a.orchestrator.PendingConfirmation(); pending != nil {
		return RenderConfirmationModal(pending, a.width, a.height)
	}

	header := a.renderHeader()
	status := a.renderStatusLine()

	return fmt.Sprintf("%s\n%s\n%s\n%s", header, a.viewport.View(), status, a.textarea.View())
}

func (a *AppView) renderHeader() string {
	title := TitleStyle.Render("Velo") + DimStyle.Render(" "+a.version)
	agentCfg := a.orchestrator.Config()
	info := DimStyle.Render(fmt.Sprintf("%s · %s · %s", agentCfg.Provider, agentCfg.Model, a.cfg.Database.Path))

	gap := a.width - lipgloss.Width(title) - lipgloss.Width(info)
	if gap < 1 {
		gap = 1
	}
	return title + strings.Repeat(" ", gap) + info
}

func (a *AppView) renderStatusLine() string {
	switch {
	case a.orchestrator.IsLoading():
		return a.loadingSpinner.View() + StatusStyle.Render(" thinking... (esc to stop)")
	case a.flash != "":
		return StatusStyle.Render(a.flash)
	default:
		if err := a.orchestrator.Err(); err != nil {
			return ToolErrorStyle.Render("error: " + err.Error())
		}
		return HelpStyle.Render(FormatFooter("Enter", "Send", "Ctrl+S", "Sessions", "Ctrl+H", "Help", "Ctrl+C", "Quit"))
	}
}

// viewportHeight is the space left for messages after the fixed chrome.
func (a *AppView) viewportHeight() int {
	h := a.height - 2 - a.textarea.Height() - 1
	if h < 1 {
		h = 1
	}
	return h
}
