package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"

	"agentui/config"
	appmodel "agentui/model"
)

type AppView struct {
	// Reference to core data model
	session *appmodel.Session
	kb      *config.KeyBindingsConfig
	log     zerolog.Logger
	version string

	// UI Components
	viewport viewport.Model
	textarea textarea.Model

	// Window state
	width  int
	height int
	ready  bool

	showHelp bool

	// Typing indicator spinner (bubbles/spinner)
	typingSpinner spinner.Model
	spinning      bool

	// Agent selector
	showAgentSelector bool
	selectedAgentIdx  int
	agentFilterMode   bool
	agentFilterInput  textinput.Model
	filteredAgents    []appmodel.Agent

	// Status line notice; never part of the transcript
	notice notice

	// Rendered markdown keyed by width and source text
	mdCache map[string]string

	Quitting bool
}

func NewAppView(session *appmodel.Session, kb *config.KeyBindingsConfig, log zerolog.Logger, version string) AppView {
	if kb == nil {
		kb = config.DefaultKeybindings()
	}

	ta := textarea.New()
	ta.Placeholder = fmt.Sprintf("Type your message here (%s for a new line)...", kb.DisplayActionKey("newline"))
	ta.Focus()
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.SetWidth(80)

	// Custom KeyMap: Alt+Enter for newline, Enter alone is handled as send
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys(kb.GetActionKey("newline")))

	// Set dynamic prompt: "> " for first line, "| " for subsequent lines
	ta.SetPromptFunc(2, func(lineIdx int) string {
		if lineIdx == 0 {
			return "> "
		}
		return "| "
	})

	agentFilterInput := textinput.New()
	agentFilterInput.Prompt = "Filter: "
	agentFilterInput.CharLimit = 64

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accentColor)

	return AppView{
		session:          session,
		kb:               kb,
		log:              log,
		version:          version,
		textarea:         ta,
		viewport:         viewport.New(0, 0),
		typingSpinner:    sp,
		agentFilterInput: agentFilterInput,
		mdCache:          make(map[string]string),
	}
}

func (a AppView) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		a.session.FetchAgents(),
	)
}

func (a AppView) View() string {
	if !a.ready {
		return "Loading agentui..."
	}

	// Help sits above the selector so it can be peeked at from anywhere
	if a.showHelp {
		return a.renderHelpModal(a.width, a.height)
	}

	if a.showAgentSelector {
		current := ""
		if agent, ok := a.session.ActiveAgent(); ok {
			current = agent.ID
		}
		return renderAgentSelector(a.session.Agents, a.selectedAgentIdx, current, a.session.AgentsStale, a.agentFilterMode, a.agentFilterInput, a.filteredAgents, a.width, a.height)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		a.renderTitle(),
		"",
		a.viewport.View(),
		a.renderTypingLine(),
		a.textarea.View(),
		a.renderStatusBar(),
	)
}

func (a AppView) renderTitle() string {
	appText := AgentStyle.Render("agentui")
	agentText := DimStyle.Render(" - no agent selected")
	if agent, ok := a.session.ActiveAgent(); ok {
		maxName := a.width - 40
		if maxName < 10 {
			maxName = 10
		}
		agentText = UserStyle.Render(" - " + runewidth.Truncate(agent.DisplayName(), maxName, "…"))
	}
	staleText := ""
	if a.session.AgentsStale {
		staleText = DimStyle.Render(" | offline (cached agents)")
	}
	return appText + agentText + staleText
}

func (a AppView) renderTypingLine() string {
	if !a.session.Indicator().Active() {
		return ""
	}
	name := "Agent"
	if agent, ok := a.session.ActiveAgent(); ok {
		name = agent.DisplayName()
	}
	line := name + " is typing..."
	if elapsed := typingElapsed(a.session.Indicator(), time.Now()); elapsed != "" {
		line += " " + elapsed
	}
	return fmt.Sprintf("%s %s", a.typingSpinner.View(), DimStyle.Render(line))
}

// typingElapsed renders how long the indicator has been up, from 2s on.
func typingElapsed(ind *appmodel.TypingIndicator, now time.Time) string {
	if !ind.Active() || ind.Since().IsZero() {
		return ""
	}
	elapsed := now.Sub(ind.Since()).Truncate(time.Second)
	if elapsed < 2*time.Second {
		return ""
	}
	return "(" + elapsed.String() + ")"
}

func (a AppView) renderStatusBar() string {
	if a.notice.text != "" {
		line := runewidth.Truncate(a.notice.text, a.width, "…")
		if a.notice.kind == noticeError {
			return DangerStyle.Render(line)
		}
		return SelectedStyle.Render(line)
	}

	// Status bar with bold user green descriptions (main chat uses user green)
	descStyle := lipgloss.NewStyle().Foreground(successColor).Bold(true)
	statusBar := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  Enter %s  %s %s",
		a.kb.DisplayActionKey("quit"), descStyle.Render("Quit"),
		a.kb.DisplayActionKey("agent_selector"), descStyle.Render("Agents"),
		a.kb.DisplayActionKey("reload_history"), descStyle.Render("Reload"),
		a.kb.DisplayActionKey("newline"), descStyle.Render("New Line"),
		descStyle.Render("Send"),
		a.kb.DisplayActionKey("help"), descStyle.Render("Help"),
	)
	return StatusStyle.Render(statusBar)
}

func (a *AppView) setNotice(text string, kind noticeKind) {
	a.notice = notice{text: text, kind: kind}
}

func (a *AppView) clearNotice() {
	a.notice = notice{}
}

func (a *AppView) closeAllModals() {
	a.showHelp = false
	a.showAgentSelector = false
	a.agentFilterMode = false
	if a.agentFilterInput.Focused() {
		a.agentFilterInput.Blur()
	}
}
