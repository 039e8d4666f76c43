package ui

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	appmodel "agentui/model"
)

// clipboardWrite is swapped out in tests.
var clipboardWrite = clipboard.WriteAll

// is reports whether msg is bound to action.
func (a AppView) is(msg tea.KeyMsg, action string) bool {
	return msg.String() == a.kb.GetActionKey(action)
}

func (a AppView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

		// Reserve space for title, separator, typing line, textarea (3 lines) and status bar
		viewportHeight := a.height - 7
		if viewportHeight < 1 {
			viewportHeight = 1
		}
		a.viewport.Width = a.width
		a.viewport.Height = viewportHeight
		a.textarea.SetWidth(a.width)

		a.ready = true
		a.updateViewportContent(true)
		return a, nil

	case spinner.TickMsg:
		// Let the spinner lapse once nothing is typing
		if !a.session.Indicator().Active() {
			a.spinning = false
			return a, nil
		}
		var cmd tea.Cmd
		a.typingSpinner, cmd = a.typingSpinner.Update(msg)
		return a, cmd

	case agentsLoadedMsg:
		cmd := a.session.Update(msg)
		a.refreshAgentFilter()
		switch {
		case msg.Err != nil && msg.Stale:
			a.setNotice(fmt.Sprintf("Server unreachable, showing %d cached agents", len(msg.Agents)), noticeError)
		case msg.Err != nil:
			a.setNotice(appmodel.DescribeFailure("load agents", msg.Err), noticeError)
		case cmd == nil && a.session.Conversation() == nil:
			a.setNotice(fmt.Sprintf("%d agents available. Press %s to choose one.", len(a.session.Agents), a.kb.DisplayActionKey("agent_selector")), noticeInfo)
		}
		a.updateViewportContent(true)
		return a, cmd

	case historyLoadedMsg:
		if a.session.HandleHistoryLoaded(msg) {
			a.updateViewportContent(true)
		}
		return a, nil

	case sendSettledMsg:
		if a.session.HandleSendSettled(msg) {
			a.updateViewportContent(true)
		}
		return a, nil

	case stateSavedMsg:
		return a, a.session.Update(msg)

	case transcriptExportedMsg:
		a.session.Update(msg)
		if msg.Err != nil {
			a.setNotice(msg.Err.Error(), noticeError)
		} else {
			a.setNotice("Transcript exported to "+msg.Path, noticeInfo)
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return a, cmd
}

func (a AppView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// PRIORITY 0: Always-global shortcuts
	if msg.String() == "ctrl+c" || a.is(msg, "quit") {
		a.Quitting = true
		a.session.Close()
		return a, tea.Quit
	}

	if a.is(msg, "help") || (a.showHelp && msg.String() == "esc") {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		return a, nil
	}

	if a.showAgentSelector {
		return a.handleAgentSelectorKeys(msg)
	}

	switch {
	case a.is(msg, "agent_selector"):
		return a.openAgentSelector()

	case a.is(msg, "send"):
		return a.submit()

	case a.is(msg, "reload_history"):
		cmd := a.session.LoadHistory()
		if cmd == nil {
			a.setNotice(appmodel.NoAgentGuidance, noticeInfo)
			return a, nil
		}
		a.setNotice("Reloading history...", noticeInfo)
		return a, cmd

	case a.is(msg, "yank_last_response"):
		text, ok := appmodel.LastAgentText(a.session.Records())
		if !ok {
			a.setNotice("Nothing to copy yet", noticeInfo)
			return a, nil
		}
		a.copyToClipboard(text, "Copied last response")
		return a, nil

	case a.is(msg, "yank_conversation"):
		records := a.session.Records()
		if len(records) == 0 {
			a.setNotice("Nothing to copy yet", noticeInfo)
			return a, nil
		}
		a.copyToClipboard(appmodel.TranscriptText(records), "Copied conversation")
		return a, nil

	case a.is(msg, "export_transcript"):
		cmd := a.session.ExportTranscript("")
		if cmd == nil {
			a.setNotice(appmodel.NoAgentGuidance, noticeInfo)
			return a, nil
		}
		a.setNotice("Exporting transcript...", noticeInfo)
		return a, cmd

	case a.is(msg, "clear_input"):
		a.textarea.Reset()
		return a, nil

	case a.is(msg, "scroll_down"):
		a.viewport.SetYOffset(a.viewport.YOffset + 1)
		return a, nil

	case a.is(msg, "scroll_up"):
		a.viewport.SetYOffset(a.viewport.YOffset - 1)
		return a, nil

	case a.is(msg, "page_down"):
		a.viewport.ViewDown()
		return a, nil

	case a.is(msg, "page_up"):
		a.viewport.ViewUp()
		return a, nil

	case a.is(msg, "scroll_to_top"):
		a.viewport.GotoTop()
		return a, nil

	case a.is(msg, "scroll_to_bottom"):
		a.viewport.GotoBottom()
		return a, nil
	}

	// Typing clears transient notices
	if a.notice.kind == noticeInfo {
		a.clearNotice()
	}

	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	return a, cmd
}

func (a AppView) submit() (tea.Model, tea.Cmd) {
	cmd, err := a.session.Submit(a.textarea.Value())
	switch {
	case errors.Is(err, appmodel.ErrNoActiveAgent):
		// Keep the draft so it can be sent after picking an agent
		a.setNotice(appmodel.NoAgentGuidance, noticeError)
		return a, nil
	case errors.Is(err, appmodel.ErrSendInFlight):
		a.setNotice("Still waiting for the previous reply...", noticeInfo)
		return a, nil
	case err != nil:
		a.setNotice(err.Error(), noticeError)
		return a, nil
	case cmd == nil:
		return a, nil
	}

	a.textarea.Reset()
	a.clearNotice()
	a.updateViewportContent(true)

	cmds := []tea.Cmd{cmd}
	if !a.spinning {
		a.spinning = true
		cmds = append(cmds, a.typingSpinner.Tick)
	}
	return a, tea.Batch(cmds...)
}

func (a *AppView) copyToClipboard(text, done string) {
	if err := clipboardWrite(text); err != nil {
		a.log.Warn().Err(err).Msg("clipboard write failed")
		a.setNotice("Clipboard unavailable: "+err.Error(), noticeError)
		return
	}
	a.setNotice(done, noticeInfo)
}

func (a AppView) openAgentSelector() (tea.Model, tea.Cmd) {
	a.closeAllModals()
	a.showAgentSelector = true
	a.selectedAgentIdx = 0

	// Start on the current agent
	if current, ok := a.session.ActiveAgent(); ok {
		for i, agent := range a.session.Agents {
			if agent.ID == current.ID {
				a.selectedAgentIdx = i
				break
			}
		}
	}

	if len(a.session.Agents) == 0 {
		return a, a.session.FetchAgents()
	}
	return a, nil
}

func (a AppView) getAgentList() []appmodel.Agent {
	if a.agentFilterMode {
		return a.filteredAgents
	}
	return a.session.Agents
}

// refreshAgentFilter reapplies the fuzzy filter over agent names.
func (a *AppView) refreshAgentFilter() {
	filterValue := a.agentFilterInput.Value()
	if filterValue == "" {
		a.filteredAgents = a.session.Agents
	} else {
		targets := make([]string, len(a.session.Agents))
		for i, agent := range a.session.Agents {
			targets[i] = agent.DisplayName()
		}

		matches := fuzzy.Find(filterValue, targets)
		a.filteredAgents = make([]appmodel.Agent, len(matches))
		for i, match := range matches {
			a.filteredAgents[i] = a.session.Agents[match.Index]
		}
	}

	list := a.getAgentList()
	if a.selectedAgentIdx >= len(list) {
		a.selectedAgentIdx = len(list) - 1
	}
	if a.selectedAgentIdx < 0 {
		a.selectedAgentIdx = 0
	}
}

func (a AppView) selectAgent() (tea.Model, tea.Cmd) {
	list := a.getAgentList()
	if a.selectedAgentIdx < 0 || a.selectedAgentIdx >= len(list) {
		return a, nil
	}
	agent := list[a.selectedAgentIdx]

	a.closeAllModals()
	a.agentFilterInput.SetValue("")
	a.clearNotice()
	a.spinning = false

	cmd := a.session.SelectAgent(agent)
	a.updateViewportContent(true)
	return a, cmd
}

func (a AppView) handleAgentSelectorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.agentFilterMode {
		switch {
		case msg.String() == "esc":
			a.agentFilterMode = false
			a.agentFilterInput.Blur()
			a.agentFilterInput.SetValue("")
			a.refreshAgentFilter()
			return a, nil
		case msg.String() == "enter":
			return a.selectAgent()
		case a.is(msg, "agent_down_filtered") || msg.String() == "down":
			if a.selectedAgentIdx < len(a.getAgentList())-1 {
				a.selectedAgentIdx++
			}
			return a, nil
		case a.is(msg, "agent_up_filtered") || msg.String() == "up":
			if a.selectedAgentIdx > 0 {
				a.selectedAgentIdx--
			}
			return a, nil
		}

		var cmd tea.Cmd
		a.agentFilterInput, cmd = a.agentFilterInput.Update(msg)
		a.refreshAgentFilter()
		return a, cmd
	}

	switch {
	case a.is(msg, "agent_filter"):
		a.agentFilterMode = true
		a.agentFilterInput.SetValue("")
		a.agentFilterInput.Focus()
		a.refreshAgentFilter()
		return a, textinput.Blink
	case msg.String() == "esc" || a.is(msg, "close_agent_selector"):
		a.closeAllModals()
		return a, nil
	case a.is(msg, "agent_down") || a.is(msg, "agent_down_arrow"):
		if a.selectedAgentIdx < len(a.getAgentList())-1 {
			a.selectedAgentIdx++
		}
		return a, nil
	case a.is(msg, "agent_up") || a.is(msg, "agent_up_arrow"):
		if a.selectedAgentIdx > 0 {
			a.selectedAgentIdx--
		}
		return a, nil
	case a.is(msg, "agent_refresh"):
		return a, a.session.FetchAgents()
	case msg.String() == "enter":
		return a.selectAgent()
	}

	return a, nil
}
