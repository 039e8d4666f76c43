package model

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"agentui/chat"
	"agentui/storage"
)

// ExportTranscript writes the active transcript to path. An empty path
// picks a timestamped file in the Downloads directory.
func (s *Session) ExportTranscript(path string) tea.Cmd {
	if s.conv == nil || s.state == nil {
		return nil
	}
	agent := s.conv.Agent
	if path == "" {
		path = storage.GenerateExportPath("", agent.DisplayName(), s.now())
	}

	export := storage.TranscriptExport{
		AgentID:    agent.ID,
		AgentName:  agent.DisplayName(),
		UserID:     s.UserID,
		ExportedAt: s.now(),
		Records:    s.conv.Transcript.Records(),
	}
	state := s.state
	return func() tea.Msg {
		if err := state.ExportTranscript(export, path); err != nil {
			return TranscriptExportedMsg{Err: fmt.Errorf("failed to export transcript: %w", err)}
		}
		return TranscriptExportedMsg{Path: path}
	}
}

// TranscriptText renders records as plain text, one block per record.
func TranscriptText(records []chat.MessageRecord) string {
	var b strings.Builder
	for i, r := range records {
		if i > 0 {
			b.WriteString("\n")
		}
		if r.Timestamp != nil {
			b.WriteString(r.Timestamp.Local().Format("2006-01-02 15:04"))
			b.WriteString(" ")
		}
		b.WriteString(r.DisplayName)
		if r.Uncertain {
			b.WriteString(" (?)")
		}
		if r.SendFailed {
			b.WriteString(" (not delivered)")
		}
		b.WriteString(": ")
		b.WriteString(r.Content.String())
		b.WriteString("\n")
	}
	return b.String()
}

// LastAgentText returns the text of the most recent agent record.
func LastAgentText(records []chat.MessageRecord) (string, bool) {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Origin != chat.OriginAgent {
			continue
		}
		if text, ok := records[i].Content.Text(); ok {
			return text, true
		}
	}
	return "", false
}
