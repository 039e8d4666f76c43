package model

import (
	tea "github.com/charmbracelet/bubbletea"

	"agentui/chat"
)

// LoadHistory fetches the active conversation's history.
func (s *Session) LoadHistory() tea.Cmd {
	if s.conv == nil {
		return nil
	}
	conv := s.conv
	conv.loading = true

	transport := s.transport
	userID := s.UserID
	return func() tea.Msg {
		messages, err := transport.GetHistory(conv.ctx, userID, conv.Agent.ID)
		return HistoryLoadedMsg{
			ConversationID: conv.ID,
			AgentID:        conv.Agent.ID,
			Messages:       messages,
			Err:            err,
		}
	}
}

// HandleHistoryLoaded replaces the transcript with a loaded history page.
// Pages for an abandoned conversation are dropped and reported as false.
func (s *Session) HandleHistoryLoaded(msg HistoryLoadedMsg) bool {
	if s.conv == nil || msg.ConversationID != s.conv.ID {
		s.log.Debug().
			Str("conversation_id", msg.ConversationID).
			Str("agent_id", msg.AgentID).
			Msg("dropping history for stale conversation")
		return false
	}
	conv := s.conv
	conv.loading = false
	conv.loaded = true
	log := s.log.With().Str("agent_id", conv.Agent.ID).Logger()

	if msg.Err != nil {
		kind, status := ClassifyFailure(msg.Err)
		log.Error().
			Err(msg.Err).
			Str("kind", string(kind)).
			Int("status", status).
			Msg("history load failed")
		conv.Transcript.ReplaceAll([]chat.MessageRecord{
			chat.NewSystemRecord(s.Labels.System, DescribeFailure("load history", msg.Err), msg.Err.Error(), s.now()),
		})
	} else {
		records := recordsFrom(msg.Messages, s.identity(conv.Agent), log)
		conv.Transcript.ReplaceAll(records)
		log.Info().Int("count", len(records)).Msg("history loaded")
	}

	conv.Coordinator.Restore()
	return true
}
