package model

import (
	"agentui/chat"
)

// AgentsLoadedMsg reports the agent directory fetch.
type AgentsLoadedMsg struct {
	Agents []Agent
	Err    error
	// Stale is set when Agents came from the local cache after Err.
	Stale bool
}

// HistoryLoadedMsg reports a history fetch for one conversation.
type HistoryLoadedMsg struct {
	ConversationID string
	AgentID        string
	Messages       []chat.RawMessage
	Err            error
}

// SendSettledMsg reports the settlement of one outgoing message.
type SendSettledMsg struct {
	ConversationID string
	SendID         string
	Reply          *Reply
	Err            error
}

// TranscriptExportedMsg reports a transcript export.
type TranscriptExportedMsg struct {
	Path string
	Err  error
}

// StateSavedMsg reports persisting the selected agent.
type StateSavedMsg struct {
	Err error
}
