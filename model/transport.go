package model

import (
	"context"
	"strings"

	"agentui/chat"
)

// Transport abstracts the chat backend.
//
// This interface is defined in the model package (not transport package) to
// avoid import cycles: the HTTP client imports model for Agent and Reply, and
// model uses Transport without importing the client.
type Transport interface {
	// ListAgents returns the agents the user can talk to.
	ListAgents(ctx context.Context) ([]Agent, error)

	// GetHistory returns the persisted conversation between userID and agentID
	// in server order.
	GetHistory(ctx context.Context, userID, agentID string) ([]chat.RawMessage, error)

	// SendMessage delivers one composed message and returns the agent's reply.
	SendMessage(ctx context.Context, msg chat.RawMessage) (*Reply, error)
}

// Agent is one entry of the agent directory.
type Agent struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// DisplayName returns Name, falling back to ID.
func (a Agent) DisplayName() string {
	if strings.TrimSpace(a.Name) != "" {
		return a.Name
	}
	return a.ID
}

// Reply is the send response. Either field may carry the agent text.
type Reply struct {
	AIResponse string `json:"ai_response,omitempty"`
	Text       string `json:"text,omitempty"`
}

// Content returns the agent text, preferring ai_response over text.
func (r *Reply) Content() string {
	if r == nil {
		return ""
	}
	if r.AIResponse != "" {
		return r.AIResponse
	}
	return r.Text
}

// Usable reports whether the reply carries any agent text.
func (r *Reply) Usable() bool {
	return r != nil && (r.AIResponse != "" || r.Text != "")
}
