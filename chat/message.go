// Package chat holds the transcript data model and the pure functions that turn
// raw server or locally composed messages into records a renderer can display.
//
// Messages reach the client in three shapes:
//   - persisted history records (sender, message_text, message_image)
//   - freshly composed local records (user_id, text, image)
//   - freshly received agent replies (user_id = "agent_response", ai_response)
//
// RawMessage carries every field of every shape. Classify and ResolveContent
// pick the right ones so callers never need to know which path produced a
// record.
package chat

import (
	"strings"
	"time"
)

// Sender is the authoritative origin tag set by the server on persisted records.
type Sender string

const (
	SenderUser  Sender = "USER"
	SenderAgent Sender = "AGENT"
)

// MessageType is the declared payload kind of a message.
type MessageType string

const (
	MessageTypeText  MessageType = "TEXT"
	MessageTypeImage MessageType = "IMAGE"
)

// AgentResponseUserID tags freshly received agent replies before the server
// has persisted them in canonical form.
const AgentResponseUserID = "agent_response"

// RawMessage is the wire shape shared by history responses, outgoing sends and
// locally constructed records. Every field is optional.
type RawMessage struct {
	ID           string      `json:"id,omitempty"`
	Sender       Sender      `json:"sender,omitempty"`
	UserID       string      `json:"user_id,omitempty"`
	AgentID      string      `json:"agent_id,omitempty"`
	MessageType  MessageType `json:"message_type,omitempty"`
	MessageText  string      `json:"message_text,omitempty"`
	Text         string      `json:"text,omitempty"`
	MessageImage string      `json:"message_image,omitempty"`
	Image        string      `json:"image,omitempty"`
	AIResponse   string      `json:"ai_response,omitempty"`
	WasSent      string      `json:"was_sent,omitempty"`
}

// The backend serializes naive UTC datetimes without a zone suffix.
var wasSentLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp parses WasSent. Absent or unparsable values yield nil; timestamps
// are for display only.
func (r RawMessage) Timestamp() *time.Time {
	value := strings.TrimSpace(r.WasSent)
	if value == "" {
		return nil
	}
	for _, layout := range wasSentLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

// IsType reports whether the declared message type matches, ignoring case.
func (r RawMessage) IsType(t MessageType) bool {
	return strings.EqualFold(strings.TrimSpace(string(r.MessageType)), string(t))
}

// ImagePayload returns the first non-empty image field.
func (r RawMessage) ImagePayload() string {
	if r.MessageImage != "" {
		return r.MessageImage
	}
	return r.Image
}

// FormatWasSent renders t the way the backend expects was_sent.
func FormatWasSent(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
