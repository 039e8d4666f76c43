package chat

import (
	"time"
)

// Origin is the classified source of a message.
type Origin string

const (
	OriginUser    Origin = "USER"
	OriginAgent   Origin = "AGENT"
	OriginSystem  Origin = "SYSTEM"
	OriginUnknown Origin = "UNKNOWN"
)

// Labels are the display names attached to classified records.
type Labels struct {
	User    string `toml:"user" json:"user"`
	Agent   string `toml:"agent" json:"agent"`
	Unknown string `toml:"unknown" json:"unknown"`
	System  string `toml:"system" json:"system"`
}

// DefaultLabels returns the labels used when none are configured.
func DefaultLabels() Labels {
	return Labels{
		User:    "You",
		Agent:   "Agent",
		Unknown: "Unknown",
		System:  "System",
	}
}

// WithDefaults fills empty labels from DefaultLabels.
func (l Labels) WithDefaults() Labels {
	d := DefaultLabels()
	if l.User == "" {
		l.User = d.User
	}
	if l.Agent == "" {
		l.Agent = d.Agent
	}
	if l.Unknown == "" {
		l.Unknown = d.Unknown
	}
	if l.System == "" {
		l.System = d.System
	}
	return l
}

// Identity is the session context a raw message is classified against.
type Identity struct {
	LocalUserID     string
	ActiveAgentName string
	Labels          Labels
}

// MessageRecord is the only shape downstream components see.
type MessageRecord struct {
	Origin      Origin     `json:"origin"`
	DisplayName string     `json:"display_name"`
	Content     Content    `json:"content"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	Optimistic  bool       `json:"optimistic,omitempty"`

	// Uncertain marks records no classification rule matched.
	Uncertain bool `json:"uncertain,omitempty"`

	// SendFailed marks a local record whose send did not reach the agent.
	SendFailed bool `json:"send_failed,omitempty"`

	// Detail carries the underlying failure on SYSTEM error records.
	Detail string `json:"detail,omitempty"`
}

// NewRecord classifies raw and resolves its content.
func NewRecord(raw RawMessage, id Identity) MessageRecord {
	c := Classify(raw, id.LocalUserID, id.ActiveAgentName, id.Labels)
	return MessageRecord{
		Origin:      c.Origin,
		DisplayName: c.DisplayName,
		Content:     ResolveContent(raw),
		Timestamp:   raw.Timestamp(),
		Uncertain:   c.Uncertain,
	}
}

// NewSystemRecord builds a SYSTEM record. The classifier never produces these.
func NewSystemRecord(label, text, detail string, at time.Time) MessageRecord {
	if label == "" {
		label = DefaultLabels().System
	}
	ts := at
	return MessageRecord{
		Origin:      OriginSystem,
		DisplayName: label,
		Content:     TextContent(text),
		Timestamp:   &ts,
		Detail:      detail,
	}
}
