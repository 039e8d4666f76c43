package testutil

import (
	"agentui/chat"
	"agentui/model"
)

// LocalUserID is the user the fixtures are written for.
const LocalUserID = "5f0c9a1e-7b2d-4c3a-9e8f-abcdef012345"

// TestAgents returns a small agent directory
func TestAgents() []model.Agent {
	return []model.Agent{
		{ID: "1", Name: "WeatherAgent", SystemPrompt: "You report the weather."},
		{ID: "2", Name: "SkyAgent"},
		{ID: "3", Name: "Travel Planner"},
	}
}

// UserText is a message the local user sent.
func UserText(text string) chat.RawMessage {
	return chat.RawMessage{
		Sender:      chat.SenderUser,
		UserID:      LocalUserID,
		AgentID:     "1",
		MessageType: chat.MessageTypeText,
		MessageText: text,
		WasSent:     "2024-05-01T10:00:00Z",
	}
}

// AgentText is an agent reply tagged with the sender field.
func AgentText(text string) chat.RawMessage {
	return chat.RawMessage{
		Sender:      chat.SenderAgent,
		AgentID:     "1",
		MessageType: chat.MessageTypeText,
		MessageText: text,
		WasSent:     "2024-05-01T10:00:05Z",
	}
}

// AgentImage is an agent reply carrying a base64 image.
func AgentImage(payload string) chat.RawMessage {
	return chat.RawMessage{
		Sender:       chat.SenderAgent,
		AgentID:      "1",
		MessageType:  chat.MessageTypeImage,
		MessageImage: payload,
		WasSent:      "2024-05-01T10:00:10Z",
	}
}

// SentinelReply is a reply identified only by the agent_response user id.
func SentinelReply(text string) chat.RawMessage {
	return chat.RawMessage{
		UserID:     chat.AgentResponseUserID,
		AgentID:    "1",
		AIResponse: text,
	}
}

// Unclassifiable carries neither a sender nor a known user id.
func Unclassifiable(text string) chat.RawMessage {
	return chat.RawMessage{
		UserID: "someone-else",
		Text:   text,
	}
}
