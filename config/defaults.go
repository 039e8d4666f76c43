package config

import "agentui/chat"

const (
	DefaultServerURL      = "http://localhost:8000"
	DefaultTimeoutSeconds = 60
)

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/agentui",
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Server: ServerConfig{
			BaseURL:        DefaultServerURL,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		Labels: chat.DefaultLabels(),
	}
}

func GenerateSystemConfigTemplate() string {
	return `# agentui System Configuration
# Location: ~/.config/agentui/settings.toml
# This file uses TOML format: https://toml.io

# Directory where user config, the agent cache and debug logs are stored
data_directory = "~/.local/share/agentui"
`
}

func GenerateUserConfigTemplate() string {
	return `# agentui User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

[server]
# Base URL of the chat backend
base_url = "http://localhost:8000"

# Bearer token sent with every request (optional)
# token = ""

# Request timeout in seconds
timeout_seconds = 60

# Route overrides (optional)
# agents_path = "/agents/all_agents"
# history_path = "/chats/get_chat"
# send_path = "/chats/send_message"

[user]
# Your user id on the backend. Messages carrying this id are shown as yours.
id = ""

[labels]
# Display names used in the transcript
user = "You"
agent = "Agent"
unknown = "Unknown"
system = "System"
`
}
