package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"agentui/chat"
)

// StateStorage keeps small pieces of client state under the data directory.
type StateStorage struct {
	dataDir string
}

// TranscriptExport is the on-disk shape of an exported conversation.
type TranscriptExport struct {
	AgentID    string               `json:"agent_id"`
	AgentName  string               `json:"agent_name"`
	UserID     string               `json:"user_id"`
	ExportedAt time.Time            `json:"exported_at"`
	Records    []chat.MessageRecord `json:"records"`
}

// NewStateStorage creates the data directory if needed.
func NewStateStorage(dataDir string) (*StateStorage, error) {
	// 0700 - user-only access
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &StateStorage{
		dataDir: dataDir,
	}, nil
}

// DataDir returns the directory state is stored in.
func (s *StateStorage) DataDir() string {
	return s.dataDir
}

// SaveCurrentAgentID saves the ID of the selected agent
func (s *StateStorage) SaveCurrentAgentID(id string) error {
	path := filepath.Join(s.dataDir, "current_agent.id")
	if err := os.WriteFile(path, []byte(id), 0600); err != nil {
		return fmt.Errorf("failed to write current agent: %w", err)
	}
	return nil
}

// LoadCurrentAgentID loads the ID of the last selected agent
func (s *StateStorage) LoadCurrentAgentID() (string, error) {
	path := filepath.Join(s.dataDir, "current_agent.id")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// ExportTranscript writes the export as indented JSON at exportPath
func (s *StateStorage) ExportTranscript(export TranscriptExport, exportPath string) error {
	if export.ExportedAt.IsZero() {
		export.ExportedAt = time.Now()
	}
	if export.Records == nil {
		export.Records = []chat.MessageRecord{}
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	// Ensure directory exists (0700 - user-only access)
	dir := filepath.Dir(exportPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to file (0600 - transcripts contain conversation data)
	if err := os.WriteFile(exportPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// LoadTranscriptExport reads a file written by ExportTranscript
func LoadTranscriptExport(path string) (*TranscriptExport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript export: %w", err)
	}

	var export TranscriptExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript export: %w", err)
	}

	return &export, nil
}

// SanitizeFilename removes or replaces characters that are invalid in filenames
func SanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-", "?", "-",
		"\"", "-", "<", "-", ">", "-", "|", "-", " ", "-",
		"\n", "-", "\r", "-",
	)
	name = replacer.Replace(name)

	// Remove leading/trailing hyphens and dots
	name = strings.Trim(name, "-.")

	if len(name) > 50 {
		name = name[:50]
	}

	if name == "" {
		name = "conversation"
	}

	return name
}

// GenerateExportPath generates a default export path under dir (Downloads when empty)
func GenerateExportPath(dir, agentName string, now time.Time) string {
	if dir == "" {
		homeDir := os.Getenv("HOME")
		if homeDir == "" {
			homeDir = os.Getenv("USERPROFILE") // Windows fallback
		}
		dir = filepath.Join(homeDir, "Downloads")
	}

	filename := fmt.Sprintf("agentui-%s-%s.json", SanitizeFilename(agentName), now.Format("20060102-150405"))
	return filepath.Join(dir, filename)
}
