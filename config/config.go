package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"agentui/chat"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type ServerConfig struct {
	BaseURL        string `toml:"base_url"`
	Token          string `toml:"token,omitempty"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	AgentsPath     string `toml:"agents_path,omitempty"`
	HistoryPath    string `toml:"history_path,omitempty"`
	SendPath       string `toml:"send_path,omitempty"`
}

type UserSection struct {
	ID string `toml:"id"`
}

type UserConfig struct {
	Server ServerConfig `toml:"server"`
	User   UserSection  `toml:"user"`
	Labels chat.Labels  `toml:"labels"`
}

type Config struct {
	DataDirectory  string
	ServerURL      string
	Token          string
	TimeoutSeconds int
	AgentsPath     string
	HistoryPath    string
	SendPath       string
	UserID         string
	Labels         chat.Labels
	Debug          bool
}

// Overrides are values set on the command line. Empty fields are ignored.
type Overrides struct {
	// DataDir is only honored by LoadWithOverrides, since it decides which
	// config.toml is read.
	DataDir   string
	ServerURL string
	UserID    string
	Token     string
	Debug     bool
}

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return time.Duration(DefaultTimeoutSeconds) * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate reports settings the client cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ServerURL) == "" {
		return fmt.Errorf("server URL is not set (use --server, AGENTUI_SERVER or [server] base_url)")
	}
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("user id is not set (use --user, AGENTUI_USER_ID or [user] id)")
	}
	return nil
}

func (c *Config) applyUserConfig(userCfg *UserConfig) {
	c.ServerURL = userCfg.Server.BaseURL
	c.Token = userCfg.Server.Token
	c.TimeoutSeconds = userCfg.Server.TimeoutSeconds
	c.AgentsPath = userCfg.Server.AgentsPath
	c.HistoryPath = userCfg.Server.HistoryPath
	c.SendPath = userCfg.Server.SendPath
	c.UserID = userCfg.User.ID
	c.Labels = userCfg.Labels.WithDefaults()
}

func (c *Config) applyEnvOverrides() {
	if server := os.Getenv("AGENTUI_SERVER"); server != "" {
		c.ServerURL = server
	}
	if userID := os.Getenv("AGENTUI_USER_ID"); userID != "" {
		c.UserID = userID
	}
	if token := os.Getenv("AGENTUI_TOKEN"); token != "" {
		c.Token = token
	}
	if timeout := os.Getenv("AGENTUI_TIMEOUT"); timeout != "" {
		if secs, err := strconv.Atoi(timeout); err == nil && secs > 0 {
			c.TimeoutSeconds = secs
		}
	}
	if CheckDebug() {
		c.Debug = true
	}
}

// ApplyOverrides layers command-line values over file and env settings.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.ServerURL != "" {
		c.ServerURL = o.ServerURL
	}
	if o.UserID != "" {
		c.UserID = o.UserID
	}
	if o.Token != "" {
		c.Token = o.Token
	}
	if o.Debug {
		c.Debug = true
	}
}

// UserConfig returns the file representation of c.
func (c *Config) UserConfig() *UserConfig {
	return &UserConfig{
		Server: ServerConfig{
			BaseURL:        c.ServerURL,
			Token:          c.Token,
			TimeoutSeconds: c.TimeoutSeconds,
			AgentsPath:     c.AgentsPath,
			HistoryPath:    c.HistoryPath,
			SendPath:       c.SendPath,
		},
		User:   UserSection{ID: c.UserID},
		Labels: c.Labels,
	}
}

func CheckDebug() bool {
	debug := os.Getenv("AGENTUI_DEBUG")
	return debug == "true" || debug == "1"
}

// InitDebugLog returns a JSON logger writing to <dataDir>/debug.log when
// enabled, and a no-op logger otherwise.
func InitDebugLog(dataDir string, enabled bool) zerolog.Logger {
	if !enabled {
		return zerolog.Nop()
	}

	logPath := filepath.Join(dataDir, "debug.log")

	// Create debug log with secure permissions (0600 - may contain sensitive debug info)
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return zerolog.Nop()
	}

	logger := zerolog.New(f).With().Timestamp().Str("component", "agentui").Logger()
	logger.Info().Str("path", logPath).Msg("debug logging started")
	return logger
}

// Load reads settings.toml and <data_dir>/config.toml, creating commented
// defaults on first run, then applies environment overrides.
func Load() (*Config, error) {
	return LoadWithOverrides(Overrides{})
}

// LoadWithOverrides is Load with command-line values layered over env and
// file settings.
func LoadWithOverrides(o Overrides) (*Config, error) {
	cfg := &Config{
		DataDirectory:  GetDefaultDataDir(),
		ServerURL:      DefaultServerURL,
		TimeoutSeconds: DefaultTimeoutSeconds,
		Labels:         chat.DefaultLabels(),
	}

	systemCfg, err := LoadSystemConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}
	if systemCfg.DataDirectory != "" {
		cfg.DataDirectory = systemCfg.DataDirectory
	}
	if dataDir := os.Getenv("AGENTUI_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
	}
	if o.DataDir != "" {
		cfg.DataDirectory = o.DataDir
	}

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Ensure data directory has correct permissions (fix if needed)
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	cfg.applyUserConfig(userCfg)
	cfg.applyEnvOverrides()
	cfg.ApplyOverrides(o)

	return cfg, nil
}
