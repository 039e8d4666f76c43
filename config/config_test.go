package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at a temp dir and clears agentui env vars.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, name := range []string{"AGENTUI_SERVER", "AGENTUI_USER_ID", "AGENTUI_TOKEN", "AGENTUI_DATA_DIR", "AGENTUI_DEBUG", "AGENTUI_TIMEOUT"} {
		t.Setenv(name, "")
	}
	return home
}

func TestLoad_FirstRunCreatesDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultServerURL, cfg.ServerURL)
	assert.Equal(t, 60*time.Second, cfg.Timeout())
	assert.Equal(t, "You", cfg.Labels.User)
	assert.FileExists(t, filepath.Join(home, ".config", "agentui", "settings.toml"))
	assert.FileExists(t, filepath.Join(cfg.DataDir(), "config.toml"))

	info, err := os.Stat(cfg.DataDir())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())

	// The template leaves the user id blank.
	assert.Error(t, cfg.Validate())
}

func TestLoad_UserConfig(t *testing.T) {
	isolate(t)
	dataDir := t.TempDir()
	t.Setenv("AGENTUI_DATA_DIR", dataDir)

	content := `
[server]
base_url = "https://chat.example.com"
token = "abc"
timeout_seconds = 5
send_path = "/v2/send"

[user]
id = "user-1"

[labels]
agent = "Bot"
`
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "config.toml"), []byte(content), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://chat.example.com", cfg.ServerURL)
	assert.Equal(t, "abc", cfg.Token)
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, "/v2/send", cfg.SendPath)
	assert.Equal(t, "", cfg.AgentsPath)
	assert.Equal(t, "user-1", cfg.UserID)
	assert.Equal(t, "Bot", cfg.Labels.Agent)
	assert.Equal(t, "You", cfg.Labels.User, "missing labels take defaults")
	assert.NoError(t, cfg.Validate())
}

func TestLoad_UnknownKeysRejected(t *testing.T) {
	isolate(t)
	dataDir := t.TempDir()
	t.Setenv("AGENTUI_DATA_DIR", dataDir)
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "config.toml"), []byte("[server]\nbase_ur = \"x\"\n"), 0600))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_EnvAndFlagPrecedence(t *testing.T) {
	isolate(t)
	t.Setenv("AGENTUI_DATA_DIR", t.TempDir())
	t.Setenv("AGENTUI_SERVER", "http://env:9000")
	t.Setenv("AGENTUI_USER_ID", "env-user")
	t.Setenv("AGENTUI_TIMEOUT", "7")
	t.Setenv("AGENTUI_DEBUG", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://env:9000", cfg.ServerURL)
	assert.Equal(t, "env-user", cfg.UserID)
	assert.Equal(t, 7*time.Second, cfg.Timeout())
	assert.True(t, cfg.Debug)

	cfg.ApplyOverrides(Overrides{ServerURL: "http://flag:1", Token: "t"})
	assert.Equal(t, "http://flag:1", cfg.ServerURL)
	assert.Equal(t, "env-user", cfg.UserID, "empty override keeps env value")
	assert.Equal(t, "t", cfg.Token)
}

func TestLoadWithOverrides_DataDir(t *testing.T) {
	isolate(t)
	envDir := t.TempDir()
	flagDir := filepath.Join(t.TempDir(), "flag")
	t.Setenv("AGENTUI_DATA_DIR", envDir)

	cfg, err := LoadWithOverrides(Overrides{DataDir: flagDir, UserID: "flag-user", Debug: true})
	require.NoError(t, err)
	assert.Equal(t, flagDir, cfg.DataDir())
	assert.Equal(t, "flag-user", cfg.UserID)
	assert.True(t, cfg.Debug)
	assert.FileExists(t, filepath.Join(flagDir, "config.toml"))
	assert.Equal(t, envDir, os.Getenv("AGENTUI_DATA_DIR"))
}

func TestSaveSystemConfig_SetsDataDirectory(t *testing.T) {
	isolate(t)
	dataDir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, SaveSystemConfig(&SystemConfig{DataDirectory: dataDir}))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, dataDir, cfg.DataDir())
}

func TestValidate(t *testing.T) {
	assert.Error(t, (&Config{UserID: "u"}).Validate())
	assert.Error(t, (&Config{ServerURL: "http://x"}).Validate())
	assert.Error(t, (&Config{ServerURL: "http://x", UserID: "  "}).Validate())
	assert.NoError(t, (&Config{ServerURL: "http://x", UserID: "u"}).Validate())
}

func TestSaveUserConfigRoundTrip(t *testing.T) {
	isolate(t)
	dataDir := t.TempDir()

	cfg := &Config{ServerURL: "http://saved", UserID: "u-9", TimeoutSeconds: 12}
	require.NoError(t, SaveUserConfig(cfg.UserConfig(), dataDir))

	info, err := os.Stat(filepath.Join(dataDir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	back, err := LoadUserConfig(dataDir)
	require.NoError(t, err)
	assert.Equal(t, "http://saved", back.Server.BaseURL)
	assert.Equal(t, "u-9", back.User.ID)
	assert.Equal(t, 12, back.Server.TimeoutSeconds)
	assert.Equal(t, "Agent", back.Labels.Agent)
}

func TestInitDebugLog(t *testing.T) {
	dir := t.TempDir()

	disabled := InitDebugLog(dir, false)
	disabled.Info().Msg("dropped")
	assert.NoFileExists(t, filepath.Join(dir, "debug.log"))

	logger := InitDebugLog(dir, true)
	logger.Info().Str("agent_id", "a1").Msg("hello")

	data, err := os.ReadFile(filepath.Join(dir, "debug.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"agent_id":"a1"`)
	assert.Contains(t, string(data), `"time"`)

	info, err := os.Stat(filepath.Join(dir, "debug.log"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	assert.Equal(t, "/home/tester/data", ExpandPath("~/data"))
	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, "/a/b", ExpandPath("/a/./b/"))
}
