package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentui/chat"
	"agentui/model"
	"agentui/storage"
)

const testUserID = "5f0c9a1e-7b2d-4c3a-9e8f-abcdef012345"

type fakeServer struct {
	mu      sync.Mutex
	history []chat.RawMessage
	sent    []chat.RawMessage
	fail    bool

	historyStatus int
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/agents/all_agents", func(w http.ResponseWriter, r *http.Request) {
		if f.fail {
			http.Error(w, `{"detail":"down"}`, http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode([]model.Agent{
			{ID: "1", Name: "WeatherAgent"},
			{ID: "2", Name: "SkyAgent"},
		})
	})
	mux.HandleFunc("/chats/get_chat", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.historyStatus != 0 {
			http.Error(w, "history store down", f.historyStatus)
			return
		}
		json.NewEncoder(w).Encode(f.history)
	})
	mux.HandleFunc("/chats/send_message", func(w http.ResponseWriter, r *http.Request) {
		var msg chat.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.sent = append(f.sent, msg)
		f.mu.Unlock()
		json.NewEncoder(w).Encode(model.Reply{AIResponse: "Sunny, 24C"})
	})
	return mux
}

// isolate points HOME at a temp dir, clears agentui env vars and starts a
// fake chat server.
func isolate(t *testing.T) (*fakeServer, string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, name := range []string{"AGENTUI_SERVER", "AGENTUI_USER_ID", "AGENTUI_TOKEN", "AGENTUI_DATA_DIR", "AGENTUI_DEBUG", "AGENTUI_TIMEOUT"} {
		t.Setenv(name, "")
	}

	fake := &fakeServer{}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return fake, srv.URL
}

func run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	cmd := newRootCmd()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	code := execute(cmd)
	return stdout.String(), stderr.String(), code
}

func TestVersionCmd(t *testing.T) {
	out, _, code := run(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "agentui "+Version)
}

func TestAgentsCmd(t *testing.T) {
	_, url := isolate(t)

	out, _, code := run(t, "agents", "--server", url, "--user", testUserID)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "WeatherAgent")
	assert.Contains(t, out, "SkyAgent")
}

func TestAgentsCmd_FallsBackToCache(t *testing.T) {
	fake, url := isolate(t)

	_, _, code := run(t, "agents", "--server", url, "--user", testUserID)
	require.Equal(t, 0, code)

	fake.fail = true
	out, errOut, code := run(t, "agents", "--server", url, "--user", testUserID)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "WeatherAgent")
	assert.Contains(t, errOut, "cached agents")
}

func TestAgentsCmd_ServerDownNoCache(t *testing.T) {
	fake, url := isolate(t)
	fake.fail = true

	_, errOut, code := run(t, "agents", "--server", url, "--user", testUserID)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "HTTP 503")
}

func TestAgentsCmd_RequiresUserID(t *testing.T) {
	_, url := isolate(t)

	_, errOut, code := run(t, "agents", "--server", url)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "user id is not set")
}

func TestHistoryCmd(t *testing.T) {
	fake, url := isolate(t)
	fake.history = []chat.RawMessage{
		{Sender: chat.SenderUser, MessageType: chat.MessageTypeText, MessageText: "Weather?", WasSent: "2024-05-01T10:00:00Z"},
		{Sender: chat.SenderAgent, MessageType: chat.MessageTypeText, MessageText: "Rain later", WasSent: "2024-05-01T10:00:05Z"},
	}

	out, _, code := run(t, "history", "--server", url, "--user", testUserID, "--agent", "weatheragent")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "You: Weather?")
	assert.Contains(t, out, "WeatherAgent: Rain later")
}

func TestHistoryCmd_UnknownAgent(t *testing.T) {
	_, url := isolate(t)

	_, errOut, code := run(t, "history", "--server", url, "--user", testUserID, "--agent", "Nobody")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, `agent "Nobody" not found`)
}

func TestHistoryCmd_LoadFailure(t *testing.T) {
	fake, url := isolate(t)
	fake.historyStatus = http.StatusInternalServerError

	out, errOut, code := run(t, "history", "--server", url, "--user", testUserID, "--agent", "1")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "Failed to load history")
	assert.Contains(t, errOut, "history not loaded")
}

func TestSendCmd(t *testing.T) {
	fake, url := isolate(t)

	out, _, code := run(t, "send", "--server", url, "--user", testUserID, "--agent", "1", "is", "it", "sunny?")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "You: is it sunny?")
	assert.Contains(t, out, "WeatherAgent: Sunny, 24C")

	require.Len(t, fake.sent, 1)
	assert.Equal(t, testUserID, fake.sent[0].UserID)
	assert.Equal(t, "1", fake.sent[0].AgentID)
	assert.Equal(t, "is it sunny?", fake.sent[0].Text)
}

func TestSendCmd_PersistsSelection(t *testing.T) {
	_, url := isolate(t)

	_, _, code := run(t, "send", "--server", url, "--user", testUserID, "--agent", "SkyAgent", "hi")
	require.Equal(t, 0, code)

	state, err := storage.NewStateStorage(filepath.Join(os.Getenv("HOME"), ".local", "share", "agentui"))
	require.NoError(t, err)
	id, err := state.LoadCurrentAgentID()
	require.NoError(t, err)
	assert.Equal(t, "2", id)
}

func TestExportCmd(t *testing.T) {
	fake, url := isolate(t)
	fake.history = []chat.RawMessage{
		{Sender: chat.SenderAgent, MessageType: chat.MessageTypeText, MessageText: "Hello"},
	}
	path := filepath.Join(t.TempDir(), "out.json")

	out, _, code := run(t, "export", "--server", url, "--user", testUserID, "--agent", "1", "--output", path)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Exported 1 messages")

	export, err := storage.LoadTranscriptExport(path)
	require.NoError(t, err)
	assert.Equal(t, "WeatherAgent", export.AgentName)
	require.Len(t, export.Records, 1)
	assert.Equal(t, chat.OriginAgent, export.Records[0].Origin)
}

func TestInitCmd_WritesUserConfig(t *testing.T) {
	_, url := isolate(t)
	dataDir := filepath.Join(t.TempDir(), "data")

	out, _, code := run(t, "init", "--server", url, "--user", testUserID, "--data-dir", dataDir)
	require.Equal(t, 0, code)
	assert.Contains(t, out, filepath.Join(dataDir, "config.toml"))
	assert.FileExists(t, filepath.Join(dataDir, "keybindings.toml"))

	// A later run picks the saved settings and directory up without flags
	out, _, code = run(t, "agents")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "WeatherAgent")
}
