package model_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentui/chat"
	"agentui/model"
	"agentui/storage"
	"agentui/transport"
	"agentui/transport/testutil"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T, mock *testutil.MockTransport) *model.Session {
	t.Helper()
	s := model.NewSession(model.Options{
		UserID:    testutil.LocalUserID,
		Transport: mock,
		Logger:    zerolog.Nop(),
		Now:       func() time.Time { return fixedNow },
	})
	t.Cleanup(s.Close)
	return s
}

// selectAgent selects agent and applies its (empty by default) history.
func selectAgent(t *testing.T, s *model.Session, agent model.Agent) {
	t.Helper()
	s.RunSync(s.SelectAgent(agent))
	require.True(t, s.Conversation().Loaded())
}

func weather() model.Agent { return testutil.TestAgents()[0] }

func TestSession_SendSuccess(t *testing.T) {
	mock := testutil.NewMockTransport()
	mock.SendMessageFunc = func(ctx context.Context, msg chat.RawMessage) (*model.Reply, error) {
		return &model.Reply{AIResponse: "hello"}, nil
	}
	s := newTestSession(t, mock)
	selectAgent(t, s, weather())

	cmd, err := s.Submit("hi")
	require.NoError(t, err)
	require.NotNil(t, cmd)

	// Before settlement: one optimistic USER record and the indicator is up.
	records := s.Records()
	require.Len(t, records, 1)
	assert.Equal(t, chat.OriginUser, records[0].Origin)
	assert.True(t, records[0].Optimistic)
	assert.Equal(t, "hi", records[0].Content.String())
	assert.True(t, s.Indicator().Active())
	assert.Equal(t, model.SendOptimistic, s.Conversation().Coordinator.State())

	msg := cmd()
	assert.Nil(t, s.Update(msg))

	records = s.Records()
	require.Len(t, records, 2)
	assert.Equal(t, chat.OriginUser, records[0].Origin)
	assert.False(t, records[0].Optimistic)
	assert.False(t, records[0].SendFailed)
	assert.Equal(t, chat.OriginAgent, records[1].Origin)
	assert.Equal(t, "WeatherAgent", records[1].DisplayName)
	assert.Equal(t, "hello", records[1].Content.String())
	assert.False(t, s.Indicator().Active())

	coord := s.Conversation().Coordinator
	assert.Equal(t, model.SendIdle, coord.State())
	assert.Equal(t, model.SendReconciled, coord.LastOutcome().State)
	assert.True(t, coord.LastOutcome().AgentReplied)

	sent := mock.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, testutil.LocalUserID, sent[0].UserID)
	assert.Equal(t, "1", sent[0].AgentID)
	assert.Equal(t, chat.MessageTypeText, sent[0].MessageType)
	assert.Equal(t, "hi", sent[0].Text)
	assert.Equal(t, chat.FormatWasSent(fixedNow), sent[0].WasSent)
}

func TestSession_SendHTTPFailure(t *testing.T) {
	mock := testutil.NewMockTransport()
	mock.SendMessageFunc = func(ctx context.Context, msg chat.RawMessage) (*model.Reply, error) {
		return nil, &transport.HTTPError{Op: "send message", StatusCode: 500, Body: "boom"}
	}
	s := newTestSession(t, mock)
	selectAgent(t, s, weather())

	cmd, err := s.Submit("hi")
	require.NoError(t, err)
	s.RunSync(cmd)

	records := s.Records()
	require.Len(t, records, 2)
	assert.Equal(t, chat.OriginUser, records[0].Origin)
	assert.False(t, records[0].Optimistic)
	assert.True(t, records[0].SendFailed)

	assert.Equal(t, chat.OriginSystem, records[1].Origin)
	assert.Contains(t, records[1].Content.String(), "500")
	assert.Contains(t, records[1].Content.String(), "Failed to send message")
	assert.Contains(t, records[1].Detail, "boom")

	assert.False(t, s.Indicator().Active())
	coord := s.Conversation().Coordinator
	assert.Equal(t, model.SendIdle, coord.State())
	assert.Equal(t, model.SendFailed, coord.LastOutcome().State)
}

func TestSession_SendUnavailable(t *testing.T) {
	mock := testutil.NewMockTransport()
	mock.SendMessageFunc = func(ctx context.Context, msg chat.RawMessage) (*model.Reply, error) {
		return nil, &transport.UnavailableError{Op: "send message", Err: errors.New("connection refused")}
	}
	s := newTestSession(t, mock)
	selectAgent(t, s, weather())

	cmd, err := s.Submit("hi")
	require.NoError(t, err)
	s.RunSync(cmd)

	records := s.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "Failed to send message: server unreachable", records[1].Content.String())
	assert.False(t, s.Indicator().Active())
}

func TestSession_ReplyWithoutContent(t *testing.T) {
	mock := testutil.NewMockTransport()
	mock.SendMessageFunc = func(ctx context.Context, msg chat.RawMessage) (*model.Reply, error) {
		return &model.Reply{}, nil
	}
	s := newTestSession(t, mock)
	selectAgent(t, s, weather())

	cmd, err := s.Submit("hi")
	require.NoError(t, err)
	s.RunSync(cmd)

	records := s.Records()
	require.Len(t, records, 1)
	assert.False(t, records[0].Optimistic)
	assert.False(t, records[0].SendFailed)
	assert.Equal(t, model.SendReconciled, s.Conversation().Coordinator.LastOutcome().State)
	assert.False(t, s.Conversation().Coordinator.LastOutcome().AgentReplied)
}

func TestSession_ReplyTextFieldFallback(t *testing.T) {
	mock := testutil.NewMockTransport()
	mock.SendMessageFunc = func(ctx context.Context, msg chat.RawMessage) (*model.Reply, error) {
		return &model.Reply{Text: "from text"}, nil
	}
	s := newTestSession(t, mock)
	selectAgent(t, s, weather())

	cmd, err := s.Submit("hi")
	require.NoError(t, err)
	s.RunSync(cmd)

	records := s.Records()
	require.Len(t, records, 2)
	assert.Equal(t, chat.OriginAgent, records[1].Origin)
	assert.Equal(t, "from text", records[1].Content.String())
}

func TestSession_ReplyPrefersAIResponse(t *testing.T) {
	mock := testutil.NewMockTransport()
	mock.SendMessageFunc = func(ctx context.Context, msg chat.RawMessage) (*model.Reply, error) {
		return &model.Reply{AIResponse: "hello from agent", Text: "hi"}, nil
	}
	s := newTestSession(t, mock)
	selectAgent(t, s, weather())

	cmd, err := s.Submit("hi")
	require.NoError(t, err)
	s.RunSync(cmd)

	records := s.Records()
	require.Len(t, records, 2)
	assert.Equal(t, chat.OriginAgent, records[1].Origin)
	assert.Equal(t, chat.TextContent("hello from agent"), records[1].Content)
}

func TestSession_NoContentReplyReconciles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(transport.DefaultHistoryPath, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	})
	mux.HandleFunc(transport.DefaultSendPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := transport.NewClient(transport.Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	s := model.NewSession(model.Options{
		UserID:    testutil.LocalUserID,
		Transport: client,
		Logger:    zerolog.Nop(),
		Now:       func() time.Time { return fixedNow },
	})
	t.Cleanup(s.Close)
	selectAgent(t, s, weather())

	cmd, err := s.Submit("hi")
	require.NoError(t, err)
	s.RunSync(cmd)

	outcome := s.Conversation().Coordinator.LastOutcome()
	assert.Equal(t, model.SendReconciled, outcome.State)
	assert.False(t, outcome.AgentReplied)

	records := s.Records()
	require.Len(t, records, 1)
	assert.Equal(t, chat.OriginUser, records[0].Origin)
	assert.False(t, records[0].SendFailed)
	assert.False(t, records[0].Optimistic)
}

func TestSession_HistoryOrderPreserved(t *testing.T) {
	mock := testutil.NewMockTransport()
	mock.GetHistoryFunc = func(ctx context.Context, userID, agentID string) ([]chat.RawMessage, error) {
		return []chat.RawMessage{testutil.AgentImage("Zm9v"), testutil.UserText("hey")}, nil
	}
	s := newTestSession(t, mock)
	selectAgent(t, s, weather())

	records := s.Records()
	require.Len(t, records, 2)
	assert.Equal(t, chat.OriginAgent, records[0].Origin)
	img, ok := records[0].Content.Image()
	require.True(t, ok)
	assert.Equal(t, "Zm9v", img)
	assert.Equal(t, chat.OriginUser, records[1].Origin)
	assert.Equal(t, "hey", records[1].Content.String())

	calls := mock.HistoryCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, testutil.HistoryCall{UserID: testutil.LocalUserID, AgentID: "1"}, calls[0])
}

func TestSession_HistoryUnknownSender(t *testing.T) {
	mock := testutil.NewMockTransport()
	mock.GetHistoryFunc = func(ctx context.Context, userID, agentID string) ([]chat.RawMessage, error) {
		return []chat.RawMessage{testutil.Unclassifiable("who am i")}, nil
	}
	s := newTestSession(t, mock)
	selectAgent(t, s, weather())

	records := s.Records()
	require.Len(t, records, 1)
	assert.Equal(t, chat.OriginUnknown, records[0].Origin)
	assert.True(t, records[0].Uncertain)
	assert.Equal(t, "who am i", records[0].Content.String())
}

func TestSession_HistoryFailure(t *testing.T) {
	mock := testutil.NewMockTransport()
	mock.GetHistoryFunc = func(ctx context.Context, userID, agentID string) ([]chat.RawMessage, error) {
		return nil, &transport.HTTPError{Op: "get history", StatusCode: 503}
	}
	s := newTestSession(t, mock)
	selectAgent(t, s, weather())

	records := s.Records()
	require.Len(t, records, 1)
	assert.Equal(t, chat.OriginSystem, records[0].Origin)
	assert.Equal(t, "Failed to load history: server responded with HTTP 503", records[0].Content.String())
	assert.Len(t, mock.HistoryCalls(), 1, "no automatic retry")
}

func TestSession_DoubleSubmitIsNoOp(t *testing.T) {
	mock := testutil.NewMockTransport()
	s := newTestSession(t, mock)
	selectAgent(t, s, weather())

	first, err := s.Submit("one")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := s.Submit("two")
	assert.ErrorIs(t, err, model.ErrSendInFlight)
	assert.Nil(t, second)
	assert.Len(t, s.Records(), 1)

	s.RunSync(first)
	assert.Len(t, mock.Sent(), 1)
	assert.Len(t, s.Records(), 2)
}

func TestSession_SubmitWithoutAgent(t *testing.T) {
	mock := testutil.NewMockTransport()
	s := newTestSession(t, mock)

	cmd, err := s.Submit("hi")
	assert.ErrorIs(t, err, model.ErrNoActiveAgent)
	assert.Nil(t, cmd)
	assert.Empty(t, s.Records())
	assert.Empty(t, mock.Sent())
	assert.NotEmpty(t, model.NoAgentGuidance)
}

func TestSession_BlankSubmitIsNoOp(t *testing.T) {
	mock := testutil.NewMockTransport()
	s := newTestSession(t, mock)
	selectAgent(t, s, weather())

	for _, text := range []string{"", "   ", "\n\t"} {
		cmd, err := s.Submit(text)
		assert.NoError(t, err)
		assert.Nil(t, cmd)
	}
	assert.Empty(t, s.Records())
	assert.Empty(t, mock.Sent())
	assert.False(t, s.Indicator().Active())
}

func TestSession_AgentSwitchDropsStaleResults(t *testing.T) {
	mock := testutil.NewMockTransport()
	mock.GetHistoryFunc = func(ctx context.Context, userID, agentID string) ([]chat.RawMessage, error) {
		return []chat.RawMessage{testutil.AgentText("history of " + agentID)}, nil
	}
	s := newTestSession(t, mock)
	agents := testutil.TestAgents()
	selectAgent(t, s, agents[0])

	sendCmd, err := s.Submit("hi")
	require.NoError(t, err)
	staleHistory := s.LoadHistory()

	selectAgent(t, s, agents[1])
	assert.False(t, s.Indicator().Active())

	// Results produced for the first conversation arrive late.
	settled, ok := sendCmd().(model.SendSettledMsg)
	require.True(t, ok)
	assert.False(t, s.HandleSendSettled(settled))
	history, ok := staleHistory().(model.HistoryLoadedMsg)
	require.True(t, ok)
	assert.False(t, s.HandleHistoryLoaded(history))

	records := s.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "history of 2", records[0].Content.String())
	assert.Equal(t, "SkyAgent", records[0].DisplayName)

	active, ok := s.ActiveAgent()
	require.True(t, ok)
	assert.Equal(t, "2", active.ID)
}

func TestSession_AgentSwitchCancelsInFlightRequest(t *testing.T) {
	mock := testutil.NewMockTransport()
	var sendCtx context.Context
	mock.SendMessageFunc = func(ctx context.Context, msg chat.RawMessage) (*model.Reply, error) {
		sendCtx = ctx
		return nil, ctx.Err()
	}
	s := newTestSession(t, mock)
	agents := testutil.TestAgents()
	selectAgent(t, s, agents[0])

	cmd, err := s.Submit("hi")
	require.NoError(t, err)
	selectAgent(t, s, agents[1])

	msg := cmd().(model.SendSettledMsg)
	require.NotNil(t, sendCtx)
	assert.ErrorIs(t, sendCtx.Err(), context.Canceled)
	assert.ErrorIs(t, msg.Err, context.Canceled)
	assert.False(t, s.HandleSendSettled(msg))
}

func TestSession_ReloadDuringSendKeepsOptimisticRecord(t *testing.T) {
	mock := testutil.NewMockTransport()
	mock.GetHistoryFunc = func(ctx context.Context, userID, agentID string) ([]chat.RawMessage, error) {
		return []chat.RawMessage{testutil.AgentText("earlier")}, nil
	}
	s := newTestSession(t, mock)
	selectAgent(t, s, weather())

	sendCmd, err := s.Submit("hi")
	require.NoError(t, err)

	s.RunSync(s.LoadHistory())
	records := s.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "earlier", records[0].Content.String())
	assert.Equal(t, "hi", records[1].Content.String())
	assert.True(t, records[1].Optimistic)

	s.RunSync(sendCmd)
	records = s.Records()
	require.Len(t, records, 3)
	assert.False(t, records[1].Optimistic)
	assert.Equal(t, "Mock response", records[2].Content.String())
}

func TestSession_DuplicateSettlementIgnored(t *testing.T) {
	mock := testutil.NewMockTransport()
	s := newTestSession(t, mock)
	selectAgent(t, s, weather())

	cmd, err := s.Submit("hi")
	require.NoError(t, err)
	msg := cmd().(model.SendSettledMsg)

	assert.True(t, s.HandleSendSettled(msg))
	assert.False(t, s.HandleSendSettled(msg))
	assert.Len(t, s.Records(), 2)
}

func TestSession_FetchAgents(t *testing.T) {
	mock := testutil.NewMockTransport()
	s := newTestSession(t, mock)

	s.RunSync(s.FetchAgents())
	assert.Len(t, s.Agents, 3)
	assert.False(t, s.AgentsStale)
	assert.NoError(t, s.AgentsErr)
	assert.Equal(t, 1, mock.ListAgentsCalls())

	a, ok := s.FindAgent("skyagent")
	require.True(t, ok)
	assert.Equal(t, "2", a.ID)
	a, ok = s.FindAgent("3")
	require.True(t, ok)
	assert.Equal(t, "Travel Planner", a.Name)
	_, ok = s.FindAgent("nobody")
	assert.False(t, ok)
}

func TestSession_FetchAgentsFallsBackToCache(t *testing.T) {
	dir := t.TempDir()
	cache, err := storage.NewAgentCache(dir)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	mock := testutil.NewMockTransport()
	s := model.NewSession(model.Options{
		UserID:     testutil.LocalUserID,
		Transport:  mock,
		AgentCache: cache,
		Logger:     zerolog.Nop(),
	})
	t.Cleanup(s.Close)

	// A successful fetch fills the cache.
	s.RunSync(s.FetchAgents())
	require.Len(t, s.Agents, 3)

	mock.ListAgentsFunc = func(ctx context.Context) ([]model.Agent, error) {
		return nil, &transport.UnavailableError{Op: "list agents", Err: errors.New("refused")}
	}
	s.RunSync(s.FetchAgents())
	assert.True(t, s.AgentsStale)
	assert.Error(t, s.AgentsErr)
	require.Len(t, s.Agents, 3)
	assert.Equal(t, "WeatherAgent", s.Agents[0].Name)
}

func TestSession_FetchAgentsFailureWithoutCache(t *testing.T) {
	mock := testutil.NewMockTransport()
	mock.ListAgentsFunc = func(ctx context.Context) ([]model.Agent, error) {
		return nil, errors.New("boom")
	}
	s := newTestSession(t, mock)

	s.RunSync(s.FetchAgents())
	assert.Empty(t, s.Agents)
	assert.False(t, s.AgentsStale)
	assert.Error(t, s.AgentsErr)
}

func TestSession_FetchAgentsEmptyCacheIsNotStale(t *testing.T) {
	cache, err := storage.NewAgentCache(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	mock := testutil.NewMockTransport()
	mock.ListAgentsFunc = func(ctx context.Context) ([]model.Agent, error) {
		return nil, errors.New("boom")
	}
	s := model.NewSession(model.Options{
		UserID:     testutil.LocalUserID,
		Transport:  mock,
		AgentCache: cache,
		Logger:     zerolog.Nop(),
	})
	t.Cleanup(s.Close)

	s.RunSync(s.FetchAgents())
	assert.Empty(t, s.Agents)
	assert.False(t, s.AgentsStale)
	assert.Error(t, s.AgentsErr)
}

func TestSession_SkipRestore(t *testing.T) {
	state, err := storage.NewStateStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, state.SaveCurrentAgentID("3"))

	s := model.NewSession(model.Options{
		UserID:      testutil.LocalUserID,
		Transport:   testutil.NewMockTransport(),
		State:       state,
		Logger:      zerolog.Nop(),
		SkipRestore: true,
	})
	t.Cleanup(s.Close)

	s.RunSync(s.FetchAgents())
	require.Len(t, s.Agents, 3)
	_, ok := s.ActiveAgent()
	assert.False(t, ok)
}

func TestSession_RestoresLastAgent(t *testing.T) {
	state, err := storage.NewStateStorage(t.TempDir())
	require.NoError(t, err)
	mock := testutil.NewMockTransport()

	opts := model.Options{
		UserID:    testutil.LocalUserID,
		Transport: mock,
		State:     state,
		Logger:    zerolog.Nop(),
	}

	first := model.NewSession(opts)
	first.RunSync(first.SelectAgent(testutil.TestAgents()[2]))
	first.Close()

	id, err := state.LoadCurrentAgentID()
	require.NoError(t, err)
	assert.Equal(t, "3", id)

	second := model.NewSession(opts)
	t.Cleanup(second.Close)
	_, ok := second.ActiveAgent()
	assert.False(t, ok)

	second.RunSync(second.FetchAgents())
	active, ok := second.ActiveAgent()
	require.True(t, ok)
	assert.Equal(t, "3", active.ID)
	assert.True(t, second.Conversation().Loaded())
}

func TestSession_ExportTranscript(t *testing.T) {
	state, err := storage.NewStateStorage(t.TempDir())
	require.NoError(t, err)
	mock := testutil.NewMockTransport()
	mock.GetHistoryFunc = func(ctx context.Context, userID, agentID string) ([]chat.RawMessage, error) {
		return []chat.RawMessage{testutil.UserText("hey"), testutil.AgentText("hello")}, nil
	}
	s := model.NewSession(model.Options{
		UserID:    testutil.LocalUserID,
		Transport: mock,
		State:     state,
		Logger:    zerolog.Nop(),
	})
	t.Cleanup(s.Close)
	s.RunSync(s.SelectAgent(weather()))

	path := t.TempDir() + "/out.json"
	msg := s.ExportTranscript(path)()
	exported, ok := msg.(model.TranscriptExportedMsg)
	require.True(t, ok)
	require.NoError(t, exported.Err)
	assert.Equal(t, path, exported.Path)

	back, err := storage.LoadTranscriptExport(path)
	require.NoError(t, err)
	assert.Equal(t, "WeatherAgent", back.AgentName)
	require.Len(t, back.Records, 2)
	assert.Equal(t, chat.OriginUser, back.Records[0].Origin)
}

func TestSession_ExportWithoutConversation(t *testing.T) {
	s := newTestSession(t, testutil.NewMockTransport())
	assert.Nil(t, s.ExportTranscript(""))
}

func TestSession_UpdateIgnoresForeignMessages(t *testing.T) {
	s := newTestSession(t, testutil.NewMockTransport())
	assert.Nil(t, s.Update(tea.KeyMsg{}))
}

func TestTranscriptTextAndLastAgentText(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	records := []chat.MessageRecord{
		{Origin: chat.OriginAgent, DisplayName: "Sky", Content: chat.TextContent("first")},
		{Origin: chat.OriginUser, DisplayName: "You", Content: chat.TextContent("hi"), SendFailed: true, Timestamp: &at},
		{Origin: chat.OriginUnknown, DisplayName: "Unknown", Content: chat.EmptyContent(), Uncertain: true},
	}

	text := model.TranscriptText(records)
	assert.Contains(t, text, "Sky: first\n")
	assert.Contains(t, text, "You (not delivered): hi\n")
	assert.Contains(t, text, "Unknown (?): (empty message)\n")

	last, ok := model.LastAgentText(records)
	require.True(t, ok)
	assert.Equal(t, "first", last)

	_, ok = model.LastAgentText(records[1:])
	assert.False(t, ok)
}
