package testutil

import (
	"context"
	"sync"

	"agentui/chat"
	"agentui/model"
)

// HistoryCall records one GetHistory invocation.
type HistoryCall struct {
	UserID  string
	AgentID string
}

// MockTransport implements model.Transport for testing
type MockTransport struct {
	// Configurable responses
	ListAgentsFunc  func(ctx context.Context) ([]model.Agent, error)
	GetHistoryFunc  func(ctx context.Context, userID, agentID string) ([]chat.RawMessage, error)
	SendMessageFunc func(ctx context.Context, msg chat.RawMessage) (*model.Reply, error)

	mu           sync.Mutex
	agentCalls   int
	historyCalls []HistoryCall
	sent         []chat.RawMessage
}

// NewMockTransport creates a mock transport with default implementations
func NewMockTransport() *MockTransport {
	mock := &MockTransport{}
	mock.ListAgentsFunc = mock.defaultListAgents
	mock.GetHistoryFunc = mock.defaultGetHistory
	mock.SendMessageFunc = mock.defaultSendMessage
	return mock
}

func (m *MockTransport) defaultListAgents(ctx context.Context) ([]model.Agent, error) {
	return TestAgents(), nil
}

func (m *MockTransport) defaultGetHistory(ctx context.Context, userID, agentID string) ([]chat.RawMessage, error) {
	return nil, nil
}

func (m *MockTransport) defaultSendMessage(ctx context.Context, msg chat.RawMessage) (*model.Reply, error) {
	// Default: echo back a mock response
	return &model.Reply{AIResponse: "Mock response"}, nil
}

func (m *MockTransport) ListAgents(ctx context.Context) ([]model.Agent, error) {
	m.mu.Lock()
	m.agentCalls++
	m.mu.Unlock()
	return m.ListAgentsFunc(ctx)
}

func (m *MockTransport) GetHistory(ctx context.Context, userID, agentID string) ([]chat.RawMessage, error) {
	m.mu.Lock()
	m.historyCalls = append(m.historyCalls, HistoryCall{UserID: userID, AgentID: agentID})
	m.mu.Unlock()
	return m.GetHistoryFunc(ctx, userID, agentID)
}

func (m *MockTransport) SendMessage(ctx context.Context, msg chat.RawMessage) (*model.Reply, error) {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	return m.SendMessageFunc(ctx, msg)
}

// ListAgentsCalls returns how many times ListAgents was called.
func (m *MockTransport) ListAgentsCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.agentCalls
}

// HistoryCalls returns the recorded GetHistory calls.
func (m *MockTransport) HistoryCalls() []HistoryCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]HistoryCall(nil), m.historyCalls...)
}

// Sent returns every message passed to SendMessage.
func (m *MockTransport) Sent() []chat.RawMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]chat.RawMessage(nil), m.sent...)
}
