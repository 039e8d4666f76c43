package model

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"agentui/chat"
	"agentui/storage"
)

// Options configures a Session. Transport and UserID are required; the
// storage fields may be nil.
type Options struct {
	UserID     string
	Labels     chat.Labels
	Transport  Transport
	State      *storage.StateStorage
	AgentCache *storage.AgentCache
	Logger     zerolog.Logger
	// SkipRestore leaves the persisted agent unselected when the directory
	// loads. One-shot commands name their agent explicitly.
	SkipRestore bool
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// Conversation is one agent's transcript plus the send coordinator that
// writes to it. A new Conversation is built on every agent switch so results
// of the previous one can be told apart by ID.
type Conversation struct {
	ID          string
	Agent       Agent
	Transcript  *chat.Transcript
	Coordinator *SendCoordinator

	indicator *TypingIndicator
	ctx       context.Context
	cancel    context.CancelFunc
	loading   bool
	loaded    bool
}

// Loading reports whether a history fetch for this conversation is pending.
func (c *Conversation) Loading() bool {
	return c.loading
}

// Loaded reports whether history has been applied at least once.
func (c *Conversation) Loaded() bool {
	return c.loaded
}

func (c *Conversation) close() {
	c.Coordinator.Abandon()
	c.cancel()
}

// Session owns the local user, the agent directory, and the current
// conversation. Every method must be called from the event loop.
type Session struct {
	UserID string
	Labels chat.Labels

	// Agent directory from the last fetch. AgentsStale is set when it came
	// from the local cache because the server could not be reached.
	Agents      []Agent
	AgentsStale bool
	AgentsErr   error

	transport  Transport
	state      *storage.StateStorage
	agentCache *storage.AgentCache
	log        zerolog.Logger
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	conv   *Conversation

	lastAgentID string
}

// NewSession creates a Session with no active conversation. The previously
// selected agent, if persisted, is reselected once the directory loads.
func NewSession(opts Options) *Session {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		UserID:     opts.UserID,
		Labels:     opts.Labels.WithDefaults(),
		transport:  opts.Transport,
		state:      opts.State,
		agentCache: opts.AgentCache,
		log:        opts.Logger,
		now:        now,
		ctx:        ctx,
		cancel:     cancel,
	}

	if s.state != nil && !opts.SkipRestore {
		if id, err := s.state.LoadCurrentAgentID(); err == nil && id != "" {
			s.lastAgentID = id
			s.log.Debug().Str("agent_id", id).Msg("restoring last selected agent")
		}
	}

	return s
}

// Conversation returns the active conversation, or nil before an agent is
// selected.
func (s *Session) Conversation() *Conversation {
	return s.conv
}

// ActiveAgent returns the selected agent.
func (s *Session) ActiveAgent() (Agent, bool) {
	if s.conv == nil {
		return Agent{}, false
	}
	return s.conv.Agent, true
}

// Records returns a snapshot of the active transcript.
func (s *Session) Records() []chat.MessageRecord {
	if s.conv == nil {
		return nil
	}
	return s.conv.Transcript.Records()
}

// Indicator reports the typing indicator of the active conversation.
func (s *Session) Indicator() *TypingIndicator {
	if s.conv == nil {
		return &TypingIndicator{}
	}
	return s.conv.indicator
}

// Sending reports whether a message is waiting for the server.
func (s *Session) Sending() bool {
	return s.conv != nil && s.conv.Coordinator.State() != SendIdle
}

func (s *Session) identity(agent Agent) chat.Identity {
	return chat.Identity{
		LocalUserID:     s.UserID,
		ActiveAgentName: agent.DisplayName(),
		Labels:          s.Labels,
	}
}

// SelectAgent tears down the current conversation, starts a fresh one for
// agent, and returns the commands that load its history and persist the
// selection.
func (s *Session) SelectAgent(agent Agent) tea.Cmd {
	if s.conv != nil {
		s.log.Info().
			Str("from_agent_id", s.conv.Agent.ID).
			Str("to_agent_id", agent.ID).
			Msg("switching conversation")
		s.conv.close()
	}

	ctx, cancel := context.WithCancel(s.ctx)
	indicator := &TypingIndicator{}
	transcript := chat.NewTranscript()
	id := uuid.New().String()

	s.conv = &Conversation{
		ID:         id,
		Agent:      agent,
		Transcript: transcript,
		Coordinator: &SendCoordinator{
			ctx:            ctx,
			conversationID: id,
			agent:          agent,
			identity:       s.identity(agent),
			transport:      s.transport,
			transcript:     transcript,
			indicator:      indicator,
			log:            s.log.With().Str("agent_id", agent.ID).Logger(),
			now:            s.now,
		},
		indicator: indicator,
		ctx:       ctx,
		cancel:    cancel,
	}
	s.lastAgentID = agent.ID

	return tea.Batch(s.LoadHistory(), s.saveSelection(agent.ID))
}

func (s *Session) saveSelection(agentID string) tea.Cmd {
	if s.state == nil {
		return nil
	}
	state := s.state
	return func() tea.Msg {
		return StateSavedMsg{Err: state.SaveCurrentAgentID(agentID)}
	}
}

// Submit sends text in the active conversation.
func (s *Session) Submit(text string) (tea.Cmd, error) {
	if s.conv == nil {
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
		s.log.Debug().Msg("submit rejected: no agent selected")
		return nil, ErrNoActiveAgent
	}
	return s.conv.Coordinator.Submit(text)
}

// HandleSendSettled applies a settlement to the active conversation. It
// returns false when the settlement belongs to an abandoned conversation or
// a send that is no longer pending.
func (s *Session) HandleSendSettled(msg SendSettledMsg) bool {
	if s.conv == nil || msg.ConversationID != s.conv.ID {
		s.log.Debug().
			Str("conversation_id", msg.ConversationID).
			Str("send_id", msg.SendID).
			Msg("dropping send settlement for stale conversation")
		return false
	}
	return s.conv.Coordinator.HandleSettled(msg)
}

// Update routes session messages. Other messages are ignored.
func (s *Session) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case AgentsLoadedMsg:
		return s.HandleAgentsLoaded(msg)
	case HistoryLoadedMsg:
		s.HandleHistoryLoaded(msg)
	case SendSettledMsg:
		s.HandleSendSettled(msg)
	case StateSavedMsg:
		if msg.Err != nil {
			s.log.Warn().Err(msg.Err).Msg("failed to persist selected agent")
		}
	case TranscriptExportedMsg:
		if msg.Err != nil {
			s.log.Error().Err(msg.Err).Msg("transcript export failed")
		} else {
			s.log.Info().Str("path", msg.Path).Msg("transcript exported")
		}
	}
	return nil
}

// RunSync executes cmd and everything it produces on the calling goroutine,
// feeding results back through Update. It is for callers without a bubbletea
// program, such as the one-shot CLI commands.
func (s *Session) RunSync(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			s.RunSync(c)
		}
		return
	}
	s.RunSync(s.Update(msg))
}

// Close abandons the active conversation and cancels outstanding requests.
func (s *Session) Close() {
	if s.conv != nil {
		s.conv.close()
	}
	s.cancel()
}
