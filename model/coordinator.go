package model

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"agentui/chat"
)

// SendState is the phase of the outgoing-message state machine.
type SendState int

const (
	SendIdle SendState = iota
	SendOptimistic
	SendReconciled
	SendFailed
)

func (s SendState) String() string {
	switch s {
	case SendIdle:
		return "idle"
	case SendOptimistic:
		return "optimistic_sent"
	case SendReconciled:
		return "reconciled"
	case SendFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SendOutcome describes how the last send settled.
type SendOutcome struct {
	SendID       string
	State        SendState
	AgentReplied bool
	Err          error
}

type pendingSend struct {
	id     string
	handle chat.Handle
	record chat.MessageRecord
}

// SendCoordinator drives one outgoing message at a time through optimistic
// append, typing indicator, dispatch, and reconcile or failure.
//
// All methods must be called from the event loop. Only the Cmd returned by
// Submit runs elsewhere, and it touches nothing but the transport.
type SendCoordinator struct {
	ctx            context.Context
	conversationID string
	agent          Agent
	identity       chat.Identity
	transport      Transport
	transcript     *chat.Transcript
	indicator      *TypingIndicator
	log            zerolog.Logger
	now            func() time.Time

	state   SendState
	pending *pendingSend
	last    SendOutcome
}

// State returns the current phase. Between sends it is always SendIdle.
func (c *SendCoordinator) State() SendState {
	return c.state
}

// LastOutcome returns how the most recent send settled.
func (c *SendCoordinator) LastOutcome() SendOutcome {
	return c.last
}

// Submit starts a send. Blank text is ignored. While another send is in
// flight it returns ErrSendInFlight and changes nothing.
func (c *SendCoordinator) Submit(text string) (tea.Cmd, error) {
	if c.state != SendIdle {
		c.log.Debug().Str("state", c.state.String()).Msg("submit ignored: send in flight")
		return nil, ErrSendInFlight
	}
	if c.agent.ID == "" {
		return nil, ErrNoActiveAgent
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	raw := chat.RawMessage{
		UserID:      c.identity.LocalUserID,
		AgentID:     c.agent.ID,
		MessageType: chat.MessageTypeText,
		Text:        text,
		WasSent:     chat.FormatWasSent(c.now()),
	}
	record := newRecord(raw, c.identity, c.log)
	record.Optimistic = true

	sendID := uuid.New().String()
	handle := c.transcript.Append(record)
	c.pending = &pendingSend{id: sendID, handle: handle, record: record}
	c.state = SendOptimistic
	c.indicator.Start(c.now())

	c.log.Info().
		Str("send_id", sendID).
		Str("agent_id", c.agent.ID).
		Int("length", len(text)).
		Msg("message sent optimistically")

	ctx := c.ctx
	transport := c.transport
	conversationID := c.conversationID
	return func() tea.Msg {
		reply, err := transport.SendMessage(ctx, raw)
		return SendSettledMsg{
			ConversationID: conversationID,
			SendID:         sendID,
			Reply:          reply,
			Err:            err,
		}
	}, nil
}

// HandleSettled applies a send settlement. It returns false for settlements
// that do not belong to the in-flight send.
func (c *SendCoordinator) HandleSettled(msg SendSettledMsg) bool {
	if c.pending == nil || msg.SendID != c.pending.id {
		c.log.Debug().Str("send_id", msg.SendID).Msg("ignoring stale send settlement")
		return false
	}
	p := c.pending
	defer c.enterIdle()

	c.indicator.Stop()

	if msg.Err != nil {
		c.fail(p, msg.Err)
		return true
	}

	c.confirm(p)

	if !msg.Reply.Usable() {
		c.log.Warn().Str("send_id", p.id).Msg("reply carried no content, nothing appended")
		c.last = SendOutcome{SendID: p.id, State: SendReconciled}
		return true
	}

	raw := chat.RawMessage{
		UserID:      chat.AgentResponseUserID,
		AgentID:     c.agent.ID,
		MessageType: chat.MessageTypeText,
		AIResponse:  msg.Reply.Content(),
		WasSent:     chat.FormatWasSent(c.now()),
	}
	c.transcript.Append(newRecord(raw, c.identity, c.log))
	c.last = SendOutcome{SendID: p.id, State: SendReconciled, AgentReplied: true}

	c.log.Info().Str("send_id", p.id).Msg("send reconciled")
	return true
}

// Restore re-appends the in-flight record if a history reload discarded it.
func (c *SendCoordinator) Restore() bool {
	if c.state != SendOptimistic || c.pending == nil {
		return false
	}
	if c.transcript.Contains(c.pending.handle) {
		return false
	}
	c.pending.handle = c.transcript.Append(c.pending.record)
	c.log.Info().Str("send_id", c.pending.id).Msg("re-appended in-flight message after history reload")
	return true
}

// Abandon forgets the in-flight send. Its settlement will be ignored.
func (c *SendCoordinator) Abandon() {
	if c.pending != nil {
		c.log.Info().Str("send_id", c.pending.id).Msg("abandoning in-flight send")
	}
	c.enterIdle()
}

func (c *SendCoordinator) confirm(p *pendingSend) {
	if err := c.transcript.Reconcile(p.handle, p.record); err != nil {
		c.log.Warn().Err(err).Str("send_id", p.id).Msg("optimistic record gone before reconcile")
	}
}

// fail keeps the user's record visible, flags it, and appends a SYSTEM record.
func (c *SendCoordinator) fail(p *pendingSend, err error) {
	kind, status := ClassifyFailure(err)
	c.log.Error().
		Err(err).
		Str("send_id", p.id).
		Str("kind", string(kind)).
		Int("status", status).
		Msg("send failed")

	failed := p.record
	failed.SendFailed = true
	if rerr := c.transcript.Reconcile(p.handle, failed); rerr != nil {
		c.log.Warn().Err(rerr).Str("send_id", p.id).Msg("optimistic record gone before failure was recorded")
	}

	c.transcript.Append(chat.NewSystemRecord(
		c.identity.Labels.System,
		DescribeFailure("send message", err),
		err.Error(),
		c.now(),
	))
	c.last = SendOutcome{SendID: p.id, State: SendFailed, Err: err}
}

// enterIdle is the single way back to SendIdle; the indicator never outlives it.
func (c *SendCoordinator) enterIdle() {
	c.indicator.Stop()
	c.pending = nil
	c.state = SendIdle
}
