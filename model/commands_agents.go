package model

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"agentui/storage"
)

// FetchAgents loads the agent directory. On success it refreshes the local
// cache; on failure it falls back to the cache and marks the result stale.
func (s *Session) FetchAgents() tea.Cmd {
	ctx := s.ctx
	transport := s.transport
	cache := s.agentCache
	now := s.now
	log := s.log

	return func() tea.Msg {
		agents, err := transport.ListAgents(ctx)
		if err == nil {
			if cache != nil {
				if cerr := cache.Upsert(toCached(agents), now()); cerr != nil {
					log.Warn().Err(cerr).Msg("failed to update agent cache")
				}
			}
			return AgentsLoadedMsg{Agents: agents}
		}

		if cache == nil {
			return AgentsLoadedMsg{Err: err}
		}
		cached, cerr := cache.List()
		if cerr != nil {
			log.Warn().Err(cerr).Msg("failed to read agent cache")
			return AgentsLoadedMsg{Err: err}
		}
		if len(cached) == 0 {
			return AgentsLoadedMsg{Err: err}
		}
		return AgentsLoadedMsg{Agents: fromCached(cached), Err: err, Stale: true}
	}
}

// HandleAgentsLoaded stores the directory. If no conversation is active yet
// and the previously selected agent is listed, it is selected again.
func (s *Session) HandleAgentsLoaded(msg AgentsLoadedMsg) tea.Cmd {
	s.AgentsErr = msg.Err
	s.AgentsStale = msg.Stale

	if msg.Err != nil {
		kind, status := ClassifyFailure(msg.Err)
		s.log.Error().
			Err(msg.Err).
			Str("kind", string(kind)).
			Int("status", status).
			Bool("stale", msg.Stale).
			Int("cached", len(msg.Agents)).
			Msg("agent directory fetch failed")
		if !msg.Stale {
			return nil
		}
	}
	s.Agents = msg.Agents

	if s.conv != nil || s.lastAgentID == "" {
		return nil
	}
	for _, a := range s.Agents {
		if a.ID == s.lastAgentID {
			return s.SelectAgent(a)
		}
	}
	return nil
}

// FindAgent resolves idOrName against the loaded directory, then against the
// local cache. IDs match exactly, names case-insensitively.
func (s *Session) FindAgent(idOrName string) (Agent, bool) {
	for _, a := range s.Agents {
		if a.ID == idOrName {
			return a, true
		}
	}
	for _, a := range s.Agents {
		if strings.EqualFold(a.Name, idOrName) {
			return a, true
		}
	}

	if s.agentCache == nil {
		return Agent{}, false
	}
	cached, err := s.agentCache.Find(idOrName)
	if err != nil {
		s.log.Warn().Err(err).Str("agent", idOrName).Msg("agent cache lookup failed")
		return Agent{}, false
	}
	if cached == nil {
		return Agent{}, false
	}
	return Agent{ID: cached.ID, Name: cached.Name, SystemPrompt: cached.SystemPrompt}, true
}

func toCached(agents []Agent) []storage.CachedAgent {
	out := make([]storage.CachedAgent, len(agents))
	for i, a := range agents {
		out[i] = storage.CachedAgent{ID: a.ID, Name: a.Name, SystemPrompt: a.SystemPrompt}
	}
	return out
}

func fromCached(cached []storage.CachedAgent) []Agent {
	out := make([]Agent, len(cached))
	for i, c := range cached {
		out[i] = Agent{ID: c.ID, Name: c.Name, SystemPrompt: c.SystemPrompt}
	}
	return out
}
