package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"agentui/config"
	"agentui/model"
	"agentui/storage"
	"agentui/transport"
)

// app is the wired client shared by the TUI and the one-shot commands.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	state   *storage.StateStorage
	cache   *storage.AgentCache
	session *model.Session
}

func loadConfig(flags *globalFlags) (*config.Config, error) {
	return config.LoadWithOverrides(config.Overrides{
		DataDir:   config.ExpandPath(flags.dataDir),
		ServerURL: flags.server,
		UserID:    flags.user,
		Token:     flags.token,
		Debug:     flags.debug,
	})
}

// openApp builds storage, transport and the session from cfg. oneShot skips
// restoring the previously selected agent.
func openApp(cfg *config.Config, oneShot bool) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := config.InitDebugLog(cfg.DataDir(), cfg.Debug)

	state, err := storage.NewStateStorage(cfg.DataDir())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize state storage: %w", err)
	}

	// The cache only backs offline fallback, so run without it if it cannot open
	cache, err := storage.NewAgentCache(cfg.DataDir())
	if err != nil {
		log.Warn().Err(err).Msg("agent cache unavailable")
		cache = nil
	}

	client, err := transport.NewClient(transport.Options{
		BaseURL:     cfg.ServerURL,
		Token:       cfg.Token,
		Timeout:     cfg.Timeout(),
		AgentsPath:  cfg.AgentsPath,
		HistoryPath: cfg.HistoryPath,
		SendPath:    cfg.SendPath,
		Logger:      log.With().Str("component", "transport").Logger(),
	})
	if err != nil {
		if cache != nil {
			cache.Close()
		}
		return nil, err
	}

	session := model.NewSession(model.Options{
		UserID:      cfg.UserID,
		Labels:      cfg.Labels,
		Transport:   client,
		State:       state,
		AgentCache:  cache,
		Logger:      log.With().Str("component", "session").Logger(),
		SkipRestore: oneShot,
	})

	log.Info().
		Str("server", cfg.ServerURL).
		Str("user_id", cfg.UserID).
		Str("data_dir", cfg.DataDir()).
		Msg("agentui started")

	return &app{
		cfg:     cfg,
		log:     log,
		state:   state,
		cache:   cache,
		session: session,
	}, nil
}

func (a *app) close() {
	a.session.Close()
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close agent cache")
		}
	}
}
