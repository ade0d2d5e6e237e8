package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"clawtui/internal/app"
	"clawtui/internal/config"
	"clawtui/internal/logging"
	"clawtui/internal/metrics"
	"clawtui/internal/sessionsync"
	"clawtui/internal/store"
	"clawtui/internal/types"
)

type UICommand struct {
	wiring  commandWiring
	agent   string
	session string
}

func NewUICommand(wiring commandWiring) *UICommand {
	return &UICommand{wiring: wiring}
}

func (c *UICommand) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Run the terminal UI (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&c.agent, "agent", "", "agent id (default: last used or config)")
	cmd.Flags().StringVar(&c.session, "session", "", "session key (default: last used or the agent's main session)")
	return cmd
}

func (c *UICommand) Run(ctx context.Context) error {
	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return err
	}
	logger, closer, err := c.wiring.openUILog(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()
	defer logger.Sync()

	gateway, err := c.wiring.newClient(cfg, logger)
	if err != nil {
		return err
	}

	var (
		appState = &types.AppState{}
		cache    store.SessionCacheStore
	)
	repo, err := c.wiring.openStore(cfg)
	if err != nil {
		logger.Warn("state store unavailable", logging.F("err", err))
	} else {
		defer repo.Close()
		cache = repo.SessionCache()
		if loaded, err := repo.AppState().Load(ctx); err != nil {
			logger.Warn("load ui state failed", logging.F("err", err))
		} else if loaded != nil {
			appState = loaded
		}
	}

	agentID, sessionKey := resolveSelection(cfg, appState, c.agent, c.session)
	state := &sessionsync.State{
		CurrentAgentID:    agentID,
		SessionMainKey:    types.MainSessionKey(agentID),
		CurrentSessionKey: sessionKey,
	}
	if cache != nil {
		if snapshot, ok, err := cache.LoadSnapshot(ctx, agentID); err != nil {
			logger.Warn("load session cache failed", logging.F("err", err))
		} else if ok {
			state.KnownSessionKeys = snapshot.Keys()
		}
	}

	var observer sessionsync.Observer = sessionsync.NopObserver{}
	if addr := cfg.MetricsAddress(); addr != "" {
		m := metrics.New()
		observer = m
		serveCtx, stop := context.WithCancel(ctx)
		defer stop()
		go func() {
			if err := m.Serve(serveCtx, addr); err != nil {
				logger.Warn("metrics server stopped", logging.F("addr", addr), logging.F("err", err))
			}
		}()
	}

	logger.Info("ui starting",
		logging.F("gateway", cfg.GatewayBaseURL()),
		logging.F("agent_id", agentID),
		logging.F("session_key", sessionKey),
		logging.F("version", c.wiring.version),
	)
	selection, err := c.wiring.runUI(ctx, app.Options{
		Source:          newCachingSource(gateway, cache, logger),
		Health:          gateway,
		State:           state,
		Observer:        observer,
		Logger:          logger,
		HistoryLimit:    cfg.HistoryLimit(),
		IncludeGlobal:   cfg.Session.IncludeGlobal,
		IncludeUnknown:  cfg.Session.IncludeUnknown,
		RefreshInterval: cfg.RefreshInterval(),
		RenderInterval:  cfg.RenderInterval(),
		Markdown:        cfg.MarkdownEnabled(),
	})
	if repo != nil && selection.SessionKey != "" {
		appState.RememberSession(selection.AgentID, selection.SessionKey)
		if saveErr := repo.AppState().Save(context.WithoutCancel(ctx), appState); saveErr != nil {
			logger.Warn("save ui state failed", logging.F("err", saveErr))
		}
	}
	return err
}

// resolveSelection picks the starting agent and session. Flags win, then an
// explicitly configured key, then the last selection stored for the agent.
func resolveSelection(cfg config.Config, stored *types.AppState, agentFlag, sessionFlag string) (string, string) {
	agentID := strings.TrimSpace(agentFlag)
	if agentID == "" && stored != nil {
		agentID = strings.TrimSpace(stored.CurrentAgentID)
	}
	if agentID == "" {
		agentID = cfg.AgentID()
	}

	if key := strings.TrimSpace(sessionFlag); key != "" {
		return agentID, key
	}
	if key := strings.TrimSpace(cfg.Session.Key); key != "" {
		return agentID, key
	}
	if stored != nil {
		if key := strings.TrimSpace(stored.LastSessionKeyByAgent[agentID]); key != "" {
			return agentID, key
		}
	}
	return agentID, types.MainSessionKey(agentID)
}
