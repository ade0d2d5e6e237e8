package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"clawtui/internal/logging"
	"clawtui/internal/metrics"
	"clawtui/internal/sessionsync"
	"clawtui/internal/types"
)

type WatchCommand struct {
	wiring      commandWiring
	agent       string
	session     string
	interval    time.Duration
	metricsAddr string
}

func NewWatchCommand(wiring commandWiring) *WatchCommand {
	return &WatchCommand{wiring: wiring}
}

func (c *WatchCommand) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a session headlessly, printing its status line on change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&c.agent, "agent", "", "agent id (default from config)")
	cmd.Flags().StringVar(&c.session, "session", "", "session key (default: the agent's main session)")
	cmd.Flags().DurationVar(&c.interval, "interval", 0, "refresh interval (default from config)")
	cmd.Flags().StringVar(&c.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func (c *WatchCommand) Run(ctx context.Context) error {
	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return err
	}
	logger := cliLogger(cfg, c.wiring.stderr)
	defer logger.Sync()
	gateway, err := c.wiring.newClient(cfg, logger)
	if err != nil {
		return err
	}

	agentID := strings.TrimSpace(c.agent)
	if agentID == "" {
		agentID = cfg.AgentID()
	}
	sessionKey := strings.TrimSpace(c.session)
	if sessionKey == "" {
		if strings.TrimSpace(c.agent) == "" {
			sessionKey = cfg.SessionKey()
		} else {
			sessionKey = types.MainSessionKey(agentID)
		}
	}
	interval := c.interval
	if interval <= 0 {
		interval = cfg.RefreshInterval()
	}
	metricsAddr := strings.TrimSpace(c.metricsAddr)
	if metricsAddr == "" {
		metricsAddr = cfg.MetricsAddress()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	state := &sessionsync.State{
		CurrentAgentID:    agentID,
		SessionMainKey:    types.MainSessionKey(agentID),
		CurrentSessionKey: sessionKey,
	}
	printer := &statusPrinter{out: c.wiring.stdout, state: state}
	actions := sessionsync.New(state, sessionsync.Options{
		Source:         gateway,
		Notifier:       printer,
		ChatLog:        &lineChatLog{out: io.Discard, errOut: c.wiring.stderr},
		Observer:       m,
		Logger:         logger,
		HistoryLimit:   cfg.HistoryLimit(),
		IncludeGlobal:  cfg.Session.IncludeGlobal,
		IncludeUnknown: cfg.Session.IncludeUnknown,
	})
	defer actions.Close()

	logger.Info("watching session",
		logging.F("session_key", sessionKey),
		logging.F("interval", interval),
		logging.F("metrics_addr", metricsAddr),
	)
	actions.SetSession(sessionKey)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				actions.RefreshSessionInfo()
			}
		}
	})
	if metricsAddr != "" {
		g.Go(func() error {
			return m.Serve(gctx, metricsAddr)
		})
	}
	return g.Wait()
}

// statusPrinter writes the header and footer lines whenever their text
// changes. It runs on the dispatcher.
type statusPrinter struct {
	out        io.Writer
	state      *sessionsync.State
	lastHeader string
	lastFooter string
}

var _ sessionsync.Notifier = (*statusPrinter)(nil)

func (p *statusPrinter) UpdateHeader() {
	line := "session " + p.state.CurrentSessionKey
	if id := p.state.CurrentSessionID; id != "" {
		line += " (" + id + ")"
	}
	if line != p.lastHeader {
		p.lastHeader = line
		fmt.Fprintln(p.out, line)
	}
}

func (p *statusPrinter) UpdateFooter() {
	info := p.state.SessionInfo
	if info.Model == "" && info.TotalTokens == 0 {
		return
	}
	model := info.Model
	if info.ModelProvider != "" {
		model = info.ModelProvider + "/" + model
	}
	line := fmt.Sprintf("%s model=%s tokens=%d/%d", p.state.CurrentSessionKey, dash(model), info.TotalTokens, info.ContextTokens)
	if info.ThinkingLevel != "" {
		line += " think=" + info.ThinkingLevel
	}
	if line != p.lastFooter {
		p.lastFooter = line
		fmt.Fprintln(p.out, line)
	}
}

func (p *statusPrinter) UpdateAutocompleteProvider() {}
func (p *statusPrinter) RequestRender()              {}
