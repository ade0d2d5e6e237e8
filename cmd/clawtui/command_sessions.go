package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clawtui/internal/types"
)

type SessionsCommand struct {
	wiring commandWiring
	agent  string
	cached bool
}

func NewSessionsCommand(wiring commandWiring) *SessionsCommand {
	return &SessionsCommand{wiring: wiring}
}

func (c *SessionsCommand) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List gateway sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&c.agent, "agent", "", "agent id (default from config)")
	cmd.Flags().BoolVar(&c.cached, "cached", false, "print the last listing saved by the UI instead of asking the gateway")
	return cmd
}

func (c *SessionsCommand) Run(ctx context.Context) error {
	cfg, err := c.wiring.loadConfig()
	if err != nil {
		return err
	}
	agentID := strings.TrimSpace(c.agent)
	if agentID == "" {
		agentID = cfg.AgentID()
	}

	if c.cached {
		repo, err := c.wiring.openStore(cfg)
		if err != nil {
			return err
		}
		defer repo.Close()
		snapshot, ok, err := repo.SessionCache().LoadSnapshot(ctx, agentID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no cached sessions for agent %s", agentID)
		}
		printSessions(c.wiring.stdout, snapshot)
		return nil
	}

	logger := cliLogger(cfg, c.wiring.stderr)
	defer logger.Sync()
	gateway, err := c.wiring.newClient(cfg, logger)
	if err != nil {
		return err
	}
	snapshot, err := gateway.ListSessions(ctx, types.ListSessionsOptions{
		AgentID:        agentID,
		IncludeGlobal:  cfg.Session.IncludeGlobal,
		IncludeUnknown: cfg.Session.IncludeUnknown,
	})
	if err != nil {
		return err
	}
	if snapshot == nil {
		return errors.New("gateway returned no session snapshot")
	}
	printSessions(c.wiring.stdout, snapshot)
	return nil
}
