package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"clawtui/internal/sessionsync"
)

type HistoryCommand struct {
	wiring   commandWiring
	limit    int
	thinking bool
}

func NewHistoryCommand(wiring commandWiring) *HistoryCommand {
	return &HistoryCommand{wiring: wiring}
}

func (c *HistoryCommand) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <session-key>",
		Short: "Print a session transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd.Context(), args[0])
		},
	}
	cmd.Flags().IntVar(&c.limit, "limit", 0, "maximum messages (default from config)")
	cmd.Flags().BoolVar(&c.thinking, "thinking", false, "include assistant reasoning")
	return cmd
}

func (c *HistoryCommand) Run(ctx context.Context, sessionKey string) error {
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return errors.New("session key is required")
	}
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
	limit := c.limit
	if limit <= 0 {
		limit = cfg.HistoryLimit()
	}

	outcome := &historyOutcome{}
	actions := sessionsync.New(&sessionsync.State{
		CurrentSessionKey: sessionKey,
		ShowThinking:      c.thinking,
	}, sessionsync.Options{
		Source:       gateway,
		ChatLog:      &lineChatLog{out: c.wiring.stdout, errOut: c.wiring.stderr},
		Observer:     outcome,
		Logger:       logger,
		HistoryLimit: limit,
	})
	defer actions.Close()

	if err := actions.LoadHistory().Wait(ctx); err != nil {
		return err
	}
	if outcome.failed {
		return fmt.Errorf("load history %s failed", sessionKey)
	}
	return nil
}

// historyOutcome records whether the load failed. Observer calls arrive on
// the dispatcher and happen before the load's future resolves.
type historyOutcome struct {
	sessionsync.NopObserver
	failed bool
}

func (o *historyOutcome) HistoryFailed() { o.failed = true }

// lineChatLog prints the transcript as role-prefixed lines.
type lineChatLog struct {
	out    io.Writer
	errOut io.Writer
}

var _ sessionsync.ChatLog = (*lineChatLog)(nil)

func (l *lineChatLog) AddSystem(text string) { fmt.Fprintln(l.errOut, "system: "+text) }
func (l *lineChatLog) ClearAll()             {}
func (l *lineChatLog) AddUser(text string)   { fmt.Fprintln(l.out, "user: "+text) }

func (l *lineChatLog) FinalizeAssistant(text string) {
	fmt.Fprintln(l.out, "assistant: "+text)
}

func (l *lineChatLog) StartTool(id, name string, args json.RawMessage) {
	if len(args) == 0 {
		return
	}
	fmt.Fprintf(l.out, "tool %s (%s): %s\n", name, id, string(args))
}

func (l *lineChatLog) UpdateToolResult(id, text string, isError bool) {
	label := "result"
	if isError {
		label = "error"
	}
	fmt.Fprintf(l.out, "%s (%s): %s\n", label, id, text)
}

