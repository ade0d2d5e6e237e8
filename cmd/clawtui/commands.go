package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"clawtui/internal/app"
	"clawtui/internal/config"
	"clawtui/internal/logging"
	"clawtui/internal/store"
)

type (
	clientFactory func(cfg config.Config, logger logging.Logger) (gatewayClient, error)
	storeFactory  func(cfg config.Config) (store.Repository, error)
	uiLogFactory  func(cfg config.Config) (logging.Logger, io.Closer, error)
	uiRunner      func(ctx context.Context, opts app.Options) (app.Selection, error)
)

type commandWiring struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	newClient  clientFactory
	openStore  storeFactory
	openUILog  uiLogFactory
	runUI      uiRunner
	version    string
}

func defaultCommandWiring(stdout, stderr io.Writer) commandWiring {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return commandWiring{
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: config.Load,
		newClient:  newGatewayClient,
		openStore:  openRepository,
		openUILog:  openUILogger,
		runUI:      app.Run,
		version:    buildVersion(),
	}
}

func newRootCommand(wiring commandWiring) *cobra.Command {
	ui := NewUICommand(wiring)
	root := &cobra.Command{
		Use:           "clawtui",
		Short:         "Terminal view of gateway agent sessions",
		Version:       wiring.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ui.Run(cmd.Context())
		},
	}
	root.SetOut(wiring.stdout)
	root.SetErr(wiring.stderr)
	root.AddCommand(
		ui.Command(),
		NewSessionsCommand(wiring).Command(),
		NewHistoryCommand(wiring).Command(),
		NewWatchCommand(wiring).Command(),
		NewConfigCommand(wiring).Command(),
	)
	return root
}
