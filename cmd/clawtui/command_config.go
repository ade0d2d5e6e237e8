package main

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"clawtui/internal/config"
)

const (
	configFormatJSON = "json"
	configFormatTOML = "toml"
)

type ConfigCommand struct {
	wiring   commandWiring
	defaults bool
	format   string
}

// configOutput holds resolved values; the gateway token is never printed.
type configOutput struct {
	ConfigPath string                 `json:"config_path,omitempty" toml:"config_path,omitempty"`
	Gateway    effectiveGatewayConfig `json:"gateway" toml:"gateway"`
	Session    effectiveSessionConfig `json:"session" toml:"session"`
	UI         effectiveUIConfig      `json:"ui" toml:"ui"`
	Logging    effectiveLoggingConfig `json:"logging" toml:"logging"`
	Metrics    effectiveMetricsConfig `json:"metrics" toml:"metrics"`
	Storage    effectiveStorageConfig `json:"storage" toml:"storage"`
}

type effectiveGatewayConfig struct {
	URL        string `json:"url" toml:"url"`
	Timeout    string `json:"timeout" toml:"timeout"`
	RetryMax   int    `json:"retry_max" toml:"retry_max"`
	TokenPath  string `json:"token_path,omitempty" toml:"token_path,omitempty"`
	TokenFound bool   `json:"token_found" toml:"token_found"`
}

type effectiveSessionConfig struct {
	Agent          string `json:"agent" toml:"agent"`
	Key            string `json:"key" toml:"key"`
	HistoryLimit   int    `json:"history_limit" toml:"history_limit"`
	IncludeGlobal  bool   `json:"include_global" toml:"include_global"`
	IncludeUnknown bool   `json:"include_unknown" toml:"include_unknown"`
}

type effectiveUIConfig struct {
	RefreshInterval string `json:"refresh_interval" toml:"refresh_interval"`
	RenderInterval  string `json:"render_interval" toml:"render_interval"`
	Markdown        bool   `json:"markdown" toml:"markdown"`
}

type effectiveLoggingConfig struct {
	Level       string `json:"level" toml:"level"`
	Development bool   `json:"development" toml:"development"`
}

type effectiveMetricsConfig struct {
	Address string `json:"address,omitempty" toml:"address,omitempty"`
}

type effectiveStorageConfig struct {
	Backend string `json:"backend" toml:"backend"`
}

func NewConfigCommand(wiring commandWiring) *ConfigCommand {
	return &ConfigCommand{wiring: wiring}
}

func (c *ConfigCommand) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print configuration (effective or defaults)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.Run()
		},
	}
	cmd.Flags().BoolVar(&c.defaults, "defaults", false, "print default config values")
	cmd.Flags().StringVar(&c.format, "format", configFormatTOML, "output format: toml|json")
	return cmd
}

func (c *ConfigCommand) Run() error {
	format, err := resolveConfigFormat(c.format)
	if err != nil {
		return err
	}
	cfg := config.DefaultConfig()
	var path string
	if !c.defaults {
		if cfg, err = c.wiring.loadConfig(); err != nil {
			return err
		}
		path, _ = config.ConfigPath()
	}
	return writeConfigOutput(c.wiring.stdout, format, buildConfigOutput(cfg, path))
}

func buildConfigOutput(cfg config.Config, path string) configOutput {
	token, _ := cfg.GatewayToken()
	tokenPath, _ := cfg.ResolveTokenPath()
	return configOutput{
		ConfigPath: path,
		Gateway: effectiveGatewayConfig{
			URL:        cfg.GatewayBaseURL(),
			Timeout:    cfg.GatewayTimeout().String(),
			RetryMax:   cfg.GatewayRetryMax(),
			TokenPath:  tokenPath,
			TokenFound: token != "",
		},
		Session: effectiveSessionConfig{
			Agent:          cfg.AgentID(),
			Key:            cfg.SessionKey(),
			HistoryLimit:   cfg.HistoryLimit(),
			IncludeGlobal:  cfg.Session.IncludeGlobal,
			IncludeUnknown: cfg.Session.IncludeUnknown,
		},
		UI: effectiveUIConfig{
			RefreshInterval: cfg.RefreshInterval().String(),
			RenderInterval:  cfg.RenderInterval().String(),
			Markdown:        cfg.MarkdownEnabled(),
		},
		Logging: effectiveLoggingConfig{
			Level:       cfg.LogLevel(),
			Development: cfg.Logging.Development,
		},
		Metrics: effectiveMetricsConfig{Address: cfg.MetricsAddress()},
		Storage: effectiveStorageConfig{Backend: cfg.StorageBackend()},
	}
}

func writeConfigOutput(out io.Writer, format string, payload any) error {
	switch format {
	case configFormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	case configFormatTOML:
		data, err := toml.Marshal(payload)
		if err != nil {
			return err
		}
		if len(data) == 0 || data[len(data)-1] != '\n' {
			data = append(data, '\n')
		}
		_, err = out.Write(data)
		return err
	default:
		return errors.New("unsupported format")
	}
}

func resolveConfigFormat(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", configFormatTOML:
		return configFormatTOML, nil
	case configFormatJSON:
		return configFormatJSON, nil
	default:
		return "", errors.New("invalid format: must be toml or json")
	}
}
