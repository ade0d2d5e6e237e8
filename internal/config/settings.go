package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"clawtui/internal/types"

	"github.com/kelseyhightower/envconfig"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultGatewayURL      = "http://127.0.0.1:18789"
	defaultGatewayTimeout  = 10 * time.Second
	defaultRetryMax        = 2
	defaultAgentID         = types.DefaultAgentID
	defaultHistoryLimit    = 200
	defaultRefreshInterval = 15 * time.Second
	defaultRenderInterval  = 50 * time.Millisecond
	envPrefix              = "CLAWTUI"

	StorageBackendBbolt = "bbolt"
	StorageBackendFile  = "file"
)

type Config struct {
	Gateway GatewayConfig `toml:"gateway" json:"gateway"`
	Session SessionConfig `toml:"session" json:"session"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Logging LoggingConfig `toml:"logging" json:"logging"`
	Metrics MetricsConfig `toml:"metrics" json:"metrics"`
	Storage StorageConfig `toml:"storage" json:"storage"`
}

type GatewayConfig struct {
	URL       string `toml:"url" json:"url"`
	Token     string `toml:"token,omitempty" json:"token,omitempty"`
	TokenPath string `toml:"token_path,omitempty" json:"token_path,omitempty"`
	Timeout   string `toml:"timeout" json:"timeout"`
	RetryMax  *int   `toml:"retry_max,omitempty" json:"retry_max,omitempty"`
}

type SessionConfig struct {
	Agent          string `toml:"agent" json:"agent"`
	Key            string `toml:"key,omitempty" json:"key,omitempty"`
	HistoryLimit   int    `toml:"history_limit" json:"history_limit"`
	IncludeGlobal  bool   `toml:"include_global" json:"include_global"`
	IncludeUnknown bool   `toml:"include_unknown" json:"include_unknown"`
}

type UIConfig struct {
	RefreshInterval string `toml:"refresh_interval" json:"refresh_interval"`
	RenderInterval  string `toml:"render_interval" json:"render_interval"`
	Markdown        *bool  `toml:"markdown,omitempty" json:"markdown,omitempty"`
}

type LoggingConfig struct {
	Level       string `toml:"level" json:"level"`
	Development bool   `toml:"development" json:"development"`
}

type MetricsConfig struct {
	Address string `toml:"address,omitempty" json:"address,omitempty"`
}

// StorageConfig selects where UI selection state and the session cache live:
// "bbolt" (default) or "file".
type StorageConfig struct {
	Backend string `toml:"backend" json:"backend"`
}

// envOverrides mirrors the settings that may be replaced from the
// environment, e.g. CLAWTUI_GATEWAY_URL.
type envOverrides struct {
	GatewayURL     string `envconfig:"GATEWAY_URL"`
	GatewayToken   string `envconfig:"GATEWAY_TOKEN"`
	GatewayTimeout string `envconfig:"GATEWAY_TIMEOUT"`
	Agent          string `envconfig:"AGENT"`
	SessionKey     string `envconfig:"SESSION_KEY"`
	HistoryLimit   string `envconfig:"HISTORY_LIMIT"`
	LogLevel       string `envconfig:"LOG_LEVEL"`
	MetricsAddress string `envconfig:"METRICS_ADDRESS"`
}

func DefaultConfig() Config {
	return Config{
		Gateway: GatewayConfig{
			URL:     defaultGatewayURL,
			Timeout: defaultGatewayTimeout.String(),
		},
		Session: SessionConfig{
			Agent:          defaultAgentID,
			HistoryLimit:   defaultHistoryLimit,
			IncludeGlobal:  true,
			IncludeUnknown: true,
		},
		UI: UIConfig{
			RefreshInterval: defaultRefreshInterval.String(),
			RenderInterval:  defaultRenderInterval.String(),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Storage: StorageConfig{
			Backend: StorageBackendBbolt,
		},
	}
}

// Load reads config.toml from the data directory and applies environment
// overrides. A missing file yields the defaults.
func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return LoadFromPath(path)
}

func LoadFromPath(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}
	if v := strings.TrimSpace(env.GatewayURL); v != "" {
		c.Gateway.URL = v
	}
	if v := strings.TrimSpace(env.GatewayToken); v != "" {
		c.Gateway.Token = v
	}
	if v := strings.TrimSpace(env.GatewayTimeout); v != "" {
		c.Gateway.Timeout = v
	}
	if v := strings.TrimSpace(env.Agent); v != "" {
		c.Session.Agent = v
	}
	if v := strings.TrimSpace(env.SessionKey); v != "" {
		c.Session.Key = v
	}
	if v := strings.TrimSpace(env.HistoryLimit); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s_HISTORY_LIMIT: %w", envPrefix, err)
		}
		c.Session.HistoryLimit = limit
	}
	if v := strings.TrimSpace(env.LogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(env.MetricsAddress); v != "" {
		c.Metrics.Address = v
	}
	return nil
}

func (c Config) GatewayBaseURL() string {
	url := strings.TrimRight(strings.TrimSpace(c.Gateway.URL), "/")
	if url == "" {
		return defaultGatewayURL
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	return url
}

func (c Config) GatewayTimeout() time.Duration {
	return parseDuration(c.Gateway.Timeout, defaultGatewayTimeout)
}

func (c Config) GatewayRetryMax() int {
	if c.Gateway.RetryMax == nil || *c.Gateway.RetryMax < 0 {
		return defaultRetryMax
	}
	return *c.Gateway.RetryMax
}

// GatewayToken returns the inline token, falling back to the token file.
// A missing token file is not an error.
func (c Config) GatewayToken() (string, error) {
	if token := strings.TrimSpace(c.Gateway.Token); token != "" {
		return token, nil
	}
	path, err := c.ResolveTokenPath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (c Config) ResolveTokenPath() (string, error) {
	path := strings.TrimSpace(c.Gateway.TokenPath)
	if path == "" {
		return TokenPath()
	}
	return resolveConfigPath(path)
}

func (c Config) AgentID() string {
	agent := strings.TrimSpace(c.Session.Agent)
	if agent == "" {
		return defaultAgentID
	}
	return agent
}

// SessionKey returns the configured session key or the agent's main key.
func (c Config) SessionKey() string {
	if key := strings.TrimSpace(c.Session.Key); key != "" {
		return key
	}
	return types.MainSessionKey(c.AgentID())
}

func (c Config) HistoryLimit() int {
	if c.Session.HistoryLimit <= 0 {
		return defaultHistoryLimit
	}
	return c.Session.HistoryLimit
}

func (c Config) RefreshInterval() time.Duration {
	return parseDuration(c.UI.RefreshInterval, defaultRefreshInterval)
}

func (c Config) RenderInterval() time.Duration {
	return parseDuration(c.UI.RenderInterval, defaultRenderInterval)
}

func (c Config) MarkdownEnabled() bool {
	if c.UI.Markdown == nil {
		return true
	}
	return *c.UI.Markdown
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

func (c Config) MetricsAddress() string {
	return strings.TrimSpace(c.Metrics.Address)
}

func (c Config) StorageBackend() string {
	if strings.EqualFold(strings.TrimSpace(c.Storage.Backend), StorageBackendFile) {
		return StorageBackendFile
	}
	return StorageBackendBbolt
}

func MarshalTOML(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func readTOML(path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

func resolveConfigPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("path is required")
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, path), nil
}
