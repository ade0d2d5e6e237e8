package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"clawtui/internal/config"
	"clawtui/internal/logging"
	"clawtui/internal/types"
)

const (
	defaultTimeout  = 10 * time.Second
	requestIDHeader = "X-Request-Id"
)

// Client talks to the gateway's session endpoints.
type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
	logger  logging.Logger
}

type Options struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	RetryMax int
	Logger   logging.Logger
}

func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retryMax := opts.RetryMax
	if retryMax < 0 {
		retryMax = 0
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = retryMax
	httpClient.RetryWaitMin = 200 * time.Millisecond
	httpClient.RetryWaitMax = 2 * time.Second
	httpClient.HTTPClient.Timeout = timeout
	httpClient.Logger = leveledLogger{logger: logger}
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		token:   strings.TrimSpace(opts.Token),
		http:    httpClient,
		logger:  logger.With(logging.F("component", "gateway_client")),
	}
}

// NewFromConfig builds a client from the gateway section of cfg.
func NewFromConfig(cfg config.Config, logger logging.Logger) (*Client, error) {
	token, err := cfg.GatewayToken()
	if err != nil {
		return nil, err
	}
	return New(Options{
		BaseURL:  cfg.GatewayBaseURL(),
		Token:    token,
		Timeout:  cfg.GatewayTimeout(),
		RetryMax: cfg.GatewayRetryMax(),
		Logger:   logger,
	}), nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, fmt.Errorf("gateway health: %w", err)
	}
	return &resp, nil
}

func (c *Client) ListSessions(ctx context.Context, opts types.ListSessionsOptions) (*types.SessionSnapshot, error) {
	query := url.Values{}
	if agentID := strings.TrimSpace(opts.AgentID); agentID != "" {
		query.Set("agentId", agentID)
	}
	if opts.IncludeGlobal {
		query.Set("includeGlobal", "1")
	}
	if opts.IncludeUnknown {
		query.Set("includeUnknown", "1")
	}
	path := "/v1/sessions"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var snapshot types.SessionSnapshot
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &snapshot); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return &snapshot, nil
}

func (c *Client) LoadHistory(ctx context.Context, sessionKey string, limit int) (*types.HistoryPayload, error) {
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		return nil, errors.New("session key is required")
	}
	path := "/v1/sessions/" + url.PathEscape(sessionKey) + "/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var payload types.HistoryPayload
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, fmt.Errorf("load history %s: %w", sessionKey, err)
	}
	return &payload, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	requestID := logging.NewRequestID()
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.logger.Debug("gateway request",
		logging.F("method", method),
		logging.F("path", path),
		logging.F("status", resp.StatusCode),
		logging.F("request_id", requestID),
		logging.F("duration", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var payload errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if payload.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// leveledLogger routes retryablehttp's retry chatter to the debug log.
type leveledLogger struct {
	logger logging.Logger
}

func (l leveledLogger) Error(msg string, kv ...any) { l.logger.Warn(msg, kvFields(kv)...) }
func (l leveledLogger) Warn(msg string, kv ...any)  { l.logger.Debug(msg, kvFields(kv)...) }
func (l leveledLogger) Info(msg string, kv ...any)  { l.logger.Debug(msg, kvFields(kv)...) }
func (l leveledLogger) Debug(msg string, kv ...any) { l.logger.Debug(msg, kvFields(kv)...) }

func kvFields(kv []any) []logging.Field {
	fields := make([]logging.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields = append(fields, logging.F(key, kv[i+1]))
	}
	return fields
}
