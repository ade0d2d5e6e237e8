package main

import (
	"context"

	"clawtui/internal/client"
	"clawtui/internal/config"
	"clawtui/internal/logging"
	"clawtui/internal/sessionsync"
	"clawtui/internal/store"
	"clawtui/internal/types"
)

type gatewayClient interface {
	sessionsync.RemoteSource
	Health(ctx context.Context) (*client.HealthResponse, error)
}

func newGatewayClient(cfg config.Config, logger logging.Logger) (gatewayClient, error) {
	c, err := client.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// cachingSource records every successful listing so the next start can offer
// known session keys before its first refresh.
type cachingSource struct {
	source sessionsync.RemoteSource
	cache  store.SessionCacheStore
	logger logging.Logger
}

func newCachingSource(source sessionsync.RemoteSource, cache store.SessionCacheStore, logger logging.Logger) sessionsync.RemoteSource {
	if cache == nil {
		return source
	}
	return &cachingSource{source: source, cache: cache, logger: logger}
}

func (s *cachingSource) ListSessions(ctx context.Context, opts types.ListSessionsOptions) (*types.SessionSnapshot, error) {
	snapshot, err := s.source.ListSessions(ctx, opts)
	if err != nil || snapshot == nil {
		return snapshot, err
	}
	if err := s.cache.SaveSnapshot(ctx, opts.AgentID, snapshot); err != nil {
		s.logger.Warn("session cache write failed", logging.F("agent_id", opts.AgentID), logging.F("err", err))
	}
	return snapshot, nil
}

func (s *cachingSource) LoadHistory(ctx context.Context, sessionKey string, limit int) (*types.HistoryPayload, error) {
	return s.source.LoadHistory(ctx, sessionKey, limit)
}
