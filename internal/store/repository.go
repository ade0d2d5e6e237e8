package store

import (
	"context"
	"fmt"
	"strings"

	"clawtui/internal/config"
	"clawtui/internal/types"
)

const (
	RepositoryBackendFile  = config.StorageBackendFile
	RepositoryBackendBbolt = config.StorageBackendBbolt
)

// Repository groups the local stores the terminal UI keeps between runs.
type Repository interface {
	AppState() AppStateStore
	SessionCache() SessionCacheStore
	Backend() string
	Close() error
}

type AppStateStore interface {
	Load(ctx context.Context) (*types.AppState, error)
	Save(ctx context.Context, state *types.AppState) error
}

// SessionCacheStore holds the last session listing per agent so known keys
// are available before the first refresh completes.
type SessionCacheStore interface {
	LoadSnapshot(ctx context.Context, agentID string) (*types.SessionSnapshot, bool, error)
	SaveSnapshot(ctx context.Context, agentID string, snapshot *types.SessionSnapshot) error
}

type RepositoryPaths struct {
	AppStatePath     string
	SessionCachePath string
	DBPath           string
}

// DefaultRepositoryPaths resolves every store path under the data dir.
func DefaultRepositoryPaths() (RepositoryPaths, error) {
	var (
		paths RepositoryPaths
		err   error
	)
	if paths.AppStatePath, err = config.AppStatePath(); err != nil {
		return RepositoryPaths{}, err
	}
	if paths.SessionCachePath, err = config.SessionCachePath(); err != nil {
		return RepositoryPaths{}, err
	}
	if paths.DBPath, err = config.StateDBPath(); err != nil {
		return RepositoryPaths{}, err
	}
	return paths, nil
}

// Open returns the repository for backend.
func Open(backend string, paths RepositoryPaths) (Repository, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", RepositoryBackendBbolt:
		repo, err := NewBboltRepository(paths.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open state db %s: %w", paths.DBPath, err)
		}
		return repo, nil
	case RepositoryBackendFile:
		return NewFileRepository(paths), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

type fileRepository struct {
	appState AppStateStore
	cache    SessionCacheStore
}

func NewFileRepository(paths RepositoryPaths) Repository {
	return &fileRepository{
		appState: NewFileAppStateStore(paths.AppStatePath),
		cache:    NewFileSessionCacheStore(paths.SessionCachePath),
	}
}

func (r *fileRepository) AppState() AppStateStore {
	return r.appState
}

func (r *fileRepository) SessionCache() SessionCacheStore {
	return r.cache
}

func (r *fileRepository) Backend() string {
	return RepositoryBackendFile
}

func (r *fileRepository) Close() error {
	return nil
}

func normalizeAgentID(agentID string) string {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return types.DefaultAgentID
	}
	return agentID
}
