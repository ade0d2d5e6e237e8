package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"clawtui/internal/types"
)

var (
	bucketAppState     = []byte("app_state")
	bucketSessionCache = []byte("session_cache")
	keyAppState        = []byte("state")
)

type bboltRepository struct {
	db       *bolt.DB
	appState AppStateStore
	cache    SessionCacheStore
}

func NewBboltRepository(path string) (Repository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("repository db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := initBboltSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &bboltRepository{
		db:       db,
		appState: &bboltAppStateStore{db: db},
		cache:    &bboltSessionCacheStore{db: db},
	}, nil
}

func (r *bboltRepository) AppState() AppStateStore {
	return r.appState
}

func (r *bboltRepository) SessionCache() SessionCacheStore {
	return r.cache
}

func (r *bboltRepository) Backend() string {
	return RepositoryBackendBbolt
}

func (r *bboltRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func initBboltSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketAppState, bucketSessionCache} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
}

type bboltAppStateStore struct {
	db *bolt.DB
}

func (s *bboltAppStateStore) Load(ctx context.Context) (*types.AppState, error) {
	state := &types.AppState{}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAppState)
		if b == nil {
			return nil
		}
		raw := b.Get(keyAppState)
		if len(raw) == 0 {
			return nil
		}
		return json.Unmarshal(raw, state)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *bboltAppStateStore) Save(ctx context.Context, state *types.AppState) error {
	if state == nil {
		return errors.New("state is required")
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAppState)
		if b == nil {
			return errors.New("app state bucket missing")
		}
		return b.Put(keyAppState, raw)
	})
}

type bboltSessionCacheStore struct {
	db *bolt.DB
}

func (s *bboltSessionCacheStore) LoadSnapshot(ctx context.Context, agentID string) (*types.SessionSnapshot, bool, error) {
	var (
		snapshot *types.SessionSnapshot
		found    bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessionCache)
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(normalizeAgentID(agentID)))
		if len(raw) == 0 {
			return nil
		}
		snapshot = &types.SessionSnapshot{}
		if err := json.Unmarshal(raw, snapshot); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return snapshot, found, nil
}

func (s *bboltSessionCacheStore) SaveSnapshot(ctx context.Context, agentID string, snapshot *types.SessionSnapshot) error {
	if snapshot == nil {
		return errors.New("snapshot is required")
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessionCache)
		if b == nil {
			return errors.New("session cache bucket missing")
		}
		return b.Put([]byte(normalizeAgentID(agentID)), raw)
	})
}
