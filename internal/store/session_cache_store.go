package store

import (
	"context"
	"errors"
	"os"
	"sync"

	"clawtui/internal/types"
)

type FileSessionCacheStore struct {
	path string
	mu   sync.Mutex
}

type sessionCacheFile struct {
	Agents map[string]*types.SessionSnapshot `json:"agents"`
}

func NewFileSessionCacheStore(path string) *FileSessionCacheStore {
	return &FileSessionCacheStore{path: path}
}

func (s *FileSessionCacheStore) LoadSnapshot(ctx context.Context, agentID string) (*types.SessionSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return nil, false, err
	}
	snapshot, ok := file.Agents[normalizeAgentID(agentID)]
	if !ok || snapshot == nil {
		return nil, false, nil
	}
	return snapshot, true, nil
}

func (s *FileSessionCacheStore) SaveSnapshot(ctx context.Context, agentID string, snapshot *types.SessionSnapshot) error {
	if snapshot == nil {
		return errors.New("snapshot is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}
	file.Agents[normalizeAgentID(agentID)] = snapshot
	return writeJSONAtomic(s.path, file)
}

func (s *FileSessionCacheStore) load() (*sessionCacheFile, error) {
	file := &sessionCacheFile{}
	if err := readJSON(s.path, file); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if file.Agents == nil {
		file.Agents = map[string]*types.SessionSnapshot{}
	}
	return file, nil
}
