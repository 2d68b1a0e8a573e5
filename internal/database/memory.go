package database

import (
	"context"
	"sync"
	"time"
)

// Memory keeps everything in process. It backs single process runs and tests.
type Memory struct {
	mu       sync.RWMutex
	values   map[string]memoryValue
	episodes map[int64]Episode
	now      func() time.Time
}

type memoryValue struct {
	data    string
	expires time.Time
}

func NewMemory() *Memory {
	return &Memory{
		values:   make(map[string]memoryValue),
		episodes: make(map[int64]Episode),
		now:      time.Now,
	}
}

func (m *Memory) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok || (!v.expires.IsZero() && m.now().After(v.expires)) {
		return "", ErrNotFound
	}
	return v.data, nil
}

func (m *Memory) Set(key string, data string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := memoryValue{data: data}
	if expiration > 0 {
		v.expires = m.now().Add(expiration)
	}
	m.values[key] = v
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *Memory) UpsertManifestPath(_ context.Context, assetID int64, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	episode, ok := m.episodes[assetID]
	if !ok {
		episode = Draft(assetID, path, now)
	}
	episode.HLSPath = path
	episode.UpdatedAt = now
	m.episodes[assetID] = episode
	return nil
}

func (m *Memory) ManifestPath(_ context.Context, assetID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	episode, ok := m.episodes[assetID]
	if !ok || episode.HLSPath == "" {
		return "", ErrNotFound
	}
	return episode.HLSPath, nil
}

// Put registers an episode the way the catalog would, outside the pipeline.
func (m *Memory) Put(episode Episode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.episodes[episode.ID] = episode
}

func (m *Memory) Episode(_ context.Context, assetID int64) (Episode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	episode, ok := m.episodes[assetID]
	if !ok {
		return Episode{}, ErrNotFound
	}
	return episode, nil
}

func (m *Memory) Close() error {
	return nil
}
