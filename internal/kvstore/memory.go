package kvstore

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process backend with an optional byte quota, counted as
// len(key)+len(value) across all entries. A quota of zero or less is unlimited.
type Memory struct {
	mu    sync.RWMutex
	data  map[string]string
	size  int64
	quota int64
}

// NewMemory returns an empty in-memory backend.
func NewMemory(quotaBytes int64) *Memory {
	return &Memory{data: make(map[string]string), quota: quotaBytes}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delta := int64(len(key) + len(value))
	if old, ok := m.data[key]; ok {
		delta -= int64(len(key) + len(old))
	}
	if m.quota > 0 && m.size+delta > m.quota {
		return ErrQuotaExceeded
	}
	m.data[key] = value
	m.size += delta
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.data[key]; ok {
		m.size -= int64(len(key) + len(old))
		delete(m.data, key)
	}
	return nil
}

func (m *Memory) Keys(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Close() error { return nil }

// Size returns the bytes currently counted against the quota.
func (m *Memory) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}
