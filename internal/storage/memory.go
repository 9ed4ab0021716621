package storage

import (
	"context"
	"sync"
)

// Memory keeps slots in process memory. Useful for tests and dry runs.
type Memory struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{slots: make(map[string][]byte)}
}

func (m *Memory) Driver() Driver { return DriverMemory }

func (m *Memory) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.slots[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Memory) Write(_ context.Context, key string, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	m.mu.Lock()
	m.slots[key] = buf
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }
