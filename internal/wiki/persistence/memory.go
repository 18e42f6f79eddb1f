package persistence

import (
	"context"
	"sync"
)

// MemoryAdapter keeps records in process memory. Used for development and tests.
type MemoryAdapter struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{records: make(map[string][]byte)}
}

func (m *MemoryAdapter) Load(ctx context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.records[name]
	if !ok {
		return nil, ErrRecordNotFound
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (m *MemoryAdapter) Save(ctx context.Context, name string, data []byte) error {
	b := make([]byte, len(data))
	copy(b, data)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[name] = b
	return nil
}
