package status

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	runs map[string]*RunStatus
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{runs: make(map[string]*RunStatus)}
}

func (m *Memory) Get(_ context.Context, id string) (*RunStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rs, ok := m.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(rs), nil
}

func (m *Memory) Put(_ context.Context, rs *RunStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[rs.ID] = clone(rs)
	return nil
}

func (m *Memory) List(_ context.Context, limit int) ([]*RunStatus, error) {
	m.mu.RLock()
	out := make([]*RunStatus, 0, len(m.runs))
	for _, rs := range m.runs {
		out = append(out, clone(rs))
	}
	m.mu.RUnlock()
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
