package calls

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for tests and early development.

type MemoryStore struct {
	mu       sync.Mutex
	byCallID map[string]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byCallID: make(map[string]Session)}
}

func (m *MemoryStore) Upsert(ctx context.Context, s Session) error {
	if s.CallID == "" {
		return errors.New("call_id required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byCallID[s.CallID] = s
	return nil
}

func (m *MemoryStore) GetByCallID(ctx context.Context, callID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byCallID[callID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	m.mu.Lock()
	all := make([]Session, 0, len(m.byCallID))
	for _, s := range m.byCallID {
		if s.CallerID == userID || s.ReceiverID == userID {
			all = append(all, s)
		}
	}
	m.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if offset >= len(all) {
		return []Session{}, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Len reports how many records have been written.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byCallID)
}
