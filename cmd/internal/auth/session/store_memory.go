package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and single-node runs.
type MemoryStore struct {
	mu       sync.RWMutex
	byHash   map[string]Session
	identity map[string]map[string]struct{}
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byHash:   make(map[string]Session),
		identity: make(map[string]map[string]struct{}),
	}
}

func (m *MemoryStore) Create(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.byHash[s.TokenHash] = s
	idx, ok := m.identity[s.IdentityID]
	if !ok {
		idx = make(map[string]struct{})
		m.identity[s.IdentityID] = idx
	}
	idx[s.TokenHash] = struct{}{}
	return nil
}

func (m *MemoryStore) FindByToken(_ context.Context, refreshToken string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.byHash[hashToken(refreshToken)]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (m *MemoryStore) DeleteByToken(_ context.Context, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteHashLocked(hashToken(refreshToken))
	return nil
}

func (m *MemoryStore) DeleteAllForIdentity(_ context.Context, identityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for hash := range m.identity[identityID] {
		delete(m.byHash, hash)
	}
	delete(m.identity, identityID)
	return nil
}

func (m *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for hash, s := range m.byHash {
		if !s.Live(now) {
			m.deleteHashLocked(hash)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) deleteHashLocked(hash string) {
	s, ok := m.byHash[hash]
	if !ok {
		return
	}
	delete(m.byHash, hash)
	if idx, ok := m.identity[s.IdentityID]; ok {
		delete(idx, hash)
		if len(idx) == 0 {
			delete(m.identity, s.IdentityID)
		}
	}
}
