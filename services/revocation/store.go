package revocation

import (
	"sync"
	"time"
)

// MemoryStore is a denylist of session credential IDs. Entries carry
// the credential's own expiry so the list never outgrows the set of
// still-live sessions.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]time.Time),
	}
}

func (m *MemoryStore) Revoke(jti string, expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[jti] = expiresAt
}

func (m *MemoryStore) IsRevoked(jti string) bool {
	m.mu.RLock()
	expiresAt, exists := m.entries[jti]
	m.mu.RUnlock()

	if !exists {
		return false
	}

	if time.Now().After(expiresAt) {
		m.mu.Lock()
		delete(m.entries, jti)
		m.mu.Unlock()
		return false
	}

	return true
}

func (m *MemoryStore) CleanupExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	removed := 0
	for jti, expiresAt := range m.entries {
		if now.After(expiresAt) {
			delete(m.entries, jti)
			removed++
		}
	}
	return removed
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
