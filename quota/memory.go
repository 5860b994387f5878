package quota

import (
	"context"
	"sync"

	"github.com/chaupham1092/lcalbizfinder/app/models"
)

// MemoryStore keeps quotas in process. Used for tests and local runs.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]int
	writes  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]int)}
}

func (m *MemoryStore) Get(_ context.Context, userID string) (models.QuotaRecord, error) {
	if userID == "" {
		return models.QuotaRecord{}, ErrInvalidUser
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.records[userID]
	if !ok {
		return models.QuotaRecord{}, ErrNotFound
	}
	return models.QuotaRecord{UserID: userID, SearchesRemaining: n}, nil
}

func (m *MemoryStore) Provision(_ context.Context, userID string, initial int) (bool, error) {
	if userID == "" {
		return false, ErrInvalidUser
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[userID]; ok {
		return false, nil
	}
	m.records[userID] = clampNonNegative(initial)
	m.writes++
	return true, nil
}

func (m *MemoryStore) Grant(_ context.Context, userID string, value int) error {
	if userID == "" {
		return ErrInvalidUser
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[userID] = clampNonNegative(value)
	m.writes++
	return nil
}

func (m *MemoryStore) Consume(_ context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrInvalidUser
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.records[userID]
	if !ok {
		return 0, ErrNotFound
	}
	if n <= 0 {
		return 0, ErrExhausted
	}
	n--
	m.records[userID] = n
	m.writes++
	return n, nil
}

// Writes returns how many mutations the store has applied.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *MemoryStore) Close() error { return nil }

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
