package observation

import (
	"context"
	"sync"

	"github.com/ketracker/backend/internal/domain"
)

// MemoryStore is a thread-safe in-memory observation store.
// Entries are never evicted and live as long as the process.
type MemoryStore struct {
	stock        map[domain.VariantRef]int
	observations map[domain.VariantRef]domain.Observation
	mutex        sync.RWMutex
}

// NewMemoryStore creates a new in-memory observation store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stock:        make(map[domain.VariantRef]int),
		observations: make(map[domain.VariantRef]domain.Observation),
	}
}

// RecordStock stores stock as the last alerted level for ref and returns the level it replaced
func (s *MemoryStore) RecordStock(ctx context.Context, ref domain.VariantRef, stock int) (int, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	prev, existed := s.stock[ref]
	s.stock[ref] = stock
	return prev, existed
}

// RecordObservation stores obs as the latest observation of its variant and returns the one it replaced
func (s *MemoryStore) RecordObservation(ctx context.Context, obs domain.Observation) (domain.Observation, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ref := obs.Ref()
	prev, existed := s.observations[ref]
	s.observations[ref] = obs
	return prev, existed
}
