package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"garden-volume-watch/internal/storage"
)

// ProcessedOrderStore is an in-memory implementation of storage.ProcessedOrderStore.
type ProcessedOrderStore struct {
	mu   sync.RWMutex
	data map[string]time.Time // order_id -> processed_at
}

// NewProcessedOrderStore creates a new in-memory processed order store.
func NewProcessedOrderStore() *ProcessedOrderStore {
	return &ProcessedOrderStore{
		data: make(map[string]time.Time),
	}
}

// MarkProcessed records orderID. The first timestamp wins on repeat marks.
func (s *ProcessedOrderStore) MarkProcessed(_ context.Context, orderID string, at time.Time) error {
	if orderID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[orderID]; exists {
		return nil
	}
	s.data[orderID] = at.UTC()
	return nil
}

// IsProcessed reports whether orderID was marked.
func (s *ProcessedOrderStore) IsProcessed(_ context.Context, orderID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.data[orderID]
	return exists, nil
}

// LoadProcessed returns all marked ids ordered by processed_at ASC.
func (s *ProcessedOrderStore) LoadProcessed(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ti, tj := s.data[ids[i]], s.data[ids[j]]
		if ti.Equal(tj) {
			return ids[i] < ids[j]
		}
		return ti.Before(tj)
	})
	return ids, nil
}

// Count returns the number of marked ids.
func (s *ProcessedOrderStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

// Verify interface compliance
var _ storage.ProcessedOrderStore = (*ProcessedOrderStore)(nil)
