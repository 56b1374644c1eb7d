package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"garden-volume-watch/internal/domain"
	"garden-volume-watch/internal/storage"
)

// OutcomeStore is an in-memory implementation of storage.OutcomeStore
// and storage.OutcomeAnalyticsStore.
type OutcomeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.NormalizedOutcome // keyed by order_id
}

// NewOutcomeStore creates a new in-memory outcome store.
func NewOutcomeStore() *OutcomeStore {
	return &OutcomeStore{
		data: make(map[string]*domain.NormalizedOutcome),
	}
}

// Insert adds a new outcome. Returns ErrDuplicateKey if order_id exists.
func (s *OutcomeStore) Insert(_ context.Context, o *domain.NormalizedOutcome) error {
	if o == nil || o.OrderID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[o.OrderID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	outcomeCopy := *o
	s.data[o.OrderID] = &outcomeCopy
	return nil
}

// InsertBulk adds multiple outcomes atomically. Fails entire batch on any duplicate.
func (s *OutcomeStore) InsertBulk(_ context.Context, outcomes []*domain.NormalizedOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]struct{}, len(outcomes))
	for _, o := range outcomes {
		if o == nil || o.OrderID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[o.OrderID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[o.OrderID]; exists {
			return storage.ErrDuplicateKey
		}
		batch[o.OrderID] = struct{}{}
	}

	for _, o := range outcomes {
		outcomeCopy := *o
		s.data[o.OrderID] = &outcomeCopy
	}
	return nil
}

// GetByID retrieves an outcome by order id. Returns ErrNotFound if not exists.
func (s *OutcomeStore) GetByID(_ context.Context, orderID string) (*domain.NormalizedOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, exists := s.data[orderID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	outcomeCopy := *o
	return &outcomeCopy, nil
}

// Recent returns up to limit outcomes, newest first.
func (s *OutcomeStore) Recent(_ context.Context, limit int) ([]*domain.NormalizedOutcome, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.NormalizedOutcome, 0, len(s.data))
	for _, o := range s.data {
		outcomeCopy := *o
		result = append(result, &outcomeCopy)
	}

	// Sort by created_at DESC, order_id ASC
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].OrderID < result[j].OrderID
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// VolumeByRoute aggregates outcomes created within [start, end] (inclusive) by chain pair.
func (s *OutcomeStore) VolumeByRoute(_ context.Context, start, end time.Time) ([]storage.RouteVolume, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type routeKey struct{ src, dst string }
	byRoute := make(map[routeKey]*storage.RouteVolume)
	for _, o := range s.data {
		if o.CreatedAt.Before(start) || o.CreatedAt.After(end) {
			continue
		}
		k := routeKey{o.SourceChain, o.DestinationChain}
		rv, ok := byRoute[k]
		if !ok {
			rv = &storage.RouteVolume{SourceChain: k.src, DestinationChain: k.dst}
			byRoute[k] = rv
		}
		rv.Swaps++
		rv.VolumeUSD += o.VolumeUSD
		rv.FeeSavedUSD += o.FeeSavedUSD
	}

	result := make([]storage.RouteVolume, 0, len(byRoute))
	for _, rv := range byRoute {
		result = append(result, *rv)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].VolumeUSD != result[j].VolumeUSD {
			return result[i].VolumeUSD > result[j].VolumeUSD
		}
		if result[i].SourceChain != result[j].SourceChain {
			return result[i].SourceChain < result[j].SourceChain
		}
		return result[i].DestinationChain < result[j].DestinationChain
	})
	return result, nil
}

// Verify interface compliance
var (
	_ storage.OutcomeStore          = (*OutcomeStore)(nil)
	_ storage.OutcomeAnalyticsStore = (*OutcomeStore)(nil)
)
