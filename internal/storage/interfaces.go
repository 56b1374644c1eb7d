package storage

import (
	"context"
	"time"

	"garden-volume-watch/internal/domain"
)

// ProcessedOrderStore persists the ids of orders that were published.
// It backs the watcher's dedup set across restarts.
type ProcessedOrderStore interface {
	// MarkProcessed records orderID as published at the given time.
	// Marking an id twice is not an error.
	MarkProcessed(ctx context.Context, orderID string, at time.Time) error

	// IsProcessed reports whether orderID was marked.
	IsProcessed(ctx context.Context, orderID string) (bool, error)

	// LoadProcessed returns every marked id (for warming the in-memory set).
	LoadProcessed(ctx context.Context) ([]string, error)

	// Count returns the number of marked ids.
	Count(ctx context.Context) (int, error)
}

// OutcomeStore keeps the history of published outcomes.
type OutcomeStore interface {
	// Insert adds an outcome. Returns ErrDuplicateKey if OrderID exists.
	Insert(ctx context.Context, o *domain.NormalizedOutcome) error

	// GetByID retrieves an outcome by order id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, orderID string) (*domain.NormalizedOutcome, error)

	// Recent returns up to limit outcomes, newest CreatedAt first.
	Recent(ctx context.Context, limit int) ([]*domain.NormalizedOutcome, error)
}

// RouteVolume is the aggregated volume of one chain pair.
type RouteVolume struct {
	SourceChain      string  `json:"source_chain"`
	DestinationChain string  `json:"destination_chain"`
	Swaps            uint64  `json:"swaps"`
	VolumeUSD        float64 `json:"volume_usd"`
	FeeSavedUSD      float64 `json:"fee_saved_usd"`
}

// OutcomeAnalyticsStore is the columnar copy of outcomes used for reporting.
type OutcomeAnalyticsStore interface {
	// InsertBulk adds outcomes. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, outcomes []*domain.NormalizedOutcome) error

	// VolumeByRoute aggregates outcomes created within [start, end] by chain pair,
	// ordered by volume descending.
	VolumeByRoute(ctx context.Context, start, end time.Time) ([]RouteVolume, error)
}
