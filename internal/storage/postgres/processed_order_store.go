package postgres

import (
	"context"
	"time"

	"garden-volume-watch/internal/storage"
)

// ProcessedOrderStore is a PostgreSQL implementation of storage.ProcessedOrderStore.
// Backed by the processed_orders table (order_id primary key).
type ProcessedOrderStore struct {
	pool *Pool
}

// NewProcessedOrderStore creates a new PostgreSQL processed order store.
func NewProcessedOrderStore(pool *Pool) *ProcessedOrderStore {
	return &ProcessedOrderStore{pool: pool}
}

// MarkProcessed records orderID. Repeat marks keep the first timestamp.
func (s *ProcessedOrderStore) MarkProcessed(ctx context.Context, orderID string, at time.Time) (err error) {
	if orderID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("mark_processed", start, err) }(time.Now())

	_, err = s.pool.Exec(ctx, `
		INSERT INTO processed_orders (order_id, processed_at)
		VALUES ($1, $2)
		ON CONFLICT (order_id) DO NOTHING
	`, orderID, at.UTC())
	return err
}

// IsProcessed reports whether orderID was marked.
func (s *ProcessedOrderStore) IsProcessed(ctx context.Context, orderID string) (ok bool, err error) {
	if orderID == "" {
		return false, storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("is_processed", start, err) }(time.Now())

	err = s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM processed_orders WHERE order_id = $1)
	`, orderID).Scan(&ok)
	return ok, err
}

// LoadProcessed returns all marked ids ordered by processed_at ASC.
func (s *ProcessedOrderStore) LoadProcessed(ctx context.Context) (ids []string, err error) {
	defer func(start time.Time) { observe("load_processed", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT order_id FROM processed_orders
		ORDER BY processed_at ASC, order_id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Count returns the number of marked ids.
func (s *ProcessedOrderStore) Count(ctx context.Context) (n int, err error) {
	defer func(start time.Time) { observe("count_processed", start, err) }(time.Now())

	err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM processed_orders`).Scan(&n)
	return n, err
}

// Verify interface compliance
var _ storage.ProcessedOrderStore = (*ProcessedOrderStore)(nil)
