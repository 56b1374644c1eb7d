package clickhouse

import (
	"context"
	"fmt"
	"time"

	"garden-volume-watch/internal/domain"
	"garden-volume-watch/internal/storage"
)

// OutcomeStore implements storage.OutcomeAnalyticsStore using ClickHouse.
// The table is a ReplacingMergeTree keyed by order_id; append-only semantics
// are enforced with an explicit existence check.
type OutcomeStore struct {
	conn *Conn
}

// NewOutcomeStore creates a new OutcomeStore.
func NewOutcomeStore(conn *Conn) *OutcomeStore {
	return &OutcomeStore{conn: conn}
}

// Compile-time interface check.
var _ storage.OutcomeAnalyticsStore = (*OutcomeStore)(nil)

// InsertBulk adds outcomes in one batch. Fails entire batch on any duplicate.
func (s *OutcomeStore) InsertBulk(ctx context.Context, outcomes []*domain.NormalizedOutcome) (err error) {
	if len(outcomes) == 0 {
		return nil
	}
	defer func(start time.Time) { observe("insert_outcomes", start, err) }(time.Now())

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(outcomes))
	ids := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if o == nil || o.OrderID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[o.OrderID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[o.OrderID] = struct{}{}
		ids = append(ids, o.OrderID)
	}

	// Check for duplicates against existing rows
	var count uint64
	if err := s.conn.QueryRow(ctx, `
		SELECT count(*) FROM swap_outcomes FINAL
		WHERE order_id IN ?
	`, ids).Scan(&count); err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if count > 0 {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO swap_outcomes (
			order_id, source_chain, destination_chain, source_asset, destination_asset,
			source_amount, destination_amount,
			volume_usd, garden_fee_usd, fee_saved_usd, time_saved_seconds,
			competitor_max_fee_usd, competitor_max_time_seconds,
			max_fee_provider, max_time_provider, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range outcomes {
		err = batch.Append(
			o.OrderID, o.SourceChain, o.DestinationChain, o.SourceAsset, o.DestinationAsset,
			o.SourceAmount, o.DestinationAmount,
			o.VolumeUSD, o.GardenFeeUSD, o.FeeSavedUSD, o.TimeSavedSeconds,
			o.CompetitorMaxFeeUSD, o.CompetitorMaxTimeSeconds,
			string(o.MaxFeeProvider), string(o.MaxTimeProvider), o.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// VolumeByRoute aggregates outcomes created within [start, end] by chain pair.
func (s *OutcomeStore) VolumeByRoute(ctx context.Context, start, end time.Time) (result []storage.RouteVolume, err error) {
	defer func(t time.Time) { observe("volume_by_route", t, err) }(time.Now())

	rows, err := s.conn.Query(ctx, `
		SELECT
			source_chain, destination_chain,
			count() AS swaps,
			sum(volume_usd) AS volume,
			sum(fee_saved_usd) AS saved
		FROM swap_outcomes FINAL
		WHERE created_at >= ? AND created_at <= ?
		GROUP BY source_chain, destination_chain
		ORDER BY volume DESC, source_chain ASC, destination_chain ASC
	`, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query volume by route: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rv storage.RouteVolume
		if err := rows.Scan(&rv.SourceChain, &rv.DestinationChain, &rv.Swaps, &rv.VolumeUSD, &rv.FeeSavedUSD); err != nil {
			return nil, fmt.Errorf("scan route row: %w", err)
		}
		result = append(result, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate route rows: %w", err)
	}
	return result, nil
}
