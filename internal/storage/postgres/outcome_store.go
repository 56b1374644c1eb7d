package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"garden-volume-watch/internal/domain"
	"garden-volume-watch/internal/storage"
)

// OutcomeStore is a PostgreSQL implementation of storage.OutcomeStore.
type OutcomeStore struct {
	pool *Pool
}

// NewOutcomeStore creates a new PostgreSQL outcome store.
func NewOutcomeStore(pool *Pool) *OutcomeStore {
	return &OutcomeStore{pool: pool}
}

const outcomeColumns = `
	order_id, source_chain, destination_chain, source_asset, destination_asset,
	source_amount, destination_amount, source_swap_amount, destination_swap_amount,
	input_token_price, output_token_price,
	volume_usd, garden_fee_usd, garden_time_seconds,
	fee_saved_usd, time_saved_seconds, time_saved_display,
	competitor_max_fee_usd, competitor_max_time_seconds,
	competitor_max_fee_display, competitor_max_time_display,
	max_fee_provider, max_time_provider, created_at`

// Insert adds a new outcome. Returns ErrDuplicateKey if order_id exists.
func (s *OutcomeStore) Insert(ctx context.Context, o *domain.NormalizedOutcome) (err error) {
	if o == nil || o.OrderID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("insert_outcome", start, err) }(time.Now())

	_, err = s.pool.Exec(ctx, `
		INSERT INTO swap_outcomes (`+outcomeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`,
		o.OrderID, o.SourceChain, o.DestinationChain, o.SourceAsset, o.DestinationAsset,
		o.SourceAmount, o.DestinationAmount, o.SourceSwapAmount, o.DestinationSwapAmount,
		o.InputTokenPrice, o.OutputTokenPrice,
		o.VolumeUSD, o.GardenFeeUSD, o.GardenTimeSeconds,
		o.FeeSavedUSD, o.TimeSavedSeconds, o.TimeSavedDisplay,
		o.CompetitorMaxFeeUSD, o.CompetitorMaxTimeSeconds,
		o.CompetitorMaxFeeDisplay, o.CompetitorMaxTimeDisplay,
		string(o.MaxFeeProvider), string(o.MaxTimeProvider), o.CreatedAt.UTC(),
	)
	if isDuplicateKeyError(err) {
		return storage.ErrDuplicateKey
	}
	return err
}

// GetByID retrieves an outcome by order id. Returns ErrNotFound if not exists.
func (s *OutcomeStore) GetByID(ctx context.Context, orderID string) (o *domain.NormalizedOutcome, err error) {
	defer func(start time.Time) { observe("get_outcome", start, err) }(time.Now())

	row := s.pool.QueryRow(ctx, `
		SELECT `+outcomeColumns+`
		FROM swap_outcomes
		WHERE order_id = $1
	`, orderID)

	o, err = scanOutcome(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return o, err
}

// Recent returns up to limit outcomes, newest first.
func (s *OutcomeStore) Recent(ctx context.Context, limit int) (result []*domain.NormalizedOutcome, err error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("recent_outcomes", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT `+outcomeColumns+`
		FROM swap_outcomes
		ORDER BY created_at DESC, order_id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

// scanOutcome scans a single row into a NormalizedOutcome.
func scanOutcome(row pgx.Row) (*domain.NormalizedOutcome, error) {
	var (
		o                       domain.NormalizedOutcome
		maxFeeProv, maxTimeProv string
	)
	err := row.Scan(
		&o.OrderID, &o.SourceChain, &o.DestinationChain, &o.SourceAsset, &o.DestinationAsset,
		&o.SourceAmount, &o.DestinationAmount, &o.SourceSwapAmount, &o.DestinationSwapAmount,
		&o.InputTokenPrice, &o.OutputTokenPrice,
		&o.VolumeUSD, &o.GardenFeeUSD, &o.GardenTimeSeconds,
		&o.FeeSavedUSD, &o.TimeSavedSeconds, &o.TimeSavedDisplay,
		&o.CompetitorMaxFeeUSD, &o.CompetitorMaxTimeSeconds,
		&o.CompetitorMaxFeeDisplay, &o.CompetitorMaxTimeDisplay,
		&maxFeeProv, &maxTimeProv, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.MaxFeeProvider = domain.Provider(maxFeeProv)
	o.MaxTimeProvider = domain.Provider(maxTimeProv)
	o.CreatedAt = o.CreatedAt.UTC()
	o.Timestamp = o.CreatedAt.Format(time.RFC3339)
	return &o, nil
}

// Verify interface compliance
var _ storage.OutcomeStore = (*OutcomeStore)(nil)
