package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garden-volume-watch/internal/domain"
	"garden-volume-watch/internal/storage"
	"garden-volume-watch/internal/storage/postgres"
)

func sampleOutcome(id string, at time.Time) *domain.NormalizedOutcome {
	return &domain.NormalizedOutcome{
		OrderID:                  id,
		SourceChain:              "bitcoin",
		DestinationChain:         "ethereum",
		SourceAsset:              "primary",
		DestinationAsset:         "0x795dcb58d1cd4789169d5f938ea05e17eceb68ca",
		SourceAmount:             0.00012,
		DestinationAmount:        0.00011964,
		SourceSwapAmount:         "12000",
		DestinationSwapAmount:    "11964",
		InputTokenPrice:          103281.95,
		OutputTokenPrice:         103281.95,
		VolumeUSD:                24.75,
		GardenFeeUSD:             0.037,
		GardenTimeSeconds:        600,
		FeeSavedUSD:              1.2,
		TimeSavedSeconds:         600,
		TimeSavedDisplay:         "10m 0s",
		CompetitorMaxFeeUSD:      1.237,
		CompetitorMaxTimeSeconds: 1200,
		CompetitorMaxFeeDisplay:  "$1.24",
		CompetitorMaxTimeDisplay: "20m 0s",
		MaxFeeProvider:           domain.ProviderThorSwap,
		MaxTimeProvider:          domain.ProviderRelay,
		CreatedAt:                at,
		Timestamp:                at.Format(time.RFC3339),
	}
}

func TestOutcomeStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewOutcomeStore(pool)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	o := sampleOutcome("order-1", at)
	require.NoError(t, store.Insert(ctx, o))

	got, err := store.GetByID(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, o, got)
}

func TestOutcomeStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewOutcomeStore(pool)
	ctx := context.Background()

	o := sampleOutcome("order-dup", time.Now().UTC().Truncate(time.Second))
	require.NoError(t, store.Insert(ctx, o))

	err := store.Insert(ctx, o)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestOutcomeStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewOutcomeStore(pool)
	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestOutcomeStore_Recent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewOutcomeStore(pool)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"o1", "o2", "o3"} {
		require.NoError(t, store.Insert(ctx, sampleOutcome(id, base.Add(time.Duration(i)*time.Minute))))
	}

	got, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "o3", got[0].OrderID)
	assert.Equal(t, "o2", got[1].OrderID)
}
