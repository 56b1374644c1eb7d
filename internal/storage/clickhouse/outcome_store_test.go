package clickhouse_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garden-volume-watch/internal/domain"
	"garden-volume-watch/internal/storage"
	"garden-volume-watch/internal/storage/clickhouse"
)

func routeOutcome(id, src, dst string, volume float64, at time.Time) *domain.NormalizedOutcome {
	return &domain.NormalizedOutcome{
		OrderID:          id,
		SourceChain:      src,
		DestinationChain: dst,
		SourceAsset:      "primary",
		DestinationAsset: "0xabc",
		VolumeUSD:        volume,
		FeeSavedUSD:      2,
		MaxFeeProvider:   domain.ProviderRelay,
		MaxTimeProvider:  domain.ProviderChainflip,
		CreatedAt:        at,
	}
}

func TestOutcomeStore_InsertBulkAndVolumeByRoute(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewOutcomeStore(conn)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	err := store.InsertBulk(ctx, []*domain.NormalizedOutcome{
		routeOutcome("a", "bitcoin", "ethereum", 400, base),
		routeOutcome("b", "bitcoin", "ethereum", 600, base.Add(time.Hour)),
		routeOutcome("c", "arbitrum", "bitcoin", 350, base.Add(2*time.Hour)),
		routeOutcome("d", "arbitrum", "bitcoin", 9000, base.Add(72*time.Hour)),
	})
	require.NoError(t, err)

	routes, err := store.VolumeByRoute(ctx, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, routes, 2)

	assert.Equal(t, "bitcoin", routes[0].SourceChain)
	assert.Equal(t, uint64(2), routes[0].Swaps)
	assert.InDelta(t, 1000, routes[0].VolumeUSD, 1e-9)
	assert.InDelta(t, 4, routes[0].FeeSavedUSD, 1e-9)
	assert.Equal(t, "arbitrum", routes[1].SourceChain)
}

func TestOutcomeStore_InsertBulkDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := clickhouse.NewOutcomeStore(conn)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.InsertBulk(ctx, []*domain.NormalizedOutcome{routeOutcome("a", "bitcoin", "base", 500, at)}))

	err := store.InsertBulk(ctx, []*domain.NormalizedOutcome{routeOutcome("a", "bitcoin", "base", 500, at)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.InsertBulk(ctx, []*domain.NormalizedOutcome{
		routeOutcome("x", "bitcoin", "base", 1, at),
		routeOutcome("x", "bitcoin", "base", 1, at),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}
