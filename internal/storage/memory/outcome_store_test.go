package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"garden-volume-watch/internal/domain"
	"garden-volume-watch/internal/storage"
)

func testOutcome(id string, src, dst string, volume float64, at time.Time) *domain.NormalizedOutcome {
	return &domain.NormalizedOutcome{
		OrderID:          id,
		SourceChain:      src,
		DestinationChain: dst,
		VolumeUSD:        volume,
		FeeSavedUSD:      volume / 100,
		CreatedAt:        at,
		Timestamp:        at.Format(time.RFC3339),
	}
}

func TestOutcomeStore_InsertAndGet(t *testing.T) {
	store := NewOutcomeStore()
	ctx := context.Background()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	o := testOutcome("order-1", "bitcoin", "ethereum", 500, at)
	if err := store.Insert(ctx, o); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Mutating the caller's copy must not leak into the store
	o.VolumeUSD = 1

	got, err := store.GetByID(ctx, "order-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.VolumeUSD != 500 {
		t.Errorf("VolumeUSD = %v, want 500", got.VolumeUSD)
	}
}

func TestOutcomeStore_DuplicateKey(t *testing.T) {
	store := NewOutcomeStore()
	ctx := context.Background()
	o := testOutcome("order-1", "bitcoin", "ethereum", 500, time.Now())

	if err := store.Insert(ctx, o); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	err := store.Insert(ctx, o)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestOutcomeStore_NotFound(t *testing.T) {
	store := NewOutcomeStore()
	_, err := store.GetByID(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOutcomeStore_Recent(t *testing.T) {
	store := NewOutcomeStore()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if err := store.Insert(ctx, testOutcome(id, "bitcoin", "base", 400, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(got))
	}
	if got[0].OrderID != "c" || got[1].OrderID != "b" {
		t.Errorf("unexpected order: %s, %s", got[0].OrderID, got[1].OrderID)
	}

	if _, err := store.Recent(ctx, 0); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for zero limit, got %v", err)
	}
}

func TestOutcomeStore_InsertBulkAtomic(t *testing.T) {
	store := NewOutcomeStore()
	ctx := context.Background()
	at := time.Now()

	_ = store.Insert(ctx, testOutcome("x", "bitcoin", "base", 1, at))

	err := store.InsertBulk(ctx, []*domain.NormalizedOutcome{
		testOutcome("y", "bitcoin", "base", 1, at),
		testOutcome("x", "bitcoin", "base", 1, at),
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if _, err := store.GetByID(ctx, "y"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("failed batch must not insert any outcome")
	}
}

func TestOutcomeStore_VolumeByRoute(t *testing.T) {
	store := NewOutcomeStore()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	err := store.InsertBulk(ctx, []*domain.NormalizedOutcome{
		testOutcome("1", "bitcoin", "ethereum", 300, base),
		testOutcome("2", "bitcoin", "ethereum", 700, base.Add(time.Hour)),
		testOutcome("3", "base", "bitcoin", 400, base.Add(2*time.Hour)),
		testOutcome("4", "base", "bitcoin", 5000, base.Add(48*time.Hour)),
	})
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	routes, err := store.VolumeByRoute(ctx, base, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("VolumeByRoute failed: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("got %d routes, want 2", len(routes))
	}
	if routes[0].SourceChain != "bitcoin" || routes[0].Swaps != 2 || routes[0].VolumeUSD != 1000 {
		t.Errorf("unexpected first route: %+v", routes[0])
	}
	if routes[1].SourceChain != "base" || routes[1].VolumeUSD != 400 {
		t.Errorf("unexpected second route: %+v", routes[1])
	}
}
