package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"dlmm-position-lab/internal/domain"
	"dlmm-position-lab/internal/storage"
)

func TestPositionStore_UpsertAndGet(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	p := &domain.Position{
		ID:           "pos-1",
		Pair:         "SOL/USDC",
		TVL:          45230.50,
		Range:        domain.PriceRange{Min: 95.5, Max: 102.3},
		CurrentPrice: 98.45,
		InRange:      true,
	}

	if err := store.Upsert(ctx, "owner-1", p); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "owner-1", "pos-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Pair != p.Pair {
		t.Errorf("Pair mismatch: got %s, want %s", got.Pair, p.Pair)
	}
	if got.TVL != p.TVL {
		t.Errorf("TVL mismatch: got %f, want %f", got.TVL, p.TVL)
	}
}

func TestPositionStore_UpsertReplaces(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	p := &domain.Position{ID: "pos-1", TVL: 100}
	if err := store.Upsert(ctx, "owner-1", p); err != nil {
		t.Fatal(err)
	}
	p.TVL = 200
	if err := store.Upsert(ctx, "owner-1", p); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetByID(ctx, "owner-1", "pos-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.TVL != 200 {
		t.Errorf("TVL = %f, want 200", got.TVL)
	}
}

func TestPositionStore_InvalidInput(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, "", &domain.Position{ID: "pos-1"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty owner: got %v", err)
	}
	if err := store.Upsert(ctx, "owner-1", &domain.Position{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty position ID: got %v", err)
	}
	if err := store.Upsert(ctx, "owner-1", nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil position: got %v", err)
	}
}

func TestPositionStore_NotFound(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	if _, err := store.GetByID(ctx, "owner-1", "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetByID: got %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "owner-1", "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Delete: got %v, want ErrNotFound", err)
	}
}

func TestPositionStore_ListByOwnerOrdered(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	for _, id := range []string{"pos-3", "pos-1", "pos-2"} {
		if err := store.Upsert(ctx, "owner-1", &domain.Position{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	// Another owner's positions must not leak in.
	if err := store.Upsert(ctx, "owner-2", &domain.Position{ID: "pos-9"}); err != nil {
		t.Fatal(err)
	}

	got, err := store.ListByOwner(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d positions, want 3", len(got))
	}
	for i, want := range []string{"pos-1", "pos-2", "pos-3"} {
		if got[i].ID != want {
			t.Errorf("position[%d] = %s, want %s", i, got[i].ID, want)
		}
	}
}

func TestPositionStore_Delete(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, "owner-1", &domain.Position{ID: "pos-1"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "owner-1", "pos-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetByID(ctx, "owner-1", "pos-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("got %v after delete", err)
	}
}

func TestPositionStore_ReturnsCopies(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	p := &domain.Position{
		ID:           "pos-1",
		PriceHistory: []domain.PricePoint{{Time: "00:00", Price: 100}},
	}
	if err := store.Upsert(ctx, "owner-1", p); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetByID(ctx, "owner-1", "pos-1")
	if err != nil {
		t.Fatal(err)
	}
	got.PriceHistory[0].Price = 999

	again, err := store.GetByID(ctx, "owner-1", "pos-1")
	if err != nil {
		t.Fatal(err)
	}
	if again.PriceHistory[0].Price != 100 {
		t.Error("mutation through returned copy leaked into the store")
	}
}

func TestPositionStore_ConcurrentUpserts(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			p := &domain.Position{ID: "pos-1", TVL: float64(n)}
			if err := store.Upsert(ctx, "owner-1", p); err != nil {
				t.Errorf("Upsert failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := store.ListByOwner(ctx, "owner-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("got %d positions, want 1", len(got))
	}
}
