package memory

import (
	"context"
	"errors"
	"testing"

	"dlmm-position-lab/internal/domain"
	"dlmm-position-lab/internal/storage"
)

func sampleRun(id string, createdAt int64) *domain.BacktestRun {
	return &domain.BacktestRun{
		ID:        id,
		CreatedAt: createdAt,
		Capital:   1000,
		Timeframe: domain.Timeframe90d,
		Results: []domain.BacktestResult{
			{Strategy: "Aggressive Rebalancing", TotalReturn: 24.5, SharpeRatio: 1.8},
			{Strategy: "Conservative Wide", TotalReturn: 11.2, SharpeRatio: 1.2},
		},
	}
}

func TestBacktestRunStore_InsertAndGet(t *testing.T) {
	store := NewBacktestRunStore()
	ctx := context.Background()

	run := sampleRun("run-1", 1704067200000)
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(got.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(got.Results))
	}
	if got.Results[0].Strategy != "Aggressive Rebalancing" {
		t.Errorf("first result = %s", got.Results[0].Strategy)
	}
}

func TestBacktestRunStore_DuplicateKey(t *testing.T) {
	store := NewBacktestRunStore()
	ctx := context.Background()

	if err := store.Insert(ctx, sampleRun("run-1", 1)); err != nil {
		t.Fatal(err)
	}
	if err := store.Insert(ctx, sampleRun("run-1", 2)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("got %v, want ErrDuplicateKey", err)
	}
}

func TestBacktestRunStore_NotFound(t *testing.T) {
	store := NewBacktestRunStore()
	if _, err := store.GetByID(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestBacktestRunStore_ListRecentNewestFirst(t *testing.T) {
	store := NewBacktestRunStore()
	ctx := context.Background()

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		if err := store.Insert(ctx, sampleRun(id, int64(i+1))); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.ListRecent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d runs, want 2", len(got))
	}
	if got[0].ID != "run-c" || got[1].ID != "run-b" {
		t.Errorf("order = %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].Results != nil {
		t.Error("ListRecent should not populate results")
	}
}

func TestBacktestRunStore_ReturnsCopies(t *testing.T) {
	store := NewBacktestRunStore()
	ctx := context.Background()

	if err := store.Insert(ctx, sampleRun("run-1", 1)); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetByID(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	got.Results[0].TotalReturn = -1

	again, err := store.GetByID(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if again.Results[0].TotalReturn != 24.5 {
		t.Error("mutation through returned copy leaked into the store")
	}
}
