package storage

import (
	"context"

	"dlmm-position-lab/internal/domain"
)

// PositionStore holds the latest snapshot of each tracked position per owner.
type PositionStore interface {
	// Upsert stores or replaces the snapshot for (owner, position.ID).
	// Returns ErrInvalidInput when owner or position.ID is empty.
	Upsert(ctx context.Context, owner string, p *domain.Position) error

	// GetByID retrieves one position snapshot. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, owner, positionID string) (*domain.Position, error)

	// ListByOwner retrieves all snapshots for an owner, ordered by position ID.
	ListByOwner(ctx context.Context, owner string) ([]*domain.Position, error)

	// Delete removes one snapshot. Returns ErrNotFound if absent.
	Delete(ctx context.Context, owner, positionID string) error
}

// BacktestRunStore persists completed backtest runs.
type BacktestRunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run.ID exists.
	Insert(ctx context.Context, run *domain.BacktestRun) error

	// GetByID retrieves a run with its results. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, runID string) (*domain.BacktestRun, error)

	// ListRecent retrieves up to limit runs, newest first. Results are not
	// populated; use GetByID for the full run.
	ListRecent(ctx context.Context, limit int) ([]*domain.BacktestRun, error)
}

// PerformancePointStore persists the equity-curve series of backtest runs.
// Series are append-only and keyed by (run_id, strategy).
type PerformancePointStore interface {
	// InsertBulk appends points for one run and strategy.
	InsertBulk(ctx context.Context, runID, strategy string, points []domain.PerformancePoint) error

	// GetSeries retrieves the series for (runID, strategy), ordered by date ASC.
	GetSeries(ctx context.Context, runID, strategy string) ([]domain.PerformancePoint, error)
}
