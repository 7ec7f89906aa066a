package clickhouse

import (
	"context"
	"fmt"

	"dlmm-position-lab/internal/domain"
	"dlmm-position-lab/internal/storage"
)

// PerformancePointStore implements storage.PerformancePointStore using
// ClickHouse. Equity curves are append-only, which suits MergeTree.
type PerformancePointStore struct {
	conn *Conn
}

// NewPerformancePointStore creates a new PerformancePointStore.
func NewPerformancePointStore(conn *Conn) *PerformancePointStore {
	return &PerformancePointStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PerformancePointStore = (*PerformancePointStore)(nil)

// InsertBulk appends points for one run and strategy.
func (s *PerformancePointStore) InsertBulk(ctx context.Context, runID, strategy string, points []domain.PerformancePoint) error {
	if runID == "" || strategy == "" {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO performance_points (
			run_id, strategy, date, value, benchmark
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err := batch.Append(runID, strategy, p.Date, p.Value, p.Benchmark); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetSeries retrieves the series for (runID, strategy), ordered by date ASC.
func (s *PerformancePointStore) GetSeries(ctx context.Context, runID, strategy string) ([]domain.PerformancePoint, error) {
	query := `
		SELECT date, value, benchmark
		FROM performance_points
		WHERE run_id = ? AND strategy = ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, runID, strategy)
	if err != nil {
		return nil, fmt.Errorf("query performance points: %w", err)
	}
	defer rows.Close()

	result := make([]domain.PerformancePoint, 0)
	for rows.Next() {
		var p domain.PerformancePoint
		if err := rows.Scan(&p.Date, &p.Value, &p.Benchmark); err != nil {
			return nil, fmt.Errorf("scan performance point: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate performance points: %w", err)
	}
	return result, nil
}
