package memory

import (
	"context"
	"sort"
	"sync"

	"dlmm-position-lab/internal/domain"
	"dlmm-position-lab/internal/storage"
)

type seriesKey struct {
	runID    string
	strategy string
}

// PerformancePointStore is an in-memory implementation of
// storage.PerformancePointStore.
type PerformancePointStore struct {
	mu   sync.RWMutex
	data map[seriesKey][]domain.PerformancePoint
}

// NewPerformancePointStore creates a new in-memory performance point store.
func NewPerformancePointStore() *PerformancePointStore {
	return &PerformancePointStore{
		data: make(map[seriesKey][]domain.PerformancePoint),
	}
}

// InsertBulk appends points for one run and strategy.
func (s *PerformancePointStore) InsertBulk(_ context.Context, runID, strategy string, points []domain.PerformancePoint) error {
	if runID == "" || strategy == "" {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := seriesKey{runID: runID, strategy: strategy}
	s.data[key] = append(s.data[key], points...)
	return nil
}

// GetSeries retrieves the series for (runID, strategy), ordered by date ASC.
func (s *PerformancePointStore) GetSeries(_ context.Context, runID, strategy string) ([]domain.PerformancePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.data[seriesKey{runID: runID, strategy: strategy}]
	result := make([]domain.PerformancePoint, len(points))
	copy(result, points)

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date < result[j].Date
	})
	return result, nil
}

var _ storage.PerformancePointStore = (*PerformancePointStore)(nil)
