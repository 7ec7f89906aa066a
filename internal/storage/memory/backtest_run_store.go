package memory

import (
	"context"
	"sort"
	"sync"

	"dlmm-position-lab/internal/domain"
	"dlmm-position-lab/internal/storage"
)

// BacktestRunStore is an in-memory implementation of storage.BacktestRunStore.
type BacktestRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BacktestRun // keyed by run ID
}

// NewBacktestRunStore creates a new in-memory backtest run store.
func NewBacktestRunStore() *BacktestRunStore {
	return &BacktestRunStore{
		data: make(map[string]*domain.BacktestRun),
	}
}

// Insert adds a new run. Returns ErrDuplicateKey if run.ID exists.
func (s *BacktestRunStore) Insert(_ context.Context, run *domain.BacktestRun) error {
	if run == nil || run.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[run.ID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[run.ID] = cloneRun(run)
	return nil
}

// GetByID retrieves a run with its results. Returns ErrNotFound if absent.
func (s *BacktestRunStore) GetByID(_ context.Context, runID string) (*domain.BacktestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneRun(run), nil
}

// ListRecent retrieves up to limit runs, newest first, without results.
func (s *BacktestRunStore) ListRecent(_ context.Context, limit int) ([]*domain.BacktestRun, error) {
	if limit <= 0 {
		return []*domain.BacktestRun{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.BacktestRun, 0, len(s.data))
	for _, run := range s.data {
		header := *run
		header.Results = nil
		result = append(result, &header)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].ID > result[j].ID
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// cloneRun deep-copies a run including its results slice.
func cloneRun(run *domain.BacktestRun) *domain.BacktestRun {
	runCopy := *run
	if run.Results != nil {
		runCopy.Results = make([]domain.BacktestResult, len(run.Results))
		copy(runCopy.Results, run.Results)
	}
	return &runCopy
}

var _ storage.BacktestRunStore = (*BacktestRunStore)(nil)
