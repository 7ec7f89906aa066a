package memory

import (
	"context"
	"sort"
	"sync"

	"dlmm-position-lab/internal/domain"
	"dlmm-position-lab/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[string]map[string]*domain.Position // owner -> position_id -> snapshot
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data: make(map[string]map[string]*domain.Position),
	}
}

// Upsert stores or replaces the snapshot for (owner, position.ID).
func (s *PositionStore) Upsert(_ context.Context, owner string, p *domain.Position) error {
	if owner == "" || p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byID, exists := s.data[owner]
	if !exists {
		byID = make(map[string]*domain.Position)
		s.data[owner] = byID
	}

	// Store a copy to prevent external mutation
	positionCopy := clonePosition(p)
	byID[p.ID] = positionCopy
	return nil
}

// GetByID retrieves one position snapshot. Returns ErrNotFound if absent.
func (s *PositionStore) GetByID(_ context.Context, owner, positionID string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[owner][positionID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return clonePosition(p), nil
}

// ListByOwner retrieves all snapshots for an owner, ordered by position ID.
func (s *PositionStore) ListByOwner(_ context.Context, owner string) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := s.data[owner]
	result := make([]*domain.Position, 0, len(byID))
	for _, p := range byID {
		result = append(result, clonePosition(p))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Delete removes one snapshot. Returns ErrNotFound if absent.
func (s *PositionStore) Delete(_ context.Context, owner, positionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := s.data[owner]
	if _, exists := byID[positionID]; !exists {
		return storage.ErrNotFound
	}
	delete(byID, positionID)
	return nil
}

// clonePosition deep-copies a position including its series slices.
func clonePosition(p *domain.Position) *domain.Position {
	positionCopy := *p
	if p.PriceHistory != nil {
		positionCopy.PriceHistory = make([]domain.PricePoint, len(p.PriceHistory))
		copy(positionCopy.PriceHistory, p.PriceHistory)
	}
	if p.BinDistribution != nil {
		positionCopy.BinDistribution = make([]domain.BinLiquidity, len(p.BinDistribution))
		copy(positionCopy.BinDistribution, p.BinDistribution)
	}
	return &positionCopy
}

var _ storage.PositionStore = (*PositionStore)(nil)
