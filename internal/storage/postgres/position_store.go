package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"dlmm-position-lab/internal/domain"
	"dlmm-position-lab/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// Upsert stores or replaces the snapshot for (owner, position.ID).
func (s *PositionStore) Upsert(ctx context.Context, owner string, p *domain.Position) error {
	if owner == "" || p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}

	history, err := json.Marshal(p.PriceHistory)
	if err != nil {
		return fmt.Errorf("marshal price history: %w", err)
	}
	bins, err := json.Marshal(p.BinDistribution)
	if err != nil {
		return fmt.Errorf("marshal bin distribution: %w", err)
	}

	query := `
		INSERT INTO positions (
			owner, position_id, pair, tvl, fees_earned, apy, liquidity, volume_24h,
			token_x_amount, token_y_amount,
			active_bin_id, bin_step, range_min, range_max, current_price, in_range,
			price_history, bin_distribution, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NOW())
		ON CONFLICT (owner, position_id) DO UPDATE SET
			pair = EXCLUDED.pair,
			tvl = EXCLUDED.tvl,
			fees_earned = EXCLUDED.fees_earned,
			apy = EXCLUDED.apy,
			liquidity = EXCLUDED.liquidity,
			volume_24h = EXCLUDED.volume_24h,
			token_x_amount = EXCLUDED.token_x_amount,
			token_y_amount = EXCLUDED.token_y_amount,
			active_bin_id = EXCLUDED.active_bin_id,
			bin_step = EXCLUDED.bin_step,
			range_min = EXCLUDED.range_min,
			range_max = EXCLUDED.range_max,
			current_price = EXCLUDED.current_price,
			in_range = EXCLUDED.in_range,
			price_history = EXCLUDED.price_history,
			bin_distribution = EXCLUDED.bin_distribution,
			updated_at = NOW()
	`

	_, err = s.pool.Exec(ctx, query,
		owner,
		p.ID,
		p.Pair,
		p.TVL,
		p.FeesEarned,
		p.APY,
		p.Liquidity,
		p.Volume24h,
		p.TokenXAmount,
		p.TokenYAmount,
		p.ActiveBinID,
		p.BinStep,
		p.Range.Min,
		p.Range.Max,
		p.CurrentPrice,
		p.InRange,
		history,
		bins,
	)
	if err != nil {
		return fmt.Errorf("upsert position: %w", err)
	}
	return nil
}

// GetByID retrieves one position snapshot. Returns ErrNotFound if absent.
func (s *PositionStore) GetByID(ctx context.Context, owner, positionID string) (*domain.Position, error) {
	query := positionSelect + ` WHERE owner = $1 AND position_id = $2`

	row := s.pool.QueryRow(ctx, query, owner, positionID)
	p, err := scanPosition(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position by id: %w", err)
	}
	return p, nil
}

// ListByOwner retrieves all snapshots for an owner, ordered by position ID.
func (s *PositionStore) ListByOwner(ctx context.Context, owner string) ([]*domain.Position, error) {
	query := positionSelect + ` WHERE owner = $1 ORDER BY position_id ASC`

	rows, err := s.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("list positions by owner: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.Position, 0)
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate positions: %w", err)
	}
	return result, nil
}

// Delete removes one snapshot. Returns ErrNotFound if absent.
func (s *PositionStore) Delete(ctx context.Context, owner, positionID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM positions WHERE owner = $1 AND position_id = $2`,
		owner, positionID,
	)
	if err != nil {
		return fmt.Errorf("delete position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

const positionSelect = `
	SELECT position_id, pair, tvl, fees_earned, apy, liquidity, volume_24h,
		token_x_amount, token_y_amount,
		active_bin_id, bin_step, range_min, range_max, current_price, in_range,
		price_history, bin_distribution
	FROM positions
`

// scanPosition scans one position row.
func scanPosition(row pgx.Row) (*domain.Position, error) {
	var p domain.Position
	var history, bins []byte

	err := row.Scan(
		&p.ID,
		&p.Pair,
		&p.TVL,
		&p.FeesEarned,
		&p.APY,
		&p.Liquidity,
		&p.Volume24h,
		&p.TokenXAmount,
		&p.TokenYAmount,
		&p.ActiveBinID,
		&p.BinStep,
		&p.Range.Min,
		&p.Range.Max,
		&p.CurrentPrice,
		&p.InRange,
		&history,
		&bins,
	)
	if err != nil {
		return nil, err
	}

	if len(history) > 0 {
		if err := json.Unmarshal(history, &p.PriceHistory); err != nil {
			return nil, fmt.Errorf("unmarshal price history: %w", err)
		}
	}
	if len(bins) > 0 {
		if err := json.Unmarshal(bins, &p.BinDistribution); err != nil {
			return nil, fmt.Errorf("unmarshal bin distribution: %w", err)
		}
	}
	return &p, nil
}
