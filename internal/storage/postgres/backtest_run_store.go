package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"dlmm-position-lab/internal/domain"
	"dlmm-position-lab/internal/storage"
)

// BacktestRunStore implements storage.BacktestRunStore using PostgreSQL.
// A run is one row in backtest_runs plus one row per strategy result in
// backtest_results, written in a single transaction.
type BacktestRunStore struct {
	pool *Pool
}

// NewBacktestRunStore creates a new BacktestRunStore.
func NewBacktestRunStore(pool *Pool) *BacktestRunStore {
	return &BacktestRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BacktestRunStore = (*BacktestRunStore)(nil)

// Insert adds a new run. Returns ErrDuplicateKey if run.ID exists.
func (s *BacktestRunStore) Insert(ctx context.Context, run *domain.BacktestRun) error {
	if run == nil || run.ID == "" {
		return storage.ErrInvalidInput
	}

	config, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("marshal backtest config: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO backtest_runs (run_id, created_at, capital, timeframe, config)
		VALUES ($1, $2, $3, $4, $5)
	`, run.ID, run.CreatedAt, run.Capital, run.Timeframe, config)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert backtest run: %w", err)
	}

	for i := range run.Results {
		r := &run.Results[i]
		_, err = tx.Exec(ctx, `
			INSERT INTO backtest_results (
				run_id, rank, strategy, class, timeframe,
				total_return, annualized_return, max_drawdown,
				sharpe_ratio, sortino_ratio, calmar_ratio,
				fees_earned, impermanent_loss, gas_spent, rebalance_count,
				win_rate, profit_factor, volatility, beta, alpha
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		`,
			run.ID, i, r.Strategy, string(r.Class), r.Timeframe,
			r.TotalReturn, r.AnnualizedReturn, r.MaxDrawdown,
			r.SharpeRatio, r.SortinoRatio, r.CalmarRatio,
			r.FeesEarned, r.ImpermanentLoss, r.GasSpent, r.RebalanceCount,
			r.WinRate, r.ProfitFactor, r.Volatility, r.Beta, r.Alpha,
		)
		if err != nil {
			return fmt.Errorf("insert backtest result %s: %w", r.Strategy, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit backtest run: %w", err)
	}
	return nil
}

// GetByID retrieves a run with its results. Returns ErrNotFound if absent.
func (s *BacktestRunStore) GetByID(ctx context.Context, runID string) (*domain.BacktestRun, error) {
	var run domain.BacktestRun
	var config []byte

	err := s.pool.QueryRow(ctx, `
		SELECT run_id, created_at, capital, timeframe, config
		FROM backtest_runs
		WHERE run_id = $1
	`, runID).Scan(&run.ID, &run.CreatedAt, &run.Capital, &run.Timeframe, &config)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get backtest run: %w", err)
	}
	if len(config) > 0 {
		if err := json.Unmarshal(config, &run.Config); err != nil {
			return nil, fmt.Errorf("unmarshal backtest config: %w", err)
		}
	}

	rows, err := s.pool.Query(ctx, `
		SELECT strategy, class, timeframe,
			total_return, annualized_return, max_drawdown,
			sharpe_ratio, sortino_ratio, calmar_ratio,
			fees_earned, impermanent_loss, gas_spent, rebalance_count,
			win_rate, profit_factor, volatility, beta, alpha
		FROM backtest_results
		WHERE run_id = $1
		ORDER BY rank ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get backtest results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r domain.BacktestResult
		var class string
		err := rows.Scan(
			&r.Strategy, &class, &r.Timeframe,
			&r.TotalReturn, &r.AnnualizedReturn, &r.MaxDrawdown,
			&r.SharpeRatio, &r.SortinoRatio, &r.CalmarRatio,
			&r.FeesEarned, &r.ImpermanentLoss, &r.GasSpent, &r.RebalanceCount,
			&r.WinRate, &r.ProfitFactor, &r.Volatility, &r.Beta, &r.Alpha,
		)
		if err != nil {
			return nil, fmt.Errorf("scan backtest result: %w", err)
		}
		r.Class = domain.StrategyClass(class)
		run.Results = append(run.Results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest results: %w", err)
	}
	return &run, nil
}

// ListRecent retrieves up to limit runs, newest first, without results.
func (s *BacktestRunStore) ListRecent(ctx context.Context, limit int) ([]*domain.BacktestRun, error) {
	if limit <= 0 {
		return []*domain.BacktestRun{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT run_id, created_at, capital, timeframe, config
		FROM backtest_runs
		ORDER BY created_at DESC, run_id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list backtest runs: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.BacktestRun, 0, limit)
	for rows.Next() {
		var run domain.BacktestRun
		var config []byte
		if err := rows.Scan(&run.ID, &run.CreatedAt, &run.Capital, &run.Timeframe, &config); err != nil {
			return nil, fmt.Errorf("scan backtest run: %w", err)
		}
		if len(config) > 0 {
			if err := json.Unmarshal(config, &run.Config); err != nil {
				return nil, fmt.Errorf("unmarshal backtest config: %w", err)
			}
		}
		result = append(result, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest runs: %w", err)
	}
	return result, nil
}
