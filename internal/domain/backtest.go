package domain

// PerformancePoint is one sample of a backtest's equity curve against its
// benchmark.
type PerformancePoint struct {
	Date      string  `json:"date"` // YYYY-MM-DD
	Value     float64 `json:"value"`
	Benchmark float64 `json:"benchmark"`
}

// DrawdownPoint is the drawdown at one sample of the performance series:
// (value - runningMax) / runningMax * 100, always <= 0.
type DrawdownPoint struct {
	Date     string  `json:"date"`
	Drawdown float64 `json:"drawdown"`
}

// RebalanceEvent records one simulated rebalance during a backtest.
type RebalanceEvent struct {
	Date   string  `json:"date"`
	Reason string  `json:"reason"`
	Cost   float64 `json:"cost"` // SOL
}

// BacktestResult is the aggregated simulation outcome for one strategy over
// one timeframe. Computed transiently per run; ranked, displayed, and
// exportable; never mutated after creation.
type BacktestResult struct {
	Strategy  string        `json:"strategy"`
	Class     StrategyClass `json:"class"`
	Timeframe string        `json:"timeframe"`

	TotalReturn      float64 `json:"total_return"`      // percent
	AnnualizedReturn float64 `json:"annualized_return"` // percent
	MaxDrawdown      float64 `json:"max_drawdown"`      // percent, <= 0
	SharpeRatio      float64 `json:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio"`
	CalmarRatio      float64 `json:"calmar_ratio"`
	FeesEarned       float64 `json:"fees_earned"`      // currency, >= 0
	ImpermanentLoss  float64 `json:"impermanent_loss"` // percent, <= 0
	GasSpent         float64 `json:"gas_spent"`        // SOL, >= 0
	RebalanceCount   int     `json:"rebalance_count"`
	WinRate          float64 `json:"win_rate"` // 0-100
	ProfitFactor     float64 `json:"profit_factor"`
	Volatility       float64 `json:"volatility"`
	Beta             float64 `json:"beta"`
	Alpha            float64 `json:"alpha"`

	PerformanceData []PerformancePoint `json:"performance_data"`
	DrawdownData    []DrawdownPoint    `json:"drawdown_data"`
	RebalanceEvents []RebalanceEvent   `json:"rebalance_events"`
}

// BacktestConfig carries user-chosen backtest parameters. Zero values are
// replaced by defaults in the simulation engine.
type BacktestConfig struct {
	Timeframe          string  `json:"timeframe"`           // 30d/90d/180d/1y/2y
	RangeWidthPct      float64 `json:"range_width_pct"`     // +-N percent
	RebalanceThreshold float64 `json:"rebalance_threshold"` // percent
	GasPriceSOL        float64 `json:"gas_price_sol"`
	SlippagePct        float64 `json:"slippage_pct"`
	RiskFreeRatePct    float64 `json:"risk_free_rate_pct"`
	Benchmark          string  `json:"benchmark"` // hodl/dca/simple_lp/market
	IncludeWeekends    bool    `json:"include_weekends"`
}

// BacktestRun is one persisted backtest invocation: the inputs and the
// ranked per-strategy results it produced.
type BacktestRun struct {
	ID        string           `json:"id"`
	CreatedAt int64            `json:"created_at"` // unix ms
	Capital   float64          `json:"capital"`
	Timeframe string           `json:"timeframe"`
	Config    BacktestConfig   `json:"config"`
	Results   []BacktestResult `json:"results"`
}

// DefaultBacktestConfig mirrors the dashboard defaults.
var DefaultBacktestConfig = BacktestConfig{
	Timeframe:          Timeframe90d,
	RangeWidthPct:      20,
	RebalanceThreshold: 10,
	GasPriceSOL:        0.001,
	SlippagePct:        0.5,
	RiskFreeRatePct:    4.5,
	Benchmark:          "hodl",
	IncludeWeekends:    true,
}
