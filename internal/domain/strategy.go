package domain

// StrategyClass groups strategies by how tightly they concentrate liquidity.
type StrategyClass string

// Strategy class constants.
const (
	ClassConservative StrategyClass = "conservative"
	ClassBalanced     StrategyClass = "balanced"
	ClassAggressive   StrategyClass = "aggressive"
	ClassAdaptive     StrategyClass = "adaptive"
	ClassMomentum     StrategyClass = "momentum"
	ClassMeanRevert   StrategyClass = "mean_reversion"
)

// RangeMultipliers define the price-range spread for a strategy class as
// factors applied to the current price. Tighter spread means more
// concentrated liquidity.
type RangeMultipliers struct {
	Lower float64
	Upper float64
}

// Per-class spread multipliers. Aggressive ranges are strictly narrower than
// conservative ones; the simulation engine and its callers rely on this
// ordering.
var rangeMultipliers = map[StrategyClass]RangeMultipliers{
	ClassConservative: {Lower: 0.85, Upper: 1.15},
	ClassBalanced:     {Lower: 0.90, Upper: 1.10},
	ClassAggressive:   {Lower: 0.95, Upper: 1.05},
}

// SpreadFor returns the range multipliers for a strategy class. Classes
// without a dedicated spread (adaptive, momentum, mean-reversion) fall back
// to the balanced spread.
func SpreadFor(class StrategyClass) RangeMultipliers {
	if m, ok := rangeMultipliers[class]; ok {
		return m
	}
	return rangeMultipliers[ClassBalanced]
}

// StrategyProfile describes one entry of the backtest strategy catalog.
type StrategyProfile struct {
	Class       StrategyClass
	Name        string
	Description string

	// VolatilityMult scales return/fee/loss magnitudes for this strategy.
	VolatilityMult float64
	// GasMult scales gas spend.
	GasMult float64
	// RebalanceMult scales rebalance counts.
	RebalanceMult float64
}

// BacktestCatalog is the fixed set of strategies every backtest run covers,
// in catalog order. Result ordering is by Sharpe ratio, not catalog order.
var BacktestCatalog = []StrategyProfile{
	{Class: ClassConservative, Name: "Conservative DLMM", Description: "Wide ranges, minimal rebalancing", VolatilityMult: 0.6, GasMult: 1, RebalanceMult: 1},
	{Class: ClassBalanced, Name: "Balanced DLMM", Description: "Moderate ranges, optimal rebalancing", VolatilityMult: 1, GasMult: 1, RebalanceMult: 1},
	{Class: ClassAggressive, Name: "Aggressive DLMM", Description: "Tight ranges, frequent rebalancing", VolatilityMult: 1.8, GasMult: 2.5, RebalanceMult: 2},
	{Class: ClassAdaptive, Name: "Adaptive DLMM", Description: "Dynamic ranges based on volatility", VolatilityMult: 1, GasMult: 1, RebalanceMult: 1},
	{Class: ClassMomentum, Name: "Momentum DLMM", Description: "Trend-following range adjustments", VolatilityMult: 1, GasMult: 1, RebalanceMult: 1},
	{Class: ClassMeanRevert, Name: "Mean Reversion", Description: "Counter-trend positioning", VolatilityMult: 1, GasMult: 1, RebalanceMult: 1},
}

// Timeframe labels accepted by backtests.
const (
	Timeframe30d  = "30d"
	Timeframe90d  = "90d"
	Timeframe180d = "180d"
	Timeframe1y   = "1y"
	Timeframe2y   = "2y"
)

// TimeframeMultiplier scales cumulative magnitudes (return, gas, rebalance
// count) by backtest length. Unknown labels behave like 90d.
func TimeframeMultiplier(timeframe string) float64 {
	switch timeframe {
	case Timeframe1y, Timeframe2y:
		return 4
	case Timeframe30d:
		return 0.25
	default:
		return 1
	}
}

// TimeframeDays returns the nominal day count for a timeframe label.
func TimeframeDays(timeframe string) int {
	switch timeframe {
	case Timeframe30d:
		return 30
	case Timeframe180d:
		return 180
	case Timeframe1y:
		return 365
	case Timeframe2y:
		return 730
	default:
		return 90
	}
}
