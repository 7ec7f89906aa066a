package domain

// RiskLevel classifies a position by its current efficiency.
type RiskLevel string

// Risk level constants.
const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Trend classifies current market direction.
type Trend string

// Trend constants.
const (
	TrendBullish  Trend = "bullish"
	TrendBearish  Trend = "bearish"
	TrendSideways Trend = "sideways"
)

// MarketConditions are synthesized market descriptors attached to an
// analysis.
type MarketConditions struct {
	Volatility float64 `json:"volatility"` // 0-100
	Trend      Trend   `json:"trend"`
	Volume     float64 `json:"volume"`
}

// Recommendation is one candidate rebalancing action for a position.
// Immutable once produced; never persisted.
type Recommendation struct {
	Strategy        string        `json:"strategy"`
	Class           StrategyClass `json:"class"`
	NewRange        PriceRange    `json:"new_range"`
	ExpectedAPY     float64       `json:"expected_apy"`
	RiskScore       float64       `json:"risk_score"`       // 0-100
	GasEstimate     float64       `json:"gas_estimate"`     // SOL, non-negative
	ImpermanentLoss float64       `json:"impermanent_loss"` // percent, typically negative
	FeeIncrease     float64       `json:"fee_increase"`     // percent
	Confidence      float64       `json:"confidence"`       // 0-100, independent of RiskScore
	Reasoning       []string      `json:"reasoning"`
}

// RebalanceAnalysis is the engine's output for one position.
// Recommendations are sorted by confidence, descending.
type RebalanceAnalysis struct {
	PositionID        string           `json:"position_id"`
	Pair              string           `json:"pair"`
	CurrentEfficiency float64          `json:"current_efficiency"` // 0-100
	RiskLevel         RiskLevel        `json:"risk_level"`
	Recommendations   []Recommendation `json:"recommendations"`
	MarketConditions  MarketConditions `json:"market_conditions"`
}

// AnalysisConfig carries user-chosen rebalancing analysis parameters.
type AnalysisConfig struct {
	// RiskTolerance 0-100: higher prefers aggressive strategies.
	RiskTolerance float64 `json:"risk_tolerance"`
	// GasThreshold in SOL: only suggest rebalances cheaper than this.
	GasThreshold float64 `json:"gas_threshold"`
	// AutoRebalance fires the rebalance callback automatically when a
	// position's efficiency drops below AutoRebalanceFloor.
	AutoRebalance bool `json:"auto_rebalance"`
}

// AutoRebalanceFloor is the efficiency below which auto-rebalance triggers.
const AutoRebalanceFloor = 60.0

// DefaultAnalysisConfig mirrors the dashboard defaults.
var DefaultAnalysisConfig = AnalysisConfig{
	RiskTolerance: 50,
	GasThreshold:  0.01,
}
