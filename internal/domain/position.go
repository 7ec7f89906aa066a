package domain

// PricePoint is one sample of a position's price history.
type PricePoint struct {
	Time  string  `json:"time"` // display label, e.g. "04:00" or a date
	Price float64 `json:"price"`
}

// BinLiquidity describes liquidity allocated to a single bin.
type BinLiquidity struct {
	BinID     int     `json:"bin_id"`
	Liquidity float64 `json:"liquidity"`
	Price     float64 `json:"price"` // representative price for the bin
}

// PriceRange is an active price range as (min, max).
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether price lies within [min, max].
func (r PriceRange) Contains(price float64) bool {
	return r.Min <= price && price <= r.Max
}

// Position represents one liquidity-provision position held against a
// trading pair in a DLMM pool.
//
// Positions are created by the saros gateway from external API responses or
// supplied as demo data. They are replaced wholesale on refresh, never
// partially mutated.
type Position struct {
	ID   string `json:"id"`
	Pair string `json:"pair"` // token-pair label, e.g. "SOL/USDC"

	// Economic attributes.
	TVL        float64 `json:"tvl"`
	FeesEarned float64 `json:"fees_earned"`
	APY        float64 `json:"apy"` // may be negative
	Liquidity  float64 `json:"liquidity"`
	Volume24h  float64 `json:"volume_24h"`

	// Per-token holdings in UI units, scaled from raw base-unit amounts
	// by each token's decimals.
	TokenXAmount float64 `json:"token_x_amount"`
	TokenYAmount float64 `json:"token_y_amount"`

	// Range attributes.
	ActiveBinID  int        `json:"active_bin_id"`
	BinStep      int        `json:"bin_step"` // basis points between adjacent bins
	Range        PriceRange `json:"range"`
	CurrentPrice float64    `json:"current_price"`
	InRange      bool       `json:"in_range"`

	// Time series (chronological, finite).
	PriceHistory    []PricePoint   `json:"price_history"`
	BinDistribution []BinLiquidity `json:"bin_distribution"`
}

// CheckInvariants reports whether the position's range fields are
// consistent: min <= max, and InRange matches Range.Contains(CurrentPrice).
func (p *Position) CheckInvariants() bool {
	if p.Range.Min > p.Range.Max {
		return false
	}
	return p.InRange == p.Range.Contains(p.CurrentPrice)
}

// TokenInfo describes one side of a pool's trading pair.
type TokenInfo struct {
	Symbol   string `json:"symbol"`
	Mint     string `json:"mint"`
	Decimals int    `json:"decimals"`
}

// PoolInfo is the normalized view of an external pool.
type PoolInfo struct {
	Address        string    `json:"address"`
	TokenX         TokenInfo `json:"token_x"`
	TokenY         TokenInfo `json:"token_y"`
	Pair           string    `json:"pair"` // derived: TokenX.Symbol + "/" + TokenY.Symbol
	CurrentPrice   float64   `json:"current_price"`
	BinStep        int       `json:"bin_step"`
	ActiveBinID    int       `json:"active_bin_id"`
	Volume24h      float64   `json:"volume_24h"`
	TotalLiquidity float64   `json:"total_liquidity"`
	ActiveBinCount int       `json:"active_bin_count"`
}
