package saros

import (
	"bytes"
	"encoding/json"
	"strconv"

	"dlmm-position-lab/internal/domain"
	"dlmm-position-lab/internal/jsoncodec"
)

// flexFloat decodes an upstream numeric field that may arrive as a JSON
// number, a quoted string, or null. Absent and null both coerce to zero.
type flexFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil // unparseable strings coerce to zero, not errors
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// Raw upstream shapes (snake_case). These never escape the package.

type rawToken struct {
	Symbol   string `json:"symbol"`
	Mint     string `json:"mint"`
	Decimals int    `json:"decimals"`
}

type rawBinRange struct {
	Min flexFloat `json:"min"`
	Max flexFloat `json:"max"`
}

type rawPricePoint struct {
	Time  string    `json:"time"`
	Price flexFloat `json:"price"`
}

type rawBin struct {
	BinID     int       `json:"bin_id"`
	Liquidity flexFloat `json:"liquidity"`
	Price     flexFloat `json:"price"`
}

type rawPool struct {
	Address        string    `json:"address"`
	TokenX         rawToken  `json:"token_x"`
	TokenY         rawToken  `json:"token_y"`
	CurrentPrice   flexFloat `json:"current_price"`
	BinStep        flexFloat `json:"bin_step"`
	ActiveBinID    flexFloat `json:"active_bin_id"`
	Volume24h      flexFloat `json:"volume_24h"`
	TotalLiquidity flexFloat `json:"total_liquidity"`
	ActiveBins     []rawBin  `json:"active_bins"`
}

type rawPosition struct {
	PublicKey     string    `json:"public_key"`
	TotalUsdValue flexFloat `json:"total_usd_value"`
	FeesEarned    struct {
		UsdValue flexFloat `json:"usd_value"`
	} `json:"fees_earned"`
	// Base-unit amounts arrive as decimal strings; they can exceed
	// float64 precision, so they decode through the big.Int codec.
	TotalXAmount    jsoncodec.RawAmount `json:"total_x_amount"`
	TotalYAmount    jsoncodec.RawAmount `json:"total_y_amount"`
	BinRange        rawBinRange         `json:"bin_range"`
	APY             flexFloat           `json:"apy"`
	Liquidity       flexFloat           `json:"liquidity"`
	BinStep         flexFloat           `json:"bin_step"`
	ActiveBinID     flexFloat           `json:"active_bin_id"`
	PriceHistory    []rawPricePoint     `json:"price_history"`
	BinDistribution []rawBin            `json:"bin_distribution"`
	Pool            rawPool             `json:"pool"`
}

type rawPositionResponse struct {
	Data  []rawPosition `json:"data"`
	Total int           `json:"total"`
}

type rawPoolResponse struct {
	Pool  *rawPool      `json:"pool"`
	Data  []rawPosition `json:"data"`
	Total int           `json:"total"`
}

// normalizePool converts a raw pool into the domain shape, deriving the
// pair label and coercing every numeric field.
func normalizePool(poolID string, p *rawPool) domain.PoolInfo {
	address := p.Address
	if address == "" {
		address = poolID
	}
	return domain.PoolInfo{
		Address: address,
		TokenX: domain.TokenInfo{
			Symbol:   p.TokenX.Symbol,
			Mint:     p.TokenX.Mint,
			Decimals: p.TokenX.Decimals,
		},
		TokenY: domain.TokenInfo{
			Symbol:   p.TokenY.Symbol,
			Mint:     p.TokenY.Mint,
			Decimals: p.TokenY.Decimals,
		},
		Pair:           p.TokenX.Symbol + "/" + p.TokenY.Symbol,
		CurrentPrice:   float64(p.CurrentPrice),
		BinStep:        int(p.BinStep),
		ActiveBinID:    int(p.ActiveBinID),
		Volume24h:      float64(p.Volume24h),
		TotalLiquidity: float64(p.TotalLiquidity),
		ActiveBinCount: len(p.ActiveBins),
	}
}

// normalizePosition converts a raw position into the domain shape. The
// in-range flag is recomputed from the range and the pool's current price
// so the invariant holds regardless of what upstream claims.
func normalizePosition(p *rawPosition) domain.Position {
	rng := domain.PriceRange{Min: float64(p.BinRange.Min), Max: float64(p.BinRange.Max)}
	if rng.Min > rng.Max {
		rng.Min, rng.Max = rng.Max, rng.Min
	}
	currentPrice := float64(p.Pool.CurrentPrice)

	history := make([]domain.PricePoint, 0, len(p.PriceHistory))
	for _, pt := range p.PriceHistory {
		history = append(history, domain.PricePoint{Time: pt.Time, Price: float64(pt.Price)})
	}
	bins := make([]domain.BinLiquidity, 0, len(p.BinDistribution))
	for _, b := range p.BinDistribution {
		bins = append(bins, domain.BinLiquidity{
			BinID:     b.BinID,
			Liquidity: float64(b.Liquidity),
			Price:     float64(b.Price),
		})
	}

	return domain.Position{
		ID:              p.PublicKey,
		Pair:            p.Pool.TokenX.Symbol + "/" + p.Pool.TokenY.Symbol,
		TVL:             float64(p.TotalUsdValue),
		FeesEarned:      float64(p.FeesEarned.UsdValue),
		APY:             float64(p.APY),
		Liquidity:       float64(p.Liquidity),
		Volume24h:       float64(p.Pool.Volume24h),
		TokenXAmount:    p.TotalXAmount.ToUI(p.Pool.TokenX.Decimals),
		TokenYAmount:    p.TotalYAmount.ToUI(p.Pool.TokenY.Decimals),
		ActiveBinID:     int(p.ActiveBinID),
		BinStep:         int(p.BinStep),
		Range:           rng,
		CurrentPrice:    currentPrice,
		InRange:         rng.Contains(currentPrice),
		PriceHistory:    history,
		BinDistribution: bins,
	}
}
