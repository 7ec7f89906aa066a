package domain

// DemoPositions returns the fallback position set shown when the gateway
// yields no data. Values match the dashboard's long-standing demo fixtures.
func DemoPositions() []Position {
	return []Position{
		{
			ID:           "1",
			Pair:         "SOL/USDC",
			TVL:          45230.50,
			FeesEarned:   1250.30,
			APY:          12.5,
			Liquidity:    25000,
			Volume24h:    125000,
			ActiveBinID:  8388608,
			BinStep:      25,
			Range:        PriceRange{Min: 95.5, Max: 102.3},
			CurrentPrice: 98.45,
			InRange:      true,
			PriceHistory: []PricePoint{
				{Time: "00:00", Price: 97.2},
				{Time: "04:00", Price: 98.1},
				{Time: "08:00", Price: 97.8},
				{Time: "12:00", Price: 98.9},
				{Time: "16:00", Price: 98.45},
			},
			BinDistribution: demoBins(8388600, 5500, 95, 1.5),
		},
		{
			ID:           "2",
			Pair:         "BONK/SOL",
			TVL:          12450.75,
			FeesEarned:   340.20,
			APY:          8.2,
			Liquidity:    8500,
			Volume24h:    45000,
			ActiveBinID:  8388500,
			BinStep:      1,
			Range:        PriceRange{Min: 0.0000245, Max: 0.0000255},
			CurrentPrice: 0.00004,
			InRange:      false,
			PriceHistory: []PricePoint{
				{Time: "00:00", Price: 0.000025},
				{Time: "04:00", Price: 0.000028},
				{Time: "08:00", Price: 0.000032},
				{Time: "12:00", Price: 0.000038},
				{Time: "16:00", Price: 0.00004},
			},
			BinDistribution: demoBins(8388495, 2750, 0.00002, 0.000003),
		},
		{
			ID:           "3",
			Pair:         "RAY/USDC",
			TVL:          28900.25,
			FeesEarned:   890.15,
			APY:          15.8,
			Liquidity:    18000,
			Volume24h:    78000,
			ActiveBinID:  8388650,
			BinStep:      10,
			Range:        PriceRange{Min: 1.8, Max: 2.2},
			CurrentPrice: 2.05,
			InRange:      true,
			PriceHistory: []PricePoint{
				{Time: "00:00", Price: 1.95},
				{Time: "04:00", Price: 2.02},
				{Time: "08:00", Price: 2.08},
				{Time: "12:00", Price: 2.03},
				{Time: "16:00", Price: 2.05},
			},
			BinDistribution: demoBins(8388645, 4400, 1.6, 0.08),
		},
	}
}

// demoBins builds a ten-bin liquidity ladder around a starting bin. The
// original fixtures randomized bin liquidity per render; a fixed midpoint
// keeps the demo data stable across refreshes.
func demoBins(startBin int, liquidity, startPrice, priceStep float64) []BinLiquidity {
	bins := make([]BinLiquidity, 10)
	for i := range bins {
		bins[i] = BinLiquidity{
			BinID:     startBin + i,
			Liquidity: liquidity,
			Price:     startPrice + float64(i)*priceStep,
		}
	}
	return bins
}
