package simulation

import "dlmm-position-lab/internal/domain"

// OptimalRange produces the proposed (lower, upper) price bounds for a
// strategy class around the current price. Conservative spreads +-15%,
// balanced +-10%, aggressive +-5%; the aggressive spread is always strictly
// narrower than the conservative one.
func OptimalRange(currentPrice float64, class domain.StrategyClass) domain.PriceRange {
	m := domain.SpreadFor(class)
	return domain.PriceRange{
		Min: currentPrice * m.Lower,
		Max: currentPrice * m.Upper,
	}
}
