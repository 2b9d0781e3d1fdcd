package positions

import "priceTrendBot/internal/domain"

// MinimumBuyPrice returns the lowest buy price among the given open
// positions. ok is false when the set is empty, meaning there is no
// minimum to compare against. The function is pure over the snapshot it
// is handed: positions change between decision cycles, so callers must
// recompute from a fresh ledger read every cycle.
func MinimumBuyPrice(open []*domain.Position) (min float64, ok bool) {
	for _, pos := range open {
		if !ok || pos.BuyPrice < min {
			min = pos.BuyPrice
			ok = true
		}
	}
	return min, ok
}

// FilterBySymbol returns the subset of positions bought on the given symbol.
func FilterBySymbol(open []*domain.Position, symbol string) []*domain.Position {
	filtered := make([]*domain.Position, 0, len(open))
	for _, pos := range open {
		if pos.Symbol == symbol {
			filtered = append(filtered, pos)
		}
	}
	return filtered
}
