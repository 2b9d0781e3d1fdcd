package domain

import "time"

// KPISnapshot is a point-in-time aggregate of realized performance,
// derived from the set of closed trades. Snapshots are append-only.
type KPISnapshot struct {
	Time                  time.Time // When the snapshot was taken
	TotalProfit           float64   // Sum of Profit over all closed trades
	TotalInvestment       float64   // Sum of BuyAmountUSD over all closed trades
	TotalOperations       int       // Number of closed trades
	WinningTrades         int       // Closed trades with Profit > 0
	LosingTrades          int       // Closed trades with Profit <= 0
	AverageProfitPerTrade float64   // TotalProfit / TotalOperations, 0 when no trades
	ROIPercentage         float64   // TotalProfit / TotalInvestment * 100, 0 when nothing invested
}
