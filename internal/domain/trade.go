package domain

import "time"

// Trade represents a realized trade: one buy paired with its sell.
// Trades are immutable once recorded.
type Trade struct {
	ID            int64     // Unique identifier, assigned by the ledger on insert
	Symbol        string    // Trading pair the trade was executed on
	BuyTime       time.Time // Timestamp of the original buy fill
	SellTime      time.Time // Timestamp of the closing sell fill
	BuyAmountUSD  float64   // Quote currency spent on the buy
	SellAmountUSD float64   // Quote currency received from the sell
	BaseAmount    float64   // Base asset traded
	BuyPrice      float64   // Buy fill price, quote per base unit
	SellPrice     float64   // Sell fill price, quote per base unit
	Profit        float64   // SellAmountUSD - BuyAmountUSD
}
