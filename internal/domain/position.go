package domain

import "time"

// Position represents an open buy, tracked until it is sold.
type Position struct {
	ID           int64     // Unique identifier, assigned by the ledger on insert
	Symbol       string    // Trading pair the position was bought on (e.g., "BTCUSDT")
	BuyTime      time.Time // Timestamp of the buy fill
	BuyAmountUSD float64   // Quote currency spent on the buy
	BaseAmount   float64   // Base asset acquired
	BuyPrice     float64   // Fill price, quote per base unit
}
