package domain

import "time"

// Candle represents a single daily candlestick close.
type Candle struct {
	CloseTime time.Time // End time of the interval
	Close     float64   // Closing price
}
