package ports

import (
	"context"

	"priceTrendBot/internal/domain"
)

// Fill represents the executed quantity and average price actually
// returned by the exchange for an order, as opposed to the requested
// quantity and the pre-trade estimate.
type Fill struct {
	Quantity float64 // Base asset quantity filled
	Price    float64 // Average fill price, quote per base unit
}

// ExchangeClient defines the interface for interacting with a cryptocurrency exchange.
// This abstraction allows decoupling the core bot logic from specific exchange
// implementations, including a simulated one for dry runs.
type ExchangeClient interface {
	// GetTickerPrice retrieves the last ticker price for a given symbol.
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)

	// GetDailyCloses retrieves the most recent daily candle closes for the
	// given symbol, oldest first, up to limit entries.
	GetDailyCloses(ctx context.Context, symbol string, limit int) ([]domain.Candle, error)

	// GetAvailableBalance retrieves the free balance for a specific asset (e.g., "USDT").
	GetAvailableBalance(ctx context.Context, asset string) (float64, error)

	// MarketBuyQuote places a market buy sized by a quote-currency notional
	// (e.g., 100 USD worth of BTC). The implementation converts the notional
	// to a base quantity and adjusts it to the exchange's lot step size
	// before submission. Returns the actual fill.
	MarketBuyQuote(ctx context.Context, symbol string, quoteAmount float64) (*Fill, error)

	// MarketSell places a market sell for the given base-asset quantity,
	// adjusted to the exchange's lot step size before submission.
	// Returns the actual fill.
	MarketSell(ctx context.Context, symbol string, baseQuantity float64) (*Fill, error)
}
