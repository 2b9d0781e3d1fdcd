package simulated

import (
	"context"
	"fmt"
	"sync"

	"priceTrendBot/internal/domain"
	"priceTrendBot/internal/ports"
)

// Exchange implements ports.ExchangeClient for dry runs: price and candle
// queries are delegated to a real exchange client, but orders are filled
// synthetically at the current ticker price against a paper balance. No
// order ever reaches the venue.
type Exchange struct {
	inner  ports.ExchangeClient
	logger ports.Logger

	mu      sync.Mutex
	balance float64 // Remaining paper quote balance
}

// Config holds configuration for the simulated exchange.
type Config struct {
	Inner      ports.ExchangeClient // Real client used for market data
	Logger     ports.Logger
	BalanceUSD float64 // Starting paper balance in quote currency
}

// New creates a simulated exchange backed by a real market-data client.
func New(cfg Config) (*Exchange, error) {
	if cfg.Inner == nil {
		return nil, fmt.Errorf("inner exchange client is required for simulated exchange")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for simulated exchange")
	}
	if cfg.BalanceUSD < 0 {
		return nil, fmt.Errorf("paper balance cannot be negative")
	}
	return &Exchange{
		inner:   cfg.Inner,
		logger:  cfg.Logger,
		balance: cfg.BalanceUSD,
	}, nil
}

// GetTickerPrice delegates to the real client.
func (e *Exchange) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	return e.inner.GetTickerPrice(ctx, symbol)
}

// GetDailyCloses delegates to the real client.
func (e *Exchange) GetDailyCloses(ctx context.Context, symbol string, limit int) ([]domain.Candle, error) {
	return e.inner.GetDailyCloses(ctx, symbol, limit)
}

// GetAvailableBalance returns the remaining paper balance for any asset.
func (e *Exchange) GetAvailableBalance(ctx context.Context, asset string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balance, nil
}

// MarketBuyQuote fills a buy at the live ticker price and debits the paper balance.
func (e *Exchange) MarketBuyQuote(ctx context.Context, symbol string, quoteAmount float64) (*ports.Fill, error) {
	price, err := e.inner.GetTickerPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if quoteAmount > e.balance {
		return nil, fmt.Errorf("paper balance %.2f below notional %.2f: %w", e.balance, quoteAmount, ports.ErrInsufficientFunds)
	}
	e.balance -= quoteAmount

	fill := &ports.Fill{Quantity: quoteAmount / price, Price: price}
	e.logger.Info(ctx, "Simulated buy filled", map[string]interface{}{
		"symbol":    symbol,
		"quantity":  fill.Quantity,
		"price":     fill.Price,
		"remaining": e.balance,
	})
	return fill, nil
}

// MarketSell fills a sell at the live ticker price and credits the paper balance.
func (e *Exchange) MarketSell(ctx context.Context, symbol string, baseQuantity float64) (*ports.Fill, error) {
	if baseQuantity <= 0 {
		return nil, fmt.Errorf("sell quantity must be positive: %w", ports.ErrInvalidRequest)
	}
	price, err := e.inner.GetTickerPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.balance += baseQuantity * price

	fill := &ports.Fill{Quantity: baseQuantity, Price: price}
	e.logger.Info(ctx, "Simulated sell filled", map[string]interface{}{
		"symbol":    symbol,
		"quantity":  fill.Quantity,
		"price":     fill.Price,
		"remaining": e.balance,
	})
	return fill, nil
}
