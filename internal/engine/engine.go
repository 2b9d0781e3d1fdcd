package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"priceTrendBot/internal/domain"
	"priceTrendBot/internal/ports"
	"priceTrendBot/internal/positions"
)

// Config holds the decision parameters for one trading symbol.
type Config struct {
	Symbol          string  // Trading pair, e.g. "BTCUSDT"
	QuoteAsset      string  // Asset the invest amount is denominated in, e.g. "USDT"
	InvestAmountUSD float64 // Quote notional per buy
	BuyThreshold    float64 // Buy when today*BuyThreshold < yesterday (and < min open buy price)
	SellThreshold   float64 // Sell when current price > buyPrice*SellThreshold
}

// Engine evaluates the buy and sell rules for one symbol and orchestrates
// order execution and ledger updates. It holds no state of its own: every
// cycle re-derives its view from the ledger, so runs are independent and a
// crashed cycle leaves nothing to recover.
type Engine struct {
	cfg      Config
	logger   ports.Logger
	exchange ports.ExchangeClient
	ledger   ports.Ledger
}

// New creates a new decision engine instance.
func New(cfg Config, logger ports.Logger, exchange ports.ExchangeClient, ledger ports.Ledger) (*Engine, error) {
	if logger == nil || exchange == nil || ledger == nil {
		return nil, fmt.Errorf("missing required dependencies for engine")
	}
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("configuration Symbol must be set")
	}
	if cfg.QuoteAsset == "" {
		return nil, fmt.Errorf("configuration QuoteAsset must be set")
	}
	if cfg.InvestAmountUSD <= 0 {
		return nil, fmt.Errorf("configuration InvestAmountUSD must be positive")
	}
	if cfg.BuyThreshold <= 1.0 {
		return nil, fmt.Errorf("configuration BuyThreshold must be greater than 1.0")
	}
	if cfg.SellThreshold <= 1.0 {
		return nil, fmt.Errorf("configuration SellThreshold must be greater than 1.0")
	}

	return &Engine{
		cfg:      cfg,
		logger:   logger,
		exchange: exchange,
		ledger:   ledger,
	}, nil
}

// RunCycle performs one full decision cycle: buy evaluation, then sell
// evaluation. Exchange failures skip the affected action and are not
// returned; ledger failures are, since an executed order without a ledger
// record desynchronizes reality from state.
func (e *Engine) RunCycle(ctx context.Context) error {
	e.logger.Info(ctx, "Starting decision cycle", map[string]interface{}{"symbol": e.cfg.Symbol})

	if err := e.EvaluateBuy(ctx); err != nil {
		return fmt.Errorf("buy evaluation: %w", err)
	}
	if err := e.EvaluateSell(ctx); err != nil {
		return fmt.Errorf("sell evaluation: %w", err)
	}

	e.logger.Info(ctx, "Decision cycle complete", map[string]interface{}{"symbol": e.cfg.Symbol})
	return nil
}

// EvaluateBuy applies the downtrend buy rule: buy the configured notional
// when today's close is at least the threshold margin below yesterday's
// close AND below the cheapest open position (pyramiding down), and the
// available balance covers the invest amount.
func (e *Engine) EvaluateBuy(ctx context.Context) error {
	op := "EvaluateBuy"

	open, err := e.ledger.ListOpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list open positions: %w", err)
	}
	minBuyPrice, hasOpen := positions.MinimumBuyPrice(positions.FilterBySymbol(open, e.cfg.Symbol))

	candles, err := e.exchange.GetDailyCloses(ctx, e.cfg.Symbol, 2)
	if err != nil {
		e.logger.Error(ctx, err, op+": failed to fetch daily closes, skipping buy this cycle", map[string]interface{}{"symbol": e.cfg.Symbol})
		return nil
	}
	if len(candles) < 2 {
		e.logger.Warn(ctx, op+": not enough daily candles to compare, skipping buy this cycle", map[string]interface{}{"symbol": e.cfg.Symbol, "candles": len(candles)})
		return nil
	}

	priceYesterday := candles[len(candles)-2].Close
	priceToday := candles[len(candles)-1].Close
	margined := priceToday * e.cfg.BuyThreshold

	if margined >= priceYesterday {
		e.logger.Debug(ctx, op+": no downtrend signal", map[string]interface{}{
			"priceYesterday": priceYesterday,
			"priceToday":     priceToday,
		})
		return nil
	}
	if hasOpen && margined >= minBuyPrice {
		e.logger.Debug(ctx, op+": price not below cheapest open position", map[string]interface{}{
			"priceToday":  priceToday,
			"minBuyPrice": minBuyPrice,
		})
		return nil
	}

	balance, err := e.exchange.GetAvailableBalance(ctx, e.cfg.QuoteAsset)
	if err != nil {
		e.logger.Error(ctx, err, op+": failed to fetch balance, skipping buy this cycle", map[string]interface{}{"asset": e.cfg.QuoteAsset})
		return nil
	}
	if balance < e.cfg.InvestAmountUSD {
		e.logger.Info(ctx, op+": insufficient balance for buy", map[string]interface{}{
			"balance":      balance,
			"investAmount": e.cfg.InvestAmountUSD,
		})
		return nil
	}

	fill, err := e.exchange.MarketBuyQuote(ctx, e.cfg.Symbol, e.cfg.InvestAmountUSD)
	if err != nil {
		// No fill, no record: nothing to roll back.
		e.logger.Error(ctx, err, op+": buy execution failed, no trade this cycle", map[string]interface{}{"symbol": e.cfg.Symbol})
		return nil
	}

	pos := &domain.Position{
		Symbol:       e.cfg.Symbol,
		BuyTime:      time.Now().UTC(),
		BuyAmountUSD: e.cfg.InvestAmountUSD,
		BaseAmount:   fill.Quantity,
		BuyPrice:     fill.Price,
	}
	id, err := e.ledger.RecordBuy(ctx, pos)
	if err != nil {
		// The order already executed on the exchange; losing the record is a
		// hard failure that must be surfaced, not swallowed.
		e.logger.Error(ctx, err, op+": ORDER EXECUTED BUT NOT RECORDED, ledger is out of sync", map[string]interface{}{
			"symbol":   e.cfg.Symbol,
			"quantity": fill.Quantity,
			"price":    fill.Price,
		})
		return fmt.Errorf("failed to record buy after execution: %w", err)
	}

	e.logger.Info(ctx, op+": buy executed and recorded", map[string]interface{}{
		"positionID": id,
		"symbol":     e.cfg.Symbol,
		"quantity":   fill.Quantity,
		"price":      fill.Price,
	})
	return nil
}

// EvaluateSell scans every open position independently and closes those whose
// current price exceeds the buy price by the threshold margin. A failed sell
// on one position leaves it open and does not stop the scan.
func (e *Engine) EvaluateSell(ctx context.Context) error {
	op := "EvaluateSell"

	open, err := e.ledger.ListOpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list open positions: %w", err)
	}
	open = positions.FilterBySymbol(open, e.cfg.Symbol)
	if len(open) == 0 {
		e.logger.Debug(ctx, op+": no open positions", map[string]interface{}{"symbol": e.cfg.Symbol})
		return nil
	}

	currentPrice, err := e.exchange.GetTickerPrice(ctx, e.cfg.Symbol)
	if err != nil {
		e.logger.Error(ctx, err, op+": failed to fetch current price, skipping sells this cycle", map[string]interface{}{"symbol": e.cfg.Symbol})
		return nil
	}

	var recordErr error
	for _, pos := range open {
		if currentPrice <= pos.BuyPrice*e.cfg.SellThreshold {
			e.logger.Debug(ctx, op+": position below profit threshold", map[string]interface{}{
				"positionID":   pos.ID,
				"buyPrice":     pos.BuyPrice,
				"currentPrice": currentPrice,
			})
			continue
		}

		fill, err := e.exchange.MarketSell(ctx, e.cfg.Symbol, pos.BaseAmount)
		if err != nil {
			// Position stays open; keep evaluating the rest.
			e.logger.Error(ctx, err, op+": sell execution failed, position left open", map[string]interface{}{"positionID": pos.ID})
			continue
		}

		sellAmount := fill.Quantity * fill.Price
		if err := e.ledger.RecordSell(ctx, pos.ID, sellAmount, fill.Price); err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				// Not expected under single-writer operation, but harmless:
				// the store was left untouched.
				e.logger.Warn(ctx, op+": position vanished before close was recorded", map[string]interface{}{"positionID": pos.ID})
				continue
			}
			e.logger.Error(ctx, err, op+": SELL EXECUTED BUT NOT RECORDED, ledger is out of sync", map[string]interface{}{
				"positionID": pos.ID,
				"sellAmount": sellAmount,
				"sellPrice":  fill.Price,
			})
			if recordErr == nil {
				recordErr = fmt.Errorf("failed to record sell for position %d: %w", pos.ID, err)
			}
			continue
		}

		e.logger.Info(ctx, op+": position closed", map[string]interface{}{
			"positionID": pos.ID,
			"buyPrice":   pos.BuyPrice,
			"sellPrice":  fill.Price,
			"profit":     sellAmount - pos.BuyAmountUSD,
		})
	}

	return recordErr
}
