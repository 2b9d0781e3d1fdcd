package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"priceTrendBot/internal/domain"
	"priceTrendBot/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
)

const (
	// Base URLs
	baseURLProduction = "https://api.binance.com"
	baseURLTestnet    = "https://testnet.binance.vision"

	dailyInterval = "1d"
)

// Client implements the ports.ExchangeClient interface using the go-binance
// spot client.
type Client struct {
	spotClient *binance.Client
	logger     ports.Logger

	mu        sync.Mutex
	stepSizes map[string]decimal.Decimal // Lot step size per symbol, cached after first lookup
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Client will only work for public endpoints.")
	}

	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of using the global binance.UseTestnet
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Binance client configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	return &Client{
		spotClient: client,
		logger:     cfg.Logger,
		stepSizes:  make(map[string]decimal.Decimal),
	}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		// Map specific Binance error codes to custom errors
		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1013: // Filter failure (LOT_SIZE, MIN_NOTIONAL, ...)
			mappedErr = ports.ErrInvalidRequest
		case -1021: // Timestamp for this request is outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1022: // Signature for this request is not valid
			mappedErr = ports.ErrAuthenticationFailed
		case -1100, -1102, -1104, -1106, -1111, -1121: // Parameter/Request format errors
			mappedErr = ports.ErrInvalidRequest
		case -2010: // New order rejected (includes insufficient balance on spot)
			if strings.Contains(strings.ToLower(apiErr.Message), "insufficient balance") {
				mappedErr = ports.ErrInsufficientFunds
			} else {
				mappedErr = ports.ErrOrderPlacementFailed
			}
		case -2014: // API-key format invalid
			mappedErr = ports.ErrInvalidAPIKeys
		case -2015: // Invalid API-key, IP, or permissions for action
			mappedErr = ports.ErrInvalidAPIKeys
		default:
			mappedErr = ports.ErrUnknown
		}
		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	// Handle non-API errors (network, context cancellation, etc.)
	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// GetTickerPrice retrieves the last ticker price for a given symbol.
func (c *Client) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	op := "GetTickerPrice"
	prices, err := c.spotClient.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}
	if len(prices) == 0 {
		err := fmt.Errorf("no price data returned for symbol %s", symbol)
		return 0, c.handleError(ctx, err, op)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		parseErr := fmt.Errorf("could not parse price '%s': %w", prices[0].Price, err)
		return 0, c.handleError(ctx, parseErr, op)
	}
	return price, nil
}

// GetDailyCloses retrieves the most recent daily candle closes for the given
// symbol, oldest first.
func (c *Client) GetDailyCloses(ctx context.Context, symbol string, limit int) ([]domain.Candle, error) {
	op := "GetDailyCloses"
	klines, err := c.spotClient.NewKlinesService().Symbol(symbol).Interval(dailyInterval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	candles := make([]domain.Candle, 0, len(klines))
	for _, k := range klines {
		candle, err := translateKline(k)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("failed to translate daily kline: %w", err), op)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// GetAvailableBalance retrieves the free balance for a specific asset (e.g., "USDT").
func (c *Client) GetAvailableBalance(ctx context.Context, asset string) (float64, error) {
	op := "GetAvailableBalance"
	account, err := c.spotClient.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}

	for _, bal := range account.Balances {
		if bal.Asset == asset {
			balance, err := strconv.ParseFloat(bal.Free, 64)
			if err != nil {
				parseErr := fmt.Errorf("could not parse balance '%s' for asset %s: %w", bal.Free, asset, err)
				return 0, c.handleError(ctx, parseErr, op)
			}
			return balance, nil
		}
	}

	// An asset the account never touched simply has no balance entry.
	c.logger.Debug(ctx, op+": asset not present in account, treating as zero balance", map[string]interface{}{"asset": asset})
	return 0, nil
}

// MarketBuyQuote places a market buy sized by a quote-currency notional.
// The notional is converted to a base quantity at the current ticker price and
// floored to the symbol's lot step size before submission.
func (c *Client) MarketBuyQuote(ctx context.Context, symbol string, quoteAmount float64) (*ports.Fill, error) {
	op := "MarketBuyQuote"

	tickerPrice, err := c.GetTickerPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}

	quantity, err := c.adjustToStep(ctx, symbol, quoteAmount/tickerPrice)
	if err != nil {
		return nil, err
	}
	if !quantity.IsPositive() {
		err := fmt.Errorf("notional %.2f yields zero quantity after step adjustment: %w", quoteAmount, ports.ErrInvalidRequest)
		c.logger.Error(ctx, err, op+" rejected", map[string]interface{}{"symbol": symbol, "tickerPrice": tickerPrice})
		return nil, err
	}

	return c.placeMarketOrder(ctx, op, symbol, domain.Buy, quantity, tickerPrice)
}

// MarketSell places a market sell for the given base-asset quantity, floored
// to the symbol's lot step size before submission.
func (c *Client) MarketSell(ctx context.Context, symbol string, baseQuantity float64) (*ports.Fill, error) {
	op := "MarketSell"

	quantity, err := c.adjustToStep(ctx, symbol, baseQuantity)
	if err != nil {
		return nil, err
	}
	if !quantity.IsPositive() {
		err := fmt.Errorf("quantity %.8f is below the lot step size: %w", baseQuantity, ports.ErrInvalidRequest)
		c.logger.Error(ctx, err, op+" rejected", map[string]interface{}{"symbol": symbol})
		return nil, err
	}

	tickerPrice, err := c.GetTickerPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}

	return c.placeMarketOrder(ctx, op, symbol, domain.Sell, quantity, tickerPrice)
}

func (c *Client) placeMarketOrder(ctx context.Context, op, symbol string, side domain.OrderSide, quantity decimal.Decimal, fallbackPrice float64) (*ports.Fill, error) {
	order, err := c.spotClient.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideType(side)).
		Type(binance.OrderTypeMarket).
		Quantity(quantity.String()).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	fill := translateFill(order, quantity, fallbackPrice)
	if fill.Price == fallbackPrice {
		c.logger.Warn(ctx, op+": order response carried no usable fill price, using ticker price as fallback", map[string]interface{}{"orderID": order.OrderID, "fallbackPrice": fallbackPrice})
	}
	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"symbol":   symbol,
		"side":     side,
		"orderID":  order.OrderID,
		"quantity": fill.Quantity,
		"price":    fill.Price,
	})
	return fill, nil
}

// adjustToStep floors quantity to the symbol's LOT_SIZE step. The exact
// decimal arithmetic matters here: a float floor can round a valid quantity
// below the step boundary and get the order rejected.
func (c *Client) adjustToStep(ctx context.Context, symbol string, quantity float64) (decimal.Decimal, error) {
	step, err := c.stepSize(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	qty := decimal.NewFromFloat(quantity)
	return qty.Div(step).Floor().Mul(step), nil
}

// stepSize returns the LOT_SIZE step for a symbol, fetching exchange info on
// first use and caching the result for the lifetime of the client.
func (c *Client) stepSize(ctx context.Context, symbol string) (decimal.Decimal, error) {
	op := "stepSize"

	c.mu.Lock()
	step, ok := c.stepSizes[symbol]
	c.mu.Unlock()
	if ok {
		return step, nil
	}

	info, err := c.spotClient.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, c.handleError(ctx, err, op)
	}

	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		lotFilter := s.LotSizeFilter()
		if lotFilter == nil {
			break
		}
		step, err = decimal.NewFromString(lotFilter.StepSize)
		if err != nil || !step.IsPositive() {
			return decimal.Zero, c.handleError(ctx, fmt.Errorf("could not parse step size '%s' for symbol %s", lotFilter.StepSize, symbol), op)
		}
		c.mu.Lock()
		c.stepSizes[symbol] = step
		c.mu.Unlock()
		c.logger.Debug(ctx, op+": lot step size cached", map[string]interface{}{"symbol": symbol, "stepSize": step.String()})
		return step, nil
	}

	err = fmt.Errorf("no LOT_SIZE filter found for symbol %s", symbol)
	return decimal.Zero, c.handleError(ctx, err, op)
}

// --- Translation Helpers ---

// translateFill derives the executed quantity and average price from an order
// response. Prefers cumulative quote over executed quantity; falls back to the
// first fill entry, then to the pre-trade ticker price.
func translateFill(order *binance.CreateOrderResponse, requestedQty decimal.Decimal, fallbackPrice float64) *ports.Fill {
	quantity, err := strconv.ParseFloat(order.ExecutedQuantity, 64)
	if err != nil || quantity == 0 {
		quantity, _ = requestedQty.Float64()
	}

	price := 0.0
	if cumQuote, err := strconv.ParseFloat(order.CummulativeQuoteQuantity, 64); err == nil && cumQuote > 0 && quantity > 0 {
		price = cumQuote / quantity
	}
	if price == 0 && len(order.Fills) > 0 {
		price, _ = strconv.ParseFloat(order.Fills[0].Price, 64)
	}
	if price == 0 {
		price = fallbackPrice
	}

	return &ports.Fill{Quantity: quantity, Price: price}
}

func translateKline(k *binance.Kline) (domain.Candle, error) {
	if k == nil {
		return domain.Candle{}, errors.New("received nil kline")
	}
	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parsing close price '%s': %w", k.Close, err)
	}
	return domain.Candle{
		CloseTime: time.UnixMilli(k.CloseTime),
		Close:     closePrice,
	}, nil
}
