package simulated

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"priceTrendBot/internal/domain"
	"priceTrendBot/internal/ports"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type mockMarketData struct {
	price    float64
	priceErr error
	candles  []domain.Candle
}

func (m *mockMarketData) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	return m.price, m.priceErr
}

func (m *mockMarketData) GetDailyCloses(ctx context.Context, symbol string, limit int) ([]domain.Candle, error) {
	return m.candles, nil
}

func (m *mockMarketData) GetAvailableBalance(ctx context.Context, asset string) (float64, error) {
	return 0, errors.New("live balance must not be consulted in dry runs")
}

func (m *mockMarketData) MarketBuyQuote(ctx context.Context, symbol string, quoteAmount float64) (*ports.Fill, error) {
	return nil, errors.New("live order placed in dry run")
}

func (m *mockMarketData) MarketSell(ctx context.Context, symbol string, baseQuantity float64) (*ports.Fill, error) {
	return nil, errors.New("live order placed in dry run")
}

func newTestExchange(t *testing.T, inner ports.ExchangeClient, balance float64) *Exchange {
	t.Helper()
	ex, err := New(Config{Inner: inner, Logger: &mockLogger{}, BalanceUSD: balance})
	require.NoError(t, err)
	return ex
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{Logger: &mockLogger{}, BalanceUSD: 100})
	assert.Error(t, err)

	_, err = New(Config{Inner: &mockMarketData{}, BalanceUSD: 100})
	assert.Error(t, err)

	_, err = New(Config{Inner: &mockMarketData{}, Logger: &mockLogger{}, BalanceUSD: -1})
	assert.Error(t, err)
}

func TestBuyDebitsBalance(t *testing.T) {
	ex := newTestExchange(t, &mockMarketData{price: 100}, 1000)

	fill, err := ex.MarketBuyQuote(context.Background(), "BTCUSDT", 250)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, fill.Quantity, 1e-9)
	assert.Equal(t, 100.0, fill.Price)

	balance, err := ex.GetAvailableBalance(context.Background(), "USDT")
	require.NoError(t, err)
	assert.Equal(t, 750.0, balance)
}

func TestBuyRejectsOverdraw(t *testing.T) {
	ex := newTestExchange(t, &mockMarketData{price: 100}, 50)

	_, err := ex.MarketBuyQuote(context.Background(), "BTCUSDT", 100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrInsufficientFunds))

	// Balance untouched after the rejected order.
	balance, err := ex.GetAvailableBalance(context.Background(), "USDT")
	require.NoError(t, err)
	assert.Equal(t, 50.0, balance)
}

func TestSellCreditsBalance(t *testing.T) {
	ex := newTestExchange(t, &mockMarketData{price: 103}, 900)

	fill, err := ex.MarketSell(context.Background(), "BTCUSDT", 1.0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, fill.Quantity)
	assert.Equal(t, 103.0, fill.Price)

	balance, err := ex.GetAvailableBalance(context.Background(), "USDT")
	require.NoError(t, err)
	assert.InDelta(t, 1003.0, balance, 1e-9)
}

func TestSellRejectsNonPositiveQuantity(t *testing.T) {
	ex := newTestExchange(t, &mockMarketData{price: 100}, 100)

	_, err := ex.MarketSell(context.Background(), "BTCUSDT", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrInvalidRequest))
}

func TestOrdersFailWhenTickerUnavailable(t *testing.T) {
	inner := &mockMarketData{priceErr: ports.ErrExchangeUnavailable}
	ex := newTestExchange(t, inner, 1000)

	_, err := ex.MarketBuyQuote(context.Background(), "BTCUSDT", 100)
	assert.True(t, errors.Is(err, ports.ErrExchangeUnavailable))

	_, err = ex.MarketSell(context.Background(), "BTCUSDT", 1.0)
	assert.True(t, errors.Is(err, ports.ErrExchangeUnavailable))

	// A failed buy must not debit the paper balance.
	balance, err := ex.GetAvailableBalance(context.Background(), "USDT")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, balance)
}
