package kpi

import (
	"context"
	"errors"
	"testing"
	"time"

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

type mockLedger struct {
	trades    []*domain.Trade
	tradesErr error

	appendErr error
	appended  []*domain.KPISnapshot
}

func (m *mockLedger) RecordBuy(ctx context.Context, pos *domain.Position) (int64, error) {
	return 0, nil
}

func (m *mockLedger) RecordSell(ctx context.Context, positionID int64, sellAmountUSD, sellPrice float64) error {
	return nil
}

func (m *mockLedger) ListOpenPositions(ctx context.Context) ([]*domain.Position, error) {
	return nil, nil
}

func (m *mockLedger) ListClosedTrades(ctx context.Context) ([]*domain.Trade, error) {
	return m.trades, m.tradesErr
}

func (m *mockLedger) AppendKPISnapshot(ctx context.Context, snap *domain.KPISnapshot) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.appended = append(m.appended, snap)
	return nil
}

func (m *mockLedger) ListKPISnapshots(ctx context.Context) ([]*domain.KPISnapshot, error) {
	return m.appended, nil
}

func closedTrade(buyUSD, sellUSD float64) *domain.Trade {
	now := time.Now().UTC()
	buyPrice := 100.0
	return &domain.Trade{
		Symbol:        "BTCUSDT",
		BuyTime:       now.Add(-24 * time.Hour),
		SellTime:      now,
		BuyAmountUSD:  buyUSD,
		SellAmountUSD: sellUSD,
		BaseAmount:    buyUSD / buyPrice,
		BuyPrice:      buyPrice,
		SellPrice:     buyPrice * sellUSD / buyUSD,
		Profit:        sellUSD - buyUSD,
	}
}

func TestCompute(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   []*domain.Trade
		want domain.KPISnapshot
	}{
		{
			name: "no trades yields zeros",
			want: domain.KPISnapshot{Time: now},
		},
		{
			name: "single winning trade",
			in:   []*domain.Trade{closedTrade(100, 103)},
			want: domain.KPISnapshot{
				Time:                  now,
				TotalProfit:           3,
				TotalInvestment:       100,
				TotalOperations:       1,
				WinningTrades:         1,
				AverageProfitPerTrade: 3,
				ROIPercentage:         3,
			},
		},
		{
			name: "mixed wins and losses",
			in: []*domain.Trade{
				closedTrade(100, 110),
				closedTrade(100, 95),
				closedTrade(200, 205),
			},
			want: domain.KPISnapshot{
				Time:                  now,
				TotalProfit:           10,
				TotalInvestment:       400,
				TotalOperations:       3,
				WinningTrades:         2,
				LosingTrades:          1,
				AverageProfitPerTrade: 10.0 / 3.0,
				ROIPercentage:         2.5,
			},
		},
		{
			name: "break-even trade counts as losing",
			in:   []*domain.Trade{closedTrade(100, 100)},
			want: domain.KPISnapshot{
				Time:            now,
				TotalInvestment: 100,
				TotalOperations: 1,
				LosingTrades:    1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.in, now)
			assert.Equal(t, tt.want.TotalOperations, got.TotalOperations)
			assert.Equal(t, tt.want.WinningTrades, got.WinningTrades)
			assert.Equal(t, tt.want.LosingTrades, got.LosingTrades)
			assert.InDelta(t, tt.want.TotalProfit, got.TotalProfit, 1e-9)
			assert.InDelta(t, tt.want.TotalInvestment, got.TotalInvestment, 1e-9)
			assert.InDelta(t, tt.want.AverageProfitPerTrade, got.AverageProfitPerTrade, 1e-9)
			assert.InDelta(t, tt.want.ROIPercentage, got.ROIPercentage, 1e-9)
		})
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	now := time.Now().UTC()
	trades := []*domain.Trade{
		closedTrade(100, 103),
		closedTrade(150, 140),
	}

	first := Compute(trades, now)
	second := Compute(trades, now)
	assert.Equal(t, first, second)
}

func TestAggregator_Snapshot(t *testing.T) {
	ledger := &mockLedger{
		trades: []*domain.Trade{
			closedTrade(100, 103),
			closedTrade(100, 98),
		},
	}

	agg, err := NewAggregator(ledger, &mockLogger{})
	require.NoError(t, err)

	snap, err := agg.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snap.TotalOperations)
	assert.Equal(t, 1, snap.WinningTrades)
	assert.Equal(t, 1, snap.LosingTrades)
	assert.InDelta(t, 1.0, snap.TotalProfit, 1e-9)

	require.Len(t, ledger.appended, 1)
	assert.Equal(t, snap, ledger.appended[0])
}

func TestAggregator_SnapshotErrors(t *testing.T) {
	t.Run("list failure", func(t *testing.T) {
		ledger := &mockLedger{tradesErr: ports.ErrQueryFailed}
		agg, err := NewAggregator(ledger, &mockLogger{})
		require.NoError(t, err)

		_, err = agg.Snapshot(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ports.ErrQueryFailed))
		assert.Empty(t, ledger.appended)
	})

	t.Run("append failure", func(t *testing.T) {
		ledger := &mockLedger{appendErr: ports.ErrWriteFailed}
		agg, err := NewAggregator(ledger, &mockLogger{})
		require.NoError(t, err)

		_, err = agg.Snapshot(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ports.ErrWriteFailed))
	})
}

func TestUnrealizedLosses(t *testing.T) {
	open := []*domain.Position{
		{ID: 1, Symbol: "BTCUSDT", BaseAmount: 1.0, BuyPrice: 100},  // under water at 95
		{ID: 2, Symbol: "BTCUSDT", BaseAmount: 2.0, BuyPrice: 90},   // in profit at 95
		{ID: 3, Symbol: "ETHUSDT", BaseAmount: 0.5, BuyPrice: 2000}, // price lookup fails
	}

	priceOf := func(ctx context.Context, symbol string) (float64, error) {
		if symbol == "ETHUSDT" {
			return 0, ports.ErrExchangeUnavailable
		}
		return 95, nil
	}

	total, losing, skipped := UnrealizedLosses(context.Background(), open, priceOf)
	assert.InDelta(t, 5.0, total, 1e-9)
	assert.Equal(t, 1, losing)
	assert.Equal(t, 1, skipped)
}

func TestUnrealizedLossesEmpty(t *testing.T) {
	total, losing, skipped := UnrealizedLosses(context.Background(), nil, func(ctx context.Context, symbol string) (float64, error) {
		t.Fatal("priceOf should not be called")
		return 0, nil
	})
	assert.Zero(t, total)
	assert.Zero(t, losing)
	assert.Zero(t, skipped)
}
