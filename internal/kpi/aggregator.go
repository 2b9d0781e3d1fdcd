package kpi

import (
	"context"
	"fmt"
	"time"

	"priceTrendBot/internal/domain"
	"priceTrendBot/internal/ports"
)

// Compute derives a KPI snapshot from a set of closed trades. It is a pure
// function: given the same trades it always yields the same totals, only the
// snapshot timestamp differs between invocations.
func Compute(trades []*domain.Trade, now time.Time) domain.KPISnapshot {
	snap := domain.KPISnapshot{Time: now}

	for _, trade := range trades {
		snap.TotalProfit += trade.Profit
		snap.TotalInvestment += trade.BuyAmountUSD
		snap.TotalOperations++
		if trade.Profit > 0 {
			snap.WinningTrades++
		} else {
			snap.LosingTrades++
		}
	}

	if snap.TotalOperations > 0 {
		snap.AverageProfitPerTrade = snap.TotalProfit / float64(snap.TotalOperations)
	}
	if snap.TotalInvestment > 0 {
		snap.ROIPercentage = snap.TotalProfit / snap.TotalInvestment * 100
	}

	return snap
}

// Aggregator reads the ledger, computes a KPI snapshot, and appends it.
// Snapshots are appended per invocation; no calendar-day deduplication.
type Aggregator struct {
	ledger ports.Ledger
	logger ports.Logger
}

// NewAggregator creates a new KPI aggregator instance.
func NewAggregator(ledger ports.Ledger, logger ports.Logger) (*Aggregator, error) {
	if ledger == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for KPI aggregator")
	}
	return &Aggregator{ledger: ledger, logger: logger}, nil
}

// Snapshot computes the current KPI snapshot from all closed trades and
// appends it to the ledger.
func (a *Aggregator) Snapshot(ctx context.Context) (*domain.KPISnapshot, error) {
	trades, err := a.ledger.ListClosedTrades(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list closed trades: %w", err)
	}

	snap := Compute(trades, time.Now().UTC())
	if err := a.ledger.AppendKPISnapshot(ctx, &snap); err != nil {
		return nil, fmt.Errorf("failed to append KPI snapshot: %w", err)
	}

	a.logger.Info(ctx, "KPI snapshot recorded", map[string]interface{}{
		"totalProfit":     snap.TotalProfit,
		"totalOperations": snap.TotalOperations,
		"roiPercentage":   snap.ROIPercentage,
	})
	return &snap, nil
}

// UnrealizedLosses sums the paper loss across open positions currently under
// water. priceOf resolves the current market price for a position's symbol.
// Positions whose price cannot be resolved are skipped rather than failing
// the whole report; skipped reports how many.
func UnrealizedLosses(ctx context.Context, open []*domain.Position, priceOf func(ctx context.Context, symbol string) (float64, error)) (total float64, losing int, skipped int) {
	for _, pos := range open {
		currentPrice, err := priceOf(ctx, pos.Symbol)
		if err != nil {
			skipped++
			continue
		}
		loss := (pos.BuyPrice - currentPrice) * pos.BaseAmount
		if loss > 0 {
			total += loss
			losing++
		}
	}
	return total, losing, skipped
}
