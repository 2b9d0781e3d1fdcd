package ports

import (
	"context"

	"priceTrendBot/internal/domain"
)

// Ledger defines the interface for the durable record of open positions,
// closed trades, and KPI snapshots. It is the system of record: the
// decision engine and the KPI aggregator hold no persistent state of
// their own.
type Ledger interface {
	// RecordBuy saves a new open position and returns its assigned ID.
	// BuyTime defaults to the current time when unset.
	RecordBuy(ctx context.Context, pos *domain.Position) (int64, error)

	// RecordSell closes the open position with the given ID: it inserts the
	// corresponding closed trade (profit = sellAmountUSD - BuyAmountUSD) and
	// removes the open position, atomically. When no open position has that
	// ID the store is left unchanged and the returned error wraps ErrNotFound.
	RecordSell(ctx context.Context, positionID int64, sellAmountUSD, sellPrice float64) error

	// ListOpenPositions retrieves all open positions.
	ListOpenPositions(ctx context.Context) ([]*domain.Position, error)

	// ListClosedTrades retrieves all closed trades.
	ListClosedTrades(ctx context.Context) ([]*domain.Trade, error)

	// AppendKPISnapshot stores one KPI snapshot row. Snapshots are append-only.
	AppendKPISnapshot(ctx context.Context, snap *domain.KPISnapshot) error

	// ListKPISnapshots retrieves all KPI snapshots, most recent first.
	ListKPISnapshots(ctx context.Context) ([]*domain.KPISnapshot, error)
}
