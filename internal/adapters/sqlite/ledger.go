package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"priceTrendBot/internal/domain"
	"priceTrendBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Ledger implements the ports.Ledger interface using SQLite. It owns the
// three persisted tables: open positions, closed trades, and KPI snapshots.
type Ledger struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite ledger.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewLedger creates a new SQLite ledger instance.
func NewLedger(cfg Config) (*Ledger, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite ledger")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/trading_data.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite ledger initialization failed")
		return nil, err
	}

	// Open database connection
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite ledger initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close() // Close the connection if ping fails
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite ledger initialization failed")
		return nil, err
	}

	// Set connection pool settings (important for SQLite)
	db.SetMaxOpenConns(1) // SQLite handles concurrency internally, but Go driver benefits from limiting connections
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	ledger := &Ledger{db: db, logger: cfg.Logger}

	if err := ledger.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite ledger initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Database schema initialized/verified")

	return ledger, nil
}

// initializeSchema creates tables if they don't exist.
// NOTE: This is a basic approach. A proper migration tool is recommended for production.
func (l *Ledger) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS open_positions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		buy_time TIMESTAMP NOT NULL,
		buy_amount_usd REAL NOT NULL,
		base_amount REAL NOT NULL,
		buy_price REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS closed_trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		buy_time TIMESTAMP NOT NULL,
		sell_time TIMESTAMP NOT NULL,
		buy_amount_usd REAL NOT NULL,
		sell_amount_usd REAL NOT NULL,
		base_amount REAL NOT NULL,
		buy_price REAL NOT NULL,
		sell_price REAL NOT NULL,
		profit REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS kpi_snapshots (
		snapshot_time TIMESTAMP NOT NULL,
		total_profit REAL NOT NULL,
		total_investment REAL NOT NULL,
		total_operations INTEGER NOT NULL,
		winning_trades INTEGER NOT NULL,
		losing_trades INTEGER NOT NULL,
		average_profit_per_trade REAL NOT NULL,
		roi_percentage REAL NOT NULL
	);
	-- Add indexes for common lookups
	CREATE INDEX IF NOT EXISTS idx_open_positions_symbol ON open_positions (symbol);
	CREATE INDEX IF NOT EXISTS idx_closed_trades_sell_time ON closed_trades (sell_time);
	CREATE INDEX IF NOT EXISTS idx_kpi_snapshots_time ON kpi_snapshots (snapshot_time);
	`
	_, err := l.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	if l.db != nil {
		l.logger.Info(context.Background(), "Closing SQLite database connection")
		return l.db.Close()
	}
	return nil
}

// RecordBuy saves a new open position and returns its assigned ID.
func (l *Ledger) RecordBuy(ctx context.Context, pos *domain.Position) (int64, error) {
	if pos.BaseAmount <= 0 {
		return 0, fmt.Errorf("position base amount must be positive: %w", ports.ErrInvalidRequest)
	}
	if pos.BuyPrice <= 0 {
		return 0, fmt.Errorf("position buy price must be positive: %w", ports.ErrInvalidRequest)
	}
	if pos.BuyTime.IsZero() {
		pos.BuyTime = time.Now().UTC()
	}

	const query = `
	INSERT INTO open_positions (symbol, buy_time, buy_amount_usd, base_amount, buy_price)
	VALUES (?, ?, ?, ?, ?)`

	result, err := l.db.ExecContext(ctx, query,
		pos.Symbol, pos.BuyTime, pos.BuyAmountUSD, pos.BaseAmount, pos.BuyPrice)
	if err != nil {
		return 0, fmt.Errorf("failed to insert open position for symbol %s: %w: %w", pos.Symbol, ports.ErrWriteFailed, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for position %s: %w", pos.Symbol, err)
	}
	pos.ID = id // Update the domain object with the ID
	l.logger.Debug(ctx, "Open position recorded", map[string]interface{}{"positionID": id, "symbol": pos.Symbol, "buyPrice": pos.BuyPrice})
	return id, nil
}

// RecordSell closes the open position with the given ID, atomically moving it
// into closed_trades. A half-closed state (trade row inserted but position
// still open, or the reverse) must never be observable, so both writes happen
// inside one transaction.
func (l *Ledger) RecordSell(ctx context.Context, positionID int64, sellAmountUSD, sellPrice float64) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin close transaction for position %d: %w: %w", positionID, ports.ErrWriteFailed, err)
	}
	defer tx.Rollback() // No-op after a successful commit

	const selectQuery = `
	SELECT id, symbol, buy_time, buy_amount_usd, base_amount, buy_price
	FROM open_positions
	WHERE id = ?`

	pos, err := scanPosition(tx.QueryRowContext(ctx, selectQuery, positionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			l.logger.Warn(ctx, "No open position found for close", map[string]interface{}{"positionID": positionID})
			return fmt.Errorf("open position %d: %w", positionID, ports.ErrNotFound)
		}
		return fmt.Errorf("failed to query open position %d for close: %w: %w", positionID, ports.ErrQueryFailed, err)
	}

	sellTime := time.Now().UTC()
	profit := sellAmountUSD - pos.BuyAmountUSD

	const insertQuery = `
	INSERT INTO closed_trades (symbol, buy_time, sell_time, buy_amount_usd, sell_amount_usd,
	                           base_amount, buy_price, sell_price, profit)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := tx.ExecContext(ctx, insertQuery,
		pos.Symbol, pos.BuyTime, sellTime, pos.BuyAmountUSD, sellAmountUSD,
		pos.BaseAmount, pos.BuyPrice, sellPrice, profit); err != nil {
		return fmt.Errorf("failed to insert closed trade for position %d: %w: %w", positionID, ports.ErrWriteFailed, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM open_positions WHERE id = ?`, positionID); err != nil {
		return fmt.Errorf("failed to delete open position %d: %w: %w", positionID, ports.ErrWriteFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit close for position %d: %w: %w", positionID, ports.ErrWriteFailed, err)
	}

	l.logger.Debug(ctx, "Position closed", map[string]interface{}{"positionID": positionID, "sellPrice": sellPrice, "profit": profit})
	return nil
}

// ListOpenPositions retrieves all open positions.
func (l *Ledger) ListOpenPositions(ctx context.Context) ([]*domain.Position, error) {
	const query = `
	SELECT id, symbol, buy_time, buy_amount_usd, base_amount, buy_price
	FROM open_positions
	ORDER BY id`

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query open positions: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	positions := make([]*domain.Position, 0)
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan open position: %w", err)
		}
		positions = append(positions, pos)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating open position rows: %w", err)
	}
	return positions, nil
}

// ListClosedTrades retrieves all closed trades, most recent sell first.
func (l *Ledger) ListClosedTrades(ctx context.Context) ([]*domain.Trade, error) {
	const query = `
	SELECT id, symbol, buy_time, sell_time, buy_amount_usd, sell_amount_usd,
	       base_amount, buy_price, sell_price, profit
	FROM closed_trades
	ORDER BY sell_time DESC`

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query closed trades: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan closed trade: %w", err)
		}
		trades = append(trades, trade)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating closed trade rows: %w", err)
	}
	return trades, nil
}

// AppendKPISnapshot stores one KPI snapshot row.
func (l *Ledger) AppendKPISnapshot(ctx context.Context, snap *domain.KPISnapshot) error {
	if snap.Time.IsZero() {
		snap.Time = time.Now().UTC()
	}

	const query = `
	INSERT INTO kpi_snapshots (snapshot_time, total_profit, total_investment, total_operations,
	                           winning_trades, losing_trades, average_profit_per_trade, roi_percentage)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := l.db.ExecContext(ctx, query,
		snap.Time, snap.TotalProfit, snap.TotalInvestment, snap.TotalOperations,
		snap.WinningTrades, snap.LosingTrades, snap.AverageProfitPerTrade, snap.ROIPercentage); err != nil {
		return fmt.Errorf("failed to insert KPI snapshot: %w: %w", ports.ErrWriteFailed, err)
	}

	l.logger.Debug(ctx, "KPI snapshot appended", map[string]interface{}{"time": snap.Time, "totalProfit": snap.TotalProfit})
	return nil
}

// ListKPISnapshots retrieves all KPI snapshots, most recent first.
func (l *Ledger) ListKPISnapshots(ctx context.Context) ([]*domain.KPISnapshot, error) {
	const query = `
	SELECT snapshot_time, total_profit, total_investment, total_operations,
	       winning_trades, losing_trades, average_profit_per_trade, roi_percentage
	FROM kpi_snapshots
	ORDER BY snapshot_time DESC`

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query KPI snapshots: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	snapshots := make([]*domain.KPISnapshot, 0)
	for rows.Next() {
		snap := &domain.KPISnapshot{}
		if err := rows.Scan(
			&snap.Time, &snap.TotalProfit, &snap.TotalInvestment, &snap.TotalOperations,
			&snap.WinningTrades, &snap.LosingTrades, &snap.AverageProfitPerTrade, &snap.ROIPercentage); err != nil {
			return nil, fmt.Errorf("failed to scan KPI snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating KPI snapshot rows: %w", err)
	}
	return snapshots, nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanPosition scans a row into a domain.Position struct.
func scanPosition(s scanner) (*domain.Position, error) {
	p := &domain.Position{}
	err := s.Scan(&p.ID, &p.Symbol, &p.BuyTime, &p.BuyAmountUSD, &p.BaseAmount, &p.BuyPrice)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	return p, nil
}

// scanTrade scans a row into a domain.Trade struct.
func scanTrade(s scanner) (*domain.Trade, error) {
	t := &domain.Trade{}
	err := s.Scan(
		&t.ID, &t.Symbol, &t.BuyTime, &t.SellTime, &t.BuyAmountUSD, &t.SellAmountUSD,
		&t.BaseAmount, &t.BuyPrice, &t.SellPrice, &t.Profit)
	if err != nil {
		return nil, err
	}
	return t, nil
}
