// Command kpi_snapshot computes a KPI snapshot from the closed-trade ledger,
// appends it, and prints the realized totals plus the current paper loss on
// open positions. Meant for ad-hoc runs and cron-driven reporting.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"priceTrendBot/config"
	"priceTrendBot/internal/adapters/binanceclient"
	"priceTrendBot/internal/adapters/logger"
	"priceTrendBot/internal/adapters/sqlite"
	"priceTrendBot/internal/kpi"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	ledger, err := sqlite.NewLedger(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize ledger store")
		os.Exit(1)
	}
	defer ledger.Close()

	agg, err := kpi.NewAggregator(ledger, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize KPI aggregator")
		os.Exit(1)
	}

	snap, err := agg.Snapshot(ctx)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to compute KPI snapshot")
		os.Exit(1)
	}

	fmt.Printf("KPI snapshot at %s\n", snap.Time.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("  Total profit:        %.2f %s\n", snap.TotalProfit, cfg.QuoteAsset)
	fmt.Printf("  Total investment:    %.2f %s\n", snap.TotalInvestment, cfg.QuoteAsset)
	fmt.Printf("  Total operations:    %d\n", snap.TotalOperations)
	fmt.Printf("  Winning trades:      %d\n", snap.WinningTrades)
	fmt.Printf("  Losing trades:       %d\n", snap.LosingTrades)
	fmt.Printf("  Avg profit / trade:  %.2f %s\n", snap.AverageProfitPerTrade, cfg.QuoteAsset)
	fmt.Printf("  ROI:                 %.2f%%\n", snap.ROIPercentage)

	// Paper losses on open positions use live prices; public endpoints only,
	// so this works without API credentials.
	open, err := ledger.ListOpenPositions(ctx)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to list open positions")
		os.Exit(1)
	}
	if len(open) == 0 {
		fmt.Println("  Open positions:      0")
		return
	}

	client, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		os.Exit(1)
	}

	total, losing, skipped := kpi.UnrealizedLosses(ctx, open, client.GetTickerPrice)
	fmt.Printf("  Open positions:      %d\n", len(open))
	fmt.Printf("  Under water:         %d\n", losing)
	fmt.Printf("  Unrealized loss:     %.2f %s\n", total, cfg.QuoteAsset)
	if skipped > 0 {
		fmt.Printf("  Price lookups failed for %d position(s); loss figure is partial\n", skipped)
	}
}
