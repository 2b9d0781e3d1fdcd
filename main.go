package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"priceTrendBot/config"
	"priceTrendBot/internal/adapters/binanceclient"
	"priceTrendBot/internal/adapters/logger"
	"priceTrendBot/internal/adapters/simulated"
	"priceTrendBot/internal/adapters/sqlite"
	"priceTrendBot/internal/engine"
	"priceTrendBot/internal/ports"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Ledger (Database Adapter)
	ledger, err := sqlite.NewLedger(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize ledger store")
		log.Fatalf("FATAL: Failed to initialize ledger store: %v", err) // Also log to stderr
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing ledger store")
		}
	}()
	appLogger.Info(context.Background(), "Ledger store initialized", map[string]interface{}{"path": cfg.DBPath})

	// 4. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	appLogger.Info(context.Background(), "Binance client initialized", map[string]interface{}{"testnet": cfg.IsTestnet})

	// In dry-run mode orders are filled synthetically against live prices.
	var exchange ports.ExchangeClient = binanceClient
	if cfg.DryRun {
		exchange, err = simulated.New(simulated.Config{
			Inner:      binanceClient,
			Logger:     appLogger,
			BalanceUSD: cfg.DryRunBalanceUSD,
		})
		if err != nil {
			appLogger.Error(context.Background(), err, "FATAL: Failed to initialize simulated exchange")
			log.Fatalf("FATAL: Failed to initialize simulated exchange: %v", err)
		}
		appLogger.Info(context.Background(), "Dry-run mode active, orders will be simulated", map[string]interface{}{"paperBalance": cfg.DryRunBalanceUSD})
	}

	// 5. Initialize Decision Engine
	eng, err := engine.New(engine.Config{
		Symbol:          cfg.Symbol,
		QuoteAsset:      cfg.QuoteAsset,
		InvestAmountUSD: cfg.InvestAmountUSD,
		BuyThreshold:    cfg.BuyThreshold,
		SellThreshold:   cfg.SellThreshold,
	}, appLogger, exchange, ledger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize decision engine")
		log.Fatalf("FATAL: Failed to initialize decision engine: %v", err)
	}
	appLogger.Info(context.Background(), "Decision engine initialized", map[string]interface{}{
		"symbol":        cfg.Symbol,
		"investAmount":  cfg.InvestAmountUSD,
		"buyThreshold":  cfg.BuyThreshold,
		"sellThreshold": cfg.SellThreshold,
	})

	// 6. Run: a single cycle by default, or on a cron schedule when configured.
	if cfg.CronSchedule == "" {
		if err := eng.RunCycle(context.Background()); err != nil {
			appLogger.Error(context.Background(), err, "Trading cycle exited with error")
			log.Fatalf("FATAL: Trading cycle exited with error: %v", err)
		}
		appLogger.Info(context.Background(), "Trading cycle finished.")
		return
	}

	runDaemon(cfg.CronSchedule, eng, appLogger)
}

// runDaemon evaluates the trading cycle on the given cron schedule until the
// process receives SIGINT or SIGTERM. A failing cycle is logged and the next
// scheduled run proceeds normally.
func runDaemon(schedule string, eng *engine.Engine, appLogger ports.Logger) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if err := eng.RunCycle(context.Background()); err != nil {
			appLogger.Error(context.Background(), err, "Scheduled trading cycle failed")
		}
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Invalid cron schedule")
		log.Fatalf("FATAL: Invalid cron schedule %q: %v", schedule, err)
	}

	c.Start()
	appLogger.Info(context.Background(), "Scheduler started", map[string]interface{}{"schedule": schedule})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	appLogger.Info(context.Background(), "Shutdown signal received, stopping scheduler", map[string]interface{}{"signal": sig.String()})

	// Wait for an in-flight cycle to finish before exiting.
	<-c.Stop().Done()
	appLogger.Info(context.Background(), "Application finished gracefully.")
}
