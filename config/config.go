package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"priceTrendBot/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Binance API
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Trading Parameters
	Symbol          string  // Trading pair, e.g. "BTCUSDT"
	QuoteAsset      string  // Asset the invest amount is denominated in, e.g. "USDT"
	InvestAmountUSD float64 // Quote notional per buy
	BuyThreshold    float64 // Buy when today*BuyThreshold < yesterday (and < min open buy price)
	SellThreshold   float64 // Sell when current > buyPrice*SellThreshold

	// Execution Mode
	DryRun           bool    // Simulate order execution against live prices
	DryRunBalanceUSD float64 // Paper balance used in dry-run mode

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel // Use the LogLevel type from the logger adapter

	// Scheduling
	CronSchedule string // Cron expression for the daemon mode; empty means one cycle and exit
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	cfg.DryRun = getEnvAsBool("DRY_RUN", true) // Default to simulated execution for safety

	// Live trading needs credentials; dry-run mode only calls public endpoints.
	if !cfg.DryRun {
		if cfg.APIKey == "" {
			errs = append(errs, "BINANCE_API_KEY must be set when DRY_RUN is false")
		}
		if cfg.SecretKey == "" {
			errs = append(errs, "BINANCE_API_SECRET must be set when DRY_RUN is false")
		}
	}

	// Trading Parameters
	cfg.Symbol = getEnv("SYMBOL", "BTCUSDT")
	if cfg.Symbol == "" {
		errs = append(errs, "SYMBOL must be set")
	}

	cfg.QuoteAsset = getEnv("QUOTE_ASSET", "USDT")
	if cfg.QuoteAsset == "" {
		errs = append(errs, "QUOTE_ASSET must be set")
	}

	cfg.InvestAmountUSD, err = getEnvAsFloatRequired("INVEST_AMOUNT_USD", 100.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid INVEST_AMOUNT_USD: %v", err))
	} else if cfg.InvestAmountUSD <= 0 {
		errs = append(errs, "INVEST_AMOUNT_USD must be positive")
	}

	// The default 1% margins on both sides absorb round-trip fees and
	// keep the bot from churning on price noise.
	cfg.BuyThreshold, err = getEnvAsFloatRequired("BUY_THRESHOLD", 1.01)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid BUY_THRESHOLD: %v", err))
	} else if cfg.BuyThreshold <= 1.0 {
		errs = append(errs, "BUY_THRESHOLD must be greater than 1.0")
	}

	cfg.SellThreshold, err = getEnvAsFloatRequired("SELL_THRESHOLD", 1.01)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SELL_THRESHOLD: %v", err))
	} else if cfg.SellThreshold <= 1.0 {
		errs = append(errs, "SELL_THRESHOLD must be greater than 1.0")
	}

	cfg.DryRunBalanceUSD, err = getEnvAsFloatRequired("DRY_RUN_BALANCE_USD", 1000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DRY_RUN_BALANCE_USD: %v", err))
	} else if cfg.DryRunBalanceUSD < 0 {
		errs = append(errs, "DRY_RUN_BALANCE_USD cannot be negative")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/trading_data.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// Scheduling (optional; empty runs a single cycle)
	cfg.CronSchedule = getEnv("CRON_SCHEDULE", "")

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
