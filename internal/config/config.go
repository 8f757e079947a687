package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Sheets     SheetsConfig
	MongoDB    MongoDBConfig
	MarketData MarketDataConfig
	Schedule   ScheduleConfig
	Analysis   AnalysisConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LogConfig selects the logger verbosity.
type LogConfig struct {
	Level string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	Ranges          SheetRanges
}

// SheetRanges names the A1 ranges backing each dataset.
type SheetRanges struct {
	Production    string
	Prices        string
	ExchangeRates string
	Wells         string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// MarketDataConfig points at the upstream price and exchange-rate feed.
type MarketDataConfig struct {
	BaseURL          string
	APIKey           string
	OilPricePath     string
	ExchangeRatePath string
}

// ScheduleConfig holds cron expressions for the background jobs.
type ScheduleConfig struct {
	IngestCron     string
	FinancialsCron string
	Timezone       string
}

// AnalysisConfig holds decline-curve defaults.
type AnalysisConfig struct {
	MaxIterations       int
	DefaultForecastDays int
	DefaultModel        string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are acceptable when configuration comes from the environment.
		_ = godotenv.Load()
	}

	maxIterations, err := getenvInt("DECLINE_MAX_ITERATIONS", 5000)
	if err != nil {
		return nil, err
	}
	forecastDays, err := getenvInt("DECLINE_FORECAST_DAYS", 365)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			Ranges: SheetRanges{
				Production:    getenvWithDefault("SHEET_PRODUCTION_RANGE", "Production!A:E"),
				Prices:        getenvWithDefault("SHEET_PRICES_RANGE", "Prices!A:D"),
				ExchangeRates: getenvWithDefault("SHEET_EXCHANGE_RATES_RANGE", "ExchangeRates!A:B"),
				Wells:         getenvWithDefault("SHEET_WELLS_RANGE", "Wells!A:D"),
			},
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "wellcast"),
		},
		MarketData: MarketDataConfig{
			BaseURL:          os.Getenv("MARKET_DATA_BASE_URL"),
			APIKey:           os.Getenv("MARKET_DATA_API_KEY"),
			OilPricePath:     getenvWithDefault("MARKET_DATA_OIL_PRICE_PATH", "/v1/prices/brent"),
			ExchangeRatePath: getenvWithDefault("MARKET_DATA_EXCHANGE_RATE_PATH", "/v1/rates/usd-brl"),
		},
		Schedule: ScheduleConfig{
			IngestCron:     getenvWithDefault("INGEST_CRON_SCHEDULE", "0 6 * * *"),
			FinancialsCron: getenvWithDefault("FINANCIALS_CRON_SCHEDULE", "30 6 1 * *"),
			Timezone:       getenvWithDefault("TIMEZONE", "America/Sao_Paulo"),
		},
		Analysis: AnalysisConfig{
			MaxIterations:       maxIterations,
			DefaultForecastDays: forecastDays,
			DefaultModel:        getenvWithDefault("DECLINE_DEFAULT_MODEL", "exponential"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch {
	case c.Sheets.CredentialsPath == "":
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
	case c.Sheets.SpreadsheetID == "":
		return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided")
	}

	if c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must be provided")
	}

	if c.MarketData.BaseURL == "" {
		return errors.New("MARKET_DATA_BASE_URL must be provided")
	}

	if c.Schedule.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}

	if c.Analysis.DefaultForecastDays < 0 {
		return errors.New("DECLINE_FORECAST_DAYS must not be negative")
	}

	switch c.Analysis.DefaultModel {
	case "exponential", "hyperbolic":
	default:
		return fmt.Errorf("DECLINE_DEFAULT_MODEL must be exponential or hyperbolic, got %q", c.Analysis.DefaultModel)
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
