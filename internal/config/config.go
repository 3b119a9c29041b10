package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DatabaseURL string
	RedisURL    string
	HTTPAddr    string
	APIKey      string

	MarketTimezone string

	AlphaVantageKey string

	TickerRefreshSecs   int
	TickerCryptoSymbols []string
	TickerEquitySymbols []string
	TickerFXSymbols     []string

	BackfillIntervalMins int
	IngestEnabled        bool
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		APIKey:          os.Getenv("API_KEY"),
		AlphaVantageKey: os.Getenv("ALPHA_VANTAGE_KEY"),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.AlphaVantageKey == "" {
		log.Println("Warning: ALPHA_VANTAGE_KEY not set, equity quote fallback disabled")
	}

	cfg.HTTPAddr = strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.MarketTimezone = strings.TrimSpace(os.Getenv("MARKET_TIMEZONE"))
	if cfg.MarketTimezone == "" {
		cfg.MarketTimezone = "UTC"
	}

	cfg.TickerRefreshSecs = 45
	if v := os.Getenv("TICKER_REFRESH_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TickerRefreshSecs = n
		}
	}

	cfg.TickerCryptoSymbols = splitSymbols(os.Getenv("TICKER_CRYPTO_SYMBOLS"))
	if len(cfg.TickerCryptoSymbols) == 0 {
		cfg.TickerCryptoSymbols = []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT"}
	}

	cfg.TickerEquitySymbols = splitSymbols(os.Getenv("TICKER_EQUITY_SYMBOLS"))
	if len(cfg.TickerEquitySymbols) == 0 {
		cfg.TickerEquitySymbols = []string{"^GSPC", "^DJI", "^IXIC", "^VNI", "AAPL", "MSFT", "GOOGL", "NVDA"}
	}

	cfg.TickerFXSymbols = splitSymbols(os.Getenv("TICKER_FX_SYMBOLS"))
	if len(cfg.TickerFXSymbols) == 0 {
		cfg.TickerFXSymbols = []string{"EURUSD=X", "USDJPY=X", "GC=F", "CL=F"}
	}

	cfg.BackfillIntervalMins = 60
	if v := strings.TrimSpace(os.Getenv("BACKFILL_INTERVAL_MINS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BackfillIntervalMins = n
		}
	}

	cfg.IngestEnabled = !strings.EqualFold(strings.TrimSpace(os.Getenv("INGEST_ENABLED")), "false")

	return cfg
}

func splitSymbols(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			symbols = append(symbols, strings.ToUpper(p))
		}
	}
	return symbols
}
