package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("MARKET_TIMEZONE", "")
	t.Setenv("TICKER_REFRESH_SECS", "")
	t.Setenv("TICKER_CRYPTO_SYMBOLS", "")
	t.Setenv("INGEST_ENABLED", "")

	cfg := Load()

	if cfg.RedisURL != "localhost:6379" {
		t.Fatalf("expected default redis url, got %s", cfg.RedisURL)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default addr, got %s", cfg.HTTPAddr)
	}
	if cfg.MarketTimezone != "UTC" {
		t.Fatalf("expected UTC, got %s", cfg.MarketTimezone)
	}
	if cfg.TickerRefreshSecs != 45 {
		t.Fatalf("expected 45s refresh, got %d", cfg.TickerRefreshSecs)
	}
	if len(cfg.TickerCryptoSymbols) == 0 || cfg.TickerCryptoSymbols[0] != "BTCUSDT" {
		t.Fatalf("unexpected crypto symbols: %v", cfg.TickerCryptoSymbols)
	}
	if !cfg.IngestEnabled {
		t.Fatal("ingest should default to enabled")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REDIS_URL", "redis:9999")
	t.Setenv("TICKER_REFRESH_SECS", "10")
	t.Setenv("TICKER_CRYPTO_SYMBOLS", "btcusdt, ethusdt")
	t.Setenv("MARKET_TIMEZONE", "Asia/Ho_Chi_Minh")
	t.Setenv("INGEST_ENABLED", "false")

	cfg := Load()

	if cfg.RedisURL != "redis:9999" {
		t.Fatalf("unexpected redis url: %s", cfg.RedisURL)
	}
	if cfg.TickerRefreshSecs != 10 {
		t.Fatalf("expected 10, got %d", cfg.TickerRefreshSecs)
	}
	if len(cfg.TickerCryptoSymbols) != 2 || cfg.TickerCryptoSymbols[1] != "ETHUSDT" {
		t.Fatalf("unexpected symbols: %v", cfg.TickerCryptoSymbols)
	}
	if cfg.MarketTimezone != "Asia/Ho_Chi_Minh" {
		t.Fatalf("unexpected timezone: %s", cfg.MarketTimezone)
	}
	if cfg.IngestEnabled {
		t.Fatal("expected ingest disabled")
	}
}

func TestLoadIgnoresBadNumbers(t *testing.T) {
	t.Setenv("TICKER_REFRESH_SECS", "not-a-number")
	t.Setenv("BACKFILL_INTERVAL_MINS", "-5")

	cfg := Load()

	if cfg.TickerRefreshSecs != 45 {
		t.Fatalf("expected default on bad value, got %d", cfg.TickerRefreshSecs)
	}
	if cfg.BackfillIntervalMins != 60 {
		t.Fatalf("expected default on negative value, got %d", cfg.BackfillIntervalMins)
	}
}
