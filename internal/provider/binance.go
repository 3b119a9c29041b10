package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"vietfin-market/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const binanceBaseURL = "https://api.binance.com"

// BinanceProvider fetches crypto quotes from the Binance public REST
// API. The 24hr ticker endpoint covers all requested symbols in a
// single request, so a failure here fails the whole batch.
type BinanceProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewBinanceProvider(tracer trace.Tracer) *BinanceProvider {
	return &BinanceProvider{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: binanceBaseURL,
		tracer:  tracer,
	}
}

type binanceTicker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
}

// FetchQuotes fetches 24hr stats for all symbols in one request and
// maps them to normalized ticker quotes, preserving the requested
// symbol order.
func (p *BinanceProvider) FetchQuotes(ctx context.Context, symbols []string) ([]domain.TickerQuote, error) {
	_, span := p.tracer.Start(ctx, "binance.fetch-quotes")
	defer span.End()

	if len(symbols) == 0 {
		return nil, nil
	}

	list, err := json.Marshal(symbols)
	if err != nil {
		return nil, err
	}
	reqURL := fmt.Sprintf("%s/api/v3/ticker/24hr?symbols=%s", p.baseURL, url.QueryEscape(string(list)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch binance quotes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("binance API error %d: %s", resp.StatusCode, string(body))
	}

	var raw []binanceTicker
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse binance quotes: %w", err)
	}

	bySymbol := make(map[string]binanceTicker, len(raw))
	for _, t := range raw {
		bySymbol[t.Symbol] = t
	}

	quotes := make([]domain.TickerQuote, 0, len(symbols))
	for _, symbol := range symbols {
		t, ok := bySymbol[symbol]
		if !ok {
			return nil, fmt.Errorf("binance response missing symbol %s", symbol)
		}
		price, err := strconv.ParseFloat(t.LastPrice, 64)
		if err != nil {
			return nil, fmt.Errorf("binance price for %s: %w", symbol, err)
		}
		pct, err := strconv.ParseFloat(t.PriceChangePercent, 64)
		if err != nil {
			return nil, fmt.Errorf("binance change for %s: %w", symbol, err)
		}
		quotes = append(quotes, domain.TickerQuote{
			Symbol:        symbol,
			Name:          domain.SymbolName(symbol),
			Price:         price,
			ChangePercent: pct,
			Positive:      pct >= 0,
		})
	}

	return quotes, nil
}
