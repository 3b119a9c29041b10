package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vietfin-market/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const alphaVantageBaseURL = "https://www.alphavantage.co/query"

// AlphaVantageProvider fetches per-symbol quotes via the GLOBAL_QUOTE
// endpoint, which carries its own change-percent field. GLOBAL_QUOTE
// serves plain equity tickers only, so it backs up the equity group of
// the ticker bar. The free tier allows 5 calls per minute.
type AlphaVantageProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
	limiter *RateLimiter
}

func NewAlphaVantageProvider(tracer trace.Tracer, apiKey string) *AlphaVantageProvider {
	return &AlphaVantageProvider{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: alphaVantageBaseURL,
		apiKey:  apiKey,
		tracer:  tracer,
		limiter: NewRateLimiter(5, 12*time.Second),
	}
}

// The numbered keys are Alpha Vantage's actual response shape.
type alphaVantageQuote struct {
	GlobalQuote struct {
		Symbol        string `json:"01. symbol"`
		Price         string `json:"05. price"`
		PreviousClose string `json:"08. previous close"`
		Change        string `json:"09. change"`
		ChangePercent string `json:"10. change percent"`
	} `json:"Global Quote"`
	Note string `json:"Note"`
}

// FetchQuote fetches the latest quote for one symbol, using the
// provider's own percent-change field.
func (p *AlphaVantageProvider) FetchQuote(ctx context.Context, symbol string) (*domain.TickerQuote, error) {
	_, span := p.tracer.Start(ctx, "alphavantage.fetch-quote")
	defer span.End()

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := fmt.Sprintf("%s?function=GLOBAL_QUOTE&symbol=%s&apikey=%s",
		p.baseURL, url.QueryEscape(symbol), url.QueryEscape(p.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch alphavantage quote for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("alphavantage API error %d for %s: %s", resp.StatusCode, symbol, string(body))
	}

	var raw alphaVantageQuote
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse alphavantage quote for %s: %w", symbol, err)
	}
	if raw.Note != "" {
		return nil, fmt.Errorf("alphavantage throttled for %s: %s", symbol, raw.Note)
	}
	if raw.GlobalQuote.Price == "" {
		return nil, fmt.Errorf("alphavantage quote for %s: empty response", symbol)
	}

	price, err := strconv.ParseFloat(raw.GlobalQuote.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("alphavantage price for %s: %w", symbol, err)
	}
	pct, err := parsePercent(raw.GlobalQuote.ChangePercent)
	if err != nil {
		return nil, fmt.Errorf("alphavantage change for %s: %w", symbol, err)
	}

	return &domain.TickerQuote{
		Symbol:        symbol,
		Name:          domain.SymbolName(symbol),
		Price:         price,
		ChangePercent: pct,
		Positive:      pct >= 0,
	}, nil
}

// parsePercent parses Alpha Vantage's "0.4600%" change-percent format.
func parsePercent(v string) (float64, error) {
	v = strings.TrimSuffix(strings.TrimSpace(v), "%")
	if v == "" {
		return 0, fmt.Errorf("empty percent value")
	}
	return strconv.ParseFloat(v, 64)
}
