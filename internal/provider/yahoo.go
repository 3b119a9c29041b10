package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"vietfin-market/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooProvider fetches per-symbol quotes from the Yahoo Finance chart
// API. It handles the exchange-qualified symbols the asset catalog
// uses (^GSPC, EURUSD=X, GC=F) and returns previous-close metadata, so
// the change percent is computed here rather than taken from the
// provider.
type YahooProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewYahooProvider(tracer trace.Tracer) *YahooProvider {
	return &YahooProvider{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: yahooBaseURL,
		tracer:  tracer,
	}
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
				ShortName          string  `json:"shortName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchQuote fetches the latest quote for one symbol. The change
// percent is (price − previousClose) / previousClose × 100.
func (p *YahooProvider) FetchQuote(ctx context.Context, symbol string) (*domain.TickerQuote, error) {
	_, span := p.tracer.Start(ctx, "yahoo.fetch-quote")
	defer span.End()

	raw, err := p.fetchChart(ctx, symbol, "1d", "1d")
	if err != nil {
		return nil, err
	}

	meta := raw.Chart.Result[0].Meta
	if meta.ChartPreviousClose <= 0 {
		return nil, fmt.Errorf("yahoo quote for %s: missing previous close", symbol)
	}

	pct := (meta.RegularMarketPrice - meta.ChartPreviousClose) / meta.ChartPreviousClose * 100
	name := meta.ShortName
	if name == "" {
		name = domain.SymbolName(symbol)
	}

	return &domain.TickerQuote{
		Symbol:        symbol,
		Name:          name,
		Price:         meta.RegularMarketPrice,
		ChangePercent: pct,
		Positive:      pct >= 0,
	}, nil
}

// FetchDailyCandles fetches up to rangeDays of daily OHLCV buckets for
// one symbol. AssetID is left unset; the caller owns the mapping.
func (p *YahooProvider) FetchDailyCandles(ctx context.Context, symbol string, rangeDays int) ([]domain.Candle, error) {
	_, span := p.tracer.Start(ctx, "yahoo.fetch-daily-candles")
	defer span.End()

	raw, err := p.fetchChart(ctx, symbol, fmt.Sprintf("%dd", rangeDays), "1d")
	if err != nil {
		return nil, err
	}

	result := raw.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo chart for %s: no quote series", symbol)
	}
	quote := result.Indicators.Quote[0]

	candles := make([]domain.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == 0 {
			continue
		}
		candles = append(candles, domain.Candle{
			OpenTime: time.Unix(ts, 0).UTC(),
			Open:     at(quote.Open, i),
			High:     at(quote.High, i),
			Low:      at(quote.Low, i),
			Close:    quote.Close[i],
			Volume:   at(quote.Volume, i),
		})
	}
	return candles, nil
}

func (p *YahooProvider) fetchChart(ctx context.Context, symbol, chartRange, interval string) (*yahooChartResponse, error) {
	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s",
		p.baseURL, url.PathEscape(symbol), chartRange, interval)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "vietfin-market/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch yahoo chart for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("yahoo API error %d for %s: %s", resp.StatusCode, symbol, string(body))
	}

	var raw yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse yahoo chart for %s: %w", symbol, err)
	}
	if raw.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart error for %s: %s", symbol, raw.Chart.Error.Description)
	}
	if len(raw.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo chart for %s: empty result", symbol)
	}
	return &raw, nil
}

func at(vals []float64, i int) float64 {
	if i < len(vals) {
		return vals[i]
	}
	return 0
}
