package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const exchangeRateBaseURL = "https://open.er-api.com/v6"

// ExchangeRateProvider fetches USD-based FX rates from the open
// exchange-rate API.
type ExchangeRateProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewExchangeRateProvider(tracer trace.Tracer) *ExchangeRateProvider {
	return &ExchangeRateProvider{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: exchangeRateBaseURL,
		tracer:  tracer,
	}
}

// FetchUSDVND returns the current USD→VND multiplier.
func (p *ExchangeRateProvider) FetchUSDVND(ctx context.Context) (float64, error) {
	_, span := p.tracer.Start(ctx, "exchangerate.fetch-usd-vnd")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/latest/USD", nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch exchange rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("exchange rate API error %d: %s", resp.StatusCode, string(body))
	}

	var raw struct {
		Result string             `json:"result"`
		Rates  map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return 0, fmt.Errorf("parse exchange rate: %w", err)
	}
	if raw.Result != "success" {
		return 0, fmt.Errorf("exchange rate API result: %s", raw.Result)
	}

	rate, ok := raw.Rates["VND"]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("exchange rate response missing VND")
	}
	return rate, nil
}
