package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"
)

func newTestAlphaVantage(fn roundTripFunc) *AlphaVantageProvider {
	p := NewAlphaVantageProvider(testTracer, "demo")
	p.baseURL = "http://example"
	p.client = &http.Client{Transport: fn}
	p.limiter = NewRateLimiter(10, time.Millisecond)
	return p
}

func TestAlphaVantageFetchQuote(t *testing.T) {
	t.Parallel()

	p := newTestAlphaVantage(func(req *http.Request) (*http.Response, error) {
		if req.URL.Query().Get("function") != "GLOBAL_QUOTE" {
			t.Fatalf("unexpected function: %s", req.URL.RawQuery)
		}
		body := map[string]any{
			"Global Quote": map[string]string{
				"01. symbol":         "GC=F",
				"05. price":          "2320.40",
				"08. previous close": "2300.10",
				"09. change":         "20.30",
				"10. change percent": "0.8826%",
			},
		}
		data, _ := json.Marshal(body)
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(data)),
			Header:     make(http.Header),
		}, nil
	})

	quote, err := p.FetchQuote(context.Background(), "GC=F")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Price != 2320.40 || quote.ChangePercent != 0.8826 {
		t.Fatalf("unexpected quote: %+v", quote)
	}
	if quote.Name != "Gold Futures" {
		t.Fatalf("unexpected name: %s", quote.Name)
	}
}

func TestAlphaVantageThrottleNote(t *testing.T) {
	t.Parallel()

	p := newTestAlphaVantage(func(req *http.Request) (*http.Response, error) {
		data, _ := json.Marshal(map[string]string{
			"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute.",
		})
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(data)),
			Header:     make(http.Header),
		}, nil
	})

	if _, err := p.FetchQuote(context.Background(), "GC=F"); err == nil {
		t.Fatal("expected error when throttled")
	}
}

func TestAlphaVantageEmptyQuote(t *testing.T) {
	t.Parallel()

	p := newTestAlphaVantage(func(req *http.Request) (*http.Response, error) {
		data, _ := json.Marshal(map[string]any{"Global Quote": map[string]string{}})
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(data)),
			Header:     make(http.Header),
		}, nil
	})

	if _, err := p.FetchQuote(context.Background(), "CL=F"); err == nil {
		t.Fatal("expected error for empty quote")
	}
}

func TestParsePercent(t *testing.T) {
	t.Parallel()

	tests := map[string]float64{
		"0.4600%":  0.46,
		"-1.2300%": -1.23,
		" 2.5% ":   2.5,
	}
	for in, want := range tests {
		got, err := parsePercent(in)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("%q: expected %f, got %f", in, want, got)
		}
	}
	if _, err := parsePercent(""); err == nil {
		t.Fatal("expected error for empty value")
	}
}
