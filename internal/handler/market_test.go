package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"vietfin-market/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("handler-test")

type marketServiceStub struct {
	ticker domain.MarketTicker
	assets []*domain.Asset
	err    error
}

func (s *marketServiceStub) GetMarketTicker(ctx context.Context, symbol string) (domain.MarketTicker, error) {
	if s.err != nil {
		return domain.MarketTicker{}, s.err
	}
	return s.ticker, nil
}

func (s *marketServiceStub) ListAssets(ctx context.Context) ([]*domain.Asset, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.assets, nil
}

type tickerBarStub struct {
	quotes []domain.TickerQuote
	err    error
}

func (s *tickerBarStub) GetTickerBar(ctx context.Context) ([]domain.TickerQuote, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.quotes, nil
}

func newTestRouter(market MarketService, bar TickerBarProvider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	New(testTracer, market, bar).RegisterRoutes(router)
	return router
}

func TestGetTickerSuccess(t *testing.T) {
	router := newTestRouter(&marketServiceStub{ticker: domain.MarketTicker{
		Symbol:           "BTCUSDT",
		Price:            121 * 25000,
		Change24h:        11 * 25000,
		ChangePercent24h: 10,
		Positive:         true,
		Currency:         "VND",
		Source:           domain.SourceTick,
	}}, &tickerBarStub{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/market/ticker?symbol=btcusdt", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got domain.MarketTicker
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if got.Symbol != "BTCUSDT" || got.ChangePercent24h != 10 || got.Currency != "VND" {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestGetTickerMissingSymbol(t *testing.T) {
	router := newTestRouter(&marketServiceStub{}, &tickerBarStub{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/market/ticker", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetTickerUnknownSymbol(t *testing.T) {
	router := newTestRouter(&marketServiceStub{err: domain.ErrAssetNotFound}, &tickerBarStub{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/market/ticker?symbol=NOPE", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetTickerNoData(t *testing.T) {
	router := newTestRouter(&marketServiceStub{err: domain.ErrNoData}, &tickerBarStub{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/market/ticker?symbol=AAPL", nil)
	router.ServeHTTP(w, req)

	// Missing history is a 200 with a noData marker, not an error.
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if body["noData"] != true || body["symbol"] != "AAPL" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestGetTickerInternalError(t *testing.T) {
	router := newTestRouter(&marketServiceStub{err: errors.New("db down")}, &tickerBarStub{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/market/ticker?symbol=AAPL", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestGetTickerBar(t *testing.T) {
	router := newTestRouter(&marketServiceStub{}, &tickerBarStub{quotes: []domain.TickerQuote{
		{Symbol: "^GSPC", Price: 5450},
		{Symbol: "BTCUSDT", Price: 97000},
	}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ticker/get-bar", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Tickers []domain.TickerQuote `json:"tickers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if len(body.Tickers) != 2 || body.Tickers[0].Symbol != "^GSPC" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestGetTickerBarUnavailable(t *testing.T) {
	router := newTestRouter(&marketServiceStub{}, &tickerBarStub{err: errors.New("no quotes available")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ticker/get-bar", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestListAssets(t *testing.T) {
	router := newTestRouter(&marketServiceStub{assets: []*domain.Asset{
		{ID: 1, Symbol: "BTCUSDT", Type: domain.AssetTypeCrypto},
	}}, &tickerBarStub{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/market/assets", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
