package domain

import (
	"errors"
	"math"
	"time"
)

// AssetType classifies an instrument and selects which reference-price
// formula applies to it. Immutable once an asset is created.
type AssetType string

const (
	AssetTypeStock     AssetType = "stock"
	AssetTypeCrypto    AssetType = "crypto"
	AssetTypeIndex     AssetType = "index"
	AssetTypeForex     AssetType = "forex"
	AssetTypeCommodity AssetType = "commodity"
)

func (t AssetType) IsValid() bool {
	switch t {
	case AssetTypeStock, AssetTypeCrypto, AssetTypeIndex, AssetTypeForex, AssetTypeCommodity:
		return true
	}
	return false
}

type AssetStatus string

const (
	AssetStatusOK       AssetStatus = "OK"
	AssetStatusDegraded AssetStatus = "DEGRADED"
	AssetStatusDisabled AssetStatus = "DISABLED"
)

// Asset is an instrument identity record. Symbols are exchange-qualified
// and globally unique (AAPL, BTCUSDT, ^GSPC, EURUSD=X, GC=F).
type Asset struct {
	ID        int64       `json:"id"`
	Symbol    string      `json:"symbol"`
	Name      string      `json:"name"`
	Exchange  string      `json:"exchange"`
	Type      AssetType   `json:"asset_type"`
	Status    AssetStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

var (
	// ErrAssetNotFound means the requested symbol or id has no asset row.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrNoData means the stored price series cannot satisfy the asset
	// type's required window. Recoverable: callers render "N/A".
	ErrNoData = errors.New("no price data available")

	// ErrUnknownAssetType indicates a data bug: an asset row carries a
	// type the resolver has no formula for. Never swallowed.
	ErrUnknownAssetType = errors.New("unknown asset type")
)

// PriceSource records where the current price of a PricePoint came from.
type PriceSource string

const (
	SourceTick  PriceSource = "tick"
	SourceOHLCV PriceSource = "ohlcv"
)

// PricePoint is a resolved pair of prices in the asset's native currency.
type PricePoint struct {
	Current  float64
	Previous float64
	Source   PriceSource
}

// PriceChange is the final output of the price-change calculator.
type PriceChange struct {
	CurrentPrice  float64     `json:"current_price"`
	PreviousPrice float64     `json:"previous_price"`
	ChangePercent float64     `json:"change_percent"`
	Positive      bool        `json:"positive"`
	Source        PriceSource `json:"source"`
}

// NewPriceChange applies the shared post-processing step to a resolved
// point: change% = (current − previous) / previous × 100. A previous
// price of zero (or any value that would produce NaN/Inf) is a
// resolution failure, not a numeric exception.
func NewPriceChange(point PricePoint) (PriceChange, error) {
	if point.Previous <= 0 {
		return PriceChange{}, ErrNoData
	}
	pct := (point.Current - point.Previous) / point.Previous * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return PriceChange{}, ErrNoData
	}
	return PriceChange{
		CurrentPrice:  point.Current,
		PreviousPrice: point.Previous,
		ChangePercent: pct,
		Positive:      pct >= 0,
		Source:        point.Source,
	}, nil
}

// MarketTicker is the display form of a price change: prices converted
// to VND, 24h delta precomputed.
type MarketTicker struct {
	Symbol           string      `json:"symbol"`
	Price            float64     `json:"price"`
	Change24h        float64     `json:"change24h"`
	ChangePercent24h float64     `json:"changePercent24h"`
	Positive         bool        `json:"positive"`
	Currency         string      `json:"currency"`
	Source           PriceSource `json:"source"`
}

// TickerQuote is one normalized entry of the ticker bar.
type TickerQuote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"changePercent"`
	Positive      bool    `json:"positive"`
}

// SymbolNames maps ticker-bar symbols to display names for providers
// that return no name metadata of their own.
var SymbolNames = map[string]string{
	"BTCUSDT":  "Bitcoin",
	"ETHUSDT":  "Ethereum",
	"BNBUSDT":  "BNB",
	"SOLUSDT":  "Solana",
	"^GSPC":    "S&P 500",
	"^DJI":     "Dow Jones",
	"^IXIC":    "NASDAQ Composite",
	"^VNI":     "VN-Index",
	"AAPL":     "Apple",
	"MSFT":     "Microsoft",
	"GOOGL":    "Alphabet",
	"NVDA":     "NVIDIA",
	"EURUSD=X": "EUR/USD",
	"USDJPY=X": "USD/JPY",
	"GC=F":     "Gold Futures",
	"CL=F":     "Crude Oil WTI",
}

// DefaultAssets is the catalog seeded on startup. UpsertAssets never
// rewrites asset_type, so editing a type here does not retype an
// existing row.
var DefaultAssets = []Asset{
	{Symbol: "BTCUSDT", Name: "Bitcoin", Exchange: "BINANCE", Type: AssetTypeCrypto, Status: AssetStatusOK},
	{Symbol: "ETHUSDT", Name: "Ethereum", Exchange: "BINANCE", Type: AssetTypeCrypto, Status: AssetStatusOK},
	{Symbol: "BNBUSDT", Name: "BNB", Exchange: "BINANCE", Type: AssetTypeCrypto, Status: AssetStatusOK},
	{Symbol: "SOLUSDT", Name: "Solana", Exchange: "BINANCE", Type: AssetTypeCrypto, Status: AssetStatusOK},
	{Symbol: "AAPL", Name: "Apple", Exchange: "NASDAQ", Type: AssetTypeStock, Status: AssetStatusOK},
	{Symbol: "MSFT", Name: "Microsoft", Exchange: "NASDAQ", Type: AssetTypeStock, Status: AssetStatusOK},
	{Symbol: "GOOGL", Name: "Alphabet", Exchange: "NASDAQ", Type: AssetTypeStock, Status: AssetStatusOK},
	{Symbol: "NVDA", Name: "NVIDIA", Exchange: "NASDAQ", Type: AssetTypeStock, Status: AssetStatusOK},
	{Symbol: "VNM", Name: "Vinamilk", Exchange: "HOSE", Type: AssetTypeStock, Status: AssetStatusOK},
	{Symbol: "FPT", Name: "FPT Corporation", Exchange: "HOSE", Type: AssetTypeStock, Status: AssetStatusOK},
	{Symbol: "^GSPC", Name: "S&P 500", Exchange: "NYSE", Type: AssetTypeIndex, Status: AssetStatusOK},
	{Symbol: "^DJI", Name: "Dow Jones", Exchange: "NYSE", Type: AssetTypeIndex, Status: AssetStatusOK},
	{Symbol: "^IXIC", Name: "NASDAQ Composite", Exchange: "NASDAQ", Type: AssetTypeIndex, Status: AssetStatusOK},
	{Symbol: "^VNI", Name: "VN-Index", Exchange: "HOSE", Type: AssetTypeIndex, Status: AssetStatusOK},
	{Symbol: "EURUSD=X", Name: "EUR/USD", Exchange: "FOREX", Type: AssetTypeForex, Status: AssetStatusOK},
	{Symbol: "USDJPY=X", Name: "USD/JPY", Exchange: "FOREX", Type: AssetTypeForex, Status: AssetStatusOK},
	{Symbol: "GC=F", Name: "Gold Futures", Exchange: "COMEX", Type: AssetTypeCommodity, Status: AssetStatusOK},
	{Symbol: "CL=F", Name: "Crude Oil WTI", Exchange: "NYMEX", Type: AssetTypeCommodity, Status: AssetStatusOK},
}

// SymbolName returns the display name for a symbol, falling back to the
// symbol itself.
func SymbolName(symbol string) string {
	if name, ok := SymbolNames[symbol]; ok {
		return name
	}
	return symbol
}

// SymbolExchange returns the listing exchange for a catalog symbol, or
// "" for symbols outside the default catalog.
func SymbolExchange(symbol string) string {
	for _, a := range DefaultAssets {
		if a.Symbol == symbol {
			return a.Exchange
		}
	}
	return ""
}
