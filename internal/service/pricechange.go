package service

import (
	"context"
	"fmt"

	"vietfin-market/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type AssetStore interface {
	GetBySymbol(ctx context.Context, symbol string) (*domain.Asset, error)
	List(ctx context.Context) ([]*domain.Asset, error)
}

type PriceResolver interface {
	Resolve(ctx context.Context, asset *domain.Asset) (domain.PricePoint, error)
}

type Converter interface {
	Convert(ctx context.Context, price float64, exchangeCode string) float64
}

// PriceChangeService ties the catalog, the resolver, and the currency
// converter together into the ticker responses the API serves.
type PriceChangeService struct {
	tracer    trace.Tracer
	assets    AssetStore
	resolver  PriceResolver
	converter Converter
}

func NewPriceChangeService(tracer trace.Tracer, assets AssetStore, resolver PriceResolver, converter Converter) *PriceChangeService {
	return &PriceChangeService{
		tracer:    tracer,
		assets:    assets,
		resolver:  resolver,
		converter: converter,
	}
}

// GetPriceChange resolves the 24h change for a symbol in the asset's
// native currency.
func (s *PriceChangeService) GetPriceChange(ctx context.Context, symbol string) (domain.PriceChange, error) {
	_, span := s.tracer.Start(ctx, "price-change.get")
	defer span.End()

	asset, err := s.assets.GetBySymbol(ctx, symbol)
	if err != nil {
		return domain.PriceChange{}, err
	}

	point, err := s.resolver.Resolve(ctx, asset)
	if err != nil {
		return domain.PriceChange{}, fmt.Errorf("resolve %s: %w", symbol, err)
	}
	return domain.NewPriceChange(point)
}

// GetMarketTicker resolves the 24h change for a symbol and converts
// the prices to VND. The change percent is computed on the native
// prices; conversion cannot alter it.
func (s *PriceChangeService) GetMarketTicker(ctx context.Context, symbol string) (domain.MarketTicker, error) {
	_, span := s.tracer.Start(ctx, "price-change.get-market-ticker")
	defer span.End()

	asset, err := s.assets.GetBySymbol(ctx, symbol)
	if err != nil {
		return domain.MarketTicker{}, err
	}

	point, err := s.resolver.Resolve(ctx, asset)
	if err != nil {
		return domain.MarketTicker{}, fmt.Errorf("resolve %s: %w", symbol, err)
	}
	change, err := domain.NewPriceChange(point)
	if err != nil {
		return domain.MarketTicker{}, err
	}

	current := s.converter.Convert(ctx, change.CurrentPrice, asset.Exchange)
	previous := s.converter.Convert(ctx, change.PreviousPrice, asset.Exchange)

	return domain.MarketTicker{
		Symbol:           asset.Symbol,
		Price:            current,
		Change24h:        current - previous,
		ChangePercent24h: change.ChangePercent,
		Positive:         change.Positive,
		Currency:         "VND",
		Source:           change.Source,
	}, nil
}

// ListAssets returns the tracked asset catalog.
func (s *PriceChangeService) ListAssets(ctx context.Context) ([]*domain.Asset, error) {
	_, span := s.tracer.Start(ctx, "price-change.list-assets")
	defer span.End()

	return s.assets.List(ctx)
}
