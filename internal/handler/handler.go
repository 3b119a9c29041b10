package handler

import (
	"context"

	"vietfin-market/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type MarketService interface {
	GetMarketTicker(ctx context.Context, symbol string) (domain.MarketTicker, error)
	ListAssets(ctx context.Context) ([]*domain.Asset, error)
}

type TickerBarProvider interface {
	GetTickerBar(ctx context.Context) ([]domain.TickerQuote, error)
}

type Handler struct {
	tracer    trace.Tracer
	market    MarketService
	tickerBar TickerBarProvider
}

func New(tracer trace.Tracer, market MarketService, tickerBar TickerBarProvider) *Handler {
	return &Handler{
		tracer:    tracer,
		market:    market,
		tickerBar: tickerBar,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/market/ticker", h.GetTicker)
	r.GET("/market/assets", h.ListAssets)
	r.GET("/ticker/get-bar", h.GetTickerBar)
}
