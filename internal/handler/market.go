package handler

import (
	"errors"
	"net/http"
	"strings"

	"vietfin-market/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetTicker godoc
// @Summary      Get the 24h price change for one asset
// @Description  Resolves the reference price for the asset's market type and returns the change in VND
// @Tags         market
// @Produce      json
// @Param        symbol  query  string  true  "Asset symbol (e.g., BTCUSDT, AAPL, ^VNI)"
// @Success      200  {object}  domain.MarketTicker
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /market/ticker [get]
func (h *Handler) GetTicker(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-ticker")
	defer span.End()

	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing symbol parameter"})
		return
	}
	span.SetAttributes(attribute.String("symbol", symbol))

	ticker, err := h.market.GetMarketTicker(ctx, symbol)
	switch {
	case errors.Is(err, domain.ErrAssetNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown symbol: " + symbol})
	case errors.Is(err, domain.ErrNoData):
		// Known asset without resolvable history is not an error for
		// the caller: the UI renders a placeholder row.
		c.JSON(http.StatusOK, gin.H{"symbol": symbol, "noData": true})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, ticker)
	}
}

// ListAssets godoc
// @Summary      List tracked assets
// @Description  Returns the asset catalog with type, exchange, and status
// @Tags         market
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /market/assets [get]
func (h *Handler) ListAssets(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-assets")
	defer span.End()

	assets, err := h.market.ListAssets(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"assets": assets})
}

// GetTickerBar godoc
// @Summary      Get the aggregated ticker bar
// @Description  Returns merged quotes from all configured providers, cached for 60s
// @Tags         market
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Router       /ticker/get-bar [get]
func (h *Handler) GetTickerBar(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-ticker-bar")
	defer span.End()

	quotes, err := h.tickerBar.GetTickerBar(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tickers": quotes})
}
