package job

import (
	"context"
	"log"
	"time"

	"vietfin-market/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const (
	fxRefreshInterval = 6 * time.Hour
	backfillRangeDays = 7
)

type TickerBarRefresher interface {
	Refresh(ctx context.Context) error
}

type RateRefresher interface {
	Refresh(ctx context.Context) error
}

type AssetLister interface {
	List(ctx context.Context) ([]*domain.Asset, error)
}

type CandleFetcher interface {
	FetchDailyCandles(ctx context.Context, symbol string, rangeDays int) ([]domain.Candle, error)
}

type CandleStore interface {
	UpsertCandles(ctx context.Context, candles []domain.Candle) error
}

// MarketWarmer runs the background goroutines that keep the caches and
// the candle history warm so request paths rarely hit a cold store.
type MarketWarmer struct {
	tracer    trace.Tracer
	tickerBar TickerBarRefresher
	fx        RateRefresher
	assets    AssetLister
	candles   CandleFetcher
	store     CandleStore

	tickerInterval   time.Duration
	backfillInterval time.Duration
}

func NewMarketWarmer(
	tracer trace.Tracer,
	tickerBar TickerBarRefresher,
	fx RateRefresher,
	assets AssetLister,
	candles CandleFetcher,
	store CandleStore,
	tickerRefreshSecs, backfillIntervalMins int,
) *MarketWarmer {
	return &MarketWarmer{
		tracer:           tracer,
		tickerBar:        tickerBar,
		fx:               fx,
		assets:           assets,
		candles:          candles,
		store:            store,
		tickerInterval:   time.Duration(tickerRefreshSecs) * time.Second,
		backfillInterval: time.Duration(backfillIntervalMins) * time.Minute,
	}
}

// Start launches the warmer goroutines. Blocks until ctx is cancelled.
func (w *MarketWarmer) Start(ctx context.Context) {
	log.Println("Market warmer starting...")

	// Refresh the ticker bar ahead of its cache TTL so readers never
	// see a cold cache in steady state.
	go w.pollLoop(ctx, "ticker-bar", w.tickerInterval, w.tickerBar.Refresh)

	// USD/VND moves slowly; refresh matches the cache TTL.
	go w.pollLoop(ctx, "fx-rate", fxRefreshInterval, w.fx.Refresh)

	// Backfill needs the database; without it only the caches warm.
	if w.assets != nil && w.store != nil {
		go w.pollBackfill(ctx)
	}

	<-ctx.Done()
	log.Println("Market warmer stopped")
}

func (w *MarketWarmer) pollLoop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	// Run immediately on start
	if err := fn(ctx); err != nil {
		log.Printf("warmer %s initial run error: %v", name, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				log.Printf("warmer %s error: %v", name, err)
			}
		}
	}
}

// pollBackfill round-robins the catalog, one asset per tick, pulling
// recent daily candles for everything that is not tick-fed.
func (w *MarketWarmer) pollBackfill(ctx context.Context) {
	// Stagger behind the ticker-bar refresh
	select {
	case <-ctx.Done():
		return
	case <-time.After(15 * time.Second):
	}

	ticker := time.NewTicker(w.backfillInterval)
	defer ticker.Stop()

	assetIndex := 0
	w.backfillNext(ctx, &assetIndex)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.backfillNext(ctx, &assetIndex)
		}
	}
}

func (w *MarketWarmer) backfillNext(ctx context.Context, assetIndex *int) {
	_, span := w.tracer.Start(ctx, "market-warmer.backfill")
	defer span.End()

	assets, err := w.assets.List(ctx)
	if err != nil {
		log.Printf("backfill: list assets: %v", err)
		return
	}

	targets := backfillTargets(assets)
	if len(targets) == 0 {
		return
	}
	asset := targets[*assetIndex%len(targets)]
	*assetIndex++

	candles, err := w.candles.FetchDailyCandles(ctx, asset.Symbol, backfillRangeDays)
	if err != nil {
		log.Printf("backfill: fetch candles for %s: %v", asset.Symbol, err)
		return
	}
	for i := range candles {
		candles[i].AssetID = asset.ID
	}
	if err := w.store.UpsertCandles(ctx, candles); err != nil {
		log.Printf("backfill: upsert candles for %s: %v", asset.Symbol, err)
		return
	}
	log.Printf("Backfilled %d candles for %s", len(candles), asset.Symbol)
}

// backfillTargets filters the catalog down to assets whose reference
// prices come from OHLCV history. Crypto is tick-fed and disabled
// assets are skipped.
func backfillTargets(assets []*domain.Asset) []*domain.Asset {
	var out []*domain.Asset
	for _, a := range assets {
		if a.Type == domain.AssetTypeCrypto || a.Status == domain.AssetStatusDisabled {
			continue
		}
		out = append(out, a)
	}
	return out
}
