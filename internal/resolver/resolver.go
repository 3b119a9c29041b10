package resolver

import (
	"context"
	"fmt"
	"time"

	"vietfin-market/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// cryptoWindow is the hard lookback for the crypto reference price. A
// tick older than this is never substituted.
const cryptoWindow = 24 * time.Hour

// PriceStore is the read-only slice of the price repository the resolver
// needs. Lookups return nil (not an error) when no row qualifies.
type PriceStore interface {
	LatestTick(ctx context.Context, assetID int64) (*domain.PriceTick, error)
	EarliestTickSince(ctx context.Context, assetID int64, since time.Time) (*domain.PriceTick, error)
	LatestCandle(ctx context.Context, assetID int64) (*domain.Candle, error)
	LatestCandleBefore(ctx context.Context, assetID int64, before time.Time) (*domain.Candle, error)
	FirstCandleBetween(ctx context.Context, assetID int64, from, to time.Time) (*domain.Candle, error)
}

// Resolver selects the current and reference price for an asset
// according to its asset type. Each market keeps its own window rule;
// the differences between them are deliberate conventions, not
// candidates for unification.
type Resolver struct {
	tracer trace.Tracer
	store  PriceStore
	loc    *time.Location
	now    func() time.Time
}

func New(tracer trace.Tracer, store PriceStore, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{
		tracer: tracer,
		store:  store,
		loc:    loc,
		now:    time.Now,
	}
}

// Resolve returns the current/previous price pair for the asset in its
// native currency. domain.ErrNoData when the stored series cannot
// satisfy the asset type's window; domain.ErrUnknownAssetType for a
// type with no formula.
func (r *Resolver) Resolve(ctx context.Context, asset *domain.Asset) (domain.PricePoint, error) {
	ctx, span := r.tracer.Start(ctx, "resolver.resolve")
	defer span.End()
	span.SetAttributes(
		attribute.String("symbol", asset.Symbol),
		attribute.String("asset_type", string(asset.Type)),
	)

	var (
		point domain.PricePoint
		err   error
	)
	switch asset.Type {
	case domain.AssetTypeCrypto:
		point, err = r.resolveCrypto(ctx, asset.ID)
	case domain.AssetTypeStock, domain.AssetTypeIndex:
		point, err = r.resolveDailyClose(ctx, asset.ID, true)
	case domain.AssetTypeForex:
		point, err = r.resolveForex(ctx, asset.ID)
	case domain.AssetTypeCommodity:
		point, err = r.resolveDailyClose(ctx, asset.ID, false)
	default:
		return domain.PricePoint{}, fmt.Errorf("%w: %q (asset %s)", domain.ErrUnknownAssetType, asset.Type, asset.Symbol)
	}
	if err != nil {
		return domain.PricePoint{}, err
	}

	if point.Previous <= 0 {
		return domain.PricePoint{}, domain.ErrNoData
	}
	return point, nil
}

// resolveCrypto: current = latest tick, previous = the tick nearest the
// start of the trailing 24h window (the oldest tick inside it). The
// window is hard: ticks older than 24h are never substituted, even when
// they are the nearest available.
func (r *Resolver) resolveCrypto(ctx context.Context, assetID int64) (domain.PricePoint, error) {
	current, err := r.store.LatestTick(ctx, assetID)
	if err != nil {
		return domain.PricePoint{}, err
	}
	if current == nil {
		return domain.PricePoint{}, domain.ErrNoData
	}

	previous, err := r.store.EarliestTickSince(ctx, assetID, r.now().Add(-cryptoWindow))
	if err != nil {
		return domain.PricePoint{}, err
	}
	if previous == nil {
		return domain.PricePoint{}, domain.ErrNoData
	}

	return domain.PricePoint{
		Current:  current.Price,
		Previous: previous.Price,
		Source:   domain.SourceTick,
	}, nil
}

// resolveDailyClose covers stock, index, and commodity: previous is the
// last close strictly before the start of the current calendar day
// (previous session's close / settlement), regardless of where the
// current price came from. Stocks and indices may source the current
// price from a live tick; commodities read candles only.
func (r *Resolver) resolveDailyClose(ctx context.Context, assetID int64, allowTick bool) (domain.PricePoint, error) {
	var (
		current float64
		source  domain.PriceSource
	)

	if allowTick {
		tick, err := r.store.LatestTick(ctx, assetID)
		if err != nil {
			return domain.PricePoint{}, err
		}
		if tick != nil {
			current = tick.Price
			source = domain.SourceTick
		}
	}
	if source == "" {
		candle, err := r.store.LatestCandle(ctx, assetID)
		if err != nil {
			return domain.PricePoint{}, err
		}
		if candle == nil {
			return domain.PricePoint{}, domain.ErrNoData
		}
		current = candle.Close
		source = domain.SourceOHLCV
	}

	previous, err := r.store.LatestCandleBefore(ctx, assetID, r.startOfDay())
	if err != nil {
		return domain.PricePoint{}, err
	}
	if previous == nil {
		return domain.PricePoint{}, domain.ErrNoData
	}

	return domain.PricePoint{
		Current:  current,
		Previous: previous.Close,
		Source:   source,
	}, nil
}

// resolveForex: current = latest close, previous = the open of today's
// first bucket. Forex trades near-continuously, so when today has no
// bucket (weekend/holiday) the reference degrades to the latest
// session's open instead of failing.
func (r *Resolver) resolveForex(ctx context.Context, assetID int64) (domain.PricePoint, error) {
	latest, err := r.store.LatestCandle(ctx, assetID)
	if err != nil {
		return domain.PricePoint{}, err
	}
	if latest == nil {
		return domain.PricePoint{}, domain.ErrNoData
	}

	dayStart := r.startOfDay()
	today, err := r.store.FirstCandleBetween(ctx, assetID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return domain.PricePoint{}, err
	}

	previous := latest.Open
	if today != nil {
		previous = today.Open
	}

	return domain.PricePoint{
		Current:  latest.Close,
		Previous: previous,
		Source:   domain.SourceOHLCV,
	}, nil
}

// startOfDay returns midnight of the current calendar day in the
// configured market timezone.
func (r *Resolver) startOfDay() time.Time {
	now := r.now().In(r.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
}
