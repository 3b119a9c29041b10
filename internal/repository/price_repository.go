package repository

import (
	"context"
	"errors"
	"time"

	"vietfin-market/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

const createPriceTables = `
CREATE TABLE IF NOT EXISTS price_ticks (
    asset_id    BIGINT      NOT NULL,
    price       NUMERIC     NOT NULL,
    ts          TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_price_ticks_asset_ts
    ON price_ticks (asset_id, ts DESC);

CREATE TABLE IF NOT EXISTS price_ohlcv (
    asset_id    BIGINT      NOT NULL,
    open_time   TIMESTAMPTZ NOT NULL,
    open        NUMERIC     NOT NULL,
    high        NUMERIC     NOT NULL,
    low         NUMERIC     NOT NULL,
    close       NUMERIC     NOT NULL,
    volume      NUMERIC     NOT NULL,
    PRIMARY KEY (asset_id, open_time)
);

CREATE INDEX IF NOT EXISTS idx_price_ohlcv_asset_time
    ON price_ohlcv (asset_id, open_time DESC);
`

// PriceRepository reads and writes the stored price series. The resolver
// only ever reads; writes come from the ingestion paths.
type PriceRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewPriceRepository(pool PgxPool, tracer trace.Tracer) *PriceRepository {
	return &PriceRepository{pool: pool, tracer: tracer}
}

func (r *PriceRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "price-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createPriceTables)
	return err
}

func (r *PriceRepository) InsertTicks(ctx context.Context, ticks []domain.PriceTick) error {
	if len(ticks) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "price-repo.insert-ticks")
	defer span.End()

	batch := &pgx.Batch{}
	for _, t := range ticks {
		batch.Queue(
			`INSERT INTO price_ticks (asset_id, price, ts) VALUES ($1, $2, $3)`,
			t.AssetID, t.Price, t.Time,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range ticks {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *PriceRepository) UpsertCandles(ctx context.Context, candles []domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "price-repo.upsert-candles")
	defer span.End()

	batch := &pgx.Batch{}
	for _, c := range candles {
		batch.Queue(
			`INSERT INTO price_ohlcv (asset_id, open_time, open, high, low, close, volume)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (asset_id, open_time) DO UPDATE SET
			     open = EXCLUDED.open,
			     high = EXCLUDED.high,
			     low = EXCLUDED.low,
			     close = EXCLUDED.close,
			     volume = EXCLUDED.volume`,
			c.AssetID, c.OpenTime, c.Open, c.High, c.Low, c.Close, c.Volume,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range candles {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LatestTick returns the most recent tick for an asset, or nil when the
// series is empty.
func (r *PriceRepository) LatestTick(ctx context.Context, assetID int64) (*domain.PriceTick, error) {
	_, span := r.tracer.Start(ctx, "price-repo.latest-tick")
	defer span.End()

	t := &domain.PriceTick{}
	err := r.pool.QueryRow(ctx,
		`SELECT asset_id, price, ts FROM price_ticks
		 WHERE asset_id = $1 ORDER BY ts DESC LIMIT 1`,
		assetID,
	).Scan(&t.AssetID, &t.Price, &t.Time)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// EarliestTickSince returns the oldest tick with ts >= since, or nil
// when none qualifies.
func (r *PriceRepository) EarliestTickSince(ctx context.Context, assetID int64, since time.Time) (*domain.PriceTick, error) {
	_, span := r.tracer.Start(ctx, "price-repo.earliest-tick-since")
	defer span.End()

	t := &domain.PriceTick{}
	err := r.pool.QueryRow(ctx,
		`SELECT asset_id, price, ts FROM price_ticks
		 WHERE asset_id = $1 AND ts >= $2 ORDER BY ts ASC LIMIT 1`,
		assetID, since,
	).Scan(&t.AssetID, &t.Price, &t.Time)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// LatestCandle returns the most recent OHLCV bucket, or nil when the
// series is empty.
func (r *PriceRepository) LatestCandle(ctx context.Context, assetID int64) (*domain.Candle, error) {
	_, span := r.tracer.Start(ctx, "price-repo.latest-candle")
	defer span.End()

	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT asset_id, open_time, open, high, low, close, volume FROM price_ohlcv
		 WHERE asset_id = $1 ORDER BY open_time DESC LIMIT 1`,
		assetID,
	))
}

// LatestCandleBefore returns the most recent bucket strictly before the
// given boundary, or nil when none qualifies.
func (r *PriceRepository) LatestCandleBefore(ctx context.Context, assetID int64, before time.Time) (*domain.Candle, error) {
	_, span := r.tracer.Start(ctx, "price-repo.latest-candle-before")
	defer span.End()

	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT asset_id, open_time, open, high, low, close, volume FROM price_ohlcv
		 WHERE asset_id = $1 AND open_time < $2 ORDER BY open_time DESC LIMIT 1`,
		assetID, before,
	))
}

// FirstCandleBetween returns the earliest bucket with from <= open_time
// < to, or nil when none exists in the window.
func (r *PriceRepository) FirstCandleBetween(ctx context.Context, assetID int64, from, to time.Time) (*domain.Candle, error) {
	_, span := r.tracer.Start(ctx, "price-repo.first-candle-between")
	defer span.End()

	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT asset_id, open_time, open, high, low, close, volume FROM price_ohlcv
		 WHERE asset_id = $1 AND open_time >= $2 AND open_time < $3
		 ORDER BY open_time ASC LIMIT 1`,
		assetID, from, to,
	))
}

func (r *PriceRepository) scanOne(row pgx.Row) (*domain.Candle, error) {
	c := &domain.Candle{}
	err := row.Scan(&c.AssetID, &c.OpenTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
