package repository

import (
	"context"
	"errors"
	"fmt"

	"vietfin-market/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

const createAssetsTable = `
CREATE TABLE IF NOT EXISTS assets (
    id          BIGSERIAL   PRIMARY KEY,
    symbol      TEXT        NOT NULL UNIQUE,
    name        TEXT        NOT NULL,
    exchange    TEXT        NOT NULL DEFAULT '',
    asset_type  TEXT        NOT NULL,
    status      TEXT        NOT NULL DEFAULT 'OK',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type AssetRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewAssetRepository(pool PgxPool, tracer trace.Tracer) *AssetRepository {
	return &AssetRepository{pool: pool, tracer: tracer}
}

func (r *AssetRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "asset-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createAssetsTable)
	return err
}

func (r *AssetRepository) GetBySymbol(ctx context.Context, symbol string) (*domain.Asset, error) {
	_, span := r.tracer.Start(ctx, "asset-repo.get-by-symbol")
	defer span.End()

	a := &domain.Asset{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, symbol, name, exchange, asset_type, status, created_at, updated_at
		 FROM assets WHERE symbol = $1`,
		symbol,
	).Scan(&a.ID, &a.Symbol, &a.Name, &a.Exchange, &a.Type, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrAssetNotFound, symbol)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AssetRepository) GetByID(ctx context.Context, id int64) (*domain.Asset, error) {
	_, span := r.tracer.Start(ctx, "asset-repo.get-by-id")
	defer span.End()

	a := &domain.Asset{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, symbol, name, exchange, asset_type, status, created_at, updated_at
		 FROM assets WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.Symbol, &a.Name, &a.Exchange, &a.Type, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: id=%d", domain.ErrAssetNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AssetRepository) List(ctx context.Context) ([]*domain.Asset, error) {
	_, span := r.tracer.Start(ctx, "asset-repo.list")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT id, symbol, name, exchange, asset_type, status, created_at, updated_at
		 FROM assets ORDER BY symbol`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []*domain.Asset
	for rows.Next() {
		a := &domain.Asset{}
		if err := rows.Scan(&a.ID, &a.Symbol, &a.Name, &a.Exchange, &a.Type, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// UpsertAssets is the ingestion collaborator's write path, used to seed
// the asset catalog. asset_type is deliberately excluded from the
// conflict update: it is immutable once set (changing it would
// invalidate the cached formula choice for the asset).
func (r *AssetRepository) UpsertAssets(ctx context.Context, assets []domain.Asset) error {
	if len(assets) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "asset-repo.upsert-assets")
	defer span.End()

	batch := &pgx.Batch{}
	for _, a := range assets {
		batch.Queue(
			`INSERT INTO assets (symbol, name, exchange, asset_type, status)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (symbol) DO UPDATE SET
			     name = EXCLUDED.name,
			     exchange = EXCLUDED.exchange,
			     status = EXCLUDED.status,
			     updated_at = now()`,
			a.Symbol, a.Name, a.Exchange, a.Type, a.Status,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range assets {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
