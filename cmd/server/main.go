package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vietfin-market/internal/cache"
	"vietfin-market/internal/config"
	"vietfin-market/internal/db"
	"vietfin-market/internal/domain"
	"vietfin-market/internal/handler"
	"vietfin-market/internal/ingest"
	"vietfin-market/internal/job"
	"vietfin-market/internal/provider"
	"vietfin-market/internal/repository"
	"vietfin-market/internal/resolver"
	"vietfin-market/internal/service"
	"vietfin-market/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "vietfin-market/docs"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	newAssetRepoFunc       = repository.NewAssetRepository
	newPriceRepoFunc       = repository.NewPriceRepository
	newWarmerFunc          = job.NewMarketWarmer
	startWarmerFunc        = func(w *job.MarketWarmer, ctx context.Context) { go w.Start(ctx) }
	startIngesterFunc      = func(b *ingest.BinanceIngester, ctx context.Context) { go b.Run(ctx) }
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           VietFin Market API
// @version         1.0
// @description     Market price resolution and ticker aggregation service.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Create repositories, run migrations, seed the catalog
	assetRepo := newAssetRepoFunc(db.Pool, tracer)
	priceRepo := newPriceRepoFunc(db.Pool, tracer)
	if db.Pool != nil {
		if err := assetRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run asset migrations: %v", err)
		}
		if err := priceRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run price migrations: %v", err)
		}
		if err := assetRepo.UpsertAssets(ctx, domain.DefaultAssets); err != nil {
			log.Fatalf("failed to seed assets: %v", err)
		}
	}

	loc, err := time.LoadLocation(cfg.MarketTimezone)
	if err != nil {
		log.Fatalf("invalid MARKET_TIMEZONE %q: %v", cfg.MarketTimezone, err)
	}

	// Providers. Index, FX and commodity symbols use Yahoo's ticker
	// style (^GSPC, EURUSD=X, GC=F), which Alpha Vantage does not
	// serve, so both per-symbol groups quote through Yahoo and Alpha
	// Vantage backs up the plain equity tickers.
	binanceProvider := provider.NewBinanceProvider(tracer)
	yahooProvider := provider.NewYahooProvider(tracer)
	alphaProvider := provider.NewAlphaVantageProvider(tracer, cfg.AlphaVantageKey)
	rateProvider := provider.NewExchangeRateProvider(tracer)

	var equityFallback service.SymbolQuoter
	if cfg.AlphaVantageKey != "" {
		equityFallback = alphaProvider
	}
	equityQuoter := service.NewFallbackQuoter(yahooProvider, equityFallback)

	// Services
	fxService := service.NewExchangeRateService(tracer, rateProvider, cache.Client)
	barService := service.NewTickerBarService(tracer, binanceProvider, equityQuoter, yahooProvider, fxService, cache.Client,
		cfg.TickerCryptoSymbols, cfg.TickerEquitySymbols, cfg.TickerFXSymbols)
	priceResolver := resolver.New(tracer, priceRepo, loc)
	marketService := service.NewPriceChangeService(tracer, assetRepo, priceResolver, fxService)

	// Tick ingest needs asset ids, which only exist with a database
	if db.Pool != nil && cfg.IngestEnabled {
		symbols, err := cryptoSymbolIDs(ctx, assetRepo)
		if err != nil {
			log.Fatalf("failed to load crypto assets: %v", err)
		}
		startIngesterFunc(ingest.NewBinanceIngester(priceRepo, symbols), ctx)
	}

	// Cache warmers (stopped by ctx cancel). Candle backfill only runs
	// with a database behind it.
	var (
		assetLister job.AssetLister
		candleStore job.CandleStore
	)
	if db.Pool != nil {
		assetLister = assetRepo
		candleStore = priceRepo
	}
	warmer := newWarmerFunc(tracer, barService, fxService, assetLister, yahooProvider, candleStore,
		cfg.TickerRefreshSecs, cfg.BackfillIntervalMins)
	startWarmerFunc(warmer, ctx)

	// Create handlers and routes
	h := newHandlerFunc(tracer, marketService, barService)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("vietfin-market"))
	r.Use(handler.APIKeyAuth(cfg.APIKey))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}

func cryptoSymbolIDs(ctx context.Context, repo *repository.AssetRepository) (map[string]int64, error) {
	assets, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	symbols := make(map[string]int64)
	for _, a := range assets {
		if a.Type == domain.AssetTypeCrypto && a.Status != domain.AssetStatusDisabled {
			symbols[a.Symbol] = a.ID
		}
	}
	return symbols, nil
}
