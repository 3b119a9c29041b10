package service

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	fxCacheKey = "fx:usd_vnd"
	fxCacheTTL = 6 * time.Hour

	// FallbackRateVND is served when the rate API is unreachable and
	// the cache is cold. It is never written to the cache, so the next
	// call retries the fetch.
	FallbackRateVND = 25000.0

	// localExchange prices are already quoted in VND.
	localExchange = "HOSE"
)

type RateProvider interface {
	FetchUSDVND(ctx context.Context) (float64, error)
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// ExchangeRateService caches the USD→VND rate and converts asset prices
// to VND for display.
type ExchangeRateService struct {
	tracer   trace.Tracer
	provider RateProvider
	redis    RedisClient
	group    singleflight.Group
}

func NewExchangeRateService(tracer trace.Tracer, provider RateProvider, redisClient RedisClient) *ExchangeRateService {
	return &ExchangeRateService{
		tracer:   tracer,
		provider: provider,
		redis:    redisClient,
	}
}

// GetRate returns the cached USD→VND rate, fetching on a cache miss.
// It never fails: when the fetch errors it logs and returns the
// fallback rate uncached.
func (s *ExchangeRateService) GetRate(ctx context.Context) float64 {
	_, span := s.tracer.Start(ctx, "fx-service.get-rate")
	defer span.End()

	if s.redis != nil {
		cached, err := s.getRateCache(ctx)
		if err != nil {
			log.Printf("redis fx cache read error: %v", err)
		}
		if cached > 0 {
			return cached
		}
	}

	// Collapse concurrent misses into one upstream call.
	v, err, _ := s.group.Do(fxCacheKey, func() (interface{}, error) {
		rate, err := s.provider.FetchUSDVND(ctx)
		if err != nil {
			return nil, err
		}
		if s.redis != nil {
			if err := s.setRateCache(ctx, rate); err != nil {
				log.Printf("redis fx cache write error: %v", err)
			}
		}
		return rate, nil
	})
	if err != nil {
		log.Printf("fx rate fetch failed, using fallback %v: %v", FallbackRateVND, err)
		return FallbackRateVND
	}
	return v.(float64)
}

// Convert converts a price to VND. Prices from the local exchange are
// already in VND and pass through unchanged.
func (s *ExchangeRateService) Convert(ctx context.Context, price float64, exchangeCode string) float64 {
	if exchangeCode == localExchange {
		return price
	}
	return price * s.GetRate(ctx)
}

// Refresh fetches the rate unconditionally and rewrites the cache.
// Used by the background warmer so callers rarely hit a cold cache.
func (s *ExchangeRateService) Refresh(ctx context.Context) error {
	_, span := s.tracer.Start(ctx, "fx-service.refresh")
	defer span.End()

	rate, err := s.provider.FetchUSDVND(ctx)
	if err != nil {
		return err
	}
	if s.redis != nil {
		if err := s.setRateCache(ctx, rate); err != nil {
			return err
		}
	}
	log.Printf("Refreshed USD/VND rate: %s", strconv.FormatFloat(rate, 'f', -1, 64))
	return nil
}

func (s *ExchangeRateService) setRateCache(ctx context.Context, rate float64) error {
	data, err := json.Marshal(rate)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, fxCacheKey, data, fxCacheTTL).Err()
}

func (s *ExchangeRateService) getRateCache(ctx context.Context) (float64, error) {
	data, err := s.redis.Get(ctx, fxCacheKey).Bytes()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var rate float64
	if err := json.Unmarshal(data, &rate); err != nil {
		return 0, err
	}
	return rate, nil
}
