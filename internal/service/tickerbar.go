package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"vietfin-market/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	tickerBarCacheKey   = "ticker:bar"
	tickerBarCacheTTL   = 60 * time.Second
	quoteTimeout        = 8 * time.Second
	maxConcurrentQuotes = 8
)

// CryptoQuoter fetches a batch of crypto quotes in one call. The batch
// is all-or-nothing: a failed batch contributes no quotes.
type CryptoQuoter interface {
	FetchQuotes(ctx context.Context, symbols []string) ([]domain.TickerQuote, error)
}

// SymbolQuoter fetches a single quote per call.
type SymbolQuoter interface {
	FetchQuote(ctx context.Context, symbol string) (*domain.TickerQuote, error)
}

// TickerBarService aggregates quotes from the configured providers into
// the ticker bar and caches the merged result. Prices are converted to
// VND before caching; symbols listed on the local exchange pass through.
type TickerBarService struct {
	tracer    trace.Tracer
	crypto    CryptoQuoter
	equity    SymbolQuoter
	fx        SymbolQuoter
	converter Converter
	redis     RedisClient
	group     singleflight.Group

	cryptoSymbols []string
	equitySymbols []string
	fxSymbols     []string
}

func NewTickerBarService(
	tracer trace.Tracer,
	crypto CryptoQuoter,
	equity SymbolQuoter,
	fx SymbolQuoter,
	converter Converter,
	redisClient RedisClient,
	cryptoSymbols, equitySymbols, fxSymbols []string,
) *TickerBarService {
	return &TickerBarService{
		tracer:        tracer,
		crypto:        crypto,
		equity:        equity,
		fx:            fx,
		converter:     converter,
		redis:         redisClient,
		cryptoSymbols: cryptoSymbols,
		equitySymbols: equitySymbols,
		fxSymbols:     fxSymbols,
	}
}

// GetTickerBar returns the merged ticker bar, rebuilding it on a cache
// miss. Per-symbol failures drop that symbol; a failed crypto batch
// fails the whole rebuild.
func (s *TickerBarService) GetTickerBar(ctx context.Context) ([]domain.TickerQuote, error) {
	_, span := s.tracer.Start(ctx, "ticker-bar.get")
	defer span.End()

	if s.redis != nil {
		cached, err := s.getBarCache(ctx)
		if err != nil {
			log.Printf("redis ticker cache read error: %v", err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	v, err, _ := s.group.Do(tickerBarCacheKey, func() (interface{}, error) {
		return s.rebuild(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.TickerQuote), nil
}

// Refresh rebuilds the bar and rewrites the cache. A failed rebuild
// leaves the previous cache entry in place.
func (s *TickerBarService) Refresh(ctx context.Context) error {
	_, span := s.tracer.Start(ctx, "ticker-bar.refresh")
	defer span.End()

	quotes, err := s.rebuild(ctx)
	if err != nil {
		return err
	}
	log.Printf("Refreshed ticker bar (%d quotes)", len(quotes))
	return nil
}

// rebuild fans out to all providers and merges the results in the
// configured order: equities, crypto, fx. Fills fixed slots per symbol
// so the output order never depends on response timing.
func (s *TickerBarService) rebuild(ctx context.Context) ([]domain.TickerQuote, error) {
	nEquity := len(s.equitySymbols)
	nCrypto := len(s.cryptoSymbols)
	slots := make([]*domain.TickerQuote, nEquity+nCrypto+len(s.fxSymbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentQuotes)

	for i, symbol := range s.equitySymbols {
		g.Go(s.quoteTask(gctx, s.equity, symbol, slots, i))
	}
	if nCrypto > 0 {
		// The crypto batch is one request for every symbol: it cannot
		// degrade per symbol, so its failure fails the whole rebuild
		// and the previous cache entry stays in place.
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(gctx, quoteTimeout)
			defer cancel()
			quotes, err := s.crypto.FetchQuotes(qctx, s.cryptoSymbols)
			if err != nil {
				return fmt.Errorf("ticker bar: crypto batch: %w", err)
			}
			for i := range quotes {
				slots[nEquity+i] = &quotes[i]
			}
			return nil
		})
	}
	for i, symbol := range s.fxSymbols {
		g.Go(s.quoteTask(gctx, s.fx, symbol, slots, nEquity+nCrypto+i))
	}

	// Per-symbol tasks swallow their own errors; only the crypto batch
	// (or ctx cancellation) propagates through Wait.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	quotes := make([]domain.TickerQuote, 0, len(slots))
	for _, q := range slots {
		if q != nil {
			quotes = append(quotes, *q)
		}
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("ticker bar: no quotes available")
	}

	if s.converter != nil {
		for i := range quotes {
			quotes[i].Price = s.converter.Convert(ctx, quotes[i].Price, domain.SymbolExchange(quotes[i].Symbol))
		}
	}

	if s.redis != nil {
		if err := s.setBarCache(ctx, quotes); err != nil {
			log.Printf("redis ticker cache write error: %v", err)
		}
	}
	return quotes, nil
}

func (s *TickerBarService) quoteTask(ctx context.Context, quoter SymbolQuoter, symbol string, slots []*domain.TickerQuote, idx int) func() error {
	return func() error {
		qctx, cancel := context.WithTimeout(ctx, quoteTimeout)
		defer cancel()
		quote, err := quoter.FetchQuote(qctx, symbol)
		if err != nil {
			log.Printf("ticker bar: quote for %s failed: %v", symbol, err)
			return nil
		}
		slots[idx] = quote
		return nil
	}
}

func (s *TickerBarService) setBarCache(ctx context.Context, quotes []domain.TickerQuote) error {
	data, err := json.Marshal(quotes)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, tickerBarCacheKey, data, tickerBarCacheTTL).Err()
}

func (s *TickerBarService) getBarCache(ctx context.Context) ([]domain.TickerQuote, error) {
	data, err := s.redis.Get(ctx, tickerBarCacheKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var quotes []domain.TickerQuote
	if err := json.Unmarshal(data, &quotes); err != nil {
		return nil, err
	}
	return quotes, nil
}
