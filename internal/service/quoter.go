package service

import (
	"context"
	"log"

	"vietfin-market/internal/domain"
)

// FallbackQuoter tries the primary quote source first and falls back to
// the secondary when the primary fails. A nil secondary disables the
// fallback.
type FallbackQuoter struct {
	primary   SymbolQuoter
	secondary SymbolQuoter
}

func NewFallbackQuoter(primary, secondary SymbolQuoter) *FallbackQuoter {
	return &FallbackQuoter{primary: primary, secondary: secondary}
}

func (q *FallbackQuoter) FetchQuote(ctx context.Context, symbol string) (*domain.TickerQuote, error) {
	quote, err := q.primary.FetchQuote(ctx, symbol)
	if err == nil {
		return quote, nil
	}
	if q.secondary == nil {
		return nil, err
	}
	log.Printf("quote for %s: primary failed (%v), trying fallback", symbol, err)
	return q.secondary.FetchQuote(ctx, symbol)
}
