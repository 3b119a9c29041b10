package service

import (
	"context"
	"testing"

	"vietfin-market/internal/domain"
)

func TestFallbackQuoter_PrimaryWins(t *testing.T) {
	t.Parallel()

	primary := &mockSymbolQuoter{quotes: quoteMap("AAPL")}
	secondary := &mockSymbolQuoter{quotes: quoteMap("AAPL")}
	q := NewFallbackQuoter(primary, secondary)

	quote, err := q.FetchQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Symbol != "AAPL" {
		t.Fatalf("unexpected quote: %+v", quote)
	}
	if secondary.calls != 0 {
		t.Fatalf("fallback called while primary healthy: %d calls", secondary.calls)
	}
}

func TestFallbackQuoter_FallsBackOnPrimaryFailure(t *testing.T) {
	t.Parallel()

	primary := &mockSymbolQuoter{failing: map[string]bool{"AAPL": true}}
	secondary := &mockSymbolQuoter{quotes: map[string]*domain.TickerQuote{
		"AAPL": {Symbol: "AAPL", Price: 231.5, ChangePercent: 0.4, Positive: true},
	}}
	q := NewFallbackQuoter(primary, secondary)

	quote, err := q.FetchQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Price != 231.5 {
		t.Fatalf("expected fallback quote, got %+v", quote)
	}
}

func TestFallbackQuoter_NilSecondaryKeepsPrimaryError(t *testing.T) {
	t.Parallel()

	primary := &mockSymbolQuoter{failing: map[string]bool{"AAPL": true}}
	q := NewFallbackQuoter(primary, nil)

	if _, err := q.FetchQuote(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected error")
	}
}
