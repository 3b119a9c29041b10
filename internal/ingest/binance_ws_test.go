package ingest

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"vietfin-market/internal/domain"
)

type mockTickStore struct {
	mu    sync.Mutex
	ticks []domain.PriceTick
	err   error
}

func (m *mockTickStore) InsertTicks(ctx context.Context, ticks []domain.PriceTick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.ticks = append(m.ticks, ticks...)
	return nil
}

func (m *mockTickStore) inserted() []domain.PriceTick {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.PriceTick(nil), m.ticks...)
}

type fakeConn struct {
	messages [][]byte
	closed   bool
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	if len(f.messages) == 0 {
		return 0, nil, io.EOF
	}
	msg := f.messages[0]
	f.messages = f.messages[1:]
	return 1, msg, nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func TestIngesterParseTick(t *testing.T) {
	t.Parallel()

	b := NewBinanceIngester(&mockTickStore{}, map[string]int64{"BTCUSDT": 1})

	tick, ok := b.parseTick([]byte(`{"stream":"btcusdt@trade","data":{"s":"BTCUSDT","p":"97123.45","T":1750255800000}}`))
	if !ok {
		t.Fatal("expected tick")
	}
	if tick.AssetID != 1 || tick.Price != 97123.45 {
		t.Fatalf("unexpected tick: %+v", tick)
	}
	if tick.Time != time.UnixMilli(1750255800000).UTC() {
		t.Fatalf("unexpected time: %v", tick.Time)
	}
}

func TestIngesterParseTickRejects(t *testing.T) {
	t.Parallel()

	b := NewBinanceIngester(&mockTickStore{}, map[string]int64{"BTCUSDT": 1})

	cases := map[string]string{
		"unknown symbol": `{"data":{"s":"DOGEUSDT","p":"0.5","T":1}}`,
		"bad price":      `{"data":{"s":"BTCUSDT","p":"abc","T":1}}`,
		"zero price":     `{"data":{"s":"BTCUSDT","p":"0","T":1}}`,
		"not json":       `garbage`,
	}
	for name, payload := range cases {
		if _, ok := b.parseTick([]byte(payload)); ok {
			t.Fatalf("%s: expected rejection", name)
		}
	}
}

func TestIngesterStreamParam(t *testing.T) {
	t.Parallel()

	b := NewBinanceIngester(&mockTickStore{}, map[string]int64{"BTCUSDT": 1, "ETHUSDT": 2})

	param := b.streamParam()
	if !strings.Contains(param, "btcusdt@trade") || !strings.Contains(param, "ethusdt@trade") {
		t.Fatalf("unexpected stream param: %s", param)
	}
}

func TestIngesterConsumeFlushesOnDisconnect(t *testing.T) {
	t.Parallel()

	store := &mockTickStore{}
	b := NewBinanceIngester(store, map[string]int64{"BTCUSDT": 1, "ETHUSDT": 2})

	conn := &fakeConn{messages: [][]byte{
		[]byte(`{"data":{"s":"BTCUSDT","p":"97000","T":1750255800000}}`),
		[]byte(`{"data":{"s":"ETHUSDT","p":"3100","T":1750255801000}}`),
		[]byte(`{"data":{"s":"DOGEUSDT","p":"0.5","T":1750255802000}}`),
	}}
	b.dial = func(ctx context.Context, url string) (wsConn, error) {
		return conn, nil
	}

	err := b.consume(context.Background(), "ws://test")
	if err == nil {
		t.Fatal("expected read error after stream end")
	}

	ticks := store.inserted()
	if len(ticks) != 2 {
		t.Fatalf("expected 2 ticks, got %d", len(ticks))
	}
	if ticks[0].AssetID != 1 || ticks[1].AssetID != 2 {
		t.Fatalf("unexpected ticks: %+v", ticks)
	}
	if !conn.closed {
		t.Fatal("connection not closed")
	}
}

func TestIngesterConsumeDialError(t *testing.T) {
	t.Parallel()

	b := NewBinanceIngester(&mockTickStore{}, map[string]int64{"BTCUSDT": 1})
	b.dial = func(ctx context.Context, url string) (wsConn, error) {
		return nil, errors.New("refused")
	}

	if err := b.consume(context.Background(), "ws://test"); err == nil {
		t.Fatal("expected dial error")
	}
}
