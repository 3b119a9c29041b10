package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"vietfin-market/internal/domain"

	"github.com/gorilla/websocket"
)

const (
	binanceStreamURL = "wss://stream.binance.com:9443/stream"

	flushInterval = 2 * time.Second
	flushSize     = 100
	reconnectWait = 5 * time.Second
	writeTimeout  = 10 * time.Second
)

type TickStore interface {
	InsertTicks(ctx context.Context, ticks []domain.PriceTick) error
}

// tradeEvent is one trade from a Binance combined stream. Prices come
// as strings.
type tradeEvent struct {
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	TradeTime int64  `json:"T"`
}

type streamMessage struct {
	Stream string     `json:"stream"`
	Data   tradeEvent `json:"data"`
}

// BinanceIngester subscribes to Binance trade streams and persists the
// ticks the resolver reads. Ticks are batched before hitting Postgres.
type BinanceIngester struct {
	store     TickStore
	streamURL string
	symbols   map[string]int64 // symbol -> asset id

	dial func(ctx context.Context, url string) (wsConn, error)
}

// wsConn is the subset of *websocket.Conn the ingester uses.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	Close() error
}

func NewBinanceIngester(store TickStore, symbols map[string]int64) *BinanceIngester {
	return &BinanceIngester{
		store:     store,
		streamURL: binanceStreamURL,
		symbols:   symbols,
		dial: func(ctx context.Context, url string) (wsConn, error) {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			return conn, err
		},
	}
}

// Run connects and re-connects until ctx is cancelled.
func (b *BinanceIngester) Run(ctx context.Context) {
	if len(b.symbols) == 0 {
		log.Println("tick ingest: no crypto symbols configured, skipping")
		return
	}

	url := b.streamURL + "?streams=" + b.streamParam()
	for {
		if err := b.consume(ctx, url); err != nil {
			log.Printf("tick ingest: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectWait):
		}
	}
}

func (b *BinanceIngester) streamParam() string {
	streams := make([]string, 0, len(b.symbols))
	for symbol := range b.symbols {
		streams = append(streams, strings.ToLower(symbol)+"@trade")
	}
	return strings.Join(streams, "/")
}

// consume reads one connection until it breaks, flushing batched ticks
// on size or interval.
func (b *BinanceIngester) consume(ctx context.Context, url string) error {
	conn, err := b.dial(ctx, url)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()
	log.Printf("tick ingest: connected to %d streams", len(b.symbols))

	// The read loop owns the connection; close it on ctx cancel to
	// unblock ReadMessage.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	batch := make([]domain.PriceTick, 0, flushSize)
	lastFlush := time.Now()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			b.flush(batch)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}

		tick, ok := b.parseTick(payload)
		if ok {
			batch = append(batch, tick)
		}
		if len(batch) >= flushSize || (len(batch) > 0 && time.Since(lastFlush) >= flushInterval) {
			b.flush(batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}
	}
}

func (b *BinanceIngester) parseTick(payload []byte) (domain.PriceTick, bool) {
	var msg streamMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Printf("tick ingest: bad message: %v", err)
		return domain.PriceTick{}, false
	}

	assetID, ok := b.symbols[msg.Data.Symbol]
	if !ok {
		return domain.PriceTick{}, false
	}
	price, err := strconv.ParseFloat(msg.Data.Price, 64)
	if err != nil || price <= 0 {
		log.Printf("tick ingest: bad price %q for %s", msg.Data.Price, msg.Data.Symbol)
		return domain.PriceTick{}, false
	}

	return domain.PriceTick{
		AssetID: assetID,
		Price:   price,
		Time:    time.UnixMilli(msg.Data.TradeTime).UTC(),
	}, true
}

func (b *BinanceIngester) flush(batch []domain.PriceTick) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := b.store.InsertTicks(ctx, batch); err != nil {
		log.Printf("tick ingest: insert %d ticks: %v", len(batch), err)
	}
}
