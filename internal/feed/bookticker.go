// Package feed maintains live microstructure metrics per symbol from the
// exchange's combined bookTicker WebSocket stream.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// Reconnect backoff bounds.
const (
	reconnectMin = time.Second
	reconnectMax = 30 * time.Second
)

const msPerNano = float64(time.Millisecond)

// tickerEvent is one combined-stream bookTicker message.
type tickerEvent struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol   string `json:"s"`
		BidPrice string `json:"b"`
		BidQty   string `json:"B"`
		AskPrice string `json:"a"`
		AskQty   string `json:"A"`
	} `json:"data"`
}

// BookTickerFeed subscribes to the combined bookTicker stream for a symbol
// set and keeps a per-symbol MicrostructureMetrics snapshot current. It
// reconnects with exponential backoff on disconnect.
type BookTickerFeed struct {
	wsURL   string
	symbols []string
	logger  *slog.Logger

	mu      sync.RWMutex
	metrics map[string]domain.MicrostructureMetrics
	prices  map[string]float64 // mid prices, for the price cache hook

	// OnPrice, when set, receives every mid-price update.
	OnPrice func(symbol string, mid float64, at time.Time)
}

// NewBookTickerFeed creates a feed for the given combined-stream base URL
// (e.g. wss://fstream.binance.com/stream) and symbols.
func NewBookTickerFeed(wsURL string, symbols []string, logger *slog.Logger) *BookTickerFeed {
	return &BookTickerFeed{
		wsURL:   wsURL,
		symbols: symbols,
		logger:  logger.With(slog.String("component", "bookticker_feed")),
		metrics: make(map[string]domain.MicrostructureMetrics),
		prices:  make(map[string]float64),
	}
}

// Run connects and consumes the stream until the context is cancelled,
// reconnecting on any error.
func (f *BookTickerFeed) Run(ctx context.Context) error {
	backoff := reconnectMin
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := f.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("stream disconnected, reconnecting",
			slog.Any("error", err),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

func (f *BookTickerFeed) consume(ctx context.Context) error {
	url := f.wsURL + "?streams=" + f.streamPath()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	f.logger.Info("stream connected", slog.Int("symbols", len(f.symbols)))

	// Unblock ReadMessage on cancellation.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		readStart := time.Now()
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		f.handle(data, time.Since(readStart))
	}
}

func (f *BookTickerFeed) streamPath() string {
	parts := make([]string, len(f.symbols))
	for i, s := range f.symbols {
		parts[i] = strings.ToLower(s) + "@bookTicker"
	}
	return strings.Join(parts, "/")
}

func (f *BookTickerFeed) handle(data []byte, readLatency time.Duration) {
	var ev tickerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		f.logger.Debug("malformed stream message", slog.Int("len", len(data)))
		return
	}
	if ev.Data.Symbol == "" {
		return
	}

	bid, _ := strconv.ParseFloat(ev.Data.BidPrice, 64)
	ask, _ := strconv.ParseFloat(ev.Data.AskPrice, 64)
	bidQty, _ := strconv.ParseFloat(ev.Data.BidQty, 64)
	askQty, _ := strconv.ParseFloat(ev.Data.AskQty, 64)
	if bid <= 0 || ask <= 0 || ask < bid {
		return
	}

	mid := (bid + ask) / 2
	spreadBps := (ask - bid) / mid * 10000
	now := time.Now()

	m := domain.MicrostructureMetrics{
		Symbol:      ev.Data.Symbol,
		SpreadBps:   spreadBps,
		SlippageBps: estimateSlippageBps(spreadBps, bidQty, askQty),
		LatencyMs:   float64(readLatency) / msPerNano,
		QuoteAgeMs:  0,
		BidDepth:    bidQty,
		AskDepth:    askQty,
		ObservedAt:  now,
	}

	f.mu.Lock()
	f.metrics[ev.Data.Symbol] = m
	f.prices[ev.Data.Symbol] = mid
	f.mu.Unlock()

	if f.OnPrice != nil {
		f.OnPrice(ev.Data.Symbol, mid, now)
	}
}

// estimateSlippageBps is a coarse top-of-book estimate: half the spread
// plus a thin-book penalty when either side carries little size.
func estimateSlippageBps(spreadBps, bidQty, askQty float64) float64 {
	slip := spreadBps / 2
	depth := math.Min(bidQty, askQty)
	if depth > 0 && depth < 1 {
		slip += spreadBps * (1 - depth)
	}
	return slip
}

// Metrics returns the live snapshot for a symbol with QuoteAgeMs filled in
// at read time.
func (f *BookTickerFeed) Metrics(symbol string) (domain.MicrostructureMetrics, bool) {
	f.mu.RLock()
	m, ok := f.metrics[symbol]
	f.mu.RUnlock()
	if !ok {
		return domain.MicrostructureMetrics{}, false
	}
	m.QuoteAgeMs = float64(time.Since(m.ObservedAt)) / msPerNano
	return m, true
}

// MidPrice returns the last observed mid price for a symbol.
func (f *BookTickerFeed) MidPrice(symbol string) (float64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.prices[symbol]
	return p, ok
}
