package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// StreamConfig configures ticker stream behavior.
type StreamConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing control frames.
	WriteTimeout time.Duration
}

// DefaultStreamConfig returns default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

type pricePoint struct {
	price float64
	at    time.Time
}

// TickerStream maintains the latest traded price per symbol from the
// exchange's combined trade stream. Subscriptions are carried in the
// URL, so reconnecting is just redialing.
type TickerStream struct {
	url    string
	config StreamConfig
	log    zerolog.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	prices   map[string]pricePoint // keyed by upper-case symbol
	pricesMu sync.RWMutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewTickerStream connects to endpoint and subscribes to the trade
// streams for the given symbols.
func NewTickerStream(ctx context.Context, endpoint string, symbols []string, config *StreamConfig, log zerolog.Logger) (*TickerStream, error) {
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}

	streams := make([]string, 0, len(symbols))
	for _, s := range symbols {
		streams = append(streams, strings.ToLower(s)+"@trade")
	}

	t := &TickerStream{
		url:    endpoint + "/stream?streams=" + strings.Join(streams, "/"),
		config: cfg,
		log:    log.With().Str("component", "ticker_stream").Logger(),
		prices: make(map[string]pricePoint),
		done:   make(chan struct{}),
	}

	if err := t.connect(ctx); err != nil {
		return nil, err
	}

	t.wg.Add(1)
	go t.readLoop()

	t.wg.Add(1)
	go t.pingLoop()

	return t, nil
}

// LatestPrice returns the most recent traded price for a symbol, the
// time it was observed, and whether one exists.
func (t *TickerStream) LatestPrice(symbol string) (float64, time.Time, bool) {
	t.pricesMu.RLock()
	defer t.pricesMu.RUnlock()

	p, ok := t.prices[strings.ToUpper(symbol)]
	if !ok {
		return 0, time.Time{}, false
	}
	return p.price, p.at, true
}

// Close shuts down the stream.
func (t *TickerStream) Close() error {
	if t.closed.Swap(true) {
		return nil // Already closed
	}

	close(t.done)

	t.connMu.Lock()
	if t.conn != nil {
		t.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		t.conn.Close()
	}
	t.connMu.Unlock()

	t.wg.Wait()
	return nil
}

// connect establishes the WebSocket connection.
func (t *TickerStream) connect(ctx context.Context) error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	t.conn = conn
	return nil
}

// readLoop reads trade messages and records latest prices.
func (t *TickerStream) readLoop() {
	defer t.wg.Done()

	for !t.closed.Load() {
		t.connMu.Lock()
		conn := t.conn
		t.connMu.Unlock()

		if conn == nil {
			select {
			case <-t.done:
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(t.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if t.closed.Load() {
				return
			}

			if !t.reconnecting.Swap(true) {
				go t.reconnect()
			}

			select {
			case <-t.done:
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		t.handleMessage(message)
	}
}

// reconnect redials with exponential backoff until it succeeds or the
// stream is closed.
func (t *TickerStream) reconnect() {
	defer t.reconnecting.Store(false)

	t.connMu.Lock()
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.connMu.Unlock()

	delay := t.config.ReconnectDelay
	for !t.closed.Load() {
		select {
		case <-t.done:
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := t.connect(ctx)
		cancel()
		if err == nil {
			t.log.Info().Msg("reconnected")
			return
		}
		t.log.Warn().Err(err).Dur("retry_in", delay).Msg("reconnect failed")

		delay *= 2
		if delay > t.config.MaxReconnectDelay {
			delay = t.config.MaxReconnectDelay
		}
	}
}

// handleMessage parses a combined-stream trade message.
func (t *TickerStream) handleMessage(message []byte) {
	var msg combinedStreamMsg
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}
	if msg.Data.EventType != "trade" || msg.Data.Symbol == "" {
		return
	}

	price, err := parsePrice(msg.Data.Price)
	if err != nil {
		t.log.Warn().Str("symbol", msg.Data.Symbol).Str("price", msg.Data.Price).Msg("unparseable trade price")
		return
	}

	at := time.UnixMilli(msg.Data.TradeTime)
	if msg.Data.TradeTime == 0 {
		at = time.Now()
	}

	t.pricesMu.Lock()
	t.prices[strings.ToUpper(msg.Data.Symbol)] = pricePoint{price: price, at: at}
	t.pricesMu.Unlock()
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (t *TickerStream) pingLoop() {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.connMu.Lock()
			if t.conn != nil {
				t.conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout))
				if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			t.connMu.Unlock()
		}
	}
}

// Combined stream message types

type combinedStreamMsg struct {
	Stream string    `json:"stream"`
	Data   tradeData `json:"data"`
}

type tradeData struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	TradeTime int64  `json:"T"`
}
