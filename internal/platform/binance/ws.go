package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	// DefaultWSURL is the public spot market stream root.
	DefaultWSURL = "wss://stream.binance.com:9443"

	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed between server frames; Binance pings
	// every 20 seconds, so any healthy stream beats this comfortably.
	pongWait = 60 * time.Second
)

// TickerHandler is called for each bookTicker frame off the stream.
type TickerHandler func(BookTicker)

// WSClient streams bookTicker updates for a single symbol. It handles the
// connection lifecycle; reconnection policy belongs to the caller.
type WSClient struct {
	wsURL  string
	symbol string

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// NewWSClient creates a stream client for the given symbol, e.g. "ETHUSDC".
// An empty wsURL uses the public endpoint.
func NewWSClient(wsURL, symbol string) *WSClient {
	if wsURL == "" {
		wsURL = DefaultWSURL
	}
	return &WSClient{wsURL: wsURL, symbol: symbol}
}

// bookTickerFrame is the raw stream payload; field names are Binance's
// single-letter convention.
type bookTickerFrame struct {
	Symbol string `json:"s"`
	Bid    string `json:"b"`
	BidQty string `json:"B"`
	Ask    string `json:"a"`
	AskQty string `json:"A"`
}

// Run connects to the symbol's bookTicker stream and invokes handler for
// each frame until ctx is cancelled or the connection drops.
func (w *WSClient) Run(ctx context.Context, handler TickerHandler) error {
	endpoint := fmt.Sprintf("%s/ws/%s@bookTicker", w.wsURL, strings.ToLower(w.symbol))

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("binance/ws: connect: %w", err)
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		conn.Close()
		return nil
	}
	w.conn = conn
	w.mu.Unlock()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(payload string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(payload), time.Now().Add(writeWait))
	})

	// Unblock ReadMessage when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("binance/ws: read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		ticker, err := parseBookTicker(msg)
		if err != nil {
			// Malformed frames are skipped, the stream itself is healthy.
			continue
		}
		handler(ticker)
	}
}

// Close shuts the client down; a running Run returns shortly after.
func (w *WSClient) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.conn != nil {
		w.conn.Close()
	}
}

func parseBookTicker(msg []byte) (BookTicker, error) {
	var frame bookTickerFrame
	if err := json.Unmarshal(msg, &frame); err != nil {
		return BookTicker{}, fmt.Errorf("binance/ws: decode frame: %w", err)
	}
	bid, err := decimal.NewFromString(frame.Bid)
	if err != nil {
		return BookTicker{}, fmt.Errorf("binance/ws: bid %q: %w", frame.Bid, err)
	}
	ask, err := decimal.NewFromString(frame.Ask)
	if err != nil {
		return BookTicker{}, fmt.Errorf("binance/ws: ask %q: %w", frame.Ask, err)
	}
	if !bid.IsPositive() || !ask.IsPositive() {
		return BookTicker{}, fmt.Errorf("binance/ws: non-positive quote bid=%s ask=%s", bid, ask)
	}
	t := BookTicker{Symbol: frame.Symbol, BidPrice: bid, AskPrice: ask}
	if frame.BidQty != "" {
		t.BidQty, _ = decimal.NewFromString(frame.BidQty)
	}
	if frame.AskQty != "" {
		t.AskQty, _ = decimal.NewFromString(frame.AskQty)
	}
	return t, nil
}
