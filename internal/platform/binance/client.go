// Package binance is a thin read-only client for the Binance spot market
// data API. No keys, no orders; only public ticker endpoints.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ironcrypto/aero-arb-mm-bot/internal/domain"
)

// DefaultBaseURL is the public spot API root.
const DefaultBaseURL = "https://api.binance.com"

// Client is the REST client for Binance market data.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a market-data client. An empty baseURL uses the public
// endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// BookTicker is the best bid/ask for one symbol.
type BookTicker struct {
	Symbol   string          `json:"symbol"`
	BidPrice decimal.Decimal `json:"bidPrice"`
	BidQty   decimal.Decimal `json:"bidQty"`
	AskPrice decimal.Decimal `json:"askPrice"`
	AskQty   decimal.Decimal `json:"askQty"`
}

// Mid returns the bid/ask midpoint.
func (t BookTicker) Mid() decimal.Decimal {
	return t.BidPrice.Add(t.AskPrice).Div(decimal.NewFromInt(2))
}

// GetBookTicker fetches the best bid/ask for a symbol, e.g. "ETHUSDC".
func (c *Client) GetBookTicker(ctx context.Context, symbol string) (BookTicker, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var ticker BookTicker
	if err := c.get(ctx, "/api/v3/ticker/bookTicker", params, &ticker); err != nil {
		return BookTicker{}, err
	}
	if !ticker.BidPrice.IsPositive() || !ticker.AskPrice.IsPositive() {
		return BookTicker{}, domain.Permanent("binance.bookTicker",
			fmt.Errorf("non-positive quote for %s: bid=%s ask=%s", symbol, ticker.BidPrice, ticker.AskPrice))
	}
	return ticker, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	op := "binance" + path
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Permanent(op, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Transient(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Transient(op, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 418:
		// 418 is Binance's auto-ban response to hammering past 429.
		return domain.Transient(op, fmt.Errorf("rate limited: status %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return domain.Transient(op, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body)))
	default:
		return domain.Permanent(op, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return domain.Permanent(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func truncate(b []byte) string {
	const max = 256
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
