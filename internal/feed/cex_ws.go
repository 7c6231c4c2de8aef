package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ironcrypto/aero-arb-mm-bot/internal/domain"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/platform/binance"
)

// reconnectDelay is the pause between websocket reconnect attempts.
const reconnectDelay = 2 * time.Second

// CEXStreamFeed pushes live bookTicker midpoints into the store, replacing
// the REST poll cadence with tick-level updates. It reconnects on
// disconnect until ctx ends.
type CEXStreamFeed struct {
	pair   string
	client *binance.WSClient
	store  *Store
	cache  domain.PriceCache
	logger *slog.Logger
}

// NewCEXStreamFeed creates a stream feed for the pair using the given
// websocket client. cache may be nil.
func NewCEXStreamFeed(pair string, client *binance.WSClient, store *Store, cache domain.PriceCache, logger *slog.Logger) *CEXStreamFeed {
	return &CEXStreamFeed{
		pair:   pair,
		client: client,
		store:  store,
		cache:  cache,
		logger: logger.With(slog.String("component", "cex_stream")),
	}
}

// Run streams until ctx is cancelled, reconnecting with a fixed delay on
// drops.
func (f *CEXStreamFeed) Run(ctx context.Context) error {
	for {
		err := f.client.Run(ctx, func(t binance.BookTicker) {
			f.publish(ctx, t.Mid())
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("stream disconnected, reconnecting",
			slog.String("error", errString(err)),
			slog.Duration("delay", reconnectDelay))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

// publish stores a mid-price snapshot and mirrors it to the price cache,
// matching what the REST poller path does.
func (f *CEXStreamFeed) publish(ctx context.Context, mid decimal.Decimal) {
	snap := f.store.Put(domain.PriceSnapshot{
		Source:    domain.SourceCEX,
		Pair:      f.pair,
		Price:     mid,
		Timestamp: time.Now().UTC(),
	})
	if f.cache != nil {
		if err := f.cache.SetLatest(ctx, snap); err != nil {
			f.logger.Warn("price cache update failed", slog.String("error", err.Error()))
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
