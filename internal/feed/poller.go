package feed

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ironcrypto/aero-arb-mm-bot/internal/domain"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/reliability"
)

// FetchFunc produces one snapshot from a venue.
type FetchFunc func(ctx context.Context) (domain.PriceSnapshot, error)

// Poller periodically fetches a venue snapshot through the reliability layer
// and publishes it to the store (and, when configured, the price cache).
type Poller struct {
	name     string
	interval time.Duration
	fetch    FetchFunc
	store    *Store
	breaker  *reliability.Breaker
	retrier  *reliability.Retrier
	cache    domain.PriceCache
	logger   *slog.Logger
}

// NewPoller wires a fetch function to the store. cache may be nil.
func NewPoller(name string, interval time.Duration, fetch FetchFunc, store *Store, breaker *reliability.Breaker, retrier *reliability.Retrier, cache domain.PriceCache, logger *slog.Logger) *Poller {
	return &Poller{
		name:     name,
		interval: interval,
		fetch:    fetch,
		store:    store,
		breaker:  breaker,
		retrier:  retrier,
		cache:    cache,
		logger:   logger.With(slog.String("component", name)),
	}
}

// Run polls immediately and then on every interval tick until ctx ends.
// Fetch failures are logged and skipped; the previous snapshot stays current
// and the staleness gate downstream decides whether it is still usable.
func (p *Poller) Run(ctx context.Context) error {
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	var snap domain.PriceSnapshot
	err := p.breaker.Do(ctx, func(ctx context.Context) error {
		return p.retrier.Do(ctx, p.name, func(ctx context.Context) error {
			var ferr error
			snap, ferr = p.fetch(ctx)
			return ferr
		})
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		level := slog.LevelWarn
		if errors.Is(err, domain.ErrCircuitOpen) {
			level = slog.LevelDebug
		}
		p.logger.Log(ctx, level, "poll failed", slog.String("error", err.Error()))
		return
	}

	snap = p.store.Put(snap)
	p.logger.Debug("snapshot",
		slog.String("source", string(snap.Source)),
		slog.String("price", snap.Price.String()),
		slog.Uint64("seq", snap.Sequence))

	if p.cache != nil {
		if err := p.cache.SetLatest(ctx, snap); err != nil {
			p.logger.Warn("price cache update failed", slog.String("error", err.Error()))
		}
	}
}
