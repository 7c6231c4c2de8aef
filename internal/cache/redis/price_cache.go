package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ironcrypto/aero-arb-mm-bot/internal/domain"
)

// priceTTL expires stale entries so external readers never see a price the
// engine itself would reject as stale.
const priceTTL = time.Minute

// PriceCache implements domain.PriceCache. Each source's latest snapshot is
// a hash at "aerobot:price:{source}" with price, pair, seq, and ts fields.
type PriceCache struct {
	rdb *redis.Client
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.Underlying()}
}

func priceKey(source domain.Source) string {
	return "aerobot:price:" + string(source)
}

// SetLatest stores the snapshot as the source's latest price.
func (pc *PriceCache) SetLatest(ctx context.Context, snap domain.PriceSnapshot) error {
	key := priceKey(snap.Source)
	fields := map[string]interface{}{
		"pair":  snap.Pair,
		"price": snap.Price.String(),
		"seq":   strconv.FormatUint(snap.Sequence, 10),
		"ts":    strconv.FormatInt(snap.Timestamp.UnixNano(), 10),
	}
	pipe := pc.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, priceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set latest %s: %w", snap.Source, err)
	}
	return nil
}
