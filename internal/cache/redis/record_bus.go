package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RecordBus implements domain.RecordBus over Redis Pub/Sub. Delivery is
// fire-and-forget; subscribers that are offline miss records.
type RecordBus struct {
	rdb *redis.Client
}

// NewRecordBus creates a RecordBus backed by the given Client.
func NewRecordBus(c *Client) *RecordBus {
	return &RecordBus{rdb: c.Underlying()}
}

// Publish sends a raw payload to a channel.
func (b *RecordBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}
