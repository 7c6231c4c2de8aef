package domain

import "context"

// RecordStore persists emitted records. Implementations are best-effort:
// the pipeline logs store errors and continues.
type RecordStore interface {
	SaveOpportunity(ctx context.Context, opp ArbitrageOpportunity) error
	SaveSignal(ctx context.Context, sig MarketMakingSignal) error
	SaveExecution(ctx context.Context, exec SimulatedExecution) error
}

// RecordBus publishes emitted records to live subscribers (e.g. a Redis
// channel per record kind). Best-effort, no delivery guarantees.
type RecordBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// PriceCache stores the latest snapshot per source for external consumers.
type PriceCache interface {
	SetLatest(ctx context.Context, snap PriceSnapshot) error
}

// SnapshotReader provides the most recent snapshot from one feed.
type SnapshotReader interface {
	Latest(source Source) (PriceSnapshot, bool)
}
