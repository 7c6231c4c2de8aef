// Package feed moves venue prices into the engine: a snapshot store holding
// the latest observation per source, pollers that fill it over REST/RPC, and
// an optional websocket feeder for the exchange side.
package feed

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ironcrypto/aero-arb-mm-bot/internal/domain"
)

// Store holds the most recent snapshot per source. Each source has a single
// writer; the detection cycle reads both sides.
type Store struct {
	mu     sync.RWMutex
	latest map[domain.Source]domain.PriceSnapshot
	seq    atomic.Uint64
}

// NewStore creates an empty snapshot store.
func NewStore() *Store {
	return &Store{latest: make(map[domain.Source]domain.PriceSnapshot)}
}

// Put records a snapshot as the latest for its source, stamping it with a
// store-wide sequence number and, if unset, the current time.
func (s *Store) Put(snap domain.PriceSnapshot) domain.PriceSnapshot {
	snap.Sequence = s.seq.Add(1)
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}
	s.mu.Lock()
	s.latest[snap.Source] = snap
	s.mu.Unlock()
	return snap
}

// Latest returns the most recent snapshot for the source, if any.
func (s *Store) Latest(source domain.Source) (domain.PriceSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.latest[source]
	return snap, ok
}
