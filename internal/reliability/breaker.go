// Package reliability wraps calls to external dependencies with a circuit
// breaker and a bounded retry policy.
package reliability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ironcrypto/aero-arb-mm-bot/internal/domain"
)

// State is the breaker's position in its state machine.
type State int

const (
	// StateClosed passes calls through and counts consecutive failures.
	StateClosed State = iota
	// StateOpen rejects calls without touching the dependency.
	StateOpen
	// StateHalfOpen lets a single probe through after the cooldown.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes one breaker instance.
type BreakerConfig struct {
	// Threshold is the consecutive-failure count that trips the breaker.
	Threshold int
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration
}

// DefaultBreakerConfig returns the breaker defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{Threshold: 5, Cooldown: 30 * time.Second}
}

// Breaker is a per-dependency circuit breaker. One instance guards one
// external dependency; safe for concurrent use.
type Breaker struct {
	name string
	cfg  BreakerConfig
	log  *slog.Logger

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool

	now func() time.Time
}

// NewBreaker creates a closed breaker for the named dependency.
func NewBreaker(name string, cfg BreakerConfig, log *slog.Logger) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultBreakerConfig().Threshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultBreakerConfig().Cooldown
	}
	if log == nil {
		log = slog.Default()
	}
	return &Breaker{name: name, cfg: cfg, log: log, now: time.Now}
}

// State returns the breaker's current state, accounting for an elapsed
// cooldown.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		return StateHalfOpen
	}
	return b.state
}

// Do runs fn under the breaker. While open it returns ErrCircuitOpen without
// invoking fn; after the cooldown a single concurrent probe is admitted.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			return domain.ErrCircuitOpen
		}
		b.state = StateHalfOpen
		b.probing = true
		b.log.Info("circuit breaker probing", "dependency", b.name)
		return nil
	default: // StateHalfOpen
		if b.probing {
			return domain.ErrCircuitOpen
		}
		b.probing = true
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.probing = false
		if err == nil {
			b.state = StateClosed
			b.failures = 0
			b.log.Info("circuit breaker closed", "dependency", b.name)
			return
		}
		b.state = StateOpen
		b.openedAt = b.now()
		b.log.Warn("circuit breaker reopened", "dependency", b.name, "error", err)
		return
	}

	if err == nil {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures >= b.cfg.Threshold {
		b.state = StateOpen
		b.openedAt = b.now()
		b.log.Warn("circuit breaker opened",
			"dependency", b.name,
			"consecutive_failures", b.failures,
			"cooldown", b.cfg.Cooldown)
	}
}
