package reliability

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/ironcrypto/aero-arb-mm-bot/internal/domain"
)

// RetryConfig tunes the exponential backoff policy.
type RetryConfig struct {
	// MaxAttempts is the total call budget, first try included.
	MaxAttempts int
	// BaseDelay is the pre-jitter delay after the first failure; each
	// subsequent failure doubles it.
	BaseDelay time.Duration
	// MaxDelay caps the pre-jitter delay.
	MaxDelay time.Duration
}

// DefaultRetryConfig returns the retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

// Retrier re-runs transient failures with jittered exponential backoff.
// Permanent failures propagate immediately without consuming the budget.
type Retrier struct {
	cfg RetryConfig
	log *slog.Logger

	// jitter perturbs a computed delay; replaced in tests.
	jitter func(time.Duration) time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetrier builds a Retrier with +/-20% jitter.
func NewRetrier(cfg RetryConfig, log *slog.Logger) *Retrier {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if log == nil {
		log = slog.Default()
	}
	return &Retrier{
		cfg:    cfg,
		log:    log,
		jitter: defaultJitter,
		sleep:  ctxSleep,
	}
}

// Do runs fn up to MaxAttempts times. Between transient failures it waits
// base*2^i capped at MaxDelay with jitter; context cancellation aborts the
// wait and returns ctx.Err().
func (r *Retrier) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := r.jitter(r.Delay(attempt - 1))
			r.log.Debug("retrying",
				"op", op,
				"attempt", attempt+1,
				"max_attempts", r.cfg.MaxAttempts,
				"delay", delay)
			if err := r.sleep(ctx, delay); err != nil {
				return err
			}
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !domain.IsTransient(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("%s: %w after %d attempts: %w", op, domain.ErrRetryExhausted, r.cfg.MaxAttempts, lastErr)
}

// Delay returns the pre-jitter backoff for the given zero-based failure
// index: base doubled per failure, capped at MaxDelay.
func (r *Retrier) Delay(failure int) time.Duration {
	d := r.cfg.BaseDelay
	for i := 0; i < failure; i++ {
		d *= 2
		if d >= r.cfg.MaxDelay {
			return r.cfg.MaxDelay
		}
	}
	if d > r.cfg.MaxDelay {
		return r.cfg.MaxDelay
	}
	return d
}

func defaultJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	f := 0.8 + 0.4*rand.Float64()
	return time.Duration(float64(d) * f)
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
