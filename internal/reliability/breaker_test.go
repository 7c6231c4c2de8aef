package reliability

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ironcrypto/aero-arb-mm-bot/internal/domain"
)

var errBoom = errors.New("boom")

func newTestBreaker(threshold int, cooldown time.Duration) (*Breaker, *time.Time) {
	b := NewBreaker("test", BreakerConfig{Threshold: threshold, Cooldown: cooldown}, slog.Default())
	clock := time.Unix(1_700_000_000, 0)
	b.now = func() time.Time { return clock }
	return b, &clock
}

func fail(context.Context) error { return errBoom }
func ok(context.Context) error   { return nil }

func TestBreakerOpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, 30*time.Second)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := b.Do(ctx, fail); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: err = %v, want boom", i, err)
		}
		if b.State() != StateClosed {
			t.Fatalf("opened after %d failures, threshold is 3", i+1)
		}
	}
	if err := b.Do(ctx, fail); !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %s after threshold, want open", b.State())
	}

	// Open: fail fast, the dependency is never called.
	called := false
	err := b.Do(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, domain.ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Fatal("open breaker invoked the dependency")
	}
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b, _ := newTestBreaker(3, 30*time.Second)
	ctx := context.Background()

	b.Do(ctx, fail)
	b.Do(ctx, fail)
	b.Do(ctx, ok)
	b.Do(ctx, fail)
	b.Do(ctx, fail)
	if b.State() != StateClosed {
		t.Fatal("non-consecutive failures tripped the breaker")
	}
	b.Do(ctx, fail)
	if b.State() != StateOpen {
		t.Fatal("third consecutive failure did not trip the breaker")
	}
}

func TestBreakerProbeClosesOnSuccess(t *testing.T) {
	b, clock := newTestBreaker(1, 30*time.Second)
	ctx := context.Background()

	b.Do(ctx, fail)
	if b.State() != StateOpen {
		t.Fatal("breaker not open")
	}

	*clock = clock.Add(30 * time.Second)
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %s after cooldown, want half_open", b.State())
	}
	if err := b.Do(ctx, ok); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %s after successful probe, want closed", b.State())
	}
}

func TestBreakerProbeFailureRestartsCooldown(t *testing.T) {
	b, clock := newTestBreaker(1, 30*time.Second)
	ctx := context.Background()

	b.Do(ctx, fail)
	*clock = clock.Add(30 * time.Second)
	if err := b.Do(ctx, fail); !errors.Is(err, errBoom) {
		t.Fatalf("probe err = %v, want boom", err)
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %s after failed probe, want open", b.State())
	}

	// Cooldown restarted from the probe failure, not the first trip.
	*clock = clock.Add(29 * time.Second)
	if err := b.Do(ctx, ok); !errors.Is(err, domain.ErrCircuitOpen) {
		t.Fatalf("err = %v before restarted cooldown elapses, want ErrCircuitOpen", err)
	}
	*clock = clock.Add(time.Second)
	if err := b.Do(ctx, ok); err != nil {
		t.Fatalf("probe after restarted cooldown: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %s, want closed", b.State())
	}
}

func TestBreakerSingleProbe(t *testing.T) {
	b, clock := newTestBreaker(1, time.Second)
	ctx := context.Background()

	b.Do(ctx, fail)
	*clock = clock.Add(time.Second)

	// First caller holds the probe slot; a second concurrent caller is
	// rejected until the probe resolves.
	release := make(chan struct{})
	probeStarted := make(chan struct{})
	go b.Do(ctx, func(context.Context) error {
		close(probeStarted)
		<-release
		return nil
	})
	<-probeStarted

	if err := b.Do(ctx, ok); !errors.Is(err, domain.ErrCircuitOpen) {
		t.Fatalf("second caller during probe: err = %v, want ErrCircuitOpen", err)
	}
	close(release)
}
