// Package volatility maintains rolling, time-bounded price windows per
// timeframe and derives the volatility context consumed by the detector,
// risk scorer, and strategy engine.
package volatility

import (
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ironcrypto/aero-arb-mm-bot/internal/domain"
)

// Default timeframes: 5 minutes, 30 minutes, 1 hour.
const (
	ShortWindow  = 5 * time.Minute
	MediumWindow = 30 * time.Minute
	LongWindow   = time.Hour
)

// Config tunes the analyzer.
type Config struct {
	// HighMultiplier is the spread multiplier applied for the High category.
	// Low, Moderate, and Extreme are fixed at 1.0, 1.5, and 3.0.
	HighMultiplier decimal.Decimal

	// TrendRatio is the short/medium ratio above which the trend is
	// classified Volatile.
	TrendRatio float64

	// NoiseFloorPct is the minimum short-minus-medium difference (in
	// percentage points) before a trend counts as Increasing or Decreasing.
	NoiseFloorPct float64
}

// DefaultConfig returns the analyzer defaults.
func DefaultConfig() Config {
	return Config{
		HighMultiplier: decimal.NewFromFloat(2.0),
		TrendRatio:     1.2,
		NoiseFloorPct:  0.25,
	}
}

type sample struct {
	at    time.Time
	price float64
}

// window is a time-bounded deque of samples. Insert appends at the back and
// evicts from the front everything strictly older than the bound, so both
// operations are amortized O(1) and the history is never rescanned.
type window struct {
	name    string
	bound   time.Duration
	samples []sample
	head    int
}

func newWindow(name string, bound time.Duration) *window {
	return &window{name: name, bound: bound}
}

func (w *window) insert(now time.Time, price float64) {
	w.samples = append(w.samples, sample{at: now, price: price})
	cutoff := now.Add(-w.bound)
	for w.head < len(w.samples) && w.samples[w.head].at.Before(cutoff) {
		w.head++
	}
	// Compact once the dead prefix dominates, to keep memory bounded.
	if w.head > 0 && w.head*2 >= len(w.samples) {
		w.samples = append(w.samples[:0:0], w.samples[w.head:]...)
		w.head = 0
	}
}

func (w *window) len() int { return len(w.samples) - w.head }

// stat computes stdev/mean as a percent over the live samples. Returns the
// stat and the sample count; fewer than 2 samples yields (0, n).
func (w *window) stat() (float64, int) {
	live := w.samples[w.head:]
	n := len(live)
	if n < 2 {
		return 0, n
	}
	var sum float64
	for _, s := range live {
		sum += s.price
	}
	mean := sum / float64(n)
	if mean <= 0 {
		return 0, n
	}
	var variance float64
	for _, s := range live {
		d := s.price - mean
		variance += d * d
	}
	variance /= float64(n)
	return math.Sqrt(variance) / mean * 100, n
}

// Analyzer holds the three timeframe windows for one pair. It is a
// single-writer structure: the pipeline goroutine calls Observe, any reader
// may call Context.
type Analyzer struct {
	mu     sync.Mutex
	pair   string
	cfg    Config
	short  *window
	medium *window
	long   *window
	now    func() time.Time
}

// New creates an Analyzer for the given pair.
func New(pair string, cfg Config) *Analyzer {
	if !cfg.HighMultiplier.IsPositive() {
		cfg.HighMultiplier = decimal.NewFromFloat(2.0)
	}
	if cfg.TrendRatio <= 0 {
		cfg.TrendRatio = 1.2
	}
	if cfg.NoiseFloorPct <= 0 {
		cfg.NoiseFloorPct = 0.25
	}
	return &Analyzer{
		pair:   pair,
		cfg:    cfg,
		short:  newWindow("5m", ShortWindow),
		medium: newWindow("30m", MediumWindow),
		long:   newWindow("1h", LongWindow),
		now:    time.Now,
	}
}

// Observe appends the snapshot's price to every timeframe window, evicting
// entries older than each window's bound. Snapshots for other pairs are
// ignored.
func (a *Analyzer) Observe(snap domain.PriceSnapshot) {
	if snap.Pair != a.pair {
		return
	}
	price, _ := snap.Price.Float64()
	if price <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	a.short.insert(now, price)
	a.medium.insert(now, price)
	a.long.insert(now, price)
}

// Context computes the volatility context from the current windows. Windows
// with fewer than 2 samples are excluded from blending; if every window is
// empty the cold-start default (Low/Stable, multiplier 1.0) is returned.
func (a *Analyzer) Context() domain.VolatilityContext {
	a.mu.Lock()
	defer a.mu.Unlock()

	shortPct, shortN := a.short.stat()
	mediumPct, mediumN := a.medium.stat()
	longPct, longN := a.long.stat()

	ctx := domain.VolatilityContext{
		Pair:   a.pair,
		Short:  domain.WindowStat{Timeframe: a.short.name, Pct: shortPct, Samples: shortN},
		Medium: domain.WindowStat{Timeframe: a.medium.name, Pct: mediumPct, Samples: mediumN},
		Long:   domain.WindowStat{Timeframe: a.long.name, Pct: longPct, Samples: longN},
	}

	blended := domain.VolLow
	any := false
	for _, w := range []domain.WindowStat{ctx.Short, ctx.Medium, ctx.Long} {
		if !w.Valid() {
			continue
		}
		any = true
		if c := domain.CategoryForPct(w.Pct); c > blended {
			blended = c
		}
	}

	ctx.Blended = blended
	ctx.Trend = a.trend(shortPct, mediumPct, shortN, mediumN)
	if !any {
		ctx.Blended = domain.VolLow
		ctx.Trend = domain.TrendStable
	}
	ctx.SpreadMultiplier = a.spreadMultiplier(ctx.Blended)
	ctx.SizeMultiplier = sizeMultiplier(ctx.Blended)
	return ctx
}

// trend compares the short-window statistic to the medium-window one:
// a ratio above TrendRatio is Volatile, a difference beyond the noise floor
// is Increasing/Decreasing, anything else Stable.
func (a *Analyzer) trend(shortPct, mediumPct float64, shortN, mediumN int) domain.VolTrend {
	if shortN < 2 || mediumN < 2 {
		return domain.TrendStable
	}
	if mediumPct > 0 && shortPct/mediumPct > a.cfg.TrendRatio {
		return domain.TrendVolatile
	}
	diff := shortPct - mediumPct
	switch {
	case diff > a.cfg.NoiseFloorPct:
		return domain.TrendIncreasing
	case diff < -a.cfg.NoiseFloorPct:
		return domain.TrendDecreasing
	default:
		return domain.TrendStable
	}
}

func (a *Analyzer) spreadMultiplier(c domain.VolCategory) decimal.Decimal {
	switch c {
	case domain.VolLow:
		return decimal.NewFromInt(1)
	case domain.VolModerate:
		return decimal.NewFromFloat(1.5)
	case domain.VolHigh:
		return a.cfg.HighMultiplier
	default:
		return decimal.NewFromInt(3)
	}
}

func sizeMultiplier(c domain.VolCategory) decimal.Decimal {
	switch c {
	case domain.VolLow:
		return decimal.NewFromInt(1)
	case domain.VolModerate:
		return decimal.NewFromFloat(0.8)
	case domain.VolHigh:
		return decimal.NewFromFloat(0.5)
	default:
		return decimal.NewFromFloat(0.25)
	}
}
