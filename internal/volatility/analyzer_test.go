package volatility

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"github.com/ironcrypto/aero-arb-mm-bot/internal/domain"
)

func newTestAnalyzer(start time.Time) (*Analyzer, *time.Time) {
	a := New("WETH/USDC", DefaultConfig())
	clock := start
	a.now = func() time.Time { return clock }
	return a, &clock
}

func snap(price float64) domain.PriceSnapshot {
	return domain.PriceSnapshot{
		Source: domain.SourceCEX,
		Pair:   "WETH/USDC",
		Price:  decimal.NewFromFloat(price),
	}
}

func TestContextColdStart(t *testing.T) {
	a, _ := newTestAnalyzer(time.Now())
	ctx := a.Context()
	if ctx.Blended != domain.VolLow {
		t.Fatalf("blended = %v, want Low", ctx.Blended)
	}
	if ctx.Trend != domain.TrendStable {
		t.Fatalf("trend = %v, want stable", ctx.Trend)
	}
	if !ctx.SpreadMultiplier.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("spread multiplier = %s, want 1", ctx.SpreadMultiplier)
	}
	if !ctx.SizeMultiplier.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("size multiplier = %s, want 1", ctx.SizeMultiplier)
	}
}

func TestSingleSampleStaysColdStart(t *testing.T) {
	a, _ := newTestAnalyzer(time.Now())
	a.Observe(snap(2000))
	ctx := a.Context()
	if ctx.Short.Valid() {
		t.Fatalf("one sample should not form a valid window")
	}
	if ctx.Blended != domain.VolLow || ctx.Trend != domain.TrendStable {
		t.Fatalf("blended=%v trend=%v, want Low/stable", ctx.Blended, ctx.Trend)
	}
}

func TestConstantPricesAreLowVolatility(t *testing.T) {
	a, clock := newTestAnalyzer(time.Now())
	for i := 0; i < 20; i++ {
		a.Observe(snap(2000))
		*clock = clock.Add(10 * time.Second)
	}
	ctx := a.Context()
	if ctx.Short.Pct != 0 {
		t.Fatalf("short pct = %f, want 0", ctx.Short.Pct)
	}
	if ctx.Blended != domain.VolLow {
		t.Fatalf("blended = %v, want Low", ctx.Blended)
	}
}

func TestWideSwingsEscalateCategory(t *testing.T) {
	a, clock := newTestAnalyzer(time.Now())
	// Alternating +/-25% around 2000 pushes stdev/mean well past 10%.
	for i := 0; i < 30; i++ {
		p := 2000.0
		if i%2 == 0 {
			p = 2500
		} else {
			p = 1500
		}
		a.Observe(snap(p))
		*clock = clock.Add(5 * time.Second)
	}
	ctx := a.Context()
	if ctx.Blended != domain.VolExtreme {
		t.Fatalf("blended = %v (short %.2f%%), want Extreme", ctx.Blended, ctx.Short.Pct)
	}
	if !ctx.SpreadMultiplier.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("spread multiplier = %s, want 3", ctx.SpreadMultiplier)
	}
	if !ctx.SizeMultiplier.Equal(decimal.NewFromFloat(0.25)) {
		t.Fatalf("size multiplier = %s, want 0.25", ctx.SizeMultiplier)
	}
}

func TestEvictionDropsExpiredSamples(t *testing.T) {
	a, clock := newTestAnalyzer(time.Now())
	// Noisy burst, then quiet prices for longer than the short window.
	for i := 0; i < 10; i++ {
		p := 2000.0 + float64(i%2)*600
		a.Observe(snap(p))
		*clock = clock.Add(time.Second)
	}
	noisy := a.Context()
	if noisy.Short.Pct == 0 {
		t.Fatal("burst should produce a nonzero short stat")
	}

	*clock = clock.Add(6 * time.Minute)
	for i := 0; i < 10; i++ {
		a.Observe(snap(2000))
		*clock = clock.Add(time.Second)
	}
	quiet := a.Context()
	if quiet.Short.Pct != 0 {
		t.Fatalf("short pct = %f after eviction, want 0", quiet.Short.Pct)
	}
	// The medium window still spans the burst.
	if quiet.Medium.Pct == 0 {
		t.Fatal("medium window should still carry the burst")
	}
}

func TestTrendVolatile(t *testing.T) {
	a, clock := newTestAnalyzer(time.Now())
	// Quiet history, then a recent burst: short stat outruns medium.
	for i := 0; i < 60; i++ {
		a.Observe(snap(2000 + float64(i%2)))
		*clock = clock.Add(20 * time.Second)
	}
	*clock = clock.Add(4 * time.Minute)
	for i := 0; i < 20; i++ {
		p := 2000.0 + float64(i%2)*400
		a.Observe(snap(p))
		*clock = clock.Add(2 * time.Second)
	}
	ctx := a.Context()
	if ctx.Trend != domain.TrendVolatile {
		t.Fatalf("trend = %v (short %.3f%% medium %.3f%%), want volatile",
			ctx.Trend, ctx.Short.Pct, ctx.Medium.Pct)
	}
}

func TestObserveIgnoresOtherPairs(t *testing.T) {
	a, _ := newTestAnalyzer(time.Now())
	other := snap(9999)
	other.Pair = "WBTC/USDC"
	a.Observe(other)
	a.Observe(other)
	if a.short.len() != 0 {
		t.Fatalf("short window has %d samples, want 0", a.short.len())
	}
}

func TestCategoryBreakpoints(t *testing.T) {
	cases := []struct {
		pct  float64
		want domain.VolCategory
	}{
		{0, domain.VolLow},
		{1.99, domain.VolLow},
		{2, domain.VolModerate},
		{4.99, domain.VolModerate},
		{5, domain.VolHigh},
		{9.99, domain.VolHigh},
		{10, domain.VolExtreme},
		{50, domain.VolExtreme},
	}
	for _, tc := range cases {
		if got := domain.CategoryForPct(tc.pct); got != tc.want {
			t.Errorf("CategoryForPct(%v) = %v, want %v", tc.pct, got, tc.want)
		}
	}
}

// Context must be total: any sequence of positive prices yields a context
// with finite window stats and multipliers from the fixed ladder.
func TestContextTotalProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200

	properties := gopter.NewProperties(params)
	properties.Property("context is total over arbitrary price runs", prop.ForAll(
		func(prices []float64) bool {
			a, clock := newTestAnalyzer(time.Unix(1_700_000_000, 0))
			for _, p := range prices {
				a.Observe(snap(p))
				*clock = clock.Add(3 * time.Second)
			}
			ctx := a.Context()
			for _, w := range []domain.WindowStat{ctx.Short, ctx.Medium, ctx.Long} {
				if w.Pct < 0 || w.Pct != w.Pct {
					return false
				}
			}
			spread, _ := ctx.SpreadMultiplier.Float64()
			size, _ := ctx.SizeMultiplier.Float64()
			return spread >= 1 && spread <= 3 && size >= 0.25 && size <= 1
		},
		gen.SliceOf(gen.Float64Range(0.01, 1e9)),
	))
	properties.TestingRun(t)
}
