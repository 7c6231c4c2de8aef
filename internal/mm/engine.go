// Package mm quotes two-sided markets around fair value, adapting spread and
// skew to volatility, inventory, and the composite risk score.
package mm

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ironcrypto/aero-arb-mm-bot/internal/domain"
)

var (
	one        = decimal.NewFromInt(1)
	two        = decimal.NewFromInt(2)
	tenThouBps = decimal.NewFromInt(10_000)
)

// Config tunes the quoting engine. Zero values get defaults from New.
type Config struct {
	Pair string

	// BaseSpreadBps is the quoted spread before the volatility multiplier.
	BaseSpreadBps decimal.Decimal

	// RebalanceThreshold is the |skew fraction| above which quoting switches
	// to inventory management.
	RebalanceThreshold decimal.Decimal

	// HoldCeiling is the composite risk above which no signal is emitted
	// while volatility is extreme.
	HoldCeiling decimal.Decimal
}

// DefaultConfig returns the quoting defaults.
func DefaultConfig() Config {
	return Config{
		Pair:               "WETH/USDC",
		BaseSpreadBps:      decimal.NewFromInt(30),
		RebalanceThreshold: decimal.NewFromFloat(0.2),
		HoldCeiling:        decimal.NewFromInt(80),
	}
}

// Engine derives MarketMakingSignals. Stateless apart from config; safe to
// call from the single cycle goroutine.
type Engine struct {
	cfg Config
	now func() time.Time
}

// New creates an Engine, filling unset config fields with defaults.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Pair == "" {
		cfg.Pair = def.Pair
	}
	if !cfg.BaseSpreadBps.IsPositive() {
		cfg.BaseSpreadBps = def.BaseSpreadBps
	}
	if !cfg.RebalanceThreshold.IsPositive() {
		cfg.RebalanceThreshold = def.RebalanceThreshold
	}
	if !cfg.HoldCeiling.IsPositive() {
		cfg.HoldCeiling = def.HoldCeiling
	}
	return &Engine{cfg: cfg, now: time.Now}
}

// Quote produces a signal around fairValue, or nil when the engine holds
// (extreme volatility combined with composite risk above the ceiling).
func (e *Engine) Quote(fairValue decimal.Decimal, inv domain.InventoryState, vol domain.VolatilityContext, score domain.RiskScore) *domain.MarketMakingSignal {
	if !fairValue.IsPositive() {
		return nil
	}
	if vol.Blended == domain.VolExtreme && score.Exceeds(e.cfg.HoldCeiling) {
		return nil
	}

	skew := inv.SkewFraction()
	strategy := e.selectStrategy(skew, vol)

	// Working spread: base widened by the volatility multiplier, then by
	// 10-50% proportional to how loaded the book is.
	spreadFrac := e.cfg.BaseSpreadBps.Mul(vol.SpreadMultiplier).Div(tenThouBps)
	skewAbs := skew.Abs()
	if skewAbs.IsPositive() {
		adj := decimal.NewFromFloat(0.1).Add(decimal.NewFromFloat(0.4).Mul(skewAbs))
		spreadFrac = spreadFrac.Mul(one.Add(adj))
	}

	// Both quotes shift against the inventory: long books quote lower so the
	// ask fills first, short books quote higher.
	half := fairValue.Mul(spreadFrac).Div(two)
	shift := half.Mul(skew)
	bid := fairValue.Sub(half).Sub(shift)
	ask := fairValue.Add(half).Sub(shift)

	band := rangeBand(vol.Blended)
	return &domain.MarketMakingSignal{
		ID:         uuid.NewString(),
		Pair:       e.cfg.Pair,
		Strategy:   strategy,
		FairValue:  fairValue,
		Bid:        bid,
		Ask:        ask,
		SpreadBps:  ask.Sub(bid).Div(fairValue).Mul(tenThouBps),
		RangeLow:   fairValue.Mul(one.Sub(band)),
		RangeHigh:  fairValue.Mul(one.Add(band)),
		Risk:       score,
		Volatility: vol.Blended,
		Trend:      vol.Trend,
		CreatedAt:  e.now(),
	}
}

// selectStrategy applies the fixed precedence: inventory pressure first,
// then extreme volatility, then trend, then the calm/default split.
func (e *Engine) selectStrategy(skew decimal.Decimal, vol domain.VolatilityContext) domain.StrategyType {
	switch {
	case skew.Abs().GreaterThan(e.cfg.RebalanceThreshold):
		return domain.StrategyInventoryManagement
	case vol.Blended == domain.VolExtreme:
		return domain.StrategyVolatilityAdaptive
	case vol.Trend == domain.TrendIncreasing || vol.Trend == domain.TrendDecreasing:
		return domain.StrategyTrendFollowing
	case vol.Blended == domain.VolLow:
		return domain.StrategyTightSpread
	default:
		return domain.StrategyWideSpread
	}
}

// rangeBand is the active quoting band around fair value per category.
func rangeBand(c domain.VolCategory) decimal.Decimal {
	switch c {
	case domain.VolLow:
		return decimal.NewFromFloat(0.005)
	case domain.VolModerate:
		return decimal.NewFromFloat(0.01)
	case domain.VolHigh:
		return decimal.NewFromFloat(0.02)
	default:
		return decimal.NewFromFloat(0.03)
	}
}
