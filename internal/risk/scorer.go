// Package risk computes the composite pre-quote risk score that gates the
// strategy engine and the execution simulator.
package risk

import (
	"github.com/shopspring/decimal"

	"github.com/ironcrypto/aero-arb-mm-bot/internal/domain"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Weights are the relative contributions of the three component risks. They
// do not need to sum to 1; the scorer normalizes.
type Weights struct {
	Inventory  decimal.Decimal
	Liquidity  decimal.Decimal
	Volatility decimal.Decimal
}

// DefaultWeights returns the equal-thirds default.
func DefaultWeights() Weights {
	third := decimal.NewFromInt(1)
	return Weights{Inventory: third, Liquidity: third, Volatility: third}
}

// Scorer combines inventory, liquidity, and volatility exposure into a
// single [0,100] score.
type Scorer struct {
	weights Weights
	total   decimal.Decimal
}

// New creates a Scorer. Non-positive weight sets fall back to equal thirds.
func New(w Weights) *Scorer {
	total := w.Inventory.Add(w.Liquidity).Add(w.Volatility)
	if !total.IsPositive() {
		w = DefaultWeights()
		total = w.Inventory.Add(w.Liquidity).Add(w.Volatility)
	}
	return &Scorer{weights: w, total: total}
}

// Score computes the composite risk. tradeSize and poolReserve are in base
// units; a non-positive reserve counts as fully illiquid.
func (s *Scorer) Score(inv domain.InventoryState, tradeSize, poolReserve decimal.Decimal, vol domain.VolatilityContext) domain.RiskScore {
	invRisk := inv.SkewFraction().Abs()

	liqRisk := one
	if poolReserve.IsPositive() {
		liqRisk = clamp01(tradeSize.Div(poolReserve))
	}

	volRisk := volatilityWeight(vol.Blended)

	composite := invRisk.Mul(s.weights.Inventory).
		Add(liqRisk.Mul(s.weights.Liquidity)).
		Add(volRisk.Mul(s.weights.Volatility)).
		Div(s.total).
		Mul(hundred)

	return domain.RiskScore{
		InventoryRisk:  invRisk,
		LiquidityRisk:  liqRisk,
		VolatilityRisk: volRisk,
		Composite:      composite,
	}
}

func volatilityWeight(c domain.VolCategory) decimal.Decimal {
	switch c {
	case domain.VolLow:
		return decimal.NewFromFloat(0.1)
	case domain.VolModerate:
		return decimal.NewFromFloat(0.4)
	case domain.VolHigh:
		return decimal.NewFromFloat(0.7)
	default:
		return one
	}
}

func clamp01(d decimal.Decimal) decimal.Decimal {
	if d.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	if d.GreaterThan(one) {
		return one
	}
	return d
}
