package domain

import "github.com/shopspring/decimal"

// RiskScore is the composite pre-quote risk assessment. The three component
// risks are each clamped to [0,1]; Composite is their weighted sum scaled to
// [0,100].
type RiskScore struct {
	InventoryRisk  decimal.Decimal `json:"inventory_risk"`
	LiquidityRisk  decimal.Decimal `json:"liquidity_risk"`
	VolatilityRisk decimal.Decimal `json:"volatility_risk"`
	Composite      decimal.Decimal `json:"composite"`
}

// Exceeds reports whether the composite score is above the given ceiling.
func (r RiskScore) Exceeds(ceiling decimal.Decimal) bool {
	return r.Composite.GreaterThan(ceiling)
}
