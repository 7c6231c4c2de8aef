package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction indicates which leg buys and which sells.
type Direction string

const (
	BuyDexSellCex Direction = "buy_dex_sell_cex"
	BuyCexSellDex Direction = "buy_cex_sell_dex"
)

// RejectReason is a typed rejection emitted by the detector (or the cycle's
// staleness gate) instead of an opportunity. Expected, recorded, never fatal.
type RejectReason string

const (
	RejectBelowThreshold  RejectReason = "below_threshold"
	RejectPriceSanity     RejectReason = "price_sanity_failed"
	RejectLiquidity       RejectReason = "liquidity_insufficient"
	RejectUnprofitable    RejectReason = "unprofitable"
	RejectVolatilityGuard RejectReason = "volatility_guard_triggered"
	RejectStaleSnapshot   RejectReason = "stale_snapshot"
)

// ValidationFlags records the outcome of every validation layer, for audit.
// A layer that was never reached stays false; AllPassed is set only when the
// full chain ran clean.
type ValidationFlags struct {
	PriceSanity     bool `json:"price_sanity"`
	Liquidity       bool `json:"liquidity"`
	GasEconomics    bool `json:"gas_economics"`
	VolatilityGuard bool `json:"volatility_guard"`
	AllPassed       bool `json:"all_passed"`
}

// ArbitrageOpportunity is a validated price discrepancy between the pool and
// the exchange. Created only by the detector; immutable and terminal once
// emitted.
type ArbitrageOpportunity struct {
	Seq              uint64          `json:"seq"`
	ID               string          `json:"id"`
	Pair             string          `json:"pair"`
	Direction        Direction       `json:"direction"`
	TradeSize        decimal.Decimal `json:"trade_size"`
	DexPriceEff      decimal.Decimal `json:"dex_price_effective"`
	CexPrice         decimal.Decimal `json:"cex_price"`
	SpreadPct        decimal.Decimal `json:"spread_pct"`
	GrossProfit      decimal.Decimal `json:"gross_profit"`
	GasCost          decimal.Decimal `json:"gas_cost"`
	SlippageEstimate decimal.Decimal `json:"slippage_estimate"`
	NetProfit        decimal.Decimal `json:"net_profit"`
	ROIPct           decimal.Decimal `json:"roi_pct"`
	Validation       ValidationFlags `json:"validation"`
	CreatedAt        time.Time       `json:"created_at"`
}

// OpportunityRejection records why a candidate was dropped, with the prices
// that were compared. Written to the same output stream as opportunities.
type OpportunityRejection struct {
	Seq       uint64          `json:"seq"`
	Pair      string          `json:"pair"`
	Reason    RejectReason    `json:"reason"`
	Detail    string          `json:"detail,omitempty"`
	DexPrice  decimal.Decimal `json:"dex_price"`
	CexPrice  decimal.Decimal `json:"cex_price"`
	CreatedAt time.Time       `json:"created_at"`
}
