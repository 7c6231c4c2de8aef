package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StrategyType tags which quoting strategy produced a signal.
type StrategyType string

const (
	StrategyTightSpread         StrategyType = "tight_spread"
	StrategyWideSpread          StrategyType = "wide_spread"
	StrategyInventoryManagement StrategyType = "inventory_management"
	StrategyTrendFollowing      StrategyType = "trend_following"
	StrategyVolatilityAdaptive  StrategyType = "volatility_adaptive"
)

// MarketMakingSignal is a two-sided quote around fair value, produced by the
// strategy engine. Bid and ask already include the volatility-widened spread
// and the inventory skew shift.
type MarketMakingSignal struct {
	Seq        uint64          `json:"seq"`
	ID         string          `json:"id"`
	Pair       string          `json:"pair"`
	Strategy   StrategyType    `json:"strategy"`
	FairValue  decimal.Decimal `json:"fair_value"`
	Bid        decimal.Decimal `json:"bid"`
	Ask        decimal.Decimal `json:"ask"`
	SpreadBps  decimal.Decimal `json:"spread_bps"`
	RangeLow   decimal.Decimal `json:"range_low"`
	RangeHigh  decimal.Decimal `json:"range_high"`
	Risk       RiskScore       `json:"risk"`
	Volatility VolCategory     `json:"volatility"`
	Trend      VolTrend        `json:"trend"`
	CreatedAt  time.Time       `json:"created_at"`
}
