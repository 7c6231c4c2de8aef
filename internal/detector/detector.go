// Package detector turns paired DEX/CEX snapshots into validated arbitrage
// opportunities or typed rejections.
package detector

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ironcrypto/aero-arb-mm-bot/internal/domain"
)

var (
	hundred    = decimal.NewFromInt(100)
	tenThouBps = decimal.NewFromInt(10_000)
	gweiPerEth = decimal.New(1, 9)
)

// Config holds the detection thresholds. Zero values are replaced with the
// documented defaults by New.
type Config struct {
	Pair      string
	TradeSize decimal.Decimal

	// MinSpreadPct is the minimum |dex_eff - cex| / cex spread, in percent.
	MinSpreadPct decimal.Decimal

	// MaxDeviationPct bounds how far either venue may drift from its
	// trailing reference price before the candidate is rejected.
	MaxDeviationPct decimal.Decimal

	// MaxPoolFraction is the largest share of the pool's base reserve a
	// trade may consume.
	MaxPoolFraction decimal.Decimal

	// MinProfit is the minimum net profit, in quote units.
	MinProfit decimal.Decimal

	// GasUnits is the fixed per-swap gas estimate.
	GasUnits uint64

	// SlippageToleranceBps seeds the slippage estimate before the
	// volatility factor is applied.
	SlippageToleranceBps decimal.Decimal

	// SafetyChecks disables the sanity/liquidity/volatility layers when
	// false; gas economics always runs.
	SafetyChecks bool
}

// DefaultConfig returns the detection defaults for a WETH/USDC pool.
func DefaultConfig() Config {
	return Config{
		Pair:                 "WETH/USDC",
		TradeSize:            decimal.NewFromFloat(0.1),
		MinSpreadPct:         decimal.NewFromFloat(0.05),
		MaxDeviationPct:      decimal.NewFromInt(10),
		MaxPoolFraction:      decimal.NewFromFloat(0.01),
		MinProfit:            decimal.NewFromInt(1),
		GasUnits:             150_000,
		SlippageToleranceBps: decimal.NewFromInt(50),
		SafetyChecks:         true,
	}
}

// refTTL bounds the age of the sanity reference prices. A reference older
// than this is discarded and reseeded from the next observation, so a
// lasting repricing cannot reject every cycle indefinitely.
const refTTL = 5 * time.Minute

// Detector compares venue snapshots and emits opportunities. It keeps a
// trailing reference price per venue for the sanity layer; not safe for
// concurrent use, the detection cycle owns it.
type Detector struct {
	cfg    Config
	refDex decimal.Decimal
	refCex decimal.Decimal
	refAt  time.Time
	now    func() time.Time
}

// New creates a Detector, filling unset config fields with defaults.
func New(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.Pair == "" {
		cfg.Pair = def.Pair
	}
	if !cfg.TradeSize.IsPositive() {
		cfg.TradeSize = def.TradeSize
	}
	if !cfg.MinSpreadPct.IsPositive() {
		cfg.MinSpreadPct = def.MinSpreadPct
	}
	if !cfg.MaxDeviationPct.IsPositive() {
		cfg.MaxDeviationPct = def.MaxDeviationPct
	}
	if !cfg.MaxPoolFraction.IsPositive() {
		cfg.MaxPoolFraction = def.MaxPoolFraction
	}
	if cfg.GasUnits == 0 {
		cfg.GasUnits = def.GasUnits
	}
	if !cfg.SlippageToleranceBps.IsPositive() {
		cfg.SlippageToleranceBps = def.SlippageToleranceBps
	}
	return &Detector{cfg: cfg, now: time.Now}
}

// Detect evaluates one pair of snapshots under the given volatility context
// and gas price. Exactly one of the returns is non-nil.
func (d *Detector) Detect(dex, cex domain.PriceSnapshot, vol domain.VolatilityContext, gasPriceGwei decimal.Decimal) (*domain.ArbitrageOpportunity, *domain.OpportunityRejection) {
	now := d.now()
	size := d.cfg.TradeSize.Mul(vol.SizeMultiplier)
	if !size.IsPositive() {
		size = d.cfg.TradeSize
	}

	reject := func(reason domain.RejectReason, detail string) *domain.OpportunityRejection {
		return &domain.OpportunityRejection{
			Pair:      d.cfg.Pair,
			Reason:    reason,
			Detail:    detail,
			DexPrice:  dex.Price,
			CexPrice:  cex.Price,
			CreatedAt: now,
		}
	}

	if !cex.Price.IsPositive() || !dex.Price.IsPositive() {
		return nil, reject(domain.RejectPriceSanity, "non-positive price")
	}

	// Effective DEX price for the sized trade against the constant-product
	// reserves: buying base drains ReserveBase, selling adds to it.
	direction := domain.BuyCexSellDex
	if dex.Price.LessThan(cex.Price) {
		direction = domain.BuyDexSellCex
	}
	dexEff, err := effectivePrice(dex, size, direction)
	if err != nil {
		return nil, reject(domain.RejectLiquidity, err.Error())
	}

	spreadPct := dexEff.Sub(cex.Price).Abs().Div(cex.Price).Mul(hundred)
	if spreadPct.LessThan(d.cfg.MinSpreadPct) {
		return nil, reject(domain.RejectBelowThreshold,
			fmt.Sprintf("spread %s%% below minimum %s%%", spreadPct.StringFixed(4), d.cfg.MinSpreadPct))
	}
	var flags domain.ValidationFlags

	if d.cfg.SafetyChecks {
		if detail, ok := d.checkSanity(now, dex.Price, cex.Price); !ok {
			return nil, reject(domain.RejectPriceSanity, detail)
		}
		flags.PriceSanity = true

		if dex.HasReserves() {
			maxSize := dex.ReserveBase.Mul(d.cfg.MaxPoolFraction)
			if size.GreaterThan(maxSize) {
				return nil, reject(domain.RejectLiquidity,
					fmt.Sprintf("size %s exceeds %s of pool base reserve", size, d.cfg.MaxPoolFraction))
			}
		}
		flags.Liquidity = true
	} else {
		flags.PriceSanity = true
		flags.Liquidity = true
	}

	gross := grossProfit(dexEff, cex.Price, size, direction)
	gasCost := gasPriceGwei.Mul(decimal.NewFromInt(int64(d.cfg.GasUnits))).Div(gweiPerEth).Mul(cex.Price)
	slippage := size.Mul(cex.Price).Mul(d.cfg.SlippageToleranceBps).Div(tenThouBps).Mul(vol.SpreadMultiplier)
	net := gross.Sub(gasCost).Sub(slippage)

	if net.LessThan(d.cfg.MinProfit) {
		return nil, reject(domain.RejectUnprofitable,
			fmt.Sprintf("net %s below minimum %s", net.StringFixed(4), d.cfg.MinProfit))
	}
	flags.GasEconomics = true

	if d.cfg.SafetyChecks && vol.Blended == domain.VolExtreme {
		// In extreme volatility the edge must clear a scaled bar, not just
		// the base minimum.
		bar := d.cfg.MinProfit.Mul(vol.SpreadMultiplier)
		if net.LessThan(bar) {
			return nil, reject(domain.RejectVolatilityGuard,
				fmt.Sprintf("extreme volatility, net %s below scaled bar %s", net.StringFixed(4), bar))
		}
	}
	flags.VolatilityGuard = true
	flags.AllPassed = true

	notional := size.Mul(cex.Price)
	roi := decimal.Zero
	if notional.IsPositive() {
		roi = net.Div(notional).Mul(hundred)
	}

	return &domain.ArbitrageOpportunity{
		ID:               uuid.NewString(),
		Pair:             d.cfg.Pair,
		Direction:        direction,
		TradeSize:        size,
		DexPriceEff:      dexEff,
		CexPrice:         cex.Price,
		SpreadPct:        spreadPct,
		GrossProfit:      gross,
		GasCost:          gasCost,
		SlippageEstimate: slippage,
		NetProfit:        net,
		ROIPct:           roi,
		Validation:       flags,
		CreatedAt:        now,
	}, nil
}

// checkSanity compares each venue's price against its trailing reference.
// The first observation (and any observation after the references expire)
// seeds the references and passes; every passing observation becomes the new
// reference, so gradual drift trails along and only sudden jumps reject.
func (d *Detector) checkSanity(now time.Time, dexPrice, cexPrice decimal.Decimal) (string, bool) {
	if now.Sub(d.refAt) > refTTL {
		d.refDex = decimal.Zero
		d.refCex = decimal.Zero
	}

	check := func(venue string, price, ref decimal.Decimal) (string, bool) {
		if !ref.IsPositive() {
			return "", true
		}
		devPct := price.Sub(ref).Abs().Div(ref).Mul(hundred)
		if devPct.GreaterThan(d.cfg.MaxDeviationPct) {
			return fmt.Sprintf("%s price %s deviates %s%% from reference %s",
				venue, price, devPct.StringFixed(2), ref), false
		}
		return "", true
	}
	if detail, ok := check("dex", dexPrice, d.refDex); !ok {
		return detail, false
	}
	if detail, ok := check("cex", cexPrice, d.refCex); !ok {
		return detail, false
	}
	d.refDex = dexPrice
	d.refCex = cexPrice
	d.refAt = now
	return "", true
}

// effectivePrice derives the per-unit price a sized trade would get from the
// constant-product pool. Without usable reserves the spot price stands in.
func effectivePrice(dex domain.PriceSnapshot, size decimal.Decimal, direction domain.Direction) (decimal.Decimal, error) {
	if !dex.HasReserves() {
		return dex.Price, nil
	}
	if direction == domain.BuyDexSellCex {
		// Buying base from the pool: quote in, base out.
		denom := dex.ReserveBase.Sub(size)
		if !denom.IsPositive() {
			return decimal.Zero, fmt.Errorf("trade size %s exceeds pool base reserve %s", size, dex.ReserveBase)
		}
		cost := dex.ReserveQuote.Mul(size).Div(denom)
		return cost.Div(size), nil
	}
	// Selling base into the pool: base in, quote out.
	out := dex.ReserveQuote.Mul(size).Div(dex.ReserveBase.Add(size))
	return out.Div(size), nil
}

func grossProfit(dexEff, cexPrice, size decimal.Decimal, direction domain.Direction) decimal.Decimal {
	if direction == domain.BuyDexSellCex {
		return cexPrice.Sub(dexEff).Mul(size)
	}
	return dexEff.Sub(cexPrice).Mul(size)
}
