// Package sim models execution of detected opportunities under sampled gas,
// slippage, and latency conditions. Paper only; no real funds are involved.
package sim

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ironcrypto/aero-arb-mm-bot/internal/domain"
)

var (
	tenThouBps = decimal.NewFromInt(10_000)
	gweiPerEth = decimal.New(1, 9)
)

// Config tunes the simulation model.
type Config struct {
	// BaseGasGwei is the center of the lognormal gas price sample.
	BaseGasGwei decimal.Decimal

	// MaxGasPriceGwei bounds the sampled gas price; samples above it fail
	// the execution.
	MaxGasPriceGwei decimal.Decimal

	// GasUnits is the fixed per-swap gas estimate.
	GasUnits uint64

	// SlippageToleranceBps fails executions whose sampled slippage is wider.
	SlippageToleranceBps decimal.Decimal

	// RiskCeiling refuses simulation outright when the composite risk score
	// is above it.
	RiskCeiling decimal.Decimal
}

// DefaultConfig returns the simulation defaults.
func DefaultConfig() Config {
	return Config{
		BaseGasGwei:          decimal.NewFromInt(20),
		MaxGasPriceGwei:      decimal.NewFromInt(50),
		GasUnits:             150_000,
		SlippageToleranceBps: decimal.NewFromInt(50),
		RiskCeiling:          decimal.NewFromInt(80),
	}
}

// Simulator draws every stochastic input from the injected rand.Rand, so a
// fixed seed reproduces the full execution stream. Not safe for concurrent
// use; the cycle goroutine owns it.
type Simulator struct {
	cfg Config
	inv *domain.Inventory
	rng *rand.Rand
	now func() time.Time
}

// New creates a Simulator around the given inventory and random source.
func New(cfg Config, inv *domain.Inventory, rng *rand.Rand) *Simulator {
	def := DefaultConfig()
	if !cfg.BaseGasGwei.IsPositive() {
		cfg.BaseGasGwei = def.BaseGasGwei
	}
	if !cfg.MaxGasPriceGwei.IsPositive() {
		cfg.MaxGasPriceGwei = def.MaxGasPriceGwei
	}
	if cfg.GasUnits == 0 {
		cfg.GasUnits = def.GasUnits
	}
	if !cfg.SlippageToleranceBps.IsPositive() {
		cfg.SlippageToleranceBps = def.SlippageToleranceBps
	}
	if !cfg.RiskCeiling.IsPositive() {
		cfg.RiskCeiling = def.RiskCeiling
	}
	return &Simulator{cfg: cfg, inv: inv, rng: rng, now: time.Now}
}

// Simulate executes one opportunity on paper. It refuses with ErrRiskCeiling
// when the composite risk is above the configured ceiling; every other
// failure mode is data on the returned record. A successful execution
// applies the on-chain leg's fill to the inventory.
func (s *Simulator) Simulate(opp domain.ArbitrageOpportunity, vol domain.VolatilityContext, score domain.RiskScore) (domain.SimulatedExecution, error) {
	if score.Exceeds(s.cfg.RiskCeiling) {
		return domain.SimulatedExecution{}, domain.ErrRiskCeiling
	}

	// Fixed draw order keeps a seeded run reproducible: gas, slippage,
	// latency, then the stochastic failure.
	gasGwei := s.sampleGas()
	slippageBps := s.sampleSlippage(vol)
	latency := s.sampleLatency(vol)
	failRoll := s.rng.Float64()

	exec := domain.SimulatedExecution{
		ID:             uuid.NewString(),
		RefID:          opp.ID,
		Pair:           opp.Pair,
		Direction:      opp.Direction,
		GasUsed:        s.cfg.GasUnits,
		GasPriceGwei:   gasGwei,
		SlippageBps:    slippageBps,
		LatencyMs:      latency,
		ExpectedProfit: opp.NetProfit,
		CreatedAt:      s.now(),
	}

	if gasGwei.GreaterThan(s.cfg.MaxGasPriceGwei) {
		exec.Outcome = domain.ExecFailed
		exec.FailReason = domain.FailGasPriceExceeded
		return exec, nil
	}
	if slippageBps.GreaterThan(s.cfg.SlippageToleranceBps) {
		exec.Outcome = domain.ExecFailed
		exec.FailReason = domain.FailSlippageExceeded
		return exec, nil
	}
	if failRoll < s.failureProbability(vol, gasGwei) {
		exec.Outcome = domain.ExecFailed
		exec.FailReason = domain.FailSimulatedNetwork
		return exec, nil
	}

	notional := opp.TradeSize.Mul(opp.CexPrice)
	gasCost := gasGwei.Mul(decimal.NewFromInt(int64(s.cfg.GasUnits))).Div(gweiPerEth).Mul(opp.CexPrice)
	slippageCost := notional.Mul(slippageBps).Div(tenThouBps)

	exec.Outcome = domain.ExecSuccess
	exec.RealizedProfit = opp.GrossProfit.Sub(gasCost).Sub(slippageCost)

	if s.inv != nil {
		delta := opp.TradeSize
		if opp.Direction == domain.BuyCexSellDex {
			delta = delta.Neg()
		}
		s.inv.ApplyFill(delta)
	}
	return exec, nil
}

// sampleGas draws a lognormal gas price centered on BaseGasGwei. The
// distribution is unbounded above, so spikes past the max occur naturally.
func (s *Simulator) sampleGas() decimal.Decimal {
	factor := math.Exp(s.rng.NormFloat64() * 0.35)
	return s.cfg.BaseGasGwei.Mul(decimal.NewFromFloat(factor)).Round(4)
}

// sampleSlippage draws uniform slippage up to the tolerance, widened by the
// volatility category factor. Under Low volatility it never exceeds the
// tolerance; under Extreme it does two times in three.
func (s *Simulator) sampleSlippage(vol domain.VolatilityContext) decimal.Decimal {
	factor := categoryFactor(vol.Blended)
	draw := decimal.NewFromFloat(s.rng.Float64())
	return s.cfg.SlippageToleranceBps.Mul(factor).Mul(draw).Round(4)
}

// sampleLatency adds a category floor to a uniform 0-100ms confirmation
// sample. Recorded only; latency never fails an execution.
func (s *Simulator) sampleLatency(vol domain.VolatilityContext) int64 {
	floors := [...]int64{0, 50, 150, 300}
	step := vol.CategoryStep()
	if step < 0 {
		step = 0
	}
	if step >= len(floors) {
		step = len(floors) - 1
	}
	return floors[step] + s.rng.Int63n(100)
}

// failureProbability is 2% at baseline, +1% per volatility step, +1% under
// gas pressure (sample above 80% of the bound).
func (s *Simulator) failureProbability(vol domain.VolatilityContext, gasGwei decimal.Decimal) float64 {
	p := 0.02 + 0.01*float64(vol.CategoryStep())
	pressure := s.cfg.MaxGasPriceGwei.Mul(decimal.NewFromFloat(0.8))
	if gasGwei.GreaterThan(pressure) {
		p += 0.01
	}
	return p
}

func categoryFactor(c domain.VolCategory) decimal.Decimal {
	switch c {
	case domain.VolLow:
		return decimal.NewFromInt(1)
	case domain.VolModerate:
		return decimal.NewFromFloat(1.5)
	case domain.VolHigh:
		return decimal.NewFromInt(2)
	default:
		return decimal.NewFromInt(3)
	}
}
