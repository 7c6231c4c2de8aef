package sim

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ironcrypto/aero-arb-mm-bot/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testOpp() domain.ArbitrageOpportunity {
	return domain.ArbitrageOpportunity{
		ID:          "opp-1",
		Pair:        "WETH/USDC",
		Direction:   domain.BuyDexSellCex,
		TradeSize:   dec("0.1"),
		DexPriceEff: dec("3000"),
		CexPrice:    dec("3010"),
		GrossProfit: dec("1"),
		NetProfit:   dec("0.74"),
	}
}

func calmVol() domain.VolatilityContext {
	return domain.VolatilityContext{
		Blended:          domain.VolLow,
		Trend:            domain.TrendStable,
		SpreadMultiplier: dec("1"),
		SizeMultiplier:   dec("1"),
	}
}

// Generous bounds so only the 2% stochastic failure can trip.
func lenientConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxGasPriceGwei = dec("1000000")
	cfg.SlippageToleranceBps = dec("100")
	return cfg
}

func TestSimulateSeedDeterminism(t *testing.T) {
	opp := testOpp()
	vol := calmVol()

	run := func() []domain.SimulatedExecution {
		s := New(lenientConfig(), nil, rand.New(rand.NewSource(42)))
		out := make([]domain.SimulatedExecution, 0, 25)
		for i := 0; i < 25; i++ {
			exec, err := s.Simulate(opp, vol, domain.RiskScore{})
			if err != nil {
				t.Fatal(err)
			}
			out = append(out, exec)
		}
		return out
	}

	a, b := run(), run()
	for i := range a {
		if !a[i].GasPriceGwei.Equal(b[i].GasPriceGwei) {
			t.Fatalf("run diverged at %d: gas %s vs %s", i, a[i].GasPriceGwei, b[i].GasPriceGwei)
		}
		if !a[i].SlippageBps.Equal(b[i].SlippageBps) {
			t.Fatalf("run diverged at %d: slippage %s vs %s", i, a[i].SlippageBps, b[i].SlippageBps)
		}
		if a[i].LatencyMs != b[i].LatencyMs {
			t.Fatalf("run diverged at %d: latency %d vs %d", i, a[i].LatencyMs, b[i].LatencyMs)
		}
		if a[i].Outcome != b[i].Outcome || a[i].FailReason != b[i].FailReason {
			t.Fatalf("run diverged at %d: %s/%s vs %s/%s", i, a[i].Outcome, a[i].FailReason, b[i].Outcome, b[i].FailReason)
		}
		if !a[i].RealizedProfit.Equal(b[i].RealizedProfit) {
			t.Fatalf("run diverged at %d: realized %s vs %s", i, a[i].RealizedProfit, b[i].RealizedProfit)
		}
	}
}

func TestSimulateRefusesAboveRiskCeiling(t *testing.T) {
	s := New(DefaultConfig(), nil, rand.New(rand.NewSource(1)))
	_, err := s.Simulate(testOpp(), calmVol(), domain.RiskScore{Composite: dec("90")})
	if !errors.Is(err, domain.ErrRiskCeiling) {
		t.Fatalf("err = %v, want ErrRiskCeiling", err)
	}
}

func TestSimulateGasBoundFails(t *testing.T) {
	cfg := lenientConfig()
	cfg.BaseGasGwei = dec("20")
	cfg.MaxGasPriceGwei = dec("0.1")
	s := New(cfg, nil, rand.New(rand.NewSource(7)))

	exec, err := s.Simulate(testOpp(), calmVol(), domain.RiskScore{})
	if err != nil {
		t.Fatal(err)
	}
	if exec.Outcome != domain.ExecFailed || exec.FailReason != domain.FailGasPriceExceeded {
		t.Fatalf("outcome = %s/%s, want failed/gas_price_exceeded", exec.Outcome, exec.FailReason)
	}
	if !exec.RealizedProfit.IsZero() {
		t.Fatalf("failed execution realized %s, want 0", exec.RealizedProfit)
	}
}

func TestSimulateExtremeVolatilityWidensSlippage(t *testing.T) {
	cfg := lenientConfig()
	vol := calmVol()
	vol.Blended = domain.VolExtreme
	vol.SpreadMultiplier = dec("3")
	s := New(cfg, nil, rand.New(rand.NewSource(3)))

	slipFails := 0
	for i := 0; i < 50; i++ {
		exec, err := s.Simulate(testOpp(), vol, domain.RiskScore{})
		if err != nil {
			t.Fatal(err)
		}
		if exec.FailReason == domain.FailSlippageExceeded {
			slipFails++
		}
	}
	// Extreme widens the draw to 3x tolerance: exceedance rate ~2/3.
	if slipFails == 0 {
		t.Fatal("no slippage failures across 50 extreme-volatility executions")
	}
}

func TestSimulateLowVolatilityNeverExceedsTolerance(t *testing.T) {
	s := New(lenientConfig(), nil, rand.New(rand.NewSource(11)))
	for i := 0; i < 100; i++ {
		exec, err := s.Simulate(testOpp(), calmVol(), domain.RiskScore{})
		if err != nil {
			t.Fatal(err)
		}
		if exec.FailReason == domain.FailSlippageExceeded {
			t.Fatalf("slippage failure under low volatility at draw %d (%s bps)", i, exec.SlippageBps)
		}
	}
}

func TestSimulateAppliesFillsToInventory(t *testing.T) {
	inv := domain.NewInventory(dec("10"))
	s := New(lenientConfig(), inv, rand.New(rand.NewSource(5)))
	opp := testOpp()

	successes := 0
	for i := 0; i < 100; i++ {
		exec, err := s.Simulate(opp, calmVol(), domain.RiskScore{})
		if err != nil {
			t.Fatal(err)
		}
		if exec.Outcome == domain.ExecSuccess {
			successes++
		}
	}
	if successes == 0 {
		t.Fatal("no successful executions in 100 lenient runs")
	}
	want := opp.TradeSize.Mul(decimal.NewFromInt(int64(successes)))
	if !inv.State().Position.Equal(want) {
		t.Fatalf("position = %s after %d fills, want %s", inv.State().Position, successes, want)
	}

	// The opposite direction unwinds.
	opp.Direction = domain.BuyCexSellDex
	before := inv.State().Position
	for {
		exec, err := s.Simulate(opp, calmVol(), domain.RiskScore{})
		if err != nil {
			t.Fatal(err)
		}
		if exec.Outcome == domain.ExecSuccess {
			break
		}
	}
	if !inv.State().Position.Equal(before.Sub(opp.TradeSize)) {
		t.Fatalf("sell fill did not reduce position: %s", inv.State().Position)
	}
}

func TestSimulateRealizedProfitChain(t *testing.T) {
	s := New(lenientConfig(), nil, rand.New(rand.NewSource(9)))
	opp := testOpp()
	for i := 0; i < 200; i++ {
		exec, err := s.Simulate(opp, calmVol(), domain.RiskScore{})
		if err != nil {
			t.Fatal(err)
		}
		if exec.Outcome != domain.ExecSuccess {
			continue
		}
		gas := exec.GasPriceGwei.Mul(decimal.NewFromInt(150_000)).Div(decimal.New(1, 9)).Mul(opp.CexPrice)
		slip := opp.TradeSize.Mul(opp.CexPrice).Mul(exec.SlippageBps).Div(decimal.NewFromInt(10_000))
		want := opp.GrossProfit.Sub(gas).Sub(slip)
		if !exec.RealizedProfit.Equal(want) {
			t.Fatalf("realized = %s, want %s", exec.RealizedProfit, want)
		}
		return
	}
	t.Fatal("no successful execution to verify")
}
