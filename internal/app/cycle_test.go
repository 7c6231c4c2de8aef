package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ironcrypto/aero-arb-mm-bot/internal/detector"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/domain"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/feed"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/mm"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/output"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/reliability"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/risk"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/sim"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/volatility"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type stubGas struct {
	gwei decimal.Decimal
	err  error
}

func (s *stubGas) GasPriceGwei(context.Context) (decimal.Decimal, error) {
	return s.gwei, s.err
}

type busCapture struct {
	channels []string
	payloads [][]byte
}

func (b *busCapture) Publish(_ context.Context, channel string, payload []byte) error {
	b.channels = append(b.channels, channel)
	b.payloads = append(b.payloads, payload)
	return nil
}

func (b *busCapture) count(channel string) int {
	n := 0
	for _, c := range b.channels {
		if c == channel {
			n++
		}
	}
	return n
}

type cycleFixture struct {
	cycle *Cycle
	store *feed.Store
	bus   *busCapture
	gas   *stubGas
}

func newCycleFixture(t *testing.T, simulator *sim.Simulator, inv *domain.Inventory) *cycleFixture {
	t.Helper()
	store := feed.NewStore()
	f := newCycleFixtureWith(t, store, simulator, inv)
	f.store = store
	return f
}

func newCycleFixtureWith(t *testing.T, reader domain.SnapshotReader, simulator *sim.Simulator, inv *domain.Inventory) *cycleFixture {
	t.Helper()
	logger := slog.Default()
	bus := &busCapture{}
	sink := output.NewSink(t.TempDir(), nil, bus, logger)
	t.Cleanup(func() { _ = sink.Close() })

	gas := &stubGas{gwei: dec("0.5")}

	detCfg := detector.DefaultConfig()
	detCfg.TradeSize = dec("0.1")
	detCfg.MinProfit = dec("0.50")
	detCfg.SlippageToleranceBps = dec("1")

	if inv == nil {
		inv = domain.NewInventory(dec("1"))
	}

	c := NewCycle(
		CycleConfig{
			Pair:            "WETH/USDC",
			Interval:        time.Second,
			StalenessBound:  10 * time.Second,
			TradeSize:       dec("0.1"),
			FallbackGasGwei: dec("20"),
		},
		reader,
		volatility.New("WETH/USDC", volatility.DefaultConfig()),
		detector.New(detCfg),
		risk.New(risk.DefaultWeights()),
		mm.New(mm.DefaultConfig()),
		simulator,
		inv,
		sink,
		gas,
		reliability.NewBreaker("gas_test", reliability.DefaultBreakerConfig(), logger),
		logger,
	)
	return &cycleFixture{cycle: c, bus: bus, gas: gas}
}

func putSnapshots(store *feed.Store, dexPrice, cexPrice string) {
	store.Put(domain.PriceSnapshot{
		Source:       domain.SourceDEX,
		Pair:         "WETH/USDC",
		Price:        dec(dexPrice),
		ReserveBase:  dec("1000"),
		ReserveQuote: dec(dexPrice).Mul(dec("1000")),
	})
	store.Put(domain.PriceSnapshot{
		Source: domain.SourceCEX,
		Pair:   "WETH/USDC",
		Price:  dec(cexPrice),
	})
}

func TestCycleSkipsWithoutSnapshots(t *testing.T) {
	f := newCycleFixture(t, nil, nil)

	f.cycle.step(context.Background())

	if f.cycle.skipped != 1 {
		t.Fatalf("skipped = %d, want 1", f.cycle.skipped)
	}
	if len(f.bus.channels) != 0 {
		t.Fatalf("published %d records on an empty store", len(f.bus.channels))
	}
}

func TestCycleRejectsStaleSnapshots(t *testing.T) {
	f := newCycleFixture(t, nil, nil)
	putSnapshots(f.store, "3000", "3010")
	f.cycle.now = func() time.Time { return time.Now().Add(time.Minute) }

	f.cycle.step(context.Background())

	if f.cycle.rejections != 1 {
		t.Fatalf("rejections = %d, want 1", f.cycle.rejections)
	}
	if got := f.bus.count(output.ChannelOpportunities); got != 1 {
		t.Fatalf("opportunity-stream records = %d, want 1", got)
	}
	var rej domain.OpportunityRejection
	if err := json.Unmarshal(f.bus.payloads[0], &rej); err != nil {
		t.Fatalf("unmarshal rejection: %v", err)
	}
	if rej.Reason != domain.RejectStaleSnapshot {
		t.Fatalf("reason = %s, want stale_snapshot", rej.Reason)
	}
	if rej.Seq == 0 {
		t.Fatal("rejection missing sequence number")
	}
}

func TestCycleEmitsOpportunityAndSignal(t *testing.T) {
	f := newCycleFixture(t, nil, nil)
	putSnapshots(f.store, "3000", "3010")

	f.cycle.step(context.Background())

	if f.cycle.opportunities != 1 {
		t.Fatalf("opportunities = %d, want 1", f.cycle.opportunities)
	}
	if f.cycle.signals != 1 {
		t.Fatalf("signals = %d, want 1", f.cycle.signals)
	}

	var opp domain.ArbitrageOpportunity
	if err := json.Unmarshal(f.bus.payloads[0], &opp); err != nil {
		t.Fatalf("unmarshal opportunity: %v", err)
	}
	if opp.Direction != domain.BuyDexSellCex {
		t.Fatalf("direction = %s, want buy_dex_sell_cex", opp.Direction)
	}
	if !opp.NetProfit.IsPositive() {
		t.Fatalf("net profit = %s, want positive", opp.NetProfit)
	}

	var sig domain.MarketMakingSignal
	if err := json.Unmarshal(f.bus.payloads[1], &sig); err != nil {
		t.Fatalf("unmarshal signal: %v", err)
	}
	if !sig.FairValue.Equal(dec("3010")) {
		t.Fatalf("fair value = %s, want 3010 (the exchange mid)", sig.FairValue)
	}
	if !sig.Bid.LessThan(sig.Ask) {
		t.Fatalf("crossed quote: bid %s >= ask %s", sig.Bid, sig.Ask)
	}
}

func TestCycleSimulatesAcceptedOpportunities(t *testing.T) {
	simCfg := sim.DefaultConfig()
	// Wide bounds so the execution cannot fail on gas or slippage; the
	// record is written either way.
	simCfg.MaxGasPriceGwei = dec("10000")
	simCfg.SlippageToleranceBps = dec("10000")
	inv := domain.NewInventory(dec("1"))
	simulator := sim.New(simCfg, inv, rand.New(rand.NewSource(7)))

	f := newCycleFixture(t, simulator, inv)
	putSnapshots(f.store, "3000", "3010")

	f.cycle.step(context.Background())

	if f.cycle.executions != 1 {
		t.Fatalf("executions = %d, want 1", f.cycle.executions)
	}
	if got := f.bus.count(output.ChannelExecutions); got != 1 {
		t.Fatalf("execution-stream records = %d, want 1", got)
	}
	var exec domain.SimulatedExecution
	if err := json.Unmarshal(f.bus.payloads[len(f.bus.payloads)-1], &exec); err != nil {
		t.Fatalf("unmarshal execution: %v", err)
	}
	if exec.RefID == "" {
		t.Fatal("execution not linked to its opportunity")
	}
}

func TestCycleUsesFallbackGasOnFetchError(t *testing.T) {
	f := newCycleFixture(t, nil, nil)
	putSnapshots(f.store, "3000", "3010")
	f.gas.err = domain.Transient("rpc", errors.New("timeout"))

	f.cycle.step(context.Background())

	// At the 20 gwei fallback the gas cost swamps the spread, so the
	// candidate is rejected as unprofitable rather than emitted.
	if f.cycle.opportunities != 0 {
		t.Fatalf("opportunities = %d, want 0", f.cycle.opportunities)
	}
	var rej domain.OpportunityRejection
	if err := json.Unmarshal(f.bus.payloads[0], &rej); err != nil {
		t.Fatalf("unmarshal rejection: %v", err)
	}
	if rej.Reason != domain.RejectUnprofitable {
		t.Fatalf("reason = %s, want unprofitable", rej.Reason)
	}
}

// staticReader serves fixed snapshots, standing in for the feed store.
type staticReader struct {
	dex, cex domain.PriceSnapshot
}

func (r staticReader) Latest(source domain.Source) (domain.PriceSnapshot, bool) {
	if source == domain.SourceDEX {
		return r.dex, true
	}
	return r.cex, true
}

func TestCycleReadsAnySnapshotReader(t *testing.T) {
	now := time.Now().UTC()
	reader := staticReader{
		dex: domain.PriceSnapshot{
			Source: domain.SourceDEX, Pair: "WETH/USDC", Price: dec("3000"),
			ReserveBase: dec("1000"), ReserveQuote: dec("3000000"),
			Timestamp: now, Sequence: 1,
		},
		cex: domain.PriceSnapshot{
			Source: domain.SourceCEX, Pair: "WETH/USDC", Price: dec("3010"),
			Timestamp: now, Sequence: 2,
		},
	}
	f := newCycleFixtureWith(t, reader, nil, nil)

	f.cycle.step(context.Background())

	if f.cycle.opportunities != 1 {
		t.Fatalf("opportunities = %d, want 1", f.cycle.opportunities)
	}
}

func TestCycleObservesEachSnapshotOnce(t *testing.T) {
	f := newCycleFixture(t, nil, nil)
	putSnapshots(f.store, "3000", "3010")

	f.cycle.step(context.Background())
	seq := f.cycle.lastObserved
	f.cycle.step(context.Background())

	if f.cycle.lastObserved != seq {
		t.Fatalf("re-observed snapshot: lastObserved moved %d -> %d", seq, f.cycle.lastObserved)
	}

	putSnapshots(f.store, "3000", "3011")
	f.cycle.step(context.Background())
	if f.cycle.lastObserved <= seq {
		t.Fatal("new snapshot was not observed")
	}
}
