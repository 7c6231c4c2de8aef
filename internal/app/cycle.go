package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ironcrypto/aero-arb-mm-bot/internal/detector"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/domain"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/mm"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/output"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/reliability"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/risk"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/sim"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/volatility"
)

// healthEvery is the number of cycles between health log lines.
const healthEvery = 60

// GasSource supplies the current chain gas price in gwei.
type GasSource interface {
	GasPriceGwei(ctx context.Context) (decimal.Decimal, error)
}

// CycleConfig paces the detection loop.
type CycleConfig struct {
	Pair            string
	Interval        time.Duration
	StalenessBound  time.Duration
	TradeSize       decimal.Decimal
	FallbackGasGwei decimal.Decimal
}

// Cycle is the single-goroutine detection loop. On each tick it reads the
// latest snapshot from both venues, updates the volatility windows, runs
// detection, scores risk, derives a quoting signal, and optionally simulates
// accepted opportunities. All stochastic and stateful components (analyzer,
// inventory, simulator RNG) are owned exclusively by this goroutine.
type Cycle struct {
	cfg      CycleConfig
	store    domain.SnapshotReader
	analyzer *volatility.Analyzer
	detector *detector.Detector
	scorer   *risk.Scorer
	quoter   *mm.Engine     // nil when market making is disabled
	sim      *sim.Simulator // nil when execution simulation is disabled
	inv      *domain.Inventory
	sink     *output.Sink
	gas      GasSource
	gasBrk   *reliability.Breaker
	logger   *slog.Logger
	now      func() time.Time

	lastObserved uint64

	// counters for the periodic health line
	cycles        uint64
	skipped       uint64
	opportunities uint64
	rejections    uint64
	signals       uint64
	executions    uint64
	simRefusals   uint64
}

// NewCycle assembles the detection loop. quoter and simulator may be nil to
// disable their stages.
func NewCycle(
	cfg CycleConfig,
	store domain.SnapshotReader,
	analyzer *volatility.Analyzer,
	det *detector.Detector,
	scorer *risk.Scorer,
	quoter *mm.Engine,
	simulator *sim.Simulator,
	inv *domain.Inventory,
	sink *output.Sink,
	gas GasSource,
	gasBrk *reliability.Breaker,
	logger *slog.Logger,
) *Cycle {
	return &Cycle{
		cfg:      cfg,
		store:    store,
		analyzer: analyzer,
		detector: det,
		scorer:   scorer,
		quoter:   quoter,
		sim:      simulator,
		inv:      inv,
		sink:     sink,
		gas:      gas,
		gasBrk:   gasBrk,
		logger:   logger.With(slog.String("component", "cycle")),
		now:      time.Now,
	}
}

// Run ticks until ctx is cancelled. Detection-path errors are recorded or
// logged, never returned; only ctx cancellation ends the loop.
func (c *Cycle) Run(ctx context.Context) error {
	c.logger.InfoContext(ctx, "detection cycle starting",
		slog.String("pair", c.cfg.Pair),
		slog.Duration("interval", c.cfg.Interval),
		slog.Duration("staleness_bound", c.cfg.StalenessBound),
		slog.Bool("market_making", c.quoter != nil),
		slog.Bool("execution_sim", c.sim != nil),
	)

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("detection cycle stopped")
			return nil
		case <-ticker.C:
			c.step(ctx)
			c.cycles++
			if c.cycles%healthEvery == 0 {
				c.logHealth()
			}
		}
	}
}

// step runs one detection pass.
func (c *Cycle) step(ctx context.Context) {
	now := c.now()

	dex, okDex := c.store.Latest(domain.SourceDEX)
	cex, okCex := c.store.Latest(domain.SourceCEX)
	if !okDex || !okCex {
		c.skipped++
		c.logger.DebugContext(ctx, "cycle skipped",
			slog.String("error", domain.ErrNoSnapshot.Error()),
			slog.Bool("have_dex", okDex),
			slog.Bool("have_cex", okCex),
		)
		return
	}

	// Feed the volatility windows from the exchange mid-price; the pollers
	// may be slower than the cycle, so only new snapshots count.
	if cex.Sequence > c.lastObserved {
		c.analyzer.Observe(cex)
		c.lastObserved = cex.Sequence
	}

	if dex.Age(now) > c.cfg.StalenessBound || cex.Age(now) > c.cfg.StalenessBound {
		c.rejections++
		c.logger.DebugContext(ctx, "cycle rejected",
			slog.String("error", domain.ErrStaleSnapshot.Error()),
			slog.Duration("dex_age", dex.Age(now)),
			slog.Duration("cex_age", cex.Age(now)),
		)
		c.sink.RecordRejection(ctx, domain.OpportunityRejection{
			Pair:   c.cfg.Pair,
			Reason: domain.RejectStaleSnapshot,
			Detail: fmt.Sprintf("dex age %s, cex age %s, bound %s",
				dex.Age(now).Truncate(time.Millisecond),
				cex.Age(now).Truncate(time.Millisecond),
				c.cfg.StalenessBound),
			DexPrice:  dex.Price,
			CexPrice:  cex.Price,
			CreatedAt: now,
		})
		return
	}

	vol := c.analyzer.Context()
	gasGwei := c.sampleGas(ctx)

	var accepted *domain.ArbitrageOpportunity
	opp, rej := c.detector.Detect(dex, cex, vol, gasGwei)
	switch {
	case opp != nil:
		c.opportunities++
		stamped := c.sink.RecordOpportunity(ctx, *opp)
		accepted = &stamped
		c.logger.InfoContext(ctx, "arbitrage opportunity",
			slog.String("id", stamped.ID),
			slog.String("direction", string(stamped.Direction)),
			slog.String("spread_pct", stamped.SpreadPct.StringFixed(4)),
			slog.String("net_profit", stamped.NetProfit.StringFixed(4)),
		)
	case rej != nil:
		c.rejections++
		c.sink.RecordRejection(ctx, *rej)
	}

	invState := c.inv.State()
	score := c.scorer.Score(invState, c.cfg.TradeSize, dex.ReserveBase, vol)

	if c.quoter != nil {
		if sig := c.quoter.Quote(cex.Price, invState, vol, score); sig != nil {
			c.signals++
			stamped := c.sink.RecordSignal(ctx, *sig)
			c.logger.DebugContext(ctx, "market making signal",
				slog.String("strategy", string(stamped.Strategy)),
				slog.String("bid", stamped.Bid.StringFixed(2)),
				slog.String("ask", stamped.Ask.StringFixed(2)),
			)
		}
	}

	if c.sim != nil && accepted != nil {
		exec, err := c.sim.Simulate(*accepted, vol, score)
		if err != nil {
			if errors.Is(err, domain.ErrRiskCeiling) {
				c.simRefusals++
				c.logger.DebugContext(ctx, "simulation refused",
					slog.String("opportunity_id", accepted.ID),
					slog.String("composite_risk", score.Composite.StringFixed(2)),
				)
			} else {
				c.logger.WarnContext(ctx, "simulation failed",
					slog.String("opportunity_id", accepted.ID),
					slog.String("error", err.Error()),
				)
			}
			return
		}
		c.executions++
		c.sink.RecordExecution(ctx, exec)
	}
}

// sampleGas reads the chain gas price through the RPC breaker, falling back
// to the configured static price when the chain is unreachable.
func (c *Cycle) sampleGas(ctx context.Context) decimal.Decimal {
	var gwei decimal.Decimal
	err := c.gasBrk.Do(ctx, func(ctx context.Context) error {
		var err error
		gwei, err = c.gas.GasPriceGwei(ctx)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrCircuitOpen) {
			c.logger.DebugContext(ctx, "gas price unavailable, using fallback",
				slog.String("error", err.Error()))
		} else {
			c.logger.WarnContext(ctx, "gas price fetch failed, using fallback",
				slog.String("error", err.Error()),
				slog.String("fallback_gwei", c.cfg.FallbackGasGwei.String()))
		}
		return c.cfg.FallbackGasGwei
	}
	return gwei
}

func (c *Cycle) logHealth() {
	inv := c.inv.State()
	c.logger.Info("engine health",
		slog.Uint64("cycles", c.cycles),
		slog.Uint64("skipped", c.skipped),
		slog.Uint64("opportunities", c.opportunities),
		slog.Uint64("rejections", c.rejections),
		slog.Uint64("signals", c.signals),
		slog.Uint64("executions", c.executions),
		slog.Uint64("sim_refusals", c.simRefusals),
		slog.String("position", inv.Position.StringFixed(4)),
	)
}
