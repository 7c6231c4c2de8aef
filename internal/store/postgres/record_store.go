package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ironcrypto/aero-arb-mm-bot/internal/domain"
)

// RecordStore implements domain.RecordStore using PostgreSQL.
type RecordStore struct {
	pool *pgxpool.Pool
}

// NewRecordStore creates a RecordStore backed by the given pool.
func NewRecordStore(pool *pgxpool.Pool) *RecordStore {
	return &RecordStore{pool: pool}
}

// SaveOpportunity inserts one detected opportunity.
func (s *RecordStore) SaveOpportunity(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	const query = `
		INSERT INTO opportunities (
			id, seq, pair, direction, trade_size,
			dex_price_effective, cex_price, spread_pct,
			gross_profit, gas_cost, slippage_estimate, net_profit, roi_pct,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12, $13,
			$14
		)`

	_, err := s.pool.Exec(ctx, query,
		opp.ID, opp.Seq, opp.Pair, string(opp.Direction), opp.TradeSize,
		opp.DexPriceEff, opp.CexPrice, opp.SpreadPct,
		opp.GrossProfit, opp.GasCost, opp.SlippageEstimate, opp.NetProfit, opp.ROIPct,
		opp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// SaveSignal inserts one market-making signal.
func (s *RecordStore) SaveSignal(ctx context.Context, sig domain.MarketMakingSignal) error {
	const query = `
		INSERT INTO mm_signals (
			id, seq, pair, strategy,
			fair_value, bid, ask, spread_bps, range_low, range_high,
			risk_composite, volatility, trend, created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14
		)`

	_, err := s.pool.Exec(ctx, query,
		sig.ID, sig.Seq, sig.Pair, string(sig.Strategy),
		sig.FairValue, sig.Bid, sig.Ask, sig.SpreadBps, sig.RangeLow, sig.RangeHigh,
		sig.Risk.Composite, sig.Volatility.String(), string(sig.Trend), sig.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert signal %s: %w", sig.ID, err)
	}
	return nil
}

// SaveExecution inserts one simulated execution.
func (s *RecordStore) SaveExecution(ctx context.Context, exec domain.SimulatedExecution) error {
	const query = `
		INSERT INTO sim_executions (
			id, seq, ref_id, pair, direction,
			gas_used, gas_price_gwei, slippage_bps, latency_ms,
			outcome, fail_reason, expected_profit, realized_profit,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13,
			$14
		)`

	_, err := s.pool.Exec(ctx, query,
		exec.ID, exec.Seq, exec.RefID, exec.Pair, string(exec.Direction),
		exec.GasUsed, exec.GasPriceGwei, exec.SlippageBps, exec.LatencyMs,
		string(exec.Outcome), string(exec.FailReason), exec.ExpectedProfit, exec.RealizedProfit,
		exec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert execution %s: %w", exec.ID, err)
	}
	return nil
}
