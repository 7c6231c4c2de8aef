// Package output fans emitted records out to the JSONL research files and,
// when configured, to Postgres and Redis. JSONL is the system of record; the
// other surfaces are best-effort.
package output

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/ironcrypto/aero-arb-mm-bot/internal/domain"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/output/jsonl"
)

// Channel names for the record bus.
const (
	ChannelOpportunities = "aerobot:opportunities"
	ChannelSignals       = "aerobot:signals"
	ChannelExecutions    = "aerobot:executions"
)

// Sink owns the three record streams and the process-monotonic sequence
// counter stamped onto every record.
type Sink struct {
	seq atomic.Uint64

	opportunities *jsonl.Writer
	signals       *jsonl.Writer
	executions    *jsonl.Writer

	store  domain.RecordStore
	bus    domain.RecordBus
	logger *slog.Logger
}

// NewSink creates the writers under dir using the research layout:
// opportunities/, market_making/, executions/. store and bus may be nil.
func NewSink(dir string, store domain.RecordStore, bus domain.RecordBus, logger *slog.Logger) *Sink {
	return &Sink{
		opportunities: jsonl.NewWriter(filepath.Join(dir, "opportunities"), "arbitrage"),
		signals:       jsonl.NewWriter(filepath.Join(dir, "market_making"), "signals"),
		executions:    jsonl.NewWriter(filepath.Join(dir, "executions"), "trades"),
		store:         store,
		bus:           bus,
		logger:        logger.With(slog.String("component", "sink")),
	}
}

// RecordOpportunity stamps and emits an accepted opportunity.
func (s *Sink) RecordOpportunity(ctx context.Context, opp domain.ArbitrageOpportunity) domain.ArbitrageOpportunity {
	opp.Seq = s.seq.Add(1)
	s.write(s.opportunities, opp)
	if s.store != nil {
		if err := s.store.SaveOpportunity(ctx, opp); err != nil {
			s.logger.Warn("store opportunity failed", slog.String("error", err.Error()))
		}
	}
	s.publish(ctx, ChannelOpportunities, opp)
	return opp
}

// RecordRejection emits a rejection to the opportunities stream.
func (s *Sink) RecordRejection(ctx context.Context, rej domain.OpportunityRejection) {
	rej.Seq = s.seq.Add(1)
	s.write(s.opportunities, rej)
	s.publish(ctx, ChannelOpportunities, rej)
}

// RecordSignal stamps and emits a market-making signal.
func (s *Sink) RecordSignal(ctx context.Context, sig domain.MarketMakingSignal) domain.MarketMakingSignal {
	sig.Seq = s.seq.Add(1)
	s.write(s.signals, sig)
	if s.store != nil {
		if err := s.store.SaveSignal(ctx, sig); err != nil {
			s.logger.Warn("store signal failed", slog.String("error", err.Error()))
		}
	}
	s.publish(ctx, ChannelSignals, sig)
	return sig
}

// RecordExecution stamps and emits a simulated execution.
func (s *Sink) RecordExecution(ctx context.Context, exec domain.SimulatedExecution) domain.SimulatedExecution {
	exec.Seq = s.seq.Add(1)
	s.write(s.executions, exec)
	if s.store != nil {
		if err := s.store.SaveExecution(ctx, exec); err != nil {
			s.logger.Warn("store execution failed", slog.String("error", err.Error()))
		}
	}
	s.publish(ctx, ChannelExecutions, exec)
	return exec
}

// Close closes all three streams.
func (s *Sink) Close() error {
	var firstErr error
	for _, w := range []*jsonl.Writer{s.opportunities, s.signals, s.executions} {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Sink) write(w *jsonl.Writer, record any) {
	if err := w.Write(record); err != nil {
		s.logger.Error("jsonl write failed", slog.String("error", err.Error()))
	}
}

func (s *Sink) publish(ctx context.Context, channel string, record any) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, channel, payload); err != nil {
		s.logger.Warn("bus publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()))
	}
}
