package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExecOutcome is the terminal state of a simulated execution.
type ExecOutcome string

const (
	ExecSuccess ExecOutcome = "success"
	ExecFailed  ExecOutcome = "failed"
)

// ExecFailReason explains a failed simulation. Simulated failures are data,
// never process errors.
type ExecFailReason string

const (
	FailGasPriceExceeded ExecFailReason = "gas_price_exceeded"
	FailSlippageExceeded ExecFailReason = "slippage_exceeded"
	FailSimulatedNetwork ExecFailReason = "simulated_network_failure"
)

// SimulatedExecution models the outcome of acting on an opportunity under
// sampled gas, slippage, and latency conditions. No real funds are ever
// involved.
type SimulatedExecution struct {
	Seq            uint64          `json:"seq"`
	ID             string          `json:"id"`
	RefID          string          `json:"ref_id"`
	Pair           string          `json:"pair"`
	Direction      Direction       `json:"direction"`
	GasUsed        uint64          `json:"gas_used"`
	GasPriceGwei   decimal.Decimal `json:"gas_price_gwei"`
	SlippageBps    decimal.Decimal `json:"slippage_bps"`
	LatencyMs      int64           `json:"latency_ms"`
	Outcome        ExecOutcome     `json:"outcome"`
	FailReason     ExecFailReason  `json:"fail_reason,omitempty"`
	ExpectedProfit decimal.Decimal `json:"expected_profit"`
	RealizedProfit decimal.Decimal `json:"realized_profit"`
	CreatedAt      time.Time       `json:"created_at"`
}
