// Package domain defines the value records exchanged between the feed
// adapters, the signal & risk engine, and the output layer, together with
// the store/bus interfaces their consumers depend on. Records are produced
// by exactly one component and passed downstream by value; none is mutated
// after creation except InventoryState, which is owned by the quoting and
// simulation pair.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source identifies the venue a price snapshot was taken from.
type Source string

const (
	SourceDEX Source = "dex"
	SourceCEX Source = "cex"
)

// PriceSnapshot is a timestamped price observation from one venue. DEX
// snapshots additionally carry the pool reserves the price was derived from;
// CEX snapshots leave the reserve fields zero.
type PriceSnapshot struct {
	Source       Source          `json:"source"`
	Pair         string          `json:"pair"`
	Price        decimal.Decimal `json:"price"`
	ReserveBase  decimal.Decimal `json:"reserve_base,omitempty"`
	ReserveQuote decimal.Decimal `json:"reserve_quote,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
	Sequence     uint64          `json:"sequence"`
}

// Age returns how old the snapshot is relative to now.
func (s PriceSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.Timestamp)
}

// HasReserves reports whether the snapshot carries usable pool reserves.
func (s PriceSnapshot) HasReserves() bool {
	return s.ReserveBase.IsPositive() && s.ReserveQuote.IsPositive()
}
