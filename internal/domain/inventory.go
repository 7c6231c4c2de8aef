package domain

import (
	"sync"

	"github.com/shopspring/decimal"
)

// InventoryState is the signed base-asset position relative to the
// configured maximum.
type InventoryState struct {
	Position    decimal.Decimal `json:"position"`
	MaxPosition decimal.Decimal `json:"max_position"`
}

// SkewFraction returns position / max_position clamped to [-1, 1]. A zero
// max yields zero skew.
func (s InventoryState) SkewFraction() decimal.Decimal {
	if !s.MaxPosition.IsPositive() {
		return decimal.Zero
	}
	f := s.Position.Div(s.MaxPosition)
	one := decimal.NewFromInt(1)
	if f.GreaterThan(one) {
		return one
	}
	if f.LessThan(one.Neg()) {
		return one.Neg()
	}
	return f
}

// Inventory is the single mutable holder of InventoryState. Only the
// strategy engine / execution simulator pairing writes to it; everything
// else reads a copy.
type Inventory struct {
	mu    sync.Mutex
	state InventoryState
}

// NewInventory creates an Inventory with a flat position and the given
// maximum.
func NewInventory(maxPosition decimal.Decimal) *Inventory {
	return &Inventory{state: InventoryState{MaxPosition: maxPosition}}
}

// State returns a copy of the current inventory state.
func (i *Inventory) State() InventoryState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// ApplyFill adjusts the position by a signed delta after a (simulated) fill
// and returns the resulting state.
func (i *Inventory) ApplyFill(delta decimal.Decimal) InventoryState {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state.Position = i.state.Position.Add(delta)
	return i.state
}
