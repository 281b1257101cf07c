// Package states holds the immutable configuration table the control
// engine searches over: one entry per discrete system state the host can
// be placed in, each carrying a performance multiplier, a secondary-cost
// multiplier, and (for idle states) a partner to hybridize with.
package states

import (
	"fmt"

	"github.com/connorimes/bard/real"
)

// State is one entry of the control-state table. The table is borrowed
// read-only by the engine for its lifetime; nothing in this package or
// the engine mutates a State after construction.
type State struct {
	// Speedup is the performance multiplier relative to baseline. Values
	// below real.One mark an idle state, realized by the host sleeping.
	Speedup real.Real
	// Cost is the secondary-dimension multiplier (power or energy).
	Cost real.Real
	// IdlePartnerID names a companion non-idle state an idle state may
	// be hybridized with within a single iteration. Ignored for
	// non-idle entries.
	IdlePartnerID int
}

// Table is the validated, immutable configuration table.
type Table struct {
	entries []State
}

// NewTable validates entries and returns an immutable Table. An idle
// entry (Speedup < real.One) must name a partner whose own Speedup is
// >= real.One.
func NewTable(entries []State) (*Table, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("bard: control state table must have at least one entry")
	}
	for i, e := range entries {
		if real.Less(e.Speedup, real.One) {
			if e.IdlePartnerID < 0 || e.IdlePartnerID >= len(entries) {
				return nil, fmt.Errorf("bard: idle state %d has out-of-range idle_partner_id %d", i, e.IdlePartnerID)
			}
			partner := entries[e.IdlePartnerID]
			if real.Less(partner.Speedup, real.One) {
				return nil, fmt.Errorf("bard: idle state %d's partner %d is itself an idle state", i, e.IdlePartnerID)
			}
		}
	}
	table := make([]State, len(entries))
	copy(table, entries)
	return &Table{entries: table}, nil
}

// Len returns the number of states in the table.
func (t *Table) Len() int { return len(t.entries) }

// At returns the entry for id. Panics on an out-of-range id, matching
// the original's unchecked array index; its callers are search and the
// engine's constructor.
func (t *Table) At(id int) State { return t.entries[id] }

// Bounds derives umin/umax for a dimension from the table: the minimum
// non-zero multiplier across all entries (floored by real.MinFloor), and
// the maximum.
func (t *Table) Bounds(dim func(State) real.Real) (min, max real.Real) {
	min, max = real.Zero, real.Zero
	for _, e := range t.entries {
		v := dim(e)
		if real.Greater(v, real.Zero) && (real.LessEq(min, real.Zero) || real.Less(v, min)) {
			min = v
		}
		if real.GreaterEq(v, max) {
			max = v
		}
	}
	if real.Less(min, real.MinFloor) {
		min = real.MinFloor
	}
	return min, max
}

// SpeedupOf and CostOf are the two Table.Bounds dimension selectors.
func SpeedupOf(s State) real.Real { return s.Speedup }
func CostOf(s State) real.Real    { return s.Cost }
