// Package search implements the O(n²) pair search the control engine
// runs once per period boundary: enumerate every admissible (upper,
// lower) pair of system states and keep the one the planner scores best
// for the active constraint.
package search

import (
	"github.com/connorimes/bard/planner"
	"github.com/connorimes/bard/real"
	"github.com/connorimes/bard/states"
)

// Constraint mirrors the engine's top-level Constraint without importing
// it, so this package has no dependency on the orchestrator.
type Constraint int

const (
	Performance Constraint = iota
	Power
)

// Result is the winning pair and its schedule. LowerID and UpperID are
// -1 when no pair qualifies; the dispatcher interprets that as "do not
// change state this period". Schedule.CostXup is planner.NoCostXup in
// that same case, not the zero value.
type Result struct {
	LowerID, UpperID int
	Schedule         planner.Schedule
}

var bigReal = real.FromFloat(1e18)

// Best enumerates every (lower, upper) pair of table entries and keeps
// the one whose schedule scores best for constraint.
func Best(table *states.Table, target, workload real.Real, period int, constraint Constraint, disableIdle bool) Result {
	dim := planner.Performance
	if constraint == Power {
		dim = planner.Power
	}

	best := Result{LowerID: -1, UpperID: -1, Schedule: planner.Schedule{CostXup: planner.NoCostXup}}
	var bestCost real.Real
	maximizing := constraint == Power
	if maximizing {
		bestCost = real.Zero
	} else {
		bestCost = bigReal
	}

	n := table.Len()
	for i := 0; i < n; i++ {
		upper := table.At(i)
		upperXup := dim.Xup(upper)
		if real.Less(upperXup, target) || real.Less(upperXup, real.One) {
			continue
		}
		for j := 0; j < n; j++ {
			lower := table.At(j)
			lowerXup := dim.Xup(lower)
			if real.Greater(lowerXup, target) {
				continue
			}
			if disableIdle && real.Less(lowerXup, real.One) {
				continue
			}

			partner := lower
			if real.Less(lowerXup, real.One) {
				partner = table.At(lower.IdlePartnerID)
			}

			sched := planner.Plan(dim, lower, partner, upper, target, workload, period)

			isBest := false
			if maximizing {
				isBest = real.Greater(sched.Cost, bestCost)
			} else {
				isBest = real.Less(sched.Cost, bestCost)
			}
			if isBest {
				best = Result{LowerID: j, UpperID: i, Schedule: sched}
				bestCost = sched.Cost
			}
		}
	}

	return best
}
