// Package planner implements the time-division step of the control
// engine: given a candidate (lower, upper) pair of system states and a
// target multiplier, it computes how many iterations of the period run
// in each state, how much idle time (if any) to inject, and the
// resulting secondary cost.
package planner

import (
	"github.com/connorimes/bard/real"
	"github.com/connorimes/bard/states"
)

// Schedule is the result of planning one candidate pair for one period.
type Schedule struct {
	LowStateIters int
	IdleNS        int64
	Cost          real.Real
	CostXup       real.Real
}

// NoCostXup is the CostXup a caller substitutes when no candidate pair
// was found at all, rather than the zero value: the original leaves
// best_cost_xup at this same "not found" sentinel and writes it through
// unchanged to the inactive controller's seed, instead of silently
// warm-starting it at 0.
var NoCostXup = real.FromFloat(-1)

// Dimension selects which field of a states.State the planner should
// treat as the multiplier being scheduled (speedup under a performance
// constraint, cost under a power constraint) and which as its
// secondary-cost counterpart.
type Dimension struct {
	Xup  func(states.State) real.Real
	Cost func(states.State) real.Real
}

var (
	Performance = Dimension{Xup: states.SpeedupOf, Cost: states.CostOf}
	Power       = Dimension{Xup: states.CostOf, Cost: states.SpeedupOf}
)

const nanosPerSecond = 1000000000.0

// Plan computes the schedule for running lower and upper over period
// iterations to realize targetXup, given the current workload estimate
// partner is the lower state's idle partner, used only when lower is an
// idle state.
func Plan(dim Dimension, lower, partner, upper states.State, targetXup, workload real.Real, period int) Schedule {
	lowerXup := dim.Xup(lower)
	partnerXup := dim.Xup(partner)
	upperXup := dim.Xup(upper)
	lowerCost := dim.Cost(lower)
	partnerCost := dim.Cost(partner)
	upperCost := dim.Cost(upper)

	rPeriod := real.FromInt(period)

	if real.Less(lowerXup, real.One) {
		return planIdleLower(lowerXup, partnerXup, upperXup, lowerCost, partnerCost, upperCost, targetXup, workload, rPeriod, period)
	}
	return planNonIdleLower(lowerXup, upperXup, lowerCost, upperCost, targetXup, rPeriod, period)
}

// planNonIdleLower solves 1/target = x/lower + (1-x)/upper for the
// fraction x of iterations spent in the lower state.
func planNonIdleLower(lowerXup, upperXup, lowerCost, upperCost, targetXup, rPeriod real.Real, period int) Schedule {
	var rLowStateIters real.Real
	if real.EqualWithinAbs(upperXup, lowerXup, 0) {
		rLowStateIters = real.Zero
	} else {
		// x = (upper*lower - target*lower) / (upper*target - target*lower)
		num := real.Sub(real.Mul(upperXup, lowerXup), real.Mul(targetXup, lowerXup))
		den := real.Sub(real.Mul(upperXup, targetXup), real.Mul(targetXup, lowerXup))
		x := real.Div(num, den)
		rLowStateIters = real.Mul(rPeriod, x)
	}

	lowStateIters := real.TruncToInt(rLowStateIters)
	rLow := real.FromInt(lowStateIters)
	rHigh := real.Sub(real.FromInt(period), rLow)

	cost := real.Add(
		real.Mul(real.Div(rLow, lowerXup), lowerCost),
		real.Mul(real.Div(rHigh, upperXup), upperCost),
	)
	costXup := real.Div(
		real.Add(real.Mul(rLow, lowerCost), real.Mul(rHigh, upperCost)),
		real.FromInt(period),
	)

	return Schedule{LowStateIters: lowStateIters, IdleNS: 0, Cost: cost, CostXup: costXup}
}

// planIdleLower handles a throttled/sleeping lower state: at most the
// first iteration of the period is a hybrid of lower and its partner,
// the rest run at upper.
func planIdleLower(lowerXup, partnerXup, upperXup, lowerCost, partnerCost, upperCost, targetXup, workload, rPeriod real.Real, period int) Schedule {
	// hybrid_xup = (target * upper) / (period * (upper - target) + target)
	hybridXup := real.Div(
		real.Mul(targetXup, upperXup),
		real.Add(real.Mul(rPeriod, real.Sub(upperXup, targetXup)), targetXup),
	)

	if real.GreaterEq(hybridXup, partnerXup) {
		// One iteration is already too long to be here, even without idling.
		cost := real.Mul(real.Div(rPeriod, upperXup), upperCost)
		return Schedule{LowStateIters: 0, IdleNS: 0, Cost: cost, CostXup: upperCost}
	}

	var x, hybridXupCost real.Real
	if real.LessEq(lowerXup, real.Zero) {
		// Pure sleep: hybrid rate = (1-x) * partner rate.
		x = real.Sub(real.One, real.Div(hybridXup, partnerXup))
		hybridXupCost = real.Add(real.Mul(x, lowerCost), real.Mul(real.Sub(real.One, x), partnerCost))
	} else {
		// 1/hybrid = x/lower + (1-x)/partner
		num := real.Mul(lowerXup, real.Sub(hybridXup, partnerXup))
		den := real.Mul(hybridXup, real.Sub(lowerXup, partnerXup))
		x = real.Div(num, den)
		hybridXupCost = real.Add(
			real.Mul(real.Div(x, lowerXup), lowerCost),
			real.Mul(real.Div(real.Sub(real.One, x), partnerXup), partnerCost),
		)
	}

	idleSec := real.Mul(workload, real.Sub(real.Div(real.One, hybridXup), real.Div(x, partnerXup)))
	idleNS := int64(real.ToFloat(real.Mul(idleSec, real.FromFloat(nanosPerSecond))))

	rMinusOne := real.Sub(rPeriod, real.One)
	cost := real.Add(
		real.Mul(real.Div(real.One, hybridXup), hybridXupCost),
		real.Mul(real.Div(rMinusOne, upperXup), upperCost),
	)
	costXup := real.Div(real.Add(hybridXupCost, real.Mul(rMinusOne, upperCost)), rPeriod)

	return Schedule{LowStateIters: 1, IdleNS: idleNS, Cost: cost, CostXup: costXup}
}
