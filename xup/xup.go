// Package xup implements the fixed-form, second-order pole-placement
// controller that turns a tracking error into a target multiplier
// (speedup when optimizing performance, powerup when optimizing power).
//
// The four tuning constants below (P1, P2, Z1, MU) and the A/B/C/D/F
// expansion are carried over unchanged from the source controller; they
// are not something this port is meant to re-derive or re-tune.
package xup

import "github.com/connorimes/bard/real"

// Pole/zero locations and robustness tuning. Compile-time constants,
// matching the original's #define P1/P2/Z1/MU.
var (
	P1 = real.FromFloat(0.9)
	P2 = real.FromFloat(0.1)
	Z1 = real.FromFloat(0.9)
	MU = real.FromFloat(0.5)
)

// Controller holds one dimension's history. Zero value is not usable;
// construct with New.
type Controller struct {
	u, uo, uoo real.Real
	e, eo      real.Real
	umin, umax real.Real
}

// New constructs a Controller seeded at the multiplier the host was
// already running at (init's "last_id" lookup) with umin/umax derived
// from the configuration table.
func New(initial, umin, umax real.Real) *Controller {
	return &Controller{
		u: initial, uo: initial, uoo: initial,
		e: real.Zero, eo: real.Zero,
		umin: umin, umax: umax,
	}
}

// Step consumes the current measured rate, the desired rate and the
// current workload estimate and produces the next clamped target
// multiplier. History is shifted after computing e/u.
func (c *Controller) Step(current, desired, w real.Real) real.Real {
	mul, mul3, mul4 := real.Mul, real.Mul3, real.Mul4
	add, sub := real.Add, real.Sub

	// innerA = -P1*Z1 - P2*Z1 + MU*P1*P2 - MU*P2 + P2 - MU*P1 + P1 + MU
	innerA := neg(mul(P1, Z1))
	innerA = sub(innerA, mul(P2, Z1))
	innerA = add(innerA, mul3(MU, P1, P2))
	innerA = sub(innerA, mul(MU, P2))
	innerA = add(innerA, P2)
	innerA = sub(innerA, mul(MU, P1))
	innerA = add(innerA, P1)
	innerA = add(innerA, MU)
	A := neg(innerA)

	// innerB = -MU*P1*P2*Z1 + P1*P2*Z1 + MU*P2*Z1 + MU*P1*Z1 - MU*Z1 - P1*P2
	innerB := neg(mul4(MU, P1, P2, Z1))
	innerB = add(innerB, mul3(P1, P2, Z1))
	innerB = add(innerB, mul3(MU, P2, Z1))
	innerB = add(innerB, mul3(MU, P1, Z1))
	innerB = sub(innerB, mul(MU, Z1))
	innerB = sub(innerB, mul(P1, P2))
	B := neg(innerB)

	// C = ((MU - MU*P1)*P2 + MU*P1 - MU) * w
	C := mul(add(sub(mul(sub(MU, mul(MU, P1)), P2), MU), mul(MU, P1)), w)

	// D = ((MU*P1 - MU)*P2 - MU*P1 + MU) * w * Z1
	D := mul3(add(sub(mul(sub(mul(MU, P1), MU), P2), mul(MU, P1)), MU), w, Z1)

	// F = 1 / (Z1 - 1)
	F := real.Div(real.One, sub(Z1, real.One))

	c.e = sub(desired, current)

	c.u = mul(F, add(add(mul(A, c.uo), mul(B, c.uoo)), add(mul(C, c.e), mul(D, c.eo))))
	if real.Less(c.u, c.umin) {
		c.u = c.umin
	}
	if real.Greater(c.u, c.umax) {
		c.u = c.umax
	}

	c.uoo = c.uo
	c.uo = c.u
	c.eo = c.e
	return c.u
}

func neg(a real.Real) real.Real { return real.Sub(real.Zero, a) }

// Seed warm-starts this (presumably inactive) controller with a target
// multiplier computed by the other dimension's planning step this
// period, so that a runtime SetConstraint switch has continuous history
// instead of starting from a cold e=0 plateau. It writes
// costXupEstimate through unclamped: a caller seeding with
// planner.NoCostXup (no admissible pair this period) is letting that
// sentinel corrupt the inactive controller's u on purpose, matching the
// original's own unconditional assignment.
func (c *Controller) Seed(costXupEstimate real.Real) {
	c.uoo = c.uo
	c.u = costXupEstimate
	c.uo = c.u
	c.e = real.Zero
	c.eo = real.Zero
}

// U, Bounds and Error expose the controller's scalars for telemetry rows
// and tests.
func (c *Controller) U() real.Real                   { return c.u }
func (c *Controller) Bounds() (real.Real, real.Real) { return c.umin, c.umax }
func (c *Controller) Error() real.Real               { return c.e }
