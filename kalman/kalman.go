// Package kalman implements the one-dimensional filter the control
// engine uses to estimate the intrinsic, unit-multiplier workload of an
// iteration (time-per-iteration or energy-per-iteration) from noisy
// measured-rate observations taken while the host is running at some
// other, already-applied multiplier.
//
// It's a tiny struct carrying x_hat/p plus a Predict-then-Update step,
// rather than a general linear-algebra Kalman implementation.
package kalman

import "github.com/connorimes/bard/real"

// Process and measurement noise, and the filter's initial state. These
// match the original's named constants (Q, R, X_HAT_START, ...) and are
// compile-time values: the filter is numerically stable for any R > 0
// and initial P > 0.
var (
	ProcessNoise     = real.FromFloat(0.001)
	MeasurementNoise = real.FromFloat(1.0)

	InitialXHatMinus = real.FromFloat(1.0)
	InitialXHat      = real.FromFloat(1.0)
	InitialPMinus    = real.FromFloat(1.0)
	InitialH         = real.One
	InitialK         = real.Zero
	InitialP         = real.FromFloat(1.0)
)

// Filter is one instance of the per-stream workload estimator. The zero
// value is not usable; construct with New.
type Filter struct {
	xHatMinus real.Real
	xHat      real.Real
	pMinus    real.Real
	h         real.Real
	k         real.Real
	p         real.Real
}

// New constructs a Filter in its documented initial state.
func New() *Filter {
	return &Filter{
		xHatMinus: InitialXHatMinus,
		xHat:      InitialXHat,
		pMinus:    InitialPMinus,
		h:         InitialH,
		k:         InitialK,
		p:         InitialP,
	}
}

// Step runs one predict+update cycle given the observed rate y (the
// measured performance or power for this period) and uPrev, the
// multiplier that was actually applied while y was observed. It returns
// the updated workload estimate w = 1/x_hat.
func (f *Filter) Step(y, uPrev real.Real) real.Real {
	f.xHatMinus = f.xHat
	f.pMinus = real.Add(f.p, ProcessNoise)

	f.h = uPrev
	f.k = real.Div(
		real.Mul(f.pMinus, f.h),
		real.Add(real.Mul3(f.h, f.pMinus, f.h), MeasurementNoise),
	)
	f.xHat = real.Add(f.xHatMinus, real.Mul(f.k, real.Sub(y, real.Mul(f.h, f.xHatMinus))))
	f.p = real.Mul(real.Sub(real.One, real.Mul(f.k, f.h)), f.pMinus)

	return real.Div(real.One, f.xHat)
}

// Snapshot exposes the six scalars making up the filter's state, for
// telemetry rows.
type Snapshot struct {
	XHatMinus, XHat, PMinus, H, K, P real.Real
}

func (f *Filter) Snapshot() Snapshot {
	return Snapshot{f.xHatMinus, f.xHat, f.pMinus, f.h, f.k, f.p}
}
