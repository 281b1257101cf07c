// Package real defines the scalar type the control engine computes with
// and the handful of arithmetic operations the rest of the module needs.
//
// A compile-time choice between a floating-point and a fixed-point
// representation is made with the "fixedpoint" build tag: real_float.go
// (built without the tag) provides the default float64-backed Real;
// real_fixed.go (tag fixedpoint) provides a Q32.32 fixed-point Real with
// the same operations. This file builds in both cases.
// Every other package in the module is written against this interface
// and never touches float64 or the fixed-point layout directly.
package real

import "gonum.org/v1/gonum/floats/scalar"

// Real is the scalar type used throughout the control pipeline: time or
// energy per iteration, multipliers, tracking error, covariance.
type Real = real_t

// Zero, One and a small positive floor applied to umin when deriving it
// from a configuration table, so the lower bound is never zero or
// negative.
var (
	Zero     = FromFloat(0)
	One      = FromFloat(1)
	MinFloor = FromFloat(1e-3)
)

func Add(a, b Real) Real { return add(a, b) }
func Sub(a, b Real) Real { return sub(a, b) }
func Mul(a, b Real) Real { return mul(a, b) }
func Div(a, b Real) Real { return div(a, b) }

func Mul3(a, b, c Real) Real { return Mul(Mul(a, b), c) }
func Mul4(a, b, c, d Real) Real { return Mul(Mul(Mul(a, b), c), d) }

// FromInt converts an iteration/id count into a Real.
func FromInt(i int) Real { return fromInt(i) }

// FromFloat constructs a Real from a float64 (tuning constants, test
// fixtures, and the host's measured perf/pwr on every ApplyControl).
func FromFloat(f float64) Real { return fromFloat(f) }

// ToFloat converts back to float64, for logging and tests.
func ToFloat(r Real) float64 { return toFloat(r) }

// TruncToInt truncates a Real iteration count toward zero, preserving the
// source's truncation semantics exactly.
func TruncToInt(r Real) int { return truncToInt(r) }

func Less(a, b Real) bool    { return less(a, b) }
func LessEq(a, b Real) bool  { return !less(b, a) }
func Greater(a, b Real) bool { return less(b, a) }
func GreaterEq(a, b Real) bool { return !less(a, b) }

// EqualWithinAbs reports whether a and b are within abs of each other.
func EqualWithinAbs(a, b Real, abs float64) bool {
	return scalar.EqualWithinAbs(toFloat(a), toFloat(b), abs)
}
