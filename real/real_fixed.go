//go:build fixedpoint

package real

import "math/bits"

// real_t is a Q32.32 fixed-point representation: the low 32 bits are the
// fractional part. Selected at compile time with `go build -tags
// fixedpoint`, mirroring the original's `#ifdef FIXED_POINT` switch.
type real_t int64

const fixedShift = 32
const fixedScale = int64(1) << fixedShift

func add(a, b real_t) real_t { return a + b }
func sub(a, b real_t) real_t { return a - b }

// mul computes (a*b) >> fixedShift via a widened 128-bit intermediate so
// that multiplying two Q32.32 values doesn't overflow int64 before the
// rescale, matching what a fixed-point C build does with a 64-bit
// intermediate type.
func mul(a, b real_t) real_t {
	neg := (a < 0) != (b < 0)
	ua, ub := absInt64(int64(a)), absInt64(int64(b))
	hi, lo := bits.Mul64(uint64(ua), uint64(ub))
	// (hi:lo) >> fixedShift, keeping only the low 64 bits of the result.
	result := int64(hi<<(64-fixedShift) | lo>>fixedShift)
	if neg {
		result = -result
	}
	return real_t(result)
}

// div computes (a << fixedShift) / b via the same widened intermediate.
func div(a, b real_t) real_t {
	neg := (a < 0) != (b < 0)
	ua, ub := absInt64(int64(a)), absInt64(int64(b))
	hi := uint64(ua) >> (64 - fixedShift)
	lo := uint64(ua) << fixedShift
	quo, _ := bits.Div64(hi, lo, uint64(ub))
	result := int64(quo)
	if neg {
		result = -result
	}
	return real_t(result)
}

func fromInt(i int) real_t       { return real_t(int64(i) * fixedScale) }
func fromFloat(f float64) real_t { return real_t(f * float64(fixedScale)) }
func toFloat(r real_t) float64   { return float64(r) / float64(fixedScale) }

func truncToInt(r real_t) int { return int(int64(r) / fixedScale) }

func less(a, b real_t) bool { return a < b }

func absInt64(a int64) int64 {
	if a < 0 {
		return -a
	}
	return a
}
