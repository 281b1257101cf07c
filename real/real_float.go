//go:build !fixedpoint

package real

// real_t is the floating-point representation, selected by default (no
// build tag). See real_fixed.go for the fixed-point alternative.
type real_t float64

func add(a, b real_t) real_t { return a + b }
func sub(a, b real_t) real_t { return a - b }
func mul(a, b real_t) real_t { return a * b }
func div(a, b real_t) real_t { return a / b }

func fromInt(i int) real_t     { return real_t(i) }
func fromFloat(f float64) real_t { return real_t(f) }
func toFloat(r real_t) float64 { return float64(r) }

// truncToInt truncates toward zero, matching C's (int) cast used by the
// original real_to_int for the floating-point build.
func truncToInt(r real_t) int { return int(r) }

func less(a, b real_t) bool { return a < b }
