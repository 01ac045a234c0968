package formulas

// SafeDiv divides num by den. It reports false when the denominator is zero or
// when either operand (or the result) is not finite, so callers never emit NaN
// or Inf.
func SafeDiv(num, den float64) (float64, bool) {
	if den == 0 || !IsFinite(num) || !IsFinite(den) {
		return 0, false
	}
	q := num / den
	if !IsFinite(q) {
		return 0, false
	}
	return q, true
}

// Percent returns 100 * part / whole, guarded like SafeDiv
func Percent(part, whole float64) (float64, bool) {
	if scaled := 100 * part; IsFinite(scaled) {
		return SafeDiv(scaled, whole)
	}
	// 100*part overflows: divide first
	q, ok := SafeDiv(part, whole)
	if !ok {
		return 0, false
	}
	return SafeDiv(100*q, 1)
}

// Growth returns the percentage change from first to last.
// It is undefined (false) when first is zero.
func Growth(first, last float64) (float64, bool) {
	return Percent(last-first, first)
}

// Clamp limits v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampInt limits v to [lo, hi]
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
