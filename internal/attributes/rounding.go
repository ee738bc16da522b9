package attributes

import "math"

// Round rounds half away from zero to the given number of decimals.
// decimals <= 0 rounds to the nearest integer. Idempotent:
// Round(Round(x, d), d) == Round(x, d).
func Round(value float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(value)
	}
	scale := math.Pow(10, float64(decimals))
	return math.Round(value*scale) / scale
}

// clamp constrains value to [lo, hi].
func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
