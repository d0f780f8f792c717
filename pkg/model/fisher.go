package model

import "math"

// R2Z applies the Fisher r-to-z transform, arctanh(r). Correlations of ±1 map
// to ±Inf; callers accumulating sufficient statistics skip non-finite values.
func R2Z(r float64) float64 {
	return math.Atanh(r)
}

// Z2R inverts the Fisher transform, tanh(z). ±Inf map to ±1, so averaged
// z-scores that saturated stay valid correlations.
func Z2R(z float64) float64 {
	return math.Tanh(z)
}
