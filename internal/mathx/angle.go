// Package mathx collects the small numerical routines shared by the
// action-angle engine: circular (angle) arithmetic, bracketed root
// finding and quadrature helpers on top of gonum.
package mathx

import "math"

const TwoPi = 2 * math.Pi

// WrapAngle returns the representative of x in [0, 2pi).
func WrapAngle(x float64) float64 {
	x = math.Mod(x, TwoPi)
	if x < 0 {
		x += TwoPi
	}
	return x
}

// UnwrapAngle returns the branch of x (mod 2pi) closest to prev.
// Feeding consecutive samples of a continuously growing angle through
// UnwrapAngle removes the 2pi ambiguity, which is a precondition for
// fitting a frequency to the sequence.
func UnwrapAngle(x, prev float64) float64 {
	return x + TwoPi*math.Round((prev-x)/TwoPi)
}

// AngleDist returns the minimal circular distance between two angles,
// a value in [0, pi].
func AngleDist(a, b float64) float64 {
	d := math.Mod(a-b, TwoPi)
	if d < -math.Pi {
		d += TwoPi
	} else if d > math.Pi {
		d -= TwoPi
	}
	return math.Abs(d)
}
