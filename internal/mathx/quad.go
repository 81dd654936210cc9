package mathx

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mat"
)

// Integrate evaluates the integral of f over [a, b] with an n-point
// Gauss-Legendre rule.
func Integrate(f func(float64) float64, a, b float64, n int) float64 {
	if a == b {
		return 0
	}
	return quad.Fixed(f, a, b, n, quad.Legendre{}, 0)
}

// IntegrateSqrtLower integrates f over [a, b] where f vanishes like
// sqrt(x-a) at the lower endpoint (or diverges like 1/sqrt(x-a) with a
// finite integral). The substitution x = a + (b-a) t^2 makes the
// integrand smooth.
func IntegrateSqrtLower(f func(float64) float64, a, b float64, n int) float64 {
	if b <= a {
		return 0
	}
	w := b - a
	return Integrate(func(t float64) float64 {
		x := a + w*t*t
		if x <= a {
			x = a + w*1e-16
		}
		return f(x) * 2 * w * t
	}, 0, 1, n)
}

// IntegrateSqrtBoth integrates f over [a, b] with sqrt-type endpoint
// behaviour at both ends, via x = m - h*cos(pi*s).
func IntegrateSqrtBoth(f func(float64) float64, a, b float64, n int) float64 {
	if b <= a {
		return 0
	}
	m := 0.5 * (a + b)
	h := 0.5 * (b - a)
	return Integrate(func(s float64) float64 {
		sin, cos := math.Sincos(math.Pi * s)
		x := m - h*cos
		if x <= a {
			x = a + (b-a)*1e-16
		} else if x >= b {
			x = b - (b-a)*1e-16
		}
		return f(x) * math.Pi * h * sin
	}, 0, 1, n)
}

// SolveLeastSquares solves min ||Ax - b|| and returns x. A must have at
// least as many rows as columns.
func SolveLeastSquares(a *mat.Dense, b *mat.VecDense) (*mat.VecDense, error) {
	_, c := a.Dims()
	x := mat.NewVecDense(c, nil)
	if err := x.SolveVec(a, b); err != nil {
		return nil, err
	}
	return x, nil
}
