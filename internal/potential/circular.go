package potential

import (
	"fmt"
	"math"

	"github.com/odonata-labs/aatorus/internal/coords"
	"github.com/odonata-labs/aatorus/internal/mathx"
)

// Vcirc returns the circular velocity at radius R in the midplane.
func Vcirc(pot Potential, r float64) float64 {
	fR, _ := pot.Force(coords.PosCyl{R: r})
	return math.Sqrt(math.Max(0, -r*fR))
}

// Rcirc returns the radius of the circular orbit with angular momentum
// |L| in the midplane, found by bracketing L_c(R) = R*Vcirc(R).
func Rcirc(pot Potential, l float64) (float64, error) {
	l = math.Abs(l)
	if l == 0 {
		return 0, nil
	}
	f := func(r float64) float64 {
		vc := Vcirc(pot, r)
		return r*vc - l
	}
	lo, hi := 1e-6, 1.0
	for f(lo) > 0 && lo > 1e-12 {
		lo *= 0.1
	}
	n := 0
	for f(hi) < 0 {
		hi *= 2
		if n++; n > 60 {
			return 0, fmt.Errorf("potential: no circular orbit with L=%g", l)
		}
	}
	r, err := mathx.FindRoot(f, lo, hi, 1e-12*hi)
	if err != nil {
		return 0, fmt.Errorf("potential: Rcirc(L=%g): %w", l, err)
	}
	return r, nil
}

// Epicycle returns the radial (kappa), vertical (nu) and azimuthal
// (Omega) epicyclic frequencies of the circular orbit at radius R.
func Epicycle(pot Potential, r float64) (kappa, nu, omega float64) {
	p := coords.PosCyl{R: r}
	fR, _ := pot.Force(p)
	d2R, d2z, _ := Deriv2(pot, p)
	omega2 := math.Max(0, -fR/r)
	kappa = math.Sqrt(math.Max(0, d2R+3*omega2))
	nu = math.Sqrt(math.Max(0, d2z))
	omega = math.Sqrt(omega2)
	return kappa, nu, omega
}
