package potential

import (
	"math"

	"github.com/odonata-labs/aatorus/internal/coords"
)

// MiyamotoNagai is the classic flattened disk potential
// Φ = −M / sqrt(R² + (A + sqrt(z² + B²))²).
// A is the radial scale length, B the vertical scale height; B=0 reduces
// to a razor-thin Kuzmin disk and A=0 to a Plummer sphere.
type MiyamotoNagai struct {
	M float64
	A float64
	B float64
}

func (mn MiyamotoNagai) aux(p coords.PosCyl) (zeta, bb, dd float64) {
	zeta = math.Hypot(p.Z, mn.B)
	bb = mn.A + zeta
	dd = math.Hypot(p.R, bb)
	return zeta, bb, dd
}

func (mn MiyamotoNagai) Value(p coords.PosCyl) float64 {
	_, _, dd := mn.aux(p)
	return -mn.M / dd
}

func (mn MiyamotoNagai) Force(p coords.PosCyl) (fR, fz float64) {
	zeta, bb, dd := mn.aux(p)
	d3 := dd * dd * dd
	fR = -mn.M * p.R / d3
	fz = -mn.M * bb * p.Z / (zeta * d3)
	return fR, fz
}

func (mn MiyamotoNagai) Deriv2(p coords.PosCyl) (d2R, d2z, dRz float64) {
	zeta, bb, dd := mn.aux(p)
	d3 := dd * dd * dd
	d5 := d3 * dd * dd
	z2 := p.Z * p.Z
	zeta2 := zeta * zeta
	zeta3 := zeta2 * zeta

	d2R = mn.M * (1/d3 - 3*p.R*p.R/d5)
	d2z = mn.M * ((z2/zeta2+bb/zeta-bb*z2/zeta3)/d3 - 3*bb*bb*z2/(zeta2*d5))
	dRz = -3 * mn.M * bb * p.Z * p.R / (zeta * d5)
	return d2R, d2z, dRz
}

// Density returns the mass density implied by Poisson's equation.
func (mn MiyamotoNagai) Density(p coords.PosCyl) float64 {
	zeta, bb, dd := mn.aux(p)
	num := mn.A*p.R*p.R + (mn.A+3*zeta)*bb*bb
	den := math.Pow(dd, 5) * zeta * zeta * zeta
	return mn.B * mn.B * mn.M / (4 * math.Pi) * num / den
}
