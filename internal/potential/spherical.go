package potential

import (
	"math"

	"github.com/odonata-labs/aatorus/internal/coords"
)

// radialProfile is a spherically symmetric potential described by its
// radial derivatives; the embedding struct converts them to cylindrical
// derivatives.
type radialProfile interface {
	// phi returns Φ(r), dΦ/dr and d²Φ/dr² at radius r > 0.
	phi(r float64) (v, dv, d2v float64)
}

// spherical adapts a radialProfile to the Potential interface.
type spherical struct {
	p radialProfile
}

func (s spherical) Value(p coords.PosCyl) float64 {
	r := math.Hypot(p.R, p.Z)
	if r == 0 {
		v, _, _ := s.p.phi(1e-12)
		return v
	}
	v, _, _ := s.p.phi(r)
	return v
}

func (s spherical) Force(p coords.PosCyl) (fR, fz float64) {
	r := math.Hypot(p.R, p.Z)
	if r == 0 {
		return 0, 0
	}
	_, dv, _ := s.p.phi(r)
	return -dv * p.R / r, -dv * p.Z / r
}

func (s spherical) Deriv2(p coords.PosCyl) (d2R, d2z, dRz float64) {
	r := math.Hypot(p.R, p.Z)
	if r == 0 {
		_, _, d2v := s.p.phi(1e-12)
		return d2v, d2v, 0
	}
	_, dv, d2v := s.p.phi(r)
	r2 := r * r
	cR2 := p.R * p.R / r2
	cz2 := p.Z * p.Z / r2
	d2R = d2v*cR2 + dv*(1-cR2)/r
	d2z = d2v*cz2 + dv*(1-cz2)/r
	dRz = (d2v - dv/r) * p.R * p.Z / r2
	return d2R, d2z, dRz
}

// Plummer is the softened point-mass potential Φ = −M/sqrt(r²+B²).
type Plummer struct {
	M float64
	B float64
}

// NewPlummer wraps the profile in the Potential interface.
func NewPlummer(m, b float64) Potential { return spherical{Plummer{M: m, B: b}} }

func (p Plummer) phi(r float64) (v, dv, d2v float64) {
	s := math.Hypot(r, p.B)
	s3 := s * s * s
	v = -p.M / s
	dv = p.M * r / s3
	d2v = p.M * (1/s3 - 3*r*r/(s3*s*s))
	return v, dv, d2v
}

// Value, Force and Deriv2 let Plummer be used directly as a Potential.
func (p Plummer) Value(pos coords.PosCyl) float64 { return spherical{p}.Value(pos) }
func (p Plummer) Force(pos coords.PosCyl) (float64, float64) {
	return spherical{p}.Force(pos)
}
func (p Plummer) Deriv2(pos coords.PosCyl) (float64, float64, float64) {
	return spherical{p}.Deriv2(pos)
}

// NFW is the Navarro-Frenk-White halo with characteristic mass
// M0 = 4πρ0 rs³: Φ(r) = −M0 ln(1 + r/rs)/r.
type NFW struct {
	M0 float64
	Rs float64
}

// enclosedMass returns the mass inside radius r.
func (n NFW) enclosedMass(r float64) float64 {
	x := r / n.Rs
	return n.M0 * (math.Log1p(x) - x/(1+x))
}

func (n NFW) phi(r float64) (v, dv, d2v float64) {
	if r < 1e-12*n.Rs {
		r = 1e-12 * n.Rs
	}
	x := r / n.Rs
	m := n.enclosedMass(r)
	v = -n.M0 * math.Log1p(x) / r
	dv = m / (r * r)
	// dM/dr = M0 x / (rs (1+x)^2)
	dm := n.M0 * x / (n.Rs * (1 + x) * (1 + x))
	d2v = dm/(r*r) - 2*m/(r*r*r)
	return v, dv, d2v
}

func (n NFW) Value(pos coords.PosCyl) float64 { return spherical{n}.Value(pos) }
func (n NFW) Force(pos coords.PosCyl) (float64, float64) {
	return spherical{n}.Force(pos)
}
func (n NFW) Deriv2(pos coords.PosCyl) (float64, float64, float64) {
	return spherical{n}.Deriv2(pos)
}

// Isochrone is the Henon isochrone sphere Φ = −M/(B + sqrt(B²+r²)),
// the only potential whose action-angle transform is fully analytic.
// It doubles as a test fixture: any action-angle machinery must agree
// with the closed-form solution here.
type Isochrone struct {
	M float64
	B float64
}

func (iso Isochrone) phi(r float64) (v, dv, d2v float64) {
	s := math.Hypot(r, iso.B)
	bs := iso.B + s
	v = -iso.M / bs
	dv = iso.M * r / (s * bs * bs)
	d2v = iso.M * (s*s*bs - r*r*(iso.B+3*s)) / (s * s * s * bs * bs * bs)
	return v, dv, d2v
}

func (iso Isochrone) Value(pos coords.PosCyl) float64 { return spherical{iso}.Value(pos) }
func (iso Isochrone) Force(pos coords.PosCyl) (float64, float64) {
	return spherical{iso}.Force(pos)
}
func (iso Isochrone) Deriv2(pos coords.PosCyl) (float64, float64, float64) {
	return spherical{iso}.Deriv2(pos)
}
