// Package potential provides the gravitational potential models consumed
// by the action-angle engine, together with the legacy galaxy-definition
// parser and circular-orbit helpers.
//
// All quantities are in internal units with G=1. Every model here is
// axisymmetric; positions are cylindrical and the azimuth never enters.
package potential

import (
	"math"

	"github.com/odonata-labs/aatorus/internal/coords"
)

// Potential is the capability interface the core depends on. Implementations
// must be safe for concurrent reads and free of observable side effects.
type Potential interface {
	// Value returns the potential at p.
	Value(p coords.PosCyl) float64
	// Force returns minus the gradient of the potential, (−dΦ/dR, −dΦ/dz).
	Force(p coords.PosCyl) (fR, fz float64)
}

// SecondDerivs is an optional capability: analytic second derivatives of
// the potential. Consumers fall back to finite differences when absent.
type SecondDerivs interface {
	// Deriv2 returns d2Φ/dR2, d2Φ/dz2 and d2Φ/dRdz at p.
	Deriv2(p coords.PosCyl) (d2R, d2z, dRz float64)
}

// Composite sums any number of component potentials.
type Composite []Potential

func (c Composite) Value(p coords.PosCyl) float64 {
	sum := 0.0
	for _, pot := range c {
		sum += pot.Value(p)
	}
	return sum
}

func (c Composite) Force(p coords.PosCyl) (fR, fz float64) {
	for _, pot := range c {
		r, z := pot.Force(p)
		fR += r
		fz += z
	}
	return fR, fz
}

// Deriv2 sums analytic second derivatives where available and falls back
// to finite differences for components without them.
func (c Composite) Deriv2(p coords.PosCyl) (d2R, d2z, dRz float64) {
	for _, pot := range c {
		r, z, rz := Deriv2(pot, p)
		d2R += r
		d2z += z
		dRz += rz
	}
	return d2R, d2z, dRz
}

// Deriv2 returns the second derivatives of pot at p, using the analytic
// capability when implemented and central differences of the force
// otherwise.
func Deriv2(pot Potential, p coords.PosCyl) (d2R, d2z, dRz float64) {
	if sd, ok := pot.(SecondDerivs); ok {
		return sd.Deriv2(p)
	}
	scale := math.Hypot(p.R, p.Z)
	if scale == 0 {
		scale = 1
	}
	h := 1e-5 * scale
	fRp, fzp := pot.Force(coords.PosCyl{R: p.R + h, Z: p.Z})
	fRm, fzm := pot.Force(coords.PosCyl{R: p.R - h, Z: p.Z})
	d2R = -(fRp - fRm) / (2 * h)
	dRz = -(fzp - fzm) / (2 * h)
	fRp, fzp = pot.Force(coords.PosCyl{R: p.R, Z: p.Z + h})
	_, fzm = pot.Force(coords.PosCyl{R: p.R, Z: p.Z - h})
	d2z = -(fzp - fzm) / (2 * h)
	return d2R, d2z, dRz
}

// TotalEnergy returns the Hamiltonian of a phase-space point in pot.
func TotalEnergy(pot Potential, xv coords.PosVelCyl) float64 {
	return pot.Value(xv.PosCyl) + 0.5*xv.VelMag2()
}
