package actions

import (
	"fmt"
	"math"

	"github.com/odonata-labs/aatorus/internal/coords"
	"github.com/odonata-labs/aatorus/internal/mathx"
)

// Isochrone is the toy system of the torus mapper: the isochrone sphere
// Φ(r) = −M/(B + sqrt(B²+r²)), whose action-angle transform is closed
// form in both directions. M absorbs G (internal units, G=1).
//
// The toy map treats the vertical pair (Jz, thetaz) as the latitudinal
// degree of freedom of the spherical problem: the total angular momentum
// is L = Jz + |Jphi|.
type Isochrone struct {
	M float64
	B float64
}

// energy returns the Hamiltonian for the given actions.
func (iso Isochrone) energy(jr, l float64) float64 {
	d := jr + 0.5*(l+math.Sqrt(l*l+4*iso.M*iso.B))
	return -0.5 * iso.M * iso.M / (d * d)
}

// Frequencies returns the analytic orbital frequencies for the actions.
func (iso Isochrone) Frequencies(acts Actions) Frequencies {
	l := acts.Jz + math.Abs(acts.Jphi)
	h := iso.energy(acts.Jr, l)
	k := -2 * h
	omegar := k * math.Sqrt(k) / iso.M
	omegaz := 0.5 * omegar * (1 + l/math.Sqrt(l*l+4*iso.M*iso.B))
	return Frequencies{
		Omegar:   omegar,
		Omegaz:   omegaz,
		Omegaphi: math.Copysign(omegaz, acts.Jphi),
	}
}

// solveRadialAngle inverts thetar = eta - ec*sin(eta) by Newton
// iteration (Kepler-like equation; ec < 1 for bound orbits).
func solveRadialAngle(thetar, ec float64) float64 {
	eta := thetar
	for i := 0; i < 50; i++ {
		f := eta - ec*math.Sin(eta) - thetar
		df := 1 - ec*math.Cos(eta)
		step := f / df
		eta -= step
		if math.Abs(step) < 1e-14 {
			break
		}
	}
	return eta
}

// branchAtan returns atan(c*tan(eta/2)) continued across branch cuts so
// that the result grows by pi when eta grows by 2pi.
func branchAtan(c, eta float64) float64 {
	s, co := math.Sincos(eta)
	return 0.5*eta + math.Atan2((c-1)*s, (1+co)+c*(1-co))
}

// Map evaluates the toy transform: actions and angles to a cylindrical
// phase-space point. Angles may be any real numbers. The actions must
// describe a bound toy orbit (Jr, Jz >= 0).
func (iso Isochrone) Map(aa ActionAngles) (coords.PosVelCyl, error) {
	if aa.Jr < 0 || aa.Jz < 0 {
		return coords.PosVelCyl{}, fmt.Errorf("%w: negative toy actions (%s)", ErrTorusConstruction, aa.Actions)
	}
	l := aa.Jz + math.Abs(aa.Jphi)
	lz := aa.Jphi
	h := iso.energy(aa.Jr, l)
	if h >= 0 {
		return coords.PosVelCyl{}, fmt.Errorf("%w: unbound toy energy", ErrTorusConstruction)
	}
	k := -2 * h
	sqrtk := math.Sqrt(k)
	abar := iso.M/k - iso.B
	ecc2 := 1 - l*l/(k*abar*abar)
	ecc := math.Sqrt(math.Max(0, ecc2))
	// radial phase
	thetar := mathx.WrapAngle(aa.Thetar)
	ec := ecc * abar / (abar + iso.B)
	eta := solveRadialAngle(thetar, ec)
	u := abar * (1 - ecc*math.Cos(eta))
	r := math.Sqrt(math.Max(0, u*(u+2*iso.B)))
	var vr float64
	if r > 0 {
		vr = sqrtk * abar * ecc * math.Sin(eta) / r
	}
	// in-plane angle from pericenter; branch-continued so that one full
	// radial cycle advances psi by 2pi*Omegaz/Omegar
	sqLb := math.Sqrt(l*l + 4*iso.M*iso.B)
	c1 := math.Sqrt((1 + ecc) / math.Max(1e-15, 1-ecc))
	etld := ecc * abar / (abar + 2*iso.B)
	c2 := math.Sqrt((1 + etld) / math.Max(1e-15, 1-etld))
	psi := branchAtan(c1, eta) + l/sqLb*branchAtan(c2, eta)

	if l == 0 {
		// purely radial orbit along the radial direction at thetaphi
		return coords.PosVelCyl{
			PosCyl: coords.PosCyl{R: r, Z: 0, Phi: mathx.WrapAngle(aa.Thetaphi)},
			VelCyl: coords.VelCyl{VR: vr},
		}, nil
	}

	freq := iso.Frequencies(aa.Actions)
	ratio := freq.Omegaz / freq.Omegar
	chi := aa.Thetaz - ratio*thetar + psi
	sinchi, coschi := math.Sincos(chi)

	cosi := lz / l
	sini := math.Sqrt(math.Max(0, 1-cosi*cosi))
	costh := sini * sinchi
	sinth := math.Sqrt(math.Max(1e-15, 1-costh*costh))

	vth := -l * sini * coschi / (r * sinth)
	vphi := lz / (r * sinth)

	alpha := math.Atan2(cosi*sinchi, coschi)
	var node float64
	switch {
	case lz > 0:
		node = aa.Thetaphi - aa.Thetaz
	case lz < 0:
		node = aa.Thetaphi + aa.Thetaz
	default:
		node = aa.Thetaphi
	}
	phi := mathx.WrapAngle(node + alpha)

	sph := coords.PosVelSph{
		R:      r,
		Theta:  math.Acos(math.Max(-1, math.Min(1, costh))),
		Phi:    phi,
		VR:     vr,
		VTheta: vth,
		VPhi:   vphi,
	}
	return coords.SphToCyl(sph), nil
}
