package actions

import (
	"fmt"
	"math"

	"github.com/odonata-labs/aatorus/internal/coords"
	"github.com/odonata-labs/aatorus/internal/mathx"
	"github.com/odonata-labs/aatorus/internal/potential"
)

// FudgeOptions tune the Staeckel approximation.
type FudgeOptions struct {
	// QuadOrder is the Gauss-Legendre order of the action/angle
	// quadratures.
	QuadOrder int
	// Delta fixes the focal distance of the prolate spheroidal
	// coordinates; zero means estimate it from the potential's second
	// derivatives at each point.
	Delta float64
}

// DefaultFudgeOptions returns the standard configuration.
func DefaultFudgeOptions() FudgeOptions {
	return FudgeOptions{QuadOrder: 24}
}

// FudgeFinder recovers approximate actions and angles from a phase-space
// point by locally replacing the true axisymmetric potential with a
// separable (Staeckel) one in prolate spheroidal coordinates — the
// "Staeckel fudge". For potentials that are not intrinsically separable
// the result carries a systematic error that grows with the orbit's
// departure from separability; the validation driver quantifies exactly
// this error.
//
// FudgeFinder is a pure function of its input and the referenced
// potential; it is safe for concurrent use.
type FudgeFinder struct {
	pot  potential.Potential
	opts FudgeOptions
}

// NewFudgeFinder creates a finder with default options.
func NewFudgeFinder(pot potential.Potential) *FudgeFinder {
	return NewFudgeFinderWith(pot, DefaultFudgeOptions())
}

// NewFudgeFinderWith creates a finder with explicit options.
func NewFudgeFinderWith(pot potential.Potential, opts FudgeOptions) *FudgeFinder {
	if opts.QuadOrder <= 0 {
		opts.QuadOrder = 24
	}
	return &FudgeFinder{pot: pot, opts: opts}
}

// ActionAngles computes the approximate actions and angles of xv.
func (f *FudgeFinder) ActionAngles(xv coords.PosVelCyl) (ActionAngles, error) {
	aa, _, err := f.ActionAnglesFrequencies(xv)
	return aa, err
}

// Actions computes the approximate actions only.
func (f *FudgeFinder) Actions(xv coords.PosVelCyl) (Actions, error) {
	aa, err := f.ActionAngles(xv)
	return aa.Actions, err
}

// focalDistance estimates the focal distance of the best-fitting prolate
// spheroidal coordinate system near the point, from the mixed second
// derivatives of the potential. For an exactly Staeckel potential the
// formula is exact; the point-mass limit gives zero, so near-spherical
// potentials produce a small delta.
func (f *FudgeFinder) focalDistance(p coords.PosCyl) float64 {
	if f.opts.Delta > 0 {
		return f.opts.Delta
	}
	r := math.Hypot(p.R, p.Z)
	// the estimate degenerates in the midplane where Phi_Rz vanishes;
	// evaluate slightly off-plane in that case
	z := math.Abs(p.Z)
	if z < 0.1*p.R {
		z = 0.1 * p.R
	}
	q := coords.PosCyl{R: p.R, Z: z}
	fR, fz := f.pot.Force(q)
	d2R, d2z, dRz := potential.Deriv2(f.pot, q)
	delta2 := z*z - q.R*q.R
	if math.Abs(dRz) > 1e-14 {
		delta2 += (3*q.R*(-fz) - 3*z*(-fR) + q.R*z*(d2R-d2z)) / dRz
	}
	if delta2 <= 0 || math.IsNaN(delta2) {
		return 1e-4 * math.Max(r, 1e-6)
	}
	return math.Min(math.Sqrt(delta2), 10*math.Max(r, 1e-6))
}

// fudgeState carries the separable approximation around one point.
type fudgeState struct {
	delta    float64
	e        float64 // total energy
	lz       float64
	u0, v0   float64
	pu0, pv0 float64
	i3u, j3  float64
	phi      float64
}

func (f *FudgeFinder) phiUV(u, v, delta float64) float64 {
	return f.pot.Value(coords.CylFromUV(u, v, delta))
}

// gU is the effective radial quasi-Hamiltonian profile along the u
// coordinate line through the point.
func (s *fudgeState) gU(f *FudgeFinder, u float64) float64 {
	sh := math.Sinh(u)
	sh2 := sh * sh
	sv := math.Sin(s.v0)
	g := s.e*sh2 - (sh2+sv*sv)*f.phiUV(u, s.v0, s.delta)
	if s.lz != 0 {
		g -= s.lz * s.lz / (2 * s.delta * s.delta * sh2)
	}
	return g
}

// fV is the vertical analogue along the v coordinate line.
func (s *fudgeState) fV(f *FudgeFinder, v float64) float64 {
	sv := math.Sin(v)
	sv2 := sv * sv
	sh := math.Sinh(s.u0)
	fv := s.e*sv2 - (sh*sh+sv2)*f.phiUV(s.u0, v, s.delta)
	if s.lz != 0 {
		fv -= s.lz * s.lz / (2 * s.delta * s.delta * sv2)
	}
	return fv
}

func (s *fudgeState) pu2(f *FudgeFinder, u float64) float64 {
	return 2 * s.delta * s.delta * (s.gU(f, u) - s.i3u)
}

func (s *fudgeState) pv2(f *FudgeFinder, v float64) float64 {
	return 2 * s.delta * s.delta * (s.fV(f, v) - s.j3)
}

// ActionAnglesFrequencies computes actions, angles and frequencies of xv.
//
// Points on the symmetry axis or at the centre follow the limiting
// policy: Jphi = 0 and the point is displaced by a tiny radial offset so
// the coordinate transform stays regular.
func (f *FudgeFinder) ActionAnglesFrequencies(xv coords.PosVelCyl) (ActionAngles, Frequencies, error) {
	if !xv.IsValid() {
		return ActionAngles{}, Frequencies{}, fmt.Errorf("%w: non-finite phase-space point", ErrActionComputation)
	}
	lz := xv.R * xv.VPhi
	rEff := math.Hypot(xv.R, xv.Z)
	if rEff == 0 {
		rEff = 1e-8
	}
	if xv.R < 1e-10*rEff {
		// axis policy: displace radially, keep Lz = 0
		xv.R = 1e-8 * rEff
		lz = 0
	}

	e := potential.TotalEnergy(f.pot, xv)
	delta := f.focalDistance(xv.PosCyl)
	u0, v0 := coords.UVFromCyl(xv.PosCyl, delta)
	if u0 < 1e-12 {
		u0 = 1e-12
	}
	shu, chu := math.Sinh(u0), math.Cosh(u0)
	snv, csv := math.Sincos(v0)
	pu0 := delta * (xv.VR*chu*snv + xv.VZ*shu*csv)
	pv0 := delta * (xv.VR*shu*csv - xv.VZ*chu*snv)

	st := &fudgeState{
		delta: delta, e: e, lz: lz,
		u0: u0, v0: v0, pu0: pu0, pv0: pv0,
		phi: xv.Phi,
	}
	st.i3u = st.gU(f, u0) - pu0*pu0/(2*delta*delta)
	st.j3 = st.fV(f, v0) - pv0*pv0/(2*delta*delta)

	umin, umax, err := f.radialTurningPoints(st)
	if err != nil {
		return ActionAngles{}, Frequencies{}, err
	}
	vmin, err := f.verticalTurningPoint(st)
	if err != nil {
		return ActionAngles{}, Frequencies{}, err
	}

	return f.assemble(st, umin, umax, vmin)
}

// radialTurningPoints brackets and refines the zeros of pu2 around u0.
//
// pu2(u0) reconstructs pu0 squared through a subtraction of the
// quasi-integral, so at a turning point (pu0 near zero) the value can
// land on either side of zero by roundoff; the epsilon of a naive sign
// test there is swamped by the same noise. Instead a non-positive value
// at u0 flags the sample as a turning point, and the values a short
// step to either side, well above the noise floor, tell which one.
func (f *FudgeFinder) radialTurningPoints(st *fudgeState) (umin, umax float64, err error) {
	pu2 := func(u float64) float64 { return st.pu2(f, u) }

	if pu2(st.u0) <= 0 {
		h := 1e-6 * (1 + st.u0)
		below, above := pu2(st.u0-h), pu2(st.u0+h)
		switch {
		case below <= 0 && above <= 0:
			// radially collapsed (shell) orbit
			return st.u0, st.u0, nil
		case below <= 0:
			// pericentre sample; the allowed region lies above
			umax, err = f.outerRadialTurning(st, pu2, st.u0+h)
			return st.u0, umax, err
		default:
			// apocentre sample
			umin, err = f.innerRadialTurning(st, pu2, st.u0-h)
			return umin, st.u0, err
		}
	}

	umin, err = f.innerRadialTurning(st, pu2, st.u0)
	if err != nil {
		return 0, 0, err
	}
	umax, err = f.outerRadialTurning(st, pu2, st.u0)
	if err != nil {
		return 0, 0, err
	}
	return umin, umax, nil
}

// innerRadialTurning scans down from a point with pu2 >= 0 until the
// sign flips, then refines by Brent.
func (f *FudgeFinder) innerRadialTurning(st *fudgeState, pu2 func(float64) float64, from float64) (float64, error) {
	lo := from
	for i := 0; i < 60; i++ {
		next := lo * 0.7
		if next < 1e-10 {
			break
		}
		if pu2(next) < 0 {
			umin, err := mathx.FindRoot(pu2, next, lo, 1e-12*(1+st.u0))
			if err != nil {
				return 0, fmt.Errorf("%w: inner radial turning point: %v", ErrActionComputation, err)
			}
			return umin, nil
		}
		lo = next
	}
	if st.lz != 0 && pu2(1e-9) < 0 {
		umin, err := mathx.FindRoot(pu2, 1e-9, lo, 1e-13)
		if err != nil {
			return 0, fmt.Errorf("%w: inner radial turning point: %v", ErrActionComputation, err)
		}
		return umin, nil
	}
	// orbit reaches the axis (Lz = 0)
	return 0, nil
}

// outerRadialTurning expands a growing bracket up from a point with
// pu2 >= 0, then refines by Brent.
func (f *FudgeFinder) outerRadialTurning(st *fudgeState, pu2 func(float64) float64, from float64) (float64, error) {
	step := math.Max(0.05, 0.3*st.u0)
	hi := from
	for i := 0; i < 60; i++ {
		next := hi + step
		if pu2(next) < 0 {
			umax, err := mathx.FindRoot(pu2, hi, next, 1e-12*(1+st.u0))
			if err != nil {
				return 0, fmt.Errorf("%w: outer radial turning point: %v", ErrActionComputation, err)
			}
			return umax, nil
		}
		hi = next
		step *= 1.5
	}
	return 0, fmt.Errorf("%w: no outer radial turning point (orbit unbound?)", ErrActionComputation)
}

// verticalTurningPoint brackets the zero of pv2 below the midplane value
// of v (the oscillation is symmetric about v = pi/2).
func (f *FudgeFinder) verticalTurningPoint(st *fudgeState) (float64, error) {
	pv2 := func(v float64) float64 { return st.pv2(f, v) }
	vs := math.Min(st.v0, math.Pi-st.v0)
	if vs <= 0 {
		vs = 1e-8
	}
	// pv2(v0) equals pv0 squared by construction; a non-positive value at
	// the folded sample coordinate can only mean the sample sits at its
	// own vertical turning point (planar orbits included)
	if pv2(vs) <= 0 {
		return vs, nil
	}
	lo := vs
	for i := 0; i < 60; i++ {
		next := lo * 0.7
		if next < 1e-10 {
			break
		}
		if pv2(next) < 0 {
			vmin, err := mathx.FindRoot(pv2, next, lo, 1e-13)
			if err != nil {
				return 0, fmt.Errorf("%w: vertical turning point: %v", ErrActionComputation, err)
			}
			return vmin, nil
		}
		lo = next
	}
	if st.lz == 0 {
		// orbit crosses the pole
		return 0, nil
	}
	return 0, fmt.Errorf("%w: vertical turning point not bracketed", ErrActionComputation)
}

// assemble performs the quadratures and converts the quasi-integrals to
// actions, angles and frequencies.
func (f *FudgeFinder) assemble(st *fudgeState, umin, umax, vmin float64) (ActionAngles, Frequencies, error) {
	n := f.opts.QuadOrder
	d2 := st.delta * st.delta

	pu := func(u float64) float64 { return math.Sqrt(math.Max(0, st.pu2(f, u))) }
	pv := func(v float64) float64 { return math.Sqrt(math.Max(0, st.pv2(f, v))) }

	// derivative integrands: dp/dE, dp/dI3, dp/dLz
	duE := func(u float64) float64 {
		p := pu(u)
		if p == 0 {
			return 0
		}
		sh := math.Sinh(u)
		return d2 * sh * sh / p
	}
	duI := func(u float64) float64 {
		p := pu(u)
		if p == 0 {
			return 0
		}
		return -d2 / p
	}
	duL := func(u float64) float64 {
		if st.lz == 0 {
			return 0
		}
		p := pu(u)
		if p == 0 {
			return 0
		}
		sh := math.Sinh(u)
		return -st.lz / (sh * sh * p)
	}
	dvE := func(v float64) float64 {
		p := pv(v)
		if p == 0 {
			return 0
		}
		sv := math.Sin(v)
		return d2 * sv * sv / p
	}
	dvI := func(v float64) float64 {
		p := pv(v)
		if p == 0 {
			return 0
		}
		return d2 / p
	}
	dvL := func(v float64) float64 {
		if st.lz == 0 {
			return 0
		}
		p := pv(v)
		if p == 0 {
			return 0
		}
		sv := math.Sin(v)
		return -st.lz / (sv * sv * p)
	}

	uWidth := umax - umin
	vWidth := math.Pi/2 - vmin

	jr := 0.0
	if uWidth > 1e-10 {
		jr = mathx.IntegrateSqrtBoth(pu, umin, umax, n) / math.Pi
	}
	jz := 0.0
	if vWidth > 1e-10 {
		jz = 2 / math.Pi * mathx.IntegrateSqrtLower(pv, vmin, math.Pi/2, n)
	}
	acts := Actions{Jr: math.Max(0, jr), Jz: math.Max(0, jz), Jphi: st.lz}

	// degenerate tori: fall back to epicyclic frequencies and
	// convention angles for collapsed degrees of freedom
	if uWidth <= 1e-8 && vWidth <= 1e-8 {
		kappa, nu, omega := potential.Epicycle(f.pot, radiusOf(st))
		aa := ActionAngles{Actions: acts, Angles: Angles{Thetaphi: mathx.WrapAngle(st.phi)}}
		return aa, Frequencies{Omegar: kappa, Omegaz: nu, Omegaphi: math.Copysign(omega, st.lz)}, nil
	}

	// full-cycle derivative integrals
	var aE, aI, aL, bE, bI, bL float64
	if uWidth > 1e-8 {
		aE = mathx.IntegrateSqrtBoth(duE, umin, umax, n) / math.Pi
		aI = mathx.IntegrateSqrtBoth(duI, umin, umax, n) / math.Pi
		aL = mathx.IntegrateSqrtBoth(duL, umin, umax, n) / math.Pi
	}
	if vWidth > 1e-8 {
		bE = 2 / math.Pi * mathx.IntegrateSqrtLower(dvE, vmin, math.Pi/2, n)
		bI = 2 / math.Pi * mathx.IntegrateSqrtLower(dvI, vmin, math.Pi/2, n)
		bL = 2 / math.Pi * mathx.IntegrateSqrtLower(dvL, vmin, math.Pi/2, n)
	}

	// incomplete integrals up to the sample point
	wOf := func(lam, full, p0 float64) float64 {
		if p0 >= 0 {
			return lam
		}
		return 2*full - lam
	}
	var dWdE, dWdI, dWdL float64
	var freq Frequencies

	switch {
	case vWidth <= 1e-8:
		// planar orbit: vertical degree of freedom collapsed
		if math.Abs(aE) < 1e-14 {
			return ActionAngles{}, Frequencies{}, fmt.Errorf("%w: degenerate radial period", ErrActionComputation)
		}
		up := math.Min(math.Max(st.u0, umin), umax)
		var lamE, lamL float64
		switch eps := 1e-8 * (1 + umax); {
		case up-umin <= eps:
		case umax-up <= eps:
			lamE, lamL = aE*math.Pi, aL*math.Pi
		default:
			lamE = mathx.IntegrateSqrtLower(duE, umin, up, n)
			lamL = mathx.IntegrateSqrtLower(duL, umin, up, n)
		}
		dWdE = wOf(lamE, aE*math.Pi, st.pu0)
		dWdL = wOf(lamL, aL*math.Pi, st.pu0) + st.phi
		freq.Omegar = 1 / (math.Pi * aE)
		_, nu, _ := potential.Epicycle(f.pot, radiusOf(st))
		freq.Omegaz = nu
		freq.Omegaphi = -aL / aE
		thr := mathx.WrapAngle(dWdE / (math.Pi * aE))
		thphi := mathx.WrapAngle(dWdL - aL/aE*dWdE)
		aa := ActionAngles{
			Actions: acts,
			Angles:  Angles{Thetar: thr, Thetaz: 0, Thetaphi: thphi},
		}
		return aa, freq, nil

	case uWidth <= 1e-8:
		// shell orbit: radial degree of freedom collapsed
		if math.Abs(bI) < 1e-14 {
			return ActionAngles{}, Frequencies{}, fmt.Errorf("%w: degenerate vertical period", ErrActionComputation)
		}
		lamE := halfCycleIncomplete(dvE, st, vmin, n)
		lamL := halfCycleIncomplete(dvL, st, vmin, n)
		dWdE = wOf(lamE, bE*math.Pi, st.pv0)
		dWdL = wOf(lamL, bL*math.Pi, st.pv0) + st.phi
		kappa, _, _ := potential.Epicycle(f.pot, radiusOf(st))
		// in the collapsed radial limit E plays the role of the
		// vertical integral directly
		freq.Omegar = kappa
		freq.Omegaz = 1 / (math.Pi * bE)
		freq.Omegaphi = -bL / bE
		thz := mathx.WrapAngle(dWdE / (math.Pi * bE))
		thphi := mathx.WrapAngle(dWdL - bL/bE*dWdE)
		aa := ActionAngles{
			Actions: acts,
			Angles:  Angles{Thetar: 0, Thetaz: thz, Thetaphi: thphi},
		}
		return aa, freq, nil
	}

	det := aE*bI - aI*bE
	if math.Abs(det) < 1e-16 {
		return ActionAngles{}, Frequencies{}, fmt.Errorf("%w: singular frequency matrix", ErrActionComputation)
	}
	freq = Frequencies{
		Omegar:   bI / det,
		Omegaz:   -aI / det,
		Omegaphi: (aI*bL - aL*bI) / det,
	}

	fullUE := aE * math.Pi
	fullUI := aI * math.Pi
	fullUL := aL * math.Pi
	// incomplete integrals degenerate at the turning points: zero at
	// pericentre, the full one-way integral at apocentre; integrating up
	// to the singular upper endpoint would lose accuracy there
	up := math.Min(math.Max(st.u0, umin), umax)
	var lamUE, lamUI, lamUL float64
	switch eps := 1e-8 * (1 + umax); {
	case up-umin <= eps:
	case umax-up <= eps:
		lamUE, lamUI, lamUL = fullUE, fullUI, fullUL
	default:
		lamUE = mathx.IntegrateSqrtLower(duE, umin, up, n)
		lamUI = mathx.IntegrateSqrtLower(duI, umin, up, n)
		lamUL = mathx.IntegrateSqrtLower(duL, umin, up, n)
	}
	wUE := wOf(lamUE, fullUE, st.pu0)
	wUI := wOf(lamUI, fullUI, st.pu0)
	wUL := wOf(lamUL, fullUL, st.pu0)

	lamVE := halfCycleIncomplete(dvE, st, vmin, n)
	lamVI := halfCycleIncomplete(dvI, st, vmin, n)
	lamVL := halfCycleIncomplete(dvL, st, vmin, n)
	// full v cycle integral is 4x the quarter integral; wOf uses half
	halfVE := bE * math.Pi
	halfVI := bI * math.Pi
	halfVL := bL * math.Pi
	wVE := wOf(lamVE, halfVE, st.pv0)
	wVI := wOf(lamVI, halfVI, st.pv0)
	wVL := wOf(lamVL, halfVL, st.pv0)

	dWdE = wUE + wVE
	dWdI = wUI + wVI
	dWdL = wUL + wVL + st.phi

	thr := mathx.WrapAngle((bI*dWdE - bE*dWdI) / det)
	thz := mathx.WrapAngle((-aI*dWdE + aE*dWdI) / det)
	thphi := mathx.WrapAngle((aI*bL-aL*bI)/det*dWdE + (aL*bE-aE*bL)/det*dWdI + dWdL)

	aa := ActionAngles{
		Actions: acts,
		Angles:  Angles{Thetar: thr, Thetaz: thz, Thetaphi: thphi},
	}
	return aa, freq, nil
}

// halfCycleIncomplete integrates a v integrand from the turning point to
// the sample's v coordinate, folding v > pi/2 through the midplane
// symmetry of the oscillation.
func halfCycleIncomplete(fn func(float64) float64, st *fudgeState, vmin float64, n int) float64 {
	vs := st.v0
	half := mathx.IntegrateSqrtLower(fn, vmin, math.Pi/2, n)
	if vs <= math.Pi/2 {
		return mathx.IntegrateSqrtLower(fn, vmin, math.Max(vs, vmin), n)
	}
	mirror := math.Pi - vs
	return 2*half - mathx.IntegrateSqrtLower(fn, vmin, math.Max(mirror, vmin), n)
}

// radiusOf returns the cylindrical radius of the sample point.
func radiusOf(st *fudgeState) float64 {
	p := coords.CylFromUV(st.u0, st.v0, st.delta)
	return math.Max(p.R, 1e-8)
}
