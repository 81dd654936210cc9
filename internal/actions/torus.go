package actions

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/odonata-labs/aatorus/internal/coords"
	"github.com/odonata-labs/aatorus/internal/mathx"
	"github.com/odonata-labs/aatorus/internal/potential"
)

// TorusOptions tune the torus fit. The defaults are adequate for regular
// orbits in smooth galactic potentials.
type TorusOptions struct {
	// GridSize is the number of toy-angle samples per dimension used to
	// fit the generating function.
	GridSize int
	// MaxOrder is the starting Fourier order of the generating function
	// (vertical orders are even only, assuming z-symmetry).
	MaxOrder int
	// MaxOrderCap bounds the adaptive basis growth: when the fit at the
	// current order stalls above AcceptTolerance the order is raised by
	// two and the fit resumed, until the cap is reached. Flattened
	// potentials typically need more terms than spherical ones.
	MaxOrderCap int
	// Tolerance is the relative Hamiltonian dispersion on the torus at
	// which the fit is considered converged.
	Tolerance float64
	// AcceptTolerance is the relative dispersion beyond which the fit is
	// rejected outright as a construction failure.
	AcceptTolerance float64
	// MaxIter bounds the Gauss-Newton iterations.
	MaxIter int
}

// DefaultTorusOptions returns the standard fit configuration.
func DefaultTorusOptions() TorusOptions {
	return TorusOptions{
		GridSize:        12,
		MaxOrder:        4,
		MaxOrderCap:     12,
		Tolerance:       1e-9,
		AcceptTolerance: 1e-4,
		MaxIter:         40,
	}
}

// TorusMapper is the forward action-angle transform: it constructs a
// canonical torus for a given action triple by fitting a generating
// function from isochrone toy coordinates to the true potential, then
// evaluates phase-space points at arbitrary angles on that torus.
//
// The fitted torus is cached; repeated calls with the same actions reuse
// it. A TorusMapper is not safe for concurrent use.
type TorusMapper struct {
	pot  potential.Potential
	opts TorusOptions

	// state of the currently fitted torus
	acts   Actions
	iso    Isochrone
	nvec   [][2]int     // generating-function index set (nr, nz)
	sn     []float64    // S_n coefficients
	dsdJ   [][3]float64 // dS_n/d(Jr,Jz,Jphi)
	freqs  Frequencies
	fitted bool
}

// NewTorusMapper creates a mapper for the given potential with default
// options.
func NewTorusMapper(pot potential.Potential) *TorusMapper {
	return NewTorusMapperWith(pot, DefaultTorusOptions())
}

// NewTorusMapperWith creates a mapper with explicit fit options.
func NewTorusMapperWith(pot potential.Potential, opts TorusOptions) *TorusMapper {
	return &TorusMapper{pot: pot, opts: opts}
}

// Map evaluates the forward transform at the given actions and angles.
// Angles may be any real numbers; they are reduced modulo 2pi.
func (t *TorusMapper) Map(aa ActionAngles) (coords.PosVelCyl, error) {
	xv, _, err := t.MapWithFrequencies(aa)
	return xv, err
}

// MapWithFrequencies additionally returns the fitted orbital frequencies
// of the torus (a byproduct of construction, not recomputed per call).
func (t *TorusMapper) MapWithFrequencies(aa ActionAngles) (coords.PosVelCyl, Frequencies, error) {
	if err := t.ensureTorus(aa.Actions); err != nil {
		return coords.PosVelCyl{}, Frequencies{}, err
	}
	toy, err := t.toyAngles(aa.Angles)
	if err != nil {
		return coords.PosVelCyl{}, Frequencies{}, err
	}
	xv, err := t.evalToy(toy)
	if err != nil {
		return coords.PosVelCyl{}, Frequencies{}, err
	}
	return xv, t.freqs, nil
}

// Frequencies returns the orbital frequencies for the given actions,
// fitting the torus if necessary.
func (t *TorusMapper) Frequencies(acts Actions) (Frequencies, error) {
	if err := t.ensureTorus(acts); err != nil {
		return Frequencies{}, err
	}
	return t.freqs, nil
}

func (t *TorusMapper) ensureTorus(acts Actions) error {
	if t.fitted && acts == t.acts {
		return nil
	}
	if err := t.fit(acts); err != nil {
		t.fitted = false
		return err
	}
	return nil
}

// indexSet builds the generating-function basis. For planar orbits
// (Jz=0) the vertical degree of freedom is absent and only radial terms
// are kept.
func indexSet(maxOrder int, planar bool) [][2]int {
	var nvec [][2]int
	for nr := 0; nr <= maxOrder; nr++ {
		if planar {
			if nr > 0 {
				nvec = append(nvec, [2]int{nr, 0})
			}
			continue
		}
		for nz := -maxOrder; nz <= maxOrder; nz += 2 {
			if nr == 0 && nz <= 0 {
				continue
			}
			nvec = append(nvec, [2]int{nr, nz})
		}
	}
	return nvec
}

// toyActionsAt applies the generating function at toy angles, returning
// the toy action pair (radial, vertical). Values are clamped at zero;
// a well-fitted torus stays clear of the clamp.
func toyActionsAt(acts Actions, nvec [][2]int, sn []float64, thr, thz float64) (jr, jz float64) {
	jr, jz = acts.Jr, acts.Jz
	for i, n := range nvec {
		c := 2 * sn[i] * math.Cos(float64(n[0])*thr+float64(n[1])*thz)
		jr += float64(n[0]) * c
		jz += float64(n[1]) * c
	}
	return math.Max(0, jr), math.Max(0, jz)
}

// fit constructs the torus for the given actions.
func (t *TorusMapper) fit(acts Actions) error {
	if acts.Jr < 0 || acts.Jz < 0 {
		return fmt.Errorf("%w: negative actions (%s)", ErrTorusConstruction, acts)
	}
	if acts.Jr == 0 && acts.Jz == 0 && acts.Jphi == 0 {
		return fmt.Errorf("%w: all actions zero", ErrTorusConstruction)
	}

	// initial toy parameters from the circular orbit with a comparable
	// angular momentum scale
	lScale := math.Abs(acts.Jphi) + acts.Jz + acts.Jr
	rc, err := potential.Rcirc(t.pot, lScale)
	if err != nil || rc <= 0 {
		return fmt.Errorf("%w: no circular orbit for action scale %g", ErrTorusConstruction, lScale)
	}
	vc := potential.Vcirc(t.pot, rc)
	if vc <= 0 {
		return fmt.Errorf("%w: vanishing circular speed at R=%g", ErrTorusConstruction, rc)
	}
	m0 := vc * vc * rc * (1 + math.Sqrt2) * (1 + math.Sqrt2) * math.Sqrt2
	b0 := rc

	planar := acts.Jz == 0
	order := t.opts.MaxOrder
	maxOrder := t.opts.MaxOrderCap
	if maxOrder < order {
		maxOrder = order
	}

	// grow the Fourier basis until the Hamiltonian dispersion on the
	// torus is acceptable; a basis fitted at one order warm-starts the
	// next, with the new coefficients entering at zero
	carry := map[[2]int]float64{}
	lnM, lnB := math.Log(m0), math.Log(b0)
	var nvec [][2]int
	var grid [][2]float64
	var params []float64
	var rel float64
	for {
		nvec = indexSet(order, planar)
		grid = t.angleGrid(planar, order)
		params = make([]float64, 2+len(nvec)) // ln M, ln B, S_n...
		params[0] = lnM
		params[1] = lnB
		for i, n := range nvec {
			params[2+i] = carry[n]
		}
		var err error
		params, rel, err = t.fitBasis(acts, nvec, grid, params)
		if err != nil {
			return err
		}
		lnM, lnB = params[0], params[1]
		for i, n := range nvec {
			carry[n] = params[2+i]
		}
		if rel <= t.opts.AcceptTolerance || order >= maxOrder {
			break
		}
		order += 2
	}

	if rel > t.opts.AcceptTolerance {
		return fmt.Errorf("%w: fit residual %.3g exceeds tolerance %.3g at order %d",
			ErrTorusConstruction, rel, t.opts.AcceptTolerance, order)
	}

	t.acts = acts
	t.iso = Isochrone{M: math.Exp(params[0]), B: math.Exp(params[1])}
	t.nvec = nvec
	t.sn = append([]float64(nil), params[2:]...)
	if err := t.fitAngleMap(grid); err != nil {
		return err
	}
	if t.freqs.Omegar <= 0 || (!planar && t.freqs.Omegaz <= 0) {
		return fmt.Errorf("%w: non-positive fitted frequencies (%s)", ErrTorusConstruction, t.freqs)
	}
	t.fitted = true
	return nil
}

// fitBasis runs the damped Gauss-Newton fit for a fixed index set,
// minimizing the Hamiltonian variance over the toy-angle grid. It
// returns the optimized parameters and the relative rms dispersion
// achieved.
func (t *TorusMapper) fitBasis(acts Actions, nvec [][2]int, grid [][2]float64, params []float64) ([]float64, float64, error) {
	resid := func(p []float64) ([]float64, float64, error) {
		iso := Isochrone{M: math.Exp(p[0]), B: math.Exp(p[1])}
		h := make([]float64, len(grid))
		mean := 0.0
		for i, th := range grid {
			jr, jz := toyActionsAt(acts, nvec, p[2:], th[0], th[1])
			xv, err := iso.Map(ActionAngles{
				Actions: Actions{Jr: jr, Jz: jz, Jphi: acts.Jphi},
				Angles:  Angles{Thetar: th[0], Thetaz: th[1]},
			})
			if err != nil {
				return nil, 0, err
			}
			h[i] = potential.TotalEnergy(t.pot, xv)
			mean += h[i]
		}
		mean /= float64(len(grid))
		for i := range h {
			h[i] -= mean
		}
		return h, mean, nil
	}

	r, meanH, err := resid(params)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: initial toy torus invalid: %v", ErrTorusConstruction, err)
	}
	cost := norm2(r)
	lambda := 1e-3
	hScale := math.Max(math.Abs(meanH), 1e-12)

	for iter := 0; iter < t.opts.MaxIter; iter++ {
		if rmsOf(r)/hScale < t.opts.Tolerance {
			break
		}
		jac, err := t.jacobian(resid, params, r)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrTorusConstruction, err)
		}
		improved := false
		for try := 0; try < 12 && lambda < 1e10; try++ {
			step, err := dampedStep(jac, r, lambda)
			if err != nil {
				lambda *= 10
				continue
			}
			trial := make([]float64, len(params))
			for i := range params {
				trial[i] = params[i] + step[i]
			}
			rt, mt, err := resid(trial)
			if err == nil && norm2(rt) < cost {
				params, r, cost, meanH = trial, rt, norm2(rt), mt
				hScale = math.Max(math.Abs(meanH), 1e-12)
				lambda = math.Max(lambda/3, 1e-12)
				improved = true
				break
			}
			lambda *= 10
		}
		if !improved {
			// stalled at this order; the caller may grow the basis
			break
		}
	}
	return params, rmsOf(r) / hScale, nil
}

// angleGrid samples the toy angles densely enough to resolve every term
// of the index set without aliasing.
func (t *TorusMapper) angleGrid(planar bool, order int) [][2]float64 {
	n := t.opts.GridSize
	if need := 2*order + 4; n < need {
		n = need
	}
	var grid [][2]float64
	if planar {
		for i := 0; i < n*n/2; i++ {
			grid = append(grid, [2]float64{mathx.TwoPi * float64(i) / float64(n*n/2), 0})
		}
		return grid
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			grid = append(grid, [2]float64{
				mathx.TwoPi * float64(i) / float64(n),
				mathx.TwoPi * float64(j) / float64(n),
			})
		}
	}
	return grid
}

func (t *TorusMapper) jacobian(resid func([]float64) ([]float64, float64, error), p, r0 []float64) (*mat.Dense, error) {
	jac := mat.NewDense(len(r0), len(p), nil)
	for j := range p {
		h := 1e-6 * math.Max(math.Abs(p[j]), 1e-3)
		pj := append([]float64(nil), p...)
		pj[j] += h
		rj, _, err := resid(pj)
		if err != nil {
			return nil, fmt.Errorf("jacobian evaluation: %v", err)
		}
		for i := range r0 {
			jac.Set(i, j, (rj[i]-r0[i])/h)
		}
	}
	return jac, nil
}

// dampedStep solves the Levenberg-damped normal equations via the
// augmented least-squares system [J; sqrt(lambda) I] s = [-r; 0].
func dampedStep(jac *mat.Dense, r []float64, lambda float64) ([]float64, error) {
	rows, cols := jac.Dims()
	aug := mat.NewDense(rows+cols, cols, nil)
	aug.Slice(0, rows, 0, cols).(*mat.Dense).Copy(jac)
	sq := math.Sqrt(lambda)
	for j := 0; j < cols; j++ {
		aug.Set(rows+j, j, sq)
	}
	b := mat.NewVecDense(rows+cols, nil)
	for i := range r {
		b.SetVec(i, -r[i])
	}
	x, err := mathx.SolveLeastSquares(aug, b)
	if err != nil {
		return nil, err
	}
	out := make([]float64, cols)
	for i := range out {
		out[i] = x.AtVec(i)
	}
	return out, nil
}

// fitAngleMap recovers the frequencies and the action derivatives of the
// generating function by linear least squares over the fitted torus:
// along the torus the true angles evolve linearly, so for each component
// k and each grid point, Omega_k = h_k + sum_n dS_n/dJ_k * 2(n.h) cos(n.theta),
// where h_j = dH/dJtoy_j evaluated numerically.
func (t *TorusMapper) fitAngleMap(grid [][2]float64) error {
	acts := t.acts
	eps := 1e-6 * (math.Abs(acts.Jr) + math.Abs(acts.Jz) + math.Abs(acts.Jphi) + 1e-3)

	hAt := func(th [2]float64) ([3]float64, error) {
		jr, jz := toyActionsAt(acts, t.nvec, t.sn, th[0], th[1])
		base := Actions{Jr: jr, Jz: jz, Jphi: acts.Jphi}
		var out [3]float64
		for j := 0; j < 3; j++ {
			plus, minus := base, base
			switch j {
			case 0:
				plus.Jr += eps
				minus.Jr = math.Max(0, minus.Jr-eps)
			case 1:
				plus.Jz += eps
				minus.Jz = math.Max(0, minus.Jz-eps)
			case 2:
				plus.Jphi += eps
				minus.Jphi -= eps
			}
			hp, err := t.toyEnergy(plus, th)
			if err != nil {
				return out, err
			}
			hm, err := t.toyEnergy(minus, th)
			if err != nil {
				return out, err
			}
			var span float64
			switch j {
			case 0:
				span = plus.Jr - minus.Jr
			case 1:
				span = plus.Jz - minus.Jz
			case 2:
				span = plus.Jphi - minus.Jphi
			}
			out[j] = (hp - hm) / span
		}
		return out, nil
	}

	n := len(grid)
	hs := make([][3]float64, n)
	for i, th := range grid {
		h, err := hAt(th)
		if err != nil {
			return fmt.Errorf("%w: angle-map fit: %v", ErrTorusConstruction, err)
		}
		hs[i] = h
	}

	t.dsdJ = make([][3]float64, len(t.nvec))
	var omega [3]float64
	for k := 0; k < 3; k++ {
		a := mat.NewDense(n, 1+len(t.nvec), nil)
		b := mat.NewVecDense(n, nil)
		for i, th := range grid {
			a.Set(i, 0, 1)
			nh := hs[i]
			for q, nn := range t.nvec {
				dot := float64(nn[0])*nh[0] + float64(nn[1])*nh[1]
				c := 2 * dot * math.Cos(float64(nn[0])*th[0]+float64(nn[1])*th[1])
				a.Set(i, 1+q, -c)
			}
			b.SetVec(i, nh[k])
		}
		x, err := mathx.SolveLeastSquares(a, b)
		if err != nil {
			return fmt.Errorf("%w: angle-map least squares: %v", ErrTorusConstruction, err)
		}
		omega[k] = x.AtVec(0)
		for q := range t.nvec {
			t.dsdJ[q][k] = x.AtVec(1 + q)
		}
	}
	t.freqs = Frequencies{Omegar: omega[0], Omegaz: omega[1], Omegaphi: omega[2]}
	return nil
}

func (t *TorusMapper) toyEnergy(acts Actions, th [2]float64) (float64, error) {
	xv, err := t.iso.Map(ActionAngles{
		Actions: acts,
		Angles:  Angles{Thetar: th[0], Thetaz: th[1]},
	})
	if err != nil {
		return 0, err
	}
	return potential.TotalEnergy(t.pot, xv), nil
}

// toyAngles inverts the angle map theta(thetaToy) by 2-D Newton
// iteration in the radial/vertical pair; the azimuthal toy angle then
// follows explicitly.
func (t *TorusMapper) toyAngles(th Angles) (Angles, error) {
	target := [2]float64{mathx.WrapAngle(th.Thetar), mathx.WrapAngle(th.Thetaz)}
	toy := target
	for iter := 0; iter < 40; iter++ {
		f := [2]float64{toy[0], toy[1]}
		var jac [2][2]float64
		jac[0][0], jac[1][1] = 1, 1
		for q, nn := range t.nvec {
			arg := float64(nn[0])*toy[0] + float64(nn[1])*toy[1]
			s, c := math.Sincos(arg)
			f[0] += 2 * t.dsdJ[q][0] * s
			f[1] += 2 * t.dsdJ[q][1] * s
			jac[0][0] += 2 * t.dsdJ[q][0] * float64(nn[0]) * c
			jac[0][1] += 2 * t.dsdJ[q][0] * float64(nn[1]) * c
			jac[1][0] += 2 * t.dsdJ[q][1] * float64(nn[0]) * c
			jac[1][1] += 2 * t.dsdJ[q][1] * float64(nn[1]) * c
		}
		r0 := wrapToPi(f[0] - target[0])
		r1 := wrapToPi(f[1] - target[1])
		if math.Abs(r0)+math.Abs(r1) < 1e-13 {
			phiToy := th.Thetaphi
			for q, nn := range t.nvec {
				arg := float64(nn[0])*toy[0] + float64(nn[1])*toy[1]
				phiToy -= 2 * t.dsdJ[q][2] * math.Sin(arg)
			}
			return Angles{Thetar: toy[0], Thetaz: toy[1], Thetaphi: phiToy}, nil
		}
		det := jac[0][0]*jac[1][1] - jac[0][1]*jac[1][0]
		if math.Abs(det) < 1e-12 {
			break
		}
		toy[0] -= (r0*jac[1][1] - r1*jac[0][1]) / det
		toy[1] -= (r1*jac[0][0] - r0*jac[1][0]) / det
	}
	return Angles{}, fmt.Errorf("actions: torus angle map inversion did not converge")
}

func (t *TorusMapper) evalToy(toy Angles) (coords.PosVelCyl, error) {
	jr, jz := toyActionsAt(t.acts, t.nvec, t.sn, toy.Thetar, toy.Thetaz)
	return t.iso.Map(ActionAngles{
		Actions: Actions{Jr: jr, Jz: jz, Jphi: t.acts.Jphi},
		Angles:  toy,
	})
}

func wrapToPi(x float64) float64 {
	x = math.Mod(x, mathx.TwoPi)
	if x > math.Pi {
		x -= mathx.TwoPi
	} else if x < -math.Pi {
		x += mathx.TwoPi
	}
	return x
}

func norm2(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x * x
	}
	return s
}

func rmsOf(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return math.Sqrt(norm2(v) / float64(len(v)))
}
