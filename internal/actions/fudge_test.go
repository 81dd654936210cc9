package actions

import (
	"errors"
	"math"
	"testing"

	"github.com/odonata-labs/aatorus/internal/coords"
	"github.com/odonata-labs/aatorus/internal/mathx"
	"github.com/odonata-labs/aatorus/internal/potential"
)

// In a spherical potential the prolate coordinates degenerate towards
// spherical ones and the fudge becomes nearly exact, so points generated
// by the closed-form isochrone transform must map back to their actions.
func TestFudgeRecoversIsochroneActions(t *testing.T) {
	iso := Isochrone{M: 2.0, B: 0.5}
	pot := potential.Isochrone{M: 2.0, B: 0.5}
	finder := NewFudgeFinder(pot)
	acts := Actions{Jr: 0.15, Jz: 0.25, Jphi: 0.9}

	angles := []Angles{
		{Thetar: 0.7, Thetaz: 1.1, Thetaphi: 0.3},
		{Thetar: 2.9, Thetaz: 4.0, Thetaphi: 5.1},
		{Thetar: 4.4, Thetaz: 2.2, Thetaphi: 1.8},
		{Thetar: 5.8, Thetaz: 0.4, Thetaphi: 3.3},
	}
	for _, ang := range angles {
		xv, err := iso.Map(ActionAngles{Actions: acts, Angles: ang})
		if err != nil {
			t.Fatalf("toy map at %v: %v", ang, err)
		}
		got, err := finder.Actions(xv)
		if err != nil {
			t.Fatalf("fudge at %v: %v", ang, err)
		}
		if math.Abs(got.Jr-acts.Jr) > 0.02*acts.Jr+1e-4 {
			t.Errorf("Jr at %v = %g, want %g", ang, got.Jr, acts.Jr)
		}
		if math.Abs(got.Jz-acts.Jz) > 0.02*acts.Jz+1e-4 {
			t.Errorf("Jz at %v = %g, want %g", ang, got.Jz, acts.Jz)
		}
		if math.Abs(got.Jphi-acts.Jphi) > 1e-12 {
			t.Errorf("Jphi at %v = %g, want %g", ang, got.Jphi, acts.Jphi)
		}
	}
}

func TestFudgeFrequenciesIsochrone(t *testing.T) {
	iso := Isochrone{M: 2.0, B: 0.5}
	pot := potential.Isochrone{M: 2.0, B: 0.5}
	finder := NewFudgeFinder(pot)
	acts := Actions{Jr: 0.1, Jz: 0.2, Jphi: 0.8}
	want := iso.Frequencies(acts)

	xv, err := iso.Map(ActionAngles{Actions: acts, Angles: Angles{Thetar: 1.0, Thetaz: 2.0, Thetaphi: 0.5}})
	if err != nil {
		t.Fatal(err)
	}
	_, freq, err := finder.ActionAnglesFrequencies(xv)
	if err != nil {
		t.Fatal(err)
	}
	checkRel := func(name string, got, w float64) {
		t.Helper()
		if math.Abs(got-w) > 0.03*math.Abs(w) {
			t.Errorf("%s = %g, want %g", name, got, w)
		}
	}
	checkRel("Omegar", freq.Omegar, want.Omegar)
	checkRel("Omegaz", freq.Omegaz, want.Omegaz)
	checkRel("Omegaphi", freq.Omegaphi, want.Omegaphi)
}

// Sampling one orbit at equal angle steps and regressing the recovered
// angles against the sample index must reproduce the stepped rates with
// small residual scatter. This is the same consistency loop the
// validation driver runs.
func TestFudgeAngleRegressionIsochrone(t *testing.T) {
	iso := Isochrone{M: 2.0, B: 0.5}
	pot := potential.Isochrone{M: 2.0, B: 0.5}
	finder := NewFudgeFinder(pot)
	acts := Actions{Jr: 0.1, Jz: 0.1, Jphi: 1.0}
	freq := iso.Frequencies(acts)

	const n = 32
	scale := math.Max(freq.Omegar, math.Max(freq.Omegaz, math.Abs(freq.Omegaphi)))
	var ast AngleStat
	for i := 0; i < n; i++ {
		// two full periods of the fastest frequency
		s := float64(i) / n * 2 * mathx.TwoPi / scale
		xv, err := iso.Map(ActionAngles{
			Actions: acts,
			Angles: Angles{
				Thetar:   freq.Omegar * s,
				Thetaz:   freq.Omegaz * s,
				Thetaphi: freq.Omegaphi * s,
			},
		})
		if err != nil {
			t.Fatal(err)
		}
		aa, err := finder.ActionAngles(xv)
		if err != nil {
			t.Fatalf("sample %d: %v", i, err)
		}
		ast.Add(float64(i), aa)
	}
	ast.Finish()

	step := 2 * mathx.TwoPi / scale / n
	checkRate := func(name string, got, omega float64) {
		t.Helper()
		want := omega * step
		if math.Abs(got-want) > 0.02*math.Abs(want) {
			t.Errorf("%s rate = %g, want %g", name, got, want)
		}
	}
	checkRate("radial", ast.Freqr(), freq.Omegar)
	checkRate("vertical", ast.Freqz(), freq.Omegaz)
	checkRate("azimuthal", ast.Freqphi(), freq.Omegaphi)

	for name, d := range map[string]float64{
		"radial": ast.Dispr(), "vertical": ast.Dispz(), "azimuthal": ast.Dispphi(),
	} {
		if d > 0.05 {
			t.Errorf("%s angle scatter = %g, want < 0.05", name, d)
		}
	}
}

func TestFudgePlanarOrbit(t *testing.T) {
	pot := potential.Isochrone{M: 1.5, B: 0.4}
	finder := NewFudgeFinder(pot)
	xv := coords.PosVelCyl{
		PosCyl: coords.PosCyl{R: 1.2, Z: 0, Phi: 0.7},
		VelCyl: coords.VelCyl{VR: 0.15, VZ: 0, VPhi: 0.9},
	}
	aa, freq, err := finder.ActionAnglesFrequencies(xv)
	if err != nil {
		t.Fatal(err)
	}
	if aa.Jz > 1e-8 {
		t.Errorf("planar orbit Jz = %g, want 0", aa.Jz)
	}
	if aa.Thetaz != 0 {
		t.Errorf("planar orbit thetaz = %g, want 0", aa.Thetaz)
	}
	if aa.Jr <= 0 {
		t.Errorf("non-circular planar orbit Jr = %g, want > 0", aa.Jr)
	}
	if freq.Omegar <= 0 || freq.Omegaz <= 0 {
		t.Errorf("frequencies %s, want positive radial and vertical", freq)
	}
	if math.Abs(aa.Jphi-1.2*0.9) > 1e-12 {
		t.Errorf("Jphi = %g, want %g", aa.Jphi, 1.2*0.9)
	}
}

// Orbit samples taken exactly at pericentre or apocentre sit on a zero
// of the radial momentum, where the turning-point bracketing is at its
// most delicate; a deterministic sampling of a few periods always lands
// on such points, so they must go through like any other sample.
func TestFudgeTurningPointSamples(t *testing.T) {
	iso := Isochrone{M: 2.0, B: 0.5}
	pot := potential.Isochrone{M: 2.0, B: 0.5}
	finder := NewFudgeFinder(pot)
	acts := Actions{Jr: 0.1, Jz: 0.1, Jphi: 1.0}

	angles := []Angles{
		{Thetar: 0, Thetaz: 1.3, Thetaphi: 0.4},
		{Thetar: math.Pi, Thetaz: 2.5, Thetaphi: 1.1},
		{Thetar: math.Pi, Thetaz: 0, Thetaphi: 2.0},
		{Thetar: 0.9, Thetaz: math.Pi, Thetaphi: 3.0},
	}
	for _, ang := range angles {
		xv, err := iso.Map(ActionAngles{Actions: acts, Angles: ang})
		if err != nil {
			t.Fatalf("toy map at %v: %v", ang, err)
		}
		got, err := finder.ActionAngles(xv)
		if err != nil {
			t.Fatalf("fudge at %v: %v", ang, err)
		}
		if math.Abs(got.Jr-acts.Jr) > 0.02*acts.Jr+1e-4 {
			t.Errorf("Jr at %v = %g, want %g", ang, got.Jr, acts.Jr)
		}
		if math.Abs(got.Jz-acts.Jz) > 0.02*acts.Jz+1e-4 {
			t.Errorf("Jz at %v = %g, want %g", ang, got.Jz, acts.Jz)
		}
		if math.Abs(got.Jphi-acts.Jphi) > 1e-12 {
			t.Errorf("Jphi at %v = %g, want %g", ang, got.Jphi, acts.Jphi)
		}
		// the radial angle is sqrt-sensitive to position errors near its
		// turning points, hence the looser tolerance
		if d := mathx.AngleDist(got.Thetar, ang.Thetar); math.Abs(d) > 0.05 {
			t.Errorf("thetar at %v = %g, want %g", ang, got.Thetar, ang.Thetar)
		}
	}
}

// A planar orbit sampled at its apocentre combines two degeneracies:
// the collapsed vertical degree of freedom and a radial momentum zero.
func TestFudgePlanarTurningPoint(t *testing.T) {
	iso := Isochrone{M: 1.5, B: 0.4}
	pot := potential.Isochrone{M: 1.5, B: 0.4}
	finder := NewFudgeFinder(pot)
	acts := Actions{Jr: 0.12, Jz: 0, Jphi: 0.8}

	xv, err := iso.Map(ActionAngles{Actions: acts, Angles: Angles{Thetar: math.Pi, Thetaphi: 0.7}})
	if err != nil {
		t.Fatal(err)
	}
	aa, err := finder.ActionAngles(xv)
	if err != nil {
		t.Fatal(err)
	}
	if aa.Jz > 1e-8 {
		t.Errorf("planar orbit Jz = %g, want 0", aa.Jz)
	}
	if math.Abs(aa.Jr-acts.Jr) > 0.02*acts.Jr+1e-4 {
		t.Errorf("Jr = %g, want %g", aa.Jr, acts.Jr)
	}
	if d := mathx.AngleDist(aa.Thetar, math.Pi); math.Abs(d) > 0.05 {
		t.Errorf("thetar = %g, want pi", aa.Thetar)
	}
}

func TestFudgeUnboundOrbit(t *testing.T) {
	pot := potential.Isochrone{M: 1, B: 0.3}
	finder := NewFudgeFinder(pot)
	xv := coords.PosVelCyl{
		PosCyl: coords.PosCyl{R: 1, Z: 0.2},
		VelCyl: coords.VelCyl{VR: 50, VZ: 1, VPhi: 1},
	}
	_, err := finder.ActionAngles(xv)
	if !errors.Is(err, ErrActionComputation) {
		t.Errorf("unbound orbit: got %v, want ErrActionComputation", err)
	}
}

func TestFudgeRejectsInvalidPoint(t *testing.T) {
	finder := NewFudgeFinder(potential.Isochrone{M: 1, B: 0.3})
	xv := coords.PosVelCyl{
		PosCyl: coords.PosCyl{R: math.NaN(), Z: 0},
		VelCyl: coords.VelCyl{VR: 0.1},
	}
	_, err := finder.ActionAngles(xv)
	if !errors.Is(err, ErrActionComputation) {
		t.Errorf("NaN point: got %v, want ErrActionComputation", err)
	}
}
