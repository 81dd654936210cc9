package coords

import (
	"math"
	"testing"
)

func approxEq(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestCylCarRoundTrip(t *testing.T) {
	p := PosVelCyl{
		PosCyl: PosCyl{R: 3.2, Z: -0.7, Phi: 2.1},
		VelCyl: VelCyl{VR: 0.05, VZ: -0.12, VPhi: 0.23},
	}
	back := CarToCyl(CylToCar(p))

	if !approxEq(back.R, p.R, 1e-12) || !approxEq(back.Z, p.Z, 1e-12) ||
		!approxEq(back.Phi, p.Phi, 1e-12) {
		t.Errorf("position round trip: got %+v, want %+v", back.PosCyl, p.PosCyl)
	}
	if !approxEq(back.VR, p.VR, 1e-12) || !approxEq(back.VZ, p.VZ, 1e-12) ||
		!approxEq(back.VPhi, p.VPhi, 1e-12) {
		t.Errorf("velocity round trip: got %+v, want %+v", back.VelCyl, p.VelCyl)
	}
}

func TestSphCylRoundTrip(t *testing.T) {
	s := PosVelSph{R: 4.5, Theta: 1.1, Phi: -0.4, VR: 0.1, VTheta: -0.02, VPhi: 0.2}
	back := CylToSph(SphToCyl(s))

	for _, pair := range [][2]float64{
		{back.R, s.R}, {back.Theta, s.Theta}, {back.Phi, s.Phi},
		{back.VR, s.VR}, {back.VTheta, s.VTheta}, {back.VPhi, s.VPhi},
	} {
		if !approxEq(pair[0], pair[1], 1e-12) {
			t.Fatalf("round trip mismatch: got %g, want %g", pair[0], pair[1])
		}
	}
}

func TestSpeedInvariant(t *testing.T) {
	p := PosVelCyl{
		PosCyl: PosCyl{R: 1.7, Z: 0.3, Phi: 0.9},
		VelCyl: VelCyl{VR: -0.2, VZ: 0.07, VPhi: 0.31},
	}
	car := CylToCar(p)
	v2 := car.VX*car.VX + car.VY*car.VY + car.VZ*car.VZ
	if !approxEq(v2, p.VelMag2(), 1e-13) {
		t.Errorf("speed not preserved: %g vs %g", v2, p.VelMag2())
	}
}

func TestUVRoundTrip(t *testing.T) {
	const delta = 0.8
	for _, p := range []PosCyl{
		{R: 2.0, Z: 0.5},
		{R: 0.3, Z: -1.2},
		{R: 5.0, Z: 0.0},
	} {
		u, v := UVFromCyl(p, delta)
		back := CylFromUV(u, v, delta)
		if !approxEq(back.R, p.R, 1e-10) || !approxEq(back.Z, p.Z, 1e-10) {
			t.Errorf("uv round trip for %+v: got %+v", p, back)
		}
		if u < 0 || v < 0 || v > math.Pi {
			t.Errorf("uv out of range: u=%g v=%g", u, v)
		}
	}
}

func TestUVHemispheres(t *testing.T) {
	u, v := UVFromCyl(PosCyl{R: 1, Z: 2}, 0.5)
	if v >= math.Pi/2 {
		t.Errorf("z>0 should map to v<pi/2, got v=%g", v)
	}
	_, v = UVFromCyl(PosCyl{R: 1, Z: -2}, 0.5)
	if v <= math.Pi/2 {
		t.Errorf("z<0 should map to v>pi/2, got v=%g", v)
	}
	_ = u
}
