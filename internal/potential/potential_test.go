package potential

import (
	"math"
	"testing"

	"github.com/odonata-labs/aatorus/internal/coords"
	"github.com/odonata-labs/aatorus/internal/units"
)

// forceFromValue checks Force against central differences of Value.
func forceFromValue(t *testing.T, pot Potential, p coords.PosCyl) {
	t.Helper()
	h := 1e-6 * (1 + math.Hypot(p.R, p.Z))
	dR := (pot.Value(coords.PosCyl{R: p.R + h, Z: p.Z}) - pot.Value(coords.PosCyl{R: p.R - h, Z: p.Z})) / (2 * h)
	dz := (pot.Value(coords.PosCyl{R: p.R, Z: p.Z + h}) - pot.Value(coords.PosCyl{R: p.R, Z: p.Z - h})) / (2 * h)
	fR, fz := pot.Force(p)
	if math.Abs(fR+dR) > 1e-5*(1+math.Abs(fR)) {
		t.Errorf("fR at %+v: analytic %g, numeric %g", p, fR, -dR)
	}
	if math.Abs(fz+dz) > 1e-5*(1+math.Abs(fz)) {
		t.Errorf("fz at %+v: analytic %g, numeric %g", p, fz, -dz)
	}
}

// deriv2FromForce checks analytic second derivatives against central
// differences of the force.
func deriv2FromForce(t *testing.T, pot Potential, p coords.PosCyl) {
	t.Helper()
	sd, ok := pot.(SecondDerivs)
	if !ok {
		t.Fatalf("potential does not implement SecondDerivs")
	}
	d2R, d2z, dRz := sd.Deriv2(p)

	h := 1e-5 * (1 + math.Hypot(p.R, p.Z))
	fRp, fzp := pot.Force(coords.PosCyl{R: p.R + h, Z: p.Z})
	fRm, fzm := pot.Force(coords.PosCyl{R: p.R - h, Z: p.Z})
	nd2R := -(fRp - fRm) / (2 * h)
	ndRz := -(fzp - fzm) / (2 * h)
	_, fzp = pot.Force(coords.PosCyl{R: p.R, Z: p.Z + h})
	_, fzm = pot.Force(coords.PosCyl{R: p.R, Z: p.Z - h})
	nd2z := -(fzp - fzm) / (2 * h)

	scale := math.Abs(d2R) + math.Abs(d2z) + math.Abs(dRz) + 1e-12
	for _, c := range []struct{ got, want float64 }{
		{d2R, nd2R}, {d2z, nd2z}, {dRz, ndRz},
	} {
		if math.Abs(c.got-c.want) > 1e-4*scale {
			t.Errorf("second derivative at %+v: analytic %g, numeric %g", p, c.got, c.want)
		}
	}
}

func testPoints() []coords.PosCyl {
	return []coords.PosCyl{
		{R: 1.0, Z: 0.1},
		{R: 4.2, Z: -0.8},
		{R: 0.3, Z: 0.9},
		{R: 8.0, Z: 2.5},
	}
}

func TestMiyamotoNagaiDerivatives(t *testing.T) {
	mn := MiyamotoNagai{M: 0.25, A: 3.0, B: 0.3}
	for _, p := range testPoints() {
		forceFromValue(t, mn, p)
		deriv2FromForce(t, mn, p)
	}
}

func TestPlummerDerivatives(t *testing.T) {
	pl := Plummer{M: 0.05, B: 0.5}
	for _, p := range testPoints() {
		forceFromValue(t, pl, p)
		deriv2FromForce(t, pl, p)
	}
}

func TestNFWDerivatives(t *testing.T) {
	halo := NFW{M0: 2.0, Rs: 15.0}
	for _, p := range testPoints() {
		forceFromValue(t, halo, p)
		deriv2FromForce(t, halo, p)
	}
}

func TestIsochroneDerivatives(t *testing.T) {
	iso := Isochrone{M: 1.0, B: 1.5}
	for _, p := range testPoints() {
		forceFromValue(t, iso, p)
		deriv2FromForce(t, iso, p)
	}
}

func TestCompositeSums(t *testing.T) {
	a := MiyamotoNagai{M: 0.2, A: 2.5, B: 0.25}
	b := Plummer{M: 0.04, B: 0.4}
	comp := Composite{a, b}
	p := coords.PosCyl{R: 2.0, Z: 0.5}

	want := a.Value(p) + b.Value(p)
	if got := comp.Value(p); math.Abs(got-want) > 1e-14 {
		t.Errorf("composite value %g, want %g", got, want)
	}
	faR, faz := a.Force(p)
	fbR, fbz := b.Force(p)
	gR, gz := comp.Force(p)
	if math.Abs(gR-faR-fbR) > 1e-14 || math.Abs(gz-faz-fbz) > 1e-14 {
		t.Errorf("composite force mismatch")
	}
}

func TestRcircConsistency(t *testing.T) {
	mn := MiyamotoNagai{M: 0.3, A: 3.0, B: 0.3}
	for _, l := range []float64{0.2, 0.7, 1.5} {
		r, err := Rcirc(mn, l)
		if err != nil {
			t.Fatalf("Rcirc(%g): %v", l, err)
		}
		if got := r * Vcirc(mn, r); math.Abs(got-l) > 1e-8*l {
			t.Errorf("L=%g: Rcirc=%g gives L_c=%g", l, r, got)
		}
	}
}

func TestEpicycleSphericalLimit(t *testing.T) {
	// For a point-mass-like potential kappa = Omega (Keplerian).
	pl := Plummer{M: 1.0, B: 1e-6}
	kappa, _, omega := Epicycle(pl, 5.0)
	if math.Abs(kappa-omega) > 1e-6*omega {
		t.Errorf("Keplerian kappa=%g should equal Omega=%g", kappa, omega)
	}
}

func TestDefaultGalaxy(t *testing.T) {
	u := units.Galactic()
	pot, err := DefaultGalaxy(u)
	if err != nil {
		t.Fatal(err)
	}

	// circular speed at the solar radius should be a sane Milky Way value
	vc := Vcirc(pot, u.FromKpc(8))
	vcKms := u.ToKpc(vc) / u.ToMyr(1) * 977.8 // kpc/Myr -> km/s
	if vcKms < 150 || vcKms > 320 {
		t.Errorf("circular speed at 8 kpc = %.1f km/s, outside plausible range", vcKms)
	}

	// potential must be attractive and monotonically shallower outwards
	if pot.Value(coords.PosCyl{R: 1}) >= 0 {
		t.Error("potential should be negative")
	}
	if pot.Value(coords.PosCyl{R: 2}) >= pot.Value(coords.PosCyl{R: 20}) {
		t.Error("potential should increase outwards")
	}
}
