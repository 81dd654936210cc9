package actions

import (
	"math"
	"testing"

	"github.com/odonata-labs/aatorus/internal/mathx"
)

func TestActionStatMoments(t *testing.T) {
	var st ActionStat
	for _, jr := range []float64{1, 2, 3} {
		st.Add(ActionAngles{Actions: Actions{Jr: jr, Jz: 0.5, Jphi: -2}})
	}
	st.Finish()

	if st.N() != 3 {
		t.Fatalf("N = %d, want 3", st.N())
	}
	avg, disp := st.Avg(), st.Disp()
	if math.Abs(avg.Jr-2) > 1e-14 {
		t.Errorf("avg Jr = %g, want 2", avg.Jr)
	}
	if math.Abs(avg.Jphi+2) > 1e-14 {
		t.Errorf("avg Jphi = %g, want -2", avg.Jphi)
	}
	wantDisp := math.Sqrt(2.0 / 3.0)
	if math.Abs(disp.Jr-wantDisp) > 1e-12 {
		t.Errorf("disp Jr = %g, want %g", disp.Jr, wantDisp)
	}
	if disp.Jz != 0 || disp.Jphi != 0 {
		t.Errorf("constant components should have zero dispersion, got %s", disp)
	}
}

func TestActionStatSingleSample(t *testing.T) {
	var st ActionStat
	st.Add(ActionAngles{Actions: Actions{Jr: 0.1, Jz: 0.2, Jphi: 1}})
	st.Finish()
	if d := st.Disp(); d.Jr != 0 || d.Jz != 0 || d.Jphi != 0 {
		t.Errorf("single sample dispersion = %s, want zeros", d)
	}
}

func TestActionStatPanicsBeforeFinish(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Avg before Finish did not panic")
		}
	}()
	var st ActionStat
	st.Add(ActionAngles{})
	st.Avg()
}

func TestAngleStatRecoversFrequencies(t *testing.T) {
	// synthetic angles advancing linearly with the sample index,
	// wrapped into [0, 2pi); the slopes must be recovered exactly
	omega := [3]float64{0.3, 1.7, -0.4}
	var st AngleStat
	for i := 0; i < 64; i++ {
		x := float64(i)
		st.Add(x, ActionAngles{Angles: Angles{
			Thetar:   mathx.WrapAngle(omega[0] * x),
			Thetaz:   mathx.WrapAngle(omega[1] * x),
			Thetaphi: mathx.WrapAngle(omega[2] * x),
		}})
	}
	st.Finish()

	got := [3]float64{st.Freqr(), st.Freqz(), st.Freqphi()}
	for k, w := range omega {
		if math.Abs(got[k]-w) > 1e-10 {
			t.Errorf("freq[%d] = %g, want %g", k, got[k], w)
		}
	}
	for k, d := range [3]float64{st.Dispr(), st.Dispz(), st.Dispphi()} {
		if d > 1e-9 {
			t.Errorf("disp[%d] = %g, want ~0", k, d)
		}
	}
}

func TestAngleStatNoisyResiduals(t *testing.T) {
	// deterministic perturbation of known amplitude around a linear
	// trend; the residual dispersion must reflect it
	const amp = 0.02
	var st AngleStat
	for i := 0; i < 128; i++ {
		x := float64(i)
		noise := amp * math.Sin(1.9*x)
		st.Add(x, ActionAngles{Angles: Angles{
			Thetar:   mathx.WrapAngle(0.5*x + noise),
			Thetaz:   mathx.WrapAngle(0.8 * x),
			Thetaphi: mathx.WrapAngle(0.2 * x),
		}})
	}
	st.Finish()
	if st.Dispr() < amp/10 || st.Dispr() > amp {
		t.Errorf("Dispr = %g, want on the order of %g", st.Dispr(), amp/math.Sqrt2)
	}
	if st.Dispz() > 1e-9 {
		t.Errorf("Dispz = %g, want ~0", st.Dispz())
	}
	if math.Abs(st.Freqr()-0.5) > 0.01 {
		t.Errorf("Freqr = %g, want 0.5", st.Freqr())
	}
}
