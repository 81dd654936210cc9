package mathx

import (
	"math"
	"testing"
)

func TestWrapAngleRange(t *testing.T) {
	for _, x := range []float64{-100, -7.5, -math.Pi, -1e-9, 0, 1e-9, math.Pi, 6.28, 100} {
		w := WrapAngle(x)
		if w < 0 || w >= TwoPi {
			t.Errorf("WrapAngle(%g) = %g outside [0, 2pi)", x, w)
		}
		// congruence mod 2pi
		if d := math.Abs(math.Mod(w-x, TwoPi)); d > 1e-9 && TwoPi-d > 1e-9 {
			t.Errorf("WrapAngle(%g) = %g not congruent to input", x, w)
		}
	}
}

func TestWrapAnglePeriodicity(t *testing.T) {
	for k := -3; k <= 3; k++ {
		x := 1.234
		got := WrapAngle(x + TwoPi*float64(k))
		if math.Abs(got-WrapAngle(x)) > 1e-12 {
			t.Errorf("WrapAngle(x+2pi*%d) = %.15g, want %.15g", k, got, WrapAngle(x))
		}
	}
}

func TestUnwrapAngle(t *testing.T) {
	// a sequence winding several times around the circle
	omega := 0.7
	prev := 0.0
	for i := 1; i < 50; i++ {
		truth := omega * float64(i)
		un := UnwrapAngle(WrapAngle(truth), prev)
		if math.Abs(un-truth) > 1e-12 {
			t.Fatalf("sample %d: unwrapped %g, want %g", i, un, truth)
		}
		prev = un
	}
}

func TestAngleDist(t *testing.T) {
	cases := []struct{ a, b, want float64 }{
		{0.01, TwoPi - 0.01, 0.02},
		{0, math.Pi, math.Pi},
		{1.0, 1.0, 0},
		{0.5, 0.2, 0.3},
	}
	for _, c := range cases {
		if got := AngleDist(c.a, c.b); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("AngleDist(%g, %g) = %g, want %g", c.a, c.b, got, c.want)
		}
	}
}

func TestFindRoot(t *testing.T) {
	root, err := FindRoot(func(x float64) float64 { return x*x - 2 }, 0, 2, 1e-14)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(root-math.Sqrt2) > 1e-12 {
		t.Errorf("root = %.15g, want sqrt(2)", root)
	}

	if _, err := FindRoot(func(x float64) float64 { return x*x + 1 }, -1, 1, 1e-12); err == nil {
		t.Error("expected bracket error for rootless function")
	}
}

func TestIntegrate(t *testing.T) {
	got := Integrate(math.Cos, 0, math.Pi/2, 20)
	if math.Abs(got-1) > 1e-12 {
		t.Errorf("integral of cos over [0,pi/2] = %.15g, want 1", got)
	}
}

func TestIntegrateSqrtBoth(t *testing.T) {
	// int_-1^1 sqrt(1-x^2) dx = pi/2
	got := IntegrateSqrtBoth(func(x float64) float64 {
		return math.Sqrt(math.Max(0, 1-x*x))
	}, -1, 1, 40)
	if math.Abs(got-math.Pi/2) > 1e-8 {
		t.Errorf("semicircle area = %.12g, want pi/2", got)
	}
}

func TestIntegrateSqrtLower(t *testing.T) {
	// int_0^1 1/sqrt(x) dx = 2
	got := IntegrateSqrtLower(func(x float64) float64 { return 1 / math.Sqrt(x) }, 0, 1, 40)
	if math.Abs(got-2) > 1e-8 {
		t.Errorf("integral of 1/sqrt(x) = %.12g, want 2", got)
	}
}
