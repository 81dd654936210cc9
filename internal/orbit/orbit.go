// Package orbit integrates trajectories in axisymmetric gravitational
// potentials. It exists alongside the torus machinery as the
// independent ground truth: an integrated orbit samples the same torus
// that the action-angle transforms describe analytically.
package orbit

import (
	"context"
	"fmt"
	"math"

	"github.com/odonata-labs/aatorus/internal/coords"
	"github.com/odonata-labs/aatorus/internal/potential"
)

// Options configure an integration run.
type Options struct {
	// Dt is the time step in internal units.
	Dt float64
	// Duration is the total integration time.
	Duration float64
	// Integrator selects the stepping scheme; nil means leapfrog.
	Integrator Integrator
	// OutputEvery thins the recorded trajectory to every n-th step;
	// zero or one records every step.
	OutputEvery int
}

// Result holds the recorded trajectory and integration diagnostics.
type Result struct {
	Times       []float64
	States      []coords.PosVelCyl
	StepsTaken  int
	EnergyDrift float64 // relative |E(end) - E(0)| / |E(0)|
}

// Integrate advances the phase-space point xv0 through pot for the
// configured duration. The context aborts long runs between steps; the
// partial result is returned together with the context error.
func Integrate(ctx context.Context, pot potential.Potential, xv0 coords.PosVelCyl, opts Options) (*Result, error) {
	if opts.Dt <= 0 {
		return nil, fmt.Errorf("orbit: time step must be positive, got %g", opts.Dt)
	}
	if opts.Duration <= 0 {
		return nil, fmt.Errorf("orbit: duration must be positive, got %g", opts.Duration)
	}
	if !xv0.IsValid() {
		return nil, fmt.Errorf("orbit: invalid initial state")
	}
	integ := opts.Integrator
	if integ == nil {
		integ = NewLeapfrog()
	}
	every := opts.OutputEvery
	if every < 1 {
		every = 1
	}

	acc := func(x, y, z float64) (float64, float64, float64) {
		r := math.Hypot(x, y)
		fR, fz := pot.Force(coords.PosCyl{R: r, Z: z})
		if r == 0 {
			return 0, 0, fz
		}
		return fR * x / r, fR * y / r, fz
	}

	car := coords.CylToCar(xv0)
	s := PhaseState{car.X, car.Y, car.Z, car.VX, car.VY, car.VZ}
	steps := int(opts.Duration / opts.Dt)
	if steps < 1 {
		steps = 1
	}

	res := &Result{
		Times:  make([]float64, 0, steps/every+2),
		States: make([]coords.PosVelCyl, 0, steps/every+2),
	}
	res.Times = append(res.Times, 0)
	res.States = append(res.States, xv0)
	e0 := potential.TotalEnergy(pot, xv0)

	t := 0.0
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		s = integ.Step(acc, s, opts.Dt)
		t += opts.Dt
		res.StepsTaken++

		cyl := toCyl(s)
		if !cyl.IsValid() {
			return res, fmt.Errorf("orbit: state became non-finite at t=%g", t)
		}
		if (i+1)%every == 0 || i == steps-1 {
			res.Times = append(res.Times, t)
			res.States = append(res.States, cyl)
		}
	}

	eEnd := potential.TotalEnergy(pot, res.States[len(res.States)-1])
	if e0 != 0 {
		res.EnergyDrift = math.Abs(eEnd-e0) / math.Abs(e0)
	}
	return res, nil
}

func toCyl(s PhaseState) coords.PosVelCyl {
	return coords.CarToCyl(coords.PosVelCar{
		X: s[0], Y: s[1], Z: s[2],
		VX: s[3], VY: s[4], VZ: s[5],
	})
}
