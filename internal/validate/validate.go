// Package validate cross-checks the two halves of the action-angle
// machinery against each other: points generated on a fitted torus are
// pushed through the Staeckel fudge, and the recovered actions and
// angles are compared statistically with what went in.
package validate

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/odonata-labs/aatorus/internal/actions"
	"github.com/odonata-labs/aatorus/internal/coords"
	"github.com/odonata-labs/aatorus/internal/mathx"
	"github.com/odonata-labs/aatorus/internal/potential"
)

// Options configure a validation run.
type Options struct {
	// Samples is the number of points taken along the orbit.
	Samples int
	// Periods is the sampled time span in periods of the fastest
	// fundamental frequency.
	Periods float64
	// ScatterCoeff scales the adaptive action-scatter threshold.
	ScatterCoeff float64
	// Angle residual dispersion thresholds, radians.
	TolDispR   float64
	TolDispZ   float64
	TolDispPhi float64
	// OnSample, when set, is invoked for every processed sample.
	OnSample func(Sample)
}

// DefaultOptions returns the standard acceptance thresholds.
func DefaultOptions() Options {
	return Options{
		Samples:      64,
		Periods:      4,
		ScatterCoeff: 0.33,
		TolDispR:     0.1,
		TolDispZ:     1.0,
		TolDispPhi:   0.05,
	}
}

// Sample is one point of the consistency loop.
type Sample struct {
	Index     int
	Input     actions.ActionAngles
	Point     coords.PosVelCyl
	Energy    float64
	Recovered actions.ActionAngles
}

// Result aggregates a validation run.
type Result struct {
	Target  actions.Actions
	Freq    actions.Frequencies // fitted torus frequencies
	Samples []Sample

	AvgActions  actions.Actions
	DispActions actions.Actions
	// FittedFreq are the frequencies recovered from the linear angle
	// regression, in the same units as Freq.
	FittedFreq actions.Frequencies

	Scatter     float64 // relative action scatter
	ScatterNorm float64 // adaptive threshold for Scatter
	DispR       float64 // angle residual dispersions, radians
	DispZ       float64
	DispPhi     float64

	Pass    bool
	Elapsed time.Duration
}

// Run maps the target actions onto a torus, samples it along a regular
// orbit, inverts every sample through the fudge and accumulates the
// statistics. Any transform failure aborts the run.
func Run(ctx context.Context, pot potential.Potential, mapper *actions.TorusMapper, finder *actions.FudgeFinder, target actions.Actions, opts Options) (*Result, error) {
	if opts.Samples < 2 {
		return nil, fmt.Errorf("validate: need at least 2 samples, got %d", opts.Samples)
	}
	if opts.Periods <= 0 {
		return nil, fmt.Errorf("validate: periods must be positive, got %g", opts.Periods)
	}
	start := time.Now()

	freq, err := mapper.Frequencies(target)
	if err != nil {
		return nil, fmt.Errorf("validate: torus construction: %w", err)
	}
	fr0 := math.Max(math.Abs(freq.Omegar), math.Max(math.Abs(freq.Omegaz), math.Abs(freq.Omegaphi)))
	if fr0 <= 0 {
		return nil, fmt.Errorf("validate: torus has no finite frequencies (%s)", freq)
	}

	res := &Result{
		Target:  target,
		Freq:    freq,
		Samples: make([]Sample, 0, opts.Samples),
	}
	var astat actions.ActionStat
	var angstat actions.AngleStat

	// equal steps in time across opts.Periods of the fastest frequency
	for i := 0; i < opts.Samples; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		frac := float64(i) / float64(opts.Samples) * opts.Periods
		in := actions.ActionAngles{
			Actions: target,
			Angles: actions.Angles{
				Thetar:   mathx.WrapAngle(frac * mathx.TwoPi * freq.Omegar / fr0),
				Thetaz:   mathx.WrapAngle(frac * mathx.TwoPi * freq.Omegaz / fr0),
				Thetaphi: mathx.WrapAngle(frac * mathx.TwoPi * freq.Omegaphi / fr0),
			},
		}
		xv, err := mapper.Map(in)
		if err != nil {
			return nil, fmt.Errorf("validate: torus map at sample %d: %w", i, err)
		}
		rec, err := finder.ActionAngles(xv)
		if err != nil {
			return nil, fmt.Errorf("validate: action finder at sample %d: %w", i, err)
		}

		astat.Add(rec)
		angstat.Add(float64(i), rec)
		s := Sample{
			Index:     i,
			Input:     in,
			Point:     xv,
			Energy:    potential.TotalEnergy(pot, xv),
			Recovered: rec,
		}
		res.Samples = append(res.Samples, s)
		if opts.OnSample != nil {
			opts.OnSample(s)
		}
	}
	astat.Finish()
	angstat.Finish()

	res.AvgActions = astat.Avg()
	res.DispActions = astat.Disp()
	res.DispR = angstat.Dispr()
	res.DispZ = angstat.Dispz()
	res.DispPhi = angstat.Dispphi()

	// linear angle rates per sample index back to physical frequencies
	rate := fr0 * float64(opts.Samples) / (opts.Periods * mathx.TwoPi)
	res.FittedFreq = actions.Frequencies{
		Omegar:   angstat.Freqr() * rate,
		Omegaz:   angstat.Freqz() * rate,
		Omegaphi: angstat.Freqphi() * rate,
	}

	finishVerdict(res, opts)
	res.Elapsed = time.Since(start)
	return res, nil
}

// finishVerdict computes the scatter statistics and the pass/fail
// decision from the accumulated dispersions. A vanishing recovered
// action sum leaves the relative scatter undefined and fails the run.
func finishVerdict(res *Result, opts Options) {
	jSum := res.AvgActions.Jr + res.AvgActions.Jz
	scatterOK := false
	if jSum > 0 {
		res.Scatter = (res.DispActions.Jr + res.DispActions.Jz) / jSum
		res.ScatterNorm = opts.ScatterCoeff * math.Sqrt(jSum/(jSum+math.Abs(res.AvgActions.Jphi)))
		scatterOK = res.Scatter < res.ScatterNorm
	}
	res.Pass = scatterOK &&
		res.DispR < opts.TolDispR &&
		res.DispZ < opts.TolDispZ &&
		res.DispPhi < opts.TolDispPhi
}
