package actions

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/odonata-labs/aatorus/internal/mathx"
)

// ActionStat accumulates the mean and dispersion of sampled action
// triples. Lifecycle: Add samples, call Finish exactly once, then read
// Avg and Disp. Add after Finish and reads before Finish panic.
type ActionStat struct {
	n    int
	sum  [3]float64
	sum2 [3]float64
	avg  Actions
	disp Actions
	done bool
}

// Add records one sample's actions.
func (s *ActionStat) Add(aa ActionAngles) {
	if s.done {
		panic("actions: ActionStat.Add after Finish")
	}
	for i, v := range [3]float64{aa.Jr, aa.Jz, aa.Jphi} {
		s.sum[i] += v
		s.sum2[i] += v * v
	}
	s.n++
}

// N returns the number of samples recorded so far.
func (s *ActionStat) N() int { return s.n }

// Finish computes the per-component mean and population standard
// deviation (dividing by n, so a single sample has zero dispersion).
func (s *ActionStat) Finish() {
	if s.done {
		panic("actions: ActionStat.Finish called twice")
	}
	s.done = true
	if s.n == 0 {
		return
	}
	n := float64(s.n)
	var avg, disp [3]float64
	for i := range s.sum {
		avg[i] = s.sum[i] / n
		disp[i] = math.Sqrt(math.Max(0, s.sum2[i]/n-avg[i]*avg[i]))
	}
	s.avg = Actions{Jr: avg[0], Jz: avg[1], Jphi: avg[2]}
	s.disp = Actions{Jr: disp[0], Jz: disp[1], Jphi: disp[2]}
}

// Avg returns the mean actions; valid only after Finish.
func (s *ActionStat) Avg() Actions {
	s.mustBeDone()
	return s.avg
}

// Disp returns the per-component standard deviation; valid only after
// Finish.
func (s *ActionStat) Disp() Actions {
	s.mustBeDone()
	return s.disp
}

func (s *ActionStat) mustBeDone() {
	if !s.done {
		panic("actions: ActionStat read before Finish")
	}
}

// AngleStat accumulates angle samples against a synthetic time index and
// fits, per component, a linear drift rate (the recovered frequency) plus
// the wrap-aware RMS deviation from that fit. Incoming angles are
// unwrapped against the previous sample, so successive samples must not
// jump by more than pi per index step for the unwrapping to be unambiguous.
type AngleStat struct {
	idx   []float64
	theta [3][]float64 // unwrapped angle histories
	freq  [3]float64
	disp  [3]float64
	done  bool
}

// Add records the angles of one sample taken at the given time index.
func (s *AngleStat) Add(index float64, aa ActionAngles) {
	if s.done {
		panic("actions: AngleStat.Add after Finish")
	}
	vals := [3]float64{aa.Thetar, aa.Thetaz, aa.Thetaphi}
	for i, v := range vals {
		if n := len(s.theta[i]); n > 0 {
			v = mathx.UnwrapAngle(v, s.theta[i][n-1])
		} else {
			v = mathx.WrapAngle(v)
		}
		s.theta[i] = append(s.theta[i], v)
	}
	s.idx = append(s.idx, index)
}

// Finish fits the per-component regressions. With fewer than two samples
// the frequencies and dispersions are zero.
func (s *AngleStat) Finish() {
	if s.done {
		panic("actions: AngleStat.Finish called twice")
	}
	s.done = true
	if len(s.idx) < 2 {
		return
	}
	for i := range s.theta {
		alpha, beta := stat.LinearRegression(s.idx, s.theta[i], nil, false)
		s.freq[i] = beta
		var ss float64
		for k, t := range s.idx {
			r := mathx.AngleDist(s.theta[i][k], alpha+beta*t)
			ss += r * r
		}
		s.disp[i] = math.Sqrt(ss / float64(len(s.idx)))
	}
}

// Freqr returns the fitted drift rate of the radial angle per index step.
func (s *AngleStat) Freqr() float64 { s.mustBeDone(); return s.freq[0] }

// Freqz returns the fitted drift rate of the vertical angle.
func (s *AngleStat) Freqz() float64 { s.mustBeDone(); return s.freq[1] }

// Freqphi returns the fitted drift rate of the azimuthal angle.
func (s *AngleStat) Freqphi() float64 { s.mustBeDone(); return s.freq[2] }

// Dispr returns the RMS residual of the radial angle fit, in radians.
func (s *AngleStat) Dispr() float64 { s.mustBeDone(); return s.disp[0] }

// Dispz returns the RMS residual of the vertical angle fit.
func (s *AngleStat) Dispz() float64 { s.mustBeDone(); return s.disp[1] }

// Dispphi returns the RMS residual of the azimuthal angle fit.
func (s *AngleStat) Dispphi() float64 { s.mustBeDone(); return s.disp[2] }

func (s *AngleStat) mustBeDone() {
	if !s.done {
		panic("actions: AngleStat read before Finish")
	}
}
