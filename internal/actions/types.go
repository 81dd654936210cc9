// Package actions implements the action-angle representation of orbits
// in axisymmetric potentials: the forward map from actions and angles to
// phase space built on torus construction, the approximate inverse based
// on the Staeckel fudge, and the statistics accumulators used to
// cross-validate the two.
package actions

import "fmt"

// Actions is a triple of orbital actions: radial, vertical and azimuthal.
// Jr and Jz are non-negative for a realizable orbit; Jphi is the signed
// angular momentum about the symmetry axis.
type Actions struct {
	Jr   float64
	Jz   float64
	Jphi float64
}

// Angles is the conjugate triple of angle variables, each periodic with
// period 2pi and evolving linearly in time.
type Angles struct {
	Thetar   float64
	Thetaz   float64
	Thetaphi float64
}

// Frequencies are the time derivatives of the angles; constant for a
// given action triple and potential.
type Frequencies struct {
	Omegar   float64
	Omegaz   float64
	Omegaphi float64
}

// ActionAngles is the canonical coordinate pair used by the forward
// mapper's input and the inverse finder's output.
type ActionAngles struct {
	Actions
	Angles
}

func (a Actions) String() string {
	return fmt.Sprintf("Jr=%.6g Jz=%.6g Jphi=%.6g", a.Jr, a.Jz, a.Jphi)
}

func (a Angles) String() string {
	return fmt.Sprintf("thetar=%.6g thetaz=%.6g thetaphi=%.6g", a.Thetar, a.Thetaz, a.Thetaphi)
}

func (f Frequencies) String() string {
	return fmt.Sprintf("Or=%.6g Oz=%.6g Ophi=%.6g", f.Omegar, f.Omegaz, f.Omegaphi)
}

func (aa ActionAngles) String() string {
	return aa.Actions.String() + " " + aa.Angles.String()
}
