package orbit

// PhaseState is a Cartesian phase-space point (x, y, z, vx, vy, vz).
type PhaseState [6]float64

// AccelFunc returns the gravitational acceleration at a Cartesian
// position.
type AccelFunc func(x, y, z float64) (ax, ay, az float64)

// Integrator advances a phase-space point by one time step.
type Integrator interface {
	Step(acc AccelFunc, s PhaseState, dt float64) PhaseState
	Name() string
}

// RK4 is the classical fourth-order Runge-Kutta scheme.
type RK4 struct{}

func NewRK4() *RK4 { return &RK4{} }

func (*RK4) Name() string { return "rk4" }

func derive(acc AccelFunc, s PhaseState) PhaseState {
	ax, ay, az := acc(s[0], s[1], s[2])
	return PhaseState{s[3], s[4], s[5], ax, ay, az}
}

func (*RK4) Step(acc AccelFunc, s PhaseState, dt float64) PhaseState {
	k1 := derive(acc, s)

	var tmp PhaseState
	for i := range s {
		tmp[i] = s[i] + dt*0.5*k1[i]
	}
	k2 := derive(acc, tmp)

	for i := range s {
		tmp[i] = s[i] + dt*0.5*k2[i]
	}
	k3 := derive(acc, tmp)

	for i := range s {
		tmp[i] = s[i] + dt*k3[i]
	}
	k4 := derive(acc, tmp)

	var out PhaseState
	dt6 := dt / 6.0
	for i := range s {
		out[i] = s[i] + dt6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}
	return out
}

// Leapfrog is the symplectic kick-drift-kick scheme; second order but
// with bounded energy error, the usual choice for long orbit
// integrations.
type Leapfrog struct{}

func NewLeapfrog() *Leapfrog { return &Leapfrog{} }

func (*Leapfrog) Name() string { return "leapfrog" }

func (*Leapfrog) Step(acc AccelFunc, s PhaseState, dt float64) PhaseState {
	halfDt := 0.5 * dt
	ax, ay, az := acc(s[0], s[1], s[2])
	vx := s[3] + ax*halfDt
	vy := s[4] + ay*halfDt
	vz := s[5] + az*halfDt

	x := s[0] + vx*dt
	y := s[1] + vy*dt
	z := s[2] + vz*dt

	ax, ay, az = acc(x, y, z)
	return PhaseState{x, y, z, vx + ax*halfDt, vy + ay*halfDt, vz + az*halfDt}
}
