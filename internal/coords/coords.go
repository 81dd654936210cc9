// Package coords defines the phase-space coordinate types used throughout
// the action-angle engine and the transforms between them.
//
// The primary frame is cylindrical (R, z, phi) with velocities
// (vR, vz, vphi), where vphi is the physical azimuthal velocity R*dphi/dt.
// Spherical and prolate spheroidal coordinates appear at internal
// boundaries: the toy map produces spherical coordinates, the Staeckel
// approximation works in prolate spheroidal ones.
package coords

import "math"

// PosCyl is a position in cylindrical coordinates.
type PosCyl struct {
	R   float64
	Z   float64
	Phi float64
}

// VelCyl holds cylindrical velocity components; VPhi is R*dphi/dt.
type VelCyl struct {
	VR   float64
	VZ   float64
	VPhi float64
}

// PosVelCyl is a full cylindrical phase-space point.
type PosVelCyl struct {
	PosCyl
	VelCyl
}

// PosVelCar is a Cartesian phase-space point.
type PosVelCar struct {
	X, Y, Z    float64
	VX, VY, VZ float64
}

// PosVelSph is a spherical phase-space point. Theta is the polar angle
// measured from the positive z axis; VTheta is r*dtheta/dt and VPhi is
// r*sin(theta)*dphi/dt.
type PosVelSph struct {
	R, Theta, Phi    float64
	VR, VTheta, VPhi float64
}

// IsValid reports whether all components are finite.
func (p PosVelCyl) IsValid() bool {
	for _, v := range []float64{p.R, p.Z, p.Phi, p.VR, p.VZ, p.VPhi} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// VelMag2 returns the squared speed.
func (p PosVelCyl) VelMag2() float64 {
	return p.VR*p.VR + p.VZ*p.VZ + p.VPhi*p.VPhi
}

// CylToCar converts a cylindrical phase-space point to Cartesian.
func CylToCar(p PosVelCyl) PosVelCar {
	sp, cp := math.Sincos(p.Phi)
	return PosVelCar{
		X:  p.R * cp,
		Y:  p.R * sp,
		Z:  p.Z,
		VX: p.VR*cp - p.VPhi*sp,
		VY: p.VR*sp + p.VPhi*cp,
		VZ: p.VZ,
	}
}

// CarToCyl converts a Cartesian phase-space point to cylindrical.
// On the z axis the azimuth is taken as zero and the radial velocity
// as the velocity component along x.
func CarToCyl(p PosVelCar) PosVelCyl {
	R := math.Hypot(p.X, p.Y)
	if R == 0 {
		return PosVelCyl{
			PosCyl: PosCyl{R: 0, Z: p.Z, Phi: 0},
			VelCyl: VelCyl{VR: p.VX, VZ: p.VZ, VPhi: p.VY},
		}
	}
	cp, sp := p.X/R, p.Y/R
	return PosVelCyl{
		PosCyl: PosCyl{R: R, Z: p.Z, Phi: math.Atan2(p.Y, p.X)},
		VelCyl: VelCyl{
			VR:   p.VX*cp + p.VY*sp,
			VZ:   p.VZ,
			VPhi: -p.VX*sp + p.VY*cp,
		},
	}
}

// SphToCyl converts a spherical phase-space point to cylindrical.
func SphToCyl(p PosVelSph) PosVelCyl {
	st, ct := math.Sincos(p.Theta)
	return PosVelCyl{
		PosCyl: PosCyl{R: p.R * st, Z: p.R * ct, Phi: p.Phi},
		VelCyl: VelCyl{
			VR:   p.VR*st + p.VTheta*ct,
			VZ:   p.VR*ct - p.VTheta*st,
			VPhi: p.VPhi,
		},
	}
}

// CylToSph converts a cylindrical phase-space point to spherical.
func CylToSph(p PosVelCyl) PosVelSph {
	r := math.Hypot(p.R, p.Z)
	if r == 0 {
		return PosVelSph{VR: p.VZ, VTheta: p.VR, VPhi: p.VPhi, Theta: 0}
	}
	st, ct := p.R/r, p.Z/r
	return PosVelSph{
		R:      r,
		Theta:  math.Atan2(p.R, p.Z),
		Phi:    p.Phi,
		VR:     p.VR*st + p.VZ*ct,
		VTheta: p.VR*ct - p.VZ*st,
		VPhi:   p.VPhi,
	}
}

// UVFromCyl maps (R, z) to prolate spheroidal coordinates (u, v) with
// focal distance delta: R = delta*sinh(u)*sin(v), z = delta*cosh(u)*cos(v).
// u >= 0 and v lies in [0, pi]; v < pi/2 corresponds to z > 0.
func UVFromCyl(p PosCyl, delta float64) (u, v float64) {
	dp := math.Hypot(p.R, p.Z+delta)
	dm := math.Hypot(p.R, p.Z-delta)
	coshu := (dp + dm) / (2 * delta)
	cosv := (dp - dm) / (2 * delta)
	if coshu < 1 {
		coshu = 1
	}
	cosv = math.Max(-1, math.Min(1, cosv))
	return math.Acosh(coshu), math.Acos(cosv)
}

// CylFromUV is the inverse of UVFromCyl.
func CylFromUV(u, v, delta float64) PosCyl {
	return PosCyl{
		R: delta * math.Sinh(u) * math.Sin(v),
		Z: delta * math.Cosh(u) * math.Cos(v),
	}
}
