// Package units converts between the internal computational unit system
// and physical galactic units (kpc, Myr, solar masses).
//
// Internally the gravitational constant is 1; choosing a length and a time
// unit therefore fixes the mass unit. All core packages work purely in
// internal units and conversion happens only at the configuration and
// reporting boundaries.
package units

// GKpcMyrMsun is Newton's constant in kpc^3 / (Msun Myr^2).
const GKpcMyrMsun = 4.4985e-12

// Units describes the physical size of one internal unit.
type Units struct {
	LengthKpc float64 // one internal length unit, in kpc
	TimeMyr   float64 // one internal time unit, in Myr
}

// Galactic is the unit system of the reference harness: lengths in kpc,
// times in Myr.
func Galactic() Units {
	return Units{LengthKpc: 1, TimeMyr: 1}
}

// MassMsun returns the internal mass unit in solar masses (G=1 internally).
func (u Units) MassMsun() float64 {
	return u.LengthKpc * u.LengthKpc * u.LengthKpc / (GKpcMyrMsun * u.TimeMyr * u.TimeMyr)
}

// FromKpc converts a length in kpc to internal units.
func (u Units) FromKpc(x float64) float64 { return x / u.LengthKpc }

// ToKpc converts an internal length to kpc.
func (u Units) ToKpc(x float64) float64 { return x * u.LengthKpc }

// FromMyr converts a time in Myr to internal units.
func (u Units) FromMyr(t float64) float64 { return t / u.TimeMyr }

// ToMyr converts an internal time to Myr.
func (u Units) ToMyr(t float64) float64 { return t * u.TimeMyr }

// FromMsun converts a mass in solar masses to internal units.
func (u Units) FromMsun(m float64) float64 { return m / u.MassMsun() }

// ToMsun converts an internal mass to solar masses.
func (u Units) ToMsun(m float64) float64 { return m * u.MassMsun() }

// FromAction converts an action in kpc^2/Myr to internal units.
func (u Units) FromAction(j float64) float64 {
	return j * u.TimeMyr / (u.LengthKpc * u.LengthKpc)
}

// ToAction converts an internal action to kpc^2/Myr.
func (u Units) ToAction(j float64) float64 {
	return j * u.LengthKpc * u.LengthKpc / u.TimeMyr
}

// FromSurfaceDensity converts Msun/kpc^2 to internal units.
func (u Units) FromSurfaceDensity(s float64) float64 {
	return s / (u.MassMsun() / (u.LengthKpc * u.LengthKpc))
}

// FromDensity converts Msun/kpc^3 to internal units.
func (u Units) FromDensity(d float64) float64 {
	return d / (u.MassMsun() / (u.LengthKpc * u.LengthKpc * u.LengthKpc))
}

// FromFrequency converts 1/Myr to internal units.
func (u Units) FromFrequency(f float64) float64 { return f * u.TimeMyr }

// ToFrequency converts an internal frequency to 1/Myr.
func (u Units) ToFrequency(f float64) float64 { return f / u.TimeMyr }
