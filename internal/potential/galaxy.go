package potential

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/odonata-labs/aatorus/internal/mathx"
	"github.com/odonata-labs/aatorus/internal/units"
)

// ErrBadDefinition indicates a malformed galaxy-definition input.
var ErrBadDefinition = errors.New("potential: bad galaxy definition")

// DiskParams is one row of the disk section of a galaxy definition:
// central surface density [Msun/kpc^2], scale length, scale height,
// inner cutoff radius and a flaring parameter (the last two are accepted
// but not modelled).
type DiskParams struct {
	SurfaceDensity float64
	ScaleLength    float64
	ScaleHeight    float64
	InnerCutoff    float64
	Flare          float64
}

// SpheroidParams is one row of the spheroid section: central density
// [Msun/kpc^3], axis ratio, inner and outer logarithmic slopes, scale
// radius and truncation radius [kpc].
type SpheroidParams struct {
	Density    float64
	AxisRatio  float64
	InnerSlope float64
	OuterSlope float64
	Scale      float64
	Truncation float64
}

// GalaxyDefinition is the parsed form of the legacy potential file.
type GalaxyDefinition struct {
	Disks     []DiskParams
	Spheroids []SpheroidParams
}

// defaultGalaxyDef is the reference three-disk, two-spheroid Milky Way
// model used by the validation fixtures.
const defaultGalaxyDef = `3
5.63482e+08 2.6771 0.1974 0 0
2.51529e+08 2.6771 0.7050 0 0
9.34513e+07 5.3542 0.04 4 0
2
9.49e+10    0.5  0  1.8  0.075   2.1
1.85884e+07 1.0  1  3    14.2825 250.
`

// DefaultGalaxy builds the reference galaxy potential in the given units.
func DefaultGalaxy(u units.Units) (Potential, error) {
	return ReadGalaxyDefinition(strings.NewReader(defaultGalaxyDef), u)
}

// ReadGalaxyDefinition parses the legacy text format — a disk count line,
// one parameter row per disk, a spheroid count line and one row per
// spheroid — and assembles a composite potential. Disks become
// Miyamoto-Nagai components of equal mass and scales; spheroids become
// NFW halos when their outer slope is near 3 and Plummer spheres (with
// the truncated profile mass) otherwise.
func ReadGalaxyDefinition(r io.Reader, u units.Units) (Potential, error) {
	def, err := ParseGalaxyDefinition(r)
	if err != nil {
		return nil, err
	}
	return BuildGalaxy(def, u), nil
}

// ParseGalaxyDefinition reads the legacy text format without building
// the potential.
func ParseGalaxyDefinition(r io.Reader) (*GalaxyDefinition, error) {
	sc := bufio.NewScanner(r)
	line := 0
	next := func() ([]float64, error) {
		for sc.Scan() {
			line++
			fields := strings.Fields(sc.Text())
			if len(fields) == 0 {
				continue
			}
			vals := make([]float64, len(fields))
			for i, f := range fields {
				v, err := strconv.ParseFloat(f, 64)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %q", ErrBadDefinition, line, f)
				}
				vals[i] = v
			}
			return vals, nil
		}
		return nil, fmt.Errorf("%w: unexpected end of input at line %d", ErrBadDefinition, line)
	}

	count := func() (int, error) {
		vals, err := next()
		if err != nil {
			return 0, err
		}
		if len(vals) != 1 || vals[0] != math.Trunc(vals[0]) || vals[0] < 0 {
			return 0, fmt.Errorf("%w: line %d: expected component count", ErrBadDefinition, line)
		}
		return int(vals[0]), nil
	}

	def := &GalaxyDefinition{}

	nDisk, err := count()
	if err != nil {
		return nil, err
	}
	for i := 0; i < nDisk; i++ {
		vals, err := next()
		if err != nil {
			return nil, err
		}
		if len(vals) < 3 {
			return nil, fmt.Errorf("%w: line %d: disk row needs at least 3 values", ErrBadDefinition, line)
		}
		d := DiskParams{
			SurfaceDensity: vals[0],
			ScaleLength:    vals[1],
			ScaleHeight:    math.Abs(vals[2]),
		}
		if len(vals) > 3 {
			d.InnerCutoff = vals[3]
		}
		if len(vals) > 4 {
			d.Flare = vals[4]
		}
		if d.SurfaceDensity <= 0 || d.ScaleLength <= 0 {
			return nil, fmt.Errorf("%w: line %d: non-positive disk scale", ErrBadDefinition, line)
		}
		def.Disks = append(def.Disks, d)
	}

	nSph, err := count()
	if err != nil {
		return nil, err
	}
	for i := 0; i < nSph; i++ {
		vals, err := next()
		if err != nil {
			return nil, err
		}
		if len(vals) < 6 {
			return nil, fmt.Errorf("%w: line %d: spheroid row needs 6 values", ErrBadDefinition, line)
		}
		s := SpheroidParams{
			Density:    vals[0],
			AxisRatio:  vals[1],
			InnerSlope: vals[2],
			OuterSlope: vals[3],
			Scale:      vals[4],
			Truncation: vals[5],
		}
		if s.Density <= 0 || s.Scale <= 0 {
			return nil, fmt.Errorf("%w: line %d: non-positive spheroid scale", ErrBadDefinition, line)
		}
		def.Spheroids = append(def.Spheroids, s)
	}

	return def, nil
}

// BuildGalaxy maps a parsed definition onto analytic components.
func BuildGalaxy(def *GalaxyDefinition, u units.Units) Potential {
	var comp Composite
	for _, d := range def.Disks {
		mass := 2 * math.Pi * d.SurfaceDensity * d.ScaleLength * d.ScaleLength
		comp = append(comp, MiyamotoNagai{
			M: u.FromMsun(mass),
			A: u.FromKpc(d.ScaleLength),
			B: u.FromKpc(math.Max(d.ScaleHeight, 1e-3*d.ScaleLength)),
		})
	}
	for _, s := range def.Spheroids {
		if s.OuterSlope >= 2.9 && s.InnerSlope <= 1.2 {
			m0 := 4 * math.Pi * s.Density * s.Scale * s.Scale * s.Scale
			comp = append(comp, NFW{
				M0: u.FromMsun(m0),
				Rs: u.FromKpc(s.Scale),
			})
			continue
		}
		comp = append(comp, Plummer{
			M: u.FromMsun(spheroidMass(s)),
			B: u.FromKpc(s.Scale),
		})
	}
	return comp
}

// spheroidMass integrates the truncated two-power density profile
// rho0 (r/r0)^-g (1+r/r0)^(g-b) exp(-(r/rcut)^2) to obtain the total
// mass in Msun.
func spheroidMass(s SpheroidParams) float64 {
	r0 := s.Scale
	rcut := s.Truncation
	if rcut <= 0 {
		rcut = 100 * r0
	}
	upper := 6 * rcut / r0
	integ := mathx.Integrate(func(x float64) float64 {
		if x <= 0 {
			return 0
		}
		rho := math.Pow(x, -s.InnerSlope) * math.Pow(1+x, s.InnerSlope-s.OuterSlope)
		cw := x * r0 / rcut
		return x * x * rho * math.Exp(-cw*cw)
	}, 1e-8, upper, 200)
	return 4 * math.Pi * s.Density * r0 * r0 * r0 * integ
}
