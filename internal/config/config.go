package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/odonata-labs/aatorus/internal/actions"
	"github.com/odonata-labs/aatorus/internal/units"
	"github.com/odonata-labs/aatorus/internal/validate"
)

const (
	DefaultJr   = 0.1 // kpc^2/Myr
	DefaultJz   = 0.1
	DefaultJphi = 1.0
)

type Config struct {
	// Potential is the path to a galaxy definition file; empty selects
	// the built-in disk+bulge+halo model.
	Potential string       `yaml:"potential"`
	Units     UnitsConfig  `yaml:"units"`
	Actions   ActionConfig `yaml:"actions"`
	Sampling  SampleConfig `yaml:"sampling"`
	Torus     TorusConfig  `yaml:"torus"`
}

type UnitsConfig struct {
	LengthKpc float64 `yaml:"length_kpc"`
	TimeMyr   float64 `yaml:"time_myr"`
}

// ActionConfig holds the target actions in kpc^2/Myr.
type ActionConfig struct {
	Jr   float64 `yaml:"jr"`
	Jz   float64 `yaml:"jz"`
	Jphi float64 `yaml:"jphi"`
}

type SampleConfig struct {
	Samples      int     `yaml:"samples"`
	Periods      float64 `yaml:"periods"`
	ScatterCoeff float64 `yaml:"scatter_coeff"`
	TolDispR     float64 `yaml:"tol_disp_r"`
	TolDispZ     float64 `yaml:"tol_disp_z"`
	TolDispPhi   float64 `yaml:"tol_disp_phi"`
}

type TorusConfig struct {
	GridSize    int     `yaml:"grid_size"`
	MaxOrder    int     `yaml:"max_order"`
	MaxOrderCap int     `yaml:"max_order_cap"`
	Accept      float64 `yaml:"accept"`
}

func DefaultConfig() *Config {
	v := validate.DefaultOptions()
	t := actions.DefaultTorusOptions()
	return &Config{
		Units:   UnitsConfig{LengthKpc: 1, TimeMyr: 1},
		Actions: ActionConfig{Jr: DefaultJr, Jz: DefaultJz, Jphi: DefaultJphi},
		Sampling: SampleConfig{
			Samples:      v.Samples,
			Periods:      v.Periods,
			ScatterCoeff: v.ScatterCoeff,
			TolDispR:     v.TolDispR,
			TolDispZ:     v.TolDispZ,
			TolDispPhi:   v.TolDispPhi,
		},
		Torus: TorusConfig{
			GridSize:    t.GridSize,
			MaxOrder:    t.MaxOrder,
			MaxOrderCap: t.MaxOrderCap,
			Accept:      t.AcceptTolerance,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) validate() error {
	if c.Units.LengthKpc <= 0 || c.Units.TimeMyr <= 0 {
		return fmt.Errorf("config: unit scales must be positive")
	}
	if c.Actions.Jr < 0 || c.Actions.Jz < 0 {
		return fmt.Errorf("config: jr and jz must be non-negative")
	}
	if c.Sampling.Samples < 2 {
		return fmt.Errorf("config: need at least 2 samples, got %d", c.Sampling.Samples)
	}
	if c.Sampling.Periods <= 0 {
		return fmt.Errorf("config: periods must be positive")
	}
	if c.Torus.GridSize < 4 || c.Torus.MaxOrder < 1 {
		return fmt.Errorf("config: torus grid too small")
	}
	return nil
}

// GetUnits returns the unit system described by the config.
func (c *Config) GetUnits() units.Units {
	return units.Units{LengthKpc: c.Units.LengthKpc, TimeMyr: c.Units.TimeMyr}
}

// GetActions converts the target actions to internal units.
func (c *Config) GetActions() actions.Actions {
	u := c.GetUnits()
	return actions.Actions{
		Jr:   u.FromAction(c.Actions.Jr),
		Jz:   u.FromAction(c.Actions.Jz),
		Jphi: u.FromAction(c.Actions.Jphi),
	}
}

// GetValidateOptions maps the sampling section onto the driver options.
func (c *Config) GetValidateOptions() validate.Options {
	return validate.Options{
		Samples:      c.Sampling.Samples,
		Periods:      c.Sampling.Periods,
		ScatterCoeff: c.Sampling.ScatterCoeff,
		TolDispR:     c.Sampling.TolDispR,
		TolDispZ:     c.Sampling.TolDispZ,
		TolDispPhi:   c.Sampling.TolDispPhi,
	}
}

// GetTorusOptions maps the torus section onto the fit options.
func (c *Config) GetTorusOptions() actions.TorusOptions {
	opts := actions.DefaultTorusOptions()
	opts.GridSize = c.Torus.GridSize
	opts.MaxOrder = c.Torus.MaxOrder
	if c.Torus.MaxOrderCap > 0 {
		opts.MaxOrderCap = c.Torus.MaxOrderCap
	}
	opts.AcceptTolerance = c.Torus.Accept
	return opts
}
