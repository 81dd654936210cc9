package config

// Presets are ready-made target orbits for the validation driver,
// roughly matching the action scales of common Galactic populations
// (all values in kpc^2/Myr).
var Presets = map[string]*Config{
	"thin-disk": {
		Actions: ActionConfig{Jr: 0.01, Jz: 0.002, Jphi: 1.8},
	},
	"thick-disk": {
		Actions: ActionConfig{Jr: 0.05, Jz: 0.04, Jphi: 1.5},
	},
	"reference": {
		Actions: ActionConfig{Jr: DefaultJr, Jz: DefaultJz, Jphi: DefaultJphi},
	},
	"eccentric": {
		Actions: ActionConfig{Jr: 0.4, Jz: 0.1, Jphi: 1.0},
	},
	"retrograde": {
		Actions: ActionConfig{Jr: 0.1, Jz: 0.1, Jphi: -1.0},
	},
	"inner": {
		Actions: ActionConfig{Jr: 0.05, Jz: 0.05, Jphi: 0.4},
	},
}

// Preset returns a full config with the named preset's actions applied
// on top of the defaults; ok reports whether the name exists.
func Preset(name string) (*Config, bool) {
	p, ok := Presets[name]
	if !ok {
		return nil, false
	}
	cfg := DefaultConfig()
	cfg.Actions = p.Actions
	return cfg, true
}
