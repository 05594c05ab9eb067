package config

import "sort"

// Preset is a named set of run settings.
type Preset struct {
	Description string
	Integrator  string
	Dt          float64
	Horizon     float64
	Tolerance   float64
	Stride      int
}

var Presets = map[string]Preset{
	"quick": {
		Description: "coarse Euler pass for a first look",
		Integrator:  "euler", Dt: 0.5, Horizon: 100, Stride: 1,
	},
	"default": {
		Description: "classic Runge-Kutta over one season",
		Integrator:  "rk4", Dt: 0.1, Horizon: 160, Stride: 10,
	},
	"accurate": {
		Description: "adaptive Fehlberg with a tight tolerance",
		Integrator:  "rkf45", Dt: 0.1, Horizon: 160, Tolerance: 1e-9, Stride: 1,
	},
	"year": {
		Description: "daily samples over a year",
		Integrator:  "rk4", Dt: 0.25, Horizon: 365, Stride: 4,
	},
	"compare": {
		Description: "predictor-corrector at a moderate step",
		Integrator:  "euler-pc", Dt: 0.25, Horizon: 160, Stride: 4,
	},
}

func GetPreset(name string) (Preset, bool) {
	p, ok := Presets[name]
	return p, ok
}

// ListPresets returns the preset names, sorted.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply overrides the run settings of prefs with the preset's non-zero
// fields.
func (p Preset) Apply(prefs *Preferences) {
	if p.Integrator != "" {
		prefs.Integrator = p.Integrator
	}
	if p.Dt > 0 {
		prefs.Dt = p.Dt
	}
	if p.Horizon > 0 {
		prefs.Horizon = p.Horizon
	}
	if p.Tolerance > 0 {
		prefs.Tolerance = p.Tolerance
	}
	if p.Stride > 0 {
		prefs.Stride = p.Stride
	}
}
