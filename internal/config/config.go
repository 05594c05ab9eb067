package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/episim/internal/integrators"
	"github.com/san-kum/episim/internal/sim"
)

const (
	DefaultIntegrator = "rk4"
	DefaultDt         = 0.1
	DefaultHorizon    = 160.0
	DefaultTolerance  = 1e-6
	DefaultMinDt      = 1e-9
	DefaultStride     = 1
	DefaultMaxRetries = 64
	DefaultLogLevel   = "info"
)

// Preferences are the user settings of runs and of the tool itself.
type Preferences struct {
	Integrator string  `yaml:"integrator"`
	Dt         float64 `yaml:"dt"`
	Horizon    float64 `yaml:"horizon"`
	Tolerance  float64 `yaml:"tolerance"`
	MinDt      float64 `yaml:"min_dt"`
	MaxDt      float64 `yaml:"max_dt"`
	Stride     int     `yaml:"stride"`
	MaxRetries int     `yaml:"max_retries"`

	Autosave    bool   `yaml:"autosave"`
	AutosaveDir string `yaml:"autosave_dir"`
	DataDir     string `yaml:"data_dir"`
	LogLevel    string `yaml:"log_level"`
}

// DefaultPreferences keeps data below the user's home directory, or the
// working directory when there is none.
func DefaultPreferences() *Preferences {
	base := ".episim"
	if home, err := os.UserHomeDir(); err == nil {
		base = filepath.Join(home, ".episim")
	}
	return &Preferences{
		Integrator:  DefaultIntegrator,
		Dt:          DefaultDt,
		Horizon:     DefaultHorizon,
		Tolerance:   DefaultTolerance,
		MinDt:       DefaultMinDt,
		Stride:      DefaultStride,
		MaxRetries:  DefaultMaxRetries,
		Autosave:    true,
		AutosaveDir: filepath.Join(base, "autosave"),
		DataDir:     filepath.Join(base, "runs"),
		LogLevel:    DefaultLogLevel,
	}
}

// DefaultPath is where the preferences file lives unless told otherwise.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "episim", "preferences.yaml")
	}
	return "episim.yaml"
}

// Load reads preferences over the defaults. A missing file yields the
// defaults.
func Load(path string) (*Preferences, error) {
	prefs := DefaultPreferences()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return prefs, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, prefs); err != nil {
		return nil, fmt.Errorf("preferences %s: %w", path, err)
	}
	return prefs, nil
}

func Save(path string, prefs *Preferences) error {
	data, err := yaml.Marshal(prefs)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// RunConfig converts the run settings into a simulation configuration.
func (p *Preferences) RunConfig() (sim.Config, error) {
	method, err := integrators.ParseMethod(p.Integrator)
	if err != nil {
		return sim.Config{}, err
	}
	cfg := sim.Config{
		Method:     method,
		Horizon:    p.Horizon,
		Dt:         p.Dt,
		Tolerance:  p.Tolerance,
		MinDt:      p.MinDt,
		MaxDt:      p.MaxDt,
		Stride:     p.Stride,
		MaxRetries: p.MaxRetries,
	}
	return cfg, cfg.Validate()
}

// CatalogPath is the SQLite run index inside the data directory.
func (p *Preferences) CatalogPath() string {
	return filepath.Join(p.DataDir, "catalog.db")
}
