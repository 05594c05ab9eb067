// Package automation runs scripted sequences of simulations and Monte
// Carlo studies of parameter uncertainty.
package automation

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/episim/internal/document"
	"github.com/san-kum/episim/internal/experiment"
	"github.com/san-kum/episim/internal/integrators"
	"github.com/san-kum/episim/internal/model"
	"github.com/san-kum/episim/internal/models"
)

// Scenario defines a scripted simulation sequence
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`

	dir string
}

// ScenarioStep is a single run. Model is a built-in example name or a
// model document path, relative to the scenario file. Zero fields keep
// the base run settings.
type ScenarioStep struct {
	Model      string             `yaml:"model"`
	Integrator string             `yaml:"integrator"`
	Horizon    float64            `yaml:"horizon"`
	Dt         float64            `yaml:"dt"`
	Tolerance  float64            `yaml:"tolerance"`
	Stride     int                `yaml:"stride"`
	Params     map[string]float64 `yaml:"params"`
	Values     map[string]float64 `yaml:"values"`
	Archive    bool               `yaml:"archive"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string, fss ...vfs.FileSystem) (*Scenario, error) {
	fs := fileSystem(fss)
	data, err := vfs.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}
	scenario.dir = filepath.Dir(path)
	return &scenario, nil
}

func fileSystem(fss []vfs.FileSystem) vfs.FileSystem {
	if len(fss) > 0 && fss[0] != nil {
		return fss[0]
	}
	return osfs.OsFs
}

// RunScenario executes all steps in order and stops at the first step
// that fails. Steps only reach the store and catalog of base when they
// ask to be archived.
func RunScenario(ctx context.Context, scenario *Scenario, base experiment.Config, fss ...vfs.FileSystem) ([]*experiment.Outcome, error) {
	outcomes := make([]*experiment.Outcome, 0, len(scenario.Steps))
	logger := log.WithValues("scenario", scenario.Name)

	for i, step := range scenario.Steps {
		logger.Info("step {{step}}/{{steps}}: {{model}}", "step", i+1, "steps", len(scenario.Steps), "model", step.Model)

		m, err := scenario.model(step, fss...)
		if err != nil {
			return outcomes, fmt.Errorf("step %d: %w", i+1, err)
		}
		cfg, err := step.config(base)
		if err != nil {
			return outcomes, fmt.Errorf("step %d: %w", i+1, err)
		}

		exp := experiment.New(cfg)
		if err := exp.Setup(m); err != nil {
			return outcomes, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		out, err := exp.Run(ctx)
		if out != nil {
			outcomes = append(outcomes, out)
		}
		if err != nil {
			return outcomes, fmt.Errorf("step %d run: %w", i+1, err)
		}
	}
	return outcomes, nil
}

func (s *Scenario) model(step ScenarioStep, fss ...vfs.FileSystem) (*model.Model, error) {
	var m *model.Model
	if _, ok := models.Examples[step.Model]; ok {
		var err error
		if m, err = models.Get(step.Model); err != nil {
			return nil, err
		}
	} else {
		path := step.Model
		if !filepath.IsAbs(path) && s.dir != "" {
			path = filepath.Join(s.dir, path)
		}
		var err error
		if m, _, err = document.LoadModel(path, fss...); err != nil {
			return nil, err
		}
	}

	for name, v := range step.Values {
		if err := m.SetCompartmentValue(name, v); err != nil {
			return nil, err
		}
	}
	for name, v := range step.Params {
		if err := m.SetParameterDefinition(name, strconv.FormatFloat(v, 'g', -1, 64)); err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
	}
	return m, nil
}

func (step ScenarioStep) config(base experiment.Config) (experiment.Config, error) {
	cfg := base
	cfg.Autosave = nil
	if !step.Archive {
		cfg.Store, cfg.Catalog = nil, nil
	}
	if step.Integrator != "" {
		method, err := integrators.ParseMethod(step.Integrator)
		if err != nil {
			return cfg, err
		}
		cfg.Run.Method = method
	}
	if step.Horizon > 0 {
		cfg.Run.Horizon = step.Horizon
	}
	if step.Dt > 0 {
		cfg.Run.Dt = step.Dt
	}
	if step.Tolerance > 0 {
		cfg.Run.Tolerance = step.Tolerance
	}
	if step.Stride > 0 {
		cfg.Run.Stride = step.Stride
	}
	return cfg, cfg.Run.Validate()
}
