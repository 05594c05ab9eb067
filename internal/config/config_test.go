package config

import (
	"path/filepath"
	"testing"

	"github.com/san-kum/episim/internal/integrators"
)

func TestDefaultPreferences(t *testing.T) {
	prefs := DefaultPreferences()

	if prefs.Integrator != "rk4" {
		t.Errorf("expected integrator rk4, got %s", prefs.Integrator)
	}
	if prefs.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if prefs.Horizon <= 0 {
		t.Error("horizon should be positive")
	}
	if _, err := prefs.RunConfig(); err != nil {
		t.Errorf("default preferences should give a valid run: %v", err)
	}
}

func TestLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.yaml")

	prefs, err := Load(path)
	if err != nil {
		t.Fatalf("missing file should give defaults: %v", err)
	}
	prefs.Integrator = "rkf45"
	prefs.Tolerance = 1e-8
	prefs.Autosave = false
	if err := Save(path, prefs); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Integrator != "rkf45" || loaded.Tolerance != 1e-8 || loaded.Autosave {
		t.Errorf("round trip lost settings: %+v", loaded)
	}
	if loaded.Dt != DefaultDt {
		t.Errorf("expected default dt, got %g", loaded.Dt)
	}
}

func TestRunConfig(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Preferences)
		method  integrators.Method
		wantErr bool
	}{
		{"default", func(*Preferences) {}, integrators.RK4, false},
		{"alias", func(p *Preferences) { p.Integrator = "rk45" }, integrators.RKF45, false},
		{"unknown integrator", func(p *Preferences) { p.Integrator = "leapfrog" }, 0, true},
		{"bad dt", func(p *Preferences) { p.Dt = 0 }, 0, true},
		{"adaptive without tolerance", func(p *Preferences) { p.Integrator = "rkf45"; p.Tolerance = 0 }, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefs := DefaultPreferences()
			tt.modify(prefs)
			cfg, err := prefs.RunConfig()
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Method != tt.method {
				t.Errorf("method = %v, want %v", cfg.Method, tt.method)
			}
		})
	}
}

func TestGetPreset(t *testing.T) {
	p, ok := GetPreset("accurate")
	if !ok {
		t.Fatal("expected preset accurate")
	}
	prefs := DefaultPreferences()
	p.Apply(prefs)
	if prefs.Integrator != "rkf45" || prefs.Tolerance != 1e-9 {
		t.Errorf("preset not applied: %+v", prefs)
	}
	if _, ok := GetPreset("nonexistent"); ok {
		t.Error("expected no preset")
	}
}

func TestListPresets(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(names))
	}
	for _, name := range names {
		p, _ := GetPreset(name)
		prefs := DefaultPreferences()
		p.Apply(prefs)
		if _, err := prefs.RunConfig(); err != nil {
			t.Errorf("preset %s is not runnable: %v", name, err)
		}
	}
}
