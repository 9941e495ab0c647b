package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/facetrim/pkg/extend"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "facetrim.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[solver]
tolerance = 0.5

[coverage]
resolution = 16

[extension]
mode = "custom"
distance = 5.0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Solver.Tolerance != 0.5 {
		t.Errorf("Tolerance = %g, want 0.5", cfg.Solver.Tolerance)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Solver.Damping != Default().Solver.Damping {
		t.Errorf("Damping = %g, want default", cfg.Solver.Damping)
	}
	if cfg.Coverage.Resolution != 16 {
		t.Errorf("Resolution = %d, want 16", cfg.Coverage.Resolution)
	}

	spec, err := cfg.Extension.Spec()
	if err != nil {
		t.Fatalf("Spec: %v", err)
	}
	if spec.Mode != extend.Custom || spec.Distance != 5 {
		t.Errorf("Spec = %+v, want custom/5", spec)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
[solver]
tollerance = 0.5
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load with a misspelled key succeeded, want error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("Load of a missing file succeeded, want error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tolerance", func(c *Config) { c.Solver.Tolerance = 0 }},
		{"negative iterations", func(c *Config) { c.Solver.MaxIterations = -1 }},
		{"damping too large", func(c *Config) { c.Solver.Damping = 1.5 }},
		{"grid too small", func(c *Config) { c.Solver.GridSize = 1 }},
		{"resolution too small", func(c *Config) { c.Coverage.Resolution = 1 }},
		{"epsilon out of range", func(c *Config) { c.Coverage.Epsilon = 1 }},
		{"bad extension mode", func(c *Config) { c.Extension.Mode = "sideways" }},
		{"custom without distance", func(c *Config) { c.Extension.Mode = "custom" }},
		{"zero mesh cells", func(c *Config) { c.Trim.MeshCells = 0 }},
		{"one polyline sample", func(c *Config) { c.Trim.PolylineSamples = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate succeeded, want error")
			}
		})
	}
}

func TestSolverOptions(t *testing.T) {
	cfg := Default()
	cfg.Solver.Tolerance = 0.25
	opts := cfg.SolverOptions()
	if opts.Tolerance != 0.25 {
		t.Errorf("Tolerance = %g, want 0.25", opts.Tolerance)
	}
	if opts.MaxIterations != cfg.Solver.MaxIterations {
		t.Errorf("MaxIterations = %d, want %d", opts.MaxIterations, cfg.Solver.MaxIterations)
	}
}

func TestExtensionSpecModes(t *testing.T) {
	tests := []struct {
		mode    string
		want    extend.Mode
		wantErr bool
	}{
		{"", extend.None, false},
		{"none", extend.None, false},
		{"boundary", extend.Boundary, false},
		{"custom", extend.Custom, true}, // no distance
		{"diagonal", 0, true},
	}
	for _, tt := range tests {
		t.Run("mode "+tt.mode, func(t *testing.T) {
			spec, err := Extension{Mode: tt.mode}.Spec()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && spec.Mode != tt.want {
				t.Errorf("Mode = %v, want %v", spec.Mode, tt.want)
			}
		})
	}
}
