// Package config loads engine settings from TOML files. Every field
// has a working default, so an empty file (or no file at all) yields a
// usable configuration.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/chazu/facetrim/pkg/extend"
	"github.com/chazu/facetrim/pkg/project"
)

// Config is the full engine configuration.
type Config struct {
	Solver    Solver    `toml:"solver"`
	Coverage  Coverage  `toml:"coverage"`
	Extension Extension `toml:"extension"`
	Trim      Trim      `toml:"trim"`
}

// Solver configures the projection solver.
type Solver struct {
	Tolerance     float64 `toml:"tolerance"`
	MaxIterations int     `toml:"max_iterations"`
	Damping       float64 `toml:"damping"`
	GridSize      int     `toml:"grid_size"`
}

// Coverage configures coverage checking.
type Coverage struct {
	// Resolution is the per-curve sample count.
	Resolution int `toml:"resolution"`
	// Epsilon is the covering slack: ratio >= 1-epsilon classifies as
	// covering.
	Epsilon float64 `toml:"epsilon"`
}

// Extension configures the default curve-extension policy.
type Extension struct {
	// Mode is one of "none", "boundary", "custom".
	Mode     string  `toml:"mode"`
	Distance float64 `toml:"distance"`
}

// Trim configures the trim pipeline and its sdfx backend.
type Trim struct {
	Strict          bool `toml:"strict"`
	MeshCells       int  `toml:"mesh_cells"`
	PolylineSamples int  `toml:"polyline_samples"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	opts := project.DefaultOptions()
	return Config{
		Solver: Solver{
			Tolerance:     opts.Tolerance,
			MaxIterations: opts.MaxIterations,
			Damping:       opts.Damping,
			GridSize:      opts.GridSize,
		},
		Coverage: Coverage{
			Resolution: 64,
			Epsilon:    0.1,
		},
		Extension: Extension{
			Mode: "none",
		},
		Trim: Trim{
			MeshCells:       100,
			PolylineSamples: 64,
		},
	}
}

// Load reads a TOML file over the defaults. Keys absent from the file
// keep their default values; unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		return Config{}, fmt.Errorf("config: unknown key %q", undec[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if c.Solver.Tolerance <= 0 {
		return fmt.Errorf("config: solver.tolerance must be positive, got %g", c.Solver.Tolerance)
	}
	if c.Solver.MaxIterations <= 0 {
		return fmt.Errorf("config: solver.max_iterations must be positive, got %d", c.Solver.MaxIterations)
	}
	if c.Solver.Damping <= 0 || c.Solver.Damping > 1 {
		return fmt.Errorf("config: solver.damping must be in (0, 1], got %g", c.Solver.Damping)
	}
	if c.Solver.GridSize < 2 {
		return fmt.Errorf("config: solver.grid_size must be >= 2, got %d", c.Solver.GridSize)
	}
	if c.Coverage.Resolution < 2 {
		return fmt.Errorf("config: coverage.resolution must be >= 2, got %d", c.Coverage.Resolution)
	}
	if c.Coverage.Epsilon <= 0 || c.Coverage.Epsilon >= 1 {
		return fmt.Errorf("config: coverage.epsilon must be in (0, 1), got %g", c.Coverage.Epsilon)
	}
	if _, err := c.Extension.Spec(); err != nil {
		return err
	}
	if c.Trim.MeshCells <= 0 {
		return fmt.Errorf("config: trim.mesh_cells must be positive, got %d", c.Trim.MeshCells)
	}
	if c.Trim.PolylineSamples < 2 {
		return fmt.Errorf("config: trim.polyline_samples must be >= 2, got %d", c.Trim.PolylineSamples)
	}
	return nil
}

// SolverOptions converts the solver section to project.Options.
func (c Config) SolverOptions() project.Options {
	return project.Options{
		Tolerance:     c.Solver.Tolerance,
		MaxIterations: c.Solver.MaxIterations,
		Damping:       c.Solver.Damping,
		GridSize:      c.Solver.GridSize,
	}
}

// Spec converts the extension section to an extend.Spec.
func (e Extension) Spec() (extend.Spec, error) {
	var mode extend.Mode
	switch e.Mode {
	case "", "none":
		mode = extend.None
	case "boundary":
		mode = extend.Boundary
	case "custom":
		mode = extend.Custom
	default:
		return extend.Spec{}, fmt.Errorf("config: extension.mode %q is not one of none, boundary, custom", e.Mode)
	}
	spec := extend.Spec{Mode: mode, Distance: e.Distance}
	if err := spec.Validate(); err != nil {
		return extend.Spec{}, fmt.Errorf("config: %w", err)
	}
	return spec, nil
}
