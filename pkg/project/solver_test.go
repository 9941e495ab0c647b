package project

import (
	"errors"
	"math"
	"testing"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/facetrim/pkg/geom"
)

func testPlane() geom.Surface {
	return geom.NewPlane(geom.UVRect{UMax: 100, VMax: 50})
}

func TestSolvePlane(t *testing.T) {
	s := New(Options{})
	p := testPlane()
	up := v3.Vec{Z: 1}

	tests := []struct {
		name  string
		point v3.Vec
		want  v2.Vec
	}{
		{"interior", v3.Vec{X: 30, Y: 20, Z: 5}, v2.Vec{X: 30, Y: 20}},
		{"on surface", v3.Vec{X: 75, Y: 10}, v2.Vec{X: 75, Y: 10}},
		{"edge", v3.Vec{X: 0, Y: 25, Z: 1}, v2.Vec{X: 0, Y: 25}},
		{"corner", v3.Vec{X: 100, Y: 50, Z: -3}, v2.Vec{X: 100, Y: 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uv, err := s.Solve(p, tt.point, up, nil)
			if err != nil {
				t.Fatalf("Solve: %v", err)
			}
			if math.Abs(uv.X-tt.want.X) > 0.05 || math.Abs(uv.Y-tt.want.Y) > 0.05 {
				t.Errorf("Solve = (%g, %g), want (%g, %g)", uv.X, uv.Y, tt.want.X, tt.want.Y)
			}
		})
	}
}

func TestSolveOutsideDomainDiverges(t *testing.T) {
	s := New(Options{})
	p := testPlane()

	// The iterate clamps to the domain edge and the residual stalls.
	_, err := s.Solve(p, v3.Vec{X: 200, Y: 25, Z: 1}, v3.Vec{Z: 1}, nil)
	var de *DivergenceError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *DivergenceError", err)
	}
	if de.Residual < 50 {
		t.Errorf("Residual = %g, want the ~100 offset to survive", de.Residual)
	}
}

func TestSolveCylinder(t *testing.T) {
	s := New(Options{})
	c := geom.Cylinder{
		Axis:   v3.Vec{Z: 1},
		Ref:    v3.Vec{X: 1},
		Radius: 10,
		Bounds: geom.UVRect{UMin: 0.1, UMax: math.Pi - 0.1, VMax: 50},
	}

	// Project a point outside the cylinder radially inward at the
	// quarter-turn angle.
	point := v3.Vec{Y: 15, Z: 20}
	dir := v3.Vec{Y: 1}
	uv, err := s.Solve(c, point, dir, nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if math.Abs(uv.X-math.Pi/2) > 0.01 {
		t.Errorf("u = %g, want pi/2", uv.X)
	}
	if math.Abs(uv.Y-20) > 0.05 {
		t.Errorf("v = %g, want 20", uv.Y)
	}
}

func TestSolveUsesSeed(t *testing.T) {
	s := New(Options{})
	p := testPlane()

	seed := v2.Vec{X: 29, Y: 19}
	uv, err := s.Solve(p, v3.Vec{X: 30, Y: 20, Z: 2}, v3.Vec{Z: 1}, &seed)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if math.Abs(uv.X-30) > 0.05 || math.Abs(uv.Y-20) > 0.05 {
		t.Errorf("Solve = (%g, %g), want (30, 20)", uv.X, uv.Y)
	}
}

func TestSolveReseededRecovers(t *testing.T) {
	s := New(Options{})
	p := testPlane()

	// A seed clamped to the far corner still converges for a plane, so
	// force the reseed path with a seed outside the domain. Either way
	// the recovered answer must match the unseeded solve.
	bad := v2.Vec{X: 1e6, Y: 1e6}
	uv, err := s.SolveReseeded(p, v3.Vec{X: 10, Y: 10, Z: 1}, v3.Vec{Z: 1}, &bad)
	if err != nil {
		t.Fatalf("SolveReseeded: %v", err)
	}
	if math.Abs(uv.X-10) > 0.05 || math.Abs(uv.Y-10) > 0.05 {
		t.Errorf("SolveReseeded = (%g, %g), want (10, 10)", uv.X, uv.Y)
	}
}

func TestSeedFindsNearestGridPoint(t *testing.T) {
	s := New(Options{})
	p := testPlane()

	uv := s.Seed(p, v3.Vec{X: 1, Y: 1, Z: 5}, v3.Vec{Z: 1})
	if uv.X != 0 || uv.Y != 0 {
		t.Errorf("Seed = (%g, %g), want the (0, 0) grid corner", uv.X, uv.Y)
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	d := DefaultOptions()
	if o != d {
		t.Errorf("withDefaults() = %+v, want %+v", o, d)
	}

	// Explicit values survive.
	o = Options{Tolerance: 0.5}.withDefaults()
	if o.Tolerance != 0.5 {
		t.Errorf("Tolerance = %g, want 0.5", o.Tolerance)
	}
	if o.Damping != d.Damping {
		t.Errorf("Damping = %g, want default %g", o.Damping, d.Damping)
	}
}
