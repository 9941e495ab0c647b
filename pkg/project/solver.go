// Package project implements projection of 3D points onto a parametric
// surface along a fixed direction. The solve finds the UV coordinate
// whose surface point lies on the projection ray through the input
// point, using damped Newton-Raphson on the normal equations of the
// 3x2 surface Jacobian, with a coarse grid search to seed the
// iteration when no initial guess is available.
package project

import (
	"fmt"
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/facetrim/pkg/geom"
)

// DivergenceError reports a projection solve that failed to converge.
type DivergenceError struct {
	Point    v3.Vec
	Residual float64 // residual norm at the last iterate
	Reason   string
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("projection diverged at (%g, %g, %g): %s (residual %g)",
		e.Point.X, e.Point.Y, e.Point.Z, e.Reason, e.Residual)
}

// Options controls the Newton iteration.
type Options struct {
	// Tolerance is the residual norm below which the solve converges.
	Tolerance float64
	// MaxIterations caps the Newton loop to bound worst-case latency.
	MaxIterations int
	// Damping scales each Newton step.
	Damping float64
	// StallLimit is the number of consecutive non-shrinking residuals
	// tolerated before the solve is declared divergent.
	StallLimit int
	// GridSize is the per-axis resolution of the seeding grid search.
	GridSize int
}

// DefaultOptions returns the solver configuration used when callers
// pass the zero Options value.
func DefaultOptions() Options {
	return Options{
		Tolerance:     0.01,
		MaxIterations: 50,
		Damping:       0.7,
		StallLimit:    8,
		GridSize:      5,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.Damping <= 0 {
		o.Damping = d.Damping
	}
	if o.StallLimit <= 0 {
		o.StallLimit = d.StallLimit
	}
	if o.GridSize < 2 {
		o.GridSize = d.GridSize
	}
	return o
}

// Solver projects points onto surfaces. The zero value is not usable;
// construct with New.
type Solver struct {
	opts Options
}

// New returns a Solver with the given options. Zero fields fall back
// to DefaultOptions.
func New(opts Options) *Solver {
	return &Solver{opts: opts.withDefaults()}
}

// residual returns the component of (S(u,v) - point) orthogonal to the
// unit projection direction. It vanishes exactly when the surface
// point lies on the ray through point along dir.
func residual(s geom.Surface, point, dir v3.Vec, uv v2.Vec) v3.Vec {
	diff := s.ValueAt(uv.X, uv.Y).Sub(point)
	return diff.Sub(dir.MulScalar(diff.Dot(dir)))
}

// Seed runs the coarse grid search over the UV domain and returns the
// grid point of minimum residual norm.
func (sv *Solver) Seed(s geom.Surface, point, dir v3.Vec) v2.Vec {
	b := s.UVBounds()
	n := sv.opts.GridSize
	best := b.Center()
	bestNorm := math.Inf(1)
	for i := 0; i < n; i++ {
		u := b.UMin + b.Width()*float64(i)/float64(n-1)
		for j := 0; j < n; j++ {
			v := b.VMin + b.Height()*float64(j)/float64(n-1)
			norm := residual(s, point, dir, v2.Vec{X: u, Y: v}).Length()
			if norm < bestNorm {
				bestNorm = norm
				best = v2.Vec{X: u, Y: v}
			}
		}
	}
	return best
}

// Solve finds the UV coordinate on s whose projection along dir passes
// through point. dir must be unit length. seed, when non-nil, supplies
// the initial guess; otherwise the grid search provides one. Each
// Newton step is clipped to the UV domain, so the iteration can
// converge onto the boundary but never escapes it. Returns a
// *DivergenceError when the residual stalls or the Jacobian normal
// matrix is singular away from a solution.
func (sv *Solver) Solve(s geom.Surface, point, dir v3.Vec, seed *v2.Vec) (v2.Vec, error) {
	b := s.UVBounds()
	var uv v2.Vec
	if seed != nil {
		uv = b.Clamp(*seed)
	} else {
		uv = sv.Seed(s, point, dir)
	}

	prevNorm := math.Inf(1)
	stalled := 0
	for iter := 0; iter < sv.opts.MaxIterations; iter++ {
		res := residual(s, point, dir, uv)
		norm := res.Length()
		if norm < sv.opts.Tolerance {
			return uv, nil
		}

		if norm >= prevNorm {
			stalled++
			if stalled >= sv.opts.StallLimit {
				return uv, &DivergenceError{Point: point, Residual: norm, Reason: "residual stalled"}
			}
		} else {
			stalled = 0
		}
		prevNorm = norm

		// Target displacement in 3D is the negated residual. Solve the
		// normal equations JᵀJ·Δ = Jᵀ·target for the 3x2 Jacobian
		// J = [dS/du | dS/dv].
		su, svv := s.Derivatives(uv.X, uv.Y)
		target := res.Neg()
		a11 := su.Dot(su)
		a12 := su.Dot(svv)
		a22 := svv.Dot(svv)
		b1 := su.Dot(target)
		b2 := svv.Dot(target)
		det := a11*a22 - a12*a12
		if math.Abs(det) < 1e-12 {
			return uv, &DivergenceError{Point: point, Residual: norm, Reason: "singular jacobian"}
		}
		du := (a22*b1 - a12*b2) / det
		dv := (a11*b2 - a12*b1) / det

		step := sv.opts.Damping
		uv = b.Clamp(v2.Vec{X: uv.X + du*step, Y: uv.Y + dv*step})
	}

	res := residual(s, point, dir, uv)
	if res.Length() < sv.opts.Tolerance {
		return uv, nil
	}
	return uv, &DivergenceError{Point: point, Residual: res.Length(), Reason: "iteration cap reached"}
}

// SolveReseeded is Solve with one recovery attempt: if the seeded
// solve diverges, the grid search reseeds the iteration once before
// the failure is surfaced.
func (sv *Solver) SolveReseeded(s geom.Surface, point, dir v3.Vec, seed *v2.Vec) (v2.Vec, error) {
	uv, err := sv.Solve(s, point, dir, seed)
	if err == nil || seed == nil {
		return uv, err
	}
	return sv.Solve(s, point, dir, nil)
}
