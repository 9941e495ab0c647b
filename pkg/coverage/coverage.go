// Package coverage classifies how much of a surface's trim-relevant
// parametric span a curve's projection actually reaches. It samples
// the curve, projects every sample into the surface UV domain, and
// reduces the projected samples to a coverage ratio and a
// covering/partial/not-covering verdict.
package coverage

import (
	"fmt"
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/floats"

	"github.com/chazu/facetrim/pkg/geom"
	"github.com/chazu/facetrim/pkg/project"
)

// DirectionMode selects how the projection direction is obtained.
type DirectionMode int

const (
	// FaceNormal recomputes the direction per sample from the surface
	// normal nearest the sample.
	FaceNormal DirectionMode = iota
	// ViewVector uses a single fixed direction supplied by the caller.
	ViewVector
	// CustomVector uses a single fixed user-chosen vector.
	CustomVector
)

func (m DirectionMode) String() string {
	switch m {
	case FaceNormal:
		return "face-normal"
	case ViewVector:
		return "view-vector"
	case CustomVector:
		return "custom-vector"
	default:
		return "unknown"
	}
}

// DirectionSpec is the closed tagged variant describing the projection
// direction. Vector is ignored for FaceNormal mode.
type DirectionSpec struct {
	Mode   DirectionMode
	Vector v3.Vec
}

// Resolve returns the unit direction for fixed modes. For FaceNormal
// it returns the normal at the domain center of s, falling back to +Z
// when the normal degenerates; the fallback is reported so callers can
// record it.
func (d DirectionSpec) Resolve(s geom.Surface) (dir v3.Vec, fellBack bool, err error) {
	if d.Mode == FaceNormal {
		c := s.UVBounds().Center()
		n := s.NormalAt(c.X, c.Y)
		if n.Length() < 1e-9 {
			return v3.Vec{Z: 1}, true, nil
		}
		return n.Normalize(), false, nil
	}
	if d.Vector.Length() < 1e-9 {
		return v3.Vec{}, false, fmt.Errorf("%s direction vector has zero length", d.Mode)
	}
	return d.Vector.Normalize(), false, nil
}

// Class is the coverage verdict for one curve.
type Class int

const (
	NotCovering Class = iota
	Partial
	Covering
)

func (c Class) String() string {
	switch c {
	case NotCovering:
		return "not-covering"
	case Partial:
		return "partial"
	case Covering:
		return "covering"
	default:
		return "unknown"
	}
}

// SamplePoint is one projected curve sample.
type SamplePoint struct {
	T     float64 // curve parameter
	Point v3.Vec  // curve point at T
	UV    v2.Vec  // solved surface coordinate, valid only if OK
	OK    bool    // projection converged
}

// Result is the per-curve coverage outcome.
type Result struct {
	Samples []SamplePoint
	// Ratio is the fraction of the required parametric span reached,
	// in [0, 1]. Invalid samples are excluded from its computation.
	Ratio float64
	Class Class
	// Invalid counts samples whose projection diverged.
	Invalid int
	// Fallbacks lists non-fatal recoveries taken during the check.
	Fallbacks []string
}

// SpanStrategy maps projected samples to a coverage ratio. The default
// is TransverseSpan; direction modes with different notions of
// "required span" can substitute their own.
type SpanStrategy interface {
	Ratio(bounds geom.UVRect, samples []SamplePoint) float64
}

// TransverseSpan measures the projected samples' interval on the
// dominant UV axis (the axis where the projection covers the larger
// fraction of the domain) against that axis's full range.
type TransverseSpan struct{}

func (TransverseSpan) Ratio(b geom.UVRect, samples []SamplePoint) float64 {
	var us, vs []float64
	for _, sp := range samples {
		if sp.OK {
			us = append(us, sp.UV.X)
			vs = append(vs, sp.UV.Y)
		}
	}
	if len(us) < 2 {
		return 0
	}
	uFrac := overlapFraction(floats.Min(us), floats.Max(us), b.UMin, b.UMax)
	vFrac := overlapFraction(floats.Min(vs), floats.Max(vs), b.VMin, b.VMax)
	return math.Max(uFrac, vFrac)
}

// overlapFraction returns the length of [lo,hi] ∩ [min,max] divided by
// the domain range, clipped to [0, 1].
func overlapFraction(lo, hi, min, max float64) float64 {
	if max <= min {
		return 0
	}
	ov := math.Min(hi, max) - math.Max(lo, min)
	if ov <= 0 {
		return 0
	}
	return math.Min(ov/(max-min), 1)
}

// Checker samples curves and classifies their coverage. Construct with
// NewChecker; the zero value is not usable.
type Checker struct {
	solver  *project.Solver
	span    SpanStrategy
	epsilon float64 // covering slack: ratio >= 1-epsilon classifies Covering
}

// NewChecker returns a Checker using the given solver. epsilon <= 0
// falls back to 0.1, matching the 90% covering threshold the engine
// has always used. span == nil falls back to TransverseSpan.
func NewChecker(solver *project.Solver, span SpanStrategy, epsilon float64) *Checker {
	if epsilon <= 0 {
		epsilon = 0.1
	}
	if span == nil {
		span = TransverseSpan{}
	}
	return &Checker{solver: solver, span: span, epsilon: epsilon}
}

// Epsilon returns the covering slack the checker classifies with.
func (c *Checker) Epsilon() float64 { return c.epsilon }

// Check samples curve at resolution evenly spaced parameters, projects
// each sample onto surface along the direction spec, and classifies
// the curve's coverage. Inputs are never mutated; identical inputs
// yield identical results.
func (c *Checker) Check(curve geom.Curve, surface geom.Surface, dir DirectionSpec, resolution int) (Result, error) {
	if resolution < 2 {
		return Result{}, fmt.Errorf("coverage: resolution %d too small, need >= 2", resolution)
	}

	var res Result
	fixedDir, fellBack, err := dir.Resolve(surface)
	if err != nil {
		return Result{}, fmt.Errorf("coverage: %w", err)
	}
	if fellBack {
		res.Fallbacks = append(res.Fallbacks, "degenerate face normal, using +Z")
	}

	t0, t1 := curve.ParamRange()
	res.Samples = make([]SamplePoint, 0, resolution)
	var prevUV *v2.Vec
	for i := 0; i < resolution; i++ {
		t := t0 + (t1-t0)*float64(i)/float64(resolution-1)
		sp := SamplePoint{T: t, Point: curve.ValueAt(t)}

		d := fixedDir
		uv, err := c.solver.SolveReseeded(surface, sp.Point, d, prevUV)
		if err == nil && dir.Mode == FaceNormal {
			// Refine once: re-evaluate the normal at the found UV and
			// re-solve with it.
			n := surface.NormalAt(uv.X, uv.Y)
			if n.Length() >= 1e-9 {
				d = n.Normalize()
				uv, err = c.solver.SolveReseeded(surface, sp.Point, d, &uv)
			}
		}
		if err != nil {
			res.Invalid++
			res.Fallbacks = append(res.Fallbacks,
				fmt.Sprintf("sample %d (t=%.4g) excluded: %v", i, t, err))
			prevUV = nil
		} else {
			sp.UV = uv
			sp.OK = true
			seed := uv
			prevUV = &seed
		}
		res.Samples = append(res.Samples, sp)
	}

	res.Ratio = c.span.Ratio(surface.UVBounds(), res.Samples)
	switch {
	case res.Ratio >= 1-c.epsilon:
		res.Class = Covering
	case res.Ratio > 0:
		res.Class = Partial
	default:
		res.Class = NotCovering
	}
	return res, nil
}
