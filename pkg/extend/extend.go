// Package extend lengthens under-covering trim curves. Boundary mode
// walks a tangent ray from each under-covering endpoint and bisects
// for the distance at which the projected curve first reaches the
// surface's UV-domain boundary; Custom mode appends a fixed length.
// Failures never modify the original curve.
package extend

import (
	"fmt"
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/facetrim/pkg/coverage"
	"github.com/chazu/facetrim/pkg/geom"
	"github.com/chazu/facetrim/pkg/project"
)

// Mode selects the extension policy.
type Mode int

const (
	// None disables extension.
	None Mode = iota
	// Boundary extends until the projected curve reaches the UV-domain
	// boundary.
	Boundary
	// Custom extends by a fixed absolute length per endpoint.
	Custom
)

func (m Mode) String() string {
	switch m {
	case None:
		return "none"
	case Boundary:
		return "boundary"
	case Custom:
		return "custom"
	default:
		return "unknown"
	}
}

// Spec is the closed tagged variant describing the extension policy.
// Distance is consulted only in Custom mode and must be positive.
type Spec struct {
	Mode     Mode
	Distance float64
}

// Validate reports whether the mode and distance combination is usable.
func (s Spec) Validate() error {
	if s.Mode == Custom && s.Distance <= 0 {
		return fmt.Errorf("custom extension distance must be positive, got %g", s.Distance)
	}
	return nil
}

// Error reports a failed extension attempt. The original curve is
// always preserved unmodified when an Error is returned.
type Error struct {
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extension failed: %s: %v", e.Reason, e.Cause)
	}
	return "extension failed: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Cause }

// maxBisectionSteps caps the boundary search.
const maxBisectionSteps = 50

// degenerateTangent is the squared-length floor below which an
// endpoint derivative counts as degenerate.
const degenerateTangent = 1e-18

// Extender builds extended curves. Construct with New.
type Extender struct {
	solver *project.Solver
	uvTol  float64 // boundary proximity tolerance in UV units
}

// New returns an Extender using the given projection solver. uvTol is
// the boundary proximity tolerance; values <= 0 fall back to 1e-6.
func New(solver *project.Solver, uvTol float64) *Extender {
	if uvTol <= 0 {
		uvTol = 1e-6
	}
	return &Extender{solver: solver, uvTol: uvTol}
}

// Extend produces an extension of curve per spec, driven by its
// coverage result. A nil result with a nil error means no extension
// was needed and the curve should be used as supplied: a curve already
// classified Covering, None mode, or endpoints that all sit on or past
// the domain boundary. Extension is attempted independently per
// under-covering endpoint.
func (e *Extender) Extend(curve geom.Curve, cov coverage.Result, spec Spec, surface geom.Surface) (*geom.Extended, error) {
	if err := spec.Validate(); err != nil {
		return nil, &Error{Reason: "invalid spec", Cause: err}
	}
	if spec.Mode == None || cov.Class == coverage.Covering {
		return nil, nil
	}

	startLen, endLen, err := e.endLengths(curve, spec, surface)
	if err != nil {
		return nil, err
	}
	if startLen == 0 && endLen == 0 {
		return nil, nil
	}
	ext := geom.NewExtended(curve, startLen, endLen)

	switch spec.Mode {
	case Boundary:
		if err := e.checkRegression(curve, ext, surface); err != nil {
			return nil, err
		}
	case Custom:
		if err := e.checkWithinBounds(ext, surface); err != nil {
			return nil, err
		}
	}
	return ext, nil
}

// endLengths computes the extension length needed at each end.
func (e *Extender) endLengths(curve geom.Curve, spec Spec, surface geom.Surface) (startLen, endLen float64, err error) {
	t0, t1 := curve.ParamRange()

	for _, end := range []struct {
		t       float64
		outward float64 // tangent sign pointing past this end
		dst     *float64
	}{
		{t0, -1, &startLen},
		{t1, +1, &endLen},
	} {
		tan := curve.TangentAt(end.t)
		if tan.Length2() < degenerateTangent {
			return 0, 0, &Error{Reason: fmt.Sprintf("degenerate tangent at t=%g", end.t)}
		}
		dir := tan.Normalize().MulScalar(end.outward)
		pt := curve.ValueAt(end.t)

		switch spec.Mode {
		case Custom:
			if e.underCovering(pt, surface) {
				*end.dst = spec.Distance
			}
		case Boundary:
			if !e.underCovering(pt, surface) {
				continue // endpoint already reaches the boundary
			}
			dist, err := e.boundarySearch(pt, dir, surface)
			if err != nil {
				return 0, 0, err
			}
			*end.dst = dist
		}
	}
	return startLen, endLen, nil
}

// underCovering reports whether the projection of pt lands strictly in
// the domain interior, i.e. this endpoint stops short of the boundary.
// Endpoints whose projection diverges (already past the surface) do
// not need extension.
func (e *Extender) underCovering(pt v3.Vec, surface geom.Surface) bool {
	uv, err := e.project(pt, surface)
	if err != nil {
		return false
	}
	return surface.UVBounds().Interior(uv, e.uvTol)
}

// project solves for pt's UV along the surface normal at the current
// best guess, seeding from the grid.
func (e *Extender) project(pt v3.Vec, surface geom.Surface) (v2.Vec, error) {
	c := surface.UVBounds().Center()
	n := surface.NormalAt(c.X, c.Y)
	if n.Length() < 1e-9 {
		n = v3.Vec{Z: 1}
	}
	return e.solver.Solve(surface, pt, n.Normalize(), nil)
}

// boundarySearch bisects the walk distance along dir from pt for the
// smallest distance whose projection is no longer interior to the UV
// domain. The search is capped at the surface bounding diagonal.
func (e *Extender) boundarySearch(pt, dir v3.Vec, surface geom.Surface) (float64, error) {
	maxDist := geom.BoundingDiagonal(surface)
	if maxDist <= 0 {
		return 0, &Error{Reason: "degenerate surface bounding box"}
	}

	inside := func(d float64) bool {
		return e.underCovering(pt.Add(dir.MulScalar(d)), surface)
	}
	if inside(maxDist) {
		return 0, &Error{Reason: fmt.Sprintf("projection still interior after walking %g along the tangent", maxDist)}
	}

	lo, hi := 0.0, maxDist
	for i := 0; i < maxBisectionSteps; i++ {
		mid := 0.5 * (lo + hi)
		if inside(mid) {
			lo = mid
		} else {
			hi = mid
		}
		if hi-lo < e.uvTol {
			break
		}
	}
	if math.IsNaN(hi) || hi <= 0 {
		return 0, &Error{Reason: "boundary search did not converge"}
	}
	return hi, nil
}

// checkWithinBounds rejects custom extensions whose endpoints leave
// the surface bounding box inflated by its own diagonal. A fixed
// distance is not tied to the surface like the boundary search is, so
// an oversized one would otherwise place geometry far off the surface.
func (e *Extender) checkWithinBounds(ext *geom.Extended, surface geom.Surface) error {
	min, max := geom.BoundingBox(surface)
	diag := max.Sub(min).Length()
	if diag <= 0 {
		return &Error{Reason: "degenerate surface bounding box"}
	}
	pad := v3.Vec{X: diag, Y: diag, Z: diag}
	lo, hi := min.Sub(pad), max.Add(pad)
	for _, pt := range []v3.Vec{geom.Start(ext), geom.End(ext)} {
		if pt.X < lo.X || pt.Y < lo.Y || pt.Z < lo.Z ||
			pt.X > hi.X || pt.Y > hi.Y || pt.Z > hi.Z {
			return &Error{Reason: fmt.Sprintf(
				"extended endpoint (%g, %g, %g) leaves the surface bounding region", pt.X, pt.Y, pt.Z)}
		}
	}
	return nil
}

// checkRegression guards against extensions that end up farther from
// the required boundary than the original endpoints were.
func (e *Extender) checkRegression(orig geom.Curve, ext *geom.Extended, surface geom.Surface) error {
	origDist := e.worstBoundaryDistance(orig, surface)
	extDist := e.worstBoundaryDistance(ext, surface)
	if extDist > origDist+e.uvTol {
		return &Error{Reason: fmt.Sprintf(
			"extended projection is farther from the boundary than before (%g > %g)", extDist, origDist)}
	}
	return nil
}

// worstBoundaryDistance returns the larger of the two endpoint
// distances to the UV boundary. Endpoints whose projection diverges
// count as distance zero: they are already past the surface.
func (e *Extender) worstBoundaryDistance(c geom.Curve, surface geom.Surface) float64 {
	b := surface.UVBounds()
	worst := 0.0
	for _, pt := range []v3.Vec{geom.Start(c), geom.End(c)} {
		uv, err := e.project(pt, surface)
		if err != nil {
			continue
		}
		if d := b.BoundaryDistance(uv); d > worst {
			worst = d
		}
	}
	return worst
}
