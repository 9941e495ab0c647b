package geom

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// UVRect is the rectangular parameter domain of a surface.
type UVRect struct {
	UMin, UMax float64
	VMin, VMax float64
}

// Width returns the extent of the U interval.
func (r UVRect) Width() float64 { return r.UMax - r.UMin }

// Height returns the extent of the V interval.
func (r UVRect) Height() float64 { return r.VMax - r.VMin }

// Center returns the midpoint of the domain.
func (r UVRect) Center() v2.Vec {
	return v2.Vec{X: 0.5 * (r.UMin + r.UMax), Y: 0.5 * (r.VMin + r.VMax)}
}

// Contains reports whether (u, v) lies inside the domain, expanded by
// tol on every side.
func (r UVRect) Contains(uv v2.Vec, tol float64) bool {
	return uv.X >= r.UMin-tol && uv.X <= r.UMax+tol &&
		uv.Y >= r.VMin-tol && uv.Y <= r.VMax+tol
}

// Interior reports whether (u, v) lies strictly inside the domain,
// shrunk by tol on every side.
func (r UVRect) Interior(uv v2.Vec, tol float64) bool {
	return uv.X > r.UMin+tol && uv.X < r.UMax-tol &&
		uv.Y > r.VMin+tol && uv.Y < r.VMax-tol
}

// Clamp returns uv clipped to the domain.
func (r UVRect) Clamp(uv v2.Vec) v2.Vec {
	return v2.Vec{
		X: math.Min(math.Max(uv.X, r.UMin), r.UMax),
		Y: math.Min(math.Max(uv.Y, r.VMin), r.VMax),
	}
}

// BoundaryDistance returns the distance from uv to the nearest domain
// edge. Positive inside, negative outside.
func (r UVRect) BoundaryDistance(uv v2.Vec) float64 {
	du := math.Min(uv.X-r.UMin, r.UMax-uv.X)
	dv := math.Min(uv.Y-r.VMin, r.VMax-uv.Y)
	return math.Min(du, dv)
}

// Surface is a parametric surface over a rectangular UV domain.
type Surface interface {
	// ValueAt evaluates the surface point at (u, v).
	ValueAt(u, v float64) v3.Vec
	// NormalAt returns the unit surface normal at (u, v).
	NormalAt(u, v float64) v3.Vec
	// Derivatives returns the partial derivatives dS/du and dS/dv.
	Derivatives(u, v float64) (su, sv v3.Vec)
	// UVBounds returns the parameter domain.
	UVBounds() UVRect
}

// BoundingBox returns the axis-aligned box enclosing the surface,
// estimated from a corner-and-center sample of the UV domain.
func BoundingBox(s Surface) (min, max v3.Vec) {
	b := s.UVBounds()
	us := []float64{b.UMin, 0.5 * (b.UMin + b.UMax), b.UMax}
	vs := []float64{b.VMin, 0.5 * (b.VMin + b.VMax), b.VMax}
	min = v3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max = v3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, u := range us {
		for _, v := range vs {
			p := s.ValueAt(u, v)
			min = min.Min(p)
			max = max.Max(p)
		}
	}
	return min, max
}

// BoundingDiagonal returns the diagonal length of the surface bounding
// box. Used as a safe upper bound for extension searches.
func BoundingDiagonal(s Surface) float64 {
	min, max := BoundingBox(s)
	return max.Sub(min).Length()
}

// Plane is a bounded planar patch. Points are Origin + u*UDir + v*VDir
// with UDir and VDir unit-length and non-parallel.
type Plane struct {
	Origin     v3.Vec
	UDir, VDir v3.Vec
	Bounds     UVRect
}

// NewPlane builds an axis-aligned planar patch in the XY plane with
// the given UV domain. Convenience for tests and scripts.
func NewPlane(bounds UVRect) Plane {
	return Plane{
		UDir:   v3.Vec{X: 1},
		VDir:   v3.Vec{Y: 1},
		Bounds: bounds,
	}
}

func (p Plane) ValueAt(u, v float64) v3.Vec {
	return p.Origin.Add(p.UDir.MulScalar(u)).Add(p.VDir.MulScalar(v))
}

func (p Plane) NormalAt(u, v float64) v3.Vec {
	n := p.UDir.Cross(p.VDir)
	if n.Length() < 1e-12 {
		// Degenerate direction pair. Return zero rather than NaN so
		// callers can detect it and fall back.
		return v3.Vec{}
	}
	return n.Normalize()
}

func (p Plane) Derivatives(u, v float64) (v3.Vec, v3.Vec) {
	return p.UDir, p.VDir
}

func (p Plane) UVBounds() UVRect { return p.Bounds }

// Cylinder is a bounded patch of a right circular cylinder around an
// axis through Origin along Axis (unit). u is the angular coordinate
// in radians, v the height along the axis.
type Cylinder struct {
	Origin v3.Vec
	Axis   v3.Vec // unit
	Ref    v3.Vec // unit, perpendicular to Axis; angle u = 0 direction
	Radius float64
	Bounds UVRect
}

func (c Cylinder) ValueAt(u, v float64) v3.Vec {
	bi := c.Axis.Cross(c.Ref) // binormal completing the frame
	radial := c.Ref.MulScalar(math.Cos(u)).Add(bi.MulScalar(math.Sin(u)))
	return c.Origin.Add(radial.MulScalar(c.Radius)).Add(c.Axis.MulScalar(v))
}

func (c Cylinder) NormalAt(u, v float64) v3.Vec {
	bi := c.Axis.Cross(c.Ref)
	return c.Ref.MulScalar(math.Cos(u)).Add(bi.MulScalar(math.Sin(u)))
}

func (c Cylinder) Derivatives(u, v float64) (v3.Vec, v3.Vec) {
	bi := c.Axis.Cross(c.Ref)
	su := c.Ref.MulScalar(-math.Sin(u)).Add(bi.MulScalar(math.Cos(u))).MulScalar(c.Radius)
	return su, c.Axis
}

func (c Cylinder) UVBounds() UVRect { return c.Bounds }
