// Package geom defines the parametric curve and surface types consumed
// by the trim engine. Curves and surfaces are immutable value types:
// the engine never mutates geometry it is handed, and every derived
// curve (extension segments, composites) is freshly constructed.
package geom

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Curve is a parametric 3D curve over a scalar parameter interval.
type Curve interface {
	// ValueAt evaluates the curve at parameter t.
	ValueAt(t float64) v3.Vec
	// TangentAt returns the (unnormalized) first derivative at t.
	TangentAt(t float64) v3.Vec
	// ParamRange returns the valid parameter interval [t0, t1].
	ParamRange() (t0, t1 float64)
}

// Start returns the curve point at the low end of its parameter range.
func Start(c Curve) v3.Vec {
	t0, _ := c.ParamRange()
	return c.ValueAt(t0)
}

// End returns the curve point at the high end of its parameter range.
func End(c Curve) v3.Vec {
	_, t1 := c.ParamRange()
	return c.ValueAt(t1)
}

// Length approximates the arc length of c with an n-segment polyline.
// n must be >= 1.
func Length(c Curve, n int) float64 {
	t0, t1 := c.ParamRange()
	prev := c.ValueAt(t0)
	var sum float64
	for i := 1; i <= n; i++ {
		t := t0 + (t1-t0)*float64(i)/float64(n)
		p := c.ValueAt(t)
		sum += p.Sub(prev).Length()
		prev = p
	}
	return sum
}

// Line is a straight segment from P0 to P1, parametrized over [0, 1].
type Line struct {
	P0, P1 v3.Vec
}

func (l Line) ValueAt(t float64) v3.Vec {
	return l.P0.Add(l.P1.Sub(l.P0).MulScalar(t))
}

func (l Line) TangentAt(t float64) v3.Vec {
	return l.P1.Sub(l.P0)
}

func (l Line) ParamRange() (float64, float64) { return 0, 1 }

// CubicBezier is a cubic Bézier segment parametrized over [0, 1].
type CubicBezier struct {
	P0, P1, P2, P3 v3.Vec
}

func (b CubicBezier) ValueAt(t float64) v3.Vec {
	mt := 1 - t
	// Horner-style expansion of the Bernstein basis.
	a := b.P0.MulScalar(mt * mt * mt)
	c := b.P1.MulScalar(3 * mt * mt * t)
	d := b.P2.MulScalar(3 * mt * t * t)
	e := b.P3.MulScalar(t * t * t)
	return a.Add(c).Add(d).Add(e)
}

func (b CubicBezier) TangentAt(t float64) v3.Vec {
	mt := 1 - t
	d0 := b.P1.Sub(b.P0).MulScalar(3 * mt * mt)
	d1 := b.P2.Sub(b.P1).MulScalar(6 * mt * t)
	d2 := b.P3.Sub(b.P2).MulScalar(3 * t * t)
	return d0.Add(d1).Add(d2)
}

func (b CubicBezier) ParamRange() (float64, float64) { return 0, 1 }
