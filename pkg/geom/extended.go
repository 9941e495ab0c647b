package geom

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Extended is a curve composed of an original curve plus straight
// tangent-continuation segments at one or both ends. The original is
// referenced, never copied or modified. Extension segments are
// parametrized by arc length, so the parameter range grows by exactly
// the extension distances:
//
//	[t0 - StartLen, t1 + EndLen]
//
// where [t0, t1] is the original range.
type Extended struct {
	Original Curve
	// StartLen and EndLen are the extension lengths (>= 0) prepended
	// and appended along the endpoint tangents.
	StartLen, EndLen float64
	// Generated marks the curve as engine-synthesized output.
	Generated bool

	startPt, endPt   v3.Vec
	startTan, endTan v3.Vec // unit tangents pointing outward past each end
}

// NewExtended constructs an extension of c by startLen at the low end
// and endLen at the high end. Lengths of zero leave that end alone.
// The endpoint tangents must be non-degenerate; callers validate this
// before construction (see the extend package).
func NewExtended(c Curve, startLen, endLen float64) *Extended {
	t0, t1 := c.ParamRange()
	e := &Extended{
		Original:  c,
		StartLen:  startLen,
		EndLen:    endLen,
		Generated: true,
		startPt:   c.ValueAt(t0),
		endPt:     c.ValueAt(t1),
		startTan:  c.TangentAt(t0).Normalize().Neg(),
		endTan:    c.TangentAt(t1).Normalize(),
	}
	return e
}

func (e *Extended) ValueAt(t float64) v3.Vec {
	t0, t1 := e.Original.ParamRange()
	switch {
	case t < t0:
		return e.startPt.Add(e.startTan.MulScalar(t0 - t))
	case t > t1:
		return e.endPt.Add(e.endTan.MulScalar(t - t1))
	default:
		return e.Original.ValueAt(t)
	}
}

func (e *Extended) TangentAt(t float64) v3.Vec {
	t0, t1 := e.Original.ParamRange()
	switch {
	case t < t0:
		return e.startTan.Neg()
	case t > t1:
		return e.endTan
	default:
		return e.Original.TangentAt(t)
	}
}

func (e *Extended) ParamRange() (float64, float64) {
	t0, t1 := e.Original.ParamRange()
	return t0 - e.StartLen, t1 + e.EndLen
}
