package geom

import (
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

const eps = 1e-9

func vecApprox(a, b v3.Vec, tol float64) bool {
	return a.Sub(b).Length() <= tol
}

func TestLineEvaluation(t *testing.T) {
	l := Line{P0: v3.Vec{X: 10}, P1: v3.Vec{X: 30, Y: 20}}

	tests := []struct {
		name string
		t    float64
		want v3.Vec
	}{
		{"start", 0, v3.Vec{X: 10}},
		{"middle", 0.5, v3.Vec{X: 20, Y: 10}},
		{"end", 1, v3.Vec{X: 30, Y: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.ValueAt(tt.t)
			if !vecApprox(got, tt.want, eps) {
				t.Errorf("ValueAt(%g) = %+v, want %+v", tt.t, got, tt.want)
			}
		})
	}

	tan := l.TangentAt(0.3)
	want := v3.Vec{X: 20, Y: 20}
	if !vecApprox(tan, want, eps) {
		t.Errorf("TangentAt = %+v, want %+v", tan, want)
	}
}

func TestCubicBezierEndpoints(t *testing.T) {
	b := CubicBezier{
		P0: v3.Vec{},
		P1: v3.Vec{X: 10, Y: 30},
		P2: v3.Vec{X: 20, Y: 30},
		P3: v3.Vec{X: 30},
	}

	if got := b.ValueAt(0); !vecApprox(got, b.P0, eps) {
		t.Errorf("ValueAt(0) = %+v, want P0", got)
	}
	if got := b.ValueAt(1); !vecApprox(got, b.P3, eps) {
		t.Errorf("ValueAt(1) = %+v, want P3", got)
	}

	// Endpoint tangents align with the control polygon edges.
	t0 := b.TangentAt(0)
	if want := b.P1.Sub(b.P0).MulScalar(3); !vecApprox(t0, want, eps) {
		t.Errorf("TangentAt(0) = %+v, want %+v", t0, want)
	}
	t1 := b.TangentAt(1)
	if want := b.P3.Sub(b.P2).MulScalar(3); !vecApprox(t1, want, eps) {
		t.Errorf("TangentAt(1) = %+v, want %+v", t1, want)
	}
}

func TestLength(t *testing.T) {
	l := Line{P0: v3.Vec{}, P1: v3.Vec{X: 3, Y: 4}}
	if got := Length(l, 10); math.Abs(got-5) > eps {
		t.Errorf("Length = %g, want 5", got)
	}
}

func TestStartEnd(t *testing.T) {
	l := Line{P0: v3.Vec{X: 1}, P1: v3.Vec{X: 2}}
	if got := Start(l); !vecApprox(got, l.P0, eps) {
		t.Errorf("Start = %+v, want %+v", got, l.P0)
	}
	if got := End(l); !vecApprox(got, l.P1, eps) {
		t.Errorf("End = %+v, want %+v", got, l.P1)
	}
}

func TestExtendedParamRange(t *testing.T) {
	l := Line{P0: v3.Vec{X: 20, Y: 25}, P1: v3.Vec{X: 80, Y: 25}}
	e := NewExtended(l, 5, 7)

	t0, t1 := e.ParamRange()
	if math.Abs(t0-(-5)) > eps || math.Abs(t1-8) > eps {
		t.Fatalf("ParamRange = [%g, %g], want [-5, 8]", t0, t1)
	}
	if !e.Generated {
		t.Error("Generated = false, want true")
	}
}

func TestExtendedEvaluation(t *testing.T) {
	l := Line{P0: v3.Vec{X: 20, Y: 25}, P1: v3.Vec{X: 80, Y: 25}}
	e := NewExtended(l, 5, 7)

	// Extension segments are unit speed along the endpoint tangents, so
	// the geometric overhang equals the requested length exactly.
	if got := Start(e); !vecApprox(got, v3.Vec{X: 15, Y: 25}, eps) {
		t.Errorf("Start = %+v, want (15, 25, 0)", got)
	}
	if got := End(e); !vecApprox(got, v3.Vec{X: 87, Y: 25}, eps) {
		t.Errorf("End = %+v, want (87, 25, 0)", got)
	}

	// Interior parameters delegate to the original.
	if got, want := e.ValueAt(0.5), l.ValueAt(0.5); !vecApprox(got, want, eps) {
		t.Errorf("ValueAt(0.5) = %+v, want %+v", got, want)
	}

	// Tangent direction is continuous across the joins.
	want := v3.Vec{X: 1}
	if got := e.TangentAt(-2); !vecApprox(got, want, eps) {
		t.Errorf("TangentAt(-2) = %+v, want %+v", got, want)
	}
	if got := e.TangentAt(5); !vecApprox(got, want, eps) {
		t.Errorf("TangentAt(5) = %+v, want %+v", got, want)
	}
}

func TestExtendedPreservesOriginal(t *testing.T) {
	l := Line{P0: v3.Vec{X: 20}, P1: v3.Vec{X: 80}}
	e := NewExtended(l, 3, 3)

	if e.Original != Curve(l) {
		t.Error("Original is not the curve passed in")
	}
	t0, t1 := l.ParamRange()
	if t0 != 0 || t1 != 1 {
		t.Errorf("original ParamRange changed to [%g, %g]", t0, t1)
	}
}
