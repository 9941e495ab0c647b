// Package sdfxtrim implements the trim.Trimmer interface using the
// github.com/deadsy/sdfx SDF-based CAD library. The cut is modeled in
// UV space: each trimming curve is projected to a UV polyline, the kept
// side of every polyline is intersected with the surface's parameter
// domain, and the resulting signed-distance region is meshed with
// marching cubes and mapped back through the surface.
package sdfxtrim

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/facetrim/pkg/geom"
	"github.com/chazu/facetrim/pkg/project"
	"github.com/chazu/facetrim/pkg/trim"
)

// Compile-time interface check.
var _ trim.Trimmer = (*Trimmer)(nil)

// defaultMeshCells controls marching cubes tessellation resolution.
const defaultMeshCells = 100

// defaultPolylineSamples is the per-curve sample count used to trace
// the cut in UV space.
const defaultPolylineSamples = 64

// CutError reports a trimming curve that could not produce a valid cut.
type CutError struct {
	Curve  int // zero-based index into the request's curve list
	Reason string
}

func (e *CutError) Error() string {
	return fmt.Sprintf("curve %d: degenerate cut: %s", e.Curve, e.Reason)
}

// Options tunes the backend. Zero values select the defaults.
type Options struct {
	// PolylineSamples is the number of points used to trace each curve
	// in UV space.
	PolylineSamples int
	// MeshCells is the marching cubes resolution for Mesh output. Tests
	// use small values to keep meshing cheap.
	MeshCells int
}

// Trimmer implements trim.Trimmer on sdfx.
type Trimmer struct {
	solver  *project.Solver
	samples int
	cells   int
}

// New returns a Trimmer using the given projection solver.
func New(solver *project.Solver, opts Options) *Trimmer {
	if opts.PolylineSamples <= 1 {
		opts.PolylineSamples = defaultPolylineSamples
	}
	if opts.MeshCells <= 0 {
		opts.MeshCells = defaultMeshCells
	}
	return &Trimmer{solver: solver, samples: opts.PolylineSamples, cells: opts.MeshCells}
}

// Trim cuts surface along the projections of curves, keeping the side
// containing keep. Every curve must separate the UV domain: a curve
// whose projected polyline collapses, or whose cut removes the keep
// point entirely, yields a CutError.
func (t *Trimmer) Trim(surface geom.Surface, curves []geom.Curve, keep v2.Vec) (trim.Face, error) {
	bounds := surface.UVBounds()
	if !bounds.Contains(keep, 0) {
		return nil, fmt.Errorf("keep point (%g, %g) outside the surface UV domain", keep.X, keep.Y)
	}

	region, err := domainRegion(bounds)
	if err != nil {
		return nil, err
	}
	for i, c := range curves {
		poly, err := t.projectPolyline(c, surface)
		if err != nil {
			return nil, &CutError{Curve: i, Reason: err.Error()}
		}
		cut := newPolylineCut(poly, bounds)
		side := cut.Evaluate(keep)
		if math.Abs(side) < 1e-12 {
			return nil, &CutError{Curve: i, Reason: "keep point lies on the cut"}
		}
		if side > 0 {
			cut.flip()
		}
		region = sdf.Intersect2D(region, cut)
	}
	if region.Evaluate(keep) > 0 {
		return nil, fmt.Errorf("cuts removed the keep point, nothing survives")
	}

	return &face{
		surface: surface,
		region:  region,
		cells:   t.cells,
	}, nil
}

// projectPolyline traces the curve's projection in UV space. Diverged
// samples are skipped; the polyline needs at least two points to define
// a cut.
func (t *Trimmer) projectPolyline(c geom.Curve, surface geom.Surface) ([]v2.Vec, error) {
	b := surface.UVBounds()
	center := b.Center()
	dir := surface.NormalAt(center.X, center.Y)
	if dir.Length() < 1e-9 {
		dir = v3.Vec{Z: 1}
	}
	dir = dir.Normalize()

	t0, t1 := c.ParamRange()
	pts := make([]v2.Vec, 0, t.samples)
	var prev *v2.Vec
	for i := 0; i < t.samples; i++ {
		tt := t0 + (t1-t0)*float64(i)/float64(t.samples-1)
		uv, err := t.solver.SolveReseeded(surface, c.ValueAt(tt), dir, prev)
		if err != nil {
			prev = nil
			continue
		}
		pts = append(pts, uv)
		seed := uv
		prev = &seed
	}
	if len(pts) < 2 {
		return nil, fmt.Errorf("projected polyline has %d points, need >= 2", len(pts))
	}
	return pts, nil
}

// domainRegion returns the UV parameter rectangle as an SDF2 centered
// on the domain.
func domainRegion(b geom.UVRect) (sdf.SDF2, error) {
	box := sdf.Box2D(v2.Vec{X: b.Width(), Y: b.Height()}, 0)
	return sdf.Transform2D(box, sdf.Translate2d(b.Center())), nil
}

// polylineCut is the signed half-region bounded by a UV polyline.
// Evaluate returns the distance to the polyline, negative on the kept
// side. The sign comes from which side of the nearest segment the query
// point falls on, so the region behaves as if the polyline continued
// straight past its endpoints.
type polylineCut struct {
	pts  []v2.Vec
	sign float64
	bb   sdf.Box2
}

func newPolylineCut(pts []v2.Vec, domain geom.UVRect) *polylineCut {
	// The half-region is unbounded, but the trim result is always
	// intersected with the domain box. Reporting a box barely larger
	// than the domain keeps the render bounds (and marching cubes cell
	// size) tight.
	pad := 0.01 * math.Max(domain.Width(), domain.Height())
	return &polylineCut{
		pts:  pts,
		sign: 1,
		bb: sdf.Box2{
			Min: v2.Vec{X: domain.UMin - pad, Y: domain.VMin - pad},
			Max: v2.Vec{X: domain.UMax + pad, Y: domain.VMax + pad},
		},
	}
}

// flip swaps which side of the polyline is kept.
func (p *polylineCut) flip() { p.sign = -p.sign }

func (p *polylineCut) Evaluate(q v2.Vec) float64 {
	best := math.Inf(1)
	side := 1.0
	for i := 0; i+1 < len(p.pts); i++ {
		a, b := p.pts[i], p.pts[i+1]
		d, s := segmentDistance(q, a, b)
		if d < best {
			best = d
			side = s
		}
	}
	return p.sign * side * best
}

func (p *polylineCut) BoundingBox() sdf.Box2 { return p.bb }

// segmentDistance returns the distance from q to segment ab and the
// sign of the cross product telling which side of ab's direction q lies
// on. Points past the segment ends measure to the nearest endpoint, but
// the side still comes from the full segment direction.
func segmentDistance(q, a, b v2.Vec) (dist, side float64) {
	ab := b.Sub(a)
	aq := q.Sub(a)
	len2 := ab.Dot(ab)
	tt := 0.0
	if len2 > 0 {
		tt = math.Min(math.Max(aq.Dot(ab)/len2, 0), 1)
	}
	closest := a.Add(ab.MulScalar(tt))
	dist = q.Sub(closest).Length()

	cross := ab.X*aq.Y - ab.Y*aq.X
	if cross < 0 {
		side = -1
	} else {
		side = 1
	}
	return dist, side
}

// face is the trimmed face produced by Trim. The mesh is generated on
// demand.
type face struct {
	surface geom.Surface
	region  sdf.SDF2
	cells   int
	name    string
}

// bboxGridSize is the per-axis UV sample count used to estimate the
// trimmed bounding box.
const bboxGridSize = 16

// BoundingBox estimates the axis-aligned bounding box of the kept
// region by sampling the UV domain and mapping surviving samples
// through the surface.
func (f *face) BoundingBox() (min, max v3.Vec) {
	b := f.surface.UVBounds()
	min = v3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max = min.Neg()
	found := false
	for i := 0; i <= bboxGridSize; i++ {
		for j := 0; j <= bboxGridSize; j++ {
			u := b.UMin + b.Width()*float64(i)/bboxGridSize
			v := b.VMin + b.Height()*float64(j)/bboxGridSize
			if f.region.Evaluate(v2.Vec{X: u, Y: v}) > 0 {
				continue
			}
			p := f.surface.ValueAt(u, v)
			min = min.Min(p)
			max = max.Max(p)
			found = true
		}
	}
	if !found {
		return v3.Vec{}, v3.Vec{}
	}
	return min, max
}

// Mesh triangulates the kept region with marching cubes over a thin
// extrusion of the UV region, then maps every vertex back through the
// surface. Normals come from the surface, not the slab.
func (f *face) Mesh() (*trim.Mesh, error) {
	b := f.surface.UVBounds()
	// Thick enough that marching cubes resolves the slab at the default
	// cell count.
	thickness := 0.1 * math.Min(b.Width(), b.Height())
	if thickness <= 0 {
		return nil, fmt.Errorf("degenerate UV domain %+v", b)
	}
	slab := sdf.Extrude3D(f.region, thickness)

	renderer := render.NewMarchingCubesUniform(f.cells)
	triangles := render.ToTriangles(slab, renderer)

	numVerts := len(triangles) * 3
	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		for j := 0; j < 3; j++ {
			// The slab's x/y are the UV coordinates; its z is dropped.
			uv := b.Clamp(v2.Vec{X: tri[j].X, Y: tri[j].Y})
			p := f.surface.ValueAt(uv.X, uv.Y)
			n := f.surface.NormalAt(uv.X, uv.Y)
			vertices = append(vertices, float32(p.X), float32(p.Y), float32(p.Z))
			normals = append(normals, float32(n.X), float32(n.Y), float32(n.Z))
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &trim.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
		FaceName: f.name,
	}, nil
}
