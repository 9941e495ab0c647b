// Package trim orchestrates a trim run: coverage checking, conditional
// curve extension, the external trim primitive, and hierarchy
// assembly. The boolean face-trim itself is an opaque primitive behind
// the Trimmer interface; backends (sdfxtrim) provide it without the
// pipeline knowing how.
package trim

import (
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/facetrim/pkg/geom"
)

// Face is an opaque handle to a trimmed face produced by a Trimmer.
// Backends wrap their internal representation.
type Face interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max v3.Vec)
	// Mesh returns a triangle mesh of the trimmed face.
	Mesh() (*Mesh, error)
}

// Trimmer performs the external boolean face-trim primitive. The
// curves passed in are guaranteed by the executor to cover the
// surface's trim span (possibly via generated extensions); keep is the
// UV point selecting which side of the cut survives.
type Trimmer interface {
	Trim(surface geom.Surface, curves []geom.Curve, keep v2.Vec) (Face, error)
}

// Mesh is a triangle mesh of a trimmed face, suitable for rendering or
// export. All arrays are flat: vertices has 3 floats per vertex
// (x,y,z), normals has 3 floats per vertex, indices has 3 uint32s per
// triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	FaceName string    `json:"faceName"` // which trim run this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}
