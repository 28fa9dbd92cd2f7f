// Package geom provides the mesh value types shared by the topology,
// wireframe, bvh, camera and placement packages.
//
// A [Mesh] is a plain immutable value: once built it is never mutated, so
// meshes can be shared freely between concurrent builds. All polyhedra in
// this project satisfy the same invariants:
//   - centered at the origin
//   - convex, with every face wound so its normal points away from the origin
//   - every undirected edge shared by at most two faces
//
// Faces are stored as ordered vertex-index polygons (triangles, quads,
// pentagons, ...). Consumers that need triangles call [Mesh.Triangulate].
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mwolters/polymark/pkg/errors"
)

// Epsilon below which a vector is treated as zero-length.
const Epsilon = 1e-9

// Mesh is a convex polyhedron: vertex positions plus ordered polygon faces.
type Mesh struct {
	Vertices []mgl64.Vec3
	Faces    [][]int
}

// Triangle indexes three vertices of a mesh.
type Triangle [3]int

// Validate reports whether the mesh is usable as a boundary solid.
// A mesh with no vertices or no faces is a malformed shape spec and is a
// caller-visible input error, distinct from placement ambiguity.
func (m Mesh) Validate() error {
	if len(m.Vertices) == 0 {
		return errors.New(errors.ErrCodeEmptyMesh, "mesh has no vertices")
	}
	if len(m.Faces) == 0 {
		return errors.New(errors.ErrCodeEmptyMesh, "mesh has no faces")
	}
	for fi, face := range m.Faces {
		if len(face) < 3 {
			return errors.New(errors.ErrCodeInvalidShape, "face %d has %d vertices, need at least 3", fi, len(face))
		}
		for _, vi := range face {
			if vi < 0 || vi >= len(m.Vertices) {
				return errors.New(errors.ErrCodeInvalidShape, "face %d references vertex %d, mesh has %d", fi, vi, len(m.Vertices))
			}
		}
	}
	return nil
}

// FaceCenter returns the centroid of face fi.
func (m Mesh) FaceCenter(fi int) mgl64.Vec3 {
	face := m.Faces[fi]
	var c mgl64.Vec3
	for _, vi := range face {
		c = c.Add(m.Vertices[vi])
	}
	return c.Mul(1.0 / float64(len(face)))
}

// FaceNormal returns the outward unit normal of face fi.
// The normal is computed from the first three vertices and flipped if it
// points toward the origin, so it is outward regardless of stored winding.
func (m Mesh) FaceNormal(fi int) mgl64.Vec3 {
	face := m.Faces[fi]
	a, b, c := m.Vertices[face[0]], m.Vertices[face[1]], m.Vertices[face[2]]
	n := b.Sub(a).Cross(c.Sub(a))
	n = SafeNormalize(n, mgl64.Vec3{0, 0, 1})
	if n.Dot(m.FaceCenter(fi)) < 0 {
		n = n.Mul(-1)
	}
	return n
}

// FacePlanePoint projects the origin onto the plane of face fi along the
// face's outward normal. For the regular solids this is the true face
// center; unlike the triangle centroid it is stable for any convex n-gon.
func (m Mesh) FacePlanePoint(fi int) mgl64.Vec3 {
	n := m.FaceNormal(fi)
	dist := n.Dot(m.FaceCenter(fi))
	return n.Mul(dist)
}

// Triangulate fans every face into triangles. Faces that are already
// triangles pass through unchanged. The result references the original
// vertex slice.
func (m Mesh) Triangulate() []Triangle {
	tris := make([]Triangle, 0, len(m.Faces))
	for _, face := range m.Faces {
		for i := 1; i < len(face)-1; i++ {
			tris = append(tris, Triangle{face[0], face[i], face[i+1]})
		}
	}
	return tris
}

// Bounds returns the axis-aligned min/max corners over all vertices.
func (m Mesh) Bounds() (min, max mgl64.Vec3) {
	if len(m.Vertices) == 0 {
		return min, max
	}
	min, max = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		for i := 0; i < 3; i++ {
			min[i] = math.Min(min[i], v[i])
			max[i] = math.Max(max[i], v[i])
		}
	}
	return min, max
}

// SafeNormalize returns v normalized, or fallback when v is degenerate.
// Degenerate geometry must never leak NaN into downstream math.
func SafeNormalize(v, fallback mgl64.Vec3) mgl64.Vec3 {
	if l := v.Len(); l > Epsilon {
		return v.Mul(1.0 / l)
	}
	return fallback
}

// ScaleToRadius uniformly scales verts so the first vertex sits at the
// given distance from the origin. All canonical shape topologies place
// every vertex at equal distance, so this puts the whole shape on the
// requested circumradius.
func ScaleToRadius(verts []mgl64.Vec3, radius float64) []mgl64.Vec3 {
	if len(verts) == 0 {
		return verts
	}
	base := verts[0].Len()
	if base < Epsilon {
		return verts
	}
	s := radius / base
	out := make([]mgl64.Vec3, len(verts))
	for i, v := range verts {
		out[i] = v.Mul(s)
	}
	return out
}
