// Package wireframe recovers the true edges of a polyhedron from its face
// list.
//
// Meshes stored as n-gon polygons carry no spurious edges, so their
// wireframe is just every consecutive vertex pair. Meshes that arrive
// pre-triangulated (planar quads and pentagons fanned into triangles)
// additionally carry internal diagonals; those are suppressed by dropping
// any edge whose two incident triangles are nearly coplanar.
package wireframe

import (
	"cmp"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mwolters/polymark/pkg/geom"
)

// DefaultCoplanarDot is the |n0·n1| threshold above which two adjacent
// triangle normals count as parallel and their shared edge as a
// triangulation diagonal. Tunable configuration, not a derived invariant.
const DefaultCoplanarDot = 0.999999

// Edge is an undirected vertex index pair with I < J.
type Edge struct {
	I, J int
}

func makeEdge(a, b int) Edge {
	if a < b {
		return Edge{a, b}
	}
	return Edge{b, a}
}

func sortEdges(edges []Edge) {
	slices.SortFunc(edges, func(a, b Edge) int {
		if c := cmp.Compare(a.I, b.I); c != 0 {
			return c
		}
		return cmp.Compare(a.J, b.J)
	})
}

// FromPolygons returns the sorted, deduplicated edge list of an n-gon face
// list: every consecutive vertex pair of every face. With true polygon
// faces this is always correct, no coplanarity logic needed.
func FromPolygons(faces [][]int) []Edge {
	seen := make(map[Edge]struct{})
	for _, face := range faces {
		if len(face) < 2 {
			continue
		}
		for i := range face {
			seen[makeEdge(face[i], face[(i+1)%len(face)])] = struct{}{}
		}
	}
	edges := make([]Edge, 0, len(seen))
	for e := range seen {
		edges = append(edges, e)
	}
	sortEdges(edges)
	return edges
}

// FromTriangles derives the true polyhedron edges from a triangulated
// surface, dropping triangulation diagonals.
//
// An edge with a single incident triangle is a genuine boundary edge and
// is kept. An edge shared by two (or more) triangles is kept iff some
// incident normal pair is not nearly parallel: |n0·n1| < coplanarDot.
// Pass coplanarDot <= 0 to use [DefaultCoplanarDot].
func FromTriangles(vertices []mgl64.Vec3, tris []geom.Triangle, coplanarDot float64) []Edge {
	if coplanarDot <= 0 {
		coplanarDot = DefaultCoplanarDot
	}

	normals := make([]mgl64.Vec3, len(tris))
	degenerate := make([]bool, len(tris))
	for ti, tri := range tris {
		a, b, c := vertices[tri[0]], vertices[tri[1]], vertices[tri[2]]
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Len() <= 1e-12 {
			degenerate[ti] = true
			continue
		}
		normals[ti] = n.Normalize()
	}

	incident := make(map[Edge][]int)
	for ti, tri := range tris {
		for i := 0; i < 3; i++ {
			e := makeEdge(tri[i], tri[(i+1)%3])
			incident[e] = append(incident[e], ti)
		}
	}

	edges := make([]Edge, 0, len(incident))
	for e, faceIDs := range incident {
		if len(faceIDs) <= 1 {
			// Boundary/open edge (or degenerate mesh): keep.
			edges = append(edges, e)
			continue
		}

		n0 := normals[faceIDs[0]]
		keep := false
		for _, ti := range faceIDs[1:] {
			if degenerate[faceIDs[0]] || degenerate[ti] {
				keep = true
				break
			}
			// abs(dot) since winding may differ between neighbors.
			d := n0.Dot(normals[ti])
			if d < 0 {
				d = -d
			}
			if d < coplanarDot {
				keep = true
				break
			}
		}
		if keep {
			edges = append(edges, e)
		}
	}

	sortEdges(edges)
	return edges
}

// FromMesh extracts the wireframe of a mesh. Polygon meshes take the exact
// n-gon path; meshes that are entirely triangles go through diagonal
// suppression in case the triangles came from a triangulated polygon mesh.
func FromMesh(m geom.Mesh, coplanarDot float64) []Edge {
	allTris := true
	for _, face := range m.Faces {
		if len(face) != 3 {
			allTris = false
			break
		}
	}
	if !allTris {
		return FromPolygons(m.Faces)
	}
	tris := make([]geom.Triangle, len(m.Faces))
	for i, face := range m.Faces {
		tris[i] = geom.Triangle{face[0], face[1], face[2]}
	}
	return FromTriangles(m.Vertices, tris, coplanarDot)
}
