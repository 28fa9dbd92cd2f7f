package topology

import (
	"cmp"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mwolters/polymark/pkg/geom"
)

// Dodecahedron returns the regular dodecahedron constructed as the dual of
// the icosahedron: one vertex per icosahedron face (its normalized
// centroid), one pentagonal face per icosahedron vertex (the five dual
// vertices of its incident faces). Result: 20 vertices, 12 pentagons,
// every vertex incident to exactly 3 faces.
func Dodecahedron(radius float64) geom.Mesh {
	ico := Icosahedron(1.0)

	// Dual vertices: normalized icosahedron face centers.
	dverts := make([]mgl64.Vec3, len(ico.Faces))
	for fi := range ico.Faces {
		c := ico.FaceCenter(fi)
		dverts[fi] = geom.SafeNormalize(c, c)
	}

	// Incident faces per icosahedron vertex; each set of five becomes a
	// pentagon of the dual.
	incident := make([][]int, len(ico.Vertices))
	for fi, face := range ico.Faces {
		for _, vi := range face {
			incident[vi] = append(incident[vi], fi)
		}
	}

	faces := make([][]int, 0, len(ico.Vertices))
	for vi, faceIDs := range incident {
		if len(faceIDs) != 5 {
			continue
		}

		// Sort the five dual vertices by angle around the icosahedron
		// vertex direction so the pentagon is wound consistently.
		axis := geom.SafeNormalize(ico.Vertices[vi], mgl64.Vec3{0, 0, 1})
		u, v := planeBasis(axis)

		type angled struct {
			ang float64
			idx int
		}
		ring := make([]angled, 0, 5)
		for _, fi := range faceIDs {
			dv := dverts[fi]
			proj := dv.Sub(axis.Mul(dv.Dot(axis)))
			proj = geom.SafeNormalize(proj, proj)
			ring = append(ring, angled{math.Atan2(proj.Dot(v), proj.Dot(u)), fi})
		}
		slices.SortFunc(ring, func(a, b angled) int {
			return cmp.Compare(a.ang, b.ang)
		})

		pent := make([]int, 5)
		for i, a := range ring {
			pent[i] = a.idx
		}

		// Flip winding if the face normal ended up pointing inward.
		v0, v1, v2 := dverts[pent[0]], dverts[pent[1]], dverts[pent[2]]
		n := v1.Sub(v0).Cross(v2.Sub(v0))
		n = geom.SafeNormalize(n, n)
		if n.Dot(axis) < 0 {
			for i, j := 0, len(pent)-1; i < j; i, j = i+1, j-1 {
				pent[i], pent[j] = pent[j], pent[i]
			}
		}

		faces = append(faces, pent)
	}

	for i, v := range dverts {
		dverts[i] = geom.SafeNormalize(v, v).Mul(radius)
	}
	return geom.Mesh{Vertices: dverts, Faces: faces}
}

// planeBasis builds a stable orthonormal {u,v} pair spanning the plane
// perpendicular to axis, derived from a non-parallel reference vector.
func planeBasis(axis mgl64.Vec3) (u, v mgl64.Vec3) {
	ref := mgl64.Vec3{1, 0, 0}
	if math.Abs(axis.X()) >= 0.9 {
		ref = mgl64.Vec3{0, 1, 0}
	}
	u = ref.Sub(axis.Mul(ref.Dot(axis)))
	if u.Len() < geom.Epsilon {
		u = mgl64.Vec3{0, 0, 1}.Sub(axis.Mul(axis.Z()))
	}
	u = geom.SafeNormalize(u, mgl64.Vec3{1, 0, 0})
	v = geom.SafeNormalize(axis.Cross(u), mgl64.Vec3{0, 1, 0})
	return u, v
}
