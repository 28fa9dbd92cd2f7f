package topology

import (
	"github.com/mwolters/polymark/pkg/geom"
)

// Icosphere subdivides an icosahedron toward a sphere.
//
// The subdivisions parameter follows the manifest convention inherited from
// the original tooling and is off by one from the number of subdivision
// rounds actually performed: subdivisions=1 (or less) is the plain
// icosahedron, subdivisions=2 runs one round, and so on. Each round splits
// every triangle into four, so the result has 20*4^(subdivisions-1) faces.
func Icosphere(radius float64, subdivisions int) geom.Mesh {
	mesh := Icosahedron(radius)
	rounds := subdivisions - 1
	if rounds < 0 {
		rounds = 0
	}

	verts := mesh.Vertices
	faces := mesh.Faces

	for r := 0; r < rounds; r++ {
		// Midpoints are deduplicated per round, keyed by the unordered
		// vertex index pair, so the two triangles sharing an edge produce
		// one new vertex rather than two.
		type edgeKey struct{ a, b int }
		midCache := make(map[edgeKey]int, len(faces)*3/2)

		mid := func(i, j int) int {
			key := edgeKey{i, j}
			if j < i {
				key = edgeKey{j, i}
			}
			if idx, ok := midCache[key]; ok {
				return idx
			}
			v := verts[i].Add(verts[j]).Mul(0.5)
			if v.Len() > geom.Epsilon {
				v = v.Normalize().Mul(radius)
			}
			// Near-zero midpoints (antipodal vertices) keep the raw
			// average rather than producing NaN; they cannot occur on
			// icosahedron edges but the guard costs nothing.
			verts = append(verts, v)
			idx := len(verts) - 1
			midCache[key] = idx
			return idx
		}

		next := make([][]int, 0, len(faces)*4)
		for _, f := range faces {
			a, b, c := f[0], f[1], f[2]
			ab := mid(a, b)
			bc := mid(b, c)
			ca := mid(c, a)
			next = append(next,
				[]int{a, ab, ca},
				[]int{b, bc, ab},
				[]int{c, ca, bc},
				[]int{ab, bc, ca},
			)
		}
		faces = next
	}

	return geom.Mesh{Vertices: verts, Faces: faces}
}
