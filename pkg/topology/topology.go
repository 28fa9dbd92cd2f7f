// Package topology builds the canonical convex polyhedra used as boundary
// solids: icosahedron, icosphere, tetrahedron, cube, octahedron and
// dodecahedron.
//
// Every builder returns a [geom.Mesh] centered at the origin with all
// vertices at the requested circumradius and outward-wound faces. Builders
// are pure functions: callers that build the same shape repeatedly are
// expected to memoize results themselves (the pipeline caches by
// shape/radius/subdivisions key).
package topology

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mwolters/polymark/pkg/errors"
	"github.com/mwolters/polymark/pkg/geom"
)

// Shape identifies a supported boundary solid.
type Shape string

const (
	ShapeIcosahedron  Shape = "icosahedron"
	ShapeIcosphere    Shape = "icosphere"
	ShapeTetrahedron  Shape = "tetrahedron"
	ShapeCube         Shape = "cube"
	ShapeOctahedron   Shape = "octahedron"
	ShapeDodecahedron Shape = "dodecahedron"
)

// Shapes lists all supported shapes in a stable order.
func Shapes() []Shape {
	return []Shape{
		ShapeIcosahedron,
		ShapeIcosphere,
		ShapeTetrahedron,
		ShapeCube,
		ShapeOctahedron,
		ShapeDodecahedron,
	}
}

// ParseShape converts a manifest string into a Shape.
func ParseShape(s string) (Shape, error) {
	sh := Shape(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Shapes() {
		if sh == known {
			return sh, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidShape, "unknown shape type: %q", s)
}

// Build constructs the mesh for a shape at the given circumradius.
// Subdivisions only affects the icosphere; see [Icosphere] for its
// off-by-one convention.
func Build(shape Shape, radius float64, subdivisions int) (geom.Mesh, error) {
	if radius <= 0 {
		return geom.Mesh{}, errors.New(errors.ErrCodeInvalidShape, "radius must be positive, got %g", radius)
	}
	switch shape {
	case ShapeIcosahedron:
		return Icosahedron(radius), nil
	case ShapeIcosphere:
		return Icosphere(radius, subdivisions), nil
	case ShapeTetrahedron:
		return Tetrahedron(radius), nil
	case ShapeCube:
		return Cube(radius), nil
	case ShapeOctahedron:
		return Octahedron(radius), nil
	case ShapeDodecahedron:
		return Dodecahedron(radius), nil
	}
	return geom.Mesh{}, errors.New(errors.ErrCodeInvalidShape, "unknown shape type: %q", shape)
}

// Icosahedron returns the regular icosahedron: 12 vertices, 20 triangles.
func Icosahedron(radius float64) geom.Mesh {
	phi := (1.0 + math.Sqrt(5.0)) / 2.0
	verts := []mgl64.Vec3{
		{-1, phi, 0},
		{1, phi, 0},
		{-1, -phi, 0},
		{1, -phi, 0},
		{0, -1, phi},
		{0, 1, phi},
		{0, -1, -phi},
		{0, 1, -phi},
		{phi, 0, -1},
		{phi, 0, 1},
		{-phi, 0, -1},
		{-phi, 0, 1},
	}
	faces := [][]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}
	return geom.Mesh{Vertices: geom.ScaleToRadius(verts, radius), Faces: faces}
}

// Tetrahedron returns the regular tetrahedron: 4 vertices, 4 triangles.
func Tetrahedron(radius float64) geom.Mesh {
	verts := []mgl64.Vec3{
		{1, 1, 1},
		{-1, -1, 1},
		{-1, 1, -1},
		{1, -1, -1},
	}
	faces := [][]int{
		{0, 1, 2},
		{0, 3, 1},
		{0, 2, 3},
		{1, 3, 2},
	}
	return geom.Mesh{Vertices: geom.ScaleToRadius(verts, radius), Faces: faces}
}

// Cube returns the cube with quad faces: 8 vertices, 6 quads.
// Faces stay quads so the wireframe carries no triangulation diagonals.
func Cube(radius float64) geom.Mesh {
	verts := []mgl64.Vec3{
		{-1, -1, -1},
		{1, -1, -1},
		{1, 1, -1},
		{-1, 1, -1},
		{-1, -1, 1},
		{1, -1, 1},
		{1, 1, 1},
		{-1, 1, 1},
	}
	faces := [][]int{
		{0, 3, 2, 1}, // bottom (-Z)
		{4, 5, 6, 7}, // top (+Z)
		{0, 1, 5, 4}, // -Y
		{3, 7, 6, 2}, // +Y
		{1, 2, 6, 5}, // +X
		{0, 4, 7, 3}, // -X
	}
	return geom.Mesh{Vertices: geom.ScaleToRadius(verts, radius), Faces: faces}
}

// Octahedron returns the regular octahedron: 6 vertices, 8 triangles.
func Octahedron(radius float64) geom.Mesh {
	verts := []mgl64.Vec3{
		{1, 0, 0},
		{-1, 0, 0},
		{0, 1, 0},
		{0, -1, 0},
		{0, 0, 1},
		{0, 0, -1},
	}
	faces := [][]int{
		{0, 2, 4}, {2, 1, 4}, {1, 3, 4}, {3, 0, 4},
		{2, 0, 5}, {1, 2, 5}, {3, 1, 5}, {0, 3, 5},
	}
	return geom.Mesh{Vertices: geom.ScaleToRadius(verts, radius), Faces: faces}
}
