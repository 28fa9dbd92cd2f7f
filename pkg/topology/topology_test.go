package topology

import (
	"math"
	"testing"
)

func TestVerticesOnCircumradius(t *testing.T) {
	tests := []struct {
		name      string
		shape     Shape
		radius    float64
		wantVerts int
		wantFaces int
	}{
		{"icosahedron", ShapeIcosahedron, 1.0, 12, 20},
		{"icosahedron scaled", ShapeIcosahedron, 2.5, 12, 20},
		{"tetrahedron", ShapeTetrahedron, 1.0, 4, 4},
		{"cube", ShapeCube, 0.75, 8, 6},
		{"octahedron", ShapeOctahedron, 3.0, 6, 8},
		{"dodecahedron", ShapeDodecahedron, 1.25, 20, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mesh, err := Build(tt.shape, tt.radius, 0)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if got := len(mesh.Vertices); got != tt.wantVerts {
				t.Errorf("vertices = %d, want %d", got, tt.wantVerts)
			}
			if got := len(mesh.Faces); got != tt.wantFaces {
				t.Errorf("faces = %d, want %d", got, tt.wantFaces)
			}
			for i, v := range mesh.Vertices {
				if d := math.Abs(v.Len() - tt.radius); d > 1e-9 {
					t.Errorf("vertex %d at distance %g, want %g", i, v.Len(), tt.radius)
				}
			}
		})
	}
}

func TestBuildRejectsBadInput(t *testing.T) {
	if _, err := Build(ShapeCube, 0, 0); err == nil {
		t.Error("Build() with radius 0 should fail")
	}
	if _, err := Build(ShapeCube, -1, 0); err == nil {
		t.Error("Build() with negative radius should fail")
	}
	if _, err := Build(Shape("teapot"), 1, 0); err == nil {
		t.Error("Build() with unknown shape should fail")
	}
}

func TestParseShape(t *testing.T) {
	if sh, err := ParseShape("  Icosphere "); err != nil || sh != ShapeIcosphere {
		t.Errorf("ParseShape = %v, %v", sh, err)
	}
	if _, err := ParseShape("klein-bottle"); err == nil {
		t.Error("ParseShape should reject unknown shapes")
	}
}

func TestIcosphereSubdivisionCounts(t *testing.T) {
	tests := []struct {
		subdivisions int
		wantVerts    int
		wantFaces    int
	}{
		// subdivisions=1 is the plain icosahedron by convention;
		// values below 1 clamp to it.
		{0, 12, 20},
		{1, 12, 20},
		{2, 42, 80},
		{3, 162, 320},
	}

	for _, tt := range tests {
		mesh := Icosphere(1.0, tt.subdivisions)
		if got := len(mesh.Faces); got != tt.wantFaces {
			t.Errorf("Icosphere(1, %d) faces = %d, want %d", tt.subdivisions, got, tt.wantFaces)
		}
		if got := len(mesh.Vertices); got != tt.wantVerts {
			t.Errorf("Icosphere(1, %d) vertices = %d, want %d", tt.subdivisions, got, tt.wantVerts)
		}
	}
}

func TestIcosphereVerticesOnSphere(t *testing.T) {
	const radius = 2.0
	mesh := Icosphere(radius, 3)
	for i, v := range mesh.Vertices {
		if d := math.Abs(v.Len() - radius); d > 1e-9 {
			t.Fatalf("vertex %d at distance %g, want %g", i, v.Len(), radius)
		}
	}
}

func TestDodecahedronTopology(t *testing.T) {
	mesh := Dodecahedron(1.0)

	if len(mesh.Vertices) != 20 {
		t.Fatalf("vertices = %d, want 20", len(mesh.Vertices))
	}
	if len(mesh.Faces) != 12 {
		t.Fatalf("faces = %d, want 12", len(mesh.Faces))
	}

	incidence := make([]int, len(mesh.Vertices))
	for fi, face := range mesh.Faces {
		if len(face) != 5 {
			t.Errorf("face %d has %d vertices, want 5", fi, len(face))
		}
		for _, vi := range face {
			incidence[vi]++
		}
	}
	for vi, n := range incidence {
		if n != 3 {
			t.Errorf("vertex %d incident to %d faces, want 3", vi, n)
		}
	}
}

func TestDodecahedronFacesWoundOutward(t *testing.T) {
	mesh := Dodecahedron(1.0)
	for fi, face := range mesh.Faces {
		a, b, c := mesh.Vertices[face[0]], mesh.Vertices[face[1]], mesh.Vertices[face[2]]
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Dot(mesh.FaceCenter(fi)) <= 0 {
			t.Errorf("face %d wound inward", fi)
		}
	}
}

func TestMeshesValidate(t *testing.T) {
	for _, sh := range Shapes() {
		mesh, err := Build(sh, 1.0, 2)
		if err != nil {
			t.Fatalf("Build(%s) error = %v", sh, err)
		}
		if err := mesh.Validate(); err != nil {
			t.Errorf("Build(%s).Validate() = %v", sh, err)
		}
	}
}

func TestBuildersAreDeterministic(t *testing.T) {
	a := Dodecahedron(1.5)
	b := Dodecahedron(1.5)
	for i := range a.Vertices {
		if a.Vertices[i] != b.Vertices[i] {
			t.Fatalf("vertex %d differs between identical builds", i)
		}
	}
	for i := range a.Faces {
		for j := range a.Faces[i] {
			if a.Faces[i][j] != b.Faces[i][j] {
				t.Fatalf("face %d differs between identical builds", i)
			}
		}
	}
}
