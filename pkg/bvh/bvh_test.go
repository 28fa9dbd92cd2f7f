package bvh

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mwolters/polymark/pkg/topology"
)

func TestRayCastCube(t *testing.T) {
	cube := topology.Cube(math.Sqrt(3)) // half-extent 1 on every axis
	tree := NewFromMesh(cube)

	t.Run("hits front face", func(t *testing.T) {
		hit, ok := tree.RayCast(mgl64.Vec3{0, -5, 0}, mgl64.Vec3{0, 1, 0}, 0)
		if !ok {
			t.Fatal("expected a hit")
		}
		if math.Abs(hit.Distance-4.0) > 1e-9 {
			t.Errorf("Distance = %g, want 4", hit.Distance)
		}
		if math.Abs(hit.Point.Y()+1.0) > 1e-9 {
			t.Errorf("Point.Y = %g, want -1", hit.Point.Y())
		}
	})

	t.Run("misses to the side", func(t *testing.T) {
		if _, ok := tree.RayCast(mgl64.Vec3{5, -5, 0}, mgl64.Vec3{0, 1, 0}, 0); ok {
			t.Error("expected a miss")
		}
	})

	t.Run("respects max distance", func(t *testing.T) {
		if _, ok := tree.RayCast(mgl64.Vec3{0, -5, 0}, mgl64.Vec3{0, 1, 0}, 3.5); ok {
			t.Error("hit beyond maxDist should be ignored")
		}
	})

	t.Run("ray from inside exits", func(t *testing.T) {
		hit, ok := tree.RayCast(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0}, 0)
		if !ok {
			t.Fatal("expected a hit")
		}
		if math.Abs(hit.Distance-1.0) > 1e-9 {
			t.Errorf("Distance = %g, want 1", hit.Distance)
		}
	})
}

func TestRayCastNearestOfMany(t *testing.T) {
	// An icosphere has many candidate triangles along any ray through the
	// middle; the nearest surface must win.
	sphere := topology.Icosphere(1.0, 3)
	tree := NewFromMesh(sphere)

	hit, ok := tree.RayCast(mgl64.Vec3{0, -3, 0}, mgl64.Vec3{0, 1, 0}, 0)
	if !ok {
		t.Fatal("expected a hit")
	}
	// The surface lies slightly inside radius 1 between vertices.
	if hit.Distance < 1.9 || hit.Distance > 2.05 {
		t.Errorf("Distance = %g, want ~2", hit.Distance)
	}
}

func TestVisible(t *testing.T) {
	cube := topology.Cube(math.Sqrt(3))
	tree := NewFromMesh(cube)
	camera := mgl64.Vec3{0, -5, 0}

	t.Run("front face center visible", func(t *testing.T) {
		if !tree.Visible(camera, mgl64.Vec3{0, -1, 0}, 1e-3) {
			t.Error("front face center should be visible")
		}
	})

	t.Run("back face center occluded", func(t *testing.T) {
		if tree.Visible(camera, mgl64.Vec3{0, 1, 0}, 1e-3) {
			t.Error("back face center should be occluded by the front face")
		}
	})

	t.Run("point off the solid not visible", func(t *testing.T) {
		if tree.Visible(camera, mgl64.Vec3{0, 3, 0}, 1e-3) {
			t.Error("a point behind the solid is not on the surface")
		}
	})

	t.Run("front vertex visible with loose epsilon", func(t *testing.T) {
		// Vertex hits are numerically sensitive; the engine queries
		// them with a larger epsilon.
		if !tree.Visible(camera, mgl64.Vec3{-1, -1, -1}, 2e-2) {
			t.Error("front vertex should be visible")
		}
	})
}

func TestEmptyTree(t *testing.T) {
	tree := New(nil, nil)
	if _, ok := tree.RayCast(mgl64.Vec3{}, mgl64.Vec3{0, 0, 1}, 0); ok {
		t.Error("empty tree should never hit")
	}
}
