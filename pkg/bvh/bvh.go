// Package bvh provides a bounding-volume hierarchy over a triangulated
// solid and the camera visibility test built on it.
//
// A [Tree] is built once per boundary and is read-only afterward, so a
// single tree can serve every placement query of a build, and concurrent
// builds each own their own tree. Only self-occlusion against one convex
// solid matters here; there is no whole-scene ray tracing.
package bvh

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mwolters/polymark/pkg/geom"
)

const (
	leafSize   = 4
	rayEpsilon = 1e-12
)

// Hit describes the nearest ray-surface intersection.
type Hit struct {
	Point    mgl64.Vec3
	Distance float64
	Triangle int
}

type node struct {
	min, max mgl64.Vec3
	// Leaf nodes hold a triangle range [start, start+count); interior
	// nodes hold child indices and count == 0.
	left, right int
	start       int
	count       int
}

// Tree is an axis-aligned BVH over a triangle soup.
type Tree struct {
	vertices []mgl64.Vec3
	tris     []geom.Triangle
	order    []int // triangle indices, permuted during construction
	nodes    []node
}

// NewFromMesh triangulates the mesh and builds a tree over it.
func NewFromMesh(m geom.Mesh) *Tree {
	return New(m.Vertices, m.Triangulate())
}

// New builds a median-split tree over the given triangles.
func New(vertices []mgl64.Vec3, tris []geom.Triangle) *Tree {
	t := &Tree{
		vertices: vertices,
		tris:     tris,
		order:    make([]int, len(tris)),
	}
	for i := range t.order {
		t.order[i] = i
	}
	if len(tris) > 0 {
		t.build(0, len(tris))
	}
	return t
}

func (t *Tree) triBounds(ti int) (min, max mgl64.Vec3) {
	tri := t.tris[ti]
	min = t.vertices[tri[0]]
	max = min
	for _, vi := range tri[1:] {
		v := t.vertices[vi]
		for a := 0; a < 3; a++ {
			min[a] = math.Min(min[a], v[a])
			max[a] = math.Max(max[a], v[a])
		}
	}
	return min, max
}

func (t *Tree) centroid(ti int) mgl64.Vec3 {
	tri := t.tris[ti]
	return t.vertices[tri[0]].Add(t.vertices[tri[1]]).Add(t.vertices[tri[2]]).Mul(1.0 / 3.0)
}

// build creates a node over order[start:end] and returns its index.
func (t *Tree) build(start, end int) int {
	n := node{start: start, count: end - start}
	n.min, n.max = t.triBounds(t.order[start])
	for i := start + 1; i < end; i++ {
		bmin, bmax := t.triBounds(t.order[i])
		for a := 0; a < 3; a++ {
			n.min[a] = math.Min(n.min[a], bmin[a])
			n.max[a] = math.Max(n.max[a], bmax[a])
		}
	}

	if n.count <= leafSize {
		t.nodes = append(t.nodes, n)
		return len(t.nodes) - 1
	}

	// Split at the centroid median along the widest axis.
	axis := 0
	ext := n.max.Sub(n.min)
	if ext[1] > ext[axis] {
		axis = 1
	}
	if ext[2] > ext[axis] {
		axis = 2
	}

	mid := (start + end) / 2
	quickselect(t.order[start:end], mid-start, func(a, b int) bool {
		return t.centroid(a)[axis] < t.centroid(b)[axis]
	})

	idx := len(t.nodes)
	t.nodes = append(t.nodes, node{})
	left := t.build(start, mid)
	right := t.build(mid, end)
	n.count = 0
	n.left, n.right = left, right
	t.nodes[idx] = n
	return idx
}

// quickselect partially sorts s so s[k] is the k-th element by less.
func quickselect(s []int, k int, less func(a, b int) bool) {
	lo, hi := 0, len(s)-1
	for lo < hi {
		pivot := s[(lo+hi)/2]
		i, j := lo, hi
		for i <= j {
			for less(s[i], pivot) {
				i++
			}
			for less(pivot, s[j]) {
				j--
			}
			if i <= j {
				s[i], s[j] = s[j], s[i]
				i++
				j--
			}
		}
		if k <= j {
			hi = j
		} else if k >= i {
			lo = i
		} else {
			return
		}
	}
}

// RayCast returns the nearest intersection of the ray origin+s*dir with
// the surface, for s in (0, maxDist]. dir must be unit length. Pass
// maxDist <= 0 for an unbounded ray.
func (t *Tree) RayCast(origin, dir mgl64.Vec3, maxDist float64) (Hit, bool) {
	if len(t.nodes) == 0 {
		return Hit{}, false
	}
	if maxDist <= 0 {
		maxDist = math.Inf(1)
	}

	invDir := mgl64.Vec3{}
	for a := 0; a < 3; a++ {
		if math.Abs(dir[a]) > rayEpsilon {
			invDir[a] = 1.0 / dir[a]
		} else {
			invDir[a] = math.Inf(1)
			if math.Signbit(dir[a]) {
				invDir[a] = math.Inf(-1)
			}
		}
	}

	best := Hit{Distance: maxDist}
	found := false

	stack := make([]int, 0, 64)
	stack = append(stack, 0)
	for len(stack) > 0 {
		ni := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nd := &t.nodes[ni]

		if !slabHit(nd.min, nd.max, origin, invDir, best.Distance) {
			continue
		}

		if nd.count > 0 {
			for i := nd.start; i < nd.start+nd.count; i++ {
				ti := t.order[i]
				if dist, ok := t.intersectTriangle(ti, origin, dir, best.Distance); ok {
					best = Hit{
						Point:    origin.Add(dir.Mul(dist)),
						Distance: dist,
						Triangle: ti,
					}
					found = true
				}
			}
			continue
		}
		stack = append(stack, nd.left, nd.right)
	}

	if !found {
		return Hit{}, false
	}
	return best, true
}

// slabHit tests the ray against an AABB using the slab method.
func slabHit(min, max, origin, invDir mgl64.Vec3, tMax float64) bool {
	tNear, tFar := 0.0, tMax
	for a := 0; a < 3; a++ {
		t0 := (min[a] - origin[a]) * invDir[a]
		t1 := (max[a] - origin[a]) * invDir[a]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tNear = math.Max(tNear, t0)
		tFar = math.Min(tFar, t1)
		if tNear > tFar {
			return false
		}
	}
	return true
}

// intersectTriangle runs Möller–Trumbore against triangle ti and reports
// the hit distance if it beats tMax.
func (t *Tree) intersectTriangle(ti int, origin, dir mgl64.Vec3, tMax float64) (float64, bool) {
	tri := t.tris[ti]
	v0 := t.vertices[tri[0]]
	e1 := t.vertices[tri[1]].Sub(v0)
	e2 := t.vertices[tri[2]].Sub(v0)

	p := dir.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < rayEpsilon {
		return 0, false
	}
	inv := 1.0 / det

	s := origin.Sub(v0)
	u := s.Dot(p) * inv
	if u < -rayEpsilon || u > 1+rayEpsilon {
		return 0, false
	}

	q := s.Cross(e1)
	v := dir.Dot(q) * inv
	if v < -rayEpsilon || u+v > 1+rayEpsilon {
		return 0, false
	}

	dist := e2.Dot(q) * inv
	if dist <= rayEpsilon || dist > tMax {
		return 0, false
	}
	return dist, true
}

// Visible reports whether a world point on (or near) the solid's surface
// is visible from the camera origin: the ray from the camera toward the
// point must first hit the surface within eps of the point itself. A ray
// that misses entirely reports not visible, matching the semantics of a
// point that is not on the solid.
func (t *Tree) Visible(cameraOrigin, point mgl64.Vec3, eps float64) bool {
	dir := point.Sub(cameraOrigin)
	dist := dir.Len()
	if dist < geom.Epsilon {
		return false
	}
	dir = dir.Mul(1.0 / dist)

	hit, ok := t.RayCast(cameraOrigin, dir, dist+eps)
	if !ok {
		return false
	}
	return hit.Point.Sub(point).Len() <= eps
}
