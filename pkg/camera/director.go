package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mwolters/polymark/pkg/geom"
	"github.com/mwolters/polymark/pkg/wireframe"
)

// DirectorOptions tune the automatic camera direction search. Zero values
// take the defaults below; the weights are configuration, not invariants.
type DirectorOptions struct {
	// Samples is the number of Fibonacci-sphere candidate directions.
	Samples int
	// FrontBias rewards directions facing the scene from the front (-Y).
	FrontBias float64
	// AboveBias rewards directions looking down from above (+Z).
	AboveBias float64
	// SeparationBias rewards directions under which the projected
	// vertices stay far apart (reduces visual vertex overlap).
	SeparationBias float64
}

func (o DirectorOptions) withDefaults() DirectorOptions {
	if o.Samples <= 0 {
		o.Samples = 60
	}
	if o.FrontBias == 0 {
		o.FrontBias = 0.15
	}
	if o.AboveBias == 0 {
		o.AboveBias = 0.10
	}
	if o.SeparationBias == 0 {
		o.SeparationBias = 0.20
	}
	return o
}

// AutoDirection picks a unit view direction for a boundary mesh that
// avoids the solid's symmetry axes. Aligning the camera with a vertex
// direction, face normal or edge-midpoint direction produces a degenerate
// silhouette (a face seen edge-on, overlapping vertices), so candidates
// are scored by their minimum angle to all such axes, plus soft
// front-and-above framing preferences and a projected vertex-separation
// term.
//
// The candidate set is deterministic: a Fibonacci-sphere distribution plus
// a few known-good defaults. Identical meshes always produce identical
// directions.
func AutoDirection(m geom.Mesh, opts DirectorOptions) mgl64.Vec3 {
	o := opts.withDefaults()
	axes := symmetryAxes(m)

	radius := 1.0
	for _, v := range m.Vertices {
		radius = math.Max(radius, v.Len())
	}

	best := geom.SafeNormalize(mgl64.Vec3{0.37, -0.81, 0.45}, mgl64.Vec3{0, -1, 0})
	bestScore := math.Inf(-1)

	for _, d := range candidateDirections(o.Samples) {
		minAng := math.Pi
		for _, a := range axes {
			c := math.Abs(d.Dot(a))
			if c > 1 {
				c = 1
			}
			minAng = math.Min(minAng, math.Acos(c))
		}

		score := minAng + o.FrontBias*(-d.Y()) + o.AboveBias*d.Z()
		score += o.SeparationBias * minProjectedSeparation(m.Vertices, d) / radius

		if score > bestScore {
			bestScore = score
			best = d
		}
	}
	return best
}

// AutoPosition places the camera at the auto direction, the given distance
// from the look-at target.
func AutoPosition(m geom.Mesh, target mgl64.Vec3, distance float64, opts DirectorOptions) mgl64.Vec3 {
	return target.Add(AutoDirection(m, opts).Mul(distance))
}

// symmetryAxes collects the unit directions a camera must avoid aligning
// with: vertex directions, face normals, and edge-midpoint directions,
// all measured from the polyhedron center.
func symmetryAxes(m geom.Mesh) []mgl64.Vec3 {
	axes := make([]mgl64.Vec3, 0, 2*len(m.Vertices)+len(m.Faces))
	for _, v := range m.Vertices {
		if v.Len() > geom.Epsilon {
			axes = append(axes, v.Normalize())
		}
	}
	for fi := range m.Faces {
		c := m.FaceCenter(fi)
		if c.Len() > geom.Epsilon {
			axes = append(axes, c.Normalize())
		}
	}
	for _, e := range wireframe.FromMesh(m, 0) {
		mid := m.Vertices[e.I].Add(m.Vertices[e.J]).Mul(0.5)
		if mid.Len() > geom.Epsilon {
			axes = append(axes, mid.Normalize())
		}
	}
	return axes
}

// candidateDirections returns the fixed defaults followed by a Fibonacci
// sphere restricted to the useful elevation band (slightly below the
// horizon up to steeply above).
func candidateDirections(samples int) []mgl64.Vec3 {
	dirs := []mgl64.Vec3{
		geom.SafeNormalize(mgl64.Vec3{0.37, -0.81, 0.45}, mgl64.Vec3{0, -1, 0}),
		geom.SafeNormalize(mgl64.Vec3{-0.52, -0.73, 0.44}, mgl64.Vec3{0, -1, 0}),
		geom.SafeNormalize(mgl64.Vec3{0.61, -0.55, 0.57}, mgl64.Vec3{0, -1, 0}),
	}

	golden := math.Pi * (3 - math.Sqrt(5))
	for i := 0; i < samples; i++ {
		z := -0.7 + 1.6*(float64(i)+0.5)/float64(samples)
		r := math.Sqrt(math.Max(0, 1-z*z))
		theta := golden * float64(i)
		dirs = append(dirs, mgl64.Vec3{r * math.Cos(theta), r * math.Sin(theta), z})
	}
	return dirs
}

// minProjectedSeparation returns the minimum pairwise distance between the
// vertices projected onto the plane perpendicular to dir. Boundary solids
// are small (tens to low hundreds of vertices), so the quadratic pass is
// cheap.
func minProjectedSeparation(verts []mgl64.Vec3, dir mgl64.Vec3) float64 {
	if len(verts) < 2 {
		return 0
	}
	proj := make([]mgl64.Vec3, len(verts))
	for i, v := range verts {
		proj[i] = v.Sub(dir.Mul(v.Dot(dir)))
	}
	minSep := math.Inf(1)
	for i := 0; i < len(proj); i++ {
		for j := i + 1; j < len(proj); j++ {
			minSep = math.Min(minSep, proj[i].Sub(proj[j]).Len())
		}
	}
	return minSep
}
