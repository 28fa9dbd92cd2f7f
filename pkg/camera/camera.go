// Package camera models the single scene camera: pinhole projection to
// normalized device coordinates and pixels, the solid's projected
// silhouette bounding box, the outside-distance legibility metric, and the
// automatic symmetry-avoiding camera direction used when a manifest gives
// no explicit pose.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mwolters/polymark/pkg/geom"
)

// Defaults for camera fields left zero. Lens and sensor follow the usual
// full-frame convention (50mm lens, 36mm sensor).
const (
	DefaultLensMM   = 50.0
	DefaultSensorMM = 36.0

	// DefaultOrthoScale is the world-space width of an orthographic frame
	// when none is given.
	DefaultOrthoScale = 7.0
)

// Camera is an immutable camera description. Orientation comes from the
// look-at target unless Rotation is set, in which case the camera looks
// along its local -Z with +Y up, rotated by the quaternion.
type Camera struct {
	Position mgl64.Vec3
	Target   mgl64.Vec3
	Up       mgl64.Vec3 // zero value means world +Z
	Rotation *mgl64.Quat

	LensMM   float64
	SensorMM float64

	// Ortho switches to an orthographic projection; OrthoScale is the
	// world-space width of the frame (lens and sensor are ignored).
	Ortho      bool
	OrthoScale float64

	Width  int
	Height int
}

// NDC is a point in normalized device coordinates: X and Y in [0,1] when
// inside the frame, Z the distance along the view direction (negative
// behind the camera).
type NDC struct {
	X, Y, Z float64
}

// InFrame reports whether the point lies inside the camera frame and in
// front of the camera.
func (n NDC) InFrame() bool {
	return n.X >= 0 && n.X <= 1 && n.Y >= 0 && n.Y <= 1 && n.Z >= 0
}

// Basis returns the camera's right/up/forward unit vectors in world space.
func (c Camera) Basis() (right, up, forward mgl64.Vec3) {
	if c.Rotation != nil {
		q := *c.Rotation
		right = q.Rotate(mgl64.Vec3{1, 0, 0})
		up = q.Rotate(mgl64.Vec3{0, 1, 0})
		forward = q.Rotate(mgl64.Vec3{0, 0, -1})
		return right, up, forward
	}

	worldUp := c.Up
	if worldUp.Len() < geom.Epsilon {
		worldUp = mgl64.Vec3{0, 0, 1}
	}
	forward = geom.SafeNormalize(c.Target.Sub(c.Position), mgl64.Vec3{0, 1, 0})
	right = forward.Cross(worldUp)
	if right.Len() < geom.Epsilon {
		// Looking straight along the up axis; pick any horizontal right.
		right = mgl64.Vec3{1, 0, 0}
	}
	right = geom.SafeNormalize(right, mgl64.Vec3{1, 0, 0})
	up = right.Cross(forward)
	return right, up, forward
}

// tanHalf returns the half-angle tangents of the horizontal and vertical
// fields of view. The sensor spans the larger frame dimension, so square
// and landscape frames put the full sensor width behind the lens.
func (c Camera) tanHalf() (tx, ty float64) {
	lens := c.LensMM
	if lens <= 0 {
		lens = DefaultLensMM
	}
	sensor := c.SensorMM
	if sensor <= 0 {
		sensor = DefaultSensorMM
	}
	t := sensor / (2 * lens)

	w, h := float64(c.Width), float64(c.Height)
	if w <= 0 || h <= 0 {
		return t, t
	}
	if w >= h {
		return t, t * h / w
	}
	return t * w / h, t
}

// orthoSpan returns the world-space extent of the orthographic frame
// along each axis, following the same larger-dimension convention as
// tanHalf.
func (c Camera) orthoSpan() (sx, sy float64) {
	s := c.OrthoScale
	if s <= 0 {
		s = DefaultOrthoScale
	}
	w, h := float64(c.Width), float64(c.Height)
	if w <= 0 || h <= 0 {
		return s, s
	}
	if w >= h {
		return s, s * h / w
	}
	return s * w / h, s
}

// ToNDC projects a world point into normalized device coordinates.
func (c Camera) ToNDC(p mgl64.Vec3) NDC {
	right, up, forward := c.Basis()
	rel := p.Sub(c.Position)
	x := rel.Dot(right)
	y := rel.Dot(up)
	z := rel.Dot(forward)

	if c.Ortho {
		sx, sy := c.orthoSpan()
		return NDC{X: 0.5 + x/sx, Y: 0.5 + y/sy, Z: z}
	}

	if math.Abs(z) < geom.Epsilon {
		// On the camera plane: no stable projection, far outside frame.
		return NDC{X: math.Inf(1), Y: math.Inf(1), Z: z}
	}

	tx, ty := c.tanHalf()
	return NDC{
		X: 0.5 + x/(2*z*tx),
		Y: 0.5 + y/(2*z*ty),
		Z: z,
	}
}

// NDCToPx scales NDC into pixel coordinates for the camera's resolution.
func (c Camera) NDCToPx(n NDC) mgl64.Vec2 {
	return mgl64.Vec2{n.X * float64(c.Width), n.Y * float64(c.Height)}
}

// ProjectPx is ToNDC followed by NDCToPx.
func (c Camera) ProjectPx(p mgl64.Vec3) (mgl64.Vec2, NDC) {
	n := c.ToNDC(p)
	return c.NDCToPx(n), n
}

// BBox is an axis-aligned pixel-space rectangle.
type BBox struct {
	MinX, MaxX, MinY, MaxY float64
}

// Expand grows the box by margin on every side.
func (b BBox) Expand(margin float64) BBox {
	return BBox{b.MinX - margin, b.MaxX + margin, b.MinY - margin, b.MaxY + margin}
}

// SilhouetteBBox projects every point and returns the axis-aligned
// pixel-space bounds, skipping points behind the camera. This is the
// solid's 2D footprint in the final image; an empty input (or one fully
// behind the camera) yields the zero box.
func (c Camera) SilhouetteBBox(points []mgl64.Vec3) BBox {
	var box BBox
	first := true
	for _, p := range points {
		n := c.ToNDC(p)
		if n.Z < 0 {
			continue
		}
		px := c.NDCToPx(n)
		if first {
			box = BBox{px.X(), px.X(), px.Y(), px.Y()}
			first = false
			continue
		}
		box.MinX = math.Min(box.MinX, px.X())
		box.MaxX = math.Max(box.MaxX, px.X())
		box.MinY = math.Min(box.MinY, px.Y())
		box.MaxY = math.Max(box.MaxY, px.Y())
	}
	return box
}

// OutsideDistance is the legibility metric for callout tips: the Euclidean
// pixel distance from p to the nearest edge of the box when p is outside,
// or the negated depth inside the box when p is inside (more negative the
// deeper it sits). Callout tips should land clearly outside the solid's
// silhouette box.
func OutsideDistance(p mgl64.Vec2, b BBox) float64 {
	var dx, dy float64
	switch {
	case p.X() < b.MinX:
		dx = b.MinX - p.X()
	case p.X() > b.MaxX:
		dx = p.X() - b.MaxX
	}
	switch {
	case p.Y() < b.MinY:
		dy = b.MinY - p.Y()
	case p.Y() > b.MaxY:
		dy = p.Y() - b.MaxY
	}

	if dx == 0 && dy == 0 {
		din := math.Min(
			math.Min(p.X()-b.MinX, b.MaxX-p.X()),
			math.Min(p.Y()-b.MinY, b.MaxY-p.Y()),
		)
		return -din
	}
	return math.Hypot(dx, dy)
}
