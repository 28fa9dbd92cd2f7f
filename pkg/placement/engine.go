package placement

import (
	"math"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/mwolters/polymark/pkg/bvh"
	"github.com/mwolters/polymark/pkg/camera"
	"github.com/mwolters/polymark/pkg/errors"
	"github.com/mwolters/polymark/pkg/geom"
)

// Config carries the per-boundary context an Engine needs beyond the mesh
// and camera.
type Config struct {
	// Center is the polyhedron center in world space (the point base
	// directions radiate from). The zero value is the origin, which is
	// correct for untransformed boundaries.
	Center mgl64.Vec3
	// VertexRadius is the rendered vertex marker radius; automatic base
	// offsets for vertex sites start just past it.
	VertexRadius float64
	// Logger receives placement warnings (e.g. stale explicit indices).
	// Nil disables them.
	Logger *log.Logger
}

// Engine runs placement searches against one boundary mesh under one
// camera. It is read-only after construction, so a single engine serves
// every label and port of a boundary; concurrent builds each own their
// own engine.
type Engine struct {
	mesh   geom.Mesh
	cam    camera.Camera
	center mgl64.Vec3
	tree   *bvh.Tree
	bbox   camera.BBox // raw silhouette, expanded per spec
	vrad   float64
	logger *log.Logger
}

// New validates the mesh, builds the visibility BVH, and projects the
// solid's silhouette once for all subsequent Place calls.
func New(m geom.Mesh, cam camera.Camera, cfg Config) (*Engine, error) {
	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeEmptyMesh, err, "placement engine requires a non-degenerate boundary mesh")
	}
	return &Engine{
		mesh:   m,
		cam:    cam,
		center: cfg.Center,
		tree:   bvh.NewFromMesh(m),
		bbox:   cam.SilhouetteBBox(m.Vertices),
		vrad:   cfg.VertexRadius,
		logger: cfg.Logger,
	}, nil
}

// candidate is one attach site with its world-space base and outward
// direction resolved.
type candidate struct {
	index int
	base  mgl64.Vec3
	dir   mgl64.Vec3 // outward unit direction, before any IN flip
}

// Place finds the best site and connector length for one callout. For
// vertex specs with automatic unique selection, used tracks vertices
// claimed by earlier ports on this boundary; the winning vertex is added
// before returning. The search never fails: an exhausted candidate set
// first retries with the base-visibility requirement relaxed, then falls
// back to the best candidate regardless of reuse, and finally to site 0
// at the minimum length.
func (e *Engine) Place(spec AttachSpec, used *UsedVertexSet) Placement {
	spec = spec.withDefaults()

	sites := e.siteCount(spec.Kind)
	if spec.Index >= sites {
		if e.logger != nil {
			e.logger.Warn("attach index out of range, using automatic placement",
				"name", spec.Name, "kind", spec.Kind, "index", spec.Index, "sites", sites)
		}
		spec.Index = AutoIndex
	}

	// Unique-vertex preference only steers automatic vertex selection;
	// explicit indices and label placements search unrestricted. The
	// winning vertex is still recorded either way.
	restrict := used
	if spec.Kind != SiteVertex || !spec.Auto.UniqueVertices || spec.Index >= 0 {
		restrict = nil
	}

	bestAny, bestUnused := e.search(spec, restrict, spec.Auto.RequireVisibleBase)

	best := bestUnused
	if best == nil && spec.Auto.RequireVisibleBase {
		// The strict pass found nothing placeable (or only already-used
		// vertices). Retry once without the occlusion test, which can be
		// overly strict under adverse camera framing.
		relAny, relUnused := e.search(spec, restrict, false)
		best = relUnused
		if best == nil {
			best = bestAny
		}
		if best == nil {
			best = relAny
		}
	}
	if best == nil {
		best = bestAny
	}
	if best == nil {
		p := e.absoluteFallback(spec)
		best = &p
	}

	if spec.Kind == SiteVertex && used != nil {
		used.Add(best.Index)
	}
	return *best
}

func (e *Engine) siteCount(kind SiteKind) int {
	if kind == SiteVertex {
		return len(e.mesh.Vertices)
	}
	return len(e.mesh.Faces)
}

// site resolves candidate i: the world base point and outward direction.
// ok is false for degenerate sites (base coincides with the center).
func (e *Engine) site(kind SiteKind, i int) (candidate, bool) {
	if kind == SiteVertex {
		base := e.mesh.Vertices[i]
		dir := base.Sub(e.center)
		if dir.Len() < geom.Epsilon {
			return candidate{}, false
		}
		return candidate{index: i, base: base, dir: dir.Normalize()}, true
	}

	// Face: outward plane normal, base = center projected onto the face
	// plane. The projection is stable for any convex n-gon where the
	// triangle centroid would bias toward one corner.
	n := e.faceNormal(i)
	if n.Len() < geom.Epsilon {
		return candidate{}, false
	}
	toFace := e.mesh.FaceCenter(i).Sub(e.center)
	if n.Dot(toFace) < 0 {
		n = n.Mul(-1)
	}
	dist := n.Dot(toFace)
	base := e.center.Add(n.Mul(dist))
	return candidate{index: i, base: base, dir: n}, true
}

// faceNormal returns the unit plane normal of face i without any
// orientation convention.
func (e *Engine) faceNormal(i int) mgl64.Vec3 {
	f := e.mesh.Faces[i]
	if len(f) < 3 {
		return mgl64.Vec3{}
	}
	a := e.mesh.Vertices[f[0]]
	b := e.mesh.Vertices[f[1]]
	c := e.mesh.Vertices[f[2]]
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Len() < geom.Epsilon {
		return mgl64.Vec3{}
	}
	return n.Normalize()
}

// baseOffset resolves the automatic connector start offset.
func (e *Engine) baseOffset(spec AttachSpec) float64 {
	if spec.BaseOffset > 0 {
		return spec.BaseOffset
	}
	if spec.Kind == SiteVertex {
		return math.Max(e.vrad*baseOffsetFactor, spec.CylinderRadius*baseOffsetFactor)
	}
	return spec.CylinderRadius * baseOffsetFactor
}

func (e *Engine) visibilityEps(kind SiteKind) float64 {
	if kind == SiteVertex {
		return vertexVisibilityEps
	}
	return faceVisibilityEps
}

// search scores every candidate site and length, returning the best
// placement overall and the best among vertices not in used. With no
// used set the two are identical.
func (e *Engine) search(spec AttachSpec, used *UsedVertexSet, requireVisibleBase bool) (bestAny, bestUnused *Placement) {
	offset := e.baseOffset(spec)
	eps := e.visibilityEps(spec.Kind)
	box := e.bbox.Expand(spec.Auto.BBoxMarginPx)

	centerPx, _ := e.cam.ProjectPx(e.center)

	w := math.Max(1, float64(e.cam.Width))
	h := math.Max(1, float64(e.cam.Height))
	mx := spec.Auto.TipMarginPx / w
	my := spec.Auto.TipMarginPx / h

	bestAnyScore := math.Inf(-1)
	bestUnusedScore := math.Inf(-1)

	for i := 0; i < e.siteCount(spec.Kind); i++ {
		if spec.Index >= 0 && i != spec.Index {
			continue
		}

		cand, ok := e.site(spec.Kind, i)
		if !ok {
			continue
		}

		baseNDC := e.cam.ToNDC(cand.base)
		if !baseNDC.InFrame() {
			continue
		}
		if requireVisibleBase && !e.tree.Visible(e.cam.Position, cand.base, eps) {
			continue
		}

		basePx := e.cam.NDCToPx(baseNDC)
		silhouette := basePx.Sub(centerPx).Len()

		dir := cand.dir
		if spec.Direction == DirectionIn {
			dir = dir.Mul(-1)
		}

		local, localScore := e.bestLength(spec, cand, dir, offset, box, basePx, silhouette, mx, my)
		if local == nil {
			continue
		}

		if localScore > bestAnyScore {
			bestAnyScore = localScore
			bestAny = local
		}
		if !used.Contains(i) && localScore > bestUnusedScore {
			bestUnusedScore = localScore
			bestUnused = local
		}
	}
	return bestAny, bestUnused
}

// bestLength evaluates the length policy for one site and returns the
// best-scoring placement, or nil when every length fails the tip
// constraints.
func (e *Engine) bestLength(spec AttachSpec, cand candidate, dir mgl64.Vec3, offset float64, box camera.BBox, basePx mgl64.Vec2, silhouette, mx, my float64) (*Placement, float64) {
	lengths := make([]float64, 0, spec.Auto.LengthSamples)
	if spec.Length > 0 {
		lengths = append(lengths, spec.Length)
	} else {
		n := spec.Auto.LengthSamples
		for s := 0; s < n; s++ {
			t := 0.0
			if n > 1 {
				t = float64(s) / float64(n-1)
			}
			lengths = append(lengths, spec.LengthMin+t*(spec.LengthMax-spec.LengthMin))
		}
	}

	var best *Placement
	bestScore := math.Inf(-1)

	for _, length := range lengths {
		tip := cand.base.Add(dir.Mul(offset + length))
		tipNDC := e.cam.ToNDC(tip)

		if spec.Auto.RequireTipInFrame {
			if tipNDC.X < mx || tipNDC.X > 1-mx || tipNDC.Y < my || tipNDC.Y > 1-my || tipNDC.Z < 0 {
				continue
			}
		}

		tipPx := e.cam.NDCToPx(tipNDC)
		outd := camera.OutsideDistance(tipPx, box)
		segLen := tipPx.Sub(basePx).Len()

		// Inward labels want the tip buried behind the silhouette, so the
		// outside term flips sign. Outward tips landing inside the box are
		// penalized harder than clearing it is rewarded.
		var outTerm float64
		switch {
		case spec.Direction == DirectionIn:
			outTerm = -outd
		case outd >= 0:
			outTerm = outd
		default:
			outTerm = outd * 1.5
		}

		score := outTerm + spec.Auto.SilhouetteBias*silhouette + spec.Auto.SegmentLenBias*segLen
		if score > bestScore {
			bestScore = score
			best = &Placement{
				Kind:   spec.Kind,
				Index:  cand.index,
				Base:   cand.base,
				Dir:    dir,
				Length: length,
				Tip:    tip,
				Score:  score,
			}
		}
	}
	return best, bestScore
}

// absoluteFallback returns site 0 at the minimum length. It is the
// guaranteed-termination path when nothing scored, e.g. the entire solid
// sits outside the frame.
func (e *Engine) absoluteFallback(spec AttachSpec) Placement {
	cand, ok := e.site(spec.Kind, 0)
	if !ok {
		cand = candidate{index: 0, base: e.firstSiteBase(spec.Kind), dir: mgl64.Vec3{0, 0, 1}}
	}
	dir := cand.dir
	if spec.Direction == DirectionIn {
		dir = dir.Mul(-1)
	}
	length := spec.LengthMin
	tip := cand.base.Add(dir.Mul(e.baseOffset(spec) + length))
	return Placement{
		Kind:     spec.Kind,
		Index:    cand.index,
		Base:     cand.base,
		Dir:      dir,
		Length:   length,
		Tip:      tip,
		Fallback: true,
	}
}

func (e *Engine) firstSiteBase(kind SiteKind) mgl64.Vec3 {
	if kind == SiteVertex {
		return e.mesh.Vertices[0]
	}
	return e.mesh.FaceCenter(0)
}
