// Package placement decides where each label or port callout attaches to
// a boundary solid and how long its connector runs. One camera-aware
// search covers both site kinds: labels anchor to faces, ports to
// vertices, and the same scoring loop drives both.
package placement

import "github.com/go-gl/mathgl/mgl64"

// SiteKind selects the attach-site family on the boundary solid.
type SiteKind string

const (
	// SiteFace anchors a callout to a face; the base point is the
	// polyhedron center projected onto the face plane.
	SiteFace SiteKind = "FACE"
	// SiteVertex anchors a callout to a vertex position.
	SiteVertex SiteKind = "VERTEX"
)

// Direction controls which way a label connector points. Ports always
// point outward.
type Direction string

const (
	DirectionOut Direction = "OUT"
	DirectionIn  Direction = "IN"
)

// AutoIndex requests automatic site selection.
const AutoIndex = -1

// Defaults for connector geometry and the auto-placement search.
const (
	DefaultCylinderRadius = 0.03
	DefaultLengthMin      = 0.6
	DefaultLengthMax      = 2.8
	DefaultLengthSamples  = 24
	DefaultBBoxMarginPx   = 40.0
	DefaultTipMarginPx    = 60.0
	DefaultSilhouetteBias = 0.25
	DefaultSegmentLenBias = 0.10

	// baseOffsetFactor pads the automatic base offset so the connector
	// clears the geometry it starts from.
	baseOffsetFactor = 1.05

	// Visibility epsilons for the occlusion ray test. Vertex hits are
	// numerically sensitive, so they get a looser tolerance.
	faceVisibilityEps   = 1e-3
	vertexVisibilityEps = 2e-2
)

// AutoPlacement tunes the automatic site search. The biases are observed
// defaults, not invariants; callers may override any of them.
type AutoPlacement struct {
	// RequireVisibleBase rejects sites whose base point is occluded by
	// the solid itself (back-facing sites).
	RequireVisibleBase bool
	// RequireTipInFrame rejects tips outside the frame or closer than
	// TipMarginPx to its edge.
	RequireTipInFrame bool
	// BBoxMarginPx expands the solid's silhouette box before measuring
	// how far outside it a tip lands.
	BBoxMarginPx float64
	// TipMarginPx keeps tips away from the frame border.
	TipMarginPx float64
	// SilhouetteBias rewards bases far from the projected solid center.
	SilhouetteBias float64
	// SegmentLenBias rewards longer projected connector segments.
	SegmentLenBias float64
	// LengthSamples is the number of lengths tried per site when no
	// fixed length is given.
	LengthSamples int
	// UniqueVertices makes sequential port placements prefer vertices
	// not already claimed by an earlier port.
	UniqueVertices bool
}

// DefaultAutoPlacement returns the standard search configuration.
func DefaultAutoPlacement() AutoPlacement {
	return AutoPlacement{
		RequireVisibleBase: true,
		RequireTipInFrame:  true,
		BBoxMarginPx:       DefaultBBoxMarginPx,
		TipMarginPx:        DefaultTipMarginPx,
		SilhouetteBias:     DefaultSilhouetteBias,
		SegmentLenBias:     DefaultSegmentLenBias,
		LengthSamples:      DefaultLengthSamples,
		UniqueVertices:     true,
	}
}

// AttachSpec describes one callout to place: which site family, an
// explicit site or automatic selection, the connector cylinder, and the
// length policy.
type AttachSpec struct {
	// Name identifies the label/port in warnings.
	Name string
	// Kind selects faces (labels) or vertices (ports).
	Kind SiteKind
	// Index pins the callout to one site. AutoIndex (or any negative
	// value) selects automatically; an index out of range for the
	// current topology also degrades to automatic selection.
	Index int
	// Direction flips label connectors inward when set to DirectionIn.
	Direction Direction

	// CylinderRadius is the connector radius in world units.
	CylinderRadius float64
	// BaseOffset shifts the connector start off the attach site. Zero
	// means automatic: just past the cylinder radius for faces, just
	// past the vertex marker for vertices.
	BaseOffset float64
	// Length fixes the connector length; zero means sample the
	// [LengthMin, LengthMax] range.
	Length    float64
	LengthMin float64
	LengthMax float64

	Auto AutoPlacement
}

// DefaultAttachSpec returns an automatic-placement spec for the given
// site kind with the standard connector geometry.
func DefaultAttachSpec(kind SiteKind) AttachSpec {
	return AttachSpec{
		Kind:           kind,
		Index:          AutoIndex,
		Direction:      DirectionOut,
		CylinderRadius: DefaultCylinderRadius,
		LengthMin:      DefaultLengthMin,
		LengthMax:      DefaultLengthMax,
		Auto:           DefaultAutoPlacement(),
	}
}

// withDefaults fills unset numeric fields so a partially populated spec
// still searches sensibly.
func (s AttachSpec) withDefaults() AttachSpec {
	if s.Kind == "" {
		s.Kind = SiteFace
	}
	if s.Direction != DirectionIn {
		s.Direction = DirectionOut
	}
	if s.CylinderRadius <= 0 {
		s.CylinderRadius = DefaultCylinderRadius
	}
	if s.LengthMin <= 0 {
		s.LengthMin = DefaultLengthMin
	}
	if s.LengthMax <= 0 {
		s.LengthMax = DefaultLengthMax
	}
	if s.LengthMax < s.LengthMin {
		s.LengthMax = s.LengthMin
	}
	if s.Auto.LengthSamples <= 0 {
		s.Auto.LengthSamples = 1
	}
	return s
}

// Placement is the result of one search: the winning site, the connector
// geometry in world space, and whether the engine had to take the
// absolute fallback path.
type Placement struct {
	Kind   SiteKind
	Index  int
	Base   mgl64.Vec3
	Dir    mgl64.Vec3
	Length float64
	Tip    mgl64.Vec3
	Score  float64
	// Fallback is set when no candidate scored at all and the engine
	// returned site 0 at the minimum length.
	Fallback bool
}

// UsedVertexSet tracks vertices already claimed by earlier port
// placements on the same boundary. It is explicit per-boundary state:
// create one per build pass and thread it through sequential Place
// calls. The zero value is ready to use.
type UsedVertexSet struct {
	used map[int]struct{}
}

// NewUsedVertexSet returns an empty set.
func NewUsedVertexSet() *UsedVertexSet {
	return &UsedVertexSet{used: make(map[int]struct{})}
}

// Contains reports whether the vertex has been claimed.
func (s *UsedVertexSet) Contains(vi int) bool {
	if s == nil || s.used == nil {
		return false
	}
	_, ok := s.used[vi]
	return ok
}

// Add claims a vertex.
func (s *UsedVertexSet) Add(vi int) {
	if s == nil {
		return
	}
	if s.used == nil {
		s.used = make(map[int]struct{})
	}
	s.used[vi] = struct{}{}
}

// Len returns the number of claimed vertices.
func (s *UsedVertexSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.used)
}

// Reset clears the set for a fresh build pass.
func (s *UsedVertexSet) Reset() {
	if s == nil {
		return
	}
	clear(s.used)
}
