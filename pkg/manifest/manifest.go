// Package manifest defines the scene description consumed by the build
// pipeline: boundary solids, label and port callouts, the camera, and
// render output settings. Manifests are JSON or TOML files dispatched by
// extension.
package manifest

import (
	"github.com/mwolters/polymark/pkg/errors"
	"github.com/mwolters/polymark/pkg/topology"
)

// Manifest is one complete scene description.
type Manifest struct {
	// GlobalScale multiplies every length-like field (radii, offsets,
	// connector lengths) so a whole scene can be resized in one place.
	GlobalScale float64 `json:"global_scale,omitempty" toml:"global_scale"`

	Boundaries []Boundary `json:"boundaries" toml:"boundaries"`
	Labels     []Label    `json:"labels,omitempty" toml:"labels"`
	Ports      []Port     `json:"ports,omitempty" toml:"ports"`

	Camera CameraSpec `json:"camera,omitempty" toml:"camera"`
	Render RenderSpec `json:"render,omitempty" toml:"render"`
}

// Boundary describes one polyhedron solid.
type Boundary struct {
	Name   string  `json:"name" toml:"name"`
	Shape  Shape   `json:"shape" toml:"shape"`
	Radius float64 `json:"radius,omitempty" toml:"radius"`

	Edges    EdgeStyle   `json:"edges,omitempty" toml:"edges"`
	Vertices VertexStyle `json:"vertices,omitempty" toml:"vertices"`
	Faces    FaceStyle   `json:"faces,omitempty" toml:"faces"`
	Detail   Detail      `json:"detail,omitempty" toml:"detail"`

	Transform Transform `json:"transform,omitempty" toml:"transform"`
}

// Shape selects the polyhedron topology.
type Shape struct {
	Type         string `json:"type" toml:"type"`
	Subdivisions int    `json:"subdivisions,omitempty" toml:"subdivisions"`
}

// EdgeStyle styles the wireframe edge cylinders.
type EdgeStyle struct {
	Radius float64 `json:"radius,omitempty" toml:"radius"`
	Color  string  `json:"color,omitempty" toml:"color"`
	Alpha  float64 `json:"alpha,omitempty" toml:"alpha"`
}

// VertexStyle styles the vertex marker spheres. The radius also sets the
// automatic base offset for vertex-attached ports.
type VertexStyle struct {
	Radius float64 `json:"radius,omitempty" toml:"radius"`
	Color  string  `json:"color,omitempty" toml:"color"`
	Alpha  float64 `json:"alpha,omitempty" toml:"alpha"`
}

// FaceStyle styles the translucent face plates.
type FaceStyle struct {
	Thickness float64 `json:"thickness,omitempty" toml:"thickness"`
	Color     string  `json:"color,omitempty" toml:"color"`
	Alpha     float64 `json:"alpha,omitempty" toml:"alpha"`
}

// Detail holds tessellation and extraction tuning.
type Detail struct {
	// EdgeCoplanarDot is the normal-dot threshold above which a shared
	// triangle edge counts as a triangulation diagonal.
	EdgeCoplanarDot float64 `json:"edge_coplanar_dot,omitempty" toml:"edge_coplanar_dot"`
}

// Transform positions a boundary in world space.
type Transform struct {
	Location    [3]float64 `json:"location,omitempty" toml:"location"`
	RotationDeg [3]float64 `json:"rotation_deg,omitempty" toml:"rotation_deg"`
	Scale       [3]float64 `json:"scale,omitempty" toml:"scale"`
}

// Attach selects the attach site for a callout. A nil Index means
// automatic selection.
type Attach struct {
	SiteType string `json:"site_type,omitempty" toml:"site_type"`
	Index    *int   `json:"index,omitempty" toml:"index"`
}

// Cylinder describes the connector geometry. A nil Length samples the
// [LengthMin, LengthMax] range; a nil BaseOffset is automatic.
type Cylinder struct {
	Radius     float64  `json:"radius,omitempty" toml:"radius"`
	BaseOffset *float64 `json:"base_offset,omitempty" toml:"base_offset"`
	Length     *float64 `json:"length,omitempty" toml:"length"`
	LengthMin  float64  `json:"length_min,omitempty" toml:"length_min"`
	LengthMax  float64  `json:"length_max,omitempty" toml:"length_max"`
}

// AutoPlacement tunes the placement search. Pointer fields default to
// true when absent.
type AutoPlacement struct {
	RequireVisibleBase *bool   `json:"require_visible_base,omitempty" toml:"require_visible_base"`
	RequireTipInFrame  *bool   `json:"require_tip_in_frame,omitempty" toml:"require_tip_in_frame"`
	BBoxMarginPx       float64 `json:"bbox_margin_px,omitempty" toml:"bbox_margin_px"`
	TipMarginPx        float64 `json:"tip_margin_px,omitempty" toml:"tip_margin_px"`
	SilhouetteBias     float64 `json:"silhouette_bias,omitempty" toml:"silhouette_bias"`
	SegmentLenBias     float64 `json:"segment_len_bias,omitempty" toml:"segment_len_bias"`
	LengthSamples      int     `json:"length_samples,omitempty" toml:"length_samples"`
	UniqueVertices     *bool   `json:"unique_vertices,omitempty" toml:"unique_vertices"`
}

// Label is a face-attached text callout.
type Label struct {
	Name      string `json:"name" toml:"name"`
	Text      string `json:"text,omitempty" toml:"text"`
	Target    string `json:"target,omitempty" toml:"target"`
	Direction string `json:"direction,omitempty" toml:"direction"` // OUT or IN

	Attach        Attach        `json:"attach,omitempty" toml:"attach"`
	Cylinder      Cylinder      `json:"cylinder,omitempty" toml:"cylinder"`
	AutoPlacement AutoPlacement `json:"auto_placement,omitempty" toml:"auto_placement"`
}

// Port is a vertex-attached callout carrying a flow kind.
type Port struct {
	Name   string `json:"name" toml:"name"`
	Text   string `json:"text,omitempty" toml:"text"`
	Target string `json:"target,omitempty" toml:"target"`
	Flow   string `json:"flow,omitempty" toml:"flow"` // POWER, INFO, or BOTH

	Attach        Attach        `json:"attach,omitempty" toml:"attach"`
	Cylinder      Cylinder      `json:"cylinder,omitempty" toml:"cylinder"`
	AutoPlacement AutoPlacement `json:"auto_placement,omitempty" toml:"auto_placement"`
}

// CameraSpec resolves to a camera pose. With neither Location nor
// RotationQuat the camera direction is chosen automatically.
type CameraSpec struct {
	Location     *[3]float64 `json:"location,omitempty" toml:"location"`
	RotationQuat *[4]float64 `json:"rotation_quat,omitempty" toml:"rotation_quat"` // w, x, y, z
	Target       *[3]float64 `json:"target,omitempty" toml:"target"`               // nil means the boundary center
	Distance     float64     `json:"distance,omitempty" toml:"distance"`
	LensMM       float64     `json:"lens_mm,omitempty" toml:"lens_mm"`
	Ortho        bool        `json:"ortho,omitempty" toml:"ortho"`
	OrthoScale   float64     `json:"ortho_scale,omitempty" toml:"ortho_scale"` // world-space frame width
}

// RenderSpec controls artifact output.
type RenderSpec struct {
	ResolutionX int      `json:"resolution_x,omitempty" toml:"resolution_x"`
	ResolutionY int      `json:"resolution_y,omitempty" toml:"resolution_y"`
	Output      string   `json:"output,omitempty" toml:"output"`
	Formats     []string `json:"formats,omitempty" toml:"formats"` // json, svg
}

// Flow kinds a port may carry.
const (
	FlowPower = "POWER"
	FlowInfo  = "INFO"
	FlowBoth  = "BOTH"
)

// ApplyDefaults fills unset fields in place. Call it once after decoding,
// before Validate.
func (m *Manifest) ApplyDefaults() {
	if m.GlobalScale <= 0 {
		m.GlobalScale = 1.0
	}
	for i := range m.Boundaries {
		b := &m.Boundaries[i]
		if b.Name == "" {
			b.Name = "boundary"
		}
		if b.Radius <= 0 {
			b.Radius = 1.0
		}
		if b.Edges.Radius <= 0 {
			b.Edges.Radius = 0.05
		}
		if b.Vertices.Radius <= 0 {
			b.Vertices.Radius = 0.08
		}
		if b.Detail.EdgeCoplanarDot <= 0 {
			b.Detail.EdgeCoplanarDot = 0.999999
		}
		if b.Transform.Scale == ([3]float64{}) {
			b.Transform.Scale = [3]float64{1, 1, 1}
		}
	}
	for i := range m.Labels {
		l := &m.Labels[i]
		if l.Direction == "" {
			l.Direction = "OUT"
		}
		if l.Attach.SiteType == "" {
			l.Attach.SiteType = "FACE"
		}
	}
	for i := range m.Ports {
		p := &m.Ports[i]
		if p.Flow == "" {
			p.Flow = FlowPower
		}
		if p.Attach.SiteType == "" {
			p.Attach.SiteType = "VERTEX"
		}
	}
	if m.Camera.Distance <= 0 {
		m.Camera.Distance = 5.0
	}
	if m.Camera.LensMM <= 0 {
		m.Camera.LensMM = 50.0
	}
	if m.Render.ResolutionX <= 0 {
		m.Render.ResolutionX = 1024
	}
	if m.Render.ResolutionY <= 0 {
		m.Render.ResolutionY = 1024
	}
	if len(m.Render.Formats) == 0 {
		m.Render.Formats = []string{"json"}
	}
}

// Validate checks cross-references and enumerations. It assumes
// ApplyDefaults already ran.
func (m *Manifest) Validate() error {
	if len(m.Boundaries) == 0 {
		return errors.New(errors.ErrCodeInvalidManifest, "manifest defines no boundaries")
	}

	names := make(map[string]bool, len(m.Boundaries))
	for _, b := range m.Boundaries {
		if err := errors.ValidateObjectName(b.Name); err != nil {
			return err
		}
		if names[b.Name] {
			return errors.New(errors.ErrCodeInvalidManifest, "duplicate boundary name %q", b.Name)
		}
		names[b.Name] = true

		if _, err := topology.ParseShape(b.Shape.Type); err != nil {
			return err
		}
		if b.Shape.Subdivisions < 0 {
			return errors.New(errors.ErrCodeInvalidShape, "boundary %q: negative subdivisions", b.Name)
		}
	}

	for _, l := range m.Labels {
		if err := validateCallout(l.Name, l.Target, l.Attach, names); err != nil {
			return err
		}
		if l.Direction != "OUT" && l.Direction != "IN" {
			return errors.New(errors.ErrCodeInvalidAttach, "label %q: direction must be OUT or IN, got %q", l.Name, l.Direction)
		}
	}
	for _, p := range m.Ports {
		if err := validateCallout(p.Name, p.Target, p.Attach, names); err != nil {
			return err
		}
		switch p.Flow {
		case FlowPower, FlowInfo, FlowBoth:
		default:
			return errors.New(errors.ErrCodeInvalidAttach, "port %q: unknown flow kind %q", p.Name, p.Flow)
		}
	}

	for _, f := range m.Render.Formats {
		if f != "json" && f != "svg" {
			return errors.New(errors.ErrCodeInvalidFormat, "unknown artifact format %q", f)
		}
	}
	return nil
}

func validateCallout(name, target string, attach Attach, boundaries map[string]bool) error {
	if err := errors.ValidateObjectName(name); err != nil {
		return err
	}
	if target != "" && !boundaries[target] {
		return errors.New(errors.ErrCodeBoundaryNotFound, "callout %q targets unknown boundary %q", name, target)
	}
	if attach.SiteType != "FACE" && attach.SiteType != "VERTEX" {
		return errors.New(errors.ErrCodeInvalidAttach, "callout %q: site_type must be FACE or VERTEX, got %q", name, attach.SiteType)
	}
	return nil
}

// ApplyGlobalScale multiplies length-like fields by the manifest's global
// scale and resets the scale to 1, so downstream code never rescales.
func (m *Manifest) ApplyGlobalScale() {
	s := m.GlobalScale
	if s == 1.0 || s <= 0 {
		m.GlobalScale = 1.0
		return
	}
	for i := range m.Boundaries {
		b := &m.Boundaries[i]
		b.Radius *= s
		b.Edges.Radius *= s
		b.Vertices.Radius *= s
		b.Faces.Thickness *= s
		for a := 0; a < 3; a++ {
			b.Transform.Location[a] *= s
		}
	}
	for i := range m.Labels {
		scaleCylinder(&m.Labels[i].Cylinder, s)
	}
	for i := range m.Ports {
		scaleCylinder(&m.Ports[i].Cylinder, s)
	}
	m.GlobalScale = 1.0
}

func scaleCylinder(c *Cylinder, s float64) {
	c.Radius *= s
	if c.BaseOffset != nil {
		*c.BaseOffset *= s
	}
	if c.Length != nil {
		*c.Length *= s
	}
	c.LengthMin *= s
	c.LengthMax *= s
}
