package pipeline

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/mwolters/polymark/pkg/cache"
	"github.com/mwolters/polymark/pkg/camera"
	"github.com/mwolters/polymark/pkg/errors"
	"github.com/mwolters/polymark/pkg/export"
	"github.com/mwolters/polymark/pkg/geom"
	"github.com/mwolters/polymark/pkg/manifest"
	"github.com/mwolters/polymark/pkg/observability"
	"github.com/mwolters/polymark/pkg/placement"
	"github.com/mwolters/polymark/pkg/topology"
	"github.com/mwolters/polymark/pkg/wireframe"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store build results. Multiple goroutines can safely share one Runner
// with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// boundaryState carries one boundary's resolved geometry through the
// stages of a single execution.
type boundaryState struct {
	spec   manifest.Boundary
	mesh   geom.Mesh // world space, transform applied
	center mgl64.Vec3
	edges  []wireframe.Edge
}

// Execute runs the complete topology → placement → artifact pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = r.Logger
	}

	result := &Result{
		ID:        uuid.NewString(),
		Artifacts: make(map[string][]byte),
	}
	m := opts.Manifest

	// Stage 1: Topology
	topoStart := time.Now()
	bounds := make([]*boundaryState, 0, len(m.Boundaries))
	for _, b := range m.Boundaries {
		bStart := time.Now()
		observability.Build().OnTopologyStart(ctx, b.Shape.Type)

		mesh, hit, err := r.BuildTopologyWithCacheInfo(ctx, b.Shape.Type, b.Radius, b.Shape.Subdivisions, opts.Refresh)
		observability.Build().OnTopologyComplete(ctx, b.Shape.Type, len(mesh.Vertices), time.Since(bStart), err)
		if err != nil {
			return nil, err
		}
		if hit {
			result.CacheInfo.TopologyHits++
		} else {
			result.CacheInfo.TopologyMisses++
		}

		st := &boundaryState{spec: b}
		st.mesh, st.center = applyTransform(mesh, b.Transform)
		st.edges = wireframe.FromMesh(st.mesh, b.Detail.EdgeCoplanarDot)
		bounds = append(bounds, st)

		result.Stats.VertexCount += len(st.mesh.Vertices)
		result.Stats.EdgeCount += len(st.edges)
		result.Stats.FaceCount += len(st.mesh.Faces)
	}
	result.Stats.TopologyTime = time.Since(topoStart)

	logger.Info("built topology",
		"boundaries", len(bounds),
		"vertices", result.Stats.VertexCount,
		"edges", result.Stats.EdgeCount,
		"duration", result.Stats.TopologyTime)

	// Stage 2: Camera + placement
	placeStart := time.Now()
	cam := resolveCamera(m, bounds)

	scene := &export.Scene{
		Camera: export.Camera{
			Position:   vec3Arr(cam.Position),
			Target:     vec3Arr(cam.Target),
			LensMM:     cam.LensMM,
			Ortho:      cam.Ortho,
			OrthoScale: cam.OrthoScale,
			Width:      cam.Width,
			Height:     cam.Height,
		},
	}

	for _, st := range bounds {
		labels := calloutsFor(m.Labels, st.spec.Name, bounds)
		ports := portsFor(m.Ports, st.spec.Name, bounds)

		bStart := time.Now()
		observability.Build().OnPlacementStart(ctx, st.spec.Name, len(labels)+len(ports))

		eb, err := r.placeBoundary(st, cam, labels, ports, logger)
		observability.Build().OnPlacementComplete(ctx, st.spec.Name, time.Since(bStart), err)
		if err != nil {
			return nil, err
		}
		scene.Boundaries = append(scene.Boundaries, eb)
		result.Stats.Callouts += len(labels) + len(ports)
	}
	result.Stats.PlacementTime = time.Since(placeStart)
	result.Scene = scene

	logger.Info("placed callouts",
		"callouts", result.Stats.Callouts,
		"duration", result.Stats.PlacementTime)

	// Stage 3: Artifacts
	artifactStart := time.Now()
	observability.Build().OnArtifactStart(ctx, opts.Formats)
	artifacts, sceneHash, artifactHit, err := r.RenderWithCacheInfo(ctx, scene, opts)
	observability.Build().OnArtifactComplete(ctx, opts.Formats, time.Since(artifactStart), err)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.SceneHash = sceneHash
	result.CacheInfo.ArtifactHit = artifactHit
	result.Stats.ArtifactTime = time.Since(artifactStart)

	logger.Info("generated artifacts",
		"formats", opts.Formats,
		"duration", result.Stats.ArtifactTime)

	return result, nil
}

// meshDoc is the cache serialization of a built mesh.
type meshDoc struct {
	Vertices [][3]float64 `json:"v"`
	Faces    [][]int      `json:"f"`
}

// BuildTopologyWithCacheInfo builds (or loads from cache) the canonical
// mesh for a shape descriptor and reports whether it was a cache hit.
// The mesh is in model space; transforms are applied by the caller.
func (r *Runner) BuildTopologyWithCacheInfo(ctx context.Context, shape string, radius float64, subdivisions int, refresh bool) (geom.Mesh, bool, error) {
	key := r.Keyer.TopologyKey(shape, radius, subdivisions)

	if !refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var doc meshDoc
			if err := json.Unmarshal(data, &doc); err == nil {
				observability.Cache().OnCacheHit(ctx, "topology")
				return docMesh(doc), true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "topology")
	}

	st, err := topology.ParseShape(shape)
	if err != nil {
		return geom.Mesh{}, false, err
	}
	mesh, err := topology.Build(st, radius, subdivisions)
	if err != nil {
		return geom.Mesh{}, false, err
	}

	if data, err := json.Marshal(docFromMesh(mesh)); err == nil {
		_ = r.Cache.Set(ctx, key, data, TTLTopology)
		observability.Cache().OnCacheSet(ctx, "topology", len(data))
	}
	return mesh, false, nil
}

// BuildTopology is a convenience wrapper that discards the cache info.
func (r *Runner) BuildTopology(ctx context.Context, shape string, radius float64, subdivisions int) (geom.Mesh, error) {
	mesh, _, err := r.BuildTopologyWithCacheInfo(ctx, shape, radius, subdivisions, false)
	return mesh, err
}

// RenderWithCacheInfo serializes the scene and renders the requested
// artifact formats, with caching keyed on the scene hash.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, scene *export.Scene, opts Options) (map[string][]byte, string, bool, error) {
	sceneJSON, err := json.Marshal(scene)
	if err != nil {
		return nil, "", false, errors.Wrap(errors.ErrCodeInternal, err, "cannot serialize scene")
	}
	sceneHash := cache.Hash(sceneJSON)

	artifacts := make(map[string][]byte, len(opts.Formats))

	allCached := !opts.Refresh
	if allCached {
		for _, format := range opts.Formats {
			key := r.Keyer.ArtifactKey(sceneHash, r.artifactOpts(scene, format))
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil || !hit {
				allCached = false
				break
			}
			artifacts[format] = data
		}
	}
	if allCached && len(artifacts) == len(opts.Formats) {
		observability.Cache().OnCacheHit(ctx, "artifact")
		return artifacts, sceneHash, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, "artifact")

	for _, format := range opts.Formats {
		var data []byte
		switch format {
		case "json":
			data = sceneJSON
		case "svg":
			data = export.RenderSVG(scene)
		default:
			return nil, "", false, errors.New(errors.ErrCodeInvalidFormat, "unknown artifact format %q", format)
		}
		artifacts[format] = data

		key := r.Keyer.ArtifactKey(sceneHash, r.artifactOpts(scene, format))
		_ = r.Cache.Set(ctx, key, data, TTLArtifact)
		observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	}
	return artifacts, sceneHash, false, nil
}

func (r *Runner) artifactOpts(scene *export.Scene, format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format: format,
		Width:  scene.Camera.Width,
		Height: scene.Camera.Height,
	}
}

// placeBoundary runs the placement engine for one boundary's labels and
// ports. Ports share one UsedVertexSet, created fresh per execution so
// repeated builds stay independent.
func (r *Runner) placeBoundary(st *boundaryState, cam camera.Camera, labels []manifest.Label, ports []manifest.Port, logger *log.Logger) (export.Boundary, error) {
	eng, err := placement.New(st.mesh, cam, placement.Config{
		Center:       st.center,
		VertexRadius: st.spec.Vertices.Radius,
		Logger:       logger,
	})
	if err != nil {
		return export.Boundary{}, err
	}

	eb := export.Boundary{
		Name:     st.spec.Name,
		Vertices: make([][3]float64, len(st.mesh.Vertices)),
		Faces:    st.mesh.Faces,
		Edges:    make([][2]int, len(st.edges)),
	}
	for i, v := range st.mesh.Vertices {
		eb.Vertices[i] = vec3Arr(v)
	}
	for i, e := range st.edges {
		eb.Edges[i] = [2]int{e.I, e.J}
	}

	for _, l := range labels {
		spec := attachSpec(l.Name, placement.SiteFace, l.Attach, l.Cylinder, l.AutoPlacement)
		if l.Direction == "IN" {
			spec.Direction = placement.DirectionIn
		}
		if l.Attach.SiteType == "VERTEX" {
			spec.Kind = placement.SiteVertex
		}
		p := eng.Place(spec, nil)
		eb.Labels = append(eb.Labels, callout(l.Name, l.Text, "", p))
	}

	used := placement.NewUsedVertexSet()
	for _, pt := range ports {
		spec := attachSpec(pt.Name, placement.SiteVertex, pt.Attach, pt.Cylinder, pt.AutoPlacement)
		if pt.Attach.SiteType == "FACE" {
			spec.Kind = placement.SiteFace
		}
		p := eng.Place(spec, used)
		eb.Ports = append(eb.Ports, callout(pt.Name, pt.Text, pt.Flow, p))
	}
	return eb, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// =============================================================================
// Manifest resolution helpers
// =============================================================================

// calloutsFor selects the labels targeting the named boundary. An empty
// target means the first boundary.
func calloutsFor(labels []manifest.Label, name string, bounds []*boundaryState) []manifest.Label {
	var out []manifest.Label
	for _, l := range labels {
		if resolveTarget(l.Target, bounds) == name {
			out = append(out, l)
		}
	}
	return out
}

func portsFor(ports []manifest.Port, name string, bounds []*boundaryState) []manifest.Port {
	var out []manifest.Port
	for _, p := range ports {
		if resolveTarget(p.Target, bounds) == name {
			out = append(out, p)
		}
	}
	return out
}

func resolveTarget(target string, bounds []*boundaryState) string {
	if target != "" {
		return target
	}
	if len(bounds) > 0 {
		return bounds[0].spec.Name
	}
	return ""
}

// attachSpec converts manifest callout config to a placement spec,
// filling search defaults for absent fields.
func attachSpec(name string, kind placement.SiteKind, attach manifest.Attach, cyl manifest.Cylinder, ap manifest.AutoPlacement) placement.AttachSpec {
	spec := placement.DefaultAttachSpec(kind)
	spec.Name = name

	if attach.Index != nil {
		spec.Index = *attach.Index
	}
	if cyl.Radius > 0 {
		spec.CylinderRadius = cyl.Radius
	}
	if cyl.BaseOffset != nil {
		spec.BaseOffset = *cyl.BaseOffset
	}
	if cyl.Length != nil {
		spec.Length = *cyl.Length
	}
	if cyl.LengthMin > 0 {
		spec.LengthMin = cyl.LengthMin
	}
	if cyl.LengthMax > 0 {
		spec.LengthMax = cyl.LengthMax
	}

	if ap.RequireVisibleBase != nil {
		spec.Auto.RequireVisibleBase = *ap.RequireVisibleBase
	}
	if ap.RequireTipInFrame != nil {
		spec.Auto.RequireTipInFrame = *ap.RequireTipInFrame
	}
	if ap.UniqueVertices != nil {
		spec.Auto.UniqueVertices = *ap.UniqueVertices
	}
	if ap.BBoxMarginPx > 0 {
		spec.Auto.BBoxMarginPx = ap.BBoxMarginPx
	}
	if ap.TipMarginPx > 0 {
		spec.Auto.TipMarginPx = ap.TipMarginPx
	}
	if ap.SilhouetteBias > 0 {
		spec.Auto.SilhouetteBias = ap.SilhouetteBias
	}
	if ap.SegmentLenBias > 0 {
		spec.Auto.SegmentLenBias = ap.SegmentLenBias
	}
	if ap.LengthSamples > 0 {
		spec.Auto.LengthSamples = ap.LengthSamples
	}
	return spec
}

func callout(name, text, flow string, p placement.Placement) export.Callout {
	return export.Callout{
		Name:      name,
		Text:      text,
		SiteKind:  string(p.Kind),
		SiteIndex: p.Index,
		Base:      vec3Arr(p.Base),
		Dir:       vec3Arr(p.Dir),
		Length:    p.Length,
		Tip:       vec3Arr(p.Tip),
		Flow:      flow,
		Fallback:  p.Fallback,
	}
}

// resolveCamera turns the manifest camera spec into a concrete pose. With
// no explicit location the direction is chosen automatically against the
// first boundary's geometry.
func resolveCamera(m *manifest.Manifest, bounds []*boundaryState) camera.Camera {
	cam := camera.Camera{
		LensMM:     m.Camera.LensMM,
		Ortho:      m.Camera.Ortho,
		OrthoScale: m.Camera.OrthoScale,
		Width:      m.Render.ResolutionX,
		Height:     m.Render.ResolutionY,
	}

	var anchor *boundaryState
	if len(bounds) > 0 {
		anchor = bounds[0]
	}

	target := mgl64.Vec3{}
	if m.Camera.Target != nil {
		target = mgl64.Vec3{m.Camera.Target[0], m.Camera.Target[1], m.Camera.Target[2]}
	} else if anchor != nil {
		target = anchor.center
	}
	cam.Target = target

	if m.Camera.Location != nil {
		cam.Position = mgl64.Vec3{m.Camera.Location[0], m.Camera.Location[1], m.Camera.Location[2]}
	} else if anchor != nil {
		cam.Position = camera.AutoPosition(anchor.mesh, target, m.Camera.Distance, camera.DirectorOptions{})
	} else {
		cam.Position = mgl64.Vec3{0, -m.Camera.Distance, m.Camera.Distance * 0.4}
	}

	if m.Camera.RotationQuat != nil {
		q := mgl64.Quat{
			W: m.Camera.RotationQuat[0],
			V: mgl64.Vec3{m.Camera.RotationQuat[1], m.Camera.RotationQuat[2], m.Camera.RotationQuat[3]},
		}
		cam.Rotation = &q
	}
	return cam
}

// applyTransform bakes a boundary transform into world-space vertices and
// returns the transformed center. Rotation is an XYZ euler in degrees.
func applyTransform(m geom.Mesh, t manifest.Transform) (geom.Mesh, mgl64.Vec3) {
	center := mgl64.Vec3{t.Location[0], t.Location[1], t.Location[2]}

	identity := t.RotationDeg == [3]float64{} &&
		(t.Scale == [3]float64{} || t.Scale == [3]float64{1, 1, 1}) &&
		t.Location == [3]float64{}
	if identity {
		return m, center
	}

	scale := t.Scale
	if scale == ([3]float64{}) {
		scale = [3]float64{1, 1, 1}
	}

	rx := mgl64.Rotate3DX(t.RotationDeg[0] * math.Pi / 180)
	ry := mgl64.Rotate3DY(t.RotationDeg[1] * math.Pi / 180)
	rz := mgl64.Rotate3DZ(t.RotationDeg[2] * math.Pi / 180)
	rot := rz.Mul3(ry).Mul3(rx)

	out := geom.Mesh{
		Vertices: make([]mgl64.Vec3, len(m.Vertices)),
		Faces:    m.Faces,
	}
	for i, v := range m.Vertices {
		s := mgl64.Vec3{v.X() * scale[0], v.Y() * scale[1], v.Z() * scale[2]}
		out.Vertices[i] = rot.Mul3x1(s).Add(center)
	}
	return out, center
}

func vec3Arr(v mgl64.Vec3) [3]float64 {
	return [3]float64{v.X(), v.Y(), v.Z()}
}

func docMesh(d meshDoc) geom.Mesh {
	m := geom.Mesh{
		Vertices: make([]mgl64.Vec3, len(d.Vertices)),
		Faces:    d.Faces,
	}
	for i, v := range d.Vertices {
		m.Vertices[i] = mgl64.Vec3{v[0], v[1], v[2]}
	}
	return m
}

func docFromMesh(m geom.Mesh) meshDoc {
	d := meshDoc{
		Vertices: make([][3]float64, len(m.Vertices)),
		Faces:    m.Faces,
	}
	for i, v := range m.Vertices {
		d.Vertices[i] = vec3Arr(v)
	}
	return d
}
