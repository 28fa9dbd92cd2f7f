package placement

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mwolters/polymark/pkg/camera"
	"github.com/mwolters/polymark/pkg/errors"
	"github.com/mwolters/polymark/pkg/geom"
	"github.com/mwolters/polymark/pkg/topology"
)

func testScene(t *testing.T) (*Engine, camera.Camera) {
	t.Helper()
	mesh := topology.Icosahedron(1.0)
	cam := camera.Camera{
		Position: mgl64.Vec3{0, -4.8, 1.8},
		Target:   mgl64.Vec3{0, 0, 0},
		Width:    1920,
		Height:   1080,
	}
	eng, err := New(mesh, cam, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return eng, cam
}

func TestNewRejectsEmptyMesh(t *testing.T) {
	_, err := New(geom.Mesh{}, camera.Camera{Width: 100, Height: 100}, Config{})
	if err == nil {
		t.Fatal("expected an error for an empty mesh")
	}
	if !errors.Is(err, errors.ErrCodeEmptyMesh) {
		t.Errorf("error code = %v, want EMPTY_MESH", errors.GetCode(err))
	}
}

func TestPlaceLabelScenario(t *testing.T) {
	eng, cam := testScene(t)

	spec := DefaultAttachSpec(SiteFace)
	p := eng.Place(spec, nil)

	if p.Fallback {
		t.Fatal("front-facing scene should not need the fallback path")
	}
	if p.Kind != SiteFace {
		t.Errorf("Kind = %v, want FACE", p.Kind)
	}
	if p.Index < 0 || p.Index >= 20 {
		t.Errorf("face index %d out of range", p.Index)
	}

	baseNDC := cam.ToNDC(p.Base)
	if !baseNDC.InFrame() {
		t.Errorf("base NDC %+v not in frame", baseNDC)
	}
	tipNDC := cam.ToNDC(p.Tip)
	if tipNDC.Z < 0 {
		t.Errorf("tip depth = %g, want >= 0", tipNDC.Z)
	}
	if p.Length < spec.LengthMin-1e-9 || p.Length > spec.LengthMax+1e-9 {
		t.Errorf("length %g outside [%g, %g]", p.Length, spec.LengthMin, spec.LengthMax)
	}

	// The outward direction must radiate from the center through the base.
	if p.Dir.Dot(p.Base) <= 0 {
		t.Errorf("direction %v does not point outward from base %v", p.Dir, p.Base)
	}
}

func TestPlaceTipRespectsFrameMargin(t *testing.T) {
	eng, cam := testScene(t)

	p := eng.Place(DefaultAttachSpec(SiteFace), nil)
	if p.Fallback {
		t.Fatal("unexpected fallback")
	}

	margin := DefaultTipMarginPx
	tipPx := cam.NDCToPx(cam.ToNDC(p.Tip))
	if tipPx.X() < margin || tipPx.X() > float64(cam.Width)-margin ||
		tipPx.Y() < margin || tipPx.Y() > float64(cam.Height)-margin {
		t.Errorf("tip %v violates the %gpx frame margin", tipPx, margin)
	}
}

func TestPlaceDistinctPorts(t *testing.T) {
	eng, _ := testScene(t)
	used := NewUsedVertexSet()

	const n = 6
	seen := make(map[int]bool)
	for i := 0; i < n; i++ {
		p := eng.Place(DefaultAttachSpec(SiteVertex), used)
		if p.Kind != SiteVertex {
			t.Fatalf("Kind = %v, want VERTEX", p.Kind)
		}
		if seen[p.Index] {
			t.Errorf("vertex %d reused on port %d", p.Index, i)
		}
		seen[p.Index] = true
	}
	if used.Len() != n {
		t.Errorf("used set size = %d, want %d", used.Len(), n)
	}
}

func TestPlaceDeterministic(t *testing.T) {
	eng, _ := testScene(t)

	a := eng.Place(DefaultAttachSpec(SiteFace), nil)
	b := eng.Place(DefaultAttachSpec(SiteFace), nil)
	if a != b {
		t.Errorf("identical inputs produced different placements:\n%+v\n%+v", a, b)
	}

	ua, ub := NewUsedVertexSet(), NewUsedVertexSet()
	pa := eng.Place(DefaultAttachSpec(SiteVertex), ua)
	pb := eng.Place(DefaultAttachSpec(SiteVertex), ub)
	if pa != pb {
		t.Errorf("identical used-set state produced different placements:\n%+v\n%+v", pa, pb)
	}
}

func TestPlaceExplicitIndex(t *testing.T) {
	eng, _ := testScene(t)

	t.Run("explicit vertex is honored and claimed", func(t *testing.T) {
		used := NewUsedVertexSet()
		spec := DefaultAttachSpec(SiteVertex)
		spec.Index = 0
		p := eng.Place(spec, used)
		if p.Index != 0 {
			t.Errorf("Index = %d, want 0", p.Index)
		}
		if !used.Contains(0) {
			t.Error("explicit vertex should be recorded in the used set")
		}
	})

	t.Run("out-of-range index degrades to auto", func(t *testing.T) {
		spec := DefaultAttachSpec(SiteFace)
		spec.Index = 999
		p := eng.Place(spec, nil)
		if p.Index < 0 || p.Index >= 20 {
			t.Errorf("auto fallback returned invalid index %d", p.Index)
		}
	})
}

func TestPlaceFixedLength(t *testing.T) {
	eng, _ := testScene(t)

	spec := DefaultAttachSpec(SiteFace)
	spec.Length = 1.3
	p := eng.Place(spec, nil)
	if p.Length != 1.3 {
		t.Errorf("Length = %g, want 1.3", p.Length)
	}
	want := p.Base.Add(p.Dir.Mul(spec.CylinderRadius*baseOffsetFactor + 1.3))
	if p.Tip.Sub(want).Len() > 1e-9 {
		t.Errorf("Tip = %v, want %v", p.Tip, want)
	}
}

func TestPlaceInwardLabel(t *testing.T) {
	eng, _ := testScene(t)

	spec := DefaultAttachSpec(SiteFace)
	spec.Direction = DirectionIn
	p := eng.Place(spec, nil)
	if p.Dir.Dot(p.Base) >= 0 {
		t.Errorf("inward direction %v does not point back through the center", p.Dir)
	}
}

func TestPlaceAbsoluteFallback(t *testing.T) {
	// Point the camera away from the solid entirely: no base is ever in
	// frame, both search passes come up empty, and the engine must still
	// return site 0 at the minimum length.
	mesh := topology.Icosahedron(1.0)
	cam := camera.Camera{
		Position: mgl64.Vec3{0, -4.8, 0},
		Target:   mgl64.Vec3{0, -10, 0},
		Width:    1920,
		Height:   1080,
	}
	eng, err := New(mesh, cam, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p := eng.Place(DefaultAttachSpec(SiteFace), nil)
	if !p.Fallback {
		t.Fatal("expected the absolute fallback path")
	}
	if p.Index != 0 {
		t.Errorf("fallback Index = %d, want 0", p.Index)
	}
	if p.Length != DefaultLengthMin {
		t.Errorf("fallback Length = %g, want %g", p.Length, DefaultLengthMin)
	}
}

func TestPlaceBackFaceLosesToFrontFace(t *testing.T) {
	eng, cam := testScene(t)

	p := eng.Place(DefaultAttachSpec(SiteFace), nil)

	// The winning face base must be on the camera-facing side: closer to
	// the camera than the solid center is.
	if p.Base.Sub(cam.Position).Len() >= cam.Position.Len()+1e-9 {
		t.Errorf("winning base %v sits on the far side of the solid", p.Base)
	}
}

func TestUsedVertexSet(t *testing.T) {
	var s UsedVertexSet // zero value usable
	if s.Contains(3) {
		t.Error("empty set should not contain 3")
	}
	s.Add(3)
	if !s.Contains(3) || s.Len() != 1 {
		t.Errorf("after Add(3): Contains=%v Len=%d", s.Contains(3), s.Len())
	}
	s.Reset()
	if s.Len() != 0 {
		t.Errorf("Len after Reset = %d, want 0", s.Len())
	}

	var nilSet *UsedVertexSet
	if nilSet.Contains(1) {
		t.Error("nil set should contain nothing")
	}
	nilSet.Add(1) // must not panic
	if nilSet.Len() != 0 {
		t.Error("nil set Len should be 0")
	}
}

func TestDefaultAttachSpec(t *testing.T) {
	s := DefaultAttachSpec(SiteVertex)
	if s.Index != AutoIndex {
		t.Errorf("Index = %d, want AutoIndex", s.Index)
	}
	if s.CylinderRadius != DefaultCylinderRadius {
		t.Errorf("CylinderRadius = %g", s.CylinderRadius)
	}
	if math.Abs(s.LengthMax-DefaultLengthMax) > 1e-12 {
		t.Errorf("LengthMax = %g", s.LengthMax)
	}
	if !s.Auto.UniqueVertices || !s.Auto.RequireVisibleBase {
		t.Error("auto placement defaults should require visibility and uniqueness")
	}
}
