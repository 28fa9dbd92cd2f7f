package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mwolters/polymark/pkg/cache"
	"github.com/mwolters/polymark/pkg/errors"
	"github.com/mwolters/polymark/pkg/manifest"
	"github.com/mwolters/polymark/pkg/observability"
)

func testManifest(t *testing.T) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Parse([]byte(`{
		"boundaries": [
			{"name": "main", "shape": {"type": "icosahedron"}, "radius": 1.0}
		],
		"labels": [
			{"name": "top", "text": "Apex", "target": "main"}
		],
		"ports": [
			{"name": "p1", "target": "main", "flow": "POWER"},
			{"name": "p2", "target": "main", "flow": "INFO"}
		],
		"camera": {"location": [0, -4.8, 1.8], "target": [0, 0, 0]},
		"render": {"resolution_x": 1920, "resolution_y": 1080, "formats": ["json", "svg"]}
	}`), "json")
	if err != nil {
		t.Fatalf("manifest.Parse: %v", err)
	}
	return m
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	runner := NewRunner(nil, nil, nil)
	defer runner.Close()

	result, err := runner.Execute(ctx, Options{Manifest: testManifest(t)})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if result.ID == "" {
		t.Error("missing build ID")
	}
	if result.SceneHash == "" {
		t.Error("missing scene hash")
	}

	t.Run("scene", func(t *testing.T) {
		if len(result.Scene.Boundaries) != 1 {
			t.Fatalf("boundaries = %d, want 1", len(result.Scene.Boundaries))
		}
		b := result.Scene.Boundaries[0]
		if len(b.Vertices) != 12 || len(b.Faces) != 20 || len(b.Edges) != 30 {
			t.Errorf("icosahedron V/F/E = %d/%d/%d, want 12/20/30",
				len(b.Vertices), len(b.Faces), len(b.Edges))
		}
		if len(b.Labels) != 1 || len(b.Ports) != 2 {
			t.Errorf("callouts = %d labels, %d ports; want 1/2", len(b.Labels), len(b.Ports))
		}
		if b.Ports[0].SiteIndex == b.Ports[1].SiteIndex {
			t.Error("auto ports must resolve to distinct vertices")
		}
	})

	t.Run("artifacts", func(t *testing.T) {
		if _, ok := result.Artifacts["json"]; !ok {
			t.Error("missing json artifact")
		}
		svg, ok := result.Artifacts["svg"]
		if !ok {
			t.Fatal("missing svg artifact")
		}
		if !strings.Contains(string(svg), "<svg") {
			t.Error("svg artifact is not SVG")
		}
	})

	t.Run("stats", func(t *testing.T) {
		if result.Stats.VertexCount != 12 || result.Stats.Callouts != 3 {
			t.Errorf("stats = %+v", result.Stats)
		}
	})
}

func TestExecuteDeterministic(t *testing.T) {
	ctx := context.Background()
	runner := NewRunner(nil, nil, nil)

	a, err := runner.Execute(ctx, Options{Manifest: testManifest(t)})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	b, err := runner.Execute(ctx, Options{Manifest: testManifest(t)})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if a.SceneHash != b.SceneHash {
		t.Error("identical manifests must produce identical scenes")
	}
}

func TestExecuteCaching(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fc, nil, nil)
	defer runner.Close()

	first, err := runner.Execute(ctx, Options{Manifest: testManifest(t)})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if first.CacheInfo.TopologyMisses != 1 || first.CacheInfo.TopologyHits != 0 {
		t.Errorf("first run cache info = %+v", first.CacheInfo)
	}
	if first.CacheInfo.ArtifactHit {
		t.Error("first run should not hit the artifact cache")
	}

	second, err := runner.Execute(ctx, Options{Manifest: testManifest(t)})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if second.CacheInfo.TopologyHits != 1 {
		t.Errorf("second run cache info = %+v", second.CacheInfo)
	}
	if !second.CacheInfo.ArtifactHit {
		t.Error("second run should hit the artifact cache")
	}
	if second.SceneHash != first.SceneHash {
		t.Error("cached topology changed the scene")
	}

	t.Run("refresh bypasses reads", func(t *testing.T) {
		third, err := runner.Execute(ctx, Options{Manifest: testManifest(t), Refresh: true})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if third.CacheInfo.TopologyHits != 0 || third.CacheInfo.ArtifactHit {
			t.Errorf("refresh run cache info = %+v", third.CacheInfo)
		}
	})
}

func TestExecuteAutoCamera(t *testing.T) {
	ctx := context.Background()
	runner := NewRunner(nil, nil, nil)

	m := testManifest(t)
	m.Camera.Location = nil
	m.Camera.Target = nil
	m.Camera.Distance = 5.0

	result, err := runner.Execute(ctx, Options{Manifest: m})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	pos := result.Scene.Camera.Position
	d := pos[0]*pos[0] + pos[1]*pos[1] + pos[2]*pos[2]
	if d < 24.9 || d > 25.1 {
		t.Errorf("auto camera distance^2 = %g, want 25", d)
	}
}

func TestExecuteTransform(t *testing.T) {
	ctx := context.Background()
	runner := NewRunner(nil, nil, nil)

	m := testManifest(t)
	m.Boundaries[0].Transform.Location = [3]float64{10, 0, 0}
	m.Camera.Location = &[3]float64{10, -4.8, 1.8}
	m.Camera.Target = &[3]float64{10, 0, 0}

	result, err := runner.Execute(ctx, Options{Manifest: m})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// All vertices should sit around the translated center.
	for _, v := range result.Scene.Boundaries[0].Vertices {
		if v[0] < 8.9 || v[0] > 11.1 {
			t.Fatalf("vertex %v not translated to x≈10", v)
		}
	}
	// Placement still works against the moved solid.
	if len(result.Scene.Boundaries[0].Labels) != 1 {
		t.Error("label missing after transform")
	}
}

func TestOptionsValidation(t *testing.T) {
	runner := NewRunner(nil, nil, nil)

	t.Run("nil manifest", func(t *testing.T) {
		_, err := runner.Execute(context.Background(), Options{})
		if !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("code = %v, want INVALID_INPUT", errors.GetCode(err))
		}
	})

	t.Run("bad format", func(t *testing.T) {
		_, err := runner.Execute(context.Background(), Options{
			Manifest: testManifest(t),
			Formats:  []string{"png"},
		})
		if !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("code = %v, want INVALID_FORMAT", errors.GetCode(err))
		}
	})
}

// slowBuildHooks records per-boundary stage durations and stalls inside
// the completion callback, so any duration measured from a start time
// shared across boundaries would absorb earlier boundaries' stalls.
type slowBuildHooks struct {
	observability.NoopBuildHooks
	topo  []time.Duration
	place []time.Duration
}

func (h *slowBuildHooks) OnTopologyComplete(ctx context.Context, shape string, vertexCount int, d time.Duration, err error) {
	h.topo = append(h.topo, d)
	time.Sleep(30 * time.Millisecond)
}

func (h *slowBuildHooks) OnPlacementComplete(ctx context.Context, boundary string, d time.Duration, err error) {
	h.place = append(h.place, d)
	time.Sleep(30 * time.Millisecond)
}

func TestHookDurationsPerBoundary(t *testing.T) {
	hooks := &slowBuildHooks{}
	observability.SetBuildHooks(hooks)
	t.Cleanup(observability.Reset)

	m, err := manifest.Parse([]byte(`{
		"boundaries": [
			{"name": "a", "shape": {"type": "cube"}, "radius": 1.0},
			{"name": "b", "shape": {"type": "octahedron"}, "radius": 1.0, "transform": {"location": [5, 0, 0]}}
		],
		"camera": {"location": [2.5, -8, 3], "target": [2.5, 0, 0]},
		"render": {"resolution_x": 640, "resolution_y": 480, "formats": ["json"]}
	}`), "json")
	if err != nil {
		t.Fatalf("manifest.Parse: %v", err)
	}

	runner := NewRunner(nil, nil, nil)
	if _, err := runner.Execute(context.Background(), Options{Manifest: m}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(hooks.topo) != 2 || len(hooks.place) != 2 {
		t.Fatalf("hook calls = %d topology, %d placement; want 2/2", len(hooks.topo), len(hooks.place))
	}
	// Each boundary's reported duration covers only its own work; the
	// second must not include the first boundary's 30ms hook stall.
	for i, d := range hooks.topo {
		if d >= 25*time.Millisecond {
			t.Errorf("topology duration[%d] = %v, accumulated across boundaries", i, d)
		}
	}
	for i, d := range hooks.place {
		if d >= 25*time.Millisecond {
			t.Errorf("placement duration[%d] = %v, accumulated across boundaries", i, d)
		}
	}
}

func TestBuildTopology(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	mesh, err := runner.BuildTopology(context.Background(), "dodecahedron", 2.0, 0)
	if err != nil {
		t.Fatalf("BuildTopology: %v", err)
	}
	if len(mesh.Vertices) != 20 || len(mesh.Faces) != 12 {
		t.Errorf("dodecahedron V/F = %d/%d, want 20/12", len(mesh.Vertices), len(mesh.Faces))
	}
}
