package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mwolters/polymark/pkg/errors"
)

const jsonManifest = `{
	"global_scale": 2.0,
	"boundaries": [
		{
			"name": "main",
			"shape": {"type": "icosahedron"},
			"radius": 1.0
		}
	],
	"labels": [
		{
			"name": "top",
			"text": "Apex",
			"target": "main",
			"cylinder": {"length_min": 0.6, "length_max": 2.8}
		}
	],
	"ports": [
		{"name": "p1", "target": "main", "flow": "INFO"}
	],
	"camera": {"location": [0, -4.8, 1.8]},
	"render": {"resolution_x": 1920, "resolution_y": 1080, "formats": ["json", "svg"]}
}`

const tomlManifest = `
[[boundaries]]
name = "main"
radius = 1.0

[boundaries.shape]
type = "cube"

[[labels]]
name = "front"
text = "Front"
target = "main"

[camera]
distance = 6.0
`

func TestParseJSON(t *testing.T) {
	m, err := Parse([]byte(jsonManifest), "json")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(m.Boundaries) != 1 || m.Boundaries[0].Name != "main" {
		t.Fatalf("boundaries = %+v", m.Boundaries)
	}
	if m.Boundaries[0].Shape.Type != "icosahedron" {
		t.Errorf("shape = %q", m.Boundaries[0].Shape.Type)
	}

	t.Run("global scale applied and reset", func(t *testing.T) {
		if m.GlobalScale != 1.0 {
			t.Errorf("GlobalScale = %g, want 1 after scaling", m.GlobalScale)
		}
		if m.Boundaries[0].Radius != 2.0 {
			t.Errorf("scaled radius = %g, want 2", m.Boundaries[0].Radius)
		}
		if m.Labels[0].Cylinder.LengthMin != 1.2 {
			t.Errorf("scaled length_min = %g, want 1.2", m.Labels[0].Cylinder.LengthMin)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		if m.Labels[0].Direction != "OUT" {
			t.Errorf("label direction = %q, want OUT", m.Labels[0].Direction)
		}
		if m.Labels[0].Attach.SiteType != "FACE" {
			t.Errorf("label site = %q, want FACE", m.Labels[0].Attach.SiteType)
		}
		if m.Ports[0].Attach.SiteType != "VERTEX" {
			t.Errorf("port site = %q, want VERTEX", m.Ports[0].Attach.SiteType)
		}
		if m.Camera.LensMM != 50.0 {
			t.Errorf("lens = %g, want 50", m.Camera.LensMM)
		}
	})
}

func TestParseTOML(t *testing.T) {
	m, err := Parse([]byte(tomlManifest), "toml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Boundaries[0].Shape.Type != "cube" {
		t.Errorf("shape = %q, want cube", m.Boundaries[0].Shape.Type)
	}
	if m.Camera.Distance != 6.0 {
		t.Errorf("distance = %g, want 6", m.Camera.Distance)
	}
	if m.Render.ResolutionX != 1024 {
		t.Errorf("default resolution = %d, want 1024", m.Render.ResolutionX)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code errors.Code
	}{
		{
			"no boundaries",
			`{"boundaries": []}`,
			errors.ErrCodeInvalidManifest,
		},
		{
			"unknown shape",
			`{"boundaries": [{"name": "b", "shape": {"type": "torus"}}]}`,
			errors.ErrCodeInvalidShape,
		},
		{
			"duplicate boundary names",
			`{"boundaries": [
				{"name": "b", "shape": {"type": "cube"}},
				{"name": "b", "shape": {"type": "cube"}}
			]}`,
			errors.ErrCodeInvalidManifest,
		},
		{
			"label targets missing boundary",
			`{"boundaries": [{"name": "b", "shape": {"type": "cube"}}],
			  "labels": [{"name": "l", "target": "nope"}]}`,
			errors.ErrCodeBoundaryNotFound,
		},
		{
			"bad direction",
			`{"boundaries": [{"name": "b", "shape": {"type": "cube"}}],
			  "labels": [{"name": "l", "direction": "SIDEWAYS"}]}`,
			errors.ErrCodeInvalidAttach,
		},
		{
			"bad flow",
			`{"boundaries": [{"name": "b", "shape": {"type": "cube"}}],
			  "ports": [{"name": "p", "flow": "WATER"}]}`,
			errors.ErrCodeInvalidAttach,
		},
		{
			"bad artifact format",
			`{"boundaries": [{"name": "b", "shape": {"type": "cube"}}],
			  "render": {"formats": ["bmp"]}}`,
			errors.ErrCodeInvalidFormat,
		},
		{
			"malformed json",
			`{"boundaries": [`,
			errors.ErrCodeInvalidManifest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), "json")
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("code = %v, want %v", errors.GetCode(err), tt.code)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("json file", func(t *testing.T) {
		path := filepath.Join(dir, "scene.json")
		if err := os.WriteFile(path, []byte(jsonManifest), 0o644); err != nil {
			t.Fatal(err)
		}
		m, err := Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if m.Boundaries[0].Name != "main" {
			t.Errorf("boundary = %q", m.Boundaries[0].Name)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "absent.json"))
		if !errors.Is(err, errors.ErrCodeFileNotFound) {
			t.Errorf("code = %v, want FILE_NOT_FOUND", errors.GetCode(err))
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := filepath.Join(dir, "scene.yaml")
		if err := os.WriteFile(path, []byte("boundaries: []"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("expected an error for .yaml")
		}
	})
}

func TestExplicitAttachIndexSurvivesDecoding(t *testing.T) {
	// Index 0 is a valid explicit site and must stay distinguishable
	// from an absent index.
	doc := `{"boundaries": [{"name": "b", "shape": {"type": "cube"}}],
	  "ports": [{"name": "p", "attach": {"index": 0}}]}`
	m, err := Parse([]byte(doc), "json")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Ports[0].Attach.Index == nil || *m.Ports[0].Attach.Index != 0 {
		t.Errorf("Index = %v, want explicit 0", m.Ports[0].Attach.Index)
	}
}
