// Package export serializes build results for the external renderer: a
// scene JSON document carrying meshes, wireframe edges, and placements,
// plus a 2D SVG preview for quick inspection without a render engine.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Scene is the complete build output handed to the host renderer.
type Scene struct {
	Boundaries []Boundary `json:"boundaries"`
	Camera     Camera     `json:"camera"`
}

// Boundary carries one solid's geometry and its resolved callouts.
type Boundary struct {
	Name     string       `json:"name"`
	Vertices [][3]float64 `json:"vertices"`
	Faces    [][]int      `json:"faces"`
	Edges    [][2]int     `json:"edges"`
	Labels   []Callout    `json:"labels,omitempty"`
	Ports    []Callout    `json:"ports,omitempty"`
}

// Callout is one placed label or port connector.
type Callout struct {
	Name      string     `json:"name"`
	Text      string     `json:"text,omitempty"`
	SiteKind  string     `json:"site_kind"`
	SiteIndex int        `json:"site_index"`
	Base      [3]float64 `json:"base"`
	Dir       [3]float64 `json:"dir"`
	Length    float64    `json:"length"`
	Tip       [3]float64 `json:"tip"`
	Flow      string     `json:"flow,omitempty"`
	Fallback  bool       `json:"fallback,omitempty"`
}

// Camera is the resolved pose the placements were computed under.
type Camera struct {
	Position   [3]float64 `json:"position"`
	Target     [3]float64 `json:"target"`
	LensMM     float64    `json:"lens_mm"`
	Ortho      bool       `json:"ortho,omitempty"`
	OrthoScale float64    `json:"ortho_scale,omitempty"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
}

// WriteJSON encodes a scene as indented JSON. The output can be
// re-imported with [ReadJSON] for round-trip processing.
func WriteJSON(s *Scene, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	return nil
}

// ExportJSON writes a scene to a JSON file at path.
// This is a convenience wrapper around [WriteJSON] for file-based output.
func ExportJSON(s *Scene, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(s, f)
}

// ReadJSON decodes a scene document.
func ReadJSON(r io.Reader) (*Scene, error) {
	var s Scene
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	return &s, nil
}
