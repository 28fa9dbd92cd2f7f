// Package pipeline provides the core scene build pipeline.
//
// This package implements the complete topology → placement → artifact
// pipeline used by both the CLI and the HTTP API. Centralizing it keeps
// behavior identical across entry points and puts the caching logic in
// one place.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Topology: build each boundary's polyhedron mesh and wireframe
//  2. Placement: resolve the camera and place every label and port
//  3. Artifact: serialize the scene (JSON) and render the SVG preview
//
// Topology and artifacts are cached; placement is fast enough to always
// recompute and depends on everything else anyway.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{Manifest: m})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/mwolters/polymark/pkg/errors"
	"github.com/mwolters/polymark/pkg/export"
	"github.com/mwolters/polymark/pkg/manifest"
)

// Cache TTLs per stage. Topology is pure math and can live long;
// artifacts embed format details that change more often.
const (
	TTLTopology = 7 * 24 * time.Hour
	TTLArtifact = 24 * time.Hour
)

// Options configure one pipeline execution.
type Options struct {
	// Manifest is the validated scene description.
	Manifest *manifest.Manifest

	// Formats overrides the manifest's artifact formats when non-empty.
	Formats []string

	// Refresh bypasses cache reads (results are still written back).
	Refresh bool

	// Logger overrides the runner's logger for this execution.
	Logger *log.Logger
}

// ValidateAndSetDefaults checks the options and fills derived fields.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Manifest == nil {
		return errors.New(errors.ErrCodeInvalidInput, "pipeline options require a manifest")
	}
	if len(o.Formats) == 0 {
		o.Formats = o.Manifest.Render.Formats
	}
	for _, f := range o.Formats {
		if f != "json" && f != "svg" {
			return errors.New(errors.ErrCodeInvalidFormat, "unknown artifact format %q", f)
		}
	}
	return nil
}

// Stats holds per-stage timing and scene size counters.
type Stats struct {
	TopologyTime  time.Duration `json:"topology_time"`
	PlacementTime time.Duration `json:"placement_time"`
	ArtifactTime  time.Duration `json:"artifact_time"`

	VertexCount int `json:"vertex_count"`
	EdgeCount   int `json:"edge_count"`
	FaceCount   int `json:"face_count"`
	Callouts    int `json:"callouts"`
}

// CacheInfo reports which stages were served from cache.
type CacheInfo struct {
	TopologyHits   int  `json:"topology_hits"`
	TopologyMisses int  `json:"topology_misses"`
	ArtifactHit    bool `json:"artifact_hit"`
}

// Result is the outcome of one pipeline execution.
type Result struct {
	// ID uniquely identifies this build.
	ID string `json:"id"`

	// Scene is the resolved scene document.
	Scene *export.Scene `json:"scene"`

	// SceneHash fingerprints the scene JSON, usable as an ETag.
	SceneHash string `json:"scene_hash"`

	// Artifacts maps format name to rendered bytes.
	Artifacts map[string][]byte `json:"-"`

	Stats     Stats     `json:"stats"`
	CacheInfo CacheInfo `json:"cache_info"`
}
