package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mwolters/polymark/pkg/manifest"
	"github.com/mwolters/polymark/pkg/pipeline"
)

// buildOpts holds the command-line flags for the build command.
type buildOpts struct {
	output  string // output base path (extension per format is appended)
	formats string // comma-separated artifact formats, overrides the manifest
	noCache bool   // disable the local build cache
	refresh bool   // recompute even when a cached result exists
}

// newBuildCmd creates the build command that resolves a manifest into
// scene artifacts.
//
// The output path is resolved in order of preference: the --output flag,
// the manifest's render.output setting, then the manifest file name with
// its extension stripped. One file per format is written next to it.
func newBuildCmd() *cobra.Command {
	var opts buildOpts

	cmd := &cobra.Command{
		Use:   "build [manifest]",
		Short: "Build scene artifacts from a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output base path (default: manifest name)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "artifact format(s): json, svg (comma-separated)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the local build cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass cached results and recompute")

	return cmd
}

func runBuild(ctx context.Context, path string, opts *buildOpts) error {
	logger := loggerFromContext(ctx)

	m, err := manifest.Load(path)
	if err != nil {
		return err
	}
	logger.Debugf("Loaded manifest: %d boundaries, %d labels, %d ports",
		len(m.Boundaries), len(m.Labels), len(m.Ports))

	runner, err := newRunner(opts.noCache, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Building scene...")
	spinner.Start()

	prog := newProgress(logger)
	result, err := runner.Execute(ctx, pipeline.Options{
		Manifest: m,
		Formats:  splitFormats(opts.formats),
		Refresh:  opts.refresh,
	})
	if err != nil {
		spinner.StopWithError("Build failed")
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Resolved scene %s", result.SceneHash[:12]))

	base := outputBase(opts.output, m.Render.Output, path)
	if err := writeArtifacts(base, result.Artifacts); err != nil {
		return err
	}

	printSuccess("Built %d boundaries, %d callouts", len(result.Scene.Boundaries), result.Stats.Callouts)
	printSceneStats(result.Stats.VertexCount, result.Stats.EdgeCount, result.Stats.Callouts,
		result.CacheInfo.TopologyHits > 0)
	for _, format := range sortedFormats(result.Artifacts) {
		printFile(base + "." + format)
	}
	return nil
}

// splitFormats parses the --format flag. Empty means "use the manifest's
// formats" (pipeline default).
func splitFormats(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// outputBase resolves the artifact base path, stripping a format extension
// if the caller supplied one.
func outputBase(flag, manifestOutput, input string) string {
	base := flag
	if base == "" {
		base = manifestOutput
	}
	if base == "" {
		base = input
	}
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	if ext == "json" || ext == "svg" || base == input {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return base
}

func writeArtifacts(base string, artifacts map[string][]byte) error {
	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	for _, format := range sortedFormats(artifacts) {
		path := base + "." + format
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

// sortedFormats returns the artifact formats in a stable order.
func sortedFormats(artifacts map[string][]byte) []string {
	ordered := []string{"json", "svg"}
	out := make([]string, 0, len(artifacts))
	for _, f := range ordered {
		if _, ok := artifacts[f]; ok {
			out = append(out, f)
		}
	}
	return out
}
