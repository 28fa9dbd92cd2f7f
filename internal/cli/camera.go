package cli

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/cobra"

	"github.com/mwolters/polymark/pkg/camera"
	"github.com/mwolters/polymark/pkg/errors"
	"github.com/mwolters/polymark/pkg/manifest"
	"github.com/mwolters/polymark/pkg/topology"
)

// newCameraCmd creates the camera command that prints the automatic
// camera choice for a manifest without building the scene.
//
// Useful when iterating on a manifest: run it, see where the camera would
// end up, then pin the position with an explicit camera.location once the
// framing looks right.
func newCameraCmd() *cobra.Command {
	var boundary string

	cmd := &cobra.Command{
		Use:   "camera [manifest]",
		Short: "Print the automatic camera choice for a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.Load(args[0])
			if err != nil {
				return err
			}
			return printCameraChoice(m, boundary)
		},
	}

	cmd.Flags().StringVar(&boundary, "boundary", "", "anchor boundary (default: first in the manifest)")

	return cmd
}

func printCameraChoice(m *manifest.Manifest, name string) error {
	b := &m.Boundaries[0]
	if name != "" {
		b = nil
		for i := range m.Boundaries {
			if m.Boundaries[i].Name == name {
				b = &m.Boundaries[i]
				break
			}
		}
		if b == nil {
			return errors.New(errors.ErrCodeBoundaryNotFound, "boundary %q not found in manifest", name)
		}
	}

	if m.Camera.Location != nil {
		printInfo("Manifest pins the camera explicitly; nothing to choose")
		printKeyValue("location", fmtVec(mgl64.Vec3(*m.Camera.Location)))
		return nil
	}

	shape, err := topology.ParseShape(b.Shape.Type)
	if err != nil {
		return err
	}
	mesh, err := topology.Build(shape, b.Radius, b.Shape.Subdivisions)
	if err != nil {
		return err
	}

	target := mgl64.Vec3(b.Transform.Location)
	if m.Camera.Target != nil {
		target = mgl64.Vec3(*m.Camera.Target)
	}
	pos := camera.AutoPosition(mesh, target, m.Camera.Distance, camera.DirectorOptions{})
	dir := pos.Sub(target).Normalize()

	printKeyValue("boundary", b.Name)
	printKeyValue("target", fmtVec(target))
	printKeyValue("distance", fmt.Sprintf("%g", m.Camera.Distance))
	printKeyValue("direction", fmtVec(dir))
	printKeyValue("position", fmtVec(pos))
	return nil
}

func fmtVec(v mgl64.Vec3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v[0], v[1], v[2])
}
