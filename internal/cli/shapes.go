package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwolters/polymark/pkg/topology"
	"github.com/mwolters/polymark/pkg/wireframe"
)

// newShapesCmd creates the shapes command for inspecting the supported
// boundary solids.
//
// Without arguments it lists every shape with its vertex, edge and face
// counts. With a shape name it prints the full description, honoring the
// --radius and --subdivisions flags.
func newShapesCmd() *cobra.Command {
	var (
		radius       float64
		subdivisions int
	)

	cmd := &cobra.Command{
		Use:   "shapes [shape]",
		Short: "List or describe the supported boundary solids",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return listShapes()
			}
			return describeShape(args[0], radius, subdivisions)
		},
	}

	cmd.Flags().Float64Var(&radius, "radius", 1.0, "circumradius of the solid")
	cmd.Flags().IntVar(&subdivisions, "subdivisions", 0, "icosphere subdivision level")

	return cmd
}

func listShapes() error {
	fmt.Println(StyleTitle.Render("Supported shapes"))
	for _, shape := range topology.Shapes() {
		mesh, err := topology.Build(shape, 1.0, 0)
		if err != nil {
			return err
		}
		edges := wireframe.FromMesh(mesh, 0)
		printDetail("%-14s %3d vertices, %3d edges, %3d faces",
			shape, len(mesh.Vertices), len(edges), len(mesh.Faces))
	}
	return nil
}

func describeShape(name string, radius float64, subdivisions int) error {
	shape, err := topology.ParseShape(name)
	if err != nil {
		return err
	}
	mesh, err := topology.Build(shape, radius, subdivisions)
	if err != nil {
		return err
	}
	edges := wireframe.FromMesh(mesh, 0)

	printKeyValue("shape", string(shape))
	printKeyValue("radius", fmt.Sprintf("%g", radius))
	if shape == topology.ShapeIcosphere {
		printKeyValue("subdivisions", fmt.Sprintf("%d", subdivisions))
	}
	printKeyValue("vertices", fmt.Sprintf("%d", len(mesh.Vertices)))
	printKeyValue("edges", fmt.Sprintf("%d", len(edges)))
	printKeyValue("faces", fmt.Sprintf("%d", len(mesh.Faces)))

	// Euler characteristic is a quick sanity check for closed solids.
	euler := len(mesh.Vertices) - len(edges) + len(mesh.Faces)
	printKeyValue("euler", fmt.Sprintf("%d", euler))
	if euler != 2 {
		printWarning("Euler characteristic is %d, expected 2 for a closed solid", euler)
	}
	return nil
}
