package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwolters/polymark/pkg/topology"
	"github.com/mwolters/polymark/pkg/wireframe"
)

// newEdgesCmd creates the edges command, a debug tool for wireframe edge
// extraction.
//
// Icospheres dedupe shared edges aggressively and drop edges between
// near-coplanar faces; this command makes the effect of the coplanar
// threshold visible without building a full scene.
func newEdgesCmd() *cobra.Command {
	var (
		radius       float64
		subdivisions int
		coplanarDot  float64
		list         bool
	)

	cmd := &cobra.Command{
		Use:   "edges [shape]",
		Short: "Inspect wireframe edge extraction for a solid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shape, err := topology.ParseShape(args[0])
			if err != nil {
				return err
			}
			mesh, err := topology.Build(shape, radius, subdivisions)
			if err != nil {
				return err
			}

			// A threshold above 1 keeps every shared edge, diagonals included.
			all := wireframe.FromMesh(mesh, 1.01)
			kept := wireframe.FromMesh(mesh, coplanarDot)

			printKeyValue("shape", string(shape))
			printKeyValue("edges", fmt.Sprintf("%d", len(kept)))
			if dropped := len(all) - len(kept); dropped > 0 {
				printKeyValue("dropped", fmt.Sprintf("%d near-coplanar (dot > %g)", dropped, coplanarDot))
			}

			if list {
				for _, e := range kept {
					a, b := mesh.Vertices[e.I], mesh.Vertices[e.J]
					printDetail("%3d %s %3d  len %.4f", e.I, iconArrow, e.J, a.Sub(b).Len())
				}
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&radius, "radius", 1.0, "circumradius of the solid")
	cmd.Flags().IntVar(&subdivisions, "subdivisions", 0, "icosphere subdivision level")
	cmd.Flags().Float64Var(&coplanarDot, "coplanar-dot", wireframe.DefaultCoplanarDot, "drop edges whose face normals agree beyond this dot product")
	cmd.Flags().BoolVar(&list, "list", false, "print every edge with its endpoint indices and length")

	return cmd
}
