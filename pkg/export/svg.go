package export

import (
	"bytes"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mwolters/polymark/pkg/camera"
)

type svgRenderer struct {
	edgeColor    string
	vertexColor  string
	calloutColor string
	background   string
}

// SVGOption customizes the preview styling.
type SVGOption func(*svgRenderer)

func WithEdgeColor(c string) SVGOption    { return func(r *svgRenderer) { r.edgeColor = c } }
func WithCalloutColor(c string) SVGOption { return func(r *svgRenderer) { r.calloutColor = c } }
func WithBackground(c string) SVGOption   { return func(r *svgRenderer) { r.background = c } }

// RenderSVG draws the scene's projected wireframe and callouts. It is a
// diagnostic preview, not the final render: flat lines, no shading, text
// as plain SVG text next to each tip.
func RenderSVG(s *Scene, opts ...SVGOption) []byte {
	r := svgRenderer{
		edgeColor:    "#d0d0d8",
		vertexColor:  "#e05555",
		calloutColor: "#3a7bd5",
		background:   "#101018",
	}
	for _, opt := range opts {
		opt(&r)
	}

	cam := s.Camera.toCamera()
	w, h := float64(cam.Width), float64(cam.Height)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.0f %.0f" width="%.0f" height="%.0f">`+"\n", w, h, w, h)
	fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", r.background)

	for _, b := range s.Boundaries {
		renderWireframe(&buf, cam, &r, b)
	}
	for _, b := range s.Boundaries {
		renderCallouts(&buf, cam, &r, b.Labels)
		renderCallouts(&buf, cam, &r, b.Ports)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// project returns the pixel position of a world point, with ok false for
// points behind the camera. SVG's y axis grows downward, so the NDC y is
// flipped here.
func project(cam camera.Camera, p [3]float64) (x, y float64, ok bool) {
	n := cam.ToNDC(mgl64.Vec3{p[0], p[1], p[2]})
	if n.Z < 0 {
		return 0, 0, false
	}
	px := cam.NDCToPx(n)
	return px.X(), float64(cam.Height) - px.Y(), true
}

func renderWireframe(buf *bytes.Buffer, cam camera.Camera, r *svgRenderer, b Boundary) {
	fmt.Fprintf(buf, `  <g id="wire-%s" stroke="%s" stroke-width="2" fill="none">`+"\n", b.Name, r.edgeColor)
	for _, e := range b.Edges {
		x1, y1, ok1 := project(cam, b.Vertices[e[0]])
		x2, y2, ok2 := project(cam, b.Vertices[e[1]])
		if !ok1 || !ok2 {
			continue
		}
		fmt.Fprintf(buf, `    <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`+"\n", x1, y1, x2, y2)
	}
	buf.WriteString("  </g>\n")

	fmt.Fprintf(buf, `  <g id="verts-%s" fill="%s">`+"\n", b.Name, r.vertexColor)
	for _, v := range b.Vertices {
		x, y, ok := project(cam, v)
		if !ok {
			continue
		}
		fmt.Fprintf(buf, `    <circle cx="%.1f" cy="%.1f" r="4"/>`+"\n", x, y)
	}
	buf.WriteString("  </g>\n")
}

func renderCallouts(buf *bytes.Buffer, cam camera.Camera, r *svgRenderer, callouts []Callout) {
	for _, c := range callouts {
		bx, by, okB := project(cam, c.Base)
		tx, ty, okT := project(cam, c.Tip)
		if !okB || !okT {
			continue
		}
		fmt.Fprintf(buf, `  <g id="callout-%s" stroke="%s" fill="%s">`+"\n", c.Name, r.calloutColor, r.calloutColor)
		fmt.Fprintf(buf, `    <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke-width="3"/>`+"\n", bx, by, tx, ty)
		fmt.Fprintf(buf, `    <circle cx="%.1f" cy="%.1f" r="5"/>`+"\n", tx, ty)
		text := c.Text
		if text == "" {
			text = c.Name
		}
		fmt.Fprintf(buf, `    <text x="%.1f" y="%.1f" stroke="none" font-family="sans-serif" font-size="16">%s</text>`+"\n",
			tx+10, ty-10, escapeText(text))
		buf.WriteString("  </g>\n")
	}
}

func escapeText(s string) string {
	var out bytes.Buffer
	for _, r := range s {
		switch r {
		case '&':
			out.WriteString("&amp;")
		case '<':
			out.WriteString("&lt;")
		case '>':
			out.WriteString("&gt;")
		default:
			out.WriteRune(r)
		}
	}
	return out.String()
}

func (c Camera) toCamera() camera.Camera {
	return camera.Camera{
		Position:   mgl64.Vec3{c.Position[0], c.Position[1], c.Position[2]},
		Target:     mgl64.Vec3{c.Target[0], c.Target[1], c.Target[2]},
		LensMM:     c.LensMM,
		Ortho:      c.Ortho,
		OrthoScale: c.OrthoScale,
		Width:      c.Width,
		Height:     c.Height,
	}
}
