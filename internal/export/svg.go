package export

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/san-kum/clothfield/internal/analysis"
	"github.com/san-kum/clothfield/internal/cloth"
	"github.com/san-kum/clothfield/internal/field"
	"github.com/san-kum/clothfield/internal/viz"
	"gonum.org/v1/gonum/spatial/r3"
)

// Scene is one cloth frame with the context needed to draw it.
type Scene struct {
	Positions     []r3.Vec
	Springs       []cloth.Spring
	Width, Height int
	Cells         []field.Cell
}

type SVGOptions struct {
	Width, Height int
	Yaw, Pitch    float64
	Zoom          float64
	Background    string
	Fill          string
	Stroke        string
	Arrow         string
	Springs       bool
	Field         bool
	ArrowLength   float64
}

func DefaultSVGOptions() SVGOptions {
	return SVGOptions{
		Width:       800,
		Height:      600,
		Yaw:         0.4,
		Pitch:       0.6,
		Zoom:        1,
		Background:  "#0a0a0a",
		Fill:        "#e8dcc4",
		Stroke:      "#c9a66b",
		Arrow:       "#00ccff",
		Springs:     true,
		Field:       true,
		ArrowLength: 0.5,
	}
}

type shadedTriangle struct {
	pts   [3][2]int
	depth float64
	shade float64
}

func (s Scene) camera(opts SVGOptions) (*viz.Camera, *viz.Wireframe) {
	wire := viz.NewWireframe()
	wire.AddCloth(s.Positions, s.Springs, s.Width)
	if opts.Field {
		wire.AddField(s.Cells, opts.ArrowLength)
	}
	cam := viz.NewCamera()
	cam.Fit(wire.Bounds())
	cam.Yaw, cam.Pitch = opts.Yaw, opts.Pitch
	if opts.Zoom > 0 {
		cam.Zoom = opts.Zoom
	}
	return cam, wire
}

// triangles splits every grid quad into two triangles and shades each by
// how directly it faces the camera.
func (s Scene) triangles(cam *viz.Camera, sw, sh int) []shadedTriangle {
	w := s.Width
	if w < 2 || s.Height < 2 || len(s.Positions) < w*s.Height {
		return nil
	}
	out := make([]shadedTriangle, 0, 2*(w-1)*(s.Height-1))
	add := func(a, b, c int) {
		view := r3.Triangle{cam.View(s.Positions[a]), cam.View(s.Positions[b]), cam.View(s.Positions[c])}
		n := view.Normal()
		norm := r3.Norm(n)
		if norm == 0 {
			return
		}
		var t shadedTriangle
		for k, idx := range [3]int{a, b, c} {
			x, y, _, _ := cam.Project(s.Positions[idx], sw, sh)
			t.pts[k] = [2]int{x, y}
		}
		t.depth = view.Centroid().Z
		t.shade = math.Abs(n.Z) / norm
		out = append(out, t)
	}
	for y := 0; y < s.Height-1; y++ {
		for x := 0; x < w-1; x++ {
			i := y*w + x
			add(i, i+w, i+1)
			add(i+1, i+w, i+w+1)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].depth < out[j].depth })
	return out
}

// FrameSVG renders the scene as shaded triangles with optional spring lines
// and field arrows.
func FrameSVG(s Scene, opts SVGOptions) string {
	cam, wire := s.camera(opts)
	sw, sh := opts.Width, opts.Height

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<defs><marker id="head" markerWidth="6" markerHeight="6" refX="5" refY="3" orient="auto"><path d="M0,0 L6,3 L0,6 z" fill="%s"/></marker></defs>
<rect width="100%%" height="100%%" fill="%s"/>
`, sw, sh, sw, sh, opts.Arrow, opts.Background)

	fmt.Fprintf(&sb, `<g id="cloth" fill="%s">`+"\n", opts.Fill)
	for _, t := range s.triangles(cam, sw, sh) {
		fmt.Fprintf(&sb, `<polygon points="%d,%d %d,%d %d,%d" fill-opacity="%.3f"/>`+"\n",
			t.pts[0][0], t.pts[0][1], t.pts[1][0], t.pts[1][1], t.pts[2][0], t.pts[2][1], 0.2+0.8*t.shade)
	}
	sb.WriteString("</g>\n")

	if opts.Springs {
		fmt.Fprintf(&sb, `<g id="springs" stroke="%s" stroke-width="1">`+"\n", opts.Stroke)
		for _, e := range viz.ProjectEdges(wire, cam, viz.LayerStructural|viz.LayerShear, sw, sh) {
			fmt.Fprintf(&sb, `<line x1="%d" y1="%d" x2="%d" y2="%d"/>`+"\n", e.X1, e.Y1, e.X2, e.Y2)
		}
		sb.WriteString("</g>\n")
	}

	if opts.Field {
		fmt.Fprintf(&sb, `<g id="field" stroke="%s" stroke-width="1.5" marker-end="url(#head)">`+"\n", opts.Arrow)
		for _, e := range viz.ProjectEdges(wire, cam, viz.LayerField, sw, sh) {
			fmt.Fprintf(&sb, `<line x1="%d" y1="%d" x2="%d" y2="%d"/>`+"\n", e.X1, e.Y1, e.X2, e.Y2)
		}
		sb.WriteString("</g>\n")
	}

	fmt.Fprintf(&sb, `<g id="pinned" fill="%s">`+"\n", opts.Stroke)
	for _, e := range viz.ProjectEdges(wire, cam, viz.LayerPinned, sw, sh) {
		fmt.Fprintf(&sb, `<circle cx="%d" cy="%d" r="3"/>`+"\n", e.X1, e.Y1)
	}
	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

func WriteFrameSVG(w io.Writer, s Scene, opts SVGOptions) error {
	_, err := io.WriteString(w, FrameSVG(s, opts))
	return err
}

// CanvasToSVG converts a braille canvas to one circle per lit dot.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	dw, dh := canvas.Dots()
	width := float64(dw) * scale
	height := float64(dh) * scale

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="#00ff00">
`, width, height, width, height)

	dotRadius := scale * 0.4
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			if !canvas.IsSet(x, y) {
				continue
			}
			cx := float64(x)*scale + scale/2
			cy := float64(y)*scale + scale/2
			fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f"/>`+"\n", cx, cy, dotRadius)
		}
	}

	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

// TrajectoryToSVG draws points as one polyline scaled to fit with a 10%
// margin. It returns "" for fewer than two points.
func TrajectoryToSVG(points []analysis.PhasePoint, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor)

	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)
		if i > 0 {
			sb.WriteString(" L")
		}
		fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
	}

	sb.WriteString("\"/>\n</svg>\n")
	return sb.String()
}
