package viz

import (
	"math"
	"sort"

	"github.com/san-kum/clothfield/internal/cloth"
	"github.com/san-kum/clothfield/internal/field"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	axisX = r3.Vec{X: 1}
	axisY = r3.Vec{Y: 1}
	axisZ = r3.Vec{Z: 1}
)

// Camera projects world points onto a dot grid. It orbits Target; Extent is
// the world radius that fills the shorter screen side at Zoom 1.
type Camera struct {
	Target           r3.Vec
	Distance, Near   float64
	Yaw, Pitch, Roll float64
	Zoom, Extent     float64
}

func NewCamera() *Camera {
	return &Camera{Distance: 4, Near: 0.1, Zoom: 1, Extent: 1}
}

// Fit centers the camera on b and sizes it so the whole box stays on
// screen under any rotation at Zoom 1.
func (c *Camera) Fit(b r3.Box) {
	r := math.Max(r3.Norm(b.Size())/2, 1e-6)
	c.Target = b.Center()
	c.Distance = 4 * r
	c.Near = r / 10
	// Perspective enlarges the nearest points by 4/3.
	c.Extent = 1.5 * r
}

func (c *Camera) RotateX(a float64) { c.Pitch += a }
func (c *Camera) RotateY(a float64) { c.Yaw += a }
func (c *Camera) RotateZ(a float64) { c.Roll += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

// View returns p in camera space, with the eye on the +Z axis.
func (c *Camera) View(p r3.Vec) r3.Vec {
	q := r3.Sub(p, c.Target)
	if c.Yaw != 0 {
		q = r3.Rotate(q, c.Yaw, axisY)
	}
	if c.Pitch != 0 {
		q = r3.Rotate(q, c.Pitch, axisX)
	}
	if c.Roll != 0 {
		q = r3.Rotate(q, c.Roll, axisZ)
	}
	return q
}

// Project maps p onto a sw x sh dot grid. It returns the screen position,
// the camera-space depth (larger is nearer) and whether the point lands on
// screen in front of the near plane.
func (c *Camera) Project(p r3.Vec, sw, sh int) (int, int, float64, bool) {
	q := c.View(p)
	if c.behind(q) {
		return 0, 0, q.Z, false
	}
	persp := c.Distance / (c.Distance - q.Z)
	s := float64(min(sw, sh)) / 2 / c.Extent * c.Zoom * persp
	sx := int(math.Round(q.X*s)) + sw/2
	sy := int(math.Round(-q.Y*s)) + sh/2
	return sx, sy, q.Z, sx >= 0 && sx < sw && sy >= 0 && sy < sh
}

func (c *Camera) behind(q r3.Vec) bool { return q.Z >= c.Distance-c.Near }

// Layer tags wireframe edges so views can toggle them.
type Layer uint8

const (
	LayerStructural Layer = 1 << iota
	LayerShear
	LayerField
	LayerPinned

	LayerAll = LayerStructural | LayerShear | LayerField | LayerPinned
)

type Edge struct {
	Start, End r3.Vec
	Layer      Layer
}

type Wireframe struct{ Edges []Edge }

func NewWireframe() *Wireframe { return &Wireframe{} }

func (w *Wireframe) AddEdge(s, e r3.Vec, l Layer) { w.Edges = append(w.Edges, Edge{s, e, l}) }
func (w *Wireframe) AddPoint(p r3.Vec, l Layer)   { w.Edges = append(w.Edges, Edge{p, p, l}) }
func (w *Wireframe) Clear()                       { w.Edges = w.Edges[:0] }

// Bounds returns the box enclosing every edge endpoint. The box may be flat
// along any axis.
func (w *Wireframe) Bounds() r3.Box {
	if len(w.Edges) == 0 {
		return r3.Box{}
	}
	b := r3.Box{Min: w.Edges[0].Start, Max: w.Edges[0].Start}
	grow := func(p r3.Vec) {
		b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
		b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	}
	for _, e := range w.Edges {
		grow(e.Start)
		grow(e.End)
	}
	return b
}

// AddCloth adds one edge per spring between the given positions and marks
// the constrained row.
func (w *Wireframe) AddCloth(positions []r3.Vec, springs []cloth.Spring, width int) {
	for _, s := range springs {
		if s.A >= len(positions) || s.B >= len(positions) {
			continue
		}
		l := LayerStructural
		if s.Kind == cloth.Shear {
			l = LayerShear
		}
		w.AddEdge(positions[s.A], positions[s.B], l)
	}
	for i := 0; i < width && i < len(positions); i++ {
		w.AddPoint(positions[i], LayerPinned)
	}
}

// AddField adds an arrow of the given length scale along each cell vector.
func (w *Wireframe) AddField(cells []field.Cell, length float64) {
	for _, c := range cells {
		w.AddEdge(c.Position, r3.Add(c.Position, r3.Scale(length, c.Vector)), LayerField)
	}
}

type ProjectedEdge struct {
	X1, Y1, X2, Y2 int
	Depth          float64
	Layer          Layer
}

// ProjectEdges projects the edges in mask onto a sw x sh grid, farthest
// first. Edges crossing the near plane or with neither endpoint on screen
// are dropped.
func ProjectEdges(w *Wireframe, cam *Camera, mask Layer, sw, sh int) []ProjectedEdge {
	proj := make([]ProjectedEdge, 0, len(w.Edges))
	for _, e := range w.Edges {
		if e.Layer&mask == 0 || cam.behind(cam.View(e.Start)) || cam.behind(cam.View(e.End)) {
			continue
		}
		x1, y1, d1, v1 := cam.Project(e.Start, sw, sh)
		x2, y2, d2, v2 := cam.Project(e.End, sw, sh)
		if v1 || v2 {
			proj = append(proj, ProjectedEdge{x1, y1, x2, y2, (d1 + d2) / 2, e.Layer})
		}
	}
	sort.SliceStable(proj, func(i, j int) bool { return proj[i].Depth < proj[j].Depth })
	return proj
}

// Render3D draws the edges of w selected by mask onto c.
func Render3D(c *Canvas, w *Wireframe, cam *Camera, mask Layer) {
	if c == nil || w == nil || cam == nil {
		return
	}
	sw, sh := c.Dots()
	for _, e := range ProjectEdges(w, cam, mask, sw, sh) {
		switch {
		case e.Layer == LayerPinned:
			c.Dot(e.X1, e.Y1, 1)
		case e.X1 == e.X2 && e.Y1 == e.Y2:
			c.Set(e.X1, e.Y1)
		default:
			c.DrawLine(e.X1, e.Y1, e.X2, e.Y2)
		}
	}
}
