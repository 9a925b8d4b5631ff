package analysis

import (
	"strings"

	"github.com/san-kum/clothfield/internal/dynamo"
)

type PhasePoint struct{ X, Y float64 }

// PhasePortrait pairs one coordinate of a point's position with the same
// coordinate of its velocity.
type PhasePortrait struct {
	Point  int
	Axis   Axis
	Points []PhasePoint
}

func NewPhasePortrait(frames []dynamo.Frame, point int, axis Axis) *PhasePortrait {
	p := &PhasePortrait{
		Point:  point,
		Axis:   axis,
		Points: make([]PhasePoint, 0, len(frames)),
	}
	for _, f := range frames {
		if point < 0 || point >= len(f.Positions) || point >= len(f.Velocities) {
			continue
		}
		p.Points = append(p.Points, PhasePoint{
			X: axis.Of(f.Positions[point]),
			Y: axis.Of(f.Velocities[point]),
		})
	}
	return p
}

// ToASCII plots the portrait on a width x height character grid with axes
// drawn where they are visible.
func (p *PhasePortrait) ToASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX, maxX = min(minX, pt.X), max(maxX, pt.X)
		minY, maxY = min(minY, pt.Y), max(maxY, pt.Y)
	}

	rangeX, rangeY := maxX-minX, maxY-minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX, rangeY = maxX-minX, maxY-minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for _, pt := range p.Points {
		col := int((pt.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((pt.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
